package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService

	m.RecordCacheLookup(true)
	m.RecordGradeTransition("approved")
	m.RecordAdmissionDecision("accepted")
	m.RecordPublish()
	m.RecordImportRows("imported", 3)
}

func TestGradeTransitionsFeedCounter(t *testing.T) {
	total := 75.0
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusDraft, Total: &total,
		},
	}}
	svc := newGradeService(repo)
	metrics := NewMetricsService()
	svc.AttachMetrics(metrics)
	admin := models.Actor{UserID: "admin-1", Role: models.RoleAdmin}

	require.NoError(t, svc.Submit(context.Background(), teacherActor(), "grade-1"))
	require.NoError(t, svc.Approve(context.Background(), admin, "grade-1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.gradeMoves.WithLabelValues("submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.gradeMoves.WithLabelValues("approved")))
}

func TestAdmissionDecisionsFeedCounter(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := openAdmissions(repo)
	metrics := NewMetricsService()
	svc.AttachMetrics(metrics)

	accepted := pendingApplication(repo)
	rejected := pendingApplication(repo)
	_, err := svc.Accept(context.Background(), adminActor(), accepted)
	require.NoError(t, err)
	require.NoError(t, svc.Reject(context.Background(), adminActor(), rejected, RejectApplicationRequest{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("rejected")))
}

func TestImportRowsFeedCounter(t *testing.T) {
	students := &mockStudentCreator{}
	svc := newImportService(students, &mockClassResolver{})
	metrics := NewMetricsService()
	svc.AttachMetrics(metrics)

	payload := strings.Join([]string{
		"first_name,last_name,gender,class",
		"Ama,Mensah,female,",
		",Owusu,male,",
	}, "\n")
	report, err := svc.ImportStudents(context.Background(), adminActor(), strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.importedRows.WithLabelValues("imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.importedRows.WithLabelValues("failed")))
}

func TestPublishAndCacheLookupsFeedCounters(t *testing.T) {
	repo := &mockResultRepo{stored: map[string][]models.TermResult{
		classTermKey("class-1", "term-1"): {{StudentID: "stu-1", TermID: "term-1", ClassID: "class-1", GPA: 3.2}},
	}}
	cache := &memoryCache{}
	svc := NewResultService(repo, &mockApprovedGrades{}, mockTermReader{}, cache, allowAllAuthz{}, nil, nil, 0)
	metrics := NewMetricsService()
	svc.AttachMetrics(metrics)

	require.NoError(t, svc.Publish(context.Background(), adminActor(), "class-1", "term-1"))
	_, err := svc.StudentResult(context.Background(), adminActor(), "stu-1", "term-1")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.publishes))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.cacheHits))
}
