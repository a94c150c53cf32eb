package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockStudentReader struct{}

func (mockStudentReader) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{
		ID: id, StudentNo: "20260001", FirstName: "Ama", LastName: "Mensah", Active: true,
	}}, nil
}

func publishedResultRepo() *mockResultRepo {
	return &mockResultRepo{
		stored: map[string][]models.TermResult{
			classTermKey("class-1", "term-1"): {{
				StudentID: "stu-1", TermID: "term-1", ClassID: "class-1",
				GPA: 3.55, ClassPosition: 1, ClassSize: 24,
			}},
		},
		published: map[string]bool{classTermKey("class-1", "term-1"): true},
	}
}

func scoredSubject(studentID, subjectName string, ca, exam float64, letter, remark string) models.SubjectGradeDetail {
	total := ca + exam
	l, r := letter, remark
	return models.SubjectGradeDetail{
		SubjectGrade: models.SubjectGrade{
			StudentID: studentID, TermID: "term-1", ClassID: "class-1",
			CA: &ca, Exam: &exam, Total: &total, Letter: &l, Remark: &r,
			Status: models.GradeStatusLocked,
		},
		SubjectName: subjectName,
		StudentNo:   "20260001",
	}
}

func TestReportCardRendersPDF(t *testing.T) {
	grades := &mockApprovedGrades{grades: []models.SubjectGradeDetail{
		scoredSubject("stu-1", "Mathematics", 25, 50, "A-", "EXCELLENT"),
		scoredSubject("stu-1", "English", 20, 45, "B", "VERY GOOD"),
	}}
	svc := NewReportService(publishedResultRepo(), grades, mockStudentReader{}, mockTermReader{}, allowAllAuthz{}, nil, ReportConfig{Enabled: true, SchoolName: "Baobab Academy"})

	payload, err := svc.ReportCard(context.Background(), adminActor(), "stu-1", "term-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestReportCardRefusedBeforePublication(t *testing.T) {
	repo := publishedResultRepo()
	repo.published = nil
	svc := NewReportService(repo, &mockApprovedGrades{}, mockStudentReader{}, mockTermReader{}, allowAllAuthz{}, nil, ReportConfig{Enabled: true})

	_, err := svc.ReportCard(context.Background(), adminActor(), "stu-1", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestClassResultSheetRendersCSV(t *testing.T) {
	svc := NewReportService(publishedResultRepo(), &mockApprovedGrades{}, mockStudentReader{}, mockTermReader{}, allowAllAuthz{}, nil, ReportConfig{Enabled: true})

	payload, err := svc.ClassResultSheet(context.Background(), adminActor(), "class-1", "term-1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Position,Student No,Student,GPA,Published", lines[0])
	assert.Contains(t, lines[1], "3.55")
}

func TestReportsDisabledByConfig(t *testing.T) {
	svc := NewReportService(publishedResultRepo(), &mockApprovedGrades{}, mockStudentReader{}, mockTermReader{}, allowAllAuthz{}, nil, ReportConfig{})

	_, err := svc.ReportCard(context.Background(), adminActor(), "stu-1", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestReportCardScopedToOwnRecord(t *testing.T) {
	roster := &mockRoster{students: map[string]*models.Student{
		"ama@school.test": {ID: "stu-2", StudentNo: "20260002"},
	}}
	authz := NewAuthzService(&mockPermissionRepo{}, roster, nil)
	svc := NewReportService(publishedResultRepo(), &mockApprovedGrades{}, mockStudentReader{}, mockTermReader{}, authz, nil, ReportConfig{Enabled: true, SchoolName: "Baobab Academy"})
	student := models.Actor{UserID: "u-2", Email: "ama@school.test", Role: models.RoleStudent}

	_, err := svc.ReportCard(context.Background(), student, "stu-1", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}
