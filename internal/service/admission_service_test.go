package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockApplicationRepo struct {
	apps     map[string]models.Application
	students []models.Student
	nextSeq  int
}

func (m *mockApplicationRepo) Create(_ context.Context, app *models.Application) error {
	if m.apps == nil {
		m.apps = make(map[string]models.Application)
	}
	if app.ID == "" {
		app.ID = fmt.Sprintf("app-%d", len(m.apps)+1)
	}
	app.Status = models.ApplicationStatusPending
	m.apps[app.ID] = *app
	return nil
}

func (m *mockApplicationRepo) List(_ context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var out []models.Application
	for _, a := range m.apps {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockApplicationRepo) FindByID(_ context.Context, id string) (*models.Application, error) {
	if a, ok := m.apps[id]; ok {
		app := a
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) Accept(_ context.Context, app *models.Application, reviewerID string, year int) (*models.Student, error) {
	stored, ok := m.apps[app.ID]
	if !ok || stored.Status != models.ApplicationStatusPending {
		return nil, repository.ErrAlreadyDecided
	}
	m.nextSeq++
	studentNo := fmt.Sprintf("%d%04d", year, m.nextSeq)
	stored.Status = models.ApplicationStatusAccepted
	stored.GeneratedStudentID = &studentNo
	stored.ReviewedBy = &reviewerID
	m.apps[app.ID] = stored

	student := models.Student{
		ID:        fmt.Sprintf("stu-%d", m.nextSeq),
		StudentNo: studentNo,
		FirstName: app.FirstName,
		LastName:  app.LastName,
		Active:    true,
	}
	m.students = append(m.students, student)
	return &student, nil
}

func (m *mockApplicationRepo) Reject(_ context.Context, id, reviewerID, reason string) error {
	stored, ok := m.apps[id]
	if !ok || stored.Status != models.ApplicationStatusPending {
		return repository.ErrAlreadyDecided
	}
	stored.Status = models.ApplicationStatusRejected
	stored.RejectionReason = &reason
	stored.ReviewedBy = &reviewerID
	m.apps[id] = stored
	return nil
}

func openAdmissions(repo applicationRepository) *AdmissionService {
	return NewAdmissionService(repo, allowAllAuthz{}, nil, nil, nil, AdmissionConfig{OpenForSubmissions: true})
}

func pendingApplication(repo *mockApplicationRepo) string {
	app := &models.Application{FirstName: "Kofi", LastName: "Owusu", GradeAppliedFor: "JHS 1", Programme: "General", GuardianName: "Yaa Owusu", GuardianPhone: "0200000000"}
	_ = repo.Create(context.Background(), app)
	return app.ID
}

func TestAdmissionSubmitCreatesPendingApplication(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := openAdmissions(repo)

	app, err := svc.Submit(context.Background(), SubmitApplicationRequest{
		FirstName: "Kofi", LastName: "Owusu",
		GradeAppliedFor: "JHS 1", Programme: "General",
		GuardianName: "Yaa Owusu", GuardianPhone: "0200000000",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
}

func TestAdmissionSubmitRejectedWhenClosed(t *testing.T) {
	svc := NewAdmissionService(&mockApplicationRepo{}, allowAllAuthz{}, nil, nil, nil, AdmissionConfig{})

	_, err := svc.Submit(context.Background(), SubmitApplicationRequest{
		FirstName: "Kofi", LastName: "Owusu",
		GradeAppliedFor: "JHS 1", Programme: "General",
		GuardianName: "Yaa Owusu", GuardianPhone: "0200000000",
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAdmissionAcceptCreatesExactlyOneStudent(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := openAdmissions(repo)
	id := pendingApplication(repo)

	student, err := svc.Accept(context.Background(), adminActor(), id)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}\d{4}$`, student.StudentNo)
	assert.True(t, student.Active)
	require.Len(t, repo.students, 1)

	// Second decision of any kind must fail without a second student.
	_, err = svc.Accept(context.Background(), adminActor(), id)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
	err = svc.Reject(context.Background(), adminActor(), id, RejectApplicationRequest{})
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
	assert.Len(t, repo.students, 1)
}

func TestAdmissionRejectUsesDefaultReason(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := openAdmissions(repo)
	id := pendingApplication(repo)

	require.NoError(t, svc.Reject(context.Background(), adminActor(), id, RejectApplicationRequest{}))
	app := repo.apps[id]
	assert.Equal(t, models.ApplicationStatusRejected, app.Status)
	require.NotNil(t, app.RejectionReason)
	assert.Equal(t, "Does not meet requirements", *app.RejectionReason)
}

func TestAdmissionDecisionsRequireAuthorization(t *testing.T) {
	repo := &mockApplicationRepo{}
	svc := NewAdmissionService(repo, denyAllAuthz{}, nil, nil, nil, AdmissionConfig{OpenForSubmissions: true})
	id := pendingApplication(repo)

	_, err := svc.Accept(context.Background(), models.Actor{Role: models.RoleTeacher}, id)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Equal(t, models.ApplicationStatusPending, repo.apps[id].Status)
}
