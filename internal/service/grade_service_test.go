package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	"github.com/baobab-labs/school-portal-api/internal/repository"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockGradeRepo struct {
	grades      map[string]models.SubjectGrade
	transitions []string
}

func scopeKey(studentID, subjectID, classID, termID string) string {
	return studentID + "|" + subjectID + "|" + classID + "|" + termID
}

func (m *mockGradeRepo) List(_ context.Context, filter models.GradeFilter) ([]models.SubjectGrade, error) {
	var result []models.SubjectGrade
	for _, g := range m.grades {
		if filter.Status != "" && filter.Status != g.Status {
			continue
		}
		result = append(result, g)
	}
	return result, nil
}

func (m *mockGradeRepo) FindByID(_ context.Context, id string) (*models.SubjectGrade, error) {
	for _, g := range m.grades {
		if g.ID == id {
			grade := g
			return &grade, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) FindByScope(_ context.Context, studentID, subjectID, classID, termID string) (*models.SubjectGrade, error) {
	if g, ok := m.grades[scopeKey(studentID, subjectID, classID, termID)]; ok {
		grade := g
		return &grade, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) UpsertDraft(_ context.Context, grade *models.SubjectGrade) error {
	if m.grades == nil {
		m.grades = make(map[string]models.SubjectGrade)
	}
	key := scopeKey(grade.StudentID, grade.SubjectID, grade.ClassID, grade.TermID)
	if existing, ok := m.grades[key]; ok && existing.Status != models.GradeStatusDraft {
		return repository.ErrStatusMismatch
	}
	if grade.ID == "" {
		grade.ID = "grade-" + key
	}
	grade.Status = models.GradeStatusDraft
	m.grades[key] = *grade
	return nil
}

func (m *mockGradeRepo) TransitionStatus(_ context.Context, id string, from, to models.GradeStatus, actorID string) error {
	for key, g := range m.grades {
		if g.ID != id {
			continue
		}
		if g.Status != from {
			return repository.ErrStatusMismatch
		}
		g.Status = to
		if to == models.GradeStatusApproved {
			g.ApprovedBy = &actorID
		}
		m.grades[key] = g
		m.transitions = append(m.transitions, string(from)+"->"+string(to))
		return nil
	}
	return repository.ErrStatusMismatch
}

func (m *mockGradeRepo) SubmitScope(_ context.Context, classID, subjectID, termID string) (int64, error) {
	var affected int64
	for key, g := range m.grades {
		if g.ClassID == classID && g.SubjectID == subjectID && g.TermID == termID &&
			g.Status == models.GradeStatusDraft && g.Exam != nil {
			g.Status = models.GradeStatusSubmitted
			m.grades[key] = g
			affected++
		}
	}
	return affected, nil
}

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(context.Context, models.Actor, Action) error { return nil }

func (allowAllAuthz) AuthorizeStudentRead(context.Context, models.Actor, string) error { return nil }

type denyAllAuthz struct{}

func (denyAllAuthz) Authorize(context.Context, models.Actor, Action) error {
	return appErrors.Clone(appErrors.ErrForbidden, "denied")
}

func (denyAllAuthz) AuthorizeStudentRead(context.Context, models.Actor, string) error {
	return appErrors.Clone(appErrors.ErrForbidden, "denied")
}

func newGradeService(repo *mockGradeRepo) *GradeService {
	return NewGradeService(repo, allowAllAuthz{}, nil, nil, nil)
}

func teacherActor() models.Actor {
	return models.Actor{UserID: "teacher-1", Role: models.RoleTeacher}
}

func TestGradeUpsertDerivesLetterAndRemark(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeService(repo)

	ca, exam := 25.0, 50.0
	grade, err := svc.Upsert(context.Background(), teacherActor(), UpsertGradeRequest{
		StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
		CA: &ca, Exam: &exam,
	})
	require.NoError(t, err)
	require.NotNil(t, grade.Total)
	assert.Equal(t, 75.0, *grade.Total)
	require.NotNil(t, grade.Letter)
	assert.Equal(t, "A-", *grade.Letter)
	assert.Equal(t, "EXCELLENT", *grade.Remark)
	assert.Equal(t, models.GradeStatusDraft, grade.Status)
}

func TestGradeUpsertMissingExamLeavesTotalUndefined(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeService(repo)

	ca := 20.0
	grade, err := svc.Upsert(context.Background(), teacherActor(), UpsertGradeRequest{
		StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
		CA: &ca,
	})
	require.NoError(t, err)
	assert.Nil(t, grade.Total)
	assert.Nil(t, grade.Letter)
}

func TestGradeUpsertRejectsOutOfRangeScores(t *testing.T) {
	svc := newGradeService(&mockGradeRepo{})

	ca := 35.0
	_, err := svc.Upsert(context.Background(), teacherActor(), UpsertGradeRequest{
		StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
		CA: &ca,
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestGradeUpsertBlockedOnceSubmitted(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
			Status: models.GradeStatusSubmitted,
		},
	}}
	svc := newGradeService(repo)

	ca, exam := 10.0, 40.0
	_, err := svc.Upsert(context.Background(), teacherActor(), UpsertGradeRequest{
		StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
		CA: &ca, Exam: &exam,
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestGradeSubmitRequiresCompleteScore(t *testing.T) {
	ca := 20.0
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusDraft, CA: &ca,
		},
	}}
	svc := newGradeService(repo)

	err := svc.Submit(context.Background(), teacherActor(), "grade-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestGradeLifecycleHappyPath(t *testing.T) {
	total := 75.0
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusDraft, Total: &total,
		},
	}}
	svc := newGradeService(repo)
	admin := models.Actor{UserID: "admin-1", Role: models.RoleAdmin}

	require.NoError(t, svc.Submit(context.Background(), teacherActor(), "grade-1"))
	require.NoError(t, svc.Approve(context.Background(), admin, "grade-1"))
	assert.Equal(t, []string{"draft->submitted", "submitted->approved"}, repo.transitions)

	grade, err := svc.Get(context.Background(), "grade-1")
	require.NoError(t, err)
	require.NotNil(t, grade.ApprovedBy)
	assert.Equal(t, "admin-1", *grade.ApprovedBy)
}

func TestGradeApproveFromDraftRejected(t *testing.T) {
	total := 60.0
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusDraft, Total: &total,
		},
	}}
	svc := newGradeService(repo)

	err := svc.Approve(context.Background(), models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, "grade-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestGradeRevertReturnsSubmittedToDraft(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusSubmitted,
		},
	}}
	svc := newGradeService(repo)

	require.NoError(t, svc.Revert(context.Background(), models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, "grade-1"))
	grade, err := svc.Get(context.Background(), "grade-1")
	require.NoError(t, err)
	assert.Equal(t, models.GradeStatusDraft, grade.Status)
}

func TestGradeUnlockReopensLockedGrade(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		scopeKey("stu-1", "sub-1", "class-1", "term-1"): {
			ID: "grade-1", Status: models.GradeStatusLocked,
		},
	}}
	svc := newGradeService(repo)

	require.NoError(t, svc.Unlock(context.Background(), models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, "grade-1"))
	grade, err := svc.Get(context.Background(), "grade-1")
	require.NoError(t, err)
	assert.Equal(t, models.GradeStatusDraft, grade.Status)
}

func TestGradeActionsDeniedWithoutAuthorization(t *testing.T) {
	svc := NewGradeService(&mockGradeRepo{}, denyAllAuthz{}, nil, nil, nil)
	actor := models.Actor{UserID: "s-1", Role: models.RoleStudent}

	_, err := svc.Upsert(context.Background(), actor, UpsertGradeRequest{
		StudentID: "stu-1", SubjectID: "sub-1", ClassID: "class-1", TermID: "term-1",
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	err = svc.Approve(context.Background(), actor, "grade-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestGradeSubmitScopeSkipsIncompleteDrafts(t *testing.T) {
	exam := 50.0
	repo := &mockGradeRepo{grades: map[string]models.SubjectGrade{
		"a": {ID: "g-1", ClassID: "class-1", SubjectID: "sub-1", TermID: "term-1", Status: models.GradeStatusDraft, Exam: &exam},
		"b": {ID: "g-2", ClassID: "class-1", SubjectID: "sub-1", TermID: "term-1", Status: models.GradeStatusDraft},
	}}
	svc := newGradeService(repo)

	affected, err := svc.SubmitScope(context.Background(), teacherActor(), SubmitScopeRequest{
		ClassID: "class-1", SubjectID: "sub-1", TermID: "term-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
}
