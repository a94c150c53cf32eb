package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
	appErrors "github.com/baobab-labs/school-portal-api/pkg/errors"
)

type mockResultRepo struct {
	stored    map[string][]models.TermResult
	published map[string]bool
}

func classTermKey(classID, termID string) string { return classID + "|" + termID }

func (m *mockResultRepo) ReplaceForClassTerm(_ context.Context, classID, termID string, results []models.TermResult) error {
	if m.stored == nil {
		m.stored = make(map[string][]models.TermResult)
	}
	m.stored[classTermKey(classID, termID)] = results
	return nil
}

func (m *mockResultRepo) ListByClassTerm(_ context.Context, classID, termID string) ([]models.TermResultDetail, error) {
	var details []models.TermResultDetail
	for _, r := range m.stored[classTermKey(classID, termID)] {
		details = append(details, models.TermResultDetail{TermResult: r})
	}
	return details, nil
}

func (m *mockResultRepo) FindByStudentTerm(_ context.Context, studentID, termID string) (*models.TermResult, error) {
	for key, results := range m.stored {
		for _, r := range results {
			if r.StudentID == studentID && r.TermID == termID {
				result := r
				result.IsPublished = m.published[key]
				return &result, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultRepo) ListPublishedByStudent(_ context.Context, studentID string) ([]models.TermResult, error) {
	var out []models.TermResult
	for key, results := range m.stored {
		if !m.published[key] {
			continue
		}
		for _, r := range results {
			if r.StudentID == studentID {
				r.IsPublished = true
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *mockResultRepo) Publish(_ context.Context, classID, termID string) error {
	if m.published == nil {
		m.published = make(map[string]bool)
	}
	m.published[classTermKey(classID, termID)] = true
	return nil
}

func (m *mockResultRepo) UpdateComments(context.Context, string, *string, *string) error {
	return nil
}

type mockApprovedGrades struct {
	grades []models.SubjectGradeDetail
}

func (m *mockApprovedGrades) ListApprovedByClassTerm(_ context.Context, classID, termID string) ([]models.SubjectGradeDetail, error) {
	var out []models.SubjectGradeDetail
	for _, g := range m.grades {
		if g.ClassID == classID && g.TermID == termID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockApprovedGrades) ListDetailsByStudentTerm(_ context.Context, studentID, termID string, _ ...models.GradeStatus) ([]models.SubjectGradeDetail, error) {
	var out []models.SubjectGradeDetail
	for _, g := range m.grades {
		if g.StudentID == studentID && g.TermID == termID {
			out = append(out, g)
		}
	}
	return out, nil
}

type mockTermReader struct{}

func (mockTermReader) FindTerm(_ context.Context, id string) (*models.Term, error) {
	return &models.Term{ID: id, Name: "Term " + id}, nil
}

type memoryCache struct {
	deleted []string
}

func (c *memoryCache) Get(context.Context, string, interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *memoryCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	return nil
}

func approvedGrade(studentID, studentNo, subjectID, letter string) models.SubjectGradeDetail {
	l := letter
	return models.SubjectGradeDetail{
		SubjectGrade: models.SubjectGrade{
			ID:        studentID + "-" + subjectID,
			StudentID: studentID,
			SubjectID: subjectID,
			ClassID:   "class-1",
			TermID:    "term-1",
			Letter:    &l,
			Status:    models.GradeStatusApproved,
		},
		StudentNo: studentNo,
	}
}

func adminActor() models.Actor {
	return models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestAggregateRanksByGPA(t *testing.T) {
	grades := &mockApprovedGrades{grades: []models.SubjectGradeDetail{
		approvedGrade("stu-1", "20260001", "math", "B"),
		approvedGrade("stu-1", "20260001", "english", "B"),
		approvedGrade("stu-2", "20260002", "math", "A"),
		approvedGrade("stu-2", "20260002", "english", "A-"),
	}}
	repo := &mockResultRepo{}
	svc := NewResultService(repo, grades, mockTermReader{}, nil, allowAllAuthz{}, nil, nil, 0)

	results, err := svc.Aggregate(context.Background(), adminActor(), "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "stu-2", results[0].StudentID)
	assert.Equal(t, 1, results[0].ClassPosition)
	assert.InDelta(t, 3.85, results[0].GPA, 0.001)
	assert.Equal(t, "stu-1", results[1].StudentID)
	assert.Equal(t, 2, results[1].ClassPosition)
	assert.InDelta(t, 3.0, results[1].GPA, 0.001)
	assert.Equal(t, 2, results[0].ClassSize)
}

func TestAggregateTiesBreakOnStudentNo(t *testing.T) {
	grades := &mockApprovedGrades{grades: []models.SubjectGradeDetail{
		approvedGrade("stu-b", "20260009", "math", "A"),
		approvedGrade("stu-a", "20260002", "math", "A"),
		approvedGrade("stu-c", "20260005", "math", "A"),
	}}
	repo := &mockResultRepo{}
	svc := NewResultService(repo, grades, mockTermReader{}, nil, allowAllAuthz{}, nil, nil, 0)

	results, err := svc.Aggregate(context.Background(), adminActor(), "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"stu-a", "stu-c", "stu-b"}, []string{
		results[0].StudentID, results[1].StudentID, results[2].StudentID,
	})
	assert.Equal(t, []int{1, 2, 3}, []int{
		results[0].ClassPosition, results[1].ClassPosition, results[2].ClassPosition,
	})
}

func TestAggregateExcludesStudentsWithoutGrades(t *testing.T) {
	grades := &mockApprovedGrades{grades: []models.SubjectGradeDetail{
		approvedGrade("stu-1", "20260001", "math", "C"),
	}}
	repo := &mockResultRepo{}
	svc := NewResultService(repo, grades, mockTermReader{}, nil, allowAllAuthz{}, nil, nil, 0)

	results, err := svc.Aggregate(context.Background(), adminActor(), "class-1", "term-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ClassSize)
}

func TestAggregateDeniedWithoutPermission(t *testing.T) {
	svc := NewResultService(&mockResultRepo{}, &mockApprovedGrades{}, mockTermReader{}, nil, denyAllAuthz{}, nil, nil, 0)

	_, err := svc.Aggregate(context.Background(), models.Actor{Role: models.RoleTeacher}, "class-1", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestPublishInvalidatesCache(t *testing.T) {
	cache := &memoryCache{}
	repo := &mockResultRepo{stored: map[string][]models.TermResult{
		classTermKey("class-1", "term-1"): {{StudentID: "stu-1", TermID: "term-1", ClassID: "class-1", GPA: 3.2}},
	}}
	svc := NewResultService(repo, &mockApprovedGrades{}, mockTermReader{}, cache, allowAllAuthz{}, nil, nil, 0)

	require.NoError(t, svc.Publish(context.Background(), adminActor(), "class-1", "term-1"))
	assert.True(t, repo.published[classTermKey("class-1", "term-1")])
	assert.Contains(t, cache.deleted, "results:term-1:*")
}

func TestStudentResultHiddenUntilPublished(t *testing.T) {
	repo := &mockResultRepo{stored: map[string][]models.TermResult{
		classTermKey("class-1", "term-1"): {{StudentID: "stu-1", TermID: "term-1", ClassID: "class-1", GPA: 3.2}},
	}}
	svc := NewResultService(repo, &mockApprovedGrades{}, mockTermReader{}, nil, allowAllAuthz{}, nil, nil, 0)

	_, err := svc.StudentResult(context.Background(), adminActor(), "stu-1", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	require.NoError(t, repo.Publish(context.Background(), "class-1", "term-1"))
	view, err := svc.StudentResult(context.Background(), adminActor(), "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", view.Result.StudentID)
}

func TestTranscriptComputesCGPA(t *testing.T) {
	repo := &mockResultRepo{
		stored: map[string][]models.TermResult{
			classTermKey("class-1", "term-1"): {{StudentID: "stu-1", TermID: "term-1", ClassID: "class-1", GPA: 3.0}},
			classTermKey("class-1", "term-2"): {{StudentID: "stu-1", TermID: "term-2", ClassID: "class-1", GPA: 3.5}},
		},
		published: map[string]bool{
			classTermKey("class-1", "term-1"): true,
			classTermKey("class-1", "term-2"): true,
		},
	}
	svc := NewResultService(repo, &mockApprovedGrades{}, mockTermReader{}, nil, allowAllAuthz{}, nil, nil, 0)

	transcript, err := svc.Transcript(context.Background(), adminActor(), "stu-1")
	require.NoError(t, err)
	require.Len(t, transcript.Terms, 2)
	assert.InDelta(t, 3.25, transcript.CGPA, 0.001)
}

func TestStudentResultScopedToOwnRecord(t *testing.T) {
	repo := &mockResultRepo{
		stored: map[string][]models.TermResult{
			classTermKey("class-1", "term-1"): {
				{StudentID: "stu-1", TermID: "term-1", ClassID: "class-1", GPA: 3.2},
				{StudentID: "stu-2", TermID: "term-1", ClassID: "class-1", GPA: 3.8},
			},
		},
		published: map[string]bool{classTermKey("class-1", "term-1"): true},
	}
	roster := &mockRoster{students: map[string]*models.Student{
		"ada@school.test": {ID: "stu-1", StudentNo: "BBC/2026/0001"},
	}}
	authz := NewAuthzService(&mockPermissionRepo{}, roster, nil)
	svc := NewResultService(repo, &mockApprovedGrades{}, mockTermReader{}, nil, authz, nil, nil, 0)
	student := models.Actor{UserID: "u-1", Email: "ada@school.test", Role: models.RoleStudent}

	view, err := svc.StudentResult(context.Background(), student, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", view.Result.StudentID)

	_, err = svc.StudentResult(context.Background(), student, "stu-2", "term-1")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	_, err = svc.Transcript(context.Background(), student, "stu-2")
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestUpdateCommentsOpenToPlainTeacher(t *testing.T) {
	authz := NewAuthzService(&mockPermissionRepo{}, &mockRoster{}, nil)
	svc := NewResultService(&mockResultRepo{}, &mockApprovedGrades{}, mockTermReader{}, nil, authz, nil, nil, 0)
	comment := "Consistent effort this term"

	err := svc.UpdateComments(context.Background(), models.Actor{UserID: "t-1", Role: models.RoleTeacher}, "res-1", &comment, nil)
	require.NoError(t, err)
}
