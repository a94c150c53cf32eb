package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

func newGradeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeRepositoryUpsertDraftBlockedByStatus(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO subject_grades").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ca := 20.0
	grade := &models.SubjectGrade{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		ClassID:   "class-1",
		TermID:    "term-1",
		CA:        &ca,
		EnteredBy: "teacher-1",
	}
	err := repo.UpsertDraft(context.Background(), grade)
	require.ErrorIs(t, err, ErrStatusMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryTransitionStatusCAS(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("UPDATE subject_grades SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionStatus(context.Background(), "grade-1", models.GradeStatusDraft, models.GradeStatusSubmitted, "teacher-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryTransitionStatusMismatch(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("UPDATE subject_grades SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionStatus(context.Background(), "grade-1", models.GradeStatusSubmitted, models.GradeStatusApproved, "admin-1")
	require.ErrorIs(t, err, ErrStatusMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositorySubmitScopeCountsAffected(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("UPDATE subject_grades SET status").
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.SubmitScope(context.Background(), "class-1", "sub-1", "term-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryFindByScope(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "subject_id", "class_id", "term_id", "status", "entered_by"}).
		AddRow("grade-1", "stu-1", "sub-1", "class-1", "term-1", models.GradeStatusDraft, "teacher-1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND subject_id = $2 AND class_id = $3 AND term_id = $4")).
		WithArgs("stu-1", "sub-1", "class-1", "term-1").
		WillReturnRows(rows)

	grade, err := repo.FindByScope(context.Background(), "stu-1", "sub-1", "class-1", "term-1")
	require.NoError(t, err)
	require.Equal(t, "grade-1", grade.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
