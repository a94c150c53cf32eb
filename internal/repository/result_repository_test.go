package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryReplacePreservesComments(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	comment := "Strong improvement"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT student_id, teacher_comment, principal_comment FROM term_results").
		WithArgs("class-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "teacher_comment", "principal_comment"}).
			AddRow("stu-1", comment, nil))
	mock.ExpectExec("DELETE FROM term_results").
		WithArgs("class-1", "term-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO term_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	results := []models.TermResult{{
		StudentID:     "stu-1",
		TermID:        "term-1",
		ClassID:       "class-1",
		GPA:           3.4,
		ClassPosition: 1,
		ClassSize:     1,
	}}
	err := repo.ReplaceForClassTerm(context.Background(), "class-1", "term-1", results)
	require.NoError(t, err)
	require.NotNil(t, results[0].TeacherComment)
	require.Equal(t, comment, *results[0].TeacherComment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryPublishLocksGrades(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE term_results SET is_published = TRUE").
		WithArgs("class-1", "term-1").
		WillReturnResult(sqlmock.NewResult(0, 20))
	mock.ExpectExec("UPDATE subject_grades SET status").
		WillReturnResult(sqlmock.NewResult(0, 120))
	mock.ExpectCommit()

	err := repo.Publish(context.Background(), "class-1", "term-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateCommentsMissingRow(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("UPDATE term_results SET teacher_comment").
		WillReturnResult(sqlmock.NewResult(0, 0))

	comment := "Keep it up"
	err := repo.UpdateComments(context.Background(), "res-1", &comment, nil)
	require.ErrorIs(t, err, ErrStatusMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}
