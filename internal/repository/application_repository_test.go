package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/baobab-labs/school-portal-api/internal/models"
)

func newApplicationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryAcceptCreatesStudent(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO student_no_counters").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(7))
	mock.ExpectExec("UPDATE applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app := &models.Application{
		ID:        "app-1",
		FirstName: "Ama",
		LastName:  "Mensah",
	}
	student, err := repo.Accept(context.Background(), app, "admin-1", 2026)
	require.NoError(t, err)
	require.Equal(t, "20260007", student.StudentNo)
	require.True(t, student.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryAcceptAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO student_no_counters").
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"last_seq"}).AddRow(8))
	mock.ExpectExec("UPDATE applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	app := &models.Application{ID: "app-1"}
	student, err := repo.Accept(context.Background(), app, "admin-1", 2026)
	require.ErrorIs(t, err, ErrAlreadyDecided)
	require.Nil(t, student)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryRejectAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("UPDATE applications SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), "app-1", "admin-1", "Does not meet requirements")
	require.ErrorIs(t, err, ErrAlreadyDecided)
	require.NoError(t, mock.ExpectationsWereMet())
}
