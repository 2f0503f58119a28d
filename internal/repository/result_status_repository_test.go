package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

func statusRows(now time.Time, status models.ResultStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "class_id", "term_id", "status", "submitted_at", "locked_at", "created_at", "updated_at"}).
		AddRow("cts-1", "class-1", "term-1", string(status), nil, nil, now, now)
}

func TestTransitionExistingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultStatusRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("class-1", "term-1").
		WillReturnRows(statusRows(now, models.ResultOpen))
	mock.ExpectExec("UPDATE class_term_statuses SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cts, err := repo.Transition(context.Background(), "class-1", "term-1", models.ResultSubmitted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ResultSubmitted, cts.Status)
	assert.NotNil(t, cts.SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionCreatesMissingRowAsOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultStatusRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("class-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO class_term_statuses").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE class_term_statuses SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen models.ResultStatus
	cts, err := repo.Transition(context.Background(), "class-1", "term-1", models.ResultSubmitted, func(current models.ResultStatus) error {
		seen = current
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResultOpen, seen)
	assert.Equal(t, models.ResultSubmitted, cts.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionCheckRejectsAndRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultStatusRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("class-1", "term-1").
		WillReturnRows(statusRows(now, models.ResultApproved))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), "class-1", "term-1", models.ResultSubmitted, func(current models.ResultStatus) error {
		if current == models.ResultApproved {
			return appErrors.ErrConflict
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
