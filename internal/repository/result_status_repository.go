package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landmark-academy/school-portal-api/internal/models"
)

// ResultStatusRepository provides database access for the per-class-per-term
// result workflow rows.
type ResultStatusRepository struct {
	db *sqlx.DB
}

// NewResultStatusRepository creates a new instance of ResultStatusRepository.
func NewResultStatusRepository(db *sqlx.DB) *ResultStatusRepository {
	return &ResultStatusRepository{db: db}
}

// Get returns the workflow row for a (class, term) pair. sql.ErrNoRows means
// the pair has never left OPEN.
func (r *ResultStatusRepository) Get(ctx context.Context, classID, termID string) (*models.ClassTermStatus, error) {
	const query = `SELECT id, class_id, term_id, status, submitted_at, locked_at, created_at, updated_at FROM class_term_statuses WHERE class_id = $1 AND term_id = $2 LIMIT 1`
	var cts models.ClassTermStatus
	if err := r.db.GetContext(ctx, &cts, query, classID, termID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get class term status: %w", err)
	}
	return &cts, nil
}

// ListByTerm returns all workflow rows recorded for a term.
func (r *ResultStatusRepository) ListByTerm(ctx context.Context, termID string) ([]models.ClassTermStatus, error) {
	const query = `SELECT id, class_id, term_id, status, submitted_at, locked_at, created_at, updated_at FROM class_term_statuses WHERE term_id = $1 ORDER BY created_at ASC`
	var statuses []models.ClassTermStatus
	if err := r.db.SelectContext(ctx, &statuses, query, termID); err != nil {
		return nil, fmt.Errorf("list term statuses: %w", err)
	}
	return statuses, nil
}

// Transition moves the (class, term) pair to the target status. The row is
// locked for the duration of the transaction so concurrent transitions
// serialize, and the check callback validates the current status before any
// write happens. A missing row counts as OPEN and is created on demand.
func (r *ResultStatusRepository) Transition(ctx context.Context, classID, termID string, target models.ResultStatus, check func(current models.ResultStatus) error) (*models.ClassTermStatus, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const selectQuery = `SELECT id, class_id, term_id, status, submitted_at, locked_at, created_at, updated_at FROM class_term_statuses WHERE class_id = $1 AND term_id = $2 FOR UPDATE`

	now := time.Now().UTC()
	var cts models.ClassTermStatus
	err = tx.GetContext(ctx, &cts, selectQuery, classID, termID)
	switch {
	case err == sql.ErrNoRows:
		cts = models.ClassTermStatus{
			ID:        uuid.NewString(),
			ClassID:   classID,
			TermID:    termID,
			Status:    models.ResultOpen,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO class_term_statuses (id, class_id, term_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			cts.ID, cts.ClassID, cts.TermID, cts.Status, cts.CreatedAt, cts.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert class term status: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lock class term status: %w", err)
	}

	if check != nil {
		if err = check(cts.Status); err != nil {
			return nil, err
		}
	}

	cts.Status = target
	cts.UpdatedAt = now
	switch target {
	case models.ResultSubmitted:
		cts.SubmittedAt = &now
	case models.ResultLocked:
		cts.LockedAt = &now
	case models.ResultOpen:
		cts.SubmittedAt = nil
		cts.LockedAt = nil
	}

	if _, err = tx.ExecContext(ctx, `UPDATE class_term_statuses SET status = $2, submitted_at = $3, locked_at = $4, updated_at = $5 WHERE id = $1`,
		cts.ID, cts.Status, cts.SubmittedAt, cts.LockedAt, cts.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update class term status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &cts, nil
}
