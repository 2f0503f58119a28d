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

// TermRepository provides database access for academic sessions and terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a new instance of TermRepository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// ListSessions returns all academic sessions, newest first.
func (r *TermRepository) ListSessions(ctx context.Context) ([]models.AcademicSession, error) {
	const query = `SELECT id, name, start_date, end_date, created_at, updated_at FROM academic_sessions ORDER BY start_date DESC`
	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession inserts a new academic session.
func (r *TermRepository) CreateSession(ctx context.Context, session *models.AcademicSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	const query = `INSERT INTO academic_sessions (id, name, start_date, end_date, created_at, updated_at)
VALUES (:id, :name, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionExistsByName reports whether a session with the name exists.
func (r *TermRepository) SessionExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM academic_sessions WHERE LOWER(name) = LOWER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check session name: %w", err)
	}
	return exists, nil
}

// FindSessionByID returns an academic session by identifier.
func (r *TermRepository) FindSessionByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	const query = `SELECT id, name, start_date, end_date, created_at, updated_at FROM academic_sessions WHERE id = $1 LIMIT 1`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// FindByID returns a term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, session_id, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE id = $1 LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find term by id: %w", err)
	}
	return &term, nil
}

// FindActive returns the currently active term, if any.
func (r *TermRepository) FindActive(ctx context.Context) (*models.Term, error) {
	const query = `SELECT id, name, session_id, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE is_active = TRUE LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active term: %w", err)
	}
	return &term, nil
}

// List returns terms filtered by session.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, error) {
	query := `SELECT id, name, session_id, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE 1=1`
	var args []interface{}

	if filter.SessionID != "" {
		query += fmt.Sprintf(" AND session_id = $%d", len(args)+1)
		args = append(args, filter.SessionID)
	}
	if filter.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", len(args)+1)
		args = append(args, *filter.IsActive)
	}
	query += " ORDER BY start_date ASC"

	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// Create inserts a new term.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now

	const query = `INSERT INTO terms (id, name, session_id, start_date, end_date, is_active, created_at, updated_at)
VALUES (:id, :name, :session_id, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// SetActive flips the active flag to the given term. Deactivating every
// other term and activating the target happens in one transaction so at
// most one term is ever active.
func (r *TermRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE terms SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE`, now); err != nil {
		return fmt.Errorf("deactivate terms: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE terms SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("activate term: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate term rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
