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

// ClassSubjectRepository provides database access for class-subject mappings
// and subject teacher assignments.
type ClassSubjectRepository struct {
	db *sqlx.DB
}

// NewClassSubjectRepository creates a new instance of ClassSubjectRepository.
func NewClassSubjectRepository(db *sqlx.DB) *ClassSubjectRepository {
	return &ClassSubjectRepository{db: db}
}

// FindByID returns a class-subject mapping by identifier.
func (r *ClassSubjectRepository) FindByID(ctx context.Context, id string) (*models.ClassSubject, error) {
	const query = `SELECT id, class_id, subject_id, created_at FROM class_subjects WHERE id = $1 LIMIT 1`
	var cs models.ClassSubject
	if err := r.db.GetContext(ctx, &cs, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class subject by id: %w", err)
	}
	return &cs, nil
}

// Exists reports whether the class already has the subject.
func (r *ClassSubjectRepository) Exists(ctx context.Context, classID, subjectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_subjects WHERE class_id = $1 AND subject_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, subjectID); err != nil {
		return false, fmt.Errorf("check class subject: %w", err)
	}
	return exists, nil
}

// ListByClass returns the subjects taught in a class with assigned teachers.
func (r *ClassSubjectRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectDetail, error) {
	const query = `SELECT cs.id, cs.class_id, cs.subject_id, s.name AS subject_name, s.code AS subject_code, s.is_core
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.class_id = $1
ORDER BY s.name ASC`

	var details []models.ClassSubjectDetail
	if err := r.db.SelectContext(ctx, &details, query, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	if len(details) == 0 {
		return details, nil
	}

	const teacherQuery = `SELECT sa.id AS assignment_id, sa.teacher_id, u.full_name, sa.class_subject_id
FROM subject_assignments sa
JOIN users u ON u.id = sa.teacher_id
JOIN class_subjects cs ON cs.id = sa.class_subject_id
WHERE cs.class_id = $1
ORDER BY u.full_name ASC`

	var rows []struct {
		models.AssignedTeacher
		ClassSubjectID string `db:"class_subject_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, teacherQuery, classID); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}

	byMapping := make(map[string][]models.AssignedTeacher, len(details))
	for _, row := range rows {
		byMapping[row.ClassSubjectID] = append(byMapping[row.ClassSubjectID], row.AssignedTeacher)
	}
	for i := range details {
		details[i].Teachers = byMapping[details[i].ID]
	}

	return details, nil
}

// Create inserts a new class-subject mapping.
func (r *ClassSubjectRepository) Create(ctx context.Context, cs *models.ClassSubject) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO class_subjects (id, class_id, subject_id, created_at) VALUES (:id, :class_id, :subject_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cs); err != nil {
		return fmt.Errorf("create class subject: %w", err)
	}
	return nil
}

// Delete removes a class-subject mapping and its teacher assignments.
func (r *ClassSubjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_assignments WHERE class_subject_id = $1`, id); err != nil {
		return fmt.Errorf("delete subject assignments: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class subject: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete class subject rows: %w", err)
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

// FindAssignment returns a subject assignment by identifier.
func (r *ClassSubjectRepository) FindAssignment(ctx context.Context, id string) (*models.SubjectAssignment, error) {
	const query = `SELECT id, class_subject_id, teacher_id, assigned_by_id, created_at FROM subject_assignments WHERE id = $1 LIMIT 1`
	var sa models.SubjectAssignment
	if err := r.db.GetContext(ctx, &sa, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject assignment: %w", err)
	}
	return &sa, nil
}

// AssignmentExists reports whether the teacher is already assigned to the
// class-subject mapping.
func (r *ClassSubjectRepository) AssignmentExists(ctx context.Context, classSubjectID, teacherID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_assignments WHERE class_subject_id = $1 AND teacher_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classSubjectID, teacherID); err != nil {
		return false, fmt.Errorf("check subject assignment: %w", err)
	}
	return exists, nil
}

// CreateAssignment inserts a teacher assignment for a class-subject mapping.
func (r *ClassSubjectRepository) CreateAssignment(ctx context.Context, sa *models.SubjectAssignment) error {
	if sa.ID == "" {
		sa.ID = uuid.NewString()
	}
	if sa.CreatedAt.IsZero() {
		sa.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subject_assignments (id, class_subject_id, teacher_id, assigned_by_id, created_at) VALUES (:id, :class_subject_id, :teacher_id, :assigned_by_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sa); err != nil {
		return fmt.Errorf("create subject assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes a subject assignment.
func (r *ClassSubjectRepository) DeleteAssignment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subject_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject assignment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountAssignmentsForTeacher returns the number of remaining subject
// assignments held by a teacher.
func (r *ClassSubjectRepository) CountAssignmentsForTeacher(ctx context.Context, teacherID string) (int, error) {
	const query = `SELECT COUNT(*) FROM subject_assignments WHERE teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count teacher assignments: %w", err)
	}
	return count, nil
}

// IsSubjectTeacherFor reports whether the teacher holds a subject assignment
// in the given class.
func (r *ClassSubjectRepository) IsSubjectTeacherFor(ctx context.Context, teacherID, classID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_assignments sa JOIN class_subjects cs ON cs.id = sa.class_subject_id WHERE sa.teacher_id = $1 AND cs.class_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID); err != nil {
		return false, fmt.Errorf("check subject teacher for class: %w", err)
	}
	return exists, nil
}
