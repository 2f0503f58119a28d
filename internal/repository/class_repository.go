package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/landmark-academy/school-portal-api/internal/models"
)

// ErrTeacherAssigned reports a class-teacher nomination for a teacher who
// already leads a different class.
var ErrTeacherAssigned = errors.New("teacher is already assigned to another class")

// ClassRepository provides database access for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, level, section, class_teacher_id, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// ExistsByName reports whether a class with the given name already exists.
func (r *ClassRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM classes WHERE LOWER(name) = LOWER($1))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return exists, nil
}

// List returns classes with teacher name and student count, plus total count.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	baseQuery := `FROM classes c LEFT JOIN users u ON u.id = c.class_teacher_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("c.section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "c.name",
		"level":      "c.level",
		"created_at": "c.created_at",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "c.name"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT c.id, c.name, c.level, c.section, c.class_teacher_id, c.created_at, c.updated_at,
u.full_name AS class_teacher_name,
(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count
%s ORDER BY %s %s LIMIT %d OFFSET %d`, baseQuery, sortCol, sortOrder, pageSize, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	return classes, total, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, name, level, section, class_teacher_id, created_at, updated_at)
VALUES (:id, :name, :level, :section, :class_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Delete removes a class. The class-teacher link on the previous teacher is
// cleared in the same transaction so the user rows stay consistent.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
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
	if _, err = tx.ExecContext(ctx, `UPDATE users SET is_class_teacher = FALSE, assigned_class_id = NULL, updated_at = $2 WHERE assigned_class_id = $1`, id, now); err != nil {
		return fmt.Errorf("clear class teacher: %w", err)
	}

	// Teachers whose only subject assignments were in this class lose the
	// is_subject_teacher flag. Recompute against assignments outside the
	// class before the cascade removes them.
	if _, err = tx.ExecContext(ctx, `UPDATE users SET is_subject_teacher = EXISTS (SELECT 1 FROM subject_assignments sa JOIN class_subjects cs ON cs.id = sa.class_subject_id WHERE sa.teacher_id = users.id AND cs.class_id <> $1), updated_at = $2 WHERE id IN (SELECT sa.teacher_id FROM subject_assignments sa JOIN class_subjects cs ON cs.id = sa.class_subject_id WHERE cs.class_id = $1)`, id, now); err != nil {
		return fmt.Errorf("recompute subject teacher flags: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_assignments WHERE class_subject_id IN (SELECT id FROM class_subjects WHERE class_id = $1)`, id); err != nil {
		return fmt.Errorf("delete subject assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class subjects: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM students WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class roster: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM class_term_statuses WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class result statuses: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete class rows: %w", err)
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

// AssignClassTeacher atomically moves the class-teacher role to a new teacher.
// It clears the flags on the previous teacher of the target class, clears any
// previous class of the new teacher, then points both sides at each other.
// Passing an empty teacherID removes the class teacher entirely.
func (r *ClassRepository) AssignClassTeacher(ctx context.Context, classID, teacherID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var currentTeacherID *string
	if err = tx.GetContext(ctx, &currentTeacherID, `SELECT class_teacher_id FROM classes WHERE id = $1 FOR UPDATE`, classID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock class: %w", err)
	}

	now := time.Now().UTC()

	if currentTeacherID != nil {
		if _, err = tx.ExecContext(ctx, `UPDATE users SET is_class_teacher = FALSE, assigned_class_id = NULL, updated_at = $2 WHERE id = $1`, *currentTeacherID, now); err != nil {
			return fmt.Errorf("clear previous teacher: %w", err)
		}
	}

	if teacherID == "" {
		if _, err = tx.ExecContext(ctx, `UPDATE classes SET class_teacher_id = NULL, updated_at = $2 WHERE id = $1`, classID, now); err != nil {
			return fmt.Errorf("unset class teacher: %w", err)
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}

	// Re-read the teacher row under the lock: claims may be stale and the
	// teacher could have been assigned elsewhere in the meantime.
	var assignedClassID *string
	if err = tx.GetContext(ctx, &assignedClassID, `SELECT assigned_class_id FROM users WHERE id = $1 FOR UPDATE`, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock teacher: %w", err)
	}
	if assignedClassID != nil && *assignedClassID != classID {
		err = ErrTeacherAssigned
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE users SET is_class_teacher = TRUE, assigned_class_id = $2, updated_at = $3 WHERE id = $1`, teacherID, classID, now); err != nil {
		return fmt.Errorf("set new teacher: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE classes SET class_teacher_id = $2, updated_at = $3 WHERE id = $1`, classID, teacherID, now); err != nil {
		return fmt.Errorf("set class teacher: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
