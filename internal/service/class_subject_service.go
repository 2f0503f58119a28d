package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type classSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassSubject, error)
	Exists(ctx context.Context, classID, subjectID string) (bool, error)
	ListByClass(ctx context.Context, classID string) ([]models.ClassSubjectDetail, error)
	Create(ctx context.Context, cs *models.ClassSubject) error
	Delete(ctx context.Context, id string) error
	FindAssignment(ctx context.Context, id string) (*models.SubjectAssignment, error)
	AssignmentExists(ctx context.Context, classSubjectID, teacherID string) (bool, error)
	CreateAssignment(ctx context.Context, sa *models.SubjectAssignment) error
	DeleteAssignment(ctx context.Context, id string) error
	CountAssignmentsForTeacher(ctx context.Context, teacherID string) (int, error)
}

type classSubjectClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type classSubjectSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type classSubjectUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateSubjectTeacherFlag(ctx context.Context, id string, isSubjectTeacher bool) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ClassSubjectService manages the subjects taught in a class and the
// teachers assigned to them.
type ClassSubjectService struct {
	repo      classSubjectRepository
	classes   classSubjectClassRepository
	subjects  classSubjectSubjectRepository
	users     classSubjectUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassSubjectService constructs a ClassSubjectService instance.
func NewClassSubjectService(repo classSubjectRepository, classes classSubjectClassRepository, subjects classSubjectSubjectRepository, users classSubjectUserRepository, validate *validator.Validate, logger *zap.Logger) *ClassSubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassSubjectService{repo: repo, classes: classes, subjects: subjects, users: users, validator: validate, logger: logger}
}

func (s *ClassSubjectService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// ListByClass returns the subjects taught in a class with their teachers.
func (s *ClassSubjectService) ListByClass(ctx context.Context, actor authz.Principal, assignedClassID *string, classID string) ([]models.ClassSubjectDetail, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	if !authz.CanAccessClass(actor, class.Section, class.ID, assignedClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}

	details, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class subjects")
	}
	return details, nil
}

// AddSubject attaches a subject to a class. Subject and class must belong
// to the same section and the pairing must not already exist.
func (s *ClassSubjectService) AddSubject(ctx context.Context, actor authz.Principal, classID string, req models.AddClassSubjectRequest) (*models.ClassSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class subject payload")
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	if !authz.HasPermission(actor, authz.PermManageSubjects, &class.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the section head can manage subjects in this section")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if subject.Section != class.Section {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "subject belongs to a different section")
	}

	exists, err := s.repo.Exists(ctx, classID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class subject")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject is already attached to this class")
	}

	cs := &models.ClassSubject{ClassID: classID, SubjectID: req.SubjectID}
	if err := s.repo.Create(ctx, cs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach subject")
	}
	return cs, nil
}

// RemoveSubject detaches a subject from a class along with its teacher
// assignments. Teacher flags for affected teachers are recomputed so a
// teacher with no remaining assignments loses the subject-teacher flag.
func (s *ClassSubjectService) RemoveSubject(ctx context.Context, actor authz.Principal, classSubjectID string) error {
	cs, err := s.repo.FindByID(ctx, classSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subject")
	}

	class, err := s.loadClass(ctx, cs.ClassID)
	if err != nil {
		return err
	}

	if !authz.HasPermission(actor, authz.PermManageSubjects, &class.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the section head can manage subjects in this section")
	}

	details, err := s.repo.ListByClass(ctx, cs.ClassID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}
	var affected []string
	for _, d := range details {
		if d.ID != classSubjectID {
			continue
		}
		for _, t := range d.Teachers {
			affected = append(affected, t.TeacherID)
		}
	}

	if err := s.repo.Delete(ctx, classSubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach subject")
	}

	for _, teacherID := range affected {
		s.recomputeSubjectTeacherFlag(ctx, teacherID)
	}
	return nil
}

// AssignTeacher assigns a teacher to a class-subject mapping and marks the
// teacher as a subject teacher.
func (s *ClassSubjectService) AssignTeacher(ctx context.Context, actor authz.Principal, actorID, classSubjectID string, req models.AssignSubjectTeacherRequest) (*models.SubjectAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	cs, err := s.repo.FindByID(ctx, classSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subject")
	}

	class, err := s.loadClass(ctx, cs.ClassID)
	if err != nil {
		return nil, err
	}

	if !authz.HasPermission(actor, authz.PermAssignStaff, &class.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot assign staff in this section")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Status != models.StatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher account is not approved")
	}
	if teacher.Section == nil || *teacher.Section != class.Section {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher belongs to a different section")
	}

	exists, err := s.repo.AssignmentExists(ctx, classSubjectID, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is already assigned to this subject")
	}

	sa := &models.SubjectAssignment{
		ClassSubjectID: classSubjectID,
		TeacherID:      req.TeacherID,
		AssignedByID:   &actorID,
	}
	if err := s.repo.CreateAssignment(ctx, sa); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	if !teacher.IsSubjectTeacher {
		if err := s.users.UpdateSubjectTeacherFlag(ctx, teacher.ID, true); err != nil {
			s.logger.Warn("failed to set subject teacher flag", zap.String("teacher_id", teacher.ID), zap.Error(err))
		}
	}

	newValues, _ := json.Marshal(map[string]string{"class_subject_id": classSubjectID, "teacher_id": req.TeacherID})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionClassTeacher,
		Resource:   "subject_assignment",
		ResourceID: &sa.ID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record assignment audit log", zap.Error(err))
	}

	return sa, nil
}

// RemoveTeacher removes a subject assignment and recomputes the teacher's
// subject-teacher flag.
func (s *ClassSubjectService) RemoveTeacher(ctx context.Context, actor authz.Principal, assignmentID string) error {
	sa, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	cs, err := s.repo.FindByID(ctx, sa.ClassSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subject")
	}

	class, err := s.loadClass(ctx, cs.ClassID)
	if err != nil {
		return err
	}

	if !authz.HasPermission(actor, authz.PermAssignStaff, &class.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot assign staff in this section")
	}

	if err := s.repo.DeleteAssignment(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}

	s.recomputeSubjectTeacherFlag(ctx, sa.TeacherID)
	return nil
}

func (s *ClassSubjectService) recomputeSubjectTeacherFlag(ctx context.Context, teacherID string) {
	count, err := s.repo.CountAssignmentsForTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Warn("failed to count teacher assignments", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	if count == 0 {
		if err := s.users.UpdateSubjectTeacherFlag(ctx, teacherID, false); err != nil {
			s.logger.Warn("failed to clear subject teacher flag", zap.String("teacher_id", teacherID), zap.Error(err))
		}
	}
}
