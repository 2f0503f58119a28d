package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRegistrationNo(ctx context.Context, regNo string) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// StudentService manages student rosters. Access follows class reach: the
// section head reaches every class in the section and a class teacher
// reaches only the assigned class.
type StudentService struct {
	repo      studentRepository
	classes   studentClassRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, classes studentClassRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// canManageStudents grants roster writes to SUPER_ADMIN directly. The
// manage_students capability itself covers section heads and class teachers
// only; admin reach is an action-level grant.
func canManageStudents(actor authz.Principal, section models.Section) bool {
	if actor.Position == models.PositionSuperAdmin {
		return true
	}
	return authz.HasPermission(actor, authz.PermManageStudents, &section)
}

func (s *StudentService) authorizeClass(ctx context.Context, actor authz.Principal, assignedClassID *string, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !authz.CanAccessClass(actor, class.Section, class.ID, assignedClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}
	return class, nil
}

// ListByClass returns the roster of a class the caller can reach.
func (s *StudentService) ListByClass(ctx context.Context, actor authz.Principal, assignedClassID *string, classID string, filter models.StudentFilter) ([]models.Student, int, error) {
	if _, err := s.authorizeClass(ctx, actor, assignedClassID, classID); err != nil {
		return nil, 0, err
	}

	filter.ClassID = classID
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns a single student reachable by the caller.
func (s *StudentService) Get(ctx context.Context, actor authz.Principal, assignedClassID *string, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if _, err := s.authorizeClass(ctx, actor, assignedClassID, student.ClassID); err != nil {
		return nil, err
	}
	return student, nil
}

// Create enrols a student in a class the caller manages. Registration
// numbers are unique across the school.
func (s *StudentService) Create(ctx context.Context, actor authz.Principal, assignedClassID *string, req models.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	class, err := s.authorizeClass(ctx, actor, assignedClassID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !canManageStudents(actor, class.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to manage students")
	}

	exists, err := s.repo.ExistsByRegistrationNo(ctx, req.RegistrationNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number is already in use")
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date of birth")
	}

	student := &models.Student{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		OtherNames:     req.OtherNames,
		Gender:         req.Gender,
		DateOfBirth:    dob,
		ClassID:        req.ClassID,
		RegistrationNo: strings.TrimSpace(req.RegistrationNo),
		GuardianName:   req.GuardianName,
		GuardianPhone:  req.GuardianPhone,
		Address:        req.Address,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update edits a student. Moving a student to another class requires reach
// over both the current and the target class.
func (s *StudentService) Update(ctx context.Context, actor authz.Principal, assignedClassID *string, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	class, err := s.authorizeClass(ctx, actor, assignedClassID, student.ClassID)
	if err != nil {
		return nil, err
	}
	if !canManageStudents(actor, class.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to manage students")
	}

	if req.ClassID != nil && *req.ClassID != student.ClassID {
		if _, err := s.authorizeClass(ctx, actor, assignedClassID, *req.ClassID); err != nil {
			return nil, err
		}
		student.ClassID = *req.ClassID
	}

	if req.FirstName != nil {
		student.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.OtherNames != nil {
		student.OtherNames = req.OtherNames
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date of birth")
		}
		student.DateOfBirth = dob
	}
	if req.GuardianName != nil {
		student.GuardianName = req.GuardianName
	}
	if req.GuardianPhone != nil {
		student.GuardianPhone = req.GuardianPhone
	}
	if req.Address != nil {
		student.Address = req.Address
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student from a class the caller manages.
func (s *StudentService) Delete(ctx context.Context, actor authz.Principal, assignedClassID *string, id string) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	class, err := s.authorizeClass(ctx, actor, assignedClassID, student.ClassID)
	if err != nil {
		return err
	}
	if !canManageStudents(actor, class.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to manage students")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}
