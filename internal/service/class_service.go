package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/repository"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Create(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	AssignClassTeacher(ctx context.Context, classID, teacherID string) error
}

type classUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ClassService manages classes and the class-teacher assignment.
type ClassService struct {
	repo      classRepository
	users     classUserRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, users classUserRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// List returns classes visible to the caller. Section heads are pinned to
// their own section.
func (s *ClassService) List(ctx context.Context, actor authz.Principal, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	if !authz.HasPermission(actor, authz.PermViewAll, nil) {
		if actor.ManagedSection == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to list classes")
		}
		filter.Section = *actor.ManagedSection
	}

	cacheKey := classListCacheKey(filter)
	type cachedList struct {
		Classes []models.ClassDetail `json:"classes"`
		Total   int                  `json:"total"`
	}
	if s.cache != nil {
		var cached cachedList
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Classes, cached.Total, nil
		}
	}

	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedList{Classes: classes, Total: total}, 0); err != nil {
			s.logger.Warn("cache class list", zap.Error(err))
		}
	}

	return classes, total, nil
}

// Get returns a single class reachable by the caller.
func (s *ClassService) Get(ctx context.Context, actor authz.Principal, assignedClassID *string, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
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

// Create adds a class. Only the head of the target section may create
// classes there, and the level must belong to that section.
func (s *ClassService) Create(ctx context.Context, actor authz.Principal, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if !authz.HasPermission(actor, authz.PermManageClasses, &req.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the section head can create classes in this section")
	}

	if !models.LevelBelongsToSection(req.Level, req.Section) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("level %s does not belong to the %s section", req.Level, req.Section))
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a class with this name already exists")
	}

	class := &models.Class{
		Name:    strings.TrimSpace(req.Name),
		Level:   req.Level,
		Section: req.Section,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.invalidateListCache(ctx)
	return class, nil
}

// Delete removes a class from the caller's section.
func (s *ClassService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if !authz.HasPermission(actor, authz.PermManageClasses, &class.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the section head can delete classes in this section")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}

	s.invalidateListCache(ctx)
	return nil
}

// AssignClassTeacher moves the class-teacher role for a class to a new
// teacher, releasing the previous holder atomically. Passing an empty
// teacher ID removes the current class teacher.
func (s *ClassService) AssignClassTeacher(ctx context.Context, actor authz.Principal, actorID, classID string, req models.AssignClassTeacherRequest) error {
	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if !authz.HasPermission(actor, authz.PermAssignStaff, &class.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot assign staff in this section")
	}

	if req.TeacherID != "" {
		teacher, err := s.users.FindByID(ctx, req.TeacherID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if teacher.Status != models.StatusApproved {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher account is not approved")
		}
		if teacher.Section == nil || *teacher.Section != class.Section {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher belongs to a different section")
		}
		if teacher.AssignedClassID != nil && *teacher.AssignedClassID != classID {
			return appErrors.Clone(appErrors.ErrConflict, "teacher is already the class teacher of another class")
		}
	}

	if err := s.repo.AssignClassTeacher(ctx, classID, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		if errors.Is(err, repository.ErrTeacherAssigned) {
			return appErrors.Clone(appErrors.ErrConflict, "teacher is already the class teacher of another class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign class teacher")
	}

	newValues, _ := json.Marshal(map[string]string{"class_id": classID, "teacher_id": req.TeacherID})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionClassTeacher,
		Resource:   "class",
		ResourceID: &classID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record class teacher audit log", zap.Error(err))
	}

	s.invalidateListCache(ctx)
	return nil
}

func (s *ClassService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "classes:*"); err != nil {
		s.logger.Warn("invalidate class cache", zap.Error(err))
	}
}

func classListCacheKey(filter models.ClassFilter) string {
	return fmt.Sprintf("classes:list:%s:%s:%s:%d:%d:%s:%s",
		filter.Section, filter.Level, filter.Search, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
