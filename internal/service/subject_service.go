package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByNameOrCode(ctx context.Context, name, code string) (bool, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	Create(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// SubjectService manages the subject catalogue per section.
type SubjectService struct {
	repo      subjectRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService instance.
func NewSubjectService(repo subjectRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns subjects visible to the caller. Section heads are pinned to
// their own section.
func (s *SubjectService) List(ctx context.Context, actor authz.Principal, filter models.SubjectFilter) ([]models.Subject, int, error) {
	if !authz.HasPermission(actor, authz.PermViewAll, nil) {
		if actor.ManagedSection != nil {
			filter.Section = *actor.ManagedSection
		} else if actor.Section != nil {
			// Regular staff can browse their section's catalogue.
			filter.Section = *actor.Section
		} else {
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to list subjects")
		}
	}

	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, total, nil
}

// Create adds a subject to the caller's section. Name and code must be
// unique across the whole catalogue.
func (s *SubjectService) Create(ctx context.Context, actor authz.Principal, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	if !authz.HasPermission(actor, authz.PermManageSubjects, &req.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the section head can create subjects in this section")
	}

	exists, err := s.repo.ExistsByNameOrCode(ctx, req.Name, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with this name or code already exists")
	}

	subject := &models.Subject{
		Name:    strings.TrimSpace(req.Name),
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Section: req.Section,
		IsCore:  req.IsCore,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	return subject, nil
}

// Delete removes a subject from the caller's section.
func (s *SubjectService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if !authz.HasPermission(actor, authz.PermManageSubjects, &subject.Section) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the section head can delete subjects in this section")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
