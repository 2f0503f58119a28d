package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type resultStatusRepository interface {
	Get(ctx context.Context, classID, termID string) (*models.ClassTermStatus, error)
	ListByTerm(ctx context.Context, termID string) ([]models.ClassTermStatus, error)
	Transition(ctx context.Context, classID, termID string, target models.ResultStatus, check func(current models.ResultStatus) error) (*models.ClassTermStatus, error)
}

type resultStatusClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type resultStatusTermRepository interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
}

type resultStatusAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ResultStatusService drives the per-class-per-term result workflow.
//
// A class's own class-teacher or any section head may submit results; every
// other transition is reserved for the class's own section head or the super
// admin. Transitions are
// not forced into a single direction: a section head may reopen a submitted
// or locked class, and re-submit after reopening.
type ResultStatusService struct {
	repo      resultStatusRepository
	classes   resultStatusClassRepository
	terms     resultStatusTermRepository
	audit     resultStatusAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultStatusService constructs a ResultStatusService instance.
func NewResultStatusService(repo resultStatusRepository, classes resultStatusClassRepository, terms resultStatusTermRepository, audit resultStatusAuditRepository, validate *validator.Validate, logger *zap.Logger) *ResultStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResultStatusService{repo: repo, classes: classes, terms: terms, audit: audit, validator: validate, logger: logger}
}

func (s *ResultStatusService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// resolveTerm returns the term with the given ID, or the active term when
// the ID is empty.
func (s *ResultStatusService) resolveTerm(ctx context.Context, termID string) (*models.Term, error) {
	if termID == "" {
		term, err := s.terms.FindActive(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active term is set")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
		}
		return term, nil
	}

	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// Get returns the workflow state for a (class, term) pair. A pair with no
// recorded row reports OPEN.
func (s *ResultStatusService) Get(ctx context.Context, actor authz.Principal, assignedClassID *string, classID, termID string) (*models.ClassTermStatus, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessClass(actor, class.Section, class.ID, assignedClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your scope")
	}

	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	cts, err := s.repo.Get(ctx, classID, term.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ClassTermStatus{ClassID: classID, TermID: term.ID, Status: models.ResultOpen}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result status")
	}
	return cts, nil
}

// ListByTerm returns the workflow rows for a term, visible to section heads
// and the super admin.
func (s *ResultStatusService) ListByTerm(ctx context.Context, actor authz.Principal, termID string) ([]models.ClassTermStatus, error) {
	if !authz.HasPermission(actor, authz.PermViewAll, nil) && actor.ManagedSection == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to list result statuses")
	}

	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.repo.ListByTerm(ctx, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list result statuses")
	}
	return statuses, nil
}

// Submit moves a class's results to SUBMITTED for the term. The class's own
// class-teacher, either section head and the super admin may submit.
func (s *ResultStatusService) Submit(ctx context.Context, actor authz.Principal, assignedClassID *string, actorID, classID, termID string) (*models.ClassTermStatus, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	allowed := actor.Position == models.PositionSuperAdmin ||
		actor.Position == models.PositionHeadmaster ||
		actor.Position == models.PositionPrincipal ||
		(actor.IsClassTeacher && assignedClassID != nil && *assignedClassID == class.ID)
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class teacher or section head can submit results")
	}

	return s.transition(ctx, actor, actorID, class, termID, models.ResultSubmitted)
}

// Lock freezes a submitted class so class teachers can no longer change it.
func (s *ResultStatusService) Lock(ctx context.Context, actor authz.Principal, actorID, classID, termID string) (*models.ClassTermStatus, error) {
	return s.headTransition(ctx, actor, actorID, classID, termID, models.ResultLocked)
}

// Approve finalises a class's results for the term.
func (s *ResultStatusService) Approve(ctx context.Context, actor authz.Principal, actorID, classID, termID string) (*models.ClassTermStatus, error) {
	return s.headTransition(ctx, actor, actorID, classID, termID, models.ResultApproved)
}

// Reopen returns a class to OPEN, clearing the workflow stamps.
func (s *ResultStatusService) Reopen(ctx context.Context, actor authz.Principal, actorID, classID, termID string) (*models.ClassTermStatus, error) {
	return s.headTransition(ctx, actor, actorID, classID, termID, models.ResultOpen)
}

func (s *ResultStatusService) headTransition(ctx context.Context, actor authz.Principal, actorID, classID, termID string, target models.ResultStatus) (*models.ClassTermStatus, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	if actor.Position != models.PositionSuperAdmin && !authz.IsSectionHead(actor, class.Section) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the section head can change this result status")
	}

	return s.transition(ctx, actor, actorID, class, termID, target)
}

func (s *ResultStatusService) transition(ctx context.Context, actor authz.Principal, actorID string, class *models.Class, termID string, target models.ResultStatus) (*models.ClassTermStatus, error) {
	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	cts, err := s.repo.Transition(ctx, class.ID, term.ID, target, func(current models.ResultStatus) error {
		if current == target {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("results are already %s", target))
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change result status")
	}

	newValues, _ := json.Marshal(map[string]string{"class_id": class.ID, "term_id": term.ID, "status": string(target)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionResultStatus,
		Resource:   "class_term_status",
		ResourceID: &cts.ID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record result status audit log", zap.Error(err))
	}

	return cts, nil
}
