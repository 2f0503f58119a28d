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

type termRepository interface {
	ListSessions(ctx context.Context) ([]models.AcademicSession, error)
	CreateSession(ctx context.Context, session *models.AcademicSession) error
	SessionExistsByName(ctx context.Context, name string) (bool, error)
	FindSessionByID(ctx context.Context, id string) (*models.AcademicSession, error)
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, error)
	Create(ctx context.Context, term *models.Term) error
	SetActive(ctx context.Context, id string) error
}

// TermService manages academic sessions and terms. Only the super admin can
// mutate the calendar; every signed-in user can read it.
type TermService struct {
	repo      termRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService constructs a TermService instance.
func NewTermService(repo termRepository, validate *validator.Validate, logger *zap.Logger) *TermService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TermService{repo: repo, validator: validate, logger: logger}
}

// ListSessions returns all academic sessions.
func (s *TermService) ListSessions(ctx context.Context) ([]models.AcademicSession, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// CreateSession adds an academic session.
func (s *TermService) CreateSession(ctx context.Context, actor authz.Principal, req models.CreateSessionRequest) (*models.AcademicSession, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can manage the academic calendar")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	exists, err := s.repo.SessionExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a session with this name already exists")
	}

	session := &models.AcademicSession{
		Name:      strings.TrimSpace(req.Name),
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// List returns terms, optionally filtered by session.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, error) {
	terms, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// GetActive returns the currently active term.
func (s *TermService) GetActive(ctx context.Context) (*models.Term, error) {
	term, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active term is set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	return term, nil
}

// Create adds a term to a session.
func (s *TermService) Create(ctx context.Context, actor authz.Principal, req models.CreateTermRequest) (*models.Term, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can manage the academic calendar")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}

	if _, err := s.repo.FindSessionByID(ctx, req.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	term := &models.Term{
		Name:      strings.TrimSpace(req.Name),
		SessionID: req.SessionID,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// SetActive makes the given term the single active term.
func (s *TermService) SetActive(ctx context.Context, actor authz.Principal, id string) (*models.Term, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can manage the academic calendar")
	}

	if err := s.repo.SetActive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate term")
	}

	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}
