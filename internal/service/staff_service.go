package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type staffRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateApproval(ctx context.Context, user *models.User) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// StaffService manages the staff approval lifecycle and listings.
type StaffService struct {
	repo      staffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService instance.
func NewStaffService(repo staffRepository, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{repo: repo, validator: validate, logger: logger}
}

// List returns staff accounts visible to the caller. Section heads only see
// staff in their own section; SUPER_ADMIN sees everyone.
func (s *StaffService) List(ctx context.Context, actor authz.Principal, filter models.UserFilter) ([]models.User, int, error) {
	if !authz.HasPermission(actor, authz.PermViewAll, nil) {
		switch {
		case actor.ManagedSection != nil:
			filter.Section = actor.ManagedSection
		default:
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "insufficient permissions to list staff")
		}
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return users, total, nil
}

// ListPending returns accounts that are awaiting approval.
func (s *StaffService) ListPending(ctx context.Context, actor authz.Principal, filter models.UserFilter) ([]models.User, int, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can review registrations")
	}

	status := models.StatusPending
	filter.Status = &status
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending staff")
	}
	return users, total, nil
}

// Get returns a single staff record visible to the caller.
func (s *StaffService) Get(ctx context.Context, actor authz.Principal, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	if !authz.HasPermission(actor, authz.PermViewAll, nil) {
		if actor.ManagedSection == nil || user.Section == nil || *user.Section != *actor.ManagedSection {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "staff member is outside your section")
		}
	}
	return user, nil
}

// Approve finalises a pending registration. The position is fixed at
// approval time and the managed section is derived from it. A STAFF
// position requires an explicit section assignment. Accounts already
// decided cannot be decided again.
func (s *StaffService) Approve(ctx context.Context, actor authz.Principal, actorID, targetID string, req models.ApproveStaffRequest) (*models.User, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can approve staff")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	if user.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration has already been decided: %s", user.Status))
	}

	position := req.Position
	if position == "" {
		position = models.PositionStaff
	}

	switch position {
	case models.PositionStaff:
		if req.Section == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a section is required when approving as staff")
		}
		user.Section = req.Section
	case models.PositionHeadmaster:
		if req.Section != nil && *req.Section != models.SectionPrimary {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a headmaster must be assigned the primary section")
		}
		section := models.SectionPrimary
		user.Section = &section
	case models.PositionPrincipal:
		if req.Section != nil && *req.Section != models.SectionSecondary {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a principal must be assigned the secondary section")
		}
		section := models.SectionSecondary
		user.Section = &section
	case models.PositionSuperAdmin:
		user.Section = nil
	}

	now := time.Now().UTC()
	user.Position = position
	user.Status = models.StatusApproved
	user.ManagedSection = models.ManagedSectionFor(position)
	user.ApprovedByID = &actorID
	user.ApprovedAt = &now

	if err := s.repo.UpdateApproval(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve staff member")
	}

	newValues, _ := json.Marshal(map[string]interface{}{"status": user.Status, "position": user.Position, "section": user.Section})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionStaffApprove,
		Resource:   "staff",
		ResourceID: &user.ID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record approval audit log", zap.Error(err))
	}

	return user, nil
}

// Reject declines a pending registration. Rejected accounts keep their
// record so the email cannot silently re-register.
func (s *StaffService) Reject(ctx context.Context, actor authz.Principal, actorID, targetID string, req models.RejectStaffRequest) (*models.User, error) {
	if !authz.HasPermission(actor, authz.PermManageStaff, nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the super admin can reject staff")
	}

	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}

	if user.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration has already been decided: %s", user.Status))
	}

	now := time.Now().UTC()
	user.Status = models.StatusRejected
	user.ApprovedByID = &actorID
	user.ApprovedAt = &now

	if err := s.repo.UpdateApproval(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject staff member")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens for rejected staff", zap.Error(err))
	}

	newValues, _ := json.Marshal(map[string]string{"status": string(user.Status), "reason": req.Reason})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionStaffReject,
		Resource:   "staff",
		ResourceID: &user.ID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record rejection audit log", zap.Error(err))
	}

	return user, nil
}
