package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type mockStaffRepo struct {
	users      map[string]*models.User
	listResult []models.User
	listFilter models.UserFilter
	updated    *models.User
	auditLogs  []*models.AuditLog
	revoked    []string
}

func (m *mockStaffRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockStaffRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.listFilter = filter
	return m.listResult, len(m.listResult), nil
}

func (m *mockStaffRepo) UpdateApproval(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockStaffRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockStaffRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func superAdminPrincipal() authz.Principal {
	return authz.Principal{Position: models.PositionSuperAdmin}
}

func headmasterPrincipal() authz.Principal {
	section := models.SectionPrimary
	return authz.Principal{Position: models.PositionHeadmaster, Section: &section, ManagedSection: &section}
}

func pendingStaff(id string) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", FullName: "Pending Staff", Position: models.PositionStaff, Status: models.StatusPending}
}

func TestStaffServiceApproveAsStaffRequiresSection(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	_, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionStaff})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStaffServiceApproveStaffWithSection(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	section := models.SectionSecondary
	user, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionStaff, Section: &section})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, user.Status)
	require.NotNil(t, user.Section)
	assert.Equal(t, models.SectionSecondary, *user.Section)
	assert.Nil(t, user.ManagedSection)
	require.NotNil(t, user.ApprovedByID)
	assert.Equal(t, "admin-1", *user.ApprovedByID)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionStaffApprove, repo.auditLogs[0].Action)
}

func TestStaffServiceApproveHeadmasterDerivesSections(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	user, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionHeadmaster})
	require.NoError(t, err)
	require.NotNil(t, user.Section)
	assert.Equal(t, models.SectionPrimary, *user.Section)
	require.NotNil(t, user.ManagedSection)
	assert.Equal(t, models.SectionPrimary, *user.ManagedSection)
}

func TestStaffServiceApproveHeadmasterRejectsSecondarySection(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	section := models.SectionSecondary
	_, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionHeadmaster, Section: &section})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, repo.updated)
}

func TestStaffServiceApprovePrincipalRejectsPrimarySection(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	section := models.SectionPrimary
	_, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionPrincipal, Section: &section})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, repo.updated)
}

func TestStaffServiceApproveAlreadyDecided(t *testing.T) {
	user := pendingStaff("u-1")
	user.Status = models.StatusApproved
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": user}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	section := models.SectionPrimary
	_, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionStaff, Section: &section})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStaffServiceApproveForbiddenForHeadmaster(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	section := models.SectionPrimary
	_, err := svc.Approve(context.Background(), headmasterPrincipal(), "head-1", "u-1", models.ApproveStaffRequest{Position: models.PositionStaff, Section: &section})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStaffServiceRejectRevokesTokens(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	user, err := svc.Reject(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.RejectStaffRequest{Reason: "incomplete documents"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, user.Status)
	assert.Contains(t, repo.revoked, "u-1")
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionStaffReject, repo.auditLogs[0].Action)
}

func TestStaffServiceListScopesHeadmasterToSection(t *testing.T) {
	repo := &mockStaffRepo{listResult: []models.User{*pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	_, _, err := svc.List(context.Background(), headmasterPrincipal(), models.UserFilter{})
	require.NoError(t, err)
	require.NotNil(t, repo.listFilter.Section)
	assert.Equal(t, models.SectionPrimary, *repo.listFilter.Section)
}

func TestStaffServiceListPendingSuperAdminOnly(t *testing.T) {
	repo := &mockStaffRepo{listResult: []models.User{*pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	_, _, err := svc.ListPending(context.Background(), headmasterPrincipal(), models.UserFilter{})
	require.Error(t, err)

	_, _, err = svc.ListPending(context.Background(), superAdminPrincipal(), models.UserFilter{})
	require.NoError(t, err)
	require.NotNil(t, repo.listFilter.Status)
	assert.Equal(t, models.StatusPending, *repo.listFilter.Status)
}

func TestStaffServiceApproveStampsTime(t *testing.T) {
	repo := &mockStaffRepo{users: map[string]*models.User{"u-1": pendingStaff("u-1")}}
	svc := NewStaffService(repo, validator.New(), zap.NewNop())

	before := time.Now().UTC()
	user, err := svc.Approve(context.Background(), superAdminPrincipal(), "admin-1", "u-1", models.ApproveStaffRequest{Position: models.PositionPrincipal})
	require.NoError(t, err)
	require.NotNil(t, user.ApprovedAt)
	assert.False(t, user.ApprovedAt.Before(before))
}
