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
	"golang.org/x/crypto/bcrypt"

	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	userByID         *models.User
	findByEmailErr   error
	findByIDErr      error
	created          *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	lastEmailLookup  string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.lastEmailLookup = email
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func approvedUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	section := models.SectionPrimary
	return &models.User{
		ID:           "u-1",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		FullName:     "Test User",
		Position:     models.PositionStaff,
		Status:       models.StatusApproved,
		Section:      &section,
	}
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
		Issuer:             "school-portal",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedUser("password")}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.PositionStaff, res.User.Position)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginPendingRejected(t *testing.T) {
	user := approvedUser("password")
	user.Status = models.StatusPending
	repo := &mockAuthRepo{userByEmail: user}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAccountNotApproved.Code, appErr.Code)
}

func TestAuthServiceLoginNormalizesEmail(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedUser("password")}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "User@Example.COM", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", repo.lastEmailLookup)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedUser("password")}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceRegisterCreatesPendingStaff(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	preferred := models.LevelBasic1
	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:       "New Staff",
		Email:          "New@Example.com",
		Password:       "secret123",
		Gender:         models.GenderFemale,
		DateOfBirth:    "1994-06-12",
		Qualification:  "B.Ed",
		PreferredLevel: &preferred,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, info.Status)
	assert.Equal(t, models.PositionStaff, info.Position)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "secret123", repo.created.PasswordHash)
	assert.Equal(t, "new@example.com", repo.created.Email)
	require.NotNil(t, repo.created.Gender)
	assert.Equal(t, models.GenderFemale, *repo.created.Gender)
	require.NotNil(t, repo.created.DateOfBirth)
	require.NotNil(t, repo.created.PreferredLevel)
	assert.Equal(t, models.LevelBasic1, *repo.created.PreferredLevel)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedUser("password")}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:      "New Staff",
		Email:         "user@example.com",
		Password:      "secret123",
		Gender:        models.GenderMale,
		DateOfBirth:   "1990-01-20",
		Qualification: "B.Ed",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	user := approvedUser("password")
	repo := &mockAuthRepo{
		userByEmail: user,
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {ID: "rt-1", UserID: user.ID, Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newAuthService(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	user := approvedUser("password")
	repo := &mockAuthRepo{
		userByEmail: user,
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {ID: "rt-1", UserID: user.ID, Token: "old-token", ExpiresAt: time.Now().Add(-time.Hour)},
		},
	}
	svc := newAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: approvedUser("password")}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.PositionStaff, claims.Position)
	require.NotNil(t, claims.Section)
	assert.Equal(t, models.SectionPrimary, *claims.Section)
}
