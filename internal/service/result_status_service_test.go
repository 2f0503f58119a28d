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

type mockResultStatusRepo struct {
	statuses map[string]*models.ClassTermStatus
}

func statusKey(classID, termID string) string {
	return classID + ":" + termID
}

func (m *mockResultStatusRepo) Get(ctx context.Context, classID, termID string) (*models.ClassTermStatus, error) {
	cts, ok := m.statuses[statusKey(classID, termID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cts, nil
}

func (m *mockResultStatusRepo) ListByTerm(ctx context.Context, termID string) ([]models.ClassTermStatus, error) {
	var out []models.ClassTermStatus
	for _, cts := range m.statuses {
		if cts.TermID == termID {
			out = append(out, *cts)
		}
	}
	return out, nil
}

func (m *mockResultStatusRepo) Transition(ctx context.Context, classID, termID string, target models.ResultStatus, check func(current models.ResultStatus) error) (*models.ClassTermStatus, error) {
	if m.statuses == nil {
		m.statuses = make(map[string]*models.ClassTermStatus)
	}
	cts, ok := m.statuses[statusKey(classID, termID)]
	if !ok {
		cts = &models.ClassTermStatus{ID: "cts-" + classID, ClassID: classID, TermID: termID, Status: models.ResultOpen}
		m.statuses[statusKey(classID, termID)] = cts
	}
	if check != nil {
		if err := check(cts.Status); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	cts.Status = target
	switch target {
	case models.ResultSubmitted:
		cts.SubmittedAt = &now
	case models.ResultLocked:
		cts.LockedAt = &now
	case models.ResultOpen:
		cts.SubmittedAt = nil
		cts.LockedAt = nil
	}
	return cts, nil
}

type mockClassRepo struct {
	classes map[string]*models.Class
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type mockTermRepo struct {
	terms  map[string]*models.Term
	active *models.Term
}

func (m *mockTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	term, ok := m.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return term, nil
}

func (m *mockTermRepo) FindActive(ctx context.Context) (*models.Term, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

type mockAuditRepo struct {
	logs []*models.AuditLog
}

func (m *mockAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newResultStatusFixture() (*ResultStatusService, *mockResultStatusRepo, *mockAuditRepo) {
	repo := &mockResultStatusRepo{}
	classes := &mockClassRepo{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "Basic 1A", Level: models.LevelBasic1, Section: models.SectionPrimary},
	}}
	terms := &mockTermRepo{
		terms:  map[string]*models.Term{"term-1": {ID: "term-1", Name: "First Term", IsActive: true}},
		active: &models.Term{ID: "term-1", Name: "First Term", IsActive: true},
	}
	audit := &mockAuditRepo{}
	svc := NewResultStatusService(repo, classes, terms, audit, validator.New(), zap.NewNop())
	return svc, repo, audit
}

func classTeacherPrincipal() (authz.Principal, *string) {
	section := models.SectionPrimary
	classID := "class-1"
	return authz.Principal{Position: models.PositionStaff, Section: &section, IsClassTeacher: true}, &classID
}

func TestResultStatusSubmitByClassTeacher(t *testing.T) {
	svc, _, audit := newResultStatusFixture()
	actor, assigned := classTeacherPrincipal()

	cts, err := svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultSubmitted, cts.Status)
	assert.NotNil(t, cts.SubmittedAt)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionResultStatus, audit.logs[0].Action)
}

func TestResultStatusSubmitOtherClassForbidden(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	section := models.SectionPrimary
	otherClass := "class-2"
	actor := authz.Principal{Position: models.PositionStaff, Section: &section, IsClassTeacher: true}

	_, err := svc.Submit(context.Background(), actor, &otherClass, "u-1", "class-1", "term-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestResultStatusSubmitByOtherSectionHead(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	section := models.SectionSecondary
	principal := authz.Principal{Position: models.PositionPrincipal, Section: &section, ManagedSection: &section}

	cts, err := svc.Submit(context.Background(), principal, nil, "p-1", "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultSubmitted, cts.Status)
}

func TestResultStatusLockRequiresSectionHead(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	actor, assigned := classTeacherPrincipal()

	_, err := svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "term-1")
	require.NoError(t, err)

	_, err = svc.Lock(context.Background(), actor, "u-1", "class-1", "term-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	cts, err := svc.Lock(context.Background(), headmasterPrincipal(), "head-1", "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultLocked, cts.Status)
	assert.NotNil(t, cts.LockedAt)
}

func TestResultStatusWrongSectionHeadForbidden(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	section := models.SectionSecondary
	principal := authz.Principal{Position: models.PositionPrincipal, Section: &section, ManagedSection: &section}

	_, err := svc.Approve(context.Background(), principal, "p-1", "class-1", "term-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestResultStatusSameStatusConflict(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	actor, assigned := classTeacherPrincipal()

	_, err := svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "term-1")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "term-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestResultStatusReopenClearsStamps(t *testing.T) {
	svc, repo, _ := newResultStatusFixture()
	actor, assigned := classTeacherPrincipal()

	_, err := svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "term-1")
	require.NoError(t, err)

	cts, err := svc.Reopen(context.Background(), headmasterPrincipal(), "head-1", "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultOpen, cts.Status)
	assert.Nil(t, cts.SubmittedAt)
	assert.Nil(t, cts.LockedAt)
	assert.Equal(t, models.ResultOpen, repo.statuses[statusKey("class-1", "term-1")].Status)
}

func TestResultStatusGetDefaultsToOpen(t *testing.T) {
	svc, _, _ := newResultStatusFixture()

	cts, err := svc.Get(context.Background(), headmasterPrincipal(), nil, "class-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, models.ResultOpen, cts.Status)
}

func TestResultStatusResolvesActiveTerm(t *testing.T) {
	svc, _, _ := newResultStatusFixture()
	actor, assigned := classTeacherPrincipal()

	cts, err := svc.Submit(context.Background(), actor, assigned, "u-1", "class-1", "")
	require.NoError(t, err)
	assert.Equal(t, "term-1", cts.TermID)
}
