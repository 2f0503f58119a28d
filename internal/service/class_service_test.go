package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/repository"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type mockClassesRepo struct {
	classes     map[string]*models.Class
	nameTaken   bool
	created     *models.Class
	assigned    [][2]string
	listFilter  models.ClassFilter
	listResult  []models.ClassDetail
	deletedID   string
	assignErr   error
	existsByErr error
}

func (m *mockClassesRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (m *mockClassesRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	return m.nameTaken, m.existsByErr
}

func (m *mockClassesRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	m.listFilter = filter
	return m.listResult, len(m.listResult), nil
}

func (m *mockClassesRepo) Create(ctx context.Context, class *models.Class) error {
	m.created = class
	return nil
}

func (m *mockClassesRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.classes[id]; !ok {
		return sql.ErrNoRows
	}
	m.deletedID = id
	return nil
}

func (m *mockClassesRepo) AssignClassTeacher(ctx context.Context, classID, teacherID string) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	m.assigned = append(m.assigned, [2]string{classID, teacherID})
	return nil
}

type mockClassUsersRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func (m *mockClassUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockClassUsersRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func primaryClass(id string) *models.Class {
	return &models.Class{ID: id, Name: "Basic 2A", Level: models.LevelBasic2, Section: models.SectionPrimary}
}

func approvedTeacher(id string, section models.Section) *models.User {
	return &models.User{ID: id, Status: models.StatusApproved, Position: models.PositionStaff, Section: &section}
}

func newClassFixture() (*ClassService, *mockClassesRepo, *mockClassUsersRepo) {
	repo := &mockClassesRepo{classes: map[string]*models.Class{"class-1": primaryClass("class-1")}}
	users := &mockClassUsersRepo{users: map[string]*models.User{
		"teacher-1": approvedTeacher("teacher-1", models.SectionPrimary),
		"teacher-2": approvedTeacher("teacher-2", models.SectionSecondary),
	}}
	svc := NewClassService(repo, users, nil, validator.New(), zap.NewNop())
	return svc, repo, users
}

func TestClassServiceCreateByHeadmaster(t *testing.T) {
	svc, repo, _ := newClassFixture()

	class, err := svc.Create(context.Background(), headmasterPrincipal(), models.CreateClassRequest{
		Name:    "Basic 3A",
		Level:   models.LevelBasic3,
		Section: models.SectionPrimary,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SectionPrimary, class.Section)
	assert.NotNil(t, repo.created)
}

func TestClassServiceCreateSuperAdminForbidden(t *testing.T) {
	svc, _, _ := newClassFixture()

	_, err := svc.Create(context.Background(), superAdminPrincipal(), models.CreateClassRequest{
		Name:    "Basic 3A",
		Level:   models.LevelBasic3,
		Section: models.SectionPrimary,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestClassServiceCreateLevelSectionMismatch(t *testing.T) {
	svc, _, _ := newClassFixture()

	_, err := svc.Create(context.Background(), headmasterPrincipal(), models.CreateClassRequest{
		Name:    "JSS 1A",
		Level:   models.LevelJSS1,
		Section: models.SectionPrimary,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestClassServiceCreateDuplicateName(t *testing.T) {
	svc, repo, _ := newClassFixture()
	repo.nameTaken = true

	_, err := svc.Create(context.Background(), headmasterPrincipal(), models.CreateClassRequest{
		Name:    "Basic 2A",
		Level:   models.LevelBasic2,
		Section: models.SectionPrimary,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestClassServiceAssignClassTeacher(t *testing.T) {
	svc, repo, users := newClassFixture()

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.NoError(t, err)
	require.Len(t, repo.assigned, 1)
	assert.Equal(t, [2]string{"class-1", "teacher-1"}, repo.assigned[0])
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionClassTeacher, users.auditLogs[0].Action)
}

func TestClassServiceAssignTeacherWrongSection(t *testing.T) {
	svc, _, _ := newClassFixture()

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-2"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestClassServiceAssignTeacherPendingAccount(t *testing.T) {
	svc, _, users := newClassFixture()
	users.users["teacher-1"].Status = models.StatusPending

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestClassServiceAssignTeacherAlreadyAssignedElsewhere(t *testing.T) {
	svc, _, users := newClassFixture()
	other := "class-9"
	users.users["teacher-1"].AssignedClassID = &other

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestClassServiceAssignTeacherReassignSameClass(t *testing.T) {
	svc, repo, users := newClassFixture()
	same := "class-1"
	users.users["teacher-1"].AssignedClassID = &same

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.NoError(t, err)
	require.Len(t, repo.assigned, 1)
}

func TestClassServiceAssignTeacherRepoConflict(t *testing.T) {
	svc, repo, _ := newClassFixture()
	repo.assignErr = repository.ErrTeacherAssigned

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestClassServiceAssignTeacherSuperAdminAllowed(t *testing.T) {
	svc, repo, _ := newClassFixture()

	err := svc.AssignClassTeacher(context.Background(), superAdminPrincipal(), "admin-1", "class-1", models.AssignClassTeacherRequest{TeacherID: "teacher-1"})
	require.NoError(t, err)
	require.Len(t, repo.assigned, 1)
}

func TestClassServiceRemoveClassTeacher(t *testing.T) {
	svc, repo, _ := newClassFixture()

	err := svc.AssignClassTeacher(context.Background(), headmasterPrincipal(), "head-1", "class-1", models.AssignClassTeacherRequest{})
	require.NoError(t, err)
	require.Len(t, repo.assigned, 1)
	assert.Equal(t, "", repo.assigned[0][1])
}

func TestClassServiceListPinsSectionHead(t *testing.T) {
	svc, repo, _ := newClassFixture()

	_, _, err := svc.List(context.Background(), headmasterPrincipal(), models.ClassFilter{Section: models.SectionSecondary})
	require.NoError(t, err)
	assert.Equal(t, models.SectionPrimary, repo.listFilter.Section)
}

func TestClassServiceGetClassTeacherOwnClass(t *testing.T) {
	svc, _, _ := newClassFixture()
	actor, assigned := classTeacherPrincipal()

	class, err := svc.Get(context.Background(), actor, assigned, "class-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", class.ID)

	other := "class-9"
	_, err = svc.Get(context.Background(), actor, &other, "class-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestClassServiceDeleteOutsideSectionForbidden(t *testing.T) {
	svc, repo, _ := newClassFixture()
	repo.classes["class-2"] = &models.Class{ID: "class-2", Name: "SS 1A", Level: models.LevelSS1, Section: models.SectionSecondary}

	err := svc.Delete(context.Background(), headmasterPrincipal(), "class-2")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	err = svc.Delete(context.Background(), headmasterPrincipal(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", repo.deletedID)
}
