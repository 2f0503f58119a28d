package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
)

type mockStudentRepo struct {
	students  map[string]*models.Student
	regTaken  bool
	created   *models.Student
	updated   *models.Student
	deletedID string
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (m *mockStudentRepo) ExistsByRegistrationNo(ctx context.Context, regNo string) (bool, error) {
	return m.regTaken, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range m.students {
		if filter.ClassID == "" || st.ClassID == filter.ClassID {
			out = append(out, *st)
		}
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	var out []models.Student
	for _, st := range m.students {
		if st.ClassID == classID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.created = student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.updated = student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	m.deletedID = id
	return nil
}

// Class IDs are validated as uuid4 on the student payloads, so the fixtures
// use real UUIDs rather than the short handles the other suites use.
const (
	primaryClassID   = "e5d9c1b2-3f6a-4d7c-8a1b-2c3d4e5f6a7b"
	secondaryClassID = "7b3f2c6e-8f4a-4b9e-9d2a-1c5e8f0a6b3d"
)

func newStudentFixture() (*StudentService, *mockStudentRepo) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"st-1": {ID: "st-1", FirstName: "Ada", LastName: "Obi", Gender: models.GenderFemale, ClassID: primaryClassID, RegistrationNo: "LMA-001"},
	}}
	classes := &mockClassRepo{classes: map[string]*models.Class{
		primaryClassID:   {ID: primaryClassID, Name: "Basic 1A", Level: models.LevelBasic1, Section: models.SectionPrimary},
		secondaryClassID: {ID: secondaryClassID, Name: "SS 1A", Level: models.LevelSS1, Section: models.SectionSecondary},
	}}
	svc := NewStudentService(repo, classes, validator.New(), zap.NewNop())
	return svc, repo
}

func validCreateStudentRequest(classID string) models.CreateStudentRequest {
	return models.CreateStudentRequest{
		FirstName:      "Chidi",
		LastName:       "Eze",
		Gender:         models.GenderMale,
		DateOfBirth:    "2015-04-10",
		ClassID:        classID,
		RegistrationNo: "LMA-002",
	}
}

func TestStudentServiceCreateByClassTeacher(t *testing.T) {
	svc, repo := newStudentFixture()
	actor, _ := classTeacherPrincipal()
	assigned := primaryClassID

	st, err := svc.Create(context.Background(), actor, &assigned, validCreateStudentRequest(primaryClassID))
	require.NoError(t, err)
	assert.Equal(t, primaryClassID, st.ClassID)
	assert.NotNil(t, repo.created)
}

func TestStudentServiceCreateOtherClassForbidden(t *testing.T) {
	svc, _ := newStudentFixture()
	actor, _ := classTeacherPrincipal()
	other := secondaryClassID

	_, err := svc.Create(context.Background(), actor, &other, validCreateStudentRequest(primaryClassID))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStudentServiceCreateDuplicateRegNo(t *testing.T) {
	svc, repo := newStudentFixture()
	repo.regTaken = true

	_, err := svc.Create(context.Background(), headmasterPrincipal(), nil, validCreateStudentRequest(primaryClassID))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentServiceCreateBySuperAdmin(t *testing.T) {
	svc, repo := newStudentFixture()

	st, err := svc.Create(context.Background(), superAdminPrincipal(), nil, validCreateStudentRequest(primaryClassID))
	require.NoError(t, err)
	assert.Equal(t, primaryClassID, st.ClassID)
	assert.NotNil(t, repo.created)
}

func TestStudentServiceUpdateMoveClassRequiresReachOverBoth(t *testing.T) {
	svc, repo := newStudentFixture()
	target := secondaryClassID

	_, err := svc.Update(context.Background(), headmasterPrincipal(), nil, "st-1", models.UpdateStudentRequest{ClassID: &target})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Nil(t, repo.updated)
}

func TestStudentServiceUpdateFields(t *testing.T) {
	svc, repo := newStudentFixture()
	first := "Adaeze"

	st, err := svc.Update(context.Background(), headmasterPrincipal(), nil, "st-1", models.UpdateStudentRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", st.FirstName)
	assert.NotNil(t, repo.updated)
}

func TestStudentServiceDeleteByHeadmaster(t *testing.T) {
	svc, repo := newStudentFixture()

	err := svc.Delete(context.Background(), headmasterPrincipal(), nil, "st-1")
	require.NoError(t, err)
	assert.Equal(t, "st-1", repo.deletedID)
}

func TestStudentServiceListByClassWrongSection(t *testing.T) {
	svc, _ := newStudentFixture()
	section := models.SectionSecondary
	principal := authz.Principal{Position: models.PositionPrincipal, Section: &section, ManagedSection: &section}

	_, _, err := svc.ListByClass(context.Background(), principal, nil, primaryClassID, models.StudentFilter{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
