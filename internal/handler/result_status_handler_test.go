package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/landmark-academy/school-portal-api/internal/middleware"
	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
)

type resultStatusRepoStub struct {
	statuses map[string]*models.ClassTermStatus
}

func (m *resultStatusRepoStub) Get(ctx context.Context, classID, termID string) (*models.ClassTermStatus, error) {
	if s, ok := m.statuses[classID+"/"+termID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *resultStatusRepoStub) ListByTerm(ctx context.Context, termID string) ([]models.ClassTermStatus, error) {
	return nil, nil
}

func (m *resultStatusRepoStub) Transition(ctx context.Context, classID, termID string, target models.ResultStatus, check func(current models.ResultStatus) error) (*models.ClassTermStatus, error) {
	current := models.ResultOpen
	if s, ok := m.statuses[classID+"/"+termID]; ok {
		current = s.Status
	}
	if err := check(current); err != nil {
		return nil, err
	}
	status := &models.ClassTermStatus{ClassID: classID, TermID: termID, Status: target}
	m.statuses[classID+"/"+termID] = status
	return status, nil
}

type classRepoStub struct {
	classes map[string]*models.Class
}

func (m *classRepoStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

type termRepoStub struct {
	active *models.Term
}

func (m *termRepoStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	return &models.Term{ID: id}, nil
}

func (m *termRepoStub) FindActive(ctx context.Context) (*models.Term, error) {
	return m.active, nil
}

type auditRepoStub struct{}

func (auditRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func buildResultRouter(repo *resultStatusRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)

	classes := &classRepoStub{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "Basic 3A", Level: models.LevelBasic3, Section: models.SectionPrimary},
	}}
	terms := &termRepoStub{active: &models.Term{ID: "term-1", IsActive: true}}
	svc := service.NewResultStatusService(repo, classes, terms, auditRepoStub{}, nil, zap.NewNop())
	h := NewResultStatusHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if pos := c.GetHeader("X-Test-Position"); pos != "" {
			primary := models.SectionPrimary
			claims := &models.JWTClaims{
				UserID:   "test-user",
				Position: models.UserPosition(pos),
				Status:   models.StatusApproved,
			}
			switch claims.Position {
			case models.PositionHeadmaster:
				claims.Section = &primary
				claims.ManagedSection = &primary
			case models.PositionStaff:
				classID := "class-1"
				claims.Section = &primary
				claims.IsClassTeacher = true
				claims.AssignedClassID = &classID
			}
			c.Set(internalmiddleware.ContextUserKey, claims)
		}
		c.Next()
	})

	router.GET("/classes/:id/results/status", h.Get)
	router.POST("/classes/:id/results/submit", h.Submit)
	router.POST("/classes/:id/results/lock", h.Lock)
	router.POST("/classes/:id/results/reopen", h.Reopen)
	return router
}

func TestResultStatusRoutes(t *testing.T) {
	repo := &resultStatusRepoStub{statuses: map[string]*models.ClassTermStatus{}}
	router := buildResultRouter(repo)

	t.Run("status defaults to open", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/classes/class-1/results/status", nil)
		req.Header.Set("X-Test-Position", string(models.PositionHeadmaster))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"OPEN"`)
	})

	t.Run("class teacher submits own class", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/submit", nil)
		req.Header.Set("X-Test-Position", string(models.PositionStaff))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"SUBMITTED"`)
	})

	t.Run("class teacher cannot lock", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/lock", nil)
		req.Header.Set("X-Test-Position", string(models.PositionStaff))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("headmaster locks submitted results", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/lock", nil)
		req.Header.Set("X-Test-Position", string(models.PositionHeadmaster))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"LOCKED"`)
	})

	t.Run("repeated lock conflicts", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/lock", nil)
		req.Header.Set("X-Test-Position", string(models.PositionHeadmaster))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("reopen after lock", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/reopen", nil)
		req.Header.Set("X-Test-Position", string(models.PositionHeadmaster))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"OPEN"`)
	})

	t.Run("missing claims rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/submit", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/classes/class-1/results/submit", bytes.NewBufferString(`{"term_id":`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Position", string(models.PositionHeadmaster))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
