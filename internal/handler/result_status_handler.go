package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// ResultStatusHandler exposes the per class per term result workflow.
type ResultStatusHandler struct {
	service *service.ResultStatusService
}

// NewResultStatusHandler constructs a result status handler.
func NewResultStatusHandler(svc *service.ResultStatusService) *ResultStatusHandler {
	return &ResultStatusHandler{service: svc}
}

// termFromRequest reads the optional term id from the body, falling back to
// the query string. Empty means the active term.
func termFromRequest(c *gin.Context) (string, error) {
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		var req models.ResultTransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload")
		}
		return req.TermID, nil
	}
	return c.Query("term_id"), nil
}

// Get godoc
// @Summary Get result status for a class
// @Tags Results
// @Produce json
// @Param id path string true "Class ID"
// @Param term_id query string false "Term ID, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/results/status [get]
func (h *ResultStatusHandler) Get(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.Get(c.Request.Context(), actor, claims.AssignedClassID, c.Param("id"), c.Query("term_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ListByTerm godoc
// @Summary List result statuses for a term
// @Tags Results
// @Produce json
// @Param term_id query string false "Term ID, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Router /results/status [get]
func (h *ResultStatusHandler) ListByTerm(c *gin.Context) {
	actor, _ := principalFromContext(c)

	statuses, err := h.service.ListByTerm(c.Request.Context(), actor, c.Query("term_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// Submit godoc
// @Summary Submit class results
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ResultTransitionRequest false "Term payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/results/submit [post]
func (h *ResultStatusHandler) Submit(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	termID, err := termFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := h.service.Submit(c.Request.Context(), actor, claims.AssignedClassID, claims.UserID, c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Lock godoc
// @Summary Lock class results
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ResultTransitionRequest false "Term payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/results/lock [post]
func (h *ResultStatusHandler) Lock(c *gin.Context) {
	h.headAction(c, h.service.Lock)
}

// Approve godoc
// @Summary Approve class results
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ResultTransitionRequest false "Term payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/results/approve [post]
func (h *ResultStatusHandler) Approve(c *gin.Context) {
	h.headAction(c, h.service.Approve)
}

// Reopen godoc
// @Summary Reopen class results
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ResultTransitionRequest false "Term payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/results/reopen [post]
func (h *ResultStatusHandler) Reopen(c *gin.Context) {
	h.headAction(c, h.service.Reopen)
}

type headTransition func(ctx context.Context, actor authz.Principal, actorID, classID, termID string) (*models.ClassTermStatus, error)

func (h *ResultStatusHandler) headAction(c *gin.Context, fn headTransition) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	termID, err := termFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := fn(c.Request.Context(), actor, claims.UserID, c.Param("id"), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
