package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// StaffHandler exposes staff directory and approval endpoints.
type StaffHandler struct {
	service *service.StaffService
}

// NewStaffHandler constructs a staff handler.
func NewStaffHandler(svc *service.StaffService) *StaffHandler {
	return &StaffHandler{service: svc}
}

func pageMeta(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func parsePaging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Param position query string false "Filter by position"
// @Param status query string false "Filter by status"
// @Param section query string false "Filter by section"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	actor, _ := principalFromContext(c)

	var filter models.UserFilter
	if v := c.Query("position"); v != "" {
		position := models.UserPosition(strings.ToUpper(v))
		filter.Position = &position
	}
	if v := c.Query("status"); v != "" {
		status := models.UserStatus(strings.ToUpper(v))
		filter.Status = &status
	}
	if v := c.Query("section"); v != "" {
		section := models.Section(strings.ToUpper(v))
		filter.Section = &section
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = parsePaging(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	users, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pageMeta(filter.Page, filter.PageSize, total))
}

// ListPending godoc
// @Summary List pending registrations
// @Tags Staff
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff/pending [get]
func (h *StaffHandler) ListPending(c *gin.Context) {
	actor, _ := principalFromContext(c)

	var filter models.UserFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = parsePaging(c)

	users, total, err := h.service.ListPending(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pageMeta(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	actor, _ := principalFromContext(c)

	user, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Approve godoc
// @Summary Approve a pending registration
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body models.ApproveStaffRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff/{id}/approve [post]
func (h *StaffHandler) Approve(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ApproveStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	user, err := h.service.Approve(c.Request.Context(), actor, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary Reject a pending registration
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body models.RejectStaffRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff/{id}/reject [post]
func (h *StaffHandler) Reject(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RejectStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	user, err := h.service.Reject(c.Request.Context(), actor, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
