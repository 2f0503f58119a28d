package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// ClassHandler exposes class roster endpoints.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param section query string false "Filter by section"
// @Param level query string false "Filter by level"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	actor, _ := principalFromContext(c)

	var filter models.ClassFilter
	filter.Section = models.Section(strings.ToUpper(c.Query("section")))
	filter.Level = models.ClassLevel(strings.ToUpper(c.Query("level")))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = parsePaging(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	classes, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pageMeta(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	class, err := h.service.Get(c.Request.Context(), actor, claims.AssignedClassID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	actor, _ := principalFromContext(c)

	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}

	class, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Delete godoc
// @Summary Delete class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	actor, _ := principalFromContext(c)

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignClassTeacher godoc
// @Summary Assign or remove the class teacher
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.AssignClassTeacherRequest true "Teacher payload, empty teacher_id removes the assignment"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /classes/{id}/teacher [put]
func (h *ClassHandler) AssignClassTeacher(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AssignClassTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	if err := h.service.AssignClassTeacher(c.Request.Context(), actor, claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
