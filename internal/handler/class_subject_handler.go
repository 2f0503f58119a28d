package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// ClassSubjectHandler exposes the class curriculum endpoints.
type ClassSubjectHandler struct {
	service *service.ClassSubjectService
}

// NewClassSubjectHandler constructs a class subject handler.
func NewClassSubjectHandler(svc *service.ClassSubjectService) *ClassSubjectHandler {
	return &ClassSubjectHandler{service: svc}
}

// ListByClass godoc
// @Summary List subjects offered by a class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [get]
func (h *ClassSubjectHandler) ListByClass(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjects, err := h.service.ListByClass(c.Request.Context(), actor, claims.AssignedClassID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// AddSubject godoc
// @Summary Add a subject to a class
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.AddClassSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /classes/{id}/subjects [post]
func (h *ClassSubjectHandler) AddSubject(c *gin.Context) {
	actor, _ := principalFromContext(c)

	var req models.AddClassSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject payload"))
		return
	}

	mapping, err := h.service.AddSubject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

// RemoveSubject godoc
// @Summary Remove a subject from a class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class subject ID"
// @Success 204
// @Router /class-subjects/{id} [delete]
func (h *ClassSubjectHandler) RemoveSubject(c *gin.Context) {
	actor, _ := principalFromContext(c)

	if err := h.service.RemoveSubject(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Assign a subject teacher
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Class subject ID"
// @Param payload body models.AssignSubjectTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /class-subjects/{id}/teachers [post]
func (h *ClassSubjectHandler) AssignTeacher(c *gin.Context) {
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AssignSubjectTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	assignment, err := h.service.AssignTeacher(c.Request.Context(), actor, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// RemoveTeacher godoc
// @Summary Remove a subject teacher assignment
// @Tags Curriculum
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /subject-assignments/{id} [delete]
func (h *ClassSubjectHandler) RemoveTeacher(c *gin.Context) {
	actor, _ := principalFromContext(c)

	if err := h.service.RemoveTeacher(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
