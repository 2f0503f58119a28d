package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/service"
	appErrors "github.com/landmark-academy/school-portal-api/pkg/errors"
	"github.com/landmark-academy/school-portal-api/pkg/response"
)

// ExportHandler serves roster file downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Roster godoc
// @Summary Export a class roster
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf, defaults to csv"
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /classes/{id}/roster/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	actor, claims := principalFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	if format != service.FormatCSV && format != service.FormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	result, err := h.service.Roster(c.Request.Context(), actor, claims.AssignedClassID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
