package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/dto"
	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// ExportHandler handles export downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Download a dataset export
// @Description Renders the study log or review history as CSV or PDF.
// @Tags Exports
// @Produce octet-stream
// @Param dataset query string true "Dataset (study_log, reviews)"
// @Param format query string true "Format (csv, pdf)"
// @Param from query string false "Start date (YYYY-MM-DD, study_log only)"
// @Param to query string false "End date (YYYY-MM-DD, study_log only)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) Download(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}

	file, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
