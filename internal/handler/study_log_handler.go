package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/models"
	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// StudyLogHandler handles study log endpoints.
type StudyLogHandler struct {
	service *service.StudyLogService
}

// NewStudyLogHandler constructs a study log handler.
func NewStudyLogHandler(svc *service.StudyLogService) *StudyLogHandler {
	return &StudyLogHandler{service: svc}
}

// List godoc
// @Summary List study log entries
// @Tags StudyLog
// @Produce json
// @Param topic_id query string false "Filter by topic"
// @Param subject_id query string false "Filter by subject"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /study-log [get]
func (h *StudyLogHandler) List(c *gin.Context) {
	var filter models.StudyLogFilter
	filter.TopicID = c.Query("topic_id")
	filter.SubjectID = c.Query("subject_id")
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = &to
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortOrder = c.Query("order")

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get study log entry by id
// @Tags StudyLog
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /study-log/{id} [get]
func (h *StudyLogHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Record a study session
// @Tags StudyLog
// @Accept json
// @Produce json
// @Param payload body service.CreateStudyLogRequest true "Study session payload"
// @Success 201 {object} response.Envelope
// @Router /study-log [post]
func (h *StudyLogHandler) Create(c *gin.Context) {
	var req service.CreateStudyLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Delete godoc
// @Summary Delete study log entry
// @Tags StudyLog
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204 {object} response.Envelope
// @Router /study-log/{id} [delete]
func (h *StudyLogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Totals godoc
// @Summary Aggregate study totals for a topic
// @Tags StudyLog
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id}/study-totals [get]
func (h *StudyLogHandler) Totals(c *gin.Context) {
	totals, err := h.service.Totals(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}
