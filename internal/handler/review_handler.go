package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/models"
	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// ReviewHandler handles scheduled review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
}

// NewReviewHandler constructs a review handler.
func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// ListPending godoc
// @Summary List pending reviews
// @Description Lists unfulfilled reviews of one kind due on or before the given date. Search matches topic and subject names ignoring accents.
// @Tags Reviews
// @Produce json
// @Param kind query string true "Review kind (24h, 7d, 30d, 90d, 120d, 180d, cyclic)"
// @Param as_of query string false "Due cutoff (RFC 3339); defaults to now"
// @Param search query string false "Accent-insensitive name filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reviews [get]
func (h *ReviewHandler) ListPending(c *gin.Context) {
	var filter models.PendingReviewFilter
	filter.Kind = models.ReviewKind(c.Query("kind"))
	if raw := c.Query("as_of"); raw != "" {
		asOf, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "as_of must be RFC 3339"))
			return
		}
		filter.AsOf = asOf
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	reviews, pagination, err := h.service.ListPending(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}

// Schedule godoc
// @Summary Schedule a review by hand
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body service.ScheduleReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Schedule(c *gin.Context) {
	var req service.ScheduleReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Complete godoc
// @Summary Complete a pending review
// @Description Marks the review fulfilled by a study log entry. When the review's kind has a successor interval the next link is created atomically.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body object{fulfilled_by_id=string} true "Fulfilling entry"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/{id}/complete [post]
func (h *ReviewHandler) Complete(c *gin.Context) {
	var payload struct {
		FulfilledByID string `json:"fulfilled_by_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "fulfilling entry id required"))
		return
	}

	review, err := h.service.Complete(c.Request.Context(), c.Param("id"), payload.FulfilledByID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete a pending review
// @Description Fulfilled reviews are immutable history and cannot be deleted.
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
