package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// RotationHandler handles rotation queue endpoints.
type RotationHandler struct {
	service *service.RotationService
}

// NewRotationHandler constructs a rotation handler.
func NewRotationHandler(svc *service.RotationService) *RotationHandler {
	return &RotationHandler{service: svc}
}

// List godoc
// @Summary List the rotation queue
// @Tags Rotation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rotation [get]
func (h *RotationHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Append godoc
// @Summary Append a topic to the queue
// @Tags Rotation
// @Accept json
// @Produce json
// @Param payload body service.AppendRotationRequest true "Queue payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rotation [post]
func (h *RotationHandler) Append(c *gin.Context) {
	var req service.AppendRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Append(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Remove godoc
// @Summary Remove a topic from the queue
// @Description The remaining entries are reindexed so positions stay contiguous.
// @Tags Rotation
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 204 {object} response.Envelope
// @Router /rotation/{topicId} [delete]
func (h *RotationHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("topicId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MoveUp godoc
// @Summary Move a topic one position earlier
// @Description Already first is a no-op.
// @Tags Rotation
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 204 {object} response.Envelope
// @Router /rotation/{topicId}/move-up [post]
func (h *RotationHandler) MoveUp(c *gin.Context) {
	if err := h.service.MoveUp(c.Request.Context(), c.Param("topicId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MoveDown godoc
// @Summary Move a topic one position later
// @Description Already last is a no-op.
// @Tags Rotation
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 204 {object} response.Envelope
// @Router /rotation/{topicId}/move-down [post]
func (h *RotationHandler) MoveDown(c *gin.Context) {
	if err := h.service.MoveDown(c.Request.Context(), c.Param("topicId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetTimebox godoc
// @Summary Set the per-topic timebox
// @Tags Rotation
// @Accept json
// @Produce json
// @Param topicId path string true "Topic ID"
// @Param payload body object{timebox_minutes=int} true "Timebox"
// @Success 204 {object} response.Envelope
// @Router /rotation/{topicId}/timebox [put]
func (h *RotationHandler) SetTimebox(c *gin.Context) {
	var payload struct {
		TimeboxMinutes int `json:"timebox_minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "timebox required"))
		return
	}

	if err := h.service.SetTimebox(c.Request.Context(), c.Param("topicId"), payload.TimeboxMinutes); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// NextSuggestion godoc
// @Summary Suggest the next topic to study
// @Description The entry after the most recently studied queued topic, wrapping to the front. Deterministic until a new study event lands.
// @Tags Rotation
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rotation/next [get]
func (h *RotationHandler) NextSuggestion(c *gin.Context) {
	suggestion, err := h.service.NextSuggestion(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}
