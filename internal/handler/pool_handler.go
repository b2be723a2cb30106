package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// PoolHandler handles active review pool endpoints.
type PoolHandler struct {
	service *service.PoolService
}

// NewPoolHandler constructs a pool handler.
func NewPoolHandler(svc *service.PoolService) *PoolHandler {
	return &PoolHandler{service: svc}
}

// List godoc
// @Summary List pooled topics by staleness
// @Description Most overdue topics first; never-studied topics lead.
// @Tags Pool
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pool [get]
func (h *PoolHandler) List(c *gin.Context) {
	topics, err := h.service.ListOrderedByStaleness(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, nil)
}

// Add godoc
// @Summary Add a topic to the pool
// @Tags Pool
// @Accept json
// @Produce json
// @Param payload body object{topic_id=string} true "Topic"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pool [post]
func (h *PoolHandler) Add(c *gin.Context) {
	var payload struct {
		TopicID string `json:"topic_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "topic id required"))
		return
	}

	entry, err := h.service.Add(c.Request.Context(), payload.TopicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Remove godoc
// @Summary Remove a topic from the pool
// @Tags Pool
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 204 {object} response.Envelope
// @Router /pool/{topicId} [delete]
func (h *PoolHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("topicId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReplaceAll godoc
// @Summary Replace the whole pool
// @Description Atomically swaps the pool for the given topic set. An empty list clears the pool.
// @Tags Pool
// @Accept json
// @Produce json
// @Param payload body object{topic_ids=[]string} true "Topic set"
// @Success 200 {object} response.Envelope
// @Router /pool [put]
func (h *PoolHandler) ReplaceAll(c *gin.Context) {
	var payload struct {
		TopicIDs []string `json:"topic_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ReplaceAll(c.Request.Context(), payload.TopicIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"size": len(payload.TopicIDs)}, nil)
}

// Contains godoc
// @Summary Check pool membership
// @Tags Pool
// @Produce json
// @Param topicId path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /pool/{topicId} [get]
func (h *PoolHandler) Contains(c *gin.Context) {
	topicID := c.Param("topicId")
	inPool, err := h.service.Contains(c.Request.Context(), topicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"topic_id": topicID, "in_pool": inPool}, nil)
}

// Count godoc
// @Summary Pool size
// @Tags Pool
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pool/count [get]
func (h *PoolHandler) Count(c *gin.Context) {
	count, err := h.service.Count(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}
