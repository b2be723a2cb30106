package handler

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-prep-api/internal/service"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/response"
)

// BackupHandler handles backup endpoints.
type BackupHandler struct {
	service *service.BackupService
}

// NewBackupHandler constructs a backup handler.
func NewBackupHandler(svc *service.BackupService) *BackupHandler {
	return &BackupHandler{service: svc}
}

// Create godoc
// @Summary Start a backup run
// @Description Enqueues a full JSON dump; poll the returned id for completion.
// @Tags Backups
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /backups [post]
func (h *BackupHandler) Create(c *gin.Context) {
	backup, err := h.service.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, backup, nil)
}

// Get godoc
// @Summary Get backup status
// @Tags Backups
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} response.Envelope
// @Router /backups/{id} [get]
func (h *BackupHandler) Get(c *gin.Context) {
	backup, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, backup, nil)
}

// List godoc
// @Summary List backup runs
// @Tags Backups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.List(c.Request.Context()), nil)
}

// Download godoc
// @Summary Download a finished backup
// @Description Validates the signed token issued when the backup completed.
// @Tags Backups
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /backups/download [get]
func (h *BackupHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, err := h.service.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(file.Name())
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/json")
	http.ServeContent(c.Writer, c.Request, name, time.Time{}, file)
}
