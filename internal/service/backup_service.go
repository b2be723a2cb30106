package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/dto"
	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
	"github.com/noah-isme/exam-prep-api/pkg/jobs"
	"github.com/noah-isme/exam-prep-api/pkg/storage"
)

type backupSnapshotter interface {
	Snapshot(ctx context.Context) (*models.BackupArchive, error)
}

type backupStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type backupStatus string

const (
	backupPending   backupStatus = "pending"
	backupRunning   backupStatus = "running"
	backupCompleted backupStatus = "completed"
	backupFailed    backupStatus = "failed"
)

type backupRecord struct {
	id          string
	status      backupStatus
	requestedAt time.Time
	completedAt *time.Time
	relPath     string
	token       string
	expiresAt   time.Time
	lastError   string
}

// BackupServiceConfig tunes backup behaviour.
type BackupServiceConfig struct {
	Workers    int
	MaxRetries int
	ResultTTL  time.Duration
	APIPrefix  string
}

// BackupService produces signed, downloadable JSON dumps of the whole
// tracker in the background.
type BackupService struct {
	snapshotter backupSnapshotter
	storage     backupStorage
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	logger      *zap.Logger
	cfg         BackupServiceConfig
	now         func() time.Time

	mu      sync.RWMutex
	records map[string]*backupRecord
}

// NewBackupService constructs a BackupService. Call Start before enqueueing.
func NewBackupService(snapshotter backupSnapshotter, store backupStorage, signer *storage.SignedURLSigner, cfg BackupServiceConfig, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	s := &BackupService{
		snapshotter: snapshotter,
		storage:     store,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		records:     make(map[string]*backupRecord),
	}
	s.queue = jobs.NewQueue("backups", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the backup workers.
func (s *BackupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the backup workers.
func (s *BackupService) Stop() {
	s.queue.Stop()
}

// Create enqueues a new backup run and returns its tracking record.
// Expired runs from earlier requests are pruned first.
func (s *BackupService) Create(ctx context.Context) (*dto.BackupResponse, error) {
	s.Cleanup()

	record := &backupRecord{
		id:          uuid.NewString(),
		status:      backupPending,
		requestedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.records[record.id] = record
	s.mu.Unlock()

	job := jobs.Job{ID: record.id, Type: "backup", Enqueued: record.requestedAt}
	if err := s.queue.Enqueue(job); err != nil {
		s.mu.Lock()
		delete(s.records, record.id)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue backup")
	}
	return s.toResponse(record), nil
}

// Get returns the state of a backup run.
func (s *BackupService) Get(ctx context.Context, id string) (*dto.BackupResponse, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	}
	return s.toResponse(record), nil
}

// List returns all known backup runs, newest first.
func (s *BackupService) List(ctx context.Context) []*dto.BackupResponse {
	s.Cleanup()

	s.mu.RLock()
	responses := make([]*dto.BackupResponse, 0, len(s.records))
	for _, record := range s.records {
		responses = append(responses, s.toResponse(record))
	}
	s.mu.RUnlock()

	sort.Slice(responses, func(i, j int) bool {
		return responses[i].RequestedAt.After(responses[j].RequestedAt)
	})
	return responses
}

// Resolve validates a download token and opens the backed-up file.
func (s *BackupService) Resolve(token string) (*os.File, error) {
	backupID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	s.mu.RLock()
	record, ok := s.records[backupID]
	s.mu.RUnlock()
	if !ok || record.relPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "backup file unavailable")
	}
	return file, nil
}

// Cleanup removes expired backup files from disk and drops their run
// records. Pending and running records are never pruned.
func (s *BackupService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("backup cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired backups removed", zap.Int("count", len(removed)))
	}

	cutoff := s.now().UTC().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, record := range s.records {
		if record.status == backupPending || record.status == backupRunning {
			continue
		}
		if record.requestedAt.Before(cutoff) {
			delete(s.records, id)
		}
	}
	s.mu.Unlock()
}

func (s *BackupService) process(ctx context.Context, job jobs.Job) error {
	s.setStatus(job.ID, backupRunning, "")

	archive, err := s.snapshotter.Snapshot(ctx)
	if err != nil {
		s.setStatus(job.ID, backupFailed, err.Error())
		return fmt.Errorf("snapshot: %w", err)
	}
	payload, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		s.setStatus(job.ID, backupFailed, err.Error())
		return fmt.Errorf("marshal backup: %w", err)
	}

	filename := fmt.Sprintf("backup-%s-%s.json", archive.GeneratedAt.Format("20060102-150405"), job.ID)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.setStatus(job.ID, backupFailed, err.Error())
		return fmt.Errorf("save backup: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.setStatus(job.ID, backupFailed, err.Error())
		return fmt.Errorf("sign backup url: %w", err)
	}

	completed := s.now().UTC()
	s.mu.Lock()
	if record, ok := s.records[job.ID]; ok {
		record.status = backupCompleted
		record.completedAt = &completed
		record.relPath = relPath
		record.token = token
		record.expiresAt = expiresAt
		record.lastError = ""
	}
	s.mu.Unlock()
	return nil
}

func (s *BackupService) setStatus(id string, status backupStatus, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.status = status
		record.lastError = lastError
	}
}

func (s *BackupService) toResponse(record *backupRecord) *dto.BackupResponse {
	resp := &dto.BackupResponse{
		ID:          record.id,
		Status:      string(record.status),
		RequestedAt: record.requestedAt,
		CompletedAt: record.completedAt,
		Error:       record.lastError,
	}
	if record.status == backupCompleted && record.token != "" {
		resp.DownloadURL = fmt.Sprintf("%s/backups/download?token=%s", s.cfg.APIPrefix, record.token)
	}
	return resp
}
