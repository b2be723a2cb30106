package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	"github.com/noah-isme/exam-prep-api/pkg/storage"
)

type backupSnapshotterStub struct {
	archive *models.BackupArchive
	err     error
}

func (s *backupSnapshotterStub) Snapshot(ctx context.Context) (*models.BackupArchive, error) {
	return s.archive, s.err
}

type backupStorageStub struct {
	mu           sync.Mutex
	cleanupCalls int
	saved        map[string][]byte
}

func (s *backupStorageStub) Save(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[filename] = data
	return filename, nil
}

func (s *backupStorageStub) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *backupStorageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupCalls++
	return nil, nil
}

func (s *backupStorageStub) cleanups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupCalls
}

func newBackupServiceForTest(store *backupStorageStub, now time.Time) *BackupService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	snapshotter := &backupSnapshotterStub{archive: &models.BackupArchive{GeneratedAt: now}}
	svc := NewBackupService(snapshotter, store, signer, BackupServiceConfig{
		ResultTTL: time.Hour,
		APIPrefix: "/api/v1",
	}, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func seedBackupRecord(svc *BackupService, id string, status backupStatus, requestedAt time.Time) {
	svc.mu.Lock()
	svc.records[id] = &backupRecord{id: id, status: status, requestedAt: requestedAt}
	svc.mu.Unlock()
}

func TestBackupServiceListNewestFirst(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &backupStorageStub{}
	svc := newBackupServiceForTest(store, now)

	seedBackupRecord(svc, "oldest", backupCompleted, now.Add(-30*time.Minute))
	seedBackupRecord(svc, "newest", backupCompleted, now.Add(-5*time.Minute))
	seedBackupRecord(svc, "middle", backupFailed, now.Add(-15*time.Minute))

	responses := svc.List(context.Background())

	require.Len(t, responses, 3)
	assert.Equal(t, "newest", responses[0].ID)
	assert.Equal(t, "middle", responses[1].ID)
	assert.Equal(t, "oldest", responses[2].ID)
}

func TestBackupServiceListPrunesExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &backupStorageStub{}
	svc := newBackupServiceForTest(store, now)

	seedBackupRecord(svc, "expired", backupCompleted, now.Add(-2*time.Hour))
	seedBackupRecord(svc, "fresh", backupCompleted, now.Add(-10*time.Minute))
	seedBackupRecord(svc, "stalled", backupPending, now.Add(-3*time.Hour))

	responses := svc.List(context.Background())

	require.Len(t, responses, 2)
	assert.Equal(t, "fresh", responses[0].ID)
	assert.Equal(t, "stalled", responses[1].ID)
	assert.Equal(t, 1, store.cleanups())
}

func TestBackupServiceCreateRunsCleanup(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := &backupStorageStub{}
	svc := newBackupServiceForTest(store, now)

	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop()

	seedBackupRecord(svc, "expired", backupFailed, now.Add(-2*time.Hour))

	resp, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 1, store.cleanups())

	_, err = svc.Get(ctx, "expired")
	require.Error(t, err)
}
