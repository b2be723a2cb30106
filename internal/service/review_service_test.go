package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type reviewRepoStub struct {
	reviews   map[string]*models.ScheduledReview
	pending   []models.ScheduledReviewDetail
	created   []*models.ScheduledReview
	completed []string
	successor *models.ScheduledReview
	findErr   error
	createErr error
	chainErr  error
	deleteErr error
	deleted   []string
}

func (s *reviewRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduledReview, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if review, ok := s.reviews[id]; ok {
		clone := *review
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reviewRepoStub) Create(ctx context.Context, review *models.ScheduledReview) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, review)
	return nil
}

func (s *reviewRepoStub) ListPendingDetails(ctx context.Context, kind models.ReviewKind, asOf time.Time) ([]models.ScheduledReviewDetail, error) {
	return s.pending, nil
}

func (s *reviewRepoStub) CompleteAndChain(ctx context.Context, reviewID, fulfillingEntryID string, completedAt time.Time, successor *models.ScheduledReview) error {
	if s.chainErr != nil {
		return s.chainErr
	}
	s.completed = append(s.completed, reviewID)
	s.successor = successor
	return nil
}

func (s *reviewRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type entryReaderStub struct {
	entries map[string]*models.StudyLogEntry
	err     error
}

func (s entryReaderStub) FindByID(ctx context.Context, id string) (*models.StudyLogEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if entry, ok := s.entries[id]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

func newReviewServiceForTest(repo *reviewRepoStub, entries entryReaderStub, now time.Time) *ReviewService {
	service := NewReviewService(repo, entries, nil, zap.NewNop())
	service.now = func() time.Time { return now }
	return service
}

func TestReviewServiceSeedChain(t *testing.T) {
	repo := &reviewRepoStub{}
	occurred := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	service := newReviewServiceForTest(repo, entryReaderStub{}, occurred)

	review, err := service.SeedChain(context.Background(), &models.StudyLogEntry{ID: "entry-1", OccurredAt: occurred})
	require.NoError(t, err)
	assert.Equal(t, models.Review24h, review.Kind)
	assert.Equal(t, occurred.Add(24*time.Hour), review.DueAt)
	assert.Equal(t, "entry-1", review.OriginEntryID)
	require.Len(t, repo.created, 1)
}

func TestReviewServiceCompleteChainsSuccessor(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
		"rev-1": {ID: "rev-1", OriginEntryID: "entry-1", Kind: models.Review24h, DueAt: now.Add(-time.Hour)},
	}}
	entries := entryReaderStub{entries: map[string]*models.StudyLogEntry{"entry-2": {ID: "entry-2"}}}
	service := newReviewServiceForTest(repo, entries, now)

	review, err := service.Complete(context.Background(), "rev-1", "entry-2")
	require.NoError(t, err)
	require.NotNil(t, review.FulfilledByID)
	assert.Equal(t, "entry-2", *review.FulfilledByID)

	require.NotNil(t, repo.successor)
	assert.Equal(t, models.Review7d, repo.successor.Kind)
	assert.Equal(t, now.Add(7*24*time.Hour), repo.successor.DueAt)
	assert.Equal(t, "entry-1", repo.successor.OriginEntryID)
}

func TestReviewServiceCompleteChainSequence(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	expected := map[models.ReviewKind]struct {
		next   models.ReviewKind
		offset time.Duration
	}{
		models.Review24h:  {models.Review7d, 7 * 24 * time.Hour},
		models.Review7d:   {models.Review30d, 30 * 24 * time.Hour},
		models.Review30d:  {models.Review90d, 90 * 24 * time.Hour},
		models.Review90d:  {models.Review120d, 120 * 24 * time.Hour},
		models.Review120d: {models.Review180d, 180 * 24 * time.Hour},
	}
	for kind, want := range expected {
		repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
			"rev-1": {ID: "rev-1", OriginEntryID: "entry-1", Kind: kind, DueAt: now},
		}}
		entries := entryReaderStub{entries: map[string]*models.StudyLogEntry{"entry-2": {ID: "entry-2"}}}
		service := newReviewServiceForTest(repo, entries, now)

		_, err := service.Complete(context.Background(), "rev-1", "entry-2")
		require.NoError(t, err, "kind %s", kind)
		require.NotNil(t, repo.successor, "kind %s", kind)
		assert.Equal(t, want.next, repo.successor.Kind)
		assert.Equal(t, now.Add(want.offset), repo.successor.DueAt)
	}
}

func TestReviewServiceCompleteTerminalKinds(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	for _, kind := range []models.ReviewKind{models.Review180d, models.ReviewCyclic} {
		repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
			"rev-1": {ID: "rev-1", OriginEntryID: "entry-1", Kind: kind, DueAt: now},
		}}
		entries := entryReaderStub{entries: map[string]*models.StudyLogEntry{"entry-2": {ID: "entry-2"}}}
		service := newReviewServiceForTest(repo, entries, now)

		_, err := service.Complete(context.Background(), "rev-1", "entry-2")
		require.NoError(t, err, "kind %s", kind)
		assert.Nil(t, repo.successor, "kind %s should not chain", kind)
	}
}

func TestReviewServiceCompleteAlreadyFulfilled(t *testing.T) {
	now := time.Now().UTC()
	fulfilledBy := "entry-9"
	repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
		"rev-1": {ID: "rev-1", Kind: models.Review24h, FulfilledByID: &fulfilledBy},
	}}
	service := newReviewServiceForTest(repo, entryReaderStub{}, now)

	_, err := service.Complete(context.Background(), "rev-1", "entry-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFulfilled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.completed)
}

func TestReviewServiceCompleteRaceLosesGuard(t *testing.T) {
	now := time.Now().UTC()
	repo := &reviewRepoStub{
		reviews: map[string]*models.ScheduledReview{
			"rev-1": {ID: "rev-1", Kind: models.Review24h},
		},
		chainErr: appErrors.ErrAlreadyFulfilled,
	}
	entries := entryReaderStub{entries: map[string]*models.StudyLogEntry{"entry-2": {ID: "entry-2"}}}
	service := newReviewServiceForTest(repo, entries, now)

	_, err := service.Complete(context.Background(), "rev-1", "entry-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFulfilled.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceCompleteUnknownReview(t *testing.T) {
	service := newReviewServiceForTest(&reviewRepoStub{}, entryReaderStub{}, time.Now())

	_, err := service.Complete(context.Background(), "missing", "entry-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceScheduleUnknownOrigin(t *testing.T) {
	service := newReviewServiceForTest(&reviewRepoStub{}, entryReaderStub{}, time.Now())

	_, err := service.Schedule(context.Background(), ScheduleReviewRequest{
		OriginEntryID: "missing",
		Kind:          models.Review7d,
		DueAt:         time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceScheduleInvalidKind(t *testing.T) {
	service := newReviewServiceForTest(&reviewRepoStub{}, entryReaderStub{}, time.Now())

	_, err := service.Schedule(context.Background(), ScheduleReviewRequest{
		OriginEntryID: "entry-1",
		Kind:          models.ReviewKind("weekly"),
		DueAt:         time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceListPendingAccentInsensitiveSearch(t *testing.T) {
	now := time.Now().UTC()
	repo := &reviewRepoStub{pending: []models.ScheduledReviewDetail{
		{ScheduledReview: models.ScheduledReview{ID: "rev-1", Kind: models.Review24h}, TopicName: "Função Afim", SubjectName: "Matemática"},
		{ScheduledReview: models.ScheduledReview{ID: "rev-2", Kind: models.Review24h}, TopicName: "Crase", SubjectName: "Português"},
		{ScheduledReview: models.ScheduledReview{ID: "rev-3", Kind: models.Review24h}, TopicName: "Eletrólise", SubjectName: "Química"},
	}}
	service := newReviewServiceForTest(repo, entryReaderStub{}, now)

	reviews, pagination, err := service.ListPending(context.Background(), models.PendingReviewFilter{
		Kind:   models.Review24h,
		Search: "funcao",
	})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "rev-1", reviews[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	reviews, _, err = service.ListPending(context.Background(), models.PendingReviewFilter{
		Kind:   models.Review24h,
		Search: "QUÍMICA",
	})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "rev-3", reviews[0].ID)
}

func TestReviewServiceListPendingPagination(t *testing.T) {
	pending := make([]models.ScheduledReviewDetail, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		pending = append(pending, models.ScheduledReviewDetail{
			ScheduledReview: models.ScheduledReview{ID: id, Kind: models.Review7d},
			TopicName:       "Topic " + id,
		})
	}
	repo := &reviewRepoStub{pending: pending}
	service := newReviewServiceForTest(repo, entryReaderStub{}, time.Now())

	reviews, pagination, err := service.ListPending(context.Background(), models.PendingReviewFilter{
		Kind:     models.Review7d,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "c", reviews[0].ID)
	assert.Equal(t, 5, pagination.TotalCount)
}

func TestReviewServiceListPendingUnknownKind(t *testing.T) {
	service := newReviewServiceForTest(&reviewRepoStub{}, entryReaderStub{}, time.Now())

	_, _, err := service.ListPending(context.Background(), models.PendingReviewFilter{Kind: "fortnightly"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceDeletePending(t *testing.T) {
	repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
		"rev-1": {ID: "rev-1", Kind: models.Review24h},
	}}
	service := newReviewServiceForTest(repo, entryReaderStub{}, time.Now())

	require.NoError(t, service.Delete(context.Background(), "rev-1"))
	assert.Equal(t, []string{"rev-1"}, repo.deleted)
}

func TestReviewServiceDeleteFulfilled(t *testing.T) {
	fulfilledBy := "entry-2"
	repo := &reviewRepoStub{reviews: map[string]*models.ScheduledReview{
		"rev-1": {ID: "rev-1", Kind: models.Review24h, FulfilledByID: &fulfilledBy},
	}}
	service := newReviewServiceForTest(repo, entryReaderStub{}, time.Now())

	err := service.Delete(context.Background(), "rev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCannotDeleteFulfilled.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
