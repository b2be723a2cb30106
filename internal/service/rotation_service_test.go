package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type rotationRepoStub struct {
	entries     []models.RotationQueueEntryDetail
	lastStudied *string
	inserted    []*models.RotationQueueEntry
	removed     []string
	timeboxes   map[string]int
	swaps       [][2]string
	removeErr   error
}

func (s *rotationRepoStub) FindByTopic(ctx context.Context, topicID string) (*models.RotationQueueEntry, error) {
	for _, detail := range s.entries {
		if detail.TopicID == topicID {
			entry := detail.RotationQueueEntry
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *rotationRepoStub) FindByPosition(ctx context.Context, position int) (*models.RotationQueueEntry, error) {
	for _, detail := range s.entries {
		if detail.Position == position {
			entry := detail.RotationQueueEntry
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *rotationRepoStub) MaxPosition(ctx context.Context) (int, error) {
	max := 0
	for _, detail := range s.entries {
		if detail.Position > max {
			max = detail.Position
		}
	}
	return max, nil
}

func (s *rotationRepoStub) Insert(ctx context.Context, entry *models.RotationQueueEntry) error {
	s.inserted = append(s.inserted, entry)
	return nil
}

func (s *rotationRepoStub) RemoveAndReindex(ctx context.Context, topicID string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, topicID)
	return nil
}

func (s *rotationRepoStub) SwapPositions(ctx context.Context, aTopicID string, aPosition int, bTopicID string, bPosition int) error {
	s.swaps = append(s.swaps, [2]string{aTopicID, bTopicID})
	return nil
}

func (s *rotationRepoStub) UpdateTimebox(ctx context.Context, topicID string, minutes int) error {
	if s.timeboxes == nil {
		s.timeboxes = map[string]int{}
	}
	s.timeboxes[topicID] = minutes
	return nil
}

func (s *rotationRepoStub) ListDetails(ctx context.Context) ([]models.RotationQueueEntryDetail, error) {
	return s.entries, nil
}

func (s *rotationRepoStub) LatestStudiedQueuedTopic(ctx context.Context) (*string, error) {
	return s.lastStudied, nil
}

func queueOf(topicIDs ...string) []models.RotationQueueEntryDetail {
	entries := make([]models.RotationQueueEntryDetail, 0, len(topicIDs))
	for i, topicID := range topicIDs {
		entries = append(entries, models.RotationQueueEntryDetail{
			RotationQueueEntry: models.RotationQueueEntry{
				TopicID:        topicID,
				Position:       i + 1,
				TimeboxMinutes: 30,
			},
			TopicName: "Topic " + topicID,
		})
	}
	return entries
}

func TestRotationServiceAppend(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y")}
	topics := topicReaderStub{topics: map[string]*models.Topic{"topic-z": {ID: "topic-z"}}}
	service := NewRotationService(repo, topics, nil, zap.NewNop())

	entry, err := service.Append(context.Background(), AppendRotationRequest{TopicID: "topic-z", TimeboxMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Position)
	assert.Equal(t, 45, entry.TimeboxMinutes)
	require.Len(t, repo.inserted, 1)
}

func TestRotationServiceAppendDuplicate(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x")}
	topics := topicReaderStub{topics: map[string]*models.Topic{"topic-x": {ID: "topic-x"}}}
	service := NewRotationService(repo, topics, nil, zap.NewNop())

	_, err := service.Append(context.Background(), AppendRotationRequest{TopicID: "topic-x", TimeboxMinutes: 30})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyQueued.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.inserted)
}

func TestRotationServiceAppendInvalidTimebox(t *testing.T) {
	service := NewRotationService(&rotationRepoStub{}, topicReaderStub{}, nil, zap.NewNop())

	_, err := service.Append(context.Background(), AppendRotationRequest{TopicID: "topic-x", TimeboxMinutes: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceRemoveNotQueued(t *testing.T) {
	repo := &rotationRepoStub{removeErr: sql.ErrNoRows}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	err := service.Remove(context.Background(), "topic-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotQueued.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceMoveUpSwapsWithPredecessor(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y", "topic-z")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	require.NoError(t, service.MoveUp(context.Background(), "topic-y"))
	require.Len(t, repo.swaps, 1)
	assert.Equal(t, [2]string{"topic-y", "topic-x"}, repo.swaps[0])
}

func TestRotationServiceMoveUpAtHeadIsNoop(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	require.NoError(t, service.MoveUp(context.Background(), "topic-x"))
	assert.Empty(t, repo.swaps)
}

func TestRotationServiceMoveDownAtTailIsNoop(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	require.NoError(t, service.MoveDown(context.Background(), "topic-y"))
	assert.Empty(t, repo.swaps)
}

func TestRotationServiceMoveUnknownTopic(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	err := service.MoveDown(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotQueued.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceSetTimebox(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	require.NoError(t, service.SetTimebox(context.Background(), "topic-x", 90))
	assert.Equal(t, 90, repo.timeboxes["topic-x"])

	err := service.SetTimebox(context.Background(), "topic-x", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRotationServiceNextSuggestionFreshQueue(t *testing.T) {
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y", "topic-z")}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	suggestion, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "topic-x", suggestion.TopicID)
}

func TestRotationServiceNextSuggestionAdvances(t *testing.T) {
	last := "topic-x"
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y", "topic-z"), lastStudied: &last}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	suggestion, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "topic-y", suggestion.TopicID)
}

func TestRotationServiceNextSuggestionWrapsAround(t *testing.T) {
	last := "topic-z"
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y", "topic-z"), lastStudied: &last}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	suggestion, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "topic-x", suggestion.TopicID)
}

func TestRotationServiceNextSuggestionIdempotent(t *testing.T) {
	last := "topic-y"
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y", "topic-z"), lastStudied: &last}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	first, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	second, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TopicID, second.TopicID)
}

func TestRotationServiceNextSuggestionRemovedLastStudied(t *testing.T) {
	last := "topic-gone"
	repo := &rotationRepoStub{entries: queueOf("topic-x", "topic-y"), lastStudied: &last}
	service := NewRotationService(repo, topicReaderStub{}, nil, zap.NewNop())

	suggestion, err := service.NextSuggestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "topic-x", suggestion.TopicID)
}

func TestRotationServiceNextSuggestionEmptyQueue(t *testing.T) {
	service := NewRotationService(&rotationRepoStub{}, topicReaderStub{}, nil, zap.NewNop())

	_, err := service.NextSuggestion(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
