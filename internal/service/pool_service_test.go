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

type poolRepoStub struct {
	members    map[string]bool
	listing    []models.PoolTopic
	inserted   []*models.ActivePoolEntry
	replaced   [][]string
	removedOK  bool
	replaceErr error
}

func (s *poolRepoStub) Contains(ctx context.Context, topicID string) (bool, error) {
	return s.members[topicID], nil
}

func (s *poolRepoStub) Insert(ctx context.Context, entry *models.ActivePoolEntry) error {
	s.inserted = append(s.inserted, entry)
	return nil
}

func (s *poolRepoStub) Remove(ctx context.Context, topicID string) (bool, error) {
	return s.removedOK, nil
}

func (s *poolRepoStub) Count(ctx context.Context) (int, error) {
	return len(s.members), nil
}

func (s *poolRepoStub) ListWithLastStudied(ctx context.Context) ([]models.PoolTopic, error) {
	return s.listing, nil
}

func (s *poolRepoStub) ReplaceAll(ctx context.Context, topicIDs []string) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced = append(s.replaced, topicIDs)
	return nil
}

type topicReaderStub struct {
	topics map[string]*models.Topic
}

func (s topicReaderStub) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	if topic, ok := s.topics[id]; ok {
		return topic, nil
	}
	return nil, sql.ErrNoRows
}

func TestPoolServiceAdd(t *testing.T) {
	repo := &poolRepoStub{members: map[string]bool{}}
	topics := topicReaderStub{topics: map[string]*models.Topic{"topic-1": {ID: "topic-1"}}}
	service := NewPoolService(repo, topics, zap.NewNop())

	entry, err := service.Add(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.Equal(t, "topic-1", entry.TopicID)
	require.Len(t, repo.inserted, 1)
}

func TestPoolServiceAddDuplicate(t *testing.T) {
	repo := &poolRepoStub{members: map[string]bool{"topic-1": true}}
	topics := topicReaderStub{topics: map[string]*models.Topic{"topic-1": {ID: "topic-1"}}}
	service := NewPoolService(repo, topics, zap.NewNop())

	_, err := service.Add(context.Background(), "topic-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyInPool.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.inserted)
}

func TestPoolServiceAddUnknownTopic(t *testing.T) {
	service := NewPoolService(&poolRepoStub{}, topicReaderStub{}, zap.NewNop())

	_, err := service.Add(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPoolServiceContains(t *testing.T) {
	repo := &poolRepoStub{members: map[string]bool{"topic-1": true}}
	service := NewPoolService(repo, topicReaderStub{}, zap.NewNop())

	inPool, err := service.Contains(context.Background(), "topic-1")
	require.NoError(t, err)
	assert.True(t, inPool)

	inPool, err = service.Contains(context.Background(), "topic-2")
	require.NoError(t, err)
	assert.False(t, inPool)
}

func TestPoolServiceRemoveNotInPool(t *testing.T) {
	service := NewPoolService(&poolRepoStub{removedOK: false}, topicReaderStub{}, zap.NewNop())

	err := service.Remove(context.Background(), "topic-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotInPool.Code, appErrors.FromError(err).Code)
}

func TestPoolServiceStalenessOrdering(t *testing.T) {
	old := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	repo := &poolRepoStub{listing: []models.PoolTopic{
		{TopicID: "topic-b", TopicName: "Bioquímica", LastStudiedAt: &recent},
		{TopicID: "topic-c", TopicName: "Citologia"},
		{TopicID: "topic-a", TopicName: "Anatomia", LastStudiedAt: &old},
	}}
	service := NewPoolService(repo, topicReaderStub{}, zap.NewNop())

	topics, err := service.ListOrderedByStaleness(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 3)
	// never studied first, then oldest study date
	assert.Equal(t, "topic-c", topics[0].TopicID)
	assert.Equal(t, "topic-a", topics[1].TopicID)
	assert.Equal(t, "topic-b", topics[2].TopicID)
}

func TestPoolServiceStalenessNameTieBreaks(t *testing.T) {
	when := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	repo := &poolRepoStub{listing: []models.PoolTopic{
		{TopicID: "topic-z", TopicName: "Zoologia", LastStudiedAt: &when},
		{TopicID: "topic-a", TopicName: "Anatomia", LastStudiedAt: &when},
		{TopicID: "topic-n2", TopicName: "Nunca B"},
		{TopicID: "topic-n1", TopicName: "Nunca A"},
	}}
	service := NewPoolService(repo, topicReaderStub{}, zap.NewNop())

	topics, err := service.ListOrderedByStaleness(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 4)
	assert.Equal(t, "topic-n1", topics[0].TopicID)
	assert.Equal(t, "topic-n2", topics[1].TopicID)
	assert.Equal(t, "topic-a", topics[2].TopicID)
	assert.Equal(t, "topic-z", topics[3].TopicID)
}

func TestPoolServiceReplaceAll(t *testing.T) {
	repo := &poolRepoStub{}
	topics := topicReaderStub{topics: map[string]*models.Topic{
		"topic-1": {ID: "topic-1"},
		"topic-2": {ID: "topic-2"},
	}}
	service := NewPoolService(repo, topics, zap.NewNop())

	err := service.ReplaceAll(context.Background(), []string{"topic-1", "topic-2", "topic-1"})
	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Equal(t, []string{"topic-1", "topic-2"}, repo.replaced[0])
}

func TestPoolServiceReplaceAllEmptyClearsPool(t *testing.T) {
	repo := &poolRepoStub{}
	service := NewPoolService(repo, topicReaderStub{}, zap.NewNop())

	err := service.ReplaceAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Empty(t, repo.replaced[0])
}

func TestPoolServiceReplaceAllUnknownTopic(t *testing.T) {
	repo := &poolRepoStub{}
	topics := topicReaderStub{topics: map[string]*models.Topic{"topic-1": {ID: "topic-1"}}}
	service := NewPoolService(repo, topics, zap.NewNop())

	err := service.ReplaceAll(context.Background(), []string{"topic-1", "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced)
}
