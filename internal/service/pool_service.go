package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type poolRepository interface {
	Contains(ctx context.Context, topicID string) (bool, error)
	Insert(ctx context.Context, entry *models.ActivePoolEntry) error
	Remove(ctx context.Context, topicID string) (bool, error)
	Count(ctx context.Context) (int, error)
	ListWithLastStudied(ctx context.Context) ([]models.PoolTopic, error)
	ReplaceAll(ctx context.Context, topicIDs []string) error
}

type poolTopicReader interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

// PoolService manages the active review pool: a set of topics the user keeps
// cycling through. Priority is never stored; it is derived from the study
// log on every read, so pool positions shift as study events accumulate
// without any write to the pool itself.
type PoolService struct {
	repo   poolRepository
	topics poolTopicReader
	logger *zap.Logger
}

// NewPoolService constructs a PoolService.
func NewPoolService(repo poolRepository, topics poolTopicReader, logger *zap.Logger) *PoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolService{repo: repo, topics: topics, logger: logger}
}

// Add puts a topic into the pool. Reports ErrAlreadyInPool instead of
// silently succeeding so the caller can tell "already scheduled" from
// "newly scheduled".
func (s *PoolService) Add(ctx context.Context, topicID string) (*models.ActivePoolEntry, error) {
	if _, err := s.topics.FindByID(ctx, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}

	exists, err := s.repo.Contains(ctx, topicID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pool membership")
	}
	if exists {
		return nil, appErrors.ErrAlreadyInPool
	}

	entry := &models.ActivePoolEntry{TopicID: topicID}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add topic to pool")
	}
	return entry, nil
}

// Remove takes a topic out of the pool.
func (s *PoolService) Remove(ctx context.Context, topicID string) error {
	removed, err := s.repo.Remove(ctx, topicID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove topic from pool")
	}
	if !removed {
		return appErrors.ErrNotInPool
	}
	return nil
}

// ListOrderedByStaleness returns all non-archived pooled topics, most
// overdue first: never-studied topics lead (alphabetically), followed by
// studied topics with the oldest last-study timestamp first, names breaking
// ties. Recomputed from the study log on every call.
func (s *PoolService) ListOrderedByStaleness(ctx context.Context) ([]models.PoolTopic, error) {
	topics, err := s.repo.ListWithLastStudied(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool")
	}

	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		switch {
		case a.LastStudiedAt == nil && b.LastStudiedAt == nil:
			return a.TopicName < b.TopicName
		case a.LastStudiedAt == nil:
			return true
		case b.LastStudiedAt == nil:
			return false
		case !a.LastStudiedAt.Equal(*b.LastStudiedAt):
			return a.LastStudiedAt.Before(*b.LastStudiedAt)
		default:
			return a.TopicName < b.TopicName
		}
	})

	return topics, nil
}

// ReplaceAll atomically swaps the entire pool for the given topic set.
func (s *PoolService) ReplaceAll(ctx context.Context, topicIDs []string) error {
	seen := make(map[string]bool, len(topicIDs))
	unique := make([]string, 0, len(topicIDs))
	for _, topicID := range topicIDs {
		if seen[topicID] {
			continue
		}
		seen[topicID] = true
		if _, err := s.topics.FindByID(ctx, topicID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "topic not found: "+topicID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
		}
		unique = append(unique, topicID)
	}

	if err := s.repo.ReplaceAll(ctx, unique); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace pool")
	}
	s.logger.Info("pool replaced", zap.Int("size", len(unique)))
	return nil
}

// Count returns the pool size.
func (s *PoolService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pool")
	}
	return count, nil
}

// Contains reports whether the topic is pooled.
func (s *PoolService) Contains(ctx context.Context, topicID string) (bool, error) {
	exists, err := s.repo.Contains(ctx, topicID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pool membership")
	}
	return exists, nil
}
