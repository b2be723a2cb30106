package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type rotationRepository interface {
	FindByTopic(ctx context.Context, topicID string) (*models.RotationQueueEntry, error)
	FindByPosition(ctx context.Context, position int) (*models.RotationQueueEntry, error)
	MaxPosition(ctx context.Context) (int, error)
	Insert(ctx context.Context, entry *models.RotationQueueEntry) error
	RemoveAndReindex(ctx context.Context, topicID string) error
	SwapPositions(ctx context.Context, aTopicID string, aPosition int, bTopicID string, bPosition int) error
	UpdateTimebox(ctx context.Context, topicID string, minutes int) error
	ListDetails(ctx context.Context) ([]models.RotationQueueEntryDetail, error)
	LatestStudiedQueuedTopic(ctx context.Context) (*string, error)
}

type rotationTopicReader interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

// AppendRotationRequest adds a topic to the end of the rotation queue.
type AppendRotationRequest struct {
	TopicID        string `json:"topic_id" validate:"required"`
	TimeboxMinutes int    `json:"timebox_minutes" validate:"required,min=1"`
}

// RotationService manages the round-robin study plan: a totally ordered list
// of topics with per-topic time-boxes. The only state the queue carries is
// its ordering invariant; the next-topic cursor is always derived from the
// study log plus the current queue snapshot.
type RotationService struct {
	repo      rotationRepository
	topics    rotationTopicReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRotationService constructs a RotationService.
func NewRotationService(repo rotationRepository, topics rotationTopicReader, validate *validator.Validate, logger *zap.Logger) *RotationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RotationService{repo: repo, topics: topics, validator: validate, logger: logger}
}

// Append places a topic at the end of the queue.
func (s *RotationService) Append(ctx context.Context, req AppendRotationRequest) (*models.RotationQueueEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid queue payload")
	}

	if _, err := s.topics.FindByID(ctx, req.TopicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}

	if _, err := s.repo.FindByTopic(ctx, req.TopicID); err == nil {
		return nil, appErrors.ErrAlreadyQueued
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check queue membership")
	}

	max, err := s.repo.MaxPosition(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read queue tail")
	}

	entry := &models.RotationQueueEntry{
		TopicID:        req.TopicID,
		Position:       max + 1,
		TimeboxMinutes: req.TimeboxMinutes,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append to queue")
	}
	return entry, nil
}

// Remove deletes the topic's entry and closes the gap it leaves, so the
// remaining positions are again exactly 1..N.
func (s *RotationService) Remove(ctx context.Context, topicID string) error {
	if err := s.repo.RemoveAndReindex(ctx, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotQueued
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove from queue")
	}
	return nil
}

// MoveUp swaps the entry with its predecessor. Already at position 1 is a
// silent no-op: there is no neighbour to swap with.
func (s *RotationService) MoveUp(ctx context.Context, topicID string) error {
	return s.move(ctx, topicID, -1)
}

// MoveDown swaps the entry with its successor. Already last is a silent
// no-op.
func (s *RotationService) MoveDown(ctx context.Context, topicID string) error {
	return s.move(ctx, topicID, +1)
}

func (s *RotationService) move(ctx context.Context, topicID string, delta int) error {
	entry, err := s.repo.FindByTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotQueued
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue entry")
	}

	target := entry.Position + delta
	if target < 1 {
		return nil
	}
	max, err := s.repo.MaxPosition(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read queue tail")
	}
	if target > max {
		return nil
	}

	neighbour, err := s.repo.FindByPosition(ctx, target)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue neighbour")
	}

	if err := s.repo.SwapPositions(ctx, entry.TopicID, entry.Position, neighbour.TopicID, neighbour.Position); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder queue")
	}
	return nil
}

// SetTimebox updates the per-topic duration without affecting order.
func (s *RotationService) SetTimebox(ctx context.Context, topicID string, minutes int) error {
	if minutes < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "timebox must be at least one minute")
	}
	if _, err := s.repo.FindByTopic(ctx, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotQueued
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue entry")
	}
	if err := s.repo.UpdateTimebox(ctx, topicID, minutes); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timebox")
	}
	return nil
}

// NextSuggestion recommends the topic to study next: the entry after the
// most recently studied queued topic, wrapping past the end to position 1.
// With no study history among queued topics the first entry is suggested.
// The result is deterministic and repeated calls return the same topic until
// a new study event lands.
func (s *RotationService) NextSuggestion(ctx context.Context) (*models.RotationQueueEntryDetail, error) {
	entries, err := s.repo.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "rotation queue is empty")
	}

	lastTopicID, err := s.repo.LatestStudiedQueuedTopic(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read study history")
	}
	if lastTopicID == nil {
		return &entries[0], nil
	}

	for i := range entries {
		if entries[i].TopicID == *lastTopicID {
			next := i + 1
			if next >= len(entries) {
				next = 0
			}
			return &entries[next], nil
		}
	}

	// Last-studied topic left the queue between the two reads; fall back to
	// the head like a fresh start.
	return &entries[0], nil
}

// List returns all entries in position order with their last-studied
// annotation.
func (s *RotationService) List(ctx context.Context) ([]models.RotationQueueEntryDetail, error) {
	entries, err := s.repo.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue")
	}
	return entries, nil
}
