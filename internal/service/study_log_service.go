package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type studyLogRepository interface {
	List(ctx context.Context, filter models.StudyLogFilter) ([]models.StudyLogEntryDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudyLogEntry, error)
	Create(ctx context.Context, entry *models.StudyLogEntry) error
	Delete(ctx context.Context, id string) error
	CountReviewReferences(ctx context.Context, id string) (int, error)
	Totals(ctx context.Context, topicID string) (*models.TopicStudyTotals, error)
}

type studyLogTopicReader interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

type chainSeeder interface {
	SeedChain(ctx context.Context, entry *models.StudyLogEntry) (*models.ScheduledReview, error)
}

// CreateStudyLogRequest records one study session. ScheduleReview controls
// whether the session seeds a fresh 24h review chain.
type CreateStudyLogRequest struct {
	TopicID         string     `json:"topic_id" validate:"required"`
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes int        `json:"duration_minutes" validate:"required,min=1"`
	CorrectCount    int        `json:"correct_count" validate:"min=0"`
	IncorrectCount  int        `json:"incorrect_count" validate:"min=0"`
	Note            *string    `json:"note"`
	ScheduleReview  bool       `json:"schedule_review"`
}

// StudyLogService manages the append-only study history.
type StudyLogService struct {
	repo      studyLogRepository
	topics    studyLogTopicReader
	reviews   chainSeeder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudyLogService creates a new study log service.
func NewStudyLogService(repo studyLogRepository, topics studyLogTopicReader, reviews chainSeeder, validate *validator.Validate, logger *zap.Logger) *StudyLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyLogService{repo: repo, topics: topics, reviews: reviews, validator: validate, logger: logger}
}

// List returns paginated study log entries.
func (s *StudyLogService) List(ctx context.Context, filter models.StudyLogFilter) ([]models.StudyLogEntryDetail, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study log")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Get returns a study log entry by identifier.
func (s *StudyLogService) Get(ctx context.Context, id string) (*models.StudyLogEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study log entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study log entry")
	}
	return entry, nil
}

// Create records a study session against a topic and, when requested, seeds
// a 24h review chain anchored to the new entry.
func (s *StudyLogService) Create(ctx context.Context, req CreateStudyLogRequest) (*models.StudyLogEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study log payload")
	}

	if _, err := s.topics.FindByID(ctx, req.TopicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}

	entry := &models.StudyLogEntry{
		TopicID:         req.TopicID,
		DurationMinutes: req.DurationMinutes,
		CorrectCount:    req.CorrectCount,
		IncorrectCount:  req.IncorrectCount,
		Note:            req.Note,
	}
	if req.OccurredAt != nil {
		entry.OccurredAt = req.OccurredAt.UTC()
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study log entry")
	}

	if req.ScheduleReview && s.reviews != nil {
		if _, err := s.reviews.SeedChain(ctx, entry); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// Delete removes an entry that no scheduled review references. Entries that
// originate or fulfil a review are immutable history.
func (s *StudyLogService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "study log entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study log entry")
	}

	refs, err := s.repo.CountReviewReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check review references")
	}
	if refs > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "entry is referenced by scheduled reviews")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study log entry")
	}
	return nil
}

// Totals aggregates the study log for one topic.
func (s *StudyLogService) Totals(ctx context.Context, topicID string) (*models.TopicStudyTotals, error) {
	if _, err := s.topics.FindByID(ctx, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	totals, err := s.repo.Totals(ctx, topicID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate study log")
	}
	return totals, nil
}
