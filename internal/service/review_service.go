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
	"github.com/noah-isme/exam-prep-api/pkg/textutil"
)

// chainOffsets is the single source of truth for review chaining: it maps a
// kind to its successor kind and the offset added to the completion time to
// produce the successor's due date. Kinds absent from the table (180d,
// cyclic) are terminal.
var chainOffsets = map[models.ReviewKind]struct {
	Next   models.ReviewKind
	Offset time.Duration
}{
	models.Review24h:  {Next: models.Review7d, Offset: 7 * 24 * time.Hour},
	models.Review7d:   {Next: models.Review30d, Offset: 30 * 24 * time.Hour},
	models.Review30d:  {Next: models.Review90d, Offset: 90 * 24 * time.Hour},
	models.Review90d:  {Next: models.Review120d, Offset: 120 * 24 * time.Hour},
	models.Review120d: {Next: models.Review180d, Offset: 180 * 24 * time.Hour},
}

// seedOffset is how far after its originating study event the first chain
// link (a 24h review) becomes due.
const seedOffset = 24 * time.Hour

type reviewRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduledReview, error)
	Create(ctx context.Context, review *models.ScheduledReview) error
	ListPendingDetails(ctx context.Context, kind models.ReviewKind, asOf time.Time) ([]models.ScheduledReviewDetail, error)
	CompleteAndChain(ctx context.Context, reviewID, fulfillingEntryID string, completedAt time.Time, successor *models.ScheduledReview) error
	Delete(ctx context.Context, id string) error
}

type reviewEntryReader interface {
	FindByID(ctx context.Context, id string) (*models.StudyLogEntry, error)
}

// ScheduleReviewRequest creates a pending review by hand. Duplicate chains
// for one topic are allowed; each study event may carry its own chain.
type ScheduleReviewRequest struct {
	OriginEntryID string            `json:"origin_entry_id" validate:"required"`
	Kind          models.ReviewKind `json:"kind" validate:"required"`
	DueAt         time.Time         `json:"due_at" validate:"required"`
}

// ReviewService drives the fixed-interval review chain.
type ReviewService struct {
	repo      reviewRepository
	entries   reviewEntryReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewRepository, entries reviewEntryReader, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, entries: entries, validator: validate, logger: logger, now: time.Now}
}

// Schedule creates a pending review anchored to an existing study log entry.
func (s *ReviewService) Schedule(ctx context.Context, req ScheduleReviewRequest) (*models.ScheduledReview, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown review kind")
	}

	if _, err := s.entries.FindByID(ctx, req.OriginEntryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "origin study log entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load origin entry")
	}

	review := &models.ScheduledReview{
		OriginEntryID: req.OriginEntryID,
		Kind:          req.Kind,
		DueAt:         req.DueAt.UTC(),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule review")
	}
	return review, nil
}

// SeedChain starts a new chain for a freshly logged study event: a 24h
// review due one day after the event.
func (s *ReviewService) SeedChain(ctx context.Context, entry *models.StudyLogEntry) (*models.ScheduledReview, error) {
	review := &models.ScheduledReview{
		OriginEntryID: entry.ID,
		Kind:          models.Review24h,
		DueAt:         entry.OccurredAt.UTC().Add(seedOffset),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed review chain")
	}
	return review, nil
}

// Complete fulfils a pending review with the study log entry that satisfied
// it. When the review's kind has a successor, the next chain link is created
// in the same transaction as the fulfilment write; completion is monotonic
// and a second call fails with ErrAlreadyFulfilled.
func (s *ReviewService) Complete(ctx context.Context, reviewID, fulfillingEntryID string) (*models.ScheduledReview, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if !review.Pending() {
		return nil, appErrors.ErrAlreadyFulfilled
	}

	if _, err := s.entries.FindByID(ctx, fulfillingEntryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fulfilling study log entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fulfilling entry")
	}

	completedAt := s.now().UTC()
	var successor *models.ScheduledReview
	if chain, ok := chainOffsets[review.Kind]; ok {
		successor = &models.ScheduledReview{
			OriginEntryID: review.OriginEntryID,
			Kind:          chain.Next,
			DueAt:         completedAt.Add(chain.Offset),
		}
	}

	if err := s.repo.CompleteAndChain(ctx, reviewID, fulfillingEntryID, completedAt, successor); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete review")
	}

	review.FulfilledByID = &fulfillingEntryID
	review.UpdatedAt = completedAt
	if successor != nil {
		s.logger.Info("review chained",
			zap.String("review_id", reviewID),
			zap.String("successor_id", successor.ID),
			zap.String("successor_kind", string(successor.Kind)))
	}
	return review, nil
}

// ListPending returns pending reviews of one kind due on or before the
// filter's asOf, earliest-overdue first. The free-text filter matches topic
// and subject names ignoring case and accents; it runs after loading because
// the store cannot express accent-insensitive matching. Pagination is
// applied to the filtered result.
func (s *ReviewService) ListPending(ctx context.Context, filter models.PendingReviewFilter) ([]models.ScheduledReviewDetail, *models.Pagination, error) {
	if !filter.Kind.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown review kind")
	}
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}

	reviews, err := s.repo.ListPendingDetails(ctx, filter.Kind, asOf)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending reviews")
	}

	if filter.Search != "" {
		filtered := reviews[:0]
		for _, review := range reviews {
			if textutil.ContainsFold(review.TopicName, filter.Search) || textutil.ContainsFold(review.SubjectName, filter.Search) {
				filtered = append(filtered, review)
			}
		}
		reviews = filtered
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	total := len(reviews)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return reviews[start:end], pagination, nil
}

// Delete removes a still-pending review. Fulfilled reviews are immutable
// history and cannot be deleted.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if !review.Pending() {
		return appErrors.ErrCannotDeleteFulfilled
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return nil
}
