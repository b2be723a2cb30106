package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/dto"
	"github.com/noah-isme/exam-prep-api/internal/models"
	"github.com/noah-isme/exam-prep-api/internal/repository"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type dashboardReviewReader interface {
	CountPendingByKind(ctx context.Context, asOf time.Time) ([]repository.KindCount, error)
	ListAllPendingDetails(ctx context.Context, asOf time.Time) ([]models.ScheduledReviewDetail, error)
}

type dashboardPoolReader interface {
	ListOrderedByStaleness(ctx context.Context) ([]models.PoolTopic, error)
	Count(ctx context.Context) (int, error)
}

type dashboardRotationReader interface {
	NextSuggestion(ctx context.Context) (*models.RotationQueueEntryDetail, error)
	List(ctx context.Context) ([]models.RotationQueueEntryDetail, error)
}

type dashboardStudyReader interface {
	SummarizeRange(ctx context.Context, from, to time.Time) (*repository.RangeSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	StalePoolLimit int
	NextDueLimit   int
}

// DashboardService composes the study overview payload.
type DashboardService struct {
	reviews  dashboardReviewReader
	pool     dashboardPoolReader
	rotation dashboardRotationReader
	study    dashboardStudyReader
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Reviews  dashboardReviewReader
	Pool     dashboardPoolReader
	Rotation dashboardRotationReader
	Study    dashboardStudyReader
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.StalePoolLimit <= 0 {
		cfg.StalePoolLimit = 5
	}
	if cfg.NextDueLimit <= 0 {
		cfg.NextDueLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		reviews:  params.Reviews,
		pool:     params.Pool,
		rotation: params.Rotation,
		study:    params.Study,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Overview returns the dashboard payload and reports cache utilisation.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	asOf := s.now().UTC()
	cacheKey := "dash:overview:" + asOf.Format("2006-01-02T15")
	if s.cache != nil {
		var cached dto.DashboardResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx, asOf)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops cached dashboard payloads after a mutation.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, asOf time.Time) (*dto.DashboardResponse, error) {
	reviews, err := s.buildReviews(ctx, asOf)
	if err != nil {
		return nil, err
	}
	pool, err := s.buildPool(ctx)
	if err != nil {
		return nil, err
	}
	rotation, err := s.buildRotation(ctx)
	if err != nil {
		return nil, err
	}
	study, err := s.buildStudyToday(ctx, asOf)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		Reviews:    reviews,
		Pool:       pool,
		Rotation:   rotation,
		StudyToday: study,
	}, nil
}

func (s *DashboardService) buildReviews(ctx context.Context, asOf time.Time) (dto.ReviewsSection, error) {
	section := dto.ReviewsSection{}
	counts, err := s.reviews.CountPendingByKind(ctx, asOf)
	if err != nil {
		return section, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending reviews")
	}
	for _, c := range counts {
		section.TotalDue += c.Count
		section.ByKind = append(section.ByKind, dto.ReviewKindCount{Kind: c.Kind, Count: c.Count})
	}

	due, err := s.reviews.ListAllPendingDetails(ctx, asOf)
	if err != nil {
		return section, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending reviews")
	}
	if len(due) > s.cfg.NextDueLimit {
		due = due[:s.cfg.NextDueLimit]
	}
	section.NextDue = due
	return section, nil
}

func (s *DashboardService) buildPool(ctx context.Context) (dto.PoolSection, error) {
	section := dto.PoolSection{}
	count, err := s.pool.Count(ctx)
	if err != nil {
		return section, err
	}
	section.Size = count
	if count == 0 {
		return section, nil
	}
	topics, err := s.pool.ListOrderedByStaleness(ctx)
	if err != nil {
		return section, err
	}
	if len(topics) > s.cfg.StalePoolLimit {
		topics = topics[:s.cfg.StalePoolLimit]
	}
	section.Stalest = topics
	return section, nil
}

func (s *DashboardService) buildRotation(ctx context.Context) (dto.RotationSection, error) {
	section := dto.RotationSection{}
	entries, err := s.rotation.List(ctx)
	if err != nil {
		return section, err
	}
	section.QueueLength = len(entries)
	if len(entries) == 0 {
		return section, nil
	}

	suggestion, err := s.rotation.NextSuggestion(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return section, nil
		}
		return section, err
	}
	section.Suggestion = &dto.RotationSuggestion{
		TopicID:        suggestion.TopicID,
		TopicName:      suggestion.TopicName,
		SubjectName:    suggestion.SubjectName,
		TimeboxMinutes: suggestion.TimeboxMinutes,
		Position:       suggestion.Position,
	}
	return section, nil
}

func (s *DashboardService) buildStudyToday(ctx context.Context, asOf time.Time) (dto.StudySection, error) {
	section := dto.StudySection{}
	if s.study == nil {
		return section, nil
	}
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	summary, err := s.study.SummarizeRange(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return section, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize study activity")
	}
	section.Entries = summary.Entries
	section.TotalMinutes = summary.TotalMinutes
	return section, nil
}
