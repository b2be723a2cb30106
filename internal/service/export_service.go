package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-prep-api/internal/dto"
	"github.com/noah-isme/exam-prep-api/internal/models"
	"github.com/noah-isme/exam-prep-api/pkg/export"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

type exportStudyLogReader interface {
	ListAllDetails(ctx context.Context, from, to *time.Time) ([]models.StudyLogEntryDetail, error)
}

type exportReviewReader interface {
	ListAll(ctx context.Context) ([]models.ScheduledReviewDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the study log and review history as CSV or PDF.
type ExportService struct {
	studyLog  exportStudyLogReader
	reviews   exportReviewReader
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(studyLog exportStudyLogReader, reviews exportReviewReader, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{
		studyLog:  studyLog,
		reviews:   reviews,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate builds the requested dataset and renders it in the requested
// format.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest) (*ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	var (
		dataset export.Dataset
		title   string
		err     error
	)
	switch req.Dataset {
	case "study_log":
		dataset, err = s.buildStudyLogDataset(ctx, req.From, req.To)
		title = "Study Log"
	case "reviews":
		dataset, err = s.buildReviewDataset(ctx)
		title = "Review History"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown dataset %q", req.Dataset))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build export dataset")
	}

	stamp := s.now().UTC().Format("20060102-150405")
	switch req.Format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-%s.csv", req.Dataset, stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-%s.pdf", req.Dataset, stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown format %q", req.Format))
}

func (s *ExportService) buildStudyLogDataset(ctx context.Context, from, to *time.Time) (export.Dataset, error) {
	entries, err := s.studyLog.ListAllDetails(ctx, from, to)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Headers: []string{"Date", "Subject", "Topic", "Minutes", "Correct", "Incorrect", "Note"},
	}
	for _, entry := range entries {
		note := ""
		if entry.Note != nil {
			note = *entry.Note
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":      entry.OccurredAt.UTC().Format("2006-01-02 15:04"),
			"Subject":   entry.SubjectName,
			"Topic":     entry.TopicName,
			"Minutes":   strconv.Itoa(entry.DurationMinutes),
			"Correct":   strconv.Itoa(entry.CorrectCount),
			"Incorrect": strconv.Itoa(entry.IncorrectCount),
			"Note":      note,
		})
	}
	return dataset, nil
}

func (s *ExportService) buildReviewDataset(ctx context.Context) (export.Dataset, error) {
	reviews, err := s.reviews.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{
		Headers: []string{"Subject", "Topic", "Kind", "Due", "Status"},
	}
	for _, review := range reviews {
		status := "pending"
		if !review.Pending() {
			status = "fulfilled"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Subject": review.SubjectName,
			"Topic":   review.TopicName,
			"Kind":    string(review.Kind),
			"Due":     review.DueAt.UTC().Format("2006-01-02"),
			"Status":  status,
		})
	}
	return dataset, nil
}
