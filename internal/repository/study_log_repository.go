package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

// StudyLogRepository handles persistence for the append-only study log.
type StudyLogRepository struct {
	db *sqlx.DB
}

// NewStudyLogRepository creates a new repository instance.
func NewStudyLogRepository(db *sqlx.DB) *StudyLogRepository {
	return &StudyLogRepository{db: db}
}

// List returns study log entries matching filters with pagination metadata.
func (r *StudyLogRepository) List(ctx context.Context, filter models.StudyLogFilter) ([]models.StudyLogEntryDetail, int, error) {
	base := "FROM study_log_entries e JOIN topics t ON t.id = e.topic_id JOIN subjects s ON s.id = t.subject_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TopicID != "" {
		conditions = append(conditions, fmt.Sprintf("e.topic_id = $%d", len(args)+1))
		args = append(args, filter.TopicID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("t.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.occurred_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT e.id, e.topic_id, e.occurred_at, e.duration_minutes, e.correct_count, e.incorrect_count, e.note, e.created_at, t.name AS topic_name, s.name AS subject_name %s ORDER BY e.occurred_at %s LIMIT %d OFFSET %d", base, order, size, offset)
	var entries []models.StudyLogEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list study log entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count study log entries: %w", err)
	}

	return entries, total, nil
}

// ListAllDetails returns every entry in the window ordered oldest first,
// without pagination, for exports.
func (r *StudyLogRepository) ListAllDetails(ctx context.Context, from, to *time.Time) ([]models.StudyLogEntryDetail, error) {
	query := "SELECT e.id, e.topic_id, e.occurred_at, e.duration_minutes, e.correct_count, e.incorrect_count, e.note, e.created_at, t.name AS topic_name, s.name AS subject_name FROM study_log_entries e JOIN topics t ON t.id = e.topic_id JOIN subjects s ON s.id = t.subject_id WHERE 1=1"
	var args []interface{}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND e.occurred_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND e.occurred_at <= $%d", len(args))
	}
	query += " ORDER BY e.occurred_at ASC"

	var entries []models.StudyLogEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list study log entries for export: %w", err)
	}
	return entries, nil
}

// FindByID returns a study log entry by id.
func (r *StudyLogRepository) FindByID(ctx context.Context, id string) (*models.StudyLogEntry, error) {
	const query = `SELECT id, topic_id, occurred_at, duration_minutes, correct_count, incorrect_count, note, created_at FROM study_log_entries WHERE id = $1`
	var entry models.StudyLogEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create persists a new study log entry. Entries are immutable once written.
func (r *StudyLogRepository) Create(ctx context.Context, entry *models.StudyLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO study_log_entries (id, topic_id, occurred_at, duration_minutes, correct_count, incorrect_count, note, created_at) VALUES (:id, :topic_id, :occurred_at, :duration_minutes, :correct_count, :incorrect_count, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create study log entry: %w", err)
	}
	return nil
}

// Delete removes a study log entry.
func (r *StudyLogRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM study_log_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete study log entry: %w", err)
	}
	return nil
}

// CountReviewReferences returns the number of scheduled reviews that
// originate from or were fulfilled by the entry.
func (r *StudyLogRepository) CountReviewReferences(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM scheduled_reviews WHERE origin_entry_id = $1 OR fulfilled_by_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count review references: %w", err)
	}
	return count, nil
}

// RangeSummary aggregates study activity inside a time window.
type RangeSummary struct {
	Entries      int `db:"entries"`
	TotalMinutes int `db:"total_minutes"`
}

// SummarizeRange aggregates entry count and studied minutes for entries whose
// occurred_at falls in [from, to).
func (r *StudyLogRepository) SummarizeRange(ctx context.Context, from, to time.Time) (*RangeSummary, error) {
	const query = `SELECT COUNT(*) AS entries, COALESCE(SUM(duration_minutes), 0) AS total_minutes FROM study_log_entries WHERE occurred_at >= $1 AND occurred_at < $2`
	var summary RangeSummary
	if err := r.db.GetContext(ctx, &summary, query, from, to); err != nil {
		return nil, fmt.Errorf("summarize study log range: %w", err)
	}
	return &summary, nil
}

// Totals aggregates the study log for one topic.
func (r *StudyLogRepository) Totals(ctx context.Context, topicID string) (*models.TopicStudyTotals, error) {
	const query = `SELECT $1 AS topic_id, COUNT(*) AS session_count, COALESCE(SUM(duration_minutes), 0) AS total_minutes, COALESCE(SUM(correct_count), 0) AS correct_count, COALESCE(SUM(incorrect_count), 0) AS incorrect_count, MAX(occurred_at) AS last_studied_at FROM study_log_entries WHERE topic_id = $1`
	var totals models.TopicStudyTotals
	if err := r.db.GetContext(ctx, &totals, query, topicID); err != nil {
		return nil, fmt.Errorf("study log totals: %w", err)
	}
	return &totals, nil
}
