package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

// BackupRepository reads a full snapshot of the tracker for backup dumps.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository creates a new repository instance.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Snapshot loads every table into a single archive. Reads are not wrapped in
// a transaction; backups tolerate a torn read across tables.
func (r *BackupRepository) Snapshot(ctx context.Context) (*models.BackupArchive, error) {
	archive := &models.BackupArchive{GeneratedAt: time.Now().UTC()}

	if err := r.db.SelectContext(ctx, &archive.Subjects, `SELECT id, name, color_tag, exam_date, archived, created_at, updated_at FROM subjects ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("snapshot subjects: %w", err)
	}

	const topicsQuery = `SELECT t.id, t.subject_id, t.name, t.archived, t.completed, t.created_at, t.updated_at, s.name AS subject_name
        FROM topics t JOIN subjects s ON s.id = t.subject_id ORDER BY s.name ASC, t.name ASC`
	if err := r.db.SelectContext(ctx, &archive.Topics, topicsQuery); err != nil {
		return nil, fmt.Errorf("snapshot topics: %w", err)
	}

	const studyLogQuery = `SELECT e.id, e.topic_id, e.occurred_at, e.duration_minutes, e.correct_count, e.incorrect_count, e.note, e.created_at, t.name AS topic_name, s.name AS subject_name
        FROM study_log_entries e JOIN topics t ON t.id = e.topic_id JOIN subjects s ON s.id = t.subject_id ORDER BY e.occurred_at ASC`
	if err := r.db.SelectContext(ctx, &archive.StudyLog, studyLogQuery); err != nil {
		return nil, fmt.Errorf("snapshot study log: %w", err)
	}

	const reviewsQuery = `SELECT r.id, r.origin_entry_id, r.fulfilled_by_id, r.kind, r.due_at, r.created_at, r.updated_at,
        t.id AS topic_id, t.name AS topic_name, s.name AS subject_name
        FROM scheduled_reviews r
        JOIN study_log_entries e ON e.id = r.origin_entry_id
        JOIN topics t ON t.id = e.topic_id
        JOIN subjects s ON s.id = t.subject_id
        ORDER BY r.created_at ASC`
	if err := r.db.SelectContext(ctx, &archive.Reviews, reviewsQuery); err != nil {
		return nil, fmt.Errorf("snapshot reviews: %w", err)
	}

	const poolQuery = `SELECT p.topic_id, t.name AS topic_name, s.name AS subject_name, p.added_at,
        (SELECT MAX(e.occurred_at) FROM study_log_entries e WHERE e.topic_id = p.topic_id) AS last_studied_at
        FROM active_pool_entries p
        JOIN topics t ON t.id = p.topic_id
        JOIN subjects s ON s.id = t.subject_id
        ORDER BY p.added_at ASC`
	if err := r.db.SelectContext(ctx, &archive.Pool, poolQuery); err != nil {
		return nil, fmt.Errorf("snapshot pool: %w", err)
	}

	const rotationQuery = `SELECT q.topic_id, q.position, q.timebox_minutes, q.created_at, q.updated_at,
        t.name AS topic_name, s.name AS subject_name,
        (SELECT MAX(e.occurred_at) FROM study_log_entries e WHERE e.topic_id = q.topic_id) AS last_studied_at
        FROM rotation_queue_entries q
        JOIN topics t ON t.id = q.topic_id
        JOIN subjects s ON s.id = t.subject_id
        ORDER BY q.position ASC`
	if err := r.db.SelectContext(ctx, &archive.Rotation, rotationQuery); err != nil {
		return nil, fmt.Errorf("snapshot rotation queue: %w", err)
	}

	return archive, nil
}
