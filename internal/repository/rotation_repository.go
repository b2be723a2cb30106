package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

// RotationRepository handles persistence for the round-robin rotation queue.
// Positions of all entries must stay exactly the contiguous range 1..N; every
// mutation that changes membership or order completes its reindex or swap in
// one transaction.
type RotationRepository struct {
	db *sqlx.DB
}

// NewRotationRepository creates a new repository instance.
func NewRotationRepository(db *sqlx.DB) *RotationRepository {
	return &RotationRepository{db: db}
}

// FindByTopic returns the queue entry for a topic.
func (r *RotationRepository) FindByTopic(ctx context.Context, topicID string) (*models.RotationQueueEntry, error) {
	const query = `SELECT topic_id, position, timebox_minutes, created_at, updated_at FROM rotation_queue_entries WHERE topic_id = $1`
	var entry models.RotationQueueEntry
	if err := r.db.GetContext(ctx, &entry, query, topicID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByPosition returns the queue entry occupying a position.
func (r *RotationRepository) FindByPosition(ctx context.Context, position int) (*models.RotationQueueEntry, error) {
	const query = `SELECT topic_id, position, timebox_minutes, created_at, updated_at FROM rotation_queue_entries WHERE position = $1`
	var entry models.RotationQueueEntry
	if err := r.db.GetContext(ctx, &entry, query, position); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MaxPosition returns the highest occupied position, or 0 when empty.
func (r *RotationRepository) MaxPosition(ctx context.Context) (int, error) {
	var max int
	if err := r.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(position), 0) FROM rotation_queue_entries`); err != nil {
		return 0, fmt.Errorf("max queue position: %w", err)
	}
	return max, nil
}

// Insert appends a new entry at the given position.
func (r *RotationRepository) Insert(ctx context.Context, entry *models.RotationQueueEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	const query = `INSERT INTO rotation_queue_entries (topic_id, position, timebox_minutes, created_at, updated_at) VALUES (:topic_id, :position, :timebox_minutes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

// RemoveAndReindex deletes the entry and shifts every entry behind it down
// by one, restoring the contiguous range, all in one transaction.
func (r *RotationRepository) RemoveAndReindex(ctx context.Context, topicID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin queue remove: %w", err)
	}

	var position int
	if err := tx.GetContext(ctx, &position, `SELECT position FROM rotation_queue_entries WHERE topic_id = $1`, topicID); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rotation_queue_entries WHERE topic_id = $1`, topicID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete queue entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rotation_queue_entries SET position = position - 1, updated_at = $2 WHERE position > $1`, position, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("reindex queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit queue remove: %w", err)
	}
	return nil
}

// SwapPositions exchanges the positions of two entries in one transaction.
func (r *RotationRepository) SwapPositions(ctx context.Context, aTopicID string, aPosition int, bTopicID string, bPosition int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin queue swap: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE rotation_queue_entries SET position = $2, updated_at = $3 WHERE topic_id = $1`, aTopicID, bPosition, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("swap queue entry %s: %w", aTopicID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE rotation_queue_entries SET position = $2, updated_at = $3 WHERE topic_id = $1`, bTopicID, aPosition, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("swap queue entry %s: %w", bTopicID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit queue swap: %w", err)
	}
	return nil
}

// UpdateTimebox changes the per-topic duration without touching order.
func (r *RotationRepository) UpdateTimebox(ctx context.Context, topicID string, minutes int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE rotation_queue_entries SET timebox_minutes = $2, updated_at = $3 WHERE topic_id = $1`, topicID, minutes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update queue timebox: %w", err)
	}
	return nil
}

// ListDetails returns all entries in position order, each annotated with the
// topic's most recent study event.
func (r *RotationRepository) ListDetails(ctx context.Context) ([]models.RotationQueueEntryDetail, error) {
	const query = `SELECT q.topic_id, q.position, q.timebox_minutes, q.created_at, q.updated_at,
        t.name AS topic_name, s.name AS subject_name, MAX(e.occurred_at) AS last_studied_at
        FROM rotation_queue_entries q
        JOIN topics t ON t.id = q.topic_id
        JOIN subjects s ON s.id = t.subject_id
        LEFT JOIN study_log_entries e ON e.topic_id = q.topic_id
        GROUP BY q.topic_id, q.position, q.timebox_minutes, q.created_at, q.updated_at, t.name, s.name
        ORDER BY q.position ASC`
	var entries []models.RotationQueueEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	return entries, nil
}

// LatestStudiedQueuedTopic returns the topic id of the most recent study log
// entry whose topic is currently queued, or nil when no such entry exists.
func (r *RotationRepository) LatestStudiedQueuedTopic(ctx context.Context) (*string, error) {
	const query = `SELECT e.topic_id FROM study_log_entries e
        JOIN rotation_queue_entries q ON q.topic_id = e.topic_id
        ORDER BY e.occurred_at DESC LIMIT 1`
	var topicID string
	if err := r.db.GetContext(ctx, &topicID, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest studied queued topic: %w", err)
	}
	return &topicID, nil
}
