package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

// PoolRepository handles persistence for the active review pool.
type PoolRepository struct {
	db *sqlx.DB
}

// NewPoolRepository creates a new repository instance.
func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// Contains reports whether the topic has a pool entry.
func (r *PoolRepository) Contains(ctx context.Context, topicID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM active_pool_entries WHERE topic_id = $1 LIMIT 1`, topicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pool membership: %w", err)
	}
	return true, nil
}

// Insert adds the topic to the pool.
func (r *PoolRepository) Insert(ctx context.Context, entry *models.ActivePoolEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	const query = `INSERT INTO active_pool_entries (topic_id, added_at) VALUES (:topic_id, :added_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert pool entry: %w", err)
	}
	return nil
}

// Remove deletes the topic's pool entry and reports whether one existed.
func (r *PoolRepository) Remove(ctx context.Context, topicID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM active_pool_entries WHERE topic_id = $1`, topicID)
	if err != nil {
		return false, fmt.Errorf("remove pool entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove pool entry result: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of pool entries.
func (r *PoolRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM active_pool_entries`); err != nil {
		return 0, fmt.Errorf("count pool entries: %w", err)
	}
	return count, nil
}

// ListWithLastStudied returns all non-archived pooled topics annotated with
// the timestamp of their most recent study event, or nil when never studied.
// Ordering by staleness is computed by the caller.
func (r *PoolRepository) ListWithLastStudied(ctx context.Context) ([]models.PoolTopic, error) {
	const query = `SELECT p.topic_id, t.name AS topic_name, s.name AS subject_name, p.added_at, MAX(e.occurred_at) AS last_studied_at
        FROM active_pool_entries p
        JOIN topics t ON t.id = p.topic_id
        JOIN subjects s ON s.id = t.subject_id
        LEFT JOIN study_log_entries e ON e.topic_id = p.topic_id
        WHERE t.archived = FALSE
        GROUP BY p.topic_id, t.name, s.name, p.added_at`
	var topics []models.PoolTopic
	if err := r.db.SelectContext(ctx, &topics, query); err != nil {
		return nil, fmt.Errorf("list pool topics: %w", err)
	}
	return topics, nil
}

// ReplaceAll clears the pool and repopulates it with exactly the given
// topics in one transaction; a failed insert rolls the clear back.
func (r *PoolRepository) ReplaceAll(ctx context.Context, topicIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pool replace: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_pool_entries`); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear pool: %w", err)
	}

	now := time.Now().UTC()
	for _, topicID := range topicIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO active_pool_entries (topic_id, added_at) VALUES ($1, $2)`, topicID, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert pool entry %s: %w", topicID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pool replace: %w", err)
	}
	return nil
}
