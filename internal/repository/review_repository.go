package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-prep-api/internal/models"
	appErrors "github.com/noah-isme/exam-prep-api/pkg/errors"
)

// ReviewRepository handles persistence for scheduled reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// FindByID returns a scheduled review by id.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.ScheduledReview, error) {
	const query = `SELECT id, origin_entry_id, fulfilled_by_id, kind, due_at, created_at, updated_at FROM scheduled_reviews WHERE id = $1`
	var review models.ScheduledReview
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// Create persists a new pending review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.ScheduledReview) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	const query = `INSERT INTO scheduled_reviews (id, origin_entry_id, fulfilled_by_id, kind, due_at, created_at, updated_at) VALUES (:id, :origin_entry_id, :fulfilled_by_id, :kind, :due_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create scheduled review: %w", err)
	}
	return nil
}

// ListPendingDetails returns pending reviews of the given kind due on or
// before asOf, ordered by due date ascending, joined with the origin entry's
// topic and subject names. Name filtering and pagination happen in the
// service layer after loading.
func (r *ReviewRepository) ListPendingDetails(ctx context.Context, kind models.ReviewKind, asOf time.Time) ([]models.ScheduledReviewDetail, error) {
	const query = `SELECT r.id, r.origin_entry_id, r.fulfilled_by_id, r.kind, r.due_at, r.created_at, r.updated_at,
        t.id AS topic_id, t.name AS topic_name, s.name AS subject_name
        FROM scheduled_reviews r
        JOIN study_log_entries e ON e.id = r.origin_entry_id
        JOIN topics t ON t.id = e.topic_id
        JOIN subjects s ON s.id = t.subject_id
        WHERE r.kind = $1 AND r.fulfilled_by_id IS NULL AND r.due_at <= $2
        ORDER BY r.due_at ASC`
	var reviews []models.ScheduledReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, kind, asOf); err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	return reviews, nil
}

// ListAllPendingDetails returns pending reviews of every kind due on or
// before asOf, earliest first.
func (r *ReviewRepository) ListAllPendingDetails(ctx context.Context, asOf time.Time) ([]models.ScheduledReviewDetail, error) {
	const query = `SELECT r.id, r.origin_entry_id, r.fulfilled_by_id, r.kind, r.due_at, r.created_at, r.updated_at,
        t.id AS topic_id, t.name AS topic_name, s.name AS subject_name
        FROM scheduled_reviews r
        JOIN study_log_entries e ON e.id = r.origin_entry_id
        JOIN topics t ON t.id = e.topic_id
        JOIN subjects s ON s.id = t.subject_id
        WHERE r.fulfilled_by_id IS NULL AND r.due_at <= $1
        ORDER BY r.due_at ASC`
	var reviews []models.ScheduledReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, asOf); err != nil {
		return nil, fmt.Errorf("list all pending reviews: %w", err)
	}
	return reviews, nil
}

// CompleteAndChain marks the review as fulfilled and, when successor is not
// nil, inserts the next chain link. Both writes happen in one transaction so
// a crash cannot leave a completed review without its successor. The
// fulfilment update is guarded on the review still being pending; losing the
// guard surfaces ErrAlreadyFulfilled.
func (r *ReviewRepository) CompleteAndChain(ctx context.Context, reviewID, fulfillingEntryID string, completedAt time.Time, successor *models.ScheduledReview) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete review: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE scheduled_reviews SET fulfilled_by_id = $2, updated_at = $3 WHERE id = $1 AND fulfilled_by_id IS NULL`, reviewID, fulfillingEntryID, completedAt)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("fulfil review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("fulfil review result: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return appErrors.ErrAlreadyFulfilled
	}

	if successor != nil {
		if successor.ID == "" {
			successor.ID = uuid.NewString()
		}
		successor.CreatedAt = completedAt
		successor.UpdatedAt = completedAt
		const insertQuery = `INSERT INTO scheduled_reviews (id, origin_entry_id, fulfilled_by_id, kind, due_at, created_at, updated_at) VALUES (:id, :origin_entry_id, :fulfilled_by_id, :kind, :due_at, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, successor); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert successor review: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete review: %w", err)
	}
	return nil
}

// Delete removes a review record.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete scheduled review: %w", err)
	}
	return nil
}

// KindCount pairs a review kind with its pending count.
type KindCount struct {
	Kind  models.ReviewKind `db:"kind"`
	Count int               `db:"count"`
}

// CountPendingByKind returns the number of pending reviews due on or before
// asOf, grouped by kind.
func (r *ReviewRepository) CountPendingByKind(ctx context.Context, asOf time.Time) ([]KindCount, error) {
	const query = `SELECT kind, COUNT(*) AS count FROM scheduled_reviews WHERE fulfilled_by_id IS NULL AND due_at <= $1 GROUP BY kind`
	var counts []KindCount
	if err := r.db.SelectContext(ctx, &counts, query, asOf); err != nil {
		return nil, fmt.Errorf("count pending reviews: %w", err)
	}
	return counts, nil
}

// ListAll returns every scheduled review ordered by creation, for exports.
func (r *ReviewRepository) ListAll(ctx context.Context) ([]models.ScheduledReviewDetail, error) {
	const query = `SELECT r.id, r.origin_entry_id, r.fulfilled_by_id, r.kind, r.due_at, r.created_at, r.updated_at,
        t.id AS topic_id, t.name AS topic_name, s.name AS subject_name
        FROM scheduled_reviews r
        JOIN study_log_entries e ON e.id = r.origin_entry_id
        JOIN topics t ON t.id = e.topic_id
        JOIN subjects s ON s.id = t.subject_id
        ORDER BY r.created_at ASC`
	var reviews []models.ScheduledReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query); err != nil {
		return nil, fmt.Errorf("list all reviews: %w", err)
	}
	return reviews, nil
}
