package models

import "time"

// ReviewKind tags a scheduled review with its slot in the fixed-interval
// chain, or marks it as a non-chaining cyclic review.
type ReviewKind string

const (
	Review24h    ReviewKind = "24h"
	Review7d     ReviewKind = "7d"
	Review30d    ReviewKind = "30d"
	Review90d    ReviewKind = "90d"
	Review120d   ReviewKind = "120d"
	Review180d   ReviewKind = "180d"
	ReviewCyclic ReviewKind = "cyclic"
)

// Valid reports whether the kind is one of the known review kinds.
func (k ReviewKind) Valid() bool {
	switch k {
	case Review24h, Review7d, Review30d, Review90d, Review120d, Review180d, ReviewCyclic:
		return true
	}
	return false
}

// ScheduledReview is a one-shot due-date record anchored to the study log
// entry that originated it. FulfilledByID stays nil until the review is
// completed and is never cleared afterwards; a review is pending iff
// FulfilledByID is nil.
type ScheduledReview struct {
	ID            string     `db:"id" json:"id"`
	OriginEntryID string     `db:"origin_entry_id" json:"origin_entry_id"`
	FulfilledByID *string    `db:"fulfilled_by_id" json:"fulfilled_by_id,omitempty"`
	Kind          ReviewKind `db:"kind" json:"kind"`
	DueAt         time.Time  `db:"due_at" json:"due_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Pending reports whether the review has not been fulfilled yet.
func (r ScheduledReview) Pending() bool {
	return r.FulfilledByID == nil
}

// ScheduledReviewDetail joins the origin entry's topic and subject names.
type ScheduledReviewDetail struct {
	ScheduledReview
	TopicID     string `db:"topic_id" json:"topic_id"`
	TopicName   string `db:"topic_name" json:"topic_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// PendingReviewFilter captures criteria for listing pending reviews.
// Search is matched against topic and subject names ignoring accents; the
// match is applied after loading, outside the store.
type PendingReviewFilter struct {
	Kind     ReviewKind
	AsOf     time.Time
	Search   string
	Page     int
	PageSize int
}
