package models

import "time"

// RotationQueueEntry places a topic in the round-robin study plan. Positions
// of all entries always form the contiguous range 1..N.
type RotationQueueEntry struct {
	TopicID        string    `db:"topic_id" json:"topic_id"`
	Position       int       `db:"position" json:"position"`
	TimeboxMinutes int       `db:"timebox_minutes" json:"timebox_minutes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RotationQueueEntryDetail annotates a queue entry with topic metadata and
// the timestamp of the topic's most recent study event (a read-time join,
// not a stored field).
type RotationQueueEntryDetail struct {
	RotationQueueEntry
	TopicName     string     `db:"topic_name" json:"topic_name"`
	SubjectName   string     `db:"subject_name" json:"subject_name"`
	LastStudiedAt *time.Time `db:"last_studied_at" json:"last_studied_at,omitempty"`
}
