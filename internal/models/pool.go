package models

import "time"

// ActivePoolEntry marks a topic as part of the cyclic review pool. Membership
// is keyed on the topic; a topic can appear at most once.
type ActivePoolEntry struct {
	TopicID string    `db:"topic_id" json:"topic_id"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}

// PoolTopic is a pooled topic annotated with its most recent study event.
// LastStudiedAt is nil when the topic has never been studied; staleness
// ordering treats nil as more stale than any timestamp.
type PoolTopic struct {
	TopicID       string     `db:"topic_id" json:"topic_id"`
	TopicName     string     `db:"topic_name" json:"topic_name"`
	SubjectName   string     `db:"subject_name" json:"subject_name"`
	AddedAt       time.Time  `db:"added_at" json:"added_at"`
	LastStudiedAt *time.Time `db:"last_studied_at" json:"last_studied_at,omitempty"`
}
