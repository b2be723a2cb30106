package models

import "time"

// StudyLogEntry is an immutable record of one study session against a topic.
// The scheduling services only read this stream; entries are never updated.
type StudyLogEntry struct {
	ID              string    `db:"id" json:"id"`
	TopicID         string    `db:"topic_id" json:"topic_id"`
	OccurredAt      time.Time `db:"occurred_at" json:"occurred_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CorrectCount    int       `db:"correct_count" json:"correct_count"`
	IncorrectCount  int       `db:"incorrect_count" json:"incorrect_count"`
	Note            *string   `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// StudyLogEntryDetail joins topic and subject names for list responses.
type StudyLogEntryDetail struct {
	StudyLogEntry
	TopicName   string `db:"topic_name" json:"topic_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// StudyLogFilter captures filtering criteria for listing study log entries.
type StudyLogFilter struct {
	TopicID   string
	SubjectID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// TopicStudyTotals aggregates the study log for one topic.
type TopicStudyTotals struct {
	TopicID        string     `db:"topic_id" json:"topic_id"`
	SessionCount   int        `db:"session_count" json:"session_count"`
	TotalMinutes   int        `db:"total_minutes" json:"total_minutes"`
	CorrectCount   int        `db:"correct_count" json:"correct_count"`
	IncorrectCount int        `db:"incorrect_count" json:"incorrect_count"`
	LastStudiedAt  *time.Time `db:"last_studied_at" json:"last_studied_at,omitempty"`
}
