package models

import "time"

// Topic is a trackable unit of study content owned by a subject.
type Topic struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Name      string    `db:"name" json:"name"`
	Archived  bool      `db:"archived" json:"archived"`
	Completed bool      `db:"completed" json:"completed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TopicDetail joins the owning subject name for list responses.
type TopicDetail struct {
	Topic
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// TopicFilter captures supported filters for listing topics.
type TopicFilter struct {
	SubjectID string
	Archived  *bool
	Completed *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
