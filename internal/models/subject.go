package models

import "time"

// Subject groups topics under one exam or course.
type Subject struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	ColorTag  string     `db:"color_tag" json:"color_tag"`
	ExamDate  *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	Archived  bool       `db:"archived" json:"archived"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Archived  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
