package dto

import (
	"time"

	"github.com/noah-isme/exam-prep-api/internal/models"
)

// DashboardResponse aggregates the study overview shown on the home screen.
type DashboardResponse struct {
	Reviews    ReviewsSection  `json:"reviews"`
	Pool       PoolSection     `json:"pool"`
	Rotation   RotationSection `json:"rotation"`
	StudyToday StudySection    `json:"study_today"`
}

// ReviewsSection summarises pending scheduled reviews.
type ReviewsSection struct {
	TotalDue int                            `json:"total_due"`
	ByKind   []ReviewKindCount              `json:"by_kind"`
	NextDue  []models.ScheduledReviewDetail `json:"next_due,omitempty"`
}

// ReviewKindCount pairs a review kind with its due count.
type ReviewKindCount struct {
	Kind  models.ReviewKind `json:"kind"`
	Count int               `json:"count"`
}

// PoolSection summarises the cyclic review pool.
type PoolSection struct {
	Size    int                `json:"size"`
	Stalest []models.PoolTopic `json:"stalest,omitempty"`
}

// RotationSection summarises the rotation queue and its next pick.
type RotationSection struct {
	QueueLength int                 `json:"queue_length"`
	Suggestion  *RotationSuggestion `json:"suggestion,omitempty"`
}

// RotationSuggestion is the topic the rotation points at right now.
type RotationSuggestion struct {
	TopicID        string `json:"topic_id"`
	TopicName      string `json:"topic_name"`
	SubjectName    string `json:"subject_name"`
	TimeboxMinutes int    `json:"timebox_minutes"`
	Position       int    `json:"position"`
}

// StudySection aggregates study activity for the current day.
type StudySection struct {
	Entries      int `json:"entries"`
	TotalMinutes int `json:"total_minutes"`
}

// ExportRequest selects the dataset and format for an export download.
type ExportRequest struct {
	Dataset string     `form:"dataset" validate:"required,oneof=study_log reviews"`
	Format  string     `form:"format" validate:"required,oneof=csv pdf"`
	From    *time.Time `form:"from" time_format:"2006-01-02"`
	To      *time.Time `form:"to" time_format:"2006-01-02"`
}

// BackupResponse describes a created backup job.
type BackupResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	Error       string     `json:"error,omitempty"`
}
