package models

import "time"

// BackupArchive is the full JSON dump written to a backup file.
type BackupArchive struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Subjects    []Subject                  `json:"subjects"`
	Topics      []TopicDetail              `json:"topics"`
	StudyLog    []StudyLogEntryDetail      `json:"study_log"`
	Reviews     []ScheduledReviewDetail    `json:"reviews"`
	Pool        []PoolTopic                `json:"pool"`
	Rotation    []RotationQueueEntryDetail `json:"rotation"`
}
