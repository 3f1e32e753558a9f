package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assessment statuses.
const (
	AssessmentStatusPassed = "passed"
	AssessmentStatusFailed = "failed"
)

// Assessment is one graded attempt at an assessment step. Rows are
// append-only: one record per attempt, never updated after creation.
type Assessment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	Step             int            `gorm:"not null" json:"step"`
	Answers          datatypes.JSON `json:"answers"`
	Score            int            `gorm:"not null" json:"score"`
	Level            string         `gorm:"size:16;not null" json:"level"`
	Status           string         `gorm:"size:16;not null" json:"status"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	CompletedAt      time.Time      `gorm:"not null" json:"completed_at"`
	User             User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
