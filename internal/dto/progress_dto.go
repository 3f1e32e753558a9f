package dto

import (
	"time"

	"github.com/skillcert/skillcert-api/internal/models"
)

// ProgressResponse exposes the progress ledger plus raw attempt counts.
type ProgressResponse struct {
	CurrentLevel     string     `json:"currentLevel"`
	CurrentStep      int        `json:"currentStep"`
	CompletedSteps   []int      `json:"completedSteps"`
	FailedAtStep1    bool       `json:"failedAtStep1"`
	Certificates     []string   `json:"certificates"`
	TotalAttempts    int64      `json:"totalAttempts"`
	LastAssessmentAt *time.Time `json:"lastAssessmentAt"`
}

// NewProgressResponse converts the ledger model into a DTO.
func NewProgressResponse(progress models.UserProgress, totalAttempts int64) ProgressResponse {
	completed := make([]int, 0, len(progress.CompletedSteps))
	completed = append(completed, progress.CompletedSteps...)

	certificates := make([]string, 0, len(progress.Certificates))
	certificates = append(certificates, progress.Certificates...)

	return ProgressResponse{
		CurrentLevel:     progress.CurrentLevel,
		CurrentStep:      progress.CurrentStep,
		CompletedSteps:   completed,
		FailedAtStep1:    progress.FailedAtStep1,
		Certificates:     certificates,
		TotalAttempts:    totalAttempts,
		LastAssessmentAt: progress.LastAssessmentAt,
	}
}
