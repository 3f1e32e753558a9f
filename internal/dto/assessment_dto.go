package dto

import (
	"encoding/json"
	"time"

	"github.com/skillcert/skillcert-api/internal/models"
)

// SubmitAssessmentRequest is the payload for submitting one graded attempt.
// Score is a pointer so a legitimate zero survives the required check.
type SubmitAssessmentRequest struct {
	Step      int             `json:"step" validate:"required,min=1,max=3"`
	Answers   json.RawMessage `json:"answers" validate:"required"`
	Score     *int            `json:"score" validate:"required,gte=0,lte=100"`
	TimeSpent int             `json:"timeSpent" validate:"gte=0"`
}

// AssessmentOutcomeResponse is returned after a submission is applied.
type AssessmentOutcomeResponse struct {
	ID                uint   `json:"id"`
	Step              int    `json:"step"`
	Score             int    `json:"score"`
	Level             string `json:"level"`
	Status            string `json:"status"`
	CanProceed        bool   `json:"canProceed"`
	CertificateEarned bool   `json:"certificateEarned"`
}

// PreviewResponse is the read-only evaluation of a (step, score) pair. It
// reuses the same threshold tables as the mutating path without touching the
// ledger.
type PreviewResponse struct {
	Step              int    `json:"step"`
	Score             int    `json:"score"`
	Level             string `json:"level"`
	Status            string `json:"status"`
	CanProceed        bool   `json:"canProceed"`
	CertificateEarned bool   `json:"certificateEarned"`
}

// AssessmentResponse serializes one entry of the attempt log.
type AssessmentResponse struct {
	ID               uint            `json:"id"`
	Step             int             `json:"step"`
	Score            int             `json:"score"`
	Level            string          `json:"level"`
	Status           string          `json:"status"`
	Answers          json.RawMessage `json:"answers,omitempty"`
	TimeSpentSeconds int             `json:"timeSpentSeconds"`
	CompletedAt      time.Time       `json:"completedAt"`
}

// NewAssessmentResponse converts an Assessment model into a DTO.
func NewAssessmentResponse(model models.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:               model.ID,
		Step:             model.Step,
		Score:            model.Score,
		Level:            model.Level,
		Status:           model.Status,
		Answers:          json.RawMessage(model.Answers),
		TimeSpentSeconds: model.TimeSpentSeconds,
		CompletedAt:      model.CompletedAt,
	}
}

// NewAssessmentResponseSlice converts assessment models into DTOs.
func NewAssessmentResponseSlice(models []models.Assessment) []AssessmentResponse {
	responses := make([]AssessmentResponse, 0, len(models))
	for _, assessment := range models {
		responses = append(responses, NewAssessmentResponse(assessment))
	}

	return responses
}
