package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProgress is the per-user progress ledger. One row per user, created
// lazily on the first submission and mutated only through the assessment
// orchestrator. CurrentStep never decreases and the two sets only grow.
type UserProgress struct {
	UserID           uint                          `gorm:"primaryKey" json:"user_id"`
	CurrentLevel     string                        `gorm:"size:16;not null;default:None" json:"current_level"`
	CurrentStep      int                           `gorm:"not null;default:1" json:"current_step"`
	CompletedSteps   datatypes.JSONSlice[int]      `json:"completed_steps"`
	FailedAtStep1    bool                          `gorm:"not null;default:false" json:"failed_at_step1"`
	Certificates     datatypes.JSONSlice[string]   `json:"certificates"`
	LastAssessmentAt *time.Time                    `json:"last_assessment_at"`
	CreatedAt        time.Time                     `json:"created_at"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

// HasCompletedStep reports whether the given step is already in the
// completed set.
func (p UserProgress) HasCompletedStep(step int) bool {
	for _, s := range p.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// HasCertificate reports whether the level has already been awarded.
func (p UserProgress) HasCertificate(level string) bool {
	for _, c := range p.Certificates {
		if c == level {
			return true
		}
	}
	return false
}

// MarkStepCompleted adds the step to the completed set. Re-adding a step a
// user already holds is a no-op.
func (p *UserProgress) MarkStepCompleted(step int) {
	if !p.HasCompletedStep(step) {
		p.CompletedSteps = append(p.CompletedSteps, step)
	}
}

// AwardCertificate adds the level to the certificate set. Awarding a level
// twice never produces a duplicate.
func (p *UserProgress) AwardCertificate(level string) {
	if !p.HasCertificate(level) {
		p.Certificates = append(p.Certificates, level)
	}
}
