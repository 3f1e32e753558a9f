// Package rules maps a submitted score to a certification outcome. It is the
// single owner of the step threshold tables: both the mutating submission
// path and the read-only result preview consume it.
package rules

import "errors"

// Certification level labels, ordered A1 < A2 < B1 < B2 < C1 < C2.
const (
	LevelNone   = "None"
	LevelFailed = "Failed"
	LevelA1     = "A1"
	LevelA2     = "A2"
	LevelB1     = "B1"
	LevelB2     = "B2"
	LevelC1     = "C1"
	LevelC2     = "C2"
)

// Assessment steps.
const (
	StepOne   = 1
	StepTwo   = 2
	StepThree = 3
)

var (
	// ErrUnknownStep indicates the step is outside {1,2,3}.
	ErrUnknownStep = errors.New("unknown assessment step")
	// ErrScoreOutOfRange indicates the score is outside [0,100].
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")
)

// Result is the outcome of evaluating one submission. It carries everything
// the ledger needs to advance a user's progress.
type Result struct {
	Level             string
	Status            string
	CertificateEarned bool
	CanProceed        bool
	NextStep          int
}

// Statuses a submission can resolve to. Only step 1 can fail; a low score on
// steps 2 and 3 keeps the previously earned level.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Evaluate applies the per-step threshold table to a score. Band boundaries
// are inclusive on the lower bound and exclusive on the upper. Step 3 has no
// further step, so CanProceed is always false there.
func Evaluate(step, score int) (Result, error) {
	if score < 0 || score > 100 {
		return Result{}, ErrScoreOutOfRange
	}

	switch step {
	case StepOne:
		return evaluateStepOne(score), nil
	case StepTwo:
		return evaluateStepTwo(score), nil
	case StepThree:
		return evaluateStepThree(score), nil
	default:
		return Result{}, ErrUnknownStep
	}
}

func evaluateStepOne(score int) Result {
	switch {
	case score < 25:
		return Result{Level: LevelFailed, Status: StatusFailed}
	case score < 50:
		return Result{Level: LevelA1, Status: StatusPassed, CertificateEarned: true}
	case score < 75:
		return Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true}
	default:
		return Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true, CanProceed: true, NextStep: StepTwo}
	}
}

func evaluateStepTwo(score int) Result {
	switch {
	case score < 25:
		// Remain at A2, no new certificate.
		return Result{Level: LevelA2, Status: StatusPassed}
	case score < 50:
		return Result{Level: LevelB1, Status: StatusPassed, CertificateEarned: true}
	case score < 75:
		return Result{Level: LevelB2, Status: StatusPassed, CertificateEarned: true}
	default:
		return Result{Level: LevelB2, Status: StatusPassed, CertificateEarned: true, CanProceed: true, NextStep: StepThree}
	}
}

func evaluateStepThree(score int) Result {
	switch {
	case score < 25:
		// Remain at B2, no new certificate.
		return Result{Level: LevelB2, Status: StatusPassed}
	case score < 50:
		return Result{Level: LevelC1, Status: StatusPassed, CertificateEarned: true}
	default:
		return Result{Level: LevelC2, Status: StatusPassed, CertificateEarned: true}
	}
}
