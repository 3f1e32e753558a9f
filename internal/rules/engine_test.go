package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateStepOneBands(t *testing.T) {
	cases := []struct {
		name     string
		score    int
		expected Result
	}{
		{"terminal failure at zero", 0, Result{Level: LevelFailed, Status: StatusFailed}},
		{"terminal failure just below band", 24, Result{Level: LevelFailed, Status: StatusFailed}},
		{"a1 lower bound", 25, Result{Level: LevelA1, Status: StatusPassed, CertificateEarned: true}},
		{"a1 upper bound", 49, Result{Level: LevelA1, Status: StatusPassed, CertificateEarned: true}},
		{"a2 lower bound", 50, Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true}},
		{"a2 upper bound", 74, Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true}},
		{"proceed lower bound", 75, Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true, CanProceed: true, NextStep: 2}},
		{"proceed at perfect score", 100, Result{Level: LevelA2, Status: StatusPassed, CertificateEarned: true, CanProceed: true, NextStep: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Evaluate(StepOne, tc.score)
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestEvaluateStepTwoBands(t *testing.T) {
	cases := []struct {
		name     string
		score    int
		expected Result
	}{
		{"low score keeps a2 without certificate", 10, Result{Level: LevelA2, Status: StatusPassed}},
		{"low score boundary", 24, Result{Level: LevelA2, Status: StatusPassed}},
		{"b1 band", 25, Result{Level: LevelB1, Status: StatusPassed, CertificateEarned: true}},
		{"b2 band", 60, Result{Level: LevelB2, Status: StatusPassed, CertificateEarned: true}},
		{"proceed band", 80, Result{Level: LevelB2, Status: StatusPassed, CertificateEarned: true, CanProceed: true, NextStep: 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Evaluate(StepTwo, tc.score)
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestEvaluateStepThreeHasOnlyThreeBands(t *testing.T) {
	cases := []struct {
		name     string
		score    int
		expected Result
	}{
		{"low score keeps b2 without certificate", 0, Result{Level: LevelB2, Status: StatusPassed}},
		{"c1 band", 30, Result{Level: LevelC1, Status: StatusPassed, CertificateEarned: true}},
		{"c2 lower bound", 50, Result{Level: LevelC2, Status: StatusPassed, CertificateEarned: true}},
		{"c2 top score never proceeds", 100, Result{Level: LevelC2, Status: StatusPassed, CertificateEarned: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Evaluate(StepThree, tc.score)
			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
			require.False(t, result.CanProceed)
		})
	}
}

func TestEvaluateStepOneNeverFailsAboveThreshold(t *testing.T) {
	for score := 25; score <= 100; score++ {
		result, err := Evaluate(StepOne, score)
		require.NoError(t, err)
		require.Equal(t, StatusPassed, result.Status)
		require.True(t, result.CertificateEarned)
	}
}

func TestEvaluateStepsTwoAndThreeNeverFail(t *testing.T) {
	for _, step := range []int{StepTwo, StepThree} {
		for score := 0; score <= 100; score++ {
			result, err := Evaluate(step, score)
			require.NoError(t, err)
			require.Equal(t, StatusPassed, result.Status)
		}
	}
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	_, err := Evaluate(4, 50)
	require.ErrorIs(t, err, ErrUnknownStep)

	_, err = Evaluate(0, 50)
	require.ErrorIs(t, err, ErrUnknownStep)

	_, err = Evaluate(StepOne, -1)
	require.ErrorIs(t, err, ErrScoreOutOfRange)

	_, err = Evaluate(StepOne, 101)
	require.ErrorIs(t, err, ErrScoreOutOfRange)
}
