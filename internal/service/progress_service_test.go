package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/repository"
	"github.com/skillcert/skillcert-api/internal/rules"
)

// testDB opens a uniquely named in-memory database so parallel-package test
// runs never share state through sqlite's shared cache.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func setupProgressService(t *testing.T) (ProgressService, *gorm.DB, *redis.Client) {
	t.Helper()

	db := testDB(t)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Assessment{}, &models.UserProgress{}))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	svc := NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewAssessmentRepository(db),
		redisClient,
		time.Minute,
		zerolog.Nop(),
	)

	return svc, db, redisClient
}

func mustEvaluate(t *testing.T, step, score int) rules.Result {
	t.Helper()

	result, err := rules.Evaluate(step, score)
	require.NoError(t, err)
	return result
}

func TestApplySubmissionCreatesLedgerLazily(t *testing.T) {
	svc, db, _ := setupProgressService(t)
	ctx := context.Background()

	progress, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 60))
	require.NoError(t, err)

	require.Equal(t, rules.LevelA2, progress.CurrentLevel)
	require.Equal(t, 1, progress.CurrentStep)
	require.Equal(t, []int{1}, []int(progress.CompletedSteps))
	require.Equal(t, []string{rules.LevelA2}, []string(progress.Certificates))
	require.False(t, progress.FailedAtStep1)
	require.NotNil(t, progress.LastAssessmentAt)

	var stored models.UserProgress
	require.NoError(t, db.Where("user_id = ?", 1).First(&stored).Error)
	require.Equal(t, rules.LevelA2, stored.CurrentLevel)
}

func TestApplySubmissionStepOneFailureIsTerminal(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	progress, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 10))
	require.NoError(t, err)
	require.True(t, progress.FailedAtStep1)
	require.Equal(t, rules.LevelFailed, progress.CurrentLevel)
	require.Equal(t, 1, progress.CurrentStep)
	require.Empty(t, progress.CompletedSteps)
	require.Empty(t, progress.Certificates)

	// The block stands no matter how well the retake would have scored.
	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 95))
	require.ErrorIs(t, err, ErrStepBlocked)

	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 5))
	require.ErrorIs(t, err, ErrStepBlocked)
}

func TestApplySubmissionRejectsOutOfOrderSteps(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	// A fresh user has step 1 open, nothing else.
	_, err := svc.ApplySubmission(ctx, 1, 2, mustEvaluate(t, 2, 80))
	require.ErrorIs(t, err, ErrInvalidStep)

	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 80))
	require.NoError(t, err)

	// Step 1 is completed; replaying it is rejected rather than recomputed.
	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 80))
	require.ErrorIs(t, err, ErrInvalidStep)

	_, err = svc.ApplySubmission(ctx, 1, 3, mustEvaluate(t, 3, 80))
	require.ErrorIs(t, err, ErrInvalidStep)
}

func TestApplySubmissionRejectsReplayOfNonAdvancingPass(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	// A mid-band step-1 pass completes the step but leaves the step pointer
	// at 1.
	progress, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 60))
	require.NoError(t, err)
	require.Equal(t, 1, progress.CurrentStep)
	require.True(t, progress.HasCompletedStep(1))

	// The step is completed, so resubmitting it is rejected even though the
	// pointer still matches.
	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 90))
	require.ErrorIs(t, err, ErrInvalidStep)

	// Ledger unchanged by the rejected replay.
	after, err := svc.GetProgress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rules.LevelA2, after.CurrentLevel)
	require.Equal(t, []string{rules.LevelA2}, after.Certificates)
}

func TestApplySubmissionAdvancesOnlyOnTopBand(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	progress, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 80))
	require.NoError(t, err)
	require.Equal(t, 2, progress.CurrentStep)

	// A low step-2 score keeps the prior level and does not regress the
	// step pointer.
	progress, err = svc.ApplySubmission(ctx, 1, 2, mustEvaluate(t, 2, 10))
	require.NoError(t, err)
	require.Equal(t, rules.LevelA2, progress.CurrentLevel)
	require.Equal(t, 2, progress.CurrentStep)
	require.Equal(t, []int{1, 2}, []int(progress.CompletedSteps))
	require.Equal(t, []string{rules.LevelA2}, []string(progress.Certificates))
}

func TestApplySubmissionCertificatesAreIdempotent(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	_, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 80))
	require.NoError(t, err)

	// A step-2 result resolving to an already-held level must not duplicate
	// the certificate.
	duplicate := rules.Result{Level: rules.LevelA2, Status: rules.StatusPassed, CertificateEarned: true}
	progress, err := svc.ApplySubmission(ctx, 1, 2, duplicate)
	require.NoError(t, err)
	require.Equal(t, []string{rules.LevelA2}, []string(progress.Certificates))
	require.True(t, progress.HasCompletedStep(2))
}

func TestApplySubmissionFullLadder(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	_, err := svc.ApplySubmission(ctx, 9, 1, mustEvaluate(t, 1, 90))
	require.NoError(t, err)
	_, err = svc.ApplySubmission(ctx, 9, 2, mustEvaluate(t, 2, 90))
	require.NoError(t, err)
	progress, err := svc.ApplySubmission(ctx, 9, 3, mustEvaluate(t, 3, 90))
	require.NoError(t, err)

	require.Equal(t, rules.LevelC2, progress.CurrentLevel)
	require.Equal(t, 3, progress.CurrentStep)
	require.Equal(t, []int{1, 2, 3}, []int(progress.CompletedSteps))
	require.Equal(t, []string{rules.LevelA2, rules.LevelB2, rules.LevelC2}, []string(progress.Certificates))

	// Step 3 is terminal; there is nothing left to submit.
	_, err = svc.ApplySubmission(ctx, 9, 3, mustEvaluate(t, 3, 90))
	require.ErrorIs(t, err, ErrInvalidStep)
}

func TestGetProgressDefaultsForUnknownUser(t *testing.T) {
	svc, _, _ := setupProgressService(t)

	progress, err := svc.GetProgress(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, rules.LevelNone, progress.CurrentLevel)
	require.Equal(t, 1, progress.CurrentStep)
	require.Empty(t, progress.CompletedSteps)
	require.Zero(t, progress.TotalAttempts)
}

func TestGetProgressCachesAndInvalidatesOnApply(t *testing.T) {
	svc, db, _ := setupProgressService(t)
	ctx := context.Background()

	_, err := svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 30))
	require.NoError(t, err)

	first, err := svc.GetProgress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rules.LevelA1, first.CurrentLevel)

	// A direct database change is invisible while the cache is warm.
	require.NoError(t, db.Model(&models.UserProgress{}).Where("user_id = ?", 1).Update("current_level", rules.LevelC2).Error)
	cached, err := svc.GetProgress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rules.LevelA1, cached.CurrentLevel)

	// Applying a submission drops the cached view.
	require.NoError(t, db.Model(&models.UserProgress{}).Where("user_id = ?", 1).Update("current_level", rules.LevelA1).Error)
	_, err = svc.ApplySubmission(ctx, 1, 1, mustEvaluate(t, 1, 60))
	require.NoError(t, err)

	fresh, err := svc.GetProgress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rules.LevelA2, fresh.CurrentLevel)
}

// memoryProgressRepo is an in-memory ProgressRepository used to exercise the
// per-user serialization without sqlite in the way.
type memoryProgressRepo struct {
	mu      sync.Mutex
	entries map[uint]models.UserProgress
}

func (m *memoryProgressRepo) Get(_ context.Context, userID uint) (models.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[userID]
	if !ok {
		return models.UserProgress{}, gorm.ErrRecordNotFound
	}
	return entry, nil
}

func (m *memoryProgressRepo) Create(_ context.Context, progress *models.UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[progress.UserID]; ok {
		return errors.New("duplicate entry")
	}
	m.entries[progress.UserID] = *progress
	return nil
}

func (m *memoryProgressRepo) Update(_ context.Context, progress *models.UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[progress.UserID] = *progress
	return nil
}

func TestApplySubmissionSerializesConcurrentWritersPerUser(t *testing.T) {
	repo := &memoryProgressRepo{entries: make(map[uint]models.UserProgress)}
	db := testDB(t)
	require.NoError(t, db.AutoMigrate(&models.Assessment{}))

	svc := NewProgressService(repo, repository.NewAssessmentRepository(db), nil, time.Minute, zerolog.Nop())

	const writers = 16
	result := mustEvaluate(t, 1, 80)

	var wg sync.WaitGroup
	successes := make(chan struct{}, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ApplySubmission(context.Background(), 7, 1, result); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	// Exactly one writer may pass the current-step guard; the rest observe
	// the advanced pointer and are rejected.
	count := 0
	for range successes {
		count++
	}
	require.Equal(t, 1, count)

	entry, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 2, entry.CurrentStep)
	require.Equal(t, []string{rules.LevelA2}, []string(entry.Certificates))
}
