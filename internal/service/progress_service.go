package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/dto"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/repository"
	"github.com/skillcert/skillcert-api/internal/rules"
)

var (
	// ErrStepBlocked indicates the user failed step one and the block is
	// permanent; retrying can never lift it.
	ErrStepBlocked = errors.New("step one permanently failed, retake is blocked")
	// ErrInvalidStep indicates the submission targets a step other than the
	// user's current open step.
	ErrInvalidStep = errors.New("submission does not match the current open step")
)

// ProgressService owns the per-user progress ledger. All mutation goes
// through ApplySubmission, which serializes the read-modify-write per user so
// concurrent submissions can never double-advance a step or double-grant a
// certificate.
type ProgressService interface {
	ApplySubmission(ctx context.Context, userID uint, step int, result rules.Result) (models.UserProgress, error)
	GetProgress(ctx context.Context, userID uint) (dto.ProgressResponse, error)
}

type progressService struct {
	progress    repository.ProgressRepository
	assessments repository.AssessmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	locks       keyedMutex
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressService constructs the ledger service.
func NewProgressService(progressRepo repository.ProgressRepository, assessmentRepo repository.AssessmentRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ProgressService {
	return &progressService{
		progress:    progressRepo,
		assessments: assessmentRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

// ApplySubmission applies one rules engine result to the ledger. The entry is
// created lazily on the first submission. Guards are checked under the
// per-user lock and either everything commits or nothing does.
func (s *progressService) ApplySubmission(ctx context.Context, userID uint, step int, result rules.Result) (models.UserProgress, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	progress, err := s.progress.Get(ctx, userID)
	created := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UserProgress{}, err
		}
		progress = models.UserProgress{
			UserID:       userID,
			CurrentLevel: rules.LevelNone,
			CurrentStep:  rules.StepOne,
		}
		created = true
	}

	if step == rules.StepOne && progress.FailedAtStep1 {
		return models.UserProgress{}, ErrStepBlocked
	}

	// A non-advancing pass completes a step without moving the pointer, so
	// the completed set has to be checked as well as the pointer.
	if step != progress.CurrentStep || progress.HasCompletedStep(step) {
		return models.UserProgress{}, ErrInvalidStep
	}

	now := s.now()
	progress.LastAssessmentAt = &now

	if result.Status == rules.StatusFailed && step == rules.StepOne {
		progress.FailedAtStep1 = true
		if created {
			progress.CurrentLevel = result.Level
		}
	} else {
		progress.CurrentLevel = result.Level
		progress.MarkStepCompleted(step)
		if result.CertificateEarned {
			progress.AwardCertificate(result.Level)
		}
		if result.CanProceed {
			// A non-advancing pass leaves the step pointer where it is.
			progress.CurrentStep = step + 1
		}
	}

	if created {
		err = s.progress.Create(ctx, &progress)
	} else {
		err = s.progress.Update(ctx, &progress)
	}
	if err != nil {
		return models.UserProgress{}, err
	}

	s.invalidateCache(ctx, userID)

	return progress, nil
}

// GetProgress returns the ledger plus raw attempt counts, served from cache
// when fresh. A user without submissions gets the default open-step-one view
// without creating a row.
func (s *progressService) GetProgress(ctx context.Context, userID uint) (dto.ProgressResponse, error) {
	cacheKey := progressCacheKey(userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", userID).Msg("progress cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
	}

	progress, err := s.progress.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, err
		}
		progress = models.UserProgress{
			UserID:       userID,
			CurrentLevel: rules.LevelNone,
			CurrentStep:  rules.StepOne,
		}
	}

	attempts, err := s.assessments.CountByUser(ctx, userID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	response := dto.NewProgressResponse(progress, attempts)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

func (s *progressService) invalidateCache(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, progressCacheKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate progress cache")
	}
}

func progressCacheKey(userID uint) string {
	return fmt.Sprintf("progress:user:%d", userID)
}

// keyedMutex serializes writers per user key without blocking unrelated
// users.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func (k *keyedMutex) lock(key uint) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
