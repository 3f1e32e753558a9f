package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/skillcert/skillcert-api/internal/dto"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/observability"
	"github.com/skillcert/skillcert-api/internal/repository"
	"github.com/skillcert/skillcert-api/internal/rules"
)

// AssessmentService orchestrates graded submissions: it validates the
// payload, evaluates it through the rules engine, applies the result to the
// progress ledger under its guards, and records the attempt in the
// append-only log.
type AssessmentService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmitAssessmentRequest) (dto.AssessmentOutcomeResponse, error)
	Preview(step, score int) (dto.PreviewResponse, error)
	History(ctx context.Context, userID uint) ([]dto.AssessmentResponse, error)
}

type assessmentService struct {
	assessments repository.AssessmentRepository
	progress    ProgressService
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAssessmentService constructs the orchestrator.
func NewAssessmentService(assessmentRepo repository.AssessmentRepository, progress ProgressService, validate *validator.Validate, logger zerolog.Logger) AssessmentService {
	return &assessmentService{
		assessments: assessmentRepo,
		progress:    progress,
		validator:   validate,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
		tracer:      otel.Tracer("github.com/skillcert/skillcert-api/internal/service/assessment"),
		now:         time.Now,
	}
}

func (s *assessmentService) Submit(ctx context.Context, userID uint, payload dto.SubmitAssessmentRequest) (dto.AssessmentOutcomeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.submit", trace.WithAttributes(
		attribute.Int("assessment.step", payload.Step),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.AssessmentOutcomeResponse{}, err
	}

	score := *payload.Score

	result, err := rules.Evaluate(payload.Step, score)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentOutcomeResponse{}, err
	}

	if _, err := s.progress.ApplySubmission(ctx, userID, payload.Step, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger rejected submission")
		return dto.AssessmentOutcomeResponse{}, err
	}

	assessment := models.Assessment{
		UserID:           userID,
		Step:             payload.Step,
		Answers:          datatypes.JSON(payload.Answers),
		Score:            score,
		Level:            result.Level,
		Status:           result.Status,
		TimeSpentSeconds: payload.TimeSpent,
		CompletedAt:      s.now(),
	}

	if err := s.assessments.Create(ctx, &assessment); err != nil {
		span.RecordError(err)
		return dto.AssessmentOutcomeResponse{}, err
	}

	observability.AssessmentSubmissions().
		WithLabelValues(strconv.Itoa(payload.Step), result.Status).Inc()
	if result.CertificateEarned {
		observability.CertificatesAwarded().WithLabelValues(result.Level).Inc()
	}

	s.logger.Info().
		Uint("user_id", userID).
		Int("step", payload.Step).
		Int("score", score).
		Str("level", result.Level).
		Str("status", result.Status).
		Msg("assessment submitted")

	return dto.AssessmentOutcomeResponse{
		ID:                assessment.ID,
		Step:              payload.Step,
		Score:             score,
		Level:             result.Level,
		Status:            result.Status,
		CanProceed:        result.CanProceed,
		CertificateEarned: result.CertificateEarned,
	}, nil
}

// Preview evaluates a (step, score) pair without touching the ledger. The
// results screen uses it so the threshold tables live in exactly one place.
func (s *assessmentService) Preview(step, score int) (dto.PreviewResponse, error) {
	result, err := rules.Evaluate(step, score)
	if err != nil {
		return dto.PreviewResponse{}, err
	}

	return dto.PreviewResponse{
		Step:              step,
		Score:             score,
		Level:             result.Level,
		Status:            result.Status,
		CanProceed:        result.CanProceed,
		CertificateEarned: result.CertificateEarned,
	}, nil
}

func (s *assessmentService) History(ctx context.Context, userID uint) ([]dto.AssessmentResponse, error) {
	assessments, err := s.assessments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssessmentResponseSlice(assessments), nil
}
