package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skillcert/skillcert-api/internal/dto"
	"github.com/skillcert/skillcert-api/internal/rules"
	"github.com/skillcert/skillcert-api/internal/service"
	"github.com/skillcert/skillcert-api/internal/utils"
)

// AssessmentHandler manages the assessment submission endpoints.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler builds an assessment handler instance.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssessmentHandler) Register(router fiber.Router) {
	router.Post("/submit", h.submit)
	router.Get("/preview", h.preview)
	router.Get("/history", h.history)
}

func (h *AssessmentHandler) submit(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
	}

	var payload dto.SubmitAssessmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	outcome, err := h.service.Submit(c.Context(), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "Assessment submitted successfully", fiber.Map{"assessment": outcome})
}

func (h *AssessmentHandler) preview(c *fiber.Ctx) error {
	step, stepSet, err := parseQueryInt(c, "step")
	if err != nil || !stepSet {
		return utils.SendError(c, fiber.StatusBadRequest, "step query parameter is required")
	}

	score, scoreSet, err := parseQueryInt(c, "score")
	if err != nil || !scoreSet {
		return utils.SendError(c, fiber.StatusBadRequest, "score query parameter is required")
	}

	preview, err := h.service.Preview(step, score)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "result preview computed", preview)
}

func (h *AssessmentHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
	}

	assessments, err := h.service.History(c.Context(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *AssessmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrStepBlocked):
		return utils.SendError(c, fiber.StatusConflict, "Step 1 was failed and cannot be retaken")
	case errors.Is(err, service.ErrInvalidStep):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "Submission does not match your current open step")
	case errors.Is(err, rules.ErrUnknownStep):
		return utils.SendError(c, fiber.StatusBadRequest, "step must be 1, 2, or 3")
	case errors.Is(err, rules.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "score must be between 0 and 100")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
