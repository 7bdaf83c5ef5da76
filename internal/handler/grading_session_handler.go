package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/service"
	"github.com/kelasio/kelas-admin-api/internal/utils"
)

// GradingSessionHandler wires the grading session endpoints.
type GradingSessionHandler struct {
	sessions service.GradingSessionService
	logger   zerolog.Logger
}

// NewGradingSessionHandler constructs the handler.
func NewGradingSessionHandler(sessions service.GradingSessionService, logger zerolog.Logger) *GradingSessionHandler {
	return &GradingSessionHandler{
		sessions: sessions,
		logger:   logger.With().Str("component", "grading_session_handler").Logger(),
	}
}

// Register attaches the session routes to the router group.
func (h *GradingSessionHandler) Register(router fiber.Router) {
	router.Post("/sessions", h.open)
	router.Get("/sessions/:id", h.get)
	router.Patch("/sessions/:id/answers/:answerID", h.updateAnswer)
	router.Post("/sessions/:id/answers/:answerID/suggested", h.applySuggested)
	router.Post("/sessions/:id/answers/:answerID/rubric", h.evaluateRubric)
	router.Post("/sessions/:id/save", h.save)
	router.Delete("/sessions/:id", h.close)
}

func (h *GradingSessionHandler) open(c *fiber.Ctx) error {
	var payload dto.OpenSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.SubmissionID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "submission_id is required")
	}

	actor := activityActorFromContext(c)
	session, err := h.sessions.Open(c.Context(), payload.SubmissionID, actor)
	if err != nil {
		var fetchErr *grading.FetchError
		if errors.As(err, &fetchErr) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to open grading session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to open grading session")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grading session opened", session)
}

func (h *GradingSessionHandler) get(c *fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "grading session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch grading session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch grading session")
	}

	return utils.SendSuccess(c, "grading session retrieved", session)
}

func (h *GradingSessionHandler) updateAnswer(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.UpdateAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.sessions.UpdateAnswer(c.Context(), c.Params("id"), answerID, payload)
	if err != nil {
		return h.sendSessionError(c, err, "failed to update answer")
	}

	return utils.SendSuccess(c, "answer updated", session)
}

func (h *GradingSessionHandler) applySuggested(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	session, err := h.sessions.ApplySuggested(c.Context(), c.Params("id"), answerID)
	if err != nil {
		if errors.Is(err, grading.ErrNoSuggestion) {
			return utils.SendError(c, fiber.StatusNotFound, "no suggestion available for this answer")
		}
		return h.sendSessionError(c, err, "failed to apply suggested score")
	}

	return utils.SendSuccess(c, "suggested score applied", session)
}

func (h *GradingSessionHandler) evaluateRubric(c *fiber.Ctx) error {
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RubricEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.sessions.EvaluateRubric(c.Context(), c.Params("id"), answerID, payload)
	if err != nil {
		return h.sendSessionError(c, err, "failed to evaluate rubric")
	}

	return utils.SendSuccess(c, "rubric evaluated", summary)
}

func (h *GradingSessionHandler) save(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	session, err := h.sessions.Save(c.Context(), c.Params("id"), actor)
	if err != nil {
		return h.sendSessionError(c, err, "failed to save grading session")
	}

	return utils.SendSuccess(c, "grading session saved", session)
}

func (h *GradingSessionHandler) close(c *fiber.Ctx) error {
	if err := h.sessions.Close(c.Params("id")); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "grading session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to close grading session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to close grading session")
	}

	return utils.SendSuccess(c, "grading session closed", fiber.Map{"id": c.Params("id")})
}

// sendSessionError maps the grading error taxonomy onto HTTP statuses shared
// by every session mutation.
func (h *GradingSessionHandler) sendSessionError(c *fiber.Ctx, err error, fallback string) error {
	var validationErr *grading.ValidationError
	var boundsErr *grading.RubricBoundsError
	var saveErr *grading.SaveError

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grading session not found")
	case errors.Is(err, grading.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "answer not found in this session")
	case errors.Is(err, grading.ErrSessionClosed):
		return utils.SendError(c, fiber.StatusConflict, "grading session already closed")
	case errors.Is(err, service.ErrNoFieldsToApply):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &boundsErr):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, boundsErr.Error())
	case errors.As(err, &validationErr):
		return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.As(err, &saveErr):
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusBadGateway, "failed to persist grading changes")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
