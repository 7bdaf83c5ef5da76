package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/service"
	"github.com/kelasio/kelas-admin-api/internal/utils"
)

// SuggestionHandler accepts externally computed answer analyses.
type SuggestionHandler struct {
	suggestions service.SuggestionService
	logger      zerolog.Logger
}

// NewSuggestionHandler constructs the handler.
func NewSuggestionHandler(suggestions service.SuggestionService, logger zerolog.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestions: suggestions,
		logger:      logger.With().Str("component", "suggestion_handler").Logger(),
	}
}

// Register attaches the ingestion route to the router group.
func (h *SuggestionHandler) Register(router fiber.Router) {
	router.Post("/submissions/:id/answers/:answerID/analysis", h.ingest)
}

func (h *SuggestionHandler) ingest(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	answerID, err := parseUintParam(c, "answerID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	analysis, err := h.suggestions.Ingest(c.Context(), submissionID, answerID, c.Body())
	if err != nil {
		var validationErr *grading.ValidationError
		var saveErr *grading.SaveError
		switch {
		case errors.As(err, &validationErr):
			return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
		case errors.As(err, &saveErr) && errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "answer not found")
		case errors.As(err, &saveErr):
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to store analysis")
			return utils.SendError(c, fiber.StatusBadGateway, "failed to store analysis")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to ingest analysis")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to ingest analysis")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "analysis stored", analysis)
}
