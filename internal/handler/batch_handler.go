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

// BatchHandler wires the bulk grading action endpoints.
type BatchHandler struct {
	batches service.BatchService
	logger  zerolog.Logger
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(batches service.BatchService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		batches: batches,
		logger:  logger.With().Str("component", "batch_handler").Logger(),
	}
}

// Register attaches the batch routes to the router group.
func (h *BatchHandler) Register(router fiber.Router) {
	router.Post("/batch/prepare", h.prepare)
	router.Post("/batch", h.execute)
}

func (h *BatchHandler) prepare(c *fiber.Ctx) error {
	var payload dto.BatchPrepareRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	confirmation, err := h.batches.Prepare(c.Context(), payload)
	if err != nil {
		var validationErr *grading.ValidationError
		switch {
		case errors.Is(err, grading.ErrEmptySelection):
			return utils.SendError(c, fiber.StatusBadRequest, "selection is empty")
		case errors.As(err, &validationErr):
			return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
		case isValidationError(err):
			return utils.SendValidationError(c, err)
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to prepare batch")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to prepare batch")
		}
	}

	return utils.SendSuccess(c, "batch prepared", confirmation)
}

func (h *BatchHandler) execute(c *fiber.Ctx) error {
	var payload dto.BatchExecuteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	result, err := h.batches.Execute(c.Context(), payload, actor)
	if err != nil {
		var saveErr *grading.SaveError
		switch {
		case errors.Is(err, grading.ErrConfirmationUnknown):
			return utils.SendError(c, fiber.StatusGone, "batch confirmation unknown or expired")
		case isValidationError(err):
			return utils.SendValidationError(c, err)
		case errors.As(err, &saveErr):
			requestLogger(h.logger, c).Error().Err(err).Msg("batch action failed")
			return utils.SendError(c, fiber.StatusBadGateway, "batch action failed")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to execute batch")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to execute batch")
		}
	}

	return utils.SendSuccess(c, "batch executed", result)
}
