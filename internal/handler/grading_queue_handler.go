package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
	"github.com/kelasio/kelas-admin-api/internal/service"
	"github.com/kelasio/kelas-admin-api/internal/utils"
)

// GradingQueueHandler wires the grading queue endpoints.
type GradingQueueHandler struct {
	queue  service.GradingQueueService
	export service.ExportService
	logger zerolog.Logger
}

// NewGradingQueueHandler constructs the handler.
func NewGradingQueueHandler(queue service.GradingQueueService, export service.ExportService, logger zerolog.Logger) *GradingQueueHandler {
	return &GradingQueueHandler{
		queue:  queue,
		export: export,
		logger: logger.With().Str("component", "grading_queue_handler").Logger(),
	}
}

// Register attaches the queue routes to the router group.
func (h *GradingQueueHandler) Register(router fiber.Router) {
	router.Get("/queue", h.list)
	router.Get("/queue/stats", h.stats)
	router.Get("/queue/export", h.exportCSV)
	router.Get("/rubric", h.rubric)
}

func (h *GradingQueueHandler) list(c *fiber.Ctx) error {
	request, err := parseQueueListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.queue.List(c.Context(), request)
	if err != nil {
		var fetchErr *grading.FetchError
		if errors.As(err, &fetchErr) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to load grading queue")
			return utils.SendError(c, fiber.StatusServiceUnavailable, "grading queue unavailable")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list grading queue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list grading queue")
	}

	return utils.SendSuccess(c, "grading queue retrieved", response)
}

func (h *GradingQueueHandler) stats(c *fiber.Ctx) error {
	response, err := h.queue.Stats(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute queue stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute queue stats")
	}

	return utils.SendSuccess(c, "queue stats retrieved", response)
}

func (h *GradingQueueHandler) exportCSV(c *fiber.Ctx) error {
	request, err := parseQueueListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	payload, meta, err := h.export.ExportCSV(c.Context(), request)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to export grading queue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export grading queue")
	}

	c.Set(fiber.HeaderContentType, meta.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", meta.FileName))
	if meta.URL != "" {
		c.Set("X-Export-URL", meta.URL)
	}
	return c.Status(fiber.StatusOK).Send(payload)
}

func (h *GradingQueueHandler) rubric(c *fiber.Ctx) error {
	questionType := models.QuestionType(c.Query("type"))

	criteria, err := h.queue.ListRubric(c.Context(), questionType)
	if err != nil {
		var validationErr *grading.ValidationError
		if errors.As(err, &validationErr) {
			return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list rubric criteria")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list rubric criteria")
	}

	return utils.SendSuccess(c, "rubric criteria retrieved", criteria)
}
