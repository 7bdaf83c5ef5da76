package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/observability"
)

// BatchService runs bulk actions over an explicit submission selection with a
// prepare/confirm handshake. Execution is non-atomic: the result names the
// identifiers that succeeded and the ones that failed.
type BatchService interface {
	Prepare(ctx context.Context, payload dto.BatchPrepareRequest) (grading.BatchConfirmation, error)
	Execute(ctx context.Context, payload dto.BatchExecuteRequest, actor ActivityActor) (dto.BatchResultResponse, error)
}

type batchService struct {
	coordinator    *grading.BatchCoordinator
	validator      *validator.Validate
	stats          QueueStatsProvider
	activity       ActivityRecorder
	events         EventPublisher
	gatewayTimeout time.Duration
	tracer         trace.Tracer
	logger         zerolog.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(
	coordinator *grading.BatchCoordinator,
	validator *validator.Validate,
	stats QueueStatsProvider,
	activity ActivityRecorder,
	events EventPublisher,
	gatewayTimeout time.Duration,
	logger zerolog.Logger,
) BatchService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &batchService{
		coordinator:    coordinator,
		validator:      validator,
		stats:          stats,
		activity:       activity,
		events:         events,
		gatewayTimeout: gatewayTimeout,
		tracer:         otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/batch"),
		logger:         logger.With().Str("component", "batch_service").Logger(),
	}
}

func (s *batchService) Prepare(ctx context.Context, payload dto.BatchPrepareRequest) (grading.BatchConfirmation, error) {
	if err := s.validator.Struct(payload); err != nil {
		return grading.BatchConfirmation{}, err
	}
	return s.coordinator.Prepare(payload.IDs, grading.BatchActionType(payload.Action))
}

func (s *batchService) Execute(ctx context.Context, payload dto.BatchExecuteRequest, actor ActivityActor) (dto.BatchResultResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchResultResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grading.batch.execute", trace.WithAttributes(
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	execCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	result, err := s.coordinator.Execute(execCtx, payload.Token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_execute_failed")
		return dto.BatchResultResponse{}, err
	}

	span.SetAttributes(
		attribute.Int("grading.batch.succeeded", len(result.Succeeded)),
		attribute.Int("grading.batch.failed", len(result.Failed)),
	)
	observability.GradingBatchItems().WithLabelValues(string(result.Action), "succeeded").Add(float64(len(result.Succeeded)))
	observability.GradingBatchItems().WithLabelValues(string(result.Action), "failed").Add(float64(len(result.Failed)))

	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "submission.batch",
			EntityType: "submission",
			Metadata: map[string]interface{}{
				"succeeded": len(result.Succeeded),
				"failed":    len(result.Failed),
			},
		})
	}

	publishEvent(s.events, s.logger, EventBatchExecuted, map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"actor_id":  actor.ID,
	})

	return dto.BatchResultResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Refreshed: true,
	}, nil
}
