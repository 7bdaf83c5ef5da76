package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// GradingQueueService exposes the filtered, sorted, paginated view over the
// submissions awaiting review. The queue itself is rebuilt per request; the
// listing is stateless from the caller's point of view.
type GradingQueueService interface {
	List(ctx context.Context, request dto.QueueListRequest) (dto.QueueListResponse, error)
	Stats(ctx context.Context) (dto.QueueStatsResponse, error)
	ListRubric(ctx context.Context, questionType models.QuestionType) ([]models.RubricCriterion, error)
}

// QueueStatsProvider supplies the portfolio stats block embedded in queue
// listings. The redis-backed implementation caches across requests.
type QueueStatsProvider interface {
	Stats(ctx context.Context, queue *grading.Queue) (dto.QueueStatsResponse, error)
	Invalidate(ctx context.Context)
}

type gradingQueueService struct {
	gateway grading.Gateway
	rubrics RubricProvider
	stats   QueueStatsProvider
	logger  zerolog.Logger
}

// NewGradingQueueService constructs the queue listing service.
func NewGradingQueueService(gateway grading.Gateway, rubrics RubricProvider, stats QueueStatsProvider, logger zerolog.Logger) GradingQueueService {
	return &gradingQueueService{
		gateway: gateway,
		rubrics: rubrics,
		stats:   stats,
		logger:  logger.With().Str("component", "grading_queue_service").Logger(),
	}
}

func (s *gradingQueueService) List(ctx context.Context, request dto.QueueListRequest) (dto.QueueListResponse, error) {
	tracer := otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/grading_queue")
	ctx, span := tracer.Start(ctx, "grading.queue.list")
	defer span.End()

	queue := grading.NewQueue(s.gateway, s.logger)
	if err := queue.Load(ctx); err != nil {
		span.RecordError(err)
		return dto.QueueListResponse{}, err
	}

	dates := grading.DateRange{Start: request.DateStart, End: request.DateEnd}
	queue.ApplyFilters(request.Search, request.Type, request.Status, dates)
	if request.SortField != "" {
		queue.SortBy(request.SortField, grading.SortDirection(request.SortDir))
	}
	queue.SetPage(request.Page, request.PageSize)

	state := queue.FilterState()
	visible := queue.Visible()
	page := queue.PageSlice()

	response := dto.QueueListResponse{
		Items: make([]dto.QueueItemResponse, 0, len(page)),
		Pagination: dto.PaginationMeta{
			Page:       state.Page,
			PageSize:   state.PageSize,
			TotalItems: len(visible),
			TotalPages: totalPages(len(visible), state.PageSize),
		},
	}
	for _, submission := range page {
		response.Items = append(response.Items, dto.NewQueueItemResponse(submission))
	}

	stats, err := s.stats.Stats(ctx, queue)
	if err != nil {
		// The listing is still useful without the summary block.
		s.logger.Warn().Err(err).Msg("queue stats unavailable")
		stats = dto.NewQueueStatsResponse(queue.Stats(), time.Now())
	}
	response.Stats = stats

	span.SetAttributes(
		attribute.Int("grading.queue.total", queue.Len()),
		attribute.Int("grading.queue.visible", len(visible)),
	)
	return response, nil
}

// Stats reports the portfolio summary over the whole pending set. The active
// queue filters never narrow it.
func (s *gradingQueueService) Stats(ctx context.Context) (dto.QueueStatsResponse, error) {
	queue := grading.NewQueue(s.gateway, s.logger)
	if err := queue.Load(ctx); err != nil {
		return dto.QueueStatsResponse{}, err
	}
	return s.stats.Stats(ctx, queue)
}

func (s *gradingQueueService) ListRubric(ctx context.Context, questionType models.QuestionType) ([]models.RubricCriterion, error) {
	if _, ok := models.TypeDescriptor(questionType); !ok {
		return nil, &grading.ValidationError{Field: "type", Reason: "unknown question type"}
	}

	criteria, err := s.rubrics.ListRubricCriteria(ctx, questionType)
	if err != nil {
		return nil, &grading.FetchError{Op: "rubric criteria", Err: err}
	}
	return criteria, nil
}

func totalPages(items, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := items / pageSize
	if items%pageSize != 0 {
		pages++
	}
	return pages
}
