package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
)

// queueStatsService computes the portfolio summary over the unfiltered queue
// and caches it in redis. Stats always cover the whole pending set regardless
// of the active filters.
type queueStatsService struct {
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewQueueStatsService constructs the cached stats provider. A nil redis
// client disables caching; every call then recomputes from the queue.
func NewQueueStatsService(cache *redis.Client, ttl time.Duration, logger zerolog.Logger) QueueStatsProvider {
	return &queueStatsService{
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "queue_stats_service").Logger(),
		now:      time.Now,
	}
}

func (s *queueStatsService) Stats(ctx context.Context, queue *grading.Queue) (dto.QueueStatsResponse, error) {
	const cacheKey = "grading:queue:stats"
	tracer := otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/queue_stats")
	ctx, span := tracer.Start(ctx, "grading.queue.stats")
	span.SetAttributes(attribute.String("grading.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.QueueStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("grading.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read queue stats cache")
			span.RecordError(err)
		}
	}

	response := dto.NewQueueStatsResponse(queue.Stats(), s.now())
	span.SetAttributes(attribute.Int("grading.stats_total", response.Total))

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store queue stats cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached summary. Called after grading or batch actions
// change the pending set.
func (s *queueStatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, "grading:queue:stats").Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate queue stats cache")
	}
}
