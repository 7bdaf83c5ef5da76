package grading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// batchConfirmationTTL bounds how long a prepared batch stays executable.
const batchConfirmationTTL = 5 * time.Minute

// BatchConfirmation is the explicit confirm step the coordinator requires
// before executing. It carries the selection count for the operator prompt.
type BatchConfirmation struct {
	Token  string          `json:"token"`
	Action BatchActionType `json:"action"`
	Count  int             `json:"count"`
}

type preparedBatch struct {
	ids        []uint
	action     BatchActionType
	preparedAt time.Time
}

// BatchCoordinator applies one bulk action to the operator's explicit
// selection. Items execute independently at the gateway, so the coordinator
// reports which identifiers succeeded and which failed instead of treating
// the batch as atomic.
type BatchCoordinator struct {
	gateway Gateway
	logger  zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	prepared map[string]preparedBatch
}

// NewBatchCoordinator constructs the coordinator.
func NewBatchCoordinator(gateway Gateway, logger zerolog.Logger) *BatchCoordinator {
	return &BatchCoordinator{
		gateway:  gateway,
		logger:   logger.With().Str("component", "batch_coordinator").Logger(),
		now:      time.Now,
		prepared: make(map[string]preparedBatch),
	}
}

// Prepare registers the selection and returns a confirmation the caller must
// echo back to Execute. An empty selection is rejected; the coordinator never
// expands a selection implicitly.
func (c *BatchCoordinator) Prepare(ids []uint, action BatchActionType) (BatchConfirmation, error) {
	if len(ids) == 0 {
		return BatchConfirmation{}, ErrEmptySelection
	}
	if !action.Valid() {
		return BatchConfirmation{}, &ValidationError{Field: "action", Reason: "unknown batch action"}
	}

	selection := make([]uint, len(ids))
	copy(selection, ids)

	token := uuid.NewString()
	c.mu.Lock()
	c.pruneLocked()
	c.prepared[token] = preparedBatch{ids: selection, action: action, preparedAt: c.now()}
	c.mu.Unlock()

	return BatchConfirmation{Token: token, Action: action, Count: len(selection)}, nil
}

// Execute runs the prepared batch identified by token. The result lists
// succeeded and failed identifiers even on partial failure; callers refresh
// the queue afterwards regardless, so the view reflects ground truth.
func (c *BatchCoordinator) Execute(ctx context.Context, token string) (BatchResult, error) {
	c.mu.Lock()
	batch, ok := c.prepared[token]
	if ok {
		delete(c.prepared, token)
	}
	c.mu.Unlock()

	if !ok || c.now().Sub(batch.preparedAt) > batchConfirmationTTL {
		return BatchResult{}, ErrConfirmationUnknown
	}

	result, err := c.gateway.BatchAction(ctx, batch.ids, batch.action)
	if err != nil {
		return BatchResult{}, &SaveError{Err: err}
	}
	result.Action = batch.action

	if len(result.Failed) > 0 {
		c.logger.Warn().
			Str("action", string(batch.action)).
			Int("succeeded", len(result.Succeeded)).
			Int("failed", len(result.Failed)).
			Msg("batch action partially failed")
	}

	return result, nil
}

func (c *BatchCoordinator) pruneLocked() {
	cutoff := c.now().Add(-batchConfirmationTTL)
	for token, batch := range c.prepared {
		if batch.preparedAt.Before(cutoff) {
			delete(c.prepared, token)
		}
	}
}
