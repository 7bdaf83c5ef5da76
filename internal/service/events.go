package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Grading event subjects, appended to the configured subject prefix.
const (
	EventSubmissionGraded = "graded"
	EventBatchExecuted    = "batch"
)

// EventPublisher broadcasts grading events to interested consumers
// (dashboards, notification fan-out). Implementations must be nil-safe at the
// call site: a missing publisher silently disables events.
type EventPublisher interface {
	Publish(subject string, payload interface{}) error
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNatsPublisher wraps a NATS connection as an EventPublisher. Subjects are
// published as "<prefix>.<subject>".
func NewNatsPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) EventPublisher {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "kelas.grading"
	}

	return &natsPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "grading_events").Logger(),
	}
}

func (p *natsPublisher) Publish(subject string, payload interface{}) error {
	envelope := map[string]interface{}{
		"event":       subject,
		"payload":     payload,
		"occurred_at": time.Now().UTC(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	full := fmt.Sprintf("%s.%s", p.prefix, subject)
	if err := p.conn.Publish(full, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", full).Msg("failed to publish grading event")
		return err
	}

	return nil
}

// publishEvent fires an event when a publisher is configured. Event delivery
// is best effort; failures never interrupt the grading flow.
func publishEvent(publisher EventPublisher, logger zerolog.Logger, subject string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(subject, payload); err != nil {
		logger.Debug().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
