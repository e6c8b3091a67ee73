package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	contractsv1 "eleitoral/contracts/gen/events/v1"
)

// Message is one persisted outbox row. Its fields line up with the outbox
// messages of each context so rows convert without copying field by field.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type Store interface {
	ListPending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, event contractsv1.Envelope) error
}

type Clock interface {
	Now() time.Time
}

// Relay publishes the pending rows of one context's outbox to the event bus.
type Relay struct {
	Store     Store
	Publisher Publisher
	Clock     Clock
	BatchSize int
	// Module names the owning context in log records.
	Module string
	Logger *slog.Logger
}

// RunOnce publishes a batch of pending rows in creation order and marks a row
// only after the publish succeeded. It stops at the first failure so a later
// cycle retries from that row.
func (r Relay) RunOnce(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Store.ListPending(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "outbox_list_failed",
			"module", r.Module,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event contractsv1.Envelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "outbox_decode_failed",
				"module", r.Module,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "outbox_publish_failed",
				"module", r.Module,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Store.MarkPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "outbox_mark_published_failed",
				"module", r.Module,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("outbox relay cycle completed",
		"event", "outbox_relay_completed",
		"module", r.Module,
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
