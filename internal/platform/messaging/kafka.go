package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	contractsv1 "eleitoral/contracts/gen/events/v1"
)

const defaultBuffer = 128

var ErrSubscriberStopped = errors.New("subscriber stopped before handling event")

type delivery struct {
	event  contractsv1.Envelope
	result chan error
}

type subscription struct {
	deliveries chan delivery
	done       chan struct{}
}

// Kafka is the event bus adapter used by the outbox relays and consumers.
// Delivery is in-process publish/subscribe; the broker list is kept so the
// wiring matches an external broker. Publish returns only after every
// subscriber handled the event, so a relay marks a row published once it was
// consumed and keeps it pending otherwise.
type Kafka struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	brokers     []string
	buffer      int
	wg          sync.WaitGroup
	logger      *slog.Logger
}

func NewKafka(brokers []string, buffer int, logger *slog.Logger) (*Kafka, error) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Kafka{
		subscribers: make(map[string][]*subscription),
		brokers:     append([]string(nil), brokers...),
		buffer:      buffer,
		logger:      logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	k.mu.RLock()
	subs := append([]*subscription(nil), k.subscribers[topic]...)
	k.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.deliver(ctx, event); err != nil {
			if k.logger != nil {
				k.logger.Warn("event not acknowledged by subscriber",
					"event", "kafka_publish_unacknowledged",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_id", event.EventID,
					"error", err.Error(),
				)
			}
			return fmt.Errorf("publish %s to %s: %w", event.EventID, topic, err)
		}
	}

	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

// deliver blocks until the subscriber handled the event and returns the
// handler error.
func (s *subscription) deliver(ctx context.Context, event contractsv1.Envelope) error {
	d := delivery{event: event, result: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSubscriberStopped
	case s.deliveries <- d:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-d.result:
		return err
	case <-s.done:
		select {
		case err := <-d.result:
			return err
		default:
			return ErrSubscriberStopped
		}
	}
}

// Subscribe starts one consumer goroutine for the topic. It stops when ctx is
// done; Wait blocks until every consumer stopped.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	sub := &subscription{
		deliveries: make(chan delivery, k.buffer),
		done:       make(chan struct{}),
	}

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], sub)
	k.mu.Unlock()

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				k.removeSubscriber(topic, sub)
				return
			case d := <-sub.deliveries:
				err := handler(ctx, d.event)
				if err != nil && k.logger != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", d.event.EventID,
						"event_type", d.event.EventType,
						"error", err.Error(),
					)
				}
				d.result <- err
			}
		}
	}()
	return nil
}

func (k *Kafka) Wait() {
	k.wg.Wait()
}

func (k *Kafka) removeSubscriber(topic string, target *subscription) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]*subscription, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	k.subscribers[topic] = filtered
}
