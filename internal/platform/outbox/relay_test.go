package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractsv1 "eleitoral/contracts/gen/events/v1"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	rows      []Message
	published map[string]time.Time
}

func (s *memoryStore) ListPending(_ context.Context, limit int) ([]Message, error) {
	items := make([]Message, 0, len(s.rows))
	for _, row := range s.rows {
		if _, done := s.published[row.OutboxID]; !done && len(items) < limit {
			items = append(items, row)
		}
	}
	return items, nil
}

func (s *memoryStore) MarkPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.published[outboxID] = publishedAt
	return nil
}

type scriptedPublisher struct {
	failOn string
	topics []string
	ids    []string
}

func (p *scriptedPublisher) Publish(_ context.Context, topic string, event contractsv1.Envelope) error {
	if event.EventID == p.failOn {
		return errors.New("subscriber unavailable")
	}
	p.topics = append(p.topics, topic)
	p.ids = append(p.ids, event.EventID)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func row(t *testing.T, id string, eventType string) Message {
	t.Helper()
	payload, err := json.Marshal(contractsv1.Envelope{EventID: "evt-" + id, EventType: eventType})
	require.NoError(t, err)
	return Message{OutboxID: id, EventType: eventType, Payload: payload}
}

func TestRelayStopsAtFailedRowAndResumes(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := &memoryStore{
		rows:      []Message{row(t, "1", "case.filed"), row(t, "2", "case.concluded"), row(t, "3", "case.status_changed")},
		published: map[string]time.Time{},
	}
	publisher := &scriptedPublisher{failOn: "evt-2"}
	relay := Relay{Store: store, Publisher: publisher, Clock: fixedClock{now: at}, Module: "test"}

	require.Error(t, relay.RunOnce(ctx))
	require.Equal(t, []string{"evt-1"}, publisher.ids)
	require.Len(t, store.published, 1)
	require.Equal(t, at, store.published["1"])

	publisher.failOn = ""
	require.NoError(t, relay.RunOnce(ctx))
	require.Equal(t, []string{"evt-1", "evt-2", "evt-3"}, publisher.ids)
	require.Equal(t, []string{"case.filed", "case.concluded", "case.status_changed"}, publisher.topics)

	require.NoError(t, relay.RunOnce(ctx))
	require.Len(t, publisher.ids, 3)
}

func TestRelayRejectsCorruptPayload(t *testing.T) {
	store := &memoryStore{
		rows:      []Message{{OutboxID: "1", EventType: "case.filed", Payload: []byte("{")}},
		published: map[string]time.Time{},
	}
	relay := Relay{Store: store, Publisher: &scriptedPublisher{}, BatchSize: 10}

	require.Error(t, relay.RunOnce(context.Background()))
	require.Empty(t, store.published)
}
