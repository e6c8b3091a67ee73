package caseservice

import (
	"context"
	"time"

	"eleitoral/contexts/adjudication/case-service/ports"
	"eleitoral/internal/platform/outbox"
)

type outboxSource struct {
	repo ports.OutboxRepository
}

func (s outboxSource) ListPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	rows, err := s.repo.ListPendingOutbox(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, outbox.Message(row))
	}
	return items, nil
}

func (s outboxSource) MarkPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	return s.repo.MarkOutboxPublished(ctx, outboxID, publishedAt)
}

// OutboxRelay returns the relay that drains this module's outbox into publisher.
func (m Module) OutboxRelay(publisher outbox.Publisher) outbox.Relay {
	return outbox.Relay{
		Store:     outboxSource{repo: m.Outbox},
		Publisher: publisher,
		Clock:     m.UseCase.Clock,
		BatchSize: 100,
		Module:    "adjudication/case-service",
		Logger:    m.Logger,
	}
}
