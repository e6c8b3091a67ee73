package commands

import (
	"context"
	"encoding/json"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	"eleitoral/contexts/tabulation/tally-service/ports"
)

const (
	EventSnapshotComputed  = "snapshot.computed"
	EventSnapshotSealed    = "snapshot.sealed"
	EventSlateDisqualified = "slate.disqualified"
)

func (uc TallyUseCase) newEnvelope(
	ctx context.Context,
	eventType string,
	scope entities.Scope,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	data["election_id"] = scope.ElectionID
	data["region"] = scope.Region
	data["scope"] = scope.Key()
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "tally-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "scope",
		PartitionKey:     scope.Key(),
		Data:             payload,
	}, nil
}
