package commands

import (
	"encoding/json"
	"time"

	"eleitoral/contexts/adjudication/case-service/ports"
	contractsv1 "eleitoral/contracts/gen/events/v1"
)

const (
	EventCaseStatusChanged  = "case.status_changed"
	EventSubmissionRecorded = "case.submission_recorded"
	EventDeadlineExtended   = "case.deadline_extended"
	EventJudgmentClosed     = "judgment.closed"
	EventJudgmentPublished  = "judgment.published"
	EventAppealFiled        = "case.appeal_filed"
	EventCaseConcluded      = contractsv1.TopicCaseConcluded
)

func newCaseEnvelope(
	eventID string,
	eventType string,
	caseID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by case so consumers see one case's events in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "case-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "case_id",
		PartitionKey:     caseID,
		Data:             payload,
	}, nil
}
