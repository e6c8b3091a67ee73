package v1

import (
	"encoding/json"
	"time"
)

// Envelope wraps every event that crosses a context boundary. Data holds the
// topic payload; consumers must ignore fields they do not know.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Topics consumed across contexts.
const (
	TopicCaseConcluded = "case.concluded"
)

// Sanctions a concluded case can carry to the tally.
const (
	SanctionNone              = "none"
	SanctionNullifySlateVotes = "nullify_slate_votes"
	SanctionDisqualifySlate   = "disqualify_slate"
)

// CaseConcluded is the case.concluded payload. FinalCaseID names the case
// whose judgment ended the appeal chain rooted at CaseID.
type CaseConcluded struct {
	CaseID      string `json:"case_id"`
	FinalCaseID string `json:"final_case_id"`
	ElectionID  string `json:"election_id"`
	SlateID     string `json:"slate_id"`
	Disposition string `json:"disposition"`
	Sanction    string `json:"sanction"`
}

// DecodeCaseConcluded reads the case.concluded payload carried in Data.
func (e Envelope) DecodeCaseConcluded() (CaseConcluded, error) {
	var payload CaseConcluded
	err := json.Unmarshal(e.Data, &payload)
	return payload, err
}
