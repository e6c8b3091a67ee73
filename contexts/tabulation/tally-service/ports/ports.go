package ports

import (
	"context"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	contractsv1 "eleitoral/contracts/gen/events/v1"
)

type EventEnvelope = contractsv1.Envelope

type SlateRegistry interface {
	SaveSlate(ctx context.Context, slate entities.Slate) error
	GetSlate(ctx context.Context, scope entities.Scope, slateID string) (entities.Slate, error)
	ListSlates(ctx context.Context, scope entities.Scope) ([]entities.Slate, error)
	// FindSlateScopes lists every scope of the election where the slate is
	// registered.
	FindSlateScopes(ctx context.Context, electionID string, slateID string) ([]entities.Scope, error)
	// DisqualifySlate marks the slate ineligible and annuls every valid ballot
	// for it that is not annulled yet, in one atomic step. The event is
	// written to the outbox with the change.
	DisqualifySlate(
		ctx context.Context,
		scope entities.Scope,
		slateID string,
		template entities.Annulment,
		event EventEnvelope,
	) (entities.Slate, []entities.Annulment, error)
}

type BallotStore interface {
	// InsertBallot is an atomic check-and-insert. It refuses a frozen or
	// sealed scope, a disqualified slate and a hash already seen in the
	// section.
	InsertBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	ListBallots(ctx context.Context, scope entities.Scope) ([]entities.Ballot, error)
	AppendAnnulment(ctx context.Context, annulment entities.Annulment) error
	ListAnnulments(ctx context.Context, scope entities.Scope) ([]entities.Annulment, error)
	// AppendReinstatement reverses the annulment of the ballot. It refuses a
	// sealed scope, a ballot with no annulment, an annulment already reversed
	// and a valid ballot whose slate is disqualified.
	AppendReinstatement(ctx context.Context, reinstatement entities.Reinstatement) error
	ListReinstatements(ctx context.Context, scope entities.Scope) ([]entities.Reinstatement, error)
}

type SectionStore interface {
	SaveSection(ctx context.Context, section entities.Section) error
	GetSection(ctx context.Context, scope entities.Scope, sectionID string) (entities.Section, error)
	ListSections(ctx context.Context, scope entities.Scope) ([]entities.Section, error)
	// AppendSectionReport stores the report with the next revision for its
	// section and returns it.
	AppendSectionReport(ctx context.Context, report entities.SectionReport) (entities.SectionReport, error)
	ListSectionReports(ctx context.Context, scope entities.Scope) ([]entities.SectionReport, error)
}

type ScopeStore interface {
	GetScopeState(ctx context.Context, scope entities.Scope) (entities.ScopeState, error)
	// FreezeScope raises the barrier. Once it returns, no ballot insert that
	// has not committed yet can commit.
	FreezeScope(ctx context.Context, scope entities.Scope, at time.Time) (entities.ScopeState, error)
}

type SnapshotStore interface {
	// AppendSnapshot stores the snapshot only when its PreviousHash is still
	// the hash of the latest snapshot of the scope, else ErrChainConflict.
	AppendSnapshot(ctx context.Context, snapshot entities.TallySnapshot, event EventEnvelope) error
	GetSnapshot(ctx context.Context, snapshotID string) (entities.TallySnapshot, error)
	LatestSnapshot(ctx context.Context, scope entities.Scope) (entities.TallySnapshot, bool, error)
	ListSnapshots(ctx context.Context, scope entities.Scope) ([]entities.TallySnapshot, error)
}

type SealStore interface {
	// SaveSeal fails with ErrAlreadyFinal when the scope is sealed.
	SaveSeal(ctx context.Context, seal entities.Seal, event EventEnvelope) error
	GetSeal(ctx context.Context, scope entities.Scope) (entities.Seal, bool, error)
}

// DisputeQuery is the read-only view of the case registry.
type DisputeQuery interface {
	HasOpenDispute(ctx context.Context, electionID string, slateIDs []string) (bool, error)
}

type Hasher interface {
	Chain(previousHash string, totals entities.Totals) (string, error)
}

type SequenceIssuer interface {
	Next(ctx context.Context, scope string) (int64, error)
}

type AuditTrail interface {
	RecordRejection(ctx context.Context, entry entities.AuditEntry) error
}

type Metrics interface {
	ObserveBallot(category entities.BallotCategory, result string)
	ObserveSnapshot(final bool, considered int)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// EventDedupStore gates at-least-once delivery. ReserveEvent reports true
// when the event id was already reserved with the same payload hash.
// ReleaseEvent drops a reservation whose work failed so a redelivery runs it.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
