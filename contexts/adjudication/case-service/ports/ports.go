package ports

import (
	"context"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	contractsv1 "eleitoral/contracts/gen/events/v1"
)

type EventEnvelope = contractsv1.Envelope

// CaseTx is the write view of a unit of work. Writes are visible to later
// reads on the same CaseTx and become durable only when the unit commits.
type CaseTx interface {
	GetCase(ctx context.Context, caseID string) (entities.Case, error)
	SaveCase(ctx context.Context, item entities.Case) error
	AppendStatusChange(ctx context.Context, change entities.StatusChange) error

	AppendDeadlineWindow(ctx context.Context, window entities.DeadlineWindow) error
	CurrentDeadlineWindow(ctx context.Context, caseID string, kind entities.SubmissionKind) (entities.DeadlineWindow, bool, error)
	AppendSubmission(ctx context.Context, submission entities.Submission) error

	GetJudgment(ctx context.Context, judgmentID string) (entities.Judgment, error)
	GetJudgmentByCase(ctx context.Context, caseID string) (entities.Judgment, bool, error)
	SaveJudgment(ctx context.Context, judgment entities.Judgment) error
	// AppendVote fails with ErrDuplicateVote when the voter already voted.
	AppendVote(ctx context.Context, vote entities.CommitteeVote) error
	ListVotes(ctx context.Context, judgmentID string) ([]entities.CommitteeVote, error)
	SaveVotes(ctx context.Context, votes []entities.CommitteeVote) error

	// AppendAppeal fails with ErrAlreadyAppealed when the origin judgment
	// already has an appeal.
	AppendAppeal(ctx context.Context, appeal entities.Appeal) error
	GetAppealByJudgment(ctx context.Context, judgmentID string) (entities.Appeal, bool, error)

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// UnitOfWork serializes work per case. The listed cases are locked in a
// stable order and all writes made through the CaseTx commit together or not
// at all.
type UnitOfWork interface {
	WithinCases(ctx context.Context, caseIDs []string, fn func(tx CaseTx) error) error
}

type CaseReader interface {
	GetCase(ctx context.Context, caseID string) (entities.Case, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]entities.Case, error)
	ListStatusChanges(ctx context.Context, caseID string) ([]entities.StatusChange, error)
	ListDeadlineWindows(ctx context.Context, caseID string) ([]entities.DeadlineWindow, error)
	ListSubmissions(ctx context.Context, caseID string) ([]entities.Submission, error)
	GetJudgment(ctx context.Context, judgmentID string) (entities.Judgment, error)
	GetJudgmentByCase(ctx context.Context, caseID string) (entities.Judgment, bool, error)
	ListVotes(ctx context.Context, judgmentID string) ([]entities.CommitteeVote, error)
}

type CaseFilter struct {
	Statuses   []entities.CaseStatus
	ElectionID string
	OpenOnly   bool
	// AppealLapsedBefore keeps cases whose published judgment has an appeal
	// deadline earlier than the instant. Zero disables it.
	AppealLapsedBefore time.Time
	Limit              int
}

// PartyRegistry answers standing and target checks from reference data.
type PartyRegistry interface {
	HasStanding(ctx context.Context, partyID string, electionID string) (bool, error)
	IsTargetActive(ctx context.Context, target entities.Subject) (bool, error)
}

// Committee returns the judging committee seated for an election tier.
type Committee interface {
	Roster(ctx context.Context, electionID string, tier int) ([]entities.RosterMember, error)
}

type DeadlineCalculator interface {
	ComputeDeadline(base time.Time, days int, mode entities.CalendarMode) (time.Time, error)
}

// SequenceIssuer hands out monotonically increasing numbers per named scope.
type SequenceIssuer interface {
	Next(ctx context.Context, scope string) (int64, error)
}

// ProtocolIssuer is implemented by case transactions that number protocols
// in the same commit as the case. Other transactions use the SequenceIssuer.
type ProtocolIssuer interface {
	NextProtocol(ctx context.Context, scope string) (int64, error)
}

type AuditTrail interface {
	RecordRejection(ctx context.Context, entry entities.AuditEntry) error
}

type Metrics interface {
	ObserveTransition(from entities.CaseStatus, to entities.CaseStatus)
	ObserveSubmission(kind entities.SubmissionKind, timely bool)
	ObserveJudgment(outcome entities.Outcome, decision entities.DecisionKind)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	CaseID      string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
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

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
