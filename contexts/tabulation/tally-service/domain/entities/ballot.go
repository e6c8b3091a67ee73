package entities

import (
	"strings"
	"time"
)

// Scope is the unit a tally is computed and sealed for: an election, or one
// region of it.
type Scope struct {
	ElectionID string `json:"election_id"`
	Region     string `json:"region,omitempty"`
}

func (s Scope) Valid() bool {
	return strings.TrimSpace(s.ElectionID) != ""
}

// Key is the stable storage key of the scope.
func (s Scope) Key() string {
	election := strings.TrimSpace(s.ElectionID)
	region := strings.TrimSpace(s.Region)
	if region == "" {
		return election
	}
	return election + "/" + region
}

// ScopeState tracks the consistency barrier. A frozen scope accepts no new
// ballot or section report.
type ScopeState struct {
	Scope    Scope
	Frozen   bool
	FrozenAt *time.Time
	Sealed   bool
}

type BallotCategory string

const (
	BallotCategoryValid    BallotCategory = "valid"
	BallotCategoryBlank    BallotCategory = "blank"
	BallotCategoryNull     BallotCategory = "null"
	BallotCategoryAnnulled BallotCategory = "annulled"
)

// Accepted reports whether a ballot may arrive with the category. Annulled is
// only ever an effective category derived from an annulment.
func (c BallotCategory) Accepted() bool {
	switch c {
	case BallotCategoryValid, BallotCategoryBlank, BallotCategoryNull:
		return true
	default:
		return false
	}
}

// Ballot is immutable once accepted.
type Ballot struct {
	BallotID   string
	Scope      Scope
	SectionID  string
	SlateID    string
	Category   BallotCategory
	Hash       string
	CastAt     time.Time
	AcceptedAt time.Time
	Sequence   int64
}

// Annulment voids one ballot without touching it.
type Annulment struct {
	AnnulmentID string
	BallotID    string
	Scope       Scope
	Reason      string
	Authority   string
	CaseRef     string
	RecordedAt  time.Time
}

// AuditEntry records an operation refused by a domain rule.
type AuditEntry struct {
	EntryID    string
	Operation  string
	ScopeKey   string
	ActorID    string
	Reason     string
	OccurredAt time.Time
}

// Reinstatement reverses one annulment. Both records stay; a snapshot cut
// after RecordedAt counts the ballot under its original category again.
type Reinstatement struct {
	ReinstatementID string
	AnnulmentID     string
	BallotID        string
	Scope           Scope
	Reason          string
	Authority       string
	RecordedAt      time.Time
}
