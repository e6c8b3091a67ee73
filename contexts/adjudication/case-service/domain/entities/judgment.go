package entities

import (
	"math"
	"strings"
	"time"
)

type MemberRole string

const (
	MemberRolePresiding MemberRole = "presiding"
	MemberRoleRelator   MemberRole = "relator"
	MemberRoleReviewer  MemberRole = "reviewer"
	MemberRoleVoting    MemberRole = "voting"
	MemberRoleAlternate MemberRole = "alternate"
)

// RosterMember is one committee seat. SlateID is the member's own slate
// affiliation, used for impediment checks.
type RosterMember struct {
	MemberID string
	Role     MemberRole
	SlateID  string
}

// Impeded reports whether the member must not sit on the case: filer,
// accused member, or affiliated with the accused slate.
func (m RosterMember) Impeded(c Case) bool {
	memberID := strings.TrimSpace(m.MemberID)
	if memberID == "" {
		return true
	}
	if !c.Anonymous && memberID == strings.TrimSpace(c.FilerID) {
		return true
	}
	if c.Target.Kind == SubjectKindMember && memberID == strings.TrimSpace(c.Target.ID) {
		return true
	}
	slate := c.Target.Slate()
	return slate != "" && strings.TrimSpace(m.SlateID) == slate
}

type JudgmentStatus string

const (
	JudgmentStatusOpen   JudgmentStatus = "open"
	JudgmentStatusClosed JudgmentStatus = "closed"
)

type Outcome string

const (
	OutcomeUpheld          Outcome = "upheld"
	OutcomeRejected        Outcome = "rejected"
	OutcomePartiallyUpheld Outcome = "partially_upheld"
)

type DecisionKind string

const (
	DecisionUnanimous        DecisionKind = "unanimous"
	DecisionMajority         DecisionKind = "majority"
	DecisionTieBreak         DecisionKind = "tie_break"
	DecisionDefaultRejection DecisionKind = "default_rejection"
)

type VoteValue string

const (
	VoteUphold          VoteValue = "uphold"
	VoteReject          VoteValue = "reject"
	VotePartiallyUphold VoteValue = "partially_uphold"
	VoteAbstain         VoteValue = "abstain"
)

func (v VoteValue) Valid() bool {
	switch v {
	case VoteUphold, VoteReject, VotePartiallyUphold, VoteAbstain:
		return true
	default:
		return false
	}
}

// Outcome maps a vote value to the outcome it supports. Abstentions map to
// nothing.
func (v VoteValue) Outcome() (Outcome, bool) {
	switch v {
	case VoteUphold:
		return OutcomeUpheld, true
	case VoteReject:
		return OutcomeRejected, true
	case VotePartiallyUphold:
		return OutcomePartiallyUpheld, true
	default:
		return "", false
	}
}

// RelatorOpinion is the relator's written recommendation, recorded before
// the committee votes. It does not bind the outcome.
type RelatorOpinion struct {
	Recommendation Outcome
	Summary        string
	Grounds        string
	Conclusion     string
	RecordedAt     time.Time
}

type Judgment struct {
	JudgmentID     string
	CaseID         string
	Instance       Instance
	Tier           int
	Roster         []RosterMember
	PresidingID    string
	RelatorID      string
	Status         JudgmentStatus
	Outcome        Outcome
	Decision       DecisionKind
	Reasoning      string
	Sanction       Sanction
	OpenedAt       time.Time
	DecidedAt      *time.Time
	PublishedAt    *time.Time
	AppealDeadline *time.Time
	Opinion        *RelatorOpinion
}

func (j Judgment) Member(memberID string) (RosterMember, bool) {
	memberID = strings.TrimSpace(memberID)
	for _, member := range j.Roster {
		if strings.TrimSpace(member.MemberID) == memberID {
			return member, true
		}
	}
	return RosterMember{}, false
}

func (j Judgment) Published() bool {
	return j.PublishedAt != nil
}

// QuorumSize is the number of cast votes needed to close voting.
func QuorumSize(rosterSize int, fraction float64) int {
	if rosterSize <= 0 {
		return 1
	}
	needed := int(math.Ceil(fraction * float64(rosterSize)))
	if needed < 1 {
		return 1
	}
	if needed > rosterSize {
		return rosterSize
	}
	return needed
}

type CommitteeVote struct {
	VoteID     string
	JudgmentID string
	VoterID    string
	Value      VoteValue
	Winning    bool
	CastAt     time.Time
}

type Appeal struct {
	AppealID         string
	OriginJudgmentID string
	OriginCaseID     string
	AppealCaseID     string
	AppellantID      string
	FiledAt          time.Time
	WindowDeadline   time.Time
}

// AuditEntry records an operation refused by a domain rule.
type AuditEntry struct {
	EntryID    string
	Operation  string
	CaseID     string
	ActorID    string
	Reason     string
	OccurredAt time.Time
}
