package entities

import (
	"fmt"
	"time"
)

type CaseKind string

const (
	CaseKindComplaint CaseKind = "complaint"
	CaseKindChallenge CaseKind = "challenge"
)

type Instance string

const (
	InstanceFirst  Instance = "first"
	InstanceSecond Instance = "second"
)

type CaseStatus string

const (
	CaseStatusFiled                    CaseStatus = "filed"
	CaseStatusAdmissibilityReview      CaseStatus = "admissibility_review"
	CaseStatusAdmitted                 CaseStatus = "admitted"
	CaseStatusRejected                 CaseStatus = "rejected"
	CaseStatusDefensePeriod            CaseStatus = "defense_period"
	CaseStatusEvidencePeriod           CaseStatus = "evidence_period"
	CaseStatusUnderJudgment            CaseStatus = "under_judgment"
	CaseStatusJudged                   CaseStatus = "judged"
	CaseStatusAppealPending            CaseStatus = "appeal_pending"
	CaseStatusAppealedToSecondInstance CaseStatus = "appealed_to_second_instance"
	CaseStatusClosed                   CaseStatus = "closed"
)

type Sanction string

const (
	SanctionNone              Sanction = "none"
	SanctionNullifySlateVotes Sanction = "nullify_slate_votes"
	SanctionDisqualifySlate   Sanction = "disqualify_slate"
)

func (s Sanction) Valid() bool {
	switch s {
	case SanctionNone, SanctionNullifySlateVotes, SanctionDisqualifySlate:
		return true
	default:
		return false
	}
}

// Case is never deleted; retired cases carry ArchivedAt.
type Case struct {
	CaseID           string
	ProtocolNumber   string
	Kind             CaseKind
	Instance         Instance
	Tier             int
	Status           CaseStatus
	Target           Subject
	FilerID          string
	Anonymous        bool
	RelatorID        string
	OriginCaseID     string
	OriginJudgmentID string
	AppealCaseID     string
	Disposition      Outcome
	Sanction         Sanction
	FiledAt          time.Time
	UpdatedAt        time.Time
	ArchivedAt       *time.Time
}

func (c Case) Terminal() bool {
	return c.Status.Terminal()
}

// Open reports whether the case still holds a dispute.
func (c Case) Open() bool {
	return !c.Status.Terminal()
}

// ProtocolPrefix is the registry prefix for protocol numbers of the case.
func (c Case) ProtocolPrefix() string {
	if c.Instance == InstanceSecond {
		return "REC"
	}
	if c.Kind == CaseKindChallenge {
		return "IMP"
	}
	return "DEN"
}

// FormatProtocol renders a protocol number such as DEN-2026-00042.
func FormatProtocol(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// StatusChange is an immutable history record.
type StatusChange struct {
	ChangeID   string
	CaseID     string
	FromStatus CaseStatus
	ToStatus   CaseStatus
	ActorID    string
	TriggerRef string
	Note       string
	ChangedAt  time.Time
}
