package entities

import "time"

type SubmissionKind string

const (
	SubmissionKindAllegation        SubmissionKind = "allegation"
	SubmissionKindDefense           SubmissionKind = "defense"
	SubmissionKindCounterAllegation SubmissionKind = "counter_allegation"
	SubmissionKindEvidence          SubmissionKind = "evidence"
	SubmissionKindAppealBrief       SubmissionKind = "appeal_brief"
)

func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionKindAllegation,
		SubmissionKindDefense,
		SubmissionKindCounterAllegation,
		SubmissionKindEvidence,
		SubmissionKindAppealBrief:
		return true
	default:
		return false
	}
}

type CalendarMode string

const (
	CalendarModeCalendar CalendarMode = "calendar"
	CalendarModeBusiness CalendarMode = "business"
)

// DeadlineWindow is an append-only record. An extension appends a new window
// for the same case and kind with SupersedesID pointing at the previous one;
// the latest window for a kind is the current one.
type DeadlineWindow struct {
	WindowID     string
	CaseID       string
	Kind         SubmissionKind
	Sequence     int
	OpensAt      time.Time
	DueAt        time.Time
	Days         int
	Mode         CalendarMode
	SupersedesID string
	Reason       string
	CreatedAt    time.Time
}

// Submission keeps the deadline it was judged against. Timely never changes
// after creation.
type Submission struct {
	SubmissionID string
	CaseID       string
	Kind         SubmissionKind
	PartyID      string
	Content      string
	FiledAt      time.Time
	WindowID     string
	DeadlineAt   time.Time
	Timely       bool
	RecordedAt   time.Time
}

// IsTimely is the timeliness rule: filed at or before the deadline.
func IsTimely(filedAt time.Time, deadline time.Time) bool {
	return !filedAt.After(deadline)
}

// Statute holds the statutory parameters that drive windows and voting.
type Statute struct {
	DefenseDays           int
	EvidenceDays          int
	AllegationDays        int
	CounterAllegationDays int
	AppealDays            int
	Mode                  CalendarMode
	QuorumFraction        float64
	MaxTier               int
}

func DefaultStatute() Statute {
	return Statute{
		DefenseDays:           5,
		EvidenceDays:          5,
		AllegationDays:        5,
		CounterAllegationDays: 5,
		AppealDays:            5,
		Mode:                  CalendarModeCalendar,
		QuorumFraction:        0.5,
		MaxTier:               2,
	}
}

// Normalize fills unset values from the defaults.
func (s Statute) Normalize() Statute {
	defaults := DefaultStatute()
	if s.DefenseDays <= 0 {
		s.DefenseDays = defaults.DefenseDays
	}
	if s.EvidenceDays <= 0 {
		s.EvidenceDays = defaults.EvidenceDays
	}
	if s.AllegationDays <= 0 {
		s.AllegationDays = defaults.AllegationDays
	}
	if s.CounterAllegationDays <= 0 {
		s.CounterAllegationDays = defaults.CounterAllegationDays
	}
	if s.AppealDays <= 0 {
		s.AppealDays = defaults.AppealDays
	}
	if s.Mode != CalendarModeBusiness {
		s.Mode = CalendarModeCalendar
	}
	if s.QuorumFraction <= 0 || s.QuorumFraction > 1 {
		s.QuorumFraction = defaults.QuorumFraction
	}
	if s.MaxTier <= 0 {
		s.MaxTier = defaults.MaxTier
	}
	return s
}
