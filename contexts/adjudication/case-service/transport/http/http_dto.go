package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubjectDTO struct {
	Kind       string `json:"kind"`
	ID         string `json:"id,omitempty"`
	ElectionID string `json:"election_id"`
	SlateID    string `json:"slate_id,omitempty"`
}

type FileCaseRequest struct {
	Kind      string     `json:"kind"`
	Anonymous bool       `json:"anonymous"`
	Target    SubjectDTO `json:"target"`
}

type CaseResponse struct {
	CaseID           string     `json:"case_id"`
	ProtocolNumber   string     `json:"protocol_number"`
	Kind             string     `json:"kind"`
	Instance         string     `json:"instance"`
	Tier             int        `json:"tier"`
	Status           string     `json:"status"`
	Target           SubjectDTO `json:"target"`
	FilerID          string     `json:"filer_id,omitempty"`
	Anonymous        bool       `json:"anonymous"`
	RelatorID        string     `json:"relator_id,omitempty"`
	OriginCaseID     string     `json:"origin_case_id,omitempty"`
	OriginJudgmentID string     `json:"origin_judgment_id,omitempty"`
	AppealCaseID     string     `json:"appeal_case_id,omitempty"`
	Disposition      string     `json:"disposition,omitempty"`
	Sanction         string     `json:"sanction"`
	FiledAt          time.Time  `json:"filed_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty"`
	Replayed         bool       `json:"replayed,omitempty"`
}

type CaseListResponse struct {
	Items []CaseResponse `json:"items"`
}

type StatusChangeResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id,omitempty"`
	TriggerRef string    `json:"trigger_ref,omitempty"`
	Note       string    `json:"note,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

type CaseHistoryResponse struct {
	Case       CaseResponse           `json:"case"`
	Changes    []StatusChangeResponse `json:"changes"`
	Consistent bool                   `json:"consistent"`
}

type AssignRelatorRequest struct {
	RelatorID string `json:"relator_id"`
}

type AdmissibilityRequest struct {
	Admit     bool   `json:"admit"`
	Reasoning string `json:"reasoning"`
}

type DeadlineWindowResponse struct {
	WindowID     string    `json:"window_id"`
	Kind         string    `json:"kind"`
	Sequence     int       `json:"sequence"`
	OpensAt      time.Time `json:"opens_at"`
	DueAt        time.Time `json:"due_at"`
	Days         int       `json:"days"`
	Mode         string    `json:"mode"`
	SupersedesID string    `json:"supersedes_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

type PeriodResponse struct {
	Case        CaseResponse             `json:"case"`
	Windows     []DeadlineWindowResponse `json:"windows"`
	AlreadyOpen bool                     `json:"already_open"`
}

type DeadlineListResponse struct {
	Items []DeadlineWindowResponse `json:"items"`
}

type ExtendDeadlineRequest struct {
	Kind      string `json:"kind"`
	ExtraDays int    `json:"extra_days"`
	Reason    string `json:"reason"`
}

type SubmitRequest struct {
	Kind    string     `json:"kind"`
	Content string     `json:"content"`
	FiledAt *time.Time `json:"filed_at,omitempty"`
}

type SubmissionResponse struct {
	SubmissionID string    `json:"submission_id"`
	CaseID       string    `json:"case_id"`
	Kind         string    `json:"kind"`
	PartyID      string    `json:"party_id"`
	FiledAt      time.Time `json:"filed_at"`
	DeadlineAt   time.Time `json:"deadline_at"`
	Timely       bool      `json:"timely"`
}

type SubmissionListResponse struct {
	Items []SubmissionResponse `json:"items"`
}

type SendToJudgmentRequest struct {
	PresidingID string `json:"presiding_id,omitempty"`
}

type RosterMemberDTO struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	SlateID  string `json:"slate_id,omitempty"`
}

type VoteResponse struct {
	VoteID  string    `json:"vote_id"`
	VoterID string    `json:"voter_id"`
	Value   string    `json:"value"`
	Winning bool      `json:"winning"`
	CastAt  time.Time `json:"cast_at"`
}

type JudgmentResponse struct {
	JudgmentID     string            `json:"judgment_id"`
	CaseID         string            `json:"case_id"`
	Instance       string            `json:"instance"`
	Tier           int               `json:"tier"`
	Status         string            `json:"status"`
	Roster         []RosterMemberDTO `json:"roster"`
	PresidingID    string            `json:"presiding_id,omitempty"`
	RelatorID      string            `json:"relator_id,omitempty"`
	Outcome        string            `json:"outcome,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
	Sanction       string            `json:"sanction"`
	OpenedAt       time.Time         `json:"opened_at"`
	DecidedAt      *time.Time        `json:"decided_at,omitempty"`
	PublishedAt    *time.Time        `json:"published_at,omitempty"`
	AppealDeadline *time.Time        `json:"appeal_deadline,omitempty"`
	Opinion        *OpinionDTO       `json:"opinion,omitempty"`
	Votes          []VoteResponse    `json:"votes,omitempty"`
}

type OpinionDTO struct {
	Recommendation string    `json:"recommendation"`
	Summary        string    `json:"summary,omitempty"`
	Grounds        string    `json:"grounds"`
	Conclusion     string    `json:"conclusion"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type RecordOpinionRequest struct {
	Recommendation string `json:"recommendation"`
	Summary        string `json:"summary,omitempty"`
	Grounds        string `json:"grounds"`
	Conclusion     string `json:"conclusion"`
}

type CastVoteRequest struct {
	Value string `json:"value"`
}

type CloseVotingRequest struct {
	Reasoning string `json:"reasoning"`
	Sanction  string `json:"sanction,omitempty"`
}

type FileAppealRequest struct {
	Brief   string     `json:"brief"`
	FiledAt *time.Time `json:"filed_at,omitempty"`
}

type AppealResponse struct {
	AppealID       string       `json:"appeal_id,omitempty"`
	AppealCase     CaseResponse `json:"appeal_case"`
	Origin         CaseResponse `json:"origin"`
	WindowDeadline *time.Time   `json:"window_deadline,omitempty"`
	Replayed       bool         `json:"replayed"`
}
