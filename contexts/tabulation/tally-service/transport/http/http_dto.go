package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ScopeDTO struct {
	ElectionID string `json:"election_id"`
	Region     string `json:"region,omitempty"`
}

type RegisterSlateRequest struct {
	Scope   ScopeDTO `json:"scope"`
	SlateID string   `json:"slate_id"`
	Number  int      `json:"number"`
	Name    string   `json:"name"`
}

type SlateResponse struct {
	Scope          ScopeDTO   `json:"scope"`
	SlateID        string     `json:"slate_id"`
	Number         int        `json:"number"`
	Name           string     `json:"name"`
	Disqualified   bool       `json:"disqualified"`
	DisqualifiedAt *time.Time `json:"disqualified_at,omitempty"`
	CaseRef        string     `json:"case_ref,omitempty"`
}

type SlateListResponse struct {
	Items []SlateResponse `json:"items"`
}

type RegisterSectionRequest struct {
	Scope     ScopeDTO `json:"scope"`
	SectionID string   `json:"section_id"`
	Name      string   `json:"name"`
}

type SectionResponse struct {
	Scope        ScopeDTO  `json:"scope"`
	SectionID    string    `json:"section_id"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

type ReportSectionRequest struct {
	Scope       ScopeDTO       `json:"scope"`
	SlateCounts map[string]int `json:"slate_counts"`
	Blank       int            `json:"blank"`
	Null        int            `json:"null"`
	Complete    bool           `json:"complete"`
}

type SectionReportResponse struct {
	ReportID    string         `json:"report_id"`
	Scope       ScopeDTO       `json:"scope"`
	SectionID   string         `json:"section_id"`
	Revision    int            `json:"revision"`
	SlateCounts map[string]int `json:"slate_counts"`
	Blank       int            `json:"blank"`
	Null        int            `json:"null"`
	Complete    bool           `json:"complete"`
	ReportedBy  string         `json:"reported_by,omitempty"`
	ReportedAt  time.Time      `json:"reported_at"`
}

type AcceptBallotRequest struct {
	Scope     ScopeDTO   `json:"scope"`
	SectionID string     `json:"section_id"`
	SlateID   string     `json:"slate_id,omitempty"`
	Category  string     `json:"category"`
	Hash      string     `json:"hash"`
	CastAt    *time.Time `json:"cast_at,omitempty"`
}

type BallotResponse struct {
	BallotID   string    `json:"ballot_id"`
	Scope      ScopeDTO  `json:"scope"`
	SectionID  string    `json:"section_id"`
	SlateID    string    `json:"slate_id,omitempty"`
	Category   string    `json:"category"`
	Hash       string    `json:"hash"`
	CastAt     time.Time `json:"cast_at"`
	AcceptedAt time.Time `json:"accepted_at"`
	Sequence   int64     `json:"sequence"`
}

type AnnulBallotRequest struct {
	Reason  string `json:"reason"`
	CaseRef string `json:"case_ref,omitempty"`
}

type AnnulmentResponse struct {
	AnnulmentID string    `json:"annulment_id"`
	BallotID    string    `json:"ballot_id"`
	Scope       ScopeDTO  `json:"scope"`
	Reason      string    `json:"reason"`
	Authority   string    `json:"authority"`
	CaseRef     string    `json:"case_ref,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type AnnulmentListResponse struct {
	Items []AnnulmentResponse `json:"items"`
}

type ReinstateBallotRequest struct {
	Reason string `json:"reason"`
}

type ReinstatementResponse struct {
	ReinstatementID string    `json:"reinstatement_id"`
	AnnulmentID     string    `json:"annulment_id"`
	BallotID        string    `json:"ballot_id"`
	Scope           ScopeDTO  `json:"scope"`
	Reason          string    `json:"reason"`
	Authority       string    `json:"authority"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type ReinstatementListResponse struct {
	Items []ReinstatementResponse `json:"items"`
}

type DisqualifySlateRequest struct {
	Scope   ScopeDTO `json:"scope"`
	CaseRef string   `json:"case_ref,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

type DisqualifySlateResponse struct {
	Slate          SlateResponse    `json:"slate"`
	AnnulledCount  int              `json:"annulled_count"`
	Snapshot       SnapshotResponse `json:"snapshot"`
	AlreadyApplied bool             `json:"already_applied,omitempty"`
}

type ComputeSnapshotRequest struct {
	Scope ScopeDTO   `json:"scope"`
	AsOf  *time.Time `json:"as_of,omitempty"`
	Final bool       `json:"final"`
}

type SlateRowDTO struct {
	SlateID           string  `json:"slate_id"`
	Votes             int     `json:"votes"`
	PercentValid      float64 `json:"percent_valid"`
	PercentConsidered float64 `json:"percent_considered"`
	Position          int     `json:"position"`
	Eligible          bool    `json:"eligible"`
}

type SnapshotResponse struct {
	SnapshotID       string        `json:"snapshot_id"`
	Scope            ScopeDTO      `json:"scope"`
	Sequence         int           `json:"sequence"`
	AsOf             time.Time     `json:"as_of"`
	Final            bool          `json:"final"`
	Rows             []SlateRowDTO `json:"rows"`
	Valid            int           `json:"valid"`
	Blank            int           `json:"blank"`
	Null             int           `json:"null"`
	Annulled         int           `json:"annulled"`
	Considered       int           `json:"considered"`
	SectionsExpected int           `json:"sections_expected"`
	SectionsReported int           `json:"sections_reported"`
	PreviousHash     string        `json:"previous_hash"`
	Hash             string        `json:"hash"`
	GeneratedAt      time.Time     `json:"generated_at"`
	Unchanged        bool          `json:"unchanged,omitempty"`
	Historical       bool          `json:"historical,omitempty"`
}

type SnapshotListResponse struct {
	Items []SnapshotResponse `json:"items"`
}

type ChainReportResponse struct {
	Checked        int    `json:"checked"`
	Intact         bool   `json:"intact"`
	BrokenSnapshot string `json:"broken_snapshot,omitempty"`
	BrokenSequence int    `json:"broken_sequence,omitempty"`
}

type SealResponse struct {
	SealID     string    `json:"seal_id"`
	Scope      ScopeDTO  `json:"scope"`
	SnapshotID string    `json:"snapshot_id"`
	Hash       string    `json:"hash"`
	Authority  string    `json:"authority"`
	SealedAt   time.Time `json:"sealed_at"`
}

type ScopeStatusResponse struct {
	Scope            ScopeDTO          `json:"scope"`
	Frozen           bool              `json:"frozen"`
	FrozenAt         *time.Time        `json:"frozen_at,omitempty"`
	Sealed           bool              `json:"sealed"`
	SnapshotCount    int               `json:"snapshot_count"`
	SectionsExpected int               `json:"sections_expected"`
	SectionsReported int               `json:"sections_reported"`
	Latest           *SnapshotResponse `json:"latest,omitempty"`
	Seal             *SealResponse     `json:"seal,omitempty"`
}
