package postgresadapter

import (
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
)

type caseModel struct {
	CaseID           string     `gorm:"column:case_id;primaryKey"`
	ProtocolNumber   string     `gorm:"column:protocol_number;uniqueIndex"`
	Kind             string     `gorm:"column:kind"`
	Instance         string     `gorm:"column:instance"`
	Tier             int        `gorm:"column:tier"`
	Status           string     `gorm:"column:status;index"`
	SubjectKind      string     `gorm:"column:subject_kind"`
	SubjectID        string     `gorm:"column:subject_id"`
	ElectionID       string     `gorm:"column:election_id;index"`
	SlateID          string     `gorm:"column:slate_id"`
	FilerID          string     `gorm:"column:filer_id"`
	Anonymous        bool       `gorm:"column:anonymous"`
	RelatorID        string     `gorm:"column:relator_id"`
	OriginCaseID     string     `gorm:"column:origin_case_id"`
	OriginJudgmentID string     `gorm:"column:origin_judgment_id"`
	AppealCaseID     string     `gorm:"column:appeal_case_id"`
	Disposition      string     `gorm:"column:disposition"`
	Sanction         string     `gorm:"column:sanction"`
	FiledAt          time.Time  `gorm:"column:filed_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
	ArchivedAt       *time.Time `gorm:"column:archived_at"`
}

func (caseModel) TableName() string {
	return "adjudication_cases"
}

func caseModelFromEntity(item entities.Case) caseModel {
	return caseModel{
		CaseID:           item.CaseID,
		ProtocolNumber:   item.ProtocolNumber,
		Kind:             string(item.Kind),
		Instance:         string(item.Instance),
		Tier:             item.Tier,
		Status:           string(item.Status),
		SubjectKind:      string(item.Target.Kind),
		SubjectID:        item.Target.ID,
		ElectionID:       item.Target.ElectionID,
		SlateID:          item.Target.SlateID,
		FilerID:          item.FilerID,
		Anonymous:        item.Anonymous,
		RelatorID:        item.RelatorID,
		OriginCaseID:     item.OriginCaseID,
		OriginJudgmentID: item.OriginJudgmentID,
		AppealCaseID:     item.AppealCaseID,
		Disposition:      string(item.Disposition),
		Sanction:         string(item.Sanction),
		FiledAt:          item.FiledAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
		ArchivedAt:       normalizeOptionalTime(item.ArchivedAt),
	}
}

func (m caseModel) toEntity() entities.Case {
	return entities.Case{
		CaseID:         m.CaseID,
		ProtocolNumber: m.ProtocolNumber,
		Kind:           entities.CaseKind(m.Kind),
		Instance:       entities.Instance(m.Instance),
		Tier:           m.Tier,
		Status:         entities.CaseStatus(m.Status),
		Target: entities.Subject{
			Kind:       entities.SubjectKind(m.SubjectKind),
			ID:         m.SubjectID,
			ElectionID: m.ElectionID,
			SlateID:    m.SlateID,
		},
		FilerID:          m.FilerID,
		Anonymous:        m.Anonymous,
		RelatorID:        m.RelatorID,
		OriginCaseID:     m.OriginCaseID,
		OriginJudgmentID: m.OriginJudgmentID,
		AppealCaseID:     m.AppealCaseID,
		Disposition:      entities.Outcome(m.Disposition),
		Sanction:         entities.Sanction(m.Sanction),
		FiledAt:          m.FiledAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
		ArchivedAt:       normalizeOptionalTime(m.ArchivedAt),
	}
}

type statusChangeModel struct {
	ChangeID   string    `gorm:"column:change_id;primaryKey"`
	CaseID     string    `gorm:"column:case_id;uniqueIndex:idx_status_change_position"`
	Position   int       `gorm:"column:position;uniqueIndex:idx_status_change_position"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status"`
	ActorID    string    `gorm:"column:actor_id"`
	TriggerRef string    `gorm:"column:trigger_ref"`
	Note       string    `gorm:"column:note"`
	ChangedAt  time.Time `gorm:"column:changed_at"`
}

func (statusChangeModel) TableName() string {
	return "adjudication_status_changes"
}

func (m statusChangeModel) toEntity() entities.StatusChange {
	return entities.StatusChange{
		ChangeID:   m.ChangeID,
		CaseID:     m.CaseID,
		FromStatus: entities.CaseStatus(m.FromStatus),
		ToStatus:   entities.CaseStatus(m.ToStatus),
		ActorID:    m.ActorID,
		TriggerRef: m.TriggerRef,
		Note:       m.Note,
		ChangedAt:  m.ChangedAt.UTC(),
	}
}

type deadlineWindowModel struct {
	WindowID     string    `gorm:"column:window_id;primaryKey"`
	CaseID       string    `gorm:"column:case_id;uniqueIndex:idx_window_sequence"`
	Kind         string    `gorm:"column:kind;uniqueIndex:idx_window_sequence"`
	Sequence     int       `gorm:"column:sequence;uniqueIndex:idx_window_sequence"`
	OpensAt      time.Time `gorm:"column:opens_at"`
	DueAt        time.Time `gorm:"column:due_at"`
	Days         int       `gorm:"column:days"`
	Mode         string    `gorm:"column:mode"`
	SupersedesID string    `gorm:"column:supersedes_id"`
	Reason       string    `gorm:"column:reason"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (deadlineWindowModel) TableName() string {
	return "adjudication_deadline_windows"
}

func (m deadlineWindowModel) toEntity() entities.DeadlineWindow {
	return entities.DeadlineWindow{
		WindowID:     m.WindowID,
		CaseID:       m.CaseID,
		Kind:         entities.SubmissionKind(m.Kind),
		Sequence:     m.Sequence,
		OpensAt:      m.OpensAt.UTC(),
		DueAt:        m.DueAt.UTC(),
		Days:         m.Days,
		Mode:         entities.CalendarMode(m.Mode),
		SupersedesID: m.SupersedesID,
		Reason:       m.Reason,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type submissionModel struct {
	SubmissionID string    `gorm:"column:submission_id;primaryKey"`
	CaseID       string    `gorm:"column:case_id;index"`
	Kind         string    `gorm:"column:kind"`
	PartyID      string    `gorm:"column:party_id"`
	Content      string    `gorm:"column:content"`
	FiledAt      time.Time `gorm:"column:filed_at"`
	WindowID     string    `gorm:"column:window_id"`
	DeadlineAt   time.Time `gorm:"column:deadline_at"`
	Timely       bool      `gorm:"column:timely"`
	RecordedAt   time.Time `gorm:"column:recorded_at"`
}

func (submissionModel) TableName() string {
	return "adjudication_submissions"
}

func (m submissionModel) toEntity() entities.Submission {
	return entities.Submission{
		SubmissionID: m.SubmissionID,
		CaseID:       m.CaseID,
		Kind:         entities.SubmissionKind(m.Kind),
		PartyID:      m.PartyID,
		Content:      m.Content,
		FiledAt:      m.FiledAt.UTC(),
		WindowID:     m.WindowID,
		DeadlineAt:   m.DeadlineAt.UTC(),
		Timely:       m.Timely,
		RecordedAt:   m.RecordedAt.UTC(),
	}
}

type rosterMemberRow struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	SlateID  string `json:"slate_id,omitempty"`
}

type judgmentModel struct {
	JudgmentID     string            `gorm:"column:judgment_id;primaryKey"`
	CaseID         string            `gorm:"column:case_id;uniqueIndex"`
	Instance       string            `gorm:"column:instance"`
	Tier           int               `gorm:"column:tier"`
	Roster         []rosterMemberRow `gorm:"column:roster;type:text;serializer:json"`
	PresidingID    string            `gorm:"column:presiding_id"`
	RelatorID      string            `gorm:"column:relator_id"`
	Status         string            `gorm:"column:status"`
	Outcome        string            `gorm:"column:outcome"`
	Decision       string            `gorm:"column:decision"`
	Reasoning      string            `gorm:"column:reasoning"`
	Sanction       string            `gorm:"column:sanction"`
	OpenedAt       time.Time         `gorm:"column:opened_at"`
	DecidedAt      *time.Time        `gorm:"column:decided_at"`
	PublishedAt    *time.Time        `gorm:"column:published_at"`
	AppealDeadline *time.Time        `gorm:"column:appeal_deadline"`

	OpinionRecommendation string     `gorm:"column:opinion_recommendation"`
	OpinionSummary        string     `gorm:"column:opinion_summary"`
	OpinionGrounds        string     `gorm:"column:opinion_grounds"`
	OpinionConclusion     string     `gorm:"column:opinion_conclusion"`
	OpinionRecordedAt     *time.Time `gorm:"column:opinion_recorded_at"`
}

func (judgmentModel) TableName() string {
	return "adjudication_judgments"
}

func judgmentModelFromEntity(item entities.Judgment) judgmentModel {
	roster := make([]rosterMemberRow, 0, len(item.Roster))
	for _, member := range item.Roster {
		roster = append(roster, rosterMemberRow{
			MemberID: member.MemberID,
			Role:     string(member.Role),
			SlateID:  member.SlateID,
		})
	}
	row := judgmentModel{
		JudgmentID:     item.JudgmentID,
		CaseID:         item.CaseID,
		Instance:       string(item.Instance),
		Tier:           item.Tier,
		Roster:         roster,
		PresidingID:    item.PresidingID,
		RelatorID:      item.RelatorID,
		Status:         string(item.Status),
		Outcome:        string(item.Outcome),
		Decision:       string(item.Decision),
		Reasoning:      item.Reasoning,
		Sanction:       string(item.Sanction),
		OpenedAt:       item.OpenedAt.UTC(),
		DecidedAt:      normalizeOptionalTime(item.DecidedAt),
		PublishedAt:    normalizeOptionalTime(item.PublishedAt),
		AppealDeadline: normalizeOptionalTime(item.AppealDeadline),
	}
	if item.Opinion != nil {
		recordedAt := item.Opinion.RecordedAt.UTC()
		row.OpinionRecommendation = string(item.Opinion.Recommendation)
		row.OpinionSummary = item.Opinion.Summary
		row.OpinionGrounds = item.Opinion.Grounds
		row.OpinionConclusion = item.Opinion.Conclusion
		row.OpinionRecordedAt = &recordedAt
	}
	return row
}

func (m judgmentModel) toEntity() entities.Judgment {
	roster := make([]entities.RosterMember, 0, len(m.Roster))
	for _, member := range m.Roster {
		roster = append(roster, entities.RosterMember{
			MemberID: member.MemberID,
			Role:     entities.MemberRole(member.Role),
			SlateID:  member.SlateID,
		})
	}
	judgment := entities.Judgment{
		JudgmentID:     m.JudgmentID,
		CaseID:         m.CaseID,
		Instance:       entities.Instance(m.Instance),
		Tier:           m.Tier,
		Roster:         roster,
		PresidingID:    m.PresidingID,
		RelatorID:      m.RelatorID,
		Status:         entities.JudgmentStatus(m.Status),
		Outcome:        entities.Outcome(m.Outcome),
		Decision:       entities.DecisionKind(m.Decision),
		Reasoning:      m.Reasoning,
		Sanction:       entities.Sanction(m.Sanction),
		OpenedAt:       m.OpenedAt.UTC(),
		DecidedAt:      normalizeOptionalTime(m.DecidedAt),
		PublishedAt:    normalizeOptionalTime(m.PublishedAt),
		AppealDeadline: normalizeOptionalTime(m.AppealDeadline),
	}
	if m.OpinionRecordedAt != nil {
		judgment.Opinion = &entities.RelatorOpinion{
			Recommendation: entities.Outcome(m.OpinionRecommendation),
			Summary:        m.OpinionSummary,
			Grounds:        m.OpinionGrounds,
			Conclusion:     m.OpinionConclusion,
			RecordedAt:     m.OpinionRecordedAt.UTC(),
		}
	}
	return judgment
}

type voteModel struct {
	VoteID     string    `gorm:"column:vote_id;primaryKey"`
	JudgmentID string    `gorm:"column:judgment_id;uniqueIndex:idx_vote_voter"`
	VoterID    string    `gorm:"column:voter_id;uniqueIndex:idx_vote_voter"`
	Value      string    `gorm:"column:value"`
	Winning    bool      `gorm:"column:winning"`
	CastAt     time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "adjudication_votes"
}

func (m voteModel) toEntity() entities.CommitteeVote {
	return entities.CommitteeVote{
		VoteID:     m.VoteID,
		JudgmentID: m.JudgmentID,
		VoterID:    m.VoterID,
		Value:      entities.VoteValue(m.Value),
		Winning:    m.Winning,
		CastAt:     m.CastAt.UTC(),
	}
}

type appealModel struct {
	AppealID         string    `gorm:"column:appeal_id;primaryKey"`
	OriginJudgmentID string    `gorm:"column:origin_judgment_id;uniqueIndex"`
	OriginCaseID     string    `gorm:"column:origin_case_id"`
	AppealCaseID     string    `gorm:"column:appeal_case_id"`
	AppellantID      string    `gorm:"column:appellant_id"`
	FiledAt          time.Time `gorm:"column:filed_at"`
	WindowDeadline   time.Time `gorm:"column:window_deadline"`
}

func (appealModel) TableName() string {
	return "adjudication_appeals"
}

func (m appealModel) toEntity() entities.Appeal {
	return entities.Appeal{
		AppealID:         m.AppealID,
		OriginJudgmentID: m.OriginJudgmentID,
		OriginCaseID:     m.OriginCaseID,
		AppealCaseID:     m.AppealCaseID,
		AppellantID:      m.AppellantID,
		FiledAt:          m.FiledAt.UTC(),
		WindowDeadline:   m.WindowDeadline.UTC(),
	}
}

type auditModel struct {
	EntryID    string    `gorm:"column:entry_id;primaryKey"`
	Operation  string    `gorm:"column:operation"`
	CaseID     string    `gorm:"column:case_id;index"`
	ActorID    string    `gorm:"column:actor_id"`
	Reason     string    `gorm:"column:reason"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (auditModel) TableName() string {
	return "adjudication_audit"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	CaseID      string    `gorm:"column:case_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "adjudication_idempotency"
}

type protocolSequenceModel struct {
	Scope string `gorm:"column:scope;primaryKey"`
	Value int64  `gorm:"column:value"`
}

func (protocolSequenceModel) TableName() string {
	return "adjudication_protocol_sequences"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key;index"`
	Position     int64      `gorm:"column:position"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "adjudication_outbox"
}

type partyStandingModel struct {
	ElectionID string `gorm:"column:election_id;primaryKey"`
	PartyID    string `gorm:"column:party_id;primaryKey"`
}

func (partyStandingModel) TableName() string {
	return "adjudication_party_standing"
}

type targetModel struct {
	SubjectKind string `gorm:"column:subject_kind;primaryKey"`
	SubjectID   string `gorm:"column:subject_id;primaryKey"`
	Active      bool   `gorm:"column:active"`
}

func (targetModel) TableName() string {
	return "adjudication_targets"
}

type rosterModel struct {
	ElectionID string `gorm:"column:election_id;primaryKey"`
	Tier       int    `gorm:"column:tier;primaryKey"`
	MemberID   string `gorm:"column:member_id;primaryKey"`
	Role       string `gorm:"column:role"`
	SlateID    string `gorm:"column:slate_id"`
}

func (rosterModel) TableName() string {
	return "adjudication_roster"
}

func allModels() []any {
	return []any{
		&caseModel{},
		&statusChangeModel{},
		&deadlineWindowModel{},
		&submissionModel{},
		&judgmentModel{},
		&voteModel{},
		&appealModel{},
		&auditModel{},
		&idempotencyModel{},
		&protocolSequenceModel{},
		&outboxModel{},
		&partyStandingModel{},
		&targetModel{},
		&rosterModel{},
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}
