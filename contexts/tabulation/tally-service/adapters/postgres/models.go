package postgresadapter

import (
	"encoding/json"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
)

type scopeModel struct {
	ScopeKey   string     `gorm:"column:scope_key;primaryKey"`
	ElectionID string     `gorm:"column:election_id;index"`
	Region     string     `gorm:"column:region"`
	Frozen     bool       `gorm:"column:frozen"`
	FrozenAt   *time.Time `gorm:"column:frozen_at"`
}

func (scopeModel) TableName() string {
	return "tabulation_scopes"
}

type slateModel struct {
	ScopeKey       string     `gorm:"column:scope_key;primaryKey"`
	SlateID        string     `gorm:"column:slate_id;primaryKey"`
	ElectionID     string     `gorm:"column:election_id;index"`
	Region         string     `gorm:"column:region"`
	Number         int        `gorm:"column:number"`
	Name           string     `gorm:"column:name"`
	Disqualified   bool       `gorm:"column:disqualified"`
	DisqualifiedAt *time.Time `gorm:"column:disqualified_at"`
	CaseRef        string     `gorm:"column:case_ref"`
}

func (slateModel) TableName() string {
	return "tabulation_slates"
}

func slateModelFromEntity(item entities.Slate) slateModel {
	return slateModel{
		ScopeKey:       item.Scope.Key(),
		SlateID:        item.SlateID,
		ElectionID:     item.Scope.ElectionID,
		Region:         item.Scope.Region,
		Number:         item.Number,
		Name:           item.Name,
		Disqualified:   item.Disqualified,
		DisqualifiedAt: normalizeOptionalTime(item.DisqualifiedAt),
		CaseRef:        item.CaseRef,
	}
}

func (m slateModel) toEntity() entities.Slate {
	return entities.Slate{
		Scope:          entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		SlateID:        m.SlateID,
		Number:         m.Number,
		Name:           m.Name,
		Disqualified:   m.Disqualified,
		DisqualifiedAt: normalizeOptionalTime(m.DisqualifiedAt),
		CaseRef:        m.CaseRef,
	}
}

type sectionModel struct {
	ScopeKey     string    `gorm:"column:scope_key;primaryKey"`
	SectionID    string    `gorm:"column:section_id;primaryKey"`
	ElectionID   string    `gorm:"column:election_id"`
	Region       string    `gorm:"column:region"`
	Name         string    `gorm:"column:name"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (sectionModel) TableName() string {
	return "tabulation_sections"
}

func (m sectionModel) toEntity() entities.Section {
	return entities.Section{
		Scope:        entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		SectionID:    m.SectionID,
		Name:         m.Name,
		RegisteredAt: m.RegisteredAt.UTC(),
	}
}

type sectionReportModel struct {
	ReportID    string    `gorm:"column:report_id;primaryKey"`
	ScopeKey    string    `gorm:"column:scope_key;uniqueIndex:idx_tabulation_report_revision,priority:1"`
	SectionID   string    `gorm:"column:section_id;uniqueIndex:idx_tabulation_report_revision,priority:2"`
	Revision    int       `gorm:"column:revision;uniqueIndex:idx_tabulation_report_revision,priority:3"`
	ElectionID  string    `gorm:"column:election_id"`
	Region      string    `gorm:"column:region"`
	SlateCounts []byte    `gorm:"column:slate_counts"`
	Blank       int       `gorm:"column:blank_votes"`
	Null        int       `gorm:"column:null_votes"`
	Complete    bool      `gorm:"column:complete"`
	ReportedBy  string    `gorm:"column:reported_by"`
	ReportedAt  time.Time `gorm:"column:reported_at"`
}

func (sectionReportModel) TableName() string {
	return "tabulation_section_reports"
}

func (m sectionReportModel) toEntity() (entities.SectionReport, error) {
	counts := map[string]int{}
	if len(m.SlateCounts) > 0 {
		if err := json.Unmarshal(m.SlateCounts, &counts); err != nil {
			return entities.SectionReport{}, err
		}
	}
	return entities.SectionReport{
		ReportID:    m.ReportID,
		Scope:       entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		SectionID:   m.SectionID,
		Revision:    m.Revision,
		SlateCounts: counts,
		Blank:       m.Blank,
		Null:        m.Null,
		Complete:    m.Complete,
		ReportedBy:  m.ReportedBy,
		ReportedAt:  m.ReportedAt.UTC(),
	}, nil
}

type ballotModel struct {
	BallotID   string    `gorm:"column:ballot_id;primaryKey"`
	ScopeKey   string    `gorm:"column:scope_key;uniqueIndex:idx_tabulation_ballot_hash,priority:1"`
	SectionID  string    `gorm:"column:section_id;uniqueIndex:idx_tabulation_ballot_hash,priority:2"`
	Hash       string    `gorm:"column:hash;uniqueIndex:idx_tabulation_ballot_hash,priority:3"`
	ElectionID string    `gorm:"column:election_id"`
	Region     string    `gorm:"column:region"`
	SlateID    string    `gorm:"column:slate_id;index"`
	Category   string    `gorm:"column:category"`
	CastAt     time.Time `gorm:"column:cast_at"`
	AcceptedAt time.Time `gorm:"column:accepted_at"`
	Sequence   int64     `gorm:"column:sequence"`
}

func (ballotModel) TableName() string {
	return "tabulation_ballots"
}

func ballotModelFromEntity(item entities.Ballot) ballotModel {
	return ballotModel{
		BallotID:   item.BallotID,
		ScopeKey:   item.Scope.Key(),
		SectionID:  item.SectionID,
		Hash:       item.Hash,
		ElectionID: item.Scope.ElectionID,
		Region:     item.Scope.Region,
		SlateID:    item.SlateID,
		Category:   string(item.Category),
		CastAt:     item.CastAt.UTC(),
		AcceptedAt: item.AcceptedAt.UTC(),
		Sequence:   item.Sequence,
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:   m.BallotID,
		Scope:      entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		SectionID:  m.SectionID,
		SlateID:    m.SlateID,
		Category:   entities.BallotCategory(m.Category),
		Hash:       m.Hash,
		CastAt:     m.CastAt.UTC(),
		AcceptedAt: m.AcceptedAt.UTC(),
		Sequence:   m.Sequence,
	}
}

type annulmentModel struct {
	AnnulmentID string    `gorm:"column:annulment_id;primaryKey"`
	BallotID    string    `gorm:"column:ballot_id;uniqueIndex"`
	ScopeKey    string    `gorm:"column:scope_key;index"`
	ElectionID  string    `gorm:"column:election_id"`
	Region      string    `gorm:"column:region"`
	Reason      string    `gorm:"column:reason"`
	Authority   string    `gorm:"column:authority"`
	CaseRef     string    `gorm:"column:case_ref"`
	RecordedAt  time.Time `gorm:"column:recorded_at"`
}

func (annulmentModel) TableName() string {
	return "tabulation_annulments"
}

func annulmentModelFromEntity(item entities.Annulment) annulmentModel {
	return annulmentModel{
		AnnulmentID: item.AnnulmentID,
		BallotID:    item.BallotID,
		ScopeKey:    item.Scope.Key(),
		ElectionID:  item.Scope.ElectionID,
		Region:      item.Scope.Region,
		Reason:      item.Reason,
		Authority:   item.Authority,
		CaseRef:     item.CaseRef,
		RecordedAt:  item.RecordedAt.UTC(),
	}
}

func (m annulmentModel) toEntity() entities.Annulment {
	return entities.Annulment{
		AnnulmentID: m.AnnulmentID,
		BallotID:    m.BallotID,
		Scope:       entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		Reason:      m.Reason,
		Authority:   m.Authority,
		CaseRef:     m.CaseRef,
		RecordedAt:  m.RecordedAt.UTC(),
	}
}

type reinstatementModel struct {
	ReinstatementID string    `gorm:"column:reinstatement_id;primaryKey"`
	AnnulmentID     string    `gorm:"column:annulment_id;uniqueIndex"`
	BallotID        string    `gorm:"column:ballot_id;index"`
	ScopeKey        string    `gorm:"column:scope_key;index"`
	ElectionID      string    `gorm:"column:election_id"`
	Region          string    `gorm:"column:region"`
	Reason          string    `gorm:"column:reason"`
	Authority       string    `gorm:"column:authority"`
	RecordedAt      time.Time `gorm:"column:recorded_at"`
}

func (reinstatementModel) TableName() string {
	return "tabulation_reinstatements"
}

func (m reinstatementModel) toEntity() entities.Reinstatement {
	return entities.Reinstatement{
		ReinstatementID: m.ReinstatementID,
		AnnulmentID:     m.AnnulmentID,
		BallotID:        m.BallotID,
		Scope:           entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		Reason:          m.Reason,
		Authority:       m.Authority,
		RecordedAt:      m.RecordedAt.UTC(),
	}
}

type snapshotModel struct {
	SnapshotID   string    `gorm:"column:snapshot_id;primaryKey"`
	ScopeKey     string    `gorm:"column:scope_key;uniqueIndex:idx_tabulation_snapshot_sequence,priority:1"`
	Sequence     int       `gorm:"column:sequence;uniqueIndex:idx_tabulation_snapshot_sequence,priority:2"`
	ElectionID   string    `gorm:"column:election_id"`
	Region       string    `gorm:"column:region"`
	AsOf         time.Time `gorm:"column:as_of"`
	Final        bool      `gorm:"column:final"`
	Totals       []byte    `gorm:"column:totals"`
	PreviousHash string    `gorm:"column:previous_hash"`
	Hash         string    `gorm:"column:hash"`
	GeneratedAt  time.Time `gorm:"column:generated_at"`
}

func (snapshotModel) TableName() string {
	return "tabulation_snapshots"
}

func snapshotModelFromEntity(item entities.TallySnapshot) (snapshotModel, error) {
	totals, err := json.Marshal(item.Totals)
	if err != nil {
		return snapshotModel{}, err
	}
	return snapshotModel{
		SnapshotID:   item.SnapshotID,
		ScopeKey:     item.Scope.Key(),
		Sequence:     item.Sequence,
		ElectionID:   item.Scope.ElectionID,
		Region:       item.Scope.Region,
		AsOf:         item.AsOf.UTC(),
		Final:        item.Final,
		Totals:       totals,
		PreviousHash: item.PreviousHash,
		Hash:         item.Hash,
		GeneratedAt:  item.GeneratedAt.UTC(),
	}, nil
}

func (m snapshotModel) toEntity() (entities.TallySnapshot, error) {
	var totals entities.Totals
	if err := json.Unmarshal(m.Totals, &totals); err != nil {
		return entities.TallySnapshot{}, err
	}
	return entities.TallySnapshot{
		SnapshotID:   m.SnapshotID,
		Scope:        entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		Sequence:     m.Sequence,
		AsOf:         m.AsOf.UTC(),
		Final:        m.Final,
		Totals:       totals,
		PreviousHash: m.PreviousHash,
		Hash:         m.Hash,
		GeneratedAt:  m.GeneratedAt.UTC(),
	}, nil
}

type sealModel struct {
	ScopeKey   string    `gorm:"column:scope_key;primaryKey"`
	SealID     string    `gorm:"column:seal_id;uniqueIndex"`
	ElectionID string    `gorm:"column:election_id"`
	Region     string    `gorm:"column:region"`
	SnapshotID string    `gorm:"column:snapshot_id"`
	Hash       string    `gorm:"column:hash"`
	Authority  string    `gorm:"column:authority"`
	SealedAt   time.Time `gorm:"column:sealed_at"`
}

func (sealModel) TableName() string {
	return "tabulation_seals"
}

func (m sealModel) toEntity() entities.Seal {
	return entities.Seal{
		SealID:     m.SealID,
		Scope:      entities.Scope{ElectionID: m.ElectionID, Region: m.Region},
		SnapshotID: m.SnapshotID,
		Hash:       m.Hash,
		Authority:  m.Authority,
		SealedAt:   m.SealedAt.UTC(),
	}
}

type auditModel struct {
	EntryID    string    `gorm:"column:entry_id;primaryKey"`
	Operation  string    `gorm:"column:operation"`
	ScopeKey   string    `gorm:"column:scope_key;index"`
	ActorID    string    `gorm:"column:actor_id"`
	Reason     string    `gorm:"column:reason"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (auditModel) TableName() string {
	return "tabulation_audit"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at;index"`
}

func (eventDedupModel) TableName() string {
	return "tabulation_event_dedup"
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
	return "tabulation_outbox"
}

func allModels() []any {
	return []any{
		&scopeModel{},
		&slateModel{},
		&sectionModel{},
		&sectionReportModel{},
		&ballotModel{},
		&annulmentModel{},
		&reinstatementModel{},
		&snapshotModel{},
		&sealModel{},
		&auditModel{},
		&eventDedupModel{},
		&outboxModel{},
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}
