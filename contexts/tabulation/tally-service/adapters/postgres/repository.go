package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	lockShare  = "SHARE"
	lockUpdate = "UPDATE"
)

// Repository persists the tally with gorm. Every write that depends on the
// scope barrier runs in a transaction holding the scope row: inserts take it
// FOR SHARE, freezing and chain appends take it FOR UPDATE.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the tally-service tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return r.logError("tally_repo_migrate_failed", err)
	}
	return nil
}

// withScope runs fn in a transaction with the scope row locked.
func (r *Repository) withScope(
	ctx context.Context,
	scope entities.Scope,
	strength string,
	fn func(tx *gorm.DB, state scopeModel) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := scopeModel{
			ScopeKey:   scope.Key(),
			ElectionID: scope.ElectionID,
			Region:     scope.Region,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_key"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return r.logError("tally_repo_seed_scope_failed", err, "scope", scope.Key())
		}
		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: strength})
		}
		var state scopeModel
		if err := query.Where("scope_key = ?", scope.Key()).First(&state).Error; err != nil {
			return r.logError("tally_repo_lock_scope_failed", err, "scope", scope.Key())
		}
		return fn(tx, state)
	})
}

// ensureOpen refuses writes to a frozen or sealed scope.
func ensureOpen(tx *gorm.DB, state scopeModel) error {
	sealed, err := hasSeal(tx, state.ScopeKey)
	if err != nil {
		return err
	}
	if sealed {
		return domainerrors.ErrAlreadyFinal
	}
	if state.Frozen {
		return domainerrors.ErrScopeFrozen
	}
	return nil
}

func hasSeal(tx *gorm.DB, scopeKey string) (bool, error) {
	var count int64
	if err := tx.Model(&sealModel{}).Where("scope_key = ?", scopeKey).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) SaveSlate(ctx context.Context, slate entities.Slate) error {
	return r.withScope(ctx, slate.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		if err := ensureOpen(tx, state); err != nil {
			return err
		}
		row := slateModelFromEntity(slate)
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_save_slate_failed", create.Error, "slate_id", slate.SlateID)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		return nil
	})
}

func (r *Repository) GetSlate(ctx context.Context, scope entities.Scope, slateID string) (entities.Slate, error) {
	return r.getSlate(r.db.WithContext(ctx), scope.Key(), slateID)
}

func (r *Repository) getSlate(tx *gorm.DB, scopeKey string, slateID string) (entities.Slate, error) {
	var row slateModel
	err := tx.Where("scope_key = ? AND slate_id = ?", scopeKey, strings.TrimSpace(slateID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Slate{}, domainerrors.ErrSlateNotFound
		}
		return entities.Slate{}, r.logError("tally_repo_get_slate_failed", err, "scope", scopeKey, "slate_id", slateID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSlates(ctx context.Context, scope entities.Scope) ([]entities.Slate, error) {
	var rows []slateModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("number ASC").
		Order("slate_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_slates_failed", err, "scope", scope.Key())
	}
	items := make([]entities.Slate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindSlateScopes(ctx context.Context, electionID string, slateID string) ([]entities.Scope, error) {
	var rows []slateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ? AND slate_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(slateID)).
		Order("scope_key ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_find_slate_scopes_failed", err, "election_id", electionID, "slate_id", slateID)
	}
	items := make([]entities.Scope, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Scope{ElectionID: row.ElectionID, Region: row.Region})
	}
	return items, nil
}

func (r *Repository) DisqualifySlate(
	ctx context.Context,
	scope entities.Scope,
	slateID string,
	template entities.Annulment,
	event ports.EventEnvelope,
) (entities.Slate, []entities.Annulment, error) {
	var (
		slate      entities.Slate
		annulments []entities.Annulment
	)
	err := r.withScope(ctx, scope, lockUpdate, func(tx *gorm.DB, _ scopeModel) error {
		sealed, err := hasSeal(tx, scope.Key())
		if err != nil {
			return err
		}
		if sealed {
			return domainerrors.ErrAlreadyFinal
		}
		current, err := r.getSlate(tx, scope.Key(), slateID)
		if err != nil {
			return err
		}
		if current.Disqualified {
			slate = current
			return nil
		}
		at := template.RecordedAt.UTC()
		current.Disqualified = true
		current.DisqualifiedAt = &at
		current.CaseRef = template.CaseRef
		if err := tx.Model(&slateModel{}).
			Where("scope_key = ? AND slate_id = ?", scope.Key(), current.SlateID).
			Updates(map[string]any{
				"disqualified":    true,
				"disqualified_at": at,
				"case_ref":        current.CaseRef,
			}).Error; err != nil {
			return r.logError("tally_repo_disqualify_slate_failed", err, "slate_id", current.SlateID)
		}

		var ballots []ballotModel
		if err := tx.
			Where("scope_key = ? AND slate_id = ? AND category = ?", scope.Key(), current.SlateID, string(entities.BallotCategoryValid)).
			Where("ballot_id NOT IN (?)", tx.Model(&annulmentModel{}).Select("ballot_id").Where("scope_key = ?", scope.Key())).
			Order("sequence ASC").
			Find(&ballots).Error; err != nil {
			return r.logError("tally_repo_list_slate_ballots_failed", err, "slate_id", current.SlateID)
		}
		for _, ballot := range ballots {
			annulment := template
			annulment.AnnulmentID = uuid.NewString()
			annulment.BallotID = ballot.BallotID
			annulment.Scope = scope
			row := annulmentModelFromEntity(annulment)
			if err := tx.Create(&row).Error; err != nil {
				return r.logError("tally_repo_annul_slate_ballot_failed", err, "ballot_id", ballot.BallotID)
			}
			annulments = append(annulments, annulment)
		}
		if err := r.appendOutbox(tx, event); err != nil {
			return err
		}
		slate = current
		return nil
	})
	if err != nil {
		return entities.Slate{}, nil, err
	}
	return slate, annulments, nil
}

func (r *Repository) InsertBallot(ctx context.Context, ballot entities.Ballot) error {
	return r.withScope(ctx, ballot.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		if err := ensureOpen(tx, state); err != nil {
			return err
		}
		if ballot.Category == entities.BallotCategoryValid {
			slate, err := r.getSlate(tx, state.ScopeKey, ballot.SlateID)
			if err != nil {
				return err
			}
			if slate.Disqualified {
				return domainerrors.ErrIneligible
			}
		}
		row := ballotModelFromEntity(ballot)
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_insert_ballot_failed", create.Error, "ballot_id", ballot.BallotID)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrDuplicateBallot
		}
		return nil
	})
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).Where("ballot_id = ?", strings.TrimSpace(ballotID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, r.logError("tally_repo_get_ballot_failed", err, "ballot_id", ballotID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListBallots(ctx context.Context, scope entities.Scope) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("sequence ASC").
		Order("ballot_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_ballots_failed", err, "scope", scope.Key())
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendAnnulment(ctx context.Context, annulment entities.Annulment) error {
	return r.withScope(ctx, annulment.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		sealed, err := hasSeal(tx, state.ScopeKey)
		if err != nil {
			return err
		}
		if sealed {
			return domainerrors.ErrAlreadyFinal
		}
		row := annulmentModelFromEntity(annulment)
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_append_annulment_failed", create.Error, "ballot_id", annulment.BallotID)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrAlreadyAnnulled
		}
		return nil
	})
}

func (r *Repository) ListAnnulments(ctx context.Context, scope entities.Scope) ([]entities.Annulment, error) {
	var rows []annulmentModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("recorded_at ASC").
		Order("annulment_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_annulments_failed", err, "scope", scope.Key())
	}
	items := make([]entities.Annulment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendReinstatement(ctx context.Context, reinstatement entities.Reinstatement) error {
	return r.withScope(ctx, reinstatement.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		sealed, err := hasSeal(tx, state.ScopeKey)
		if err != nil {
			return err
		}
		if sealed {
			return domainerrors.ErrAlreadyFinal
		}
		var annulment annulmentModel
		err = tx.Where("ballot_id = ? AND annulment_id = ?", reinstatement.BallotID, reinstatement.AnnulmentID).
			First(&annulment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotAnnulled
			}
			return r.logError("tally_repo_get_annulment_failed", err, "ballot_id", reinstatement.BallotID)
		}
		var ballot ballotModel
		if err := tx.Where("ballot_id = ?", reinstatement.BallotID).First(&ballot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrBallotNotFound
			}
			return r.logError("tally_repo_get_ballot_failed", err, "ballot_id", reinstatement.BallotID)
		}
		if ballot.Category == string(entities.BallotCategoryValid) {
			slate, err := r.getSlate(tx, state.ScopeKey, ballot.SlateID)
			if err != nil && !errors.Is(err, domainerrors.ErrSlateNotFound) {
				return err
			}
			if err == nil && slate.Disqualified {
				return domainerrors.ErrIneligible
			}
		}

		row := reinstatementModel{
			ReinstatementID: reinstatement.ReinstatementID,
			AnnulmentID:     reinstatement.AnnulmentID,
			BallotID:        reinstatement.BallotID,
			ScopeKey:        state.ScopeKey,
			ElectionID:      reinstatement.Scope.ElectionID,
			Region:          reinstatement.Scope.Region,
			Reason:          reinstatement.Reason,
			Authority:       reinstatement.Authority,
			RecordedAt:      reinstatement.RecordedAt.UTC(),
		}
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_append_reinstatement_failed", create.Error, "ballot_id", reinstatement.BallotID)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrAlreadyReinstated
		}
		return nil
	})
}

func (r *Repository) ListReinstatements(ctx context.Context, scope entities.Scope) ([]entities.Reinstatement, error) {
	var rows []reinstatementModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("recorded_at ASC").
		Order("reinstatement_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_reinstatements_failed", err, "scope", scope.Key())
	}
	items := make([]entities.Reinstatement, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveSection(ctx context.Context, section entities.Section) error {
	return r.withScope(ctx, section.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		if err := ensureOpen(tx, state); err != nil {
			return err
		}
		row := sectionModel{
			ScopeKey:     section.Scope.Key(),
			SectionID:    section.SectionID,
			ElectionID:   section.Scope.ElectionID,
			Region:       section.Scope.Region,
			Name:         section.Name,
			RegisteredAt: section.RegisteredAt.UTC(),
		}
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_save_section_failed", create.Error, "section_id", section.SectionID)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		return nil
	})
}

func (r *Repository) GetSection(ctx context.Context, scope entities.Scope, sectionID string) (entities.Section, error) {
	var row sectionModel
	err := r.db.WithContext(ctx).
		Where("scope_key = ? AND section_id = ?", scope.Key(), strings.TrimSpace(sectionID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Section{}, domainerrors.ErrSectionNotFound
		}
		return entities.Section{}, r.logError("tally_repo_get_section_failed", err, "section_id", sectionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSections(ctx context.Context, scope entities.Scope) ([]entities.Section, error) {
	var rows []sectionModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("section_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_sections_failed", err, "scope", scope.Key())
	}
	items := make([]entities.Section, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendSectionReport(ctx context.Context, report entities.SectionReport) (entities.SectionReport, error) {
	err := r.withScope(ctx, report.Scope, lockShare, func(tx *gorm.DB, state scopeModel) error {
		if err := ensureOpen(tx, state); err != nil {
			return err
		}
		var revision int
		if err := tx.Model(&sectionReportModel{}).
			Where("scope_key = ? AND section_id = ?", state.ScopeKey, report.SectionID).
			Select("COALESCE(MAX(revision), 0)").
			Scan(&revision).Error; err != nil {
			return r.logError("tally_repo_report_revision_failed", err, "section_id", report.SectionID)
		}
		report.Revision = revision + 1
		counts, err := json.Marshal(report.SlateCounts)
		if err != nil {
			return err
		}
		row := sectionReportModel{
			ReportID:    report.ReportID,
			ScopeKey:    state.ScopeKey,
			SectionID:   report.SectionID,
			Revision:    report.Revision,
			ElectionID:  report.Scope.ElectionID,
			Region:      report.Scope.Region,
			SlateCounts: counts,
			Blank:       report.Blank,
			Null:        report.Null,
			Complete:    report.Complete,
			ReportedBy:  report.ReportedBy,
			ReportedAt:  report.ReportedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("tally_repo_append_report_failed", err, "section_id", report.SectionID)
		}
		return nil
	})
	if err != nil {
		return entities.SectionReport{}, err
	}
	return report, nil
}

func (r *Repository) ListSectionReports(ctx context.Context, scope entities.Scope) ([]entities.SectionReport, error) {
	var rows []sectionReportModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("section_id ASC").
		Order("revision ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_reports_failed", err, "scope", scope.Key())
	}
	items := make([]entities.SectionReport, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("tally_repo_decode_report_failed", err, "report_id", row.ReportID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) GetScopeState(ctx context.Context, scope entities.Scope) (entities.ScopeState, error) {
	state := entities.ScopeState{Scope: scope}
	var row scopeModel
	err := r.db.WithContext(ctx).Where("scope_key = ?", scope.Key()).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.ScopeState{}, r.logError("tally_repo_get_scope_failed", err, "scope", scope.Key())
	}
	if err == nil {
		state.Frozen = row.Frozen
		state.FrozenAt = normalizeOptionalTime(row.FrozenAt)
	}
	sealed, err := hasSeal(r.db.WithContext(ctx), scope.Key())
	if err != nil {
		return entities.ScopeState{}, r.logError("tally_repo_get_seal_failed", err, "scope", scope.Key())
	}
	state.Sealed = sealed
	return state, nil
}

// FreezeScope waits for every in-flight insert holding the scope row, then
// raises the barrier.
func (r *Repository) FreezeScope(ctx context.Context, scope entities.Scope, at time.Time) (entities.ScopeState, error) {
	var state entities.ScopeState
	err := r.withScope(ctx, scope, lockUpdate, func(tx *gorm.DB, row scopeModel) error {
		if !row.Frozen {
			frozenAt := at.UTC()
			if err := tx.Model(&scopeModel{}).
				Where("scope_key = ?", row.ScopeKey).
				Updates(map[string]any{"frozen": true, "frozen_at": frozenAt}).Error; err != nil {
				return r.logError("tally_repo_freeze_scope_failed", err, "scope", row.ScopeKey)
			}
			row.Frozen = true
			row.FrozenAt = &frozenAt
		}
		sealed, err := hasSeal(tx, row.ScopeKey)
		if err != nil {
			return err
		}
		state = entities.ScopeState{
			Scope:    scope,
			Frozen:   row.Frozen,
			FrozenAt: normalizeOptionalTime(row.FrozenAt),
			Sealed:   sealed,
		}
		return nil
	})
	return state, err
}

func (r *Repository) AppendSnapshot(ctx context.Context, snapshot entities.TallySnapshot, event ports.EventEnvelope) error {
	return r.withScope(ctx, snapshot.Scope, lockUpdate, func(tx *gorm.DB, state scopeModel) error {
		sealed, err := hasSeal(tx, state.ScopeKey)
		if err != nil {
			return err
		}
		if sealed {
			return domainerrors.ErrAlreadyFinal
		}
		previousHash := ""
		sequence := 0
		var latest snapshotModel
		err = tx.Where("scope_key = ?", state.ScopeKey).Order("sequence DESC").First(&latest).Error
		switch {
		case err == nil:
			previousHash = latest.Hash
			sequence = latest.Sequence
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return r.logError("tally_repo_latest_snapshot_failed", err, "scope", state.ScopeKey)
		}
		if snapshot.PreviousHash != previousHash || snapshot.Sequence != sequence+1 {
			return domainerrors.ErrChainConflict
		}
		row, err := snapshotModelFromEntity(snapshot)
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrChainConflict
			}
			return r.logError("tally_repo_append_snapshot_failed", err, "snapshot_id", snapshot.SnapshotID)
		}
		return r.appendOutbox(tx, event)
	})
}

func (r *Repository) GetSnapshot(ctx context.Context, snapshotID string) (entities.TallySnapshot, error) {
	var row snapshotModel
	err := r.db.WithContext(ctx).Where("snapshot_id = ?", strings.TrimSpace(snapshotID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TallySnapshot{}, domainerrors.ErrSnapshotNotFound
		}
		return entities.TallySnapshot{}, r.logError("tally_repo_get_snapshot_failed", err, "snapshot_id", snapshotID)
	}
	return row.toEntity()
}

func (r *Repository) LatestSnapshot(ctx context.Context, scope entities.Scope) (entities.TallySnapshot, bool, error) {
	var row snapshotModel
	err := r.db.WithContext(ctx).Where("scope_key = ?", scope.Key()).Order("sequence DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TallySnapshot{}, false, nil
		}
		return entities.TallySnapshot{}, false, r.logError("tally_repo_latest_snapshot_failed", err, "scope", scope.Key())
	}
	snapshot, err := row.toEntity()
	if err != nil {
		return entities.TallySnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (r *Repository) ListSnapshots(ctx context.Context, scope entities.Scope) ([]entities.TallySnapshot, error) {
	var rows []snapshotModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", scope.Key()).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_snapshots_failed", err, "scope", scope.Key())
	}
	items := make([]entities.TallySnapshot, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("tally_repo_decode_snapshot_failed", err, "snapshot_id", row.SnapshotID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) SaveSeal(ctx context.Context, seal entities.Seal, event ports.EventEnvelope) error {
	return r.withScope(ctx, seal.Scope, lockUpdate, func(tx *gorm.DB, state scopeModel) error {
		row := sealModel{
			ScopeKey:   state.ScopeKey,
			SealID:     seal.SealID,
			ElectionID: seal.Scope.ElectionID,
			Region:     seal.Scope.Region,
			SnapshotID: seal.SnapshotID,
			Hash:       seal.Hash,
			Authority:  seal.Authority,
			SealedAt:   seal.SealedAt.UTC(),
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_key"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return r.logError("tally_repo_save_seal_failed", create.Error, "scope", state.ScopeKey)
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrAlreadyFinal
		}
		return r.appendOutbox(tx, event)
	})
}

func (r *Repository) GetSeal(ctx context.Context, scope entities.Scope) (entities.Seal, bool, error) {
	var row sealModel
	err := r.db.WithContext(ctx).Where("scope_key = ?", scope.Key()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Seal{}, false, nil
		}
		return entities.Seal{}, false, r.logError("tally_repo_get_seal_failed", err, "scope", scope.Key())
	}
	return row.toEntity(), true, nil
}

func (r *Repository) RecordRejection(ctx context.Context, entry entities.AuditEntry) error {
	row := auditModel{
		EntryID:    entry.EntryID,
		Operation:  entry.Operation,
		ScopeKey:   entry.ScopeKey,
		ActorID:    entry.ActorID,
		Reason:     entry.Reason,
		OccurredAt: entry.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("tally_repo_record_rejection_failed", err, "operation", entry.Operation)
	}
	return nil
}

func (r *Repository) ListAudit(ctx context.Context, scopeKey string) ([]entities.AuditEntry, error) {
	var rows []auditModel
	if err := r.db.WithContext(ctx).
		Where("scope_key = ?", strings.TrimSpace(scopeKey)).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_audit_failed", err, "scope", scopeKey)
	}
	items := make([]entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.AuditEntry{
			EntryID:    row.EntryID,
			Operation:  row.Operation,
			ScopeKey:   row.ScopeKey,
			ActorID:    row.ActorID,
			Reason:     row.Reason,
			OccurredAt: row.OccurredAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("tally_repo_reserve_event_failed", create.Error, "event_id", row.EventID)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("tally_repo_reserve_event_load_existing_failed", err, "event_id", row.EventID)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) ReleaseEvent(ctx context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&eventDedupModel{}).Error; err != nil {
		return r.logError("tally_repo_release_event_failed", err, "event_id", eventID)
	}
	return nil
}

// appendOutbox writes the event inside the caller's transaction, numbered
// within its partition.
func (r *Repository) appendOutbox(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("tally_repo_append_outbox_marshal_failed", err, "event_id", envelope.EventID)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	var count int64
	if err := tx.Model(&outboxModel{}).Where("partition_key = ?", row.PartitionKey).Count(&count).Error; err != nil {
		return r.logError("tally_repo_append_outbox_count_failed", err, "partition_key", row.PartitionKey)
	}
	row.Position = count + 1

	create := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("tally_repo_append_outbox_insert_failed", create.Error, "outbox_id", row.OutboxID)
	}
	if create.RowsAffected > 0 {
		return nil
	}
	var existing outboxModel
	if err := tx.Select("payload").Where("outbox_id = ?", row.OutboxID).First(&existing).Error; err != nil {
		return r.logError("tally_repo_append_outbox_load_existing_failed", err, "outbox_id", row.OutboxID)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("position ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("tally_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("tally_repo_mark_outbox_published_failed", result.Error, "outbox_id", outboxID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "tabulation/tally-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ ports.SlateRegistry    = (*Repository)(nil)
	_ ports.BallotStore      = (*Repository)(nil)
	_ ports.SectionStore     = (*Repository)(nil)
	_ ports.ScopeStore       = (*Repository)(nil)
	_ ports.SnapshotStore    = (*Repository)(nil)
	_ ports.SealStore        = (*Repository)(nil)
	_ ports.AuditTrail       = (*Repository)(nil)
	_ ports.EventDedupStore  = (*Repository)(nil)
	_ ports.OutboxRepository = (*Repository)(nil)
)
