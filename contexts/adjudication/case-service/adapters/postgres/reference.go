package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) SetStanding(ctx context.Context, electionID string, partyID string) error {
	row := partyStandingModel{ElectionID: strings.TrimSpace(electionID), PartyID: strings.TrimSpace(partyID)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return r.logError("case_repo_set_standing_failed", err, "election_id", row.ElectionID)
	}
	return nil
}

func (r *Repository) SetTarget(ctx context.Context, target entities.Subject, active bool) error {
	row := targetModel{SubjectKind: string(target.Kind), SubjectID: strings.TrimSpace(target.ID), Active: active}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_kind"}, {Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active"}),
	}).Create(&row).Error; err != nil {
		return r.logError("case_repo_set_target_failed", err, "subject_id", row.SubjectID)
	}
	return nil
}

// SetRoster replaces the committee seated for an election tier.
func (r *Repository) SetRoster(ctx context.Context, electionID string, tier int, members []entities.RosterMember) error {
	electionID = strings.TrimSpace(electionID)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("election_id = ? AND tier = ?", electionID, tier).Delete(&rosterModel{}).Error; err != nil {
			return r.logError("case_repo_clear_roster_failed", err, "election_id", electionID)
		}
		for _, member := range members {
			row := rosterModel{
				ElectionID: electionID,
				Tier:       tier,
				MemberID:   strings.TrimSpace(member.MemberID),
				Role:       string(member.Role),
				SlateID:    strings.TrimSpace(member.SlateID),
			}
			if err := tx.Create(&row).Error; err != nil {
				return r.logError("case_repo_set_roster_failed", err, "election_id", electionID, "member_id", row.MemberID)
			}
		}
		return nil
	})
}

func (r *Repository) HasStanding(ctx context.Context, partyID string, electionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partyStandingModel{}).
		Where("election_id = ? AND party_id = ?", strings.TrimSpace(electionID), strings.TrimSpace(partyID)).
		Count(&count).Error; err != nil {
		return false, r.logError("case_repo_has_standing_failed", err, "party_id", strings.TrimSpace(partyID))
	}
	return count > 0, nil
}

func (r *Repository) IsTargetActive(ctx context.Context, target entities.Subject) (bool, error) {
	var row targetModel
	err := r.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", string(target.Kind), strings.TrimSpace(target.ID)).
		First(&row).
		Error
	if err == nil {
		return row.Active, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, r.logError("case_repo_target_lookup_failed", err, "subject_id", strings.TrimSpace(target.ID))
	}
	switch target.Kind {
	case entities.SubjectKindSlate, entities.SubjectKindMember:
		return false, nil
	case entities.SubjectKindCase:
		if _, err := r.GetCase(ctx, target.ID); err != nil {
			if errors.Is(err, domainerrors.ErrCaseNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return true, nil
	}
}

func (r *Repository) Roster(ctx context.Context, electionID string, tier int) ([]entities.RosterMember, error) {
	var rows []rosterModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ? AND tier = ?", strings.TrimSpace(electionID), tier).
		Order("member_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_roster_failed", err, "election_id", strings.TrimSpace(electionID))
	}
	members := make([]entities.RosterMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, entities.RosterMember{
			MemberID: row.MemberID,
			Role:     entities.MemberRole(row.Role),
			SlateID:  row.SlateID,
		})
	}
	return members, nil
}

func (r *Repository) RecordRejection(ctx context.Context, entry entities.AuditEntry) error {
	row := auditModel{
		EntryID:    entry.EntryID,
		Operation:  entry.Operation,
		CaseID:     entry.CaseID,
		ActorID:    entry.ActorID,
		Reason:     entry.Reason,
		OccurredAt: entry.OccurredAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("case_repo_record_rejection_failed", err, "operation", entry.Operation)
	}
	return nil
}

func (r *Repository) ListAudit(ctx context.Context, caseID string) ([]entities.AuditEntry, error) {
	var rows []auditModel
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_audit_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	items := make([]entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.AuditEntry{
			EntryID:    row.EntryID,
			Operation:  row.Operation,
			CaseID:     row.CaseID,
			ActorID:    row.ActorID,
			Reason:     row.Reason,
			OccurredAt: row.OccurredAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("case_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("idempotency_key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("case_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		CaseID:      row.CaseID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		CaseID:      strings.TrimSpace(record.CaseID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("case_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("case_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.CaseID != row.CaseID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

var _ ports.PartyRegistry = (*Repository)(nil)
var _ ports.Committee = (*Repository)(nil)
var _ ports.AuditTrail = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
