package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository persists the case registry with gorm. Inside WithinCases it is
// rebound to the transaction handle and serves as the CaseTx.
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

// Migrate creates or updates the case-service tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return r.logError("case_repo_migrate_failed", err)
	}
	return nil
}

// WithinCases runs fn in one database transaction. On postgres the existing
// case rows are locked FOR UPDATE in id order.
func (r *Repository) WithinCases(ctx context.Context, caseIDs []string, fn func(tx ports.CaseTx) error) error {
	ids := uniqueSorted(caseIDs)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" && len(ids) > 0 {
			var locked []caseModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("case_id IN ?", ids).
				Order("case_id ASC").
				Find(&locked).Error; err != nil {
				return r.logError("case_repo_lock_cases_failed", err, "case_ids", strings.Join(ids, ","))
			}
		}
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

// NextProtocol increments the protocol counter in the caller's transaction,
// so a rolled back filing gives its number back.
func (r *Repository) NextProtocol(ctx context.Context, scope string) (int64, error) {
	scope = strings.TrimSpace(scope)
	row := protocolSequenceModel{Scope: scope, Value: 1}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value": gorm.Expr("adjudication_protocol_sequences.value + 1"),
		}),
	}).Create(&row).Error; err != nil {
		return 0, r.logError("case_repo_next_protocol_failed", err, "scope", scope)
	}
	var current protocolSequenceModel
	if err := r.db.WithContext(ctx).Where("scope = ?", scope).First(&current).Error; err != nil {
		return 0, r.logError("case_repo_load_protocol_failed", err, "scope", scope)
	}
	return current.Value, nil
}

func (r *Repository) GetCase(ctx context.Context, caseID string) (entities.Case, error) {
	var row caseModel
	err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Case{}, domainerrors.ErrCaseNotFound
		}
		return entities.Case{}, r.logError("case_repo_get_case_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveCase(ctx context.Context, item entities.Case) error {
	row := caseModelFromEntity(item)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "case_id"}},
		UpdateAll: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("case_repo_save_case_failed", create.Error, "case_id", row.CaseID)
	}
	return nil
}

func (r *Repository) ListCases(ctx context.Context, filter ports.CaseFilter) ([]entities.Case, error) {
	query := r.db.WithContext(ctx).Model(&caseModel{})
	if strings.TrimSpace(filter.ElectionID) != "" {
		query = query.Where("election_id = ?", strings.TrimSpace(filter.ElectionID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.OpenOnly {
		query = query.Where("status NOT IN ?", []string{
			string(entities.CaseStatusRejected),
			string(entities.CaseStatusClosed),
		})
	}
	if !filter.AppealLapsedBefore.IsZero() {
		lapsed := r.db.WithContext(ctx).
			Model(&judgmentModel{}).
			Select("case_id").
			Where("published_at IS NOT NULL AND appeal_deadline IS NOT NULL AND appeal_deadline < ?", filter.AppealLapsedBefore.UTC())
		query = query.Where("case_id IN (?)", lapsed)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []caseModel
	if err := query.Order("filed_at ASC").Order("protocol_number ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_cases_failed", err, "election_id", filter.ElectionID)
	}
	items := make([]entities.Case, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// AppendStatusChange stores the record at the next position of the case
// trail. Callers hold the case lock.
func (r *Repository) AppendStatusChange(ctx context.Context, change entities.StatusChange) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&statusChangeModel{}).
		Where("case_id = ?", change.CaseID).
		Count(&count).Error; err != nil {
		return r.logError("case_repo_count_status_changes_failed", err, "case_id", change.CaseID)
	}
	row := statusChangeModel{
		ChangeID:   change.ChangeID,
		CaseID:     change.CaseID,
		Position:   int(count) + 1,
		FromStatus: string(change.FromStatus),
		ToStatus:   string(change.ToStatus),
		ActorID:    change.ActorID,
		TriggerRef: change.TriggerRef,
		Note:       change.Note,
		ChangedAt:  change.ChangedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("case_repo_append_status_change_failed", err, "case_id", change.CaseID)
	}
	return nil
}

func (r *Repository) ListStatusChanges(ctx context.Context, caseID string) ([]entities.StatusChange, error) {
	var rows []statusChangeModel
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_status_changes_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	items := make([]entities.StatusChange, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendDeadlineWindow(ctx context.Context, window entities.DeadlineWindow) error {
	row := deadlineWindowModel{
		WindowID:     window.WindowID,
		CaseID:       window.CaseID,
		Kind:         string(window.Kind),
		Sequence:     window.Sequence,
		OpensAt:      window.OpensAt.UTC(),
		DueAt:        window.DueAt.UTC(),
		Days:         window.Days,
		Mode:         string(window.Mode),
		SupersedesID: window.SupersedesID,
		Reason:       window.Reason,
		CreatedAt:    window.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("case_repo_append_window_failed", err, "case_id", window.CaseID)
	}
	return nil
}

func (r *Repository) CurrentDeadlineWindow(
	ctx context.Context,
	caseID string,
	kind entities.SubmissionKind,
) (entities.DeadlineWindow, bool, error) {
	var row deadlineWindowModel
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND kind = ?", strings.TrimSpace(caseID), string(kind)).
		Order("sequence DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DeadlineWindow{}, false, nil
		}
		return entities.DeadlineWindow{}, false, r.logError("case_repo_current_window_failed", err,
			"case_id", strings.TrimSpace(caseID),
			"kind", string(kind),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListDeadlineWindows(ctx context.Context, caseID string) ([]entities.DeadlineWindow, error) {
	var rows []deadlineWindowModel
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Order("kind ASC").
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_windows_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	items := make([]entities.DeadlineWindow, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendSubmission(ctx context.Context, submission entities.Submission) error {
	row := submissionModel{
		SubmissionID: submission.SubmissionID,
		CaseID:       submission.CaseID,
		Kind:         string(submission.Kind),
		PartyID:      submission.PartyID,
		Content:      submission.Content,
		FiledAt:      submission.FiledAt.UTC(),
		WindowID:     submission.WindowID,
		DeadlineAt:   submission.DeadlineAt.UTC(),
		Timely:       submission.Timely,
		RecordedAt:   submission.RecordedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("case_repo_append_submission_failed", err, "case_id", submission.CaseID)
	}
	return nil
}

func (r *Repository) ListSubmissions(ctx context.Context, caseID string) ([]entities.Submission, error) {
	var rows []submissionModel
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Order("filed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_submissions_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	items := make([]entities.Submission, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetJudgment(ctx context.Context, judgmentID string) (entities.Judgment, error) {
	var row judgmentModel
	err := r.db.WithContext(ctx).
		Where("judgment_id = ?", strings.TrimSpace(judgmentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Judgment{}, domainerrors.ErrJudgmentNotFound
		}
		return entities.Judgment{}, r.logError("case_repo_get_judgment_failed", err, "judgment_id", strings.TrimSpace(judgmentID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetJudgmentByCase(ctx context.Context, caseID string) (entities.Judgment, bool, error) {
	var row judgmentModel
	err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Judgment{}, false, nil
		}
		return entities.Judgment{}, false, r.logError("case_repo_get_judgment_by_case_failed", err, "case_id", strings.TrimSpace(caseID))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveJudgment(ctx context.Context, judgment entities.Judgment) error {
	row := judgmentModelFromEntity(judgment)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "judgment_id"}},
		UpdateAll: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("case_repo_save_judgment_failed", create.Error, "judgment_id", row.JudgmentID)
	}
	return nil
}

// AppendVote relies on the (judgment_id, voter_id) unique index. A skipped
// insert means the voter already voted.
func (r *Repository) AppendVote(ctx context.Context, vote entities.CommitteeVote) error {
	row := voteModel{
		VoteID:     vote.VoteID,
		JudgmentID: vote.JudgmentID,
		VoterID:    vote.VoterID,
		Value:      string(vote.Value),
		Winning:    vote.Winning,
		CastAt:     vote.CastAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrDuplicateVote
		}
		return r.logError("case_repo_append_vote_failed", create.Error,
			"judgment_id", vote.JudgmentID,
			"voter_id", vote.VoterID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrDuplicateVote
	}
	return nil
}

func (r *Repository) ListVotes(ctx context.Context, judgmentID string) ([]entities.CommitteeVote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("judgment_id = ?", strings.TrimSpace(judgmentID)).
		Order("cast_at ASC").
		Order("vote_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("case_repo_list_votes_failed", err, "judgment_id", strings.TrimSpace(judgmentID))
	}
	items := make([]entities.CommitteeVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveVotes(ctx context.Context, votes []entities.CommitteeVote) error {
	for _, vote := range votes {
		if err := r.db.WithContext(ctx).
			Model(&voteModel{}).
			Where("vote_id = ?", vote.VoteID).
			Update("winning", vote.Winning).Error; err != nil {
			return r.logError("case_repo_save_vote_failed", err, "vote_id", vote.VoteID)
		}
	}
	return nil
}

func (r *Repository) AppendAppeal(ctx context.Context, appeal entities.Appeal) error {
	row := appealModel{
		AppealID:         appeal.AppealID,
		OriginJudgmentID: appeal.OriginJudgmentID,
		OriginCaseID:     appeal.OriginCaseID,
		AppealCaseID:     appeal.AppealCaseID,
		AppellantID:      appeal.AppellantID,
		FiledAt:          appeal.FiledAt.UTC(),
		WindowDeadline:   appeal.WindowDeadline.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyAppealed
		}
		return r.logError("case_repo_append_appeal_failed", create.Error, "origin_judgment_id", appeal.OriginJudgmentID)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrAlreadyAppealed
	}
	return nil
}

func (r *Repository) GetAppealByJudgment(ctx context.Context, judgmentID string) (entities.Appeal, bool, error) {
	var row appealModel
	err := r.db.WithContext(ctx).
		Where("origin_judgment_id = ?", strings.TrimSpace(judgmentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Appeal{}, false, nil
		}
		return entities.Appeal{}, false, r.logError("case_repo_get_appeal_failed", err, "judgment_id", strings.TrimSpace(judgmentID))
	}
	return row.toEntity(), true, nil
}

// AppendOutbox numbers rows per partition key so one case's events keep
// their order when several share a timestamp.
func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("case_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
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
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("partition_key = ?", row.PartitionKey).
		Count(&count).Error; err != nil {
		return r.logError("case_repo_append_outbox_count_failed", err, "partition_key", row.PartitionKey)
	}
	row.Position = count + 1

	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("case_repo_append_outbox_insert_failed", create.Error, "outbox_id", row.OutboxID)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("case_repo_append_outbox_load_existing_failed", err, "outbox_id", row.OutboxID)
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
		return nil, r.logError("case_repo_list_pending_outbox_failed", err, "limit", limit)
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
		return r.logError("case_repo_mark_outbox_published_failed", result.Error, "outbox_id", strings.TrimSpace(outboxID))
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
		"module", "adjudication/case-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("case repository operation failed", fields...)
	return err
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.CaseTx = (*Repository)(nil)
var _ ports.CaseReader = (*Repository)(nil)
var _ ports.UnitOfWork = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
