package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "eleitoral/contexts/adjudication/case-service/application"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

// CaseUseCase drives the adjudication workflow: case registry, submission
// ledger, committee voting and the appeal chain. Every state change runs
// inside a per-case unit of work together with its history record and
// outbox events.
type CaseUseCase struct {
	Cases          ports.CaseReader
	UnitOfWork     ports.UnitOfWork
	Parties        ports.PartyRegistry
	Committee      ports.Committee
	Deadlines      ports.DeadlineCalculator
	Sequences      ports.SequenceIssuer
	Idempotency    ports.IdempotencyStore
	Audit          ports.AuditTrail
	Metrics        ports.Metrics
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Statute        entities.Statute
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

var domainFailures = []error{
	domainerrors.ErrInvalidInput,
	domainerrors.ErrInvalidTransition,
	domainerrors.ErrInvalidParty,
	domainerrors.ErrWindowExpired,
	domainerrors.ErrWindowOpen,
	domainerrors.ErrDuplicateVote,
	domainerrors.ErrQuorumNotMet,
	domainerrors.ErrJudgmentClosed,
	domainerrors.ErrJudgmentNotPublished,
	domainerrors.ErrAlreadyAppealed,
	domainerrors.ErrIneligible,
}

func isDomainFailure(err error) bool {
	for _, target := range domainFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail logs a refused operation and records it on the audit trail before
// handing the error back. Infrastructure errors are logged but not audited.
func (uc CaseUseCase) fail(ctx context.Context, operation string, caseID string, actorID string, err error) error {
	logger := application.ResolveLogger(uc.Logger)
	if !isDomainFailure(err) {
		logger.Error("case operation failed",
			"event", "case_"+operation+"_failed",
			"module", "adjudication/case-service",
			"layer", "application",
			"case_id", strings.TrimSpace(caseID),
			"actor_id", strings.TrimSpace(actorID),
			"error", err.Error(),
		)
		return err
	}
	logger.Warn("case operation rejected",
		"event", "case_"+operation+"_rejected",
		"module", "adjudication/case-service",
		"layer", "application",
		"case_id", strings.TrimSpace(caseID),
		"actor_id", strings.TrimSpace(actorID),
		"reason", err.Error(),
	)
	if uc.Audit == nil {
		return err
	}
	entryID, idErr := uc.IDGen.NewID(ctx)
	if idErr != nil {
		return err
	}
	if auditErr := uc.Audit.RecordRejection(ctx, entities.AuditEntry{
		EntryID:    entryID,
		Operation:  operation,
		CaseID:     strings.TrimSpace(caseID),
		ActorID:    strings.TrimSpace(actorID),
		Reason:     err.Error(),
		OccurredAt: uc.now(),
	}); auditErr != nil {
		logger.Error("audit trail write failed",
			"event", "case_audit_write_failed",
			"module", "adjudication/case-service",
			"layer", "application",
			"case_id", strings.TrimSpace(caseID),
			"error", auditErr.Error(),
		)
	}
	return err
}

// transition moves the case along one edge of the status graph, appending
// the history record and the status event in the same unit of work.
func (uc CaseUseCase) transition(
	ctx context.Context,
	tx ports.CaseTx,
	item *entities.Case,
	to entities.CaseStatus,
	actorID string,
	triggerRef string,
	note string,
	now time.Time,
) error {
	from := item.Status
	if !entities.CanTransition(from, to) {
		return domainerrors.ErrInvalidTransition
	}
	changeID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	item.Status = to
	item.UpdatedAt = now
	if err := tx.SaveCase(ctx, *item); err != nil {
		return err
	}
	if err := tx.AppendStatusChange(ctx, entities.StatusChange{
		ChangeID:   changeID,
		CaseID:     item.CaseID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    strings.TrimSpace(actorID),
		TriggerRef: strings.TrimSpace(triggerRef),
		Note:       strings.TrimSpace(note),
		ChangedAt:  now,
	}); err != nil {
		return err
	}
	if uc.Metrics != nil {
		uc.Metrics.ObserveTransition(from, to)
	}
	return uc.appendCaseEvent(ctx, tx, EventCaseStatusChanged, *item, now, map[string]any{
		"from_status": string(from),
		"to_status":   string(to),
		"actor_id":    strings.TrimSpace(actorID),
		"trigger_ref": strings.TrimSpace(triggerRef),
	})
}

func (uc CaseUseCase) appendCaseEvent(
	ctx context.Context,
	tx ports.CaseTx,
	eventType string,
	item entities.Case,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"case_id":         item.CaseID,
		"protocol_number": item.ProtocolNumber,
		"kind":            string(item.Kind),
		"instance":        string(item.Instance),
		"tier":            item.Tier,
		"status":          string(item.Status),
		"election_id":     item.Target.ElectionID,
		"subject_kind":    string(item.Target.Kind),
		"subject_id":      item.Target.ID,
		"slate_id":        item.Target.Slate(),
		"occurred_at":     occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newCaseEnvelope(eventID, eventType, item.CaseID, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}

// conclude emits the terminal event for a whole appeal chain, keyed by its
// first-instance case.
func (uc CaseUseCase) conclude(ctx context.Context, tx ports.CaseTx, root entities.Case, finalCaseID string, now time.Time) error {
	sanction := root.Sanction
	if sanction == "" {
		sanction = entities.SanctionNone
	}
	return uc.appendCaseEvent(ctx, tx, EventCaseConcluded, root, now, map[string]any{
		"final_case_id": finalCaseID,
		"disposition":   string(root.Disposition),
		"sanction":      string(sanction),
	})
}

// chainIDs returns the case id followed by every ancestor id, nearest first.
func (uc CaseUseCase) chainIDs(ctx context.Context, caseID string) ([]string, error) {
	ids := []string{strings.TrimSpace(caseID)}
	seen := map[string]struct{}{ids[0]: {}}
	current := ids[0]
	for {
		item, err := uc.Cases.GetCase(ctx, current)
		if err != nil {
			return nil, err
		}
		origin := strings.TrimSpace(item.OriginCaseID)
		if origin == "" {
			return ids, nil
		}
		if _, ok := seen[origin]; ok {
			return nil, domainerrors.ErrConflict
		}
		seen[origin] = struct{}{}
		ids = append(ids, origin)
		current = origin
	}
}

func (uc CaseUseCase) computeDeadline(base time.Time, days int) (time.Time, error) {
	statute := uc.statute()
	return uc.Deadlines.ComputeDeadline(base, days, statute.Mode)
}

func (uc CaseUseCase) statute() entities.Statute {
	return uc.Statute.Normalize()
}

func (uc CaseUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func (uc CaseUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

// replay looks up a stored idempotency record. A record with a different
// request hash is a conflict.
func (uc CaseUseCase) replay(ctx context.Context, key string, requestHash string, now time.Time) (string, bool, error) {
	if uc.Idempotency == nil || strings.TrimSpace(key) == "" {
		return "", false, nil
	}
	record, found, err := uc.Idempotency.Get(ctx, key, now)
	if err != nil || !found {
		return "", false, err
	}
	if record.RequestHash != requestHash {
		return "", false, domainerrors.ErrIdempotencyConflict
	}
	return record.CaseID, true, nil
}

func (uc CaseUseCase) remember(ctx context.Context, key string, requestHash string, caseID string, now time.Time) error {
	if uc.Idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(key),
		RequestHash: requestHash,
		CaseID:      caseID,
		ExpiresAt:   now.Add(uc.resolveIdempotencyTTL()),
	})
}

func hashCommand(op string, fields map[string]string) string {
	payload := make(map[string]string, len(fields)+1)
	for key, value := range fields {
		payload[key] = strings.TrimSpace(value)
	}
	payload["op"] = op
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
