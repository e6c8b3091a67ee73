package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"
)

// TallyUseCase runs ballot intake, snapshot computation and homologation.
type TallyUseCase struct {
	Slates    ports.SlateRegistry
	Ballots   ports.BallotStore
	Sections  ports.SectionStore
	Scopes    ports.ScopeStore
	Snapshots ports.SnapshotStore
	Seals     ports.SealStore
	Disputes  ports.DisputeQuery
	Hasher    ports.Hasher
	Sequences ports.SequenceIssuer
	Audit     ports.AuditTrail
	Metrics   ports.Metrics
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

var domainFailures = []error{
	domainerrors.ErrInvalidInput,
	domainerrors.ErrSlateNotFound,
	domainerrors.ErrSectionNotFound,
	domainerrors.ErrIneligible,
	domainerrors.ErrDuplicateBallot,
	domainerrors.ErrAlreadyAnnulled,
	domainerrors.ErrScopeFrozen,
	domainerrors.ErrSectionsPending,
	domainerrors.ErrOpenDisputeExists,
	domainerrors.ErrAlreadyFinal,
	domainerrors.ErrNotFinal,
	domainerrors.ErrStaleSnapshot,
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
// handing the error back. Duplicate ballots are expected under retries and
// stay off the audit trail.
func (uc TallyUseCase) fail(ctx context.Context, operation string, scope entities.Scope, actorID string, err error) error {
	logger := application.ResolveLogger(uc.Logger)
	if !isDomainFailure(err) {
		logger.Error("tally operation failed",
			"event", "tally_"+operation+"_failed",
			"module", "tabulation/tally-service",
			"layer", "application",
			"scope", scope.Key(),
			"actor_id", strings.TrimSpace(actorID),
			"error", err.Error(),
		)
		return err
	}
	logger.Warn("tally operation rejected",
		"event", "tally_"+operation+"_rejected",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", scope.Key(),
		"actor_id", strings.TrimSpace(actorID),
		"reason", err.Error(),
	)
	if uc.Audit == nil || errors.Is(err, domainerrors.ErrDuplicateBallot) {
		return err
	}
	entryID, idErr := uc.IDGen.NewID(ctx)
	if idErr != nil {
		return err
	}
	if auditErr := uc.Audit.RecordRejection(ctx, entities.AuditEntry{
		EntryID:    entryID,
		Operation:  operation,
		ScopeKey:   scope.Key(),
		ActorID:    strings.TrimSpace(actorID),
		Reason:     err.Error(),
		OccurredAt: uc.now(),
	}); auditErr != nil {
		logger.Error("audit trail write failed",
			"event", "tally_audit_write_failed",
			"module", "tabulation/tally-service",
			"layer", "application",
			"scope", scope.Key(),
			"error", auditErr.Error(),
		)
	}
	return err
}

// guardSealed refuses any change to a sealed scope.
func (uc TallyUseCase) guardSealed(ctx context.Context, scope entities.Scope) error {
	if _, found, err := uc.Seals.GetSeal(ctx, scope); err != nil {
		return err
	} else if found {
		return domainerrors.ErrAlreadyFinal
	}
	return nil
}

// guardOpen refuses a frozen or sealed scope.
func (uc TallyUseCase) guardOpen(ctx context.Context, scope entities.Scope) error {
	state, err := uc.Scopes.GetScopeState(ctx, scope)
	if err != nil {
		return err
	}
	if state.Sealed {
		return domainerrors.ErrAlreadyFinal
	}
	if state.Frozen {
		return domainerrors.ErrScopeFrozen
	}
	return nil
}

func (uc TallyUseCase) slateIDs(ctx context.Context, scope entities.Scope) ([]string, error) {
	slates, err := uc.Slates.ListSlates(ctx, scope)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(slates))
	for _, slate := range slates {
		ids = append(ids, slate.SlateID)
	}
	return ids, nil
}

func (uc TallyUseCase) checkDisputes(ctx context.Context, scope entities.Scope) error {
	if uc.Disputes == nil {
		return nil
	}
	ids, err := uc.slateIDs(ctx, scope)
	if err != nil {
		return err
	}
	open, err := uc.Disputes.HasOpenDispute(ctx, scope.ElectionID, ids)
	if err != nil {
		return err
	}
	if open {
		return domainerrors.ErrOpenDisputeExists
	}
	return nil
}

func (uc TallyUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func normalizeScope(scope entities.Scope) entities.Scope {
	return entities.Scope{
		ElectionID: strings.TrimSpace(scope.ElectionID),
		Region:     strings.TrimSpace(scope.Region),
	}
}
