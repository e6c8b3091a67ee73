package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
)

const snapshotAppendAttempts = 3

type ComputeSnapshotCommand struct {
	Scope entities.Scope
	// AsOf is the cut. Zero or a future time means now. A final snapshot
	// always cuts at the barrier.
	AsOf    time.Time
	Final   bool
	ActorID string
}

type ComputeSnapshotResult struct {
	Snapshot  entities.TallySnapshot
	Unchanged bool
	// Historical marks totals cut before the latest chained snapshot. They are
	// served but never chained, so chained counts only grow.
	Historical bool
}

// ComputeSnapshot folds the scope into totals and appends a chained snapshot.
// When the latest snapshot already holds the same totals and finality it is
// returned as is, so recomputing without new input adds nothing to the chain.
func (uc TallyUseCase) ComputeSnapshot(ctx context.Context, cmd ComputeSnapshotCommand) (ComputeSnapshotResult, error) {
	cmd.Scope = normalizeScope(cmd.Scope)
	if !cmd.Scope.Valid() {
		return ComputeSnapshotResult{}, uc.fail(ctx, "compute_snapshot", cmd.Scope, cmd.ActorID, domainerrors.ErrInvalidInput)
	}
	if err := uc.guardSealed(ctx, cmd.Scope); err != nil {
		return ComputeSnapshotResult{}, uc.fail(ctx, "compute_snapshot", cmd.Scope, cmd.ActorID, err)
	}
	if cmd.Final {
		if err := uc.barrier(ctx, cmd.Scope); err != nil {
			return ComputeSnapshotResult{}, uc.fail(ctx, "compute_snapshot", cmd.Scope, cmd.ActorID, err)
		}
	}

	var (
		result ComputeSnapshotResult
		err    error
	)
	for attempt := 0; attempt < snapshotAppendAttempts; attempt++ {
		result, err = uc.appendSnapshot(ctx, cmd)
		if !errors.Is(err, domainerrors.ErrChainConflict) {
			break
		}
	}
	if err != nil {
		return ComputeSnapshotResult{}, uc.fail(ctx, "compute_snapshot", cmd.Scope, cmd.ActorID, err)
	}
	return result, nil
}

// barrier checks the final preconditions and freezes the scope.
func (uc TallyUseCase) barrier(ctx context.Context, scope entities.Scope) error {
	sections, err := uc.Sections.ListSections(ctx, scope)
	if err != nil {
		return err
	}
	reports, err := uc.Sections.ListSectionReports(ctx, scope)
	if err != nil {
		return err
	}
	complete := make(map[string]struct{}, len(reports))
	for _, report := range entities.LatestReports(reports, uc.now()) {
		if report.Complete {
			complete[report.SectionID] = struct{}{}
		}
	}
	for _, section := range sections {
		if _, ok := complete[section.SectionID]; !ok {
			return domainerrors.ErrSectionsPending
		}
	}
	if err := uc.checkDisputes(ctx, scope); err != nil {
		return err
	}
	_, err = uc.Scopes.FreezeScope(ctx, scope, uc.now())
	return err
}

func (uc TallyUseCase) appendSnapshot(ctx context.Context, cmd ComputeSnapshotCommand) (ComputeSnapshotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	asOf := cmd.AsOf.UTC()
	if cmd.Final || cmd.AsOf.IsZero() || asOf.After(now) {
		asOf = now
	}

	input, err := uc.loadInput(ctx, cmd.Scope, asOf)
	if err != nil {
		return ComputeSnapshotResult{}, err
	}
	totals := entities.Aggregate(input)
	if !totals.Reconciles() {
		return ComputeSnapshotResult{}, fmt.Errorf("totals for %s do not reconcile", cmd.Scope.Key())
	}

	latest, found, err := uc.Snapshots.LatestSnapshot(ctx, cmd.Scope)
	if err != nil {
		return ComputeSnapshotResult{}, err
	}
	if found && !cmd.Final && asOf.Before(latest.AsOf) {
		return ComputeSnapshotResult{
			Snapshot: entities.TallySnapshot{
				Scope:       cmd.Scope,
				AsOf:        asOf,
				Totals:      totals,
				GeneratedAt: now,
			},
			Historical: true,
		}, nil
	}
	previousHash := ""
	sequence := 1
	if found {
		same, err := uc.Hasher.Chain(latest.PreviousHash, totals)
		if err != nil {
			return ComputeSnapshotResult{}, err
		}
		if same == latest.Hash && latest.Final == cmd.Final {
			return ComputeSnapshotResult{Snapshot: latest, Unchanged: true}, nil
		}
		previousHash = latest.Hash
		sequence = latest.Sequence + 1
	}
	hash, err := uc.Hasher.Chain(previousHash, totals)
	if err != nil {
		return ComputeSnapshotResult{}, err
	}
	snapshotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ComputeSnapshotResult{}, err
	}
	snapshot := entities.TallySnapshot{
		SnapshotID:   snapshotID,
		Scope:        cmd.Scope,
		Sequence:     sequence,
		AsOf:         asOf,
		Final:        cmd.Final,
		Totals:       totals,
		PreviousHash: previousHash,
		Hash:         hash,
		GeneratedAt:  now,
	}
	event, err := uc.newEnvelope(ctx, EventSnapshotComputed, cmd.Scope, now, map[string]any{
		"snapshot_id":   snapshot.SnapshotID,
		"sequence":      snapshot.Sequence,
		"final":         snapshot.Final,
		"hash":          snapshot.Hash,
		"previous_hash": snapshot.PreviousHash,
		"as_of":         asOf.Format(time.RFC3339Nano),
		"considered":    totals.Considered,
		"valid":         totals.Valid,
	})
	if err != nil {
		return ComputeSnapshotResult{}, err
	}
	if err := uc.Snapshots.AppendSnapshot(ctx, snapshot, event); err != nil {
		return ComputeSnapshotResult{}, err
	}

	if uc.Metrics != nil {
		uc.Metrics.ObserveSnapshot(snapshot.Final, totals.Considered)
	}
	logger.Info("tally snapshot computed",
		"event", "tally_snapshot_computed",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", cmd.Scope.Key(),
		"snapshot_id", snapshot.SnapshotID,
		"sequence", snapshot.Sequence,
		"final", snapshot.Final,
		"considered", totals.Considered,
	)
	return ComputeSnapshotResult{Snapshot: snapshot}, nil
}

func (uc TallyUseCase) loadInput(ctx context.Context, scope entities.Scope, asOf time.Time) (entities.AggregateInput, error) {
	slates, err := uc.Slates.ListSlates(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	sections, err := uc.Sections.ListSections(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	ballots, err := uc.Ballots.ListBallots(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	annulments, err := uc.Ballots.ListAnnulments(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	reinstatements, err := uc.Ballots.ListReinstatements(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	reports, err := uc.Sections.ListSectionReports(ctx, scope)
	if err != nil {
		return entities.AggregateInput{}, err
	}
	return entities.AggregateInput{
		Scope:          scope,
		AsOf:           asOf,
		Slates:         slates,
		Sections:       sections,
		Ballots:        ballots,
		Annulments:     annulments,
		Reinstatements: reinstatements,
		Reports:        reports,
	}, nil
}

// VerifyChain replays every hash of the scope's snapshot chain.
func (uc TallyUseCase) VerifyChain(ctx context.Context, scope entities.Scope) (entities.ChainReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	scope = normalizeScope(scope)
	if !scope.Valid() {
		return entities.ChainReport{}, uc.fail(ctx, "verify_chain", scope, "", domainerrors.ErrInvalidInput)
	}
	snapshots, err := uc.Snapshots.ListSnapshots(ctx, scope)
	if err != nil {
		return entities.ChainReport{}, uc.fail(ctx, "verify_chain", scope, "", err)
	}
	report, err := entities.VerifyChain(snapshots, uc.Hasher.Chain)
	if err != nil {
		return entities.ChainReport{}, uc.fail(ctx, "verify_chain", scope, "", err)
	}
	if !report.Intact {
		logger.Error("tally snapshot chain broken",
			"event", "tally_chain_broken",
			"module", "tabulation/tally-service",
			"layer", "application",
			"scope", scope.Key(),
			"snapshot_id", report.BrokenSnapshot,
			"sequence", report.BrokenSequence,
		)
	}
	return report, nil
}
