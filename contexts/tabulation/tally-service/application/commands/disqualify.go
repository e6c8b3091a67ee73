package commands

import (
	"context"
	"strings"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
)

type DisqualifySlateCommand struct {
	Scope     entities.Scope
	SlateID   string
	CaseRef   string
	Authority string
	Reason    string
}

type DisqualifySlateResult struct {
	Slate      entities.Slate
	Annulments []entities.Annulment
	Snapshot   entities.TallySnapshot
	Replayed   bool
}

// DisqualifySlate marks a slate ineligible, annuls its valid ballots and
// recomputes a partial snapshot. Disqualifying an ineligible slate again is a
// no-op that returns the stored slate.
func (uc TallyUseCase) DisqualifySlate(ctx context.Context, cmd DisqualifySlateCommand) (DisqualifySlateResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Scope = normalizeScope(cmd.Scope)
	cmd.SlateID = strings.TrimSpace(cmd.SlateID)
	cmd.Authority = strings.TrimSpace(cmd.Authority)
	if !cmd.Scope.Valid() || cmd.SlateID == "" || cmd.Authority == "" {
		return DisqualifySlateResult{}, uc.fail(ctx, "disqualify_slate", cmd.Scope, cmd.Authority, domainerrors.ErrInvalidInput)
	}
	slate, err := uc.Slates.GetSlate(ctx, cmd.Scope, cmd.SlateID)
	if err != nil {
		return DisqualifySlateResult{}, uc.fail(ctx, "disqualify_slate", cmd.Scope, cmd.Authority, err)
	}
	if slate.Disqualified {
		return DisqualifySlateResult{Slate: slate, Replayed: true}, nil
	}
	if err := uc.guardSealed(ctx, cmd.Scope); err != nil {
		return DisqualifySlateResult{}, uc.fail(ctx, "disqualify_slate", cmd.Scope, cmd.Authority, err)
	}

	now := uc.now()
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = "slate disqualified"
	}
	template := entities.Annulment{
		Scope:      cmd.Scope,
		Reason:     reason,
		Authority:  cmd.Authority,
		CaseRef:    strings.TrimSpace(cmd.CaseRef),
		RecordedAt: now,
	}
	event, err := uc.newEnvelope(ctx, EventSlateDisqualified, cmd.Scope, now, map[string]any{
		"slate_id":  cmd.SlateID,
		"case_ref":  template.CaseRef,
		"authority": cmd.Authority,
		"reason":    reason,
	})
	if err != nil {
		return DisqualifySlateResult{}, err
	}
	stored, annulments, err := uc.Slates.DisqualifySlate(ctx, cmd.Scope, cmd.SlateID, template, event)
	if err != nil {
		return DisqualifySlateResult{}, uc.fail(ctx, "disqualify_slate", cmd.Scope, cmd.Authority, err)
	}
	logger.Info("slate disqualified",
		"event", "tally_slate_disqualified",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", cmd.Scope.Key(),
		"slate_id", cmd.SlateID,
		"case_ref", template.CaseRef,
		"annulled_ballots", len(annulments),
	)

	computed, err := uc.ComputeSnapshot(ctx, ComputeSnapshotCommand{Scope: cmd.Scope, ActorID: cmd.Authority})
	if err != nil {
		return DisqualifySlateResult{}, err
	}
	return DisqualifySlateResult{
		Slate:      stored,
		Annulments: annulments,
		Snapshot:   computed.Snapshot,
	}, nil
}
