package commands

import (
	"context"
	"strings"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
)

type HomologateCommand struct {
	SnapshotID string
	Authority  string
}

// Homologate seals a final snapshot. Only the latest snapshot of its scope
// can be sealed and a scope is sealed once.
func (uc TallyUseCase) Homologate(ctx context.Context, cmd HomologateCommand) (entities.Seal, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.SnapshotID = strings.TrimSpace(cmd.SnapshotID)
	cmd.Authority = strings.TrimSpace(cmd.Authority)
	if cmd.SnapshotID == "" || cmd.Authority == "" {
		return entities.Seal{}, uc.fail(ctx, "homologate", entities.Scope{}, cmd.Authority, domainerrors.ErrInvalidInput)
	}
	snapshot, err := uc.Snapshots.GetSnapshot(ctx, cmd.SnapshotID)
	if err != nil {
		return entities.Seal{}, uc.fail(ctx, "homologate", entities.Scope{}, cmd.Authority, err)
	}
	scope := snapshot.Scope
	if err := uc.guardSealed(ctx, scope); err != nil {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, err)
	}
	if !snapshot.Final {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, domainerrors.ErrNotFinal)
	}
	latest, found, err := uc.Snapshots.LatestSnapshot(ctx, scope)
	if err != nil {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, err)
	}
	if !found || latest.SnapshotID != snapshot.SnapshotID {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, domainerrors.ErrStaleSnapshot)
	}
	if err := uc.checkDisputes(ctx, scope); err != nil {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, err)
	}

	sealID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Seal{}, err
	}
	now := uc.now()
	seal := entities.Seal{
		SealID:     sealID,
		Scope:      scope,
		SnapshotID: snapshot.SnapshotID,
		Hash:       snapshot.Hash,
		Authority:  cmd.Authority,
		SealedAt:   now,
	}
	event, err := uc.newEnvelope(ctx, EventSnapshotSealed, scope, now, map[string]any{
		"seal_id":     seal.SealID,
		"snapshot_id": seal.SnapshotID,
		"hash":        seal.Hash,
		"authority":   seal.Authority,
	})
	if err != nil {
		return entities.Seal{}, err
	}
	if err := uc.Seals.SaveSeal(ctx, seal, event); err != nil {
		return entities.Seal{}, uc.fail(ctx, "homologate", scope, cmd.Authority, err)
	}
	logger.Info("tally homologated",
		"event", "tally_homologated",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", scope.Key(),
		"snapshot_id", seal.SnapshotID,
		"hash", seal.Hash,
		"authority", seal.Authority,
	)
	return seal, nil
}
