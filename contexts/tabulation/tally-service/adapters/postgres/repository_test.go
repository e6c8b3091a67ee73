package postgresadapter_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	tallyservice "eleitoral/contexts/tabulation/tally-service"
	postgresadapter "eleitoral/contexts/tabulation/tally-service/adapters/postgres"
	"eleitoral/contexts/tabulation/tally-service/application/commands"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"
	"eleitoral/internal/shared/sequence"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type uuidIDs struct{}

func (uuidIDs) NewID(context.Context) (string, error) { return uuid.NewString(), nil }

func openRepository(t *testing.T) *postgresadapter.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := postgresadapter.NewRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func newSQLModule(repo *postgresadapter.Repository, clock *fixedClock) tallyservice.Module {
	return tallyservice.NewModule(tallyservice.Dependencies{
		Slates:    repo,
		Ballots:   repo,
		Sections:  repo,
		Scopes:    repo,
		Snapshots: repo,
		Seals:     repo,
		Sequences: sequence.NewMemory(),
		Audit:     repo,
		Outbox:    repo,
		Dedup:     repo,
		Clock:     clock,
		IDGen:     uuidIDs{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func snapshotEvent(snapshot entities.TallySnapshot) ports.EventEnvelope {
	return ports.EventEnvelope{
		EventID:      uuid.NewString(),
		EventType:    commands.EventSnapshotComputed,
		OccurredAt:   snapshot.GeneratedAt,
		PartitionKey: snapshot.Scope.Key(),
		Data:         []byte(`{"snapshot_id":"` + snapshot.SnapshotID + `"}`),
	}
}

func seedScope(t *testing.T, module tallyservice.Module, scope entities.Scope) {
	t.Helper()
	ctx := context.Background()
	for i, slateID := range []string{"slate-a", "slate-b"} {
		_, err := module.UseCase.RegisterSlate(ctx, commands.RegisterSlateCommand{Scope: scope, SlateID: slateID, Number: i + 1})
		require.NoError(t, err)
	}
	_, err := module.UseCase.RegisterSection(ctx, commands.RegisterSectionCommand{Scope: scope, SectionID: "s1"})
	require.NoError(t, err)
}

func TestRepositoryRefusesDuplicateBallotHash(t *testing.T) {
	repo := openRepository(t)
	clock := &fixedClock{now: time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)}
	module := newSQLModule(repo, clock)
	scope := entities.Scope{ElectionID: "election-2026"}
	seedScope(t, module, scope)
	ctx := context.Background()

	_, err := module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: "h-1",
	})
	require.NoError(t, err)
	_, err = module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: scope, SectionID: "s1", Category: entities.BallotCategoryBlank, Hash: "h-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateBallot)

	ballots, err := repo.ListBallots(ctx, scope)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	require.Equal(t, entities.BallotCategoryValid, ballots[0].Category)
}

func TestRepositoryChainSurvivesReload(t *testing.T) {
	repo := openRepository(t)
	clock := &fixedClock{now: time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)}
	module := newSQLModule(repo, clock)
	scope := entities.Scope{ElectionID: "election-2026", Region: "north"}
	seedScope(t, module, scope)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
			Scope: scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: fmt.Sprintf("h-%d", i),
		})
		require.NoError(t, err)
		clock.now = clock.now.Add(time.Minute)
		_, err = module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: scope})
		require.NoError(t, err)
	}

	snapshots, err := repo.ListSnapshots(ctx, scope)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	require.Equal(t, 3, snapshots[2].Totals.Valid)
	require.Equal(t, snapshots[1].Hash, snapshots[2].PreviousHash)

	report, err := module.UseCase.VerifyChain(ctx, scope)
	require.NoError(t, err)
	require.True(t, report.Intact)
	require.Equal(t, 3, report.Checked)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, commands.EventSnapshotComputed, pending[0].EventType)
	require.Equal(t, scope.Key(), pending[0].PartitionKey)
}

func TestRepositoryAppendSnapshotRejectsStaleLink(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	scope := entities.Scope{ElectionID: "election-2026"}
	first := entities.TallySnapshot{
		SnapshotID: uuid.NewString(), Scope: scope, Sequence: 1, Hash: "h1",
		Totals: entities.Totals{ScopeKey: scope.Key()}, GeneratedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.AppendSnapshot(ctx, first, snapshotEvent(first)))

	stale := first
	stale.SnapshotID = uuid.NewString()
	stale.Hash = "h1-bis"
	require.ErrorIs(t, repo.AppendSnapshot(ctx, stale, snapshotEvent(stale)), domainerrors.ErrChainConflict)
}

func TestRepositoryFinalFreezesAndSealBlocksWrites(t *testing.T) {
	repo := openRepository(t)
	clock := &fixedClock{now: time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)}
	module := newSQLModule(repo, clock)
	scope := entities.Scope{ElectionID: "election-2026"}
	seedScope(t, module, scope)
	ctx := context.Background()

	ballot, err := module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: scope, SectionID: "s1", SlateID: "slate-b", Category: entities.BallotCategoryValid, Hash: "h-1",
	})
	require.NoError(t, err)
	_, err = module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{
		Scope: scope, SectionID: "s1", SlateCounts: map[string]int{"slate-a": 4}, Null: 1, Complete: true,
	})
	require.NoError(t, err)

	final, err := module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: scope, Final: true})
	require.NoError(t, err)
	require.Equal(t, 6, final.Snapshot.Totals.Considered)

	state, err := repo.GetScopeState(ctx, scope)
	require.NoError(t, err)
	require.True(t, state.Frozen)
	_, err = module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: scope, SectionID: "s1", Category: entities.BallotCategoryBlank, Hash: "late",
	})
	require.ErrorIs(t, err, domainerrors.ErrScopeFrozen)
	clock.now = clock.now.Add(time.Minute)

	seal, err := module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: final.Snapshot.SnapshotID, Authority: "board-1"})
	require.NoError(t, err)
	stored, found, err := repo.GetSeal(ctx, scope)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, seal.Hash, stored.Hash)

	_, err = module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{BallotID: ballot.BallotID, Reason: "late", Authority: "board-1"})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyFinal)

	audit, err := repo.ListAudit(ctx, scope.Key())
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.Equal(t, "accept_ballot", audit[0].Operation)
	require.Equal(t, "annul_ballot", audit[1].Operation)
}

func TestRepositoryDisqualifyAnnulsOnlyOpenBallots(t *testing.T) {
	repo := openRepository(t)
	clock := &fixedClock{now: time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)}
	module := newSQLModule(repo, clock)
	scope := entities.Scope{ElectionID: "election-2026"}
	seedScope(t, module, scope)
	ctx := context.Background()

	var ballots []entities.Ballot
	for i := 0; i < 3; i++ {
		ballot, err := module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
			Scope: scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: fmt.Sprintf("h-%d", i),
		})
		require.NoError(t, err)
		ballots = append(ballots, ballot)
	}
	_, err := module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{BallotID: ballots[0].BallotID, Reason: "coerced", Authority: "board-1"})
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Minute)

	result, err := module.UseCase.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
		Scope: scope, SlateID: "slate-a", CaseRef: "IMP-2026-00007", Authority: "board-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Annulments, 2)
	require.Equal(t, 3, result.Snapshot.Totals.Annulled)

	slate, err := repo.GetSlate(ctx, scope, "slate-a")
	require.NoError(t, err)
	require.True(t, slate.Disqualified)
	require.Equal(t, "IMP-2026-00007", slate.CaseRef)
	require.NotNil(t, slate.DisqualifiedAt)

	scopes, err := repo.FindSlateScopes(ctx, scope.ElectionID, "slate-a")
	require.NoError(t, err)
	require.Equal(t, []entities.Scope{scope}, scopes)
}

func TestRepositoryReinstatementReversesAnnulmentOnce(t *testing.T) {
	repo := openRepository(t)
	clock := &fixedClock{now: time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)}
	module := newSQLModule(repo, clock)
	scope := entities.Scope{ElectionID: "election-2026"}
	seedScope(t, module, scope)
	ctx := context.Background()

	ballot, err := module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: scope, SectionID: "s1", SlateID: "slate-b", Category: entities.BallotCategoryValid, Hash: "h-1",
	})
	require.NoError(t, err)
	annulment, err := module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{BallotID: ballot.BallotID, Reason: "coerced", Authority: "board-1"})
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Minute)

	reinstatement, err := module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballot.BallotID, Reason: "appeal granted", Authority: "board-1",
	})
	require.NoError(t, err)
	require.Equal(t, annulment.AnnulmentID, reinstatement.AnnulmentID)
	_, err = module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballot.BallotID, Reason: "again", Authority: "board-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyReinstated)

	stored, err := repo.ListReinstatements(ctx, scope)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, ballot.BallotID, stored[0].BallotID)

	clock.now = clock.now.Add(time.Minute)
	result, err := module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: scope, ActorID: "board-1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Snapshot.Totals.Valid)
	require.Zero(t, result.Snapshot.Totals.Annulled)
}

func TestRepositorySectionReportRevisions(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	scope := entities.Scope{ElectionID: "election-2026"}
	require.NoError(t, repo.SaveSection(ctx, entities.Section{Scope: scope, SectionID: "s1", RegisteredAt: time.Now().UTC()}))

	for i := 1; i <= 2; i++ {
		report, err := repo.AppendSectionReport(ctx, entities.SectionReport{
			ReportID:    uuid.NewString(),
			Scope:       scope,
			SectionID:   "s1",
			SlateCounts: map[string]int{"slate-a": i * 10},
			ReportedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)
		require.Equal(t, i, report.Revision)
	}
	reports, err := repo.ListSectionReports(ctx, scope)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, 20, reports[1].SlateCounts["slate-a"])
}

func TestRepositoryReserveEvent(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	replayed, err := repo.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	require.NoError(t, err)
	require.False(t, replayed)
	replayed, err = repo.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	require.NoError(t, err)
	require.True(t, replayed)
	_, err = repo.ReserveEvent(ctx, "evt-1", "hash-b", expires)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestRepositoryReleaseEventAllowsRetry(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	_, err := repo.ReserveEvent(ctx, "evt-2", "hash-a", expires)
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseEvent(ctx, "evt-2"))
	replayed, err := repo.ReserveEvent(ctx, "evt-2", "hash-a", expires)
	require.NoError(t, err)
	require.False(t, replayed)
}
