package tallyservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tallyservice "eleitoral/contexts/tabulation/tally-service"
	"eleitoral/contexts/tabulation/tally-service/application/commands"
	"eleitoral/contexts/tabulation/tally-service/application/workers"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDisputes struct {
	mu   sync.Mutex
	open bool
}

func (d *fakeDisputes) Set(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = open
}

func (d *fakeDisputes) HasOpenDispute(context.Context, string, []string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open, nil
}

type fakeSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *fakeSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.handlers[topic] = handler
	return nil
}

type fixture struct {
	module   tallyservice.Module
	clock    *fakeClock
	disputes *fakeDisputes
	events   *fakeSubscriber
	scope    entities.Scope
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
	disputes := &fakeDisputes{}
	events := &fakeSubscriber{handlers: map[string]func(context.Context, ports.EventEnvelope) error{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fixture{
		module:   tallyservice.NewInMemoryModule(disputes, events, clock, logger),
		clock:    clock,
		disputes: disputes,
		events:   events,
		scope:    entities.Scope{ElectionID: "election-2026", Region: "north"},
	}
	ctx := context.Background()
	for i, slateID := range []string{"slate-a", "slate-b"} {
		_, err := f.module.UseCase.RegisterSlate(ctx, commands.RegisterSlateCommand{
			Scope: f.scope, SlateID: slateID, Number: i + 1, Name: slateID,
		})
		require.NoError(t, err)
	}
	_, err := f.module.UseCase.RegisterSection(ctx, commands.RegisterSectionCommand{Scope: f.scope, SectionID: "s1"})
	require.NoError(t, err)
	return f
}

func (f fixture) accept(t *testing.T, sectionID string, category entities.BallotCategory, slateID string, hash string) entities.Ballot {
	t.Helper()
	ballot, err := f.module.UseCase.AcceptBallot(context.Background(), commands.AcceptBallotCommand{
		Scope:     f.scope,
		SectionID: sectionID,
		SlateID:   slateID,
		Category:  category,
		Hash:      hash,
	})
	require.NoError(t, err)
	return ballot
}

func (f fixture) acceptMany(t *testing.T, category entities.BallotCategory, slateID string, count int) []entities.Ballot {
	t.Helper()
	items := make([]entities.Ballot, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, f.accept(t, "s1", category, slateID, fmt.Sprintf("%s-%s-%d", category, slateID, i)))
	}
	return items
}

func (f fixture) reportAll(t *testing.T) {
	t.Helper()
	sections, err := f.module.Store.ListSections(context.Background(), f.scope)
	require.NoError(t, err)
	for _, section := range sections {
		_, err := f.module.UseCase.ReportSection(context.Background(), commands.ReportSectionCommand{
			Scope: f.scope, SectionID: section.SectionID, Complete: true, ReportedBy: "clerk-1",
		})
		require.NoError(t, err)
	}
}

func (f fixture) compute(t *testing.T, final bool) commands.ComputeSnapshotResult {
	t.Helper()
	result, err := f.module.UseCase.ComputeSnapshot(context.Background(), commands.ComputeSnapshotCommand{
		Scope: f.scope, Final: final, ActorID: "board-1",
	})
	require.NoError(t, err)
	return result
}

func pendingEventTypes(t *testing.T, module tallyservice.Module) []string {
	t.Helper()
	rows, err := module.Outbox.ListPendingOutbox(context.Background(), 100)
	require.NoError(t, err)
	types := make([]string, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func TestHundredBallotsReconcile(t *testing.T) {
	f := newFixture(t)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 70)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-b", 20)
	f.acceptMany(t, entities.BallotCategoryBlank, "", 5)
	f.acceptMany(t, entities.BallotCategoryNull, "", 5)

	snapshot := f.compute(t, false).Snapshot
	totals := snapshot.Totals
	require.True(t, totals.Reconciles())
	require.Equal(t, 90, totals.Valid)
	require.Equal(t, 5, totals.Blank)
	require.Equal(t, 5, totals.Null)
	require.Equal(t, 100, totals.Considered)
	a, ok := totals.Row("slate-a")
	require.True(t, ok)
	require.Equal(t, 70, a.Votes)
	require.Equal(t, 77.78, a.PercentValid)
	require.Equal(t, 1, a.Position)
	require.Equal(t, 1, snapshot.Sequence)
	require.Empty(t, snapshot.PreviousHash)
	require.Len(t, snapshot.Hash, 64)
	require.Equal(t, []string{commands.EventSnapshotComputed}, pendingEventTypes(t, f.module))
}

func TestDuplicateBallotIsRefusedPerSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.module.UseCase.RegisterSection(ctx, commands.RegisterSectionCommand{Scope: f.scope, SectionID: "s2"})
	require.NoError(t, err)

	f.accept(t, "s1", entities.BallotCategoryValid, "slate-a", "hash-1")
	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", SlateID: "slate-b", Category: entities.BallotCategoryValid, Hash: "hash-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateBallot)
	f.accept(t, "s2", entities.BallotCategoryValid, "slate-a", "hash-1")

	require.Empty(t, f.module.Store.AuditEntries())
}

func TestConcurrentDuplicatesAdmitOneBallot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
				Scope: f.scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: "same",
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, accepted)
}

func TestBallotValidationIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", SlateID: "slate-x", Category: entities.BallotCategoryValid, Hash: "h",
	})
	require.ErrorIs(t, err, domainerrors.ErrSlateNotFound)
	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s9", Category: entities.BallotCategoryBlank, Hash: "h",
	})
	require.ErrorIs(t, err, domainerrors.ErrSectionNotFound)
	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryBlank, Hash: "h",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	audit := f.module.Store.AuditEntries()
	require.Len(t, audit, 3)
	require.Equal(t, "accept_ballot", audit[0].Operation)
	require.Equal(t, f.scope.Key(), audit[0].ScopeKey)
}

func TestAnnulmentKeepsBallotAndCountsAsAnnulled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ballots := f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 3)

	_, err := f.module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "coerced vote", Authority: "board-1", CaseRef: "IMP-2026-00001",
	})
	require.NoError(t, err)
	_, err = f.module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "again", Authority: "board-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyAnnulled)

	stored, err := f.module.Queries.GetBallot(ctx, ballots[0].BallotID)
	require.NoError(t, err)
	require.Equal(t, entities.BallotCategoryValid, stored.Category)
	require.Equal(t, ballots[0].Hash, stored.Hash)

	totals := f.compute(t, false).Snapshot.Totals
	require.Equal(t, 2, totals.Valid)
	require.Equal(t, 1, totals.Annulled)
	require.Equal(t, 3, totals.Considered)
	require.True(t, totals.Reconciles())
}

func TestReinstatementRestoresBallotFromItsCut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ballots := f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 2)

	_, err := f.module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "appeal granted", Authority: "board-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrNotAnnulled)

	_, err = f.module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "coerced vote", Authority: "board-1",
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	annulledCut := f.clock.Now()
	require.Equal(t, 1, f.compute(t, false).Snapshot.Totals.Annulled)

	f.clock.Advance(time.Minute)
	reinstatement, err := f.module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "appeal granted", Authority: "board-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, reinstatement.AnnulmentID)
	_, err = f.module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "again", Authority: "board-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyReinstated)

	f.clock.Advance(time.Minute)
	totals := f.compute(t, false).Snapshot.Totals
	require.Equal(t, 2, totals.Valid)
	require.Zero(t, totals.Annulled)
	require.True(t, totals.Reconciles())

	earlier, err := f.module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{
		Scope: f.scope, AsOf: annulledCut, ActorID: "board-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, earlier.Snapshot.Totals.Annulled)

	listed, err := f.module.Queries.ListReinstatements(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestReinstatementRefusesDisqualifiedSlate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ballots := f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 1)
	f.clock.Advance(time.Minute)
	_, err := f.module.UseCase.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
		Scope: f.scope, SlateID: "slate-a", CaseRef: "IMP-2026-00001", Authority: "board-1",
	})
	require.NoError(t, err)

	_, err = f.module.UseCase.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID: ballots[0].BallotID, Reason: "appeal granted", Authority: "board-1",
	})
	require.ErrorIs(t, err, domainerrors.ErrIneligible)
}

func TestRecomputeWithoutNewInputIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 4)

	first := f.compute(t, false)
	f.clock.Advance(time.Minute)
	second := f.compute(t, false)
	require.True(t, second.Unchanged)
	require.Equal(t, first.Snapshot.SnapshotID, second.Snapshot.SnapshotID)
	require.Equal(t, first.Snapshot.Hash, second.Snapshot.Hash)

	f.acceptMany(t, entities.BallotCategoryBlank, "", 1)
	third := f.compute(t, false)
	require.False(t, third.Unchanged)
	require.Equal(t, 2, third.Snapshot.Sequence)
	require.Equal(t, first.Snapshot.Hash, third.Snapshot.PreviousHash)

	snapshots, err := f.module.Queries.ListSnapshots(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	report, err := f.module.UseCase.VerifyChain(ctx, f.scope)
	require.NoError(t, err)
	require.True(t, report.Intact)
	require.Equal(t, 2, report.Checked)
}

func TestTamperedSnapshotBreaksEveryLaterLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.accept(t, "s1", entities.BallotCategoryValid, "slate-b", fmt.Sprintf("round-%d", i))
		f.compute(t, false)
	}
	snapshots, err := f.module.Queries.ListSnapshots(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)

	tampered := snapshots[0]
	tampered.Totals.Valid++
	f.module.Store.ReplaceSnapshot(tampered)

	report, err := f.module.UseCase.VerifyChain(ctx, f.scope)
	require.NoError(t, err)
	require.False(t, report.Intact)
	require.Equal(t, 1, report.BrokenSequence)
	require.Equal(t, tampered.SnapshotID, report.BrokenSnapshot)
}

func TestFinalSnapshotWaitsForSectionsAndDisputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.module.UseCase.RegisterSection(ctx, commands.RegisterSectionCommand{Scope: f.scope, SectionID: "s2"})
	require.NoError(t, err)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 2)

	_, err = f.module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{Scope: f.scope, SectionID: "s1", Complete: true})
	require.NoError(t, err)
	_, err = f.module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: f.scope, Final: true})
	require.ErrorIs(t, err, domainerrors.ErrSectionsPending)

	_, err = f.module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{
		Scope: f.scope, SectionID: "s2", SlateCounts: map[string]int{"slate-b": 3}, Complete: true,
	})
	require.NoError(t, err)
	f.disputes.Set(true)
	_, err = f.module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: f.scope, Final: true})
	require.ErrorIs(t, err, domainerrors.ErrOpenDisputeExists)

	state, err := f.module.Store.GetScopeState(ctx, f.scope)
	require.NoError(t, err)
	require.False(t, state.Frozen)

	f.disputes.Set(false)
	final := f.compute(t, true).Snapshot
	require.True(t, final.Final)
	require.Equal(t, 5, final.Totals.Valid)
	require.Equal(t, 2, final.Totals.SectionsReported)

	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: "late",
	})
	require.ErrorIs(t, err, domainerrors.ErrScopeFrozen)

	status, err := f.module.Queries.ScopeStatus(ctx, f.scope)
	require.NoError(t, err)
	require.True(t, status.State.Frozen)
	require.Equal(t, 2, status.SectionsExpected)
	require.Equal(t, 2, status.SectionsReported)
	require.Equal(t, final.SnapshotID, status.Latest.SnapshotID)
}

func TestHomologationIsOneWay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 3)
	f.reportAll(t)

	partial := f.compute(t, false).Snapshot
	_, err := f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: partial.SnapshotID, Authority: "board-1"})
	require.ErrorIs(t, err, domainerrors.ErrNotFinal)

	final := f.compute(t, true).Snapshot
	f.disputes.Set(true)
	_, err = f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: final.SnapshotID, Authority: "board-1"})
	require.ErrorIs(t, err, domainerrors.ErrOpenDisputeExists)
	f.disputes.Set(false)

	seal, err := f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: final.SnapshotID, Authority: "board-1"})
	require.NoError(t, err)
	require.Equal(t, final.Hash, seal.Hash)

	_, err = f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: final.SnapshotID, Authority: "board-1"})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyFinal)
	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", Category: entities.BallotCategoryBlank, Hash: "after-seal",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyFinal)
	_, err = f.module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{Scope: f.scope})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyFinal)

	require.Equal(t, []string{
		commands.EventSnapshotComputed,
		commands.EventSnapshotComputed,
		commands.EventSnapshotSealed,
	}, pendingEventTypes(t, f.module))
}

func TestSupersededFinalCannotBeSealed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ballots := f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 3)
	f.reportAll(t)
	first := f.compute(t, true).Snapshot

	f.clock.Advance(time.Minute)
	_, err := f.module.UseCase.AnnulBallot(ctx, commands.AnnulBallotCommand{
		BallotID: ballots[1].BallotID, Reason: "double vote", Authority: "board-1",
	})
	require.NoError(t, err)
	second := f.compute(t, true).Snapshot
	require.NotEqual(t, first.SnapshotID, second.SnapshotID)
	require.Equal(t, first.Hash, second.PreviousHash)

	_, err = f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: first.SnapshotID, Authority: "board-1"})
	require.ErrorIs(t, err, domainerrors.ErrStaleSnapshot)
	_, err = f.module.UseCase.Homologate(ctx, commands.HomologateCommand{SnapshotID: second.SnapshotID, Authority: "board-1"})
	require.NoError(t, err)
}

func TestDisqualifiedSlateVotesBecomeAnnulled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 3)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-b", 2)
	f.clock.Advance(time.Minute)

	result, err := f.module.UseCase.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
		Scope: f.scope, SlateID: "slate-a", CaseRef: "IMP-2026-00001", Authority: "board-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Annulments, 3)
	require.True(t, result.Slate.Disqualified)
	totals := result.Snapshot.Totals
	require.Equal(t, 2, totals.Valid)
	require.Equal(t, 3, totals.Annulled)
	row, _ := totals.Row("slate-a")
	require.False(t, row.Eligible)
	require.Zero(t, row.Votes)

	replay, err := f.module.UseCase.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
		Scope: f.scope, SlateID: "slate-a", Authority: "board-1",
	})
	require.NoError(t, err)
	require.True(t, replay.Replayed)

	_, err = f.module.UseCase.AcceptBallot(ctx, commands.AcceptBallotCommand{
		Scope: f.scope, SectionID: "s1", SlateID: "slate-a", Category: entities.BallotCategoryValid, Hash: "after",
	})
	require.ErrorIs(t, err, domainerrors.ErrIneligible)
	require.Contains(t, pendingEventTypes(t, f.module), commands.EventSlateDisqualified)
}

func TestSectionReportRevisionsReplaceEarlierCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{
		Scope: f.scope, SectionID: "s1", SlateCounts: map[string]int{"slate-a": 10}, Blank: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Revision)
	f.clock.Advance(time.Minute)
	second, err := f.module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{
		Scope: f.scope, SectionID: "s1", SlateCounts: map[string]int{"slate-a": 12, "slate-b": 3}, Blank: 1, Complete: true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, second.Revision)

	_, err = f.module.UseCase.ReportSection(ctx, commands.ReportSectionCommand{
		Scope: f.scope, SectionID: "s1", SlateCounts: map[string]int{"slate-z": 1},
	})
	require.ErrorIs(t, err, domainerrors.ErrSlateNotFound)

	totals := f.compute(t, false).Snapshot.Totals
	require.Equal(t, 15, totals.Valid)
	require.Equal(t, 16, totals.Considered)
	require.Equal(t, 1, totals.SectionsReported)
}

func TestCaseConcludedDisqualifiesSlateInEveryScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	south := entities.Scope{ElectionID: f.scope.ElectionID, Region: "south"}
	_, err := f.module.UseCase.RegisterSlate(ctx, commands.RegisterSlateCommand{Scope: south, SlateID: "slate-a", Number: 1, Name: "slate-a"})
	require.NoError(t, err)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 2)
	require.NoError(t, f.module.Consumer.Start(ctx))
	handler := f.events.handlers["case.concluded"]
	require.NotNil(t, handler)

	data, err := json.Marshal(map[string]any{
		"case_id":       "case-1",
		"final_case_id": "case-2",
		"election_id":   f.scope.ElectionID,
		"slate_id":      "slate-a",
		"disposition":   "upheld",
		"sanction":      "nullify_slate_votes",
	})
	require.NoError(t, err)
	event := ports.EventEnvelope{EventID: "evt-1", EventType: "case.concluded", Data: data}
	require.NoError(t, handler(ctx, event))
	require.NoError(t, handler(ctx, event))

	for _, scope := range []entities.Scope{f.scope, south} {
		slate, err := f.module.Store.GetSlate(ctx, scope, "slate-a")
		require.NoError(t, err)
		require.True(t, slate.Disqualified)
		require.Equal(t, "case-2", slate.CaseRef)
	}
	annulments, err := f.module.Queries.ListAnnulments(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, annulments, 2)

	conflicting := event
	conflicting.Data = []byte(`{"sanction":"none"}`)
	require.ErrorIs(t, handler(ctx, conflicting), domainerrors.ErrConflict)
}

func TestCaseConcludedWithoutSanctionIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.module.Consumer.Start(ctx))

	data, err := json.Marshal(map[string]any{
		"case_id":     "case-9",
		"election_id": f.scope.ElectionID,
		"slate_id":    "slate-b",
		"disposition": "rejected",
		"sanction":    "none",
	})
	require.NoError(t, err)
	require.NoError(t, f.events.handlers["case.concluded"](ctx, ports.EventEnvelope{EventID: "evt-9", Data: data}))

	slate, err := f.module.Store.GetSlate(ctx, f.scope, "slate-b")
	require.NoError(t, err)
	require.False(t, slate.Disqualified)
}

type flakySlates struct {
	ports.SlateRegistry
	mu       sync.Mutex
	failures int
}

func (s *flakySlates) FindSlateScopes(ctx context.Context, electionID string, slateID string) ([]entities.Scope, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("transient storage failure")
	}
	s.mu.Unlock()
	return s.SlateRegistry.FindSlateScopes(ctx, electionID, slateID)
}

func TestCaseConcludedRedeliveryAfterFailureDisqualifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 2)

	consumer := workers.CaseConcludedConsumer{
		Subscriber: f.events,
		Dedup:      f.module.Store,
		Slates:     &flakySlates{SlateRegistry: f.module.Store, failures: 1},
		UseCase:    f.module.UseCase,
		Clock:      f.clock,
	}
	require.NoError(t, consumer.Start(ctx))
	handler := f.events.handlers["case.concluded"]

	data, err := json.Marshal(map[string]any{
		"case_id":     "case-3",
		"election_id": f.scope.ElectionID,
		"slate_id":    "slate-a",
		"disposition": "upheld",
		"sanction":    "disqualify_slate",
	})
	require.NoError(t, err)
	event := ports.EventEnvelope{EventID: "evt-3", EventType: "case.concluded", Data: data}

	require.Error(t, handler(ctx, event))
	slate, err := f.module.Store.GetSlate(ctx, f.scope, "slate-a")
	require.NoError(t, err)
	require.False(t, slate.Disqualified)

	require.NoError(t, handler(ctx, event))
	slate, err = f.module.Store.GetSlate(ctx, f.scope, "slate-a")
	require.NoError(t, err)
	require.True(t, slate.Disqualified)
	require.Equal(t, "case-3", slate.CaseRef)

	require.NoError(t, handler(ctx, event))
	annulments, err := f.module.Queries.ListAnnulments(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, annulments, 2)
}

func TestEarlierCutIsServedWithoutChaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.clock.Now()
	f.clock.Advance(time.Minute)
	f.acceptMany(t, entities.BallotCategoryValid, "slate-a", 3)
	f.clock.Advance(time.Minute)

	latest := f.compute(t, false).Snapshot
	require.Equal(t, 3, latest.Totals.Considered)

	earlier, err := f.module.UseCase.ComputeSnapshot(ctx, commands.ComputeSnapshotCommand{
		Scope: f.scope, AsOf: before, ActorID: "board-1",
	})
	require.NoError(t, err)
	require.True(t, earlier.Historical)
	require.Zero(t, earlier.Snapshot.Totals.Considered)
	require.Empty(t, earlier.Snapshot.Hash)

	chain, err := f.module.Queries.ListSnapshots(ctx, f.scope)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.Equal(t, latest.Hash, chain[0].Hash)
}
