package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"

	"github.com/stretchr/testify/require"
)

func TestWithinCasesDiscardsStagedWritesOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		if err := tx.SaveCase(ctx, entities.Case{CaseID: "c1", Status: entities.CaseStatusFiled}); err != nil {
			return err
		}
		if _, err := tx.GetCase(ctx, "c1"); err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, ports.EventEnvelope{EventID: "e1", EventType: "case.status_changed", PartitionKey: "c1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetCase(ctx, "c1")
	require.ErrorIs(t, err, domainerrors.ErrCaseNotFound)
	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestStagedVotesRejectDuplicateVoter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		require.NoError(t, tx.AppendVote(ctx, entities.CommitteeVote{VoteID: "v1", JudgmentID: "j1", VoterID: "m1", Value: entities.VoteUphold}))
		return tx.AppendVote(ctx, entities.CommitteeVote{VoteID: "v2", JudgmentID: "j1", VoterID: "m1", Value: entities.VoteReject})
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)

	require.NoError(t, store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		return tx.AppendVote(ctx, entities.CommitteeVote{VoteID: "v1", JudgmentID: "j1", VoterID: "m1", Value: entities.VoteUphold})
	}))
	err = store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		return tx.AppendVote(ctx, entities.CommitteeVote{VoteID: "v3", JudgmentID: "j1", VoterID: "m1", Value: entities.VoteReject})
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)
}

func TestCurrentDeadlineWindowPicksHighestSequence(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		return tx.AppendDeadlineWindow(ctx, entities.DeadlineWindow{WindowID: "w1", CaseID: "c1", Kind: entities.SubmissionKindDefense, Sequence: 1, DueAt: due})
	}))
	require.NoError(t, store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		if err := tx.AppendDeadlineWindow(ctx, entities.DeadlineWindow{
			WindowID:     "w2",
			CaseID:       "c1",
			Kind:         entities.SubmissionKindDefense,
			Sequence:     2,
			DueAt:        due.AddDate(0, 0, 3),
			SupersedesID: "w1",
		}); err != nil {
			return err
		}
		current, found, err := tx.CurrentDeadlineWindow(ctx, "c1", entities.SubmissionKindDefense)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "w2", current.WindowID)
		return nil
	}))

	windows, err := store.ListDeadlineWindows(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, windows, 2)
}

func TestWithinCasesSerializesSameCase(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
		return tx.SaveCase(ctx, entities.Case{CaseID: "c1", Status: entities.CaseStatusFiled})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithinCases(ctx, []string{"c1"}, func(tx ports.CaseTx) error {
				item, err := tx.GetCase(ctx, "c1")
				if err != nil {
					return err
				}
				item.Tier++
				return tx.SaveCase(ctx, item)
			})
		}()
	}
	wg.Wait()

	item, err := store.GetCase(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 20, item.Tier)
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", CaseID: "c1", ExpiresAt: now.Add(time.Hour)}))
	record, found, err := store.Get(ctx, "k1", now)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "c1", record.CaseID)

	require.ErrorIs(t, store.Put(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h2", CaseID: "c1", ExpiresAt: now.Add(time.Hour)}), domainerrors.ErrIdempotencyConflict)

	_, found, err = store.Get(ctx, "k1", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, found)
}
