package entities

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var cut = time.Date(2026, 10, 4, 20, 0, 0, 0, time.UTC)

func ballotsOf(scope Scope, categories map[string]int) []Ballot {
	items := make([]Ballot, 0)
	n := 0
	for key, count := range categories {
		for i := 0; i < count; i++ {
			n++
			ballot := Ballot{
				BallotID:   fmt.Sprintf("b-%s-%d", key, i),
				Scope:      scope,
				SectionID:  "s1",
				Hash:       fmt.Sprintf("h-%s-%d", key, i),
				AcceptedAt: cut.Add(-time.Duration(n) * time.Second),
			}
			switch key {
			case "blank":
				ballot.Category = BallotCategoryBlank
			case "null":
				ballot.Category = BallotCategoryNull
			default:
				ballot.Category = BallotCategoryValid
				ballot.SlateID = key
			}
			items = append(items, ballot)
		}
	}
	return items
}

func TestAggregateSharesOfValidAndConsidered(t *testing.T) {
	scope := Scope{ElectionID: "election-2026"}
	totals := Aggregate(AggregateInput{
		Scope:   scope,
		AsOf:    cut,
		Slates:  []Slate{{Scope: scope, SlateID: "slate-a", Number: 1}, {Scope: scope, SlateID: "slate-b", Number: 2}},
		Ballots: ballotsOf(scope, map[string]int{"slate-a": 70, "slate-b": 20, "blank": 5, "null": 5}),
	})

	require.True(t, totals.Reconciles())
	require.Equal(t, 90, totals.Valid)
	require.Equal(t, 100, totals.Considered)
	a, ok := totals.Row("slate-a")
	require.True(t, ok)
	require.Equal(t, 70, a.Votes)
	require.Equal(t, 77.78, a.PercentValid)
	require.Equal(t, 70.0, a.PercentConsidered)
	require.Equal(t, 1, a.Position)
	b, _ := totals.Row("slate-b")
	require.Equal(t, 22.22, b.PercentValid)
	require.Equal(t, 2, b.Position)
}

func TestAggregateIgnoresRecordsAfterCut(t *testing.T) {
	scope := Scope{ElectionID: "election-2026"}
	ballots := ballotsOf(scope, map[string]int{"slate-a": 2})
	ballots[0].AcceptedAt = cut.Add(time.Minute)
	annulments := []Annulment{{BallotID: ballots[1].BallotID, RecordedAt: cut.Add(time.Minute)}}

	totals := Aggregate(AggregateInput{
		Scope:      scope,
		AsOf:       cut,
		Slates:     []Slate{{Scope: scope, SlateID: "slate-a"}},
		Ballots:    ballots,
		Annulments: annulments,
	})
	require.Equal(t, 1, totals.Considered)
	require.Equal(t, 1, totals.Valid)
	require.Zero(t, totals.Annulled)
}

func TestAggregateAppliesReinstatementAsOfCut(t *testing.T) {
	scope := Scope{ElectionID: "election-2026"}
	ballots := ballotsOf(scope, map[string]int{"slate-a": 2})
	annulments := []Annulment{
		{AnnulmentID: "a1", BallotID: ballots[0].BallotID, RecordedAt: cut.Add(-2 * time.Hour)},
		{AnnulmentID: "a2", BallotID: ballots[1].BallotID, RecordedAt: cut.Add(-2 * time.Hour)},
	}
	reinstatements := []Reinstatement{
		{AnnulmentID: "a1", BallotID: ballots[0].BallotID, RecordedAt: cut.Add(-time.Hour)},
		{AnnulmentID: "a2", BallotID: ballots[1].BallotID, RecordedAt: cut.Add(time.Hour)},
	}
	input := AggregateInput{
		Scope:          scope,
		AsOf:           cut,
		Slates:         []Slate{{Scope: scope, SlateID: "slate-a"}},
		Ballots:        ballots,
		Annulments:     annulments,
		Reinstatements: reinstatements,
	}

	totals := Aggregate(input)
	require.Equal(t, 1, totals.Valid)
	require.Equal(t, 1, totals.Annulled)
	require.True(t, totals.Reconciles())

	input.AsOf = cut.Add(-90 * time.Minute)
	totals = Aggregate(input)
	require.Zero(t, totals.Valid)
	require.Equal(t, 2, totals.Annulled)
}

func TestAggregateCountsValidBallotsOfIneligibleSlateAsAnnulled(t *testing.T) {
	scope := Scope{ElectionID: "election-2026"}
	disqualifiedAt := cut.Add(-time.Hour)
	totals := Aggregate(AggregateInput{
		Scope: scope,
		AsOf:  cut,
		Slates: []Slate{
			{Scope: scope, SlateID: "slate-a"},
			{Scope: scope, SlateID: "slate-b", Disqualified: true, DisqualifiedAt: &disqualifiedAt},
		},
		Ballots: ballotsOf(scope, map[string]int{"slate-a": 3, "slate-b": 2}),
	})
	require.Equal(t, 3, totals.Valid)
	require.Equal(t, 2, totals.Annulled)
	require.True(t, totals.Reconciles())
	row, _ := totals.Row("slate-b")
	require.Zero(t, row.Votes)
}

func TestAggregateFoldsLatestSectionReport(t *testing.T) {
	scope := Scope{ElectionID: "election-2026", Region: "north"}
	disqualifiedAt := cut.Add(-time.Hour)
	slates := []Slate{
		{Scope: scope, SlateID: "slate-a"},
		{Scope: scope, SlateID: "slate-b", Disqualified: true, DisqualifiedAt: &disqualifiedAt},
	}
	reports := []SectionReport{
		{SectionID: "s1", Revision: 1, SlateCounts: map[string]int{"slate-a": 10}, ReportedAt: cut.Add(-3 * time.Hour)},
		{SectionID: "s1", Revision: 2, SlateCounts: map[string]int{"slate-a": 12, "slate-b": 4}, Blank: 1, Complete: true, ReportedAt: cut.Add(-2 * time.Hour)},
		{SectionID: "s1", Revision: 3, SlateCounts: map[string]int{"slate-a": 99}, Complete: true, ReportedAt: cut.Add(time.Hour)},
	}

	totals := Aggregate(AggregateInput{
		Scope:    scope,
		AsOf:     cut,
		Slates:   slates,
		Sections: []Section{{Scope: scope, SectionID: "s1"}, {Scope: scope, SectionID: "s2"}},
		Reports:  reports,
	})
	require.True(t, totals.Reconciles())
	require.Equal(t, 12, totals.Valid)
	require.Equal(t, 4, totals.Annulled)
	require.Equal(t, 1, totals.Blank)
	require.Equal(t, 17, totals.Considered)
	require.Equal(t, 2, totals.SectionsExpected)
	require.Equal(t, 1, totals.SectionsReported)
	require.False(t, totals.AllSectionsReported())
	row, _ := totals.Row("slate-b")
	require.False(t, row.Eligible)
	require.Zero(t, row.Votes)
}

func TestPercentOfZeroWholeIsZero(t *testing.T) {
	require.Zero(t, Percent(0, 0))
	require.Equal(t, 33.33, Percent(1, 3))
	require.Equal(t, 66.67, Percent(2, 3))
}

func TestVerifyChainFindsFirstBrokenLink(t *testing.T) {
	hash := func(previous string, totals Totals) (string, error) {
		return fmt.Sprintf("%s>%d", previous, totals.Considered), nil
	}
	var snapshots []TallySnapshot
	previous := ""
	for i := 1; i <= 3; i++ {
		totals := Totals{Considered: i * 10, Valid: i * 10}
		h, _ := hash(previous, totals)
		snapshots = append(snapshots, TallySnapshot{SnapshotID: fmt.Sprintf("snap-%d", i), Sequence: i, Totals: totals, PreviousHash: previous, Hash: h})
		previous = h
	}

	report, err := VerifyChain(snapshots, hash)
	require.NoError(t, err)
	require.True(t, report.Intact)
	require.Equal(t, 3, report.Checked)

	snapshots[1].Totals.Considered = 21
	report, err = VerifyChain(snapshots, hash)
	require.NoError(t, err)
	require.False(t, report.Intact)
	require.Equal(t, "snap-2", report.BrokenSnapshot)
	require.Equal(t, 2, report.BrokenSequence)
}
