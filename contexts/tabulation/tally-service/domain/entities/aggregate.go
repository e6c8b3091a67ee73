package entities

import (
	"math"
	"sort"
	"time"
)

// AggregateInput is everything a snapshot is folded from. Records stamped
// after AsOf are ignored, so the same input always gives the same totals.
type AggregateInput struct {
	Scope      Scope
	AsOf       time.Time
	Slates     []Slate
	Sections   []Section
	Ballots    []Ballot
	Annulments []Annulment
	// Reinstatements reverse annulments recorded at or before the same cut.
	Reinstatements []Reinstatement
	Reports        []SectionReport
}

// Aggregate folds ballots, annulments and section reports into totals.
// An annulled ballot leaves its category and counts as annulled until a
// reinstatement at or before the cut restores it. Valid ballots and paper
// votes for a slate disqualified at the cut count as annulled too.
func Aggregate(input AggregateInput) Totals {
	totals := Totals{ScopeKey: input.Scope.Key()}

	annulled := make(map[string]struct{}, len(input.Annulments))
	for _, annulment := range input.Annulments {
		if annulment.RecordedAt.After(input.AsOf) {
			continue
		}
		annulled[annulment.BallotID] = struct{}{}
	}
	for _, reinstatement := range input.Reinstatements {
		if reinstatement.RecordedAt.After(input.AsOf) {
			continue
		}
		delete(annulled, reinstatement.BallotID)
	}

	eligible := make(map[string]bool, len(input.Slates))
	for _, slate := range input.Slates {
		eligible[slate.SlateID] = slate.EligibleAt(input.AsOf)
	}

	votes := make(map[string]int, len(input.Slates))
	for _, slate := range input.Slates {
		votes[slate.SlateID] = 0
	}
	for _, ballot := range input.Ballots {
		if ballot.AcceptedAt.After(input.AsOf) {
			continue
		}
		totals.Considered++
		if _, ok := annulled[ballot.BallotID]; ok {
			totals.Annulled++
			continue
		}
		switch ballot.Category {
		case BallotCategoryValid:
			if ok, known := eligible[ballot.SlateID]; known && !ok {
				totals.Annulled++
				continue
			}
			totals.Valid++
			votes[ballot.SlateID]++
		case BallotCategoryBlank:
			totals.Blank++
		case BallotCategoryNull:
			totals.Null++
		default:
			totals.Annulled++
		}
	}

	expected := make(map[string]struct{}, len(input.Sections))
	for _, section := range input.Sections {
		expected[section.SectionID] = struct{}{}
	}
	totals.SectionsExpected = len(expected)

	for _, report := range LatestReports(input.Reports, input.AsOf) {
		if _, ok := expected[report.SectionID]; ok && report.Complete {
			totals.SectionsReported++
		}
		totals.Blank += report.Blank
		totals.Null += report.Null
		totals.Considered += report.Total()
		for slateID, count := range report.SlateCounts {
			if ok, known := eligible[slateID]; known && !ok {
				totals.Annulled += count
				continue
			}
			totals.Valid += count
			votes[slateID] += count
		}
	}

	rows := make([]SlateRow, 0, len(votes))
	for slateID, count := range votes {
		isEligible, known := eligible[slateID]
		rows = append(rows, SlateRow{
			SlateID:           slateID,
			Votes:             count,
			PercentValid:      Percent(count, totals.Valid),
			PercentConsidered: Percent(count, totals.Considered),
			Eligible:          !known || isEligible,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Votes != rows[j].Votes {
			return rows[i].Votes > rows[j].Votes
		}
		return rows[i].SlateID < rows[j].SlateID
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	totals.Rows = rows
	return totals
}

// Percent is part/whole as a percentage rounded to two decimals. A zero whole
// gives zero.
func Percent(part int, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}
