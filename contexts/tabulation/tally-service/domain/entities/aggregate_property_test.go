package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func jsonChain(previous string, totals Totals) (string, error) {
	payload, err := json.Marshal(totals)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(previous), payload...))
	return hex.EncodeToString(sum[:]), nil
}

// inputFromCounts builds ballots for three slates plus blank and null, then
// annuls every ballot whose index is a multiple of annulEvery.
func inputFromCounts(counts []int, annulEvery int) AggregateInput {
	scope := Scope{ElectionID: "election-2026"}
	slates := []Slate{{Scope: scope, SlateID: "slate-a"}, {Scope: scope, SlateID: "slate-b"}, {Scope: scope, SlateID: "slate-c"}}
	categories := []string{"slate-a", "slate-b", "slate-c", "blank", "null"}
	input := AggregateInput{Scope: scope, AsOf: cut, Slates: slates}
	n := 0
	for i, count := range counts {
		key := categories[i%len(categories)]
		for j := 0; j < count; j++ {
			n++
			ballot := Ballot{
				BallotID:   fmt.Sprintf("b-%d", n),
				Scope:      scope,
				SectionID:  "s1",
				Category:   BallotCategoryValid,
				SlateID:    key,
				AcceptedAt: cut,
			}
			if key == "blank" || key == "null" {
				ballot.Category = BallotCategory(key)
				ballot.SlateID = ""
			}
			input.Ballots = append(input.Ballots, ballot)
			if annulEvery > 0 && n%annulEvery == 0 {
				input.Annulments = append(input.Annulments, Annulment{BallotID: ballot.BallotID, RecordedAt: cut})
			}
		}
	}
	return input
}

func TestAggregateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	countsGen := gen.SliceOfN(5, gen.IntRange(0, 40))

	properties.Property("totals always reconcile", prop.ForAll(
		func(counts []int, annulEvery int) bool {
			totals := Aggregate(inputFromCounts(counts, annulEvery))
			return totals.Reconciles()
		},
		countsGen,
		gen.IntRange(0, 7),
	))

	properties.Property("input order does not change totals or hash", prop.ForAll(
		func(counts []int, annulEvery int, seed int64) bool {
			input := inputFromCounts(counts, annulEvery)
			first := Aggregate(input)

			shuffled := input
			shuffled.Ballots = append([]Ballot(nil), input.Ballots...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled.Ballots), func(i, j int) {
				shuffled.Ballots[i], shuffled.Ballots[j] = shuffled.Ballots[j], shuffled.Ballots[i]
			})
			second := Aggregate(shuffled)
			if !reflect.DeepEqual(first, second) {
				return false
			}
			h1, err1 := jsonChain("prev", first)
			h2, err2 := jsonChain("prev", second)
			return err1 == nil && err2 == nil && h1 == h2
		},
		countsGen,
		gen.IntRange(0, 7),
		gen.Int64(),
	))

	properties.Property("tampering with an earlier snapshot breaks the chain", prop.ForAll(
		func(counts []int, victim int, delta int) bool {
			var snapshots []TallySnapshot
			previous := ""
			for i := 1; i <= len(counts); i++ {
				totals := Aggregate(inputFromCounts(counts[:i], 0))
				hash, err := jsonChain(previous, totals)
				if err != nil {
					return false
				}
				snapshots = append(snapshots, TallySnapshot{Sequence: i, Totals: totals, PreviousHash: previous, Hash: hash})
				previous = hash
			}
			index := victim % len(snapshots)
			snapshots[index].Totals.Blank += delta
			report, err := VerifyChain(snapshots, jsonChain)
			return err == nil && !report.Intact && report.BrokenSequence == index+1
		},
		countsGen,
		gen.IntRange(0, 100),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
