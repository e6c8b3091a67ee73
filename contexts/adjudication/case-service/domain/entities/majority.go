package entities

import "strings"

// Resolution is the result of counting a closed vote set.
type Resolution struct {
	Outcome  Outcome
	Decision DecisionKind
	Counts   map[Outcome]int
}

// ResolveOutcome counts non-abstaining votes by simple majority. On a tie at
// the top, the presiding member's vote counts twice, or the relator's when the
// presiding member did not vote or abstained. A tie that survives the extra
// vote, or a vote set with no non-abstaining votes, resolves to rejected.
func ResolveOutcome(votes []CommitteeVote, presidingID string, relatorID string) Resolution {
	counts := map[Outcome]int{}
	for _, vote := range votes {
		outcome, ok := vote.Value.Outcome()
		if !ok {
			continue
		}
		counts[outcome]++
	}
	if len(counts) == 0 {
		return Resolution{Outcome: OutcomeRejected, Decision: DecisionDefaultRejection, Counts: counts}
	}

	leaders := leadingOutcomes(counts)
	if len(leaders) == 1 {
		decision := DecisionMajority
		if len(counts) == 1 {
			decision = DecisionUnanimous
		}
		return Resolution{Outcome: leaders[0], Decision: decision, Counts: counts}
	}

	breaker, ok := tieBreakerVote(votes, presidingID)
	if !ok {
		breaker, ok = tieBreakerVote(votes, relatorID)
	}
	if ok {
		weighted := make(map[Outcome]int, len(counts))
		for outcome, count := range counts {
			weighted[outcome] = count
		}
		weighted[breaker]++
		if leaders := leadingOutcomes(weighted); len(leaders) == 1 {
			return Resolution{Outcome: leaders[0], Decision: DecisionTieBreak, Counts: counts}
		}
	}
	return Resolution{Outcome: OutcomeRejected, Decision: DecisionDefaultRejection, Counts: counts}
}

// WinningVotes flags every vote whose value supports the outcome.
func WinningVotes(votes []CommitteeVote, outcome Outcome) []CommitteeVote {
	items := make([]CommitteeVote, 0, len(votes))
	for _, vote := range votes {
		supported, ok := vote.Value.Outcome()
		vote.Winning = ok && supported == outcome
		items = append(items, vote)
	}
	return items
}

func tieBreakerVote(votes []CommitteeVote, memberID string) (Outcome, bool) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return "", false
	}
	for _, vote := range votes {
		if strings.TrimSpace(vote.VoterID) != memberID {
			continue
		}
		return vote.Value.Outcome()
	}
	return "", false
}

func leadingOutcomes(counts map[Outcome]int) []Outcome {
	best := 0
	for _, count := range counts {
		if count > best {
			best = count
		}
	}
	leaders := make([]Outcome, 0, len(counts))
	for _, outcome := range []Outcome{OutcomeUpheld, OutcomePartiallyUpheld, OutcomeRejected} {
		if counts[outcome] == best && best > 0 {
			leaders = append(leaders, outcome)
		}
	}
	return leaders
}
