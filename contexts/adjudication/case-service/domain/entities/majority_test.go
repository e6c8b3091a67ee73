package entities

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func votesOf(values ...VoteValue) []CommitteeVote {
	items := make([]CommitteeVote, 0, len(values))
	for i, value := range values {
		items = append(items, CommitteeVote{
			VoteID:  fmt.Sprintf("vote-%d", i+1),
			VoterID: fmt.Sprintf("member-%d", i+1),
			Value:   value,
		})
	}
	return items
}

func TestResolveOutcomeSimpleMajority(t *testing.T) {
	votes := votesOf(VoteUphold, VoteReject, VoteUphold, VoteReject, VoteUphold)

	resolution := ResolveOutcome(votes, "member-9", "member-8")
	require.Equal(t, OutcomeUpheld, resolution.Outcome)
	require.Equal(t, DecisionMajority, resolution.Decision)
	require.Equal(t, 3, resolution.Counts[OutcomeUpheld])

	flagged := WinningVotes(votes, resolution.Outcome)
	winning := 0
	for _, vote := range flagged {
		if vote.Winning {
			require.Equal(t, VoteUphold, vote.Value)
			winning++
		}
	}
	require.Equal(t, 3, winning)
}

func TestResolveOutcomeUnanimousIgnoresAbstentions(t *testing.T) {
	resolution := ResolveOutcome(votesOf(VoteReject, VoteAbstain, VoteReject), "", "")
	require.Equal(t, OutcomeRejected, resolution.Outcome)
	require.Equal(t, DecisionUnanimous, resolution.Decision)
}

func TestResolveOutcomePresidingBreaksTie(t *testing.T) {
	votes := votesOf(VoteUphold, VoteUphold, VoteReject, VoteReject)

	resolution := ResolveOutcome(votes, "member-3", "member-1")
	require.Equal(t, OutcomeRejected, resolution.Outcome)
	require.Equal(t, DecisionTieBreak, resolution.Decision)
}

func TestResolveOutcomeRelatorBreaksTieWhenPresidingAbstains(t *testing.T) {
	votes := votesOf(VoteUphold, VoteUphold, VoteReject, VoteReject, VoteAbstain)

	resolution := ResolveOutcome(votes, "member-5", "member-1")
	require.Equal(t, OutcomeUpheld, resolution.Outcome)
	require.Equal(t, DecisionTieBreak, resolution.Decision)
}

func TestResolveOutcomeUnbrokenTieDefaultsToRejected(t *testing.T) {
	// tie-breaker voted outside the tied options, so the tie survives
	votes := votesOf(VoteUphold, VoteUphold, VotePartiallyUphold, VotePartiallyUphold, VoteReject)

	resolution := ResolveOutcome(votes, "member-5", "")
	require.Equal(t, OutcomeRejected, resolution.Outcome)
	require.Equal(t, DecisionDefaultRejection, resolution.Decision)
}

func TestResolveOutcomeAllAbstain(t *testing.T) {
	resolution := ResolveOutcome(votesOf(VoteAbstain, VoteAbstain), "member-1", "member-2")
	require.Equal(t, OutcomeRejected, resolution.Outcome)
	require.Equal(t, DecisionDefaultRejection, resolution.Decision)
}

func TestQuorumSize(t *testing.T) {
	require.Equal(t, 4, QuorumSize(7, 0.5))
	require.Equal(t, 3, QuorumSize(5, 0.5))
	require.Equal(t, 5, QuorumSize(5, 1))
	require.Equal(t, 1, QuorumSize(0, 0.5))
}

func TestRosterMemberImpeded(t *testing.T) {
	c := Case{
		FilerID: "filer-1",
		Target:  Subject{Kind: SubjectKindMember, ID: "accused-1", ElectionID: "el-1", SlateID: "slate-a"},
	}
	require.True(t, RosterMember{MemberID: "filer-1"}.Impeded(c))
	require.True(t, RosterMember{MemberID: "accused-1"}.Impeded(c))
	require.True(t, RosterMember{MemberID: "m-9", SlateID: "slate-a"}.Impeded(c))
	require.False(t, RosterMember{MemberID: "m-9", SlateID: "slate-b"}.Impeded(c))

	c.Anonymous = true
	c.FilerID = ""
	require.False(t, RosterMember{MemberID: "filer-1"}.Impeded(c))
}
