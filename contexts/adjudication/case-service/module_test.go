package caseservice_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	caseservice "eleitoral/contexts/adjudication/case-service"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
	httptransport "eleitoral/contexts/adjudication/case-service/transport/http"

	"github.com/stretchr/testify/require"
)

const (
	electionID = "election-2026"
	filerID    = "party-filer"
	appellant  = "party-appellant"
	slateID    = "slate-7"
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

type fixture struct {
	module caseservice.Module
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	module := caseservice.NewInMemoryModule(entities.Statute{AppealDays: 15}, clock, logger)

	module.Store.SetStanding(electionID, filerID)
	module.Store.SetStanding(electionID, appellant)
	module.Store.SetTarget(entities.Subject{Kind: entities.SubjectKindSlate, ID: slateID, ElectionID: electionID}, true)
	module.Store.SetRoster(electionID, 1, []entities.RosterMember{
		{MemberID: "m1", Role: entities.MemberRolePresiding},
		{MemberID: "m2", Role: entities.MemberRoleRelator},
		{MemberID: "m3", Role: entities.MemberRoleVoting},
		{MemberID: "m4", Role: entities.MemberRoleVoting},
		{MemberID: "m5", Role: entities.MemberRoleVoting},
	})
	module.Store.SetRoster(electionID, 2, []entities.RosterMember{
		{MemberID: "r1", Role: entities.MemberRolePresiding},
		{MemberID: "r2", Role: entities.MemberRoleRelator},
		{MemberID: "r3", Role: entities.MemberRoleVoting},
	})
	return &fixture{module: module, clock: clock}
}

func slateTarget() httptransport.SubjectDTO {
	return httptransport.SubjectDTO{Kind: "slate", ID: slateID, ElectionID: electionID}
}

// admittedCase files a complaint against the slate and admits it.
func (f *fixture) admittedCase(t *testing.T) httptransport.CaseResponse {
	t.Helper()
	ctx := context.Background()
	h := f.module.Handler

	filed, err := h.FileCaseHandler(ctx, filerID, "", httptransport.FileCaseRequest{Kind: "complaint", Target: slateTarget()})
	require.NoError(t, err)
	require.Equal(t, "filed", filed.Status)

	_, err = h.BeginAdmissibilityReviewHandler(ctx, filed.CaseID, "clerk", httptransport.AssignRelatorRequest{RelatorID: "m2"})
	require.NoError(t, err)
	admitted, err := h.ReviewAdmissibilityHandler(ctx, filed.CaseID, "m2", httptransport.AdmissibilityRequest{Admit: true, Reasoning: "meets requirements"})
	require.NoError(t, err)
	require.Equal(t, "admitted", admitted.Status)
	return admitted
}

// openJudgment walks an admitted case through both periods into judgment.
func (f *fixture) openJudgment(t *testing.T, caseID string) httptransport.JudgmentResponse {
	t.Helper()
	ctx := context.Background()
	h := f.module.Handler

	_, err := h.OpenDefensePeriodHandler(ctx, caseID, "clerk")
	require.NoError(t, err)
	_, err = h.OpenEvidencePeriodHandler(ctx, caseID, "clerk")
	require.NoError(t, err)
	judgment, err := h.SendToJudgmentHandler(ctx, caseID, "clerk", httptransport.SendToJudgmentRequest{})
	require.NoError(t, err)
	require.Equal(t, "open", judgment.Status)
	return judgment
}

func (f *fixture) vote(t *testing.T, judgmentID string, votes map[string]entities.VoteValue) {
	t.Helper()
	for voter, value := range votes {
		_, err := f.module.Handler.CastVoteHandler(context.Background(), judgmentID, voter, httptransport.CastVoteRequest{Value: string(value)})
		require.NoError(t, err)
	}
}

// publishedJudgment returns a first-instance case judged upheld and published.
func (f *fixture) publishedJudgment(t *testing.T) (httptransport.CaseResponse, httptransport.JudgmentResponse) {
	t.Helper()
	ctx := context.Background()
	item := f.admittedCase(t)
	judgment := f.openJudgment(t, item.CaseID)
	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{
		"m1": entities.VoteUphold,
		"m2": entities.VoteUphold,
		"m3": entities.VoteUphold,
		"m4": entities.VoteReject,
	})
	_, err := f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{Reasoning: "proven"})
	require.NoError(t, err)
	published, err := f.module.Handler.PublishJudgmentHandler(ctx, judgment.JudgmentID, "clerk")
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	require.NotNil(t, published.AppealDeadline)
	return item, published
}

func pendingEventTypes(t *testing.T, outbox ports.OutboxRepository) []string {
	t.Helper()
	rows, err := outbox.ListPendingOutbox(context.Background(), 1000)
	require.NoError(t, err)
	types := make([]string, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func TestLateDefenseIsRecordedAsUntimely(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	require.True(t, strings.HasPrefix(item.ProtocolNumber, "DEN-2026-"))

	period, err := f.module.Handler.OpenDefensePeriodHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)
	require.Len(t, period.Windows, 1)
	require.Equal(t, f.clock.Now().AddDate(0, 0, 5), period.Windows[0].DueAt)

	f.clock.Advance(6 * 24 * time.Hour)
	submission, err := f.module.Handler.SubmitHandler(ctx, item.CaseID, "slate-7-rep", httptransport.SubmitRequest{
		Kind:    "defense",
		Content: "we contest the complaint",
	})
	require.NoError(t, err)
	require.False(t, submission.Timely)
	require.Equal(t, period.Windows[0].DueAt, submission.DeadlineAt)

	timelyOnly, err := f.module.Handler.ListSubmissionsHandler(ctx, item.CaseID, false)
	require.NoError(t, err)
	require.Empty(t, timelyOnly.Items)
	all, err := f.module.Handler.ListSubmissionsHandler(ctx, item.CaseID, true)
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
}

func TestOpenDefensePeriodTwiceReturnsStoredWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)

	first, err := f.module.Handler.OpenDefensePeriodHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := f.module.Handler.OpenDefensePeriodHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)
	require.True(t, second.AlreadyOpen)
	require.Equal(t, first.Windows[0].WindowID, second.Windows[0].WindowID)
	require.Equal(t, first.Windows[0].DueAt, second.Windows[0].DueAt)
}

func TestExtensionKeepsEarlierTimelinessVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	_, err := f.module.Handler.OpenDefensePeriodHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)

	f.clock.Advance(6 * 24 * time.Hour)
	late, err := f.module.Handler.SubmitHandler(ctx, item.CaseID, "slate-7-rep", httptransport.SubmitRequest{Kind: "defense", Content: "first"})
	require.NoError(t, err)
	require.False(t, late.Timely)

	extended, err := f.module.Handler.ExtendDeadlineHandler(ctx, item.CaseID, "m2", httptransport.ExtendDeadlineRequest{
		Kind:      "defense",
		ExtraDays: 5,
		Reason:    "court holiday",
	})
	require.NoError(t, err)
	require.Equal(t, 2, extended.Sequence)

	again, err := f.module.Handler.SubmitHandler(ctx, item.CaseID, "slate-7-rep", httptransport.SubmitRequest{Kind: "defense", Content: "second"})
	require.NoError(t, err)
	require.True(t, again.Timely)

	all, err := f.module.Handler.ListSubmissionsHandler(ctx, item.CaseID, true)
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.False(t, all.Items[0].Timely)
	require.True(t, all.Items[1].Timely)

	deadlines, err := f.module.Handler.ListDeadlinesHandler(ctx, item.CaseID)
	require.NoError(t, err)
	require.Len(t, deadlines.Items, 2)
	require.Equal(t, deadlines.Items[0].WindowID, deadlines.Items[1].SupersedesID)
}

func TestMajorityUpholdFlagsWinningVotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	judgment := f.openJudgment(t, item.CaseID)

	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{
		"m1": entities.VoteUphold,
		"m2": entities.VoteUphold,
		"m3": entities.VoteUphold,
		"m4": entities.VoteReject,
		"m5": entities.VoteReject,
	})
	closed, err := f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{
		Reasoning: "abuse of power proven",
		Sanction:  "nullify_slate_votes",
	})
	require.NoError(t, err)
	require.Equal(t, "upheld", closed.Outcome)
	require.Equal(t, "majority", closed.Decision)
	require.Equal(t, "nullify_slate_votes", closed.Sanction)

	winners := 0
	for _, vote := range closed.Votes {
		if vote.Winning {
			winners++
			require.Equal(t, "uphold", vote.Value)
		}
	}
	require.Equal(t, 3, winners)

	judged, err := f.module.Handler.GetCaseHandler(ctx, item.CaseID)
	require.NoError(t, err)
	require.Equal(t, "judged", judged.Status)
	require.Equal(t, "upheld", judged.Disposition)
}

func TestRelatorOpinionIsKeptWithJudgment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	judgment := f.openJudgment(t, item.CaseID)
	require.Equal(t, "m2", judgment.RelatorID)

	_, err := f.module.Handler.RecordOpinionHandler(ctx, judgment.JudgmentID, "m1", httptransport.RecordOpinionRequest{
		Recommendation: "upheld", Grounds: "ledger shows diverted funds", Conclusion: "disqualify",
	})
	require.ErrorIs(t, err, domainerrors.ErrIneligible)
	_, err = f.module.Handler.RecordOpinionHandler(ctx, judgment.JudgmentID, "m2", httptransport.RecordOpinionRequest{
		Recommendation: "maybe", Grounds: "x", Conclusion: "y",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	recorded, err := f.module.Handler.RecordOpinionHandler(ctx, judgment.JudgmentID, "m2", httptransport.RecordOpinionRequest{
		Recommendation: "upheld",
		Summary:        "abuse of economic power",
		Grounds:        "ledger shows diverted funds",
		Conclusion:     "disqualify the slate",
	})
	require.NoError(t, err)
	require.NotNil(t, recorded.Opinion)
	require.Equal(t, "upheld", recorded.Opinion.Recommendation)
	require.Equal(t, "abuse of economic power", recorded.Opinion.Summary)

	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{
		"m1": entities.VoteReject,
		"m2": entities.VoteUphold,
		"m3": entities.VoteReject,
		"m4": entities.VoteReject,
	})
	closed, err := f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{Reasoning: "not proven"})
	require.NoError(t, err)
	require.Equal(t, "rejected", closed.Outcome)
	require.NotNil(t, closed.Opinion)
	require.Equal(t, "upheld", closed.Opinion.Recommendation)

	_, err = f.module.Handler.RecordOpinionHandler(ctx, judgment.JudgmentID, "m2", httptransport.RecordOpinionRequest{
		Recommendation: "rejected", Grounds: "late", Conclusion: "late",
	})
	require.ErrorIs(t, err, domainerrors.ErrJudgmentClosed)
}

func TestTieIsBrokenByPresidingMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	judgment := f.openJudgment(t, item.CaseID)

	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{
		"m1": entities.VoteReject,
		"m2": entities.VoteUphold,
		"m3": entities.VoteUphold,
		"m4": entities.VoteReject,
	})
	closed, err := f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{
		Reasoning: "insufficient evidence",
		Sanction:  "disqualify_slate",
	})
	require.NoError(t, err)
	require.Equal(t, "rejected", closed.Outcome)
	require.Equal(t, "tie_break", closed.Decision)
	require.Equal(t, "none", closed.Sanction)
}

func TestQuorumAndDuplicateVotesAreRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.admittedCase(t)
	judgment := f.openJudgment(t, item.CaseID)

	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{"m1": entities.VoteUphold, "m3": entities.VoteUphold})
	_, err := f.module.Handler.CastVoteHandler(ctx, judgment.JudgmentID, "m1", httptransport.CastVoteRequest{Value: "reject"})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)
	_, err = f.module.Handler.CastVoteHandler(ctx, judgment.JudgmentID, "outsider", httptransport.CastVoteRequest{Value: "reject"})
	require.ErrorIs(t, err, domainerrors.ErrIneligible)

	_, err = f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{})
	require.ErrorIs(t, err, domainerrors.ErrQuorumNotMet)

	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{"m4": entities.VoteReject})
	_, err = f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{})
	require.NoError(t, err)
	_, err = f.module.Handler.CastVoteHandler(ctx, judgment.JudgmentID, "m5", httptransport.CastVoteRequest{Value: "reject"})
	require.ErrorIs(t, err, domainerrors.ErrJudgmentClosed)

	audit := f.module.Store.AuditEntries()
	operations := make([]string, 0, len(audit))
	for _, entry := range audit {
		operations = append(operations, entry.Operation)
	}
	require.Contains(t, operations, "cast_vote")
	require.Contains(t, operations, "close_voting")
}

func TestAppealWithinWindowOpensSecondInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	origin, judgment := f.publishedJudgment(t)

	f.clock.Advance(10 * 24 * time.Hour)
	appeal, err := f.module.Handler.FileAppealHandler(ctx, judgment.JudgmentID, appellant, "idem-appeal-1", httptransport.FileAppealRequest{
		Brief: "the evidence was misread",
	})
	require.NoError(t, err)
	require.Equal(t, "appealed_to_second_instance", appeal.Origin.Status)
	require.Equal(t, appeal.AppealCase.CaseID, appeal.Origin.AppealCaseID)
	require.Equal(t, "filed", appeal.AppealCase.Status)
	require.Equal(t, "second", appeal.AppealCase.Instance)
	require.Equal(t, 2, appeal.AppealCase.Tier)
	require.Equal(t, origin.CaseID, appeal.AppealCase.OriginCaseID)
	require.True(t, strings.HasPrefix(appeal.AppealCase.ProtocolNumber, "REC-2026-"))

	replayed, err := f.module.Handler.FileAppealHandler(ctx, judgment.JudgmentID, appellant, "idem-appeal-1", httptransport.FileAppealRequest{
		Brief: "the evidence was misread",
	})
	require.NoError(t, err)
	require.True(t, replayed.Replayed)
	require.Equal(t, appeal.AppealCase.CaseID, replayed.AppealCase.CaseID)

	_, err = f.module.Handler.FileAppealHandler(ctx, judgment.JudgmentID, appellant, "idem-appeal-2", httptransport.FileAppealRequest{
		Brief: "second try",
	})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyAppealed)

	history, err := f.module.Handler.CaseHistoryHandler(ctx, origin.CaseID)
	require.NoError(t, err)
	require.True(t, history.Consistent)
	last := history.Changes[len(history.Changes)-1]
	require.Equal(t, "appealed_to_second_instance", last.ToStatus)
}

func TestAppealAfterWindowIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	origin, judgment := f.publishedJudgment(t)

	f.clock.Advance(20 * 24 * time.Hour)
	_, err := f.module.Handler.FileAppealHandler(ctx, judgment.JudgmentID, appellant, "", httptransport.FileAppealRequest{
		Brief: "too late",
	})
	require.ErrorIs(t, err, domainerrors.ErrWindowExpired)

	current, err := f.module.Handler.GetCaseHandler(ctx, origin.CaseID)
	require.NoError(t, err)
	require.Equal(t, "judged", current.Status)
}

func TestSecondInstanceJudgmentClosesChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	origin, judgment := f.publishedJudgment(t)
	h := f.module.Handler

	f.clock.Advance(24 * time.Hour)
	appeal, err := h.FileAppealHandler(ctx, judgment.JudgmentID, appellant, "", httptransport.FileAppealRequest{Brief: "reverse it"})
	require.NoError(t, err)
	appealID := appeal.AppealCase.CaseID

	_, err = h.BeginAdmissibilityReviewHandler(ctx, appealID, "clerk", httptransport.AssignRelatorRequest{RelatorID: "r2"})
	require.NoError(t, err)
	_, err = h.ReviewAdmissibilityHandler(ctx, appealID, "r2", httptransport.AdmissibilityRequest{Admit: true})
	require.NoError(t, err)
	second := f.openJudgment(t, appealID)
	f.vote(t, second.JudgmentID, map[string]entities.VoteValue{
		"r1": entities.VoteReject,
		"r2": entities.VoteReject,
		"r3": entities.VoteUphold,
	})
	closed, err := h.CloseVotingHandler(ctx, second.JudgmentID, "r1", httptransport.CloseVotingRequest{Reasoning: "reversed"})
	require.NoError(t, err)
	require.Equal(t, "rejected", closed.Outcome)

	appealCase, err := h.GetCaseHandler(ctx, appealID)
	require.NoError(t, err)
	require.Equal(t, "closed", appealCase.Status)
	originCase, err := h.GetCaseHandler(ctx, origin.CaseID)
	require.NoError(t, err)
	require.Equal(t, "closed", originCase.Status)
	require.Equal(t, "rejected", originCase.Disposition)
	require.Equal(t, "none", originCase.Sanction)

	require.Contains(t, pendingEventTypes(t, f.module.Outbox), "case.concluded")
}

func TestFileCaseIdempotencyReplayAndConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.module.Handler
	req := httptransport.FileCaseRequest{Kind: "challenge", Target: slateTarget()}

	first, err := h.FileCaseHandler(ctx, filerID, "idem-file-1", req)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.ProtocolNumber, "IMP-2026-"))
	second, err := h.FileCaseHandler(ctx, filerID, "idem-file-1", req)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.CaseID, second.CaseID)
	require.Equal(t, first.ProtocolNumber, second.ProtocolNumber)

	req.Kind = "complaint"
	_, err = h.FileCaseHandler(ctx, filerID, "idem-file-1", req)
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyConflict)
}

func TestFileCaseRejectsPartiesWithoutStanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.module.Handler

	_, err := h.FileCaseHandler(ctx, "stranger", "", httptransport.FileCaseRequest{Kind: "complaint", Target: slateTarget()})
	require.ErrorIs(t, err, domainerrors.ErrInvalidParty)

	_, err = h.FileCaseHandler(ctx, filerID, "", httptransport.FileCaseRequest{
		Kind:   "complaint",
		Target: httptransport.SubjectDTO{Kind: "slate", ID: "slate-unknown", ElectionID: electionID},
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidParty)

	_, err = h.FileCaseHandler(ctx, "", "", httptransport.FileCaseRequest{Kind: "challenge", Anonymous: true, Target: slateTarget()})
	require.ErrorIs(t, err, domainerrors.ErrInvalidParty)

	anonymous, err := h.FileCaseHandler(ctx, "", "", httptransport.FileCaseRequest{Kind: "complaint", Anonymous: true, Target: slateTarget()})
	require.NoError(t, err)
	require.Empty(t, anonymous.FilerID)
}

func TestRejectedAdmissibilityConcludesCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.module.Handler

	filed, err := h.FileCaseHandler(ctx, filerID, "", httptransport.FileCaseRequest{Kind: "complaint", Target: slateTarget()})
	require.NoError(t, err)
	_, err = h.BeginAdmissibilityReviewHandler(ctx, filed.CaseID, "clerk", httptransport.AssignRelatorRequest{RelatorID: "m2"})
	require.NoError(t, err)
	rejected, err := h.ReviewAdmissibilityHandler(ctx, filed.CaseID, "m2", httptransport.AdmissibilityRequest{Admit: false, Reasoning: "no standing facts"})
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)

	_, err = h.OpenDefensePeriodHandler(ctx, filed.CaseID, "clerk")
	require.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	archived, err := h.ArchiveCaseHandler(ctx, filed.CaseID, "clerk")
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)
	require.Contains(t, pendingEventTypes(t, f.module.Outbox), "case.concluded")
}

func TestOpenDisputeTracksCaseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, judgment := f.publishedJudgment(t)

	open, err := f.module.Queries.HasOpenDispute(ctx, electionID, []string{slateID, "slate-9"})
	require.NoError(t, err)
	require.True(t, open)
	other, err := f.module.Queries.HasOpenDispute(ctx, electionID, []string{"slate-9"})
	require.NoError(t, err)
	require.False(t, other)

	_, err = f.module.Handler.CloseCaseHandler(ctx, item.CaseID, "clerk")
	require.ErrorIs(t, err, domainerrors.ErrWindowOpen)

	f.clock.Advance(16 * 24 * time.Hour)
	require.NoError(t, f.module.Sweeper.RunOnce(ctx))

	closed, err := f.module.Handler.GetCaseHandler(ctx, item.CaseID)
	require.NoError(t, err)
	require.Equal(t, "closed", closed.Status)
	require.NotEmpty(t, judgment.JudgmentID)

	open, err = f.module.Queries.HasOpenDispute(ctx, electionID, []string{slateID})
	require.NoError(t, err)
	require.False(t, open)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domainerrors.ErrConflict
	}
	p.events = append(p.events, event)
	return nil
}

func TestOutboxRelayPublishesInOrderOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.admittedCase(t)

	publisher := &capturePublisher{fail: true}
	relay := f.module.OutboxRelay(publisher)
	require.Error(t, relay.RunOnce(ctx))
	require.NotEmpty(t, pendingEventTypes(t, f.module.Outbox))

	publisher.fail = false
	require.NoError(t, relay.RunOnce(ctx))
	require.Empty(t, pendingEventTypes(t, f.module.Outbox))
	require.Len(t, publisher.events, 3)
	for _, event := range publisher.events {
		require.Equal(t, "case.status_changed", event.EventType)
	}

	require.NoError(t, relay.RunOnce(ctx))
	require.Len(t, publisher.events, 3)
}

func TestCloseCaseRefusedWhileAppealWindowOpen(t *testing.T) {
	f := newFixture(t)
	item, _ := f.publishedJudgment(t)

	_, err := f.module.Handler.CloseCaseHandler(context.Background(), item.CaseID, "clerk")
	require.ErrorIs(t, err, domainerrors.ErrWindowOpen)
}

func TestSweeperClosesCaseAfterAppealWindowAndArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, published := f.publishedJudgment(t)

	require.NoError(t, f.module.Sweeper.RunOnce(ctx))
	current, err := f.module.Handler.GetCaseHandler(ctx, item.CaseID)
	require.NoError(t, err)
	require.Equal(t, "judged", current.Status)

	_, err = f.module.Handler.ArchiveCaseHandler(ctx, item.CaseID, "clerk")
	require.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	f.clock.Advance(published.AppealDeadline.Sub(f.clock.Now()) + time.Hour)
	require.NoError(t, f.module.Sweeper.RunOnce(ctx))
	current, err = f.module.Handler.GetCaseHandler(ctx, item.CaseID)
	require.NoError(t, err)
	require.Equal(t, "closed", current.Status)
	require.Contains(t, pendingEventTypes(t, f.module.Outbox), "case.concluded")

	archived, err := f.module.Handler.ArchiveCaseHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	again, err := f.module.Handler.ArchiveCaseHandler(ctx, item.CaseID, "clerk")
	require.NoError(t, err)
	require.True(t, archived.ArchivedAt.Equal(*again.ArchivedAt))
}

func TestSweeperReachesLapsedCaseBehindUnpublishedJudgments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := f.admittedCase(t)
	judgment := f.openJudgment(t, older.CaseID)
	f.vote(t, judgment.JudgmentID, map[string]entities.VoteValue{
		"m1": entities.VoteUphold,
		"m2": entities.VoteUphold,
		"m3": entities.VoteUphold,
		"m4": entities.VoteReject,
	})
	_, err := f.module.Handler.CloseVotingHandler(ctx, judgment.JudgmentID, "m1", httptransport.CloseVotingRequest{Reasoning: "proven"})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	newer, published := f.publishedJudgment(t)
	f.clock.Advance(published.AppealDeadline.Sub(f.clock.Now()) + time.Hour)

	sweeper := f.module.Sweeper
	sweeper.BatchSize = 1
	require.NoError(t, sweeper.RunOnce(ctx))

	current, err := f.module.Handler.GetCaseHandler(ctx, newer.CaseID)
	require.NoError(t, err)
	require.Equal(t, "closed", current.Status)
	current, err = f.module.Handler.GetCaseHandler(ctx, older.CaseID)
	require.NoError(t, err)
	require.Equal(t, "judged", current.Status)
}
