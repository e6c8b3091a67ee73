package memory

import (
	"context"
	"sort"
	"strings"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

// WithinCases locks the listed cases in sorted order, runs fn against a
// staging view and applies the staged writes in one step when fn succeeds.
func (s *Store) WithinCases(ctx context.Context, caseIDs []string, fn func(tx ports.CaseTx) error) error {
	ids := uniqueSorted(caseIDs)
	for _, id := range ids {
		lock := s.caseLock(id)
		lock.Lock()
		defer lock.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &caseTx{
		store:     s,
		cases:     make(map[string]entities.Case),
		judgments: make(map[string]entities.Judgment),
		votes:     make(map[string][]entities.CommitteeVote),
		appeals:   make(map[string]entities.Appeal),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *caseTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, envelope := range tx.outbox {
		if err := s.appendOutboxLocked(envelope); err != nil {
			return err
		}
	}
	for id, item := range tx.cases {
		s.cases[id] = item
	}
	for _, change := range tx.changes {
		s.changes[change.CaseID] = append(s.changes[change.CaseID], change)
	}
	for _, window := range tx.windows {
		s.windows[window.CaseID] = append(s.windows[window.CaseID], window)
	}
	for _, submission := range tx.submissions {
		s.submissions[submission.CaseID] = append(s.submissions[submission.CaseID], submission)
	}
	for id, judgment := range tx.judgments {
		s.judgments[id] = judgment
		s.judgmentByCase[judgment.CaseID] = id
	}
	for judgmentID, votes := range tx.votes {
		s.votes[judgmentID] = votes
	}
	for originJudgmentID, appeal := range tx.appeals {
		s.appeals[originJudgmentID] = appeal
	}
	return nil
}

// caseTx stages writes on top of the committed store. Reads see staged
// writes first.
type caseTx struct {
	store *Store

	cases       map[string]entities.Case
	changes     []entities.StatusChange
	windows     []entities.DeadlineWindow
	submissions []entities.Submission
	judgments   map[string]entities.Judgment
	votes       map[string][]entities.CommitteeVote
	appeals     map[string]entities.Appeal
	outbox      []ports.EventEnvelope
}

func (t *caseTx) GetCase(ctx context.Context, caseID string) (entities.Case, error) {
	caseID = strings.TrimSpace(caseID)
	if item, ok := t.cases[caseID]; ok {
		return item, nil
	}
	return t.store.GetCase(ctx, caseID)
}

func (t *caseTx) SaveCase(_ context.Context, item entities.Case) error {
	if strings.TrimSpace(item.CaseID) == "" {
		return domainerrors.ErrInvalidInput
	}
	t.cases[strings.TrimSpace(item.CaseID)] = item
	return nil
}

func (t *caseTx) AppendStatusChange(_ context.Context, change entities.StatusChange) error {
	t.changes = append(t.changes, change)
	return nil
}

func (t *caseTx) AppendDeadlineWindow(_ context.Context, window entities.DeadlineWindow) error {
	t.windows = append(t.windows, window)
	return nil
}

func (t *caseTx) CurrentDeadlineWindow(
	ctx context.Context,
	caseID string,
	kind entities.SubmissionKind,
) (entities.DeadlineWindow, bool, error) {
	caseID = strings.TrimSpace(caseID)
	committed, err := t.store.ListDeadlineWindows(ctx, caseID)
	if err != nil {
		return entities.DeadlineWindow{}, false, err
	}
	var (
		current entities.DeadlineWindow
		found   bool
	)
	for _, window := range append(committed, t.windows...) {
		if window.CaseID != caseID || window.Kind != kind {
			continue
		}
		if !found || window.Sequence > current.Sequence {
			current = window
			found = true
		}
	}
	return current, found, nil
}

func (t *caseTx) AppendSubmission(_ context.Context, submission entities.Submission) error {
	t.submissions = append(t.submissions, submission)
	return nil
}

func (t *caseTx) GetJudgment(ctx context.Context, judgmentID string) (entities.Judgment, error) {
	judgmentID = strings.TrimSpace(judgmentID)
	if judgment, ok := t.judgments[judgmentID]; ok {
		return judgment, nil
	}
	return t.store.GetJudgment(ctx, judgmentID)
}

func (t *caseTx) GetJudgmentByCase(ctx context.Context, caseID string) (entities.Judgment, bool, error) {
	caseID = strings.TrimSpace(caseID)
	for _, judgment := range t.judgments {
		if judgment.CaseID == caseID {
			return judgment, true, nil
		}
	}
	return t.store.GetJudgmentByCase(ctx, caseID)
}

func (t *caseTx) SaveJudgment(_ context.Context, judgment entities.Judgment) error {
	if strings.TrimSpace(judgment.JudgmentID) == "" {
		return domainerrors.ErrInvalidInput
	}
	t.judgments[strings.TrimSpace(judgment.JudgmentID)] = judgment
	return nil
}

func (t *caseTx) AppendVote(ctx context.Context, vote entities.CommitteeVote) error {
	votes, err := t.loadVotes(ctx, vote.JudgmentID)
	if err != nil {
		return err
	}
	for _, existing := range votes {
		if existing.VoterID == vote.VoterID {
			return domainerrors.ErrDuplicateVote
		}
	}
	t.votes[strings.TrimSpace(vote.JudgmentID)] = append(votes, vote)
	return nil
}

func (t *caseTx) ListVotes(ctx context.Context, judgmentID string) ([]entities.CommitteeVote, error) {
	votes, err := t.loadVotes(ctx, judgmentID)
	if err != nil {
		return nil, err
	}
	return append([]entities.CommitteeVote(nil), votes...), nil
}

func (t *caseTx) SaveVotes(ctx context.Context, updates []entities.CommitteeVote) error {
	for _, update := range updates {
		votes, err := t.loadVotes(ctx, update.JudgmentID)
		if err != nil {
			return err
		}
		for i := range votes {
			if votes[i].VoteID == update.VoteID {
				votes[i] = update
			}
		}
		t.votes[strings.TrimSpace(update.JudgmentID)] = votes
	}
	return nil
}

func (t *caseTx) loadVotes(ctx context.Context, judgmentID string) ([]entities.CommitteeVote, error) {
	judgmentID = strings.TrimSpace(judgmentID)
	if votes, ok := t.votes[judgmentID]; ok {
		return votes, nil
	}
	votes, err := t.store.ListVotes(ctx, judgmentID)
	if err != nil {
		return nil, err
	}
	t.votes[judgmentID] = votes
	return votes, nil
}

func (t *caseTx) AppendAppeal(ctx context.Context, appeal entities.Appeal) error {
	if _, found, err := t.GetAppealByJudgment(ctx, appeal.OriginJudgmentID); err != nil {
		return err
	} else if found {
		return domainerrors.ErrAlreadyAppealed
	}
	t.appeals[strings.TrimSpace(appeal.OriginJudgmentID)] = appeal
	return nil
}

func (t *caseTx) GetAppealByJudgment(_ context.Context, judgmentID string) (entities.Appeal, bool, error) {
	judgmentID = strings.TrimSpace(judgmentID)
	if appeal, ok := t.appeals[judgmentID]; ok {
		return appeal, true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	appeal, ok := t.store.appeals[judgmentID]
	return appeal, ok, nil
}

func (t *caseTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	t.outbox = append(t.outbox, envelope)
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ ports.CaseTx = (*caseTx)(nil)
