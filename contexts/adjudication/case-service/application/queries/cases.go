package queries

import (
	"context"
	"sort"
	"strings"

	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

type CaseQueries struct {
	Cases ports.CaseReader
}

// CaseHistory is the status trail of a case. Consistent is false when the
// stored trail does not walk legal edges from filed.
type CaseHistory struct {
	Case       entities.Case
	Changes    []entities.StatusChange
	Consistent bool
}

type JudgmentView struct {
	Judgment entities.Judgment
	Votes    []entities.CommitteeVote
}

func (q CaseQueries) GetCase(ctx context.Context, caseID string) (entities.Case, error) {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return entities.Case{}, domainerrors.ErrInvalidInput
	}
	return q.Cases.GetCase(ctx, caseID)
}

func (q CaseQueries) History(ctx context.Context, caseID string) (CaseHistory, error) {
	item, err := q.GetCase(ctx, caseID)
	if err != nil {
		return CaseHistory{}, err
	}
	changes, err := q.Cases.ListStatusChanges(ctx, item.CaseID)
	if err != nil {
		return CaseHistory{}, err
	}
	return CaseHistory{
		Case:       item,
		Changes:    changes,
		Consistent: entities.ValidateHistory(changes),
	}, nil
}

// ListSubmissions returns filings in filing order. Late filings are kept in
// the ledger and only returned when includeLate is set.
func (q CaseQueries) ListSubmissions(ctx context.Context, caseID string, includeLate bool) ([]entities.Submission, error) {
	item, err := q.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	submissions, err := q.Cases.ListSubmissions(ctx, item.CaseID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(submissions, func(i, j int) bool {
		return submissions[i].FiledAt.Before(submissions[j].FiledAt)
	})
	if includeLate {
		return submissions, nil
	}
	timely := make([]entities.Submission, 0, len(submissions))
	for _, submission := range submissions {
		if submission.Timely {
			timely = append(timely, submission)
		}
	}
	return timely, nil
}

func (q CaseQueries) ListDeadlineWindows(ctx context.Context, caseID string) ([]entities.DeadlineWindow, error) {
	item, err := q.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	windows, err := q.Cases.ListDeadlineWindows(ctx, item.CaseID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Kind == windows[j].Kind {
			return windows[i].Sequence < windows[j].Sequence
		}
		return windows[i].Kind < windows[j].Kind
	})
	return windows, nil
}

func (q CaseQueries) GetJudgment(ctx context.Context, judgmentID string) (JudgmentView, error) {
	judgmentID = strings.TrimSpace(judgmentID)
	if judgmentID == "" {
		return JudgmentView{}, domainerrors.ErrInvalidInput
	}
	judgment, err := q.Cases.GetJudgment(ctx, judgmentID)
	if err != nil {
		return JudgmentView{}, err
	}
	votes, err := q.Cases.ListVotes(ctx, judgment.JudgmentID)
	if err != nil {
		return JudgmentView{}, err
	}
	return JudgmentView{Judgment: judgment, Votes: votes}, nil
}

func (q CaseQueries) JudgmentForCase(ctx context.Context, caseID string) (JudgmentView, error) {
	item, err := q.GetCase(ctx, caseID)
	if err != nil {
		return JudgmentView{}, err
	}
	judgment, found, err := q.Cases.GetJudgmentByCase(ctx, item.CaseID)
	if err != nil {
		return JudgmentView{}, err
	}
	if !found {
		return JudgmentView{}, domainerrors.ErrJudgmentNotFound
	}
	return q.GetJudgment(ctx, judgment.JudgmentID)
}

func (q CaseQueries) ListCases(ctx context.Context, filter ports.CaseFilter) ([]entities.Case, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	filter.ElectionID = strings.TrimSpace(filter.ElectionID)
	return q.Cases.ListCases(ctx, filter)
}

// HasOpenDispute reports whether any non-terminal case of the election
// targets the tally or one of the given slates.
func (q CaseQueries) HasOpenDispute(ctx context.Context, electionID string, slateIDs []string) (bool, error) {
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return false, domainerrors.ErrInvalidInput
	}
	open, err := q.Cases.ListCases(ctx, ports.CaseFilter{ElectionID: electionID, OpenOnly: true})
	if err != nil {
		return false, err
	}
	for _, item := range open {
		if item.Open() && item.Target.TouchesTally(electionID, slateIDs) {
			return true, nil
		}
	}
	return false, nil
}
