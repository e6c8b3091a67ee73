package commands

import (
	"context"
	"strings"
	"time"

	application "eleitoral/contexts/adjudication/case-service/application"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

type CastVoteCommand struct {
	JudgmentID string
	VoterID    string
	Value      entities.VoteValue
}

type CloseVotingCommand struct {
	JudgmentID string
	ActorID    string
	Reasoning  string
	// Sanction applies only when the outcome upholds the case.
	Sanction entities.Sanction
}

type RecordOpinionCommand struct {
	JudgmentID     string
	RelatorID      string
	Recommendation entities.Outcome
	Summary        string
	Grounds        string
	Conclusion     string
}

type PublishJudgmentCommand struct {
	JudgmentID string
	ActorID    string
}

// CastVote records one committee member's vote. Votes are serialized with
// closure under the case lock, so none can land after closure begins.
func (uc CaseUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.CommitteeVote, error) {
	if strings.TrimSpace(cmd.JudgmentID) == "" || strings.TrimSpace(cmd.VoterID) == "" || !cmd.Value.Valid() {
		return entities.CommitteeVote{}, uc.fail(ctx, "cast_vote", "", cmd.VoterID, domainerrors.ErrInvalidInput)
	}
	judgment, err := uc.Cases.GetJudgment(ctx, cmd.JudgmentID)
	if err != nil {
		return entities.CommitteeVote{}, uc.fail(ctx, "cast_vote", "", cmd.VoterID, err)
	}

	var result entities.CommitteeVote
	err = uc.UnitOfWork.WithinCases(ctx, []string{judgment.CaseID}, func(tx ports.CaseTx) error {
		current, err := tx.GetJudgment(ctx, cmd.JudgmentID)
		if err != nil {
			return err
		}
		if current.Status != entities.JudgmentStatusOpen {
			return domainerrors.ErrJudgmentClosed
		}
		item, err := tx.GetCase(ctx, current.CaseID)
		if err != nil {
			return err
		}
		member, ok := current.Member(cmd.VoterID)
		if !ok || member.Impeded(item) {
			return domainerrors.ErrIneligible
		}
		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		vote := entities.CommitteeVote{
			VoteID:     voteID,
			JudgmentID: current.JudgmentID,
			VoterID:    member.MemberID,
			Value:      cmd.Value,
			CastAt:     uc.now(),
		}
		if err := tx.AppendVote(ctx, vote); err != nil {
			return err
		}
		result = vote
		return nil
	})
	if err != nil {
		return entities.CommitteeVote{}, uc.fail(ctx, "cast_vote", judgment.CaseID, cmd.VoterID, err)
	}
	return result, nil
}

// RecordOpinion stores the relator's opinion on an open judgment. Only the
// judgment's relator may record it, and a later call replaces the earlier
// text until voting closes.
func (uc CaseUseCase) RecordOpinion(ctx context.Context, cmd RecordOpinionCommand) (entities.Judgment, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.RelatorID = strings.TrimSpace(cmd.RelatorID)
	cmd.Summary = strings.TrimSpace(cmd.Summary)
	cmd.Grounds = strings.TrimSpace(cmd.Grounds)
	cmd.Conclusion = strings.TrimSpace(cmd.Conclusion)
	switch cmd.Recommendation {
	case entities.OutcomeUpheld, entities.OutcomeRejected, entities.OutcomePartiallyUpheld:
	default:
		return entities.Judgment{}, uc.fail(ctx, "record_opinion", "", cmd.RelatorID, domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.JudgmentID) == "" || cmd.RelatorID == "" || cmd.Grounds == "" || cmd.Conclusion == "" {
		return entities.Judgment{}, uc.fail(ctx, "record_opinion", "", cmd.RelatorID, domainerrors.ErrInvalidInput)
	}
	judgment, err := uc.Cases.GetJudgment(ctx, cmd.JudgmentID)
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "record_opinion", "", cmd.RelatorID, err)
	}

	var result entities.Judgment
	err = uc.UnitOfWork.WithinCases(ctx, []string{judgment.CaseID}, func(tx ports.CaseTx) error {
		current, err := tx.GetJudgment(ctx, cmd.JudgmentID)
		if err != nil {
			return err
		}
		if current.Status != entities.JudgmentStatusOpen {
			return domainerrors.ErrJudgmentClosed
		}
		if strings.TrimSpace(current.RelatorID) != cmd.RelatorID {
			return domainerrors.ErrIneligible
		}
		current.Opinion = &entities.RelatorOpinion{
			Recommendation: cmd.Recommendation,
			Summary:        cmd.Summary,
			Grounds:        cmd.Grounds,
			Conclusion:     cmd.Conclusion,
			RecordedAt:     uc.now(),
		}
		if err := tx.SaveJudgment(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "record_opinion", judgment.CaseID, cmd.RelatorID, err)
	}
	logger.Info("relator opinion recorded",
		"event", "case_opinion_recorded",
		"module", "adjudication/case-service",
		"layer", "application",
		"case_id", result.CaseID,
		"judgment_id", result.JudgmentID,
		"recommendation", string(cmd.Recommendation),
	)
	return result, nil
}

// CloseVoting checks quorum, resolves the outcome, flags winning votes and
// moves the case to judged. A second-instance judgment writes its outcome to
// every ancestor and closes the direct origin; at the last tier it also
// closes its own case.
func (uc CaseUseCase) CloseVoting(ctx context.Context, cmd CloseVotingCommand) (entities.Judgment, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.Sanction == "" {
		cmd.Sanction = entities.SanctionNone
	}
	if !cmd.Sanction.Valid() {
		return entities.Judgment{}, uc.fail(ctx, "close_voting", "", cmd.ActorID, domainerrors.ErrInvalidInput)
	}
	judgment, err := uc.Cases.GetJudgment(ctx, cmd.JudgmentID)
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "close_voting", "", cmd.ActorID, err)
	}
	ids, err := uc.chainIDs(ctx, judgment.CaseID)
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "close_voting", judgment.CaseID, cmd.ActorID, err)
	}

	statute := uc.statute()
	var result entities.Judgment
	err = uc.UnitOfWork.WithinCases(ctx, ids, func(tx ports.CaseTx) error {
		current, err := tx.GetJudgment(ctx, cmd.JudgmentID)
		if err != nil {
			return err
		}
		if current.Status != entities.JudgmentStatusOpen {
			return domainerrors.ErrJudgmentClosed
		}
		votes, err := tx.ListVotes(ctx, current.JudgmentID)
		if err != nil {
			return err
		}
		if len(votes) < entities.QuorumSize(len(current.Roster), statute.QuorumFraction) {
			return domainerrors.ErrQuorumNotMet
		}

		resolution := entities.ResolveOutcome(votes, current.PresidingID, current.RelatorID)
		if err := tx.SaveVotes(ctx, entities.WinningVotes(votes, resolution.Outcome)); err != nil {
			return err
		}

		now := uc.now()
		sanction := cmd.Sanction
		if resolution.Outcome == entities.OutcomeRejected {
			sanction = entities.SanctionNone
		}
		current.Status = entities.JudgmentStatusClosed
		current.Outcome = resolution.Outcome
		current.Decision = resolution.Decision
		current.Reasoning = strings.TrimSpace(cmd.Reasoning)
		current.Sanction = sanction
		current.DecidedAt = &now
		if err := tx.SaveJudgment(ctx, current); err != nil {
			return err
		}

		item, err := tx.GetCase(ctx, current.CaseID)
		if err != nil {
			return err
		}
		item.Disposition = resolution.Outcome
		item.Sanction = sanction
		if err := uc.transition(ctx, tx, &item, entities.CaseStatusJudged, cmd.ActorID, current.JudgmentID, string(resolution.Decision), now); err != nil {
			return err
		}
		if err := uc.appendCaseEvent(ctx, tx, EventJudgmentClosed, item, now, map[string]any{
			"judgment_id": current.JudgmentID,
			"outcome":     string(resolution.Outcome),
			"decision":    string(resolution.Decision),
			"sanction":    string(sanction),
			"votes_cast":  len(votes),
		}); err != nil {
			return err
		}

		if item.Instance == entities.InstanceSecond {
			if err := uc.propagate(ctx, tx, item, ids, cmd.ActorID, now); err != nil {
				return err
			}
			if item.Tier >= statute.MaxTier {
				if err := uc.transition(ctx, tx, &item, entities.CaseStatusClosed, cmd.ActorID, current.JudgmentID, "last instance judged", now); err != nil {
					return err
				}
				root, err := tx.GetCase(ctx, ids[len(ids)-1])
				if err != nil {
					return err
				}
				if err := uc.conclude(ctx, tx, root, item.CaseID, now); err != nil {
					return err
				}
			}
		}
		result = current
		return nil
	})
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "close_voting", judgment.CaseID, cmd.ActorID, err)
	}

	if uc.Metrics != nil {
		uc.Metrics.ObserveJudgment(result.Outcome, result.Decision)
	}
	logger.Info("judgment voting closed",
		"event", "case_judgment_closed",
		"module", "adjudication/case-service",
		"layer", "application",
		"judgment_id", result.JudgmentID,
		"case_id", result.CaseID,
		"outcome", string(result.Outcome),
		"decision", string(result.Decision),
	)
	return result, nil
}

// propagate writes a second-instance disposition up the chain and closes the
// direct origin, which waits in appealed_to_second_instance.
func (uc CaseUseCase) propagate(ctx context.Context, tx ports.CaseTx, item entities.Case, ids []string, actorID string, now time.Time) error {
	for i, ancestorID := range ids[1:] {
		ancestor, err := tx.GetCase(ctx, ancestorID)
		if err != nil {
			return err
		}
		ancestor.Disposition = item.Disposition
		ancestor.Sanction = item.Sanction
		if i == 0 {
			if err := uc.transition(ctx, tx, &ancestor, entities.CaseStatusClosed, actorID, item.CaseID, "appeal judged", now); err != nil {
				return err
			}
			continue
		}
		ancestor.UpdatedAt = now
		if err := tx.SaveCase(ctx, ancestor); err != nil {
			return err
		}
	}
	return nil
}

// PublishJudgment publishes a closed judgment and opens its appeal window.
// Publishing twice returns the stored judgment.
func (uc CaseUseCase) PublishJudgment(ctx context.Context, cmd PublishJudgmentCommand) (entities.Judgment, error) {
	judgment, err := uc.Cases.GetJudgment(ctx, cmd.JudgmentID)
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "publish_judgment", "", cmd.ActorID, err)
	}

	var result entities.Judgment
	err = uc.UnitOfWork.WithinCases(ctx, []string{judgment.CaseID}, func(tx ports.CaseTx) error {
		current, err := tx.GetJudgment(ctx, cmd.JudgmentID)
		if err != nil {
			return err
		}
		if current.Status != entities.JudgmentStatusClosed {
			return domainerrors.ErrInvalidTransition
		}
		if current.Published() {
			result = current
			return nil
		}
		now := uc.now()
		deadline, err := uc.computeDeadline(now, uc.statute().AppealDays)
		if err != nil {
			return err
		}
		current.PublishedAt = &now
		current.AppealDeadline = &deadline
		if err := tx.SaveJudgment(ctx, current); err != nil {
			return err
		}
		item, err := tx.GetCase(ctx, current.CaseID)
		if err != nil {
			return err
		}
		if err := uc.appendCaseEvent(ctx, tx, EventJudgmentPublished, item, now, map[string]any{
			"judgment_id":     current.JudgmentID,
			"outcome":         string(current.Outcome),
			"appeal_deadline": deadline.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "publish_judgment", judgment.CaseID, cmd.ActorID, err)
	}
	return result, nil
}
