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

type FileAppealCommand struct {
	IdempotencyKey   string
	OriginJudgmentID string
	AppellantID      string
	Brief            string
	// FiledAt defaults to the injected clock when zero.
	FiledAt time.Time
}

type FileAppealResult struct {
	Appeal     entities.Appeal
	AppealCase entities.Case
	Origin     entities.Case
	Replayed   bool
}

// FileAppeal opens the next instance for a published judgment. The origin
// walks judged, appeal_pending and appealed_to_second_instance in the same
// unit of work that creates the appeal case and stores the brief.
func (uc CaseUseCase) FileAppeal(ctx context.Context, cmd FileAppealCommand) (FileAppealResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.AppellantID = strings.TrimSpace(cmd.AppellantID)
	if strings.TrimSpace(cmd.OriginJudgmentID) == "" || cmd.AppellantID == "" {
		return FileAppealResult{}, uc.fail(ctx, "file_appeal", "", cmd.AppellantID, domainerrors.ErrInvalidInput)
	}

	now := uc.now()
	filedAt := cmd.FiledAt.UTC()
	if cmd.FiledAt.IsZero() {
		filedAt = now
	}
	requestHash := hashCommand("file_appeal", map[string]string{
		"origin_judgment_id": cmd.OriginJudgmentID,
		"appellant_id":       cmd.AppellantID,
		"brief":              cmd.Brief,
	})
	if caseID, found, err := uc.replay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return FileAppealResult{}, uc.fail(ctx, "file_appeal", "", cmd.AppellantID, err)
	} else if found {
		appealCase, err := uc.Cases.GetCase(ctx, caseID)
		if err != nil {
			return FileAppealResult{}, err
		}
		origin, err := uc.Cases.GetCase(ctx, appealCase.OriginCaseID)
		if err != nil {
			return FileAppealResult{}, err
		}
		return FileAppealResult{AppealCase: appealCase, Origin: origin, Replayed: true}, nil
	}

	judgment, err := uc.Cases.GetJudgment(ctx, cmd.OriginJudgmentID)
	if err != nil {
		return FileAppealResult{}, uc.fail(ctx, "file_appeal", "", cmd.AppellantID, err)
	}
	origin, err := uc.Cases.GetCase(ctx, judgment.CaseID)
	if err != nil {
		return FileAppealResult{}, uc.fail(ctx, "file_appeal", judgment.CaseID, cmd.AppellantID, err)
	}
	if uc.Parties != nil {
		ok, err := uc.Parties.HasStanding(ctx, cmd.AppellantID, origin.Target.ElectionID)
		if err != nil {
			return FileAppealResult{}, uc.fail(ctx, "file_appeal", origin.CaseID, cmd.AppellantID, err)
		}
		if !ok {
			return FileAppealResult{}, uc.fail(ctx, "file_appeal", origin.CaseID, cmd.AppellantID, domainerrors.ErrInvalidParty)
		}
	}

	appealCaseID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return FileAppealResult{}, err
	}

	var result FileAppealResult
	err = uc.UnitOfWork.WithinCases(ctx, []string{origin.CaseID, appealCaseID}, func(tx ports.CaseTx) error {
		current, err := tx.GetJudgment(ctx, cmd.OriginJudgmentID)
		if err != nil {
			return err
		}
		if !current.Published() || current.AppealDeadline == nil {
			return domainerrors.ErrJudgmentNotPublished
		}
		if _, found, err := tx.GetAppealByJudgment(ctx, current.JudgmentID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrAlreadyAppealed
		}
		if filedAt.After(*current.AppealDeadline) {
			return domainerrors.ErrWindowExpired
		}
		originCase, err := tx.GetCase(ctx, current.CaseID)
		if err != nil {
			return err
		}
		if originCase.Status != entities.CaseStatusJudged || originCase.Tier >= uc.statute().MaxTier {
			return domainerrors.ErrInvalidTransition
		}

		appealCase := entities.Case{
			CaseID:           appealCaseID,
			Kind:             originCase.Kind,
			Instance:         entities.InstanceSecond,
			Tier:             originCase.Tier + 1,
			Target:           originCase.Target,
			FilerID:          cmd.AppellantID,
			OriginCaseID:     originCase.CaseID,
			OriginJudgmentID: current.JudgmentID,
			Sanction:         entities.SanctionNone,
			FiledAt:          filedAt,
			UpdatedAt:        now,
		}
		protocol, err := uc.issueProtocol(ctx, tx, appealCase.ProtocolPrefix(), filedAt)
		if err != nil {
			return err
		}
		appealCase.ProtocolNumber = protocol

		if err := uc.transition(ctx, tx, &originCase, entities.CaseStatusAppealPending, cmd.AppellantID, appealCaseID, "", now); err != nil {
			return err
		}
		originCase.AppealCaseID = appealCaseID
		if err := uc.transition(ctx, tx, &originCase, entities.CaseStatusAppealedToSecondInstance, cmd.AppellantID, appealCaseID, "", now); err != nil {
			return err
		}
		if err := uc.registerCase(ctx, tx, &appealCase, cmd.AppellantID, now); err != nil {
			return err
		}

		windowID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		window := entities.DeadlineWindow{
			WindowID:  windowID,
			CaseID:    appealCaseID,
			Kind:      entities.SubmissionKindAppealBrief,
			Sequence:  1,
			OpensAt:   *current.PublishedAt,
			DueAt:     *current.AppealDeadline,
			Days:      uc.statute().AppealDays,
			Mode:      uc.statute().Mode,
			CreatedAt: now,
		}
		if err := tx.AppendDeadlineWindow(ctx, window); err != nil {
			return err
		}
		submissionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		if err := tx.AppendSubmission(ctx, entities.Submission{
			SubmissionID: submissionID,
			CaseID:       appealCaseID,
			Kind:         entities.SubmissionKindAppealBrief,
			PartyID:      cmd.AppellantID,
			Content:      cmd.Brief,
			FiledAt:      filedAt,
			WindowID:     window.WindowID,
			DeadlineAt:   window.DueAt,
			Timely:       entities.IsTimely(filedAt, window.DueAt),
			RecordedAt:   now,
		}); err != nil {
			return err
		}

		appealID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		appeal := entities.Appeal{
			AppealID:         appealID,
			OriginJudgmentID: current.JudgmentID,
			OriginCaseID:     originCase.CaseID,
			AppealCaseID:     appealCaseID,
			AppellantID:      cmd.AppellantID,
			FiledAt:          filedAt,
			WindowDeadline:   *current.AppealDeadline,
		}
		if err := tx.AppendAppeal(ctx, appeal); err != nil {
			return err
		}
		if err := uc.appendCaseEvent(ctx, tx, EventAppealFiled, originCase, now, map[string]any{
			"appeal_id":          appeal.AppealID,
			"appeal_case_id":     appealCaseID,
			"origin_judgment_id": current.JudgmentID,
		}); err != nil {
			return err
		}
		result = FileAppealResult{Appeal: appeal, AppealCase: appealCase, Origin: originCase}
		return nil
	})
	if err != nil {
		return FileAppealResult{}, uc.fail(ctx, "file_appeal", origin.CaseID, cmd.AppellantID, err)
	}
	if err := uc.remember(ctx, cmd.IdempotencyKey, requestHash, appealCaseID, now); err != nil {
		return FileAppealResult{}, err
	}

	logger.Info("appeal filed",
		"event", "case_appeal_filed",
		"module", "adjudication/case-service",
		"layer", "application",
		"origin_case_id", result.Origin.CaseID,
		"appeal_case_id", result.AppealCase.CaseID,
		"protocol_number", result.AppealCase.ProtocolNumber,
	)
	return result, nil
}
