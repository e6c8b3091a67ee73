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

type SubmitCommand struct {
	CaseID  string
	Kind    entities.SubmissionKind
	PartyID string
	Content string
	// FiledAt defaults to the injected clock when zero.
	FiledAt time.Time
}

type ExtendDeadlineCommand struct {
	CaseID    string
	ActorID   string
	Kind      entities.SubmissionKind
	ExtraDays int
	Reason    string
}

// Submit records a party filing against the current window for its kind.
// A late filing is stored with Timely=false; it is never refused for being
// late.
func (uc CaseUseCase) Submit(ctx context.Context, cmd SubmitCommand) (entities.Submission, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.CaseID) == "" || !cmd.Kind.Valid() || cmd.Kind == entities.SubmissionKindAppealBrief {
		return entities.Submission{}, uc.fail(ctx, "submit", cmd.CaseID, cmd.PartyID, domainerrors.ErrInvalidInput)
	}

	var result entities.Submission
	err := uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Terminal() {
			return domainerrors.ErrInvalidTransition
		}
		window, found, err := tx.CurrentDeadlineWindow(ctx, item.CaseID, cmd.Kind)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNoDeadlineWindow
		}

		now := uc.now()
		filedAt := cmd.FiledAt.UTC()
		if cmd.FiledAt.IsZero() {
			filedAt = now
		}
		submissionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		submission := entities.Submission{
			SubmissionID: submissionID,
			CaseID:       item.CaseID,
			Kind:         cmd.Kind,
			PartyID:      strings.TrimSpace(cmd.PartyID),
			Content:      cmd.Content,
			FiledAt:      filedAt,
			WindowID:     window.WindowID,
			DeadlineAt:   window.DueAt,
			Timely:       entities.IsTimely(filedAt, window.DueAt),
			RecordedAt:   now,
		}
		if err := tx.AppendSubmission(ctx, submission); err != nil {
			return err
		}
		if err := uc.appendCaseEvent(ctx, tx, EventSubmissionRecorded, item, now, map[string]any{
			"submission_id":   submission.SubmissionID,
			"submission_kind": string(submission.Kind),
			"timely":          submission.Timely,
			"deadline_at":     submission.DeadlineAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		result = submission
		return nil
	})
	if err != nil {
		return entities.Submission{}, uc.fail(ctx, "submit", cmd.CaseID, cmd.PartyID, err)
	}

	if uc.Metrics != nil {
		uc.Metrics.ObserveSubmission(result.Kind, result.Timely)
	}
	if !result.Timely {
		logger.Warn("submission filed after deadline",
			"event", "case_submission_late",
			"module", "adjudication/case-service",
			"layer", "application",
			"case_id", result.CaseID,
			"submission_id", result.SubmissionID,
			"kind", string(result.Kind),
			"deadline_at", result.DeadlineAt.Format(time.RFC3339),
			"filed_at", result.FiledAt.Format(time.RFC3339),
		)
	}
	return result, nil
}

// ExtendDeadline appends a window that supersedes the current one for the
// kind. Submissions already stored keep the deadline they were judged by.
func (uc CaseUseCase) ExtendDeadline(ctx context.Context, cmd ExtendDeadlineCommand) (entities.DeadlineWindow, error) {
	if cmd.ExtraDays <= 0 || !cmd.Kind.Valid() {
		return entities.DeadlineWindow{}, uc.fail(ctx, "extend_deadline", cmd.CaseID, cmd.ActorID, domainerrors.ErrInvalidInput)
	}

	var result entities.DeadlineWindow
	err := uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Terminal() {
			return domainerrors.ErrInvalidTransition
		}
		current, found, err := tx.CurrentDeadlineWindow(ctx, item.CaseID, cmd.Kind)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrNoDeadlineWindow
		}
		due, err := uc.computeDeadline(current.DueAt, cmd.ExtraDays)
		if err != nil {
			return err
		}
		now := uc.now()
		windowID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		window := entities.DeadlineWindow{
			WindowID:     windowID,
			CaseID:       item.CaseID,
			Kind:         cmd.Kind,
			Sequence:     current.Sequence + 1,
			OpensAt:      current.OpensAt,
			DueAt:        due,
			Days:         current.Days + cmd.ExtraDays,
			Mode:         current.Mode,
			SupersedesID: current.WindowID,
			Reason:       strings.TrimSpace(cmd.Reason),
			CreatedAt:    now,
		}
		if err := tx.AppendDeadlineWindow(ctx, window); err != nil {
			return err
		}
		if err := uc.appendCaseEvent(ctx, tx, EventDeadlineExtended, item, now, map[string]any{
			"window_id":       window.WindowID,
			"supersedes_id":   window.SupersedesID,
			"submission_kind": string(window.Kind),
			"due_at":          window.DueAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
		result = window
		return nil
	})
	if err != nil {
		return entities.DeadlineWindow{}, uc.fail(ctx, "extend_deadline", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}
