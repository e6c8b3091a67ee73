package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "eleitoral/contexts/adjudication/case-service/application"
	"eleitoral/contexts/adjudication/case-service/application/commands"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

// AppealWindowSweeper closes judged cases whose appeal window lapsed without
// an appeal.
type AppealWindowSweeper struct {
	Cases     ports.CaseReader
	UseCase   commands.CaseUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j AppealWindowSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}
	judged, err := j.Cases.ListCases(ctx, ports.CaseFilter{
		Statuses:           []entities.CaseStatus{entities.CaseStatusJudged},
		AppealLapsedBefore: now,
		Limit:              limit,
	})
	if err != nil {
		logger.Error("appeal window sweep failed",
			"event", "case_appeal_window_sweep_failed",
			"module", "adjudication/case-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	closed := 0
	for _, item := range judged {
		judgment, found, err := j.Cases.GetJudgmentByCase(ctx, item.CaseID)
		if err != nil {
			return err
		}
		if !found || judgment.AppealDeadline == nil || !now.After(*judgment.AppealDeadline) {
			continue
		}
		_, err = j.UseCase.CloseCase(ctx, commands.CaseActionCommand{CaseID: item.CaseID, ActorID: "system:appeal-window-sweeper"})
		switch {
		case err == nil:
			closed++
		case errors.Is(err, domainerrors.ErrWindowOpen),
			errors.Is(err, domainerrors.ErrJudgmentNotPublished),
			errors.Is(err, domainerrors.ErrInvalidTransition):
			continue
		default:
			logger.Error("appeal window close failed",
				"event", "case_appeal_window_close_failed",
				"module", "adjudication/case-service",
				"layer", "worker",
				"case_id", item.CaseID,
				"error", err.Error(),
			)
			return err
		}
	}
	if closed > 0 {
		logger.Info("appeal window sweep completed",
			"event", "case_appeal_window_sweep_completed",
			"module", "adjudication/case-service",
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return nil
}
