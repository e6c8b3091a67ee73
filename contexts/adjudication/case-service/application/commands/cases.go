package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	application "eleitoral/contexts/adjudication/case-service/application"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	domainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	"eleitoral/contexts/adjudication/case-service/ports"
)

type FileCaseCommand struct {
	IdempotencyKey string
	Kind           entities.CaseKind
	FilerID        string
	Anonymous      bool
	Target         entities.Subject
}

type FileCaseResult struct {
	Case     entities.Case
	Replayed bool
}

type AssignRelatorCommand struct {
	CaseID    string
	ActorID   string
	RelatorID string
}

type ReviewAdmissibilityCommand struct {
	CaseID    string
	ActorID   string
	Admit     bool
	Reasoning string
}

type CaseActionCommand struct {
	CaseID  string
	ActorID string
}

// OpenPeriodResult carries the windows of the stage. AlreadyOpen marks an
// idempotent replay that wrote nothing.
type OpenPeriodResult struct {
	Case        entities.Case
	Windows     []entities.DeadlineWindow
	AlreadyOpen bool
}

type SendToJudgmentCommand struct {
	CaseID      string
	ActorID     string
	PresidingID string
}

// FileCase registers a complaint or challenge in filed status and issues its
// protocol number.
func (uc CaseUseCase) FileCase(ctx context.Context, cmd FileCaseCommand) (FileCaseResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("case filing started",
		"event", "case_file_started",
		"module", "adjudication/case-service",
		"layer", "application",
		"kind", string(cmd.Kind),
		"subject_kind", string(cmd.Target.Kind),
		"subject_id", strings.TrimSpace(cmd.Target.ID),
		"anonymous", cmd.Anonymous,
	)

	cmd.FilerID = strings.TrimSpace(cmd.FilerID)
	if cmd.Anonymous {
		cmd.FilerID = ""
	}
	if (cmd.Kind != entities.CaseKindComplaint && cmd.Kind != entities.CaseKindChallenge) ||
		!cmd.Target.Valid() ||
		strings.TrimSpace(cmd.Target.ElectionID) == "" {
		return FileCaseResult{}, uc.fail(ctx, "file", "", cmd.FilerID, domainerrors.ErrInvalidInput)
	}
	if cmd.Anonymous && cmd.Kind != entities.CaseKindComplaint {
		return FileCaseResult{}, uc.fail(ctx, "file", "", cmd.FilerID, domainerrors.ErrInvalidParty)
	}
	if !cmd.Anonymous && cmd.FilerID == "" {
		return FileCaseResult{}, uc.fail(ctx, "file", "", cmd.FilerID, domainerrors.ErrInvalidParty)
	}

	now := uc.now()
	requestHash := hashCommand("file_case", map[string]string{
		"kind":         string(cmd.Kind),
		"filer_id":     cmd.FilerID,
		"subject_kind": string(cmd.Target.Kind),
		"subject_id":   cmd.Target.ID,
		"election_id":  cmd.Target.ElectionID,
		"slate_id":     cmd.Target.SlateID,
	})
	if caseID, found, err := uc.replay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return FileCaseResult{}, uc.fail(ctx, "file", "", cmd.FilerID, err)
	} else if found {
		item, err := uc.Cases.GetCase(ctx, caseID)
		if err != nil {
			return FileCaseResult{}, err
		}
		logger.Info("case filing replayed",
			"event", "case_file_replayed",
			"module", "adjudication/case-service",
			"layer", "application",
			"case_id", item.CaseID,
		)
		return FileCaseResult{Case: item, Replayed: true}, nil
	}

	if err := uc.checkStanding(ctx, cmd); err != nil {
		return FileCaseResult{}, uc.fail(ctx, "file", "", cmd.FilerID, err)
	}

	caseID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return FileCaseResult{}, err
	}
	item := entities.Case{
		CaseID:    caseID,
		Kind:      cmd.Kind,
		Instance:  entities.InstanceFirst,
		Tier:      1,
		Target:    cmd.Target,
		FilerID:   cmd.FilerID,
		Anonymous: cmd.Anonymous,
		Sanction:  entities.SanctionNone,
		FiledAt:   now,
		UpdatedAt: now,
	}
	err = uc.UnitOfWork.WithinCases(ctx, []string{caseID}, func(tx ports.CaseTx) error {
		protocol, err := uc.issueProtocol(ctx, tx, item.ProtocolPrefix(), now)
		if err != nil {
			return err
		}
		item.ProtocolNumber = protocol
		return uc.registerCase(ctx, tx, &item, cmd.FilerID, now)
	})
	if err != nil {
		return FileCaseResult{}, uc.fail(ctx, "file", caseID, cmd.FilerID, err)
	}
	if err := uc.remember(ctx, cmd.IdempotencyKey, requestHash, caseID, now); err != nil {
		return FileCaseResult{}, err
	}

	logger.Info("case filed",
		"event", "case_filed",
		"module", "adjudication/case-service",
		"layer", "application",
		"case_id", item.CaseID,
		"protocol_number", item.ProtocolNumber,
	)
	return FileCaseResult{Case: item}, nil
}

// BeginAdmissibilityReview assigns the relator and opens the review.
func (uc CaseUseCase) BeginAdmissibilityReview(ctx context.Context, cmd AssignRelatorCommand) (entities.Case, error) {
	roster, err := uc.rosterFor(ctx, cmd.CaseID)
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "admissibility_review", cmd.CaseID, cmd.ActorID, err)
	}

	var result entities.Case
	err = uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Status != entities.CaseStatusFiled {
			return domainerrors.ErrInvalidTransition
		}
		relator, ok := findMember(roster, cmd.RelatorID)
		if !ok || relator.Impeded(item) {
			return domainerrors.ErrIneligible
		}
		item.RelatorID = relator.MemberID
		if err := uc.transition(ctx, tx, &item, entities.CaseStatusAdmissibilityReview, cmd.ActorID, relator.MemberID, "relator assigned", uc.now()); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "admissibility_review", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

// ReviewAdmissibility admits or rejects a case under review. Rejecting a
// second-instance case ends the appeal and closes its origin with the
// disposition it already had.
func (uc CaseUseCase) ReviewAdmissibility(ctx context.Context, cmd ReviewAdmissibilityCommand) (entities.Case, error) {
	ids, err := uc.chainIDs(ctx, cmd.CaseID)
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "admissibility", cmd.CaseID, cmd.ActorID, err)
	}

	var result entities.Case
	err = uc.UnitOfWork.WithinCases(ctx, ids, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Status != entities.CaseStatusAdmissibilityReview {
			return domainerrors.ErrInvalidTransition
		}
		now := uc.now()
		if cmd.Admit {
			if err := uc.transition(ctx, tx, &item, entities.CaseStatusAdmitted, cmd.ActorID, "", cmd.Reasoning, now); err != nil {
				return err
			}
			result = item
			return nil
		}

		if item.Instance == entities.InstanceFirst {
			item.Disposition = entities.OutcomeRejected
			item.Sanction = entities.SanctionNone
		}
		if err := uc.transition(ctx, tx, &item, entities.CaseStatusRejected, cmd.ActorID, "", cmd.Reasoning, now); err != nil {
			return err
		}
		result = item
		if item.Instance == entities.InstanceFirst {
			return uc.conclude(ctx, tx, item, item.CaseID, now)
		}

		origin, err := tx.GetCase(ctx, item.OriginCaseID)
		if err != nil {
			return err
		}
		if err := uc.transition(ctx, tx, &origin, entities.CaseStatusClosed, cmd.ActorID, item.CaseID, "appeal not admitted", now); err != nil {
			return err
		}
		root, err := tx.GetCase(ctx, ids[len(ids)-1])
		if err != nil {
			return err
		}
		return uc.conclude(ctx, tx, root, item.CaseID, now)
	})
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "admissibility", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

// OpenDefensePeriod enters the defense stage and freezes its deadline.
// Calling it again while the case is in the stage returns the stored window.
func (uc CaseUseCase) OpenDefensePeriod(ctx context.Context, cmd CaseActionCommand) (OpenPeriodResult, error) {
	statute := uc.statute()
	result, err := uc.openPeriod(ctx, cmd, entities.CaseStatusAdmitted, entities.CaseStatusDefensePeriod, []windowSpec{
		{kind: entities.SubmissionKindDefense, days: statute.DefenseDays},
	})
	if err != nil {
		return OpenPeriodResult{}, uc.fail(ctx, "open_defense", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

// OpenEvidencePeriod enters the evidence stage with evidence, allegation and
// counter-allegation windows.
func (uc CaseUseCase) OpenEvidencePeriod(ctx context.Context, cmd CaseActionCommand) (OpenPeriodResult, error) {
	statute := uc.statute()
	result, err := uc.openPeriod(ctx, cmd, entities.CaseStatusDefensePeriod, entities.CaseStatusEvidencePeriod, []windowSpec{
		{kind: entities.SubmissionKindEvidence, days: statute.EvidenceDays},
		{kind: entities.SubmissionKindAllegation, days: statute.AllegationDays},
		{kind: entities.SubmissionKindCounterAllegation, days: statute.CounterAllegationDays},
	})
	if err != nil {
		return OpenPeriodResult{}, uc.fail(ctx, "open_evidence", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

type windowSpec struct {
	kind entities.SubmissionKind
	days int
}

func (uc CaseUseCase) openPeriod(
	ctx context.Context,
	cmd CaseActionCommand,
	from entities.CaseStatus,
	to entities.CaseStatus,
	specs []windowSpec,
) (OpenPeriodResult, error) {
	var result OpenPeriodResult
	err := uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Status == to {
			windows := make([]entities.DeadlineWindow, 0, len(specs))
			for _, spec := range specs {
				window, found, err := tx.CurrentDeadlineWindow(ctx, item.CaseID, spec.kind)
				if err != nil {
					return err
				}
				if found {
					windows = append(windows, window)
				}
			}
			result = OpenPeriodResult{Case: item, Windows: windows, AlreadyOpen: true}
			return nil
		}
		if item.Status != from {
			return domainerrors.ErrInvalidTransition
		}

		now := uc.now()
		windows := make([]entities.DeadlineWindow, 0, len(specs))
		for _, spec := range specs {
			due, err := uc.computeDeadline(now, spec.days)
			if err != nil {
				return err
			}
			windowID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return err
			}
			window := entities.DeadlineWindow{
				WindowID:  windowID,
				CaseID:    item.CaseID,
				Kind:      spec.kind,
				Sequence:  1,
				OpensAt:   now,
				DueAt:     due,
				Days:      spec.days,
				Mode:      uc.statute().Mode,
				CreatedAt: now,
			}
			if err := tx.AppendDeadlineWindow(ctx, window); err != nil {
				return err
			}
			windows = append(windows, window)
		}
		if err := uc.transition(ctx, tx, &item, to, cmd.ActorID, "", "", now); err != nil {
			return err
		}
		result = OpenPeriodResult{Case: item, Windows: windows}
		return nil
	})
	return result, err
}

// SendToJudgment seats the committee and opens the judgment for voting.
func (uc CaseUseCase) SendToJudgment(ctx context.Context, cmd SendToJudgmentCommand) (entities.Judgment, error) {
	seated, err := uc.rosterFor(ctx, cmd.CaseID)
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "send_to_judgment", cmd.CaseID, cmd.ActorID, err)
	}

	var result entities.Judgment
	err = uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Status != entities.CaseStatusEvidencePeriod {
			return domainerrors.ErrInvalidTransition
		}
		if _, found, err := tx.GetJudgmentByCase(ctx, item.CaseID); err != nil {
			return err
		} else if found {
			return domainerrors.ErrConflict
		}

		roster := make([]entities.RosterMember, 0, len(seated))
		for _, member := range seated {
			if member.Impeded(item) {
				continue
			}
			roster = append(roster, member)
		}
		if len(roster) == 0 {
			return domainerrors.ErrIneligible
		}
		presidingID := strings.TrimSpace(cmd.PresidingID)
		if presidingID == "" {
			for _, member := range roster {
				if member.Role == entities.MemberRolePresiding {
					presidingID = member.MemberID
					break
				}
			}
		} else if _, ok := findMember(roster, presidingID); !ok {
			return domainerrors.ErrIneligible
		}

		now := uc.now()
		judgmentID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		judgment := entities.Judgment{
			JudgmentID:  judgmentID,
			CaseID:      item.CaseID,
			Instance:    item.Instance,
			Tier:        item.Tier,
			Roster:      roster,
			PresidingID: presidingID,
			RelatorID:   item.RelatorID,
			Status:      entities.JudgmentStatusOpen,
			Sanction:    entities.SanctionNone,
			OpenedAt:    now,
		}
		if err := tx.SaveJudgment(ctx, judgment); err != nil {
			return err
		}
		if err := uc.transition(ctx, tx, &item, entities.CaseStatusUnderJudgment, cmd.ActorID, judgmentID, "", now); err != nil {
			return err
		}
		result = judgment
		return nil
	})
	if err != nil {
		return entities.Judgment{}, uc.fail(ctx, "send_to_judgment", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

// CloseCase closes a judged case once no appeal can follow: the appeal
// window of its published judgment lapsed, or the case is at the last tier.
func (uc CaseUseCase) CloseCase(ctx context.Context, cmd CaseActionCommand) (entities.Case, error) {
	ids, err := uc.chainIDs(ctx, cmd.CaseID)
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "close", cmd.CaseID, cmd.ActorID, err)
	}

	var result entities.Case
	err = uc.UnitOfWork.WithinCases(ctx, ids, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if item.Status != entities.CaseStatusJudged {
			return domainerrors.ErrInvalidTransition
		}
		now := uc.now()
		if item.Tier < uc.statute().MaxTier {
			judgment, found, err := tx.GetJudgmentByCase(ctx, item.CaseID)
			if err != nil {
				return err
			}
			if !found || !judgment.Published() {
				return domainerrors.ErrJudgmentNotPublished
			}
			if judgment.AppealDeadline != nil && !now.After(*judgment.AppealDeadline) {
				return domainerrors.ErrWindowOpen
			}
		}
		if err := uc.transition(ctx, tx, &item, entities.CaseStatusClosed, cmd.ActorID, "", "appeal window lapsed", now); err != nil {
			return err
		}
		result = item
		root := item
		if len(ids) > 1 {
			root, err = tx.GetCase(ctx, ids[len(ids)-1])
			if err != nil {
				return err
			}
		}
		return uc.conclude(ctx, tx, root, item.CaseID, now)
	})
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "close", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

// ArchiveCase retires a terminal case from active listings. Cases are never
// deleted.
func (uc CaseUseCase) ArchiveCase(ctx context.Context, cmd CaseActionCommand) (entities.Case, error) {
	var result entities.Case
	err := uc.UnitOfWork.WithinCases(ctx, []string{cmd.CaseID}, func(tx ports.CaseTx) error {
		item, err := tx.GetCase(ctx, cmd.CaseID)
		if err != nil {
			return err
		}
		if !item.Terminal() {
			return domainerrors.ErrInvalidTransition
		}
		if item.ArchivedAt == nil {
			archivedAt := uc.now()
			item.ArchivedAt = &archivedAt
			item.UpdatedAt = archivedAt
			if err := tx.SaveCase(ctx, item); err != nil {
				return err
			}
		}
		result = item
		return nil
	})
	if err != nil {
		return entities.Case{}, uc.fail(ctx, "archive", cmd.CaseID, cmd.ActorID, err)
	}
	return result, nil
}

func (uc CaseUseCase) registerCase(ctx context.Context, tx ports.CaseTx, item *entities.Case, actorID string, now time.Time) error {
	item.Status = entities.CaseStatusFiled
	if err := tx.SaveCase(ctx, *item); err != nil {
		return err
	}
	changeID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	if err := tx.AppendStatusChange(ctx, entities.StatusChange{
		ChangeID:  changeID,
		CaseID:    item.CaseID,
		ToStatus:  entities.CaseStatusFiled,
		ActorID:   actorID,
		ChangedAt: now,
	}); err != nil {
		return err
	}
	if uc.Metrics != nil {
		uc.Metrics.ObserveTransition("", entities.CaseStatusFiled)
	}
	return uc.appendCaseEvent(ctx, tx, EventCaseStatusChanged, *item, now, map[string]any{
		"from_status": "",
		"to_status":   string(entities.CaseStatusFiled),
		"actor_id":    actorID,
	})
}

func (uc CaseUseCase) checkStanding(ctx context.Context, cmd FileCaseCommand) error {
	if uc.Parties == nil {
		return nil
	}
	if !cmd.Anonymous {
		ok, err := uc.Parties.HasStanding(ctx, cmd.FilerID, cmd.Target.ElectionID)
		if err != nil {
			return err
		}
		if !ok {
			return domainerrors.ErrInvalidParty
		}
	}
	if cmd.Target.Kind == entities.SubjectKindNone {
		return nil
	}
	active, err := uc.Parties.IsTargetActive(ctx, cmd.Target)
	if err != nil {
		return err
	}
	if !active {
		return domainerrors.ErrInvalidParty
	}
	return nil
}

func (uc CaseUseCase) issueProtocol(ctx context.Context, tx ports.CaseTx, prefix string, now time.Time) (string, error) {
	year := now.Year()
	scope := fmt.Sprintf("protocol:%s-%d", prefix, year)
	var seq int64
	var err error
	if issuer, ok := tx.(ports.ProtocolIssuer); ok {
		seq, err = issuer.NextProtocol(ctx, scope)
	} else {
		seq, err = uc.Sequences.Next(ctx, scope)
	}
	if err != nil {
		return "", err
	}
	if seq <= 0 {
		return "", errors.New("sequence issuer returned a non-positive number")
	}
	return entities.FormatProtocol(prefix, year, seq), nil
}

// rosterFor reads the committee seated for the case's election and tier.
// Reference reads stay outside the unit of work.
func (uc CaseUseCase) rosterFor(ctx context.Context, caseID string) ([]entities.RosterMember, error) {
	item, err := uc.Cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return uc.Committee.Roster(ctx, item.Target.ElectionID, item.Tier)
}

func findMember(roster []entities.RosterMember, memberID string) (entities.RosterMember, bool) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return entities.RosterMember{}, false
	}
	for _, member := range roster {
		if strings.TrimSpace(member.MemberID) == memberID {
			return member, true
		}
	}
	return entities.RosterMember{}, false
}
