package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
)

type AcceptBallotCommand struct {
	Scope     entities.Scope
	SectionID string
	SlateID   string
	Category  entities.BallotCategory
	Hash      string
	CastAt    time.Time
}

type AnnulBallotCommand struct {
	BallotID  string
	Reason    string
	Authority string
	CaseRef   string
}

type ReinstateBallotCommand struct {
	BallotID  string
	Reason    string
	Authority string
}

// AcceptBallot validates and stores one ballot. Deduplication by section and
// hash happens inside the store as one check-and-insert.
func (uc TallyUseCase) AcceptBallot(ctx context.Context, cmd AcceptBallotCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Scope = normalizeScope(cmd.Scope)
	cmd.SectionID = strings.TrimSpace(cmd.SectionID)
	cmd.SlateID = strings.TrimSpace(cmd.SlateID)
	cmd.Hash = strings.TrimSpace(cmd.Hash)

	if !cmd.Scope.Valid() || cmd.SectionID == "" || cmd.Hash == "" || !cmd.Category.Accepted() {
		return entities.Ballot{}, uc.rejectBallot(ctx, cmd, domainerrors.ErrInvalidInput)
	}
	if (cmd.Category == entities.BallotCategoryValid) != (cmd.SlateID != "") {
		return entities.Ballot{}, uc.rejectBallot(ctx, cmd, domainerrors.ErrInvalidInput)
	}
	if _, err := uc.Sections.GetSection(ctx, cmd.Scope, cmd.SectionID); err != nil {
		return entities.Ballot{}, uc.rejectBallot(ctx, cmd, err)
	}
	if cmd.Category == entities.BallotCategoryValid {
		slate, err := uc.Slates.GetSlate(ctx, cmd.Scope, cmd.SlateID)
		if err != nil {
			return entities.Ballot{}, uc.rejectBallot(ctx, cmd, err)
		}
		if slate.Disqualified {
			return entities.Ballot{}, uc.rejectBallot(ctx, cmd, domainerrors.ErrIneligible)
		}
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ballot{}, err
	}
	sequence, err := uc.Sequences.Next(ctx, "ballot:"+cmd.Scope.Key())
	if err != nil {
		return entities.Ballot{}, uc.fail(ctx, "accept_ballot", cmd.Scope, "", err)
	}
	now := uc.now()
	castAt := cmd.CastAt.UTC()
	if cmd.CastAt.IsZero() {
		castAt = now
	}
	ballot := entities.Ballot{
		BallotID:   ballotID,
		Scope:      cmd.Scope,
		SectionID:  cmd.SectionID,
		SlateID:    cmd.SlateID,
		Category:   cmd.Category,
		Hash:       cmd.Hash,
		CastAt:     castAt,
		AcceptedAt: now,
		Sequence:   sequence,
	}
	if err := uc.Ballots.InsertBallot(ctx, ballot); err != nil {
		return entities.Ballot{}, uc.rejectBallot(ctx, cmd, err)
	}

	if uc.Metrics != nil {
		uc.Metrics.ObserveBallot(ballot.Category, "accepted")
	}
	logger.Debug("ballot accepted",
		"event", "tally_ballot_accepted",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", ballot.Scope.Key(),
		"section_id", ballot.SectionID,
		"ballot_id", ballot.BallotID,
		"sequence", ballot.Sequence,
	)
	return ballot, nil
}

func (uc TallyUseCase) rejectBallot(ctx context.Context, cmd AcceptBallotCommand, err error) error {
	if uc.Metrics != nil {
		result := "rejected"
		if errors.Is(err, domainerrors.ErrDuplicateBallot) {
			result = "duplicate"
		}
		uc.Metrics.ObserveBallot(cmd.Category, result)
	}
	return uc.fail(ctx, "accept_ballot", cmd.Scope, "", err)
}

// AnnulBallot records an annulment linked to the ballot. The ballot itself is
// never changed; the next snapshot counts it as annulled.
func (uc TallyUseCase) AnnulBallot(ctx context.Context, cmd AnnulBallotCommand) (entities.Annulment, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Authority = strings.TrimSpace(cmd.Authority)
	if strings.TrimSpace(cmd.BallotID) == "" || strings.TrimSpace(cmd.Reason) == "" || cmd.Authority == "" {
		return entities.Annulment{}, uc.fail(ctx, "annul_ballot", entities.Scope{}, cmd.Authority, domainerrors.ErrInvalidInput)
	}
	ballot, err := uc.Ballots.GetBallot(ctx, cmd.BallotID)
	if err != nil {
		return entities.Annulment{}, uc.fail(ctx, "annul_ballot", entities.Scope{}, cmd.Authority, err)
	}
	if err := uc.guardSealed(ctx, ballot.Scope); err != nil {
		return entities.Annulment{}, uc.fail(ctx, "annul_ballot", ballot.Scope, cmd.Authority, err)
	}

	annulmentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Annulment{}, err
	}
	annulment := entities.Annulment{
		AnnulmentID: annulmentID,
		BallotID:    ballot.BallotID,
		Scope:       ballot.Scope,
		Reason:      strings.TrimSpace(cmd.Reason),
		Authority:   cmd.Authority,
		CaseRef:     strings.TrimSpace(cmd.CaseRef),
		RecordedAt:  uc.now(),
	}
	if err := uc.Ballots.AppendAnnulment(ctx, annulment); err != nil {
		return entities.Annulment{}, uc.fail(ctx, "annul_ballot", ballot.Scope, cmd.Authority, err)
	}
	logger.Info("ballot annulled",
		"event", "tally_ballot_annulled",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", ballot.Scope.Key(),
		"ballot_id", ballot.BallotID,
		"case_ref", annulment.CaseRef,
	)
	return annulment, nil
}

// ReinstateBallot reverses the ballot's annulment with a compensating record.
// Snapshots cut after it count the ballot under its original category.
func (uc TallyUseCase) ReinstateBallot(ctx context.Context, cmd ReinstateBallotCommand) (entities.Reinstatement, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Authority = strings.TrimSpace(cmd.Authority)
	if strings.TrimSpace(cmd.BallotID) == "" || strings.TrimSpace(cmd.Reason) == "" || cmd.Authority == "" {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", entities.Scope{}, cmd.Authority, domainerrors.ErrInvalidInput)
	}
	ballot, err := uc.Ballots.GetBallot(ctx, cmd.BallotID)
	if err != nil {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", entities.Scope{}, cmd.Authority, err)
	}
	if err := uc.guardSealed(ctx, ballot.Scope); err != nil {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", ballot.Scope, cmd.Authority, err)
	}
	annulments, err := uc.Ballots.ListAnnulments(ctx, ballot.Scope)
	if err != nil {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", ballot.Scope, cmd.Authority, err)
	}
	annulmentID := ""
	for _, annulment := range annulments {
		if annulment.BallotID == ballot.BallotID {
			annulmentID = annulment.AnnulmentID
			break
		}
	}
	if annulmentID == "" {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", ballot.Scope, cmd.Authority, domainerrors.ErrNotAnnulled)
	}

	reinstatementID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Reinstatement{}, err
	}
	reinstatement := entities.Reinstatement{
		ReinstatementID: reinstatementID,
		AnnulmentID:     annulmentID,
		BallotID:        ballot.BallotID,
		Scope:           ballot.Scope,
		Reason:          strings.TrimSpace(cmd.Reason),
		Authority:       cmd.Authority,
		RecordedAt:      uc.now(),
	}
	if err := uc.Ballots.AppendReinstatement(ctx, reinstatement); err != nil {
		return entities.Reinstatement{}, uc.fail(ctx, "reinstate_ballot", ballot.Scope, cmd.Authority, err)
	}
	logger.Info("ballot reinstated",
		"event", "tally_ballot_reinstated",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", ballot.Scope.Key(),
		"ballot_id", ballot.BallotID,
		"annulment_id", annulmentID,
	)
	return reinstatement, nil
}
