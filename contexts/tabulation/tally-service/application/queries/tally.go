package queries

import (
	"context"
	"strings"
	"time"

	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	"eleitoral/contexts/tabulation/tally-service/ports"
)

type TallyQueries struct {
	Slates    ports.SlateRegistry
	Ballots   ports.BallotStore
	Sections  ports.SectionStore
	Scopes    ports.ScopeStore
	Snapshots ports.SnapshotStore
	Seals     ports.SealStore
	Clock     ports.Clock
}

// ScopeStatus summarizes where a scope stands on its way to homologation.
type ScopeStatus struct {
	State            entities.ScopeState
	Latest           *entities.TallySnapshot
	Seal             *entities.Seal
	SnapshotCount    int
	SectionsExpected int
	SectionsReported int
}

func (q TallyQueries) GetSnapshot(ctx context.Context, snapshotID string) (entities.TallySnapshot, error) {
	snapshotID = strings.TrimSpace(snapshotID)
	if snapshotID == "" {
		return entities.TallySnapshot{}, domainerrors.ErrInvalidInput
	}
	return q.Snapshots.GetSnapshot(ctx, snapshotID)
}

func (q TallyQueries) LatestSnapshot(ctx context.Context, scope entities.Scope) (entities.TallySnapshot, error) {
	if !scope.Valid() {
		return entities.TallySnapshot{}, domainerrors.ErrInvalidInput
	}
	snapshot, found, err := q.Snapshots.LatestSnapshot(ctx, scope)
	if err != nil {
		return entities.TallySnapshot{}, err
	}
	if !found {
		return entities.TallySnapshot{}, domainerrors.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (q TallyQueries) ListSnapshots(ctx context.Context, scope entities.Scope) ([]entities.TallySnapshot, error) {
	if !scope.Valid() {
		return nil, domainerrors.ErrInvalidInput
	}
	return q.Snapshots.ListSnapshots(ctx, scope)
}

func (q TallyQueries) ListSlates(ctx context.Context, scope entities.Scope) ([]entities.Slate, error) {
	if !scope.Valid() {
		return nil, domainerrors.ErrInvalidInput
	}
	return q.Slates.ListSlates(ctx, scope)
}

func (q TallyQueries) ListAnnulments(ctx context.Context, scope entities.Scope) ([]entities.Annulment, error) {
	if !scope.Valid() {
		return nil, domainerrors.ErrInvalidInput
	}
	return q.Ballots.ListAnnulments(ctx, scope)
}

func (q TallyQueries) ListReinstatements(ctx context.Context, scope entities.Scope) ([]entities.Reinstatement, error) {
	if !scope.Valid() {
		return nil, domainerrors.ErrInvalidInput
	}
	return q.Ballots.ListReinstatements(ctx, scope)
}

func (q TallyQueries) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	ballotID = strings.TrimSpace(ballotID)
	if ballotID == "" {
		return entities.Ballot{}, domainerrors.ErrInvalidInput
	}
	return q.Ballots.GetBallot(ctx, ballotID)
}

func (q TallyQueries) ScopeStatus(ctx context.Context, scope entities.Scope) (ScopeStatus, error) {
	if !scope.Valid() {
		return ScopeStatus{}, domainerrors.ErrInvalidInput
	}
	state, err := q.Scopes.GetScopeState(ctx, scope)
	if err != nil {
		return ScopeStatus{}, err
	}
	status := ScopeStatus{State: state}

	snapshots, err := q.Snapshots.ListSnapshots(ctx, scope)
	if err != nil {
		return ScopeStatus{}, err
	}
	status.SnapshotCount = len(snapshots)
	if len(snapshots) > 0 {
		latest := snapshots[len(snapshots)-1]
		status.Latest = &latest
	}

	sections, err := q.Sections.ListSections(ctx, scope)
	if err != nil {
		return ScopeStatus{}, err
	}
	reports, err := q.Sections.ListSectionReports(ctx, scope)
	if err != nil {
		return ScopeStatus{}, err
	}
	expected := make(map[string]struct{}, len(sections))
	for _, section := range sections {
		expected[section.SectionID] = struct{}{}
	}
	status.SectionsExpected = len(expected)
	for _, report := range entities.LatestReports(reports, q.now()) {
		if _, ok := expected[report.SectionID]; ok && report.Complete {
			status.SectionsReported++
		}
	}

	seal, found, err := q.Seals.GetSeal(ctx, scope)
	if err != nil {
		return ScopeStatus{}, err
	}
	if found {
		status.Seal = &seal
	}
	return status, nil
}

func (q TallyQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}
