package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"eleitoral/contexts/adjudication/case-service/adapters/memory"
	"eleitoral/contexts/adjudication/case-service/domain/entities"

	"gopkg.in/yaml.v3"
)

// ReferenceData is the registry state the case service reads but never
// writes: party standing, valid targets and committee rosters.
type ReferenceData struct {
	Elections []ElectionReference `yaml:"elections"`
}

type ElectionReference struct {
	ID      string            `yaml:"id"`
	Parties []string          `yaml:"parties"`
	Targets []TargetReference `yaml:"targets"`
	Rosters []RosterReference `yaml:"rosters"`
}

type TargetReference struct {
	Kind     string `yaml:"kind"`
	ID       string `yaml:"id"`
	SlateID  string `yaml:"slateId"`
	Inactive bool   `yaml:"inactive"`
}

type RosterReference struct {
	Tier    int               `yaml:"tier"`
	Members []MemberReference `yaml:"members"`
}

type MemberReference struct {
	ID      string `yaml:"id"`
	Role    string `yaml:"role"`
	SlateID string `yaml:"slateId"`
}

type referenceWriter interface {
	SetStanding(ctx context.Context, electionID string, partyID string) error
	SetTarget(ctx context.Context, target entities.Subject, active bool) error
	SetRoster(ctx context.Context, electionID string, tier int, members []entities.RosterMember) error
}

// memoryReferences lets the memory store take the same load path as the
// database repository.
type memoryReferences struct {
	store *memory.Store
}

func (m memoryReferences) SetStanding(_ context.Context, electionID string, partyID string) error {
	m.store.SetStanding(electionID, partyID)
	return nil
}

func (m memoryReferences) SetTarget(_ context.Context, target entities.Subject, active bool) error {
	m.store.SetTarget(target, active)
	return nil
}

func (m memoryReferences) SetRoster(_ context.Context, electionID string, tier int, members []entities.RosterMember) error {
	m.store.SetRoster(electionID, tier, members)
	return nil
}

func LoadReferenceFile(ctx context.Context, path string, writer referenceWriter) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read reference file: %w", err)
	}
	var data ReferenceData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse reference file %s: %w", path, err)
	}
	return ApplyReferenceData(ctx, data, writer)
}

func ApplyReferenceData(ctx context.Context, data ReferenceData, writer referenceWriter) error {
	for _, election := range data.Elections {
		electionID := strings.TrimSpace(election.ID)
		if electionID == "" {
			return fmt.Errorf("reference election without id")
		}
		for _, party := range election.Parties {
			if err := writer.SetStanding(ctx, electionID, strings.TrimSpace(party)); err != nil {
				return fmt.Errorf("set standing %s/%s: %w", electionID, party, err)
			}
		}
		for _, target := range election.Targets {
			subject := entities.Subject{
				Kind:       entities.SubjectKind(strings.ToLower(strings.TrimSpace(target.Kind))),
				ID:         strings.TrimSpace(target.ID),
				ElectionID: electionID,
				SlateID:    strings.TrimSpace(target.SlateID),
			}
			if subject.Kind == entities.SubjectKindSlate && subject.SlateID == "" {
				subject.SlateID = subject.ID
			}
			if !subject.Valid() {
				return fmt.Errorf("reference target %q of election %s is invalid", target.ID, electionID)
			}
			if err := writer.SetTarget(ctx, subject, !target.Inactive); err != nil {
				return fmt.Errorf("set target %s/%s: %w", electionID, subject.ID, err)
			}
		}
		for _, roster := range election.Rosters {
			members := make([]entities.RosterMember, 0, len(roster.Members))
			for _, member := range roster.Members {
				members = append(members, entities.RosterMember{
					MemberID: strings.TrimSpace(member.ID),
					Role:     entities.MemberRole(strings.ToLower(strings.TrimSpace(member.Role))),
					SlateID:  strings.TrimSpace(member.SlateID),
				})
			}
			if err := writer.SetRoster(ctx, electionID, roster.Tier, members); err != nil {
				return fmt.Errorf("set roster %s tier %d: %w", electionID, roster.Tier, err)
			}
		}
	}
	return nil
}
