package commands

import (
	"context"
	"errors"
	"strings"

	application "eleitoral/contexts/tabulation/tally-service/application"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	domainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
)

type RegisterSlateCommand struct {
	Scope   entities.Scope
	SlateID string
	Number  int
	Name    string
}

type RegisterSectionCommand struct {
	Scope     entities.Scope
	SectionID string
	Name      string
}

type ReportSectionCommand struct {
	Scope       entities.Scope
	SectionID   string
	SlateCounts map[string]int
	Blank       int
	Null        int
	Complete    bool
	ReportedBy  string
}

// RegisterSlate adds a slate to the scope. Registering the same slate again
// returns the stored one.
func (uc TallyUseCase) RegisterSlate(ctx context.Context, cmd RegisterSlateCommand) (entities.Slate, error) {
	cmd.Scope = normalizeScope(cmd.Scope)
	cmd.SlateID = strings.TrimSpace(cmd.SlateID)
	if !cmd.Scope.Valid() || cmd.SlateID == "" || cmd.Number < 0 {
		return entities.Slate{}, uc.fail(ctx, "register_slate", cmd.Scope, "", domainerrors.ErrInvalidInput)
	}
	existing, err := uc.Slates.GetSlate(ctx, cmd.Scope, cmd.SlateID)
	if err == nil {
		if existing.Number != cmd.Number || existing.Name != strings.TrimSpace(cmd.Name) {
			return entities.Slate{}, uc.fail(ctx, "register_slate", cmd.Scope, "", domainerrors.ErrConflict)
		}
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrSlateNotFound) {
		return entities.Slate{}, uc.fail(ctx, "register_slate", cmd.Scope, "", err)
	}
	if err := uc.guardOpen(ctx, cmd.Scope); err != nil {
		return entities.Slate{}, uc.fail(ctx, "register_slate", cmd.Scope, "", err)
	}
	slate := entities.Slate{
		Scope:   cmd.Scope,
		SlateID: cmd.SlateID,
		Number:  cmd.Number,
		Name:    strings.TrimSpace(cmd.Name),
	}
	if err := uc.Slates.SaveSlate(ctx, slate); err != nil {
		return entities.Slate{}, uc.fail(ctx, "register_slate", cmd.Scope, "", err)
	}
	return slate, nil
}

// RegisterSection adds a section that must report before a final snapshot.
func (uc TallyUseCase) RegisterSection(ctx context.Context, cmd RegisterSectionCommand) (entities.Section, error) {
	cmd.Scope = normalizeScope(cmd.Scope)
	cmd.SectionID = strings.TrimSpace(cmd.SectionID)
	if !cmd.Scope.Valid() || cmd.SectionID == "" {
		return entities.Section{}, uc.fail(ctx, "register_section", cmd.Scope, "", domainerrors.ErrInvalidInput)
	}
	if existing, err := uc.Sections.GetSection(ctx, cmd.Scope, cmd.SectionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainerrors.ErrSectionNotFound) {
		return entities.Section{}, uc.fail(ctx, "register_section", cmd.Scope, "", err)
	}
	if err := uc.guardOpen(ctx, cmd.Scope); err != nil {
		return entities.Section{}, uc.fail(ctx, "register_section", cmd.Scope, "", err)
	}
	section := entities.Section{
		Scope:        cmd.Scope,
		SectionID:    cmd.SectionID,
		Name:         strings.TrimSpace(cmd.Name),
		RegisteredAt: uc.now(),
	}
	if err := uc.Sections.SaveSection(ctx, section); err != nil {
		return entities.Section{}, uc.fail(ctx, "register_section", cmd.Scope, "", err)
	}
	return section, nil
}

// ReportSection appends a revision of a section's paper counts. A complete
// report marks the section as reported.
func (uc TallyUseCase) ReportSection(ctx context.Context, cmd ReportSectionCommand) (entities.SectionReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Scope = normalizeScope(cmd.Scope)
	counts := make(map[string]int, len(cmd.SlateCounts))
	for slateID, count := range cmd.SlateCounts {
		counts[strings.TrimSpace(slateID)] = count
	}
	report := entities.SectionReport{
		Scope:       cmd.Scope,
		SectionID:   strings.TrimSpace(cmd.SectionID),
		SlateCounts: counts,
		Blank:       cmd.Blank,
		Null:        cmd.Null,
		Complete:    cmd.Complete,
		ReportedBy:  strings.TrimSpace(cmd.ReportedBy),
	}
	if !cmd.Scope.Valid() || !report.Valid() {
		return entities.SectionReport{}, uc.fail(ctx, "report_section", cmd.Scope, cmd.ReportedBy, domainerrors.ErrInvalidInput)
	}
	if _, err := uc.Sections.GetSection(ctx, cmd.Scope, report.SectionID); err != nil {
		return entities.SectionReport{}, uc.fail(ctx, "report_section", cmd.Scope, cmd.ReportedBy, err)
	}
	for slateID := range counts {
		if _, err := uc.Slates.GetSlate(ctx, cmd.Scope, slateID); err != nil {
			return entities.SectionReport{}, uc.fail(ctx, "report_section", cmd.Scope, cmd.ReportedBy, err)
		}
	}
	if err := uc.guardOpen(ctx, cmd.Scope); err != nil {
		return entities.SectionReport{}, uc.fail(ctx, "report_section", cmd.Scope, cmd.ReportedBy, err)
	}

	reportID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.SectionReport{}, err
	}
	report.ReportID = reportID
	report.ReportedAt = uc.now()
	stored, err := uc.Sections.AppendSectionReport(ctx, report)
	if err != nil {
		return entities.SectionReport{}, uc.fail(ctx, "report_section", cmd.Scope, cmd.ReportedBy, err)
	}
	logger.Info("section report recorded",
		"event", "tally_section_reported",
		"module", "tabulation/tally-service",
		"layer", "application",
		"scope", cmd.Scope.Key(),
		"section_id", stored.SectionID,
		"revision", stored.Revision,
		"complete", stored.Complete,
	)
	return stored, nil
}
