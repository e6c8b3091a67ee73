package httpadapter

import (
	"context"
	"log/slog"

	"eleitoral/contexts/tabulation/tally-service/application/commands"
	"eleitoral/contexts/tabulation/tally-service/application/queries"
	"eleitoral/contexts/tabulation/tally-service/domain/entities"
	httptransport "eleitoral/contexts/tabulation/tally-service/transport/http"
)

type Handler struct {
	Tally   commands.TallyUseCase
	Queries queries.TallyQueries
	Logger  *slog.Logger
}

func (h Handler) RegisterSlateHandler(ctx context.Context, req httptransport.RegisterSlateRequest) (httptransport.SlateResponse, error) {
	slate, err := h.Tally.RegisterSlate(ctx, commands.RegisterSlateCommand{
		Scope:   scopeFromDTO(req.Scope),
		SlateID: req.SlateID,
		Number:  req.Number,
		Name:    req.Name,
	})
	if err != nil {
		return httptransport.SlateResponse{}, err
	}
	return mapSlate(slate), nil
}

func (h Handler) ListSlatesHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.SlateListResponse, error) {
	slates, err := h.Queries.ListSlates(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.SlateListResponse{}, err
	}
	response := httptransport.SlateListResponse{Items: make([]httptransport.SlateResponse, 0, len(slates))}
	for _, slate := range slates {
		response.Items = append(response.Items, mapSlate(slate))
	}
	return response, nil
}

func (h Handler) RegisterSectionHandler(ctx context.Context, req httptransport.RegisterSectionRequest) (httptransport.SectionResponse, error) {
	section, err := h.Tally.RegisterSection(ctx, commands.RegisterSectionCommand{
		Scope:     scopeFromDTO(req.Scope),
		SectionID: req.SectionID,
		Name:      req.Name,
	})
	if err != nil {
		return httptransport.SectionResponse{}, err
	}
	return httptransport.SectionResponse{
		Scope:        mapScope(section.Scope),
		SectionID:    section.SectionID,
		Name:         section.Name,
		RegisteredAt: section.RegisteredAt,
	}, nil
}

func (h Handler) ReportSectionHandler(
	ctx context.Context,
	sectionID string,
	reporterID string,
	req httptransport.ReportSectionRequest,
) (httptransport.SectionReportResponse, error) {
	report, err := h.Tally.ReportSection(ctx, commands.ReportSectionCommand{
		Scope:       scopeFromDTO(req.Scope),
		SectionID:   sectionID,
		SlateCounts: req.SlateCounts,
		Blank:       req.Blank,
		Null:        req.Null,
		Complete:    req.Complete,
		ReportedBy:  reporterID,
	})
	if err != nil {
		return httptransport.SectionReportResponse{}, err
	}
	return httptransport.SectionReportResponse{
		ReportID:    report.ReportID,
		Scope:       mapScope(report.Scope),
		SectionID:   report.SectionID,
		Revision:    report.Revision,
		SlateCounts: report.SlateCounts,
		Blank:       report.Blank,
		Null:        report.Null,
		Complete:    report.Complete,
		ReportedBy:  report.ReportedBy,
		ReportedAt:  report.ReportedAt,
	}, nil
}

func (h Handler) AcceptBallotHandler(ctx context.Context, req httptransport.AcceptBallotRequest) (httptransport.BallotResponse, error) {
	cmd := commands.AcceptBallotCommand{
		Scope:     scopeFromDTO(req.Scope),
		SectionID: req.SectionID,
		SlateID:   req.SlateID,
		Category:  entities.BallotCategory(req.Category),
		Hash:      req.Hash,
	}
	if req.CastAt != nil {
		cmd.CastAt = *req.CastAt
	}
	ballot, err := h.Tally.AcceptBallot(ctx, cmd)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) GetBallotHandler(ctx context.Context, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Queries.GetBallot(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) AnnulBallotHandler(
	ctx context.Context,
	ballotID string,
	authority string,
	req httptransport.AnnulBallotRequest,
) (httptransport.AnnulmentResponse, error) {
	annulment, err := h.Tally.AnnulBallot(ctx, commands.AnnulBallotCommand{
		BallotID:  ballotID,
		Reason:    req.Reason,
		Authority: authority,
		CaseRef:   req.CaseRef,
	})
	if err != nil {
		return httptransport.AnnulmentResponse{}, err
	}
	return mapAnnulment(annulment), nil
}

func (h Handler) ListAnnulmentsHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.AnnulmentListResponse, error) {
	annulments, err := h.Queries.ListAnnulments(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.AnnulmentListResponse{}, err
	}
	response := httptransport.AnnulmentListResponse{Items: make([]httptransport.AnnulmentResponse, 0, len(annulments))}
	for _, annulment := range annulments {
		response.Items = append(response.Items, mapAnnulment(annulment))
	}
	return response, nil
}

func (h Handler) ReinstateBallotHandler(
	ctx context.Context,
	ballotID string,
	authority string,
	req httptransport.ReinstateBallotRequest,
) (httptransport.ReinstatementResponse, error) {
	reinstatement, err := h.Tally.ReinstateBallot(ctx, commands.ReinstateBallotCommand{
		BallotID:  ballotID,
		Reason:    req.Reason,
		Authority: authority,
	})
	if err != nil {
		return httptransport.ReinstatementResponse{}, err
	}
	return mapReinstatement(reinstatement), nil
}

func (h Handler) ListReinstatementsHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.ReinstatementListResponse, error) {
	reinstatements, err := h.Queries.ListReinstatements(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.ReinstatementListResponse{}, err
	}
	response := httptransport.ReinstatementListResponse{Items: make([]httptransport.ReinstatementResponse, 0, len(reinstatements))}
	for _, reinstatement := range reinstatements {
		response.Items = append(response.Items, mapReinstatement(reinstatement))
	}
	return response, nil
}

func (h Handler) DisqualifySlateHandler(
	ctx context.Context,
	slateID string,
	authority string,
	req httptransport.DisqualifySlateRequest,
) (httptransport.DisqualifySlateResponse, error) {
	result, err := h.Tally.DisqualifySlate(ctx, commands.DisqualifySlateCommand{
		Scope:     scopeFromDTO(req.Scope),
		SlateID:   slateID,
		CaseRef:   req.CaseRef,
		Authority: authority,
		Reason:    req.Reason,
	})
	if err != nil {
		return httptransport.DisqualifySlateResponse{}, err
	}
	return httptransport.DisqualifySlateResponse{
		Slate:          mapSlate(result.Slate),
		AnnulledCount:  len(result.Annulments),
		Snapshot:       mapSnapshot(result.Snapshot),
		AlreadyApplied: result.Replayed,
	}, nil
}

func (h Handler) ComputeSnapshotHandler(
	ctx context.Context,
	actorID string,
	req httptransport.ComputeSnapshotRequest,
) (httptransport.SnapshotResponse, error) {
	cmd := commands.ComputeSnapshotCommand{
		Scope:   scopeFromDTO(req.Scope),
		Final:   req.Final,
		ActorID: actorID,
	}
	if req.AsOf != nil {
		cmd.AsOf = *req.AsOf
	}
	result, err := h.Tally.ComputeSnapshot(ctx, cmd)
	if err != nil {
		return httptransport.SnapshotResponse{}, err
	}
	response := mapSnapshot(result.Snapshot)
	response.Unchanged = result.Unchanged
	response.Historical = result.Historical
	return response, nil
}

func (h Handler) GetSnapshotHandler(ctx context.Context, snapshotID string) (httptransport.SnapshotResponse, error) {
	snapshot, err := h.Queries.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return httptransport.SnapshotResponse{}, err
	}
	return mapSnapshot(snapshot), nil
}

func (h Handler) LatestSnapshotHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.SnapshotResponse, error) {
	snapshot, err := h.Queries.LatestSnapshot(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.SnapshotResponse{}, err
	}
	return mapSnapshot(snapshot), nil
}

func (h Handler) ListSnapshotsHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.SnapshotListResponse, error) {
	snapshots, err := h.Queries.ListSnapshots(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.SnapshotListResponse{}, err
	}
	response := httptransport.SnapshotListResponse{Items: make([]httptransport.SnapshotResponse, 0, len(snapshots))}
	for _, snapshot := range snapshots {
		response.Items = append(response.Items, mapSnapshot(snapshot))
	}
	return response, nil
}

func (h Handler) VerifyChainHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.ChainReportResponse, error) {
	report, err := h.Tally.VerifyChain(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.ChainReportResponse{}, err
	}
	return httptransport.ChainReportResponse{
		Checked:        report.Checked,
		Intact:         report.Intact,
		BrokenSnapshot: report.BrokenSnapshot,
		BrokenSequence: report.BrokenSequence,
	}, nil
}

func (h Handler) HomologateHandler(ctx context.Context, snapshotID string, authority string) (httptransport.SealResponse, error) {
	seal, err := h.Tally.Homologate(ctx, commands.HomologateCommand{SnapshotID: snapshotID, Authority: authority})
	if err != nil {
		return httptransport.SealResponse{}, err
	}
	return mapSeal(seal), nil
}

func (h Handler) ScopeStatusHandler(ctx context.Context, scope httptransport.ScopeDTO) (httptransport.ScopeStatusResponse, error) {
	status, err := h.Queries.ScopeStatus(ctx, scopeFromDTO(scope))
	if err != nil {
		return httptransport.ScopeStatusResponse{}, err
	}
	response := httptransport.ScopeStatusResponse{
		Scope:            mapScope(status.State.Scope),
		Frozen:           status.State.Frozen,
		FrozenAt:         status.State.FrozenAt,
		Sealed:           status.State.Sealed,
		SnapshotCount:    status.SnapshotCount,
		SectionsExpected: status.SectionsExpected,
		SectionsReported: status.SectionsReported,
	}
	if status.Latest != nil {
		latest := mapSnapshot(*status.Latest)
		response.Latest = &latest
	}
	if status.Seal != nil {
		seal := mapSeal(*status.Seal)
		response.Seal = &seal
	}
	return response, nil
}

func scopeFromDTO(dto httptransport.ScopeDTO) entities.Scope {
	return entities.Scope{ElectionID: dto.ElectionID, Region: dto.Region}
}

func mapScope(scope entities.Scope) httptransport.ScopeDTO {
	return httptransport.ScopeDTO{ElectionID: scope.ElectionID, Region: scope.Region}
}

func mapSlate(slate entities.Slate) httptransport.SlateResponse {
	return httptransport.SlateResponse{
		Scope:          mapScope(slate.Scope),
		SlateID:        slate.SlateID,
		Number:         slate.Number,
		Name:           slate.Name,
		Disqualified:   slate.Disqualified,
		DisqualifiedAt: slate.DisqualifiedAt,
		CaseRef:        slate.CaseRef,
	}
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		BallotID:   ballot.BallotID,
		Scope:      mapScope(ballot.Scope),
		SectionID:  ballot.SectionID,
		SlateID:    ballot.SlateID,
		Category:   string(ballot.Category),
		Hash:       ballot.Hash,
		CastAt:     ballot.CastAt,
		AcceptedAt: ballot.AcceptedAt,
		Sequence:   ballot.Sequence,
	}
}

func mapAnnulment(annulment entities.Annulment) httptransport.AnnulmentResponse {
	return httptransport.AnnulmentResponse{
		AnnulmentID: annulment.AnnulmentID,
		BallotID:    annulment.BallotID,
		Scope:       mapScope(annulment.Scope),
		Reason:      annulment.Reason,
		Authority:   annulment.Authority,
		CaseRef:     annulment.CaseRef,
		RecordedAt:  annulment.RecordedAt,
	}
}

func mapReinstatement(reinstatement entities.Reinstatement) httptransport.ReinstatementResponse {
	return httptransport.ReinstatementResponse{
		ReinstatementID: reinstatement.ReinstatementID,
		AnnulmentID:     reinstatement.AnnulmentID,
		BallotID:        reinstatement.BallotID,
		Scope:           mapScope(reinstatement.Scope),
		Reason:          reinstatement.Reason,
		Authority:       reinstatement.Authority,
		RecordedAt:      reinstatement.RecordedAt,
	}
}

func mapSnapshot(snapshot entities.TallySnapshot) httptransport.SnapshotResponse {
	rows := make([]httptransport.SlateRowDTO, 0, len(snapshot.Totals.Rows))
	for _, row := range snapshot.Totals.Rows {
		rows = append(rows, httptransport.SlateRowDTO{
			SlateID:           row.SlateID,
			Votes:             row.Votes,
			PercentValid:      row.PercentValid,
			PercentConsidered: row.PercentConsidered,
			Position:          row.Position,
			Eligible:          row.Eligible,
		})
	}
	return httptransport.SnapshotResponse{
		SnapshotID:       snapshot.SnapshotID,
		Scope:            mapScope(snapshot.Scope),
		Sequence:         snapshot.Sequence,
		AsOf:             snapshot.AsOf,
		Final:            snapshot.Final,
		Rows:             rows,
		Valid:            snapshot.Totals.Valid,
		Blank:            snapshot.Totals.Blank,
		Null:             snapshot.Totals.Null,
		Annulled:         snapshot.Totals.Annulled,
		Considered:       snapshot.Totals.Considered,
		SectionsExpected: snapshot.Totals.SectionsExpected,
		SectionsReported: snapshot.Totals.SectionsReported,
		PreviousHash:     snapshot.PreviousHash,
		Hash:             snapshot.Hash,
		GeneratedAt:      snapshot.GeneratedAt,
	}
}

func mapSeal(seal entities.Seal) httptransport.SealResponse {
	return httptransport.SealResponse{
		SealID:     seal.SealID,
		Scope:      mapScope(seal.Scope),
		SnapshotID: seal.SnapshotID,
		Hash:       seal.Hash,
		Authority:  seal.Authority,
		SealedAt:   seal.SealedAt,
	}
}
