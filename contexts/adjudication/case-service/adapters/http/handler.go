package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"eleitoral/contexts/adjudication/case-service/application/commands"
	"eleitoral/contexts/adjudication/case-service/application/queries"
	"eleitoral/contexts/adjudication/case-service/domain/entities"
	"eleitoral/contexts/adjudication/case-service/ports"
	httptransport "eleitoral/contexts/adjudication/case-service/transport/http"
)

type Handler struct {
	Cases   commands.CaseUseCase
	Queries queries.CaseQueries
	Logger  *slog.Logger
}

func (h Handler) FileCaseHandler(
	ctx context.Context,
	filerID string,
	idempotencyKey string,
	req httptransport.FileCaseRequest,
) (httptransport.CaseResponse, error) {
	result, err := h.Cases.FileCase(ctx, commands.FileCaseCommand{
		IdempotencyKey: idempotencyKey,
		Kind:           entities.CaseKind(req.Kind),
		FilerID:        filerID,
		Anonymous:      req.Anonymous,
		Target:         subjectFromDTO(req.Target),
	})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	response := mapCase(result.Case)
	response.Replayed = result.Replayed
	return response, nil
}

func (h Handler) GetCaseHandler(ctx context.Context, caseID string) (httptransport.CaseResponse, error) {
	item, err := h.Queries.GetCase(ctx, caseID)
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return mapCase(item), nil
}

func (h Handler) ListCasesHandler(
	ctx context.Context,
	electionID string,
	statuses []string,
	openOnly bool,
	limit int,
) (httptransport.CaseListResponse, error) {
	filter := ports.CaseFilter{ElectionID: electionID, OpenOnly: openOnly, Limit: limit}
	for _, status := range statuses {
		filter.Statuses = append(filter.Statuses, entities.CaseStatus(status))
	}
	items, err := h.Queries.ListCases(ctx, filter)
	if err != nil {
		return httptransport.CaseListResponse{}, err
	}
	response := httptransport.CaseListResponse{Items: make([]httptransport.CaseResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, mapCase(item))
	}
	return response, nil
}

func (h Handler) CaseHistoryHandler(ctx context.Context, caseID string) (httptransport.CaseHistoryResponse, error) {
	history, err := h.Queries.History(ctx, caseID)
	if err != nil {
		return httptransport.CaseHistoryResponse{}, err
	}
	changes := make([]httptransport.StatusChangeResponse, 0, len(history.Changes))
	for _, change := range history.Changes {
		changes = append(changes, httptransport.StatusChangeResponse{
			FromStatus: string(change.FromStatus),
			ToStatus:   string(change.ToStatus),
			ActorID:    change.ActorID,
			TriggerRef: change.TriggerRef,
			Note:       change.Note,
			ChangedAt:  change.ChangedAt,
		})
	}
	return httptransport.CaseHistoryResponse{
		Case:       mapCase(history.Case),
		Changes:    changes,
		Consistent: history.Consistent,
	}, nil
}

func (h Handler) BeginAdmissibilityReviewHandler(
	ctx context.Context,
	caseID string,
	actorID string,
	req httptransport.AssignRelatorRequest,
) (httptransport.CaseResponse, error) {
	item, err := h.Cases.BeginAdmissibilityReview(ctx, commands.AssignRelatorCommand{
		CaseID:    caseID,
		ActorID:   actorID,
		RelatorID: req.RelatorID,
	})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return mapCase(item), nil
}

func (h Handler) ReviewAdmissibilityHandler(
	ctx context.Context,
	caseID string,
	actorID string,
	req httptransport.AdmissibilityRequest,
) (httptransport.CaseResponse, error) {
	item, err := h.Cases.ReviewAdmissibility(ctx, commands.ReviewAdmissibilityCommand{
		CaseID:    caseID,
		ActorID:   actorID,
		Admit:     req.Admit,
		Reasoning: req.Reasoning,
	})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return mapCase(item), nil
}

func (h Handler) OpenDefensePeriodHandler(ctx context.Context, caseID string, actorID string) (httptransport.PeriodResponse, error) {
	result, err := h.Cases.OpenDefensePeriod(ctx, commands.CaseActionCommand{CaseID: caseID, ActorID: actorID})
	if err != nil {
		return httptransport.PeriodResponse{}, err
	}
	return mapPeriod(result), nil
}

func (h Handler) OpenEvidencePeriodHandler(ctx context.Context, caseID string, actorID string) (httptransport.PeriodResponse, error) {
	result, err := h.Cases.OpenEvidencePeriod(ctx, commands.CaseActionCommand{CaseID: caseID, ActorID: actorID})
	if err != nil {
		return httptransport.PeriodResponse{}, err
	}
	return mapPeriod(result), nil
}

func (h Handler) SendToJudgmentHandler(
	ctx context.Context,
	caseID string,
	actorID string,
	req httptransport.SendToJudgmentRequest,
) (httptransport.JudgmentResponse, error) {
	judgment, err := h.Cases.SendToJudgment(ctx, commands.SendToJudgmentCommand{
		CaseID:      caseID,
		ActorID:     actorID,
		PresidingID: req.PresidingID,
	})
	if err != nil {
		return httptransport.JudgmentResponse{}, err
	}
	return mapJudgment(judgment, nil), nil
}

func (h Handler) CloseCaseHandler(ctx context.Context, caseID string, actorID string) (httptransport.CaseResponse, error) {
	item, err := h.Cases.CloseCase(ctx, commands.CaseActionCommand{CaseID: caseID, ActorID: actorID})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return mapCase(item), nil
}

func (h Handler) ArchiveCaseHandler(ctx context.Context, caseID string, actorID string) (httptransport.CaseResponse, error) {
	item, err := h.Cases.ArchiveCase(ctx, commands.CaseActionCommand{CaseID: caseID, ActorID: actorID})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return mapCase(item), nil
}

func (h Handler) SubmitHandler(
	ctx context.Context,
	caseID string,
	partyID string,
	req httptransport.SubmitRequest,
) (httptransport.SubmissionResponse, error) {
	cmd := commands.SubmitCommand{
		CaseID:  caseID,
		Kind:    entities.SubmissionKind(req.Kind),
		PartyID: partyID,
		Content: req.Content,
	}
	if req.FiledAt != nil {
		cmd.FiledAt = *req.FiledAt
	}
	submission, err := h.Cases.Submit(ctx, cmd)
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return mapSubmission(submission), nil
}

func (h Handler) ListSubmissionsHandler(ctx context.Context, caseID string, includeLate bool) (httptransport.SubmissionListResponse, error) {
	items, err := h.Queries.ListSubmissions(ctx, caseID, includeLate)
	if err != nil {
		return httptransport.SubmissionListResponse{}, err
	}
	response := httptransport.SubmissionListResponse{Items: make([]httptransport.SubmissionResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, mapSubmission(item))
	}
	return response, nil
}

func (h Handler) ListDeadlinesHandler(ctx context.Context, caseID string) (httptransport.DeadlineListResponse, error) {
	windows, err := h.Queries.ListDeadlineWindows(ctx, caseID)
	if err != nil {
		return httptransport.DeadlineListResponse{}, err
	}
	return httptransport.DeadlineListResponse{Items: mapWindows(windows)}, nil
}

func (h Handler) ExtendDeadlineHandler(
	ctx context.Context,
	caseID string,
	actorID string,
	req httptransport.ExtendDeadlineRequest,
) (httptransport.DeadlineWindowResponse, error) {
	window, err := h.Cases.ExtendDeadline(ctx, commands.ExtendDeadlineCommand{
		CaseID:    caseID,
		ActorID:   actorID,
		Kind:      entities.SubmissionKind(req.Kind),
		ExtraDays: req.ExtraDays,
		Reason:    req.Reason,
	})
	if err != nil {
		return httptransport.DeadlineWindowResponse{}, err
	}
	return mapWindow(window), nil
}

func (h Handler) GetJudgmentHandler(ctx context.Context, judgmentID string) (httptransport.JudgmentResponse, error) {
	view, err := h.Queries.GetJudgment(ctx, judgmentID)
	if err != nil {
		return httptransport.JudgmentResponse{}, err
	}
	return mapJudgment(view.Judgment, view.Votes), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	judgmentID string,
	voterID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	vote, err := h.Cases.CastVote(ctx, commands.CastVoteCommand{
		JudgmentID: judgmentID,
		VoterID:    voterID,
		Value:      entities.VoteValue(req.Value),
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote), nil
}

func (h Handler) RecordOpinionHandler(
	ctx context.Context,
	judgmentID string,
	relatorID string,
	req httptransport.RecordOpinionRequest,
) (httptransport.JudgmentResponse, error) {
	judgment, err := h.Cases.RecordOpinion(ctx, commands.RecordOpinionCommand{
		JudgmentID:     judgmentID,
		RelatorID:      relatorID,
		Recommendation: entities.Outcome(req.Recommendation),
		Summary:        req.Summary,
		Grounds:        req.Grounds,
		Conclusion:     req.Conclusion,
	})
	if err != nil {
		return httptransport.JudgmentResponse{}, err
	}
	return h.GetJudgmentHandler(ctx, judgment.JudgmentID)
}

func (h Handler) CloseVotingHandler(
	ctx context.Context,
	judgmentID string,
	actorID string,
	req httptransport.CloseVotingRequest,
) (httptransport.JudgmentResponse, error) {
	judgment, err := h.Cases.CloseVoting(ctx, commands.CloseVotingCommand{
		JudgmentID: judgmentID,
		ActorID:    actorID,
		Reasoning:  req.Reasoning,
		Sanction:   entities.Sanction(req.Sanction),
	})
	if err != nil {
		return httptransport.JudgmentResponse{}, err
	}
	return h.GetJudgmentHandler(ctx, judgment.JudgmentID)
}

func (h Handler) PublishJudgmentHandler(ctx context.Context, judgmentID string, actorID string) (httptransport.JudgmentResponse, error) {
	judgment, err := h.Cases.PublishJudgment(ctx, commands.PublishJudgmentCommand{
		JudgmentID: judgmentID,
		ActorID:    actorID,
	})
	if err != nil {
		return httptransport.JudgmentResponse{}, err
	}
	return mapJudgment(judgment, nil), nil
}

func (h Handler) FileAppealHandler(
	ctx context.Context,
	judgmentID string,
	appellantID string,
	idempotencyKey string,
	req httptransport.FileAppealRequest,
) (httptransport.AppealResponse, error) {
	cmd := commands.FileAppealCommand{
		IdempotencyKey:   idempotencyKey,
		OriginJudgmentID: judgmentID,
		AppellantID:      appellantID,
		Brief:            req.Brief,
	}
	if req.FiledAt != nil {
		cmd.FiledAt = *req.FiledAt
	}
	result, err := h.Cases.FileAppeal(ctx, cmd)
	if err != nil {
		return httptransport.AppealResponse{}, err
	}
	response := httptransport.AppealResponse{
		AppealID:   result.Appeal.AppealID,
		AppealCase: mapCase(result.AppealCase),
		Origin:     mapCase(result.Origin),
		Replayed:   result.Replayed,
	}
	if !result.Appeal.WindowDeadline.IsZero() {
		deadline := result.Appeal.WindowDeadline
		response.WindowDeadline = &deadline
	}
	return response, nil
}

func subjectFromDTO(dto httptransport.SubjectDTO) entities.Subject {
	return entities.Subject{
		Kind:       entities.SubjectKind(dto.Kind),
		ID:         dto.ID,
		ElectionID: dto.ElectionID,
		SlateID:    dto.SlateID,
	}
}

func mapCase(item entities.Case) httptransport.CaseResponse {
	return httptransport.CaseResponse{
		CaseID:         item.CaseID,
		ProtocolNumber: item.ProtocolNumber,
		Kind:           string(item.Kind),
		Instance:       string(item.Instance),
		Tier:           item.Tier,
		Status:         string(item.Status),
		Target: httptransport.SubjectDTO{
			Kind:       string(item.Target.Kind),
			ID:         item.Target.ID,
			ElectionID: item.Target.ElectionID,
			SlateID:    item.Target.SlateID,
		},
		FilerID:          item.FilerID,
		Anonymous:        item.Anonymous,
		RelatorID:        item.RelatorID,
		OriginCaseID:     item.OriginCaseID,
		OriginJudgmentID: item.OriginJudgmentID,
		AppealCaseID:     item.AppealCaseID,
		Disposition:      string(item.Disposition),
		Sanction:         string(item.Sanction),
		FiledAt:          item.FiledAt,
		UpdatedAt:        item.UpdatedAt,
		ArchivedAt:       item.ArchivedAt,
	}
}

func mapPeriod(result commands.OpenPeriodResult) httptransport.PeriodResponse {
	return httptransport.PeriodResponse{
		Case:        mapCase(result.Case),
		Windows:     mapWindows(result.Windows),
		AlreadyOpen: result.AlreadyOpen,
	}
}

func mapWindows(windows []entities.DeadlineWindow) []httptransport.DeadlineWindowResponse {
	items := make([]httptransport.DeadlineWindowResponse, 0, len(windows))
	for _, window := range windows {
		items = append(items, mapWindow(window))
	}
	return items
}

func mapWindow(window entities.DeadlineWindow) httptransport.DeadlineWindowResponse {
	return httptransport.DeadlineWindowResponse{
		WindowID:     window.WindowID,
		Kind:         string(window.Kind),
		Sequence:     window.Sequence,
		OpensAt:      window.OpensAt,
		DueAt:        window.DueAt,
		Days:         window.Days,
		Mode:         string(window.Mode),
		SupersedesID: window.SupersedesID,
		Reason:       window.Reason,
	}
}

func mapSubmission(item entities.Submission) httptransport.SubmissionResponse {
	return httptransport.SubmissionResponse{
		SubmissionID: item.SubmissionID,
		CaseID:       item.CaseID,
		Kind:         string(item.Kind),
		PartyID:      item.PartyID,
		FiledAt:      item.FiledAt,
		DeadlineAt:   item.DeadlineAt,
		Timely:       item.Timely,
	}
}

func mapVote(vote entities.CommitteeVote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		VoteID:  vote.VoteID,
		VoterID: vote.VoterID,
		Value:   string(vote.Value),
		Winning: vote.Winning,
		CastAt:  vote.CastAt,
	}
}

func mapJudgment(judgment entities.Judgment, votes []entities.CommitteeVote) httptransport.JudgmentResponse {
	roster := make([]httptransport.RosterMemberDTO, 0, len(judgment.Roster))
	for _, member := range judgment.Roster {
		roster = append(roster, httptransport.RosterMemberDTO{
			MemberID: member.MemberID,
			Role:     string(member.Role),
			SlateID:  member.SlateID,
		})
	}
	response := httptransport.JudgmentResponse{
		JudgmentID:     judgment.JudgmentID,
		CaseID:         judgment.CaseID,
		Instance:       string(judgment.Instance),
		Tier:           judgment.Tier,
		Status:         string(judgment.Status),
		Roster:         roster,
		PresidingID:    judgment.PresidingID,
		RelatorID:      judgment.RelatorID,
		Outcome:        string(judgment.Outcome),
		Decision:       string(judgment.Decision),
		Reasoning:      judgment.Reasoning,
		Sanction:       string(judgment.Sanction),
		OpenedAt:       judgment.OpenedAt,
		DecidedAt:      optionalTime(judgment.DecidedAt),
		PublishedAt:    optionalTime(judgment.PublishedAt),
		AppealDeadline: optionalTime(judgment.AppealDeadline),
	}
	if judgment.Opinion != nil {
		response.Opinion = &httptransport.OpinionDTO{
			Recommendation: string(judgment.Opinion.Recommendation),
			Summary:        judgment.Opinion.Summary,
			Grounds:        judgment.Opinion.Grounds,
			Conclusion:     judgment.Opinion.Conclusion,
			RecordedAt:     judgment.Opinion.RecordedAt,
		}
	}
	for _, vote := range votes {
		response.Votes = append(response.Votes, mapVote(vote))
	}
	return response
}

func optionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := value.UTC()
	return &copied
}
