package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	casedomainerrors "eleitoral/contexts/adjudication/case-service/domain/errors"
	casehttp "eleitoral/contexts/adjudication/case-service/transport/http"
)

const adjudicationModule = "adjudication/case-service"

func (s *Server) registerAdjudicationRoutes() {
	s.mux.HandleFunc("POST /v1/cases", s.handleFileCase)
	s.mux.HandleFunc("GET /v1/cases", s.handleListCases)
	s.mux.HandleFunc("GET /v1/cases/{case_id}", s.handleGetCase)
	s.mux.HandleFunc("GET /v1/cases/{case_id}/history", s.handleCaseHistory)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/admissibility-review", s.handleBeginAdmissibilityReview)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/admissibility", s.handleReviewAdmissibility)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/defense-period", s.handleOpenDefensePeriod)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/evidence-period", s.handleOpenEvidencePeriod)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/judgment", s.handleSendToJudgment)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/close", s.handleCloseCase)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/archive", s.handleArchiveCase)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/submissions", s.handleSubmit)
	s.mux.HandleFunc("GET /v1/cases/{case_id}/submissions", s.handleListSubmissions)
	s.mux.HandleFunc("GET /v1/cases/{case_id}/deadlines", s.handleListDeadlines)
	s.mux.HandleFunc("POST /v1/cases/{case_id}/deadlines/extend", s.handleExtendDeadline)

	s.mux.HandleFunc("GET /v1/judgments/{judgment_id}", s.handleGetJudgment)
	s.mux.HandleFunc("POST /v1/judgments/{judgment_id}/opinion", s.handleRecordOpinion)
	s.mux.HandleFunc("POST /v1/judgments/{judgment_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /v1/judgments/{judgment_id}/close", s.handleCloseVoting)
	s.mux.HandleFunc("POST /v1/judgments/{judgment_id}/publish", s.handlePublishJudgment)
	s.mux.HandleFunc("POST /v1/judgments/{judgment_id}/appeals", s.handleFileAppeal)
}

func (s *Server) handleFileCase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.FileCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.FileCaseHandler(r.Context(), userID, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var statuses []string
	for _, raw := range query["status"] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				statuses = append(statuses, item)
			}
		}
	}
	openOnly, err := queryBool(r, "open_only")
	if err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_open_only", "open_only must be a boolean")
		return
	}
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err = strconv.Atoi(limitRaw)
		if err != nil {
			writeCaseError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
	}

	resp, err := s.cases.Handler.ListCasesHandler(r.Context(), query.Get("election_id"), statuses, openOnly, limit)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cases.Handler.GetCaseHandler(r.Context(), r.PathValue("case_id"))
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCaseHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cases.Handler.CaseHistoryHandler(r.Context(), r.PathValue("case_id"))
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBeginAdmissibilityReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.AssignRelatorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.BeginAdmissibilityReviewHandler(r.Context(), r.PathValue("case_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReviewAdmissibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.AdmissibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.ReviewAdmissibilityHandler(r.Context(), r.PathValue("case_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenDefensePeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.cases.Handler.OpenDefensePeriodHandler(r.Context(), r.PathValue("case_id"), userID)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenEvidencePeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.cases.Handler.OpenEvidencePeriodHandler(r.Context(), r.PathValue("case_id"), userID)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendToJudgment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.SendToJudgmentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}

	resp, err := s.cases.Handler.SendToJudgmentHandler(r.Context(), r.PathValue("case_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCloseCase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.cases.Handler.CloseCaseHandler(r.Context(), r.PathValue("case_id"), userID)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArchiveCase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.cases.Handler.ArchiveCaseHandler(r.Context(), r.PathValue("case_id"), userID)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.SubmitHandler(r.Context(), r.PathValue("case_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	includeLate, err := queryBool(r, "include_late")
	if err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_include_late", "include_late must be a boolean")
		return
	}
	resp, err := s.cases.Handler.ListSubmissionsHandler(r.Context(), r.PathValue("case_id"), includeLate)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDeadlines(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cases.Handler.ListDeadlinesHandler(r.Context(), r.PathValue("case_id"))
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtendDeadline(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.ExtendDeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.ExtendDeadlineHandler(r.Context(), r.PathValue("case_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetJudgment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cases.Handler.GetJudgmentHandler(r.Context(), r.PathValue("judgment_id"))
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordOpinion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.RecordOpinionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.RecordOpinionHandler(r.Context(), r.PathValue("judgment_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.CastVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.CastVoteHandler(r.Context(), r.PathValue("judgment_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.CloseVotingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.CloseVotingHandler(r.Context(), r.PathValue("judgment_id"), userID, req)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublishJudgment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.cases.Handler.PublishJudgmentHandler(r.Context(), r.PathValue("judgment_id"), userID)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFileAppeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeCaseError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req casehttp.FileAppealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeCaseError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.cases.Handler.FileAppealHandler(
		r.Context(),
		r.PathValue("judgment_id"),
		userID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		s.writeCaseDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeCaseDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, casedomainerrors.ErrInvalidInput):
		writeCaseError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, casedomainerrors.ErrIdempotencyKeyRequired):
		writeCaseError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, casedomainerrors.ErrCaseNotFound):
		writeCaseError(w, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, casedomainerrors.ErrJudgmentNotFound):
		writeCaseError(w, http.StatusNotFound, "judgment_not_found", err.Error())
	case errors.Is(err, casedomainerrors.ErrNoDeadlineWindow):
		writeCaseError(w, http.StatusConflict, "no_deadline_window", err.Error())
	case errors.Is(err, casedomainerrors.ErrInvalidTransition):
		writeCaseError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, casedomainerrors.ErrInvalidParty):
		writeCaseError(w, http.StatusForbidden, "invalid_party", err.Error())
	case errors.Is(err, casedomainerrors.ErrIneligible):
		writeCaseError(w, http.StatusForbidden, "ineligible", err.Error())
	case errors.Is(err, casedomainerrors.ErrWindowExpired):
		writeCaseError(w, http.StatusUnprocessableEntity, "window_expired", err.Error())
	case errors.Is(err, casedomainerrors.ErrWindowOpen):
		writeCaseError(w, http.StatusConflict, "window_open", err.Error())
	case errors.Is(err, casedomainerrors.ErrDuplicateVote):
		writeCaseError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, casedomainerrors.ErrQuorumNotMet):
		writeCaseError(w, http.StatusConflict, "quorum_not_met", err.Error())
	case errors.Is(err, casedomainerrors.ErrJudgmentClosed):
		writeCaseError(w, http.StatusConflict, "judgment_closed", err.Error())
	case errors.Is(err, casedomainerrors.ErrJudgmentNotPublished):
		writeCaseError(w, http.StatusConflict, "judgment_not_published", err.Error())
	case errors.Is(err, casedomainerrors.ErrAlreadyAppealed):
		writeCaseError(w, http.StatusConflict, "already_appealed", err.Error())
	case errors.Is(err, casedomainerrors.ErrIdempotencyConflict):
		writeCaseError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, casedomainerrors.ErrConflict):
		writeCaseError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logFailure(r, adjudicationModule, err)
		writeCaseError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeCaseError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, casehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
