package httpserver

import (
	"errors"
	"net/http"

	tallydomainerrors "eleitoral/contexts/tabulation/tally-service/domain/errors"
	tallyhttp "eleitoral/contexts/tabulation/tally-service/transport/http"
)

const tabulationModule = "tabulation/tally-service"

func (s *Server) registerTabulationRoutes() {
	s.mux.HandleFunc("POST /v1/tally/slates", s.handleRegisterSlate)
	s.mux.HandleFunc("GET /v1/tally/slates", s.handleListSlates)
	s.mux.HandleFunc("POST /v1/tally/slates/{slate_id}/disqualify", s.handleDisqualifySlate)
	s.mux.HandleFunc("POST /v1/tally/sections", s.handleRegisterSection)
	s.mux.HandleFunc("POST /v1/tally/sections/{section_id}/reports", s.handleReportSection)
	s.mux.HandleFunc("POST /v1/tally/ballots", s.handleAcceptBallot)
	s.mux.HandleFunc("GET /v1/tally/ballots/{ballot_id}", s.handleGetBallot)
	s.mux.HandleFunc("POST /v1/tally/ballots/{ballot_id}/annul", s.handleAnnulBallot)
	s.mux.HandleFunc("GET /v1/tally/annulments", s.handleListAnnulments)
	s.mux.HandleFunc("POST /v1/tally/ballots/{ballot_id}/reinstate", s.handleReinstateBallot)
	s.mux.HandleFunc("GET /v1/tally/reinstatements", s.handleListReinstatements)
	s.mux.HandleFunc("POST /v1/tally/snapshots", s.handleComputeSnapshot)
	s.mux.HandleFunc("GET /v1/tally/snapshots", s.handleListSnapshots)
	s.mux.HandleFunc("GET /v1/tally/snapshots/latest", s.handleLatestSnapshot)
	s.mux.HandleFunc("GET /v1/tally/snapshots/{snapshot_id}", s.handleGetSnapshot)
	s.mux.HandleFunc("POST /v1/tally/snapshots/{snapshot_id}/homologate", s.handleHomologate)
	s.mux.HandleFunc("GET /v1/tally/chain", s.handleVerifyChain)
	s.mux.HandleFunc("GET /v1/tally/status", s.handleScopeStatus)
}

func scopeFromQuery(r *http.Request) tallyhttp.ScopeDTO {
	query := r.URL.Query()
	return tallyhttp.ScopeDTO{
		ElectionID: query.Get("election_id"),
		Region:     query.Get("region"),
	}
}

func (s *Server) handleRegisterSlate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(r); !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.RegisterSlateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.RegisterSlateHandler(r.Context(), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSlates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.ListSlatesHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisqualifySlate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.DisqualifySlateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.DisqualifySlateHandler(r.Context(), r.PathValue("slate_id"), userID, req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterSection(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(r); !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.RegisterSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.RegisterSectionHandler(r.Context(), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleReportSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.ReportSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.ReportSectionHandler(r.Context(), r.PathValue("section_id"), userID, req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAcceptBallot(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(r); !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.AcceptBallotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.AcceptBallotHandler(r.Context(), req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.GetBallotHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnnulBallot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.AnnulBallotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.AnnulBallotHandler(r.Context(), r.PathValue("ballot_id"), userID, req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListAnnulments(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.ListAnnulmentsHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReinstateBallot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.ReinstateBallotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.ReinstateBallotHandler(r.Context(), r.PathValue("ballot_id"), userID, req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListReinstatements(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.ListReinstatementsHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComputeSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req tallyhttp.ComputeSnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeTallyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.tally.Handler.ComputeSnapshotHandler(r.Context(), userID, req)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Unchanged || resp.Historical {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.ListSnapshotsHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.LatestSnapshotHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.GetSnapshotHandler(r.Context(), r.PathValue("snapshot_id"))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHomologate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(r)
	if !ok {
		writeTallyError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.tally.Handler.HomologateHandler(r.Context(), r.PathValue("snapshot_id"), userID)
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.VerifyChainHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScopeStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tally.Handler.ScopeStatusHandler(r.Context(), scopeFromQuery(r))
	if err != nil {
		s.writeTallyDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeTallyDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tallydomainerrors.ErrInvalidInput):
		writeTallyError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, tallydomainerrors.ErrSlateNotFound),
		errors.Is(err, tallydomainerrors.ErrSectionNotFound),
		errors.Is(err, tallydomainerrors.ErrBallotNotFound),
		errors.Is(err, tallydomainerrors.ErrSnapshotNotFound):
		writeTallyError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tallydomainerrors.ErrIneligible):
		writeTallyError(w, http.StatusUnprocessableEntity, "ineligible", err.Error())
	case errors.Is(err, tallydomainerrors.ErrDuplicateBallot):
		writeTallyError(w, http.StatusConflict, "duplicate_ballot", err.Error())
	case errors.Is(err, tallydomainerrors.ErrAlreadyAnnulled):
		writeTallyError(w, http.StatusConflict, "already_annulled", err.Error())
	case errors.Is(err, tallydomainerrors.ErrNotAnnulled):
		writeTallyError(w, http.StatusConflict, "not_annulled", err.Error())
	case errors.Is(err, tallydomainerrors.ErrAlreadyReinstated):
		writeTallyError(w, http.StatusConflict, "already_reinstated", err.Error())
	case errors.Is(err, tallydomainerrors.ErrScopeFrozen):
		writeTallyError(w, http.StatusConflict, "scope_frozen", err.Error())
	case errors.Is(err, tallydomainerrors.ErrSectionsPending):
		writeTallyError(w, http.StatusConflict, "sections_pending", err.Error())
	case errors.Is(err, tallydomainerrors.ErrOpenDisputeExists):
		writeTallyError(w, http.StatusConflict, "open_dispute_exists", err.Error())
	case errors.Is(err, tallydomainerrors.ErrAlreadyFinal):
		writeTallyError(w, http.StatusConflict, "already_final", err.Error())
	case errors.Is(err, tallydomainerrors.ErrNotFinal):
		writeTallyError(w, http.StatusConflict, "not_final", err.Error())
	case errors.Is(err, tallydomainerrors.ErrStaleSnapshot):
		writeTallyError(w, http.StatusConflict, "stale_snapshot", err.Error())
	case errors.Is(err, tallydomainerrors.ErrChainConflict),
		errors.Is(err, tallydomainerrors.ErrConflict),
		errors.Is(err, tallydomainerrors.ErrIdempotencyConflict):
		writeTallyError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logFailure(r, tabulationModule, err)
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
