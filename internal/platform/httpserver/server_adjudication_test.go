package httpserver

import (
	"net/http"
	"testing"

	casehttp "eleitoral/contexts/adjudication/case-service/transport/http"
)

const fileCaseBody = `{"kind":"complaint","target":{"kind":"slate","id":"slate-7","election_id":"election-2026"}}`

func TestFileCaseRequiresUserHeader(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestFileCaseRejectsInvalidJSON(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodPost, "/v1/cases", `{"kind":`, map[string]string{"X-User-Id": testFiler})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestFileCaseWithoutStandingIsForbidden(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, map[string]string{"X-User-Id": "stranger"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	var body casehttp.ErrorResponse
	decodeBody(t, rr, &body)
	if body.Code != "invalid_party" {
		t.Fatalf("expected invalid_party, got %q", body.Code)
	}
}

func TestFileCaseThenReadBackAndReplay(t *testing.T) {
	server := newTestServer()
	headers := map[string]string{"X-User-Id": testFiler, "Idempotency-Key": "file-1"}

	rr := server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var filed casehttp.CaseResponse
	decodeBody(t, rr, &filed)
	if filed.Status != "filed" || filed.ProtocolNumber == "" {
		t.Fatalf("unexpected case %+v", filed)
	}

	rr = server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d body=%s", rr.Code, rr.Body.String())
	}
	var replayed casehttp.CaseResponse
	decodeBody(t, rr, &replayed)
	if !replayed.Replayed || replayed.CaseID != filed.CaseID {
		t.Fatalf("expected replay of %s, got %+v", filed.CaseID, replayed)
	}

	rr = server.do(t, http.MethodGet, "/v1/cases/"+filed.CaseID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = server.do(t, http.MethodGet, "/v1/cases?election_id=election-2026&status=filed,admitted&open_only=true", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var list casehttp.CaseListResponse
	decodeBody(t, rr, &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected one open case, got %d", len(list.Items))
	}
}

func TestGetUnknownCaseReturnsNotFound(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodGet, "/v1/cases/missing", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestOpeningDefenseBeforeAdmissionIsConflict(t *testing.T) {
	server := newTestServer()
	rr := server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, map[string]string{"X-User-Id": testFiler})
	var filed casehttp.CaseResponse
	decodeBody(t, rr, &filed)

	rr = server.do(t, http.MethodPost, "/v1/cases/"+filed.CaseID+"/defense-period", "", map[string]string{"X-User-Id": "clerk"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListCasesRejectsBadLimit(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodGet, "/v1/cases?election_id=election-2026&limit=ten", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}
