package httpserver

import (
	"net/http"
	"testing"

	tallyhttp "eleitoral/contexts/tabulation/tally-service/transport/http"
)

func (s testServer) seedTally(t *testing.T) {
	t.Helper()
	headers := map[string]string{"X-User-Id": "clerk"}
	rr := s.do(t, http.MethodPost, "/v1/tally/slates",
		`{"scope":{"election_id":"election-2026"},"slate_id":"slate-7","number":7,"name":"Renovar"}`, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = s.do(t, http.MethodPost, "/v1/tally/sections",
		`{"scope":{"election_id":"election-2026"},"section_id":"s1","name":"Section 1"}`, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAcceptBallotRefusesDuplicateHash(t *testing.T) {
	server := newTestServer()
	server.seedTally(t)
	headers := map[string]string{"X-User-Id": "mesario"}
	body := `{"scope":{"election_id":"election-2026"},"section_id":"s1","slate_id":"slate-7","category":"valid","hash":"h-1"}`

	rr := server.do(t, http.MethodPost, "/v1/tally/ballots", body, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var ballot tallyhttp.BallotResponse
	decodeBody(t, rr, &ballot)

	rr = server.do(t, http.MethodPost, "/v1/tally/ballots", body, headers)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure tallyhttp.ErrorResponse
	decodeBody(t, rr, &failure)
	if failure.Code != "duplicate_ballot" {
		t.Fatalf("expected duplicate_ballot, got %q", failure.Code)
	}

	rr = server.do(t, http.MethodGet, "/v1/tally/ballots/"+ballot.BallotID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSnapshotIsComputedAndChainVerifies(t *testing.T) {
	server := newTestServer()
	server.seedTally(t)
	headers := map[string]string{"X-User-Id": "mesario"}
	server.do(t, http.MethodPost, "/v1/tally/ballots",
		`{"scope":{"election_id":"election-2026"},"section_id":"s1","slate_id":"slate-7","category":"valid","hash":"h-1"}`, headers)

	rr := server.do(t, http.MethodPost, "/v1/tally/snapshots", `{"scope":{"election_id":"election-2026"}}`, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var snapshot tallyhttp.SnapshotResponse
	decodeBody(t, rr, &snapshot)
	if snapshot.Valid != 1 || snapshot.Hash == "" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	rr = server.do(t, http.MethodGet, "/v1/tally/snapshots/latest?election_id=election-2026", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var latest tallyhttp.SnapshotResponse
	decodeBody(t, rr, &latest)
	if latest.SnapshotID != snapshot.SnapshotID {
		t.Fatalf("expected latest %s, got %s", snapshot.SnapshotID, latest.SnapshotID)
	}

	rr = server.do(t, http.MethodGet, "/v1/tally/chain?election_id=election-2026", "", nil)
	var report tallyhttp.ChainReportResponse
	decodeBody(t, rr, &report)
	if !report.Intact || report.Checked != 1 {
		t.Fatalf("expected intact chain of one, got %+v", report)
	}
}

func TestFinalSnapshotBlockedByOpenCase(t *testing.T) {
	server := newTestServer()
	server.seedTally(t)
	headers := map[string]string{"X-User-Id": "mesario"}
	rr := server.do(t, http.MethodPost, "/v1/tally/sections/s1/reports",
		`{"scope":{"election_id":"election-2026"},"slate_counts":{"slate-7":0},"complete":true}`, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = server.do(t, http.MethodPost, "/v1/cases", fileCaseBody, map[string]string{"X-User-Id": testFiler})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = server.do(t, http.MethodPost, "/v1/tally/snapshots", `{"scope":{"election_id":"election-2026"},"final":true}`, headers)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var failure tallyhttp.ErrorResponse
	decodeBody(t, rr, &failure)
	if failure.Code != "open_dispute_exists" {
		t.Fatalf("expected open_dispute_exists, got %q", failure.Code)
	}

	rr = server.do(t, http.MethodGet, "/v1/tally/status?election_id=election-2026", "", nil)
	var status tallyhttp.ScopeStatusResponse
	decodeBody(t, rr, &status)
	if status.Frozen {
		t.Fatal("scope must stay open when the final barrier fails")
	}
}

func TestHomologateRequiresUserHeader(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodPost, "/v1/tally/snapshots/snap-1/homologate", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnknownSnapshotIsNotFound(t *testing.T) {
	server := newTestServer()

	rr := server.do(t, http.MethodGet, "/v1/tally/snapshots/missing", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
