package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stranske/tripward/pkg/exception"
	"github.com/stranske/tripward/pkg/policy/api"
	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/snapshot"
)

const testPolicy = `
rules:
  advance_booking:
    days_required: 14
  fare_evidence: {}
`

func newTestServer(t *testing.T) (*Server, *snapshot.MemoryStore, *exception.Registry) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(testPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	manager, err := engine.NewManager(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })

	store := snapshot.NewMemoryStore()
	exceptions := exception.NewRegistry()
	srv := New(Config{Listen: "127.0.0.1:0"}, manager, store, exceptions, nil, prometheus.NewRegistry(), nil)
	return srv, store, exceptions
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	recorder := doRequest(t, srv, http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	recorder := doRequest(t, srv, http.MethodPost, "/v1/check", `{
		"booking_date": "2025-01-01T00:00:00Z",
		"departure_date": "2025-01-10T00:00:00Z"
	}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusOK, recorder.Body)
	}

	var result api.CheckResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Status != api.StatusFail {
		t.Errorf("Status = %s, want %s (missing fare evidence blocks)", result.Status, api.StatusFail)
	}
	if result.PolicyVersion == "" {
		t.Errorf("PolicyVersion is empty")
	}
}

func TestCheckEndpointRejectsUnknownFields(t *testing.T) {
	srv, _, _ := newTestServer(t)
	recorder := doRequest(t, srv, http.MethodPost, "/v1/check", `{"favorite_color": "blue"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestTripCheckAppendsChainedSnapshots(t *testing.T) {
	srv, store, _ := newTestServer(t)

	body := `{"fare_evidence_attached": true}`
	first := doRequest(t, srv, http.MethodPost, "/v1/trips/T1/check", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first check status = %d: %s", first.Code, first.Body)
	}
	second := doRequest(t, srv, http.MethodPost, "/v1/trips/T1/check", body)
	if second.Code != http.StatusOK {
		t.Fatalf("second check status = %d: %s", second.Code, second.Body)
	}

	var firstResp, secondResp tripCheckResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatal(err)
	}
	if firstResp.ChainHash == "" || secondResp.ChainHash == "" {
		t.Fatalf("chain hashes missing from responses")
	}

	snaps, err := store.LoadTripSnapshots("T1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[1].PreviousHash != snaps[0].ChainHash {
		t.Errorf("snapshots are not chained")
	}
	if err := snapshot.VerifyChain(snaps); err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
}

func TestExceptionCreateRegistersRequest(t *testing.T) {
	srv, _, exceptions := newTestServer(t)

	recorder := doRequest(t, srv, http.MethodPost, "/v1/exceptions", `{
		"type": "advance_booking",
		"justification": "Customer outage requires on-site presence on short notice this week",
		"requestor": "jordan.reyes",
		"amount": "800.00"
	}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusCreated, recorder.Body)
	}

	var created exception.Request
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Errorf("created request has no id")
	}
	if created.ApprovalLevel != exception.LevelManager {
		t.Errorf("ApprovalLevel = %s, want %s", created.ApprovalLevel, exception.LevelManager)
	}

	open := exceptions.Open()
	if len(open) != 1 {
		t.Fatalf("len(open) = %d, want 1; filed requests must reach the escalation registry", len(open))
	}
	if open[0].ID != created.ID {
		t.Errorf("registry holds %s, want %s", open[0].ID, created.ID)
	}
}

func TestExceptionCreateRejectsInvalidRequests(t *testing.T) {
	srv, _, exceptions := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "short justification",
			body: `{"type": "advance_booking", "justification": "too short", "requestor": "jordan.reyes"}`,
		},
		{
			name: "unknown type",
			body: `{"type": "time_travel", "justification": "` + strings.Repeat("x", 60) + `", "requestor": "jordan.reyes"}`,
		},
		{
			name: "unknown field",
			body: `{"type": "advance_booking", "priority": "urgent"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doRequest(t, srv, http.MethodPost, "/v1/exceptions", tt.body)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d: %s", recorder.Code, http.StatusBadRequest, recorder.Body)
			}
		})
	}
	if len(exceptions.All()) != 0 {
		t.Errorf("rejected requests must not reach the registry")
	}
}

func TestExceptionListReportsOpenRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/v1/exceptions", `{
		"type": "hotel_comparison",
		"justification": "Conference block sold out; only two comparable rates were available",
		"requestor": "jordan.reyes"
	}`)

	recorder := doRequest(t, srv, http.MethodGet, "/v1/exceptions", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}

	var listed exceptionListResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed.Open) != 1 {
		t.Fatalf("len(Open) = %d, want 1", len(listed.Open))
	}
	if listed.Dashboard.ByType["hotel_comparison"] != 1 {
		t.Errorf("dashboard ByType = %v, want hotel_comparison counted once", listed.Dashboard.ByType)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	recorder := doRequest(t, srv, http.MethodGet, "/metrics", "")
	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
}
