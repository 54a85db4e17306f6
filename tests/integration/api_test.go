//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
	"github.com/conclave-ai/conclave/internal/testutil"
	"github.com/conclave-ai/conclave/internal/web"
)

// newTestAPI starts an HTTP server over a real engine with scripted
// providers and SQLite persistence. SSE streaming is covered by the web
// package tests; this suite exercises the REST surface end to end.
func newTestAPI(t *testing.T, panel []expertSpec) (*httptest.Server, *harness) {
	t.Helper()

	h := newHarness(t, nil, panel)
	srv := web.NewServer(h.engine, h.registry,
		web.WithHistory(h.store),
		web.WithBus(h.bus),
		web.WithLogger(logging.NewNop()),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, h
}

func apiPanel() []expertSpec {
	return []expertSpec{
		seat("architect", 0.4, testutil.NewMockProvider("mock").WithOpinion("Split the module along the ledger seam.", 0.86)),
		seat("reviewer", 0.35, testutil.NewMockProvider("mock").WithOpinion("The seam needs contract tests first.", 0.81)),
		seat("skeptic", 0.25, testutil.NewMockProvider("mock").WithOpinion("The seam cuts through shared state.", 0.74)),
	}
}

// request sends one JSON request and returns the status code and body.
func request(t *testing.T, ts *httptest.Server, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		testutil.AssertNoError(t, err)
	}

	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(reqBody))
	testutil.AssertNoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	testutil.AssertNoError(t, err)
	return resp.StatusCode, respBytes
}

func TestAPI_RequestLifecycle(t *testing.T) {
	ts, _ := newTestAPI(t, apiPanel())

	// 1. Submit a consensus request.
	status, body := request(t, ts, "POST", "/api/v1/requests", web.SubmitRequest{
		Prompt:    "Should the ledger move into its own module?",
		SessionID: "sess-api",
		Mode:      "consensus",
	})
	testutil.AssertEqual(t, status, http.StatusOK)

	var outcome core.Outcome
	testutil.AssertNoError(t, json.Unmarshal(body, &outcome))
	if outcome.RequestID == "" {
		t.Fatal("request_id is empty")
	}
	testutil.AssertEqual(t, outcome.Mode, core.ModeConsensus)
	if outcome.Consensus == nil {
		t.Fatal("consensus result missing from response")
	}
	testutil.AssertEqual(t, len(outcome.Consensus.ContributingExperts), 3)

	// 2. Fetch the persisted outcome by ID.
	status, body = request(t, ts, "GET", "/api/v1/requests/"+outcome.RequestID, nil)
	testutil.AssertEqual(t, status, http.StatusOK)

	var rec core.OutcomeRecord
	testutil.AssertNoError(t, json.Unmarshal(body, &rec))
	testutil.AssertEqual(t, rec.RequestID, outcome.RequestID)
	testutil.AssertEqual(t, rec.SessionID, "sess-api")
	testutil.AssertEqual(t, rec.Contributing, 3)

	// 3. The session history lists it.
	status, body = request(t, ts, "GET", "/api/v1/history?session=sess-api", nil)
	testutil.AssertEqual(t, status, http.StatusOK)

	var recs []core.OutcomeRecord
	testutil.AssertNoError(t, json.Unmarshal(body, &recs))
	testutil.AssertEqual(t, len(recs), 1)
	testutil.AssertEqual(t, recs[0].RequestID, outcome.RequestID)

	// 4. The panel endpoint returns the experts in declared order.
	status, body = request(t, ts, "GET", "/api/v1/experts", nil)
	testutil.AssertEqual(t, status, http.StatusOK)

	var experts []web.ExpertResponse
	testutil.AssertNoError(t, json.Unmarshal(body, &experts))
	testutil.AssertEqual(t, len(experts), 3)
	testutil.AssertEqual(t, experts[0].ID, "architect")
	testutil.AssertEqual(t, experts[1].ID, "reviewer")
	testutil.AssertEqual(t, experts[2].ID, "skeptic")

	// 5. Health reflects the registered panel.
	status, body = request(t, ts, "GET", "/health", nil)
	testutil.AssertEqual(t, status, http.StatusOK)

	var health struct {
		Status  string `json:"status"`
		Experts int    `json:"experts"`
	}
	testutil.AssertNoError(t, json.Unmarshal(body, &health))
	testutil.AssertEqual(t, health.Status, "healthy")
	testutil.AssertEqual(t, health.Experts, 3)
}

func TestAPI_SingularRequest(t *testing.T) {
	ts, _ := newTestAPI(t, apiPanel())

	status, body := request(t, ts, "POST", "/api/v1/requests", web.SubmitRequest{
		Prompt: "Collect individual takes on the migration order.",
		Mode:   "singular",
	})
	testutil.AssertEqual(t, status, http.StatusOK)

	var outcome core.Outcome
	testutil.AssertNoError(t, json.Unmarshal(body, &outcome))
	testutil.AssertEqual(t, outcome.Mode, core.ModeSingular)
	if outcome.Singular == nil {
		t.Fatal("singular result missing from response")
	}
	if outcome.Consensus != nil {
		t.Error("consensus result present in singular mode")
	}
	testutil.AssertEqual(t, len(outcome.Singular.Responses), 3)
}

func TestAPI_EmptyPromptRejected(t *testing.T) {
	ts, _ := newTestAPI(t, apiPanel())

	status, body := request(t, ts, "POST", "/api/v1/requests", web.SubmitRequest{})
	testutil.AssertEqual(t, status, http.StatusUnprocessableEntity)

	var envelope map[string]string
	testutil.AssertNoError(t, json.Unmarshal(body, &envelope))
	testutil.AssertContains(t, envelope["error"], "prompt")
}

func TestAPI_UnknownOutcome(t *testing.T) {
	ts, _ := newTestAPI(t, apiPanel())

	status, _ := request(t, ts, "GET", "/api/v1/requests/no-such-id", nil)
	testutil.AssertEqual(t, status, http.StatusNotFound)
}

func TestAPI_TotalFailureBadGateway(t *testing.T) {
	offline := errors.New("provider offline")
	panel := []expertSpec{
		seat("architect", 0.5, testutil.NewMockProvider("mock").WithError(offline)),
		seat("reviewer", 0.5, testutil.NewMockProvider("mock").WithError(offline)),
	}
	ts, _ := newTestAPI(t, panel)

	status, body := request(t, ts, "POST", "/api/v1/requests", web.SubmitRequest{
		Prompt: "Anyone home?",
	})
	testutil.AssertEqual(t, status, http.StatusBadGateway)

	var envelope map[string]string
	testutil.AssertNoError(t, json.Unmarshal(body, &envelope))
	testutil.AssertContains(t, envelope["error"], "failed")
}

func TestAPI_HistoryLimit(t *testing.T) {
	ts, _ := newTestAPI(t, apiPanel())

	for i := 0; i < 3; i++ {
		status, _ := request(t, ts, "POST", "/api/v1/requests", web.SubmitRequest{
			Prompt: "Round of review, please.",
		})
		testutil.AssertEqual(t, status, http.StatusOK)
	}

	status, body := request(t, ts, "GET", "/api/v1/history?limit=2", nil)
	testutil.AssertEqual(t, status, http.StatusOK)

	var recs []core.OutcomeRecord
	testutil.AssertNoError(t, json.Unmarshal(body, &recs))
	testutil.AssertEqual(t, len(recs), 2)
}
