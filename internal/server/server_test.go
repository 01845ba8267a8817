package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"nion/internal/cache"
	"nion/internal/config"
	"nion/internal/engine"
	nionerrors "nion/internal/errors"
	"nion/internal/knowledge"
	"nion/internal/llm"
)

func newTestServer(t *testing.T, client llm.Client) *Server {
	t.Helper()
	know := knowledge.NewService(cache.NewTiered(nil, cache.NewMemoryStore(16), nil), time.Minute)
	eng, err := engine.New(client, know, engine.Options{
		Retry:      nionerrors.RetryConfig{MaxAttempts: 1},
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	cfg, err := config.Load(config.WithEnvLookup(func(string) (string, bool) { return "", false }))
	require.NoError(t, err)
	return New(eng, cfg)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var validBody = map[string]string{
	"message":    "The customer demo went great! They are willing to pay for notifications.",
	"sender":     "Sarah Chen",
	"project_id": "PRJ-ALPHA",
	"message_id": "MSG-001",
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "Nion Orchestration Engine", body["service"])
}

func TestProcessEndpointReturnsSummary(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	rec := postJSON(t, srv.Handler(), "/process", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	var body processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.StateID)
	require.Equal(t, "COMPLETED", body.Status)
	require.Positive(t, body.ExecutionResultsCount)
}

func TestProcessRejectsIncompleteBody(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	rec := postJSON(t, srv.Handler(), "/process", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessMapReturnsPlainTextAndHeaders(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	rec := postJSON(t, srv.Handler(), "/process/map", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "NION ORCHESTRATION MAP")
	// The fixed-order pipeline runs every coordinator.
	require.Contains(t, rec.Body.String(), "[L2_Tracking_001]")
	require.Contains(t, rec.Body.String(), "[L2_Communication_001]")
	require.Contains(t, rec.Body.String(), "[Cross_Knowledge_001]")
	require.Contains(t, rec.Body.String(), "DEC-001")

	require.NotEmpty(t, rec.Header().Get("X-State-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Execution-Time-Ms"))
	require.Equal(t, "3", rec.Header().Get("X-Tasks-Executed"))
}

func TestProcessJSONReturnsDocument(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	rec := postJSON(t, srv.Handler(), "/process/json", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["state_id"])
	require.Contains(t, body, "plan")
	require.Contains(t, body, "execution_results")
	require.Contains(t, body, "execution_time_ms")
	require.Equal(t, rec.Header().Get("X-State-ID"), body["state_id"])
}

func TestAbortedRunMapsToServerError(t *testing.T) {
	client := llm.GenerateFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", context.DeadlineExceeded
	})
	srv := newTestServer(t, client)
	rec := postJSON(t, srv.Handler(), "/process", validBody)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Error processing message")
}

func TestIndexListsEndpoints(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "/process/map"))
}

func TestMetricsEndpointServes(t *testing.T) {
	srv := newTestServer(t, llm.NewMockClient())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
