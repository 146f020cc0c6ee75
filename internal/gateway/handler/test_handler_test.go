package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pymentor/internal/gateway/repository/artifact"
	"pymentor/internal/llm"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestHealth(t *testing.T) {
	h := NewDebugHandler(nil, fixedCounter(3), nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["sessions"])

	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLLMUsage(t *testing.T) {
	usage := llm.NewUsageCounter()
	ctx := llm.WithPhase(context.Background(), "analysis")
	usage.Before(ctx, "analysis", llm.UserText("", "abc"))
	usage.After(ctx, "analysis", llm.Response{}, nil)

	rec := httptest.NewRecorder()
	NewDebugHandler(usage, nil, nil).HandleLLMUsage(rec, httptest.NewRequest(http.MethodGet, "/debug/llm-usage", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Phases map[string]llm.UsageStat `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Phases["analysis"].Requests)
}

func TestFrontendTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewDebugHandler(nil, nil, zap.New(core))

	rec := httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace",
		strings.NewReader(`{"session_id":"s1","stage":"editor","level":"warn","fields":{"k":"v"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("frontend trace").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "s1", entries[0].ContextMap()["session"])

	rec = httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(`{"stage":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleFrontendTrace(rec, httptest.NewRequest(http.MethodPost, "/debug/frontend-trace", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportDownload(t *testing.T) {
	store := artifact.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "s1", "report.md", []byte("# Rapport"), "text/markdown"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /reports/{session}/{name}", NewReportHandler(store, nil).HandleDownload)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/s1/report.md", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Rapport", rec.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/s1/report.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
