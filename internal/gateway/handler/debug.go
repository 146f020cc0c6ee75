package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pymentor/internal/llm"
)

// SessionCounter reports how many sessions are live in memory.
type SessionCounter interface {
	Len() int
}

type DebugHandler struct {
	usage    *llm.UsageCounter
	sessions SessionCounter
	log      *zap.Logger
}

func NewDebugHandler(usage *llm.UsageCounter, sessions SessionCounter, logger *zap.Logger) *DebugHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugHandler{usage: usage, sessions: sessions, log: logger.Named("debug")}
}

func (h *DebugHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	live := 0
	if h.sessions != nil {
		live = h.sessions.Len()
	}
	writeJSON(w, map[string]any{"ok": true, "sessions": live})
}

func (h *DebugHandler) HandleLLMUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := map[string]llm.UsageStat{}
	if h.usage != nil {
		out = h.usage.Snapshot()
	}
	writeJSON(w, map[string]any{"phases": out})
}

// HandleFrontendTrace records a client-side trace event in the server log.
func (h *DebugHandler) HandleFrontendTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Timestamp string         `json:"timestamp"`
		SessionID string         `json:"session_id"`
		Stage     string         `json:"stage"`
		Level     string         `json:"level"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(in.SessionID)
	stage := strings.TrimSpace(in.Stage)
	if sessionID == "" || stage == "" {
		http.Error(w, "session_id and stage are required", http.StatusBadRequest)
		return
	}
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("stage", stage),
		zap.Any("fields", in.Fields),
	}
	if ts := strings.TrimSpace(in.Timestamp); ts != "" {
		fields = append(fields, zap.String("frontend_timestamp", ts))
	}
	switch strings.ToLower(strings.TrimSpace(in.Level)) {
	case "error":
		h.log.Error("frontend trace", fields...)
	case "warn", "warning":
		h.log.Warn("frontend trace", fields...)
	default:
		h.log.Info("frontend trace", fields...)
	}
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
