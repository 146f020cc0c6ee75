package handler

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"pymentor/internal/gateway/repository/artifact"
)

// ReportHandler streams exported reports for stores without direct links.
type ReportHandler struct {
	store artifact.Store
	log   *zap.Logger
}

func NewReportHandler(store artifact.Store, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{store: store, log: logger.Named("report")}
}

// HandleDownload serves GET /reports/{session}/{name}.
func (h *ReportHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session"))
	name := strings.TrimSpace(r.PathValue("name"))
	if sessionID == "" || name == "" {
		http.Error(w, "session and name are required", http.StatusBadRequest)
		return
	}
	raw, err := h.store.Get(r.Context(), sessionID, name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("report read failed", zap.String("session", sessionID), zap.String("name", name), zap.Error(err))
		http.Error(w, "report unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType(name))
	_, _ = w.Write(raw)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
