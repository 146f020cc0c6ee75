package server

import (
	"net/http"

	"go.uber.org/zap"

	"pymentor/internal/gateway/handler"
	"pymentor/internal/gateway/handler/rpc"
	"pymentor/internal/gateway/middleware"
)

type Handlers struct {
	Mentor *rpc.MentorHandler
	Watch  *rpc.WatchHandler
	Report *handler.ReportHandler
	Debug  *handler.DebugHandler
}

func NewMux(h Handlers, corsOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewMentorServiceHandler(h.Mentor))
	mux.HandleFunc("/ws/session", h.Watch.HandleSessionWS)
	mux.HandleFunc("GET /reports/{session}/{name}", h.Report.HandleDownload)

	// Debug Handlers
	mux.HandleFunc("/health", h.Debug.HandleHealth)
	mux.HandleFunc("/debug/llm-usage", h.Debug.HandleLLMUsage)
	mux.HandleFunc("/debug/frontend-trace", h.Debug.HandleFrontendTrace)

	// Middleware
	return middleware.CORS(corsOrigins)(middleware.RequestLog(logger.Named("http"))(mux))
}
