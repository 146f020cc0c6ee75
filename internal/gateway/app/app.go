package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pymentor/internal/analysis"
	"pymentor/internal/gateway/config"
	"pymentor/internal/gateway/handler"
	"pymentor/internal/gateway/handler/rpc"
	"pymentor/internal/gateway/server"
	"pymentor/internal/report"
	"pymentor/internal/requirement"
	"pymentor/internal/session"
	"pymentor/internal/tutor"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	log      *zap.Logger
	server   *server.Server
	handler  http.Handler
	registry *session.Registry
	stores   *appStores
	llm      llmClients
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := loadCatalog(cfg.Session.CatalogPath)
	if err != nil {
		return nil, err
	}
	policy, analysisOpts, tutorOpts, err := mentorOptions(cfg.Mentor, logger)
	if err != nil {
		return nil, err
	}

	// Dependencies
	stores, err := initStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	clients := buildLLM(cfg.LLM, logger)
	registry := session.NewRegistry(session.RegistryConfig{
		MaxSessions: cfg.Session.MaxSessions,
		TTL:         cfg.Session.TTL,
		Catalog:     catalog,
	}, session.Deps{
		Analyzer: analysis.NewClient(clients.analysis, analysisOpts...),
		Tutor:    tutor.NewClient(clients.tutor, tutorOpts...),
		Policy:   policy,
		Logger:   logger.Named("session"),
	}, stores.snapshots)
	exporter := report.NewExporter(stores.artifacts, report.DownloadPath, logger)

	// Routing & Server
	mux := server.NewMux(server.Handlers{
		Mentor: rpc.NewMentorHandler(registry, exporter, logger),
		Watch:  rpc.NewWatchHandler(registry, logger),
		Report: handler.NewReportHandler(stores.artifacts, logger),
		Debug:  handler.NewDebugHandler(clients.usage, registry, logger),
	}, cfg.CORSOrigins, logger)

	logger.Info("mentor configured",
		zap.Int("requirements", catalog.Len()),
		zap.String("match_policy", policy.Matcher.Name()),
		zap.Bool("monotonic", policy.Monotonic),
		zap.Bool("manual_toggle", policy.ManualToggle),
		zap.String("tutor_history", cfg.Mentor.TutorHistory),
	)

	return &App{
		log:      logger,
		server:   server.New(cfg.Port, mux, logger),
		handler:  mux,
		registry: registry,
		stores:   stores,
		llm:      clients,
	}, nil
}

func loadCatalog(path string) (*requirement.Catalog, error) {
	if path == "" {
		return requirement.Default(), nil
	}
	catalog, err := requirement.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return catalog, nil
}

func mentorOptions(cfg config.MentorConfig, logger *zap.Logger) (session.Policy, []analysis.Option, []tutor.Option, error) {
	matcher, err := requirement.MatcherFor(cfg.MatchPolicy)
	if err != nil {
		return session.Policy{}, nil, nil, err
	}
	render, err := analysis.ParseRenderMode(cfg.RequirementRender)
	if err != nil {
		return session.Policy{}, nil, nil, err
	}
	history, err := tutor.ParseHistoryMode(cfg.TutorHistory)
	if err != nil {
		return session.Policy{}, nil, nil, err
	}
	policy := session.Policy{Matcher: matcher, Monotonic: cfg.Monotonic, ManualToggle: cfg.ManualToggle}
	analysisOpts := []analysis.Option{analysis.WithRenderMode(render), analysis.WithLogger(logger.Named("analysis"))}
	tutorOpts := []tutor.Option{tutor.WithHistoryMode(history), tutor.WithLogger(logger.Named("tutor"))}
	return policy, analysisOpts, tutorOpts, nil
}

// Handler exposes the routed handler without a listener.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves until ctx is done, then shuts down and flushes sessions.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Serve(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Close(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close stops the server and writes every live session to the snapshot store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.registry.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush sessions: %w", err))
	}
	a.llm.Close()
	if err := a.stores.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	a.log.Info("shutdown complete", zap.Int("sessions", a.registry.Len()))
	return errors.Join(errs...)
}
