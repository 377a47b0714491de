// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tally/internal/api"
	"github.com/starford/tally/internal/docfile"
	"github.com/starford/tally/internal/export"
	"github.com/starford/tally/internal/mcpserver"
	"github.com/starford/tally/internal/preview"
	"github.com/starford/tally/internal/raster"
	"github.com/starford/tally/internal/session"
	"github.com/starford/tally/internal/sse"
	"github.com/starford/tally/internal/storage"
	"github.com/starford/tally/internal/watch"
)

// runtime holds what every command needs: config, logger, the export
// directory and the rasterizer.
type runtime struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	capturer *raster.Rasterizer
}

func setup(opts []Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("output_dir", cfg.Export.OutputDir),
		slog.Float64("scale", cfg.Export.Scale),
		slog.String("page_format", cfg.Export.PageFormat),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure export directory exists.
	if err := os.MkdirAll(cfg.Export.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Export.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	capturer, err := raster.New(raster.DefaultWidth)
	if err != nil {
		return nil, fmt.Errorf("init rasterizer: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, store: store, capturer: capturer}, nil
}

func (rt *runtime) newService() (*session.Service, error) {
	return session.NewService(rt.capturer, rt.store, rt.cfg.Export.Options(rt.logger)...)
}

func (rt *runtime) newPipeline() (*export.Pipeline, error) {
	return export.NewPipeline(rt.capturer, rt.store, rt.cfg.Export.Options(rt.logger)...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	svc, err := rt.newService()
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()
	svc.OnEvent(broker.PublishDocumentEvent)

	// Build API router.
	apiRouter := api.NewRouter(svc, rt.store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	svc, err := rt.newService()
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}
	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// Render exports the document file at path once and returns the result and
// the rendered preview.
func Render(ctx context.Context, path string, opts ...Option) (*export.Result, preview.Layout, error) {
	rt, err := setup(opts)
	if err != nil {
		return nil, preview.Layout{}, err
	}
	d, err := docfile.Load(path)
	if err != nil {
		return nil, preview.Layout{}, err
	}
	p, err := rt.newPipeline()
	if err != nil {
		return nil, preview.Layout{}, err
	}

	l := preview.Render(d)
	surface := preview.NewSurface()
	surface.Show(l)

	res, err := p.Export(ctx, surface)
	if err != nil {
		return nil, l, err
	}
	if res == nil {
		return nil, l, fmt.Errorf("render %s: preview not mounted", path)
	}
	rt.logger.Info("rendered",
		slog.String("source", path),
		slog.String("file", res.FileName),
		slog.String("output_dir", rt.store.Root()))
	return res, l, nil
}

// Watch re-exports the document file at path whenever it changes, until ctx
// is cancelled or the process receives SIGINT or SIGTERM.
func Watch(ctx context.Context, path string, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	p, err := rt.newPipeline()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch.Watch(ctx, path, p, rt.logger, func(res *export.Result, err error) {
		if err != nil {
			return
		}
		rt.logger.Info("exported",
			slog.String("file", res.FileName),
			slog.String("checksum", res.Checksum))
	})
}
