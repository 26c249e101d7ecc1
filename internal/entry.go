// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lineagemap/internal/api"
	"github.com/starford/lineagemap/internal/dataset"
	"github.com/starford/lineagemap/internal/lineage"
	"github.com/starford/lineagemap/internal/mcpserver"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/sse"
	"github.com/starford/lineagemap/internal/storage"
	"github.com/starford/lineagemap/internal/store"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	db     *store.DB
	files  *storage.FS
	duck   *dataset.DuckDB
	svc    *lineage.Service
}

func (rt *runtime) Close() {
	if rt.duck != nil {
		if err := rt.duck.Close(); err != nil {
			rt.logger.Warn("duckdb close failed", slog.String("error", err.Error()))
		}
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// newApplication applies opts; without WithLogger, JSON logs go to logOut.
func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

// bootstrap opens the store, registers seed metadata and builds the lineage service.
func bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	if err := os.MkdirAll(cfg.Datasets.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create datasets dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Datasets.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rt.files = files

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	rt.db = db

	if cfg.Metadata.SeedFile != "" {
		entries, err := store.LoadSeedFile(cfg.Metadata.SeedFile)
		if err != nil {
			rt.Close()
			return nil, err
		}
		n, err := store.SyncMetadata(ctx, db, entries, logger)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("sync metadata: %w", err)
		}
		logger.Info("Metadata synced", slog.Int("entries", n), slog.String("seed_file", cfg.Metadata.SeedFile))
	}

	var loaderOpts []dataset.LoaderOption
	duck, err := dataset.OpenDuckDB()
	switch {
	case err == nil:
		rt.duck = duck
		loaderOpts = append(loaderOpts, dataset.WithDuckDB(duck, cfg.Datasets.Engine == dataset.EngineDuckDB))
	case cfg.Datasets.Engine == dataset.EngineDuckDB:
		rt.Close()
		return nil, fmt.Errorf("init duckdb: %w", err)
	default:
		logger.Warn("duckdb unavailable, parquet datasets disabled", slog.String("error", err.Error()))
	}

	svc, err := lineage.NewService(db, db, dataset.NewLoader(files, loaderOpts...), lineage.Options{
		VisitPolicy:      lineage.VisitPolicy(cfg.Lineage.VisitPolicy),
		UnresolvedPolicy: lineage.UnresolvedPolicy(cfg.Lineage.UnresolvedPolicy),
		Strict:           cfg.Lineage.Strict,
		DefaultDataset:   cfg.Datasets.Default,
		Logger:           logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.svc = svc
	return rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("datasets_path", cfg.Datasets.Path),
		slog.String("datasets_engine", cfg.Datasets.Engine),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(api.RouterConfig{
		Lineage:     rt.svc,
		Metadata:    rt.db,
		Datasets:    rt.files,
		Events:      broker,
		SSE:         broker,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		ImportLimit: cfg.RateLimit.toAPI(),
	})

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := rt.db.ListMetadata(req.Context(), 1, 0); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-import datasets as their files change.
	if cfg.Datasets.Watch {
		g.Go(func() error {
			err := dataset.Watch(gCtx, rt.files, rt.files.Root(), logger, dataset.DefaultDebounce,
				func(ctx context.Context, ref models.DatasetRef) {
					reimport(ctx, rt.svc, broker, logger, ref)
				})
			if err != nil {
				logger.Error("dataset watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// reimport runs an import for a changed dataset and announces the result.
// Datasets sharing a name resolve to the first match, as for any import.
func reimport(ctx context.Context, svc *lineage.Service, events api.Publisher, logger *slog.Logger, ref models.DatasetRef) {
	res, err := svc.ImportLineage(ctx, ref.Name)
	if err != nil {
		logger.Warn("dataset re-import failed",
			slog.String("path", ref.ID),
			slog.String("dataset", ref.Name),
			slog.String("error", err.Error()))
		if res == nil {
			return
		}
	}
	logger.Info("dataset re-imported",
		slog.String("path", res.Dataset.ID),
		slog.Int("created", res.Created),
		slog.Int("replaced", res.Replaced),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed))
	events.PublishGraphEvent(sse.LineageImported, api.ImportSummary(res))
}

// RunImport imports one dataset (the configured default when name is empty)
// and prints the result.
func RunImport(ctx context.Context, name string, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.svc.ImportLineage(ctx, name)
	if res != nil {
		if encErr := printJSON(app, res); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

// RunLineage prints the lineage map of metaID.
func RunLineage(ctx context.Context, metaID string, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	root, err := rt.svc.GetLineageMap(ctx, metaID)
	if err != nil {
		return fmt.Errorf("lineage map: %w", err)
	}
	return printJSON(app, root)
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	rt, err := bootstrap(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.db, rt.files).ServeStdio()
}

func printJSON(app *application, v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
