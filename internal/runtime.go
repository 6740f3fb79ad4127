package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/inkwell/internal/dualwrite"
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/observability"
	"github.com/starford/inkwell/internal/pipeline"
	"github.com/starford/inkwell/internal/reconcile"
	"github.com/starford/inkwell/internal/remote"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
)

// Runtime is the wired component graph shared by the server, the MCP
// transport and the one-shot CLI commands.
type Runtime struct {
	Config      *Config
	Logger      *slog.Logger
	Service     *pipeline.Service
	Coordinator *dualwrite.Coordinator
	Reconciler  *reconcile.Reconciler
	DB          *index.DB
	Broker      *sse.Broker
	Local       *storage.FS // nil without a working copy
	Version     string

	shutdownTracer observability.ShutdownFunc
}

// initTracer is replaced in tests.
var initTracer = observability.InitTracer

// Build wires every component from the given options. On failure, whatever
// was already opened is released.
func Build(ctx context.Context, opts ...Option) (_ *Runtime, err error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	rt := &Runtime{Config: cfg, Logger: logger, Version: app.version}
	defer func() {
		if err == nil {
			return
		}
		if cerr := rt.Close(context.Background()); cerr != nil {
			logger.Warn("release after failed build", slog.String("error", cerr.Error()))
		}
	}()

	shutdown, err := initTracer(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	rt.shutdownTracer = shutdown

	var local storage.Provider
	if root := cfg.Store.Local.Root; root != "" {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(cfg.Store.ContentDir)), 0o755); err != nil {
			return nil, fmt.Errorf("create content dir: %w", err)
		}
		var fsOpts []storage.FSOption
		if cfg.Store.Local.LockFile != "" {
			fsOpts = append(fsOpts, storage.WithLockFile(cfg.Store.Local.LockFile))
		}
		fs, err := storage.NewFS(root, fsOpts...)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.Local = fs
		local = fs
	}

	rt.DB, err = index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	rem, err := newRemote(cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("init remote: %w", err)
	}

	rt.Coordinator, err = dualwrite.New(dualwrite.Config{
		Mode:       dualwrite.Mode(cfg.Store.Mode),
		TablePath:  cfg.Store.TablePath,
		ContentDir: cfg.Store.ContentDir,
	}, local, rem, logger)
	if err != nil {
		return nil, fmt.Errorf("init coordinator: %w", err)
	}

	rt.Reconciler = reconcile.New(rt.Coordinator,
		reconcile.WithCollection(cfg.Store.Collection),
		reconcile.WithConcurrency(cfg.Reconcile.Concurrency),
		reconcile.WithLogger(logger),
	)

	rt.Broker = sse.NewBroker(2 * time.Second)

	svcOpts := []pipeline.Option{pipeline.WithEvents(rt.Broker), pipeline.WithLogger(logger)}
	if rt.Coordinator.Mode() == dualwrite.ModeLocal && rt.Local != nil {
		svcOpts = append(svcOpts, pipeline.WithLocker(rt.Local))
	}
	rt.Service = pipeline.New(rt.Coordinator, rt.Reconciler, rt.DB, svcOpts...)

	logger.Info("Configuration loaded",
		slog.String("store_mode", cfg.Store.Mode),
		slog.String("remote_provider", cfg.Remote.Provider),
		slog.String("table_path", cfg.Store.TablePath),
		slog.String("content_dir", cfg.Store.ContentDir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return rt, nil
}

func newRemote(cfg RemoteConfig) (remote.Store, error) {
	switch cfg.Provider {
	case RemoteGitHub:
		return remote.NewGitHub(remote.GitHubConfig{
			Owner:   cfg.Owner,
			Repo:    cfg.Repo,
			Branch:  cfg.Branch,
			Token:   cfg.Token,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, nil)
	case RemoteMemory:
		return remote.NewMemory(), nil
	default:
		return nil, nil
	}
}

// SyncIndex refreshes the content index. A working copy is indexed straight
// from disk; otherwise the authoritative store is read.
func (rt *Runtime) SyncIndex(ctx context.Context) error {
	if rt.Coordinator.Mode() == dualwrite.ModeLocal && rt.Local != nil {
		return index.Sync(rt.DB, rt.Local, rt.Config.Store.ContentDir, rt.Reconciler.Parse, rt.Logger)
	}
	_, err := rt.Service.RefreshIndex(ctx)
	return err
}

// Close releases the index, the broker and the tracer.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Broker != nil {
		rt.Broker.Close()
	}
	if rt.DB != nil {
		errs = append(errs, rt.DB.Close())
	}
	if rt.shutdownTracer != nil {
		errs = append(errs, rt.shutdownTracer(ctx))
	}
	return errors.Join(errs...)
}
