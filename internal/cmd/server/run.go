package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/epiview/epiview/internal/config"
	"github.com/epiview/epiview/internal/remote"
	"github.com/epiview/epiview/internal/runtime"
	httpserver "github.com/epiview/epiview/internal/server/http"
	browsesvc "github.com/epiview/epiview/internal/services/browse"
	episodesvc "github.com/epiview/epiview/internal/services/episodes"
	pebblestore "github.com/epiview/epiview/internal/storage/pebble"
	logpkg "github.com/epiview/epiview/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	RemoteURL     string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	// LogLevel and LogFormat override the EPIVIEW_LOG_* environment
	// variables when set.
	LogLevel  string
	LogFormat string
	Config    cfgpkg.Config
}

// logConfig resolves logger settings: explicit options win, then the
// environment, then the defaults (info/text).
func logConfig(opts Options) *logpkg.Config {
	cfg := &logpkg.Config{Level: opts.LogLevel, Format: opts.LogFormat}
	if cfg.Level == "" {
		cfg.Level = getenvDefault("EPIVIEW_LOG_LEVEL", "info")
	}
	if cfg.Format == "" {
		cfg.Format = getenvDefault("EPIVIEW_LOG_FORMAT", "text")
	}
	return cfg
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context
	// or if signal delivery needs to be observed here. We layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}
	if opts.RemoteURL == "" {
		opts.RemoteURL = opts.Config.RemoteBaseURL
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	// Build process-wide logger from options/env; defaults: level=info, format=text
	cfg := logConfig(opts)
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("Starting epiview server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("remote", opts.RemoteURL),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
	)

	source := remote.New(opts.RemoteURL, opts.Config.RequestTimeout(), procLogger.With(logpkg.Component("remote")))
	svc := episodesvc.New(rt.Store(), source, procLogger.With(logpkg.Component("episodes")))
	sess := browsesvc.NewSession(svc, nil, procLogger)
	if opts.Config.DefaultCategory != sess.Category() {
		sess.SetCategory(sctx, opts.Config.DefaultCategory)
	}
	hsrv := httpserver.New(rt, svc, sess, procLogger)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		if err := hsrv.ListenAndServe(gctx, opts.HTTPAddr); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Warm the sort order and fill the catalog ahead of the first request.
		// Startup does not fail when the remote is unreachable; the error
		// surfaces in the session for the first status poll.
		if err := svc.WarmSortOrder(gctx); err != nil && gctx.Err() == nil {
			procLogger.WithError(err).Warn("sort order warmup failed")
		}
		if err := sess.Refresh(gctx); err != nil && gctx.Err() == nil {
			procLogger.WithError(err).Warn("initial refresh failed")
		}
		return nil
	})

	err = g.Wait()
	hsrv.Close()
	return err
}
