package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/roost/internal/adapters/bank"
	"github.com/okian/roost/internal/adapters/repository"
	engine "github.com/okian/roost/internal/app"
	"github.com/okian/roost/internal/config"
	"github.com/okian/roost/internal/domain/epoch"
	"github.com/okian/roost/pkg/logger"
	"github.com/okian/roost/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Pick the ledger store.
	var store repository.Store
	if cfg.StorePath != "" {
		store, err = repository.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			os.Stderr.WriteString("failed to open ledger store: " + err.Error() + "\n")
			return
		}
		loggerInstance.Info(ctx, "using sqlite ledger store", logger.String("path", cfg.StorePath))
	} else {
		store = repository.NewMemStore()
	}

	policy := engine.EntriesPolicy(cfg.EntriesPolicy)

	eng := engine.New(
		engine.WithLogger(loggerInstance),
		engine.WithStore(store),
		engine.WithBank(bank.NewMemoryBank()),
		engine.WithResolver(epoch.New(
			epoch.WithOrigin(cfg.EpochOrigin),
			epoch.WithDayLength(time.Duration(cfg.DayLengthSeconds)*time.Second),
		)),
		engine.WithEntryFee(cfg.EntryFeeAmount()),
		engine.WithEntriesPolicy(policy),
		engine.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		engine.WithHallOfFameLimit(cfg.HallOfFameLimit),
	)
	if err := eng.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}
	defer eng.Stop()

	// Metrics and health endpoints.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(context.Background(), "metrics server shutdown", logger.Error(err))
	}
}
