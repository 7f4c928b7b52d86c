package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hacker0x01/h1ql/internal/cli/config"
	"github.com/Hacker0x01/h1ql/internal/server"
	"github.com/Hacker0x01/h1ql/pkg/adapter"
	"github.com/Hacker0x01/h1ql/pkg/h1ql"
	"github.com/Hacker0x01/h1ql/pkg/policy"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP rewrite and query service",
		Long: `Start an HTTP server exposing the rewrite pipeline. The policy file is
watched and hot-reloaded; a bad edit keeps the last good snapshot. When
an executor is configured, /v1/query runs rewritten SQL against it.`,
		Example: `  # Serve with a policy file and a Postgres executor
  h1ql serve --policies policies.yaml --listen :8080`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "Listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	logger := loggerFor(cmd, cfg)

	if flagListen, _ := cmd.Flags().GetString("listen"); flagListen != "" {
		cfg.Listen = flagListen
	}

	snap, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("loading policies from %s: %w", cfg.PolicyPath, err)
	}
	store := policy.NewStore(snap, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := store.Watch(ctx, cfg.PolicyPath); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("policy watcher stopped", "error", err)
		}
	}()

	eng := h1ql.New(store,
		h1ql.WithLogger(logger),
		h1ql.WithFunctions(cfg.Functions...),
		h1ql.WithCacheSize(cfg.CacheSize),
	)

	var exec adapter.Adapter
	if cfg.Executor.Type != "" {
		exec, err = adapter.New(cfg.Executor, logger)
		if err != nil {
			return err
		}
		if err := exec.Connect(ctx, cfg.Executor); err != nil {
			return fmt.Errorf("failed to connect executor: %w", err)
		}
		defer func() { _ = exec.Close() }()
		logger.Info("executor connected", "type", cfg.Executor.Type)
	} else {
		logger.Info("no executor configured; /v1/query disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(eng, exec, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Listen, "policies", cfg.PolicyPath,
		"snapshot_version", snap.Version())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
