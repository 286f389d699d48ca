package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/gonkalabs/langextract-go/internal/api"
	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/provider/registry"
	"github.com/gonkalabs/langextract-go/internal/session"
	"github.com/gonkalabs/langextract-go/internal/viewer"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		Long: `
Serve the extraction API, stored sessions and server-side playback.
Configuration comes from the environment and an optional .env file.
`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		return err
	}
	setupLogging(cfg)

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return errors.Wrap(err, "create data dir")
		}
	}
	store, err := session.Open(sessionDB(cfg.DataDir))
	if err != nil {
		return err
	}
	defer store.Close()

	pruner, err := session.NewPruner(store, cfg.SessionTTL, cfg.SessionPruneSchedule)
	if err != nil {
		return err
	}
	viewers := viewer.NewRegistry(viewer.Options{
		Interval:     cfg.AnimationInterval,
		ContextChars: cfg.ContextChars,
	})
	defer viewers.CloseAll()

	pruner.OnPruned = viewers.CloseIDs
	pruner.Start()
	defer pruner.Stop()

	providers := registry.New(cfg)
	handler := api.New(cfg, providers, store, viewers, api.NewMetrics())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()

		viewers.CloseAll()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	ks := cfg.ValidateAPIKeys()
	slog.Info("starting langextract server",
		"addr", cfg.ListenAddr,
		"env", cfg.EnvironmentInfo().Environment,
		"providers", providers.Available(),
		"recommended", ks.RecommendedProvider,
		"sessions", sessionDB(cfg.DataDir),
	)
	if !ks.HasAnyKey {
		slog.Warn("no provider configured; requests must carry api_key")
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return err
	}
	return nil
}

// sessionDB is the database file under dir, or "" for in-memory.
func sessionDB(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "sessions.db")
}
