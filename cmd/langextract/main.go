// Command langextract serves the extraction API and renders annotated
// documents as highlighted HTML.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/langextract-go/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "langextract",
		Short:        "structured extraction with highlighted visualization",
		SilenceUsage: true,
	}
	serve := newServeCmd()
	root.AddCommand(serve, newRenderCmd(), newProvidersCmd())
	// Bare "langextract" serves.
	root.RunE = serve.RunE
	return root
}

func setupLogging(cfg *config.Cfg) {
	level := slog.LevelInfo
	if cfg.Verbose() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
