package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/langextract-go/internal/config"
	"github.com/gonkalabs/langextract-go/internal/provider/registry"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "list configured extraction providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			printProviders(cmd, cfg)
			return nil
		},
	}
}

func printProviders(cmd *cobra.Command, cfg *config.Cfg) {
	usable := map[string]bool{}
	for _, name := range registry.New(cfg).Available() {
		usable[name] = true
	}
	ks := cfg.ValidateAPIKeys()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tCONFIGURED\tCREDENTIALS")
	for _, name := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderGonka, config.ProviderNER, config.ProviderMock} {
		mark := "no"
		if usable[name] {
			mark = "yes"
		}
		if name == ks.RecommendedProvider {
			mark += " (recommended)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, mark, config.KeyEnv(name))
	}
	tw.Flush()
}
