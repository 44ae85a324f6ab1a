package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunkamath/rune/internal/engine"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show indexed file, symbol, and storage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			e, err := engine.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}
			defer func() { _ = e.Stop() }()

			stats, err := e.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files:       %d\n", stats.FileCount)
			fmt.Fprintf(out, "symbols:     %d\n", stats.SymbolCount)
			fmt.Fprintf(out, "index size:  %d bytes\n", stats.IndexBytes)
			fmt.Fprintf(out, "cache size:  %d bytes\n", stats.CacheBytes)
			fmt.Fprintf(out, "watching:    %v\n", stats.Watching)
			return nil
		},
	}
	return cmd
}
