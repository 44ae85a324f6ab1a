package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunkamath/rune/internal/engine"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the workspace index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := runPreflight(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
				return err
			}

			e, err := engine.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}
			defer func() { _ = e.Stop() }()

			if err := e.Reindex(cmd.Context()); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			stats, err := e.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files, %d symbols\n", stats.FileCount, stats.SymbolCount)
			return nil
		},
	}
	return cmd
}
