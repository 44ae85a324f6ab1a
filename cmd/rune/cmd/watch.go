package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varunkamath/rune/internal/engine"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index the workspace, then watch it for changes until interrupted",
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

			if err := e.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press Ctrl-C to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
	return cmd
}
