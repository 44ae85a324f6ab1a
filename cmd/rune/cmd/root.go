// Package cmd provides the CLI commands for rune.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/varunkamath/rune/internal/config"
	"github.com/varunkamath/rune/internal/embed"
	"github.com/varunkamath/rune/internal/preflight"
)

var rootDir string

// NewRootCmd builds the rune root command and its subcommand tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rune",
		Short: "Workspace-scoped code search",
		Long: `rune indexes one or more workspace roots and serves literal,
regex, symbol, semantic, and hybrid search over them.`,
	}

	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "workspace root (default: nearest .git or current directory)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// resolveRoot returns the --root flag if set, otherwise the nearest
// project root found by walking up from the current directory.
func resolveRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd, nil
	}
	return root, nil
}

func loadConfig() (*config.Config, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}
	return config.Load(root)
}

// runPreflight runs the system checks once per cache directory (tracked by
// a marker file) before a command builds an engine from scratch. Results
// are printed to out; a critical failure aborts the command.
func runPreflight(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if !preflight.NeedsCheck(cfg.CacheDir) {
		return nil
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	modelDir := ""
	if cfg.EnableSemantic {
		modelDir = filepath.Join(cfg.CacheDir, embed.DefaultModelDir)
	}

	checker := preflight.New(preflight.WithOutput(out))
	results := checker.RunAll(ctx, cfg.CacheDir, modelDir)
	checker.PrintResults(results)

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("preflight check failed")
	}
	return preflight.MarkPassed(cfg.CacheDir)
}
