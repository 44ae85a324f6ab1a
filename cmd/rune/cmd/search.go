package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varunkamath/rune/internal/engine"
)

type searchOptions struct {
	mode         string
	limit        int
	offset       int
	repositories []string
	filePatterns []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "literal, regex, symbol, semantic, or hybrid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "results to skip before the returned page")
	cmd.Flags().StringSliceVar(&opts.repositories, "repo", nil, "restrict to these repositories (repeatable)")
	cmd.Flags().StringSliceVar(&opts.filePatterns, "path", nil, "restrict to paths matching these glob patterns (repeatable)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	e, err := engine.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() { _ = e.Stop() }()

	resp, err := e.Search(cmd.Context(), engine.SearchQuery{
		Query:        query,
		Mode:         engine.Mode(opts.mode),
		Repositories: opts.repositories,
		FilePatterns: opts.filePatterns,
		Offset:       opts.offset,
		Limit:        opts.limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "no results for %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "%d of %d matches for %q (%dms, cache=%v)\n",
		len(resp.Results), resp.TotalMatches, query, resp.ElapsedMS, resp.FromCache)
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s:%d (%s, score %.3f)\n", i+1, r.FilePath, r.LineNumber, r.MatchType, r.Score)
		fmt.Fprintf(out, "   %s\n", strings.TrimSpace(r.Content))
	}
	return nil
}
