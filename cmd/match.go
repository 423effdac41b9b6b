package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flbest/standards-crawler/internal/benchmark"
	"github.com/flbest/standards-crawler/internal/store"
)

// newMatchCmd creates the 'match' subcommand: resolve a free-text
// benchmark query against the ingested set.
func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <query>",
		Short: "Resolve a benchmark id from free-text input",
		Long: `Normalizes the query (case, dash/underscore/space separators) and
resolves it against the ingested benchmark set. Near misses within the
similarity threshold come back as a "did you mean" suggestion.`,
		Args: cobra.ExactArgs(1),
		RunE: runMatchCommand,
	}
}

func runMatchCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	known, err := appInstance.GetStore().ListBenchmarkIDs(cmd.Context())
	if err != nil {
		return fmt.Errorf("list benchmarks: %w", err)
	}

	result := benchmark.NewMatcher().Match(args[0], known)
	cmd.Println(result.Message())

	if result.Kind != benchmark.MatchExact && result.Kind != benchmark.MatchFuzzy {
		return nil
	}

	b, err := appInstance.GetStore().GetBenchmark(cmd.Context(), result.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load benchmark %s: %w", result.ID, err)
	}
	if b.Definition != "" {
		cmd.Printf("%s: %s\n", b.ID, b.Definition)
	}
	if b.CPALMSURL != "" {
		cmd.Println(b.CPALMSURL)
	}
	return nil
}
