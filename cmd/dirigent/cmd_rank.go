package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dirigent/internal/engine"
	"dirigent/internal/ranking"
	"dirigent/internal/store"
	"dirigent/internal/types"
)

var (
	rankMode     string
	rankMaxItems int
	rankBudget   int
	rankMinScore float64
	rankRulesDir string
	rankJSON     bool
)

// rankCmd detects context for a task and ranks stored directives
// against it.
var rankCmd = &cobra.Command{
	Use:   "rank [task description]",
	Short: "Rank stored directives against a task description",
	Long: `Detects the task's context, scores every stored directive against
it, and prints the ranked list. With --budget the list is additionally
packed into a token allowance.

Examples:
  dirigent rank "fix the flaky integration test" --mode debug
  dirigent rank "add a payment endpoint" --budget 800 --max-items 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVar(&rankMode, "mode", "", "Scoring mode: architect, code, or debug")
	rankCmd.Flags().IntVar(&rankMaxItems, "max-items", 0, "Cap the number of returned directives")
	rankCmd.Flags().IntVar(&rankBudget, "budget", 0, "Token budget to pack into (0 = unlimited)")
	rankCmd.Flags().Float64Var(&rankMinScore, "min-score", 0, "Minimum score to keep (negative disables filtering)")
	rankCmd.Flags().StringVar(&rankRulesDir, "rules", "", "Load directives from a YAML rule directory instead of the database")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	mode, err := ranking.ParseMode(rankMode)
	if err != nil {
		return err
	}

	candidates, err := loadCandidates(cmd)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no directives available; import rule files first (dirigent import)")
	}

	eng, _, err := buildEngine()
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	detection := eng.Detect(cmd.Context(), text, engine.Options{IncludeKeywords: true})

	ranker, err := ranking.NewRanker(cfg.Scoring, cfg.Performance, cfg.TokenBudget)
	if err != nil {
		return err
	}
	result, err := ranker.Rank(cmd.Context(), candidates, &detection.Context, ranking.Options{
		Mode:        mode,
		MaxItems:    rankMaxItems,
		TokenBudget: rankBudget,
		MinScore:    rankMinScore,
	})
	if err != nil {
		return err
	}

	if rankJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Context: %s (confidence %.2f)\n\n", detection.Context.Layer, detection.Context.Confidence)
	for i, rd := range result.Directives {
		fmt.Printf("%2d. [%.3f] %-6s %s\n", i+1, rd.Score, rd.Directive.Severity, rd.Directive.Text)
	}
	if result.Budget != nil {
		b := result.Budget
		fmt.Printf("\nBudget: %d tokens used, %d remaining, %d truncated, %d excluded\n",
			b.TokensUsed, b.TokensRemaining, b.TruncatedCount, b.ExcludedCount)
	}
	return nil
}

func loadCandidates(cmd *cobra.Command) ([]types.Directive, error) {
	if rankRulesDir != "" {
		return store.LoadRuleDir(rankRulesDir)
	}

	s, err := store.Open(defaultDBPath())
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.All(cmd.Context())
}
