package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dirigent/internal/engine"
	"dirigent/internal/provider"
)

var (
	detectKeywords bool
	detectJSON     bool
)

// detectCmd runs context detection on a task description.
var detectCmd = &cobra.Command{
	Use:   "detect [task description]",
	Short: "Detect the architectural context of a task description",
	Long: `Runs the detection pipeline on a free-text task description and
prints the resulting context: layer, topics, technologies, and
confidence.

Example:
  dirigent detect "Create a React component with form validation"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectKeywords, "keywords", false, "Include matched keywords in the context")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print the full result as JSON")
	rootCmd.AddCommand(detectCmd)
}

func buildEngine() (*engine.Engine, *provider.Manager, error) {
	manager, err := provider.NewManager(cfg.Providers)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(manager, nil), manager, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	eng, _, err := buildEngine()
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	result := eng.Detect(cmd.Context(), text, engine.Options{IncludeKeywords: detectKeywords})

	if detectJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	taskCtx := result.Context
	fmt.Printf("Layer:        %s\n", taskCtx.Layer)
	fmt.Printf("Confidence:   %.2f\n", taskCtx.Confidence)
	if len(taskCtx.Topics) > 0 {
		fmt.Printf("Topics:       %s\n", strings.Join(taskCtx.Topics, ", "))
	}
	if len(taskCtx.Technologies) > 0 {
		fmt.Printf("Technologies: %s\n", strings.Join(taskCtx.Technologies, ", "))
	}
	if len(taskCtx.Keywords) > 0 {
		fmt.Printf("Keywords:     %s\n", strings.Join(taskCtx.Keywords, ", "))
	}

	diag := result.Diagnostics
	source := diag.ModelProvider
	if source == "" {
		source = "rule-based"
	}
	fmt.Printf("Source:       %s (fallback: %v, %s)\n", source, diag.FallbackUsed, diag.Elapsed)
	return nil
}
