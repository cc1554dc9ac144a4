package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dirigent/internal/config"
	"dirigent/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string

	// Loaded in PersistentPreRunE, shared by every subcommand.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dirigent",
	Short: "dirigent - context-aware directive assembly",
	Long: `dirigent detects what a coding task is about and assembles the
most relevant coding directives for it, ranked and trimmed to a token
budget.

Detection runs model providers first and falls back to fast rule-based
keyword detectors, so the pipeline always produces a usable context.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(verbose); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if cfg.Logging.DebugMode && !verbose {
			_ = logging.Initialize(true)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .dirigent/config.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Directive database (default: .dirigent/directives.db)")
}

// defaultDBPath resolves the directive database location.
func defaultDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".dirigent", "directives.db")
	}
	return filepath.Join(cwd, ".dirigent", "directives.db")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
