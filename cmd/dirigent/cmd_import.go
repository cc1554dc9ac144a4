package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dirigent/internal/store"
)

var importWatch bool

// importCmd loads YAML rule files into the directive database.
var importCmd = &cobra.Command{
	Use:   "import [file-or-directory]",
	Short: "Import YAML rule files into the directive database",
	Long: `Imports directives from a YAML rule file, or from every rule file
in a directory. With --watch the directory is kept under observation
and changed files are re-imported until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "Keep watching the directory and re-import on change")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := store.Open(defaultDBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if !info.IsDir() {
		if importWatch {
			return fmt.Errorf("--watch requires a directory, got file %s", path)
		}
		n, err := s.ImportFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d directives from %s\n", n, path)
		return nil
	}

	if !importWatch {
		directives, err := store.LoadRuleDir(path)
		if err != nil {
			return err
		}
		n, err := s.UpsertBatch(ctx, directives)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d directives from %s\n", n, path)
		return nil
	}

	watcher, err := store.NewRuleWatcher(path, s)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (%d directives loaded). Press Ctrl-C to stop.\n", path, count)

	<-ctx.Done()
	return nil
}
