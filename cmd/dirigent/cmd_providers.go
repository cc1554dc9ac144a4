package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"dirigent/internal/provider"
)

// providersCmd probes every configured provider and prints its health.
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Probe configured detection providers and print their health",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	manager, err := provider.NewManager(cfg.Providers)
	if err != nil {
		return err
	}

	manager.ProbeAll(cmd.Context())
	snapshot := manager.HealthSnapshot()
	if len(snapshot) == 0 {
		fmt.Println("No model providers configured; detection uses the rule-based fallback.")
		return nil
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h := snapshot[name]
		line := fmt.Sprintf("%-20s %-12s %8s", name, h.Status, h.Latency.Round(time.Millisecond))
		if h.Details != "" {
			line += "  " + h.Details
		}
		fmt.Println(line)
	}
	return nil
}
