package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/core"
)

var expertsCmd = &cobra.Command{
	Use:   "experts",
	Short: "List the expert panel",
	Long: `List the configured expert panel with capabilities and weights.

Examples:
  # The whole panel
  conclave experts

  # Fuzzy-match names and capabilities
  conclave experts --filter arch

  # Include provider reachability
  conclave experts --ping`,
	RunE: runExperts,
}

var (
	expertsFilter string
	expertsPing   bool
	expertsJSON   bool
)

// pingTimeout bounds the reachability probe across the whole panel.
const pingTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(expertsCmd)

	expertsCmd.Flags().StringVar(&expertsFilter, "filter", "",
		"fuzzy filter over expert IDs, names, and capabilities")
	expertsCmd.Flags().BoolVar(&expertsPing, "ping", false,
		"probe each expert's provider for reachability")
	expertsCmd.Flags().BoolVar(&expertsJSON, "json", false,
		"print the panel as JSON")
}

func runExperts(_ *cobra.Command, _ []string) error {
	a, err := initApp(appOptions{withoutHistory: true})
	if err != nil {
		return err
	}
	defer a.Close()

	panel := a.registry.List()
	if expertsFilter != "" {
		panel = filterExperts(panel, expertsFilter)
	}

	var available map[string]bool
	if expertsPing {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		available = make(map[string]bool, len(panel))
		for _, id := range a.registry.Available(ctx) {
			available[id] = true
		}
	}

	if expertsJSON {
		return outputJSON(panel)
	}

	if len(panel) == 0 && expertsFilter != "" {
		fmt.Printf("no experts match %q\n", expertsFilter)
		return nil
	}
	fmt.Print(newRenderer().ExpertList(panel, available))
	return nil
}

// filterExperts fuzzy-matches the pattern against each expert's ID, display
// name, and capability tags, preserving panel order.
func filterExperts(panel []core.ExpertDescriptor, pattern string) []core.ExpertDescriptor {
	haystack := make([]string, len(panel))
	for i, e := range panel {
		haystack[i] = strings.ToLower(
			e.ID + " " + e.DisplayName + " " + strings.Join(e.Capabilities, " "))
	}

	matched := make([]bool, len(panel))
	for _, m := range fuzzy.Find(strings.ToLower(pattern), haystack) {
		matched[m.Index] = true
	}

	var kept []core.ExpertDescriptor
	for i, e := range panel {
		if matched[i] {
			kept = append(kept, e)
		}
	}
	return kept
}
