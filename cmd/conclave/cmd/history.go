package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/history"
	"github.com/conclave-ai/conclave/internal/core"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent request outcomes",
	Long: `Show recent request outcomes from the history store, newest first.

Examples:
  # The last 20 outcomes
  conclave history

  # One session's trail
  conclave history --session refactor-auth --limit 50`,
	RunE: runHistory,
}

var (
	historyLimit   int
	historySession string
	historyJSON    bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20,
		"maximum outcomes to list")
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "",
		"list only this session's outcomes")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false,
		"print records as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.NewStore(history.Options{
		Backend:    cfg.History.Backend,
		Path:       cfg.History.Path,
		MaxEntries: cfg.History.MaxEntries,
	})
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("history is disabled (history.backend: off)")
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	var recs []*core.OutcomeRecord
	if historySession != "" {
		recs, err = store.RecentForSession(ctx, historySession, historyLimit)
	} else {
		recs, err = store.ListOutcomes(ctx, historyLimit)
	}
	if err != nil {
		return fmt.Errorf("listing outcomes: %w", err)
	}

	if historyJSON {
		return outputJSON(recs)
	}
	fmt.Print(newRenderer().HistoryList(recs))
	return nil
}
