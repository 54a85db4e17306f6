package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/trigger"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "React to file changes with panel requests",
	Long: `Watch the filesystem and run a panel request for each settled change.

Code-file saves are classified as code mutations and get consensus
treatment; documentation and design files get independent singular
perspectives. Other files are ignored.

Examples:
  # Watch the configured paths (default: current directory)
  conclave watch

  # Watch specific trees with the live monitor
  conclave watch --monitor src docs`,
	Args: cobra.ArbitraryArgs,
	RunE: runWatch,
}

var (
	watchMonitor bool
	watchSession string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchMonitor, "monitor", false,
		"show the live panel monitor")
	watchCmd.Flags().StringVar(&watchSession, "session", "watch",
		"session ID recorded on triggered requests")
}

func runWatch(_ *cobra.Command, args []string) error {
	a, err := initApp(appOptions{withBus: true})
	if err != nil {
		return err
	}
	defer a.Close()

	watchCfg := a.cfg.Watch
	if len(args) > 0 {
		watchCfg.Paths = args
	}

	handler := func(ctx context.Context, event core.TriggerEvent, kind core.TriggerKind) {
		req := &core.Request{
			Prompt:        triggerPrompt(event, kind),
			SessionID:     watchSession,
			RequestedMode: core.ModeAuto,
			Trigger:       kind,
		}
		outcome, err := a.engine.Handle(ctx, req)
		if err != nil {
			a.logger.Warn("triggered request failed", "path", event.Path, "error", err)
			return
		}
		if !watchMonitor && !quiet {
			fmt.Println(outcomeSummary(event.Path, outcome))
		}
	}

	watcher, err := trigger.NewWatcher(watchCfg, nil, handler, a.logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	if watchMonitor {
		return tui.Run(ctx, a.bus)
	}

	fmt.Printf("watching %d directories, ctrl+c to stop\n", len(watcher.WatchedDirs()))
	<-ctx.Done()
	return nil
}

// triggerPrompt phrases a filesystem event as a panel request.
func triggerPrompt(event core.TriggerEvent, kind core.TriggerKind) string {
	switch kind {
	case core.TriggerCodeMutation:
		return fmt.Sprintf("The source file %s changed (%s). Review the change's likely impact on correctness, design, and tests.", event.Path, event.Op)
	case core.TriggerPlanningDiscussion:
		return fmt.Sprintf("The document %s changed (%s). Assess the updated plan and surface open questions.", event.Path, event.Op)
	default:
		return fmt.Sprintf("The file %s changed (%s). Assess the change.", event.Path, event.Op)
	}
}

// outcomeSummary is the one-line progress report printed per trigger.
func outcomeSummary(path string, o *core.Outcome) string {
	switch {
	case o.Consensus != nil:
		status := "met"
		if !o.Consensus.ThresholdMet {
			status = "not met"
		}
		return fmt.Sprintf("%s: consensus %.0f%% (%s, threshold %s, %dms)",
			path, o.Consensus.Confidence*100, o.Consensus.Method, status, o.Consensus.LatencyMs)
	case o.Singular != nil:
		return fmt.Sprintf("%s: %d expert responses (%dms)",
			path, len(o.Singular.Responses), o.Singular.LatencyMs)
	}
	return path
}
