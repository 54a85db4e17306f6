package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/conclave-ai/conclave/internal/adapters/analyzer"
	"github.com/conclave-ai/conclave/internal/clip"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Run one request through the expert panel",
	Long: `Submit a prompt to the expert panel and print the resolved result.

Consensus mode (the default for unclassified requests) synthesizes one
weighted answer; singular mode prints each expert's independent take.

Examples:
  # Consensus over the full panel
  conclave ask "Should the session store move to SQLite?"

  # Independent perspectives from the testing specialists only
  conclave ask --mode singular --capabilities testing "How would you test the retry path?"

  # Attach structural facts from a source file
  conclave ask --analyze handler.go "Review this handler for layering problems"

  # Watch the panel work
  conclave ask --monitor "Is the dispatcher worth splitting?"`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

var (
	askMode         string
	askCapabilities []string
	askThreshold    float64
	askStrategy     string
	askSession      string
	askHybrid       bool
	askFile         string
	askAnalyze      string
	askCopy         bool
	askMonitor      bool
	askJSON         bool
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askMode, "mode", "m", "auto",
		"operating mode (consensus, singular, auto)")
	askCmd.Flags().StringSliceVarP(&askCapabilities, "capabilities", "c", nil,
		"required capability tags (filters the panel)")
	askCmd.Flags().Float64VarP(&askThreshold, "threshold", "t", 0,
		"consensus confidence threshold (0 = configured default)")
	askCmd.Flags().StringVar(&askStrategy, "strategy", "",
		"weighting strategy (balanced, quality_focused, workflow_focused, adaptive)")
	askCmd.Flags().StringVarP(&askSession, "session", "s", "",
		"session ID for conversation continuity")
	askCmd.Flags().BoolVar(&askHybrid, "hybrid", false,
		"hybrid resolution: majority voting plus weighted confidence")
	askCmd.Flags().StringVarP(&askFile, "file", "f", "",
		"read the prompt from a file")
	askCmd.Flags().StringVar(&askAnalyze, "analyze", "",
		"attach structural facts extracted from a source file")
	askCmd.Flags().BoolVar(&askCopy, "copy", false,
		"copy the final text to the clipboard")
	askCmd.Flags().BoolVar(&askMonitor, "monitor", false,
		"show the live panel monitor while the request runs")
	askCmd.Flags().BoolVar(&askJSON, "json", false,
		"print the raw outcome as JSON")
}

func runAsk(_ *cobra.Command, args []string) error {
	prompt, err := getPrompt(args, askFile)
	if err != nil {
		return err
	}

	mode := core.Mode(askMode)
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q (want consensus, singular, or auto)", askMode)
	}

	a, err := initApp(appOptions{withBus: askMonitor})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	req := &core.Request{
		Prompt:               prompt,
		SessionID:            askSession,
		RequestedMode:        mode,
		ConsensusThreshold:   askThreshold,
		RequiredCapabilities: askCapabilities,
		Strategy:             askStrategy,
		Hybrid:               askHybrid,
	}

	if askAnalyze != "" {
		facts, err := analyzer.New().AnalyzeFile(ctx, askAnalyze)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", askAnalyze, err)
		}
		req.StructuralFacts = facts
	}

	outcome, err := handleRequest(ctx, a, req)
	if err != nil {
		return err
	}

	if askJSON {
		return outputJSON(outcome)
	}

	fmt.Print(newRenderer().Outcome(outcome))

	if askCopy {
		copyOutcome(outcome)
	}
	return nil
}

// handleRequest runs one request, with the live monitor in the foreground
// when requested.
func handleRequest(ctx context.Context, a *app, req *core.Request) (*core.Outcome, error) {
	if !askMonitor {
		return a.engine.Handle(ctx, req)
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()

	var (
		outcome *core.Outcome
		reqErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stopMonitor()
		outcome, reqErr = a.engine.Handle(ctx, req)
	}()

	if err := tui.Run(monitorCtx, a.bus); err != nil {
		a.logger.Warn("monitor exited", "error", err)
	}
	<-done
	return outcome, reqErr
}

// copyOutcome puts the outcome's primary text on the clipboard and reports
// where it landed.
func copyOutcome(o *core.Outcome) {
	text := primaryText(o)
	if text == "" {
		return
	}
	result, err := clip.Copy(text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "copy failed:", err)
		return
	}
	if msg := result.Describe(); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
}

// primaryText is the copyable body of an outcome: the synthesized text in
// consensus mode, the labeled responses in singular mode.
func primaryText(o *core.Outcome) string {
	switch {
	case o == nil:
		return ""
	case o.Consensus != nil:
		return o.Consensus.FinalText
	case o.Singular != nil:
		var b strings.Builder
		for i, resp := range o.Singular.Responses {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%s]\n%s", resp.ExpertID, resp.Text)
		}
		return b.String()
	}
	return ""
}

// getPrompt resolves the prompt from a file, the arguments, or piped stdin.
func getPrompt(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading prompt file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		if prompt := strings.TrimSpace(string(data)); prompt != "" {
			return prompt, nil
		}
	}

	return "", fmt.Errorf("prompt required: provide as argument, via --file, or on stdin")
}
