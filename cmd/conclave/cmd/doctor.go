package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/history"
	"github.com/conclave-ai/conclave/internal/adapters/provider"
	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/diagnostics"
	"github.com/conclave-ai/conclave/internal/logging"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, providers, and the host",
	Long: `Verify that the configuration is valid, the reasoning providers are
reachable, the history store opens, and the host has headroom for the
configured worker pool.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	ok := true

	fmt.Println("Checking configuration...")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
		fmt.Println()
		fmt.Println("Fix the configuration before running requests.")
		return fmt.Errorf("configuration check failed")
	}
	fmt.Printf("  ✓ configuration valid (%d experts, %s history)\n",
		len(cfg.Panel.Experts), cfg.History.Backend)
	fmt.Println()

	fmt.Println("Checking providers...")
	logger := logging.NewNop()
	providers := provider.BuildProviders(cfg, logger)
	if len(providers) == 0 {
		fmt.Println("  ✗ no providers enabled")
		ok = false
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	reachable := 0
	for _, name := range names {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := providers[name].Ping(ctx)
		cancel()
		if err != nil {
			fmt.Printf("  ✗ %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  ✓ %s\n", name)
		reachable++
	}
	if len(providers) > 0 && reachable == 0 {
		ok = false
	}
	fmt.Println()

	fmt.Println("Checking expert panel...")
	unbound := unboundExperts(cfg.Panel.Experts, cfg.Providers.Default, providers)
	if len(unbound) > 0 {
		fmt.Printf("  ✗ experts without an enabled provider: %s\n", strings.Join(unbound, ", "))
		ok = false
	} else {
		fmt.Printf("  ✓ %d experts bound to enabled providers\n", len(cfg.Panel.Experts))
	}
	fmt.Println()

	fmt.Println("Checking history store...")
	store, err := history.NewStore(history.Options{
		Backend:    cfg.History.Backend,
		Path:       cfg.History.Path,
		MaxEntries: cfg.History.MaxEntries,
	})
	switch {
	case err != nil:
		fmt.Printf("  ✗ %v\n", err)
		ok = false
	case store == nil:
		fmt.Println("  ○ history disabled")
	default:
		fmt.Printf("  ✓ %s store at %s\n", cfg.History.Backend, cfg.History.Path)
		_ = store.Close()
	}
	fmt.Println()

	printHostReport(cfg.Dispatch.MaxConcurrent)

	if !ok {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("All checks passed")
	return nil
}

// unboundExperts returns the experts whose provider binding would fail at
// startup, mirroring the resolution BuildRegistry performs.
func unboundExperts(experts []config.ExpertConfig, defaultProvider string, providers map[string]core.ReasoningProvider) []string {
	var unbound []string
	for _, e := range experts {
		name := e.Provider
		if name == "" {
			name = defaultProvider
		}
		if _, enabled := providers[name]; !enabled {
			unbound = append(unbound, e.ID)
		}
	}
	return unbound
}

// printHostReport summarizes the host and flags a worker pool larger than
// the thread count.
func printHostReport(maxConcurrent int) {
	fmt.Println("Host...")
	report := diagnostics.NewCollector().Host()

	fmt.Printf("  %s/%s, Go %s\n", report.OS, report.Arch, report.GoVersion)
	if report.CPUModel != "" {
		fmt.Printf("  CPU: %s (%d cores, %d threads)\n", report.CPUModel, report.CPUCores, report.CPUThreads)
	}
	if report.MemTotalMB > 0 {
		fmt.Printf("  Memory: %.0f/%.0f MB used (%.0f%%)\n", report.MemUsedMB, report.MemTotalMB, report.MemPercent)
	}
	if report.DiskTotalGB > 0 {
		fmt.Printf("  Disk: %.0f/%.0f GB used (%.0f%%)\n", report.DiskUsedGB, report.DiskTotalGB, report.DiskPercent)
	}
	if len(report.GPUs) > 0 {
		fmt.Printf("  GPU: %s\n", strings.Join(report.GPUs, ", "))
	}

	if report.CPUThreads > 0 && maxConcurrent > report.CPUThreads {
		fmt.Printf("  ⚠ dispatch.max_concurrent (%d) exceeds CPU threads (%d)\n",
			maxConcurrent, report.CPUThreads)
	}
	fmt.Println()
}
