package diagnostics

import (
	"testing"
	"time"
)

func TestHost_ReturnsUsage(t *testing.T) {
	t.Parallel()
	c := NewCollector()
	report := c.Host()

	if report.OS == "" || report.Arch == "" || report.GoVersion == "" {
		t.Errorf("runtime identity incomplete: %+v", report)
	}
	if report.MemTotalMB <= 0 {
		t.Error("expected MemTotalMB > 0")
	}
	if report.MemPercent < 0 || report.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", report.MemPercent)
	}
	if report.DiskTotalGB <= 0 {
		t.Error("expected DiskTotalGB > 0")
	}
	if report.DiskPercent < 0 || report.DiskPercent > 100 {
		t.Errorf("DiskPercent out of range: %f", report.DiskPercent)
	}
}

func TestHost_IdentityStable(t *testing.T) {
	t.Parallel()
	c := NewCollector()

	first := c.Host()
	second := c.Host()

	if first.CPUModel != second.CPUModel {
		t.Errorf("CPU model changed between calls: %q vs %q", first.CPUModel, second.CPUModel)
	}
	if first.CPUCores != second.CPUCores {
		t.Errorf("CPU cores changed between calls: %d vs %d", first.CPUCores, second.CPUCores)
	}
	if first.CPUThreads != second.CPUThreads {
		t.Errorf("CPU threads changed between calls: %d vs %d", first.CPUThreads, second.CPUThreads)
	}
}

func TestSampleProcess(t *testing.T) {
	t.Parallel()
	stats := SampleProcess()

	if stats.Goroutines <= 0 {
		t.Errorf("Goroutines = %d, want > 0", stats.Goroutines)
	}
	if stats.HeapAllocMB <= 0 {
		t.Errorf("HeapAllocMB = %f, want > 0", stats.HeapAllocMB)
	}
	if stats.Uptime <= 0 {
		t.Errorf("Uptime = %v, want > 0", stats.Uptime)
	}
}

func TestSampleProcess_UptimeAdvances(t *testing.T) {
	t.Parallel()
	first := SampleProcess()
	time.Sleep(10 * time.Millisecond)
	second := SampleProcess()

	if second.Uptime <= first.Uptime {
		t.Errorf("Uptime did not advance: %v then %v", first.Uptime, second.Uptime)
	}
}
