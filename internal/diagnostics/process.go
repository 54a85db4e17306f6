package diagnostics

import (
	"runtime"
	"time"
)

var processStart = time.Now()

// ProcessStats is a snapshot of this process, cheap enough to sample on
// every monitor refresh tick.
type ProcessStats struct {
	Goroutines   int           `json:"goroutines"`
	HeapAllocMB  float64       `json:"heap_alloc_mb"`
	HeapInUseMB  float64       `json:"heap_in_use_mb"`
	StackInUseMB float64       `json:"stack_in_use_mb"`
	GCCycles     uint32        `json:"gc_cycles"`
	Uptime       time.Duration `json:"uptime"`
}

// SampleProcess captures current runtime state.
func SampleProcess() ProcessStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return ProcessStats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  float64(ms.HeapAlloc) / 1024 / 1024,
		HeapInUseMB:  float64(ms.HeapInuse) / 1024 / 1024,
		StackInUseMB: float64(ms.StackInuse) / 1024 / 1024,
		GCCycles:     ms.NumGC,
		Uptime:       time.Since(processStart),
	}
}
