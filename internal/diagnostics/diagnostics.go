// Package diagnostics collects host and process health facts for the
// doctor command and the live monitor. Host collection is best-effort:
// probes that fail on a platform leave their fields zero rather than
// failing the report.
package diagnostics

import (
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostReport is a point-in-time summary of the machine running conclave.
type HostReport struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	GoVersion string `json:"go_version"`

	CPUModel   string `json:"cpu_model,omitempty"`
	CPUCores   int    `json:"cpu_cores,omitempty"`
	CPUThreads int    `json:"cpu_threads,omitempty"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1,omitempty"`
	LoadAvg5  float64 `json:"load_avg_5,omitempty"`
	LoadAvg15 float64 `json:"load_avg_15,omitempty"`

	GPUs []string `json:"gpus,omitempty"`
}

// Collector gathers host reports. Hardware identity (CPU model, core
// counts, GPU names) is probed once and cached; usage fields are fresh
// on every call.
type Collector struct {
	mu sync.Mutex

	identityProbed bool
	cpuModel       string
	cpuCores       int
	cpuThreads     int
	gpus           []string
}

func NewCollector() *Collector {
	return &Collector{}
}

// Host returns the current host report.
func (c *Collector) Host() HostReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := HostReport{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
	}

	c.probeIdentity()
	report.CPUModel = c.cpuModel
	report.CPUCores = c.cpuCores
	report.CPUThreads = c.cpuThreads
	report.GPUs = append([]string(nil), c.gpus...)

	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemTotalMB = float64(vm.Total) / 1024 / 1024
		report.MemUsedMB = float64(vm.Used) / 1024 / 1024
		report.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage(rootDiskPath()); err == nil {
		report.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		report.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
		report.DiskPercent = usage.UsedPercent
	}

	// load.Avg errors on windows; the fields stay zero there.
	if avg, err := load.Avg(); err == nil {
		report.LoadAvg1 = avg.Load1
		report.LoadAvg5 = avg.Load5
		report.LoadAvg15 = avg.Load15
	}

	return report
}

func (c *Collector) probeIdentity() {
	if c.identityProbed {
		return
	}
	c.identityProbed = true

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		c.cpuModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(false); err == nil && cores > 0 {
		c.cpuCores = cores
	}
	if threads, err := cpu.Counts(true); err == nil && threads > 0 {
		c.cpuThreads = threads
	}
	c.gpus = gpuNames()
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}

// gpuNames lists installed graphics cards by vendor and product name.
func gpuNames() []string {
	info, err := ghw.GPU()
	if err != nil || info == nil {
		return nil
	}

	var names []string
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			switch {
			case card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			case card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			case card.DeviceInfo.Vendor != nil:
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			}
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
