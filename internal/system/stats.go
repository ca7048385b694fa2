package system

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a snapshot of this process's resource use.
type ProcessStats struct {
	RSSBytes   uint64
	CPUPercent float64
	LogicalCPU int
}

// SampleProcess reads RSS and CPU usage for the running process. Fields the
// platform cannot report stay zero.
func SampleProcess() ProcessStats {
	var st ProcessStats
	if n, err := cpu.Counts(true); err == nil {
		st.LogicalCPU = n
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return st
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	if pct, err := p.CPUPercent(); err == nil {
		st.CPUPercent = pct
	}
	return st
}

// Report is one export's timing summary.
type Report struct {
	Build    string
	Input    string
	Output   string
	Frames   int
	Total    time.Duration
	Render   time.Duration
	Encode   time.Duration
	Warnings int
	Process  ProcessStats
}

// FPS returns frames rendered per wall-clock second.
func (r Report) FPS() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Total.Seconds()
}

// String renders the console block printed after an export.
func (r Report) String() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Detector warnings: %d\n"+
			"Memory (RSS): %.1f MiB | CPU: %.1f%% of %d cores\n"+
			"----------------------------\n",
		r.Build, r.Total.Seconds(), r.Render.Seconds(), r.Encode.Seconds(), r.FPS(), r.Warnings,
		float64(r.Process.RSSBytes)/(1<<20), r.Process.CPUPercent, r.Process.LogicalCPU,
	)
}

// AppendBenchmarkLog appends a one-line summary to path.
func AppendBenchmarkLog(path string, r Report) error {
	entry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.2fs | Render: %.2fs | Encode: %.2fs | FPS: %.2f | RSS: %.1fMiB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.Build,
		filepath.Base(r.Input),
		r.Frames,
		r.Total.Seconds(),
		r.Render.Seconds(),
		r.Encode.Seconds(),
		r.FPS(),
		float64(r.Process.RSSBytes)/(1<<20),
	)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
