// Package monitor samples host CPU, memory, and load to produce a 0-1
// resource-pressure score for the adaptive executor. The monitor is
// read-only shared state: workers read Snapshot, never write.
package monitor

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Sample is one point-in-time resource reading.
type Sample struct {
	CPUPercent float64   // 0-100 busy share since the previous sample
	MemPercent float64   // 0-100 used physical memory
	Load1      float64   // 1-minute load average
	TakenAt    time.Time // when the sample was taken
}

// Sampler produces resource samples. Implementations must tolerate
// being called on a fixed short cadence.
type Sampler interface {
	Sample() (Sample, error)
}

// ProcSampler reads /proc/stat, /proc/meminfo, and /proc/loadavg.
// CPU busy share is computed from deltas between successive reads, so
// the first Sample call reports zero CPU.
type ProcSampler struct {
	prevIdle  uint64
	prevTotal uint64
}

// NewProcSampler creates a ProcSampler.
func NewProcSampler() *ProcSampler {
	return &ProcSampler{}
}

// Sample reads current procfs counters.
func (s *ProcSampler) Sample() (Sample, error) {
	cpu, err := s.cpuPercent()
	if err != nil {
		return Sample{}, err
	}
	mem, err := memPercent()
	if err != nil {
		return Sample{}, err
	}
	load, err := load1()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		CPUPercent: cpu,
		MemPercent: mem,
		Load1:      load,
		TakenAt:    time.Now(),
	}, nil
}

// cpuPercent derives busy share from aggregate /proc/stat jiffy deltas.
func (s *ProcSampler) cpuPercent() (float64, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, fmt.Errorf("read /proc/stat: %w", err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, fmt.Errorf("unexpected /proc/stat format: %q", line)
	}

	var total, idle uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse /proc/stat field: %w", err)
		}
		total += v
		// fields: user nice system idle iowait ...
		if i == 3 || i == 4 {
			idle += v
		}
	}

	defer func() {
		s.prevIdle, s.prevTotal = idle, total
	}()

	if s.prevTotal == 0 || total <= s.prevTotal {
		return 0, nil
	}
	dTotal := float64(total - s.prevTotal)
	dIdle := float64(idle - s.prevIdle)
	return 100 * (dTotal - dIdle) / dTotal, nil
}

// memPercent derives used memory share from MemTotal and MemAvailable.
func memPercent() (float64, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("read /proc/meminfo: %w", err)
	}

	var total, available float64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = v
		case "MemAvailable:":
			available = v
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("MemTotal missing from /proc/meminfo")
	}
	return 100 * (total - available) / total, nil
}

// load1 reads the 1-minute load average.
func load1() (float64, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, fmt.Errorf("read /proc/loadavg: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0, fmt.Errorf("unexpected /proc/loadavg format")
	}
	return strconv.ParseFloat(fields[0], 64)
}

// RuntimeSampler is a portable fallback for hosts without procfs. It
// approximates memory pressure from the Go heap and reports zero CPU
// and load, which biases the executor toward its configured bounds
// rather than crashing.
type RuntimeSampler struct{}

// NewRuntimeSampler creates a RuntimeSampler.
func NewRuntimeSampler() *RuntimeSampler {
	return &RuntimeSampler{}
}

// Sample reads runtime memory statistics.
func (s *RuntimeSampler) Sample() (Sample, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mem := 0.0
	if m.Sys > 0 {
		mem = 100 * float64(m.HeapInuse) / float64(m.Sys)
	}
	return Sample{
		MemPercent: mem,
		TakenAt:    time.Now(),
	}, nil
}

// DefaultSampler returns the procfs sampler on Linux and the runtime
// fallback elsewhere.
func DefaultSampler() Sampler {
	if runtime.GOOS == "linux" {
		return NewProcSampler()
	}
	return NewRuntimeSampler()
}
