package monitor

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/quell-dev/quell/internal/logging"
)

const (
	// ringSize is how many recent samples feed pressure and confidence.
	ringSize = 30

	// minConfidenceSamples is how many samples are needed before
	// confidence can reach 1.0.
	minConfidenceSamples = 5

	// maxConsecutiveFailures marks the monitor unhealthy once the
	// sampler fails this many times in a row.
	maxConsecutiveFailures = 3
)

// Snapshot is the read-only view workers consume.
type Snapshot struct {
	Pressure    float64 // 0-1 resource pressure
	Confidence  float64 // 0-1 trust in the pressure value
	Healthy     bool    // false when the sampler keeps failing
	SampleCount int     // samples currently in the window
}

// Monitor periodically samples host resources and derives a pressure
// score. All methods are safe for concurrent use; Start runs the
// sampling loop until the context is cancelled.
type Monitor struct {
	mu       sync.RWMutex
	sampler  Sampler
	interval time.Duration
	logger   *logging.Logger

	samples  []Sample // ring buffer, newest last
	failures int      // consecutive sampler failures
	ncpu     float64
}

// NewMonitor creates a Monitor sampling at the given interval.
func NewMonitor(sampler Sampler, interval time.Duration, logger *logging.Logger) *Monitor {
	return &Monitor{
		sampler:  sampler,
		interval: interval,
		logger:   logger.WithComponent("monitor"),
		ncpu:     float64(runtime.NumCPU()),
	}
}

// Start runs the sampling loop. It returns when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

// sampleOnce takes one sample and folds it into the window.
func (m *Monitor) sampleOnce() {
	sample, err := m.sampler.Sample()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failures++
		if m.failures == maxConsecutiveFailures {
			m.logger.Warn("resource sampler failing, executor will fall back to fixed width",
				"failures", m.failures, "error", err)
		}
		return
	}

	m.failures = 0
	m.samples = append(m.samples, sample)
	if len(m.samples) > ringSize {
		m.samples = m.samples[1:]
	}
}

// Record folds an externally produced sample into the window. Tests and
// synthetic-pressure drills use this instead of running Start.
func (m *Monitor) Record(sample Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures = 0
	m.samples = append(m.samples, sample)
	if len(m.samples) > ringSize {
		m.samples = m.samples[1:]
	}
}

// Snapshot returns the current pressure, confidence, and health.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Healthy:     m.failures < maxConsecutiveFailures,
		SampleCount: len(m.samples),
	}
	if len(m.samples) == 0 {
		return snap
	}

	snap.Pressure = m.pressureLocked()
	snap.Confidence = m.confidenceLocked()
	return snap
}

// pressureLocked scores the window as the worst of the CPU, memory, and
// normalized-load averages. Caller holds at least a read lock.
func (m *Monitor) pressureLocked() float64 {
	var cpu, mem, load float64
	for _, s := range m.samples {
		cpu += s.CPUPercent
		mem += s.MemPercent
		load += s.Load1
	}
	n := float64(len(m.samples))
	cpu /= n * 100
	mem /= n * 100
	load /= n * m.ncpu

	p := math.Max(cpu, math.Max(mem, load))
	return math.Min(1, math.Max(0, p))
}

// confidenceLocked grows with sample count and shrinks with variance of
// the pressure signal. Caller holds at least a read lock.
func (m *Monitor) confidenceLocked() float64 {
	n := float64(len(m.samples))
	fill := math.Min(1, n/minConfidenceSamples)
	if len(m.samples) < 2 {
		return fill * 0.5
	}

	// Variance of the per-sample CPU share, the noisiest input.
	var mean float64
	for _, s := range m.samples {
		mean += s.CPUPercent / 100
	}
	mean /= n

	var variance float64
	for _, s := range m.samples {
		d := s.CPUPercent/100 - mean
		variance += d * d
	}
	variance /= n

	// A standard deviation of 0.5 (wild swings) zeroes confidence.
	steady := math.Max(0, 1-2*math.Sqrt(variance))
	return fill * steady
}
