package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/quell-dev/quell/internal/logging"
)

type stubSampler struct {
	sample Sample
	err    error
}

func (s *stubSampler) Sample() (Sample, error) {
	return s.sample, s.err
}

func TestMonitor_EmptySnapshot(t *testing.T) {
	m := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())

	snap := m.Snapshot()
	if snap.Pressure != 0 {
		t.Errorf("empty monitor should report zero pressure, got %v", snap.Pressure)
	}
	if !snap.Healthy {
		t.Error("fresh monitor should be healthy")
	}
}

func TestMonitor_PressureFromWorstSignal(t *testing.T) {
	m := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())
	m.ncpu = 4

	// Memory is the dominant signal here.
	for i := 0; i < 5; i++ {
		m.Record(Sample{CPUPercent: 20, MemPercent: 90, Load1: 1, TakenAt: time.Now()})
	}

	snap := m.Snapshot()
	if snap.Pressure < 0.89 || snap.Pressure > 0.91 {
		t.Errorf("expected pressure ~0.9 from memory, got %v", snap.Pressure)
	}
}

func TestMonitor_PressureClamped(t *testing.T) {
	m := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())
	m.ncpu = 1

	m.Record(Sample{Load1: 20, TakenAt: time.Now()})

	if p := m.Snapshot().Pressure; p != 1 {
		t.Errorf("pressure should clamp to 1, got %v", p)
	}
}

func TestMonitor_ConfidenceGrowsWithSamples(t *testing.T) {
	m := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())

	m.Record(Sample{CPUPercent: 50, TakenAt: time.Now()})
	low := m.Snapshot().Confidence

	for i := 0; i < 10; i++ {
		m.Record(Sample{CPUPercent: 50, TakenAt: time.Now()})
	}
	high := m.Snapshot().Confidence

	if high <= low {
		t.Errorf("confidence should grow with steady samples: %v -> %v", low, high)
	}
	if high < 0.9 {
		t.Errorf("steady full window should give high confidence, got %v", high)
	}
}

func TestMonitor_NoisySamplesReduceConfidence(t *testing.T) {
	steady := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())
	noisy := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())

	for i := 0; i < 10; i++ {
		steady.Record(Sample{CPUPercent: 50, TakenAt: time.Now()})
		cpu := 0.0
		if i%2 == 0 {
			cpu = 100
		}
		noisy.Record(Sample{CPUPercent: cpu, TakenAt: time.Now()})
	}

	if noisy.Snapshot().Confidence >= steady.Snapshot().Confidence {
		t.Errorf("noisy signal should have lower confidence: noisy=%v steady=%v",
			noisy.Snapshot().Confidence, steady.Snapshot().Confidence)
	}
}

func TestMonitor_UnhealthyAfterConsecutiveFailures(t *testing.T) {
	sampler := &stubSampler{err: errors.New("procfs gone")}
	m := NewMonitor(sampler, time.Millisecond, logging.NopLogger())

	for i := 0; i < maxConsecutiveFailures; i++ {
		m.sampleOnce()
	}
	if m.Snapshot().Healthy {
		t.Error("monitor should be unhealthy after repeated sampler failures")
	}

	// One good sample restores health.
	sampler.err = nil
	sampler.sample = Sample{CPUPercent: 10, TakenAt: time.Now()}
	m.sampleOnce()
	if !m.Snapshot().Healthy {
		t.Error("monitor should recover after a successful sample")
	}
}

func TestMonitor_WindowBounded(t *testing.T) {
	m := NewMonitor(&stubSampler{}, time.Second, logging.NopLogger())

	for i := 0; i < ringSize*2; i++ {
		m.Record(Sample{CPUPercent: 10, TakenAt: time.Now()})
	}
	if got := m.Snapshot().SampleCount; got != ringSize {
		t.Errorf("window should cap at %d samples, got %d", ringSize, got)
	}
}

func TestRuntimeSampler_NeverFails(t *testing.T) {
	s := NewRuntimeSampler()
	sample, err := s.Sample()
	if err != nil {
		t.Fatalf("runtime sampler should not fail: %v", err)
	}
	if sample.MemPercent < 0 || sample.MemPercent > 100 {
		t.Errorf("memory percent out of range: %v", sample.MemPercent)
	}
}
