package executor

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure("tests")
		if !b.Allow("tests") {
			t.Fatalf("breaker rejected work after %d failures, threshold is 3", i+1)
		}
	}

	b.RecordFailure("tests")
	if b.State("tests") != BreakerOpen {
		t.Fatalf("State = %v after 3 failures, want %v", b.State("tests"), BreakerOpen)
	}
	if b.Allow("tests") {
		t.Error("open breaker allowed work")
	}
}

func TestBreakerClassesAreIndependent(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	b.RecordFailure("tests")
	b.RecordFailure("tests")

	if b.Allow("tests") {
		t.Error("tripped class allowed work")
	}
	if !b.Allow("docs") {
		t.Error("untouched class rejected work")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.RecordFailure("tests")
	b.RecordFailure("tests")
	b.RecordSuccess("tests")
	b.RecordFailure("tests")
	b.RecordFailure("tests")

	if b.State("tests") != BreakerClosed {
		t.Errorf("State = %v, want %v after non-consecutive failures", b.State("tests"), BreakerClosed)
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := NewBreaker(1, time.Minute, WithBreakerClock(clock))

	b.RecordFailure("tests")
	if b.Allow("tests") {
		t.Fatal("open breaker allowed work before cooldown")
	}

	// After the cooldown exactly one probe gets through.
	now = now.Add(61 * time.Second)
	if !b.Allow("tests") {
		t.Fatal("half-open breaker rejected the probe")
	}
	if b.State("tests") != BreakerHalfOpen {
		t.Fatalf("State = %v, want %v", b.State("tests"), BreakerHalfOpen)
	}
	if b.Allow("tests") {
		t.Error("half-open breaker allowed a second task while probing")
	}

	b.RecordSuccess("tests")
	if b.State("tests") != BreakerClosed {
		t.Errorf("State = %v after successful probe, want %v", b.State("tests"), BreakerClosed)
	}
	if !b.Allow("tests") {
		t.Error("closed breaker rejected work")
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := NewBreaker(1, time.Minute, WithBreakerClock(clock))

	b.RecordFailure("tests")
	now = now.Add(61 * time.Second)
	if !b.Allow("tests") {
		t.Fatal("half-open breaker rejected the probe")
	}

	b.RecordFailure("tests")
	if b.State("tests") != BreakerOpen {
		t.Fatalf("State = %v after failed probe, want %v", b.State("tests"), BreakerOpen)
	}
	if b.Allow("tests") {
		t.Error("reopened breaker allowed work before a fresh cooldown")
	}

	// The cooldown restarts from the probe failure.
	now = now.Add(61 * time.Second)
	if !b.Allow("tests") {
		t.Error("breaker rejected a probe after the second cooldown")
	}
}

func TestBreakerHistory(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := NewBreaker(1, time.Minute, WithBreakerClock(clock))

	b.RecordFailure("tests")
	now = now.Add(61 * time.Second)
	b.Allow("tests")
	b.RecordSuccess("tests")

	h := b.History()
	want := []struct{ from, to BreakerState }{
		{BreakerClosed, BreakerOpen},
		{BreakerOpen, BreakerHalfOpen},
		{BreakerHalfOpen, BreakerClosed},
	}
	if len(h) != len(want) {
		t.Fatalf("History length = %d, want %d", len(h), len(want))
	}
	for i, w := range want {
		if h[i].From != w.from || h[i].To != w.to {
			t.Errorf("transition %d = %v->%v, want %v->%v", i, h[i].From, h[i].To, w.from, w.to)
		}
	}
}
