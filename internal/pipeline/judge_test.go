package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdJudgeApproves(t *testing.T) {
	j := NewThresholdJudge("coverage", []Criterion{
		{Name: "coverage", Metric: "coverage", Min: 95},
	})

	got := j.Judge(&ExecutionResult{Metrics: map[string]float64{"coverage": 97}})

	assert.Equal(t, VerdictApproved, got.Verdict)
	assert.Equal(t, 100.0, got.Score)
	require.Len(t, got.Criteria, 1)
	assert.True(t, got.Criteria[0].Pass)
	assert.Equal(t, 97.0, got.Criteria[0].Measured)
	assert.Equal(t, 95.0, got.Criteria[0].Threshold)
}

func TestThresholdJudgeNeedsRevision(t *testing.T) {
	j := NewThresholdJudge("coverage", []Criterion{
		{Name: "coverage", Metric: "coverage", Min: 95},
	})

	got := j.Judge(&ExecutionResult{Metrics: map[string]float64{"coverage": 80}})

	assert.Equal(t, VerdictNeedsRevision, got.Verdict)
	assert.Contains(t, got.Rationale, "coverage 80.0 below 95.0")
	assert.InDelta(t, 84.2, got.Score, 0.1)
}

func TestThresholdJudgeMissingMetricMeasuresZero(t *testing.T) {
	j := NewThresholdJudge("coverage", []Criterion{
		{Name: "coverage", Metric: "coverage", Min: 95},
	})

	got := j.Judge(&ExecutionResult{Metrics: map[string]float64{}})

	assert.Equal(t, VerdictNeedsRevision, got.Verdict)
	assert.Equal(t, 0.0, got.Criteria[0].Measured)
}

func TestThresholdJudgeHardFailRejects(t *testing.T) {
	j := NewThresholdJudge("security", []Criterion{
		{Name: "security_score", Metric: "security_score", Min: 95},
		{Name: "no_criticals", Metric: "no_criticals", Min: 1, HardFail: true},
	})

	got := j.Judge(&ExecutionResult{Metrics: map[string]float64{
		"security_score": 99,
		"no_criticals":   0,
	}})

	assert.Equal(t, VerdictRejected, got.Verdict)
	assert.Contains(t, got.Rationale, "hard-fail")
}

func TestPanelAggregatesWeightedScores(t *testing.T) {
	quality := NewThresholdJudge("quality", []Criterion{
		{Name: "quality_score", Metric: "quality_score", Min: 90},
	})
	perf := NewThresholdJudge("performance", []Criterion{
		{Name: "perf_score", Metric: "perf_score", Min: 90},
	})
	panel := NewPanel(95).Add(quality, 3).Add(perf, 1)

	// quality passes (100), perf measures 45/90 = 50.
	got := panel.Evaluate(&ExecutionResult{Metrics: map[string]float64{
		"quality_score": 95,
		"perf_score":    45,
	}})

	// (100*3 + 50*1) / 4 = 87.5, below the 95 floor.
	assert.Equal(t, VerdictNeedsRevision, got.Verdict)
	assert.InDelta(t, 87.5, got.Score, 0.01)
}

func TestPanelApprovesAboveMinimum(t *testing.T) {
	panel := NewPanel(95).Add(NewThresholdJudge("coverage", []Criterion{
		{Name: "coverage", Metric: "coverage", Min: 95},
	}), 1)

	got := panel.Evaluate(&ExecutionResult{Metrics: map[string]float64{"coverage": 97}})

	assert.Equal(t, VerdictApproved, got.Verdict)
	assert.GreaterOrEqual(t, got.Score, 95.0)
}

func TestPanelHardFailOverridesAggregate(t *testing.T) {
	quality := NewThresholdJudge("quality", []Criterion{
		{Name: "quality_score", Metric: "quality_score", Min: 50},
	})
	security := NewThresholdJudge("security", []Criterion{
		{Name: "no_criticals", Metric: "no_criticals", Min: 1, HardFail: true},
	})
	panel := NewPanel(50).Add(quality, 10).Add(security, 1)

	// The weighted aggregate clears the floor, but the hard-fail
	// criterion does not pass.
	got := panel.Evaluate(&ExecutionResult{Metrics: map[string]float64{
		"quality_score": 100,
		"no_criticals":  0,
	}})

	assert.Equal(t, VerdictRejected, got.Verdict)
}

func TestPanelWithoutJudgesRejects(t *testing.T) {
	got := NewPanel(95).Evaluate(&ExecutionResult{})
	assert.Equal(t, VerdictRejected, got.Verdict)
}
