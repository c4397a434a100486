package pipeline

import (
	"fmt"
	"strings"
)

// Judge evaluates one narrow concern of an execution result against
// fixed numeric thresholds. A judge never mutates code or state.
type Judge interface {
	// Name identifies the judge in rationale and diagnostics.
	Name() string

	// Judge evaluates one result.
	Judge(result *ExecutionResult) Judgment
}

// Criterion is one numeric threshold a ThresholdJudge checks.
type Criterion struct {
	// Name labels the criterion in judgments.
	Name string

	// Metric is the ExecutionResult metric key to read. A missing
	// metric measures as zero.
	Metric string

	// Min is the minimum acceptable measured value.
	Min float64

	// HardFail marks the criterion as zero-tolerance: a failure
	// rejects the result outright instead of requesting revision.
	HardFail bool
}

// ThresholdJudge checks a fixed set of minimum-value criteria. The
// judgment score is the mean per-criterion attainment on a 0-100
// scale, capped at 100 per criterion.
type ThresholdJudge struct {
	name     string
	criteria []Criterion
}

// NewThresholdJudge creates a ThresholdJudge with the given criteria.
func NewThresholdJudge(name string, criteria []Criterion) *ThresholdJudge {
	return &ThresholdJudge{name: name, criteria: criteria}
}

func (j *ThresholdJudge) Name() string { return j.name }

// Judge evaluates every criterion against the result's metrics.
func (j *ThresholdJudge) Judge(result *ExecutionResult) Judgment {
	if len(j.criteria) == 0 {
		return Judgment{
			Verdict:   VerdictApproved,
			Score:     100,
			Rationale: fmt.Sprintf("%s: no criteria configured", j.name),
		}
	}

	var (
		results  []CriterionResult
		total    float64
		hardFail bool
		failed   []string
	)
	for _, c := range j.criteria {
		measured := result.Metrics[c.Metric]
		pass := measured >= c.Min
		results = append(results, CriterionResult{
			Criterion: c.Name,
			Measured:  measured,
			Threshold: c.Min,
			Pass:      pass,
			HardFail:  c.HardFail,
		})
		total += attainment(measured, c.Min)
		if !pass {
			failed = append(failed, fmt.Sprintf("%s %.1f below %.1f", c.Name, measured, c.Min))
			if c.HardFail {
				hardFail = true
			}
		}
	}
	score := total / float64(len(j.criteria))

	switch {
	case hardFail:
		return Judgment{
			Verdict:   VerdictRejected,
			Score:     score,
			Criteria:  results,
			Rationale: fmt.Sprintf("%s: hard-fail criteria not met: %s", j.name, strings.Join(failed, "; ")),
		}
	case len(failed) > 0:
		return Judgment{
			Verdict:   VerdictNeedsRevision,
			Score:     score,
			Criteria:  results,
			Rationale: fmt.Sprintf("%s: %s", j.name, strings.Join(failed, "; ")),
		}
	default:
		return Judgment{
			Verdict:   VerdictApproved,
			Score:     score,
			Criteria:  results,
			Rationale: fmt.Sprintf("%s: all %d criteria met", j.name, len(j.criteria)),
		}
	}
}

// attainment scores one criterion on 0-100: full marks at or above
// the threshold, proportional below it.
func attainment(measured, min float64) float64 {
	if measured >= min {
		return 100
	}
	if min <= 0 || measured <= 0 {
		return 0
	}
	return measured / min * 100
}

// weightedJudge pairs a judge with its weight in a panel aggregate.
type weightedJudge struct {
	judge  Judge
	weight float64
}

// Panel aggregates multiple judges into one composite judgment. The
// composite score is the weighted mean of the member scores. The panel
// approves only when no member rejects (hard-fail zero tolerance) and
// the aggregate reaches the configured minimum floor.
type Panel struct {
	members []weightedJudge
	minimum float64 // the aggregate floor, 0-100
}

// NewPanel creates a Panel with the given aggregate floor.
func NewPanel(minimum float64) *Panel {
	return &Panel{minimum: minimum}
}

// Add appends a judge with the given weight. Non-positive weights
// count as 1.
func (p *Panel) Add(judge Judge, weight float64) *Panel {
	if weight <= 0 {
		weight = 1
	}
	p.members = append(p.members, weightedJudge{judge: judge, weight: weight})
	return p
}

// Minimum returns the panel's aggregate floor.
func (p *Panel) Minimum() float64 {
	return p.minimum
}

// Evaluate runs every member judge and composes the final judgment.
func (p *Panel) Evaluate(result *ExecutionResult) Judgment {
	if len(p.members) == 0 {
		return Judgment{
			Verdict:   VerdictRejected,
			Rationale: "no judges configured",
		}
	}

	var (
		weightedSum float64
		totalWeight float64
		criteria    []CriterionResult
		rationales  []string
		rejected    bool
		revisions   []string
	)
	for _, m := range p.members {
		j := m.judge.Judge(result)
		weightedSum += j.Score * m.weight
		totalWeight += m.weight
		criteria = append(criteria, j.Criteria...)
		rationales = append(rationales, j.Rationale)
		switch j.Verdict {
		case VerdictRejected:
			rejected = true
		case VerdictNeedsRevision:
			revisions = append(revisions, j.Rationale)
		}
	}
	score := weightedSum / totalWeight
	rationale := strings.Join(rationales, "\n")

	switch {
	case rejected:
		return Judgment{Verdict: VerdictRejected, Score: score, Criteria: criteria, Rationale: rationale}
	case score < p.minimum:
		return Judgment{
			Verdict:  VerdictNeedsRevision,
			Score:    score,
			Criteria: criteria,
			Rationale: fmt.Sprintf("aggregate %.1f below minimum %.1f\n%s",
				score, p.minimum, rationale),
		}
	case len(revisions) > 0:
		return Judgment{Verdict: VerdictNeedsRevision, Score: score, Criteria: criteria, Rationale: rationale}
	default:
		return Judgment{Verdict: VerdictApproved, Score: score, Criteria: criteria, Rationale: rationale}
	}
}
