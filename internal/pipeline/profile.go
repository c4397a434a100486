package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quell-dev/quell/internal/errors"
)

// profileFile is the yaml shape of a judge profile file.
type profileFile struct {
	Categories map[string]categoryProfile `yaml:"categories"`
}

type categoryProfile struct {
	// Minimum overrides the default aggregate floor for the category.
	Minimum *float64 `yaml:"minimum"`
	Judges  []judgeProfile `yaml:"judges"`
}

type judgeProfile struct {
	Name     string             `yaml:"name"`
	Weight   float64            `yaml:"weight"`
	Criteria []criterionProfile `yaml:"criteria"`
}

type criterionProfile struct {
	Name     string  `yaml:"name"`
	Metric   string  `yaml:"metric"`
	Min      float64 `yaml:"min"`
	HardFail bool    `yaml:"hard_fail"`
}

// LoadPanels reads a yaml judge profile and builds panels per
// category. Categories absent from the file get no panel; callers
// fall back to DefaultPanels for those. The defaultMinimum applies to
// categories that do not override it.
func LoadPanels(path string, defaultMinimum float64) (map[Category]*Panel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading judge profile: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing judge profile %s: %w", path, err)
	}

	known := make(map[string]bool)
	for _, c := range Categories() {
		known[c.String()] = true
	}

	panels := make(map[Category]*Panel)
	for name, cp := range file.Categories {
		if !known[name] {
			return nil, errors.NewValidationError(
				"categories."+name, "unknown category")
		}
		if len(cp.Judges) == 0 {
			return nil, errors.NewValidationError(
				"categories."+name+".judges", "at least one judge required")
		}

		minimum := defaultMinimum
		if cp.Minimum != nil {
			if *cp.Minimum < 0 || *cp.Minimum > 100 {
				return nil, errors.NewValidationError(
					"categories."+name+".minimum", "must be between 0 and 100")
			}
			minimum = *cp.Minimum
		}

		panel := NewPanel(minimum)
		for i, jp := range cp.Judges {
			if jp.Name == "" {
				return nil, errors.NewValidationError(
					fmt.Sprintf("categories.%s.judges[%d].name", name, i), "must not be empty")
			}
			criteria := make([]Criterion, 0, len(jp.Criteria))
			for k, crit := range jp.Criteria {
				if crit.Metric == "" {
					return nil, errors.NewValidationError(
						fmt.Sprintf("categories.%s.judges[%d].criteria[%d].metric", name, i, k),
						"must not be empty")
				}
				cname := crit.Name
				if cname == "" {
					cname = crit.Metric
				}
				criteria = append(criteria, Criterion{
					Name:     cname,
					Metric:   crit.Metric,
					Min:      crit.Min,
					HardFail: crit.HardFail,
				})
			}
			panel.Add(NewThresholdJudge(jp.Name, criteria), jp.Weight)
		}
		panels[Category(name)] = panel
	}
	return panels, nil
}

// DefaultPanels builds the built-in panel set: one threshold judge per
// category with conservative criteria, plus a security judge whose
// critical-findings criterion is zero tolerance.
func DefaultPanels(minimum float64) map[Category]*Panel {
	return map[Category]*Panel{
		CategoryTests: NewPanel(minimum).
			Add(NewThresholdJudge("coverage", []Criterion{
				{Name: "coverage", Metric: "coverage", Min: 95},
				{Name: "tests_added", Metric: "tests_added", Min: 1},
			}), 1),
		CategoryStaticAnalysis: NewPanel(minimum).
			Add(NewThresholdJudge("analysis", []Criterion{
				{Name: "clean_score", Metric: "clean_score", Min: 95},
			}), 1),
		CategoryFormatting: NewPanel(minimum).
			Add(NewThresholdJudge("formatting", []Criterion{
				{Name: "formatted_score", Metric: "formatted_score", Min: 100},
			}), 1),
		CategorySecurity: NewPanel(minimum).
			Add(NewThresholdJudge("security", []Criterion{
				{Name: "security_score", Metric: "security_score", Min: 95},
				{Name: "no_criticals", Metric: "no_criticals", Min: 1, HardFail: true},
			}), 1),
		CategoryDocs: NewPanel(minimum).
			Add(NewThresholdJudge("docs", []Criterion{
				{Name: "docs_score", Metric: "docs_score", Min: 90},
			}), 1),
		CategoryGeneral: NewPanel(minimum).
			Add(NewThresholdJudge("general", []Criterion{
				{Name: "quality_score", Metric: "quality_score", Min: 95},
			}), 1),
	}
}
