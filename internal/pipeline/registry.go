package pipeline

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/quell-dev/quell/internal/errors"
	"github.com/quell-dev/quell/internal/tracker"
)

// Category is the closed set of work categories the pipeline routes on.
// Each category binds to exactly one (Engine, Panel) pair.
type Category string

const (
	CategoryTests          Category = "tests"
	CategoryStaticAnalysis Category = "static_analysis"
	CategoryFormatting     Category = "formatting"
	CategorySecurity       Category = "security"
	CategoryDocs           Category = "docs"
	CategoryGeneral        Category = "general"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// Categories returns all known categories.
func Categories() []Category {
	return []Category{
		CategoryTests,
		CategoryStaticAnalysis,
		CategoryFormatting,
		CategorySecurity,
		CategoryDocs,
		CategoryGeneral,
	}
}

// categoryKeywords maps keywords found in unit titles, bodies, and
// labels to categories. First match in the Categories() order wins.
var categoryKeywords = map[Category][]string{
	CategoryTests:          {"test", "coverage", "flaky", "assertion"},
	CategoryStaticAnalysis: {"lint", "static analysis", "vet", "warning"},
	CategoryFormatting:     {"format", "formatting", "style", "indentation"},
	CategorySecurity:       {"security", "vulnerability", "cve", "injection", "unsafe"},
	CategoryDocs:           {"doc", "documentation", "readme", "typo"},
}

// categoryPathPatterns maps glob patterns over repository paths
// referenced in the unit body to categories.
var categoryPathPatterns = map[Category][]glob.Glob{
	CategoryTests: {
		glob.MustCompile("**_test.go"),
		glob.MustCompile("**/testdata/**"),
	},
	CategoryDocs: {
		glob.MustCompile("**.md"),
		glob.MustCompile("docs/**"),
	},
	CategorySecurity: {
		glob.MustCompile("**/auth/**"),
		glob.MustCompile("**/crypto/**"),
	},
}

// pathPattern matches path-like tokens in unit bodies, e.g.
// internal/parser/lex.go or docs/setup.md.
var pathPattern = regexp.MustCompile(`[\w./-]+\.\w+|[\w-]+(?:/[\w.-]+)+`)

// DetectCategory classifies a unit from its labels, title, body, and
// any repository paths the body references. Unclassifiable units fall
// back to CategoryGeneral.
func DetectCategory(unit tracker.WorkUnit) Category {
	haystack := strings.ToLower(unit.Title + "\n" + unit.Body + "\n" + strings.Join(unit.Labels, "\n"))

	for _, cat := range Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(haystack, kw) {
				return cat
			}
		}
	}

	for _, path := range pathPattern.FindAllString(unit.Body, -1) {
		for _, cat := range Categories() {
			for _, g := range categoryPathPatterns[cat] {
				if g.Match(path) {
					return cat
				}
			}
		}
	}

	return CategoryGeneral
}

// Binding is one category's engine and judge panel.
type Binding struct {
	Engine Engine
	Panel  *Panel
}

// Registry maps categories to their bindings. Bindings are resolved
// once at dispatch, never re-interpreted per call.
type Registry struct {
	bindings map[Category]Binding
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[Category]Binding)}
}

// Register binds a category to an engine and panel, replacing any
// prior binding.
func (r *Registry) Register(cat Category, engine Engine, panel *Panel) {
	r.bindings[cat] = Binding{Engine: engine, Panel: panel}
}

// Resolve classifies the unit and returns its binding. Units whose
// category has no binding fall back to CategoryGeneral; with no
// general binding either, resolution fails.
func (r *Registry) Resolve(unit tracker.WorkUnit) (Category, Binding, error) {
	cat := DetectCategory(unit)
	if b, ok := r.bindings[cat]; ok {
		return cat, b, nil
	}
	if b, ok := r.bindings[CategoryGeneral]; ok {
		return cat, b, nil
	}
	return cat, Binding{}, errors.NewPipelineError(
		"no engine registered for category "+cat.String(),
		errors.ErrNoEngineForCategory,
	).WithUnit(unit.ID)
}
