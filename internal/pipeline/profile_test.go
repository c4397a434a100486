package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPanels(t *testing.T) {
	path := writeProfile(t, `
categories:
  tests:
    minimum: 90
    judges:
      - name: coverage
        weight: 2
        criteria:
          - name: coverage
            metric: coverage
            min: 92
      - name: count
        weight: 1
        criteria:
          - metric: tests_added
            min: 1
  security:
    judges:
      - name: security
        criteria:
          - name: no_criticals
            metric: no_criticals
            min: 1
            hard_fail: true
`)

	panels, err := LoadPanels(path, 95)
	require.NoError(t, err)
	require.Len(t, panels, 2)

	// The tests category overrides the floor to 90.
	testsPanel := panels[CategoryTests]
	require.NotNil(t, testsPanel)
	assert.Equal(t, 90.0, testsPanel.Minimum())

	got := testsPanel.Evaluate(&ExecutionResult{Metrics: map[string]float64{
		"coverage":    93,
		"tests_added": 2,
	}})
	assert.Equal(t, VerdictApproved, got.Verdict)

	// The security category inherits the 95 default.
	secPanel := panels[CategorySecurity]
	require.NotNil(t, secPanel)
	assert.Equal(t, 95.0, secPanel.Minimum())

	got = secPanel.Evaluate(&ExecutionResult{Metrics: map[string]float64{"no_criticals": 0}})
	assert.Equal(t, VerdictRejected, got.Verdict)
}

func TestLoadPanelsUnknownCategory(t *testing.T) {
	path := writeProfile(t, `
categories:
  nonsense:
    judges:
      - name: j
        criteria:
          - metric: m
            min: 1
`)

	_, err := LoadPanels(path, 95)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestLoadPanelsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "no judges",
			content: `
categories:
  tests:
    judges: []
`,
			wantErr: "at least one judge",
		},
		{
			name: "unnamed judge",
			content: `
categories:
  tests:
    judges:
      - criteria:
          - metric: m
            min: 1
`,
			wantErr: "must not be empty",
		},
		{
			name: "criterion without metric",
			content: `
categories:
  tests:
    judges:
      - name: j
        criteria:
          - min: 1
`,
			wantErr: "must not be empty",
		},
		{
			name: "minimum out of range",
			content: `
categories:
  tests:
    minimum: 120
    judges:
      - name: j
        criteria:
          - metric: m
            min: 1
`,
			wantErr: "between 0 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPanels(writeProfile(t, tt.content), 95)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPanelsMissingFile(t *testing.T) {
	_, err := LoadPanels(filepath.Join(t.TempDir(), "absent.yaml"), 95)
	require.Error(t, err)
}

func TestDefaultPanelsCoverEveryCategory(t *testing.T) {
	panels := DefaultPanels(95)
	for _, cat := range Categories() {
		assert.Contains(t, panels, cat, "category %s has no default panel", cat)
	}
}
