// # internal/diagnostics/sarif_test.go
package diagnostics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradual/internal/syntax"
)

func TestGenerateSARIF(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SeverityError,
			Rule:     RuleGeneral,
			Message:  "Expression of type 'str' cannot be assigned to return type 'int'",
			Path:     "/project/pkg/main.py",
			Range:    syntax.TextRange{Line: 3, Column: 5},
		},
		{
			Severity: SeverityWarning,
			Rule:     RuleUnusedImport,
			Message:  "Import 'os' is not accessed",
			Path:     "/project/pkg/main.py",
			Range:    syntax.TextRange{Line: 1, Column: 1},
		},
	}

	data, err := GenerateSARIF("/project", "1.0.0", diags)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, "2.1.0", report["version"])
	runs := report["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)

	results := run["results"].([]any)
	require.Len(t, results, 2)

	first := results[0].(map[string]any)
	assert.Equal(t, RuleGeneral, first["ruleId"])
	assert.Equal(t, "error", first["level"])

	loc := first["locations"].([]any)[0].(map[string]any)
	phys := loc["physicalLocation"].(map[string]any)
	artifact := phys["artifactLocation"].(map[string]any)
	assert.Equal(t, "pkg/main.py", artifact["uri"])
	region := phys["region"].(map[string]any)
	assert.Equal(t, float64(3), region["startLine"])

	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	rules := driver["rules"].([]any)
	assert.Len(t, rules, 2)
}

func TestSettingsLevels(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, SeverityWarning, s.Level(RuleUnusedImport))
	assert.Equal(t, SeverityError, s.Level(RuleIncompatibleMethodOverride))
	assert.Equal(t, SeverityError, s.Level(RuleGeneral))
	assert.Equal(t, SeverityNone, s.Level("reportSomethingUnknown"))

	s.UnusedImport = SeverityNone
	assert.Equal(t, SeverityNone, s.Level(RuleUnusedImport))

	// Unrecognized severities are treated as disabled.
	s.UnusedVariable = Severity("loud")
	assert.Equal(t, SeverityNone, s.Level(RuleUnusedVariable))
}

func TestCollectorOrderAndCounts(t *testing.T) {
	c := &Collector{}
	c.Add(Diagnostic{Severity: SeverityError, Message: "first"})
	c.Add(Diagnostic{Severity: SeverityWarning, Message: "second"})
	c.AddUnusedCode("dead", "a.py", syntax.TextRange{Line: 1})

	require.Len(t, c.Diagnostics, 2)
	assert.Equal(t, "first", c.Diagnostics[0].Message)
	assert.Equal(t, "second", c.Diagnostics[1].Message)
	assert.Equal(t, 1, c.ErrorCount())
	require.Len(t, c.UnusedCode, 1)
}
