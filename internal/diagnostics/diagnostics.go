// # internal/diagnostics/diagnostics.go
package diagnostics

import (
	"fmt"

	"gradual/internal/syntax"
)

// Severity of a reported diagnostic. Rule settings select the severity a
// check runs at, or disable it entirely.
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule names, as they appear in configuration.
const (
	RuleUnknownParameterType      = "reportUnknownParameterType"
	RuleUnknownLambdaType         = "reportUnknownLambdaType"
	RuleUnusedImport              = "reportUnusedImport"
	RuleUnusedVariable            = "reportUnusedVariable"
	RuleUnusedClass               = "reportUnusedClass"
	RuleUnusedFunction            = "reportUnusedFunction"
	RulePrivateUsage              = "reportPrivateUsage"
	RuleUnnecessaryIsInstance     = "reportUnnecessaryIsInstance"
	RuleCallInDefaultInitializer  = "reportCallInDefaultInitializer"
	RuleIncompatibleMethodOverride = "reportIncompatibleMethodOverride"
	// RuleGeneral is used for unconditional type errors.
	RuleGeneral = "reportGeneralTypeIssues"
)

// Settings holds the per-rule severity levels a module is checked under.
type Settings struct {
	UnknownParameterType      Severity `toml:"report_unknown_parameter_type"`
	UnknownLambdaType         Severity `toml:"report_unknown_lambda_type"`
	UnusedImport              Severity `toml:"report_unused_import"`
	UnusedVariable            Severity `toml:"report_unused_variable"`
	UnusedClass               Severity `toml:"report_unused_class"`
	UnusedFunction            Severity `toml:"report_unused_function"`
	PrivateUsage              Severity `toml:"report_private_usage"`
	UnnecessaryIsInstance     Severity `toml:"report_unnecessary_isinstance"`
	CallInDefaultInitializer  Severity `toml:"report_call_in_default_initializer"`
	IncompatibleMethodOverride Severity `toml:"report_incompatible_method_override"`
}

// DefaultSettings enables every check at warning level except override
// incompatibilities, which default to error.
func DefaultSettings() Settings {
	return Settings{
		UnknownParameterType:       SeverityWarning,
		UnknownLambdaType:          SeverityWarning,
		UnusedImport:               SeverityWarning,
		UnusedVariable:             SeverityWarning,
		UnusedClass:                SeverityWarning,
		UnusedFunction:             SeverityWarning,
		PrivateUsage:               SeverityWarning,
		UnnecessaryIsInstance:      SeverityWarning,
		CallInDefaultInitializer:   SeverityWarning,
		IncompatibleMethodOverride: SeverityError,
	}
}

// Level returns the configured severity for a rule name.
func (s Settings) Level(rule string) Severity {
	switch rule {
	case RuleUnknownParameterType:
		return normalize(s.UnknownParameterType)
	case RuleUnknownLambdaType:
		return normalize(s.UnknownLambdaType)
	case RuleUnusedImport:
		return normalize(s.UnusedImport)
	case RuleUnusedVariable:
		return normalize(s.UnusedVariable)
	case RuleUnusedClass:
		return normalize(s.UnusedClass)
	case RuleUnusedFunction:
		return normalize(s.UnusedFunction)
	case RulePrivateUsage:
		return normalize(s.PrivateUsage)
	case RuleUnnecessaryIsInstance:
		return normalize(s.UnnecessaryIsInstance)
	case RuleCallInDefaultInitializer:
		return normalize(s.CallInDefaultInitializer)
	case RuleIncompatibleMethodOverride:
		return normalize(s.IncompatibleMethodOverride)
	case RuleGeneral:
		return SeverityError
	}
	return SeverityNone
}

func normalize(sev Severity) Severity {
	switch sev {
	case SeverityNone, SeverityWarning, SeverityError:
		return sev
	}
	return SeverityNone
}

// Diagnostic is one user-facing finding with a text range.
type Diagnostic struct {
	Severity Severity
	Rule     string
	Message  string
	Path     string
	Range    syntax.TextRange
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s: %s", d.Path, d.Range, d.Severity, d.Message)
}

// Sink receives diagnostics and, separately, unused-code markers used for
// dead-code hinting. Implementations must preserve insertion order.
type Sink interface {
	Add(d Diagnostic)
	AddUnusedCode(message string, path string, textRange syntax.TextRange)
}

// Collector is the ordered in-memory sink used by the checker and tests.
type Collector struct {
	Diagnostics []Diagnostic
	UnusedCode  []Diagnostic
}

func (c *Collector) Add(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

func (c *Collector) AddUnusedCode(message, path string, textRange syntax.TextRange) {
	c.UnusedCode = append(c.UnusedCode, Diagnostic{
		Severity: SeverityNone,
		Rule:     "unusedCode",
		Message:  message,
		Path:     path,
		Range:    textRange,
	})
}

// ErrorCount returns the number of error-severity diagnostics.
func (c *Collector) ErrorCount() int {
	n := 0
	for _, d := range c.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}
