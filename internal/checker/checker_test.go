// # internal/checker/checker_test.go
package checker_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradual/internal/binder"
	"gradual/internal/checker"
	"gradual/internal/diagnostics"
	"gradual/internal/types"
)

type analysis struct {
	collector *diagnostics.Collector
	result    checker.Result
	walker    *checker.Walker
}

// analyzeModules binds the given sources and drives each module to its
// fixpoint in name order, sharing one registry.
func analyzeModules(t *testing.T, sources map[string]string, order []string) map[string]*analysis {
	t.Helper()

	registry := binder.NewRegistry()
	mods := make(map[string]*binder.Module, len(sources))
	idx := binder.FirstUserModuleIndex
	for _, name := range order {
		src, ok := sources[name]
		require.True(t, ok, "missing source for %s", name)
		mod, err := binder.Bind(name+".py", name, []byte(src), idx)
		require.NoError(t, err)
		registry.Add(mod)
		mods[name] = mod
		idx++
	}

	out := make(map[string]*analysis, len(sources))
	for _, name := range order {
		mod := mods[name]
		collector := &diagnostics.Collector{}
		file := &checker.FileInfo{
			FilePath:     mod.Path,
			Settings:     diagnostics.DefaultSettings(),
			Sink:         collector,
			ImportLookup: registry.Lookup,
		}
		w := checker.NewWalker(mod.Node, mod.Scopes, file, types.NewAccessedSymbolSet(), 0)
		result, err := checker.NewProgram(w).Run(context.Background())
		require.NoError(t, err)
		out[name] = &analysis{collector: collector, result: result, walker: w}
	}
	return out
}

func analyze(t *testing.T, source string) *analysis {
	t.Helper()
	return analyzeModules(t, map[string]string{"main": source}, []string{"main"})["main"]
}

func messages(diags []diagnostics.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Message)
	}
	return out
}

func requireMessage(t *testing.T, diags []diagnostics.Diagnostic, substr string) diagnostics.Diagnostic {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return d
		}
	}
	t.Fatalf("no diagnostic containing %q in %v", substr, messages(diags))
	return diagnostics.Diagnostic{}
}

func TestReturnTypeMismatch(t *testing.T) {
	a := analyze(t, `
def f() -> int:
    return "x"
`)
	require.True(t, a.result.Converged)
	require.Len(t, a.collector.Diagnostics, 1)
	d := a.collector.Diagnostics[0]
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
	assert.Contains(t, d.Message, "Expression of type 'str' cannot be assigned to return type 'int'")
}

func TestNoReturnForbidsReturn(t *testing.T) {
	a := analyze(t, `
from typing import NoReturn

def f() -> NoReturn:
    return
`)
	require.True(t, a.result.Converged)
	d := requireMessage(t, a.collector.Diagnostics,
		"Function with declared return type 'NoReturn' cannot include a return statement")
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
	assert.Len(t, a.collector.Diagnostics, 1)
}

func TestUnnecessaryIsInstance(t *testing.T) {
	a := analyze(t, `
def f(x: int):
    isinstance(x, int)
`)
	d := requireMessage(t, a.collector.Diagnostics, "'int' is always instance of 'int'")
	assert.Equal(t, diagnostics.RuleUnnecessaryIsInstance, d.Rule)
}

func TestIsInstanceInsideAssertExempt(t *testing.T) {
	a := analyze(t, `
def f(x: int):
    assert isinstance(x, int)
`)
	for _, d := range a.collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RuleUnnecessaryIsInstance, d.Rule)
	}
}

func TestIsInstanceNeverMatches(t *testing.T) {
	a := analyze(t, `
def f(x: str):
    isinstance(x, int)
`)
	d := requireMessage(t, a.collector.Diagnostics, "is never instance of 'int'")
	assert.Equal(t, diagnostics.RuleUnnecessaryIsInstance, d.Rule)
}

func TestUnusedImport(t *testing.T) {
	a := analyze(t, `
import os
`)
	require.True(t, a.result.Converged)
	d := requireMessage(t, a.collector.Diagnostics, "Import 'os' is not accessed")
	assert.Equal(t, diagnostics.RuleUnusedImport, d.Rule)
	// Unused imports are also surfaced as dead-code hints.
	require.Len(t, a.collector.UnusedCode, 1)
	assert.Contains(t, a.collector.UnusedCode[0].Message, "Import 'os'")
}

func TestUsedImportNotReported(t *testing.T) {
	a := analyzeModules(t, map[string]string{
		"lib":  "value = 1\n",
		"main": "import lib\n\nresult = lib.value\n",
	}, []string{"lib", "main"})["main"]
	for _, d := range a.collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RuleUnusedImport, d.Rule, "unexpected: %s", d.Message)
	}
}

func TestFutureImportExempt(t *testing.T) {
	a := analyze(t, `
from __future__ import annotations
`)
	for _, d := range a.collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RuleUnusedImport, d.Rule)
	}
}

func TestProtectedAccessFromDerivedClassAllowed(t *testing.T) {
	a := analyze(t, `
class C:
    _x = 1

class D(C):
    def m(self):
        return C._x
`)
	for _, d := range a.collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RulePrivateUsage, d.Rule, "unexpected: %s", d.Message)
	}
}

func TestProtectedAccessFromOtherModuleReported(t *testing.T) {
	results := analyzeModules(t, map[string]string{
		"lib":  "class C:\n    _x = 1\n",
		"main": "from lib import C\n\nC._x\n",
	}, []string{"lib", "main"})

	d := requireMessage(t, results["main"].collector.Diagnostics,
		"'_x' is protected and used outside of a derived class")
	assert.Equal(t, diagnostics.RulePrivateUsage, d.Rule)

	for _, d := range results["lib"].collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RulePrivateUsage, d.Rule)
	}
}

func TestTypedDictBodyPurity(t *testing.T) {
	a := analyze(t, `
from typing import TypedDict

class D(TypedDict):
    x: int
    y = 5
`)
	d := requireMessage(t, a.collector.Diagnostics, "TypedDict classes can contain only type annotations")
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
}

func TestIdempotenceAfterConvergence(t *testing.T) {
	a := analyze(t, `
def f() -> int:
    return "x"
`)
	require.True(t, a.result.Converged)
	before := len(a.collector.Diagnostics)

	for i := 0; i < 3; i++ {
		assert.False(t, a.walker.Analyze())
	}
	assert.Len(t, a.collector.Diagnostics, before)
}

func TestDeterminism(t *testing.T) {
	src := `
import os

def f(x: int) -> str:
    isinstance(x, int)
    return 1

class _Helper:
    pass
`
	first := analyze(t, src)
	second := analyze(t, src)
	require.Equal(t, len(first.collector.Diagnostics), len(second.collector.Diagnostics))
	for i := range first.collector.Diagnostics {
		assert.Equal(t, first.collector.Diagnostics[i], second.collector.Diagnostics[i])
	}
}

func TestForwardReferenceConverges(t *testing.T) {
	a := analyze(t, `
def f() -> int:
    return g()

def g() -> int:
    return 1
`)
	require.True(t, a.result.Converged)
	assert.Empty(t, a.collector.Diagnostics, "diagnostics: %v", messages(a.collector.Diagnostics))
	assert.Greater(t, a.result.Passes, 1)
}

func TestUnreachableCodeProducesNoDiagnostics(t *testing.T) {
	a := analyze(t, `
def f() -> int:
    return 1
    return "never"
`)
	require.True(t, a.result.Converged)
	assert.Empty(t, a.collector.Diagnostics, "diagnostics: %v", messages(a.collector.Diagnostics))
}

func TestUnusedPrivateSymbols(t *testing.T) {
	a := analyze(t, `
_unused = 1

class _Ghost:
    pass

def _helper():
    return None

def public():
    return None
`)
	requireMessage(t, a.collector.Diagnostics, "Variable '_unused' is not accessed")
	requireMessage(t, a.collector.Diagnostics, "Class '_Ghost' is not accessed")
	requireMessage(t, a.collector.Diagnostics, "Function '_helper' is not accessed")
	for _, d := range a.collector.Diagnostics {
		assert.NotContains(t, d.Message, "'public'")
	}
}

func TestMethodShapeValidation(t *testing.T) {
	a := analyze(t, `
class C:
    def good(self):
        return None

    def bad(this):
        return None

    @staticmethod
    def helper(self):
        return None
`)
	requireMessage(t, a.collector.Diagnostics, "Instance methods should take a 'self' parameter")
	requireMessage(t, a.collector.Diagnostics, "Static methods should not take a 'self' or 'cls' parameter")
}

func TestIncompatibleOverride(t *testing.T) {
	a := analyze(t, `
class Base:
    def update(self, value: int) -> None:
        return None

class Derived(Base):
    def update(self, value: int, extra: int) -> None:
        return None
`)
	d := requireMessage(t, a.collector.Diagnostics, "overrides class 'Base' in an incompatible manner")
	assert.Equal(t, diagnostics.RuleIncompatibleMethodOverride, d.Rule)
}

func TestCompatibleOverrideQuiet(t *testing.T) {
	a := analyze(t, `
class Base:
    def update(self, value: int) -> None:
        return None

class Derived(Base):
    def update(self, value: int) -> None:
        return None
`)
	for _, d := range a.collector.Diagnostics {
		assert.NotEqual(t, diagnostics.RuleIncompatibleMethodOverride, d.Rule, "unexpected: %s", d.Message)
	}
}

func TestGeneratorYieldValidation(t *testing.T) {
	a := analyze(t, `
from typing import Iterator

def gen() -> Iterator[int]:
    yield "x"
`)
	d := requireMessage(t, a.collector.Diagnostics, "cannot be assigned to yield type")
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
}

func TestGeneratorYieldCompatible(t *testing.T) {
	a := analyze(t, `
from typing import Iterator

def gen() -> Iterator[int]:
    yield 1
`)
	assert.Empty(t, a.collector.Diagnostics, "diagnostics: %v", messages(a.collector.Diagnostics))
}

func TestRaiseRequiresException(t *testing.T) {
	a := analyze(t, `
def f():
    raise ValueError("boom")

def g():
    raise int()
`)
	requireMessage(t, a.collector.Diagnostics, "does not derive from BaseException")
}

func TestDelOfFunctionReported(t *testing.T) {
	a := analyze(t, `
def f():
    return None

del f
`)
	requireMessage(t, a.collector.Diagnostics, "Del should not be applied to 'f'")
}

func TestCallInDefaultInitializer(t *testing.T) {
	a := analyze(t, `
def factory():
    return 1

def f(x=factory()):
    return x
`)
	d := requireMessage(t, a.collector.Diagnostics,
		"Function calls within default value initializer are not permitted")
	assert.Equal(t, diagnostics.RuleCallInDefaultInitializer, d.Rule)
}

func TestDeclaredAssignmentMismatch(t *testing.T) {
	a := analyze(t, `
x: int = "text"
`)
	d := requireMessage(t, a.collector.Diagnostics,
		"Expression of type 'str' cannot be assigned to declared type 'int'")
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
}

func TestNoReturnInference(t *testing.T) {
	a := analyze(t, `
def boom():
    raise ValueError("always")

def f() -> int:
    return boom()
`)
	require.True(t, a.result.Converged)
	// boom() infers NoReturn, which is assignable to int.
	assert.Empty(t, a.collector.Diagnostics, "diagnostics: %v", messages(a.collector.Diagnostics))
}
