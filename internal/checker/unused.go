// # internal/checker/unused.go
package checker

import (
	"fmt"
	"strings"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// generatedFileSuffix marks protocol-compiler output whose imports are not
// worth reporting. Matching is byte-wise; see DESIGN.md on case sensitivity.
const generatedFileSuffix = "_pb2.py"

// futureModuleName is the compatibility pseudo-module whose imports exist
// for their side effect alone.
const futureModuleName = "__future__"

// reportUnusedSymbols sweeps every scope recorded during walking once the
// analysis converged, reporting symbols never touched across any pass.
func (w *Walker) reportUnusedSymbols() {
	for _, scopedNode := range w.scopedNodes {
		scope := w.scopes[scopedNode.ScopeID]
		if scope == nil {
			continue
		}
		for _, name := range scope.Symbols.SortedNames() {
			sym, _ := scope.Symbols.Get(name)
			if w.accessed.Has(sym.ID) {
				continue
			}
			if sym.IgnoredForProtocolMatch {
				continue
			}
			if name == "_" || isDunderName(name) {
				continue
			}
			w.reportUnusedSymbol(sym, name)
		}
	}
}

func (w *Walker) reportUnusedSymbol(sym *types.Symbol, name string) {
	primary := sym.PrimaryDeclaration()
	if primary == nil {
		return
	}

	if sym.HasOnlyAliasDeclarations() {
		w.reportUnusedImport(sym, name, primary)
		return
	}

	// Non-alias symbols are reportable only when private.
	if !strings.HasPrefix(name, protectedPrefix) {
		return
	}

	var rule, message string
	switch primary.Category {
	case types.DeclVariable, types.DeclParameter:
		rule = diagnostics.RuleUnusedVariable
		message = fmt.Sprintf("Variable '%s' is not accessed", name)
	case types.DeclClass:
		rule = diagnostics.RuleUnusedClass
		message = fmt.Sprintf("Class '%s' is not accessed", name)
	case types.DeclFunction, types.DeclMethod:
		rule = diagnostics.RuleUnusedFunction
		message = fmt.Sprintf("Function '%s' is not accessed", name)
	default:
		return
	}

	w.eval.AddDiagnosticWithRange(rule, message, primary.Range)
	w.file.Sink.AddUnusedCode(message, w.file.FilePath, primary.Range)
}

func (w *Walker) reportUnusedImport(sym *types.Symbol, name string, primary *types.Declaration) {
	if primary.AliasModule == futureModuleName ||
		strings.HasPrefix(primary.AliasModule, futureModuleName+".") {
		return
	}
	if strings.HasSuffix(w.file.FilePath, generatedFileSuffix) {
		return
	}

	displayName := name
	textRange := primary.Range
	if node := primary.Node; node != nil && node.Kind == syntax.KindImportAs {
		if node.Value == "" && node.Left != nil {
			// Dotted-import form: report the full dotted path over the merged
			// module-name range.
			displayName = node.Left.Value
			textRange = node.Left.Range.Extend(node.Range)
		}
	}

	message := fmt.Sprintf("Import '%s' is not accessed", displayName)
	w.eval.AddDiagnosticWithRange(diagnostics.RuleUnusedImport, message, textRange)
	w.file.Sink.AddUnusedCode(message, w.file.FilePath, textRange)
}
