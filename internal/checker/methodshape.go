// # internal/checker/methodshape.go
package checker

import (
	"fmt"
	"strings"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// validateMethodShape applies the first-parameter naming rules to a function
// lexically enclosed by a class. Decorators can rebind the callable, so any
// decorator suppresses the undecorated instance-method heuristic; static and
// class method rules key off declared flags instead of decorator names.
func (w *Walker) validateMethodShape(fnNode *syntax.Node, fnType *types.FunctionType) {
	var firstParam *syntax.Node
	if len(fnNode.Params) > 0 {
		firstParam = fnNode.Params[0]
	}

	switch {
	case fnNode.Value == "__new__" || fnNode.Value == "__init_subclass__":
		allowed := firstParam != nil && (firstParam.Value == "cls" ||
			(fnNode.Value == "__new__" && firstParam.Value == "mcs"))
		if !allowed {
			w.eval.AddError(fmt.Sprintf(
				"'%s' override should take a 'cls' parameter", fnNode.Value), paramOrFn(firstParam, fnNode))
		}

	case fnType.HasFlag(types.FuncStaticMethod):
		if firstParam != nil && (firstParam.Value == "self" || firstParam.Value == "cls") {
			w.eval.AddError(
				"Static methods should not take a 'self' or 'cls' parameter", firstParam)
		}

	case fnType.HasFlag(types.FuncClassMethod):
		ok := firstParam != nil && firstParam.Value == "cls"
		if firstParam != nil && strings.HasPrefix(firstParam.Value, "_") {
			ok = true
		}
		if w.file.IsStubFile && firstParam != nil && firstParam.Value == "metacls" {
			ok = true
		}
		if !ok {
			w.eval.AddError("Class methods should take a 'cls' parameter", paramOrFn(firstParam, fnNode))
		}

	default:
		if len(fnNode.Decorators) > 0 {
			return
		}
		if firstParam == nil {
			w.eval.AddError("Instance methods should take a 'self' parameter", functionNameNode(fnNode))
			return
		}
		if firstParam.ParamCategory != syntax.ParamSimple {
			w.eval.AddError("Instance methods should take a 'self' parameter", firstParam)
			return
		}
		if firstParam.Value == "self" || strings.HasPrefix(firstParam.Value, "_") {
			return
		}
		// The ABCMeta.register(cls, ...) idiom appears in stubs.
		if w.file.IsStubFile && firstParam.Value == "cls" && fnNode.Value == "register" {
			return
		}
		w.eval.AddError("Instance methods should take a 'self' parameter", firstParam)
	}
}

func paramOrFn(param, fnNode *syntax.Node) *syntax.Node {
	if param != nil {
		return param
	}
	return functionNameNode(fnNode)
}

// validateClassMethods runs override validation across the class and marks
// the class abstract when any abstract method remains unimplemented.
func (w *Walker) validateClassMethods(classNode *syntax.Node, classType *types.ClassType) {
	fields := classType.Details.Fields
	hasAbstract := false

	for _, name := range fields.SortedNames() {
		sym, _ := fields.Get(name)

		effective := types.GetEffectiveTypeOfSymbol(sym, w.file.ImportLookup)
		derivedFn, isFunc := effective.(*types.FunctionType)
		if isFunc && derivedFn.HasFlag(types.FuncAbstractMethod) {
			hasAbstract = true
		}

		if isDunderName(name) || !isFunc {
			continue
		}

		baseSym, baseClass := types.GetSymbolFromBaseClasses(classType, name)
		if baseSym == nil {
			continue
		}
		baseType := types.GetEffectiveTypeOfSymbol(baseSym, w.file.ImportLookup)
		baseFn, ok := baseType.(*types.FunctionType)
		if !ok {
			continue
		}

		diag := &types.DiagAddendum{}
		if !types.CanOverride(baseFn, derivedFn, diag, w.file.ImportLookup) {
			w.eval.AddDiagnosticWithRange(diagnostics.RuleIncompatibleMethodOverride,
				fmt.Sprintf("Method '%s' overrides class '%s' in an incompatible manner%s",
					name, baseClass.Details.Name, diag.String()),
				declRangeOrNode(sym, classNode))
		}
	}

	// Inherited abstract methods count unless a concrete override exists.
	if !hasAbstract {
		for _, base := range classType.Details.Bases {
			baseCls, ok := base.(*types.ClassType)
			if !ok {
				continue
			}
			for _, name := range baseCls.Details.Fields.SortedNames() {
				baseSym, _ := baseCls.Details.Fields.Get(name)
				baseType := types.GetEffectiveTypeOfSymbol(baseSym, w.file.ImportLookup)
				baseFn, ok := baseType.(*types.FunctionType)
				if !ok || !baseFn.HasFlag(types.FuncAbstractMethod) {
					continue
				}
				if _, overridden := fields.Get(name); !overridden {
					hasAbstract = true
				}
			}
		}
	}

	if hasAbstract {
		classType.SetFlag(types.ClassAbstract)
	}
}

func isDunderName(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

func declRangeOrNode(sym *types.Symbol, fallback *syntax.Node) syntax.TextRange {
	if primary := sym.PrimaryDeclaration(); primary != nil {
		return primary.Range
	}
	return fallback.Range
}
