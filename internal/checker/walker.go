// # internal/checker/walker.go
package checker

import (
	"fmt"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// Walker drives one analysis pass over a module: it visits every statement
// and expression, queries the evaluator at the right granularity (the call's
// purpose is its cache and diagnostic side effects), and applies the
// cross-cutting validations.
type Walker struct {
	moduleNode *syntax.Node
	file       *FileInfo
	scopes     map[int]*types.Scope
	accessed   *types.AccessedSymbolSet
	eval       *Evaluator

	finalSink   diagnostics.Sink
	version     int
	scopedNodes []*syntax.Node

	converged  bool
	lastReason string
}

// NewWalker builds a walker over a binder-decorated module parse node. The
// accessed set is shared across passes; version is the starting pass number.
func NewWalker(moduleNode *syntax.Node, scopes map[int]*types.Scope, file *FileInfo, accessed *types.AccessedSymbolSet, version int) *Walker {
	w := &Walker{
		moduleNode: moduleNode,
		file:       file,
		scopes:     scopes,
		accessed:   accessed,
		finalSink:  file.Sink,
		version:    version,
	}
	w.eval = NewEvaluator(file, scopes, accessed)
	return w
}

// Evaluator exposes the walker's evaluator for tests and tooling.
func (w *Walker) Evaluator() *Evaluator { return w.eval }

// LastReanalysisReason describes the first type change of the last pass that
// reported a change. Debugging aid only.
func (w *Walker) LastReanalysisReason() string { return w.lastReason }

// Analyze runs one pass and reports whether anything changed. Diagnostics
// are buffered per pass and flushed to the real sink on the converged pass,
// so earlier passes based on not-yet-settled types leave no trace. Once
// converged, further calls return false without re-walking.
func (w *Walker) Analyze() bool {
	if w.converged {
		return false
	}

	buffer := &diagnostics.Collector{}
	w.file.Sink = buffer
	w.version++
	w.eval.BeginPass(w.version)
	w.scopedNodes = w.scopedNodes[:0]

	w.visit(w.moduleNode)

	// The first pass populates an empty cache; first-time writes do not count
	// as changes, so force one more pass to let forward references narrow.
	if w.eval.DidChange() || w.version == 1 {
		w.lastReason = w.eval.ChangeReason()
		w.file.Sink = w.finalSink
		return true
	}

	// Converged: flush this pass's diagnostics and run the unused sweep.
	w.file.Sink = w.finalSink
	for _, d := range buffer.Diagnostics {
		w.finalSink.Add(d)
	}
	for _, d := range buffer.UnusedCode {
		w.finalSink.AddUnusedCode(d.Message, d.Path, d.Range)
	}
	w.reportUnusedSymbols()
	w.converged = true
	return false
}

func (w *Walker) visit(node *syntax.Node) {
	if node == nil {
		return
	}
	// Unreachable subtrees are skipped entirely: no diagnostics, no cache
	// writes.
	if node.Flow&syntax.FlowHasFlags != 0 && node.Flow&syntax.FlowUnreachable != 0 {
		return
	}

	switch node.Kind {
	case syntax.KindModule:
		w.scopedNodes = append(w.scopedNodes, node)
		w.visitAll(node.Body)

	case syntax.KindSuite, syntax.KindStatementList:
		w.visitAll(node.Body)

	case syntax.KindClass:
		w.visitClass(node)

	case syntax.KindFunction:
		w.visitFunction(node)

	case syntax.KindLambda:
		w.visitLambda(node)

	case syntax.KindCall:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.checkUnnecessaryTypeTest(node)
		w.checkCallInDefaultInitializer(node)
		w.visit(node.Left)
		w.visitAll(node.Args)

	case syntax.KindArgument:
		w.visit(node.Right)

	case syntax.KindReturn:
		w.visitReturn(node)

	case syntax.KindYield:
		w.visitYield(node, false)

	case syntax.KindYieldFrom:
		w.visitYield(node, true)

	case syntax.KindRaise:
		w.visitRaise(node)

	case syntax.KindAssignment:
		w.eval.GetTypeOfAssignmentStatementTarget(node)
		if node.AnnotationComment != nil {
			annType := w.eval.GetTypeOfAnnotation(node.AnnotationComment)
			w.checkDeclaredTypeConsistency(node.Left, annType)
		}
		w.visit(node.Right)
		w.visit(node.Left)

	case syntax.KindAugmentedAssignment:
		w.eval.GetTypeOfAugmentedAssignmentTarget(node)
		w.visit(node.Right)
		w.visit(node.Left)

	case syntax.KindTypeAnnotation:
		w.visitTypeAnnotation(node)

	case syntax.KindDel:
		w.visitDel(node)

	case syntax.KindMemberAccess:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.checkPrivateMemberAccess(node)
		// The member name is consumed by the check; walk only the left side.
		w.visit(node.Left)

	case syntax.KindImport, syntax.KindImportFrom:
		for _, importAs := range node.Imports {
			if node.Kind == syntax.KindImport {
				w.eval.GetTypeOfImportAsTarget(importAs)
			} else {
				w.eval.GetTypeOfImportFromTarget(importAs)
			}
		}

	case syntax.KindName:
		w.checkPrivateName(node)

	case syntax.KindFor:
		w.eval.GetTypeOfForTarget(node)
		w.visit(node.Left)
		w.visit(node.Right)
		w.visitAll(node.Body)
		w.visitAll(node.Else)

	case syntax.KindWhile, syntax.KindIf:
		w.eval.GetType(node.Right, UsageGet, nil, EvalNone)
		w.visit(node.Right)
		w.visitAll(node.Body)
		w.visitAll(node.Else)

	case syntax.KindAssert:
		w.eval.GetType(node.Right, UsageGet, nil, EvalNone)
		w.visit(node.Right)
		if node.Extra != nil {
			w.visit(node.Extra)
		}

	case syntax.KindWith:
		for _, item := range node.Items {
			w.eval.GetTypeOfWithItemTarget(item)
			w.visit(item.Right)
		}
		w.visitAll(node.Body)

	case syntax.KindTry:
		w.visitAll(node.Body)
		for _, handler := range node.Handlers {
			if handler.Right != nil {
				w.eval.GetTypeOfExceptTarget(handler)
				w.visit(handler.Right)
			}
			w.visitAll(handler.Body)
		}
		w.visitAll(node.Else)
		w.visitAll(node.Final)

	case syntax.KindFormatString:
		for _, expr := range node.Expressions {
			w.eval.GetType(expr, UsageGet, nil, EvalNone)
			w.visit(expr)
		}

	case syntax.KindStringList:
		if w.eval.IsAnnotationLiteralValue(node) {
			return
		}
		if node.IsAnnotationString {
			w.eval.GetTypeOfAnnotation(node)
		}

	case syntax.KindError:
		// Keep the evaluator warm under a syntax error so downstream tooling
		// still sees types, but do not descend.
		if node.Left != nil {
			w.eval.GetType(node.Left, UsageGet, nil, EvalNone)
		}

	case syntax.KindIndex:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.visit(node.Left)
		w.visitAll(node.Args)

	case syntax.KindBinaryOperation, syntax.KindUnaryOperation, syntax.KindTernary:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.visit(node.Left)
		w.visit(node.Right)
		w.visit(node.Extra)

	case syntax.KindTuple, syntax.KindList, syntax.KindSet:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.visitAll(node.Args)

	case syntax.KindDict:
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		for _, entry := range node.Args {
			w.visit(entry.Left)
			w.visit(entry.Right)
		}

	case syntax.KindListComprehension:
		w.scopedNodes = append(w.scopedNodes, node)
		w.eval.GetType(node, UsageGet, nil, EvalNone)
		w.visitAll(node.Body)
		w.visit(node.Left)

	case syntax.KindGlobal, syntax.KindNonlocal, syntax.KindPass,
		syntax.KindBreak, syntax.KindContinue, syntax.KindEllipsis,
		syntax.KindNumber, syntax.KindString, syntax.KindConstant:
		// Nothing to validate.

	default:
		w.visit(node.Left)
		w.visit(node.Right)
		w.visitAll(node.Body)
	}
}

func (w *Walker) visitAll(nodes []*syntax.Node) {
	for _, n := range nodes {
		w.visit(n)
	}
}

func (w *Walker) visitClass(node *syntax.Node) {
	w.scopedNodes = append(w.scopedNodes, node)
	result := w.eval.GetTypeOfClass(node)

	// Suite first, then decorators and base arguments: decorators may
	// reference the class name.
	w.visit(node.Suite)
	w.visitAll(node.Decorators)
	w.visitAll(node.Args)

	if result.ClassType != nil {
		w.validateClassMethods(node, result.ClassType)
		if result.ClassType.HasFlag(types.ClassTypedDict) {
			w.checkTypedDictBody(node)
		}
	}
}

func (w *Walker) visitFunction(node *syntax.Node) {
	w.scopedNodes = append(w.scopedNodes, node)
	result := w.eval.GetTypeOfFunction(node)
	fnType := result.FunctionType

	containingClass := node.EnclosingOfKind(syntax.KindClass, syntax.KindFunction)
	isMethod := containingClass != nil && containingClass.Kind == syntax.KindClass

	for i, param := range node.Params {
		if i < len(fnType.Params) {
			paramType := fnType.Params[i].Type
			if paramType == nil || paramType.Category() == types.CategoryUnknown {
				w.eval.AddDiagnostic(diagnostics.RuleUnknownParameterType,
					fmt.Sprintf("Type of parameter '%s' is unknown", param.Value), param)
			}
		}
	}

	if isMethod {
		w.validateMethodShape(node, fnType)
	}

	// Defaults, annotations and decorators evaluate outside the function
	// scope.
	for _, param := range node.Params {
		w.visit(param.DefaultValue)
		if param.TypeAnnotationNode != nil {
			w.eval.GetTypeOfAnnotation(param.TypeAnnotationNode)
			w.visit(param.TypeAnnotationNode)
		}
	}
	if node.ReturnAnnotation != nil {
		w.eval.GetTypeOfAnnotation(node.ReturnAnnotation)
		w.visit(node.ReturnAnnotation)
	}
	w.visitAll(node.Decorators)

	// Now the body, inside the function scope.
	w.visit(node.Suite)

	w.validateFunctionReturn(node, fnType)
}

func (w *Walker) visitLambda(node *syntax.Node) {
	w.scopedNodes = append(w.scopedNodes, node)
	lambdaType := w.eval.GetType(node, UsageGet, nil, EvalNone)

	for _, param := range node.Params {
		w.visit(param.DefaultValue)
	}
	w.visit(node.Right)

	if fn, ok := lambdaType.(*types.FunctionType); ok {
		for _, p := range fn.Params {
			if p.Type == nil || p.Type.Category() == types.CategoryUnknown {
				w.eval.AddDiagnostic(diagnostics.RuleUnknownLambdaType,
					fmt.Sprintf("Type of parameter '%s' is unknown", p.Name), node)
				break
			}
		}
		ret := fn.EffectiveReturn()
		if types.ContainsUnknown(ret) {
			w.eval.AddDiagnostic(diagnostics.RuleUnknownLambdaType,
				"Type of lambda expression is partially unknown", node)
		}
	}
}

func (w *Walker) visitTypeAnnotation(node *syntax.Node) {
	annType := w.eval.GetTypeOfAnnotation(node.Right)

	if node.Left != nil && node.Left.Kind == syntax.KindName {
		annType = w.eval.TransformTypeForPossibleEnumClass(node.Left, annType)
	}

	// When the annotation is not the left side of an assignment, the target
	// takes the annotation type directly.
	if node.Parent == nil || node.Parent.Kind != syntax.KindAssignment {
		if node.Left != nil {
			w.eval.UpdateExpressionTypeForNode(node.Left, annType)
			if decl := w.eval.declarationFor(node.Left); decl != nil {
				decl.DeclaredType = annType
			}
		}
	}
	w.checkDeclaredTypeConsistency(node.Left, annType)
	w.visit(node.Left)
	w.visit(node.Right)
}

// checkDeclaredTypeConsistency requires a new declared type to match any
// pre-existing declared type on the same target.
func (w *Walker) checkDeclaredTypeConsistency(target *syntax.Node, newDeclared types.Type) {
	if target == nil || target.Kind != syntax.KindName || newDeclared == nil {
		return
	}
	sym := w.eval.LookupName(target, target.Value)
	if sym == nil {
		return
	}
	for _, d := range sym.Declarations {
		if d.Node == target || d.DeclaredType == nil {
			continue
		}
		if !types.IsTypeSame(d.DeclaredType, newDeclared) {
			w.eval.AddError(fmt.Sprintf(
				"Declared type '%s' is not compatible with previous declared type '%s'",
				types.Print(newDeclared), types.Print(d.DeclaredType)), target)
		}
		return
	}
}

func (w *Walker) visitDel(node *syntax.Node) {
	for _, target := range node.Args {
		w.eval.GetType(target, UsageDel, nil, EvalNone)
		if target.Kind != syntax.KindName {
			w.visit(target)
			continue
		}
		sym := w.eval.LookupName(target, target.Value)
		if sym == nil {
			continue
		}
		if typed := sym.LastTypedDeclaration(); typed != nil {
			switch typed.Category {
			case types.DeclFunction, types.DeclMethod, types.DeclClass:
				w.eval.AddError(fmt.Sprintf(
					"Del should not be applied to '%s' because it is declared as a %s",
					target.Value, declCategoryName(typed.Category)), target)
			}
		}
	}
}

func declCategoryName(c types.DeclarationCategory) string {
	switch c {
	case types.DeclFunction:
		return "function"
	case types.DeclMethod:
		return "method"
	case types.DeclClass:
		return "class"
	}
	return "symbol"
}

// checkCallInDefaultInitializer reports calls inside default-parameter
// initializer expressions outside stub files.
func (w *Walker) checkCallInDefaultInitializer(node *syntax.Node) {
	if w.file.IsStubFile {
		return
	}
	for cur := node; cur != nil; cur = cur.Parent {
		if cur.Kind == syntax.KindParameter {
			if cur.DefaultValue != nil && cur.DefaultValue.Contains(node) {
				w.eval.AddDiagnostic(diagnostics.RuleCallInDefaultInitializer,
					"Function calls within default value initializer are not permitted", node)
			}
			return
		}
		if cur.Kind == syntax.KindFunction || cur.Kind == syntax.KindLambda ||
			cur.Kind == syntax.KindClass || cur.Kind == syntax.KindModule {
			return
		}
	}
}

// checkTypedDictBody enforces that a TypedDict suite contains only type
// annotations, docstrings, ellipses and pass statements.
func (w *Walker) checkTypedDictBody(node *syntax.Node) {
	if node.Suite == nil {
		return
	}
	for _, stmt := range node.Suite.Body {
		switch stmt.Kind {
		case syntax.KindTypeAnnotation, syntax.KindPass:
			continue
		case syntax.KindString, syntax.KindStringList, syntax.KindEllipsis:
			continue
		}
		w.eval.AddError("TypedDict classes can contain only type annotations", stmt)
	}
}
