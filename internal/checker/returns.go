// # internal/checker/returns.go
package checker

import (
	"fmt"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

func (w *Walker) enclosingFunction(node *syntax.Node) *syntax.Node {
	fn := node.EnclosingOfKind(syntax.KindFunction, syntax.KindLambda, syntax.KindModule)
	if fn != nil && fn.Kind == syntax.KindFunction {
		return fn
	}
	return nil
}

func (w *Walker) visitReturn(node *syntax.Node) {
	fnNode := w.enclosingFunction(node)
	var fnType *types.FunctionType
	if fnNode != nil {
		fnType, _ = w.eval.CachedType(fnNode).(*types.FunctionType)
	}

	var declared types.Type
	if fnType != nil && fnType.DeclaredReturn != nil {
		declared = declaredReturnForReturnCheck(fnType)
	}

	var returned types.Type = types.None()
	if node.Right != nil {
		returned = w.eval.GetType(node.Right, UsageGet, declared, EvalNone)
	}

	if declared != nil {
		if types.IsNoReturn(fnType.DeclaredReturn) {
			w.eval.AddError(
				"Function with declared return type 'NoReturn' cannot include a return statement", node)
		} else {
			specialized := types.Specialize(declared, nil)
			diag := &types.DiagAddendum{}
			if !types.CanAssign(specialized, returned, diag, w.file.ImportLookup) {
				w.eval.AddError(fmt.Sprintf(
					"Expression of type '%s' cannot be assigned to return type '%s'%s",
					types.Print(returned), types.Print(specialized), diag.String()), node)
			}
		}
	}

	w.visit(node.Right)
}

// declaredReturnForReturnCheck maps a generator's declared Generator[Y, S, R]
// to R for the purpose of validating return statements.
func declaredReturnForReturnCheck(fnType *types.FunctionType) types.Type {
	declared := fnType.DeclaredReturn
	if !fnType.HasFlag(types.FuncGenerator) {
		return declared
	}
	if obj, ok := declared.(*types.ObjectType); ok {
		if obj.Class.Details.Name == "Generator" && len(obj.Class.TypeArgs) == 3 {
			return obj.Class.TypeArgs[2]
		}
	}
	return declared
}

// declaredYieldType derives the declared yield element type from a declared
// Generator[Y, ...] or Iterator[Y] return annotation, or nil.
func declaredYieldType(fnType *types.FunctionType) types.Type {
	if fnType == nil || fnType.DeclaredReturn == nil {
		return nil
	}
	obj, ok := fnType.DeclaredReturn.(*types.ObjectType)
	if !ok {
		return nil
	}
	switch obj.Class.Details.Name {
	case "Generator", "Iterator", "Iterable", "AsyncGenerator", "AsyncIterator":
		if len(obj.Class.TypeArgs) > 0 {
			return obj.Class.TypeArgs[0]
		}
	}
	return nil
}

func (w *Walker) visitYield(node *syntax.Node, isFrom bool) {
	fnNode := w.enclosingFunction(node)
	var fnType *types.FunctionType
	if fnNode != nil {
		fnType, _ = w.eval.CachedType(fnNode).(*types.FunctionType)
	}

	var yieldType types.Type = types.None()
	if node.Right != nil {
		yieldType = w.eval.GetType(node.Right, UsageGet, nil, EvalNone)
	}

	// "yield x" produces Iterator[x]; "yield from it" passes the operand
	// through raw.
	adjusted := yieldType
	if !isFrom {
		adjusted = w.typingInstance(node, "Iterator", []types.Type{yieldType})
	}

	if fnType != nil && fnType.DeclaredReturn != nil {
		if types.IsNoReturn(fnType.DeclaredReturn) {
			w.eval.AddError(
				"Function with declared return type 'NoReturn' cannot include a yield statement", node)
		} else if declY := declaredYieldType(fnType); declY != nil {
			declaredWrapped := w.typingInstance(node, "Iterator", []types.Type{declY})
			diag := &types.DiagAddendum{}
			if !types.CanAssign(declaredWrapped, adjusted, diag, w.file.ImportLookup) {
				w.eval.AddError(fmt.Sprintf(
					"Expression of type '%s' cannot be assigned to yield type '%s'%s",
					types.Print(adjusted), types.Print(declaredWrapped), diag.String()), node)
			}
		}
	}

	w.visit(node.Right)
}

// typingInstance builds Object(name[args...]) from the typing module,
// falling back to Unknown when the typing stub is absent.
func (w *Walker) typingInstance(contextNode *syntax.Node, name string, args []types.Type) types.Type {
	t := w.eval.GetTypingType(contextNode, name)
	if cls, ok := t.(*types.ClassType); ok {
		return types.NewObject(cls.CloneWithTypeArgs(args))
	}
	return types.Unknown()
}

func (w *Walker) visitRaise(node *syntax.Node) {
	baseException := w.eval.builtinClass("BaseException")

	if node.Right != nil {
		raiseType := w.eval.GetType(node.Right, UsageGet, nil, EvalNone)
		types.DoForSubtypes(raiseType, func(sub types.Type) types.Type {
			switch st := sub.(type) {
			case *types.AnyType, *types.UnknownType:
			case *types.ClassType:
				if baseException != nil && !types.DerivesFromClassRecursive(st, baseException) {
					w.eval.AddError(fmt.Sprintf(
						"'%s' does not derive from BaseException", st.Details.Name), node.Right)
				}
			case *types.ObjectType:
				if baseException != nil && !types.DerivesFromClassRecursive(st.Class, baseException) {
					w.eval.AddError(fmt.Sprintf(
						"'%s' does not derive from BaseException", types.Print(sub)), node.Right)
				}
			default:
				w.eval.AddError("Expected exception class or object", node.Right)
			}
			return sub
		})
		w.visit(node.Right)
	}

	if node.Extra != nil {
		fromType := w.eval.GetType(node.Extra, UsageGet, nil, EvalNone)
		types.DoForSubtypes(fromType, func(sub types.Type) types.Type {
			switch st := sub.(type) {
			case *types.AnyType, *types.UnknownType, *types.NoneType, *types.NeverType:
			case *types.ObjectType:
				if baseException != nil && !types.DerivesFromClassRecursive(st.Class, baseException) {
					w.eval.AddError("Expected exception object or None", node.Extra)
				}
			default:
				w.eval.AddError("Expected exception object or None", node.Extra)
			}
			return sub
		})
		w.visit(node.Extra)
	}
}

// validateFunctionReturn applies the return contract after the body walked.
func (w *Walker) validateFunctionReturn(fnNode *syntax.Node, fnType *types.FunctionType) {
	if fnType == nil {
		return
	}
	neverReturns := !IsAfterNodeReachable(fnNode)
	implicitlyReturnsNone := fnNode.Suite != nil && SuiteFallsThrough(fnNode.Suite.Body)

	if fnType.DeclaredReturn != nil {
		declared := fnType.DeclaredReturn
		if types.IsNoReturn(declared) {
			if !neverReturns && implicitlyReturnsNone && !suiteIsEllipsisOnly(fnNode.Suite) {
				w.eval.AddError(
					"Function with declared return type 'NoReturn' cannot return 'None'",
					functionNameNode(fnNode))
			}
			return
		}
		// A generator's implicit None return is absorbed by the iterator
		// wrapping; only the Generator's R position is held to the declared
		// type, at each return statement.
		if fnType.HasFlag(types.FuncGenerator) {
			return
		}
		if !neverReturns && implicitlyReturnsNone && !fnType.HasFlag(types.FuncAbstractMethod) {
			if !types.CanAssign(declared, types.None(), nil, w.file.ImportLookup) {
				target := fnNode.ReturnAnnotation
				if target == nil {
					target = functionNameNode(fnNode)
				}
				w.eval.AddError(fmt.Sprintf(
					"Function with declared type of '%s' must return value", types.Print(declared)),
					target)
			}
		}
		return
	}

	if w.file.IsStubFile {
		return
	}

	var inferred types.Type
	switch {
	case fnType.HasFlag(types.FuncGenerator):
		yielded := make([]types.Type, 0, len(fnNode.YieldNodes))
		for _, y := range fnNode.YieldNodes {
			if !IsNodeReachable(y) {
				continue
			}
			if y.Right == nil {
				yielded = append(yielded, types.None())
				continue
			}
			yielded = append(yielded, w.eval.GetType(y.Right, UsageGet, nil, EvalNone))
		}
		inferred = w.typingInstance(fnNode, "Generator", []types.Type{combineOrUnknown(yielded)})
	case neverReturns && !fnType.HasFlag(types.FuncAbstractMethod):
		inferred = types.Never()
	default:
		var returned []types.Type
		if fnNode.Suite != nil {
			for _, ret := range ReachableNodesOfKind(fnNode.Suite.Body, syntax.KindReturn) {
				if ret.Right == nil {
					returned = append(returned, types.None())
					continue
				}
				returned = append(returned, w.eval.GetType(ret.Right, UsageGet, nil, EvalNone))
			}
		}
		if implicitlyReturnsNone {
			returned = append(returned, types.None())
		}
		inferred = combineOrUnknown(returned)
	}

	w.eval.SetInferredReturnType(fnNode, fnType, inferred)

	if types.ContainsUnknown(inferred) {
		w.eval.AddDiagnostic(diagnostics.RuleUnknownParameterType,
			fmt.Sprintf("Inferred return type of '%s' is unknown", fnType.Name),
			functionNameNode(fnNode))
	}
}

func functionNameNode(fnNode *syntax.Node) *syntax.Node {
	if fnNode.NameNode != nil {
		return fnNode.NameNode
	}
	return fnNode
}

func suiteIsEllipsisOnly(suite *syntax.Node) bool {
	if suite == nil {
		return true
	}
	for _, stmt := range suite.Body {
		switch stmt.Kind {
		case syntax.KindEllipsis, syntax.KindPass, syntax.KindString, syntax.KindStringList:
		default:
			return false
		}
	}
	return true
}
