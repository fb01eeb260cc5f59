// # internal/checker/targets.go
package checker

import (
	"fmt"

	"gradual/internal/syntax"
	"gradual/internal/types"
)

// ClassTypeResult is the product of GetTypeOfClass.
type ClassTypeResult struct {
	ClassType *types.ClassType
}

// FunctionTypeResult is the product of GetTypeOfFunction.
type FunctionTypeResult struct {
	FunctionType *types.FunctionType
}

// classFor returns the stable ClassType for a class node, creating it on
// first sight. Identity (the shared Details) survives re-analysis so cyclic
// base references and nominal comparison stay coherent across passes.
func (e *Evaluator) classFor(node *syntax.Node) *types.ClassType {
	if e.classTypes == nil {
		e.classTypes = make(map[*syntax.Node]*types.ClassType)
	}
	if cls, ok := e.classTypes[node]; ok {
		return cls
	}
	cls := types.NewClass(node.Value, e.file.FilePath, 0)
	if scope, ok := e.scopes[node.ScopeID]; ok {
		cls.Details.Fields = scope.Symbols
	}
	e.classTypes[node] = cls
	return cls
}

// GetTypeOfClass computes (or refreshes) the class type for a class node:
// bases are re-evaluated each pass so forward references concretize.
func (e *Evaluator) GetTypeOfClass(node *syntax.Node) ClassTypeResult {
	cls := e.classFor(node)

	bases := make([]types.Type, 0, len(node.Args))
	for _, baseArg := range node.Args {
		if baseArg.Kind == syntax.KindArgument {
			// metaclass=... and other keyword class arguments
			if baseArg.Right != nil {
				e.GetType(baseArg.Right, UsageGet, nil, EvalAllowForwardReferences)
			}
			continue
		}
		baseType := e.GetType(baseArg, UsageGet, nil, EvalAllowForwardReferences)
		baseType = types.TransformTypeObjectToClass(baseType)
		if baseCls, ok := baseType.(*types.ClassType); ok {
			bases = append(bases, baseCls)
			if baseCls.HasFlag(types.ClassTypedDict) {
				cls.SetFlag(types.ClassTypedDict)
			}
			if baseCls.HasFlag(types.ClassEnum) {
				cls.SetFlag(types.ClassEnum)
			}
			if baseCls.HasFlag(types.ClassAbstract) && baseCls.Details.Name == "ABC" {
				cls.SetFlag(types.ClassAbstract)
			}
		} else {
			bases = append(bases, baseType)
		}
	}
	cls.Details.Bases = bases

	if decl := e.declarationFor(node); decl != nil {
		decl.InferredType = cls
	}
	e.writeCache(node, cls, "class type")
	return ClassTypeResult{ClassType: cls}
}

// GetTypeOfFunction computes the function type from its declaration:
// annotated parameter and return types, decorator-derived flags, and the
// binder's yield record.
func (e *Evaluator) GetTypeOfFunction(node *syntax.Node) FunctionTypeResult {
	fn := &types.FunctionType{Name: node.Value}

	if node.FuncAttrs&syntax.FuncAttrStaticMethod != 0 {
		fn.Flags |= types.FuncStaticMethod
	}
	if node.FuncAttrs&syntax.FuncAttrClassMethod != 0 {
		fn.Flags |= types.FuncClassMethod
	}
	if node.FuncAttrs&syntax.FuncAttrAbstractMethod != 0 {
		fn.Flags |= types.FuncAbstractMethod
	}
	if len(node.YieldNodes) > 0 {
		fn.Flags |= types.FuncGenerator
	}
	if e.file.IsStubFile {
		fn.Flags |= types.FuncStub
	}
	if node.Value == "__init__" || node.Value == "__new__" {
		fn.Flags |= types.FuncConstructor
	}

	fnScope := e.scopes[node.ScopeID]
	for _, p := range node.Params {
		param := types.FunctionParam{
			Name:       p.Value,
			Category:   p.ParamCategory,
			HasDefault: p.DefaultValue != nil,
		}
		if p.TypeAnnotationNode != nil {
			param.Type = e.GetTypeOfAnnotation(p.TypeAnnotationNode)
		} else {
			param.Type = types.Unknown()
		}
		fn.Params = append(fn.Params, param)

		// The annotation becomes the parameter declaration's declared type so
		// name references inside the body see it.
		if fnScope != nil && p.TypeAnnotationNode != nil {
			if sym, ok := fnScope.LookupLocal(p.Value); ok {
				for _, d := range sym.Declarations {
					if d.Node == p {
						d.DeclaredType = param.Type
					}
				}
			}
		}
	}

	if node.ReturnAnnotation != nil {
		fn.DeclaredReturn = e.GetTypeOfAnnotation(node.ReturnAnnotation)
	}

	if prior, ok := e.CachedType(node).(*types.FunctionType); ok {
		// Inference results survive re-construction across passes.
		if fn.InferredReturn == nil {
			fn.InferredReturn = prior.InferredReturn
		}
	}

	cached := e.writeCache(node, fn, "function type")
	if fnCached, ok := cached.(*types.FunctionType); ok {
		fn = fnCached
	}
	if decl := e.declarationFor(node); decl != nil {
		decl.InferredType = fn
	}
	return FunctionTypeResult{FunctionType: fn}
}

// SetInferredReturnType records an inferred return (or yield-wrapped) type
// on the function's type and its suite node.
func (e *Evaluator) SetInferredReturnType(fnNode *syntax.Node, fn *types.FunctionType, inferred types.Type) {
	if fn.InferredReturn == nil || isMoreInformative(inferred, fn.InferredReturn) {
		if fn.InferredReturn != nil && !types.IsTypeSame(fn.InferredReturn, inferred) {
			e.markChanged(fmt.Sprintf("inferred return of %s: %s -> %s",
				fn.Name, types.Print(fn.InferredReturn), types.Print(inferred)))
		}
		fn.InferredReturn = inferred
	}
	if fnNode.Suite != nil {
		e.writeCache(fnNode.Suite, fn.InferredReturn, "inferred return")
	}
}

// declarationFor finds the declaration introduced by the given node.
func (e *Evaluator) declarationFor(node *syntax.Node) *types.Declaration {
	var name string
	switch node.Kind {
	case syntax.KindClass, syntax.KindFunction:
		name = node.Value
	case syntax.KindName:
		name = node.Value
	default:
		return nil
	}
	scope := e.scopeFor(node)
	if scope == nil {
		return nil
	}
	sym, _, ok := scope.Lookup(name)
	if !ok {
		return nil
	}
	for _, d := range sym.Declarations {
		if d.Node == node {
			return d
		}
	}
	return nil
}

// GetTypeOfAssignmentStatementTarget types the right side and binds the
// target(s) as a side effect.
func (e *Evaluator) GetTypeOfAssignmentStatementTarget(node *syntax.Node) types.Type {
	declTarget := node.Left
	if declTarget != nil && declTarget.Kind == syntax.KindTypeAnnotation {
		// "x: T = v" evaluates the annotation before typing the right side so
		// the expected type can guide inference.
		if declTarget.Left != nil && declTarget.Left.Kind == syntax.KindName {
			annType := e.GetTypeOfAnnotation(declTarget.Right)
			if decl := e.declarationFor(declTarget.Left); decl != nil {
				decl.DeclaredType = annType
			}
		}
		declTarget = declTarget.Left
	}
	declared := e.GetDeclaredTypeForExpression(declTarget)
	srcType := e.GetType(node.Right, UsageGet, declared, EvalNone)
	e.assignToTarget(node.Left, srcType, true)
	return srcType
}

// GetTypeOfAugmentedAssignmentTarget types "x op= y" as the binary result
// and re-binds the target.
func (e *Evaluator) GetTypeOfAugmentedAssignmentTarget(node *syntax.Node) types.Type {
	resultType := e.getTypeOfBinaryOperation(node, EvalNone)
	e.assignToTarget(node.Left, resultType, false)
	return resultType
}

// GetTypeOfForTarget types the iterable and binds the loop target to its
// element type.
func (e *Evaluator) GetTypeOfForTarget(node *syntax.Node) types.Type {
	iterType := e.GetType(node.Right, UsageGet, nil, EvalNone)
	elem := e.iteratedElementType(iterType)
	e.assignToTarget(node.Left, elem, false)
	return elem
}

// GetTypeOfWithItemTarget types the context expression through the context-
// manager protocol and binds the as-target.
func (e *Evaluator) GetTypeOfWithItemTarget(node *syntax.Node) types.Type {
	ctxType := e.GetType(node.Right, UsageGet, nil, EvalNone)
	entered := ctxType
	if obj, ok := ctxType.(*types.ObjectType); ok {
		if member := e.lookupClassMember(obj.Class, "__enter__"); member != nil {
			if fn, ok := member.(*types.FunctionType); ok {
				entered = types.Specialize(fn.EffectiveReturn(), nil)
			}
		}
	}
	if node.Left != nil {
		e.assignToTarget(node.Left, entered, false)
	}
	return entered
}

// GetTypeOfExceptTarget types the exception expression (a class or a tuple
// of classes) and binds the as-target to the caught instance type.
func (e *Evaluator) GetTypeOfExceptTarget(node *syntax.Node) types.Type {
	if node.Right == nil {
		return types.Unknown()
	}
	exprType := e.GetType(node.Right, UsageGet, nil, EvalNone)
	caught := types.DoForSubtypes(exprType, func(sub types.Type) types.Type {
		switch st := sub.(type) {
		case *types.ClassType:
			return types.NewObject(st)
		case *types.ObjectType:
			if tuple := types.GetSpecializedTupleType(sub); tuple != nil {
				members := make([]types.Type, 0, len(tuple.TypeArgs))
				for _, arg := range tuple.TypeArgs {
					if cls, ok := arg.(*types.ClassType); ok {
						members = append(members, types.NewObject(cls))
					} else {
						members = append(members, types.Unknown())
					}
				}
				return types.Combine(members)
			}
		case *types.AnyType, *types.UnknownType:
			return sub
		}
		return types.Unknown()
	})
	if node.Left != nil {
		e.assignToTarget(node.Left, caught, false)
	}
	return caught
}

// GetTypeOfImportAsTarget binds "import a.b as c" (or "import a.b") to the
// resolved module.
func (e *Evaluator) GetTypeOfImportAsTarget(node *syntax.Node) types.Type {
	var modType types.Type = types.Unknown()
	if e.file.ImportLookup != nil && node.Left != nil {
		if mod := e.file.ImportLookup(node.Left.Value); mod != nil {
			modType = mod
		}
	}
	e.bindImportedName(node, modType)
	return modType
}

// GetTypeOfImportFromTarget binds "from m import x [as y]" to the member's
// effective type in the source module.
func (e *Evaluator) GetTypeOfImportFromTarget(node *syntax.Node) types.Type {
	var bound types.Type = types.Unknown()
	parent := node.Parent
	if e.file.ImportLookup != nil && parent != nil && parent.Left != nil {
		if mod := e.file.ImportLookup(parent.Left.Value); mod != nil {
			if sym, ok := mod.Fields.Get(importedName(node)); ok {
				bound = types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
			}
		}
	}
	e.bindImportedName(node, bound)
	return bound
}

func importedName(importAs *syntax.Node) string {
	if importAs.Left != nil {
		return importAs.Left.Value
	}
	return ""
}

func (e *Evaluator) bindImportedName(importAs *syntax.Node, t types.Type) {
	name := importAs.Value
	if name == "" {
		if importAs.Left == nil {
			return
		}
		// "import a.b" binds the top-level name "a".
		name = firstDottedPart(importAs.Left.Value)
	}
	scope := e.scopeFor(importAs)
	if scope == nil {
		return
	}
	sym, _, ok := scope.Lookup(name)
	if !ok {
		return
	}
	for _, d := range sym.Declarations {
		if d.Node == importAs {
			d.InferredType = t
		}
	}
}

func firstDottedPart(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

// assignToTarget writes a source type into a binding target. With
// checkDeclared set, a declared type on the target is enforced.
func (e *Evaluator) assignToTarget(target *syntax.Node, srcType types.Type, checkDeclared bool) {
	if target == nil {
		return
	}
	switch target.Kind {
	case syntax.KindTypeAnnotation:
		annType := e.GetTypeOfAnnotation(target.Right)
		if target.Left != nil && target.Left.Kind == syntax.KindName {
			if decl := e.declarationFor(target.Left); decl != nil {
				decl.DeclaredType = annType
			}
		}
		e.assignToTarget(target.Left, srcType, true)
	case syntax.KindName:
		finalType := e.TransformTypeForPossibleEnumClass(target, srcType)
		if checkDeclared {
			if declared := e.GetDeclaredTypeForExpression(target); declared != nil {
				diag := &types.DiagAddendum{}
				if !types.CanAssign(declared, finalType, diag, e.file.ImportLookup) {
					e.AddError(fmt.Sprintf(
						"Expression of type '%s' cannot be assigned to declared type '%s'%s",
						types.Print(finalType), types.Print(declared), diag.String()), target)
				}
				finalType = declared
			}
		}
		pinned := e.writeCache(target, finalType, "assignment to "+target.Value)
		if decl := e.declarationFor(target); decl != nil {
			decl.InferredType = pinned
		}
	case syntax.KindTuple, syntax.KindList:
		e.destructure(target, srcType)
	case syntax.KindMemberAccess:
		e.GetType(target.Left, UsageGet, nil, EvalNone)
		e.writeCache(target, srcType, "attribute assignment")
	case syntax.KindIndex:
		e.GetType(target.Left, UsageGet, nil, EvalNone)
		for _, arg := range target.Args {
			e.GetType(arg, UsageGet, nil, EvalNone)
		}
	}
}

func (e *Evaluator) destructure(target *syntax.Node, srcType types.Type) {
	elems := target.Args
	if tuple := types.GetSpecializedTupleType(srcType); tuple != nil && len(tuple.TypeArgs) == len(elems) {
		for i, el := range elems {
			e.assignToTarget(el, tuple.TypeArgs[i], false)
		}
		return
	}
	elemType := e.iteratedElementType(srcType)
	for _, el := range elems {
		e.assignToTarget(el, elemType, false)
	}
}

// iteratedElementType applies the iterator protocol to a type.
func (e *Evaluator) iteratedElementType(t types.Type) types.Type {
	switch tt := t.(type) {
	case *types.AnyType, *types.UnknownType:
		return t
	case *types.UnionType:
		return types.DoForSubtypes(t, func(sub types.Type) types.Type {
			return e.iteratedElementType(sub)
		})
	case *types.ObjectType:
		cls := tt.Class
		if len(cls.TypeArgs) > 0 {
			switch cls.Details.Name {
			case "list", "set", "frozenset", "Iterator", "Iterable", "AsyncIterator":
				return cls.TypeArgs[0]
			case "tuple", "Tuple":
				return types.Combine(cls.TypeArgs)
			case "dict", "Dict", "Mapping":
				return cls.TypeArgs[0]
			case "Generator":
				return cls.TypeArgs[0]
			}
		}
		if cls.Details.Name == "str" {
			return t
		}
		if member := e.lookupClassMember(cls, "__iter__"); member != nil {
			if fn, ok := member.(*types.FunctionType); ok {
				iterResult := types.Specialize(fn.EffectiveReturn(), nil)
				if inner, ok := iterResult.(*types.ObjectType); ok && len(inner.Class.TypeArgs) > 0 {
					return inner.Class.TypeArgs[0]
				}
			}
		}
	}
	return types.Unknown()
}
