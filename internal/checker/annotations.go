// # internal/checker/annotations.go
package checker

import (
	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// GetTypeOfAnnotation evaluates a type-annotation expression. Annotations
// denote instance types: the name of a class annotates an instance of it.
func (e *Evaluator) GetTypeOfAnnotation(node *syntax.Node) types.Type {
	if node == nil {
		return types.Unknown()
	}
	t := e.computeAnnotationType(node)
	return e.writeCache(node, t, "annotation type")
}

func (e *Evaluator) computeAnnotationType(node *syntax.Node) types.Type {
	switch node.Kind {
	case syntax.KindName:
		return e.annotationForNamedType(node, node.Value)
	case syntax.KindMemberAccess:
		base := e.GetType(node.Left, UsageGet, nil, EvalAllowForwardReferences)
		if mod, ok := base.(*types.ModuleType); ok {
			if sym, ok := mod.Fields.Get(node.Value); ok {
				e.accessed.Add(sym.ID)
				return e.instanceForm(types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup), node.Value)
			}
		}
		return types.Unknown()
	case syntax.KindConstant:
		if node.Constant == syntax.ConstNone {
			return types.None()
		}
	case syntax.KindEllipsis:
		return &types.AnyType{IsEllipsis: true}
	case syntax.KindString, syntax.KindStringList:
		// Quoted forward reference: the string payload is a name.
		return e.annotationForNamedType(node, node.Value)
	case syntax.KindIndex:
		return e.annotationForSubscript(node)
	case syntax.KindTuple:
		// Bare tuple inside a subscript: Tuple[int, str] arguments arrive
		// here for some grammar shapes.
		args := make([]types.Type, 0, len(node.Args))
		for _, el := range node.Args {
			args = append(args, e.GetTypeOfAnnotation(el))
		}
		return e.builtinSpecialized("tuple", args)
	}
	return types.Unknown()
}

// annotationForNamedType resolves a name in annotation position.
func (e *Evaluator) annotationForNamedType(node *syntax.Node, name string) types.Type {
	if name == "None" {
		return types.None()
	}
	sym := e.LookupName(node, name)
	if sym == nil {
		return types.Unknown()
	}
	e.accessed.Add(sym.ID)
	return e.instanceForm(types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup), name)
}

// instanceForm converts the value a name resolves to into the type that name
// denotes in annotation position.
func (e *Evaluator) instanceForm(t types.Type, name string) types.Type {
	switch tt := t.(type) {
	case *types.ClassType:
		switch tt.Details.Name {
		case "Any":
			return types.Any()
		case "NoReturn":
			return types.Never()
		}
		return types.NewObject(tt)
	case *types.TypeVarType:
		return tt
	case *types.ObjectType:
		// A name bound to an object of class "type" designates its class.
		transformed := types.TransformTypeObjectToClass(t)
		if cls, ok := transformed.(*types.ClassType); ok {
			return types.NewObject(cls)
		}
	case *types.AnyType, *types.UnknownType, *types.NoneType, *types.NeverType:
		return t
	}
	return types.Unknown()
}

func (e *Evaluator) annotationForSubscript(node *syntax.Node) types.Type {
	baseName := annotationBaseName(node.Left)
	args := node.Args

	switch baseName {
	case "Optional":
		if len(args) == 1 {
			return types.Combine([]types.Type{e.GetTypeOfAnnotation(args[0]), types.None()})
		}
	case "Union":
		members := make([]types.Type, 0, len(args))
		for _, arg := range args {
			members = append(members, e.GetTypeOfAnnotation(arg))
		}
		return types.Combine(members)
	case "Literal":
		members := make([]types.Type, 0, len(args))
		for _, arg := range args {
			members = append(members, e.GetType(arg, UsageGet, nil, EvalAllowForwardReferences))
		}
		return types.Combine(members)
	case "Type", "type":
		if len(args) == 1 {
			inner := e.GetTypeOfAnnotation(args[0])
			if obj, ok := inner.(*types.ObjectType); ok {
				return obj.Class
			}
			return inner
		}
	}

	base := e.GetTypeOfAnnotation(node.Left)
	var class *types.ClassType
	switch bt := base.(type) {
	case *types.ObjectType:
		class = bt.Class
	case *types.ClassType:
		class = bt
	default:
		return types.Unknown()
	}
	typeArgs := make([]types.Type, 0, len(args))
	for _, arg := range args {
		typeArgs = append(typeArgs, e.GetTypeOfAnnotation(arg))
	}
	return types.NewObject(class.CloneWithTypeArgs(typeArgs))
}

// specialFormOrSpecialize handles a class subscript in expression position.
func (e *Evaluator) specialFormOrSpecialize(class *types.ClassType, args []types.Type) types.Type {
	return class.CloneWithTypeArgs(args)
}

func annotationBaseName(node *syntax.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind {
	case syntax.KindName:
		return node.Value
	case syntax.KindMemberAccess:
		return node.Value
	}
	return ""
}

// GetTypingType resolves a name from the canonical typing module.
func (e *Evaluator) GetTypingType(contextNode *syntax.Node, name string) types.Type {
	if e.file.ImportLookup == nil {
		return nil
	}
	mod := e.file.ImportLookup("typing")
	if mod == nil {
		return nil
	}
	sym, ok := mod.Fields.Get(name)
	if !ok {
		return nil
	}
	return types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
}

// TransformTypeForPossibleEnumClass converts a member assignment inside an
// enum class into an instance of the enum.
func (e *Evaluator) TransformTypeForPossibleEnumClass(nameNode *syntax.Node, valueType types.Type) types.Type {
	classNode := nameNode.EnclosingOfKind(syntax.KindClass, syntax.KindFunction, syntax.KindLambda)
	if classNode == nil || classNode.Kind != syntax.KindClass {
		return valueType
	}
	classType := e.CachedType(classNode)
	cls, ok := classType.(*types.ClassType)
	if !ok || !cls.HasFlag(types.ClassEnum) {
		return valueType
	}
	return types.NewObject(cls)
}

// IsAnnotationLiteralValue reports whether a string node is a Literal[...]
// value marker rather than a forward-reference annotation.
func (e *Evaluator) IsAnnotationLiteralValue(node *syntax.Node) bool {
	return e.IsAnnotationLiteralContext(node)
}

// IsAnnotationLiteralContext walks parents looking for a Literal subscript.
func (e *Evaluator) IsAnnotationLiteralContext(node *syntax.Node) bool {
	for cur := node; cur != nil; cur = cur.Parent {
		if cur.Kind == syntax.KindIndex && annotationBaseName(cur.Left) == "Literal" {
			return true
		}
	}
	return false
}

// GetDeclaredTypeForExpression returns the declared type of the symbol an
// expression designates, or nil when it has none.
func (e *Evaluator) GetDeclaredTypeForExpression(node *syntax.Node) types.Type {
	switch node.Kind {
	case syntax.KindName:
		sym := e.LookupName(node, node.Value)
		if sym == nil {
			return nil
		}
		if typed := sym.LastTypedDeclaration(); typed != nil && typed.DeclaredType != nil {
			return typed.DeclaredType
		}
		return nil
	case syntax.KindMemberAccess:
		base := e.GetType(node.Left, UsageGet, nil, EvalNone)
		var table types.SymbolTable
		switch bt := base.(type) {
		case *types.ModuleType:
			table = bt.Fields
		case *types.ObjectType:
			table = bt.Class.Details.Fields
		case *types.ClassType:
			table = bt.Details.Fields
		default:
			return nil
		}
		if sym, ok := table.Get(node.Value); ok {
			if typed := sym.LastTypedDeclaration(); typed != nil && typed.DeclaredType != nil {
				return typed.DeclaredType
			}
		}
	}
	return nil
}

// AddError emits an unconditional error diagnostic.
func (e *Evaluator) AddError(message string, node *syntax.Node) {
	e.file.Sink.Add(diagnostics.Diagnostic{
		Severity: diagnostics.SeverityError,
		Rule:     diagnostics.RuleGeneral,
		Message:  message,
		Path:     e.file.FilePath,
		Range:    node.Range,
	})
}

// AddDiagnostic emits a diagnostic at the severity configured for rule; a
// "none" setting drops it.
func (e *Evaluator) AddDiagnostic(rule, message string, node *syntax.Node) {
	e.AddDiagnosticWithRange(rule, message, node.Range)
}

// AddDiagnosticWithRange is AddDiagnostic with an explicit range, used for
// merged dotted-import ranges.
func (e *Evaluator) AddDiagnosticWithRange(rule, message string, textRange syntax.TextRange) {
	level := e.file.Settings.Level(rule)
	if level == diagnostics.SeverityNone {
		return
	}
	e.file.Sink.Add(diagnostics.Diagnostic{
		Severity: level,
		Rule:     rule,
		Message:  message,
		Path:     e.file.FilePath,
		Range:    textRange,
	})
}
