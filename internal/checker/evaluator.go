// # internal/checker/evaluator.go
package checker

import (
	"fmt"
	"strings"

	"gradual/internal/syntax"
	"gradual/internal/types"
)

// Usage distinguishes reads from deletes when typing an expression.
type Usage int

const (
	UsageGet Usage = iota
	UsageDel
)

// EvalFlags adjust evaluation behavior.
type EvalFlags uint8

const (
	EvalNone EvalFlags = 0
	// EvalAllowForwardReferences permits quoted annotation strings to resolve
	// against names declared later in the module.
	EvalAllowForwardReferences EvalFlags = 1 << iota
)

type cacheEntry struct {
	typ     types.Type
	version int
}

// Evaluator computes expression types with a per-node monotone cache. A
// re-evaluation that would widen a cached type keeps the cached value; any
// narrowing writes through and signals the change callback. The cache is
// never cleared between passes; termination follows from the finite lattice
// height under monotone narrowing.
type Evaluator struct {
	file     *FileInfo
	scopes   map[int]*types.Scope
	accessed *types.AccessedSymbolSet
	version  int
	cache    map[*syntax.Node]*cacheEntry

	changed      bool
	changeReason string

	// classTypes keeps one stable ClassType per class node so nominal
	// identity survives re-analysis.
	classTypes map[*syntax.Node]*types.ClassType
}

func NewEvaluator(file *FileInfo, scopes map[int]*types.Scope, accessed *types.AccessedSymbolSet) *Evaluator {
	return &Evaluator{
		file:     file,
		scopes:   scopes,
		accessed: accessed,
		cache:    make(map[*syntax.Node]*cacheEntry),
	}
}

// BeginPass advances the pass version and resets the change flag.
func (e *Evaluator) BeginPass(version int) {
	e.version = version
	e.changed = false
	e.changeReason = ""
}

func (e *Evaluator) DidChange() bool       { return e.changed }
func (e *Evaluator) ChangeReason() string  { return e.changeReason }

func (e *Evaluator) markChanged(reason string) {
	if !e.changed {
		e.changeReason = reason
	}
	e.changed = true
}

// CachedType returns the cached type for a node, or nil.
func (e *Evaluator) CachedType(node *syntax.Node) types.Type {
	if entry, ok := e.cache[node]; ok {
		return entry.typ
	}
	return nil
}

// UpdateExpressionTypeForNode writes through to the per-node cache.
func (e *Evaluator) UpdateExpressionTypeForNode(node *syntax.Node, t types.Type) {
	e.writeCache(node, t, "explicit type update")
}

// writeCache applies the monotone cache discipline: equal types refresh the
// version, narrowing replaces and signals change, widening is suppressed.
func (e *Evaluator) writeCache(node *syntax.Node, newType types.Type, reason string) types.Type {
	if newType == nil {
		newType = types.Unknown()
	}
	entry, ok := e.cache[node]
	if !ok {
		e.cache[node] = &cacheEntry{typ: newType, version: e.version}
		return newType
	}
	if types.IsTypeSame(entry.typ, newType) {
		entry.version = e.version
		return entry.typ
	}
	if isMoreInformative(newType, entry.typ) {
		prior := entry.typ
		entry.typ = newType
		entry.version = e.version
		e.markChanged(fmt.Sprintf("%s: %s -> %s", reason, types.Print(prior), types.Print(newType)))
		return newType
	}
	entry.version = e.version
	return entry.typ
}

// isMoreInformative orders the lattice for cache writes: Unknown to concrete
// and union shrinking count as progress, anything else would widen.
func isMoreInformative(newType, oldType types.Type) bool {
	if oldType.Category() == types.CategoryUnknown && newType.Category() != types.CategoryUnknown {
		return true
	}
	if types.ContainsUnknown(oldType) && !types.ContainsUnknown(newType) {
		return true
	}
	oldUnion, oldIsUnion := oldType.(*types.UnionType)
	newUnion, newIsUnion := newType.(*types.UnionType)
	if oldIsUnion {
		if !newIsUnion {
			return true
		}
		return len(newUnion.Subtypes) < len(oldUnion.Subtypes)
	}
	return false
}

// GetType returns the type of an expression node, caching the result.
func (e *Evaluator) GetType(node *syntax.Node, usage Usage, expected types.Type, flags EvalFlags) types.Type {
	if node == nil {
		return types.Unknown()
	}
	if entry, ok := e.cache[node]; ok && entry.version == e.version {
		return entry.typ
	}
	t := e.computeType(node, usage, expected, flags)
	return e.writeCache(node, t, "expression type")
}

func (e *Evaluator) computeType(node *syntax.Node, usage Usage, expected types.Type, flags EvalFlags) types.Type {
	switch node.Kind {
	case syntax.KindName:
		return e.getTypeOfName(node, usage)
	case syntax.KindMemberAccess:
		base := e.GetType(node.Left, UsageGet, nil, flags)
		return e.getTypeOfMember(base, node.Value)
	case syntax.KindIndex:
		return e.getTypeOfIndex(node, flags)
	case syntax.KindCall:
		return e.getTypeOfCall(node, expected, flags)
	case syntax.KindNumber:
		return e.builtinInstance(numberClassName(node.Value))
	case syntax.KindString, syntax.KindStringList:
		return e.builtinInstance("str")
	case syntax.KindFormatString:
		for _, expr := range node.Expressions {
			e.GetType(expr, UsageGet, nil, flags)
		}
		return e.builtinInstance("str")
	case syntax.KindConstant:
		switch node.Constant {
		case syntax.ConstNone:
			return types.None()
		case syntax.ConstTrue, syntax.ConstFalse, syntax.ConstDebug:
			return e.builtinInstance("bool")
		}
	case syntax.KindEllipsis:
		return &types.AnyType{IsEllipsis: true}
	case syntax.KindUnaryOperation:
		operand := e.GetType(node.Right, UsageGet, nil, flags)
		if node.Value == "not" {
			return e.builtinInstance("bool")
		}
		return operand
	case syntax.KindBinaryOperation:
		return e.getTypeOfBinaryOperation(node, flags)
	case syntax.KindTernary:
		e.GetType(node.Right, UsageGet, nil, flags)
		return types.Combine([]types.Type{
			e.GetType(node.Left, UsageGet, nil, flags),
			e.GetType(node.Extra, UsageGet, nil, flags),
		})
	case syntax.KindTuple:
		args := make([]types.Type, 0, len(node.Args))
		for _, el := range node.Args {
			args = append(args, e.GetType(el, UsageGet, nil, flags))
		}
		return e.builtinSpecialized("tuple", args)
	case syntax.KindList:
		elems := make([]types.Type, 0, len(node.Args))
		for _, el := range node.Args {
			elems = append(elems, e.GetType(el, UsageGet, nil, flags))
		}
		return e.builtinSpecialized("list", []types.Type{combineOrUnknown(elems)})
	case syntax.KindSet:
		elems := make([]types.Type, 0, len(node.Args))
		for _, el := range node.Args {
			elems = append(elems, e.GetType(el, UsageGet, nil, flags))
		}
		return e.builtinSpecialized("set", []types.Type{combineOrUnknown(elems)})
	case syntax.KindDict:
		keys := make([]types.Type, 0, len(node.Args))
		values := make([]types.Type, 0, len(node.Args))
		for _, entry := range node.Args {
			keys = append(keys, e.GetType(entry.Left, UsageGet, nil, flags))
			values = append(values, e.GetType(entry.Right, UsageGet, nil, flags))
		}
		return e.builtinSpecialized("dict", []types.Type{combineOrUnknown(keys), combineOrUnknown(values)})
	case syntax.KindListComprehension:
		for _, clause := range node.Body {
			e.GetType(clause, UsageGet, nil, flags)
		}
		elem := e.GetType(node.Left, UsageGet, nil, flags)
		return e.builtinSpecialized("list", []types.Type{elem})
	case syntax.KindLambda:
		return e.getTypeOfLambda(node, flags)
	case syntax.KindYield, syntax.KindYieldFrom:
		if node.Right != nil {
			e.GetType(node.Right, UsageGet, nil, flags)
		}
		return types.Unknown()
	case syntax.KindSlice:
		if node.Left != nil {
			e.GetType(node.Left, UsageGet, nil, flags)
		}
		if node.Right != nil {
			e.GetType(node.Right, UsageGet, nil, flags)
		}
		return types.Unknown()
	case syntax.KindArgument:
		// Keyword argument: the value carries the type.
		return e.GetType(node.Right, UsageGet, nil, flags)
	case syntax.KindError:
		if node.Left != nil {
			e.GetType(node.Left, UsageGet, nil, flags)
		}
		return types.Unknown()
	}
	return types.Unknown()
}

func numberClassName(text string) string {
	if strings.ContainsAny(text, ".eEjJ") && !strings.HasPrefix(text, "0x") {
		return "float"
	}
	return "int"
}

func combineOrUnknown(elems []types.Type) types.Type {
	if len(elems) == 0 {
		return types.Unknown()
	}
	return types.Combine(elems)
}

// scopeFor finds the scope governing a node. Header positions of a class or
// function (decorators, bases, defaults, annotations) evaluate in the parent
// scope; only nodes within the suite see the inner scope.
func (e *Evaluator) scopeFor(node *syntax.Node) *types.Scope {
	for cur := node.Parent; cur != nil; cur = cur.Parent {
		if cur.ScopeID == 0 {
			continue
		}
		scope := e.scopes[cur.ScopeID]
		if scope == nil {
			continue
		}
		switch cur.Kind {
		case syntax.KindModule:
			return scope
		case syntax.KindFunction, syntax.KindClass:
			if cur.Suite != nil && cur.Suite.Contains(node) {
				return scope
			}
			if inParamList(cur, node) {
				return scope
			}
		case syntax.KindLambda, syntax.KindListComprehension:
			return scope
		}
	}
	return nil
}

func inParamList(owner, node *syntax.Node) bool {
	for _, p := range owner.Params {
		if p == node || p.Contains(node) && node.Kind == syntax.KindName && node.Value == p.Value {
			return true
		}
	}
	return false
}

func (e *Evaluator) getTypeOfName(node *syntax.Node, usage Usage) types.Type {
	scope := e.scopeFor(node)
	if scope == nil {
		return types.Unknown()
	}
	sym, _, ok := scope.Lookup(node.Value)
	if !ok {
		sym = e.builtinSymbol(node.Value)
		if sym == nil {
			return types.Unknown()
		}
	}
	// Both reads and deletes resolve to the symbol's effective type; deletion
	// legality is the walker's concern.
	e.accessed.Add(sym.ID)
	return types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
}

// LookupName resolves a name the way expression evaluation does, without
// touching the cache or the accessed set. Used by walker checks.
func (e *Evaluator) LookupName(node *syntax.Node, name string) *types.Symbol {
	scope := e.scopeFor(node)
	if scope == nil {
		return nil
	}
	if sym, _, ok := scope.Lookup(name); ok {
		return sym
	}
	return e.builtinSymbol(name)
}

func (e *Evaluator) builtinSymbol(name string) *types.Symbol {
	if e.file.ImportLookup == nil {
		return nil
	}
	mod := e.file.ImportLookup("builtins")
	if mod == nil {
		return nil
	}
	if sym, ok := mod.Fields.Get(name); ok {
		return sym
	}
	return nil
}

func (e *Evaluator) builtinClass(name string) *types.ClassType {
	sym := e.builtinSymbol(name)
	if sym == nil {
		return nil
	}
	t := types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
	if cls, ok := t.(*types.ClassType); ok {
		return cls
	}
	return nil
}

func (e *Evaluator) builtinInstance(name string) types.Type {
	if cls := e.builtinClass(name); cls != nil {
		return types.NewObject(cls)
	}
	return types.Unknown()
}

func (e *Evaluator) builtinSpecialized(name string, args []types.Type) types.Type {
	if cls := e.builtinClass(name); cls != nil {
		return types.NewObject(cls.CloneWithTypeArgs(args))
	}
	return types.Unknown()
}

func (e *Evaluator) getTypeOfMember(base types.Type, name string) types.Type {
	switch bt := base.(type) {
	case *types.AnyType, *types.UnknownType:
		return base
	case *types.ModuleType:
		if sym, ok := bt.Fields.Get(name); ok {
			e.accessed.Add(sym.ID)
			return types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
		}
		return types.Unknown()
	case *types.ObjectType:
		return e.lookupClassMember(bt.Class, name)
	case *types.ClassType:
		return e.lookupClassMember(bt, name)
	case *types.UnionType:
		return types.DoForSubtypes(base, func(sub types.Type) types.Type {
			return e.getTypeOfMember(sub, name)
		})
	}
	return types.Unknown()
}

func (e *Evaluator) lookupClassMember(class *types.ClassType, name string) types.Type {
	if sym, ok := class.Details.Fields.Get(name); ok {
		e.accessed.Add(sym.ID)
		return types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
	}
	if sym, _ := types.GetSymbolFromBaseClasses(class, name); sym != nil {
		e.accessed.Add(sym.ID)
		return types.GetEffectiveTypeOfSymbol(sym, e.file.ImportLookup)
	}
	return types.Unknown()
}

func (e *Evaluator) getTypeOfIndex(node *syntax.Node, flags EvalFlags) types.Type {
	base := e.GetType(node.Left, UsageGet, nil, flags)
	for _, arg := range node.Args {
		// Literal[...] subscripts are value markers, not expressions to read.
		if !e.IsAnnotationLiteralContext(node) {
			e.GetType(arg, UsageGet, nil, flags)
		}
	}
	switch bt := base.(type) {
	case *types.AnyType, *types.UnknownType:
		return base
	case *types.ClassType:
		// Subscripting a class specializes it: List[int] and friends.
		args := make([]types.Type, 0, len(node.Args))
		for _, arg := range node.Args {
			args = append(args, e.GetTypeOfAnnotation(arg))
		}
		return e.specialFormOrSpecialize(bt, args)
	case *types.ObjectType:
		if tuple := types.GetSpecializedTupleType(base); tuple != nil && len(tuple.TypeArgs) > 0 {
			return types.Combine(tuple.TypeArgs)
		}
		if len(bt.Class.TypeArgs) > 0 {
			switch bt.Class.Details.Name {
			case "list", "set", "frozenset":
				return bt.Class.TypeArgs[0]
			case "dict":
				if len(bt.Class.TypeArgs) == 2 {
					return bt.Class.TypeArgs[1]
				}
			}
		}
		if bt.Class.Details.Name == "str" {
			return base
		}
	}
	return types.Unknown()
}

func (e *Evaluator) getTypeOfCall(node *syntax.Node, expected types.Type, flags EvalFlags) types.Type {
	calleeType := e.GetType(node.Left, UsageGet, nil, flags)
	for _, arg := range node.Args {
		e.GetType(arg, UsageGet, nil, flags)
	}
	return e.applyCall(calleeType, node)
}

func (e *Evaluator) applyCall(calleeType types.Type, node *syntax.Node) types.Type {
	switch ct := calleeType.(type) {
	case *types.AnyType, *types.UnknownType:
		return calleeType
	case *types.FunctionType:
		if ct.HasFlag(types.FuncGenerator) {
			if ct.DeclaredReturn != nil {
				return ct.DeclaredReturn
			}
			if ct.InferredReturn != nil {
				return ct.InferredReturn
			}
			return types.Unknown()
		}
		return types.Specialize(ct.EffectiveReturn(), nil)
	case *types.ClassType:
		if ct.Details.Name == "TypeVar" {
			return e.makeTypeVar(node)
		}
		if ct.HasFlag(types.ClassSpecialForm) {
			return types.Unknown()
		}
		return types.NewObject(ct)
	case *types.ObjectType:
		// Instances are callable through __call__ when the class defines it.
		if member := e.lookupClassMember(ct.Class, "__call__"); member != nil {
			if fn, ok := member.(*types.FunctionType); ok {
				return types.Specialize(fn.EffectiveReturn(), nil)
			}
		}
		return types.Unknown()
	case *types.UnionType:
		return types.DoForSubtypes(calleeType, func(sub types.Type) types.Type {
			return e.applyCall(sub, node)
		})
	}
	return types.Unknown()
}

func (e *Evaluator) makeTypeVar(callNode *syntax.Node) types.Type {
	name := "T"
	if len(callNode.Args) > 0 {
		arg := callNode.Args[0]
		if arg.Kind == syntax.KindString || arg.Kind == syntax.KindStringList {
			name = arg.Value
		}
	}
	tv := &types.TypeVarType{Name: name}
	if len(callNode.Args) < 2 {
		return tv
	}
	for _, arg := range callNode.Args[1:] {
		if arg.Kind == syntax.KindArgument && arg.Value == "bound" {
			tv.Bound = e.GetTypeOfAnnotation(arg.Right)
			continue
		}
		if arg.Kind != syntax.KindArgument {
			tv.Constraints = append(tv.Constraints, e.GetTypeOfAnnotation(arg))
		}
	}
	return tv
}

func (e *Evaluator) getTypeOfLambda(node *syntax.Node, flags EvalFlags) types.Type {
	fn := &types.FunctionType{Name: "<lambda>"}
	for _, p := range node.Params {
		param := types.FunctionParam{
			Name:       p.Value,
			Category:   p.ParamCategory,
			HasDefault: p.DefaultValue != nil,
			Type:       types.Unknown(),
		}
		fn.Params = append(fn.Params, param)
	}
	if node.Right != nil {
		fn.InferredReturn = e.GetType(node.Right, UsageGet, nil, flags)
	}
	return fn
}

func (e *Evaluator) getTypeOfBinaryOperation(node *syntax.Node, flags EvalFlags) types.Type {
	left := e.GetType(node.Left, UsageGet, nil, flags)
	right := e.GetType(node.Right, UsageGet, nil, flags)

	op := node.Value
	if node.Kind == syntax.KindAugmentedAssignment {
		op = strings.TrimSuffix(op, "=")
	}
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "in", "not in", "is", "is not":
		return e.builtinInstance("bool")
	case "and", "or":
		return types.Combine([]types.Type{left, right})
	}

	if types.IsAnyOrUnknown(left) {
		return left
	}
	if types.IsAnyOrUnknown(right) {
		return right
	}

	leftName := instanceClassName(left)
	rightName := instanceClassName(right)

	switch op {
	case "/":
		if isNumericName(leftName) && isNumericName(rightName) {
			return e.builtinInstance("float")
		}
	case "+", "-", "*", "//", "%", "**", "&", "|", "^", "<<", ">>", "@":
		if leftName == "int" && rightName == "int" {
			return e.builtinInstance("int")
		}
		if isNumericName(leftName) && isNumericName(rightName) {
			return e.builtinInstance("float")
		}
		if op == "+" && leftName == "str" && rightName == "str" {
			return e.builtinInstance("str")
		}
		if op == "*" && leftName == "str" && rightName == "int" {
			return e.builtinInstance("str")
		}
		if op == "+" && leftName == "list" && rightName == "list" {
			return left
		}
	}
	return types.Unknown()
}

func instanceClassName(t types.Type) string {
	if obj, ok := t.(*types.ObjectType); ok {
		return obj.Class.Details.Name
	}
	return ""
}

func isNumericName(name string) bool {
	return name == "int" || name == "float" || name == "bool"
}
