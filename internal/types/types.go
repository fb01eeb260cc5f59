// # internal/types/types.go
package types

import (
	"gradual/internal/syntax"
)

// Category tags every type in the lattice.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAny
	CategoryNone
	CategoryNever
	CategoryClass
	CategoryObject
	CategoryFunction
	CategoryUnion
	CategoryModule
	CategoryTypeVar
)

// Type is the lattice element. Concrete types are small structs; class
// identity is nominal (shared *ClassDetails), everything else is structural.
type Type interface {
	Category() Category
}

type UnknownType struct{}

func (*UnknownType) Category() Category { return CategoryUnknown }

type AnyType struct {
	// IsEllipsis marks the Any produced by a bare "..." in a signature.
	IsEllipsis bool
}

func (*AnyType) Category() Category { return CategoryAny }

type NoneType struct{}

func (*NoneType) Category() Category { return CategoryNone }

// NeverType is the empty type; printed as NoReturn.
type NeverType struct{}

func (*NeverType) Category() Category { return CategoryNever }

var (
	unknownSingleton = &UnknownType{}
	anySingleton     = &AnyType{}
	noneSingleton    = &NoneType{}
	neverSingleton   = &NeverType{}
)

func Unknown() Type { return unknownSingleton }
func Any() Type     { return anySingleton }
func None() Type    { return noneSingleton }
func Never() Type   { return neverSingleton }

// ClassFlags carry the class-level properties the checker consults.
type ClassFlags uint16

const (
	ClassAbstract ClassFlags = 1 << iota
	ClassBuiltIn
	ClassTypedDict
	ClassEnum
	ClassSpecialForm
)

// ClassDetails is the identity-bearing part of a class. Specialization clones
// the ClassType wrapper but shares Details, so nominal comparison stays stable
// across type-argument substitution and cyclic base references.
type ClassDetails struct {
	Name       string
	ModuleName string
	Flags      ClassFlags
	Bases      []Type
	Fields     SymbolTable
	TypeParams []*TypeVarType
}

// ClassType is a class as a first-class value.
type ClassType struct {
	Details  *ClassDetails
	TypeArgs []Type // nil when unspecialized
}

func (*ClassType) Category() Category { return CategoryClass }

func NewClass(name, moduleName string, flags ClassFlags) *ClassType {
	return &ClassType{Details: &ClassDetails{
		Name:       name,
		ModuleName: moduleName,
		Flags:      flags,
		Fields:     NewSymbolTable(),
	}}
}

// CloneWithTypeArgs returns a specialization sharing the receiver's Details.
func (c *ClassType) CloneWithTypeArgs(args []Type) *ClassType {
	return &ClassType{Details: c.Details, TypeArgs: args}
}

func (c *ClassType) IsSameClass(other *ClassType) bool {
	return c.Details == other.Details
}

func (c *ClassType) HasFlag(f ClassFlags) bool { return c.Details.Flags&f != 0 }

func (c *ClassType) SetFlag(f ClassFlags) { c.Details.Flags |= f }

// ObjectType is an instance of a class; never equal to the class itself.
type ObjectType struct {
	Class *ClassType
}

func (*ObjectType) Category() Category { return CategoryObject }

func NewObject(class *ClassType) *ObjectType { return &ObjectType{Class: class} }

// FunctionFlags carry declaration-derived callable properties.
type FunctionFlags uint16

const (
	FuncGenerator FunctionFlags = 1 << iota
	FuncStaticMethod
	FuncClassMethod
	FuncAbstractMethod
	FuncConstructor
	FuncStub
)

// FunctionParam is one parameter of a function type.
type FunctionParam struct {
	Name       string
	Category   syntax.ParamCategory
	Type       Type
	HasDefault bool
}

type FunctionType struct {
	Name           string
	Params         []FunctionParam
	DeclaredReturn Type // nil when unannotated
	InferredReturn Type // nil until inference ran
	Flags          FunctionFlags
}

func (*FunctionType) Category() Category { return CategoryFunction }

func (f *FunctionType) HasFlag(fl FunctionFlags) bool { return f.Flags&fl != 0 }

// EffectiveReturn prefers the declared return type over the inferred one.
func (f *FunctionType) EffectiveReturn() Type {
	if f.DeclaredReturn != nil {
		return f.DeclaredReturn
	}
	if f.InferredReturn != nil {
		return f.InferredReturn
	}
	return Unknown()
}

// UnionType is canonical: no nested unions, no structural duplicates, at
// least two members (Combine collapses smaller results).
type UnionType struct {
	Subtypes []Type
}

func (*UnionType) Category() Category { return CategoryUnion }

// ModuleType represents a bound module as a value.
type ModuleType struct {
	Name   string
	Path   string
	Fields SymbolTable
}

func (*ModuleType) Category() Category { return CategoryModule }

// TypeVarType is a type variable with optional constraints or a bound.
type TypeVarType struct {
	Name        string
	Constraints []Type
	Bound       Type
}

func (*TypeVarType) Category() Category { return CategoryTypeVar }

// TypeVarMap substitutes type variables by name during specialization.
type TypeVarMap map[string]Type

// ImportLookup resolves a dotted module path to its bound module, or nil.
type ImportLookup func(moduleName string) *ModuleType

// IsAnyOrUnknown reports Any or Unknown at the top level.
func IsAnyOrUnknown(t Type) bool {
	switch t.Category() {
	case CategoryAny, CategoryUnknown:
		return true
	}
	return false
}

// IsNoReturn reports whether t is the empty type.
func IsNoReturn(t Type) bool { return t.Category() == CategoryNever }

// IsTypeSame is structural equality: nominal on class identity, structural on
// type arguments, unions compared as ordered-insensitive multisets.
func IsTypeSame(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Category() != b.Category() {
		return false
	}
	switch at := a.(type) {
	case *UnknownType, *AnyType, *NoneType, *NeverType:
		return true
	case *ClassType:
		bt := b.(*ClassType)
		if !at.IsSameClass(bt) || len(at.TypeArgs) != len(bt.TypeArgs) {
			return false
		}
		for i := range at.TypeArgs {
			if !IsTypeSame(at.TypeArgs[i], bt.TypeArgs[i]) {
				return false
			}
		}
		return true
	case *ObjectType:
		return IsTypeSame(at.Class, b.(*ObjectType).Class)
	case *FunctionType:
		bt := b.(*FunctionType)
		if len(at.Params) != len(bt.Params) || at.Flags != bt.Flags {
			return false
		}
		for i := range at.Params {
			if at.Params[i].Name != bt.Params[i].Name ||
				at.Params[i].Category != bt.Params[i].Category ||
				!optionalSame(at.Params[i].Type, bt.Params[i].Type) {
				return false
			}
		}
		return optionalSame(at.DeclaredReturn, bt.DeclaredReturn) &&
			optionalSame(at.InferredReturn, bt.InferredReturn)
	case *UnionType:
		bt := b.(*UnionType)
		if len(at.Subtypes) != len(bt.Subtypes) {
			return false
		}
		matched := make([]bool, len(bt.Subtypes))
		for _, sa := range at.Subtypes {
			found := false
			for i, sb := range bt.Subtypes {
				if !matched[i] && IsTypeSame(sa, sb) {
					matched[i] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case *ModuleType:
		return at.Path == b.(*ModuleType).Path && at.Name == b.(*ModuleType).Name
	case *TypeVarType:
		return at == b
	}
	return false
}

func optionalSame(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return IsTypeSame(a, b)
}

// ContainsUnknown reports whether Unknown appears anywhere inside t. Class
// recursion through fields is cut off; base and argument cycles are guarded.
func ContainsUnknown(t Type) bool {
	return containsUnknown(t, make(map[Type]bool))
}

func containsUnknown(t Type, seen map[Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true
	switch tt := t.(type) {
	case *UnknownType:
		return true
	case *ObjectType:
		return containsUnknown(tt.Class, seen)
	case *ClassType:
		for _, arg := range tt.TypeArgs {
			if containsUnknown(arg, seen) {
				return true
			}
		}
	case *UnionType:
		for _, sub := range tt.Subtypes {
			if containsUnknown(sub, seen) {
				return true
			}
		}
	case *FunctionType:
		for _, p := range tt.Params {
			if p.Type != nil && containsUnknown(p.Type, seen) {
				return true
			}
		}
		if tt.DeclaredReturn != nil && containsUnknown(tt.DeclaredReturn, seen) {
			return true
		}
		if tt.DeclaredReturn == nil && tt.InferredReturn != nil {
			return containsUnknown(tt.InferredReturn, seen)
		}
	}
	return false
}

// DerivesFromClassRecursive reports whether base appears in c's transitive
// base closure. Comparison is nominal; a class derives from itself.
func DerivesFromClassRecursive(c, base *ClassType) bool {
	return derivesFrom(c, base, make(map[*ClassDetails]bool))
}

func derivesFrom(c, base *ClassType, seen map[*ClassDetails]bool) bool {
	if c.IsSameClass(base) {
		return true
	}
	if seen[c.Details] {
		return false
	}
	seen[c.Details] = true
	for _, b := range c.Details.Bases {
		bc, ok := b.(*ClassType)
		if !ok {
			continue
		}
		if derivesFrom(bc, base, seen) {
			return true
		}
	}
	return false
}

// GetSpecializedTupleType returns the specialized builtin tuple class inside
// t (through Object and Class forms), or nil.
func GetSpecializedTupleType(t Type) *ClassType {
	var class *ClassType
	switch tt := t.(type) {
	case *ClassType:
		class = tt
	case *ObjectType:
		class = tt.Class
	default:
		return nil
	}
	if class.Details.Name != "tuple" && class.Details.Name != "Tuple" {
		return nil
	}
	if class.TypeArgs == nil {
		return nil
	}
	return class
}

// TransformTypeObjectToClass converts an Object whose class is the builtin
// "type" into the Class it designates. Other types pass through unchanged.
func TransformTypeObjectToClass(t Type) Type {
	obj, ok := t.(*ObjectType)
	if !ok {
		return t
	}
	if obj.Class.Details.Name != "type" {
		return t
	}
	if len(obj.Class.TypeArgs) == 1 {
		if inner, ok := obj.Class.TypeArgs[0].(*ObjectType); ok {
			return inner.Class
		}
		if inner, ok := obj.Class.TypeArgs[0].(*ClassType); ok {
			return inner
		}
	}
	return t
}

// DoForSubtypes maps f over the union members of t (or t itself when not a
// union) and recombines the results. A nil result from f drops the member.
func DoForSubtypes(t Type, f func(sub Type) Type) Type {
	if union, ok := t.(*UnionType); ok {
		results := make([]Type, 0, len(union.Subtypes))
		for _, sub := range union.Subtypes {
			if mapped := f(sub); mapped != nil {
				results = append(results, mapped)
			}
		}
		return Combine(results)
	}
	if mapped := f(t); mapped != nil {
		return mapped
	}
	return Never()
}

// Combine builds the canonical union of the given types: nested unions are
// flattened, structurally-equal members deduplicated, Never dropped (it is
// the union identity), and a singleton collapses to its element. A class C
// and Object(C) remain distinct members; neither subsumes the other here.
func Combine(typesToCombine []Type) Type {
	flat := make([]Type, 0, len(typesToCombine))
	for _, t := range typesToCombine {
		if t == nil {
			continue
		}
		if union, ok := t.(*UnionType); ok {
			flat = append(flat, union.Subtypes...)
			continue
		}
		flat = append(flat, t)
	}

	out := make([]Type, 0, len(flat))
	for _, t := range flat {
		if t.Category() == CategoryNever {
			continue
		}
		dup := false
		for _, existing := range out {
			if IsTypeSame(existing, t) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}

	switch len(out) {
	case 0:
		return Never()
	case 1:
		return out[0]
	}
	return &UnionType{Subtypes: out}
}

// IsOptionalUnion reports whether t is a union containing None.
func IsOptionalUnion(t Type) bool {
	union, ok := t.(*UnionType)
	if !ok {
		return false
	}
	for _, sub := range union.Subtypes {
		if sub.Category() == CategoryNone {
			return true
		}
	}
	return false
}

// Specialize substitutes type variables in t. With a nil map, every type
// variable is replaced by its bound, else its first constraint, else Unknown.
// Idempotent on fully-specialized types.
func Specialize(t Type, typeVars TypeVarMap) Type {
	return specialize(t, typeVars, 0)
}

const maxSpecializeDepth = 16

func specialize(t Type, typeVars TypeVarMap, depth int) Type {
	if t == nil || depth > maxSpecializeDepth {
		return t
	}
	switch tt := t.(type) {
	case *TypeVarType:
		if typeVars != nil {
			if repl, ok := typeVars[tt.Name]; ok {
				return repl
			}
			return tt
		}
		if tt.Bound != nil {
			return tt.Bound
		}
		if len(tt.Constraints) > 0 {
			return tt.Constraints[0]
		}
		return Unknown()
	case *UnionType:
		subs := make([]Type, 0, len(tt.Subtypes))
		for _, sub := range tt.Subtypes {
			subs = append(subs, specialize(sub, typeVars, depth+1))
		}
		return Combine(subs)
	case *ObjectType:
		newClass := specialize(tt.Class, typeVars, depth+1)
		if cls, ok := newClass.(*ClassType); ok && cls != tt.Class {
			return NewObject(cls)
		}
		return tt
	case *ClassType:
		if len(tt.TypeArgs) == 0 && len(tt.Details.TypeParams) == 0 {
			return tt
		}
		args := tt.TypeArgs
		if args == nil {
			// Unspecialized generic: substitute each type parameter.
			args = make([]Type, 0, len(tt.Details.TypeParams))
			for _, tp := range tt.Details.TypeParams {
				args = append(args, specialize(tp, typeVars, depth+1))
			}
			return tt.CloneWithTypeArgs(args)
		}
		changed := false
		newArgs := make([]Type, len(args))
		for i, arg := range args {
			newArgs[i] = specialize(arg, typeVars, depth+1)
			if newArgs[i] != arg {
				changed = true
			}
		}
		if !changed {
			return tt
		}
		return tt.CloneWithTypeArgs(newArgs)
	case *FunctionType:
		changed := false
		newParams := make([]FunctionParam, len(tt.Params))
		for i, p := range tt.Params {
			newParams[i] = p
			if p.Type != nil {
				newParams[i].Type = specialize(p.Type, typeVars, depth+1)
				if newParams[i].Type != p.Type {
					changed = true
				}
			}
		}
		var newDeclared, newInferred Type
		if tt.DeclaredReturn != nil {
			newDeclared = specialize(tt.DeclaredReturn, typeVars, depth+1)
			changed = changed || newDeclared != tt.DeclaredReturn
		}
		if tt.InferredReturn != nil {
			newInferred = specialize(tt.InferredReturn, typeVars, depth+1)
			changed = changed || newInferred != tt.InferredReturn
		}
		if !changed {
			return tt
		}
		return &FunctionType{
			Name:           tt.Name,
			Params:         newParams,
			DeclaredReturn: newDeclared,
			InferredReturn: newInferred,
			Flags:          tt.Flags,
		}
	}
	return t
}
