// # internal/types/symbols.go
package types

import (
	"gradual/internal/shared/util"
	"gradual/internal/syntax"
)

// DeclarationCategory tags how a name was introduced.
type DeclarationCategory int

const (
	DeclVariable DeclarationCategory = iota
	DeclParameter
	DeclFunction
	DeclMethod
	DeclClass
	DeclAlias
	DeclModule
)

// Declaration is a specific introduction of a name: a particular assignment,
// def, class, parameter, or import alias. It carries the node that introduced
// it so diagnostics can point at the right range.
type Declaration struct {
	Category DeclarationCategory
	Node     *syntax.Node
	Path     string
	Range    syntax.TextRange

	// DeclaredType is non-nil when the declaration carried an explicit
	// annotation. InferredType is written by the evaluator and only narrows.
	DeclaredType Type
	InferredType Type

	// Alias payload: the module the alias imports from and, for from-import
	// forms, the symbol name inside it. ResolvedTarget caches the followed
	// declaration once alias resolution succeeded.
	AliasModule    string
	AliasName      string
	ResolvedTarget *Declaration
}

// HasTypeAnnotation reports whether the declaration carried an explicit type.
func (d *Declaration) HasTypeAnnotation() bool { return d.DeclaredType != nil }

// Symbol is a named entity with a stable id and the ordered list of its
// declarations.
type Symbol struct {
	ID                      int
	Name                    string
	Declarations            []*Declaration
	IgnoredForProtocolMatch bool
	IsClassMember           bool
}

func (s *Symbol) AddDeclaration(d *Declaration) {
	s.Declarations = append(s.Declarations, d)
}

// LastTypedDeclaration returns the most recent declaration carrying an
// explicit type annotation, or nil. Function, method and class declarations
// count as typed: their type is their own shape.
func (s *Symbol) LastTypedDeclaration() *Declaration {
	for i := len(s.Declarations) - 1; i >= 0; i-- {
		d := s.Declarations[i]
		switch d.Category {
		case DeclFunction, DeclMethod, DeclClass:
			return d
		default:
			if d.HasTypeAnnotation() {
				return d
			}
		}
	}
	return nil
}

// PrimaryDeclaration is the first declaration; callers use it to locate the
// defining scope of the symbol.
func (s *Symbol) PrimaryDeclaration() *Declaration {
	if len(s.Declarations) == 0 {
		return nil
	}
	return s.Declarations[0]
}

// HasOnlyAliasDeclarations reports whether every declaration is an import.
func (s *Symbol) HasOnlyAliasDeclarations() bool {
	if len(s.Declarations) == 0 {
		return false
	}
	for _, d := range s.Declarations {
		if d.Category != DeclAlias {
			return false
		}
	}
	return true
}

// GetEffectiveTypeOfSymbol is the type external consumers see: the declared
// type of the last typed declaration, else the union of the inferred types of
// the untyped declarations, else Unknown.
func GetEffectiveTypeOfSymbol(s *Symbol, lookup ImportLookup) Type {
	if typed := s.LastTypedDeclaration(); typed != nil {
		switch typed.Category {
		case DeclFunction, DeclMethod, DeclClass:
			if typed.InferredType != nil {
				return typed.InferredType
			}
			if typed.DeclaredType != nil {
				return typed.DeclaredType
			}
			return Unknown()
		default:
			return typed.DeclaredType
		}
	}
	inferred := make([]Type, 0, len(s.Declarations))
	for _, d := range s.Declarations {
		if d.Category == DeclAlias {
			if resolved := ResolveAliasDeclaration(d, lookup); resolved != nil && resolved != d {
				if resolved.DeclaredType != nil {
					inferred = append(inferred, resolved.DeclaredType)
					continue
				}
				if resolved.InferredType != nil {
					inferred = append(inferred, resolved.InferredType)
					continue
				}
			}
			// Whole-module imports resolve no further; the binding itself
			// carries the module type.
			if d.InferredType != nil {
				inferred = append(inferred, d.InferredType)
			}
			continue
		}
		if d.InferredType != nil {
			inferred = append(inferred, d.InferredType)
		}
	}
	if len(inferred) == 0 {
		return Unknown()
	}
	return Combine(inferred)
}

// ResolveAliasDeclaration follows an import alias to its ultimate definition.
// Returns the input declaration when it is not an alias or cannot resolve.
func ResolveAliasDeclaration(d *Declaration, lookup ImportLookup) *Declaration {
	seen := make(map[*Declaration]bool)
	cur := d
	for cur.Category == DeclAlias {
		if seen[cur] {
			return cur
		}
		seen[cur] = true
		if cur.ResolvedTarget != nil {
			cur = cur.ResolvedTarget
			continue
		}
		if lookup == nil {
			return cur
		}
		mod := lookup(cur.AliasModule)
		if mod == nil {
			return cur
		}
		if cur.AliasName == "" {
			return cur
		}
		target, ok := mod.Fields.Get(cur.AliasName)
		if !ok || len(target.Declarations) == 0 {
			return cur
		}
		cur.ResolvedTarget = target.Declarations[len(target.Declarations)-1]
		cur = cur.ResolvedTarget
	}
	return cur
}

// SymbolTable maps names to symbols within one scope or class body.
type SymbolTable struct {
	symbols map[string]*Symbol
}

func NewSymbolTable() SymbolTable {
	return SymbolTable{symbols: make(map[string]*Symbol)}
}

func (t SymbolTable) Get(name string) (*Symbol, bool) {
	s, ok := t.symbols[name]
	return s, ok
}

func (t SymbolTable) Set(name string, s *Symbol) { t.symbols[name] = s }

func (t SymbolTable) Len() int { return len(t.symbols) }

// SortedNames returns the table's names in deterministic order.
func (t SymbolTable) SortedNames() []string {
	return util.SortedStringKeys(t.symbols)
}

// GetSymbolFromBaseClasses searches the base-class closure of classType for
// name, breadth-first along declaration order, and returns both the symbol
// and the class on which it was found.
func GetSymbolFromBaseClasses(classType *ClassType, name string) (*Symbol, *ClassType) {
	queue := make([]*ClassType, 0, len(classType.Details.Bases))
	seen := map[*ClassDetails]bool{classType.Details: true}
	for _, b := range classType.Details.Bases {
		if bc, ok := b.(*ClassType); ok {
			queue = append(queue, bc)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur.Details] {
			continue
		}
		seen[cur.Details] = true
		if sym, ok := cur.Details.Fields.Get(name); ok {
			return sym, cur
		}
		for _, b := range cur.Details.Bases {
			if bc, ok := b.(*ClassType); ok {
				queue = append(queue, bc)
			}
		}
	}
	return nil, nil
}

// AccessedSymbolSet records symbol ids touched during this and prior passes.
// It only grows; the unused-symbol sweep consults it after convergence.
type AccessedSymbolSet struct {
	ids map[int]bool
}

func NewAccessedSymbolSet() *AccessedSymbolSet {
	return &AccessedSymbolSet{ids: make(map[int]bool)}
}

func (a *AccessedSymbolSet) Add(id int)      { a.ids[id] = true }
func (a *AccessedSymbolSet) Has(id int) bool { return a.ids[id] }
func (a *AccessedSymbolSet) Len() int        { return len(a.ids) }
