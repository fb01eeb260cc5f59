// # internal/types/scope.go
package types

import "gradual/internal/syntax"

// ScopeKind distinguishes the four scope-owning syntactic forms.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeListComprehension
)

// Scope owns a symbol table and points at its parent; scopes form a tree
// rooted at the module scope.
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	Node    *syntax.Node
	Symbols SymbolTable

	nextSymbolID *int
}

// NewRootScope creates a module scope with its own symbol-id counter.
func NewRootScope(node *syntax.Node) *Scope {
	return NewRootScopeWithBase(node, 0)
}

// NewRootScopeWithBase starts the symbol-id counter at base. Modules
// analyzed together use disjoint bases so their ids never alias in a shared
// accessed-symbol set.
func NewRootScopeWithBase(node *syntax.Node, base int) *Scope {
	counter := base
	return &Scope{
		Kind:         ScopeModule,
		Node:         node,
		Symbols:      NewSymbolTable(),
		nextSymbolID: &counter,
	}
}

// NewChildScope creates a nested scope sharing the root's id counter.
func (s *Scope) NewChildScope(kind ScopeKind, node *syntax.Node) *Scope {
	return &Scope{
		Kind:         kind,
		Parent:       s,
		Node:         node,
		Symbols:      NewSymbolTable(),
		nextSymbolID: s.nextSymbolID,
	}
}

// AddSymbol creates (or returns the existing) symbol for name in this scope.
func (s *Scope) AddSymbol(name string) *Symbol {
	if sym, ok := s.Symbols.Get(name); ok {
		return sym
	}
	*s.nextSymbolID++
	sym := &Symbol{ID: *s.nextSymbolID, Name: name}
	s.Symbols.Set(name, sym)
	return sym
}

// LookupLocal finds name in this scope only.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	return s.Symbols.Get(name)
}

// Lookup walks the scope chain. Class scopes are skipped when the lookup
// originates below them, matching the language's name-resolution rule that
// class bodies do not form a closure for nested functions.
func (s *Scope) Lookup(name string) (*Symbol, *Scope, bool) {
	first := true
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == ScopeClass && !first {
			continue
		}
		first = false
		if sym, ok := cur.Symbols.Get(name); ok {
			return sym, cur, true
		}
	}
	return nil, nil, false
}

// EnclosingClassOrModule returns the nearest class scope, else the module
// scope at the root.
func (s *Scope) EnclosingClassOrModule() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == ScopeClass || cur.Kind == ScopeModule {
			return cur
		}
	}
	return nil
}
