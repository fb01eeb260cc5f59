// # internal/types/symbols_test.go
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradual/internal/syntax"
)

func TestLastTypedDeclaration(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	intObj := NewObject(intCls)
	strObj := NewObject(strCls)

	sym := &Symbol{ID: 1, Name: "x"}
	sym.AddDeclaration(&Declaration{Category: DeclVariable, DeclaredType: intObj})
	sym.AddDeclaration(&Declaration{Category: DeclVariable})
	sym.AddDeclaration(&Declaration{Category: DeclVariable, DeclaredType: strObj})
	sym.AddDeclaration(&Declaration{Category: DeclVariable})

	typed := sym.LastTypedDeclaration()
	require.NotNil(t, typed)
	assert.True(t, IsTypeSame(typed.DeclaredType, strObj))
	assert.True(t, IsTypeSame(GetEffectiveTypeOfSymbol(sym, nil), strObj))
}

func TestEffectiveTypeUnionOfInferred(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	intObj := NewObject(intCls)
	strObj := NewObject(strCls)

	sym := &Symbol{ID: 2, Name: "y"}
	sym.AddDeclaration(&Declaration{Category: DeclVariable, InferredType: intObj})
	sym.AddDeclaration(&Declaration{Category: DeclVariable, InferredType: strObj})

	effective := GetEffectiveTypeOfSymbol(sym, nil)
	union, ok := effective.(*UnionType)
	require.True(t, ok)
	assert.Len(t, union.Subtypes, 2)

	empty := &Symbol{ID: 3, Name: "z"}
	empty.AddDeclaration(&Declaration{Category: DeclVariable})
	assert.Equal(t, CategoryUnknown, GetEffectiveTypeOfSymbol(empty, nil).Category())
}

func TestResolveAliasDeclaration(t *testing.T) {
	_, intCls, _, _, _ := testClasses()

	target := &Symbol{ID: 10, Name: "thing"}
	target.AddDeclaration(&Declaration{Category: DeclClass, InferredType: intCls})
	fields := NewSymbolTable()
	fields.Set("thing", target)
	mod := &ModuleType{Name: "lib", Fields: fields}

	lookup := func(name string) *ModuleType {
		if name == "lib" {
			return mod
		}
		return nil
	}

	alias := &Declaration{Category: DeclAlias, AliasModule: "lib", AliasName: "thing"}
	resolved := ResolveAliasDeclaration(alias, lookup)
	require.NotNil(t, resolved)
	assert.Equal(t, DeclClass, resolved.Category)

	// Unresolvable aliases return themselves.
	dangling := &Declaration{Category: DeclAlias, AliasModule: "missing", AliasName: "thing"}
	assert.Equal(t, dangling, ResolveAliasDeclaration(dangling, lookup))

	sym := &Symbol{ID: 11, Name: "thing"}
	sym.AddDeclaration(alias)
	effective := GetEffectiveTypeOfSymbol(sym, lookup)
	assert.Equal(t, CategoryClass, effective.Category())
}

func TestGetSymbolFromBaseClasses(t *testing.T) {
	object, _, _, _, _ := testClasses()

	base := NewClass("Base", "m", 0)
	base.Details.Bases = []Type{object}
	method := &Symbol{ID: 20, Name: "run"}
	method.AddDeclaration(&Declaration{Category: DeclMethod})
	base.Details.Fields.Set("run", method)

	mid := NewClass("Mid", "m", 0)
	mid.Details.Bases = []Type{base}
	derived := NewClass("Derived", "m", 0)
	derived.Details.Bases = []Type{mid}

	found, owner := GetSymbolFromBaseClasses(derived, "run")
	require.NotNil(t, found)
	assert.Equal(t, method, found)
	assert.True(t, owner.IsSameClass(base))

	missing, _ := GetSymbolFromBaseClasses(derived, "absent")
	assert.Nil(t, missing)

	// The class's own table is not searched.
	own := &Symbol{ID: 21, Name: "local"}
	derived.Details.Fields.Set("local", own)
	fromBases, _ := GetSymbolFromBaseClasses(derived, "local")
	assert.Nil(t, fromBases)
}

func TestScopeLookupSkipsClassScopes(t *testing.T) {
	moduleNode := &syntax.Node{Kind: syntax.KindModule}
	root := NewRootScope(moduleNode)
	moduleSym := root.AddSymbol("value")

	classScope := root.NewChildScope(ScopeClass, &syntax.Node{Kind: syntax.KindClass})
	classScope.AddSymbol("value")

	fnScope := classScope.NewChildScope(ScopeFunction, &syntax.Node{Kind: syntax.KindFunction})

	// From inside the method, the class body's "value" is invisible; lookup
	// lands on the module symbol.
	sym, owner, ok := fnScope.Lookup("value")
	require.True(t, ok)
	assert.Equal(t, moduleSym, sym)
	assert.Equal(t, root, owner)

	// From the class scope itself the class symbol wins.
	sym, _, ok = classScope.Lookup("value")
	require.True(t, ok)
	assert.NotEqual(t, moduleSym, sym)
}

func TestScopeSymbolIDsAndAccessedSet(t *testing.T) {
	root := NewRootScopeWithBase(&syntax.Node{Kind: syntax.KindModule}, 1000)
	a := root.AddSymbol("a")
	b := root.AddSymbol("b")
	assert.Greater(t, a.ID, 1000)
	assert.NotEqual(t, a.ID, b.ID)
	// Re-adding returns the existing symbol.
	assert.Equal(t, a, root.AddSymbol("a"))

	accessed := NewAccessedSymbolSet()
	assert.False(t, accessed.Has(a.ID))
	accessed.Add(a.ID)
	assert.True(t, accessed.Has(a.ID))
	assert.Equal(t, 1, accessed.Len())
}
