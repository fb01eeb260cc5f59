// # internal/binder/binder_test.go
package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradual/internal/syntax"
	"gradual/internal/types"
)

func bindSource(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := Bind("test.py", "test", []byte(src), FirstUserModuleIndex)
	require.NoError(t, err)
	return mod
}

func TestBindModuleShape(t *testing.T) {
	mod := bindSource(t, `
import os

def f(x: int) -> str:
    return "a"

class C:
    value = 1
`)
	require.Equal(t, syntax.KindModule, mod.Node.Kind)
	require.Len(t, mod.Node.Body, 3)

	imp := mod.Node.Body[0]
	assert.Equal(t, syntax.KindImport, imp.Kind)
	require.Len(t, imp.Imports, 1)
	assert.Equal(t, "os", imp.Imports[0].Left.Value)

	fn := mod.Node.Body[1]
	require.Equal(t, syntax.KindFunction, fn.Kind)
	assert.Equal(t, "f", fn.Value)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "x", fn.Params[0].Value)
	require.NotNil(t, fn.Params[0].TypeAnnotationNode)
	assert.Equal(t, "int", fn.Params[0].TypeAnnotationNode.Value)
	require.NotNil(t, fn.ReturnAnnotation)
	assert.Equal(t, "str", fn.ReturnAnnotation.Value)
	require.NotNil(t, fn.Suite)
	require.Len(t, fn.Suite.Body, 1)
	assert.Equal(t, syntax.KindReturn, fn.Suite.Body[0].Kind)

	cls := mod.Node.Body[2]
	require.Equal(t, syntax.KindClass, cls.Kind)
	assert.Equal(t, "C", cls.Value)
}

func TestBindScopesAndSymbols(t *testing.T) {
	mod := bindSource(t, `
top = 1

def f(a, b=2):
    local = a
    return local

class C:
    field = 3
`)
	rootScope := mod.Scopes[mod.Node.ScopeID]
	require.NotNil(t, rootScope)

	for _, name := range []string{"top", "f", "C"} {
		_, ok := rootScope.LookupLocal(name)
		assert.True(t, ok, "missing %s in module scope", name)
	}

	fn := mod.Node.Body[1]
	fnScope := mod.Scopes[fn.ScopeID]
	require.NotNil(t, fnScope)
	for _, name := range []string{"a", "b", "local"} {
		_, ok := fnScope.LookupLocal(name)
		assert.True(t, ok, "missing %s in function scope", name)
	}
	assert.Equal(t, types.ScopeFunction, fnScope.Kind)

	cls := mod.Node.Body[2]
	classScope := mod.Scopes[cls.ScopeID]
	require.NotNil(t, classScope)
	fieldSym, ok := classScope.LookupLocal("field")
	require.True(t, ok)
	assert.True(t, fieldSym.IsClassMember)
	assert.Equal(t, types.ScopeClass, classScope.Kind)

	// Module type exposes the root symbol table.
	_, ok = mod.Type.Fields.Get("top")
	assert.True(t, ok)
}

func TestBindDeclarationCategories(t *testing.T) {
	mod := bindSource(t, `
from os import path

x = 1

def f():
    return None

class C:
    def m(self):
        return None
`)
	rootScope := mod.Scopes[mod.Node.ScopeID]

	get := func(name string) *types.Symbol {
		sym, ok := rootScope.LookupLocal(name)
		require.True(t, ok, "missing %s", name)
		return sym
	}

	assert.Equal(t, types.DeclAlias, get("path").PrimaryDeclaration().Category)
	assert.Equal(t, "os", get("path").PrimaryDeclaration().AliasModule)
	assert.Equal(t, "path", get("path").PrimaryDeclaration().AliasName)
	assert.Equal(t, types.DeclVariable, get("x").PrimaryDeclaration().Category)
	assert.Equal(t, types.DeclFunction, get("f").PrimaryDeclaration().Category)
	assert.Equal(t, types.DeclClass, get("C").PrimaryDeclaration().Category)

	cls := mod.Node.Body[3]
	classScope := mod.Scopes[cls.ScopeID]
	m, ok := classScope.LookupLocal("m")
	require.True(t, ok)
	assert.Equal(t, types.DeclMethod, m.PrimaryDeclaration().Category)
}

func TestBindFlowFlags(t *testing.T) {
	mod := bindSource(t, `
def f():
    return 1
    x = 2

y = 3
`)
	fn := mod.Node.Body[0]
	require.Len(t, fn.Suite.Body, 2)

	ret := fn.Suite.Body[0]
	dead := fn.Suite.Body[1]
	assert.Zero(t, ret.Flow&syntax.FlowUnreachable)
	assert.NotZero(t, dead.Flow&syntax.FlowHasFlags)
	assert.NotZero(t, dead.Flow&syntax.FlowUnreachable)

	alive := mod.Node.Body[1]
	assert.Zero(t, alive.Flow&syntax.FlowUnreachable)
}

func TestBindYieldRecording(t *testing.T) {
	mod := bindSource(t, `
def gen():
    yield 1
    yield 2

def plain():
    return 1
`)
	gen := mod.Node.Body[0]
	assert.Len(t, gen.YieldNodes, 2)
	plain := mod.Node.Body[1]
	assert.Empty(t, plain.YieldNodes)
}

func TestBindDecoratorAttrs(t *testing.T) {
	mod := bindSource(t, `
class C:
    @staticmethod
    def s():
        return None

    @classmethod
    def c(cls):
        return None

    @abstractmethod
    def a(self):
        return None
`)
	cls := mod.Node.Body[0]
	require.Len(t, cls.Suite.Body, 3)
	assert.NotZero(t, cls.Suite.Body[0].FuncAttrs&syntax.FuncAttrStaticMethod)
	assert.NotZero(t, cls.Suite.Body[1].FuncAttrs&syntax.FuncAttrClassMethod)
	assert.NotZero(t, cls.Suite.Body[2].FuncAttrs&syntax.FuncAttrAbstractMethod)
}

func TestBindAnnotatedAssignment(t *testing.T) {
	mod := bindSource(t, `
x: int = 5
y: str
`)
	assign := mod.Node.Body[0]
	require.Equal(t, syntax.KindAssignment, assign.Kind)
	require.NotNil(t, assign.Left)
	assert.Equal(t, syntax.KindTypeAnnotation, assign.Left.Kind)
	assert.Equal(t, "x", assign.Left.Left.Value)
	assert.Equal(t, "int", assign.Left.Right.Value)

	bare := mod.Node.Body[1]
	assert.Equal(t, syntax.KindTypeAnnotation, bare.Kind)
	assert.Equal(t, "y", bare.Left.Value)
}

func TestBindParentLinks(t *testing.T) {
	mod := bindSource(t, `
def f():
    return 1
`)
	fn := mod.Node.Body[0]
	ret := fn.Suite.Body[0]
	assert.Equal(t, fn.Suite, ret.Parent)
	assert.Equal(t, fn, fn.Suite.Parent)
	assert.Equal(t, mod.Node, fn.Parent)
	assert.Equal(t, fn, ret.EnclosingOfKind(syntax.KindFunction))
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	builtins := reg.Lookup("builtins")
	require.NotNil(t, builtins)
	intSym, ok := builtins.Fields.Get("int")
	require.True(t, ok)
	intType := types.GetEffectiveTypeOfSymbol(intSym, reg.Lookup)
	assert.Equal(t, types.CategoryClass, intType.Category())

	typing := reg.Lookup("typing")
	require.NotNil(t, typing)
	for _, name := range []string{"Optional", "Iterator", "Generator", "TypedDict", "NoReturn"} {
		_, ok := typing.Fields.Get(name)
		assert.True(t, ok, "typing.%s missing", name)
	}

	assert.Nil(t, reg.Lookup("nonexistent"))

	mod := bindSource(t, "value = 1\n")
	reg.Add(mod)
	assert.NotNil(t, reg.Lookup("test"))
}

func TestBuiltinExceptionHierarchy(t *testing.T) {
	reg := NewRegistry()
	builtins := reg.Lookup("builtins")

	classOf := func(name string) *types.ClassType {
		sym, ok := builtins.Fields.Get(name)
		require.True(t, ok, "missing builtin %s", name)
		cls, ok := types.GetEffectiveTypeOfSymbol(sym, reg.Lookup).(*types.ClassType)
		require.True(t, ok)
		return cls
	}

	assert.True(t, types.DerivesFromClassRecursive(classOf("ValueError"), classOf("BaseException")))
	assert.True(t, types.DerivesFromClassRecursive(classOf("bool"), classOf("int")))
	assert.False(t, types.DerivesFromClassRecursive(classOf("str"), classOf("int")))
}
