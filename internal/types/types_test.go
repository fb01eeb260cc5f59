// # internal/types/types_test.go
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradual/internal/syntax"
)

func testClasses() (object, intCls, strCls, baseExc, valErr *ClassType) {
	object = NewClass("object", "builtins", ClassBuiltIn)
	derived := func(name string, bases ...*ClassType) *ClassType {
		c := NewClass(name, "builtins", ClassBuiltIn)
		if len(bases) == 0 {
			bases = []*ClassType{object}
		}
		for _, b := range bases {
			c.Details.Bases = append(c.Details.Bases, b)
		}
		return c
	}
	intCls = derived("int")
	strCls = derived("str")
	baseExc = derived("BaseException")
	valErr = derived("ValueError", baseExc)
	return
}

func TestIsTypeSame(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()

	cases := []struct {
		name string
		a, b Type
		want bool
	}{
		{"unknown", Unknown(), Unknown(), true},
		{"any", Any(), Any(), true},
		{"none", None(), None(), true},
		{"class identity", intCls, intCls, true},
		{"class versus other", intCls, strCls, false},
		{"object versus class never equal", NewObject(intCls), intCls, false},
		{"object same class", NewObject(intCls), NewObject(intCls), true},
		{"union order insensitive",
			Combine([]Type{NewObject(intCls), NewObject(strCls)}),
			Combine([]Type{NewObject(strCls), NewObject(intCls)}),
			true},
		{"specialized args", intCls.CloneWithTypeArgs([]Type{None()}),
			intCls.CloneWithTypeArgs([]Type{None()}), true},
		{"specialized arg mismatch", intCls.CloneWithTypeArgs([]Type{None()}),
			intCls.CloneWithTypeArgs([]Type{Any()}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTypeSame(tc.a, tc.b); got != tc.want {
				t.Errorf("IsTypeSame(%s, %s) = %v, want %v", Print(tc.a), Print(tc.b), got, tc.want)
			}
		})
	}
}

func TestCombineCanonicalization(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	intObj := NewObject(intCls)
	strObj := NewObject(strCls)

	// Singleton collapses.
	assert.True(t, IsTypeSame(Combine([]Type{intObj}), intObj))

	// Never is the union identity.
	assert.True(t, IsTypeSame(Combine([]Type{intObj, Never()}), intObj))
	assert.Equal(t, CategoryNever, Combine(nil).Category())

	// Duplicates collapse, nested unions flatten.
	inner := Combine([]Type{intObj, strObj})
	flat := Combine([]Type{inner, intObj})
	union, ok := flat.(*UnionType)
	require.True(t, ok)
	assert.Len(t, union.Subtypes, 2)

	// A class and its instance stay distinct members.
	both := Combine([]Type{intCls, intObj})
	union, ok = both.(*UnionType)
	require.True(t, ok)
	assert.Len(t, union.Subtypes, 2)
}

func TestCanAssignBasics(t *testing.T) {
	object, intCls, strCls, baseExc, valErr := testClasses()
	intObj := NewObject(intCls)
	strObj := NewObject(strCls)

	cases := []struct {
		name      string
		dest, src Type
		want      bool
	}{
		{"reflexive object", intObj, intObj, true},
		{"any to concrete", intObj, Any(), true},
		{"concrete to any", Any(), intObj, true},
		{"unknown both ways", intObj, Unknown(), true},
		{"never to anything", intObj, Never(), true},
		{"none to none", None(), None(), true},
		{"none to object", intObj, None(), false},
		{"none to optional", Combine([]Type{intObj, None()}), None(), true},
		{"derived instance", NewObject(object), intObj, true},
		{"unrelated instance", intObj, strObj, false},
		{"exception hierarchy", NewObject(baseExc), NewObject(valErr), true},
		{"class to class derived", baseExc, valErr, true},
		{"class to class reversed", valErr, baseExc, false},
		{"union source all fit", NewObject(object), Combine([]Type{intObj, strObj}), true},
		{"union source partial", intObj, Combine([]Type{intObj, strObj}), false},
		{"union dest any member", Combine([]Type{intObj, strObj}), strObj, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAssign(tc.dest, tc.src, nil, nil); got != tc.want {
				t.Errorf("CanAssign(%s, %s) = %v, want %v", Print(tc.dest), Print(tc.src), got, tc.want)
			}
		})
	}
}

func TestCanAssignTransitivity(t *testing.T) {
	object, intCls, _, baseExc, valErr := testClasses()
	_ = baseExc

	a := NewObject(object)
	b := NewObject(intCls)
	chain := NewObject(valErr)

	// ValueError -> BaseException -> object along the hierarchy.
	mid := NewObject(baseExc)
	require.True(t, CanAssign(mid, chain, nil, nil))
	require.True(t, CanAssign(a, mid, nil, nil))
	assert.True(t, CanAssign(a, chain, nil, nil))

	_ = b
}

func TestCanAssignFailureAddsReason(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	diag := &DiagAddendum{}
	ok := CanAssign(NewObject(intCls), NewObject(strCls), diag, nil)
	require.False(t, ok)
	assert.False(t, diag.Empty())
	assert.Contains(t, diag.String(), "'str'")
}

func TestFunctionAssignability(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	intObj := NewObject(intCls)
	strObj := NewObject(strCls)

	dest := &FunctionType{
		Name:           "handler",
		Params:         []FunctionParam{{Name: "value", Category: syntax.ParamSimple, Type: intObj}},
		DeclaredReturn: strObj,
	}
	compatible := &FunctionType{
		Name:           "impl",
		Params:         []FunctionParam{{Name: "value", Category: syntax.ParamSimple, Type: Any()}},
		DeclaredReturn: strObj,
	}
	badReturn := &FunctionType{
		Name:           "impl",
		Params:         []FunctionParam{{Name: "value", Category: syntax.ParamSimple, Type: intObj}},
		DeclaredReturn: intObj,
	}

	assert.True(t, CanAssign(dest, compatible, nil, nil))
	assert.False(t, CanAssign(dest, badReturn, nil, nil))
}

func TestCanOverrideParameterNames(t *testing.T) {
	_, intCls, _, _, _ := testClasses()
	intObj := NewObject(intCls)

	base := &FunctionType{
		Name: "update",
		Params: []FunctionParam{
			{Name: "self", Category: syntax.ParamSimple},
			{Name: "value", Category: syntax.ParamSimple, Type: intObj},
		},
		DeclaredReturn: None(),
	}
	renamed := &FunctionType{
		Name: "update",
		Params: []FunctionParam{
			{Name: "self", Category: syntax.ParamSimple},
			{Name: "item", Category: syntax.ParamSimple, Type: intObj},
		},
		DeclaredReturn: None(),
	}
	underscore := &FunctionType{
		Name: "update",
		Params: []FunctionParam{
			{Name: "self", Category: syntax.ParamSimple},
			{Name: "_value", Category: syntax.ParamSimple, Type: intObj},
		},
		DeclaredReturn: None(),
	}

	diag := &DiagAddendum{}
	assert.False(t, CanOverride(base, renamed, diag, nil))
	assert.Contains(t, diag.String(), "name mismatch")
	assert.True(t, CanOverride(base, underscore, nil, nil))
	// Plain assignability ignores names.
	assert.True(t, CanAssign(base, renamed, nil, nil))
}

func TestSpecialize(t *testing.T) {
	_, intCls, _, _, _ := testClasses()
	intObj := NewObject(intCls)

	tv := &TypeVarType{Name: "T", Bound: intObj}
	assert.True(t, IsTypeSame(Specialize(tv, nil), intObj))
	assert.True(t, IsTypeSame(Specialize(tv, TypeVarMap{"T": None()}), None()))

	unconstrained := &TypeVarType{Name: "U"}
	assert.Equal(t, CategoryUnknown, Specialize(unconstrained, nil).Category())

	// Idempotent on fully specialized types.
	listCls := NewClass("list", "builtins", ClassBuiltIn)
	spec := NewObject(listCls.CloneWithTypeArgs([]Type{intObj}))
	assert.True(t, IsTypeSame(Specialize(spec, nil), spec))
}

func TestDerivesAndContainsUnknown(t *testing.T) {
	object, intCls, _, baseExc, valErr := testClasses()

	assert.True(t, DerivesFromClassRecursive(valErr, baseExc))
	assert.True(t, DerivesFromClassRecursive(valErr, object))
	assert.False(t, DerivesFromClassRecursive(baseExc, valErr))
	assert.True(t, DerivesFromClassRecursive(intCls, intCls))

	assert.True(t, ContainsUnknown(Unknown()))
	assert.True(t, ContainsUnknown(Combine([]Type{NewObject(intCls), Unknown()})))
	assert.False(t, ContainsUnknown(NewObject(intCls)))

	listCls := NewClass("list", "builtins", ClassBuiltIn)
	assert.True(t, ContainsUnknown(NewObject(listCls.CloneWithTypeArgs([]Type{Unknown()}))))
}

func TestTupleAndTypeObjectHelpers(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	tupleCls := NewClass("tuple", "builtins", ClassBuiltIn)
	typeCls := NewClass("type", "builtins", ClassBuiltIn)

	spec := tupleCls.CloneWithTypeArgs([]Type{NewObject(intCls), NewObject(strCls)})
	require.NotNil(t, GetSpecializedTupleType(NewObject(spec)))
	assert.Nil(t, GetSpecializedTupleType(NewObject(intCls)))
	assert.Nil(t, GetSpecializedTupleType(NewObject(tupleCls)))

	typeObj := NewObject(typeCls.CloneWithTypeArgs([]Type{NewObject(intCls)}))
	transformed := TransformTypeObjectToClass(typeObj)
	cls, ok := transformed.(*ClassType)
	require.True(t, ok)
	assert.True(t, cls.IsSameClass(intCls))

	// Non-type objects pass through unchanged.
	plain := NewObject(intCls)
	assert.Equal(t, Type(plain), TransformTypeObjectToClass(plain))
}

func TestPrintDeterminism(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	u := Combine([]Type{NewObject(intCls), NewObject(strCls)})

	first := Print(u)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Print(u))
	}
	assert.Equal(t, "Union[int, str]", first)
	assert.Equal(t, "Optional[int]", Print(Combine([]Type{NewObject(intCls), None()})))
	assert.Equal(t, "Type[int]", Print(intCls))
	assert.Equal(t, "int", Print(NewObject(intCls)))
	assert.Equal(t, "NoReturn", Print(Never()))
}

func TestDoForSubtypes(t *testing.T) {
	_, intCls, strCls, _, _ := testClasses()
	u := Combine([]Type{NewObject(intCls), NewObject(strCls)})

	onlyInt := DoForSubtypes(u, func(sub Type) Type {
		if obj, ok := sub.(*ObjectType); ok && obj.Class.IsSameClass(intCls) {
			return sub
		}
		return nil
	})
	assert.True(t, IsTypeSame(onlyInt, NewObject(intCls)))

	none := DoForSubtypes(u, func(Type) Type { return nil })
	assert.Equal(t, CategoryNever, none.Category())
}
