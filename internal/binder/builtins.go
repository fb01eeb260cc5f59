// # internal/binder/builtins.go
package binder

import (
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// Synthesized stand-ins for the stub modules a full import resolver would
// locate on disk. Stub location is out of scope; the checker only needs the
// names and class shapes these modules export.

type synthBuilder struct {
	table  types.SymbolTable
	nextID int
}

func newSynthBuilder(idBase int) *synthBuilder {
	return &synthBuilder{table: types.NewSymbolTable(), nextID: idBase}
}

func (s *synthBuilder) add(name string, category types.DeclarationCategory, t types.Type) {
	s.nextID++
	sym := &types.Symbol{ID: s.nextID, Name: name}
	sym.AddDeclaration(&types.Declaration{
		Category:     category,
		InferredType: t,
	})
	s.table.Set(name, sym)
}

func (s *synthBuilder) addClass(cls *types.ClassType) {
	s.add(cls.Details.Name, types.DeclClass, cls)
}

func (s *synthBuilder) addFunction(name string, params []types.FunctionParam, ret types.Type) {
	s.add(name, types.DeclFunction, &types.FunctionType{
		Name:           name,
		Params:         params,
		DeclaredReturn: ret,
	})
}

func simpleParams(names ...string) []types.FunctionParam {
	out := make([]types.FunctionParam, 0, len(names))
	for _, n := range names {
		out = append(out, types.FunctionParam{
			Name:     n,
			Category: syntax.ParamSimple,
			Type:     types.Any(),
		})
	}
	return out
}

// builtinClasses is the shared class universe used by both the builtins and
// typing synthetic modules.
type builtinClasses struct {
	object        *types.ClassType
	typeClass     *types.ClassType
	intClass      *types.ClassType
	floatClass    *types.ClassType
	boolClass     *types.ClassType
	strClass      *types.ClassType
	bytesClass    *types.ClassType
	listClass     *types.ClassType
	dictClass     *types.ClassType
	setClass      *types.ClassType
	frozenset     *types.ClassType
	tupleClass    *types.ClassType
	baseException *types.ClassType
	exception     *types.ClassType
}

func newBuiltinClasses() *builtinClasses {
	c := &builtinClasses{}
	c.object = types.NewClass("object", "builtins", types.ClassBuiltIn)

	derived := func(name string, bases ...*types.ClassType) *types.ClassType {
		cls := types.NewClass(name, "builtins", types.ClassBuiltIn)
		if len(bases) == 0 {
			bases = []*types.ClassType{c.object}
		}
		for _, b := range bases {
			cls.Details.Bases = append(cls.Details.Bases, b)
		}
		return cls
	}

	c.typeClass = derived("type")
	c.intClass = derived("int")
	c.boolClass = derived("bool", c.intClass)
	c.floatClass = derived("float")
	c.strClass = derived("str")
	c.bytesClass = derived("bytes")
	c.listClass = derived("list")
	c.dictClass = derived("dict")
	c.setClass = derived("set")
	c.frozenset = derived("frozenset")
	c.tupleClass = derived("tuple")
	c.baseException = derived("BaseException")
	c.exception = derived("Exception", c.baseException)
	return c
}

// synthesizeBuiltins builds the builtins module: core classes, exception
// hierarchy, and the handful of functions the checker reasons about.
func synthesizeBuiltins(classes *builtinClasses, idBase int) *types.ModuleType {
	b := newSynthBuilder(idBase)

	for _, cls := range []*types.ClassType{
		classes.object, classes.typeClass, classes.intClass, classes.floatClass,
		classes.boolClass, classes.strClass, classes.bytesClass, classes.listClass,
		classes.dictClass, classes.setClass, classes.frozenset, classes.tupleClass,
		classes.baseException, classes.exception,
	} {
		b.addClass(cls)
	}

	excDerived := func(name string) {
		cls := types.NewClass(name, "builtins", types.ClassBuiltIn)
		cls.Details.Bases = []types.Type{classes.exception}
		b.addClass(cls)
	}
	excDerived("ValueError")
	excDerived("TypeError")
	excDerived("KeyError")
	excDerived("RuntimeError")
	excDerived("NotImplementedError")
	excDerived("StopIteration")
	excDerived("AttributeError")

	boolInstance := types.NewObject(classes.boolClass)
	b.addFunction("isinstance", simpleParams("obj", "class_or_tuple"), boolInstance)
	b.addFunction("issubclass", simpleParams("cls", "class_or_tuple"), boolInstance)
	b.addFunction("len", simpleParams("obj"), types.NewObject(classes.intClass))
	b.addFunction("repr", simpleParams("obj"), types.NewObject(classes.strClass))
	b.addFunction("print", []types.FunctionParam{{
		Name: "values", Category: syntax.ParamVarArgList, Type: types.Any(),
	}}, types.None())
	b.addFunction("super", nil, types.Any())
	b.addFunction("getattr", simpleParams("obj", "name"), types.Any())
	b.addFunction("id", simpleParams("obj"), types.NewObject(classes.intClass))

	return &types.ModuleType{Name: "builtins", Path: "<builtins>", Fields: b.table}
}

// synthesizeTyping builds the typing module: special forms plus the iterator
// protocol classes and capitalized aliases of the builtin containers.
func synthesizeTyping(classes *builtinClasses, idBase int) *types.ModuleType {
	b := newSynthBuilder(idBase)

	specialForm := func(name string) {
		b.addClass(types.NewClass(name, "typing", types.ClassSpecialForm))
	}
	specialForm("Any")
	specialForm("NoReturn")
	specialForm("Optional")
	specialForm("Union")
	specialForm("Literal")
	specialForm("Generic")
	specialForm("ClassVar")
	specialForm("Final")

	protocol := func(name string) *types.ClassType {
		cls := types.NewClass(name, "typing", 0)
		cls.Details.Bases = []types.Type{classes.object}
		b.addClass(cls)
		return cls
	}
	iterator := protocol("Iterator")
	protocol("Iterable")
	generator := protocol("Generator")
	generator.Details.Bases = append(generator.Details.Bases, iterator)
	protocol("AsyncIterator")
	protocol("AsyncGenerator")
	protocol("Mapping")
	protocol("Sequence")
	protocol("Callable")

	b.addClass(types.NewClass("TypeVar", "typing", 0))

	typedDict := types.NewClass("TypedDict", "typing", types.ClassTypedDict)
	typedDict.Details.Bases = []types.Type{classes.object}
	b.addClass(typedDict)

	// Capitalized aliases share identity with the builtin containers so that
	// List[int] and list[int] compare equal.
	alias := func(name string, target *types.ClassType) {
		b.add(name, types.DeclClass, target)
	}
	alias("List", classes.listClass)
	alias("Dict", classes.dictClass)
	alias("Set", classes.setClass)
	alias("FrozenSet", classes.frozenset)
	alias("Tuple", classes.tupleClass)
	alias("Type", classes.typeClass)

	return &types.ModuleType{Name: "typing", Path: "<typing>", Fields: b.table}
}

func synthesizeEnum(classes *builtinClasses, idBase int) *types.ModuleType {
	b := newSynthBuilder(idBase)
	enumCls := types.NewClass("Enum", "enum", types.ClassEnum)
	enumCls.Details.Bases = []types.Type{classes.object}
	b.addClass(enumCls)
	intEnum := types.NewClass("IntEnum", "enum", types.ClassEnum)
	intEnum.Details.Bases = []types.Type{enumCls, classes.intClass}
	b.addClass(intEnum)
	return &types.ModuleType{Name: "enum", Path: "<enum>", Fields: b.table}
}

func synthesizeABC(classes *builtinClasses, idBase int) *types.ModuleType {
	b := newSynthBuilder(idBase)
	abcCls := types.NewClass("ABC", "abc", types.ClassAbstract)
	abcCls.Details.Bases = []types.Type{classes.object}
	b.addClass(abcCls)
	b.addClass(types.NewClass("ABCMeta", "abc", 0))
	b.addFunction("abstractmethod", simpleParams("callable"), types.Any())
	return &types.ModuleType{Name: "abc", Path: "<abc>", Fields: b.table}
}

func synthesizeFuture(idBase int) *types.ModuleType {
	b := newSynthBuilder(idBase)
	b.add("annotations", types.DeclVariable, types.Any())
	return &types.ModuleType{Name: "__future__", Path: "<__future__>", Fields: b.table}
}
