// # internal/types/print.go
package types

import (
	"strings"

	"gradual/internal/syntax"
)

// Print renders a type deterministically: identical inputs produce identical
// strings across passes, which the diagnostic-determinism contract relies on.
func Print(t Type) string {
	return printType(t, 0)
}

const maxPrintDepth = 8

func printType(t Type, depth int) string {
	if t == nil {
		return "Unknown"
	}
	if depth > maxPrintDepth {
		return "..."
	}
	switch tt := t.(type) {
	case *UnknownType:
		return "Unknown"
	case *AnyType:
		return "Any"
	case *NoneType:
		return "None"
	case *NeverType:
		return "NoReturn"
	case *ModuleType:
		return "Module(" + tt.Name + ")"
	case *TypeVarType:
		return tt.Name
	case *ClassType:
		return "Type[" + printClass(tt, depth) + "]"
	case *ObjectType:
		return printClass(tt.Class, depth)
	case *UnionType:
		parts := make([]string, 0, len(tt.Subtypes))
		for _, sub := range tt.Subtypes {
			parts = append(parts, printType(sub, depth+1))
		}
		if len(tt.Subtypes) == 2 && IsOptionalUnion(t) {
			for _, sub := range tt.Subtypes {
				if sub.Category() != CategoryNone {
					return "Optional[" + printType(sub, depth+1) + "]"
				}
			}
		}
		return "Union[" + strings.Join(parts, ", ") + "]"
	case *FunctionType:
		parts := make([]string, 0, len(tt.Params))
		for _, p := range tt.Params {
			name := p.Name
			switch p.Category {
			case syntax.ParamVarArgList:
				name = "*" + name
			case syntax.ParamVarArgDict:
				name = "**" + name
			}
			if p.Type != nil {
				parts = append(parts, name+": "+printType(p.Type, depth+1))
			} else {
				parts = append(parts, name)
			}
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + printType(tt.EffectiveReturn(), depth+1)
	}
	return "Unknown"
}

func printClass(c *ClassType, depth int) string {
	if c == nil {
		return "Unknown"
	}
	if len(c.TypeArgs) == 0 {
		return c.Details.Name
	}
	parts := make([]string, 0, len(c.TypeArgs))
	for _, arg := range c.TypeArgs {
		parts = append(parts, printType(arg, depth+1))
	}
	return c.Details.Name + "[" + strings.Join(parts, ", ") + "]"
}
