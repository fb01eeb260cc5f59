// # internal/checker/typetest.go
package checker

import (
	"fmt"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// checkUnnecessaryTypeTest flags isinstance/issubclass calls whose outcome
// is statically known: always true or never true. Tests inside assert
// statements are exempt, since asserting a known fact is a common idiom for
// narrowing and documentation.
func (w *Walker) checkUnnecessaryTypeTest(node *syntax.Node) {
	callee := node.Left
	if callee == nil || callee.Kind != syntax.KindName {
		return
	}
	isInstanceCheck := callee.Value == "isinstance"
	if !isInstanceCheck && callee.Value != "issubclass" {
		return
	}
	if len(node.Args) != 2 {
		return
	}
	for _, arg := range node.Args {
		if arg.Kind == syntax.KindArgument && arg.Value != "" {
			return
		}
	}
	if node.EnclosingOfKind(syntax.KindAssert) != nil {
		return
	}

	arg0Type := w.eval.GetType(positionalArg(node.Args[0]), UsageGet, nil, EvalNone)
	arg0Type = types.DoForSubtypes(arg0Type, func(sub types.Type) types.Type {
		return types.TransformTypeObjectToClass(sub)
	})
	arg1Type := w.eval.GetType(positionalArg(node.Args[1]), UsageGet, nil, EvalNone)

	classList := typeTestClassList(arg1Type)
	if classList == nil {
		return
	}

	// Any or Unknown anywhere aborts silently: the test may do real work.
	aborted := false
	types.DoForSubtypes(arg0Type, func(sub types.Type) types.Type {
		if types.IsAnyOrUnknown(sub) {
			aborted = true
		}
		return sub
	})
	if aborted || types.IsAnyOrUnknown(arg0Type) {
		return
	}

	filtered := types.DoForSubtypes(arg0Type, func(sub types.Type) types.Type {
		var subClass *types.ClassType
		if isInstanceCheck {
			obj, ok := sub.(*types.ObjectType)
			if !ok {
				return nil
			}
			subClass = obj.Class
		} else {
			cls, ok := sub.(*types.ClassType)
			if !ok {
				return nil
			}
			subClass = cls
		}

		kept := make([]types.Type, 0, len(classList))
		for _, filterClass := range classList {
			if types.DerivesFromClassRecursive(subClass, filterClass) {
				// The subtype is at or below the filter: the test keeps it.
				kept = append(kept, wrapTestResult(subClass, isInstanceCheck))
			} else if types.DerivesFromClassRecursive(filterClass, subClass) {
				// The filter narrows the subtype.
				kept = append(kept, wrapTestResult(filterClass, isInstanceCheck))
			}
		}
		if len(kept) == 0 {
			return nil
		}
		return types.Combine(kept)
	})

	testName := "instance"
	if !isInstanceCheck {
		testName = "subclass"
	}
	filterNames := printClassList(classList)

	if filtered.Category() == types.CategoryNever {
		w.eval.AddDiagnostic(diagnostics.RuleUnnecessaryIsInstance,
			fmt.Sprintf("'%s' is never %s of '%s'",
				types.Print(arg0Type), testName, filterNames), node)
		return
	}
	if types.IsTypeSame(filtered, arg0Type) {
		w.eval.AddDiagnostic(diagnostics.RuleUnnecessaryIsInstance,
			fmt.Sprintf("'%s' is always %s of '%s'",
				types.Print(arg0Type), testName, filterNames), node)
	}
}

func positionalArg(arg *syntax.Node) *syntax.Node {
	if arg.Kind == syntax.KindArgument {
		return arg.Right
	}
	return arg
}

// typeTestClassList extracts the filter classes from the second argument: a
// single class, or a tuple of classes.
func typeTestClassList(arg1Type types.Type) []*types.ClassType {
	switch t := arg1Type.(type) {
	case *types.ClassType:
		return []*types.ClassType{t}
	case *types.ObjectType:
		tuple := types.GetSpecializedTupleType(arg1Type)
		if tuple == nil {
			return nil
		}
		out := make([]*types.ClassType, 0, len(tuple.TypeArgs))
		for _, member := range tuple.TypeArgs {
			cls, ok := member.(*types.ClassType)
			if !ok {
				return nil
			}
			out = append(out, cls)
		}
		return out
	}
	return nil
}

func wrapTestResult(cls *types.ClassType, asInstance bool) types.Type {
	if asInstance {
		return types.NewObject(cls)
	}
	return cls
}

func printClassList(classes []*types.ClassType) string {
	out := ""
	for i, c := range classes {
		if i > 0 {
			out += ", "
		}
		out += c.Details.Name
	}
	return out
}
