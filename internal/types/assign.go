// # internal/types/assign.go
package types

import (
	"fmt"
	"strings"

	"gradual/internal/syntax"
)

// DiagAddendum accumulates human-readable reasons for an assignability
// failure. The walker appends its text to the main diagnostic message.
type DiagAddendum struct {
	messages []string
}

func (a *DiagAddendum) Add(format string, args ...any) {
	if a == nil {
		return
	}
	a.messages = append(a.messages, fmt.Sprintf(format, args...))
}

func (a *DiagAddendum) Empty() bool { return a == nil || len(a.messages) == 0 }

func (a *DiagAddendum) String() string {
	if a == nil || len(a.messages) == 0 {
		return ""
	}
	return "\n  " + strings.Join(a.messages, "\n  ")
}

const maxAssignRecursion = 32

// CanAssign reports whether a value of src may be bound to a location of
// declared type dest. On failure a reason is appended to diag. The lookup is
// available for alias resolution on class members and may be nil.
func CanAssign(dest, src Type, diag *DiagAddendum, lookup ImportLookup) bool {
	return canAssign(dest, src, diag, lookup, 0)
}

func canAssign(dest, src Type, diag *DiagAddendum, lookup ImportLookup, depth int) bool {
	if depth > maxAssignRecursion {
		return true
	}
	if dest == nil || src == nil {
		return true
	}

	// Any and Unknown are assignable in both directions.
	if IsAnyOrUnknown(dest) || IsAnyOrUnknown(src) {
		return true
	}

	// Never has no values, so it can be bound anywhere.
	if src.Category() == CategoryNever {
		return true
	}

	// A union source requires every member to fit the destination.
	if srcUnion, ok := src.(*UnionType); ok {
		for _, sub := range srcUnion.Subtypes {
			if !canAssign(dest, sub, diag, lookup, depth+1) {
				diag.Add("member '%s' is incompatible with '%s'", Print(sub), Print(dest))
				return false
			}
		}
		return true
	}

	// A union destination accepts a source that fits any member.
	if destUnion, ok := dest.(*UnionType); ok {
		for _, sub := range destUnion.Subtypes {
			if canAssign(sub, src, nil, lookup, depth+1) {
				return true
			}
		}
		diag.Add("'%s' matches no member of '%s'", Print(src), Print(dest))
		return false
	}

	switch destT := dest.(type) {
	case *NoneType:
		if src.Category() == CategoryNone {
			return true
		}
		diag.Add("'%s' is not 'None'", Print(src))
		return false

	case *ObjectType:
		switch srcT := src.(type) {
		case *NoneType:
			diag.Add("'None' cannot be assigned to '%s'", Print(dest))
			return false
		case *ObjectType:
			if canAssignClass(destT.Class, srcT.Class, diag, lookup, depth) {
				return true
			}
			diag.Add("'%s' is incompatible with '%s'", Print(src), Print(dest))
			return false
		case *ClassType:
			// A class value is an instance of "type" (and of "object").
			if destT.Class.Details.Name == "type" || destT.Class.Details.Name == "object" {
				return true
			}
			diag.Add("'%s' is incompatible with '%s'", Print(src), Print(dest))
			return false
		case *FunctionType:
			if destT.Class.Details.Name == "object" {
				return true
			}
			diag.Add("'%s' is incompatible with '%s'", Print(src), Print(dest))
			return false
		}

	case *ClassType:
		if srcT, ok := src.(*ClassType); ok {
			if DerivesFromClassRecursive(srcT, destT) {
				return true
			}
			diag.Add("'%s' is not derived from '%s'", srcT.Details.Name, destT.Details.Name)
			return false
		}
		diag.Add("'%s' is incompatible with '%s'", Print(src), Print(dest))
		return false

	case *FunctionType:
		if srcT, ok := src.(*FunctionType); ok {
			return canAssignFunction(destT, srcT, diag, lookup, depth, false)
		}
		diag.Add("'%s' is not callable", Print(src))
		return false

	case *TypeVarType:
		// Assignment into an unsubstituted type variable checks its bound.
		if destT.Bound != nil {
			return canAssign(destT.Bound, src, diag, lookup, depth+1)
		}
		return true
	}

	diag.Add("'%s' is incompatible with '%s'", Print(src), Print(dest))
	return false
}

// canAssignClass checks instance assignability: src must derive from dest
// along its base closure, and dest's type arguments (when present) must
// accept src's at the matching base.
func canAssignClass(dest, src *ClassType, diag *DiagAddendum, lookup ImportLookup, depth int) bool {
	if !DerivesFromClassRecursive(src, dest) {
		return false
	}
	if len(dest.TypeArgs) == 0 {
		return true
	}
	srcArgs := typeArgsForBase(src, dest)
	if srcArgs == nil {
		// Source is unspecialized at this base; treat its args as Unknown.
		return true
	}
	if len(srcArgs) != len(dest.TypeArgs) {
		diag.Add("type argument count mismatch for '%s'", dest.Details.Name)
		return false
	}
	for i := range dest.TypeArgs {
		if !canAssign(dest.TypeArgs[i], srcArgs[i], diag, lookup, depth+1) {
			diag.Add("type argument %d is incompatible", i+1)
			return false
		}
	}
	return true
}

// typeArgsForBase walks src's base closure to the occurrence of base and
// returns the type arguments src supplies there.
func typeArgsForBase(src, base *ClassType) []Type {
	if src.IsSameClass(base) {
		return src.TypeArgs
	}
	for _, b := range src.Details.Bases {
		bc, ok := b.(*ClassType)
		if !ok {
			continue
		}
		if args := typeArgsForBase(bc, base); args != nil {
			return args
		}
	}
	return nil
}

// canAssignFunction checks callable compatibility: parameters are
// contravariant, the return type covariant. With matchNames set (override
// checking) positional parameter names must also line up.
func canAssignFunction(dest, src *FunctionType, diag *DiagAddendum, lookup ImportLookup, depth int, matchNames bool) bool {
	srcParams := src.Params
	destParams := dest.Params

	srcHasVarArgs := false
	for _, p := range srcParams {
		if p.Category != syntax.ParamSimple {
			srcHasVarArgs = true
		}
	}

	if !srcHasVarArgs && len(srcParams) < len(destParams) {
		diag.Add("function accepts %d parameters, expected %d", len(srcParams), len(destParams))
		return false
	}

	for i, dp := range destParams {
		if i >= len(srcParams) {
			break
		}
		sp := srcParams[i]
		if sp.Category != syntax.ParamSimple {
			break
		}
		if matchNames && dp.Name != sp.Name && !strings.HasPrefix(sp.Name, "_") {
			diag.Add("parameter %d name mismatch: '%s' versus '%s'", i+1, sp.Name, dp.Name)
			return false
		}
		if dp.Type != nil && sp.Type != nil {
			// Contravariant: the overriding/assigned function must accept at
			// least what the destination declares.
			if !canAssign(sp.Type, dp.Type, nil, lookup, depth+1) {
				diag.Add("parameter %d type '%s' is incompatible with '%s'",
					i+1, Print(sp.Type), Print(dp.Type))
				return false
			}
		}
	}

	// Extra source parameters need defaults unless swallowed by varargs.
	if len(srcParams) > len(destParams) {
		for _, sp := range srcParams[len(destParams):] {
			if sp.Category == syntax.ParamSimple && !sp.HasDefault {
				diag.Add("parameter '%s' has no default value", sp.Name)
				return false
			}
		}
	}

	destReturn := dest.EffectiveReturn()
	srcReturn := src.EffectiveReturn()
	if !canAssign(destReturn, srcReturn, nil, lookup, depth+1) {
		diag.Add("return type '%s' is incompatible with '%s'",
			Print(srcReturn), Print(destReturn))
		return false
	}
	return true
}

// CanOverride is CanAssign on function types with override-specific
// positional parameter-name matching.
func CanOverride(base, derived *FunctionType, diag *DiagAddendum, lookup ImportLookup) bool {
	return canAssignFunction(base, derived, diag, lookup, 0, true)
}
