// # internal/checker/private.go
package checker

import (
	"fmt"
	"strings"

	"gradual/internal/diagnostics"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

const (
	privatePrefix   = "__"
	protectedPrefix = "_"
)

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, privatePrefix) && !strings.HasSuffix(name, privatePrefix)
}

func isProtectedName(name string) bool {
	return strings.HasPrefix(name, protectedPrefix) && !strings.HasPrefix(name, privatePrefix)
}

// checkPrivateName runs the private-usage check on a bare name reference.
func (w *Walker) checkPrivateName(node *syntax.Node) {
	w.checkPrivateUsage(node, node.Value, node.Range, func() *types.Symbol {
		return w.eval.LookupName(node, node.Value)
	})
}

// checkPrivateMemberAccess runs the check on the member name of an attribute
// access, resolving the symbol against the base expression's type.
func (w *Walker) checkPrivateMemberAccess(node *syntax.Node) {
	w.checkPrivateUsage(node, node.Value, node.MemberRange, func() *types.Symbol {
		baseType := w.eval.CachedType(node.Left)
		if baseType == nil {
			return nil
		}
		return memberSymbol(baseType, node.Value)
	})
}

func memberSymbol(baseType types.Type, name string) *types.Symbol {
	switch bt := baseType.(type) {
	case *types.ModuleType:
		if sym, ok := bt.Fields.Get(name); ok {
			return sym
		}
	case *types.ObjectType:
		return classMemberSymbol(bt.Class, name)
	case *types.ClassType:
		return classMemberSymbol(bt, name)
	case *types.UnionType:
		for _, sub := range bt.Subtypes {
			if sym := memberSymbol(sub, name); sym != nil {
				return sym
			}
		}
	}
	return nil
}

func classMemberSymbol(class *types.ClassType, name string) *types.Symbol {
	if sym, ok := class.Details.Fields.Get(name); ok {
		return sym
	}
	sym, _ := types.GetSymbolFromBaseClasses(class, name)
	return sym
}

// checkPrivateUsage validates private and protected name access: resolve
// the primary declaration through alias chains, locate its enclosing class
// or module, allow protected access from derived classes, and otherwise
// require the reference to sit textually inside the declaring scope. Stub
// files are never reported.
func (w *Walker) checkPrivateUsage(refNode *syntax.Node, name string, textRange syntax.TextRange, resolve func() *types.Symbol) {
	if w.file.IsStubFile {
		return
	}
	private := isPrivateName(name)
	protected := isProtectedName(name)
	if !private && !protected {
		return
	}

	sym := resolve()
	if sym == nil {
		return
	}
	primary := sym.PrimaryDeclaration()
	if primary == nil {
		return
	}
	decl := types.ResolveAliasDeclaration(primary, w.file.ImportLookup)
	if decl == nil || decl.Node == nil {
		return
	}

	enclosing := declEnclosingClassOrModule(decl.Node)
	if enclosing == nil {
		return
	}
	inClass := enclosing.Kind == syntax.KindClass

	if protected && inClass {
		// Protected access from a class deriving from the declaring class is
		// allowed.
		declClass, _ := w.eval.CachedType(enclosing).(*types.ClassType)
		if declClass != nil {
			for accessClass := refNode.EnclosingOfKind(syntax.KindClass); accessClass != nil; accessClass = accessClass.EnclosingOfKind(syntax.KindClass) {
				accessType, _ := w.eval.CachedType(accessClass).(*types.ClassType)
				if accessType != nil && types.DerivesFromClassRecursive(accessType, declClass) {
					return
				}
			}
		}
	}

	if declSameFile(decl, w.file.FilePath) && enclosing.Contains(refNode) {
		return
	}

	var message string
	switch {
	case inClass && protected:
		message = fmt.Sprintf("'%s' is protected and used outside of a derived class", name)
	case inClass:
		message = fmt.Sprintf("'%s' is private and used outside of the class in which it is declared", name)
	case protected:
		message = fmt.Sprintf("'%s' is protected and used outside of the module in which it is declared", name)
	default:
		message = fmt.Sprintf("'%s' is private and used outside of the module in which it is declared", name)
	}
	w.eval.AddDiagnosticWithRange(diagnostics.RulePrivateUsage, message, textRange)
}

func declEnclosingClassOrModule(node *syntax.Node) *syntax.Node {
	return node.EnclosingOfKind(syntax.KindClass, syntax.KindModule)
}

func declSameFile(decl *types.Declaration, path string) bool {
	return decl.Path == "" || decl.Path == path
}
