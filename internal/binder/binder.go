// # internal/binder/binder.go
package binder

import (
	"fmt"
	"strings"
	"time"

	"gradual/internal/shared/observability"
	"gradual/internal/syntax"
	"gradual/internal/types"
)

// Module is binder output: the decorated parse tree plus its scope table and
// module type, ready for the checker.
type Module struct {
	Path   string
	Name   string
	Node   *syntax.Node
	Scopes map[int]*types.Scope
	Type   *types.ModuleType
}

// symbolIDStride separates per-module symbol id ranges so the shared
// accessed-set never aliases symbols from different modules.
const symbolIDStride = 1 << 20

// Bind parses and binds one source file. moduleIndex keeps symbol ids
// disjoint across modules; synthesized modules use reserved low indexes.
func Bind(path, name string, source []byte, moduleIndex int) (*Module, error) {
	start := time.Now()
	tree, err := parseSource(source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	conv := &converter{source: source, path: path}
	moduleNode := conv.convertModule(tree.RootNode())

	b := &binder{
		path:   path,
		scopes: make(map[int]*types.Scope),
	}
	rootScope := types.NewRootScopeWithBase(moduleNode, moduleIndex*symbolIDStride)
	b.bindModule(moduleNode, rootScope)

	observability.ParseDuration.WithLabelValues("bind").Observe(time.Since(start).Seconds())

	return &Module{
		Path:   path,
		Name:   name,
		Node:   moduleNode,
		Scopes: b.scopes,
		Type: &types.ModuleType{
			Name:   name,
			Path:   path,
			Fields: rootScope.Symbols,
		},
	}, nil
}

type binder struct {
	path        string
	scopes      map[int]*types.Scope
	nextScopeID int
}

func (b *binder) registerScope(node *syntax.Node, scope *types.Scope) {
	b.nextScopeID++
	node.ScopeID = b.nextScopeID
	b.scopes[b.nextScopeID] = scope
}

func (b *binder) bindModule(moduleNode *syntax.Node, rootScope *types.Scope) {
	b.registerScope(moduleNode, rootScope)
	linkParents(moduleNode)
	b.bindSuite(moduleNode.Body, rootScope)
	markFlow(moduleNode.Body)
}

// linkParents wires Parent pointers across the whole tree.
func linkParents(node *syntax.Node) {
	for _, child := range nodeChildren(node) {
		child.Parent = node
		linkParents(child)
	}
}

func nodeChildren(n *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	add := func(c *syntax.Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	add(n.Left)
	add(n.Right)
	add(n.Extra)
	add(n.Suite)
	add(n.ReturnAnnotation)
	add(n.AnnotationComment)
	add(n.NameNode)
	add(n.DefaultValue)
	add(n.TypeAnnotationNode)
	for _, c := range n.Body {
		add(c)
	}
	for _, c := range n.Args {
		add(c)
	}
	for _, c := range n.Params {
		add(c)
	}
	for _, c := range n.Items {
		add(c)
	}
	for _, c := range n.Handlers {
		add(c)
	}
	for _, c := range n.Else {
		add(c)
	}
	for _, c := range n.Final {
		add(c)
	}
	for _, c := range n.Decorators {
		add(c)
	}
	for _, c := range n.Expressions {
		add(c)
	}
	for _, c := range n.Imports {
		add(c)
	}
	return out
}

// bindSuite declares names introduced by the statements of one suite into
// the given scope and recurses into nested scopes.
func (b *binder) bindSuite(stmts []*syntax.Node, scope *types.Scope) {
	for _, stmt := range stmts {
		b.bindStatement(stmt, scope)
	}
}

func (b *binder) bindStatement(stmt *syntax.Node, scope *types.Scope) {
	switch stmt.Kind {
	case syntax.KindFunction:
		b.bindFunction(stmt, scope)

	case syntax.KindClass:
		b.bindClass(stmt, scope)

	case syntax.KindAssignment:
		b.declareTargets(stmt.Left, scope, types.DeclVariable)
		b.bindExpression(stmt.Right, scope)

	case syntax.KindAugmentedAssignment:
		b.declareTargets(stmt.Left, scope, types.DeclVariable)
		b.bindExpression(stmt.Right, scope)

	case syntax.KindTypeAnnotation:
		b.declareTargets(stmt.Left, scope, types.DeclVariable)

	case syntax.KindFor:
		b.declareTargets(stmt.Left, scope, types.DeclVariable)
		b.bindExpression(stmt.Right, scope)
		b.bindSuite(stmt.Body, scope)
		b.bindSuite(stmt.Else, scope)

	case syntax.KindWhile, syntax.KindIf:
		b.bindExpression(stmt.Right, scope)
		b.bindSuite(stmt.Body, scope)
		b.bindSuite(stmt.Else, scope)

	case syntax.KindWith:
		for _, item := range stmt.Items {
			b.bindExpression(item.Right, scope)
			if item.Left != nil {
				b.declareTargets(item.Left, scope, types.DeclVariable)
			}
		}
		b.bindSuite(stmt.Body, scope)

	case syntax.KindTry:
		b.bindSuite(stmt.Body, scope)
		for _, handler := range stmt.Handlers {
			b.bindExpression(handler.Right, scope)
			if handler.Left != nil {
				b.declareTargets(handler.Left, scope, types.DeclVariable)
			}
			b.bindSuite(handler.Body, scope)
		}
		b.bindSuite(stmt.Else, scope)
		b.bindSuite(stmt.Final, scope)

	case syntax.KindImport:
		for _, importAs := range stmt.Imports {
			b.declareImport(importAs, scope, "", false)
		}

	case syntax.KindImportFrom:
		module := ""
		if stmt.Left != nil {
			module = stmt.Left.Value
		}
		for _, importAs := range stmt.Imports {
			b.declareImport(importAs, scope, module, true)
		}

	case syntax.KindStatementList:
		b.bindSuite(stmt.Body, scope)

	default:
		b.bindExpression(stmt, scope)
	}
}

// bindExpression handles scope-introducing expressions (lambdas and
// comprehensions) and walrus targets nested inside expressions.
func (b *binder) bindExpression(expr *syntax.Node, scope *types.Scope) {
	if expr == nil {
		return
	}
	switch expr.Kind {
	case syntax.KindLambda:
		lambdaScope := scope.NewChildScope(types.ScopeFunction, expr)
		b.registerScope(expr, lambdaScope)
		for _, p := range expr.Params {
			b.declareParam(p, lambdaScope)
			b.bindExpression(p.DefaultValue, scope)
		}
		b.bindExpression(expr.Right, lambdaScope)
		return
	case syntax.KindListComprehension:
		compScope := scope.NewChildScope(types.ScopeListComprehension, expr)
		b.registerScope(expr, compScope)
		for _, clause := range expr.Body {
			if clause.Kind == syntax.KindFor {
				b.declareTargets(clause.Left, compScope, types.DeclVariable)
				b.bindExpression(clause.Right, scope)
			} else {
				b.bindExpression(clause, compScope)
			}
		}
		b.bindExpression(expr.Left, compScope)
		return
	case syntax.KindAssignment:
		// Walrus or nested assignment expression.
		b.declareTargets(expr.Left, scope, types.DeclVariable)
		b.bindExpression(expr.Right, scope)
		return
	}
	for _, child := range nodeChildren(expr) {
		b.bindExpression(child, scope)
	}
}

func (b *binder) bindFunction(fnNode *syntax.Node, scope *types.Scope) {
	category := types.DeclFunction
	if scope.Kind == types.ScopeClass {
		category = types.DeclMethod
	}
	sym := scope.AddSymbol(fnNode.Value)
	sym.IsClassMember = scope.Kind == types.ScopeClass
	sym.AddDeclaration(&types.Declaration{
		Category: category,
		Node:     fnNode,
		Path:     b.path,
		Range:    nameRange(fnNode),
	})

	fnScope := scope.NewChildScope(types.ScopeFunction, fnNode)
	b.registerScope(fnNode, fnScope)

	for _, p := range fnNode.Params {
		b.declareParam(p, fnScope)
		b.bindExpression(p.DefaultValue, scope)
	}
	for _, dec := range fnNode.Decorators {
		b.bindExpression(dec.Right, scope)
	}

	if fnNode.Suite != nil {
		b.bindSuite(fnNode.Suite.Body, fnScope)
		markFlow(fnNode.Suite.Body)
	}

	fnNode.YieldNodes = collectYields(fnNode.Suite)
}

func (b *binder) bindClass(classNode *syntax.Node, scope *types.Scope) {
	sym := scope.AddSymbol(classNode.Value)
	sym.IsClassMember = scope.Kind == types.ScopeClass
	sym.AddDeclaration(&types.Declaration{
		Category: types.DeclClass,
		Node:     classNode,
		Path:     b.path,
		Range:    nameRange(classNode),
	})

	classScope := scope.NewChildScope(types.ScopeClass, classNode)
	b.registerScope(classNode, classScope)

	for _, base := range classNode.Args {
		b.bindExpression(base, scope)
	}
	for _, dec := range classNode.Decorators {
		b.bindExpression(dec.Right, scope)
	}

	if classNode.Suite != nil {
		b.bindSuite(classNode.Suite.Body, classScope)
		markFlow(classNode.Suite.Body)
	}
}

func (b *binder) declareParam(param *syntax.Node, scope *types.Scope) {
	sym := scope.AddSymbol(param.Value)
	sym.AddDeclaration(&types.Declaration{
		Category: types.DeclParameter,
		Node:     param,
		Path:     b.path,
		Range:    param.Range,
	})
}

func (b *binder) declareTargets(target *syntax.Node, scope *types.Scope, category types.DeclarationCategory) {
	if target == nil {
		return
	}
	switch target.Kind {
	case syntax.KindName:
		sym := scope.AddSymbol(target.Value)
		sym.IsClassMember = scope.Kind == types.ScopeClass
		sym.AddDeclaration(&types.Declaration{
			Category: category,
			Node:     target,
			Path:     b.path,
			Range:    target.Range,
		})
	case syntax.KindTuple, syntax.KindList:
		for _, el := range target.Args {
			b.declareTargets(el, scope, category)
		}
	case syntax.KindTypeAnnotation:
		b.declareTargets(target.Left, scope, category)
	case syntax.KindMemberAccess, syntax.KindIndex:
		b.bindExpression(target.Left, scope)
	}
}

func (b *binder) declareImport(importAs *syntax.Node, scope *types.Scope, fromModule string, isFrom bool) {
	var name, aliasModule, aliasName string
	if isFrom {
		aliasModule = fromModule
		if importAs.Left != nil {
			aliasName = importAs.Left.Value
		}
		name = importAs.Value
		if name == "" {
			name = aliasName
		}
	} else {
		if importAs.Left != nil {
			aliasModule = importAs.Left.Value
		}
		name = importAs.Value
		if name == "" {
			name = firstDottedPart(aliasModule)
		}
	}
	if name == "" {
		return
	}
	sym := scope.AddSymbol(name)
	sym.AddDeclaration(&types.Declaration{
		Category:    types.DeclAlias,
		Node:        importAs,
		Path:        b.path,
		Range:       importAs.Range,
		AliasModule: aliasModule,
		AliasName:   aliasName,
	})
}

func firstDottedPart(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

func nameRange(node *syntax.Node) syntax.TextRange {
	if node.NameNode != nil {
		return node.NameNode.Range
	}
	return node.Range
}

// collectYields gathers yield expressions in a suite without crossing into
// nested callables.
func collectYields(suite *syntax.Node) []*syntax.Node {
	if suite == nil {
		return nil
	}
	var out []*syntax.Node
	var visit func(n *syntax.Node)
	visit = func(n *syntax.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case syntax.KindFunction, syntax.KindLambda, syntax.KindClass:
			return
		case syntax.KindYield, syntax.KindYieldFrom:
			out = append(out, n)
		}
		for _, child := range nodeChildren(n) {
			visit(child)
		}
	}
	for _, stmt := range suite.Body {
		visit(stmt)
	}
	return out
}

// markFlow stamps statement-level reachability: statements after a terminal
// statement in the same suite are unreachable. It recurses into the nested
// suites of if, while, for, with, statement-list and try statements; function
// and class bodies are marked where those definitions are bound.
func markFlow(stmts []*syntax.Node) {
	unreachable := false
	for _, stmt := range stmts {
		stmt.Flow = syntax.FlowHasFlags
		if unreachable {
			stmt.Flow |= syntax.FlowUnreachable
			continue
		}
		switch stmt.Kind {
		case syntax.KindReturn, syntax.KindRaise, syntax.KindBreak, syntax.KindContinue:
			unreachable = true
		case syntax.KindIf:
			markFlow(stmt.Body)
			markFlow(stmt.Else)
			if len(stmt.Else) > 0 && !suiteFalls(stmt.Body) && !suiteFalls(stmt.Else) {
				unreachable = true
			}
		case syntax.KindWhile, syntax.KindFor:
			markFlow(stmt.Body)
			markFlow(stmt.Else)
		case syntax.KindWith, syntax.KindStatementList:
			markFlow(stmt.Body)
		case syntax.KindTry:
			markFlow(stmt.Body)
			markFlow(stmt.Else)
			markFlow(stmt.Final)
			for _, h := range stmt.Handlers {
				markFlow(h.Body)
			}
		}
	}
}

// suiteFalls mirrors the checker's fall-through rule closely enough for
// binding-time marking: a suite falls through unless its last reachable
// statement is terminal.
func suiteFalls(stmts []*syntax.Node) bool {
	var last *syntax.Node
	for _, stmt := range stmts {
		if stmt.Flow&syntax.FlowUnreachable != 0 {
			continue
		}
		last = stmt
	}
	if last == nil {
		return len(stmts) == 0
	}
	switch last.Kind {
	case syntax.KindReturn, syntax.KindRaise, syntax.KindBreak, syntax.KindContinue:
		return false
	case syntax.KindIf:
		return len(last.Else) == 0 || suiteFalls(last.Body) || suiteFalls(last.Else)
	}
	return true
}
