// # internal/checker/reachability.go
package checker

import "gradual/internal/syntax"

// IsNodeReachable walks ancestors until a node carrying flow flags is found
// and reports whether control may arrive there. Nodes the binder never
// flagged are treated as reachable.
func IsNodeReachable(node *syntax.Node) bool {
	for cur := node; cur != nil; cur = cur.Parent {
		if cur.Flow&syntax.FlowHasFlags != 0 {
			return cur.Flow&syntax.FlowUnreachable == 0
		}
	}
	return true
}

// IsAfterNodeReachable reports whether control may fall through past the
// node. For a suite this means its end is reachable; for a function it means
// the function can complete normally at all (an explicit reachable return or
// a fall-through body end).
func IsAfterNodeReachable(node *syntax.Node) bool {
	if node == nil {
		return true
	}
	switch node.Kind {
	case syntax.KindFunction:
		if node.Suite != nil && SuiteFallsThrough(node.Suite.Body) {
			return true
		}
		return hasReachableReturn(node)
	case syntax.KindSuite:
		return SuiteFallsThrough(node.Body)
	}
	if !IsNodeReachable(node) {
		return false
	}
	return !isTerminalStatement(node)
}

// SuiteFallsThrough reports whether execution can reach the end of the given
// statement list.
func SuiteFallsThrough(stmts []*syntax.Node) bool {
	var last *syntax.Node
	for _, stmt := range stmts {
		if stmt.Flow&syntax.FlowHasFlags != 0 && stmt.Flow&syntax.FlowUnreachable != 0 {
			continue
		}
		last = stmt
	}
	if last == nil {
		return len(stmts) == 0
	}
	return !isTerminalStatement(last)
}

// isTerminalStatement reports whether a statement never lets control continue
// to the statement after it.
func isTerminalStatement(stmt *syntax.Node) bool {
	switch stmt.Kind {
	case syntax.KindReturn, syntax.KindRaise, syntax.KindBreak, syntax.KindContinue:
		return true
	case syntax.KindStatementList:
		return !SuiteFallsThrough(stmt.Body)
	case syntax.KindIf:
		if len(stmt.Else) == 0 {
			return false
		}
		return !SuiteFallsThrough(stmt.Body) && !SuiteFallsThrough(stmt.Else)
	case syntax.KindWhile:
		// "while True" without a break never falls through.
		if stmt.Right != nil && stmt.Right.Kind == syntax.KindConstant &&
			stmt.Right.Constant == syntax.ConstTrue && !containsBreak(stmt.Body) {
			return true
		}
		return false
	case syntax.KindTry:
		if SuiteFallsThrough(stmt.Body) || SuiteFallsThrough(stmt.Else) {
			return false
		}
		for _, handler := range stmt.Handlers {
			if SuiteFallsThrough(handler.Body) {
				return false
			}
		}
		if len(stmt.Final) > 0 && !SuiteFallsThrough(stmt.Final) {
			return true
		}
		return len(stmt.Handlers) > 0 || len(stmt.Final) > 0
	case syntax.KindWith:
		return !SuiteFallsThrough(stmt.Body)
	}
	return false
}

func containsBreak(stmts []*syntax.Node) bool {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case syntax.KindBreak:
			return true
		case syntax.KindIf:
			if containsBreak(stmt.Body) || containsBreak(stmt.Else) {
				return true
			}
		case syntax.KindWith, syntax.KindStatementList:
			if containsBreak(stmt.Body) {
				return true
			}
		case syntax.KindTry:
			if containsBreak(stmt.Body) || containsBreak(stmt.Else) || containsBreak(stmt.Final) {
				return true
			}
			for _, h := range stmt.Handlers {
				if containsBreak(h.Body) {
					return true
				}
			}
		}
		// Nested loops consume their own breaks.
	}
	return false
}

func hasReachableReturn(fn *syntax.Node) bool {
	found := false
	var visit func(stmts []*syntax.Node)
	visit = func(stmts []*syntax.Node) {
		for _, stmt := range stmts {
			if found {
				return
			}
			if stmt.Flow&syntax.FlowHasFlags != 0 && stmt.Flow&syntax.FlowUnreachable != 0 {
				continue
			}
			switch stmt.Kind {
			case syntax.KindReturn:
				found = true
			case syntax.KindFunction, syntax.KindClass, syntax.KindLambda:
				// Nested callables own their returns.
			case syntax.KindIf, syntax.KindWhile, syntax.KindFor:
				visit(stmt.Body)
				visit(stmt.Else)
			case syntax.KindWith, syntax.KindStatementList:
				visit(stmt.Body)
			case syntax.KindTry:
				visit(stmt.Body)
				visit(stmt.Else)
				visit(stmt.Final)
				for _, h := range stmt.Handlers {
					visit(h.Body)
				}
			}
		}
	}
	if fn.Suite != nil {
		visit(fn.Suite.Body)
	}
	return found
}

// ReachableNodesOfKind collects reachable descendant statements of the given
// kinds, not descending into nested callables. Used for return/yield
// inference.
func ReachableNodesOfKind(stmts []*syntax.Node, kinds ...syntax.NodeKind) []*syntax.Node {
	var out []*syntax.Node
	var visit func(stmts []*syntax.Node)
	match := func(k syntax.NodeKind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
	visit = func(stmts []*syntax.Node) {
		for _, stmt := range stmts {
			if stmt.Flow&syntax.FlowHasFlags != 0 && stmt.Flow&syntax.FlowUnreachable != 0 {
				continue
			}
			if match(stmt.Kind) {
				out = append(out, stmt)
			}
			switch stmt.Kind {
			case syntax.KindFunction, syntax.KindClass, syntax.KindLambda:
				continue
			case syntax.KindIf, syntax.KindWhile, syntax.KindFor:
				visit(stmt.Body)
				visit(stmt.Else)
			case syntax.KindWith, syntax.KindStatementList:
				visit(stmt.Body)
			case syntax.KindTry:
				visit(stmt.Body)
				visit(stmt.Else)
				visit(stmt.Final)
				for _, h := range stmt.Handlers {
					visit(h.Body)
				}
			}
		}
	}
	visit(stmts)
	return out
}
