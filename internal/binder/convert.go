// # internal/binder/convert.go
package binder

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"gradual/internal/syntax"
)

// converter translates the tree-sitter CST into the checker's tagged nodes.
type converter struct {
	source []byte
	path   string
}

func (c *converter) text(node *sitter.Node) string {
	return string(c.source[node.StartByte():node.EndByte()])
}

func (c *converter) rangeOf(node *sitter.Node) syntax.TextRange {
	return syntax.TextRange{
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (c *converter) newNode(kind syntax.NodeKind, src *sitter.Node) *syntax.Node {
	return &syntax.Node{Kind: kind, Range: c.rangeOf(src)}
}

func (c *converter) convertModule(root *sitter.Node) *syntax.Node {
	module := c.newNode(syntax.KindModule, root)
	module.Body = c.convertStatements(root)
	return module
}

func (c *converter) convertStatements(parent *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if stmt := c.convertStatement(child); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) convertStatement(node *sitter.Node) *syntax.Node {
	switch node.Kind() {
	case "expression_statement":
		// An expression statement wraps assignments and bare expressions.
		var parts []*syntax.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "," {
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				parts = append(parts, expr)
			}
		}
		if len(parts) == 1 {
			return parts[0]
		}
		if len(parts) == 0 {
			return nil
		}
		list := c.newNode(syntax.KindStatementList, node)
		list.Body = parts
		return list

	case "function_definition":
		return c.convertFunction(node, nil)

	case "class_definition":
		return c.convertClass(node, nil)

	case "decorated_definition":
		var decorators []*syntax.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "decorator":
				dec := c.newNode(syntax.KindDecorator, child)
				for j := uint(0); j < child.ChildCount(); j++ {
					sub := child.Child(j)
					if sub.Kind() != "@" {
						dec.Right = c.convertExpression(sub)
						break
					}
				}
				decorators = append(decorators, dec)
			case "function_definition":
				return c.convertFunction(child, decorators)
			case "class_definition":
				return c.convertClass(child, decorators)
			}
		}
		return nil

	case "return_statement":
		ret := c.newNode(syntax.KindReturn, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "return" {
				ret.Right = c.convertExpression(child)
				break
			}
		}
		return ret

	case "if_statement":
		return c.convertIf(node)

	case "while_statement":
		stmt := c.newNode(syntax.KindWhile, node)
		stmt.Right = c.convertExpression(node.ChildByFieldName("condition"))
		stmt.Body = c.blockStatements(node.ChildByFieldName("body"))
		stmt.Else = c.elseClause(node)
		return stmt

	case "for_statement":
		stmt := c.newNode(syntax.KindFor, node)
		stmt.Left = c.convertExpression(node.ChildByFieldName("left"))
		stmt.Right = c.convertExpression(node.ChildByFieldName("right"))
		stmt.Body = c.blockStatements(node.ChildByFieldName("body"))
		stmt.Else = c.elseClause(node)
		return stmt

	case "with_statement":
		stmt := c.newNode(syntax.KindWith, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "with_clause" {
				for j := uint(0); j < child.ChildCount(); j++ {
					if child.Child(j).Kind() == "with_item" {
						stmt.Items = append(stmt.Items, c.convertWithItem(child.Child(j)))
					}
				}
			}
		}
		stmt.Body = c.blockStatements(node.ChildByFieldName("body"))
		return stmt

	case "try_statement":
		return c.convertTry(node)

	case "raise_statement":
		stmt := c.newNode(syntax.KindRaise, node)
		afterFrom := false
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "raise":
			case "from":
				afterFrom = true
			default:
				expr := c.convertExpression(child)
				if expr == nil {
					continue
				}
				if afterFrom {
					stmt.Extra = expr
				} else if stmt.Right == nil {
					stmt.Right = expr
				}
			}
		}
		return stmt

	case "assert_statement":
		stmt := c.newNode(syntax.KindAssert, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "assert" || child.Kind() == "," {
				continue
			}
			expr := c.convertExpression(child)
			if expr == nil {
				continue
			}
			if stmt.Right == nil {
				stmt.Right = expr
			} else if stmt.Extra == nil {
				stmt.Extra = expr
			}
		}
		return stmt

	case "delete_statement":
		stmt := c.newNode(syntax.KindDel, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "del" {
				continue
			}
			if child.Kind() == "expression_list" {
				for j := uint(0); j < child.ChildCount(); j++ {
					if expr := c.convertExpression(child.Child(j)); expr != nil {
						stmt.Args = append(stmt.Args, expr)
					}
				}
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				stmt.Args = append(stmt.Args, expr)
			}
		}
		return stmt

	case "pass_statement":
		return c.newNode(syntax.KindPass, node)
	case "break_statement":
		return c.newNode(syntax.KindBreak, node)
	case "continue_statement":
		return c.newNode(syntax.KindContinue, node)
	case "global_statement":
		return c.newNode(syntax.KindGlobal, node)
	case "nonlocal_statement":
		return c.newNode(syntax.KindNonlocal, node)

	case "import_statement":
		return c.convertImport(node)
	case "import_from_statement":
		return c.convertImportFrom(node)

	case "ERROR":
		errNode := c.newNode(syntax.KindError, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			if expr := c.convertExpression(node.Child(i)); expr != nil {
				errNode.Left = expr
				break
			}
		}
		return errNode

	case "comment":
		return nil
	}
	return nil
}

func (c *converter) blockStatements(block *sitter.Node) []*syntax.Node {
	if block == nil {
		return nil
	}
	return c.convertStatements(block)
}

func (c *converter) suiteNode(block *sitter.Node, fallback *sitter.Node) *syntax.Node {
	src := block
	if src == nil {
		src = fallback
	}
	suite := c.newNode(syntax.KindSuite, src)
	suite.Body = c.blockStatements(block)
	return suite
}

func (c *converter) elseClause(node *sitter.Node) []*syntax.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "else_clause" {
			return c.blockStatements(child.ChildByFieldName("body"))
		}
	}
	return nil
}

func (c *converter) convertIf(node *sitter.Node) *syntax.Node {
	head := c.newNode(syntax.KindIf, node)
	head.Right = c.convertExpression(node.ChildByFieldName("condition"))
	head.Body = c.blockStatements(node.ChildByFieldName("consequence"))
	cur := head
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "elif_clause":
			// Each elif becomes the if nested in its predecessor's else.
			elifStmt := c.newNode(syntax.KindIf, child)
			elifStmt.Right = c.convertExpression(child.ChildByFieldName("condition"))
			elifStmt.Body = c.blockStatements(child.ChildByFieldName("consequence"))
			cur.Else = []*syntax.Node{elifStmt}
			cur = elifStmt
		case "else_clause":
			cur.Else = c.blockStatements(child.ChildByFieldName("body"))
		}
	}
	return head
}

func (c *converter) convertWithItem(node *sitter.Node) *syntax.Node {
	item := c.newNode(syntax.KindWithItem, node)
	value := node.ChildByFieldName("value")
	if value != nil && value.Kind() == "as_pattern" {
		item.Right = c.convertExpression(value.Child(0))
		if alias := value.ChildByFieldName("alias"); alias != nil {
			item.Left = c.convertExpression(firstNonTrivial(alias))
		}
	} else if value != nil {
		item.Right = c.convertExpression(value)
	}
	return item
}

func firstNonTrivial(node *sitter.Node) *sitter.Node {
	if node.ChildCount() == 0 {
		return node
	}
	return node.Child(0)
}

func (c *converter) convertTry(node *sitter.Node) *syntax.Node {
	stmt := c.newNode(syntax.KindTry, node)
	stmt.Body = c.blockStatements(node.ChildByFieldName("body"))
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "except_clause":
			handler := c.newNode(syntax.KindExcept, child)
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				switch sub.Kind() {
				case "except", ":", "block":
				case "as_pattern":
					handler.Right = c.convertExpression(sub.Child(0))
					if alias := sub.ChildByFieldName("alias"); alias != nil {
						handler.Left = c.convertExpression(firstNonTrivial(alias))
					}
				default:
					if handler.Right == nil {
						handler.Right = c.convertExpression(sub)
					}
				}
				if sub.Kind() == "block" {
					handler.Body = c.convertStatements(sub)
				}
			}
			stmt.Handlers = append(stmt.Handlers, handler)
		case "else_clause":
			stmt.Else = c.blockStatements(child.ChildByFieldName("body"))
		case "finally_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				if child.Child(j).Kind() == "block" {
					stmt.Final = c.convertStatements(child.Child(j))
				}
			}
		}
	}
	return stmt
}

func (c *converter) convertFunction(node *sitter.Node, decorators []*syntax.Node) *syntax.Node {
	fn := c.newNode(syntax.KindFunction, node)
	fn.Decorators = decorators
	if name := node.ChildByFieldName("name"); name != nil {
		fn.Value = c.text(name)
		fn.NameNode = c.newNode(syntax.KindName, name)
		fn.NameNode.Value = fn.Value
	}
	fn.Params = c.convertParameters(node.ChildByFieldName("parameters"))
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnAnnotation = c.convertExpression(ret)
	}
	fn.Suite = c.suiteNode(node.ChildByFieldName("body"), node)
	c.applyDecoratorAttrs(fn)
	return fn
}

// applyDecoratorAttrs records decorator-derived flags on the function node so
// the checker can defer to them instead of re-parsing decorator expressions.
func (c *converter) applyDecoratorAttrs(fn *syntax.Node) {
	for _, dec := range fn.Decorators {
		name := decoratorName(dec.Right)
		switch name {
		case "staticmethod":
			fn.FuncAttrs |= syntax.FuncAttrStaticMethod
		case "classmethod":
			fn.FuncAttrs |= syntax.FuncAttrClassMethod
		case "abstractmethod":
			fn.FuncAttrs |= syntax.FuncAttrAbstractMethod
		case "property":
			fn.FuncAttrs |= syntax.FuncAttrProperty
		}
	}
}

func decoratorName(expr *syntax.Node) string {
	switch {
	case expr == nil:
		return ""
	case expr.Kind == syntax.KindName:
		return expr.Value
	case expr.Kind == syntax.KindMemberAccess:
		return expr.Value
	case expr.Kind == syntax.KindCall:
		return decoratorName(expr.Left)
	}
	return ""
}

func (c *converter) convertParameters(params *sitter.Node) []*syntax.Node {
	if params == nil {
		return nil
	}
	var out []*syntax.Node
	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		switch child.Kind() {
		case "identifier":
			p := c.newNode(syntax.KindParameter, child)
			p.Value = c.text(child)
			out = append(out, p)
		case "typed_parameter":
			p := c.newNode(syntax.KindParameter, child)
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "identifier" && p.Value == "" {
					p.Value = c.text(sub)
				}
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.TypeAnnotationNode = c.convertExpression(t)
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			p := c.newNode(syntax.KindParameter, child)
			if name := child.ChildByFieldName("name"); name != nil {
				p.Value = c.text(name)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.TypeAnnotationNode = c.convertExpression(t)
			}
			if v := child.ChildByFieldName("value"); v != nil {
				p.DefaultValue = c.convertExpression(v)
			}
			out = append(out, p)
		case "list_splat_pattern":
			p := c.newNode(syntax.KindParameter, child)
			p.ParamCategory = syntax.ParamVarArgList
			for j := uint(0); j < child.ChildCount(); j++ {
				if child.Child(j).Kind() == "identifier" {
					p.Value = c.text(child.Child(j))
				}
			}
			out = append(out, p)
		case "dictionary_splat_pattern":
			p := c.newNode(syntax.KindParameter, child)
			p.ParamCategory = syntax.ParamVarArgDict
			for j := uint(0); j < child.ChildCount(); j++ {
				if child.Child(j).Kind() == "identifier" {
					p.Value = c.text(child.Child(j))
				}
			}
			out = append(out, p)
		}
	}
	return out
}

func (c *converter) convertClass(node *sitter.Node, decorators []*syntax.Node) *syntax.Node {
	cls := c.newNode(syntax.KindClass, node)
	cls.Decorators = decorators
	if name := node.ChildByFieldName("name"); name != nil {
		cls.Value = c.text(name)
		cls.NameNode = c.newNode(syntax.KindName, name)
		cls.NameNode.Value = cls.Value
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		cls.Args = c.convertArgumentList(supers)
	}
	cls.Suite = c.suiteNode(node.ChildByFieldName("body"), node)
	return cls
}

func (c *converter) convertImport(node *sitter.Node) *syntax.Node {
	stmt := c.newNode(syntax.KindImport, node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			importAs := c.newNode(syntax.KindImportAs, child)
			importAs.Left = c.moduleNameNode(child)
			stmt.Imports = append(stmt.Imports, importAs)
		case "aliased_import":
			importAs := c.newNode(syntax.KindImportAs, child)
			if name := child.ChildByFieldName("name"); name != nil {
				importAs.Left = c.moduleNameNode(name)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				importAs.Value = c.text(alias)
			}
			stmt.Imports = append(stmt.Imports, importAs)
		}
	}
	return stmt
}

func (c *converter) convertImportFrom(node *sitter.Node) *syntax.Node {
	stmt := c.newNode(syntax.KindImportFrom, node)
	seenImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "from":
		case "import":
			seenImport = true
		case "relative_import":
			stmt.Left = c.moduleNameNode(child)
		case "dotted_name", "identifier":
			if !seenImport {
				stmt.Left = c.moduleNameNode(child)
				continue
			}
			importAs := c.newNode(syntax.KindImportAs, child)
			importAs.Left = c.moduleNameNode(child)
			stmt.Imports = append(stmt.Imports, importAs)
		case "aliased_import":
			importAs := c.newNode(syntax.KindImportAs, child)
			if name := child.ChildByFieldName("name"); name != nil {
				importAs.Left = c.moduleNameNode(name)
			}
			if alias := child.ChildByFieldName("alias"); alias != nil {
				importAs.Value = c.text(alias)
			}
			stmt.Imports = append(stmt.Imports, importAs)
		case "wildcard_import":
			// Star imports bind nothing checkable.
		}
	}
	return stmt
}

func (c *converter) moduleNameNode(node *sitter.Node) *syntax.Node {
	n := c.newNode(syntax.KindModuleName, node)
	n.Value = strings.TrimSpace(c.text(node))
	return n
}

func (c *converter) convertArgumentList(node *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "(", ")", ",":
			continue
		case "keyword_argument":
			arg := c.newNode(syntax.KindArgument, child)
			if name := child.ChildByFieldName("name"); name != nil {
				arg.Value = c.text(name)
			}
			if value := child.ChildByFieldName("value"); value != nil {
				arg.Right = c.convertExpression(value)
			}
			out = append(out, arg)
		default:
			if expr := c.convertExpression(child); expr != nil {
				out = append(out, expr)
			}
		}
	}
	return out
}
