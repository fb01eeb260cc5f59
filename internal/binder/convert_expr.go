// # internal/binder/convert_expr.go
package binder

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"gradual/internal/syntax"
)

func (c *converter) convertExpression(node *sitter.Node) *syntax.Node {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		n := c.newNode(syntax.KindName, node)
		n.Value = c.text(node)
		return n

	case "attribute":
		n := c.newNode(syntax.KindMemberAccess, node)
		n.Left = c.convertExpression(node.ChildByFieldName("object"))
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			n.Value = c.text(attr)
			n.MemberRange = c.rangeOf(attr)
		}
		return n

	case "call":
		n := c.newNode(syntax.KindCall, node)
		n.Left = c.convertExpression(node.ChildByFieldName("function"))
		if args := node.ChildByFieldName("arguments"); args != nil {
			if args.Kind() == "argument_list" {
				n.Args = c.convertArgumentList(args)
			} else if expr := c.convertExpression(args); expr != nil {
				n.Args = append(n.Args, expr)
			}
		}
		return n

	case "subscript":
		n := c.newNode(syntax.KindIndex, node)
		n.Left = c.convertExpression(node.ChildByFieldName("value"))
		value := node.ChildByFieldName("value")
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if value != nil && child.StartByte() == value.StartByte() && child.EndByte() == value.EndByte() {
				continue
			}
			switch child.Kind() {
			case "[", "]", ",":
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				n.Args = append(n.Args, expr)
			}
		}
		return n

	case "binary_operator", "boolean_operator":
		n := c.newNode(syntax.KindBinaryOperation, node)
		n.Left = c.convertExpression(node.ChildByFieldName("left"))
		n.Right = c.convertExpression(node.ChildByFieldName("right"))
		if op := node.ChildByFieldName("operator"); op != nil {
			n.Value = c.text(op)
		}
		return n

	case "comparison_operator":
		n := c.newNode(syntax.KindBinaryOperation, node)
		var operands []*sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "<", ">", "<=", ">=", "==", "!=", "in", "is", "not", "<>":
				if n.Value == "" {
					n.Value = c.text(child)
				}
			default:
				operands = append(operands, child)
			}
		}
		if len(operands) > 0 {
			n.Left = c.convertExpression(operands[0])
		}
		if len(operands) > 1 {
			n.Right = c.convertExpression(operands[len(operands)-1])
		}
		return n

	case "not_operator":
		n := c.newNode(syntax.KindUnaryOperation, node)
		n.Value = "not"
		n.Right = c.convertExpression(node.ChildByFieldName("argument"))
		return n

	case "unary_operator":
		n := c.newNode(syntax.KindUnaryOperation, node)
		if op := node.ChildByFieldName("operator"); op != nil {
			n.Value = c.text(op)
		}
		n.Right = c.convertExpression(node.ChildByFieldName("argument"))
		return n

	case "conditional_expression":
		n := c.newNode(syntax.KindTernary, node)
		var exprs []*syntax.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "if" || child.Kind() == "else" {
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				exprs = append(exprs, expr)
			}
		}
		if len(exprs) == 3 {
			n.Left, n.Right, n.Extra = exprs[0], exprs[1], exprs[2]
		}
		return n

	case "lambda":
		n := c.newNode(syntax.KindLambda, node)
		n.Params = c.convertParameters(node.ChildByFieldName("parameters"))
		n.Right = c.convertExpression(node.ChildByFieldName("body"))
		return n

	case "tuple", "expression_list", "pattern_list":
		n := c.newNode(syntax.KindTuple, node)
		n.Args = c.listElements(node)
		return n

	case "list", "list_pattern":
		n := c.newNode(syntax.KindList, node)
		n.Args = c.listElements(node)
		return n

	case "set":
		n := c.newNode(syntax.KindSet, node)
		n.Args = c.listElements(node)
		return n

	case "dictionary":
		n := c.newNode(syntax.KindDict, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "pair" {
				continue
			}
			pair := c.newNode(syntax.KindArgument, child)
			pair.Left = c.convertExpression(child.ChildByFieldName("key"))
			pair.Right = c.convertExpression(child.ChildByFieldName("value"))
			n.Args = append(n.Args, pair)
		}
		return n

	case "list_comprehension", "set_comprehension", "generator_expression", "dictionary_comprehension":
		n := c.newNode(syntax.KindListComprehension, node)
		n.Left = c.convertExpression(node.ChildByFieldName("body"))
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "for_in_clause":
				clause := c.newNode(syntax.KindFor, child)
				clause.Left = c.convertExpression(child.ChildByFieldName("left"))
				clause.Right = c.convertExpression(child.ChildByFieldName("right"))
				n.Body = append(n.Body, clause)
			case "if_clause":
				for j := uint(0); j < child.ChildCount(); j++ {
					if child.Child(j).Kind() == "if" {
						continue
					}
					if cond := c.convertExpression(child.Child(j)); cond != nil {
						n.Body = append(n.Body, cond)
					}
				}
			}
		}
		return n

	case "parenthesized_expression":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "(" || child.Kind() == ")" {
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				return expr
			}
		}
		return nil

	case "string":
		return c.convertString(node)

	case "concatenated_string":
		n := c.newNode(syntax.KindStringList, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "string" {
				if s := c.convertString(child); s != nil {
					n.Expressions = append(n.Expressions, s)
					n.Value += s.Value
				}
			}
		}
		return n

	case "integer", "float":
		n := c.newNode(syntax.KindNumber, node)
		n.Value = c.text(node)
		return n

	case "true":
		n := c.newNode(syntax.KindConstant, node)
		n.Constant = syntax.ConstTrue
		return n
	case "false":
		n := c.newNode(syntax.KindConstant, node)
		n.Constant = syntax.ConstFalse
		return n
	case "none":
		n := c.newNode(syntax.KindConstant, node)
		n.Constant = syntax.ConstNone
		return n
	case "ellipsis":
		return c.newNode(syntax.KindEllipsis, node)

	case "yield":
		kind := syntax.KindYield
		var operand *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "yield":
			case "from":
				kind = syntax.KindYieldFrom
			default:
				operand = child
			}
		}
		n := c.newNode(kind, node)
		n.Right = c.convertExpression(operand)
		return n

	case "assignment":
		return c.convertAssignment(node)

	case "augmented_assignment":
		n := c.newNode(syntax.KindAugmentedAssignment, node)
		n.Left = c.convertExpression(node.ChildByFieldName("left"))
		n.Right = c.convertExpression(node.ChildByFieldName("right"))
		if op := node.ChildByFieldName("operator"); op != nil {
			n.Value = c.text(op)
		}
		return n

	case "named_expression":
		n := c.newNode(syntax.KindAssignment, node)
		n.Left = c.convertExpression(node.ChildByFieldName("name"))
		n.Right = c.convertExpression(node.ChildByFieldName("value"))
		return n

	case "slice":
		n := c.newNode(syntax.KindSlice, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == ":" {
				continue
			}
			expr := c.convertExpression(child)
			if expr == nil {
				continue
			}
			if n.Left == nil {
				n.Left = expr
			} else if n.Right == nil {
				n.Right = expr
			}
		}
		return n

	case "type":
		// Annotation wrapper around the actual type expression.
		for i := uint(0); i < node.ChildCount(); i++ {
			if expr := c.convertExpression(node.Child(i)); expr != nil {
				return expr
			}
		}
		return nil

	case "await":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "await" {
				continue
			}
			if expr := c.convertExpression(child); expr != nil {
				return expr
			}
		}
		return nil

	case "ERROR":
		errNode := c.newNode(syntax.KindError, node)
		for i := uint(0); i < node.ChildCount(); i++ {
			if expr := c.convertExpression(node.Child(i)); expr != nil {
				errNode.Left = expr
				break
			}
		}
		return errNode
	}
	return nil
}

func (c *converter) listElements(node *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "(", ")", "[", "]", "{", "}", ",":
			continue
		}
		if expr := c.convertExpression(child); expr != nil {
			out = append(out, expr)
		}
	}
	return out
}

func (c *converter) convertAssignment(node *sitter.Node) *syntax.Node {
	left := c.convertExpression(node.ChildByFieldName("left"))
	typeNode := node.ChildByFieldName("type")
	right := node.ChildByFieldName("right")

	if typeNode != nil {
		ann := c.newNode(syntax.KindTypeAnnotation, node)
		ann.Left = left
		ann.Right = c.convertExpression(typeNode)
		if right == nil {
			return ann
		}
		assign := c.newNode(syntax.KindAssignment, node)
		assign.Left = ann
		assign.Right = c.convertExpression(right)
		return assign
	}

	assign := c.newNode(syntax.KindAssignment, node)
	assign.Left = left
	assign.Right = c.convertExpression(right)
	return assign
}

// convertString builds a KindString, or a KindFormatString when the literal
// carries interpolations. Value holds the unquoted content.
func (c *converter) convertString(node *sitter.Node) *syntax.Node {
	var content string
	var interpolations []*syntax.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "string_content":
			content += c.text(child)
		case "interpolation":
			if expr := child.ChildByFieldName("expression"); expr != nil {
				if conv := c.convertExpression(expr); conv != nil {
					interpolations = append(interpolations, conv)
				}
			} else {
				for j := uint(0); j < child.ChildCount(); j++ {
					sub := child.Child(j)
					if sub.Kind() == "{" || sub.Kind() == "}" {
						continue
					}
					if conv := c.convertExpression(sub); conv != nil {
						interpolations = append(interpolations, conv)
						break
					}
				}
			}
		}
	}
	if len(interpolations) > 0 {
		n := c.newNode(syntax.KindFormatString, node)
		n.Expressions = interpolations
		n.Value = content
		return n
	}
	n := c.newNode(syntax.KindString, node)
	n.Value = content
	return n
}
