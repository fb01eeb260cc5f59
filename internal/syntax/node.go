// # internal/syntax/node.go
package syntax

import "fmt"

// NodeKind tags every parse node. The checker dispatches on this tag with a
// single handler table rather than a node-type hierarchy.
type NodeKind int

const (
	KindNone NodeKind = iota
	KindModule
	KindSuite
	KindClass
	KindFunction
	KindLambda
	KindParameter
	KindDecorator
	KindIf
	KindWhile
	KindFor
	KindWith
	KindWithItem
	KindTry
	KindExcept
	KindReturn
	KindYield
	KindYieldFrom
	KindRaise
	KindAssert
	KindAssignment
	KindAugmentedAssignment
	KindTypeAnnotation
	KindDel
	KindPass
	KindBreak
	KindContinue
	KindGlobal
	KindNonlocal
	KindImport
	KindImportFrom
	KindImportAs
	KindModuleName
	KindStatementList
	KindCall
	KindArgument
	KindMemberAccess
	KindIndex
	KindSlice
	KindName
	KindNumber
	KindString
	KindStringList
	KindFormatString
	KindConstant
	KindUnaryOperation
	KindBinaryOperation
	KindTernary
	KindTuple
	KindList
	KindDict
	KindSet
	KindListComprehension
	KindEllipsis
	KindError
)

// ConstantValue identifies the literal carried by a KindConstant node.
type ConstantValue int

const (
	ConstNone ConstantValue = iota
	ConstTrue
	ConstFalse
	ConstDebug
)

// FlowFlags are attached by the binder to statement nodes.
type FlowFlags uint8

const (
	// FlowUnreachable marks a statement control flow can never arrive at.
	FlowUnreachable FlowFlags = 1 << iota
	// FlowHasFlags distinguishes "flags were computed" from a zero value on
	// nodes the binder never visited.
	FlowHasFlags
)

// TextRange is a half-open byte interval into the source file, with the
// one-based line/column of its start for rendering.
type TextRange struct {
	Start  int
	End    int
	Line   int
	Column int
}

// Extend returns the union of two ranges.
func (r TextRange) Extend(other TextRange) TextRange {
	out := r
	if other.Start < out.Start {
		out.Start = other.Start
		out.Line = other.Line
		out.Column = other.Column
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

func (r TextRange) String() string {
	return fmt.Sprintf("%d:%d", r.Line, r.Column)
}

// Node is the tagged-union parse node. Only the fields relevant to a node's
// Kind are populated; the rest stay zero. Parent pointers and flow flags are
// filled in by the binder.
type Node struct {
	Kind   NodeKind
	Range  TextRange
	Parent *Node

	// Name-ish payloads: identifier text for KindName/KindParameter/
	// KindMemberAccess (member name) / KindModuleName (dotted path).
	Value string

	// Generic child links. The meaning depends on Kind:
	//   Assignment:          Left, Right, AnnotationComment
	//   AugmentedAssignment: Left, Right, Operator in Value
	//   TypeAnnotation:      Left (target), Right (annotation)
	//   Return/Yield/Raise:  Right (operand), Extra (raise value-expression)
	//   For:                 Left (target), Right (iterable), Body, Else
	//   While/If:            Right (condition), Body, Else
	//   With:                Items, Body
	//   WithItem:            Right (context expr), Left (as-target)
	//   Except:              Right (exception expr), Left (as-target), Body
	//   Try:                 Body, Handlers, Else, Final
	//   MemberAccess:        Left (base), Value (member name), MemberRange
	//   Index:               Left (base), Args (subscripts)
	//   Call:                Left (callee), Args
	//   BinaryOperation:     Left, Right, Value (operator text)
	//   UnaryOperation:      Right, Value (operator text)
	//   Ternary:             Left (then), Right (condition), Extra (else)
	//   Lambda:              Params, Right (expression body)
	//   Function:            Params, ReturnAnnotation, Decorators, Suite
	//   Class:               Args (base-class arguments), Decorators, Suite
	//   Import/ImportFrom:   Imports (KindImportAs children)
	//   ImportAs:            Left (KindModuleName), Value (alias, may be "")
	Left  *Node
	Right *Node
	Extra *Node

	Body     []*Node // statements of a suite, or comprehension clauses
	Args     []*Node
	Params   []*Node
	Items    []*Node
	Handlers []*Node
	Else     []*Node
	Final    []*Node
	Imports  []*Node

	Decorators       []*Node
	Suite            *Node
	ReturnAnnotation *Node
	AnnotationComment *Node

	// MemberRange is the range of just the member name of a KindMemberAccess.
	MemberRange TextRange

	// NameNode is the declared-name node of a KindFunction or KindClass.
	NameNode *Node

	// Constant payload for KindConstant.
	Constant ConstantValue

	// FormatString / StringList expression children.
	Expressions []*Node

	// IsAnnotationString marks a KindStringList that appears in an
	// annotation-literal context (quoted forward reference already consumed).
	IsAnnotationString bool

	Flow FlowFlags

	// ScopeID links scoped nodes (module, class, function, lambda,
	// comprehension) to the binder's scope table.
	ScopeID int

	// YieldNodes is recorded by the binder on function nodes.
	YieldNodes []*Node

	// FuncAttrs are decorator-derived properties the binder records on
	// function nodes; the checker consults these instead of re-parsing
	// decorator expressions.
	FuncAttrs FuncAttr

	// DefaultValue for KindParameter.
	DefaultValue *Node
	// TypeAnnotationNode for KindParameter.
	TypeAnnotationNode *Node
	// Category of a parameter: simple, *args, **kwargs.
	ParamCategory ParamCategory
}

// FuncAttr carries decorator-derived function properties.
type FuncAttr uint8

const (
	FuncAttrStaticMethod FuncAttr = 1 << iota
	FuncAttrClassMethod
	FuncAttrAbstractMethod
	FuncAttrProperty
)

// ParamCategory distinguishes positional, var-arg and keyword-arg parameters.
type ParamCategory int

const (
	ParamSimple ParamCategory = iota
	ParamVarArgList
	ParamVarArgDict
)

// NameValue returns the identifier text of a name node, or "" for other kinds.
func (n *Node) NameValue() string {
	if n == nil || n.Kind != KindName {
		return ""
	}
	return n.Value
}

// IsStatement reports whether a node kind occupies a statement position.
func (k NodeKind) IsStatement() bool {
	switch k {
	case KindIf, KindWhile, KindFor, KindWith, KindTry, KindReturn, KindRaise,
		KindAssert, KindAssignment, KindAugmentedAssignment, KindTypeAnnotation,
		KindDel, KindPass, KindBreak, KindContinue, KindGlobal, KindNonlocal,
		KindImport, KindImportFrom, KindClass, KindFunction, KindStatementList:
		return true
	}
	return false
}

// EnclosingOfKind walks parents until a node of one of the given kinds is
// found. Returns nil when the module root is passed without a match.
func (n *Node) EnclosingOfKind(kinds ...NodeKind) *Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		for _, k := range kinds {
			if cur.Kind == k {
				return cur
			}
		}
	}
	return nil
}

// Contains reports whether other lies textually within n's range.
func (n *Node) Contains(other *Node) bool {
	return other.Range.Start >= n.Range.Start && other.Range.End <= n.Range.End
}
