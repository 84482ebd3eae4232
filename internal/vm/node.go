// Package vm implements the graph-reduction virtual machine: a heap of
// Node values, a flat global table spanning every loaded Assembly, and the
// Unwind/Eval/Update lazy-evaluation core.
package vm

import "fmt"

// Kind tags the variant of a Node.
type Kind int

const (
	KindApplication Kind = iota
	KindInt
	KindFloat
	KindChar
	KindCombinator
	KindIndirection
	KindConstructor
	KindDictionary
)

// Node is the single heap representation every VM value is built from.
// There is no refcount field: Go's garbage collector handles shared-node
// lifetime, so nodes are simply ordinary pointers shared freely between
// stack slots.
type Node struct {
	Kind Kind

	// Application
	Func *Node
	Arg  *Node

	// Int
	IntValue int64

	// Float
	FloatValue float64

	// Char
	CharValue rune

	// Combinator
	Combinator *SuperCombinator

	// Indirection
	Target *Node

	// Constructor
	Tag    int
	Fields []*Node

	// Dictionary: global indices, one per class method (and possibly
	// superclass dictionary) in declaration order.
	Dictionary []int
}

func NewApplication(fn, arg *Node) *Node { return &Node{Kind: KindApplication, Func: fn, Arg: arg} }
func NewInt(v int64) *Node               { return &Node{Kind: KindInt, IntValue: v} }
func NewFloat(v float64) *Node           { return &Node{Kind: KindFloat, FloatValue: v} }
func NewChar(v rune) *Node               { return &Node{Kind: KindChar, CharValue: v} }
func NewCombinator(sc *SuperCombinator) *Node {
	return &Node{Kind: KindCombinator, Combinator: sc}
}
func NewIndirection(target *Node) *Node { return &Node{Kind: KindIndirection, Target: target} }
func NewConstructor(tag int, fields []*Node) *Node {
	return &Node{Kind: KindConstructor, Tag: tag, Fields: fields}
}
func NewDictionary(indices []int) *Node { return &Node{Kind: KindDictionary, Dictionary: indices} }

// boolNode builds the nullary constructor a comparison produces:
// Constructor(0, []) for true and Constructor(1, []) for false.
func boolNode(b bool) *Node {
	if b {
		return NewConstructor(0, nil)
	}
	return NewConstructor(1, nil)
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindApplication:
		return fmt.Sprintf("(%s %s)", n.Func, n.Arg)
	case KindInt:
		return fmt.Sprintf("%d", n.IntValue)
	case KindFloat:
		return fmt.Sprintf("%g", n.FloatValue)
	case KindChar:
		return fmt.Sprintf("%q", n.CharValue)
	case KindCombinator:
		return n.Combinator.Name
	case KindIndirection:
		return fmt.Sprintf("(~> %s)", n.Target)
	case KindConstructor:
		return fmt.Sprintf("{%d %v}", n.Tag, n.Fields)
	case KindDictionary:
		return fmt.Sprintf("%v", n.Dictionary)
	default:
		return "<unknown node>"
	}
}
