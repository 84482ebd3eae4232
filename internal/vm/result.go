package vm

import (
	"fmt"
	"strings"

	"github.com/thunklang/thunk/internal/errors"
)

// ResultKind tags the variants a finished program can produce.
type ResultKind int

const (
	ResultInt ResultKind = iota
	ResultDouble
	ResultConstructor
)

// Result is the extracted, VM-independent form of an evaluated node tree:
// an Int, a Double, or a constructor applied to extracted fields. Anything
// else (a partial application, a bare combinator, a dictionary) is an
// extraction failure.
type Result struct {
	Kind   ResultKind `json:"kind"`
	Int    int64      `json:"int,omitempty"`
	Double float64    `json:"double,omitempty"`
	Tag    int        `json:"tag,omitempty"`
	Fields []Result   `json:"fields,omitempty"`
}

// IntResult builds an Int Result.
func IntResult(v int64) Result { return Result{Kind: ResultInt, Int: v} }

// DoubleResult builds a Double Result.
func DoubleResult(v float64) Result { return Result{Kind: ResultDouble, Double: v} }

// ConstructorResult builds a constructor Result.
func ConstructorResult(tag int, fields ...Result) Result {
	return Result{Kind: ResultConstructor, Tag: tag, Fields: fields}
}

func (r Result) String() string {
	switch r.Kind {
	case ResultInt:
		return fmt.Sprintf("%d", r.Int)
	case ResultDouble:
		return fmt.Sprintf("%g", r.Double)
	case ResultConstructor:
		var b strings.Builder
		fmt.Fprintf(&b, "{%d", r.Tag)
		for _, f := range r.Fields {
			b.WriteByte(' ')
			b.WriteString(f.String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return "<invalid result>"
	}
}

// ExtractResult converts an evaluated node tree to a Result, following
// indirections. Fields must already be in WHNF (see DeepForce); a node of
// any other kind is an extraction failure.
func ExtractResult(node *Node) (Result, error) {
	for node.Kind == KindIndirection {
		node = node.Target
	}
	switch node.Kind {
	case KindInt:
		return IntResult(node.IntValue), nil
	case KindFloat:
		return DoubleResult(node.FloatValue), nil
	case KindConstructor:
		var fields []Result
		for _, f := range node.Fields {
			r, err := ExtractResult(f)
			if err != nil {
				return Result{}, err
			}
			fields = append(fields, r)
		}
		return ConstructorResult(node.Tag, fields...), nil
	default:
		return Result{}, errors.New(errors.VM001, errors.Location{},
			"cannot extract result from node %s", node)
	}
}

// DeepForce reduces node to WHNF and then recursively forces every
// constructor field, so the whole tree ExtractResult walks is evaluated. The
// forced fields replace the lazy ones in place, preserving sharing.
func (vm *VM) DeepForce(node *Node, assemblyID int) (*Node, error) {
	stack := []*Node{node}
	if err := vm.Execute(&stack, []Instruction{Eval()}, assemblyID); err != nil {
		return nil, err
	}
	forced := stack[0]
	for forced.Kind == KindIndirection {
		forced = forced.Target
	}
	if forced.Kind == KindConstructor {
		for i, f := range forced.Fields {
			ff, err := vm.DeepForce(f, assemblyID)
			if err != nil {
				return nil, err
			}
			forced.Fields[i] = ff
		}
	}
	return forced, nil
}

// RunMain locates the super-combinator named "main", checks the entry-point
// contract (present, arity 0), evaluates it, deep-forces the value, and
// extracts it.
func (vm *VM) RunMain() (Result, error) {
	sc := vm.FindSuperCombinator("main")
	if sc == nil {
		return Result{}, errors.New(errors.VM003, errors.Location{}, "no super-combinator named \"main\"")
	}
	if sc.Arity != 0 {
		return Result{}, errors.New(errors.VM003, errors.Location{}, "\"main\" must have arity 0, has %d", sc.Arity)
	}
	node, err := vm.Evaluate(sc.Instructions, sc.AssemblyID)
	if err != nil {
		return Result{}, err
	}
	forced, err := vm.DeepForce(node, sc.AssemblyID)
	if err != nil {
		return Result{}, err
	}
	return ExtractResult(forced)
}
