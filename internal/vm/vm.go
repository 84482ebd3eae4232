package vm

import (
	"fmt"
	"io"

	"github.com/thunklang/thunk/internal/errors"
)

// globalRef locates one super-combinator within the VM's flat global table:
// which Assembly it lives in, and its index within that assembly's
// SuperCombinators slice.
type globalRef struct {
	assemblyIndex int
	index         int
}

// VM holds every loaded Assembly and the flat global table spanning them,
// so a later assembly's PushGlobal can reference an earlier one's
// super-combinators.
type VM struct {
	assemblies []*Assembly
	globals    []globalRef
	trace      io.Writer
}

// SetTrace makes the VM print every executed instruction to w, one per
// line (the CLI's -trace flag). Pass nil to turn tracing back off.
func (vm *VM) SetTrace(w io.Writer) {
	vm.trace = w
}

// New returns an empty VM.
func New() *VM {
	return &VM{}
}

// AddAssembly appends assembly and registers one global table entry per
// super-combinator it defines, returning the assembly's index.
func (vm *VM) AddAssembly(assembly *Assembly) int {
	vm.assemblies = append(vm.assemblies, assembly)
	assemblyIndex := len(vm.assemblies) - 1
	for i := range assembly.SuperCombinators {
		vm.globals = append(vm.globals, globalRef{assemblyIndex: assemblyIndex, index: i})
	}
	return assemblyIndex
}

// FindSuperCombinator returns the named super-combinator, searching every
// loaded assembly (used by cmd/thunk to locate "main").
func (vm *VM) FindSuperCombinator(name string) *SuperCombinator {
	for _, a := range vm.assemblies {
		for _, sc := range a.SuperCombinators {
			if sc.Name == name {
				return sc
			}
		}
	}
	return nil
}

// Evaluate runs code to completion, forces the resulting single stack value
// to WHNF, and returns it.
func (vm *VM) Evaluate(code []Instruction, assemblyID int) (*Node, error) {
	var stack []*Node
	if err := vm.Execute(&stack, code, assemblyID); err != nil {
		return nil, err
	}
	if err := vm.Execute(&stack, []Instruction{Eval()}, assemblyID); err != nil {
		return nil, err
	}
	if len(stack) != 1 {
		return nil, errors.New(errors.VM001, errors.Location{}, "evaluate: expected exactly one result, got %d", len(stack))
	}
	return stack[0], nil
}

// Execute runs code against stack (a frame's operand stack), advancing the
// instruction pointer sequentially except where Jump/JumpFalse/CaseJump
// redirect it.
func (vm *VM) Execute(stack *[]*Node, code []Instruction, assemblyID int) error {
	i := 0
	for i < len(code) {
		instr := code[i]
		if vm.trace != nil {
			fmt.Fprintf(vm.trace, "[asm %d] %04d  %s\n", assemblyID, i, instr)
		}

		switch instr.Op {
		case OpAdd:
			if err := primitiveInt(stack, func(l, r int64) *Node { return NewInt(l + r) }); err != nil {
				return err
			}
		case OpSub:
			if err := primitiveInt(stack, func(l, r int64) *Node { return NewInt(l - r) }); err != nil {
				return err
			}
		case OpMultiply:
			if err := primitiveInt(stack, func(l, r int64) *Node { return NewInt(l * r) }); err != nil {
				return err
			}
		case OpDivide:
			if err := primitiveInt(stack, func(l, r int64) *Node { return NewInt(l / r) }); err != nil {
				return err
			}
		case OpRemainder:
			if err := primitiveInt(stack, func(l, r int64) *Node { return NewInt(l % r) }); err != nil {
				return err
			}
		case OpIntEQ:
			if err := primitiveInt(stack, func(l, r int64) *Node { return boolNode(l == r) }); err != nil {
				return err
			}
		case OpIntLT:
			if err := primitiveInt(stack, func(l, r int64) *Node { return boolNode(l < r) }); err != nil {
				return err
			}
		case OpIntLE:
			if err := primitiveInt(stack, func(l, r int64) *Node { return boolNode(l <= r) }); err != nil {
				return err
			}
		case OpIntGT:
			if err := primitiveInt(stack, func(l, r int64) *Node { return boolNode(l > r) }); err != nil {
				return err
			}
		case OpIntGE:
			if err := primitiveInt(stack, func(l, r int64) *Node { return boolNode(l >= r) }); err != nil {
				return err
			}
		case OpDoubleAdd:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return NewFloat(l + r) }); err != nil {
				return err
			}
		case OpDoubleSub:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return NewFloat(l - r) }); err != nil {
				return err
			}
		case OpDoubleMultiply:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return NewFloat(l * r) }); err != nil {
				return err
			}
		case OpDoubleDivide:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return NewFloat(l / r) }); err != nil {
				return err
			}
		case OpDoubleRemainder:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return NewFloat(mod(l, r)) }); err != nil {
				return err
			}
		case OpDoubleEQ:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return boolNode(l == r) }); err != nil {
				return err
			}
		case OpDoubleLT:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return boolNode(l < r) }); err != nil {
				return err
			}
		case OpDoubleLE:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return boolNode(l <= r) }); err != nil {
				return err
			}
		case OpDoubleGT:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return boolNode(l > r) }); err != nil {
				return err
			}
		case OpDoubleGE:
			if err := primitiveFloat(stack, func(l, r float64) *Node { return boolNode(l >= r) }); err != nil {
				return err
			}
		case OpIntToDouble:
			if err := convert(stack, KindInt, func(n *Node) *Node { return NewFloat(float64(n.IntValue)) }); err != nil {
				return err
			}
		case OpDoubleToInt:
			if err := convert(stack, KindFloat, func(n *Node) *Node { return NewInt(int64(n.FloatValue)) }); err != nil {
				return err
			}

		case OpPushInt:
			*stack = append(*stack, NewInt(instr.Int))
		case OpPushFloat:
			*stack = append(*stack, NewFloat(instr.Float))
		case OpPushChar:
			*stack = append(*stack, NewChar(instr.Char))
		case OpPush:
			*stack = append(*stack, (*stack)[instr.Int])
		case OpPushGlobal:
			ref := vm.globals[instr.Int]
			sc := vm.assemblies[ref.assemblyIndex].SuperCombinators[ref.index]
			*stack = append(*stack, NewCombinator(sc))
		case OpMkap:
			s := *stack
			n := len(s)
			fn, arg := s[n-1], s[n-2]
			*stack = append(s[:n-2], NewApplication(fn, arg))
		case OpEval:
			s := *stack
			top := s[len(s)-1]
			*stack = s[:len(s)-1]
			sub := []*Node{top}
			if err := vm.Execute(&sub, []Instruction{Unwind()}, assemblyID); err != nil {
				return err
			}
			*stack = append(*stack, sub[len(sub)-1])
		case OpPop:
			s := *stack
			*stack = s[:len(s)-int(instr.Int)]
		case OpUpdate:
			s := *stack
			s[len(s)-1-int(instr.Int)] = NewIndirection(s[len(s)-1])
		case OpUnwind:
			if err := vm.unwind(stack, assemblyID); err != nil {
				return err
			}
		case OpSlide:
			s := *stack
			top := s[len(s)-1]
			s = s[:len(s)-1-int(instr.Int)]
			*stack = append(s, top)
		case OpSplit:
			s := *stack
			top := s[len(s)-1]
			if top.Kind != KindConstructor {
				return errors.New(errors.VM001, errors.Location{}, "Split expected a Constructor node")
			}
			*stack = append(s[:len(s)-1], top.Fields...)
		case OpPack:
			// Fields keep stack order (deepest of the arity slots becomes
			// field 0), making Pack the exact inverse of Split: for any
			// constructor in WHNF, Split then Pack(tag, arity) rebuilds an
			// equal node.
			s := *stack
			fields := make([]*Node, instr.Arity)
			copy(fields, s[len(s)-instr.Arity:])
			*stack = append(s[:len(s)-instr.Arity], NewConstructor(instr.Tag, fields))
		case OpJumpFalse:
			s := *stack
			top := s[len(s)-1]
			*stack = s[:len(s)-1]
			if top.Kind != KindConstructor {
				return errors.New(errors.VM001, errors.Location{}, "JumpFalse expected a Constructor node")
			}
			if top.Tag == 1 {
				i = int(instr.Int) - 1
			}
		case OpCaseJump:
			s := *stack
			top := s[len(s)-1]
			if top.Kind != KindConstructor {
				return errors.New(errors.VM002, errors.Location{}, "CaseJump expected a Constructor node, found kind %d", top.Kind)
			}
			if int(instr.Int) == top.Tag {
				i++
			} else {
				*stack = s[:len(s)-1]
			}
		case OpJump:
			i = int(instr.Int) - 1
		case OpPushDictionary:
			assembly := vm.assemblies[assemblyID]
			dict := assembly.InstanceDictionaries[instr.Int]
			*stack = append(*stack, NewDictionary(dict))
		case OpPushDictionaryMember:
			dictNode := (*stack)[0]
			if dictNode.Kind != KindDictionary {
				return errors.New(errors.VM001, errors.Location{}, "PushDictionaryMember expected a Dictionary node at stack[0]")
			}
			gi := dictNode.Dictionary[instr.Int]
			ref := vm.globals[gi]
			sc := vm.assemblies[ref.assemblyIndex].SuperCombinators[ref.index]
			*stack = append(*stack, NewCombinator(sc))

		case OpFail:
			return errors.New(errors.VM002, errors.Location{}, "non-exhaustive patterns in case")

		default:
			return errors.New(errors.VM001, errors.Location{}, "use of undefined instruction %d", instr.Op)
		}

		i++
	}
	return nil
}

// unwind is the lazy-reduction core: inspect the top of stack and reduce
// until it is in WHNF or is a partial application.
func (vm *VM) unwind(stack *[]*Node, assemblyID int) error {
	for {
		s := *stack
		top := s[len(s)-1]
		switch top.Kind {
		case KindApplication:
			*stack = append(s, top.Func)
			continue

		case KindCombinator:
			comb := top.Combinator
			if len(s)-1 < comb.Arity {
				// Not enough arguments: halt, leaving a partial application.
				*stack = s[:1]
				return nil
			}
			// Peel the spine: replace each Application node below the top
			// with its argument, left to right.
			for j := len(s) - comb.Arity - 1; j < len(s)-1; j++ {
				if s[j].Kind != KindApplication {
					return errors.New(errors.VM001, errors.Location{}, "Unwind expected an Application node on the spine")
				}
				s[j] = s[j].Arg
			}
			frame := make([]*Node, comb.Arity)
			for k := 0; k < comb.Arity; k++ {
				frame[k] = s[len(s)-2-k]
			}
			if err := vm.Execute(&frame, comb.Instructions, comb.AssemblyID); err != nil {
				return err
			}
			if len(frame) != 1 {
				return errors.New(errors.VM001, errors.Location{}, "super-combinator %q left %d values, expected 1", comb.Name, len(frame))
			}
			s = s[:len(s)-comb.Arity-1]
			*stack = append(s, frame[0])
			continue

		case KindIndirection:
			s[len(s)-1] = top.Target
			continue

		default:
			return nil
		}
	}
}

func mod(l, r float64) float64 {
	q := l / r
	return l - r*float64(int64(q))
}
