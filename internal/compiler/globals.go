package compiler

import (
	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/vm"
)

// defineRaw reserves a global slot for name and fills its body immediately,
// for combinators whose instructions don't need lambda-lifting or the
// expression compiler at all (constructor wrappers, primitive wrappers).
func (cs *compilerState) defineRaw(name string, arity int, instrs []vm.Instruction) {
	cs.newSlot(name)
	local := len(cs.names) - 1
	cs.arities[local] = arity
	cs.bodies[local] = instrs
}

// defineConstructor registers a data constructor as an ordinary
// PushGlobal-able combinator, so it behaves like any other curried function
// (a bare reference like `map (:) xs` works) without the general Apply
// compiler needing to special-case Pack at all: a wrapper of arity N packs
// its own N arguments, in declaration order, and the Unwind/saturation
// machinery invokes it exactly like a user-defined super-combinator.
//
// The wrapper body pushes frame[0]..frame[N-1] in order, then Packs: OpPack
// keeps stack order (deepest slot becomes field 0), so Fields end up
// [frame[0], ..., frame[N-1]], natural declaration order, matching Split's
// field-push order and making Split/Pack mutual inverses. The final Slide
// drops the N frame slots, leaving the frame's single result.
func (cs *compilerState) defineConstructor(name string, tag, arity int) {
	var instrs []vm.Instruction
	for i := 0; i < arity; i++ {
		instrs = append(instrs, vm.Push(i))
	}
	instrs = append(instrs, vm.Pack(tag, arity))
	if arity > 0 {
		instrs = append(instrs, vm.Slide(arity))
	}
	cs.defineRaw(name, arity, instrs)
	cs.link.ctors[name] = ctorInfo{tag: tag, arity: arity}
}

// constructorInfo looks up a registered data constructor's tag and arity,
// for the pattern compiler.
func (cs *compilerState) constructorInfo(name string) (tag, arity int, ok bool) {
	info, ok := cs.link.ctors[name]
	return info.tag, info.arity, ok
}

// definePrimitiveBinop wraps a strict binary primitive op as an ordinary
// two-argument combinator: push the second-applied argument first (it ends
// up below), then the first-applied argument (ends on top), Eval both, then
// the op, matching primitiveInt/primitiveFloat's "top of stack is the left
// operand" convention (internal/vm/vm_test.go's TestEvaluateSubtractOperandOrder).
func (cs *compilerState) definePrimitiveBinop(name string, op vm.Instruction) {
	cs.defineRaw(name, 2, []vm.Instruction{
		vm.Push(1), vm.Eval(),
		vm.Push(0), vm.Eval(),
		op,
		vm.Slide(2),
	})
}

func (cs *compilerState) definePrimitiveUnop(name string, op vm.Instruction) {
	cs.defineRaw(name, 1, []vm.Instruction{
		vm.Push(0), vm.Eval(),
		op,
		vm.Slide(1),
	})
}

// reserveBuiltins registers the fixed global vocabulary matching
// internal/types's NewEnv: the list/tuple constructors, Bool's
// constructors, the primitive arithmetic/comparison/conversion combinators,
// and the two type-directed negate wrappers unary-minus desugars to (see
// expr.go's compileNegate). Only the first assembly compiled through a
// Linker defines them; later assemblies reference them through the shared
// global table.
func (cs *compilerState) reserveBuiltins() {
	// list: "[]" tag 0 arity 0, ":" tag 1 arity 2.
	cs.defineConstructor("[]", 0, 0)
	cs.defineConstructor(":", 1, 2)

	// tuples, arity 0..9, single tag 0 each (no other constructor to
	// disambiguate).
	for arity := 0; arity < 10; arity++ {
		cs.defineConstructor(ast.TupleOperator(arity), 0, arity)
	}

	// Bool: comparisons already build Constructor(0,[])/Constructor(1,[])
	// directly (internal/vm/node.go's boolNode), but True/False must still
	// exist as ordinary globals for source text that names them directly
	// without a `data Bool` declaration in scope.
	if _, defined := cs.link.ctors["True"]; !defined {
		cs.defineConstructor("True", 0, 0)
		cs.defineConstructor("False", 1, 0)
	}

	for _, t := range []string{"Int", "Double"} {
		add, sub, mul, div, rem := vm.Add(), vm.Sub(), vm.Multiply(), vm.Divide(), vm.Remainder()
		eq, lt, le, gt, ge := vm.IntEQ(), vm.IntLT(), vm.IntLE(), vm.IntGT(), vm.IntGE()
		if t == "Double" {
			add, sub, mul, div, rem = vm.DoubleAdd(), vm.DoubleSub(), vm.DoubleMultiply(), vm.DoubleDivide(), vm.DoubleRemainder()
			eq, lt, le, gt, ge = vm.DoubleEQ(), vm.DoubleLT(), vm.DoubleLE(), vm.DoubleGT(), vm.DoubleGE()
		}
		cs.definePrimitiveBinop("prim"+t+"Add", add)
		cs.definePrimitiveBinop("prim"+t+"Subtract", sub)
		cs.definePrimitiveBinop("prim"+t+"Multiply", mul)
		cs.definePrimitiveBinop("prim"+t+"Divide", div)
		cs.definePrimitiveBinop("prim"+t+"Remainder", rem)
		cs.definePrimitiveBinop("prim"+t+"EQ", eq)
		cs.definePrimitiveBinop("prim"+t+"LT", lt)
		cs.definePrimitiveBinop("prim"+t+"LE", le)
		cs.definePrimitiveBinop("prim"+t+"GT", gt)
		cs.definePrimitiveBinop("prim"+t+"GE", ge)
	}
	cs.definePrimitiveUnop("primIntToDouble", vm.IntToDouble())
	cs.definePrimitiveUnop("primDoubleToInt", vm.DoubleToInt())

	// negate's two monomorphizations: 0 - x, computed with the same
	// left-operand-on-top convention as the binops above.
	cs.defineRaw("#negateInt", 1, []vm.Instruction{
		vm.Push(0), vm.Eval(), vm.PushInt(0), vm.Sub(), vm.Slide(1),
	})
	cs.defineRaw("#negateDouble", 1, []vm.Instruction{
		vm.Push(0), vm.Eval(), vm.PushFloat(0), vm.DoubleSub(), vm.Slide(1),
	})
}
