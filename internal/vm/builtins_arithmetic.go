package vm

import "github.com/thunklang/thunk/internal/errors"

// primitiveInt implements the Int-typed arithmetic/comparison instructions:
// pop two evaluated Int nodes (l = top, r = the one below), apply f, push
// the result.
func primitiveInt(stack *[]*Node, f func(l, r int64) *Node) error {
	s := *stack
	n := len(s)
	if n < 2 {
		return errors.New(errors.VM001, errors.Location{}, "arithmetic instruction needs two operands, found %d", n)
	}
	l, r := s[n-1], s[n-2]
	if l.Kind != KindInt || r.Kind != KindInt {
		return errors.New(errors.VM001, errors.Location{}, "expected fully evaluated Int operands, found kinds %d and %d", l.Kind, r.Kind)
	}
	*stack = append(s[:n-2], f(l.IntValue, r.IntValue))
	return nil
}
