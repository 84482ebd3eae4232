package vm

import "github.com/thunklang/thunk/internal/errors"

// primitiveFloat is primitiveInt's Double-typed twin, used for both
// arithmetic and comparison instructions over Float nodes.
func primitiveFloat(stack *[]*Node, f func(l, r float64) *Node) error {
	s := *stack
	n := len(s)
	if n < 2 {
		return errors.New(errors.VM001, errors.Location{}, "arithmetic instruction needs two operands, found %d", n)
	}
	l, r := s[n-1], s[n-2]
	if l.Kind != KindFloat || r.Kind != KindFloat {
		return errors.New(errors.VM001, errors.Location{}, "expected fully evaluated Double operands, found kinds %d and %d", l.Kind, r.Kind)
	}
	*stack = append(s[:n-2], f(l.FloatValue, r.FloatValue))
	return nil
}
