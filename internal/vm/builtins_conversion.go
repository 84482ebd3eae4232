package vm

import "github.com/thunklang/thunk/internal/errors"

// convert implements IntToDouble/DoubleToInt: pop one evaluated node of the
// expected kind, push f applied to it.
func convert(stack *[]*Node, kind Kind, f func(*Node) *Node) error {
	s := *stack
	n := len(s)
	if n < 1 {
		return errors.New(errors.VM001, errors.Location{}, "conversion instruction needs one operand, found %d", n)
	}
	top := s[n-1]
	if top.Kind != kind {
		return errors.New(errors.VM001, errors.Location{}, "expected operand of kind %d, found %d", kind, top.Kind)
	}
	*stack = append(s[:n-1], f(top))
	return nil
}
