package types

import "github.com/thunklang/thunk/internal/ast"

// isDefaultableNumericLiteral implements the numeric-literal fallback in
// the Var-Op unification case: a variable carrying only class Num may still
// unify with Int or Double even with no registered instance, and a
// variable carrying only Fractional may unify with Double. Every other
// class requires a real registered instance.
func isDefaultableNumericLiteral(class string, op ast.TypeOperator, arity int) bool {
	if arity != 0 {
		return false
	}
	switch class {
	case "Num":
		return op == "Int" || op == "Double"
	case "Fractional":
		return op == "Double"
	default:
		return false
	}
}
