package compiler

import (
	"github.com/thunklang/thunk/internal/ast"
)

// freeVars collects, into out, every Identifier name expr references that
// isn't bound within expr itself (bound starts as whatever is already
// shadowed at the point expr occurs; freeVars extends it when descending
// into a Lambda, Let, or Case alternative).
func freeVars(expr ast.Expr, bound map[string]bool, out map[string]bool) {
	switch n := expr.(type) {
	case *ast.Identifier:
		if !bound[n.Name] {
			out[n.Name] = true
		}
	case *ast.Apply:
		freeVars(n.Func, bound, out)
		freeVars(n.Arg, bound, out)
	case *ast.Lambda:
		child := cloneBound(bound)
		child[n.Param] = true
		freeVars(n.Body, child, out)
	case *ast.Let:
		child := cloneBound(bound)
		for _, b := range n.Bindings {
			child[b.Name] = true
		}
		for _, b := range n.Bindings {
			freeVars(b.Expression, child, out)
		}
		freeVars(n.Body, child, out)
	case *ast.Case:
		freeVars(n.Scrutinee, bound, out)
		for _, alt := range n.Alternatives {
			child := cloneBound(bound)
			bindPatternNames(alt.Pattern, child)
			freeVars(alt.Expression, child, out)
		}
	case *ast.NumberLit, *ast.RationalLit, *ast.StringLit, *ast.CharLit:
		// no sub-expressions.
	}
}

// bindPatternNames adds every name a pattern binds to bound, so a
// subsequent freeVars walk over the alternative's body treats them as
// shadowed rather than free.
func bindPatternNames(pat ast.Pattern, bound map[string]bool) {
	switch p := pat.(type) {
	case ast.IdentifierPattern:
		bound[p.Name] = true
	case ast.ConstructorPattern:
		for _, sub := range p.Patterns {
			bindPatternNames(sub, bound)
		}
	case ast.NumberPattern:
		// binds nothing.
	}
}

func cloneBound(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// countLambdas counts the contiguous Lambda layers at the head of e, the
// curried-parameter count a first-class lambda (or a Let binding's RHS) is
// lifted with.
func countLambdas(e ast.Expr) int {
	n := 0
	for {
		lam, ok := e.(*ast.Lambda)
		if !ok {
			return n
		}
		n++
		e = lam.Body
	}
}
