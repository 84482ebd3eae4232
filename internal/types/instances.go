package types

import "github.com/thunklang/thunk/internal/ast"

// HasInstance reports whether typ (a concrete, fully-applied type operator)
// has a registered instance of class. A direct head-name match succeeds
// immediately; a head registered with its own constraints (e.g.
// "instance Eq a => Eq [a]") additionally requires that every one of those
// constraints holds for the corresponding argument of typ.
func (e *Env) HasInstance(class string, typ *ast.Type) bool {
	if typ.IsVar {
		return false
	}
	for _, inst := range e.instances {
		if inst.Class != class || inst.Head.IsVar || inst.Head.Op != typ.Op || len(inst.Head.Args) != len(typ.Args) {
			continue
		}
		if len(inst.Constraints) == 0 {
			return true
		}
		if e.checkInstanceConstraints(inst.Constraints, inst.Head.Args, typ.Args) {
			return true
		}
	}
	return false
}

// checkInstanceConstraints verifies every constraint of a parametrized
// instance holds for the type actually supplied in the matching position.
// A position still occupied by a type variable satisfies the constraint by
// acquiring it (constraint propagation is monotone; once a variable carries
// a class, no later step removes it): whatever the variable later becomes
// must then satisfy the class itself.
func (e *Env) checkInstanceConstraints(constraints []ast.Constraint, headArgs, actualArgs []*ast.Type) bool {
	for _, c := range constraints {
		pos := -1
		for i, headArg := range headArgs {
			if headArg.IsVar && headArg.Var == c.Var {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}
		actual := actualArgs[pos]
		if actual.IsVar {
			e.Constrain(actual.Var, c.Class)
			continue
		}
		if !e.HasInstance(c.Class, actual) {
			return false
		}
	}
	return true
}
