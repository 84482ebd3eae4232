package types

import (
	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
)

// Unify attempts to make lhs and rhs the same type, mutating both in place
// and recording the resulting bindings in subs. On success, subs.subs is
// also re-normalized so every recorded substitution reflects the latest
// bindings (mirroring the reference implementation's pass over subs after
// each top-level unify). Errors carry loc so callers never need to
// re-thread location information themselves.
//
// Unification is symmetric: Unify(a,b) and Unify(b,a) succeed or fail
// identically, because the Op-Var case swaps its operands and is handled
// as Var-Op (see the "swap" case below).
func Unify(env *Env, subs *Substitution, loc errors.Location, lhs, rhs *ast.Type) error {
	if err := unify(env, subs, loc, lhs, rhs); err != nil {
		return err
	}
	normalized := &Substitution{subs: subs.subs, constraints: subs.constraints}
	for _, typ := range subs.subs {
		Replace(env, normalized, typ)
	}
	return nil
}

func unify(env *Env, subs *Substitution, loc errors.Location, lhs, rhs *ast.Type) error {
	switch {
	case lhs.IsVar && rhs.IsVar:
		return unifyVarVar(env, subs, lhs, rhs)
	case !lhs.IsVar && !rhs.IsVar:
		return unifyOpOp(env, subs, loc, lhs, rhs)
	case lhs.IsVar && !rhs.IsVar:
		return unifyVarOp(env, subs, loc, lhs, rhs)
	default: // !lhs.IsVar && rhs.IsVar: symmetric retry, swapped
		return unify(env, subs, loc, rhs, lhs)
	}
}

func unifyVarVar(env *Env, subs *Substitution, lhs, rhs *ast.Type) error {
	if lhs.Var == rhs.Var {
		return nil
	}
	replacement := ast.NewVar(rhs.Var)
	Replace(env, subs, replacement)
	subs.updateConstraints(env, lhs.Var, replacement)
	subs.bind(lhs.Var, replacement)
	return nil
}

func unifyOpOp(env *Env, subs *Substitution, loc errors.Location, lhs, rhs *ast.Type) error {
	if lhs.Op != rhs.Op || len(lhs.Args) != len(rhs.Args) {
		return errors.New(errors.TYP002, loc,
			"could not unify types %s and %s", lhs, rhs)
	}
	for i := range lhs.Args {
		if err := unify(env, subs, loc, lhs.Args[i], rhs.Args[i]); err != nil {
			return err
		}
		if i < len(lhs.Args)-1 {
			Replace(env, subs, lhs.Args[i+1])
			Replace(env, subs, rhs.Args[i+1])
		}
	}
	return nil
}

func unifyVarOp(env *Env, subs *Substitution, loc errors.Location, lhs, rhs *ast.Type) error {
	if Occurs(lhs.Var, rhs) {
		return errors.New(errors.TYP003, loc,
			"recursive unification between %s and %s", lhs, rhs)
	}

	if len(lhs.Args) == 0 {
		replacement := rhs.Clone()
		Replace(env, subs, replacement)
		subs.updateConstraints(env, lhs.Var, replacement)
		subs.bind(lhs.Var, replacement)
	} else {
		if len(lhs.Args) != len(rhs.Args) {
			return errors.New(errors.TYP002, loc,
				"types do not have the same arity: %s and %s", lhs, rhs)
		}
		head := ast.NewOp(rhs.Op)
		Replace(env, subs, head)
		subs.bind(lhs.Var, head)
		for i := range lhs.Args {
			if err := unify(env, subs, loc, lhs.Args[i], rhs.Args[i]); err != nil {
				return err
			}
			if i < len(lhs.Args)-1 {
				Replace(env, subs, lhs.Args[i+1])
				Replace(env, subs, rhs.Args[i+1])
			}
		}
	}

	// Every class the variable carried must now be satisfied by the
	// concrete operator it was bound to (numeric-literal defaulting for
	// Num/Fractional aside).
	for _, class := range env.ConstraintsOf(lhs.Var) {
		if env.HasInstance(class, rhs) {
			continue
		}
		if isDefaultableNumericLiteral(class, rhs.Op, len(rhs.Args)) {
			continue
		}
		return errors.New(errors.TYP004, loc,
			"no instance %s %s found, required by t%d when unifying %s and %s",
			class, rhs.Op, lhs.Var, lhs, rhs)
	}
	return nil
}
