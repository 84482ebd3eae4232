// Package ast defines the data model shared by every stage of the thunk
// pipeline: types, patterns, expressions, and module-level declarations.
// Every Expr carries its own inferred Type and source Location, so a single
// tree serves as both the parser's output and the type checker's output;
// there is no separate untyped/typed AST split.
package ast

import (
	"fmt"
	"strings"
)

// TypeVariable identifies a type variable by a signed integer id. Ids are
// allocated strictly increasing (from 1) by a TypeEnvironment's
// fresh-variable counter; negative ids are used for the type variables of
// built-in signatures, for source-level type variables allocated by the
// parser, and by hand-written fixtures/tests.
type TypeVariable int

// TypeOperator names a type constructor applied to an ordered list of
// arguments (carried on the owning Type, not here), e.g. "Int", "->",
// "[]", "(,)", "Maybe". Operators compare by name and by the arity of the
// argument list they were applied to.
type TypeOperator string

// Well-known operator names.
const (
	OpFunction = "->"
	OpList     = "[]"
)

// TupleOperator returns the constructor name for an n-tuple, e.g. "(,)" for
// a pair and "(,,)" for a triple. Arity 0 and 1 have no comma.
func TupleOperator(arity int) string {
	if arity == 0 {
		return "()"
	}
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i < arity; i++ {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

// Type is a recursive structure: either a type variable or a type operator
// applied to an ordered list of Type arguments. Two Types unify iff they are
// structurally equal after substitution (see internal/types for
// unification).
type Type struct {
	// Var is the variable this Type represents, valid only when IsVar.
	Var TypeVariable
	// Op is the operator name this Type represents, valid only when !IsVar.
	Op TypeOperator
	// Args are the operator's argument types. Empty for a bare variable or
	// a nullary operator (e.g. "Int").
	Args  []*Type
	IsVar bool
}

// NewVar constructs a bare type-variable Type.
func NewVar(id TypeVariable) *Type {
	return &Type{IsVar: true, Var: id}
}

// NewOp constructs a type-operator Type applied to args.
func NewOp(name TypeOperator, args ...*Type) *Type {
	return &Type{IsVar: false, Op: name, Args: args}
}

// FunctionType builds the operator-"->" type `from -> to`.
func FunctionType(from, to *Type) *Type {
	return NewOp(OpFunction, from, to)
}

// ListType builds `[elem]`.
func ListType(elem *Type) *Type {
	return NewOp(OpList, elem)
}

// IsFunction reports whether t is a "->" application.
func (t *Type) IsFunction() bool {
	return !t.IsVar && t.Op == OpFunction && len(t.Args) == 2
}

// Domain returns the argument type of a function type; panics otherwise.
func (t *Type) Domain() *Type { return t.Args[0] }

// Codomain returns the result type of a function type; panics otherwise.
func (t *Type) Codomain() *Type { return t.Args[1] }

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	if t.IsVar {
		return NewVar(t.Var)
	}
	args := make([]*Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.Clone()
	}
	return &Type{Op: t.Op, Args: args}
}

// Equal reports structural equality without consulting any substitution.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.IsVar != other.IsVar {
		return false
	}
	if t.IsVar {
		return t.Var == other.Var
	}
	if t.Op != other.Op || len(t.Args) != len(other.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	if t.IsVar {
		return fmt.Sprintf("t%d", t.Var)
	}
	if t.IsFunction() {
		return fmt.Sprintf("(%s -> %s)", t.Args[0], t.Args[1])
	}
	if len(t.Args) == 0 {
		return string(t.Op)
	}
	if t.Op == OpList && len(t.Args) == 1 {
		return fmt.Sprintf("[%s]", t.Args[0])
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", t.Op, strings.Join(parts, " "))
}

// Constraint states that variable Var must belong to class Class. Only one
// variable per constraint is supported (multi-parameter classes are out of
// scope).
type Constraint struct {
	Class string
	Var   TypeVariable
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s t%d", c.Class, c.Var)
}

// TypeDeclaration is a standalone or class-member type signature.
type TypeDeclaration struct {
	Name    string
	Type    *Type
	Context []Constraint
}

func (d TypeDeclaration) Clone() TypeDeclaration {
	ctx := make([]Constraint, len(d.Context))
	copy(ctx, d.Context)
	return TypeDeclaration{Name: d.Name, Type: d.Type.Clone(), Context: ctx}
}
