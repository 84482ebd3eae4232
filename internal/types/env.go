// Package types implements the Hindley–Milner type inference engine: the
// type environment, unification, type-class constraint propagation, and
// mutually-recursive binding-group inference ordered by strongly-connected
// components.
package types

import (
	"strconv"

	"github.com/thunklang/thunk/internal/ast"
)

// instanceEntry is a registered instance head, optionally itself
// constrained (e.g. "instance Eq a => Eq [a]" has one constraint, "Eq a",
// whose variable is positionally matched against Head.Args when checking
// whether a concrete type satisfies it).
type instanceEntry struct {
	Class       string
	Head        *ast.Type
	Constraints []ast.Constraint
}

// Env owns the global symbol table, the constraint map keyed by type
// variable, and the list of registered instances for one checking session.
// A Prelude-style module can be checked first and folded in with Import so
// later modules see its bindings, classes and instances.
type Env struct {
	namedTypes  map[string]*ast.Type
	constraints map[ast.TypeVariable][]string
	instances   []instanceEntry
	variableIdx ast.TypeVariable
}

// NewEnv creates an Env pre-populated with the primitive globals:
// prim<T>{Add,Subtract,Multiply,Divide,Remainder,EQ,LT,LE,GT,GE} for T in
// {Int, Double}, primIntToDouble/primDoubleToInt, list constructors
// "[]"/":", tuple constructors "(,...)" for arity 0..9, and the Bool
// constructors True/False that comparisons evaluate to.
func NewEnv() *Env {
	e := &Env{
		namedTypes:  make(map[string]*ast.Type),
		constraints: make(map[ast.TypeVariable][]string),
	}
	addPrimitives(e.namedTypes, "Int")
	addPrimitives(e.namedTypes, "Double")
	e.namedTypes["primIntToDouble"] = ast.FunctionType(ast.NewOp("Int"), ast.NewOp("Double"))
	e.namedTypes["primDoubleToInt"] = ast.FunctionType(ast.NewOp("Double"), ast.NewOp("Int"))

	elem := ast.NewVar(-10)
	list := ast.ListType(elem)
	e.namedTypes["[]"] = list.Clone()
	e.namedTypes[":"] = ast.FunctionType(elem.Clone(), ast.FunctionType(list.Clone(), list.Clone()))

	boolType := ast.NewOp("Bool")
	e.namedTypes["True"] = boolType.Clone()
	e.namedTypes["False"] = boolType.Clone()

	for arity := 0; arity < 10; arity++ {
		name, typ := tupleConstructorType(arity)
		e.namedTypes[name] = typ
	}

	// negate backs the parser's unary-minus desugaring (a missing left
	// operand on `-` becomes an application of negate); it has the natural
	// Num-constrained signature a -> a, freshened per use like any other
	// polymorphic global.
	negateVar := ast.TypeVariable(-20)
	e.Constrain(negateVar, "Num")
	e.namedTypes["negate"] = ast.FunctionType(ast.NewVar(negateVar), ast.NewVar(negateVar))
	return e
}

func addPrimitives(globals map[string]*ast.Type, typeName ast.TypeOperator) {
	typ := ast.NewOp(typeName)
	binop := ast.FunctionType(typ.Clone(), ast.FunctionType(typ.Clone(), typ.Clone()))
	for _, suffix := range []string{"Add", "Subtract", "Multiply", "Divide", "Remainder"} {
		globals["prim"+string(typeName)+suffix] = binop.Clone()
	}
	boolType := ast.NewOp("Bool")
	cmp := ast.FunctionType(typ.Clone(), ast.FunctionType(typ.Clone(), boolType))
	for _, suffix := range []string{"EQ", "LT", "LE", "GT", "GE"} {
		globals["prim"+string(typeName)+suffix] = cmp.Clone()
	}
}

// tupleConstructorType builds the curried constructor type for an n-tuple,
// e.g. arity 2 -> t0 -> t1 -> (,) t0 t1. Variable ids are negative so they
// can never collide with the strictly positive ids NewVar hands out during
// inference (a collision would wrongly block freshening whenever the
// matching positive id is non-generic in some scope).
func tupleConstructorType(arity int) (string, *ast.Type) {
	vars := make([]*ast.Type, arity)
	for i := 0; i < arity; i++ {
		vars[i] = ast.NewVar(ast.TypeVariable(-100 - i))
	}
	name := ast.TupleOperator(arity)
	result := ast.NewOp(ast.TypeOperator(name), vars...)
	typ := result
	for i := arity - 1; i >= 0; i-- {
		typ = ast.FunctionType(vars[i].Clone(), typ)
	}
	return name, typ
}

// NewVar allocates a fresh type variable with an id strictly larger than
// any previously allocated by this Env.
func (e *Env) NewVar() *ast.Type {
	e.variableIdx++
	return ast.NewVar(e.variableIdx)
}

// Bind installs name : typ into the global table, overwriting any previous
// binding (used by module-level registration of constructors, class
// methods and checked bindings; scope-local names never go through it).
func (e *Env) Bind(name string, typ *ast.Type) {
	e.namedTypes[name] = typ
}

// Find looks up name's type, or nil if undefined.
func (e *Env) Find(name string) *ast.Type {
	return e.namedTypes[name]
}

// Constrain records that v must belong to class, accumulating if v already
// carries other constraints. Constraint propagation is monotone: this never
// removes a class already recorded for v.
func (e *Env) Constrain(v ast.TypeVariable, class string) {
	for _, c := range e.constraints[v] {
		if c == class {
			return
		}
	}
	e.constraints[v] = append(e.constraints[v], class)
}

// ConstraintsOf returns the class names v must belong to.
func (e *Env) ConstraintsOf(v ast.TypeVariable) []string {
	return e.constraints[v]
}

// SetConstraints overwrites v's constraint list wholesale; an empty list
// removes v's entry.
func (e *Env) SetConstraints(v ast.TypeVariable, classes []string) {
	if len(classes) == 0 {
		delete(e.constraints, v)
		return
	}
	e.constraints[v] = classes
}

// RegisterInstance records a (possibly itself-constrained) instance head so
// later unification can find it via HasInstance.
func (e *Env) RegisterInstance(class string, head *ast.Type, constraints []ast.Constraint) {
	e.instances = append(e.instances, instanceEntry{Class: class, Head: head, Constraints: constraints})
}

// Import folds a previously-checked Env's globals, constraints and
// instances into e, so that e's bindings can reference names the imported
// Env defined. This is intentionally a flat merge: there is no module
// system, so there is no namespacing to preserve.
func (e *Env) Import(other *Env) {
	for name, typ := range other.namedTypes {
		if _, exists := e.namedTypes[name]; !exists {
			e.namedTypes[name] = typ
		}
	}
	for v, classes := range other.constraints {
		for _, c := range classes {
			e.Constrain(v, c)
		}
	}
	e.instances = append(e.instances, other.instances...)
	if other.variableIdx > e.variableIdx {
		e.variableIdx = other.variableIdx
	}
}

// FindConstraints collects, for every type variable occurring in typ, the
// constraints recorded for it in e: the minimal context a binding's
// inferred type carries forward after its group is generalized.
func (e *Env) FindConstraints(typ *ast.Type) []ast.Constraint {
	var result []ast.Constraint
	seen := make(map[string]bool)
	var walk func(*ast.Type)
	walk = func(t *ast.Type) {
		if t.IsVar {
			for _, class := range e.constraints[t.Var] {
				key := class + "@" + strconv.Itoa(int(t.Var))
				if !seen[key] {
					seen[key] = true
					result = append(result, ast.Constraint{Class: class, Var: t.Var})
				}
			}
			return
		}
		for _, arg := range t.Args {
			walk(arg)
		}
	}
	walk(typ)
	return result
}
