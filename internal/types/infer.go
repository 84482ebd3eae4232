package types

import (
	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/graph"
)

// Scope is one lexical nesting level of the type checker: a Lambda body, a
// Let's bindings+body, or a Case alternative's pattern bindings. Scopes form
// an explicit parent chain rather than mutating and restoring a single flat
// table, so exiting a scope is simply discarding it, with nothing to undo.
type Scope struct {
	env        *Env
	parent     *Scope
	locals     map[string]*ast.Type
	nonGeneric []*ast.Type
}

// NewScope creates the outermost scope for a checking session.
func NewScope(env *Env) *Scope {
	return &Scope{env: env, locals: make(map[string]*ast.Type)}
}

func (s *Scope) child() *Scope {
	return &Scope{env: s.env, parent: s, locals: make(map[string]*ast.Type)}
}

func (s *Scope) insert(name string, typ *ast.Type) {
	s.locals[name] = typ
}

// find walks the scope chain outward, then falls back to the global Env.
func (s *Scope) find(name string) *ast.Type {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.locals[name]; ok {
			return t
		}
	}
	return s.env.Find(name)
}

// isGeneric reports whether v is free to be instantiated independently at
// each use site, i.e. it does not occur in any type marked non-generic by
// an enclosing scope.
func (s *Scope) isGeneric(v ast.TypeVariable) bool {
	for sc := s; sc != nil; sc = sc.parent {
		for _, t := range sc.nonGeneric {
			if Occurs(v, t) {
				return false
			}
		}
	}
	return true
}

// fresh instantiates a new copy of name's type with every generic variable
// replaced by a fresh one (same old variable maps to the same fresh
// variable within one freshen), or returns nil if name is undefined.
func (s *Scope) fresh(name string) *ast.Type {
	typ := s.find(name)
	if typ == nil {
		return nil
	}
	mapping := make(map[ast.TypeVariable]*ast.Type)
	return s.freshen(mapping, typ)
}

func (s *Scope) freshen(mapping map[ast.TypeVariable]*ast.Type, typ *ast.Type) *ast.Type {
	if typ.IsVar {
		if !s.isGeneric(typ.Var) {
			return ast.NewVar(typ.Var)
		}
		if existing, ok := mapping[typ.Var]; ok {
			return existing.Clone()
		}
		fresh := s.env.NewVar()
		for _, c := range s.env.ConstraintsOf(typ.Var) {
			s.env.Constrain(fresh.Var, c)
		}
		mapping[typ.Var] = fresh
		return fresh.Clone()
	}
	args := make([]*ast.Type, len(typ.Args))
	for i, a := range typ.Args {
		args[i] = s.freshen(mapping, a)
	}
	return ast.NewOp(typ.Op, args...)
}

// applySubstitution refreshes every type stored in the visible scope chain
// and the global Env, so that the next fresh() call off of any of them
// instantiates from the up-to-date type (substitution is applied in place,
// mutating the stored type structures).
func (s *Scope) applySubstitution(subs *Substitution) {
	for _, typ := range s.env.namedTypes {
		Replace(s.env, subs, typ)
	}
	for sc := s; sc != nil; sc = sc.parent {
		for _, typ := range sc.locals {
			Replace(s.env, subs, typ)
		}
	}
}

// TypecheckExpr type-checks a single closed expression (the entry point
// used by the REPL, where there is no enclosing module).
func TypecheckExpr(env *Env, expr ast.Expr) error {
	scope := NewScope(env)
	subs := NewSubstitution()
	if err := scope.typecheckExpr(subs, expr); err != nil {
		return err
	}
	Replace(env, subs, expr.Type())
	return nil
}

func (s *Scope) typecheckExpr(subs *Substitution, expr ast.Expr) error {
	if expr.Type() == nil {
		expr.SetType(s.env.NewVar())
	}

	switch e := expr.(type) {
	case *ast.NumberLit:
		s.env.Constrain(e.Type().Var, "Num")
		return nil

	case *ast.RationalLit:
		s.env.Constrain(e.Type().Var, "Fractional")
		return nil

	case *ast.StringLit:
		e.SetType(ast.ListType(ast.NewOp("Char")))
		return nil

	case *ast.CharLit:
		e.SetType(ast.NewOp("Char"))
		return nil

	case *ast.Identifier:
		t := s.fresh(e.Name)
		if t == nil {
			return errors.New(errors.TYP001, e.Loc(), "undefined identifier %q", e.Name)
		}
		e.SetType(t)
		return nil

	case *ast.Apply:
		return s.typecheckApply(subs, e)

	case *ast.Lambda:
		return s.typecheckLambda(subs, e)

	case *ast.Let:
		return s.typecheckLet(subs, e)

	case *ast.Case:
		return s.typecheckCase(subs, e)

	default:
		return errors.New(errors.TYP002, expr.Loc(), "unsupported expression node %T", expr)
	}
}

func (s *Scope) typecheckApply(subs *Substitution, e *ast.Apply) error {
	if err := s.typecheckExpr(subs, e.Func); err != nil {
		return err
	}
	Replace(s.env, subs, e.Func.Type())
	if err := s.typecheckExpr(subs, e.Arg); err != nil {
		return err
	}
	Replace(s.env, subs, e.Arg.Type())

	result := s.env.NewVar()
	funcType := ast.FunctionType(e.Arg.Type(), result)
	if err := Unify(s.env, subs, e.Loc(), e.Func.Type(), funcType); err != nil {
		return err
	}
	Replace(s.env, subs, funcType)
	e.SetType(funcType.Codomain())
	return nil
}

func (s *Scope) typecheckLambda(subs *Substitution, e *ast.Lambda) error {
	argType := s.env.NewVar()
	e.SetType(ast.FunctionType(argType, s.env.NewVar()))

	child := s.child()
	child.insert(e.Param, argType)
	child.nonGeneric = append(child.nonGeneric, argType)
	if err := child.typecheckExpr(subs, e.Body); err != nil {
		return err
	}

	Replace(s.env, subs, e.Type())
	e.Type().Args[1] = e.Body.Type().Clone()
	return nil
}

func (s *Scope) typecheckLet(subs *Substitution, e *ast.Let) error {
	child := s.child()
	if err := child.typecheckBindingGroup(subs, e.Bindings); err != nil {
		return err
	}
	child.applySubstitution(subs)
	if err := child.typecheckExpr(subs, e.Body); err != nil {
		return err
	}
	Replace(s.env, subs, e.Body.Type())
	e.SetType(e.Body.Type().Clone())
	return nil
}

func (s *Scope) typecheckCase(subs *Substitution, e *ast.Case) error {
	if err := s.typecheckExpr(subs, e.Scrutinee); err != nil {
		return err
	}
	if len(e.Alternatives) == 0 {
		return errors.New(errors.TYP002, e.Loc(), "case expression has no alternatives")
	}

	first := &e.Alternatives[0]
	firstScope := s.child()
	if err := firstScope.typecheckPattern(subs, first.Pattern.Loc(), first.Pattern, e.Scrutinee.Type()); err != nil {
		return err
	}
	if err := firstScope.typecheckExpr(subs, first.Expression); err != nil {
		return err
	}
	resultType := first.Expression.Type().Clone()

	for i := 1; i < len(e.Alternatives); i++ {
		alt := &e.Alternatives[i]
		altScope := s.child()
		if err := altScope.typecheckPattern(subs, alt.Pattern.Loc(), alt.Pattern, e.Scrutinee.Type()); err != nil {
			return err
		}
		if err := altScope.typecheckExpr(subs, alt.Expression); err != nil {
			return err
		}
		if err := Unify(s.env, subs, alt.Expression.Loc(), resultType, alt.Expression.Type()); err != nil {
			return err
		}
		Replace(s.env, subs, alt.Expression.Type())
	}
	Replace(s.env, subs, first.Expression.Type())
	Replace(s.env, subs, e.Scrutinee.Type())
	e.SetType(resultType)
	return nil
}

func (s *Scope) typecheckPattern(subs *Substitution, loc errors.Location, pattern ast.Pattern, matchType *ast.Type) error {
	switch p := pattern.(type) {
	case ast.IdentifierPattern:
		typ := s.env.NewVar()
		if err := Unify(s.env, subs, loc, typ, matchType); err != nil {
			return err
		}
		Replace(s.env, subs, matchType)
		Replace(s.env, subs, typ)
		s.insert(p.Name, typ)
		s.nonGeneric = append(s.nonGeneric, typ)
		return nil

	case ast.NumberPattern:
		typ := ast.NewOp("Int")
		if err := Unify(s.env, subs, loc, typ, matchType); err != nil {
			return err
		}
		Replace(s.env, subs, matchType)
		return nil

	case ast.ConstructorPattern:
		ctorType := s.fresh(p.Name)
		if ctorType == nil {
			return errors.New(errors.TYP001, loc, "undefined constructor %q", p.Name)
		}
		dataType := returnType(ctorType)
		if err := Unify(s.env, subs, loc, dataType, matchType); err != nil {
			return err
		}
		Replace(s.env, subs, matchType)
		Replace(s.env, subs, ctorType)
		return s.typecheckPatternArgs(subs, loc, p.Patterns, ctorType)

	default:
		return errors.New(errors.TYP002, loc, "unsupported pattern node %T", pattern)
	}
}

func (s *Scope) typecheckPatternArgs(subs *Substitution, loc errors.Location, patterns []ast.Pattern, funcType *ast.Type) error {
	if len(patterns) == 0 {
		return nil
	}
	if !funcType.IsFunction() {
		return errors.New(errors.TYP002, loc, "constructor applied to too many arguments")
	}
	if err := s.typecheckPattern(subs, loc, patterns[0], funcType.Domain()); err != nil {
		return err
	}
	return s.typecheckPatternArgs(subs, loc, patterns[1:], funcType.Codomain())
}

// returnType walks through a curried function type's arrows to find its
// final result type (used to recover a constructor's data type from its
// curried argument type).
func returnType(t *ast.Type) *ast.Type {
	if t.IsFunction() {
		return returnType(t.Codomain())
	}
	return t
}

// typecheckBindingGroup checks a set of mutually-recursive bindings: build
// the reference graph, order by strongly connected component, and process
// each component as a unit.
func (s *Scope) typecheckBindingGroup(subs *Substitution, bindings []*ast.Binding) error {
	g := graph.New[int]()
	index := make(map[string]graph.VertexIndex, len(bindings))
	for i, b := range bindings {
		index[b.Name] = g.NewVertex(i)
	}
	for _, b := range bindings {
		addReferenceEdges(g, index, index[b.Name], b.Expression)
	}

	for _, group := range graph.StronglyConnectedComponents(g) {
		// Every binding in the group is mutually visible to every other
		// (including itself) and stays non-generic for the whole group, so
		// a recursive reference cannot be instantiated independently of the
		// use being type-checked right now.
		nonGenericBase := len(s.nonGeneric)
		for _, vIdx := range group {
			b := bindings[g.Value(vIdx)]
			b.Expression.SetType(s.env.NewVar())
			s.insert(b.Name, b.Expression.Type())
			if b.TypeDecl.Type == nil {
				b.TypeDecl.Type = s.env.NewVar()
			}
			s.nonGeneric = append(s.nonGeneric, b.Expression.Type())
		}

		for _, vIdx := range group {
			b := bindings[g.Value(vIdx)]
			typeVar := b.Expression.Type().Var
			if err := s.typecheckExpr(subs, b.Expression); err != nil {
				return err
			}
			if err := Unify(s.env, subs, b.Expression.Loc(), b.TypeDecl.Type, b.Expression.Type()); err != nil {
				return err
			}
			Replace(s.env, subs, b.Expression.Type())
			subs.bind(typeVar, b.Expression.Type().Clone())
			s.applySubstitution(subs)
		}

		s.nonGeneric = s.nonGeneric[:nonGenericBase]
		for _, vIdx := range group {
			b := bindings[g.Value(vIdx)]
			Replace(s.env, subs, b.Expression.Type())
			b.TypeDecl.Type = b.Expression.Type().Clone()
			b.TypeDecl.Context = s.env.FindConstraints(b.TypeDecl.Type)
			b.TypeDecl.Name = b.Name
		}
	}
	return nil
}

// addReferenceEdges adds an edge from `from` to whichever binding vertex a
// referenced Identifier names, recursing through every expression form that
// can contain a reference.
func addReferenceEdges(g *graph.Graph[int], index map[string]graph.VertexIndex, from graph.VertexIndex, expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if to, ok := index[e.Name]; ok {
			g.Connect(from, to)
		}
	case *ast.Apply:
		addReferenceEdges(g, index, from, e.Func)
		addReferenceEdges(g, index, from, e.Arg)
	case *ast.Lambda:
		addReferenceEdges(g, index, from, e.Body)
	case *ast.Let:
		for _, b := range e.Bindings {
			addReferenceEdges(g, index, from, b.Expression)
		}
		addReferenceEdges(g, index, from, e.Body)
	case *ast.Case:
		addReferenceEdges(g, index, from, e.Scrutinee)
		for _, alt := range e.Alternatives {
			addReferenceEdges(g, index, from, alt.Expression)
		}
	}
}
