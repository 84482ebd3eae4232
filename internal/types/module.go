package types

import (
	"strings"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
)

// TypecheckModule type-checks an entire module in a fixed order: data
// definitions first (so constructors are in scope
// everywhere), then classes (so method signatures are in scope), then
// instances (so their dictionaries can reference other instances), then
// free-standing type declarations are matched up with their bindings, and
// finally every top-level binding is checked as one big mutually-recursive
// binding group ordered by strongly-connected component.
func TypecheckModule(env *Env, mod *ast.Module) error {
	for _, data := range mod.DataDefinitions {
		for _, ctor := range data.Constructors {
			env.Bind(ctor.Name, ctor.Type)
		}
	}

	for _, class := range mod.Classes {
		for _, decl := range class.Declarations {
			env.Constrain(class.Variable, class.Name)
			env.Bind(decl.Name, decl.Type)
		}
	}

	subs := NewSubstitution()
	scope := NewScope(env)

	for _, inst := range mod.Instances {
		if err := typecheckInstance(scope, subs, mod, inst); err != nil {
			return err
		}
	}

	declByName := make(map[string]*ast.TypeDeclaration, len(mod.TypeDeclarations))
	for _, decl := range mod.TypeDeclarations {
		declByName[decl.Name] = decl
	}
	bound := make(map[string]bool, len(mod.Bindings))
	for _, b := range mod.Bindings {
		bound[b.Name] = true
		if decl, ok := declByName[b.Name]; ok {
			b.TypeDecl = decl.Clone()
		}
	}
	for _, decl := range mod.TypeDeclarations {
		if !bound[decl.Name] {
			return errors.New(errors.TYP005, errors.Location{},
				"type declaration for %q has no matching binding", decl.Name)
		}
	}

	if err := scope.typecheckBindingGroup(subs, mod.Bindings); err != nil {
		return err
	}
	for _, b := range mod.Bindings {
		env.Bind(b.Name, b.TypeDecl.Type)
	}
	return nil
}

// typecheckInstance checks one `instance C T where ...` block: each method
// body is checked against the class's declared signature with the class's
// type variable replaced by the instance's concrete type, carrying the
// instance's own constraints forward as the expected context. Instance
// binding names arrive already mangled ("#<Thead><method>", assigned by the
// parser), so the class declaration is found by stripping that prefix.
func typecheckInstance(scope *Scope, subs *Substitution, mod *ast.Module, inst *ast.Instance) error {
	scope.env.RegisterInstance(inst.ClassName, inst.Type, inst.Constraints)

	var class *ast.Class
	for _, c := range mod.Classes {
		if c.Name == inst.ClassName {
			class = c
			break
		}
	}
	if class == nil {
		// The class lives in a previously-checked module, so its method
		// declarations are not at hand: the bodies are still type-checked
		// (every identifier they use resolves through the global table),
		// but without the method signature as their expected type.
		return scope.child().typecheckBindingGroup(subs, inst.Bindings)
	}

	declByName := make(map[string]*ast.TypeDeclaration, len(class.Declarations))
	for _, decl := range class.Declarations {
		declByName[decl.Name] = decl
	}
	prefix := ast.MangleInstanceMethod(ast.HeadName(inst.Type), "")
	for _, b := range inst.Bindings {
		decl, ok := declByName[strings.TrimPrefix(b.Name, prefix)]
		if !ok {
			continue
		}
		expected := substituteVar(decl.Type, class.Variable, inst.Type)
		b.TypeDecl = ast.TypeDeclaration{Name: b.Name, Type: expected, Context: inst.Constraints}
	}

	instScope := scope.child()
	return instScope.typecheckBindingGroup(subs, inst.Bindings)
}

// substituteVar returns a clone of t with every occurrence of v replaced by
// with (a plain structural substitution, not unification, used to
// instantiate a class method signature at a concrete instance type).
func substituteVar(t *ast.Type, v ast.TypeVariable, with *ast.Type) *ast.Type {
	if t.IsVar {
		if t.Var == v {
			return with.Clone()
		}
		return t.Clone()
	}
	args := make([]*ast.Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = substituteVar(a, v, with)
	}
	return ast.NewOp(t.Op, args...)
}
