package types

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
)

func TestOccurs(t *testing.T) {
	v := ast.TypeVariable(1)
	assert.True(t, Occurs(v, ast.NewVar(1)))
	assert.True(t, Occurs(v, ast.FunctionType(ast.NewOp("Int"), ast.ListType(ast.NewVar(1)))))
	assert.False(t, Occurs(v, ast.FunctionType(ast.NewVar(2), ast.NewOp("Int"))))
}

func TestUnifyOccursCheckFails(t *testing.T) {
	env := NewEnv()
	subs := NewSubstitution()
	v := env.NewVar()
	list := ast.ListType(v.Clone())
	err := Unify(env, subs, errors.Location{}, v, list)
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.TYP003)
}

func TestUnifyNameMismatchFails(t *testing.T) {
	env := NewEnv()
	subs := NewSubstitution()
	err := Unify(env, subs, errors.Location{}, ast.NewOp("Int"), ast.NewOp("Double"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.TYP002)
}

func TestUnifyArityMismatchFails(t *testing.T) {
	env := NewEnv()
	subs := NewSubstitution()
	err := Unify(env, subs, errors.Location{},
		ast.NewOp("Pair", ast.NewOp("Int")),
		ast.NewOp("Pair", ast.NewOp("Int"), ast.NewOp("Int")))
	require.Error(t, err)
}

func TestUnifyBindsVariableInPlace(t *testing.T) {
	env := NewEnv()
	subs := NewSubstitution()
	v := env.NewVar()
	fn := ast.FunctionType(v, ast.NewOp("Int"))
	arg := ast.FunctionType(ast.NewOp("Char"), ast.NewOp("Int"))

	require.NoError(t, Unify(env, subs, errors.Location{}, fn, arg))
	Replace(env, subs, fn)
	want := ast.FunctionType(ast.NewOp("Char"), ast.NewOp("Int"))
	assert.True(t, fn.Equal(want), "got %s", fn)
}

// randomType builds a random type over a small vocabulary of operators and
// variables, the raw material for the symmetry property below.
func randomType(r *rand.Rand, depth int) *ast.Type {
	if depth <= 0 || r.Intn(3) == 0 {
		if r.Intn(2) == 0 {
			return ast.NewVar(ast.TypeVariable(r.Intn(4) + 1))
		}
		return ast.NewOp(ast.TypeOperator([]string{"Int", "Double", "Char"}[r.Intn(3)]))
	}
	switch r.Intn(3) {
	case 0:
		return ast.FunctionType(randomType(r, depth-1), randomType(r, depth-1))
	case 1:
		return ast.ListType(randomType(r, depth-1))
	default:
		return ast.NewOp("Pair", randomType(r, depth-1), randomType(r, depth-1))
	}
}

// TestUnifySymmetric checks that unification is symmetric over random type
// pairs: unify(a,b) and unify(b,a) succeed or fail identically, and on
// success resolve both sides to equal types.
func TestUnifySymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := randomType(r, 3)
		b := randomType(r, 3)

		envL, envR := NewEnv(), NewEnv()
		subsL, subsR := NewSubstitution(), NewSubstitution()
		aL, bL := a.Clone(), b.Clone()
		aR, bR := a.Clone(), b.Clone()

		errL := Unify(envL, subsL, errors.Location{}, aL, bL)
		errR := Unify(envR, subsR, errors.Location{}, bR, aR)

		if (errL == nil) != (errR == nil) {
			t.Fatalf("asymmetric unification of %s and %s: %v vs %v", a, b, errL, errR)
		}
		if errL != nil {
			continue
		}
		Replace(envL, subsL, aL)
		Replace(envL, subsL, bL)
		if !aL.Equal(bL) {
			t.Fatalf("unify(%s, %s) left unequal types %s and %s", a, b, aL, bL)
		}
	}
}

// TestFreshenPreservesStructure checks the freshen-then-instantiate
// identity: a freshened type has the same shape as the original, with a
// consistent variable renaming (same old variable, same fresh variable).
func TestFreshenPreservesStructure(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		env := NewEnv()
		scope := NewScope(env)
		typ := randomType(r, 3)
		env.Bind("poly", typ)

		fresh := scope.fresh("poly")
		require.NotNil(t, fresh)

		renaming := make(map[ast.TypeVariable]ast.TypeVariable)
		assertRenamed(t, typ, fresh, renaming)
	}
}

func assertRenamed(t *testing.T, old, fresh *ast.Type, renaming map[ast.TypeVariable]ast.TypeVariable) {
	t.Helper()
	require.Equal(t, old.IsVar, fresh.IsVar, "shape mismatch: %s vs %s", old, fresh)
	if old.IsVar {
		if mapped, seen := renaming[old.Var]; seen {
			assert.Equal(t, mapped, fresh.Var, "inconsistent renaming of t%d", old.Var)
		} else {
			renaming[old.Var] = fresh.Var
		}
		return
	}
	require.Equal(t, old.Op, fresh.Op)
	require.Len(t, fresh.Args, len(old.Args))
	for i := range old.Args {
		assertRenamed(t, old.Args[i], fresh.Args[i], renaming)
	}
}

// TestFreshenSkipsNonGeneric checks that a variable pinned non-generic by
// an enclosing scope survives freshening unrenamed.
func TestFreshenSkipsNonGeneric(t *testing.T) {
	env := NewEnv()
	scope := NewScope(env)
	pinned := env.NewVar()
	scope.nonGeneric = append(scope.nonGeneric, pinned)
	env.Bind("f", ast.FunctionType(pinned.Clone(), ast.NewVar(env.NewVar().Var)))

	fresh := scope.fresh("f")
	require.NotNil(t, fresh)
	assert.Equal(t, pinned.Var, fresh.Domain().Var, "non-generic variable was renamed")
	assert.NotEqual(t, env.Find("f").Codomain().Var, fresh.Codomain().Var, "generic variable was not renamed")
}

func TestFreshenCarriesConstraints(t *testing.T) {
	env := NewEnv()
	scope := NewScope(env)
	v := env.NewVar()
	env.Constrain(v.Var, "Num")
	env.Bind("lit", v)

	fresh := scope.fresh("lit")
	require.True(t, fresh.IsVar)
	require.NotEqual(t, v.Var, fresh.Var)
	assert.Contains(t, env.ConstraintsOf(fresh.Var), "Num")
}

func TestHasInstanceStructuralMatch(t *testing.T) {
	env := NewEnv()
	env.RegisterInstance("Eq", ast.NewOp("Int"), nil)
	elem := ast.NewVar(-500)
	env.RegisterInstance("Eq", ast.ListType(elem), []ast.Constraint{{Class: "Eq", Var: elem.Var}})

	assert.True(t, env.HasInstance("Eq", ast.NewOp("Int")))
	assert.False(t, env.HasInstance("Eq", ast.NewOp("Double")))
	assert.True(t, env.HasInstance("Eq", ast.ListType(ast.NewOp("Int"))))
	assert.False(t, env.HasInstance("Eq", ast.ListType(ast.NewOp("Double"))))
}

// TestHasInstancePropagatesToVariables pins the monotone-propagation rule:
// a constrained instance matched against a still-variable argument
// succeeds by constraining the variable.
func TestHasInstancePropagatesToVariables(t *testing.T) {
	env := NewEnv()
	env.RegisterInstance("Eq", ast.NewOp("Int"), nil)
	elem := ast.NewVar(-500)
	env.RegisterInstance("Eq", ast.ListType(elem), []ast.Constraint{{Class: "Eq", Var: elem.Var}})

	unresolved := env.NewVar()
	assert.True(t, env.HasInstance("Eq", ast.ListType(unresolved)))
	assert.Contains(t, env.ConstraintsOf(unresolved.Var), "Eq")
}

func TestMissingInstanceFailsUnification(t *testing.T) {
	env := NewEnv()
	subs := NewSubstitution()
	v := env.NewVar()
	env.Constrain(v.Var, "Show")
	err := Unify(env, subs, errors.Location{}, v, ast.NewOp("Int"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.TYP004)
}

func TestNumDefaultingAllowsIntAndDouble(t *testing.T) {
	for _, op := range []ast.TypeOperator{"Int", "Double"} {
		env := NewEnv()
		subs := NewSubstitution()
		v := env.NewVar()
		env.Constrain(v.Var, "Num")
		assert.NoError(t, Unify(env, subs, errors.Location{}, v, ast.NewOp(op)))
	}

	env := NewEnv()
	subs := NewSubstitution()
	v := env.NewVar()
	env.Constrain(v.Var, "Fractional")
	assert.NoError(t, Unify(env, subs, errors.Location{}, v, ast.NewOp("Double")))
	v2 := env.NewVar()
	env.Constrain(v2.Var, "Fractional")
	assert.Error(t, Unify(env, subs, errors.Location{}, v2, ast.NewOp("Int")))
}

func TestOrphanTypeDeclarationRejected(t *testing.T) {
	mod := &ast.Module{
		TypeDeclarations: []*ast.TypeDeclaration{
			{Name: "ghost", Type: ast.NewOp("Int")},
		},
	}
	err := TypecheckModule(NewEnv(), mod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.TYP005)
}
