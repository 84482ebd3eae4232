package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunklang/thunk/internal/ast"
)

func TestNewVarStrictlyIncreasing(t *testing.T) {
	env := NewEnv()
	prev := env.NewVar().Var
	for i := 0; i < 10; i++ {
		next := env.NewVar().Var
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestPrimitiveGlobalsPresent(t *testing.T) {
	env := NewEnv()
	for _, name := range []string{
		"primIntAdd", "primIntSubtract", "primIntMultiply", "primIntDivide", "primIntRemainder",
		"primIntEQ", "primIntLT", "primIntLE", "primIntGT", "primIntGE",
		"primDoubleAdd", "primDoubleDivide", "primDoubleGE",
		"primIntToDouble", "primDoubleToInt",
		"[]", ":", "True", "False", "negate",
	} {
		assert.NotNil(t, env.Find(name), "missing primitive %q", name)
	}
	for arity := 0; arity < 10; arity++ {
		assert.NotNil(t, env.Find(ast.TupleOperator(arity)), "missing tuple constructor arity %d", arity)
	}
}

func TestConstrainIsMonotone(t *testing.T) {
	env := NewEnv()
	v := env.NewVar().Var
	env.Constrain(v, "Eq")
	env.Constrain(v, "Eq") // deduplicated
	env.Constrain(v, "Show")
	assert.Equal(t, []string{"Eq", "Show"}, env.ConstraintsOf(v))
}

func TestImportMergesCheckedModule(t *testing.T) {
	prelude := NewEnv()
	intType := ast.NewOp("Int")
	prelude.Bind("increment", ast.FunctionType(intType.Clone(), intType.Clone()))
	prelude.RegisterInstance("Eq", intType.Clone(), nil)
	v := prelude.NewVar()
	prelude.Constrain(v.Var, "Eq")

	env := NewEnv()
	env.Import(prelude)

	require.NotNil(t, env.Find("increment"))
	assert.True(t, env.HasInstance("Eq", intType))
	assert.Contains(t, env.ConstraintsOf(v.Var), "Eq")
	// Fresh variables allocated after the import stay above the imported
	// module's ids.
	assert.Greater(t, env.NewVar().Var, v.Var)
}

func TestFindConstraintsCollectsMinimalContext(t *testing.T) {
	env := NewEnv()
	a := env.NewVar()
	b := env.NewVar()
	env.Constrain(a.Var, "Eq")
	env.Constrain(b.Var, "Show")

	typ := ast.FunctionType(a.Clone(), ast.NewOp("Int"))
	context := env.FindConstraints(typ)
	require.Len(t, context, 1)
	assert.Equal(t, ast.Constraint{Class: "Eq", Var: a.Var}, context[0])
}
