package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunklang/thunk/internal/vm"
)

func TestEvalExpression(t *testing.T) {
	r := New(nil, "test")
	name, typ, result, err := r.Eval("primIntAdd 1 2")
	require.NoError(t, err)
	assert.Equal(t, "it0", name)
	assert.Equal(t, "Int", typ)
	assert.Equal(t, vm.IntResult(3), result)
}

func TestEvalSeesLoadedModule(t *testing.T) {
	r := New(nil, "test")
	require.NoError(t, r.LoadModule("double x = primIntMultiply x 2"))

	_, typ, result, err := r.Eval("double 21")
	require.NoError(t, err)
	assert.Equal(t, "Int", typ)
	assert.Equal(t, vm.IntResult(42), result)
}

func TestEvalLinesShareSession(t *testing.T) {
	r := New(nil, "test")
	name1, _, _, err := r.Eval("primIntAdd 1 1")
	require.NoError(t, err)
	name2, _, result, err := r.Eval("primIntMultiply 3 3")
	require.NoError(t, err)
	assert.NotEqual(t, name1, name2)
	assert.Equal(t, vm.IntResult(9), result)
}

func TestEvalReportsTypeErrors(t *testing.T) {
	r := New(nil, "test")
	_, _, _, err := r.Eval("primIntAdd 1 2.5")
	require.Error(t, err)
}

func TestEvalReportsUndefined(t *testing.T) {
	r := New(nil, "test")
	_, _, _, err := r.Eval("nonexistent 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TYP001")
}

func TestEvalConstructorResult(t *testing.T) {
	r := New(nil, "test")
	require.NoError(t, r.LoadModule("data Bool = True | False"))
	_, typ, result, err := r.Eval("primIntLT 1 2")
	require.NoError(t, err)
	assert.Equal(t, "Bool", typ)
	assert.Equal(t, vm.ConstructorResult(0), result)
}
