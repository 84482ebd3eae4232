package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResultScalars(t *testing.T) {
	r, err := ExtractResult(NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, IntResult(42), r)

	r, err = ExtractResult(NewFloat(1.5))
	require.NoError(t, err)
	assert.Equal(t, DoubleResult(1.5), r)
}

func TestExtractResultFollowsIndirections(t *testing.T) {
	node := NewIndirection(NewIndirection(NewInt(7)))
	r, err := ExtractResult(node)
	require.NoError(t, err)
	assert.Equal(t, IntResult(7), r)
}

func TestExtractResultConstructorTree(t *testing.T) {
	node := NewConstructor(1, []*Node{
		NewInt(1),
		NewConstructor(0, nil),
	})
	r, err := ExtractResult(node)
	require.NoError(t, err)
	want := ConstructorResult(1, IntResult(1), ConstructorResult(0))
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractResultRejectsFunctions(t *testing.T) {
	sc := &SuperCombinator{Name: "f", Arity: 1}
	_, err := ExtractResult(NewCombinator(sc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VM001")
}

func TestDeepForceEvaluatesConstructorFields(t *testing.T) {
	m := New()
	m.AddAssembly(&Assembly{})

	// A constructor holding an unevaluated 3+4 thunk: a nullary combinator
	// forced only when DeepForce reaches the field.
	add := &SuperCombinator{
		Name:  "add7",
		Arity: 0,
		Instructions: []Instruction{
			PushInt(4), PushInt(3), Add(),
		},
	}
	m.AddAssembly(&Assembly{SuperCombinators: []*SuperCombinator{add}})

	node := NewConstructor(1, []*Node{NewCombinator(add), NewConstructor(0, nil)})

	forced, err := m.DeepForce(node, 0)
	require.NoError(t, err)
	r, err := ExtractResult(forced)
	require.NoError(t, err)
	assert.Equal(t, ConstructorResult(1, IntResult(7), ConstructorResult(0)), r)
}

func TestSplitPackRoundTrip(t *testing.T) {
	m := New()
	m.AddAssembly(&Assembly{})
	// For a Constructor(t, xs) in WHNF, Split then Pack(t, |xs|)
	// reconstructs an equal node.
	original := NewConstructor(3, []*Node{NewInt(1), NewInt(2)})
	stack := []*Node{original}
	require.NoError(t, m.Execute(&stack, []Instruction{Split(2), Pack(3, 2)}, 0))
	require.Len(t, stack, 1)

	got, err := ExtractResult(stack[0])
	require.NoError(t, err)
	want, err := ExtractResult(original)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
