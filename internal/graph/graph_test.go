package graph

import "testing"

func TestStronglyConnectedComponentsOrdersDependenciesFirst(t *testing.T) {
	g := New[string]()
	a := g.NewVertex("a") // a depends on b
	b := g.NewVertex("b") // b depends on nothing
	g.Connect(a, b)

	groups := StronglyConnectedComponents(g)
	if len(groups) != 2 {
		t.Fatalf("expected 2 components, got %d", len(groups))
	}
	if groups[0][0] != b {
		t.Fatalf("expected b's component first (a depends on b), got vertex %v first", groups[0][0])
	}
	if groups[1][0] != a {
		t.Fatalf("expected a's component last, got vertex %v", groups[1][0])
	}
}

func TestStronglyConnectedComponentsDetectsCycle(t *testing.T) {
	g := New[string]()
	// test = ... : test2 ; test2 = ... : test  (mutual recursion)
	test := g.NewVertex("test")
	test2 := g.NewVertex("test2")
	g.Connect(test, test2)
	g.Connect(test2, test)

	groups := StronglyConnectedComponents(g)
	if len(groups) != 1 {
		t.Fatalf("expected one merged component for a 2-cycle, got %d: %v", len(groups), groups)
	}
	if len(groups[0]) != 2 {
		t.Fatalf("expected the cycle's component to contain both vertices, got %v", groups[0])
	}
}

func TestStronglyConnectedComponentsHandlesLongChainWithoutStackOverflow(t *testing.T) {
	const n = 20000
	g := New[int]()
	verts := make([]VertexIndex, n)
	for i := 0; i < n; i++ {
		verts[i] = g.NewVertex(i)
	}
	for i := 0; i < n-1; i++ {
		g.Connect(verts[i], verts[i+1])
	}

	groups := StronglyConnectedComponents(g)
	if len(groups) != n {
		t.Fatalf("expected %d singleton components, got %d", n, len(groups))
	}
	// The tail of the chain (no outgoing edge) must be ordered first.
	if groups[0][0] != verts[n-1] {
		t.Fatalf("expected chain tail first, got %v", groups[0][0])
	}
}
