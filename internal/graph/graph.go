// Package graph implements a small directed graph with strongly-connected
// component decomposition, used to order mutually-recursive binding groups
// during type inference.
package graph

// VertexIndex identifies a vertex within a Graph.
type VertexIndex int

// Graph is a directed graph over arbitrary payload values of type T.
type Graph[T any] struct {
	vertices []T
	edges    map[VertexIndex][]VertexIndex
}

// New creates an empty Graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{edges: make(map[VertexIndex][]VertexIndex)}
}

// NewVertex adds a vertex carrying value and returns its index.
func (g *Graph[T]) NewVertex(value T) VertexIndex {
	g.vertices = append(g.vertices, value)
	return VertexIndex(len(g.vertices) - 1)
}

// Connect adds a directed edge from -> to.
func (g *Graph[T]) Connect(from, to VertexIndex) {
	g.edges[from] = append(g.edges[from], to)
}

// Value returns the payload stored at idx.
func (g *Graph[T]) Value(idx VertexIndex) T {
	return g.vertices[idx]
}

// Len returns the number of vertices in the graph.
func (g *Graph[T]) Len() int {
	return len(g.vertices)
}

// StronglyConnectedComponents returns the graph's SCCs in reverse
// topological order with respect to the edges: for an edge u -> v where u
// and v land in different components, v's component appears before u's.
// When edges represent "references", that means a binding's dependencies
// are ordered before the binding itself. Within a component, vertex order
// is unspecified.
//
// Implementation is Tarjan's algorithm, run iteratively (not recursively) so
// a long dependency chain cannot overflow the host stack.
func StronglyConnectedComponents[T any](g *Graph[T]) [][]VertexIndex {
	t := &tarjan[T]{
		g:       g,
		index:   make(map[VertexIndex]int),
		lowlink: make(map[VertexIndex]int),
		onStack: make(map[VertexIndex]bool),
	}
	for v := VertexIndex(0); int(v) < g.Len(); v++ {
		if _, seen := t.index[v]; !seen {
			t.strongConnect(v)
		}
	}
	return t.result
}

type tarjan[T any] struct {
	g        *Graph[T]
	counter  int
	index    map[VertexIndex]int
	lowlink  map[VertexIndex]int
	onStack  map[VertexIndex]bool
	stack    []VertexIndex
	result   [][]VertexIndex
}

type frame struct {
	v        VertexIndex
	children []VertexIndex
	i        int
}

func (t *tarjan[T]) strongConnect(start VertexIndex) {
	call := make([]frame, 0, 8)
	push := func(v VertexIndex) {
		t.index[v] = t.counter
		t.lowlink[v] = t.counter
		t.counter++
		t.stack = append(t.stack, v)
		t.onStack[v] = true
		call = append(call, frame{v: v, children: t.g.edges[v]})
	}
	push(start)

	for len(call) > 0 {
		top := &call[len(call)-1]
		if top.i < len(top.children) {
			w := top.children[top.i]
			top.i++
			if _, seen := t.index[w]; !seen {
				push(w)
				continue
			} else if t.onStack[w] {
				if t.index[w] < t.lowlink[top.v] {
					t.lowlink[top.v] = t.index[w]
				}
			}
			continue
		}

		// All children processed: pop this frame, propagate lowlink to the
		// parent, and emit an SCC if this vertex is a root.
		v := top.v
		call = call[:len(call)-1]
		if len(call) > 0 {
			parent := &call[len(call)-1]
			if t.lowlink[v] < t.lowlink[parent.v] {
				t.lowlink[parent.v] = t.lowlink[v]
			}
		}
		if t.lowlink[v] == t.index[v] {
			var component []VertexIndex
			for {
				n := len(t.stack) - 1
				w := t.stack[n]
				t.stack = t.stack[:n]
				t.onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			t.result = append(t.result, component)
		}
	}
}
