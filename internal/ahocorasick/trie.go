package ahocorasick

const (
	root = 0
	none = -1

	// indexThreshold is the fan-out above which a node gets a hash index
	// over its edges instead of a linear scan.
	indexThreshold = 8
)

type edge[T any] struct {
	symbol T
	hash   uint64
	child  int32
}

// node is one trie state. Links are arena indices; none marks an absent link.
type node[T any] struct {
	edges []edge[T]
	index map[uint64][]int32

	pattern int32
	fail    int32
	output  int32
	depth   int32
}

func newNode[T any](depth int32) node[T] {
	return node[T]{pattern: none, fail: none, output: none, depth: depth}
}

// child returns the node reached from n over symbol, or none.
func (n *node[T]) child(cmp Comparer[T], symbol T, hash uint64) int32 {
	if n.index != nil {
		for _, i := range n.index[hash] {
			if cmp.Equal(n.edges[i].symbol, symbol) {
				return n.edges[i].child
			}
		}
		return none
	}
	for i := range n.edges {
		e := &n.edges[i]
		if e.hash == hash && cmp.Equal(e.symbol, symbol) {
			return e.child
		}
	}
	return none
}

func (n *node[T]) addEdge(symbol T, hash uint64, child int32) {
	n.edges = append(n.edges, edge[T]{symbol: symbol, hash: hash, child: child})
	pos := int32(len(n.edges) - 1)
	switch {
	case n.index != nil:
		n.index[hash] = append(n.index[hash], pos)
	case len(n.edges) > indexThreshold:
		n.index = make(map[uint64][]int32, len(n.edges))
		for i, e := range n.edges {
			n.index[e.hash] = append(n.index[e.hash], int32(i))
		}
	}
}

// trie is the builder's output: the node arena with the root at index 0.
type trie[T any] struct {
	cmp   Comparer[T]
	nodes []node[T]
}

func buildTrie[T any](cmp Comparer[T], patterns [][]T) *trie[T] {
	t := &trie[T]{cmp: cmp, nodes: []node[T]{newNode[T](0)}}
	for i, pattern := range patterns {
		t.insert(pattern, int32(i))
	}
	return t
}

func (t *trie[T]) insert(pattern []T, id int32) {
	current := int32(root)
	for _, symbol := range pattern {
		hash := t.cmp.Hash(symbol)
		next := t.nodes[current].child(t.cmp, symbol, hash)
		if next == none {
			next = int32(len(t.nodes))
			t.nodes = append(t.nodes, newNode[T](t.nodes[current].depth+1))
			t.nodes[current].addEdge(symbol, hash, next)
		}
		current = next
	}
	// A repeated pattern takes over the terminal marking.
	t.nodes[current].pattern = id
}
