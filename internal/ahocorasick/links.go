package ahocorasick

// resolveLinks sets failure and output links for every node in breadth-first
// order, so a node's failure target is always final before its children are
// visited.
//
// fail(c) is the longest proper suffix of c's path that is also a trie path.
// output(c) is the nearest terminal node on c's failure chain.
func (t *trie[T]) resolveLinks() {
	nodes := t.nodes
	queue := make([]int32, 0, len(nodes))

	for _, e := range nodes[root].edges {
		nodes[e.child].fail = root
		queue = append(queue, e.child)
	}

	for head := 0; head < len(queue); head++ {
		state := queue[head]
		for _, e := range nodes[state].edges {
			child := e.child
			queue = append(queue, child)

			target := int32(root)
			for f := nodes[state].fail; f != none; f = nodes[f].fail {
				if next := nodes[f].child(t.cmp, e.symbol, e.hash); next != none {
					target = next
					break
				}
			}
			nodes[child].fail = target

			if nodes[target].pattern != none {
				nodes[child].output = target
			} else {
				nodes[child].output = nodes[target].output
			}
		}
	}
}
