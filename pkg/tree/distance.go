package tree

// Depth returns the number of edges between id and the root (root = 0).
func (t *Tree) Depth(id NodeID) (int, bool) {
	if !t.valid(id) {
		return 0, false
	}
	if t.depth != nil {
		return t.depth[id], true
	}
	d := 0
	for cur := t.nodes[id].Parent; cur != NoNode; cur = t.nodes[cur].Parent {
		d++
	}
	return d, true
}

// LCA returns the lowest common ancestor of a and b.
//
// The deeper node climbs until both sit at the same depth, then both climb
// together until they meet. O(depth) time, O(1) extra space.
// ok is false only when a or b is not a node of t.
func (t *Tree) LCA(a, b NodeID) (NodeID, bool) {
	da, okA := t.Depth(a)
	db, okB := t.Depth(b)
	if !okA || !okB {
		return NoNode, false
	}
	for da > db {
		a = t.nodes[a].Parent
		da--
	}
	for db > da {
		b = t.nodes[b].Parent
		db--
	}
	for a != b {
		a = t.nodes[a].Parent
		b = t.nodes[b].Parent
	}
	return a, true
}

// TopologicalDistance is the edge count of the path between a and b.
func (t *Tree) TopologicalDistance(a, b NodeID) (int, bool) {
	lca, ok := t.LCA(a, b)
	if !ok {
		return 0, false
	}
	da, _ := t.Depth(a)
	db, _ := t.Depth(b)
	dl, _ := t.Depth(lca)
	return da + db - 2*dl, true
}

// PatristicDistance sums branch lengths on the path between a and b.
// Missing lengths count as 0.
func (t *Tree) PatristicDistance(a, b NodeID) (float64, bool) {
	lca, ok := t.LCA(a, b)
	if !ok {
		return 0, false
	}
	return t.lengthTo(a, lca) + t.lengthTo(b, lca), true
}

// lengthTo sums lengths from id up to (excluding) the ancestor anc.
func (t *Tree) lengthTo(id, anc NodeID) float64 {
	var sum float64
	for cur := id; cur != anc; cur = t.nodes[cur].Parent {
		if l := t.nodes[cur].Length; l != nil {
			sum += *l
		}
	}
	return sum
}
