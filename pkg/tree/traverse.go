package tree

// Preorder returns every node id, parents before children, siblings in
// insertion order. It uses an explicit stack so depth is not bounded by the
// goroutine stack.
func (t *Tree) Preorder() []NodeID {
	if !t.valid(t.root) {
		return nil
	}
	order := make([]NodeID, 0, len(t.nodes))
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		children := t.nodes[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return order
}

// Postorder returns every node id, children before parents, siblings in
// insertion order.
func (t *Tree) Postorder() []NodeID {
	if !t.valid(t.root) {
		return nil
	}
	type frame struct {
		id   NodeID
		next int
	}
	order := make([]NodeID, 0, len(t.nodes))
	stack := []frame{{id: t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := t.nodes[top.id].Children
		if top.next < len(children) {
			child := children[top.next]
			top.next++
			stack = append(stack, frame{id: child})
			continue
		}
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}
	return order
}

// Ancestors returns id, its parent, and so on up to and including the root.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	var path []NodeID
	for cur := id; cur != NoNode; cur = t.nodes[cur].Parent {
		path = append(path, cur)
	}
	return path
}

// SubtreeLeafCounts returns, for every node, the number of leaves below it
// (1 for a leaf). Computed in a single postorder pass.
func (t *Tree) SubtreeLeafCounts() []int {
	counts := make([]int, len(t.nodes))
	for _, id := range t.Postorder() {
		n := &t.nodes[id]
		if len(n.Children) == 0 {
			counts[id] = 1
			continue
		}
		for _, c := range n.Children {
			counts[id] += counts[c]
		}
	}
	return counts
}
