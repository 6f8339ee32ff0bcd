package tree

// Builder appends nodes to a tree under construction.
// Nodes are never removed; Build freezes the result.
type Builder struct {
	nodes []Node
	root  NodeID
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{root: NoNode}
}

// Len returns the number of nodes added so far.
func (b *Builder) Len() int { return len(b.nodes) }

// Root returns the first parentless node added, or NoNode.
func (b *Builder) Root() NodeID { return b.root }

// Add appends a node below parent (NoNode for the root) and returns its id.
func (b *Builder) Add(parent NodeID, label string, length *float64) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Parent: parent,
		Label:  label,
		Length: length,
	})
	if parent == NoNode {
		if b.root == NoNode {
			b.root = id
		}
	} else {
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	return id
}

// SetLabel names an existing node.
func (b *Builder) SetLabel(id NodeID, label string) {
	b.nodes[id].Label = label
}

// SetLength sets the branch length above an existing node.
func (b *Builder) SetLength(id NodeID, length float64) {
	b.nodes[id].Length = &length
}

// Build validates the nodes and returns the immutable tree.
// The builder is reset and may be reused.
func (b *Builder) Build() (*Tree, error) {
	t := &Tree{nodes: b.nodes, root: b.root}
	b.nodes, b.root = nil, NoNode

	if len(t.nodes) == 0 {
		return nil, ErrEmptyTree
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	t.depth = make([]int, len(t.nodes))
	for _, id := range t.Preorder() {
		if p := t.nodes[id].Parent; p != NoNode {
			t.depth[id] = t.depth[p] + 1
		}
	}
	return t, nil
}
