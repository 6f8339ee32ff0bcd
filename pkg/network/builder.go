package network

import (
	"fmt"

	"github.com/aretw0/reticula/pkg/tree"
)

// Builder grows a network one node and edge at a time. Every edge is
// checked so the graph stays acyclic. Freeze validates the remaining
// invariants and hands out the read-only Network.
type Builder struct {
	graph
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{graph: graph{root: NoNode}}
}

// AddNode appends an unconnected node.
func (b *Builder) AddNode(label string) (NodeID, error) {
	if b.frozen {
		return NoNode, ErrFrozen
	}
	b.nodes = append(b.nodes, Node{Label: label})
	return NodeID(len(b.nodes) - 1), nil
}

// SetLabel names an existing node.
func (b *Builder) SetLabel(id NodeID, label string) error {
	if b.frozen {
		return ErrFrozen
	}
	if !b.valid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	b.nodes[id].Label = label
	return nil
}

// SetRoot marks id as the root.
func (b *Builder) SetRoot(id NodeID) error {
	if b.frozen {
		return ErrFrozen
	}
	if !b.valid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	b.root = id
	return nil
}

// AddEdge appends parent -> child. The first edge into child becomes its
// tree edge. Returns ErrCycle if child already reaches parent.
func (b *Builder) AddEdge(parent, child NodeID, length *float64) error {
	if b.frozen {
		return ErrFrozen
	}
	if !b.valid(parent) || !b.valid(child) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidNode, parent, child)
	}
	if _, ok := b.EdgeLength(parent, child); ok {
		return fmt.Errorf("%w: %d -> %d", ErrDuplicateEdge, parent, child)
	}
	if parent == child || b.Reaches(child, parent) {
		return fmt.Errorf("%w: %d -> %d", ErrCycle, parent, child)
	}
	b.nodes[parent].Children = append(b.nodes[parent].Children, child)
	b.nodes[child].Parents = append(b.nodes[child].Parents, ParentEdge{Parent: parent, Length: length})
	return nil
}

// SubdivideEdge inserts a new unlabelled node w on parent -> child, keeping
// the position of the edge in both adjacency lists. When the edge has a
// length L, parent -> w gets L*fraction and w -> child the rest.
func (b *Builder) SubdivideEdge(parent, child NodeID, fraction float64) (NodeID, error) {
	if b.frozen {
		return NoNode, ErrFrozen
	}
	if !b.valid(parent) || !b.valid(child) {
		return NoNode, fmt.Errorf("%w: %d -> %d", ErrInvalidNode, parent, child)
	}
	pi := -1
	for i, pe := range b.nodes[child].Parents {
		if pe.Parent == parent {
			pi = i
			break
		}
	}
	if pi < 0 {
		return NoNode, fmt.Errorf("%w: %d -> %d", ErrNoEdge, parent, child)
	}

	var upper, lower *float64
	if l := b.nodes[child].Parents[pi].Length; l != nil {
		u, w := *l*fraction, *l*(1-fraction)
		upper, lower = &u, &w
	}

	w := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Parents:  []ParentEdge{{Parent: parent, Length: upper}},
		Children: []NodeID{child},
	})
	for i, c := range b.nodes[parent].Children {
		if c == child {
			b.nodes[parent].Children[i] = w
			break
		}
	}
	b.nodes[child].Parents[pi] = ParentEdge{Parent: w, Length: lower}
	return w, nil
}

// Freeze validates the network and returns its read-only view. The builder
// rejects further mutation.
func (b *Builder) Freeze() (*Network, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.frozen = true
	return &Network{graph: b.graph}, nil
}

// Validate checks every network invariant: a parentless root, consistent
// links, no duplicate edges, acyclicity, reachability from the root and
// unique leaf labels.
func (g *graph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvariant)
	}
	if !g.valid(g.root) {
		return fmt.Errorf("%w: root %d is not a node", ErrInvariant, g.root)
	}
	if len(g.nodes[g.root].Parents) != 0 {
		return fmt.Errorf("%w: root %d has parents", ErrInvariant, g.root)
	}

	for i := range g.nodes {
		id := NodeID(i)
		if id != g.root && len(g.nodes[i].Parents) == 0 {
			return fmt.Errorf("%w: node %d has no parent", ErrInvariant, id)
		}
		seen := make(map[NodeID]bool)
		for _, pe := range g.nodes[i].Parents {
			if !g.valid(pe.Parent) || !contains(g.nodes[pe.Parent].Children, id) {
				return fmt.Errorf("%w: edge %d -> %d is one-sided", ErrInvariant, pe.Parent, id)
			}
			if seen[pe.Parent] {
				return fmt.Errorf("%w: duplicate edge %d -> %d", ErrInvariant, pe.Parent, id)
			}
			seen[pe.Parent] = true
		}
		for _, c := range g.nodes[i].Children {
			if _, ok := g.EdgeLength(id, c); !ok {
				return fmt.Errorf("%w: edge %d -> %d is one-sided", ErrInvariant, id, c)
			}
		}
	}

	if _, ok := g.TopologicalOrder(); !ok {
		return fmt.Errorf("%w: directed cycle", ErrInvariant)
	}
	if got := len(g.Preorder()); got != len(g.nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from root", ErrInvariant, got, len(g.nodes))
	}

	labels := make(map[string]NodeID)
	for _, id := range g.Leaves() {
		l := g.nodes[id].Label
		if l == "" {
			continue
		}
		if other, dup := labels[l]; dup {
			return fmt.Errorf("%w: taxon %q on leaves %d and %d", ErrInvariant, l, other, id)
		}
		labels[l] = id
	}
	return nil
}

// FromTree converts a tree into a network with the same node ids, labels
// and branch lengths.
func FromTree(t *tree.Tree) (*Network, error) {
	b := NewBuilder()
	for i := 0; i < t.Len(); i++ {
		if _, err := b.AddNode(t.Label(tree.NodeID(i))); err != nil {
			return nil, err
		}
	}
	for _, id := range t.Preorder() {
		for _, c := range t.Children(id) {
			var length *float64
			if l, ok := t.Length(c); ok {
				length = &l
			}
			if err := b.AddEdge(NodeID(id), NodeID(c), length); err != nil {
				return nil, err
			}
		}
	}
	if err := b.SetRoot(NodeID(t.Root())); err != nil {
		return nil, err
	}
	return b.Freeze()
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
