package tree

import (
	"errors"
	"fmt"
	"sort"
)

// NodeID addresses a node inside the Tree that owns it.
// It is an arena index and has no meaning across trees.
type NodeID int

// NoNode marks the absence of a node (e.g. the parent of the root).
const NoNode NodeID = -1

var (
	// ErrInvalidNode is returned when an id does not address a node of the tree.
	ErrInvalidNode = errors.New("invalid node id")
	// ErrEmptyTree is returned when building a tree without nodes.
	ErrEmptyTree = errors.New("tree has no nodes")
	// ErrMalformed is returned by Validate when the parent/children relation is inconsistent.
	ErrMalformed = errors.New("malformed tree")
)

// Node is a single vertex of a rooted tree.
type Node struct {
	// Parent is NoNode for the root.
	Parent NodeID
	// Children in insertion order.
	Children []NodeID
	// Label is empty when the node is unnamed.
	Label string
	// Length is the branch length to the parent. Nil when absent.
	Length *float64
}

// Tree is an immutable, arena-indexed rooted tree.
// It is safe for concurrent reads.
type Tree struct {
	nodes []Node
	root  NodeID
	depth []int
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root id.
func (t *Tree) Root() NodeID { return t.root }

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Node returns a copy of the node stored at id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if !t.valid(id) {
		return Node{}, false
	}
	n := t.nodes[id]
	n.Children = append([]NodeID(nil), n.Children...)
	return n, true
}

// Parent returns the parent of id. ok is false for the root and for invalid ids.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	if !t.valid(id) || t.nodes[id].Parent == NoNode {
		return NoNode, false
	}
	return t.nodes[id].Parent, true
}

// Children returns the ordered children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].Children
}

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id NodeID) bool {
	return t.valid(id) && len(t.nodes[id].Children) == 0
}

// Label returns the label of id, or "" when unnamed.
func (t *Tree) Label(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].Label
}

// Length returns the branch length above id.
func (t *Tree) Length(id NodeID) (float64, bool) {
	if !t.valid(id) || t.nodes[id].Length == nil {
		return 0, false
	}
	return *t.nodes[id].Length, true
}

// HasLengths reports whether any node carries a branch length.
func (t *Tree) HasLengths() bool {
	for i := range t.nodes {
		if t.nodes[i].Length != nil {
			return true
		}
	}
	return false
}

// Leaves returns every childless node in insertion order.
func (t *Tree) Leaves() []NodeID {
	var leaves []NodeID
	for i := range t.nodes {
		if len(t.nodes[i].Children) == 0 {
			leaves = append(leaves, NodeID(i))
		}
	}
	return leaves
}

// LeafByLabel finds the first leaf carrying label.
func (t *Tree) LeafByLabel(label string) (NodeID, bool) {
	for i := range t.nodes {
		if len(t.nodes[i].Children) == 0 && t.nodes[i].Label == label {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

// Taxa returns the distinct, non-empty leaf labels sorted lexicographically.
func (t *Tree) Taxa() []string {
	seen := make(map[string]bool)
	var taxa []string
	for _, id := range t.Leaves() {
		l := t.nodes[id].Label
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		taxa = append(taxa, l)
	}
	sort.Strings(taxa)
	return taxa
}

// Validate checks the structural invariants: a single parentless root,
// consistent parent/children links, and every node reachable from the root.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		return ErrEmptyTree
	}
	if !t.valid(t.root) || t.nodes[t.root].Parent != NoNode {
		return fmt.Errorf("%w: root %d has a parent", ErrMalformed, t.root)
	}
	for i := range t.nodes {
		id := NodeID(i)
		p := t.nodes[i].Parent
		if p == NoNode {
			if id != t.root {
				return fmt.Errorf("%w: node %d has no parent but is not the root", ErrMalformed, id)
			}
			continue
		}
		if !t.valid(p) || !contains(t.nodes[p].Children, id) {
			return fmt.Errorf("%w: node %d is not listed by its parent %d", ErrMalformed, id, p)
		}
		for _, c := range t.nodes[i].Children {
			if !t.valid(c) || t.nodes[c].Parent != id {
				return fmt.Errorf("%w: child %d of %d points elsewhere", ErrMalformed, c, id)
			}
		}
	}
	if got := len(t.Preorder()); got != len(t.nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from root", ErrMalformed, got, len(t.nodes))
	}
	return nil
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
