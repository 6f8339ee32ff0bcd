package network

import (
	"container/heap"
	"errors"
	"sort"
)

// NodeID addresses a node inside the network that owns it.
type NodeID int

// NoNode marks the absence of a node.
const NoNode NodeID = -1

// Sentinel errors for network construction.
var (
	// ErrFrozen is returned when mutating a builder that has been frozen.
	ErrFrozen = errors.New("network is frozen")
	// ErrInvalidNode is returned when an id does not address a node.
	ErrInvalidNode = errors.New("invalid node id")
	// ErrCycle is returned when an edge would close a directed cycle.
	ErrCycle = errors.New("edge would create a directed cycle")
	// ErrDuplicateEdge is returned when the edge already exists.
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrNoEdge is returned when the referenced edge does not exist.
	ErrNoEdge = errors.New("edge not found")
	// ErrInvariant is wrapped by every Validate failure.
	ErrInvariant = errors.New("network invariant violated")
)

// ParentEdge is an incoming edge. The first parent edge of a node is its
// tree edge; any further ones are reticulation edges.
type ParentEdge struct {
	Parent NodeID
	Length *float64
}

// Node is a vertex of a network.
type Node struct {
	Parents  []ParentEdge
	Children []NodeID
	Label    string
}

// graph is the arena shared by Builder and Network.
type graph struct {
	nodes []Node
	root  NodeID
}

// Network is a frozen, read-only rooted phylogenetic network.
// Safe for concurrent reads.
type Network struct {
	graph
}

func (g *graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Len returns the number of nodes.
func (g *graph) Len() int { return len(g.nodes) }

// Root returns the root id, or NoNode if none was set.
func (g *graph) Root() NodeID { return g.root }

// Parents returns the incoming edges of id. The slice must not be modified.
func (g *graph) Parents(id NodeID) []ParentEdge {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id].Parents
}

// Children returns the ordered children of id. The slice must not be modified.
func (g *graph) Children(id NodeID) []NodeID {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id].Children
}

// Label returns the label of id.
func (g *graph) Label(id NodeID) string {
	if !g.valid(id) {
		return ""
	}
	return g.nodes[id].Label
}

// IsLeaf reports whether id has no children.
func (g *graph) IsLeaf(id NodeID) bool {
	return g.valid(id) && len(g.nodes[id].Children) == 0
}

// IsReticulation reports whether id has more than one parent.
func (g *graph) IsReticulation(id NodeID) bool {
	return g.valid(id) && len(g.nodes[id].Parents) > 1
}

// EdgeLength returns the length of the edge parent -> child.
func (g *graph) EdgeLength(parent, child NodeID) (*float64, bool) {
	if !g.valid(child) {
		return nil, false
	}
	for _, pe := range g.nodes[child].Parents {
		if pe.Parent == parent {
			return pe.Length, true
		}
	}
	return nil, false
}

// Leaves returns every childless node in id order.
func (g *graph) Leaves() []NodeID {
	var out []NodeID
	for i := range g.nodes {
		if len(g.nodes[i].Children) == 0 {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Reticulations returns every node with indegree > 1 in id order.
func (g *graph) Reticulations() []NodeID {
	var out []NodeID
	for i := range g.nodes {
		if len(g.nodes[i].Parents) > 1 {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Taxa returns the labels of all labelled leaves, sorted.
func (g *graph) Taxa() []string {
	var taxa []string
	for _, id := range g.Leaves() {
		if l := g.nodes[id].Label; l != "" {
			taxa = append(taxa, l)
		}
	}
	sort.Strings(taxa)
	return taxa
}

// LeafByLabel finds the leaf carrying label.
func (g *graph) LeafByLabel(label string) (NodeID, bool) {
	for i := range g.nodes {
		if len(g.nodes[i].Children) == 0 && g.nodes[i].Label == label {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

// HasLengths reports whether any edge carries a length.
func (g *graph) HasLengths() bool {
	for i := range g.nodes {
		for _, pe := range g.nodes[i].Parents {
			if pe.Length != nil {
				return true
			}
		}
	}
	return false
}

// Preorder visits every node reachable from the root once, parents first,
// children in stored order. A reticulation is visited on its first
// encounter.
func (g *graph) Preorder() []NodeID {
	if !g.valid(g.root) {
		return nil
	}
	seen := make([]bool, len(g.nodes))
	order := make([]NodeID, 0, len(g.nodes))
	stack := []NodeID{g.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
		children := g.nodes[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			if !seen[children[i]] {
				stack = append(stack, children[i])
			}
		}
	}
	return order
}

// TopologicalOrder returns all nodes so that every parent precedes its
// children. ok is false if the graph contains a cycle. Ties are broken by
// the smaller id.
func (g *graph) TopologicalOrder() ([]NodeID, bool) {
	indeg := make([]int, len(g.nodes))
	for i := range g.nodes {
		indeg[i] = len(g.nodes[i].Parents)
	}
	ready := &idHeap{}
	for i, d := range indeg {
		if d == 0 {
			*ready = append(*ready, NodeID(i))
		}
	}
	heap.Init(ready)
	order := make([]NodeID, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(NodeID)
		order = append(order, id)
		for _, c := range g.nodes[id].Children {
			indeg[c]--
			if indeg[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}
	return order, len(order) == len(g.nodes)
}

// idHeap is a min-heap of node ids.
type idHeap []NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *idHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// Reaches reports whether to is reachable from from by following children.
func (g *graph) Reaches(from, to NodeID) bool {
	if !g.valid(from) || !g.valid(to) {
		return false
	}
	seen := make(map[NodeID]bool)
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.nodes[id].Children...)
	}
	return false
}

// Descendants returns the labelled leaves reachable from id, sorted.
func (g *graph) Descendants(id NodeID) []string {
	if !g.valid(id) {
		return nil
	}
	seen := make(map[NodeID]bool)
	var taxa []string
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		n := &g.nodes[cur]
		if len(n.Children) == 0 && n.Label != "" {
			taxa = append(taxa, n.Label)
		}
		stack = append(stack, n.Children...)
	}
	sort.Strings(taxa)
	return taxa
}

// Builder returns a mutable deep copy of the network.
func (n *Network) Builder() *Builder {
	b := &Builder{graph: graph{root: n.root, nodes: make([]Node, len(n.nodes))}}
	for i, node := range n.nodes {
		b.nodes[i] = Node{
			Parents:  append([]ParentEdge(nil), node.Parents...),
			Children: append([]NodeID(nil), node.Children...),
			Label:    node.Label,
		}
	}
	return b
}
