package rooting

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/reticula/pkg/network"
)

var (
	// ErrNoLeaves is returned when the network has no labelled leaf.
	ErrNoLeaves = errors.New("network has no taxa to root")
	// ErrUnknownOutgroup is returned when the outgroup taxon is absent.
	ErrUnknownOutgroup = errors.New("outgroup taxon not found")
)

// Policy names how the root position was chosen.
type Policy string

const (
	PolicyOutgroup     Policy = "outgroup"
	PolicyMidpoint     Policy = "midpoint"
	PolicyEccentricity Policy = "eccentricity"
	// PolicyFallback means the preferred position would have reversed a
	// reticulation edge into a cycle and a nearby edge was used instead.
	PolicyFallback Policy = "fallback"
)

// Rooter places the root of a network.
type Rooter struct {
	outgroup string
	logger   *slog.Logger
}

// Option configures a Rooter.
type Option func(*Rooter)

// WithOutgroup roots on the pendant edge of taxon.
func WithOutgroup(taxon string) Option {
	return func(r *Rooter) {
		r.outgroup = taxon
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rooter) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Rooter with the given options applied.
func New(opts ...Option) *Rooter {
	r := &Rooter{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root roots n with default options.
func Root(n *network.Network) (*network.Network, error) {
	out, _, err := New().Root(n)
	return out, err
}

// Root returns a new network rooted by, in order of preference, the
// outgroup, the midpoint of the longest leaf-to-leaf path when branch lengths
// exist, or the leaf with the largest topological eccentricity (smallest id
// on ties). Tree edges are reoriented away from the new root; reticulation
// edges keep their direction. Unlabelled unary nodes are removed.
func (r *Rooter) Root(n *network.Network) (*network.Network, Policy, error) {
	if len(n.Taxa()) == 0 {
		return nil, "", ErrNoLeaves
	}
	g := newBackbone(n)
	if n.Len() == 1 {
		return n, PolicyEccentricity, nil
	}

	var target position
	var policy Policy
	switch {
	case r.outgroup != "":
		leaf, ok := n.LeafByLabel(r.outgroup)
		if !ok {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownOutgroup, r.outgroup)
		}
		target, policy = g.pendant(leaf), PolicyOutgroup
	case n.HasLengths():
		var ok bool
		if target, ok = g.midpoint(); ok {
			policy = PolicyMidpoint
			break
		}
		fallthrough
	default:
		target, policy = g.eccentric(), PolicyEccentricity
	}

	for i, pos := range g.candidates(target) {
		out, err := g.reroot(pos)
		if err != nil {
			continue
		}
		if i > 0 {
			r.logger.Info("root moved to keep reticulation edges acyclic", "policy", policy, "edge", fmt.Sprintf("%d-%d", pos.a, pos.b))
			policy = PolicyFallback
		}
		return out, policy, nil
	}

	// The original root never reverses an edge.
	out, err := g.reroot(position{a: n.Root(), b: network.NoNode})
	if err != nil {
		panic(fmt.Sprintf("rooting: %v", err))
	}
	return out, PolicyFallback, nil
}

// position is a point on the backbone: node a when b is NoNode, otherwise
// the edge a-b at offset from a.
type position struct {
	a, b   network.NodeID
	offset *float64
}

type neighbour struct {
	id     network.NodeID
	length *float64
}

type secondary struct {
	from, to network.NodeID
	length   *float64
}

// backbone is the undirected tree formed by the first parent edge of every
// node, plus the reticulation edges kept aside.
type backbone struct {
	n     *network.Network
	adj   [][]neighbour
	extra []secondary
	// sources marks nodes that are the tail of a reticulation edge.
	sources map[network.NodeID]bool
}

func newBackbone(n *network.Network) *backbone {
	g := &backbone{
		n:       n,
		adj:     make([][]neighbour, n.Len()),
		sources: make(map[network.NodeID]bool),
	}
	for i := 0; i < n.Len(); i++ {
		id := network.NodeID(i)
		for k, pe := range n.Parents(id) {
			if k == 0 {
				g.adj[id] = append(g.adj[id], neighbour{pe.Parent, pe.Length})
				continue
			}
			g.extra = append(g.extra, secondary{pe.Parent, id, pe.Length})
			g.sources[pe.Parent] = true
		}
	}
	for i := 0; i < n.Len(); i++ {
		id := network.NodeID(i)
		for _, c := range n.Children(id) {
			if n.Parents(c)[0].Parent == id {
				l, _ := n.EdgeLength(id, c)
				g.adj[id] = append(g.adj[id], neighbour{c, l})
			}
		}
	}
	return g
}

func (g *backbone) edgeLength(a, b network.NodeID) *float64 {
	for _, nb := range g.adj[a] {
		if nb.id == b {
			return nb.length
		}
	}
	return nil
}

// pendant is the middle of the edge above leaf.
func (g *backbone) pendant(leaf network.NodeID) position {
	p := g.n.Parents(leaf)[0].Parent
	return g.half(p, leaf)
}

func (g *backbone) half(a, b network.NodeID) position {
	pos := position{a: a, b: b}
	if l := g.edgeLength(a, b); l != nil {
		h := *l / 2
		pos.offset = &h
	}
	return pos
}

// walk returns hop counts, path lengths and predecessors from src.
func (g *backbone) walk(src network.NodeID) ([]int, []float64, []network.NodeID) {
	hops := make([]int, len(g.adj))
	dist := make([]float64, len(g.adj))
	prev := make([]network.NodeID, len(g.adj))
	for i := range hops {
		hops[i] = -1
		prev[i] = network.NoNode
	}
	hops[src] = 0
	queue := []network.NodeID{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range g.adj[cur] {
			if hops[nb.id] >= 0 {
				continue
			}
			hops[nb.id] = hops[cur] + 1
			dist[nb.id] = dist[cur]
			if nb.length != nil {
				dist[nb.id] += *nb.length
			}
			prev[nb.id] = cur
			queue = append(queue, nb.id)
		}
	}
	return hops, dist, prev
}

func (g *backbone) taxa() []network.NodeID {
	var out []network.NodeID
	for _, id := range g.n.Leaves() {
		if g.n.Label(id) != "" {
			out = append(out, id)
		}
	}
	return out
}

// midpoint finds the point halfway along the longest leaf-to-leaf path.
// ok is false when every path has zero length.
func (g *backbone) midpoint() (position, bool) {
	leaves := g.taxa()
	best, from, to := 0.0, network.NoNode, network.NoNode
	var bestPrev []network.NodeID
	var bestDist []float64
	for i, a := range leaves {
		_, dist, prev := g.walk(a)
		for _, b := range leaves[i+1:] {
			if dist[b] > best {
				best, from, to = dist[b], a, b
				bestPrev, bestDist = prev, dist
			}
		}
	}
	if from == network.NoNode {
		return position{}, false
	}

	half := best / 2
	// Walk back from to toward from until the half mark is crossed.
	cur := to
	for cur != from {
		p := bestPrev[cur]
		if bestDist[p] <= half {
			if bestDist[p] == half {
				return position{a: p, b: network.NoNode}, true
			}
			off := half - bestDist[p]
			return position{a: p, b: cur, offset: &off}, true
		}
		cur = p
	}
	return position{a: from, b: network.NoNode}, true
}

// eccentric picks the node with the largest hop eccentricity, smallest id on
// ties. Such a node is always a leaf, so the root goes on its pendant edge.
func (g *backbone) eccentric() position {
	best, bestEcc := network.NoNode, -1
	for i := range g.adj {
		hops, _, _ := g.walk(network.NodeID(i))
		ecc := 0
		for _, h := range hops {
			ecc = max(ecc, h)
		}
		if ecc > bestEcc {
			best, bestEcc = network.NodeID(i), ecc
		}
	}
	if g.n.IsLeaf(best) && best != g.n.Root() {
		return g.pendant(best)
	}
	return position{a: best, b: network.NoNode}
}

type edge struct {
	a, b network.NodeID
}

// candidates lists target first, then the midpoint of every other backbone
// edge by hop distance from target, ties broken by node ids.
func (g *backbone) candidates(target position) []position {
	hops, _, _ := g.walk(target.a)
	if target.b != network.NoNode {
		hb, _, _ := g.walk(target.b)
		for i := range hops {
			hops[i] = min(hops[i], hb[i])
		}
	}

	var edges []edge
	for i := range g.adj {
		id := network.NodeID(i)
		for _, nb := range g.adj[id] {
			if id < nb.id {
				edges = append(edges, edge{id, nb.id})
			}
		}
	}
	sort.SliceStable(edges, func(i, j int) bool {
		di := min(hops[edges[i].a], hops[edges[i].b])
		dj := min(hops[edges[j].a], hops[edges[j].b])
		if di != dj {
			return di < dj
		}
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})

	out := []position{target}
	for _, e := range edges {
		if (e.a == target.a && e.b == target.b) || (e.a == target.b && e.b == target.a) {
			continue
		}
		out = append(out, g.half(e.a, e.b))
	}
	return out
}

// frame is a pending backbone node: id reached from its neighbour from,
// to be attached under parent (a node of the new network).
type frame struct {
	id     network.NodeID
	from   network.NodeID
	parent network.NodeID
	length *float64
}

// reroot rebuilds the network hanging from pos. It fails with
// network.ErrCycle when a reticulation edge would point back up.
func (g *backbone) reroot(pos position) (*network.Network, error) {
	b := network.NewBuilder()
	mapped := make(map[network.NodeID]network.NodeID)
	var stack []frame

	var root network.NodeID
	if pos.b == network.NoNode {
		root, _ = b.AddNode(g.n.Label(pos.a))
		mapped[pos.a] = root
		next := g.oriented(pos.a, network.NoNode)
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: next[i].id, from: pos.a, parent: root, length: next[i].length})
		}
	} else {
		root, _ = b.AddNode("")
		var la, lb *float64
		if full := g.edgeLength(pos.a, pos.b); full != nil {
			off := 0.0
			if pos.offset != nil {
				off = *pos.offset
			}
			x, y := off, max(*full-off, 0)
			la, lb = &x, &y
		}
		// b is pushed first so a is expanded first.
		stack = append(stack,
			frame{id: pos.b, from: pos.a, parent: root, length: lb},
			frame{id: pos.a, from: pos.b, parent: root, length: la},
		)
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next := g.oriented(f.id, f.from)
		if len(next) == 1 && g.n.Label(f.id) == "" && !g.n.IsReticulation(f.id) && !g.sources[f.id] {
			// Unary: splice it out and carry its length down.
			stack = append(stack, frame{id: next[0].id, from: f.id, parent: f.parent, length: sum(f.length, next[0].length)})
			continue
		}

		id, _ := b.AddNode(g.n.Label(f.id))
		mapped[f.id] = id
		if err := b.AddEdge(f.parent, id, f.length); err != nil {
			return nil, err
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: next[i].id, from: f.id, parent: id, length: next[i].length})
		}
	}

	for _, e := range g.extra {
		if err := b.AddEdge(mapped[e.from], mapped[e.to], e.length); err != nil {
			return nil, err
		}
	}
	if err := b.SetRoot(root); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// oriented lists the backbone neighbours of id except from, in stored order.
func (g *backbone) oriented(id, from network.NodeID) []neighbour {
	var out []neighbour
	for _, nb := range g.adj[id] {
		if nb.id != from {
			out = append(out, nb)
		}
	}
	return out
}

func sum(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	var s float64
	if a != nil {
		s += *a
	}
	if b != nil {
		s += *b
	}
	return &s
}
