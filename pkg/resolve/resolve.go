package resolve

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/quartet"
	"github.com/aretw0/reticula/pkg/tree"
)

// DefaultConflictThreshold keeps alternatives that tie the winner.
const DefaultConflictThreshold = 1.0

// Reticulation records one reticulation node and the lineage feeding its
// second parent edge. Repeated conflicts between the same two lineages reuse
// the record instead of adding nodes.
type Reticulation struct {
	// Node is the reticulation (indegree >= 2).
	Node network.NodeID
	// Source is the parent of the reticulation edge.
	Source network.NodeID
	// Dependents are the taxa of every quartet this record absorbed, sorted.
	Dependents []string
	// Quartets counts the signals absorbed.
	Quartets int
}

// Result is the outcome of a resolution run.
type Result struct {
	Network *network.Network
	Taxa    []string
	// Signals lists every winning and conflicting topology in processing
	// order, with its final status.
	Signals       []Signal
	Reticulations []Reticulation
	// Irreconcilable counts signals the backbone tree does not display.
	Irreconcilable int
}

// Resolver builds a network from a quartet table.
type Resolver struct {
	threshold float64
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConflictThreshold sets the minimum weight, relative to the winner,
// for an alternative topology to count as conflicting signal.
func WithConflictThreshold(f float64) Option {
	return func(r *Resolver) {
		r.threshold = max(f, 0)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver with the given options applied.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		threshold: DefaultConflictThreshold,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs with default options.
func Resolve(tab *quartet.Table) *Result {
	return New().Resolve(tab)
}

// Resolve builds the backbone tree from winning quartets and absorbs every
// signal the backbone cannot display as a reticulation. The result is
// deterministic for a given table. A network that fails validation is a bug
// and panics.
func (r *Resolver) Resolve(tab *quartet.Table) *Result {
	taxa := tab.Taxa()
	signals := decide(tab, r.threshold)

	b := network.NewBuilder()
	root := buildBackbone(b, tab, taxa, signals)
	if err := b.SetRoot(root); err != nil {
		panic(fmt.Sprintf("resolve: %v", err))
	}

	a, err := newAbsorber(b, tab.HasLengths())
	if err != nil {
		panic(fmt.Sprintf("resolve: %v", err))
	}

	res := &Result{Taxa: taxa}
	for i := range signals {
		s := &signals[i]
		a.absorb(s)
		if s.Status != Committed {
			res.Irreconcilable++
		}
		if s.Status == Conflicting {
			r.logger.Warn("quartet could not be placed", "quartet", s.Key.Split(s.Topology), "weight", s.Weight, "support", s.Support)
		}
	}

	n, err := b.Freeze()
	if err != nil {
		panic(fmt.Sprintf("resolve: %v", err))
	}
	res.Network = n
	res.Signals = signals
	res.Reticulations = a.reticulations

	r.logger.Debug("network resolved",
		"taxa", len(taxa),
		"signals", len(signals),
		"irreconcilable", res.Irreconcilable,
		"reticulations", len(res.Reticulations),
	)
	return res
}

type absorber struct {
	b       *network.Builder
	leaf    map[string]network.NodeID
	lengths bool
	// sizes counts the backbone taxa below every node, along tree edges.
	sizes         map[network.NodeID]int
	records       map[[2]network.NodeID]int
	reticulations []Reticulation
}

// newAbsorber prepares absorption on b, which must still be a tree.
func newAbsorber(b *network.Builder, lengths bool) (*absorber, error) {
	a := &absorber{
		b:       b,
		leaf:    make(map[string]network.NodeID),
		lengths: lengths,
		sizes:   make(map[network.NodeID]int),
		records: make(map[[2]network.NodeID]int),
	}
	for _, id := range b.Leaves() {
		a.leaf[b.Label(id)] = id
	}

	// Snapshot the backbone into the tree store for its leaf counts.
	tb := tree.NewBuilder()
	order := b.Preorder()
	ids := make(map[network.NodeID]tree.NodeID, len(order))
	for _, id := range order {
		parent := tree.NoNode
		if pe := b.Parents(id); len(pe) > 0 {
			parent = ids[pe[0].Parent]
		}
		ids[id] = tb.Add(parent, b.Label(id), nil)
	}
	t, err := tb.Build()
	if err != nil {
		return nil, err
	}
	counts := t.SubtreeLeafCounts()
	for id, tid := range ids {
		a.sizes[id] = counts[tid]
	}
	return a, nil
}

// noSwitch leaves every node on its tree edge.
var noSwitch = switching{node: network.NoNode}

// switching replaces the tree parent of node with parent, selecting one of
// the trees the network displays.
type switching struct {
	node, parent network.NodeID
}

// parent follows the tree edge of id, or the switched edge.
func (a *absorber) parent(id network.NodeID, sw switching) network.NodeID {
	if id == sw.node {
		return sw.parent
	}
	pe := a.b.Parents(id)
	if len(pe) == 0 {
		return network.NoNode
	}
	return pe[0].Parent
}

func (a *absorber) depth(id network.NodeID, sw switching) int {
	d := 0
	for p := a.parent(id, sw); p != network.NoNode; p = a.parent(p, sw) {
		d++
	}
	return d
}

func (a *absorber) lca(x, y network.NodeID, sw switching) network.NodeID {
	dx, dy := a.depth(x, sw), a.depth(y, sw)
	for dx > dy {
		x = a.parent(x, sw)
		dx--
	}
	for dy > dx {
		y = a.parent(y, sw)
		dy--
	}
	for x != y {
		x, y = a.parent(x, sw), a.parent(y, sw)
	}
	return x
}

// displays reports whether the tree selected by sw resolves k as t. Unary
// nodes inserted by earlier reticulations do not change the answer because
// only depths along a common ancestor path are compared.
func (a *absorber) displays(k quartet.Key, t quartet.Topology, sw switching) bool {
	var d [4][4]int
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			d[i][j] = a.depth(a.lca(a.leaf[k[i]], a.leaf[k[j]], sw), sw)
		}
	}
	return quartet.ClassifyDepths(&d) == t
}

// contested returns the root of the largest backbone subtree holding
// k[pos] and none of the other three taxa.
func (a *absorber) contested(k quartet.Key, pos int) network.NodeID {
	blocked := make(map[network.NodeID]bool)
	for i, x := range k {
		if i == pos {
			continue
		}
		for cur := a.leaf[x]; cur != network.NoNode; cur = a.parent(cur, noSwitch) {
			blocked[cur] = true
		}
	}
	cur := a.leaf[k[pos]]
	for {
		p := a.parent(cur, noSwitch)
		if p == network.NoNode || blocked[p] {
			return cur
		}
		cur = p
	}
}

type candidate struct {
	pos     int
	subtree network.NodeID
	size    int
}

// absorb sets the status of s, adding or reusing a reticulation when the
// backbone contradicts it.
func (a *absorber) absorb(s *Signal) {
	if a.displays(s.Key, s.Topology, noSwitch) {
		s.Status = Committed
		return
	}
	// A reticulation already in place may display the quartet.
	for i := range a.reticulations {
		r := &a.reticulations[i]
		if a.displays(s.Key, s.Topology, switching{node: r.Node, parent: r.Source}) {
			r.note(s.Key)
			s.Status = Reticulated
			return
		}
	}

	first, second, _ := s.Topology.Pairs()
	var partner [4]int
	partner[first[0]], partner[first[1]] = first[1], first[0]
	partner[second[0]], partner[second[1]] = second[1], second[0]

	cands := make([]candidate, 4)
	for pos := range cands {
		st := a.contested(s.Key, pos)
		cands[pos] = candidate{pos: pos, subtree: st, size: a.sizes[st]}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].size != cands[j].size {
			return cands[i].size < cands[j].size
		}
		return s.Key[cands[i].pos] < s.Key[cands[j].pos]
	})

	for _, c := range cands {
		sp := a.contested(s.Key, partner[c.pos])
		if a.place(c.subtree, sp, s.Key) {
			s.Status = Reticulated
			return
		}
	}
	s.Status = Conflicting
}

// place makes the lineage above st a reticulation with a second parent
// edge coming from just above sp. Returns false if that would close a cycle.
func (a *absorber) place(st, sp network.NodeID, k quartet.Key) bool {
	if a.b.IsReticulation(st) {
		if i, ok := a.records[[2]network.NodeID{st, sp}]; ok {
			a.reticulations[i].note(k)
			return true
		}
	}

	pt, pp := a.parent(st, noSwitch), a.parent(sp, noSwitch)
	if pt == network.NoNode || pp == network.NoNode {
		return false
	}
	// The new edge runs from above sp into st's lineage.
	if a.b.Reaches(st, pp) {
		return false
	}

	h := st
	if !a.b.IsReticulation(st) {
		var err error
		if h, err = a.b.SubdivideEdge(pt, st, 0.5); err != nil {
			return false
		}
		a.sizes[h] = a.sizes[st]
	}
	u, err := a.b.SubdivideEdge(pp, sp, 0.5)
	if err != nil {
		return false
	}
	a.sizes[u] = a.sizes[sp]
	var l *float64
	if a.lengths {
		zero := 0.0
		l = &zero
	}
	if err := a.b.AddEdge(u, h, l); err != nil {
		return false
	}

	a.records[[2]network.NodeID{h, u}] = len(a.reticulations)
	r := Reticulation{Node: h, Source: u}
	r.note(k)
	a.reticulations = append(a.reticulations, r)
	return true
}

func (r *Reticulation) note(k quartet.Key) {
	r.Quartets++
	for _, x := range k {
		i := sort.SearchStrings(r.Dependents, x)
		if i < len(r.Dependents) && r.Dependents[i] == x {
			continue
		}
		r.Dependents = append(r.Dependents, "")
		copy(r.Dependents[i+1:], r.Dependents[i:])
		r.Dependents[i] = x
	}
}
