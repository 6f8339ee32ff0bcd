package quartet

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/reticula/pkg/tree"
)

// cancelStride is how many quartets a worker classifies between context checks.
const cancelStride = 4096

// Extractor turns a tree set into a quartet table.
type Extractor struct {
	workers int
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers caps the number of trees processed concurrently. n <= 0 uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		x.workers = n
	}
}

// WithLogger sets the logger used for per-tree diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(x *Extractor) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewExtractor returns an Extractor with the given options applied.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.workers <= 0 {
		x.workers = runtime.GOMAXPROCS(0)
	}
	return x
}

// Extract classifies every quartet of every tree. Trees are processed in
// parallel into private tables which are merged in input order, so the
// result does not depend on scheduling. Cancelling ctx aborts the run.
func (x *Extractor) Extract(ctx context.Context, trees []*tree.Tree) (*Table, error) {
	local := make([]*Table, len(trees))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, t := range trees {
		g.Go(func() error {
			tab, err := extractTree(ctx, t)
			if err != nil {
				return err
			}
			x.logger.Debug("tree classified", "tree", i, "taxa", len(tab.taxa), "quartets", tab.Len())
			local[i] = tab
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := NewTable()
	for _, tab := range local {
		out.Merge(tab)
	}
	return out, nil
}

// Extract classifies trees with default options.
func Extract(ctx context.Context, trees []*tree.Tree) (*Table, error) {
	return NewExtractor().Extract(ctx, trees)
}

// Classify returns the topology t induces on four leaves given in key order.
//
// Each pairing scores the depth of the deeper of its two pair-LCAs; the
// pairing whose pairs split below the others wins. A tie means no pairing
// is separated by an internal edge.
func Classify(t *tree.Tree, q [4]tree.NodeID) Topology {
	depth := func(a, b int) int {
		lca, ok := t.LCA(q[a], q[b])
		if !ok {
			return -1
		}
		d, _ := t.Depth(lca)
		return d
	}
	var pairDepth [4][4]int
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			pairDepth[a][b] = depth(a, b)
		}
	}
	return ClassifyDepths(&pairDepth)
}

// ClassifyDepths picks the unique best pairing from pair-LCA depths indexed
// by key position. Only the upper triangle (a < b) is read.
func ClassifyDepths(d *[4][4]int) Topology {
	best, bestScore, tie := Unresolved, -1, false
	for _, topo := range Resolved {
		p := pairings[topo]
		score := max(d[p[0][0]][p[0][1]], d[p[1][0]][p[1][1]])
		switch {
		case score > bestScore:
			best, bestScore, tie = topo, score, false
		case score == bestScore:
			tie = true
		}
	}
	if tie {
		return Unresolved
	}
	return best
}

// extractTree fills a private table for one tree. Taxa carried by more than
// one leaf make every quartet they appear in Unresolved.
func extractTree(ctx context.Context, t *tree.Tree) (*Table, error) {
	tab := NewTable()
	tab.trees = 1
	tab.lengths = t.HasLengths()

	byLabel := make(map[string][]tree.NodeID)
	for _, id := range t.Leaves() {
		l := t.Label(id)
		if l == "" {
			continue
		}
		byLabel[l] = append(byLabel[l], id)
	}
	taxa := make([]string, 0, len(byLabel))
	for l := range byLabel {
		taxa = append(taxa, l)
		tab.taxa[l] = true
	}
	sort.Strings(taxa)

	n := len(taxa)
	leaf := make([]tree.NodeID, n)
	dup := make([]bool, n)
	for i, l := range taxa {
		leaf[i] = byLabel[l][0]
		dup[i] = len(byLabel[l]) > 1
	}

	// Pair tables: LCA depth and patristic distance for unambiguous taxa.
	lcaDepth := make([][]int, n)
	dist := make([][]float64, n)
	for i := 0; i < n; i++ {
		lcaDepth[i] = make([]int, n)
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		if dup[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if dup[j] {
				continue
			}
			lca, _ := t.LCA(leaf[i], leaf[j])
			d, _ := t.Depth(lca)
			lcaDepth[i][j] = d
			pd, _ := t.PatristicDistance(leaf[i], leaf[j])
			dist[i][j] = pd
			tab.AddDistance(taxa[i], taxa[j], pd)
		}
	}

	var count int
	var idx [4]int
	var d [4][4]int
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			for c := b + 1; c < n; c++ {
				for e := c + 1; e < n; e++ {
					count++
					if count%cancelStride == 0 {
						if err := ctx.Err(); err != nil {
							return nil, err
						}
					}
					k := Key{taxa[a], taxa[b], taxa[c], taxa[e]}
					if dup[a] || dup[b] || dup[c] || dup[e] {
						tab.Add(k, Unresolved, 0)
						continue
					}
					idx = [4]int{a, b, c, e}
					for x := 0; x < 4; x++ {
						for y := x + 1; y < 4; y++ {
							d[x][y] = lcaDepth[idx[x]][idx[y]]
						}
					}
					topo := ClassifyDepths(&d)
					if topo == Unresolved {
						tab.Add(k, topo, 0)
						continue
					}
					p := pairings[topo]
					pd := dist[idx[p[0][0]]][idx[p[0][1]]] + dist[idx[p[1][0]]][idx[p[1][1]]]
					tab.Add(k, topo, pd)
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tab, nil
}
