package resolve

import (
	"sort"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/quartet"
)

// cluster is a set of taxa already joined under one backbone node.
type cluster struct {
	node    network.NodeID
	members []int
	min     string
	height  float64
}

// support is a winning quartet expressed over taxon indices.
type support struct {
	taxa   [4]int
	pairs  [2][2]int // positions into taxa
	weight float64
}

// buildBackbone joins taxa bottom-up into a tree. At each round the pair of
// clusters with the highest share of quartet support wins: a quartet whose
// four taxa sit in four distinct clusters counts toward every cluster pair,
// and toward the agreement of the two pairs it groups. Ties go to the
// smaller combined cluster, then to the smaller taxon labels. Once three
// clusters remain, or no pair has support, the rest hang from a common root.
//
// The leaf for taxa[i] is node i. Returns the root.
func buildBackbone(b *network.Builder, tab *quartet.Table, taxa []string, signals []Signal) network.NodeID {
	index := make(map[string]int, len(taxa))
	for i, x := range taxa {
		index[x] = i
	}

	clusters := make([]*cluster, len(taxa))
	owner := make([]int, len(taxa))
	for i, x := range taxa {
		id, _ := b.AddNode(x)
		clusters[i] = &cluster{node: id, members: []int{i}, min: x}
		owner[i] = i
	}

	var quartets []support
	for _, s := range signals {
		if !s.Winner {
			continue
		}
		first, second, _ := s.Topology.Pairs()
		q := support{weight: float64(s.Weight), pairs: [2][2]int{first, second}}
		for i, x := range s.Key {
			q.taxa[i] = index[x]
		}
		quartets = append(quartets, q)
	}

	lengths := tab.HasLengths()
	mean := func(a, c *cluster) float64 {
		var sum float64
		var n int
		for _, i := range a.members {
			for _, j := range c.members {
				if d, ok := tab.MeanDistance(taxa[i], taxa[j]); ok {
					sum += d
					n++
				}
			}
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}

	active := make([]int, len(clusters))
	for i := range active {
		active[i] = i
	}

	for len(active) > 3 {
		m := len(active)
		slot := make(map[int]int, m)
		for s, ci := range active {
			slot[ci] = s
		}
		num := make([][]float64, m)
		den := make([][]float64, m)
		for i := range num {
			num[i] = make([]float64, m)
			den[i] = make([]float64, m)
		}

		for _, q := range quartets {
			var c [4]int
			distinct := true
			for i, x := range q.taxa {
				c[i] = slot[owner[x]]
				for j := 0; j < i; j++ {
					if c[j] == c[i] {
						distinct = false
					}
				}
			}
			if !distinct {
				continue
			}
			for i := 0; i < 4; i++ {
				for j := i + 1; j < 4; j++ {
					x, y := ordered(c[i], c[j])
					den[x][y] += q.weight
				}
			}
			for _, p := range q.pairs {
				x, y := ordered(c[p[0]], c[p[1]])
				num[x][y] += q.weight
			}
		}

		bx, by, bestScore := -1, -1, 0.0
		for x := 0; x < m; x++ {
			for y := x + 1; y < m; y++ {
				if den[x][y] == 0 {
					continue
				}
				score := num[x][y] / den[x][y]
				if score <= 0 {
					continue
				}
				if bx < 0 || score > bestScore ||
					(score == bestScore && lessPair(clusters[active[x]], clusters[active[y]], clusters[active[bx]], clusters[active[by]])) {
					bx, by, bestScore = x, y, score
				}
			}
		}
		if bx < 0 {
			break
		}

		left, right := clusters[active[bx]], clusters[active[by]]
		if right.min < left.min {
			left, right = right, left
		}
		node, _ := b.AddNode("")
		merged := &cluster{
			node:    node,
			members: append(append([]int(nil), left.members...), right.members...),
			min:     left.min,
		}
		if lengths {
			merged.height = mean(left, right) / 2
		}
		attach(b, merged, left, lengths)
		attach(b, merged, right, lengths)

		id := len(clusters)
		clusters = append(clusters, merged)
		for _, x := range merged.members {
			owner[x] = id
		}
		next := active[:0:0]
		for s, ci := range active {
			if s != bx && s != by {
				next = append(next, ci)
			}
		}
		active = append(next, id)
	}

	if len(active) == 1 {
		return clusters[active[0]].node
	}

	rest := make([]*cluster, len(active))
	for i, ci := range active {
		rest[i] = clusters[ci]
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].min < rest[j].min })

	root, _ := b.AddNode("")
	top := &cluster{node: root}
	if lengths {
		for i := range rest {
			for j := i + 1; j < len(rest); j++ {
				top.height = max(top.height, mean(rest[i], rest[j])/2)
			}
		}
	}
	for _, c := range rest {
		attach(b, top, c, lengths)
	}
	return root
}

// attach adds parent -> child with an ultrametric length when lengths are
// known. Lengths never go negative.
func attach(b *network.Builder, parent, child *cluster, lengths bool) {
	var l *float64
	if lengths {
		v := max(parent.height-child.height, 0)
		l = &v
	}
	// Both nodes are fresh or parentless, so the edge cannot fail.
	_ = b.AddEdge(parent.node, child.node, l)
}

// lessPair orders candidate merges: smaller combined size first, then
// smaller labels.
func lessPair(a1, a2, b1, b2 *cluster) bool {
	sa, sb := len(a1.members)+len(a2.members), len(b1.members)+len(b2.members)
	if sa != sb {
		return sa < sb
	}
	al, ah := orderedLabels(a1.min, a2.min)
	bl, bh := orderedLabels(b1.min, b2.min)
	if al != bl {
		return al < bl
	}
	return ah < bh
}

func orderedLabels(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func ordered(a, b int) (int, int) {
	if b < a {
		return b, a
	}
	return a, b
}
