// Package export renders networks as extended Newick.
//
// A reticulation node is written in full at its first occurrence and tagged
// "#H<n>"; every other edge into it is written as the bare reference
// "#H<n>.<k>", k counting occurrences from 2. Tags are numbered in order of
// first occurrence. By default children are ordered by the taxa they reach,
// then by a structural hash of their subtree, so isomorphic networks export
// to equal strings whatever their node numbering.
package export

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
)

// Exporter writes extended Newick.
type Exporter struct {
	sourceOrder bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithSourceOrder keeps children in stored order instead of canonical order.
func WithSourceOrder() Option {
	return func(e *Exporter) {
		e.sourceOrder = true
	}
}

// New returns an Exporter with the given options applied.
func New(opts ...Option) *Exporter {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders n with default options.
func Export(n *network.Network) string {
	return New().Export(n)
}

// Export renders n as one extended Newick string terminated by ';'. A
// network that fails validation is a bug upstream and panics.
func (e *Exporter) Export(n *network.Network) string {
	if err := n.Builder().Validate(); err != nil {
		panic(fmt.Sprintf("export: %v", err))
	}

	var keys map[network.NodeID]orderKey
	if !e.sourceOrder {
		keys = orderKeys(n)
	}
	children := func(id network.NodeID) []network.NodeID {
		cs := n.Children(id)
		if e.sourceOrder {
			return cs
		}
		ranked := make([]orderKey, len(cs))
		out := make([]network.NodeID, len(cs))
		idx := make([]int, len(cs))
		for i, c := range cs {
			ranked[i] = keys[c].edge(n, id, c)
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return ranked[idx[i]].less(ranked[idx[j]])
		})
		for i, j := range idx {
			out[i] = cs[j]
		}
		return out
	}

	tags := make(map[network.NodeID]int)
	seen := make(map[network.NodeID]int)

	var sb strings.Builder
	type frame struct {
		id       network.NodeID
		from     network.NodeID
		children []network.NodeID
		next     int
	}
	enter := func(id, from network.NodeID) frame {
		if n.IsReticulation(id) {
			tags[id] = len(tags) + 1
			seen[id] = 1
		}
		return frame{id: id, from: from, children: children(id)}
	}

	stack := []frame{enter(n.Root(), network.NoNode)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.children) {
			if top.next == 0 {
				sb.WriteByte('(')
			} else {
				sb.WriteByte(',')
			}
			c := top.children[top.next]
			top.next++
			if tag, ok := tags[c]; ok {
				seen[c]++
				sb.WriteString("#H" + strconv.Itoa(tag) + "." + strconv.Itoa(seen[c]))
				writeLength(&sb, n, top.id, c)
				continue
			}
			stack = append(stack, enter(c, top.id))
			continue
		}
		if len(top.children) > 0 {
			sb.WriteByte(')')
		}
		sb.WriteString(n.Label(top.id))
		if tag, ok := tags[top.id]; ok {
			sb.WriteString("#H" + strconv.Itoa(tag))
		}
		if top.from != network.NoNode {
			writeLength(&sb, n, top.from, top.id)
		}
		stack = stack[:len(stack)-1]
	}
	sb.WriteByte(';')
	return sb.String()
}

func writeLength(sb *strings.Builder, n *network.Network, parent, child network.NodeID) {
	if l, _ := n.EdgeLength(parent, child); l != nil {
		sb.WriteByte(':')
		sb.WriteString(newick.FormatLength(*l))
	}
}

// orderKey ranks a child below its parent. shape hashes the child's
// subtree: labels, reticulation marks, edge lengths and the shapes of its
// children as a multiset. Equal keys mean isomorphic subtrees.
type orderKey struct {
	taxa  []string
	shape uint64
}

func (k orderKey) less(o orderKey) bool {
	if c := slices.Compare(k.taxa, o.taxa); c != 0 {
		return c < 0
	}
	return k.shape < o.shape
}

// edge folds the length of parent -> child into the key.
func (k orderKey) edge(n *network.Network, parent, child network.NodeID) orderKey {
	h := xxhash.New()
	writeUint(h, k.shape)
	if l, _ := n.EdgeLength(parent, child); l != nil {
		_, _ = h.WriteString(":" + newick.FormatLength(*l))
	}
	return orderKey{taxa: k.taxa, shape: h.Sum64()}
}

// orderKeys maps every node to the sorted taxa it reaches and its subtree
// shape. Nodes that reach no taxon sort last.
func orderKeys(n *network.Network) map[network.NodeID]orderKey {
	order, _ := n.TopologicalOrder()
	sets := make(map[network.NodeID]map[string]bool, len(order))
	keys := make(map[network.NodeID]orderKey, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		set := make(map[string]bool)
		if n.IsLeaf(id) && n.Label(id) != "" {
			set[n.Label(id)] = true
		}
		shapes := make([]uint64, 0, len(n.Children(id)))
		for _, c := range n.Children(id) {
			for x := range sets[c] {
				set[x] = true
			}
			shapes = append(shapes, keys[c].edge(n, id, c).shape)
		}
		sets[id] = set
		slices.SortFunc(shapes, cmp.Compare[uint64])

		h := xxhash.New()
		_, _ = h.WriteString(n.Label(id))
		if n.IsReticulation(id) {
			_, _ = h.WriteString("#")
		}
		for _, s := range shapes {
			writeUint(h, s)
		}

		taxa := make([]string, 0, len(set))
		for x := range set {
			taxa = append(taxa, x)
		}
		sort.Strings(taxa)
		if len(taxa) == 0 {
			taxa = []string{"\U0010FFFF"}
		}
		keys[id] = orderKey{taxa: taxa, shape: h.Sum64()}
	}
	return keys
}

func writeUint(h *xxhash.Digest, v uint64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(b[:])
}
