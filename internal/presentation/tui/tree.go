package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/newick"
	"github.com/aretw0/reticula/pkg/tree"
	"github.com/muesli/termenv"
)

// Palette colours the parts of an ASCII drawing. The zero value draws
// plain text.
type Palette struct {
	taxon       termenv.Color
	reticulated termenv.Color
	enabled     bool
}

// NewPalette detects the terminal's colour profile.
func NewPalette() Palette {
	p := termenv.ColorProfile()
	return Palette{
		taxon:       p.Color("#34d399"),
		reticulated: p.Color("#f472b6"),
		enabled:     p != termenv.Ascii,
	}
}

func (p Palette) paint(s string, c termenv.Color) string {
	if !p.enabled || s == "" {
		return s
	}
	return termenv.String(s).Foreground(c).String()
}

// item is one line of a drawing awaiting output.
type item struct {
	id     int
	prefix string
	last   bool
	top    bool
}

// draw renders a rooted structure with ├── and └── connectors using an
// explicit stack. expand reports whether id's children should be drawn.
func draw(root int, children func(int) []int, name func(int) string, expand func(int) bool) string {
	var sb strings.Builder
	stack := []item{{id: root, top: true}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		childPrefix := ""
		if it.top {
			sb.WriteString(name(it.id))
		} else {
			connector, pad := "├── ", "│   "
			if it.last {
				connector, pad = "└── ", "    "
			}
			sb.WriteString(it.prefix + connector + name(it.id))
			childPrefix = it.prefix + pad
		}
		sb.WriteByte('\n')

		if !expand(it.id) {
			continue
		}
		kids := children(it.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, item{id: kids[i], prefix: childPrefix, last: i == len(kids)-1})
		}
	}
	return sb.String()
}

func withLength(label string, length *float64) string {
	if length == nil {
		return label
	}
	return label + ":" + newick.FormatLength(*length)
}

// DrawTree renders t as an indented ASCII tree. Unlabelled internal nodes
// are drawn as "*".
func DrawTree(t *tree.Tree, p Palette) string {
	children := func(id int) []int {
		kids := t.Children(tree.NodeID(id))
		out := make([]int, len(kids))
		for i, k := range kids {
			out[i] = int(k)
		}
		return out
	}
	name := func(id int) string {
		nid := tree.NodeID(id)
		label := t.Label(nid)
		if t.IsLeaf(nid) {
			label = p.paint(label, p.taxon)
		} else if label == "" {
			label = "*"
		}
		var length *float64
		if l, ok := t.Length(nid); ok {
			length = &l
		}
		return withLength(label, length)
	}
	return draw(int(t.Root()), children, name, func(int) bool { return true })
}

// DrawNetwork renders n as an ASCII tree. A reticulation is expanded at its
// first occurrence only; later occurrences show a "#Hn (ref)" reference.
func DrawNetwork(n *network.Network, p Palette) string {
	tags := make(map[network.NodeID]string)
	for i, h := range n.Reticulations() {
		tags[h] = fmt.Sprintf("#H%d", i+1)
	}

	// Each visit of a node is keyed by the parent it is drawn under, so
	// draw ids encode (parent, child) pairs.
	type visit struct{ parent, node network.NodeID }
	visits := []visit{{network.NoNode, n.Root()}}
	expanded := make(map[network.NodeID]bool)

	children := func(id int) []int {
		v := visits[id]
		kids := n.Children(v.node)
		out := make([]int, len(kids))
		for i, k := range kids {
			visits = append(visits, visit{v.node, k})
			out[i] = len(visits) - 1
		}
		return out
	}
	expand := func(id int) bool {
		v := visits[id]
		if _, ok := tags[v.node]; !ok {
			return true
		}
		if expanded[v.node] {
			return false
		}
		expanded[v.node] = true
		return true
	}
	name := func(id int) string {
		v := visits[id]
		label := n.Label(v.node)
		if n.IsLeaf(v.node) {
			label = p.paint(label, p.taxon)
		}
		if tag, ok := tags[v.node]; ok {
			if expanded[v.node] {
				label += p.paint(tag+" (ref)", p.reticulated)
			} else {
				label += p.paint(tag, p.reticulated)
			}
		} else if label == "" {
			label = "*"
		}
		var length *float64
		if v.parent != network.NoNode {
			length, _ = n.EdgeLength(v.parent, v.node)
		}
		return withLength(label, length)
	}
	// name runs before expand for each line, so a tag is shown in full
	// the first time and as a reference afterwards.
	return draw(0, children, name, expand)
}

// Traversals lists t's labels in preorder and postorder, one order per
// line. Unlabelled nodes are shown as "*".
func Traversals(t *tree.Tree) string {
	label := func(id tree.NodeID) string {
		if l := t.Label(id); l != "" {
			return l
		}
		return "*"
	}
	join := func(ids []tree.NodeID) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = label(id)
		}
		return strings.Join(parts, " ")
	}
	return "preorder:  " + join(t.Preorder()) + "\n" +
		"postorder: " + join(t.Postorder()) + "\n"
}
