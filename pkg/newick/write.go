package newick

import (
	"strconv"
	"strings"

	"github.com/aretw0/reticula/pkg/tree"
)

// Write renders t as a single Newick tree terminated by ';'. Children keep
// their stored order and lengths use the shortest exact float formatting, so
// Parse(Write(t)) reproduces t.
func Write(t *tree.Tree) string {
	var sb strings.Builder
	type frame struct {
		id   tree.NodeID
		next int
	}
	stack := []frame{{id: t.Root()}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := t.Children(top.id)
		if len(children) > 0 && top.next < len(children) {
			if top.next == 0 {
				sb.WriteByte(descStart)
			} else {
				sb.WriteByte(descDelimiter)
			}
			child := children[top.next]
			top.next++
			stack = append(stack, frame{id: child})
			continue
		}
		if len(children) > 0 {
			sb.WriteByte(descEnd)
		}
		sb.WriteString(t.Label(top.id))
		if l, ok := t.Length(top.id); ok {
			sb.WriteByte(lengthStart)
			sb.WriteString(FormatLength(l))
		}
		stack = stack[:len(stack)-1]
	}
	sb.WriteByte(terminal)
	return sb.String()
}

// FormatLength formats a branch length with the fewest digits that parse
// back to the same float64.
func FormatLength(l float64) string {
	return strconv.FormatFloat(l, 'g', -1, 64)
}
