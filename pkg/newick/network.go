package newick

import (
	"fmt"
	"strings"

	"github.com/aretw0/reticula/pkg/network"
)

// netParser reads extended Newick on top of the tree scanner. Node ids are
// assigned in order of appearance and edges in order of completion, so the
// first occurrence of a tagged node becomes its tree edge.
type netParser struct {
	*parser
	nb    *network.Builder
	nodes []network.NodeID
	root  network.NodeID
	tags  map[string]network.NodeID
}

// ParseNetwork reads one extended Newick network. A label suffix "#X" tags a
// reticulation node: the first occurrence defines it, later ones (usually
// written "#X.k") add another parent edge. A tag must be defined before it
// is referenced.
func ParseNetwork(s string) (*network.Network, error) {
	p := &netParser{
		parser: newParser(s),
		nb:     network.NewBuilder(),
		root:   network.NoNode,
		tags:   make(map[string]network.NodeID),
	}
	n, err := p.scan()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf(ErrUnexpectedToken, p.pos, p.input[p.pos:p.pos+1])
	}
	return n, nil
}

func (p *netParser) scan() (*network.Network, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, p.errorf(ErrUnexpectedEnd, p.pos, "")
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == descStart:
			if err := p.open(); err != nil {
				return nil, err
			}
		case c == descEnd:
			if err := p.close(); err != nil {
				return nil, err
			}
		case c == descDelimiter:
			if len(p.nodes) == 0 {
				return nil, p.errorf(ErrUnexpectedToken, p.pos, ",")
			}
			p.pos++
		case c == terminal:
			p.pos++
			return p.finish()
		case isSpace(c):
			p.pos++
		default:
			if err := p.leaf(); err != nil {
				return nil, err
			}
		}
	}
	return p.finish()
}

func (p *netParser) open() error {
	if len(p.nodes) == 0 && p.root != network.NoNode {
		return p.errorf(ErrUnexpectedToken, p.pos, "(")
	}
	id, err := p.nb.AddNode("")
	if err != nil {
		return err
	}
	if len(p.nodes) == 0 {
		p.root = id
	}
	p.nodes = append(p.nodes, id)
	p.pos++
	return nil
}

func (p *netParser) close() error {
	if len(p.nodes) == 0 {
		return p.errorf(ErrUnbalancedParentheses, p.pos, ")")
	}
	id := p.nodes[len(p.nodes)-1]
	p.nodes = p.nodes[:len(p.nodes)-1]
	p.pos++

	p.skipSpace()
	start := p.pos
	label, tag := splitTag(p.label())
	if err := p.nb.SetLabel(id, label); err != nil {
		return err
	}
	if tag != "" {
		if _, dup := p.tags[tag]; dup {
			return p.errorf(ErrUnexpectedToken, start, "#"+tag)
		}
		p.tags[tag] = id
	}
	length, err := p.length()
	if err != nil {
		return err
	}
	if len(p.nodes) == 0 {
		return nil
	}
	if err := p.nb.AddEdge(p.nodes[len(p.nodes)-1], id, length); err != nil {
		return p.errorf(ErrUnexpectedToken, start, err.Error())
	}
	return nil
}

func (p *netParser) leaf() error {
	start := p.pos
	raw := p.label()
	if len(p.nodes) == 0 {
		return p.errorf(ErrUnexpectedToken, start, raw)
	}
	label, tag := splitTag(raw)
	length, err := p.length()
	if err != nil {
		return err
	}
	parent := p.nodes[len(p.nodes)-1]

	if id, ok := p.tags[tag]; ok && tag != "" {
		if err := p.nb.AddEdge(parent, id, length); err != nil {
			return p.errorf(ErrUnexpectedToken, start, raw)
		}
		return nil
	}
	if label == "" && tag != "" {
		return p.errorf(ErrUnexpectedToken, start, raw)
	}

	id, err := p.nb.AddNode(label)
	if err != nil {
		return err
	}
	if tag != "" {
		p.tags[tag] = id
	}
	return p.nb.AddEdge(parent, id, length)
}

func (p *netParser) finish() (*network.Network, error) {
	if len(p.nodes) > 0 {
		return nil, p.errorf(ErrUnbalancedParentheses, p.pos, "")
	}
	if p.root == network.NoNode {
		return nil, p.errorf(ErrUnexpectedEnd, p.pos, "")
	}
	if err := p.nb.SetRoot(p.root); err != nil {
		return nil, err
	}
	n, err := p.nb.Freeze()
	if err != nil {
		return nil, fmt.Errorf("newick: %w", err)
	}
	return n, nil
}

// splitTag separates "name#H1.2" into "name" and "H1".
func splitTag(label string) (string, string) {
	i := strings.LastIndexByte(label, '#')
	if i < 0 {
		return label, ""
	}
	tag := label[i+1:]
	if j := strings.IndexByte(tag, '.'); j >= 0 {
		tag = tag[:j]
	}
	return label[:i], tag
}
