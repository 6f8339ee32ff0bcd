package newick

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/reticula/pkg/tree"
)

const (
	descStart     = '('
	descEnd       = ')'
	descDelimiter = ','
	terminal      = ';'
	lengthStart   = ':'
)

// delimiters end a label or a branch length.
const delimiters = "(),;:"

// parser holds the whole scanning state. Invariant: the stack is empty
// exactly when no tree is open or the open tree's root has been closed.
type parser struct {
	input string
	pos   int
	tree  int
	stack []tree.NodeID
	b     *tree.Builder
}

func newParser(input string) *parser {
	return &parser{input: input, b: tree.NewBuilder()}
}

// Parse reads exactly one tree from s.
func Parse(s string) (*tree.Tree, error) {
	p := newParser(s)
	t, err := p.next()
	if err == io.EOF {
		return nil, p.errorf(ErrUnexpectedEnd, p.pos, "")
	} else if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, p.errorf(ErrUnexpectedToken, p.pos, p.input[p.pos:p.pos+1])
	}
	return t, nil
}

// ParseAll reads every semicolon-terminated tree in s, in order. The first
// malformed tree aborts the whole call and no trees are returned.
func ParseAll(s string) ([]*tree.Tree, error) {
	p := newParser(s)
	var trees []*tree.Tree
	for {
		t, err := p.next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	if len(trees) == 0 {
		return nil, p.errorf(ErrUnexpectedEnd, p.pos, "")
	}
	return trees, nil
}

// next scans one tree. It returns io.EOF when only whitespace is left.
func (p *parser) next() (*tree.Tree, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, io.EOF
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
			if len(p.stack) == 0 {
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
	// A balanced tree missing its final ';' is accepted.
	return p.finish()
}

func (p *parser) open() error {
	if len(p.stack) == 0 && p.b.Root() != tree.NoNode {
		return p.errorf(ErrUnexpectedToken, p.pos, "(")
	}
	id := p.b.Add(p.top(), "", nil)
	p.stack = append(p.stack, id)
	p.pos++
	return nil
}

func (p *parser) close() error {
	if len(p.stack) == 0 {
		return p.errorf(ErrUnbalancedParentheses, p.pos, ")")
	}
	id := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.pos++

	p.skipSpace()
	if label := p.label(); label != "" {
		p.b.SetLabel(id, label)
	}
	length, err := p.length()
	if err != nil {
		return err
	}
	if length != nil {
		p.b.SetLength(id, *length)
	}
	return nil
}

func (p *parser) leaf() error {
	start := p.pos
	label := p.label()
	if len(p.stack) == 0 {
		return p.errorf(ErrUnexpectedToken, start, label)
	}
	length, err := p.length()
	if err != nil {
		return err
	}
	p.b.Add(p.top(), label, length)
	return nil
}

// label consumes a label run, which may be empty.
func (p *parser) label() string {
	start := p.pos
	for p.pos < len(p.input) && strings.IndexByte(delimiters, p.input[p.pos]) < 0 {
		p.pos++
	}
	return strings.TrimRight(p.input[start:p.pos], " \t\r\n")
}

// length consumes an optional ':' followed by a nonnegative float.
func (p *parser) length() (*float64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != lengthStart {
		return nil, nil
	}
	p.pos++
	p.skipSpace()

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if strings.IndexByte(delimiters, c) >= 0 || isSpace(c) {
			break
		}
		p.pos++
	}
	text := p.input[start:p.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, p.errorf(ErrInvalidBranchLength, start, text)
	}
	return &v, nil
}

func (p *parser) finish() (*tree.Tree, error) {
	if len(p.stack) > 0 {
		return nil, p.errorf(ErrUnbalancedParentheses, p.pos, "")
	}
	if p.b.Root() == tree.NoNode {
		return nil, p.errorf(ErrUnexpectedEnd, p.pos, "")
	}
	t, err := p.b.Build()
	if err != nil {
		return nil, err
	}
	p.tree++
	return t, nil
}

func (p *parser) top() tree.NodeID {
	if len(p.stack) == 0 {
		return tree.NoNode
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) errorf(kind error, offset int, token string) error {
	return &SyntaxError{Kind: kind, Tree: p.tree, Offset: offset, Token: token}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
