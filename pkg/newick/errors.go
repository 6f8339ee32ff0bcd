package newick

import (
	"errors"
	"fmt"
)

// Syntax error classes. Every error returned by the parser wraps exactly one
// of them, so callers can switch with errors.Is.
var (
	ErrUnexpectedEnd         = errors.New("unexpected end of input")
	ErrUnexpectedToken       = errors.New("unexpected token")
	ErrUnbalancedParentheses = errors.New("unbalanced parentheses")
	ErrInvalidBranchLength   = errors.New("invalid branch length")
)

// SyntaxError locates a malformed token.
type SyntaxError struct {
	Kind   error  // One of the Err* sentinels
	Tree   int    // Zero-based index of the tree in the input
	Offset int    // Byte offset of the offending token
	Token  string // Offending text, if any
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("tree %d, offset %d: %s", e.Tree, e.Offset, e.Kind)
	}
	return fmt.Sprintf("tree %d, offset %d: %s %q", e.Tree, e.Offset, e.Kind, e.Token)
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind
}
