package reticula

import (
	"context"
	"errors"

	"github.com/aretw0/reticula/pkg/newick"
	"github.com/aretw0/reticula/pkg/rooting"
)

// Error kinds reported by Kind. They are stable strings for API clients.
const (
	KindUnexpectedEnd         = "unexpected_end"
	KindUnexpectedToken       = "unexpected_token"
	KindUnbalancedParentheses = "unbalanced_parentheses"
	KindInvalidBranchLength   = "invalid_branch_length"
	KindNoLeaves              = "no_leaves"
	KindUnknownOutgroup       = "unknown_outgroup"
	KindInputTooLarge         = "input_too_large"
	KindInvalidUTF8           = "invalid_utf8"
	KindControlCharacter      = "control_character"
	KindCanceled              = "canceled"
	KindInternal              = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{newick.ErrUnexpectedEnd, KindUnexpectedEnd},
	{newick.ErrUnexpectedToken, KindUnexpectedToken},
	{newick.ErrUnbalancedParentheses, KindUnbalancedParentheses},
	{newick.ErrInvalidBranchLength, KindInvalidBranchLength},
	{rooting.ErrNoLeaves, KindNoLeaves},
	{rooting.ErrUnknownOutgroup, KindUnknownOutgroup},
	{ErrInputTooLarge, KindInputTooLarge},
	{ErrInvalidUTF8, KindInvalidUTF8},
	{ErrControlCharacter, KindControlCharacter},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// Kind classifies an error returned by Infer. It returns "" for nil and
// KindInternal for anything unrecognised.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the engine or its infrastructure.
func IsInputError(err error) bool {
	switch Kind(err) {
	case KindUnexpectedEnd, KindUnexpectedToken, KindUnbalancedParentheses,
		KindInvalidBranchLength, KindNoLeaves, KindUnknownOutgroup,
		KindInputTooLarge, KindInvalidUTF8, KindControlCharacter:
		return true
	}
	return false
}
