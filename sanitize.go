package reticula

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds the Newick text accepted by Engine.Infer.
	DefaultMaxInputSize = 64 << 20
	// EnvMaxInputSize overrides DefaultMaxInputSize when set to a positive integer.
	EnvMaxInputSize = "RETICULA_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8      = errors.New("input contains invalid UTF-8 sequences")
	ErrControlCharacter = errors.New("input contains a control or invisible character")
)

// InputError locates the first byte of the input that cannot appear in a
// Newick document. Offsets index the caller's text unchanged.
type InputError struct {
	Err    error // ErrInvalidUTF8 or ErrControlCharacter
	Tree   int   // Zero-based index of the tree holding the byte
	Offset int   // Byte offset into the input
	Rune   rune  // Offending character; utf8.RuneError for invalid UTF-8
}

func (e *InputError) Error() string {
	return fmt.Sprintf("tree %d, offset %d: %s %U", e.Tree, e.Offset, e.Err, e.Rune)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// CheckInput rejects input the parser should never see: text above limit
// bytes, invalid UTF-8, and control or format characters other than tab, CR
// and LF. Format characters (zero-width joiners, bidi overrides, a BOM) are
// rejected because they make distinct taxon labels print alike. limit <= 0
// uses the default or EnvMaxInputSize. The input is never rewritten, so
// syntax error offsets stay valid.
func CheckInput(input string, limit int) error {
	if limit <= 0 {
		limit = maxInputSize()
	}
	if len(input) > limit {
		return fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	tree := 0
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			return &InputError{Err: ErrInvalidUTF8, Tree: tree, Offset: i, Rune: r}
		case r == ';':
			tree++
		case r == '\t' || r == '\n' || r == '\r':
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r):
			return &InputError{Err: ErrControlCharacter, Tree: tree, Offset: i, Rune: r}
		}
		i += size
	}
	return nil
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
