package reticula_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/pkg/newick"
)

func TestCheckInput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		limit      int
		wantErr    error
		wantTree   int
		wantOffset int
	}{
		{"plain", "((A,B),(C,D));", 0, nil, 0, 0},
		{"whitespace", "(A,\tB);\r\n(C,D);\n", 0, nil, 0, 0},
		{"unicode labels", "(Águia,Ñandú);", 0, nil, 0, 0},
		{"escape", "(A\x1b[31m,B);", 0, reticula.ErrControlCharacter, 0, 2},
		{"nul in second tree", "(A,B);(C\x00,D);", 0, reticula.ErrControlCharacter, 1, 8},
		{"zero width joiner", "(A\u200d,B);", 0, reticula.ErrControlCharacter, 0, 2},
		{"byte order mark", "\ufeff(A,B);", 0, reticula.ErrControlCharacter, 0, 0},
		{"invalid utf8", "(A,\xff);", 0, reticula.ErrInvalidUTF8, 0, 3},
		{"too large", "(A,B);", 3, reticula.ErrInputTooLarge, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reticula.CheckInput(tt.input, tt.limit)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			var ie *reticula.InputError
			if errors.As(err, &ie) {
				assert.Equal(t, tt.wantTree, ie.Tree)
				assert.Equal(t, tt.wantOffset, ie.Offset)
			}
		})
	}
}

func TestCheckInput_EnvLimit(t *testing.T) {
	t.Setenv(reticula.EnvMaxInputSize, "10")
	assert.ErrorIs(t, reticula.CheckInput(strings.Repeat("A", 11), 0), reticula.ErrInputTooLarge)

	t.Setenv(reticula.EnvMaxInputSize, "junk")
	assert.NoError(t, reticula.CheckInput(strings.Repeat("A", 11), 0))
}

func TestEngine_MaxInputSize(t *testing.T) {
	eng := reticula.New(reticula.WithMaxInputSize(8))
	_, err := eng.Infer(t.Context(), "((A,B),(C,D));")
	assert.ErrorIs(t, err, reticula.ErrInputTooLarge)
	assert.Equal(t, reticula.KindInputTooLarge, reticula.Kind(err))
	assert.True(t, reticula.IsInputError(err))
}

func TestEngine_RejectsControlCharacters(t *testing.T) {
	_, err := reticula.New().Infer(t.Context(), "((A,B\x07),(C,(D,E)));")
	require.ErrorIs(t, err, reticula.ErrControlCharacter)
	assert.Equal(t, reticula.KindControlCharacter, reticula.Kind(err))
	assert.True(t, reticula.IsInputError(err))

	var ie *reticula.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 5, ie.Offset)
}

func TestEngine_SyntaxOffsetsIndexTheInput(t *testing.T) {
	input := "((A,B),(C,D));\t((A,C),(B:x,D));"
	_, err := reticula.New().Infer(t.Context(), input)

	var se *newick.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Tree)
	assert.Equal(t, "B:x", input[se.Offset-2:se.Offset+1])
}
