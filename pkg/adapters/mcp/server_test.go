package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/pkg/adapters/memory"
)

func TestHandleInfer(t *testing.T) {
	s := NewServer(nil)
	resp, err := s.handleInfer(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"newick": "((A,B),(C,D));((A,C),(B,D));",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Newick, "#H1")
	assert.Equal(t, 2, resp.Trees)
	assert.Equal(t, 4, resp.Taxa)
	assert.Equal(t, 1, resp.Reticulations)
}

func TestHandleInfer_Options(t *testing.T) {
	s := NewServer(nil)
	resp, err := s.handleInfer(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"newick":             "((A,B),(C,(D,E)));",
		"outgroup":           "A",
		"conflict_threshold": 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "(A,(B,(C,(D,E))));", resp.Newick)
}

func TestHandleInfer_UsesSharedCache(t *testing.T) {
	s := NewServer(nil, reticula.WithCache(memory.NewCache()))
	args := map[string]interface{}{"newick": "((A,B),(C,D));"}

	first, err := s.handleInfer(context.Background(), mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	second, err := s.handleInfer(context.Background(), mcp.CallToolRequest{}, args)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
}

func TestHandleInfer_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing newick", map[string]interface{}{}, "required"},
		{"unknown key", map[string]interface{}{"newick": "(A,B);", "root": "A"}, "invalid arguments"},
		{"syntax", map[string]interface{}{"newick": "((A,B)"}, reticula.KindUnbalancedParentheses},
		{"outgroup", map[string]interface{}{"newick": "(A,B);", "outgroup": "Z"}, reticula.KindUnknownOutgroup},
	}
	s := NewServer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleInfer(context.Background(), mcp.CallToolRequest{}, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHandleInspect(t *testing.T) {
	s := NewServer(nil)
	resp, err := s.handleInspect(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"newick": "(A,(B,C)X)R;",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"R", "A", "X", "B", "C"}, resp.Preorder)
	assert.Equal(t, []string{"A", "B", "C", "X", "R"}, resp.Postorder)
	assert.Equal(t, []string{"A", "B", "C"}, resp.Taxa)
	assert.Contains(t, resp.Drawing, "└── X")
}

func TestHandleInspect_RejectsSeveralTrees(t *testing.T) {
	s := NewServer(nil)
	_, err := s.handleInspect(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"newick": "(A,B);(C,D);",
	})
	assert.ErrorContains(t, err, reticula.KindUnexpectedToken)
}
