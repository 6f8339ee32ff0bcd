package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula/pkg/tree"
)

func length(v float64) *float64 { return &v }

// buildScenarioC builds (A:0.1,(B:0.2,C:0.3):0.4);
func buildScenarioC(t *testing.T) *tree.Tree {
	t.Helper()
	b := tree.NewBuilder()
	root := b.Add(tree.NoNode, "", nil)
	b.Add(root, "A", length(0.1))
	inner := b.Add(root, "", length(0.4))
	b.Add(inner, "B", length(0.2))
	b.Add(inner, "C", length(0.3))
	tr, err := b.Build()
	require.NoError(t, err)
	return tr
}

func TestBuilder_TwoLeaves(t *testing.T) {
	b := tree.NewBuilder()
	root := b.Add(tree.NoNode, "", nil)
	a := b.Add(root, "A", nil)
	bb := b.Add(root, "B", nil)

	tr, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, root, tr.Root())
	assert.Equal(t, []tree.NodeID{a, bb}, tr.Children(root))
	assert.Equal(t, []tree.NodeID{a, bb}, tr.Leaves())
	assert.True(t, tr.IsLeaf(a))
	assert.False(t, tr.IsLeaf(root))
	assert.False(t, tr.HasLengths())

	parent, ok := tr.Parent(a)
	require.True(t, ok)
	assert.Equal(t, root, parent)

	parent, ok = tr.Parent(root)
	require.True(t, ok)
	assert.Equal(t, tree.NoNode, parent)

	_, ok = tr.Parent(42)
	assert.False(t, ok)
}

func TestBuilder_Empty(t *testing.T) {
	_, err := tree.NewBuilder().Build()
	assert.ErrorIs(t, err, tree.ErrEmptyTree)
}

func TestBuilder_SecondRootIsUnreachable(t *testing.T) {
	b := tree.NewBuilder()
	b.Add(tree.NoNode, "", nil)
	b.Add(tree.NoNode, "stray", nil)

	_, err := b.Build()
	assert.ErrorIs(t, err, tree.ErrMalformed)
}

func TestDistances_ScenarioC(t *testing.T) {
	tr := buildScenarioC(t)
	b, ok := tr.LeafByLabel("B")
	require.True(t, ok)
	c, ok := tr.LeafByLabel("C")
	require.True(t, ok)
	a, ok := tr.LeafByLabel("A")
	require.True(t, ok)

	pd, ok := tr.PatristicDistance(b, c)
	require.True(t, ok)
	assert.InDelta(t, 0.5, pd, 1e-12)

	td, ok := tr.TopologicalDistance(b, c)
	require.True(t, ok)
	assert.Equal(t, 2, td)

	pd, _ = tr.PatristicDistance(a, c)
	assert.InDelta(t, 0.8, pd, 1e-12)

	td, _ = tr.TopologicalDistance(a, c)
	assert.Equal(t, 3, td)
}

func TestLCA(t *testing.T) {
	tr := buildScenarioC(t)
	a, _ := tr.LeafByLabel("A")
	b, _ := tr.LeafByLabel("B")
	c, _ := tr.LeafByLabel("C")
	inner, _ := tr.Parent(b)

	tests := []struct {
		name string
		x, y tree.NodeID
		want tree.NodeID
	}{
		{"siblings", b, c, inner},
		{"across root", a, c, tr.Root()},
		{"self", b, b, b},
		{"ancestor", inner, c, inner},
		{"root with leaf", tr.Root(), b, tr.Root()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.LCA(tt.x, tt.y)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			rev, _ := tr.LCA(tt.y, tt.x)
			assert.Equal(t, got, rev, "LCA must be symmetric")
		})
	}

	_, ok := tr.LCA(a, 99)
	assert.False(t, ok)
}

func TestDistance_ZeroOnSelf(t *testing.T) {
	tr := buildScenarioC(t)
	for _, id := range tr.Preorder() {
		td, ok := tr.TopologicalDistance(id, id)
		require.True(t, ok)
		assert.Zero(t, td)
		pd, _ := tr.PatristicDistance(id, id)
		assert.Zero(t, pd)
	}
}

func TestTraversals(t *testing.T) {
	tr := buildScenarioC(t)

	// Nodes were added as root, A, inner, B, C.
	assert.Equal(t, []tree.NodeID{0, 1, 2, 3, 4}, tr.Preorder())
	assert.Equal(t, []tree.NodeID{1, 3, 4, 2, 0}, tr.Postorder())
	assert.Equal(t, []tree.NodeID{3, 2, 0}, tr.Ancestors(3))
	assert.Equal(t, []int{3, 1, 2, 1, 1}, tr.SubtreeLeafCounts())

	d, ok := tr.Depth(4)
	require.True(t, ok)
	assert.Equal(t, 2, d)
}

func TestTraversal_DeepCaterpillar(t *testing.T) {
	// A chain far deeper than any reasonable recursion budget.
	const depth = 200000
	b := tree.NewBuilder()
	cur := b.Add(tree.NoNode, "", nil)
	for i := 0; i < depth; i++ {
		b.Add(cur, "x", nil)
		cur = b.Add(cur, "", nil)
	}
	b.SetLabel(cur, "tip")
	tr, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, tr.Preorder(), tr.Len())
	assert.Len(t, tr.Postorder(), tr.Len())
	d, _ := tr.Depth(cur)
	assert.Equal(t, depth, d)
}

func TestTaxa(t *testing.T) {
	b := tree.NewBuilder()
	root := b.Add(tree.NoNode, "", nil)
	b.Add(root, "Z", nil)
	b.Add(root, "A", nil)
	b.Add(root, "Z", nil)
	b.Add(root, "", nil)
	tr, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "Z"}, tr.Taxa())
}

func TestLength(t *testing.T) {
	tr := buildScenarioC(t)
	l, ok := tr.Length(1)
	require.True(t, ok)
	assert.Equal(t, 0.1, l)

	_, ok = tr.Length(tr.Root())
	assert.False(t, ok)
	assert.True(t, tr.HasLengths())
}
