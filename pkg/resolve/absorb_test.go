package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula/pkg/network"
	"github.com/aretw0/reticula/pkg/quartet"
)

// backbone builds (((A,B),C),(D,E)).
func backbone(t *testing.T) *network.Builder {
	t.Helper()
	b := network.NewBuilder()
	ids := make(map[string]network.NodeID)
	for _, name := range []string{"A", "B", "C", "D", "E", "AB", "ABC", "DE", "root"} {
		label := name
		if len(name) > 1 {
			label = ""
		}
		id, err := b.AddNode(label)
		require.NoError(t, err)
		ids[name] = id
	}
	edges := [][2]string{
		{"root", "ABC"}, {"root", "DE"},
		{"ABC", "AB"}, {"ABC", "C"},
		{"AB", "A"}, {"AB", "B"},
		{"DE", "D"}, {"DE", "E"},
	}
	for _, e := range edges {
		require.NoError(t, b.AddEdge(ids[e[0]], ids[e[1]], nil))
	}
	require.NoError(t, b.SetRoot(ids["root"]))
	return b
}

func TestAbsorber_Sizes(t *testing.T) {
	a, err := newAbsorber(backbone(t), false)
	require.NoError(t, err)

	assert.Equal(t, 1, a.sizes[a.leaf["A"]])
	assert.Equal(t, 5, a.sizes[a.b.Root()])
	assert.Equal(t, 3, a.sizes[a.parent(a.parent(a.leaf["A"], noSwitch), noSwitch)])

	require.True(t, a.place(a.leaf["A"], a.leaf["D"], quartet.NewKey("A", "B", "D", "E")))
	r := a.reticulations[0]
	assert.Equal(t, 1, a.sizes[r.Node], "a subdivision keeps the count of the lineage below it")
	assert.Equal(t, 1, a.sizes[r.Source])
}

func TestAbsorber_ReusesDisplayingReticulation(t *testing.T) {
	a, err := newAbsorber(backbone(t), false)
	require.NoError(t, err)

	// Move A next to D: the switched tree is ((B,C),((A,D),E)).
	require.True(t, a.place(a.leaf["A"], a.leaf["D"], quartet.NewKey("A", "B", "D", "E")))
	require.Len(t, a.reticulations, 1)

	// AD|CE is not on the backbone and its contested lineages differ from
	// the first placement, but the existing reticulation displays it.
	s := Signal{Key: quartet.NewKey("A", "C", "D", "E"), Topology: quartet.PairAC}
	require.False(t, a.displays(s.Key, s.Topology, noSwitch))
	a.absorb(&s)

	assert.Equal(t, Reticulated, s.Status)
	require.Len(t, a.reticulations, 1, "no new reticulation edge")
	assert.Equal(t, 2, a.reticulations[0].Quartets)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, a.reticulations[0].Dependents)
	assert.Len(t, a.b.Reticulations(), 1)
}

func TestAbsorber_BackboneSignalIsCommitted(t *testing.T) {
	a, err := newAbsorber(backbone(t), false)
	require.NoError(t, err)

	s := Signal{Key: quartet.NewKey("A", "B", "D", "E"), Topology: quartet.PairAB}
	a.absorb(&s)
	assert.Equal(t, Committed, s.Status)
	assert.Empty(t, a.reticulations)
}
