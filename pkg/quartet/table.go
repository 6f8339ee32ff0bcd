package quartet

import "sort"

// Entry is the weight distribution of one quartet key over the four
// topologies. Weights count supporting trees; DistanceSums accumulate, per
// resolved topology, the patristic length of the winning pairing in each
// supporting tree.
type Entry struct {
	Weights      [4]int
	DistanceSums [3]float64
}

// Total is the number of trees in which all four taxa co-occur.
func (e Entry) Total() int {
	return e.Weights[0] + e.Weights[1] + e.Weights[2] + e.Weights[3]
}

// Fractions returns the weights normalized by Total.
func (e Entry) Fractions() [4]float64 {
	var f [4]float64
	total := e.Total()
	if total == 0 {
		return f
	}
	for i, w := range e.Weights {
		f[i] = float64(w) / float64(total)
	}
	return f
}

// MeanDistance is the average pairing length across the trees supporting t.
func (e Entry) MeanDistance(t Topology) (float64, bool) {
	if t < PairAB || t > PairAD || e.Weights[t] == 0 {
		return 0, false
	}
	return e.DistanceSums[t] / float64(e.Weights[t]), true
}

type pairStat struct {
	sum float64
	n   int
}

// Table accumulates quartet topologies across input trees. It is not safe
// for concurrent writes; the extractor fills one table per tree and merges
// them afterwards.
type Table struct {
	entries map[Key]*Entry
	pairs   map[[2]string]*pairStat
	taxa    map[string]bool
	trees   int
	lengths bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Key]*Entry),
		pairs:   make(map[[2]string]*pairStat),
		taxa:    make(map[string]bool),
	}
}

// Add records one tree's topology for k. dist is the patristic length of the
// pairing and is ignored for Unresolved.
func (t *Table) Add(k Key, topo Topology, dist float64) {
	e, ok := t.entries[k]
	if !ok {
		e = &Entry{}
		t.entries[k] = e
	}
	e.Weights[topo]++
	if topo != Unresolved {
		e.DistanceSums[topo] += dist
	}
}

// AddDistance records the patristic distance between two taxa in one tree.
func (t *Table) AddDistance(a, b string, d float64) {
	key := pairKey(a, b)
	s, ok := t.pairs[key]
	if !ok {
		s = &pairStat{}
		t.pairs[key] = s
	}
	s.sum += d
	s.n++
}

// MeanDistance is the average patristic distance between a and b over the
// trees containing both.
func (t *Table) MeanDistance(a, b string) (float64, bool) {
	s, ok := t.pairs[pairKey(a, b)]
	if !ok || s.n == 0 {
		return 0, false
	}
	return s.sum / float64(s.n), true
}

// Entry returns a copy of the distribution recorded for k.
func (t *Table) Entry(k Key) (Entry, bool) {
	e, ok := t.entries[k]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Keys returns every recorded key in lexicographic order.
func (t *Table) Keys() []Key {
	keys := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Len returns the number of recorded keys.
func (t *Table) Len() int { return len(t.entries) }

// Trees returns the number of trees folded into the table.
func (t *Table) Trees() int { return t.trees }

// HasLengths reports whether any contributing tree carried branch lengths.
func (t *Table) HasLengths() bool { return t.lengths }

// Taxa returns every taxon seen in any tree, sorted.
func (t *Table) Taxa() []string {
	taxa := make([]string, 0, len(t.taxa))
	for x := range t.taxa {
		taxa = append(taxa, x)
	}
	sort.Strings(taxa)
	return taxa
}

// Merge folds o into t. Merging in a fixed order keeps float sums
// reproducible.
func (t *Table) Merge(o *Table) {
	for k, oe := range o.entries {
		e, ok := t.entries[k]
		if !ok {
			e = &Entry{}
			t.entries[k] = e
		}
		for i := range e.Weights {
			e.Weights[i] += oe.Weights[i]
		}
		for i := range e.DistanceSums {
			e.DistanceSums[i] += oe.DistanceSums[i]
		}
	}
	for k, os := range o.pairs {
		s, ok := t.pairs[k]
		if !ok {
			s = &pairStat{}
			t.pairs[k] = s
		}
		s.sum += os.sum
		s.n += os.n
	}
	for x := range o.taxa {
		t.taxa[x] = true
	}
	t.trees += o.trees
	t.lengths = t.lengths || o.lengths
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
