package resolve

import (
	"sort"

	"github.com/aretw0/reticula/pkg/quartet"
)

// Status is the resolution state of one quartet signal.
type Status int

const (
	// Committed signals are displayed by the backbone tree.
	Committed Status = iota
	// Conflicting signals contradict the backbone and could not be placed.
	Conflicting
	// Reticulated signals contradict the backbone and are displayed through
	// a reticulation node.
	Reticulated
)

func (s Status) String() string {
	switch s {
	case Committed:
		return "committed"
	case Conflicting:
		return "conflicting"
	case Reticulated:
		return "reticulated"
	}
	return "unknown"
}

// Signal is one resolved topology of a quartet with its support.
type Signal struct {
	Key      quartet.Key
	Topology quartet.Topology
	Weight   int
	// Support is the share of trees holding all four taxa that show
	// Topology.
	Support float64
	// Distance is the mean pairing length over supporting trees, 0 without
	// branch lengths.
	Distance float64
	// Winner marks the best-supported topology of its key.
	Winner bool
	Status Status
}

// decide selects the winning topology of every key and collects the
// alternatives strong enough to count as conflicting signal.
//
// The heaviest topology wins. Equal weights go to the smaller mean pairing
// distance, then to canonical topology order. Unresolved can win a key but
// never emits a signal. An alternative is kept when its weight is at least
// threshold times the winner's.
func decide(tab *quartet.Table, threshold float64) []Signal {
	var signals []Signal
	for _, k := range tab.Keys() {
		e, _ := tab.Entry(k)

		best := quartet.Unresolved
		for _, t := range quartet.Resolved {
			if e.Weights[t] == 0 {
				continue
			}
			if best == quartet.Unresolved || beats(e, t, best) {
				best = t
			}
		}
		if best == quartet.Unresolved || e.Weights[quartet.Unresolved] > e.Weights[best] {
			continue
		}

		signals = append(signals, newSignal(k, e, best, true))
		for _, t := range quartet.Resolved {
			if t == best || e.Weights[t] == 0 {
				continue
			}
			if float64(e.Weights[t]) >= threshold*float64(e.Weights[best]) {
				signals = append(signals, newSignal(k, e, t, false))
			}
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Key != b.Key {
			return a.Key.Less(b.Key)
		}
		return a.Topology < b.Topology
	})
	return signals
}

// beats reports whether topology t should replace the current best.
func beats(e quartet.Entry, t, best quartet.Topology) bool {
	if e.Weights[t] != e.Weights[best] {
		return e.Weights[t] > e.Weights[best]
	}
	dt, _ := e.MeanDistance(t)
	db, _ := e.MeanDistance(best)
	return dt < db
}

func newSignal(k quartet.Key, e quartet.Entry, t quartet.Topology, winner bool) Signal {
	d, _ := e.MeanDistance(t)
	return Signal{
		Key:      k,
		Topology: t,
		Weight:   e.Weights[t],
		Support:  e.Fractions()[t],
		Distance: d,
		Winner:   winner,
	}
}
