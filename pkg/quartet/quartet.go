package quartet

import (
	"sort"
	"strings"
)

// Topology is the unrooted shape a tree induces on the four taxa of a Key.
// Positions refer to the sorted key: A=k[0], B=k[1], C=k[2], D=k[3].
type Topology int

const (
	PairAB     Topology = iota // AB|CD
	PairAC                     // AC|BD
	PairAD                     // AD|BC
	Unresolved                 // star, or a taxon is ambiguous in the tree
)

// Resolved lists the three resolved topologies in canonical order.
var Resolved = [3]Topology{PairAB, PairAC, PairAD}

// pairings maps each resolved topology to its two pairs of key positions.
var pairings = [3][2][2]int{
	{{0, 1}, {2, 3}},
	{{0, 2}, {1, 3}},
	{{0, 3}, {1, 2}},
}

func (t Topology) String() string {
	switch t {
	case PairAB:
		return "AB|CD"
	case PairAC:
		return "AC|BD"
	case PairAD:
		return "AD|BC"
	case Unresolved:
		return "unresolved"
	}
	return "invalid"
}

// Pairs returns the key positions paired by t. ok is false for Unresolved.
func (t Topology) Pairs() (first, second [2]int, ok bool) {
	if t < PairAB || t > PairAD {
		return first, second, false
	}
	p := pairings[t]
	return p[0], p[1], true
}

// Key is the canonical name of a quartet: four distinct taxa, sorted.
type Key [4]string

// NewKey sorts four taxa into a Key.
func NewKey(a, b, c, d string) Key {
	k := Key{a, b, c, d}
	sort.Strings(k[:])
	return k
}

func (k Key) String() string {
	return strings.Join(k[:], ",")
}

// Less orders keys lexicographically, taxon by taxon.
func (k Key) Less(o Key) bool {
	for i := range k {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}
	return false
}

// Split renders the pairing t over the key's taxa, e.g. "A,B|C,D".
func (k Key) Split(t Topology) string {
	first, second, ok := t.Pairs()
	if !ok {
		return k.String() + " (unresolved)"
	}
	return k[first[0]] + "," + k[first[1]] + "|" + k[second[0]] + "," + k[second[1]]
}

// Contains reports whether taxon is one of the four.
func (k Key) Contains(taxon string) bool {
	for _, x := range k {
		if x == taxon {
			return true
		}
	}
	return false
}
