// Package quartet decomposes gene trees into four-taxon topologies and
// tallies how often each topology occurs across a tree set.
//
// A Table maps every quartet Key (four sorted taxa) to an Entry holding one
// weight per Topology. For each key, the weights sum to the number of trees
// that contain all four taxa. Alongside the weights the table keeps mean
// patristic distances per taxon pair, which the resolver uses to break ties
// and to place branch lengths.
package quartet
