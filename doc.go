/*
Package reticula infers phylogenetic networks from collections of gene trees.

Input is one or more Newick trees. Every tree is broken into quartets of
taxa, the quartet topologies are tallied across trees, a backbone tree is
assembled from the dominant signal and conflicting signal is absorbed as
reticulation (hybridisation) edges. The rooted network is rendered in
extended Newick, where a reticulation node appears once in full as
"(...)#H1" and is referenced again as "#H1.2".

# Usage

The simplest entry point takes text and returns text:

	out, err := reticula.Infer("((A,B),(C,D));((A,C),(B,D));")

An Engine adds rooting options, lifecycle hooks and result caching:

	eng := reticula.New(
		reticula.WithOutgroup("D"),
		reticula.WithCache(memory.NewCache()),
	)
	inf, err := eng.Infer(ctx, input)

Syntax errors wrap *newick.SyntaxError and can be matched against the
newick sentinels with errors.Is. Rooting fails with rooting.ErrNoLeaves or
rooting.ErrUnknownOutgroup.
*/
package reticula
