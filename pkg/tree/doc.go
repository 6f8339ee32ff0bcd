/*
Package tree provides the arena-indexed rooted tree every inference stage is
built on.

Nodes live in a single slice and are addressed by NodeID. A Tree is produced
by a Builder and is immutable afterwards, so it can be shared across
goroutines without locking. Traversals use explicit work stacks; depth is
precomputed once at build time, which makes LCA queries O(depth) with no
allocation.
*/
package tree
