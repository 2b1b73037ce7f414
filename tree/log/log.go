// Package log implements the auditor's log-tree cache: a left-balanced,
// append-only Merkle tree that retains only the roots of its maximal
// complete subtrees rather than every intermediate node. See
// original_source/src/log/mod.rs for the reference algorithm.
package log

import "crypto/sha256"

// Hash is a SHA-256 digest.
type Hash = [32]byte

// Node is the cached root of a complete subtree spanning Size consecutive
// leaves.
type Node struct {
	Root Hash
	Size uint64
}

// asBytes serializes a node as a one-byte flag (0 iff the node is a single
// leaf, 1 otherwise) followed by its root, matching the framing
// original_source/src/log/mod.rs folds into tree_hash so that a leaf and an
// internal node combining to the same root never collide.
func (n Node) asBytes() [33]byte {
	var out [33]byte
	if n.Size != 1 {
		out[0] = 1
	}
	copy(out[1:], n.Root[:])
	return out
}

func treeHash(left, right Node) Hash {
	lb, rb := left.asBytes(), right.asBytes()
	h := sha256.New()
	h.Write(lb[:])
	h.Write(rb[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Cache holds the minimal set of subtree roots needed to append new leaves
// and compute the current root on demand. Roots are kept strictly
// decreasing in size from left to right: the cache never stores two
// subtrees of the same size at once, since Insert immediately merges them.
type Cache struct {
	roots []Node
}

// Size returns the total number of leaves inserted so far.
func (c *Cache) Size() uint64 {
	var size uint64
	for _, n := range c.roots {
		size += n.Size
	}
	return size
}

// Insert appends a single new leaf with the given hash. It merges the new
// singleton node with the cache's trailing same-size nodes from the right,
// maintaining the strictly-decreasing-size invariant.
func (c *Cache) Insert(leaf Hash) {
	node := Node{Root: leaf, Size: 1}
	for len(c.roots) > 0 && c.roots[len(c.roots)-1].Size == node.Size {
		last := c.roots[len(c.roots)-1]
		c.roots = c.roots[:len(c.roots)-1]
		node = Node{Root: treeHash(last, node), Size: last.Size + node.Size}
	}
	c.roots = append(c.roots, node)
}

// Roots returns the cache's current subtree roots, left to right, for
// persistence. The returned slice is a copy; mutating it has no effect on
// the cache.
func (c *Cache) Roots() []Node {
	out := make([]Node, len(c.roots))
	copy(out, c.roots)
	return out
}

// SetRoots restores a cache from a previously captured Roots slice. It does
// not validate the strictly-decreasing-size invariant — callers restoring
// from a MAC-protected snapshot are trusted to have captured it from a
// valid Cache in the first place.
func (c *Cache) SetRoots(roots []Node) {
	c.roots = make([]Node, len(roots))
	copy(c.roots, roots)
}

// Root returns the root of the entire tree, or ErrEmptyLog if no leaf has
// been inserted yet. It folds the cached subtree roots right to left: the
// rightmost (smallest) subtree is always the newest and therefore the
// innermost right child of the whole tree.
func (c *Cache) Root() (Hash, error) {
	if len(c.roots) == 0 {
		return Hash{}, ErrEmptyLog
	}
	node := c.roots[len(c.roots)-1]
	for i := len(c.roots) - 2; i >= 0; i-- {
		node = Node{Root: treeHash(c.roots[i], node), Size: c.roots[i].Size + node.Size}
	}
	return node.Root, nil
}
