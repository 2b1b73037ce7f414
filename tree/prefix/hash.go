package prefix

import (
	"crypto/sha256"
	"encoding/binary"
)

// Depth is the fixed depth of the prefix tree: every leaf sits at depth 256,
// keyed by the 256 bits of an Index.
const Depth = 256

// Hash is a SHA-256 digest.
type Hash = [32]byte

// Index is a 256-bit path into the tree, interpreted MSB-first: bit i (0
// based) is (index[i/8] >> (7 - i%8)) & 1. 0 selects the left child, 1 the
// right.
type Index = [32]byte

// Seed pseudorandomly generates the stand-in hashes that occupy an otherwise
// empty subtree of the prefix tree.
type Seed = [16]byte

func bit(index Index, i int) int {
	return int(index[i/8]>>(7-(i%8))) & 1
}

// leafHash hashes a real prefix-tree leaf. 45 input bytes: a one-byte domain
// tag, the 32-byte index, the big-endian counter, and the big-endian
// position.
func leafHash(index Index, counter uint32, position uint64) Hash {
	h := sha256.New()
	h.Write([]byte{0x00})
	h.Write(index[:])
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], counter)
	h.Write(ctr[:])
	var pos [8]byte
	binary.BigEndian.PutUint64(pos[:], position)
	h.Write(pos[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// innerHash hashes two child nodes into their parent.
func innerHash(left, right Hash) Hash {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// standInHash derives the pseudorandom placeholder occupying level `level`
// of the subtree rooted at a never-touched copath position. It is a pure
// function of (seed, level): implementations must not cache it, since doing
// so invites bugs around seed reuse across updates.
func standInHash(seed Seed, level uint8) Hash {
	h := sha256.New()
	h.Write([]byte{0x02})
	h.Write(seed[:])
	h.Write([]byte{level})
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
