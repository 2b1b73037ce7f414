// Package prefix implements the auditor's prefix-tree cache: a fixed-depth
// Merkle map from 256-bit Index to leaf, where every subtree the auditor has
// never been shown real contents for is represented by a pseudorandom
// "stand-in" hash rather than by eagerly hashed empty nodes. See
// original_source/src/prefix/mod.rs for the reference algorithm this package
// reimplements.
package prefix

// PrefixTreeCache holds everything the auditor needs to verify the next
// update and nothing else: the current root and how many updates have been
// applied so far. Size counts every applied update — real registrations
// and fake masking updates alike — since it equals the total number of log
// leaves. It never retains leaf contents, copaths, or seeds across calls to
// Apply — those live only in the Update being applied.
type PrefixTreeCache struct {
	Head Hash
	Size uint64
}

// Update is the tagged union of the three ways a prefix tree can change.
// Exactly one of NewTreeUpdate, SameKeyUpdate, or DifferentKeyUpdate
// implements it.
type Update interface {
	isUpdate()
}

// NewTreeUpdate initializes an empty tree with its first leaf. Index and
// Seed are the leaf's key and the pseudorandom seed governing every stand-in
// hash below it. Real must be true; it exists only because the wire-level
// AuditorUpdate carries a single `real` flag shared across all three update
// kinds, and NewTree must reject a fake one.
type NewTreeUpdate struct {
	Real  bool
	Index Index
	Seed  Seed
}

func (NewTreeUpdate) isUpdate() {}

// SameKeyUpdate re-writes an existing real leaf in place, incrementing its
// counter. Copath is the leaf's authentication path as of the tree's current
// head, truncated wherever a stand-in hash takes over; Seed fills the rest.
// Real must be true, for the same reason as NewTreeUpdate.Real.
type SameKeyUpdate struct {
	Real     bool
	Index    Index
	Counter  uint32
	Position uint64
	Copath   []Hash
	Seed     Seed
}

func (SameKeyUpdate) isUpdate() {}

// DifferentKeyUpdate replaces whatever currently occupies a path — a real
// leaf or a virtual subtree — with a leaf at a different key, or with a
// fresh stand-in subtree if Real is false. OldSeed reconstructs what's being
// replaced; Seed (when Real) or the fake terminal (when not) is what
// replaces it.
type DifferentKeyUpdate struct {
	Real    bool
	Index   Index
	Seed    Seed
	OldSeed Seed
	Copath  []Hash
}

func (DifferentKeyUpdate) isUpdate() {}

// computeRootFromCopath hashes value up to the root using exactly the given
// copath, one level per entry, deepest first. It does not know or care
// whether copath reaches all the way to depth 0 — reconstructRealRoot pads
// it first when it must.
func computeRootFromCopath(value Hash, index Index, copath []Hash) Hash {
	node := value
	for i := len(copath) - 1; i >= 0; i-- {
		if bit(index, i) == 0 {
			node = innerHash(node, copath[i])
		} else {
			node = innerHash(copath[i], node)
		}
	}
	return node
}

// extendCopath pads a possibly-truncated copath out to the tree's full
// depth with stand-in hashes derived from seed, one per missing level.
func extendCopath(copath []Hash, seed Seed) []Hash {
	full := make([]Hash, Depth)
	copy(full, copath)
	for i := len(copath); i < Depth; i++ {
		full[i] = standInHash(seed, uint8(i))
	}
	return full
}

// reconstructRealRoot computes the root implied by a real leaf at the given
// index, counter, and position, whose authentication path is copath beyond
// which everything is virtual under seed.
func reconstructRealRoot(index Index, counter uint32, position uint64, copath []Hash, seed Seed) Hash {
	value := leafHash(index, counter, position)
	full := extendCopath(copath, seed)
	return computeRootFromCopath(value, index, full)
}

// reconstructFakeRoot computes the root implied by an entirely virtual
// subtree terminating at the deepest level copath reaches, under seed.
// copath must be non-empty: a fake update always replaces something below
// at least one real hashed level, otherwise the entire tree would be a
// single stand-in and there would be nothing to prove.
func reconstructFakeRoot(index Index, copath []Hash, seed Seed) (Hash, error) {
	if len(copath) == 0 {
		return Hash{}, ErrMalformedUpdate
	}
	level := uint8(len(copath) - 1)
	value := standInHash(seed, level)
	return computeRootFromCopath(value, index, copath), nil
}

// Apply verifies and applies u against the cache, returning the cache's new
// state. On error the cache is not modified in any observable way — callers
// should simply discard the attempt and treat it as fatal, per the package's
// single-writer contract.
func (c PrefixTreeCache) Apply(u Update) (PrefixTreeCache, error) {
	switch u := u.(type) {
	case NewTreeUpdate:
		return c.applyNewTree(u)
	case SameKeyUpdate:
		return c.applySameKey(u)
	case DifferentKeyUpdate:
		return c.applyDifferentKey(u)
	default:
		return PrefixTreeCache{}, ErrMalformedUpdate
	}
}

func (c PrefixTreeCache) applyNewTree(u NewTreeUpdate) (PrefixTreeCache, error) {
	if c.Size != 0 {
		return PrefixTreeCache{}, ErrAlreadyInitialized
	}
	if !u.Real {
		return PrefixTreeCache{}, ErrFakeNotAllowed
	}
	head := reconstructRealRoot(u.Index, 0, 0, nil, u.Seed)
	return PrefixTreeCache{Head: head, Size: 1}, nil
}

func (c PrefixTreeCache) applySameKey(u SameKeyUpdate) (PrefixTreeCache, error) {
	if c.Size == 0 {
		return PrefixTreeCache{}, ErrNotInitialized
	}
	if !u.Real {
		return PrefixTreeCache{}, ErrFakeNotAllowed
	}
	if len(u.Copath) > Depth {
		return PrefixTreeCache{}, ErrMalformedUpdate
	}

	old := reconstructRealRoot(u.Index, u.Counter, u.Position, u.Copath, u.Seed)
	if old != c.Head {
		return PrefixTreeCache{}, ErrRootMismatch
	}

	head := reconstructRealRoot(u.Index, u.Counter+1, u.Position, u.Copath, u.Seed)
	return PrefixTreeCache{Head: head, Size: c.Size + 1}, nil
}

func (c PrefixTreeCache) applyDifferentKey(u DifferentKeyUpdate) (PrefixTreeCache, error) {
	if c.Size == 0 {
		return PrefixTreeCache{}, ErrNotInitialized
	}
	if len(u.Copath) == 0 || len(u.Copath) > Depth {
		return PrefixTreeCache{}, ErrMalformedUpdate
	}

	old, err := reconstructFakeRoot(u.Index, u.Copath, u.OldSeed)
	if err != nil {
		return PrefixTreeCache{}, err
	}
	if old != c.Head {
		return PrefixTreeCache{}, ErrRootMismatch
	}

	var head Hash
	if u.Real {
		head = reconstructRealRoot(u.Index, 0, c.Size, u.Copath, u.Seed)
	} else {
		head, err = reconstructFakeRoot(u.Index, u.Copath, u.Seed)
		if err != nil {
			return PrefixTreeCache{}, err
		}
	}

	// Size counts every applied update, not just real ones: it tracks the
	// total number of log leaves, and a masking update still produces one.
	return PrefixTreeCache{Head: head, Size: c.Size + 1}, nil
}
