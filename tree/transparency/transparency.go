// Package transparency composes the prefix tree and the log tree into the
// single state machine an auditor advances one wire update at a time. See
// original_source/src/transparency/mod.rs and src/lib.rs for the reference
// state machine this type reimplements.
package transparency

import (
	"crypto/sha256"
	"errors"

	katielog "github.com/ktlog/auditor/tree/log"
	"github.com/ktlog/auditor/tree/prefix"
	"github.com/ktlog/auditor/tree/transparency/structs"
)

// ErrNotInitialized is returned by LogRoot when no update has been applied
// yet; identical in meaning to prefix.ErrNotInitialized; a separate value
// keeps the error space partitioned by package.
var ErrNotInitialized = errors.New("transparency: not initialized")

// ErrMalformedUpdate is returned by ApplyUpdate when the wire message itself
// cannot be mapped onto a prefix.Update — an unrecognized ProofKind, for
// instance, rather than a cryptographic failure once decoded.
var ErrMalformedUpdate = errors.New("transparency: malformed update")

// Log is the single-writer state machine an audit loop advances: apply one
// AuditorUpdate at a time, then ask for the resulting size and log root.
// Its zero value is a valid, uninitialized log.
type Log struct {
	prefixCache prefix.PrefixTreeCache
	logCache    katielog.Cache
}

// Snapshot is the externally observable, by-value state of a Log — what
// gets persisted and what gets handed to the signer. It carries no
// behavior of its own.
type Snapshot struct {
	PrefixHead prefix.Hash
	PrefixSize uint64
	LogRoots   []katielog.Node
}

// Snapshot captures the log's current state by value. Safe to call
// concurrently with reads elsewhere; never called concurrently with
// ApplyUpdate, per the single-writer discipline described on Log.
func (l *Log) Snapshot() Snapshot {
	return Snapshot{
		PrefixHead: l.prefixCache.Head,
		PrefixSize: l.prefixCache.Size,
		LogRoots:   l.logCache.Roots(),
	}
}

// Restore rebuilds a Log from a previously captured Snapshot, for use by a
// persistence adaptor's load path.
func Restore(s Snapshot) *Log {
	l := &Log{prefixCache: prefix.PrefixTreeCache{Head: s.PrefixHead, Size: s.PrefixSize}}
	l.logCache.SetRoots(s.LogRoots)
	return l
}

// toPrefixUpdate maps a decoded wire update onto the typed union the prefix
// package expects.
func toPrefixUpdate(u *structs.AuditorUpdate) (prefix.Update, error) {
	switch u.Proof.Kind {
	case structs.NewTreeProof:
		return prefix.NewTreeUpdate{Real: u.Real, Index: u.Index, Seed: u.Seed}, nil

	case structs.SameKeyProof:
		return prefix.SameKeyUpdate{
			Real:     u.Real,
			Index:    u.Index,
			Counter:  u.Proof.Counter,
			Position: u.Proof.Position,
			Copath:   u.Proof.Copath,
			Seed:     u.Seed,
		}, nil

	case structs.DifferentKeyProof:
		return prefix.DifferentKeyUpdate{
			Real:    u.Real,
			Index:   u.Index,
			Seed:    u.Seed,
			OldSeed: u.Proof.OldSeed,
			Copath:  u.Proof.Copath,
		}, nil

	default:
		return nil, ErrMalformedUpdate
	}
}

// ApplyUpdate verifies and applies one wire update. On success the log's
// size has increased by exactly one and the log root has advanced; on
// failure nothing about the log's observable state has changed — the
// prefix cache and log cache are only written to once the prefix update has
// already succeeded.
func (l *Log) ApplyUpdate(u *structs.AuditorUpdate) error {
	pu, err := toPrefixUpdate(u)
	if err != nil {
		return err
	}

	newPrefix, err := l.prefixCache.Apply(pu)
	if err != nil {
		return err
	}

	leaf := logLeafHash(newPrefix.Head, u.Commitment)
	l.logCache.Insert(leaf)
	l.prefixCache = newPrefix
	return nil
}

// logLeafHash composes a log-tree leaf from a prefix-tree head and the
// commitment carried alongside it on the wire. Untagged: a plain SHA-256
// of the concatenation.
func logLeafHash(prefixRoot prefix.Hash, commitment [32]byte) katielog.Hash {
	var input [64]byte
	copy(input[:32], prefixRoot[:])
	copy(input[32:], commitment[:])
	return sha256.Sum256(input[:])
}

// LogRoot returns the current log root, or ErrNotInitialized if no update
// has been applied yet.
func (l *Log) LogRoot() (katielog.Hash, error) {
	if l.prefixCache.Size == 0 {
		return katielog.Hash{}, ErrNotInitialized
	}
	root, err := l.logCache.Root()
	if err != nil {
		return katielog.Hash{}, err
	}
	return root, nil
}

// Size returns the number of updates applied so far, equivalently the
// number of log leaves.
func (l *Log) Size() uint64 {
	return l.prefixCache.Size
}
