// Package storage implements the auditor's persistence adaptor: atomic
// load/commit of a transparency-log snapshot, sealed in a MAC-protected
// envelope so that an adversary with write access to the backing store
// cannot roll the auditor back to a stale head undetected. See
// original_source/src/bin/signal-auditor/storage.rs for the reference
// Storage trait and envelope this package reimplements, generalized from a
// single CBOR+MAC-TODO sketch into two concrete backends.
package storage

import (
	"bytes"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ktlog/auditor/tree/log"
	"github.com/ktlog/auditor/tree/transparency"
)

const envelopeVersion byte = 1

// ErrIntegrityFailure is returned by Load when the envelope's version tag
// is wrong or its MAC does not match: either a corrupt write or a rollback
// attempt. Callers must treat this as fatal, never fall back to an empty
// snapshot.
var ErrIntegrityFailure = errors.New("storage: mac mismatch on load")

// ErrMalformedSnapshot is returned when an envelope's MAC checks out but
// its payload does not parse as a snapshot. This should never happen for
// payloads this package wrote itself; it exists to fail closed on a
// corrupted backend rather than panic.
var ErrMalformedSnapshot = errors.New("storage: malformed snapshot payload")

// Adaptor is the persistence contract the audit loop drives: Load recovers
// the most recently committed snapshot (nil, nil if nothing has ever been
// committed), and Commit atomically replaces it.
type Adaptor interface {
	Load() (*transparency.Snapshot, error)
	Commit(snap *transparency.Snapshot) error
}

// DeriveMACKey derives the key that protects snapshots at rest from the
// auditor's Ed25519 signing key, via HKDF-SHA256 with info
// "auditor-mac-key". Deriving rather than reusing the signing key directly
// keeps the two uses of the key material domain-separated.
func DeriveMACKey(signingKey ed25519.PrivateKey) ([]byte, error) {
	out := make([]byte, 32)
	r := hkdf.New(sha256.New, signingKey.Seed(), nil, []byte("auditor-mac-key"))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeSnapshot serializes a Snapshot's caches in canonical form: the
// prefix (head, size) pair followed by the log tree's cached subtree
// roots, most significant first.
func encodeSnapshot(snap *transparency.Snapshot) []byte {
	buf := &bytes.Buffer{}
	buf.Write(snap.PrefixHead[:])

	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], snap.PrefixSize)
	buf.Write(sizeBuf[:])

	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(snap.LogRoots)))
	buf.Write(countBuf[:])

	for _, n := range snap.LogRoots {
		buf.Write(n.Root[:])
		var nb [8]byte
		binary.BigEndian.PutUint64(nb[:], n.Size)
		buf.Write(nb[:])
	}
	return buf.Bytes()
}

// decodeSnapshot is the inverse of encodeSnapshot.
func decodeSnapshot(payload []byte) (*transparency.Snapshot, error) {
	buf := bytes.NewBuffer(payload)

	var head [32]byte
	if _, err := io.ReadFull(buf, head[:]); err != nil {
		return nil, ErrMalformedSnapshot
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(buf, sizeBuf[:]); err != nil {
		return nil, ErrMalformedSnapshot
	}
	size := binary.BigEndian.Uint64(sizeBuf[:])

	var countBuf [2]byte
	if _, err := io.ReadFull(buf, countBuf[:]); err != nil {
		return nil, ErrMalformedSnapshot
	}
	count := binary.BigEndian.Uint16(countBuf[:])

	roots := make([]log.Node, 0, count)
	for i := 0; i < int(count); i++ {
		var root [32]byte
		if _, err := io.ReadFull(buf, root[:]); err != nil {
			return nil, ErrMalformedSnapshot
		}
		var nb [8]byte
		if _, err := io.ReadFull(buf, nb[:]); err != nil {
			return nil, ErrMalformedSnapshot
		}
		roots = append(roots, log.Node{Root: root, Size: binary.BigEndian.Uint64(nb[:])})
	}
	if buf.Len() != 0 {
		return nil, ErrMalformedSnapshot
	}

	return &transparency.Snapshot{PrefixHead: head, PrefixSize: size, LogRoots: roots}, nil
}

// sealEnvelope wraps payload in the {version, payload, mac} framing spelled
// out for the persistence contract: a one-byte version, a four-byte
// big-endian payload length, the payload itself, then a 32-byte
// HMAC-SHA256 of the payload under macKey.
func sealEnvelope(payload, macKey []byte) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(envelopeVersion)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)

	mac := hmac.New(sha256.New, macKey)
	mac.Write(payload)
	buf.Write(mac.Sum(nil))
	return buf.Bytes()
}

// openEnvelope validates and unwraps an envelope produced by sealEnvelope,
// rejecting a wrong version tag or a MAC mismatch with ErrIntegrityFailure
// rather than returning partial or stale data.
func openEnvelope(envelope, macKey []byte) ([]byte, error) {
	buf := bytes.NewBuffer(envelope)

	version, err := buf.ReadByte()
	if err != nil || version != envelopeVersion {
		return nil, ErrIntegrityFailure
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(buf, lenBuf[:]); err != nil {
		return nil, ErrIntegrityFailure
	}
	payloadLen := binary.BigEndian.Uint32(lenBuf[:])

	const macLen = sha256.Size
	if uint32(buf.Len()) != payloadLen+macLen {
		return nil, ErrIntegrityFailure
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(buf, payload); err != nil {
		return nil, ErrIntegrityFailure
	}
	wantMAC := make([]byte, macLen)
	if _, err := io.ReadFull(buf, wantMAC); err != nil {
		return nil, ErrIntegrityFailure
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), wantMAC) {
		return nil, ErrIntegrityFailure
	}
	return payload, nil
}

// snapshotRoot recomputes the log root a snapshot implies, for backends
// that name committed objects by (size, root). Returns the zero hash for
// an uninitialized snapshot rather than erroring, since naming a not-yet-
// initialized snapshot is a valid first commit.
func snapshotRoot(snap *transparency.Snapshot) ([32]byte, error) {
	root, err := transparency.Restore(*snap).LogRoot()
	if err != nil {
		if errors.Is(err, transparency.ErrNotInitialized) {
			return [32]byte{}, nil
		}
		return [32]byte{}, err
	}
	return root, nil
}
