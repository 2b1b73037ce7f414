// Package auditor produces the signed tree head a third-party auditor
// publishes: an Ed25519 signature over the canonical transcript binding a
// deployment configuration to a log size, timestamp, and root. See
// original_source/src/auditor/mod.rs for the reference transcript this
// package reimplements, and original_source/src/auditor.rs for the earlier
// (seconds-based) version it superseded.
package auditor

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/ktlog/auditor/tree/transparency/structs"
)

// ErrKeyMismatch is returned by NewSigner when the supplied private key
// does not correspond to the auditor public key embedded in config.
var ErrKeyMismatch = errors.New("auditor: private key does not match configured auditor public key")

// ErrWrongMode is returned by NewSigner when config is not configured for
// third-party auditing: only ThirdPartyAuditing deployments have an
// independent auditor signature to produce.
var ErrWrongMode = errors.New("auditor: deployment is not configured for third-party auditing")

// Signer produces signed tree heads on behalf of one auditor key, bound to
// one deployment configuration. A Signer is stateless between calls: it
// holds no tree state of its own, since sign_head/sign_at_time are pure
// functions of (head, size, timestamp).
type Signer struct {
	config *structs.PublicConfig
	key    ed25519.PrivateKey
}

// NewSigner returns a Signer for config using the given private key. config
// must have Mode == ThirdPartyAuditing and key's public half must match
// config.AuditorKey.
func NewSigner(config *structs.PublicConfig, key ed25519.PrivateKey) (*Signer, error) {
	if config.Mode != structs.ThirdPartyAuditing {
		return nil, ErrWrongMode
	}
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok || [32]byte(pub) != config.AuditorKey {
		return nil, ErrKeyMismatch
	}
	return &Signer{config: config, key: key}, nil
}

// transcript builds the canonical signing input: the marshalled
// configuration prefix followed by size, timestamp, and root, exactly as
// structs.AuditorTreeHeadTBS specifies.
func (s *Signer) transcript(root [32]byte, size uint64, timestampMs int64) ([]byte, error) {
	tbs := &structs.AuditorTreeHeadTBS{
		Config:    *s.config,
		TreeSize:  size,
		Timestamp: timestampMs,
		Root:      root,
	}
	return structs.Marshal(tbs)
}

// SignAtTime signs (root, size) at an explicitly supplied timestamp. Used
// for reproducible testing; SignHead calls it with the current time.
func (s *Signer) SignAtTime(root [32]byte, size uint64, timestampMs int64) (*structs.AuditorTreeHead, error) {
	tbs, err := s.transcript(root, size, timestampMs)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(s.key, tbs)
	return &structs.AuditorTreeHead{
		TreeSize:  size,
		Signature: sig,
		Timestamp: timestampMs,
	}, nil
}

// SignHead signs (root, size) at the current wall-clock time.
func (s *Signer) SignHead(root [32]byte, size uint64) (*structs.AuditorTreeHead, error) {
	return s.SignAtTime(root, size, time.Now().UnixMilli())
}

// Verify reports whether head's signature is valid over root under config.
// This is the inverse of SignAtTime/SignHead; the signer itself never calls
// it, but any caller that consumes an AuditorTreeHead over the wire needs
// it to check the auditor hasn't equivocated.
func Verify(config *structs.PublicConfig, head *structs.AuditorTreeHead, root [32]byte) bool {
	tbs, err := structs.Marshal(&structs.AuditorTreeHeadTBS{
		Config:    *config,
		TreeSize:  head.TreeSize,
		Timestamp: head.Timestamp,
		Root:      root,
	})
	if err != nil {
		return false
	}
	return ed25519.Verify(config.AuditorKey[:], tbs, head.Signature)
}
