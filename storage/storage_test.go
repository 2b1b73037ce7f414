package storage

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktlog/auditor/tree/log"
	"github.com/ktlog/auditor/tree/transparency"
)

func testSnapshot() *transparency.Snapshot {
	var head [32]byte
	head[0] = 0x11
	var root1 [32]byte
	root1[0] = 0x22
	return &transparency.Snapshot{
		PrefixHead: head,
		PrefixSize: 3,
		LogRoots:   []log.Node{{Root: root1, Size: 2}, {Root: head, Size: 1}},
	}
}

func TestSnapshotEncodeDecodeRoundTrip(t *testing.T) {
	want := testSnapshot()
	payload := encodeSnapshot(want)

	got, err := decodeSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeSnapshot_RejectsTrailingBytes(t *testing.T) {
	payload := append(encodeSnapshot(testSnapshot()), 0xff)
	_, err := decodeSnapshot(payload)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestDecodeSnapshot_RejectsTruncatedPayload(t *testing.T) {
	payload := encodeSnapshot(testSnapshot())
	_, err := decodeSnapshot(payload[:len(payload)-1])
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

// TestEnvelope_RoundTrip checks the MAC half of the envelope: a sealed
// envelope opens cleanly under the same key and yields back the exact
// payload.
func TestEnvelope_RoundTrip(t *testing.T) {
	macKey := []byte("0123456789abcdef0123456789abcdef")
	payload := []byte("some snapshot bytes")

	envelope := sealEnvelope(payload, macKey)
	got, err := openEnvelope(envelope, macKey)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestEnvelope_TamperedPayload checks the integrity-failure half: flipping
// any byte of the sealed envelope must be caught by the MAC check, not
// silently accepted as a different valid snapshot.
func TestEnvelope_TamperedPayload(t *testing.T) {
	macKey := []byte("0123456789abcdef0123456789abcdef")
	envelope := sealEnvelope([]byte("some snapshot bytes"), macKey)

	tampered := make([]byte, len(envelope))
	copy(tampered, envelope)
	tampered[5] ^= 0x01

	_, err := openEnvelope(tampered, macKey)
	assert.ErrorIs(t, err, ErrIntegrityFailure)
}

func TestEnvelope_WrongVersionRejected(t *testing.T) {
	macKey := []byte("0123456789abcdef0123456789abcdef")
	envelope := sealEnvelope([]byte("payload"), macKey)
	envelope[0] = 2

	_, err := openEnvelope(envelope, macKey)
	assert.ErrorIs(t, err, ErrIntegrityFailure)
}

func TestEnvelope_WrongKeyRejected(t *testing.T) {
	envelope := sealEnvelope([]byte("payload"), []byte("key-one-key-one-key-one-key-one"))

	_, err := openEnvelope(envelope, []byte("key-two-key-two-key-two-key-two"))
	assert.ErrorIs(t, err, ErrIntegrityFailure)
}

func TestDeriveMACKey_Deterministic(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	k1, err := DeriveMACKey(priv)
	require.NoError(t, err)
	k2, err := DeriveMACKey(priv)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestDeriveMACKey_DiffersAcrossKeys(t *testing.T) {
	_, priv1, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, priv2, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	k1, err := DeriveMACKey(priv1)
	require.NoError(t, err)
	k2, err := DeriveMACKey(priv2)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

// TestLocalStore_LoadCommitRoundTrip checks the full round trip against
// a real LevelDB database: commit, reopen, load, and the snapshot comes
// back exactly as committed.
func TestLocalStore_LoadCommitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	macKey := []byte("0123456789abcdef0123456789abcdef")

	store, err := OpenLocalStore(dir, macKey)
	require.NoError(t, err)

	empty, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, empty)

	want := testSnapshot()
	require.NoError(t, store.Commit(want))
	require.NoError(t, store.Close())

	reopened, err := OpenLocalStore(dir, macKey)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestLocalStore_RejectsRollbackUnderWrongKey models an adversary who
// swaps the on-disk database out from under the auditor: opening it with
// the real MAC key must surface IntegrityFailure, never fall back to an
// empty snapshot.
func TestLocalStore_RejectsRollbackUnderWrongKey(t *testing.T) {
	dir := t.TempDir()
	attackerKey := []byte("attacker-key-attacker-key-123456")
	realKey := []byte("0123456789abcdef0123456789abcdef")

	store, err := OpenLocalStore(dir, attackerKey)
	require.NoError(t, err)
	require.NoError(t, store.Commit(testSnapshot()))
	require.NoError(t, store.Close())

	reopened, err := OpenLocalStore(dir, realKey)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Load()
	assert.ErrorIs(t, err, ErrIntegrityFailure)
}
