package auditor

import (
	"crypto/ed25519"
	"testing"

	"github.com/ktlog/auditor/tree/transparency/structs"
)

func testConfig(t *testing.T, auditorPub ed25519.PublicKey) *structs.PublicConfig {
	t.Helper()
	var sigKey, vrfKey, auditorKey [32]byte
	copy(auditorKey[:], auditorPub)
	return &structs.PublicConfig{
		Mode:       structs.ThirdPartyAuditing,
		SigKey:     sigKey,
		VrfKey:     vrfKey,
		AuditorKey: auditorKey,
	}
}

func TestSigner_SignAtTime_VerifiesAndIsDeterministic(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	config := testConfig(t, pub)

	signer, err := NewSigner(config, priv)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	var root [32]byte
	root[0] = 0x42

	head1, err := signer.SignAtTime(root, 10, 1700000000000)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	head2, err := signer.SignAtTime(root, 10, 1700000000000)
	if err != nil {
		t.Fatalf("sign again: %v", err)
	}

	// Identical inputs produce identical transcripts and therefore
	// identical (deterministic) Ed25519 signatures.
	if string(head1.Signature) != string(head2.Signature) {
		t.Fatalf("signatures differ across identical calls")
	}

	if !Verify(config, head1, root) {
		t.Fatalf("signature does not verify")
	}
}

func TestSigner_SignAtTime_TimestampAndSizeAreBound(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	config := testConfig(t, pub)

	signer, err := NewSigner(config, priv)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	var root [32]byte
	head, err := signer.SignAtTime(root, 10, 1700000000000)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Tampering with the size after the fact must invalidate the signature.
	tampered := *head
	tampered.TreeSize = 11
	if Verify(config, &tampered, root) {
		t.Fatalf("signature verified after tree size was tampered with")
	}

	// Tampering with the timestamp must invalidate the signature as well.
	tamperedTime := *head
	tamperedTime.Timestamp = 1700000000001
	if Verify(config, &tamperedTime, root) {
		t.Fatalf("signature verified after timestamp was tampered with")
	}

	// Tampering with the root must invalidate the signature too.
	var otherRoot [32]byte
	otherRoot[0] = 0xff
	if Verify(config, head, otherRoot) {
		t.Fatalf("signature verified against a different root")
	}
}

func TestNewSigner_RejectsWrongMode(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	config := testConfig(t, pub)
	config.Mode = structs.ContactMonitoring

	if _, err := NewSigner(config, priv); err != ErrWrongMode {
		t.Fatalf("got %v, want ErrWrongMode", err)
	}
}

func TestNewSigner_RejectsKeyMismatch(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	config := testConfig(t, pub)

	_, otherPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}

	if _, err := NewSigner(config, otherPriv); err != ErrKeyMismatch {
		t.Fatalf("got %v, want ErrKeyMismatch", err)
	}
}
