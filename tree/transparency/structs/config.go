package structs

import (
	"bytes"
	"errors"
	"io"
)

// DeploymentMode is a closed set of three ways a KT log can relate to the
// auditor reading it. There is no default: an unrecognized byte on the wire
// is always an error, never silently coerced to one of these.
type DeploymentMode byte

const (
	ContactMonitoring DeploymentMode = iota + 1
	ThirdPartyManagement
	ThirdPartyAuditing
)

func readDeploymentMode(buf *bytes.Buffer) (DeploymentMode, error) {
	b, err := buf.ReadByte()
	if err != nil {
		return 0, err
	}
	mode := DeploymentMode(b)
	switch mode {
	case ContactMonitoring, ThirdPartyManagement, ThirdPartyAuditing:
		return mode, nil
	default:
		return 0, errors.New("structs: unknown deployment mode")
	}
}

// ciphersuite is the fixed two-byte identifier that opens every signing
// transcript and every marshalled PublicConfig. The auditor core supports
// exactly one hash/signature pairing (SHA-256 / Ed25519), so there is
// nothing to negotiate; the field exists for forward compatibility with a
// verifier that one day might not assume it.
var ciphersuite = [2]byte{0x00, 0x00}

// PublicConfig is the deployment configuration bound into every signed tree
// head: it tells a verifier which keys and mode produced the signature it's
// checking. AuditorKey is only meaningful, and only marshalled, when Mode is
// ThirdPartyAuditing.
type PublicConfig struct {
	Mode       DeploymentMode
	SigKey     [32]byte
	VrfKey     [32]byte
	AuditorKey [32]byte
}

func NewPublicConfig(buf *bytes.Buffer) (*PublicConfig, error) {
	var cs [2]byte
	if _, err := io.ReadFull(buf, cs[:]); err != nil {
		return nil, err
	} else if cs != ciphersuite {
		return nil, errors.New("structs: unsupported ciphersuite")
	}

	mode, err := readDeploymentMode(buf)
	if err != nil {
		return nil, err
	}

	sigKeyBytes, err := readU16Bytes(buf)
	if err != nil {
		return nil, err
	}
	vrfKeyBytes, err := readU16Bytes(buf)
	if err != nil {
		return nil, err
	}

	pc := &PublicConfig{Mode: mode}
	if len(sigKeyBytes) != 32 || len(vrfKeyBytes) != 32 {
		return nil, errors.New("structs: malformed public key length")
	}
	copy(pc.SigKey[:], sigKeyBytes)
	copy(pc.VrfKey[:], vrfKeyBytes)

	if mode == ThirdPartyAuditing {
		auditorKeyBytes, err := readU16Bytes(buf)
		if err != nil {
			return nil, err
		}
		if len(auditorKeyBytes) != 32 {
			return nil, errors.New("structs: malformed auditor public key length")
		}
		copy(pc.AuditorKey[:], auditorKeyBytes)
	}

	return pc, nil
}

// Marshal writes exactly the prefix of the canonical signing transcript
// specified for a PublicConfig: ciphersuite, mode, sig_key, vrf_key, and
// (mode == ThirdPartyAuditing only) auditor_key. Callers building a full
// transcript append tree_size, timestamp, and log_root themselves.
func (pc *PublicConfig) Marshal(buf *bytes.Buffer) error {
	if _, err := buf.Write(ciphersuite[:]); err != nil {
		return err
	} else if err := buf.WriteByte(byte(pc.Mode)); err != nil {
		return err
	} else if err := writeU16Bytes(buf, pc.SigKey[:], "signature public key"); err != nil {
		return err
	} else if err := writeU16Bytes(buf, pc.VrfKey[:], "vrf public key"); err != nil {
		return err
	}

	if pc.Mode == ThirdPartyAuditing {
		if err := writeU16Bytes(buf, pc.AuditorKey[:], "auditor public key"); err != nil {
			return err
		}
	}

	return nil
}
