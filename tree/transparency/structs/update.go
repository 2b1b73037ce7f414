package structs

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ProofKind tags which of the three update shapes an AuditorUpdate carries.
// Modeled as a closed enum rather than three optional pointer fields:
// exhaustive handling at every call site is mandatory, and a byte on the
// wire that isn't one of these three is always an error.
type ProofKind byte

const (
	NewTreeProof ProofKind = iota + 1
	DifferentKeyProof
	SameKeyProof
)

// AuditorUpdate is the wire form of a single prefix-tree update plus the
// log-tree commitment it composes with. Real, Index, Seed, and Commitment
// are present regardless of proof kind; the fields specific to each kind
// live under the Proof oneof.
type AuditorUpdate struct {
	Real       bool
	Index      [32]byte
	Seed       [16]byte
	Commitment [32]byte
	Proof      AuditorProof
}

// AuditorProof is the decoded oneof. Kind selects which of the other fields
// are meaningful: DifferentKey uses OldSeed and Copath; SameKey uses
// Counter, Position, and Copath; NewTree uses none of them.
type AuditorProof struct {
	Kind     ProofKind
	OldSeed  [16]byte
	Copath   [][32]byte
	Counter  uint32
	Position uint64
}

func NewAuditorUpdate(buf *bytes.Buffer) (*AuditorUpdate, error) {
	real, err := readOptional(buf)
	if err != nil {
		return nil, err
	}
	index, err := readHash32(buf)
	if err != nil {
		return nil, err
	}
	seed, err := readSeed16(buf)
	if err != nil {
		return nil, err
	}
	commitment, err := readHash32(buf)
	if err != nil {
		return nil, err
	}

	kindByte, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	kind := ProofKind(kindByte)

	var proof AuditorProof
	proof.Kind = kind
	switch kind {
	case NewTreeProof:
		// No further fields.

	case DifferentKeyProof:
		oldSeed, err := readSeed16(buf)
		if err != nil {
			return nil, err
		}
		copath, err := readCopath(buf)
		if err != nil {
			return nil, err
		}
		proof.OldSeed = oldSeed
		proof.Copath = copath

	case SameKeyProof:
		copath, err := readCopath(buf)
		if err != nil {
			return nil, err
		}
		var counter uint32
		if err := binary.Read(buf, binary.BigEndian, &counter); err != nil {
			return nil, err
		}
		var position uint64
		if err := binary.Read(buf, binary.BigEndian, &position); err != nil {
			return nil, err
		}
		proof.Copath = copath
		proof.Counter = counter
		proof.Position = position

	default:
		return nil, errors.New("structs: unknown proof kind")
	}

	return &AuditorUpdate{
		Real:       real,
		Index:      index,
		Seed:       seed,
		Commitment: commitment,
		Proof:      proof,
	}, nil
}

func (au *AuditorUpdate) Marshal(buf *bytes.Buffer) error {
	if err := writeOptional(buf, au.Real); err != nil {
		return err
	} else if _, err := buf.Write(au.Index[:]); err != nil {
		return err
	} else if _, err := buf.Write(au.Seed[:]); err != nil {
		return err
	} else if _, err := buf.Write(au.Commitment[:]); err != nil {
		return err
	} else if err := buf.WriteByte(byte(au.Proof.Kind)); err != nil {
		return err
	}

	switch au.Proof.Kind {
	case NewTreeProof:
		return nil

	case DifferentKeyProof:
		if _, err := buf.Write(au.Proof.OldSeed[:]); err != nil {
			return err
		}
		return writeCopath(buf, au.Proof.Copath)

	case SameKeyProof:
		if err := writeCopath(buf, au.Proof.Copath); err != nil {
			return err
		} else if err := binary.Write(buf, binary.BigEndian, au.Proof.Counter); err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, au.Proof.Position)

	default:
		return errors.New("structs: unknown proof kind")
	}
}
