// Package structs implements the wire encoding for everything that crosses
// the boundary between the auditor core and its surrounding service: the
// streamed update messages, the signed tree head, and the deployment
// configuration that's bound into every signature.
package structs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	maxUint8  int = 255
	maxUint16 int = 65535
)

func readU8Bytes(buf *bytes.Buffer) ([]byte, error) {
	size, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU8Bytes(buf *bytes.Buffer, out []byte, name string) error {
	if len(out) > maxUint8 {
		return errors.New(name + " is too long to marshal")
	} else if err := buf.WriteByte(byte(len(out))); err != nil {
		return err
	} else if _, err := buf.Write(out); err != nil {
		return err
	}
	return nil
}

func readU16Bytes(buf *bytes.Buffer) ([]byte, error) {
	var size uint16
	if err := binary.Read(buf, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU16Bytes(buf *bytes.Buffer, out []byte, name string) error {
	if len(out) > maxUint16 {
		return errors.New(name + " is too long to marshal")
	} else if err := binary.Write(buf, binary.BigEndian, uint16(len(out))); err != nil {
		return err
	} else if _, err := buf.Write(out); err != nil {
		return err
	}
	return nil
}

func readOptional(buf *bytes.Buffer) (bool, error) {
	present, err := buf.ReadByte()
	if err != nil {
		return false, err
	} else if present != 0 && present != 1 {
		return false, errors.New("read unexpected value in optional")
	}
	return present == 1, nil
}

func writeOptional(buf *bytes.Buffer, present bool) error {
	if present {
		return buf.WriteByte(1)
	}
	return buf.WriteByte(0)
}

// readHash32 reads a fixed 32-byte field — a Hash, Index, or Ed25519 key —
// with no length prefix: its size is implied by the field's type, not
// carried on the wire.
func readHash32(buf *bytes.Buffer) ([32]byte, error) {
	var out [32]byte
	if _, err := io.ReadFull(buf, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// readSeed16 reads a fixed 16-byte Seed field.
func readSeed16(buf *bytes.Buffer) ([16]byte, error) {
	var out [16]byte
	if _, err := io.ReadFull(buf, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// readCopath reads a u16-count-prefixed list of 32-byte hashes.
func readCopath(buf *bytes.Buffer) ([][32]byte, error) {
	var count uint16
	if err := binary.Read(buf, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	out := make([][32]byte, count)
	for i := range out {
		h, err := readHash32(buf)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func writeCopath(buf *bytes.Buffer, copath [][32]byte) error {
	if len(copath) > maxUint16 {
		return errors.New("copath is too long to marshal")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(copath))); err != nil {
		return err
	}
	for _, h := range copath {
		if _, err := buf.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}

// Marshaller is implemented by every wire type in this package.
type Marshaller interface {
	Marshal(buf *bytes.Buffer) error
}

// Marshal takes a structure as input and returns the marshalled struct as a
// byte slice.
func Marshal(x Marshaller) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := x.Marshal(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
