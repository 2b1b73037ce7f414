package structs

import (
	"bytes"
	"encoding/binary"
)

// AuditorTreeHead is the signed, published output of the auditor: proof
// that it observed a log of TreeSize at Timestamp and is willing to vouch
// for its root.
type AuditorTreeHead struct {
	TreeSize  uint64
	Signature []byte
	Timestamp int64 // signed 64-bit milliseconds since the Unix epoch
}

func NewAuditorTreeHead(buf *bytes.Buffer) (*AuditorTreeHead, error) {
	var treeSize uint64
	if err := binary.Read(buf, binary.BigEndian, &treeSize); err != nil {
		return nil, err
	}
	var timestamp int64
	if err := binary.Read(buf, binary.BigEndian, &timestamp); err != nil {
		return nil, err
	}
	signature, err := readU16Bytes(buf)
	if err != nil {
		return nil, err
	}
	return &AuditorTreeHead{TreeSize: treeSize, Signature: signature, Timestamp: timestamp}, nil
}

func (ath *AuditorTreeHead) Marshal(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.BigEndian, ath.TreeSize); err != nil {
		return err
	} else if err := binary.Write(buf, binary.BigEndian, ath.Timestamp); err != nil {
		return err
	} else if err := writeU16Bytes(buf, ath.Signature, "auditor signature"); err != nil {
		return err
	}
	return nil
}

// AuditorTreeHeadTBS ("to be signed") is the canonical transcript an
// AuditorTreeHead.Signature is computed over: the deployment configuration
// it's bound to, followed by size, timestamp, and root, in that order. This
// ordering is bit-exact and load-bearing — see tree/transparency/auditor.
type AuditorTreeHeadTBS struct {
	Config    PublicConfig
	TreeSize  uint64
	Timestamp int64
	Root      [32]byte
}

func (tbs *AuditorTreeHeadTBS) Marshal(buf *bytes.Buffer) error {
	if err := tbs.Config.Marshal(buf); err != nil {
		return err
	} else if err := binary.Write(buf, binary.BigEndian, tbs.TreeSize); err != nil {
		return err
	} else if err := binary.Write(buf, binary.BigEndian, tbs.Timestamp); err != nil {
		return err
	} else if _, err := buf.Write(tbs.Root[:]); err != nil {
		return err
	}
	return nil
}
