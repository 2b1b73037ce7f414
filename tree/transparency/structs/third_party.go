package structs

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// AuditRequest asks the KT service for up to Limit updates starting at
// log index Start.
type AuditRequest struct {
	Start uint64
	Limit uint64
}

func NewAuditRequest(buf *bytes.Buffer) (*AuditRequest, error) {
	var start, limit uint64
	if err := binary.Read(buf, binary.BigEndian, &start); err != nil {
		return nil, err
	} else if err := binary.Read(buf, binary.BigEndian, &limit); err != nil {
		return nil, err
	}
	return &AuditRequest{Start: start, Limit: limit}, nil
}

func (ar *AuditRequest) Marshal(buf *bytes.Buffer) error {
	if err := binary.Write(buf, binary.BigEndian, ar.Start); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, ar.Limit)
}

// AuditResponse is a page of the service's response to an AuditRequest. More
// is true when the service has additional updates beyond this page; the
// client keeps requesting with an advanced Start until More is false.
type AuditResponse struct {
	Updates []AuditorUpdate
	More    bool
}

func NewAuditResponse(buf *bytes.Buffer) (*AuditResponse, error) {
	var count uint16
	if err := binary.Read(buf, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	updates := make([]AuditorUpdate, count)
	for i := range updates {
		u, err := NewAuditorUpdate(buf)
		if err != nil {
			return nil, err
		}
		updates[i] = *u
	}

	more, err := readOptional(buf)
	if err != nil {
		return nil, err
	}

	return &AuditResponse{Updates: updates, More: more}, nil
}

func (ar *AuditResponse) Marshal(buf *bytes.Buffer) error {
	if len(ar.Updates) > maxUint16 {
		return errors.New("audit response updates are too large to marshal")
	} else if err := binary.Write(buf, binary.BigEndian, uint16(len(ar.Updates))); err != nil {
		return err
	}
	for i := range ar.Updates {
		if err := ar.Updates[i].Marshal(buf); err != nil {
			return err
		}
	}
	return writeOptional(buf, ar.More)
}
