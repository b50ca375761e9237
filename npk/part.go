package npk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// PartID is the 32-bit tag of a frame. Values outside the known set are
// legal and pass through parsing and serialization unchanged.
type PartID uint32

const (
	PartHeader          PartID = 1
	PartContent         PartID = 2
	PartLegacySignature PartID = 3
	PartModernSignature PartID = 4
)

// FrameHeaderSize is the size of the identifier and length fields that
// precede every payload.
const FrameHeaderSize = 8

func (id PartID) String() string {
	switch id {
	case PartHeader:
		return "header"
	case PartContent:
		return "content"
	case PartLegacySignature:
		return "legacy-signature"
	case PartModernSignature:
		return "modern-signature"
	default:
		return fmt.Sprintf("part(%d)", uint32(id))
	}
}

// IsSignature reports whether parts with this identifier are excluded from
// the package digest.
func (id PartID) IsSignature() bool {
	return id == PartLegacySignature || id == PartModernSignature
}

// IsKnown reports whether id is one of the four identifiers this package
// assigns a meaning to.
func (id PartID) IsKnown() bool {
	return id >= PartHeader && id <= PartModernSignature
}

// Part is a single typed, length-prefixed segment. A Part is immutable: its
// payload is copied on construction and on every read.
type Part struct {
	id      PartID
	payload []byte
}

// NewPart returns a Part holding a copy of payload.
// It panics if payload does not fit the 32-bit length field.
func NewPart(id PartID, payload []byte) Part {
	if uint64(len(payload)) > math.MaxUint32 {
		panic(fmt.Sprintf("npk: payload of %d bytes exceeds frame length field", len(payload)))
	}
	return Part{id: id, payload: bytes.Clone(payload)}
}

func (p Part) ID() PartID { return p.id }

// Payload returns a copy of the part payload.
func (p Part) Payload() []byte {
	if p.payload == nil {
		return []byte{}
	}
	return bytes.Clone(p.payload)
}

// Len returns the payload length.
func (p Part) Len() int { return len(p.payload) }

// FrameLen returns the length of the serialized frame.
func (p Part) FrameLen() int { return FrameHeaderSize + len(p.payload) }

// AppendTo appends the serialized frame to dst and returns the extended slice.
func (p Part) AppendTo(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(p.id))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(p.payload)))
	return append(dst, p.payload...)
}

// Bytes returns the serialized frame: identifier || length || payload.
func (p Part) Bytes() []byte {
	return p.AppendTo(make([]byte, 0, p.FrameLen()))
}

// WriteTo writes the serialized frame to w.
func (p Part) WriteTo(w io.Writer) (int64, error) {
	var hdr [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(p.id))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(p.payload)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(p.payload)
	return int64(n + m), err
}

// Equal reports whether p and other carry the same identifier and payload.
func (p Part) Equal(other Part) bool {
	return p.id == other.id && bytes.Equal(p.payload, other.payload)
}
