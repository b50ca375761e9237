// Package npk implements the segmented package format: an ordered sequence
// of typed, length-prefixed frames, plus the digest-and-sign protocol that
// binds two independent signatures to the non-signature frames.
//
// Wire format, per frame (no file header, footer or checksum):
//
//	identifier uint32 big-endian
//	length     uint32 big-endian
//	payload    length bytes
package npk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"xdao.co/npk/cidutil"
)

// Package is an ordered sequence of parts. The zero value is an empty package.
//
// A Package is not safe for concurrent mutation.
type Package struct {
	parts []Part
}

// New assembles a package from parts in the given order. Known identifiers
// (header, content and both signatures) may appear at most once.
func New(parts ...Part) (*Package, error) {
	p := &Package{parts: append([]Part(nil), parts...)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes a serialized package.
//
// Parsing is lossless: unknown identifiers and duplicate identifiers are
// preserved in order. A trailing fragment shorter than a frame header is
// ignored. A frame whose declared length runs past the end of data is
// rejected with NPK-FRAME-001.
func Parse(data []byte) (*Package, error) {
	p := &Package{}
	off := 0
	for len(data)-off >= FrameHeaderSize {
		id := PartID(binary.BigEndian.Uint32(data[off:]))
		length := binary.BigEndian.Uint32(data[off+4:])
		start := off + FrameHeaderSize
		if uint64(length) > uint64(len(data)-start) {
			return nil, frameError("NPK-FRAME-001", "declared payload length exceeds remaining bytes", int64(off))
		}
		end := start + int(length)
		p.parts = append(p.parts, Part{id: id, payload: bytes.Clone(data[start:end])})
		off = end
	}
	return p, nil
}

// Decode reads a package from r until EOF.
func Decode(r io.Reader) (*Package, error) {
	d := NewDecoder(r)
	p := &Package{}
	for {
		part, err := d.Next()
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return nil, err
		}
		p.parts = append(p.parts, part)
	}
}

// LoadFile reads and parses the package stored at path.
// I/O errors are returned unchanged.
func LoadFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// SaveFile writes the serialized package to path in a single write,
// creating or truncating the file.
func (p *Package) SaveFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(p.Bytes()); err != nil {
		return err
	}
	return f.Close()
}

// Len returns the number of parts.
func (p *Package) Len() int { return len(p.parts) }

// Parts returns the parts in sequence order. The returned slice is a copy;
// the parts themselves are immutable.
func (p *Package) Parts() []Part {
	return append([]Part(nil), p.parts...)
}

// Part returns the first part with the given identifier.
func (p *Package) Part(id PartID) (Part, bool) {
	for _, part := range p.parts {
		if part.id == id {
			return part, true
		}
	}
	return Part{}, false
}

// ReplacePart installs payload under id. The first part with that identifier
// is replaced at its position; if there is none, a new part is appended.
// Later duplicates, if any, are left untouched.
func (p *Package) ReplacePart(id PartID, payload []byte) {
	part := NewPart(id, payload)
	for i := range p.parts {
		if p.parts[i].id == id {
			p.parts[i] = part
			return
		}
	}
	p.parts = append(p.parts, part)
}

// Size returns the serialized length in bytes.
func (p *Package) Size() int {
	n := 0
	for _, part := range p.parts {
		n += part.FrameLen()
	}
	return n
}

// Bytes returns the serialized package: every frame in sequence order.
func (p *Package) Bytes() []byte {
	out := make([]byte, 0, p.Size())
	for _, part := range p.parts {
		out = part.AppendTo(out)
	}
	return out
}

// WriteTo writes the serialized package to w.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	enc := NewEncoder(w)
	for _, part := range p.parts {
		if err := enc.Encode(part); err != nil {
			return enc.Written(), err
		}
	}
	return enc.Written(), nil
}

// Clone returns an independent copy of the package.
func (p *Package) Clone() *Package {
	return &Package{parts: p.Parts()}
}

// Validate reports an error if a known identifier occurs more than once.
// Unknown identifiers may repeat.
func (p *Package) Validate() error {
	if p == nil {
		return newError(KindValidation, "NPK-VAL-002", "nil package")
	}
	seen := make(map[PartID]int, 4)
	for i, part := range p.parts {
		if !part.id.IsKnown() {
			continue
		}
		if first, ok := seen[part.id]; ok {
			return newError(KindValidation, "NPK-VAL-001",
				fmt.Sprintf("duplicate %s part at index %d (first at %d)", part.id, i, first))
		}
		seen[part.id] = i
	}
	return nil
}

// CID returns the CIDv1 (raw, sha2-256) of the serialized package.
func (p *Package) CID() (string, error) {
	id, err := cidutil.Sum(p.Bytes())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
