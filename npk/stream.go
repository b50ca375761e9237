package npk

import (
	"encoding/binary"
	"errors"
	"io"
)

// Decoder reads parts one frame at a time from an input stream.
type Decoder struct {
	r io.Reader

	// MaxPayload rejects frames whose declared length exceeds it when
	// non-zero. Zero means no limit beyond the 32-bit length field.
	MaxPayload uint32

	offset   int64
	trailing int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next part in the stream.
//
// It returns io.EOF at a clean end of input. Fewer than FrameHeaderSize bytes
// left at the end are dropped and also reported as io.EOF; Trailing reports
// how many were dropped. A header whose length exceeds the bytes that follow
// is a KindFrame error.
func (d *Decoder) Next() (Part, error) {
	var hdr [FrameHeaderSize]byte
	n, err := io.ReadFull(d.r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.trailing = n
			return Part{}, io.EOF
		}
		return Part{}, err
	}
	id := PartID(binary.BigEndian.Uint32(hdr[0:4]))
	length := binary.BigEndian.Uint32(hdr[4:8])
	if d.MaxPayload > 0 && length > d.MaxPayload {
		return Part{}, frameError("NPK-FRAME-002", "declared payload length exceeds decoder limit", d.offset)
	}

	payload, err := io.ReadAll(io.LimitReader(d.r, int64(length)))
	if err != nil {
		return Part{}, err
	}
	if uint64(len(payload)) != uint64(length) {
		return Part{}, frameError("NPK-FRAME-001", "declared payload length exceeds remaining bytes", d.offset)
	}
	d.offset += FrameHeaderSize + int64(length)
	return Part{id: id, payload: payload}, nil
}

// Offset returns the number of bytes consumed by complete frames so far.
func (d *Decoder) Offset() int64 { return d.offset }

// Trailing returns the number of bytes dropped after the last complete frame.
// It is only meaningful once Next has returned io.EOF.
func (d *Decoder) Trailing() int { return d.trailing }

// Encoder writes parts as frames to an output stream.
type Encoder struct {
	w       io.Writer
	written int64
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes a single frame.
func (e *Encoder) Encode(p Part) error {
	n, err := p.WriteTo(e.w)
	e.written += n
	return err
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int64 { return e.written }
