package npk

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// DigestSize is the size of the package digest.
	DigestSize = sha256.Size
	// LegacyMessageSize is the prefix of the digest handed to the legacy scheme.
	LegacyMessageSize = 20
)

// Digest is the SHA-256 of every non-signature frame, in package order.
type Digest [DigestSize]byte

// LegacyMessage returns the first LegacyMessageSize bytes of the digest.
func (d Digest) LegacyMessage() []byte {
	out := make([]byte, LegacyMessageSize)
	copy(out, d[:LegacyMessageSize])
	return out
}

// ModernMessage returns the full digest.
func (d Digest) ModernMessage() []byte {
	out := make([]byte, DigestSize)
	copy(out, d[:])
	return out
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Digest hashes the full frame (identifier, length and payload) of every part
// whose identifier is not a signature identifier. Signature parts are skipped
// wherever they appear, so a signature never covers itself or a stale
// signature.
func (p *Package) Digest() Digest {
	h := sha256.New()
	for _, part := range p.parts {
		if part.id.IsSignature() {
			continue
		}
		// hash.Hash writes never fail.
		_, _ = part.WriteTo(h)
	}
	var d Digest
	h.Sum(d[:0])
	return d
}
