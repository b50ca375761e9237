package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Signer is a signing backend bound to one private key.
type Signer interface {
	Scheme() string
	Sign(message []byte) ([]byte, error)
	PublicKey() []byte
}

// Verifier is a verification backend bound to one public key.
type Verifier interface {
	Scheme() string
	Verify(message, signature []byte) (bool, error)
}

// NewSigner constructs the signer for scheme from a private seed.
func NewSigner(scheme Scheme, seed []byte) (Signer, error) {
	var (
		s   Signer
		err error
	)
	switch scheme {
	case SchemeSecp256k1:
		s, err = NewLegacySigner(seed)
	case SchemeEd25519:
		s, err = NewEd25519Signer(seed)
	case SchemeDilithium3:
		s, err = NewDilithium3Signer(seed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, string(scheme))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewVerifier constructs the verifier for scheme from raw public key bytes.
func NewVerifier(scheme Scheme, pub []byte) (Verifier, error) {
	var (
		v   Verifier
		err error
	)
	switch scheme {
	case SchemeSecp256k1:
		v, err = NewLegacyVerifier(pub)
	case SchemeEd25519:
		v, err = NewEd25519Verifier(pub)
	case SchemeDilithium3:
		v, err = NewDilithium3Verifier(pub)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, string(scheme))
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Signers builds the legacy and modern signers of the suite.
func (s Suite) Signers(legacySeed, modernSeed []byte) (legacy, modern Signer, err error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	if legacy, err = NewSigner(s.Legacy, legacySeed); err != nil {
		return nil, nil, err
	}
	if modern, err = NewSigner(s.Modern, modernSeed); err != nil {
		return nil, nil, err
	}
	return legacy, modern, nil
}

// PublicKey derives the raw public key bytes for a private seed.
func PublicKey(scheme Scheme, seed []byte) ([]byte, error) {
	signer, err := NewSigner(scheme, seed)
	if err != nil {
		return nil, err
	}
	return signer.PublicKey(), nil
}

// EncodePublicKey returns the textual public key form "<scheme>:<base64>".
func EncodePublicKey(scheme Scheme, pub []byte) string {
	return string(scheme) + ":" + base64.StdEncoding.EncodeToString(pub)
}

// ParsePublicKey decodes a "<scheme>:<base64>" public key and checks that it
// is well formed for its scheme.
func ParsePublicKey(s string) (Scheme, []byte, error) {
	name, enc, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", nil, fmt.Errorf("%w: public key must be <scheme>:<base64>", ErrInvalidKey)
	}
	scheme, err := ParseScheme(name)
	if err != nil {
		return "", nil, err
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("%w: public key base64: %v", ErrInvalidKey, err)
	}
	if _, err := NewVerifier(scheme, pub); err != nil {
		return "", nil, err
	}
	return scheme, pub, nil
}

// ParseVerifier is ParsePublicKey followed by NewVerifier.
func ParseVerifier(s string) (Verifier, error) {
	scheme, pub, err := ParsePublicKey(s)
	if err != nil {
		return nil, err
	}
	return NewVerifier(scheme, pub)
}

// GenerateSeed draws a fresh seed valid for scheme from r, or crypto/rand
// when r is nil.
func GenerateSeed(scheme Scheme, r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	if _, err := ParseScheme(string(scheme)); err != nil {
		return nil, err
	}
	seed := make([]byte, SeedSize)
	// Out-of-range secp256k1 scalars occur with probability ~2^-128; retry.
	for attempt := 0; attempt < 8; attempt++ {
		if _, err := io.ReadFull(r, seed); err != nil {
			return nil, err
		}
		if scheme.CheckSeed(seed) == nil {
			return seed, nil
		}
	}
	return nil, fmt.Errorf("%w: random source produced no usable %s seed", ErrInvalidKey, scheme)
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
