package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// legacyPrivateKey interprets seed as a big-endian secp256k1 scalar. Zero has
// no modular inverse and values at or above the group order are out of range;
// both are rejected rather than reduced.
func legacyPrivateKey(seed []byte) (*secp256k1.PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: secp256k1 key must be %d bytes, got %d", ErrInvalidKey, SeedSize, len(seed))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(seed); overflow {
		return nil, fmt.Errorf("%w: secp256k1 scalar not below group order", ErrInvalidKey)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: secp256k1 scalar is zero", ErrInvalidKey)
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

// LegacySigner signs 20-byte messages with ECDSA over secp256k1.
type LegacySigner struct {
	key *secp256k1.PrivateKey
}

func NewLegacySigner(seed []byte) (*LegacySigner, error) {
	key, err := legacyPrivateKey(seed)
	if err != nil {
		return nil, err
	}
	return &LegacySigner{key: key}, nil
}

func (s *LegacySigner) Scheme() string { return string(SchemeSecp256k1) }

// Sign returns a DER encoded signature. Nonces follow RFC6979, so signing is
// deterministic for a given key and message.
func (s *LegacySigner) Sign(message []byte) ([]byte, error) {
	if len(message) != legacyMessageSize {
		return nil, fmt.Errorf("%w: secp256k1 signs %d bytes, got %d", ErrMessageSize, legacyMessageSize, len(message))
	}
	return ecdsa.Sign(s.key, message).Serialize(), nil
}

// PublicKey returns the compressed SEC1 public key.
func (s *LegacySigner) PublicKey() []byte {
	return s.key.PubKey().SerializeCompressed()
}

// LegacyVerifier checks secp256k1 ECDSA signatures.
type LegacyVerifier struct {
	pub *secp256k1.PublicKey
}

// NewLegacyVerifier parses a SEC1 (compressed or uncompressed) public key.
func NewLegacyVerifier(pub []byte) (*LegacyVerifier, error) {
	key, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: secp256k1 public key: %v", ErrInvalidKey, err)
	}
	return &LegacyVerifier{pub: key}, nil
}

func (v *LegacyVerifier) Scheme() string { return string(SchemeSecp256k1) }

// Verify reports whether signature is a valid DER signature of message.
// A signature that does not parse is invalid, not an error.
func (v *LegacyVerifier) Verify(message, signature []byte) (bool, error) {
	if len(message) != legacyMessageSize {
		return false, fmt.Errorf("%w: secp256k1 verifies %d bytes, got %d", ErrMessageSize, legacyMessageSize, len(message))
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, nil
	}
	return sig.Verify(message, v.pub), nil
}
