package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Ed25519Signer signs 32-byte messages with Ed25519.
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if err := SchemeEd25519.CheckSeed(seed); err != nil {
		return nil, err
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) Scheme() string { return string(SchemeEd25519) }

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	if len(message) != modernMessageSize {
		return nil, fmt.Errorf("%w: ed25519 signs %d bytes, got %d", ErrMessageSize, modernMessageSize, len(message))
	}
	return ed25519.Sign(s.key, message), nil
}

func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.key.Public().(ed25519.PublicKey)...)
}

type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

func NewEd25519Verifier(pub []byte) (*Ed25519Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(pub))
	}
	return &Ed25519Verifier{pub: append(ed25519.PublicKey(nil), pub...)}, nil
}

func (v *Ed25519Verifier) Scheme() string { return string(SchemeEd25519) }

func (v *Ed25519Verifier) Verify(message, signature []byte) (bool, error) {
	if len(message) != modernMessageSize {
		return false, fmt.Errorf("%w: ed25519 verifies %d bytes, got %d", ErrMessageSize, modernMessageSize, len(message))
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(v.pub, message, signature), nil
}

// Dilithium3Signer signs 32-byte messages with Dilithium mode 3.
type Dilithium3Signer struct {
	pk *mode3.PublicKey
	sk *mode3.PrivateKey
}

func NewDilithium3Signer(seed []byte) (*Dilithium3Signer, error) {
	if err := SchemeDilithium3.CheckSeed(seed); err != nil {
		return nil, err
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pk, sk := mode3.NewKeyFromSeed(&s)
	return &Dilithium3Signer{pk: pk, sk: sk}, nil
}

func (s *Dilithium3Signer) Scheme() string { return string(SchemeDilithium3) }

func (s *Dilithium3Signer) Sign(message []byte) ([]byte, error) {
	if len(message) != modernMessageSize {
		return nil, fmt.Errorf("%w: dilithium3 signs %d bytes, got %d", ErrMessageSize, modernMessageSize, len(message))
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.sk, message, sig)
	return sig, nil
}

func (s *Dilithium3Signer) PublicKey() []byte {
	return s.pk.Bytes()
}

type Dilithium3Verifier struct {
	pub *mode3.PublicKey
}

func NewDilithium3Verifier(pub []byte) (*Dilithium3Verifier, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return nil, fmt.Errorf("%w: dilithium3 public key: %v", ErrInvalidKey, err)
	}
	return &Dilithium3Verifier{pub: &pk}, nil
}

func (v *Dilithium3Verifier) Scheme() string { return string(SchemeDilithium3) }

func (v *Dilithium3Verifier) Verify(message, signature []byte) (bool, error) {
	if len(message) != modernMessageSize {
		return false, fmt.Errorf("%w: dilithium3 verifies %d bytes, got %d", ErrMessageSize, modernMessageSize, len(message))
	}
	if len(signature) != mode3.SignatureSize {
		return false, nil
	}
	return mode3.Verify(v.pub, message, signature), nil
}
