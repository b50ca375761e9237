// Package keys provides the signing backends used to sign packages, and the
// local storage of their key seeds.
//
// Every scheme uses a 32-byte private seed. Seeds are stored on disk as hex
// followed by a newline, in files readable only by the owner.
package keys

import (
	"fmt"
	"strings"
)

// Scheme names a signature algorithm.
type Scheme string

const (
	// SchemeSecp256k1 is ECDSA over secp256k1 with RFC6979 nonces and DER
	// encoded signatures. It is the legacy scheme and signs 20-byte messages.
	SchemeSecp256k1 Scheme = "secp256k1"
	// SchemeEd25519 is Ed25519. It is a modern scheme and signs 32-byte messages.
	SchemeEd25519 Scheme = "ed25519"
	// SchemeDilithium3 is the post-quantum Dilithium (mode 3) scheme. It is a
	// modern scheme and signs 32-byte messages.
	SchemeDilithium3 Scheme = "dilithium3"
)

// SeedSize is the private seed length for every scheme.
const SeedSize = 32

const (
	legacyMessageSize = 20
	modernMessageSize = 32
)

// ParseScheme resolves a scheme name, ignoring case and surrounding space.
func ParseScheme(s string) (Scheme, error) {
	switch sc := Scheme(strings.ToLower(strings.TrimSpace(s))); sc {
	case SchemeSecp256k1, SchemeEd25519, SchemeDilithium3:
		return sc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, s)
	}
}

func (s Scheme) String() string { return string(s) }

// Legacy reports whether s may fill the legacy signature slot.
func (s Scheme) Legacy() bool { return s == SchemeSecp256k1 }

// Modern reports whether s may fill the modern signature slot.
func (s Scheme) Modern() bool { return s == SchemeEd25519 || s == SchemeDilithium3 }

// MessageSize returns the message length the scheme signs.
func (s Scheme) MessageSize() int {
	if s.Legacy() {
		return legacyMessageSize
	}
	return modernMessageSize
}

// CheckSeed reports whether seed is usable as a private key for s.
func (s Scheme) CheckSeed(seed []byte) error {
	switch s {
	case SchemeSecp256k1:
		_, err := legacyPrivateKey(seed)
		return err
	case SchemeEd25519, SchemeDilithium3:
		if len(seed) != SeedSize {
			return fmt.Errorf("%w: %s seed must be %d bytes, got %d", ErrInvalidKey, s, SeedSize, len(seed))
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, string(s))
	}
}

// Suite is the pair of schemes used together to sign a package. It is a plain
// value, fixed when the signing backends are constructed.
type Suite struct {
	Legacy Scheme
	Modern Scheme
}

// DefaultSuite signs with secp256k1 and ed25519.
var DefaultSuite = Suite{Legacy: SchemeSecp256k1, Modern: SchemeEd25519}

// Validate checks that each scheme fits its slot.
func (s Suite) Validate() error {
	if !s.Legacy.Legacy() {
		return fmt.Errorf("%w: %q cannot fill the legacy slot", ErrUnsupportedScheme, string(s.Legacy))
	}
	if !s.Modern.Modern() {
		return fmt.Errorf("%w: %q cannot fill the modern slot", ErrUnsupportedScheme, string(s.Modern))
	}
	return nil
}
