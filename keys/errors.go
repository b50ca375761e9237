package keys

import "errors"

var (
	// ErrInvalidKey is returned when key material is not usable by a scheme:
	// wrong length, not hex, or (for secp256k1) zero or not below the group
	// order.
	ErrInvalidKey = errors.New("keys: invalid key")

	// ErrMessageSize is returned when a signer or verifier is handed a message
	// whose length does not match its scheme.
	ErrMessageSize = errors.New("keys: unexpected message size")

	// ErrUnsupportedScheme is returned for unknown scheme names.
	ErrUnsupportedScheme = errors.New("keys: unsupported scheme")
)
