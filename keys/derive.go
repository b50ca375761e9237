package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const deriveSalt = "xdao-npk-keys-v1"

// DeriveSeed deterministically derives a seed for scheme from a root seed.
//
// The derivation is HKDF-SHA256 with info = scheme || 0 || label || 0 || counter.
// The counter starts at zero and is only advanced when the output is not a
// usable key for scheme.
func DeriveSeed(rootSeed []byte, scheme Scheme, label string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("%w: root seed must be %d bytes", ErrInvalidKey, SeedSize)
	}
	if _, err := ParseScheme(string(scheme)); err != nil {
		return nil, err
	}
	if err := CheckName(label); err != nil {
		return nil, err
	}

	for counter := uint32(0); counter < 16; counter++ {
		info := make([]byte, 0, len(scheme)+len(label)+6)
		info = append(info, string(scheme)...)
		info = append(info, 0)
		info = append(info, label...)
		info = append(info, 0)
		info = binary.BigEndian.AppendUint32(info, counter)

		out := make([]byte, SeedSize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, rootSeed, []byte(deriveSalt), info), out); err != nil {
			return nil, err
		}
		if scheme.CheckSeed(out) == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: no usable %s seed derived", ErrInvalidKey, scheme)
}
