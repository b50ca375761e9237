package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ParseSeedHex decodes a 32-byte seed written as hex, with an optional 0x
// prefix and surrounding whitespace.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: seed is not hex: %v", ErrInvalidKey, err)
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("%w: expected seed length of %d bytes, got %d", ErrInvalidKey, SeedSize, len(data))
	}
	return data, nil
}

// ReadSeedFile loads a hex seed from path.
func ReadSeedFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// WriteSeedFile stores seed at path with mode 0600, also when overwriting,
// creating parent directories with mode 0700. Without overwrite an existing
// file is an error.
func WriteSeedFile(path string, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("%w: expected seed length of %d bytes", ErrInvalidKey, SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	// The create mode is not applied to a file that already exists.
	if err := file.Chmod(0o600); err != nil {
		return err
	}
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

// LoadOptions configures LoadOrGenerate.
type LoadOptions struct {
	// Rand is the entropy source for fresh seeds; crypto/rand when nil.
	Rand io.Reader
	// Logger receives a record whenever a seed is generated; no-op when nil.
	Logger *zap.Logger
}

// LoadOrGenerate returns the seed stored at path for scheme.
//
// When the file is missing, unparsable, or holds a seed the scheme cannot use
// (for example a secp256k1 scalar that is zero or out of range), a fresh seed
// is generated, written over path, logged, and returned. Only storage errors
// (unreadable or unwritable files) are returned to the caller.
func LoadOrGenerate(path string, scheme Scheme, opts LoadOptions) ([]byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := ParseScheme(string(scheme)); err != nil {
		return nil, err
	}

	var reason string
	seed, err := ReadSeedFile(path)
	switch {
	case err == nil:
		cerr := scheme.CheckSeed(seed)
		if cerr == nil {
			logger.Debug("loaded signing key", zap.String("path", path), zap.String("scheme", string(scheme)))
			return seed, nil
		}
		reason = cerr.Error()
	case errors.Is(err, fs.ErrNotExist):
		reason = "missing"
	case errors.Is(err, ErrInvalidKey):
		reason = err.Error()
	default:
		return nil, err
	}

	seed, err = GenerateSeed(scheme, opts.Rand)
	if err != nil {
		return nil, err
	}
	if err := WriteSeedFile(path, seed, true); err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("path", path),
		zap.String("scheme", string(scheme)),
		zap.String("reason", reason),
	}
	if reason == "missing" {
		logger.Info("generated signing key", fields...)
	} else {
		logger.Warn("replaced unusable signing key", fields...)
	}
	return seed, nil
}
