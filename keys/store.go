package keys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const seedFileSuffix = ".key"

// KeyStore is a local directory of named signing identities. Each identity
// holds at most one seed per scheme:
//
//	<Directory>/<name>/<scheme>.key
type KeyStore struct {
	Directory string

	logger *zap.Logger
}

// KeyEntry lists the schemes stored for one identity.
type KeyEntry struct {
	Name    string
	Schemes []Scheme
}

// DefaultDirectory returns ~/.npk/keys.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".npk", "keys"), nil
}

// OpenKeyStore returns a store rooted at directory, or DefaultDirectory when
// directory is empty. The directory is created lazily on first write.
func OpenKeyStore(directory string, logger *zap.Logger) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyStore{Directory: directory, logger: logger.Named("keystore")}, nil
}

// CheckName accepts identity names and derivation labels made of ASCII
// letters, digits, '-' and '_'.
func CheckName(name string) error {
	if name == "" {
		return errors.New("keys: name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in name", char)
	}
	return nil
}

// SeedPath returns the file holding the seed for name and scheme.
func (ks *KeyStore) SeedPath(name string, scheme Scheme) string {
	return filepath.Join(ks.Directory, name, string(scheme)+seedFileSuffix)
}

// Import stores seed for name and scheme.
func (ks *KeyStore) Import(name string, scheme Scheme, seed []byte, overwrite bool) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	if err := scheme.CheckSeed(seed); err != nil {
		return "", err
	}
	path := ks.SeedPath(name, scheme)
	if err := WriteSeedFile(path, seed, overwrite); err != nil {
		return "", err
	}
	ks.logger.Debug("stored signing key", zap.String("name", name), zap.String("scheme", string(scheme)), zap.String("path", path))
	return path, nil
}

// InitializeFromRoot derives and stores one seed per suite scheme from
// rootSeed, labelled with name. The same root seed and name always yield the
// same keys.
func (ks *KeyStore) InitializeFromRoot(name string, rootSeed []byte, suite Suite, overwrite bool) error {
	if err := suite.Validate(); err != nil {
		return err
	}
	for _, scheme := range []Scheme{suite.Legacy, suite.Modern} {
		seed, err := DeriveSeed(rootSeed, scheme, name)
		if err != nil {
			return err
		}
		if _, err := ks.Import(name, scheme, seed, overwrite); err != nil {
			return err
		}
	}
	return nil
}

// LoadOrGenerate returns the seed for name and scheme, creating one when the
// stored seed is missing or unusable.
func (ks *KeyStore) LoadOrGenerate(name string, scheme Scheme) ([]byte, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	return LoadOrGenerate(ks.SeedPath(name, scheme), scheme, LoadOptions{
		Logger: ks.logger.With(zap.String("name", name)),
	})
}

// Signers loads (or creates) both keys of suite for name.
func (ks *KeyStore) Signers(name string, suite Suite) (legacy, modern Signer, err error) {
	if err := suite.Validate(); err != nil {
		return nil, nil, err
	}
	legacySeed, err := ks.LoadOrGenerate(name, suite.Legacy)
	if err != nil {
		return nil, nil, err
	}
	modernSeed, err := ks.LoadOrGenerate(name, suite.Modern)
	if err != nil {
		return nil, nil, err
	}
	return suite.Signers(legacySeed, modernSeed)
}

// Export returns the "<scheme>:<base64>" public key for name and scheme.
func (ks *KeyStore) Export(name string, scheme Scheme) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	seed, err := ReadSeedFile(ks.SeedPath(name, scheme))
	if err != nil {
		return "", err
	}
	pub, err := PublicKey(scheme, seed)
	if err != nil {
		return "", err
	}
	return EncodePublicKey(scheme, pub), nil
}

// List returns every identity in the store with its schemes, sorted by name.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		files, err := os.ReadDir(filepath.Join(ks.Directory, name))
		if err != nil {
			return nil, err
		}
		var schemes []Scheme
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), seedFileSuffix) {
				continue
			}
			scheme, err := ParseScheme(strings.TrimSuffix(f.Name(), seedFileSuffix))
			if err != nil {
				continue
			}
			schemes = append(schemes, scheme)
		}
		sort.Slice(schemes, func(i, j int) bool { return schemes[i] < schemes[j] })
		result = append(result, KeyEntry{Name: name, Schemes: schemes})
	}
	return result, nil
}
