package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps Ed25519 signing seeds on the local filesystem, one directory
// per identity: <dir>/<name>/root.key plus derived <dir>/<name>/subs/<sub>.key.
// Sub-identities are re-derivable from the root seed, so only root.key ever
// needs backing up.
//
// This is CLI convenience, not protocol: proofs never reference store names.
type KeyStore struct {
	Directory string
}

// KeyEntry is one stored identity and its derived sub-identity names.
type KeyEntry struct {
	Identifier string
	Subs       []string
}

// GetDefaultDirectory returns ~/.revtrust/keys.
func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".revtrust", "keys"), nil
}

// CreateKeyStore opens a store at directory, defaulting to the user store.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) subKeyPath(identifier, sub string) string {
	return filepath.Join(ks.Directory, identifier, "subs", sub+".key")
}

// CheckKeyName restricts identifiers to [A-Za-z0-9_-]; names become path
// segments and must never carry separators or dots.
func CheckKeyName(identifier string) error {
	if identifier == "" {
		return errors.New("identifier cannot be empty")
	}
	for _, r := range identifier {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("invalid character %q in identifier", r)
		}
	}
	return nil
}

// ParseSeedHex decodes a 32-byte seed from hex, tolerating surrounding
// whitespace and a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

// writeSeed stores a seed as one hex line, mode 0600. Without overwrite the
// write is O_EXCL: an existing key never gets clobbered silently.
func (ks *KeyStore) writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
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
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return f.Close()
}

func (ks *KeyStore) readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitializeRootKey stores seed as the root key for identifier and returns
// the issuer-key fingerprint plus the file written.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (issuerKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(identifier)
	if err := ks.writeSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return GenerateIssuerKeyFromSeed(seed), filePath, nil
}

// DeriveSubKey derives and stores the named sub-identity of an existing root.
// Derivation is deterministic, so re-running with overwrite reproduces the
// same identity.
func (ks *KeyStore) DeriveSubKey(from, sub string, overwrite bool) (issuerKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckKeyName(sub); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.readSeed(ks.rootKeyPath(from))
	if err != nil {
		return "", "", err
	}
	subSeed, err := DeriveSubSeed(rootSeed, sub)
	if err != nil {
		return "", "", err
	}
	filePath = ks.subKeyPath(from, sub)
	if err := ks.writeSeed(filePath, subSeed, overwrite); err != nil {
		return "", "", err
	}
	return GenerateIssuerKeyFromSeed(subSeed), filePath, nil
}

// ExportKey returns the issuer-key fingerprint of a stored identity without
// exposing the seed. Empty sub selects the root key.
func (ks *KeyStore) ExportKey(identifier string, sub string) (string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", err
	}
	path := ks.rootKeyPath(identifier)
	if sub != "" {
		if err := CheckKeyName(sub); err != nil {
			return "", err
		}
		path = ks.subKeyPath(identifier, sub)
	}
	seed, err := ks.readSeed(path)
	if err != nil {
		return "", err
	}
	return GenerateIssuerKeyFromSeed(seed), nil
}

// LoadSeed resolves a signing seed for the CLI. Precedence: an explicit hex
// seed, then a key file path, then a stored identifier (optionally one of its
// sub-identities).
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerSub, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return ks.readSeed(keyFile)
	case signerName != "":
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerSub == "" {
			return ks.readSeed(ks.rootKeyPath(signerName))
		}
		if err := CheckKeyName(signerSub); err != nil {
			return nil, err
		}
		return ks.readSeed(ks.subKeyPath(signerName, signerSub))
	default:
		return nil, errors.New("no signer provided")
	}
}

// ListKeys enumerates stored identities and their sub-identity names, both
// sorted. A missing store directory lists as empty.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var out []KeyEntry
	for _, identifier := range identifiers {
		var subs []string
		subEntries, err := os.ReadDir(filepath.Join(ks.Directory, identifier, "subs"))
		if err == nil {
			for _, sub := range subEntries {
				if sub.IsDir() {
					continue
				}
				if name, ok := strings.CutSuffix(sub.Name(), ".key"); ok {
					subs = append(subs, name)
				}
			}
			sort.Strings(subs)
		}
		out = append(out, KeyEntry{Identifier: identifier, Subs: subs})
	}
	return out, nil
}
