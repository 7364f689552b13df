package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// GenerateIssuerKeyFromSeed returns the identity fingerprint (issuer-key
// string) for an Ed25519 seed: "ed25519:" + base64(pubkey).
func GenerateIssuerKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

// DeriveSubSeed deterministically derives a named sub-identity seed from a
// root seed. Rotating a sub-identity means bumping the name; the root seed
// never leaves the key store.
func DeriveSubSeed(rootSeed []byte, name string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("revtrust-keystore-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("sub:"))
	_, _ = h.Write([]byte(name))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
