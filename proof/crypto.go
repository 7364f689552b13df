package proof

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// IssuerPublicKeyBytes returns the raw public key bytes for the issuer.
// Supported encodings:
// - ed25519:<base64>
// - dilithium3:<base64>
func (p *Proof) IssuerPublicKeyBytes() ([]byte, error) {
	issuer := p.IssuerKey()
	if issuer == "" {
		return nil, newError(KindCrypto, "CRP-CRYPTO-103", "missing Issuer-Key")
	}

	alg, enc, ok := strings.Cut(issuer, ":")
	if !ok {
		return nil, newError(KindCrypto, "CRP-CRYPTO-111", "invalid Issuer-Key encoding")
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return nil, wrapError(KindCrypto, "CRP-CRYPTO-113", "invalid issuer key base64", err)
	}

	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return nil, newError(KindCrypto, "CRP-CRYPTO-114", "invalid ed25519 public key length")
		}
		return pub, nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return nil, wrapError(KindCrypto, "CRP-CRYPTO-115", "invalid dilithium3 public key", err)
		}
		return pub, nil
	default:
		return nil, newError(KindCrypto, "CRP-CRYPTO-112", "unsupported issuer key encoding")
	}
}

// SignatureBytes decodes the CRYPTO Signature and checks fixed-size schemes.
func (p *Proof) SignatureBytes() ([]byte, error) {
	sig, err := decodeBase64(p.Crypto.Signature)
	if err != nil {
		return nil, wrapError(KindCrypto, "CRP-CRYPTO-131", "invalid signature base64", err)
	}
	switch p.Crypto.SignatureAlg {
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return nil, newError(KindCrypto, "CRP-CRYPTO-132", "invalid ed25519 signature length")
		}
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return nil, newError(KindCrypto, "CRP-CRYPTO-133", "invalid dilithium3 signature length")
		}
	}
	return sig, nil
}

// DigestFor hashes message with one of the supported hash algorithms:
// sha256, sha512, sha3-256.
func DigestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, newError(KindCrypto, "CRP-CRYPTO-201", "unsupported Hash-Alg")
	}
}

// Verify verifies the proof signature against the embedded Issuer-Key.
//
// The REVIEWER Id must equal the Issuer-Key: the identity fingerprint IS the
// issuer-key string, so a proof cannot claim one identity and be signed by
// another. Whether the Issuer-Key is the key actually published by that
// identity is the verify package's concern.
func (p *Proof) Verify() error {
	if p == nil {
		return newError(KindCrypto, "CRP-CRYPTO-001", "nil proof")
	}
	// Re-parse the receiver bytes so canonicalization cannot be bypassed via a
	// manually-constructed Proof or mutated fields.
	parsed, err := Parse(p.Raw)
	if err != nil {
		return err
	}
	p = parsed

	issuer := p.IssuerKey()
	issuerAlg, _, ok := strings.Cut(issuer, ":")
	if !ok {
		return newError(KindCrypto, "CRP-CRYPTO-111", "invalid Issuer-Key encoding")
	}
	if issuerAlg != p.Crypto.SignatureAlg {
		return newError(KindCrypto, "CRP-CRYPTO-121", "Issuer-Key alg does not match Signature-Alg")
	}
	if p.Reviewer().ID != issuer {
		return newError(KindCrypto, "CRP-CRYPTO-122", "Issuer-Key does not match REVIEWER Id")
	}

	pub, err := p.IssuerPublicKeyBytes()
	if err != nil {
		return err
	}
	sig, err := p.SignatureBytes()
	if err != nil {
		return err
	}
	digest, err := DigestFor(p.Crypto.HashAlg, p.Signed)
	if err != nil {
		return err
	}

	switch p.Crypto.SignatureAlg {
	case "ed25519":
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return newError(KindCrypto, "CRP-CRYPTO-401", "signature invalid")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return wrapError(KindCrypto, "CRP-CRYPTO-115", "invalid dilithium3 public key", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return newError(KindCrypto, "CRP-CRYPTO-401", "signature invalid")
		}
		return nil
	default:
		return newError(KindCrypto, "CRP-CRYPTO-301", "unsupported Signature-Alg")
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
