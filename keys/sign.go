package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"revtrust.dev/revtrust/proof"
)

// ErrIdentityMismatch is returned when the proof's REVIEWER Id does not match
// the fingerprint derived from the signing key.
var ErrIdentityMismatch = errors.New("keys: reviewer id does not match signing key")

// SignEd25519SHA256 returns a base64 signature over sha256(message).
func SignEd25519SHA256(message []byte, privateKey ed25519.PrivateKey) string {
	digest, _ := proof.DigestFor("sha256", message)
	sig := ed25519.Sign(privateKey, digest)
	return base64.StdEncoding.EncodeToString(sig)
}

// SignDilithium3 returns a base64 dilithium3 signature over hash(message).
// hashAlg must be one of: sha256, sha512, sha3-256.
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := proof.DigestFor(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// Signer binds a private key to the issuer-key fingerprint it signs as.
type Signer struct {
	issuerKey string
	hashAlg   string
	sigAlg    string
	sign      func(digest []byte) (string, error)
}

// NewEd25519Signer builds a Signer for an Ed25519 private key
// (Signature-Alg ed25519, Hash-Alg sha256).
func NewEd25519Signer(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	issuer, err := IssuerKeyFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Signer{
		issuerKey: issuer,
		hashAlg:   "sha256",
		sigAlg:    "ed25519",
		sign: func(digest []byte) (string, error) {
			return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, digest)), nil
		},
	}, nil
}

// NewDilithium3Signer builds a Signer for a Dilithium3 keypair.
// hashAlg must be one of: sha256, sha512, sha3-256.
func NewDilithium3Signer(pub *mode3.PublicKey, priv *mode3.PrivateKey, hashAlg string) (*Signer, error) {
	if pub == nil || priv == nil {
		return nil, errors.New("missing dilithium3 keypair")
	}
	if _, err := proof.DigestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Signer{
		issuerKey: "dilithium3:" + base64.StdEncoding.EncodeToString(pubBytes),
		hashAlg:   hashAlg,
		sigAlg:    "dilithium3",
		sign: func(digest []byte) (string, error) {
			sig := make([]byte, mode3.SignatureSize)
			mode3.SignTo(priv, digest, sig)
			return base64.StdEncoding.EncodeToString(sig), nil
		},
	}, nil
}

// IssuerKey returns the fingerprint the Signer signs as.
func (s *Signer) IssuerKey() string { return s.issuerKey }

// SignReview produces canonical signed review-proof bytes.
//
// The review's Reviewer.ID must match the signing key's fingerprint;
// otherwise ErrIdentityMismatch is returned and nothing is signed.
func (s *Signer) SignReview(r *proof.Review) ([]byte, error) {
	if r == nil {
		return nil, errors.New("keys: nil review")
	}
	if r.Reviewer.ID != s.issuerKey {
		return nil, ErrIdentityMismatch
	}
	body, err := proof.ReviewBody(r)
	if err != nil {
		return nil, err
	}
	c, err := s.cryptoFor(body)
	if err != nil {
		return nil, err
	}
	return proof.RenderReview(r, c)
}

// SignTrust produces canonical signed trust-proof bytes.
func (s *Signer) SignTrust(t *proof.Trust) ([]byte, error) {
	if t == nil {
		return nil, errors.New("keys: nil trust proof")
	}
	if t.Reviewer.ID != s.issuerKey {
		return nil, ErrIdentityMismatch
	}
	body, err := proof.TrustBody(t)
	if err != nil {
		return nil, err
	}
	c, err := s.cryptoFor(body)
	if err != nil {
		return nil, err
	}
	return proof.RenderTrust(t, c)
}

func (s *Signer) cryptoFor(body []byte) (proof.Crypto, error) {
	digest, err := proof.DigestFor(s.hashAlg, body)
	if err != nil {
		return proof.Crypto{}, err
	}
	sig, err := s.sign(digest)
	if err != nil {
		return proof.Crypto{}, err
	}
	return proof.Crypto{
		IssuerKey:    s.issuerKey,
		SignatureAlg: s.sigAlg,
		HashAlg:      s.hashAlg,
		Signature:    sig,
	}, nil
}
