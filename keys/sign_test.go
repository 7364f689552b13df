package keys

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"revtrust.dev/revtrust/proof"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x42
	}
	return len(p), nil
}

func testReview(reviewerID string) *proof.Review {
	return &proof.Review{
		Date:          time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		Reviewer:      proof.Identity{ID: reviewerID, URL: "https://proofs.example.com/alice"},
		Project:       proof.Project{ID: "example.com/widget", Digest: "bafkreib-digest"},
		Thoroughness:  proof.LevelMedium,
		Understanding: proof.LevelHigh,
		Trust:         proof.LevelHigh,
		Distrust:      proof.LevelNone,
	}
}

func TestEd25519Signer_ReviewRoundTrip(t *testing.T) {
	s, err := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0x51)))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	raw, err := s.SignReview(testReview(s.IssuerKey()))
	if err != nil {
		t.Fatalf("SignReview: %v", err)
	}
	p, err := proof.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Type != proof.TypeReview {
		t.Fatalf("type: %s", p.Type)
	}
	if p.IssuerKey() != s.IssuerKey() {
		t.Fatal("issuer key mismatch")
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestEd25519Signer_TrustRoundTrip(t *testing.T) {
	s, err := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0x52)))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	raw, err := s.SignTrust(&proof.Trust{
		Date:     time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		Reviewer: proof.Identity{ID: s.IssuerKey(), URL: "https://proofs.example.com/alice"},
		Trusted:  proof.Identity{ID: GenerateIssuerKeyFromSeed(testSeed(0x53))},
		Trust:    proof.LevelHigh,
		Distrust: proof.LevelNone,
	})
	if err != nil {
		t.Fatalf("SignTrust: %v", err)
	}
	p, err := proof.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSigner_RejectsIdentityMismatch(t *testing.T) {
	s, err := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed(0x54)))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	other := GenerateIssuerKeyFromSeed(testSeed(0x55))

	if _, err := s.SignReview(testReview(other)); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}
}

func TestDilithium3Signer_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateDilithium3Keypair(zeroReader{})
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	s, err := NewDilithium3Signer(pub, priv, "sha3-256")
	if err != nil {
		t.Fatalf("NewDilithium3Signer: %v", err)
	}

	raw, err := s.SignReview(testReview(s.IssuerKey()))
	if err != nil {
		t.Fatalf("SignReview: %v", err)
	}
	p, err := proof.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Crypto.SignatureAlg != "dilithium3" || p.Crypto.HashAlg != "sha3-256" {
		t.Fatalf("crypto section wrong: %+v", p.Crypto)
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestDilithium3Signer_RejectsUnknownHash(t *testing.T) {
	pub, priv, err := GenerateDilithium3Keypair(zeroReader{})
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	if _, err := NewDilithium3Signer(pub, priv, "md5"); err == nil {
		t.Fatal("expected error for unsupported hash")
	}
}

func TestSignEd25519SHA256(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(testSeed(0x56))
	msg := []byte("message under signature")

	sig1 := SignEd25519SHA256(msg, priv)
	sig2 := SignEd25519SHA256(msg, priv)
	if sig1 != sig2 {
		t.Fatal("signature not deterministic")
	}
	if sig1 == SignEd25519SHA256([]byte("another message"), priv) {
		t.Fatal("different messages produced identical signatures")
	}
}
