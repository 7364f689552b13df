package proof

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

type deterministicReader struct{}

func (deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x42
	}
	return len(p), nil
}

func signedDilithiumReview(t *testing.T, hashAlg string) []byte {
	t.Helper()
	pk, sk, err := mode3.GenerateKey(deterministicReader{})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	issuer := "dilithium3:" + base64.StdEncoding.EncodeToString(pk.Bytes())

	r := baseReview(issuer)
	body, err := ReviewBody(r)
	if err != nil {
		t.Fatalf("ReviewBody: %v", err)
	}
	digest, err := DigestFor(hashAlg, body)
	if err != nil {
		t.Fatalf("DigestFor: %v", err)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(sk, digest, sig)

	out, err := RenderReview(r, Crypto{
		IssuerKey:    issuer,
		SignatureAlg: "dilithium3",
		HashAlg:      hashAlg,
		Signature:    base64.StdEncoding.EncodeToString(sig),
	})
	if err != nil {
		t.Fatalf("RenderReview: %v", err)
	}
	return out
}

func TestVerify_Dilithium3_SHA3_256(t *testing.T) {
	raw := signedDilithiumReview(t, "sha3-256")
	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := p.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_Dilithium3_RejectsTamper(t *testing.T) {
	raw := signedDilithiumReview(t, "sha256")
	bad := bytes.Replace(raw, []byte("the parser"), []byte("the sorter"), 1)
	if bytes.Equal(raw, bad) {
		t.Fatal("tamper had no effect")
	}
	p, err := Parse(bad)
	if err != nil {
		return
	}
	if err := p.Verify(); err == nil {
		t.Fatal("expected signature failure after tampering")
	}
}

func TestVerify_RejectsAlgMismatch(t *testing.T) {
	// ed25519 issuer key with dilithium3 Signature-Alg must never verify.
	pub, priv := mustKeypair(t, 0xE5)
	issuer := issuerKey(pub)
	raw := signReviewBytes(t, baseReview(issuer), priv, issuer)
	bad := bytes.Replace(raw, []byte("Signature-Alg: ed25519"), []byte("Signature-Alg: ed25520"), 1)
	p, err := Parse(bad)
	if err != nil {
		return
	}
	if err := p.Verify(); err == nil {
		t.Fatal("expected failure for mismatched algorithms")
	}
}
