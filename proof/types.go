// Package proof implements parsing, canonical rendering, and signature
// verification for Code Review Proof (CRP) documents.
//
// A proof is an armored text document with a fixed section order, sorted
// key-value lines, and a byte-exact canonical form. The canonical bytes up to
// the CRYPTO section are the signature scope; the CRYPTO section binds the
// scope to an issuer key.
package proof

import "time"

// Type distinguishes the two proof document kinds.
type Type string

const (
	// TypeReview is an identity-to-project review proof.
	TypeReview Type = "review"
	// TypeTrust is an identity-to-identity trust proof.
	TypeTrust Type = "trust"
)

const (
	ReviewPreamble  = "-----BEGIN CODE REVIEW PROOF-----"
	ReviewPostamble = "-----END CODE REVIEW PROOF-----"
	TrustPreamble   = "-----BEGIN CODE REVIEW TRUST PROOF-----"
	TrustPostamble  = "-----END CODE REVIEW TRUST PROOF-----"
)

// SpecTag is the fixed META Spec value for v1 proofs.
const SpecTag = "revtrust-proof-1"

// Identity is a reviewer: a key-derived fingerprint plus the location where
// the identity publishes its proofs.
//
// ID has the issuer-key form "<alg>:<base64>"; it is identical to the CRYPTO
// Issuer-Key of proofs the identity signs.
type Identity struct {
	ID  string
	URL string
}

// Project identifies the reviewed project.
//
// ID is an opaque stable key (e.g., a package name). Digest is the recursive
// content fingerprint of the project tree at review time. Revision is the
// advisory revision-control checksum; it never participates in trust
// computation.
type Project struct {
	ID       string
	Source   string
	Revision string
	Digest   string
}

// FileEntry is one per-file review record. Digest is optional.
type FileEntry struct {
	Path   string
	Digest string
}

// Review is the logical content of a review proof, excluding CRYPTO.
type Review struct {
	Date     time.Time
	Reviewer Identity
	Project  Project

	Thoroughness  Level
	Understanding Level
	Trust         Level
	Distrust      Level

	Comment string
	Files   []FileEntry
}

// Tombstone reports whether the review erases the reviewer's prior verdict
// for the project rather than asserting one.
func (r *Review) Tombstone() bool {
	return r.Trust == LevelNone && r.Distrust == LevelNone
}

// Trust is the logical content of an identity-trust proof, excluding CRYPTO.
// It reuses the review ordinals: Thoroughness/Understanding describe how well
// the reviewer knows the trusted identity's work.
type Trust struct {
	Date     time.Time
	Reviewer Identity
	Trusted  Identity

	Thoroughness  Level
	Understanding Level
	Trust         Level
	Distrust      Level

	Comment string
}

// Tombstone reports whether the proof erases the reviewer's prior trust
// statement about the trusted identity.
func (t *Trust) Tombstone() bool {
	return t.Trust == LevelNone && t.Distrust == LevelNone
}

// Crypto carries the CRYPTO section fields of a signed proof.
type Crypto struct {
	IssuerKey    string
	SignatureAlg string
	HashAlg      string
	Signature    string
}

// Proof is a parsed, canonical proof document.
//
// Exactly one of Review/Trust is non-nil, matching Type. Raw holds the
// canonical bytes; Signed holds the signature scope (preamble through the
// blank line before CRYPTO).
type Proof struct {
	Type   Type
	Review *Review
	Trust  *Trust
	Crypto Crypto

	Raw    []byte
	Signed []byte
}

// Date returns the proof's creation timestamp.
func (p *Proof) Date() time.Time {
	switch p.Type {
	case TypeReview:
		return p.Review.Date
	case TypeTrust:
		return p.Trust.Date
	}
	return time.Time{}
}

// Reviewer returns the issuing identity.
func (p *Proof) Reviewer() Identity {
	switch p.Type {
	case TypeReview:
		return p.Review.Reviewer
	case TypeTrust:
		return p.Trust.Reviewer
	}
	return Identity{}
}

// IssuerKey returns the CRYPTO Issuer-Key.
func (p *Proof) IssuerKey() string { return p.Crypto.IssuerKey }

// SignedBytes returns the bytes covered by the signature.
func (p *Proof) SignedBytes() []byte { return p.Signed }
