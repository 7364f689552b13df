// Package verify checks signed proofs against the keys their identities
// actually publish.
//
// proof.Verify only proves internal consistency (the bytes match the embedded
// issuer key). This package adds the external half: the issuer key must be
// the one published for the claimed identity, and must not be revoked as of
// the proof date. Verification is pure; the only side effect is the key
// lookup.
package verify

import (
	"errors"
	"time"

	"revtrust.dev/revtrust/proof"
)

// Status classifies one proof's verification outcome.
type Status string

const (
	// StatusValid: the proof is canonical and its signature verifies against
	// the identity's published key.
	StatusValid Status = "Valid"
	// StatusInvalidSignature: the bytes and signature do not match, or the
	// proof is malformed. The proof is discarded, never trusted.
	StatusInvalidSignature Status = "InvalidSignature"
	// StatusUnknownIdentity: no key could be found at the identity's
	// published location. The proof is held as unverifiable and excluded from
	// the trust graph until resolved.
	StatusUnknownIdentity Status = "UnknownIdentity"
	// StatusKeyRevoked: the signing key is revoked and the proof is dated at
	// or after the cutover. Proofs signed before cutover remain Valid.
	StatusKeyRevoked Status = "KeyRevoked"
)

// ErrUnknownIdentity is returned by KeySource implementations when no key is
// published for the requested identity.
var ErrUnknownIdentity = errors.New("verify: unknown identity")

// KeySource looks up the public key an identity publishes.
//
// Implementations typically fetch from the identity's URL; a fetch timeout
// should surface as ErrUnknownIdentity for this pass rather than blocking.
type KeySource interface {
	// PublicKey returns the issuer-key string ("<alg>:<base64>") published
	// for (id, url), or ErrUnknownIdentity.
	PublicKey(id, url string) (string, error)
}

// KeySourceFunc adapts a function to the KeySource interface.
type KeySourceFunc func(id, url string) (string, error)

func (f KeySourceFunc) PublicKey(id, url string) (string, error) { return f(id, url) }

// StaticKeys is an in-memory KeySource keyed by identity id.
type StaticKeys map[string]string

func (s StaticKeys) PublicKey(id, url string) (string, error) {
	key, ok := s[id]
	if !ok {
		return "", ErrUnknownIdentity
	}
	return key, nil
}

// Revocations maps issuer keys to their revocation cutover date.
// A proof dated before its key's cutover remains valid.
type Revocations map[string]time.Time

// Outcome is one proof's verification result.
//
// Proof is set whenever the input parsed canonically, including for
// non-Valid outcomes, so callers can report which proof was rejected.
type Outcome struct {
	Status Status
	Proof  *proof.Proof
	CID    string
	Reason string
}

// Verifier validates proofs against a KeySource and an optional revocation
// list. The zero value (no key source) treats every identity as unknown.
type Verifier struct {
	Keys        KeySource
	Revocations Revocations
}

// Verify classifies one raw proof document. It never mutates the input.
func (v *Verifier) Verify(raw []byte) Outcome {
	p, err := proof.Parse(raw)
	if err != nil {
		return Outcome{Status: StatusInvalidSignature, Reason: err.Error()}
	}
	out := Outcome{Proof: p, CID: p.CID()}

	reviewer := p.Reviewer()
	if v.Keys == nil {
		out.Status = StatusUnknownIdentity
		out.Reason = "no key source configured"
		return out
	}
	published, err := v.Keys.PublicKey(reviewer.ID, reviewer.URL)
	if err != nil {
		out.Status = StatusUnknownIdentity
		out.Reason = err.Error()
		return out
	}
	if published != p.IssuerKey() {
		// Signed with a key other than the one the identity publishes.
		out.Status = StatusInvalidSignature
		out.Reason = "issuer key does not match published key"
		return out
	}

	if err := p.Verify(); err != nil {
		out.Status = StatusInvalidSignature
		out.Reason = err.Error()
		return out
	}

	if cutover, ok := v.Revocations[p.IssuerKey()]; ok && !p.Date().Before(cutover) {
		out.Status = StatusKeyRevoked
		out.Reason = "key revoked as of " + cutover.UTC().Format(proof.DateLayout)
		return out
	}

	out.Status = StatusValid
	return out
}

// VerifyAll classifies a batch of raw proof documents, preserving input order.
// Failures are per-proof: one bad proof never aborts the batch.
func (v *Verifier) VerifyAll(raws [][]byte) []Outcome {
	out := make([]Outcome, 0, len(raws))
	for _, raw := range raws {
		out = append(out, v.Verify(raw))
	}
	return out
}
