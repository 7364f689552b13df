package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"revtrust.dev/revtrust/proof"
)

// Lister is the optional enumeration side of a CAS. Backends that can walk
// their contents implement it; resolution over a whole store needs it.
type Lister interface {
	List() ([]cid.Cid, error)
}

// ProofStore wraps a CAS with proof-aware semantics: only canonical proof
// documents are admitted, and retrieval re-parses so corrupted bytes can
// never round-trip into the trust graph.
type ProofStore struct {
	cas CAS
}

func NewProofStore(cas CAS) *ProofStore {
	return &ProofStore{cas: cas}
}

// PutProof stores one canonical proof document and returns its CID string.
// Non-canonical or unparseable bytes are rejected before touching storage.
func (s *ProofStore) PutProof(raw []byte) (string, error) {
	p, err := proof.Parse(raw)
	if err != nil {
		return "", err
	}
	id, err := s.cas.Put(raw)
	if err != nil {
		return "", err
	}
	if got := id.String(); got != p.CID() {
		return "", fmt.Errorf("storage: backend returned CID %s for proof %s: %w", got, p.CID(), ErrCIDMismatch)
	}
	return p.CID(), nil
}

// GetProof fetches and re-parses one proof by CID string.
func (s *ProofStore) GetProof(cidStr string) (*proof.Proof, error) {
	id, err := cid.Decode(cidStr)
	if err != nil {
		return nil, ErrInvalidCID
	}
	raw, err := s.cas.Get(id)
	if err != nil {
		return nil, err
	}
	return proof.Parse(raw)
}

// HasProof reports whether a proof with the given CID string is stored.
func (s *ProofStore) HasProof(cidStr string) bool {
	id, err := cid.Decode(cidStr)
	if err != nil {
		return false
	}
	return s.cas.Has(id)
}

// AllProofs enumerates every stored proof document as raw bytes. The backing
// CAS must implement Lister. Objects that are not parseable proofs (verdict
// reports share the same store) are skipped.
func (s *ProofStore) AllProofs() ([][]byte, error) {
	lister, ok := s.cas.(Lister)
	if !ok {
		return nil, fmt.Errorf("storage: backend does not support enumeration")
	}
	ids, err := lister.List()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, id := range ids {
		raw, err := s.cas.Get(id)
		if err != nil {
			return nil, err
		}
		if _, err := proof.Parse(raw); err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}
