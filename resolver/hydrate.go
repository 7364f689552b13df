package resolver

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/compliance"
	"revtrust.dev/revtrust/policy"
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/storage"
	"revtrust.dev/revtrust/verify"
)

var ErrMissingCAS = errors.New("resolver: missing CAS for CID hydration")

// ErrStrictExclusions is returned in Strict compliance mode when any input
// proof fails verification.
var ErrStrictExclusions = errors.New("resolver: strict mode: input proofs failed verification")

// BlobRef refers to bytes directly or by CID (hydrated via CAS).
// Exactly one of Bytes or CID MUST be set.
type BlobRef struct {
	Bytes []byte
	CID   cid.Cid
}

// ResolveRequestCAS is a resolver request that supports CID hydration through
// an injected CAS.
//
// Deterministic hydration order:
// - If CASAdapters is provided, adapters are consulted in the provided slice order.
// - No randomization or map iteration is used.
// - If both CAS and CASAdapters are set, the request is rejected.
type ResolveRequestCAS struct {
	Proofs    []BlobRef
	Policy    BlobRef
	RootID    string
	ProjectID string

	Verifier   *verify.Verifier
	Compliance compliance.ComplianceMode

	CAS         storage.CAS
	CASAdapters []storage.CAS
}

// ResolveOutputCAS bundles the result with the deterministic input
// identifiers used to bind a verdict report to its inputs.
type ResolveOutputCAS struct {
	Result         *Result
	TrustPolicyCID string
	ProofCIDs      []string
}

func ResolveWithCAS(req ResolveRequestCAS) (*ResolveOutputCAS, error) {
	if req.Verifier == nil {
		return nil, errors.New("resolver: missing verifier")
	}
	cas, err := casFromRequest(req.CAS, req.CASAdapters)
	if err != nil {
		return nil, err
	}

	policyBytes, policyCID, err := hydrateOne(req.Policy, cas)
	if err != nil {
		return nil, fmt.Errorf("resolver: hydrate policy: %w", err)
	}
	pol, err := policy.Parse(policyBytes)
	if err != nil {
		return nil, err
	}

	raws := make([][]byte, 0, len(req.Proofs))
	cids := make([]string, 0, len(req.Proofs))
	for i, ref := range req.Proofs {
		b, id, err := hydrateOne(ref, cas)
		if err != nil {
			return nil, fmt.Errorf("resolver: hydrate proof[%d]: %w", i, err)
		}
		raws = append(raws, b)

		// Bind to the proof CID when the bytes parse; otherwise fall back to
		// the raw content CID so even rejected inputs stay identifiable.
		if p, perr := proof.Parse(b); perr == nil {
			cids = append(cids, p.CID())
		} else {
			cids = append(cids, id.String())
		}
	}

	params := Params{MaxDistance: pol.MaxDistance, DistanceCost: pol.DistanceCost}
	res, err := ResolveBytes(raws, req.Verifier, req.RootID, req.ProjectID, params)
	if err != nil {
		return nil, err
	}
	if req.Compliance == compliance.Strict && len(res.Exclusions) > 0 {
		return nil, ErrStrictExclusions
	}

	return &ResolveOutputCAS{
		Result:         res,
		TrustPolicyCID: policyCID.String(),
		ProofCIDs:      cids,
	}, nil
}

func casFromRequest(single storage.CAS, adapters []storage.CAS) (storage.CAS, error) {
	if single != nil && len(adapters) > 0 {
		return nil, errors.New("resolver: specify either CAS or CASAdapters, not both")
	}
	if single != nil {
		return single, nil
	}
	if len(adapters) > 0 {
		return storage.MultiCAS{Adapters: adapters}, nil
	}
	return nil, nil
}

func hydrateOne(ref BlobRef, cas storage.CAS) ([]byte, cid.Cid, error) {
	if len(ref.Bytes) > 0 && ref.CID.Defined() {
		return nil, cid.Undef, errors.New("ambiguous blob ref: both bytes and CID set")
	}
	if len(ref.Bytes) > 0 {
		computed, err := cidutil.CIDv1RawSHA256CID(ref.Bytes)
		if err != nil {
			return nil, cid.Undef, err
		}
		return ref.Bytes, computed, nil
	}
	if ref.CID.Defined() {
		if cas == nil {
			return nil, cid.Undef, ErrMissingCAS
		}
		b, err := cas.Get(ref.CID)
		if err != nil {
			return nil, cid.Undef, err
		}
		computed, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			return nil, cid.Undef, err
		}
		if computed != ref.CID {
			return nil, cid.Undef, storage.ErrCIDMismatch
		}
		return b, ref.CID, nil
	}
	return nil, cid.Undef, errors.New("invalid blob ref: neither bytes nor CID set")
}
