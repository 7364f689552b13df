package resolver

import (
	"revtrust.dev/revtrust/graph"
	"revtrust.dev/revtrust/verify"
)

// Exclusion records a proof that was dropped before graph assembly, with the
// verification status that dropped it.
type Exclusion struct {
	CID    string
	Status verify.Status
	Reason string
}

// Result bundles a verdict with the proofs excluded on the way to it.
type Result struct {
	Verdict    *Verdict
	Exclusions []Exclusion
}

// ResolveBytes runs the full pipeline over raw proof documents: verify each
// proof, assemble the survivors into a graph, and resolve the project from
// rootID. Proofs that fail verification are excluded, never fatal.
func ResolveBytes(raws [][]byte, v *verify.Verifier, rootID, projectID string, params Params) (*Result, error) {
	b := graph.NewBuilder()
	res := &Result{}
	for _, out := range v.VerifyAll(raws) {
		if out.Status != verify.StatusValid {
			res.Exclusions = append(res.Exclusions, Exclusion{
				CID:    out.CID,
				Status: out.Status,
				Reason: out.Reason,
			})
			continue
		}
		b.AddProof(out.Proof)
	}

	verdict, err := Resolve(b.Build(), rootID, projectID, params)
	if err != nil {
		return nil, err
	}
	res.Verdict = verdict
	return res, nil
}
