package model

import (
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/resolver"
)

// VerdictFromResult converts a resolver result into its JSON-facing shape.
func VerdictFromResult(res *resolver.Result) Verdict {
	v := res.Verdict
	out := Verdict{
		ProjectID:            v.ProjectID,
		State:                string(v.State),
		Trust:                v.Trust.String(),
		Distrust:             v.Distrust.String(),
		DistrustedIdentities: v.DistrustedIdentities,
	}
	for _, ev := range v.Evidence {
		out.Evidence = append(out.Evidence, Evidence{
			IssuerKey:     ev.IssuerID,
			Distance:      ev.Distance,
			ProofCID:      ev.ProofCID,
			Date:          ev.Date.UTC().Format(proof.DateLayout),
			Trust:         ev.Trust.String(),
			Distrust:      ev.Distrust.String(),
			Thoroughness:  ev.Thoroughness.String(),
			Understanding: ev.Understanding.String(),
			Tombstone:     ev.Tombstone,
			Distrusted:    ev.Distrusted,
		})
	}
	for _, ex := range res.Exclusions {
		out.Exclusions = append(out.Exclusions, Exclusion{
			CID:    ex.CID,
			Status: string(ex.Status),
			Reason: ex.Reason,
		})
	}
	return out
}
