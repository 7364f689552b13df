// Package model defines the JSON-facing request and response types shared by
// the CLI and daemon surfaces.
package model

// BlobRef refers to canonical bytes directly or by CID.
// Exactly one of CID or Bytes MUST be set.
//
// JSON note: Bytes are encoded as base64 by encoding/json.
type BlobRef struct {
	CID   string `json:"cid,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
}

type ComplianceMode string

const (
	CompliancePermissive ComplianceMode = "permissive"
	ComplianceStrict     ComplianceMode = "strict"
)

type ResolveRequest struct {
	RootID     string         `json:"rootID"`
	ProjectID  string         `json:"projectID"`
	Policy     BlobRef        `json:"policy"`
	Proofs     []BlobRef      `json:"proofs"`
	Compliance ComplianceMode `json:"compliance"`
}

type Evidence struct {
	IssuerKey     string `json:"issuerKey"`
	Distance      int    `json:"distance"`
	ProofCID      string `json:"proofCID"`
	Date          string `json:"date"`
	Trust         string `json:"trust"`
	Distrust      string `json:"distrust"`
	Thoroughness  string `json:"thoroughness"`
	Understanding string `json:"understanding"`
	Tombstone     bool   `json:"tombstone"`
	Distrusted    bool   `json:"distrusted"`
}

type Exclusion struct {
	CID    string `json:"cid"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type Verdict struct {
	ProjectID            string      `json:"projectID"`
	State                string      `json:"state"`
	Trust                string      `json:"trust"`
	Distrust             string      `json:"distrust"`
	Evidence             []Evidence  `json:"evidence"`
	Exclusions           []Exclusion `json:"exclusions"`
	DistrustedIdentities []string    `json:"distrustedIdentities"`
}

type ReportDocument struct {
	Bytes []byte `json:"bytes"`
	CID   string `json:"cid"`
}

type ResolveResponse struct {
	Verdict        Verdict        `json:"verdict"`
	TrustPolicyCID string         `json:"trustPolicyCID"`
	ProofCIDs      []string       `json:"proofCIDs"`
	Report         ReportDocument `json:"report"`
}
