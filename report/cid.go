package report

import (
	"fmt"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/resolver"
)

// CID returns an IPFS-compatible CIDv1 (raw + sha2-256) for report bytes.
//
// Reports must be canonical before CID derivation. If input is not canonical,
// this function fails.
func CID(reportBytes []byte) (string, error) {
	canon, err := Canonicalize(reportBytes)
	if err != nil {
		return "", fmt.Errorf("canonical report required: %w", err)
	}
	return cidutil.CIDv1RawSHA256(canon), nil
}

// Document is a first-class verdict report object: canonical bytes plus the
// CID derived from them. Treating reports as documents rather than ephemeral
// output lets them be archived, inspected, and re-verified.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocumentFromBytes canonicalizes report bytes and computes the report CID.
func NewDocumentFromBytes(reportBytes []byte) (*Document, error) {
	canon, err := Canonicalize(reportBytes)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: cidutil.CIDv1RawSHA256(canon)}, nil
}

// RenderDocument renders a report from a resolver Result and returns a
// canonical Document.
func RenderDocument(res *resolver.Result, rootID, policyCID string, proofCIDs []string, opts RenderOptions) (*Document, error) {
	b := Render(res, rootID, policyCID, proofCIDs, opts)
	return NewDocumentFromBytes(b)
}
