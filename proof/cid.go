package proof

import "revtrust.dev/revtrust/cidutil"

// CID returns a deterministic content identifier for the canonical proof
// bytes. This is an IPFS-compatible CIDv1 (raw + sha2-256).
func (p *Proof) CID() string {
	return cidutil.CIDv1RawSHA256(p.Raw)
}

// CID parses bytes and returns the proof CID. Non-canonical inputs fail.
func CID(data []byte) (string, error) {
	p, err := Parse(data)
	if err != nil {
		return "", err
	}
	return p.CID(), nil
}
