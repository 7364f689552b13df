// Package report implements the signed verdict report format.
//
// A report binds one resolution result to the exact inputs that produced it:
// the policy CID, the root identity, and the proof CIDs consumed. Reports are
// canonical byte documents, so they can be archived, content-addressed, and
// re-verified long after the resolution ran.
package report

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"revtrust.dev/revtrust/resolver"
)

const (
	Preamble  = "-----BEGIN REVTRUST VERDICT-----"
	Postamble = "-----END REVTRUST VERDICT-----"
)

type RenderOptions struct {
	ResolverID string
	ResolvedAt time.Time // informational only; zero means omit

	// Optional supersession: the report asserts it replaces a prior report
	// identified by CID.
	SupersedesVerdictCID string

	// Optional report signing. If PrivateKey is set, the CRYPTO section is
	// populated and Signature is computed over the report bytes excluding the
	// Signature: line.
	ResolverKey string
	PrivateKey  ed25519.PrivateKey
}

// Render produces a canonical verdict report binding a resolution to its
// inputs. Sections are always present and ordering is deterministic.
func Render(res *resolver.Result, rootID, policyCID string, proofCIDs []string, opts RenderOptions) []byte {
	resolverID := opts.ResolverID
	if resolverID == "" {
		resolverID = "revtrust-resolver-reference"
	}
	v := res.Verdict

	inputCIDs := append([]string(nil), proofCIDs...)
	sort.Strings(inputCIDs)

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Resolver-ID: " + resolverID,
		"Spec: revtrust-verdict-1",
		"Version: 1",
	}
	if !opts.ResolvedAt.IsZero() {
		metaLines = append(metaLines, "Resolved-At: "+opts.ResolvedAt.UTC().Format(time.RFC3339))
	}
	if opts.SupersedesVerdictCID != "" {
		metaLines = append(metaLines, "Supersedes-Verdict-CID: "+opts.SupersedesVerdictCID)
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// INPUTS
	sb.WriteString("INPUTS\n")
	sb.WriteString("Trust-Policy-CID: ")
	sb.WriteString(policyCID)
	sb.WriteString("\n")
	sb.WriteString("Root-ID: ")
	sb.WriteString(rootID)
	sb.WriteString("\n")
	for _, cid := range inputCIDs {
		sb.WriteString("Proof-CID: ")
		sb.WriteString(cid)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// RESULT
	sb.WriteString("RESULT\n")
	resultLines := []string{
		"Project-ID: " + v.ProjectID,
		"State: " + string(v.State),
		"Trust: " + v.Trust.String(),
		"Distrust: " + v.Distrust.String(),
	}
	sort.Strings(resultLines)
	for _, l := range resultLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// EVIDENCE (resolver order: distance, then issuer)
	sb.WriteString("EVIDENCE\n")
	for _, ev := range v.Evidence {
		sb.WriteString("Issuer-Key: ")
		sb.WriteString(ev.IssuerID)
		sb.WriteString("\n")
		sb.WriteString("Distance: ")
		sb.WriteString(strconv.Itoa(ev.Distance))
		sb.WriteString("\n")
		sb.WriteString("Proof-CID: ")
		sb.WriteString(ev.ProofCID)
		sb.WriteString("\n")
		sb.WriteString("Trust: ")
		sb.WriteString(ev.Trust.String())
		sb.WriteString("\n")
		sb.WriteString("Distrust: ")
		sb.WriteString(ev.Distrust.String())
		sb.WriteString("\n")
		sb.WriteString("Tombstone: ")
		if ev.Tombstone {
			sb.WriteString("true\n")
		} else {
			sb.WriteString("false\n")
		}
	}
	sb.WriteString("\n")

	// EXCLUSIONS
	sb.WriteString("EXCLUSIONS\n")
	ex := append([]resolver.Exclusion(nil), res.Exclusions...)
	sort.Slice(ex, func(i, j int) bool {
		if ex[i].CID == ex[j].CID {
			return ex[i].Reason < ex[j].Reason
		}
		return ex[i].CID < ex[j].CID
	})
	for _, e := range ex {
		if e.CID != "" {
			sb.WriteString("Proof-CID: ")
			sb.WriteString(e.CID)
			sb.WriteString("\n")
		}
		sb.WriteString("Status: ")
		sb.WriteString(string(e.Status))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// CRYPTO (empty unless signing)
	sb.WriteString("CRYPTO\n")
	cryptoLines := []string{}
	if opts.ResolverKey != "" {
		cryptoLines = append(cryptoLines,
			"Hash-Alg: sha256",
			"Resolver-Key: "+opts.ResolverKey,
			"Signature-Alg: ed25519",
			"Signature: 0",
		)
	}
	sort.Strings(cryptoLines)
	for _, l := range cryptoLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if len(opts.PrivateKey) > 0 && opts.ResolverKey != "" {
		sig, err := signReport(out, opts.PrivateKey)
		if err == nil {
			out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+sig, 1))
		}
	}

	return out
}

// RenderSigned renders a report with a required ed25519 signature. Unlike
// Render, it fails explicitly when signing cannot be performed.
func RenderSigned(res *resolver.Result, rootID, policyCID string, proofCIDs []string, opts RenderOptions) ([]byte, error) {
	if opts.ResolverKey == "" || len(opts.PrivateKey) == 0 {
		return nil, errors.New("report: signing requires ResolverKey and PrivateKey")
	}
	out := Render(res, rootID, policyCID, proofCIDs, opts)
	signed, err := VerifySignature(out)
	if err != nil {
		return nil, err
	}
	if !signed {
		return nil, errors.New("report: signing produced an unsigned document")
	}
	return out, nil
}

func signReport(reportBytes []byte, privateKey ed25519.PrivateKey) (string, error) {
	scope, err := signatureScope(reportBytes)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(scope)
	sig := ed25519.Sign(privateKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig), nil
}

// signatureScope is the report bytes with the Signature: line removed.
func signatureScope(reportBytes []byte) ([]byte, error) {
	lines := strings.Split(string(reportBytes), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}
