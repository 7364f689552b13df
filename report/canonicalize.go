package report

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Canonicalize is the mandatory canonicalization choke point for reports.
//
// Reports must be canonical before CID derivation, signature verification, or
// supersession validation. This function enforces byte-level canonical rules
// by rejecting any non-canonical input.
func Canonicalize(input []byte) ([]byte, error) {
	if !utf8.Valid(input) {
		return nil, errors.New("report must be valid UTF-8")
	}
	if bytes.HasPrefix(input, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(input, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if len(input) == 0 {
		return nil, errors.New("empty report")
	}
	// Canonical reports emitted by Render always end with a newline.
	if input[len(input)-1] != '\n' {
		return nil, errors.New("missing trailing newline")
	}
	for _, line := range bytes.Split(input, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if err := validateCanonical(string(input)); err != nil {
		return nil, err
	}

	// Return a copy to prevent caller mutation.
	return append([]byte(nil), input...), nil
}

var sectionOrder = []string{"META", "INPUTS", "RESULT", "EVIDENCE", "EXCLUSIONS", "CRYPTO"}

func validateCanonical(doc string) error {
	lines := strings.Split(doc, "\n")
	if len(lines) < 3 {
		return errors.New("report too short")
	}
	if lines[0] != Preamble {
		return errors.New("missing report preamble")
	}
	if lines[len(lines)-1] != "" {
		return errors.New("missing trailing newline")
	}
	if lines[len(lines)-2] != Postamble {
		return errors.New("missing report postamble")
	}

	i := 1
	for _, sec := range sectionOrder {
		if i >= len(lines)-2 {
			return fmt.Errorf("missing section %q", sec)
		}
		if lines[i] != sec {
			return fmt.Errorf("sections missing or out of order (expected %q got %q)", sec, lines[i])
		}
		i++
		start := i
		for i < len(lines)-2 && lines[i] != "" {
			i++
		}
		if i >= len(lines)-2 {
			return fmt.Errorf("missing blank line after section %q", sec)
		}
		if err := validateSection(sec, lines[start:i]); err != nil {
			return err
		}
		i++
	}

	if i != len(lines)-2 {
		return errors.New("unexpected content before postamble")
	}
	return nil
}

func validateSection(section string, body []string) error {
	switch section {
	case "META":
		return validateKeyed(section, body, []string{"Resolver-ID", "Spec", "Version"})
	case "INPUTS":
		return validateInputs(body)
	case "RESULT":
		return validateKeyed(section, body, []string{"Distrust", "Project-ID", "State", "Trust"})
	case "EVIDENCE":
		return validateEvidence(body)
	case "EXCLUSIONS":
		return validateExclusions(body)
	case "CRYPTO":
		return validateCrypto(body)
	default:
		return fmt.Errorf("unknown section %q", section)
	}
}

func validateSortedStrict(lines []string) error {
	seen := make(map[string]bool)
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l == "" {
			return errors.New("empty line inside section")
		}
		if seen[l] {
			return errors.New("duplicate line")
		}
		seen[l] = true
		if i > 0 && !(lines[i-1] < lines[i]) {
			return errors.New("lines not sorted lexicographically")
		}
	}
	return nil
}

func validateKVLine(line string) (string, string, error) {
	if !strings.Contains(line, ": ") {
		return "", "", errors.New("invalid key-value formatting")
	}
	k, v, _ := strings.Cut(line, ": ")
	if k == "" {
		return "", "", errors.New("empty key")
	}
	if v == "" {
		return "", "", errors.New("empty value")
	}
	return k, v, nil
}

// validateKeyed checks a sorted key-value section that must contain every
// required key exactly once.
func validateKeyed(section string, body []string, required []string) error {
	if err := validateSortedStrict(body); err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}
	need := make(map[string]bool, len(required))
	for _, k := range required {
		need[k] = false
	}
	for _, l := range body {
		k, _, err := validateKVLine(l)
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		if _, ok := need[k]; ok {
			need[k] = true
		}
	}
	for _, k := range required {
		if !need[k] {
			return fmt.Errorf("%s: missing %s", section, k)
		}
	}
	return nil
}

func validateInputs(body []string) error {
	if len(body) < 2 {
		return errors.New("INPUTS: missing Trust-Policy-CID or Root-ID")
	}
	if !strings.HasPrefix(body[0], "Trust-Policy-CID: ") {
		return errors.New("INPUTS: first line must be Trust-Policy-CID")
	}
	if _, _, err := validateKVLine(body[0]); err != nil {
		return errors.New("INPUTS: invalid Trust-Policy-CID")
	}
	if !strings.HasPrefix(body[1], "Root-ID: ") {
		return errors.New("INPUTS: second line must be Root-ID")
	}
	if _, _, err := validateKVLine(body[1]); err != nil {
		return errors.New("INPUTS: invalid Root-ID")
	}
	var cids []string
	for i := 2; i < len(body); i++ {
		if !strings.HasPrefix(body[i], "Proof-CID: ") {
			return errors.New("INPUTS: unexpected line")
		}
		_, v, err := validateKVLine(body[i])
		if err != nil {
			return errors.New("INPUTS: invalid Proof-CID")
		}
		cids = append(cids, v)
	}
	for i := 1; i < len(cids); i++ {
		if cids[i-1] > cids[i] {
			return errors.New("INPUTS: Proof-CID not sorted")
		}
	}
	return nil
}

func validateEvidence(body []string) error {
	fields := []struct {
		key  string
		vals map[string]bool
	}{
		{"Issuer-Key", nil},
		{"Distance", nil},
		{"Proof-CID", nil},
		{"Trust", levelValues},
		{"Distrust", levelValues},
		{"Tombstone", boolValues},
	}
	i := 0
	lastDistance, lastIssuer := -1, ""
	for i < len(body) {
		var issuer string
		var distance int
		for _, f := range fields {
			if i >= len(body) || !strings.HasPrefix(body[i], f.key+": ") {
				return fmt.Errorf("EVIDENCE: expected %s", f.key)
			}
			_, v, err := validateKVLine(body[i])
			if err != nil {
				return fmt.Errorf("EVIDENCE: %w", err)
			}
			if f.vals != nil && !f.vals[v] {
				return fmt.Errorf("EVIDENCE: invalid %s %q", f.key, v)
			}
			switch f.key {
			case "Issuer-Key":
				issuer = v
			case "Distance":
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return fmt.Errorf("EVIDENCE: invalid Distance %q", v)
				}
				distance = n
			}
			i++
		}
		if distance < lastDistance || (distance == lastDistance && issuer <= lastIssuer) {
			return errors.New("EVIDENCE: records not sorted by distance then issuer")
		}
		lastDistance, lastIssuer = distance, issuer
	}
	return nil
}

var levelValues = map[string]bool{"none": true, "low": true, "medium": true, "high": true}
var boolValues = map[string]bool{"true": true, "false": true}

var exclusionStatuses = map[string]bool{
	"InvalidSignature": true,
	"UnknownIdentity":  true,
	"KeyRevoked":       true,
}

func validateExclusions(body []string) error {
	type record struct {
		cid    string
		status string
	}
	var recs []record
	i := 0
	for i < len(body) {
		cid := ""
		if strings.HasPrefix(body[i], "Proof-CID: ") {
			_, v, err := validateKVLine(body[i])
			if err != nil {
				return fmt.Errorf("EXCLUSIONS: %w", err)
			}
			cid = v
			i++
		}
		if i >= len(body) || !strings.HasPrefix(body[i], "Status: ") {
			return errors.New("EXCLUSIONS: expected Status")
		}
		_, status, err := validateKVLine(body[i])
		if err != nil {
			return fmt.Errorf("EXCLUSIONS: %w", err)
		}
		if !exclusionStatuses[status] {
			return fmt.Errorf("EXCLUSIONS: invalid Status %q", status)
		}
		recs = append(recs, record{cid: cid, status: status})
		i++
	}
	for i := 1; i < len(recs); i++ {
		p, c := recs[i-1], recs[i]
		if p.cid == c.cid {
			if p.status > c.status {
				return errors.New("EXCLUSIONS: not sorted")
			}
			continue
		}
		if p.cid > c.cid {
			return errors.New("EXCLUSIONS: not sorted")
		}
	}
	return nil
}

func validateCrypto(body []string) error {
	if len(body) == 0 {
		return nil
	}
	return validateKeyed("CRYPTO", body, []string{"Hash-Alg", "Resolver-Key", "Signature", "Signature-Alg"})
}
