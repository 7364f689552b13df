// Package policy implements parsing and rendering of resolution policy
// documents.
//
// A policy pins the traversal parameters a verdict was computed under, so the
// verdict can name the exact policy by CID and anyone can re-run the
// resolution with the same inputs.
package policy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/proof"
)

const (
	Preamble  = "-----BEGIN REVTRUST POLICY-----"
	Postamble = "-----END REVTRUST POLICY-----"
)

type Policy struct {
	Meta map[string]string

	// MaxDistance cuts off web-of-trust traversal.
	MaxDistance int
	// DistanceCost maps a trust level to its per-hop cost.
	DistanceCost map[proof.Level]int
}

// Default returns the standard policy: high trust costs 1, medium 2, low 5,
// cutoff at 10.
func Default() *Policy {
	return &Policy{
		Meta: map[string]string{
			"Spec":    "revtrust-policy-1",
			"Version": "1",
		},
		MaxDistance: 10,
		DistanceCost: map[proof.Level]int{
			proof.LevelHigh:   1,
			proof.LevelMedium: 2,
			proof.LevelLow:    5,
		},
	}
}

// Parse parses a policy document from bytes.
func Parse(data []byte) (*Policy, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	if !bytes.HasPrefix(data, []byte(Preamble)) {
		return nil, errors.New("missing policy preamble")
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte(Postamble)) {
		return nil, errors.New("missing policy postamble")
	}

	sections := map[string]bool{"META": true, "PARAMS": true}
	reader := bufio.NewReader(bytes.NewReader(data))
	var currSection string
	p := &Policy{
		Meta:         make(map[string]string),
		DistanceCost: make(map[proof.Level]int),
	}
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err.Error() != "EOF" {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if sections[line] {
			currSection = line
			if err != nil {
				break
			}
			continue
		}
		if currSection == "META" && strings.Contains(line, ": ") {
			kv := strings.SplitN(line, ": ", 2)
			p.Meta[kv[0]] = kv[1]
		}
		if currSection == "PARAMS" && strings.Contains(line, ": ") {
			kv := strings.SplitN(line, ": ", 2)
			if perr := p.applyParam(kv[0], kv[1]); perr != nil {
				return nil, perr
			}
		}
		if err != nil {
			break
		}
	}

	if p.Meta["Spec"] != "revtrust-policy-1" {
		return nil, fmt.Errorf("unsupported policy Spec %q", p.Meta["Spec"])
	}
	if p.Meta["Version"] != "1" {
		return nil, fmt.Errorf("unsupported policy Version %q", p.Meta["Version"])
	}
	if p.MaxDistance == 0 {
		return nil, errors.New("policy missing Max-Distance")
	}
	if len(p.DistanceCost) == 0 {
		return nil, errors.New("policy missing Distance-Cost entries")
	}
	return p, nil
}

func (p *Policy) applyParam(key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid %s %q", key, value)
	}
	switch key {
	case "Max-Distance":
		p.MaxDistance = n
	case "Distance-Cost-High":
		p.DistanceCost[proof.LevelHigh] = n
	case "Distance-Cost-Medium":
		p.DistanceCost[proof.LevelMedium] = n
	case "Distance-Cost-Low":
		p.DistanceCost[proof.LevelLow] = n
	default:
		return fmt.Errorf("unknown PARAMS key %q", key)
	}
	return nil
}

// Render produces canonical policy bytes: fixed section order, sorted lines,
// trailing newline. Render then Parse is the identity on the parameters.
func (p *Policy) Render() []byte {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	sb.WriteString("META\n")
	metaLines := make([]string, 0, len(p.Meta))
	for k, v := range p.Meta {
		metaLines = append(metaLines, k+": "+v)
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("PARAMS\n")
	paramLines := []string{
		"Max-Distance: " + strconv.Itoa(p.MaxDistance),
	}
	for level, cost := range p.DistanceCost {
		var key string
		switch level {
		case proof.LevelHigh:
			key = "Distance-Cost-High"
		case proof.LevelMedium:
			key = "Distance-Cost-Medium"
		case proof.LevelLow:
			key = "Distance-Cost-Low"
		default:
			continue
		}
		paramLines = append(paramLines, key+": "+strconv.Itoa(cost))
	}
	sort.Strings(paramLines)
	for _, l := range paramLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	return []byte(sb.String())
}

// PolicyCID returns a deterministic identifier for a policy document: an
// IPFS-compatible CIDv1 (raw + sha2-256) of its canonical bytes.
func PolicyCID(policyBytes []byte) string {
	return cidutil.CIDv1RawSHA256(policyBytes)
}

// CID returns the CID of the policy's canonical rendering.
func (p *Policy) CID() string {
	return PolicyCID(p.Render())
}
