package report

import (
	"errors"
	"fmt"
	"strings"
)

// SupersedesVerdictCID returns the CID referenced by META:
// Supersedes-Verdict-CID.
func SupersedesVerdictCID(reportBytes []byte) (string, bool, error) {
	v, ok, err := singleFieldFromSection(reportBytes, "META", "Supersedes-Verdict-CID")
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return v, true, nil
}

// ValidateSupersession enforces minimal report supersession semantics.
//
// Report B supersedes report A when:
// - B's META includes Supersedes-Verdict-CID equal to CID(A)
// - B and A name the same Project-ID
// - B and A use the same Resolver-ID
// - B and A use the same Root-ID and Trust-Policy-CID
func ValidateSupersession(newReport, oldReport []byte) error {
	oldCID, err := CID(oldReport)
	if err != nil {
		return err
	}
	newCID, err := CID(newReport)
	if err != nil {
		return err
	}
	if newCID == oldCID {
		return errors.New("supersession invalid: new report bytes identical to old")
	}

	sup, ok, err := SupersedesVerdictCID(newReport)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("supersession invalid: new report does not declare Supersedes-Verdict-CID")
	}
	if sup != oldCID {
		return fmt.Errorf("supersession invalid: Supersedes-Verdict-CID=%q does not match old CID=%q", sup, oldCID)
	}

	pairs := []struct {
		section string
		key     string
	}{
		{"RESULT", "Project-ID"},
		{"META", "Resolver-ID"},
		{"INPUTS", "Root-ID"},
		{"INPUTS", "Trust-Policy-CID"},
	}
	for _, p := range pairs {
		oldVal, err := requiredFieldFromSection(oldReport, p.section, p.key)
		if err != nil {
			return err
		}
		newVal, err := requiredFieldFromSection(newReport, p.section, p.key)
		if err != nil {
			return err
		}
		if oldVal != newVal {
			return fmt.Errorf("supersession invalid: %s mismatch old=%q new=%q", p.key, oldVal, newVal)
		}
	}
	return nil
}

func sectionLines(reportBytes []byte, section string) ([]string, error) {
	lines := strings.Split(string(reportBytes), "\n")
	idx := -1
	for i, l := range lines {
		if l == section {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing section %q", section)
	}
	var out []string
	for i := idx + 1; i < len(lines); i++ {
		if lines[i] == "" {
			break
		}
		out = append(out, lines[i])
	}
	return out, nil
}

func fieldValues(lines []string, key string) []string {
	prefix := key + ": "
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, strings.TrimPrefix(l, prefix))
		}
	}
	return out
}

func requiredFieldFromSection(reportBytes []byte, section, key string) (string, error) {
	v, ok, err := singleFieldFromSection(reportBytes, section, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing %s: %s", section, key)
	}
	return v, nil
}

func singleFieldFromSection(reportBytes []byte, section, key string) (string, bool, error) {
	lines, err := sectionLines(reportBytes, section)
	if err != nil {
		return "", false, err
	}
	vals := fieldValues(lines, key)
	if len(vals) == 0 {
		return "", false, nil
	}
	if len(vals) > 1 {
		return "", false, fmt.Errorf("multiple %s: %s", section, key)
	}
	if vals[0] == "" {
		return "", false, fmt.Errorf("empty %s: %s", section, key)
	}
	return vals[0], true, nil
}
