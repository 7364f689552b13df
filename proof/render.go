package proof

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the single canonical timestamp format: RFC3339, UTC, seconds
// precision. Rendering always converts to UTC first, so the offset is "Z".
const DateLayout = "2006-01-02T15:04:05Z07:00"

func formatDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(DateLayout)
}

// RenderReview produces canonical review-proof bytes.
//
// Rendered bytes are always canonical (section order, key order, spacing, and
// blank lines). Field domains are validated first; violations are
// Kind=Encoding errors and nothing is rendered.
func RenderReview(r *Review, c Crypto) ([]byte, error) {
	body, err := ReviewBody(r)
	if err != nil {
		return nil, err
	}
	return appendCrypto(body, c, ReviewPostamble)
}

// RenderTrust produces canonical trust-proof bytes.
func RenderTrust(t *Trust, c Crypto) ([]byte, error) {
	body, err := TrustBody(t)
	if err != nil {
		return nil, err
	}
	return appendCrypto(body, c, TrustPostamble)
}

// ReviewBody renders the signature scope of a review proof: preamble through
// the blank line preceding CRYPTO. Signing happens over exactly these bytes.
func ReviewBody(r *Review) ([]byte, error) {
	if err := validateReview(r); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(ReviewPreamble)
	sb.WriteString("\n")

	if err := writeSection(&sb, "META", map[string]string{
		"Date":    formatDate(r.Date),
		"Kind":    string(TypeReview),
		"Spec":    SpecTag,
		"Version": "1",
	}); err != nil {
		return nil, err
	}
	if err := writeSection(&sb, "REVIEWER", map[string]string{
		"Id":  r.Reviewer.ID,
		"Url": r.Reviewer.URL,
	}); err != nil {
		return nil, err
	}

	project := map[string]string{
		"Digest": r.Project.Digest,
		"Id":     r.Project.ID,
	}
	if r.Project.Revision != "" {
		project["Revision"] = r.Project.Revision
	}
	if r.Project.Source != "" {
		project["Source"] = r.Project.Source
	}
	if err := writeSection(&sb, "PROJECT", project); err != nil {
		return nil, err
	}

	if err := writeSection(&sb, "REVIEW", reviewPairs(r.Thoroughness, r.Understanding, r.Trust, r.Distrust, r.Comment)); err != nil {
		return nil, err
	}

	sb.WriteString("FILES\n")
	files := append([]FileEntry(nil), r.Files...)
	sort.Slice(files, func(i, j int) bool {
		if files[i].Path == files[j].Path {
			return files[i].Digest < files[j].Digest
		}
		return files[i].Path < files[j].Path
	})
	for _, f := range files {
		if err := writePair(&sb, "File", f.Path); err != nil {
			return nil, err
		}
		if f.Digest != "" {
			if err := writePair(&sb, "File-Digest", f.Digest); err != nil {
				return nil, err
			}
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// TrustBody renders the signature scope of a trust proof.
func TrustBody(t *Trust) ([]byte, error) {
	if err := validateTrust(t); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(TrustPreamble)
	sb.WriteString("\n")

	if err := writeSection(&sb, "META", map[string]string{
		"Date":    formatDate(t.Date),
		"Kind":    string(TypeTrust),
		"Spec":    SpecTag,
		"Version": "1",
	}); err != nil {
		return nil, err
	}
	if err := writeSection(&sb, "REVIEWER", map[string]string{
		"Id":  t.Reviewer.ID,
		"Url": t.Reviewer.URL,
	}); err != nil {
		return nil, err
	}

	trusted := map[string]string{"Id": t.Trusted.ID}
	if t.Trusted.URL != "" {
		trusted["Url"] = t.Trusted.URL
	}
	if err := writeSection(&sb, "TRUSTED", trusted); err != nil {
		return nil, err
	}

	if err := writeSection(&sb, "REVIEW", reviewPairs(t.Thoroughness, t.Understanding, t.Trust, t.Distrust, t.Comment)); err != nil {
		return nil, err
	}

	return []byte(sb.String()), nil
}

func reviewPairs(thoroughness, understanding, trust, distrust Level, comment string) map[string]string {
	pairs := map[string]string{
		"Distrust":      distrust.String(),
		"Thoroughness":  thoroughness.String(),
		"Trust":         trust.String(),
		"Understanding": understanding.String(),
	}
	if comment != "" {
		pairs["Comment"] = comment
	}
	return pairs
}

func appendCrypto(body []byte, c Crypto, postamble string) ([]byte, error) {
	var sb strings.Builder
	sb.Write(body)
	if err := writeSectionNoBlank(&sb, "CRYPTO", map[string]string{
		"Hash-Alg":      c.HashAlg,
		"Issuer-Key":    c.IssuerKey,
		"Signature":     c.Signature,
		"Signature-Alg": c.SignatureAlg,
	}); err != nil {
		return nil, err
	}
	sb.WriteString(postamble)
	return []byte(sb.String()), nil
}

func writeSection(sb *strings.Builder, name string, pairs map[string]string) error {
	if err := writeSectionNoBlank(sb, name, pairs); err != nil {
		return err
	}
	sb.WriteString("\n")
	return nil
}

func writeSectionNoBlank(sb *strings.Builder, name string, pairs map[string]string) error {
	sb.WriteString(name)
	sb.WriteString("\n")
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writePair(sb, k, pairs[k]); err != nil {
			return err
		}
	}
	return nil
}

func writePair(sb *strings.Builder, key, value string) error {
	if key == "" {
		return newError(KindRender, "CRP-REN-001", "empty key")
	}
	if !isASCII(key) {
		return newError(KindRender, "CRP-REN-002", "non-ASCII key")
	}
	if value == "" {
		return newError(KindRender, "CRP-REN-003", "empty value for "+key)
	}
	if strings.HasPrefix(value, " ") {
		return newError(KindRender, "CRP-REN-004", "value must not start with a space")
	}
	if strings.Contains(value, "\n") || strings.Contains(value, "\r") {
		return newError(KindRender, "CRP-REN-005", "value must not contain newlines")
	}
	if strings.HasSuffix(value, " ") || strings.HasSuffix(value, "\t") {
		return newError(KindRender, "CRP-REN-006", "trailing whitespace forbidden")
	}
	sb.WriteString(key)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
