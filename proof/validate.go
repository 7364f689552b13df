package proof

import (
	"strings"
	"time"
)

// validateReview checks every field of r against its value domain.
// Violations are Kind=Encoding errors: the proof is rejected before any
// canonical bytes are produced.
func validateReview(r *Review) error {
	if r == nil {
		return newError(KindEncoding, "CRP-ENC-001", "nil review")
	}
	if err := validateDate(r.Date); err != nil {
		return err
	}
	if err := validateIdentity(r.Reviewer, true); err != nil {
		return err
	}
	if err := validateProject(r.Project); err != nil {
		return err
	}
	if err := validateLevels(r.Thoroughness, r.Understanding, r.Trust, r.Distrust); err != nil {
		return err
	}
	if err := validateComment(r.Comment); err != nil {
		return err
	}
	seen := make(map[FileEntry]bool, len(r.Files))
	for _, f := range r.Files {
		if err := validateFilePath(f.Path); err != nil {
			return err
		}
		if f.Digest != "" && strings.ContainsAny(f.Digest, " \t\n\r") {
			return newError(KindEncoding, "CRP-ENC-044", "malformed file digest")
		}
		if seen[f] {
			return newError(KindEncoding, "CRP-ENC-045", "duplicate file entry "+quote(f.Path))
		}
		seen[f] = true
	}
	return nil
}

// validateTrust checks every field of t against its value domain.
func validateTrust(t *Trust) error {
	if t == nil {
		return newError(KindEncoding, "CRP-ENC-002", "nil trust proof")
	}
	if err := validateDate(t.Date); err != nil {
		return err
	}
	if err := validateIdentity(t.Reviewer, true); err != nil {
		return err
	}
	if err := validateIdentity(t.Trusted, false); err != nil {
		return err
	}
	if t.Reviewer.ID == t.Trusted.ID {
		return newError(KindEncoding, "CRP-ENC-025", "self-trust proof")
	}
	if err := validateLevels(t.Thoroughness, t.Understanding, t.Trust, t.Distrust); err != nil {
		return err
	}
	return validateComment(t.Comment)
}

func validateDate(t time.Time) error {
	if t.IsZero() {
		return newError(KindEncoding, "CRP-ENC-011", "missing date")
	}
	return nil
}

func validateIdentity(id Identity, urlRequired bool) error {
	if id.ID == "" {
		return newError(KindEncoding, "CRP-ENC-020", "missing identity id")
	}
	alg, rest, ok := strings.Cut(id.ID, ":")
	if !ok || alg == "" || rest == "" {
		return newError(KindEncoding, "CRP-ENC-021", "identity id must have the form alg:base64")
	}
	if strings.ContainsAny(id.ID, " \t\n\r") {
		return newError(KindEncoding, "CRP-ENC-022", "malformed identity id")
	}
	if urlRequired && id.URL == "" {
		return newError(KindEncoding, "CRP-ENC-023", "missing identity url")
	}
	if id.URL != "" && strings.ContainsAny(id.URL, " \t\n\r") {
		return newError(KindEncoding, "CRP-ENC-024", "malformed identity url")
	}
	return nil
}

func validateProject(p Project) error {
	if p.ID == "" {
		return newError(KindEncoding, "CRP-ENC-030", "missing project id")
	}
	if strings.ContainsAny(p.ID, "\n\r") || strings.TrimSpace(p.ID) != p.ID {
		return newError(KindEncoding, "CRP-ENC-031", "malformed project id")
	}
	if p.Digest == "" {
		return newError(KindEncoding, "CRP-ENC-032", "missing project digest")
	}
	if strings.ContainsAny(p.Digest, " \t\n\r") {
		return newError(KindEncoding, "CRP-ENC-033", "malformed project digest")
	}
	if strings.ContainsAny(p.Revision, " \t\n\r") {
		return newError(KindEncoding, "CRP-ENC-034", "malformed project revision")
	}
	if strings.ContainsAny(p.Source, " \t\n\r") {
		return newError(KindEncoding, "CRP-ENC-035", "malformed project source")
	}
	return nil
}

func validateLevels(levels ...Level) error {
	for _, l := range levels {
		if !l.Valid() {
			return newError(KindEncoding, "CRP-ENC-012", "ordinal level out of range")
		}
	}
	return nil
}

func validateComment(c string) error {
	if strings.ContainsAny(c, "\n\r") {
		return newError(KindEncoding, "CRP-ENC-013", "comment must be a single line")
	}
	if c != strings.TrimSpace(c) {
		return newError(KindEncoding, "CRP-ENC-014", "comment has leading or trailing whitespace")
	}
	return nil
}

func validateFilePath(p string) error {
	if p == "" {
		return newError(KindEncoding, "CRP-ENC-040", "empty file path")
	}
	if strings.ContainsAny(p, "\n\r") || strings.HasPrefix(p, " ") || strings.HasSuffix(p, " ") {
		return newError(KindEncoding, "CRP-ENC-041", "malformed file path")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return newError(KindEncoding, "CRP-ENC-042", "file path must be relative with forward slashes")
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." || part == ".." {
			return newError(KindEncoding, "CRP-ENC-043", "file path must not contain empty, dot, or dot-dot segments")
		}
	}
	return nil
}
