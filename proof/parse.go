package proof

import (
	"bytes"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var reviewSectionOrder = []string{"META", "REVIEWER", "PROJECT", "REVIEW", "FILES", "CRYPTO"}
var trustSectionOrder = []string{"META", "REVIEWER", "TRUSTED", "REVIEW", "CRYPTO"}

// Parse parses one proof document and enforces the v1 canonical serialization
// rules. Non-canonical inputs are rejected: a parsed proof always re-renders
// to the exact input bytes.
func Parse(data []byte) (*Proof, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("proof must be valid UTF-8")
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return nil, errors.New("trailing newline not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, errors.New("CR line endings not allowed")
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, errors.New("BOM not allowed")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, errors.New("trailing whitespace forbidden")
		}
	}

	var typ Type
	var preamble, postamble string
	var order []string
	switch {
	case bytes.HasPrefix(data, []byte(ReviewPreamble)):
		typ, preamble, postamble, order = TypeReview, ReviewPreamble, ReviewPostamble, reviewSectionOrder
	case bytes.HasPrefix(data, []byte(TrustPreamble)):
		typ, preamble, postamble, order = TypeTrust, TrustPreamble, TrustPostamble, trustSectionOrder
	default:
		return nil, errors.New("missing proof preamble")
	}
	if !bytes.HasSuffix(data, []byte(postamble)) {
		return nil, errors.New("missing proof postamble")
	}

	lines := strings.Split(string(data), "\n")
	if lines[0] != preamble {
		return nil, errors.New("proof preamble must be on its own line")
	}
	if lines[len(lines)-1] != postamble {
		return nil, errors.New("proof postamble must be on its own line")
	}

	sections, err := scanSections(lines[1:len(lines)-1], order)
	if err != nil {
		return nil, err
	}

	p := &Proof{Type: typ}
	switch typ {
	case TypeReview:
		p.Review, err = interpretReview(sections)
	case TypeTrust:
		p.Trust, err = interpretTrust(sections)
	}
	if err != nil {
		return nil, err
	}
	p.Crypto, err = interpretCrypto(sections[len(sections)-1])
	if err != nil {
		return nil, err
	}

	// Enforce full canonical byte identity by re-rendering and comparing.
	// This makes Parse() strictly reject any non-canonical inputs.
	var canonical []byte
	switch typ {
	case TypeReview:
		canonical, err = RenderReview(p.Review, p.Crypto)
	case TypeTrust:
		canonical, err = RenderTrust(p.Trust, p.Crypto)
	}
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data, canonical) {
		return nil, errors.New("non-canonical proof")
	}

	signed, err := signedScope(canonical)
	if err != nil {
		return nil, err
	}
	p.Raw = canonical
	p.Signed = signed
	return p, nil
}

// ParseAll parses a stream of concatenated proof documents, optionally
// separated by blank lines. Each block must itself be canonical.
func ParseAll(data []byte) ([]*Proof, error) {
	var out []*Proof
	rest := data
	for {
		for len(rest) > 0 && rest[0] == '\n' {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return out, nil
		}
		end, err := blockEnd(rest)
		if err != nil {
			return nil, err
		}
		p, err := Parse(rest[:end])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		rest = rest[end:]
		if len(rest) > 0 {
			if rest[0] != '\n' {
				return nil, errors.New("proofs must be separated by a newline")
			}
			rest = rest[1:]
		}
	}
}

func blockEnd(data []byte) (int, error) {
	for _, post := range []string{ReviewPostamble, TrustPostamble} {
		if i := bytes.Index(data, []byte("\n"+post)); i >= 0 {
			return i + 1 + len(post), nil
		}
	}
	return 0, errors.New("missing proof postamble")
}

// signedScope returns the canonical bytes covered by the signature: preamble
// through the blank line before CRYPTO, inclusive.
func signedScope(canonical []byte) ([]byte, error) {
	marker := []byte("\nCRYPTO\n")
	idx := bytes.Index(canonical, marker)
	if idx < 0 {
		return nil, errors.New("cannot determine signature scope")
	}
	return canonical[:idx+1], nil
}

type rawPair struct {
	key string
	val string
}

type rawSection struct {
	name  string
	pairs []rawPair
}

func scanSections(lines []string, order []string) ([]rawSection, error) {
	out := make([]rawSection, 0, len(order))
	idx := 0
	for si, name := range order {
		if idx >= len(lines) || lines[idx] != name {
			return nil, errors.New("sections missing or out of order")
		}
		idx++
		sec := rawSection{name: name}
		for idx < len(lines) && lines[idx] != "" {
			line := lines[idx]
			key, val, ok := strings.Cut(line, ": ")
			if !ok {
				return nil, errors.New("invalid key-value formatting")
			}
			if key == "" {
				return nil, errors.New("empty key")
			}
			if !isASCII(key) {
				return nil, errors.New("non-ASCII key")
			}
			if strings.HasPrefix(val, " ") {
				return nil, errors.New("value must not start with a space")
			}
			sec.pairs = append(sec.pairs, rawPair{key: key, val: val})
			idx++
		}
		out = append(out, sec)
		last := si == len(order)-1
		if last {
			if idx != len(lines) {
				return nil, errors.New("unexpected content after last section")
			}
		} else {
			if idx >= len(lines) || lines[idx] != "" {
				return nil, errors.New("missing blank line between sections")
			}
			idx++
			if idx < len(lines) && lines[idx] == "" {
				return nil, errors.New("multiple blank lines between sections not allowed")
			}
		}
	}
	return out, nil
}

// uniquePairs converts a section to a key-value map, rejecting duplicate keys
// and keys outside the allowed set. Key sortedness is enforced by the final
// re-render comparison.
func uniquePairs(sec rawSection, allowed map[string]bool) (map[string]string, error) {
	m := make(map[string]string, len(sec.pairs))
	for _, kv := range sec.pairs {
		if !allowed[kv.key] {
			return nil, errors.New("unknown key " + quote(kv.key) + " in section " + sec.name)
		}
		if _, exists := m[kv.key]; exists {
			return nil, errors.New("duplicate key in section " + sec.name)
		}
		m[kv.key] = kv.val
	}
	return m, nil
}

func interpretReview(sections []rawSection) (*Review, error) {
	meta, err := uniquePairs(sections[0], map[string]bool{"Date": true, "Kind": true, "Spec": true, "Version": true})
	if err != nil {
		return nil, err
	}
	if err := checkMeta(meta, TypeReview); err != nil {
		return nil, err
	}
	date, err := parseCanonicalDate(meta["Date"])
	if err != nil {
		return nil, err
	}

	reviewer, err := interpretIdentity(sections[1])
	if err != nil {
		return nil, err
	}

	project, err := uniquePairs(sections[2], map[string]bool{"Digest": true, "Id": true, "Revision": true, "Source": true})
	if err != nil {
		return nil, err
	}

	r := &Review{
		Date:     date,
		Reviewer: reviewer,
		Project: Project{
			ID:       project["Id"],
			Source:   project["Source"],
			Revision: project["Revision"],
			Digest:   project["Digest"],
		},
	}
	if err := interpretReviewSection(sections[3], &r.Thoroughness, &r.Understanding, &r.Trust, &r.Distrust, &r.Comment); err != nil {
		return nil, err
	}
	r.Files, err = interpretFiles(sections[4])
	if err != nil {
		return nil, err
	}
	return r, nil
}

func interpretTrust(sections []rawSection) (*Trust, error) {
	meta, err := uniquePairs(sections[0], map[string]bool{"Date": true, "Kind": true, "Spec": true, "Version": true})
	if err != nil {
		return nil, err
	}
	if err := checkMeta(meta, TypeTrust); err != nil {
		return nil, err
	}
	date, err := parseCanonicalDate(meta["Date"])
	if err != nil {
		return nil, err
	}

	reviewer, err := interpretIdentity(sections[1])
	if err != nil {
		return nil, err
	}
	trusted, err := uniquePairs(sections[2], map[string]bool{"Id": true, "Url": true})
	if err != nil {
		return nil, err
	}

	t := &Trust{
		Date:     date,
		Reviewer: reviewer,
		Trusted:  Identity{ID: trusted["Id"], URL: trusted["Url"]},
	}
	if err := interpretReviewSection(sections[3], &t.Thoroughness, &t.Understanding, &t.Trust, &t.Distrust, &t.Comment); err != nil {
		return nil, err
	}
	return t, nil
}

func interpretIdentity(sec rawSection) (Identity, error) {
	pairs, err := uniquePairs(sec, map[string]bool{"Id": true, "Url": true})
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: pairs["Id"], URL: pairs["Url"]}, nil
}

func interpretReviewSection(sec rawSection, thoroughness, understanding, trust, distrust *Level, comment *string) error {
	pairs, err := uniquePairs(sec, map[string]bool{
		"Comment": true, "Distrust": true, "Thoroughness": true, "Trust": true, "Understanding": true,
	})
	if err != nil {
		return err
	}
	for key, dst := range map[string]*Level{
		"Thoroughness":  thoroughness,
		"Understanding": understanding,
		"Trust":         trust,
		"Distrust":      distrust,
	} {
		v, ok := pairs[key]
		if !ok {
			return errors.New("missing REVIEW " + key)
		}
		l, err := ParseLevel(v)
		if err != nil {
			return err
		}
		*dst = l
	}
	*comment = pairs["Comment"]
	return nil
}

func interpretFiles(sec rawSection) ([]FileEntry, error) {
	var out []FileEntry
	for i := 0; i < len(sec.pairs); i++ {
		kv := sec.pairs[i]
		if kv.key != "File" {
			return nil, errors.New("FILES entries must start with File")
		}
		entry := FileEntry{Path: kv.val}
		if i+1 < len(sec.pairs) && sec.pairs[i+1].key == "File-Digest" {
			entry.Digest = sec.pairs[i+1].val
			i++
		}
		out = append(out, entry)
	}
	return out, nil
}

func interpretCrypto(sec rawSection) (Crypto, error) {
	pairs, err := uniquePairs(sec, map[string]bool{
		"Hash-Alg": true, "Issuer-Key": true, "Signature": true, "Signature-Alg": true,
	})
	if err != nil {
		return Crypto{}, err
	}
	for _, key := range []string{"Hash-Alg", "Issuer-Key", "Signature", "Signature-Alg"} {
		if pairs[key] == "" {
			return Crypto{}, errors.New("missing CRYPTO " + key)
		}
	}
	return Crypto{
		IssuerKey:    pairs["Issuer-Key"],
		SignatureAlg: pairs["Signature-Alg"],
		HashAlg:      pairs["Hash-Alg"],
		Signature:    pairs["Signature"],
	}, nil
}

func checkMeta(meta map[string]string, typ Type) error {
	if meta["Kind"] != string(typ) {
		return errors.New("META Kind does not match proof armor")
	}
	if meta["Spec"] != SpecTag {
		return errors.New("unsupported META Spec")
	}
	if meta["Version"] != "1" {
		return errors.New("unsupported META Version")
	}
	return nil
}

// parseCanonicalDate accepts exactly the canonical timestamp form: RFC3339,
// UTC offset "Z", seconds precision, no fractional seconds.
func parseCanonicalDate(v string) (time.Time, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, wrapError(KindEncoding, "CRP-ENC-015", "invalid date "+quote(v), err)
	}
	if formatDate(t) != v {
		return time.Time{}, newError(KindEncoding, "CRP-ENC-016", "date not in canonical UTC form")
	}
	return t.UTC(), nil
}
