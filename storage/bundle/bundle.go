// Package bundle moves proof collections between stores as a single
// deterministic TAR archive: the same set of CIDs always produces the same
// bytes, so bundles themselves can be content-addressed, mirrored over dumb
// transports, and diffed.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/storage"
)

// FormatVersion is the index.json schema version.
const FormatVersion = 1

// All archive entries carry the epoch timestamp; real mtimes would leak into
// the bundle bytes and break determinism.
var zeroTime = time.Unix(0, 0).UTC()

// ExportOptions controls what goes into a bundle beyond the proof objects.
type ExportOptions struct {
	// Labels attaches optional name-to-CID metadata to the index. Labels are
	// advisory; Import ignores them.
	Labels map[string]cid.Cid
	// IncludeIndex adds an index.json entry describing the bundle.
	IncludeIndex bool
}

// Export writes the objects behind ids from cas into a deterministic TAR
// bundle: duplicates collapse, entries sort by CID, headers are normalized,
// and every object is re-verified against its CID before it is written. Proof
// entries record their parsed kind in the index; other canonical documents
// are carried as kind "blob".
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	byCID := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		byCID[id.String()] = id
	}
	order := make([]string, 0, len(byCID))
	for s := range byCID {
		order = append(order, s)
	}
	sort.Strings(order)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	entries := make([]indexEntry, 0, len(order))
	for _, s := range order {
		id := byCID[s]
		data, err := cas.Get(id)
		if err != nil {
			return fail(err)
		}
		got, err := cidutil.CIDv1RawSHA256CID(data)
		if err != nil {
			return fail(err)
		}
		if got != id {
			return fail(storage.ErrCIDMismatch)
		}

		kind := "blob"
		if p, err := proof.Parse(data); err == nil {
			kind = string(p.Type)
		}

		if err := writeEntry(tw, "proofs/"+s, data); err != nil {
			return fail(err)
		}
		entries = append(entries, indexEntry{CID: s, Kind: kind, Size: len(data)})
	}

	if opts.IncludeIndex {
		idx, err := buildIndex(entries, opts.Labels)
		if err != nil {
			return fail(err)
		}
		if err := writeEntry(tw, "index.json", idx); err != nil {
			return fail(err)
		}
	}

	return tw.Close()
}

// ImportOptions controls how Import treats entries it does not recognize.
type ImportOptions struct {
	// IgnoreUnknown skips unrecognized entries instead of failing the import.
	// The default is fail-closed.
	IgnoreUnknown bool
}

// Import reads a bundle and stores every proof entry into cas, fail-closed:
// an unrecognized entry aborts the import. Use ImportWithOptions to relax.
func Import(r io.Reader, cas storage.CAS) error {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r into cas. Each entry's bytes must
// hash to the CID in its filename, and the destination store must agree on
// the address; anything else aborts.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Advisory metadata, not re-imported.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		cidStr, ok := strings.CutPrefix(name, "proofs/")
		if !ok {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cid.Decode(cidStr)
		if err != nil || !id.Defined() {
			return storage.ErrInvalidCID
		}
		if _, dup := seen[cidStr]; dup {
			return fmt.Errorf("bundle: duplicate proof entry: %s", cidStr)
		}
		seen[cidStr] = struct{}{}

		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		got, err := cidutil.CIDv1RawSHA256CID(data)
		if err != nil {
			return err
		}
		if got != id {
			return storage.ErrCIDMismatch
		}

		stored, err := cas.Put(data)
		if err != nil {
			return err
		}
		if stored != id {
			return storage.ErrCIDMismatch
		}
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Proofs    []indexEntry `json:"proofs"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	CID  string `json:"cid"`
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func buildIndex(entries []indexEntry, labels map[string]cid.Cid) ([]byte, error) {
	idx := indexJSON{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "sha2-256",
		Proofs:    entries,
	}

	if len(labels) > 0 {
		names := make([]string, 0, len(labels))
		for name := range labels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if name == "" {
				return nil, fmt.Errorf("bundle: empty label key")
			}
			id := labels[name]
			if !id.Defined() {
				return nil, storage.ErrInvalidCID
			}
			idx.Labels = append(idx.Labels, indexLabel{Name: name, CID: id.String()})
		}
	}

	// Structs and pre-sorted slices only, so encoding/json is deterministic.
	out, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  zeroTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

// cleanTarPath normalizes an entry path and rejects anything that could step
// outside the bundle namespace. Empty means reject.
func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
