// Package digest computes recursive content fingerprints of project trees.
//
// The digest is content-only: two checkouts with identical bytes produce the
// identical digest regardless of enumeration order, modification times, or
// the revision-control system in use. Digests are CIDv1 strings
// (raw + blake2b-256), so they double as content addresses.
package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"revtrust.dev/revtrust/cidutil"
)

// Entry type tags. Symbolic links are hashed by tag plus target, never
// followed, so cyclic link structures terminate without cycle detection.
const (
	tagFile    = "f"
	tagDir     = "d"
	tagSymlink = "l"
	tagSpecial = "s"
)

// Tree is the digest of one project checkout.
type Tree struct {
	// Root is the project digest: the directory digest of the tree root.
	Root string

	files map[string]string
}

// FileDigest returns the digest of one regular file by slash-separated
// relative path.
func (t *Tree) FileDigest(path string) (string, bool) {
	d, ok := t.files[path]
	return d, ok
}

// Files returns all per-file digests keyed by slash-separated relative path.
// The returned map is a copy.
func (t *Tree) Files() map[string]string {
	out := make(map[string]string, len(t.files))
	for k, v := range t.files {
		out[k] = v
	}
	return out
}

// CrossCheck verifies a claimed per-file digest against the computed tree.
func (t *Tree) CrossCheck(path, want string) error {
	got, ok := t.files[path]
	if !ok {
		return fmt.Errorf("digest: no such file in tree: %s", path)
	}
	if got != want {
		return fmt.Errorf("digest: file %s: digest mismatch", path)
	}
	return nil
}

// Bytes returns the digest of a raw byte sequence. File digests in a Tree are
// exactly Bytes(content).
func Bytes(b []byte) string {
	return cidutil.CIDv1RawBlake2b256(b)
}

// Engine computes tree digests. The zero value is ready to use.
type Engine struct {
	// Concurrency bounds parallel file hashing; 0 means GOMAXPROCS.
	Concurrency int
}

// DirTree digests the directory tree rooted at root.
//
// Any unreadable path aborts the whole computation: the underlying I/O error
// propagates and no partial digest is ever produced.
func (e *Engine) DirTree(ctx context.Context, root string) (*Tree, error) {
	n, err := enumerate(root)
	if err != nil {
		return nil, err
	}

	t := &Tree{files: make(map[string]string)}
	if err := e.hashFiles(ctx, root, n, t); err != nil {
		return nil, err
	}

	rootDigest, err := reduce(n, t)
	if err != nil {
		return nil, err
	}
	t.Root = rootDigest
	return t, nil
}

// DirTree digests root with a default engine.
func DirTree(ctx context.Context, root string) (*Tree, error) {
	var e Engine
	return e.DirTree(ctx, root)
}

type node struct {
	relPath  string // slash-separated, "" for the root
	name     string
	tag      string
	target   string // symlink target
	children []*node

	digest string
}

func enumerate(root string) (*node, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("digest: not a directory: %s", root)
	}
	n := &node{tag: tagDir}
	if err := enumerateDir(root, n); err != nil {
		return nil, err
	}
	return n, nil
}

func enumerateDir(dir string, parent *node) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		rel := name
		if parent.relPath != "" {
			rel = parent.relPath + "/" + name
		}
		child := &node{relPath: rel, name: name}
		mode := entry.Type()
		switch {
		case mode.IsDir():
			child.tag = tagDir
			if err := enumerateDir(filepath.Join(dir, name), child); err != nil {
				return err
			}
		case mode.IsRegular():
			child.tag = tagFile
		case mode&os.ModeSymlink != 0:
			child.tag = tagSymlink
			target, err := os.Readlink(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			child.target = target
		default:
			child.tag = tagSpecial
		}
		parent.children = append(parent.children, child)
	}
	return nil
}

// hashFiles digests all regular files in parallel. Per-subtree parallelism is
// safe: the directory reduction re-applies the canonical sort afterwards.
func (e *Engine) hashFiles(ctx context.Context, root string, n *node, t *Tree) error {
	limit := e.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	var walk func(n *node)
	walk = func(n *node) {
		for _, child := range n.children {
			child := child
			switch child.tag {
			case tagDir:
				walk(child)
			case tagFile:
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(child.relPath)))
					if err != nil {
						return err
					}
					d := Bytes(b)
					mu.Lock()
					child.digest = d
					t.files[child.relPath] = d
					mu.Unlock()
					return nil
				})
			}
		}
	}
	walk(n)
	return g.Wait()
}

// reduce computes directory digests bottom-up. Each directory digest is the
// digest of the sorted (name, tag, child digest) records of its immediate
// children; sorting makes the result independent of enumeration order.
func reduce(n *node, t *Tree) (string, error) {
	children := append([]*node(nil), n.children...)
	sort.Slice(children, func(i, j int) bool { return children[i].name < children[j].name })

	var sb strings.Builder
	for _, child := range children {
		var err error
		switch child.tag {
		case tagDir:
			child.digest, err = reduce(child, t)
			if err != nil {
				return "", err
			}
		case tagSymlink:
			child.digest = Bytes([]byte(tagSymlink + "\x00" + child.target))
		case tagSpecial:
			child.digest = Bytes([]byte(tagSpecial + "\x00"))
		}
		if child.digest == "" {
			return "", fmt.Errorf("digest: missing digest for %s", child.relPath)
		}
		sb.WriteString(child.name)
		sb.WriteString("\x00")
		sb.WriteString(child.tag)
		sb.WriteString("\x00")
		sb.WriteString(child.digest)
		sb.WriteString("\n")
	}
	return Bytes([]byte(sb.String())), nil
}
