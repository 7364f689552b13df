package digest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func mustDirTree(t *testing.T, root string) *Tree {
	t.Helper()
	tree, err := DirTree(context.Background(), root)
	if err != nil {
		t.Fatalf("DirTree: %v", err)
	}
	return tree
}

func TestDirTree_Deterministic(t *testing.T) {
	files := map[string]string{
		"go.mod":          "module example.com/widget\n",
		"main.go":         "package main\n",
		"internal/a.go":   "package internal\n",
		"internal/b.go":   "package internal\nvar B int\n",
		"docs/readme.txt": "hello\n",
	}
	t1 := mustDirTree(t, writeTree(t, files))
	t2 := mustDirTree(t, writeTree(t, files))
	if t1.Root != t2.Root {
		t.Fatalf("identical content produced different digests: %s vs %s", t1.Root, t2.Root)
	}
	if !strings.HasPrefix(t1.Root, "baf") {
		t.Errorf("expected CIDv1 digest, got %q", t1.Root)
	}
}

func TestDirTree_ContentChangesDigest(t *testing.T) {
	base := map[string]string{"a.txt": "one\n", "b.txt": "two\n"}
	t1 := mustDirTree(t, writeTree(t, base))

	changed := map[string]string{"a.txt": "one\n", "b.txt": "TWO\n"}
	t2 := mustDirTree(t, writeTree(t, changed))
	if t1.Root == t2.Root {
		t.Fatal("content change did not change digest")
	}
}

func TestDirTree_RenameChangesDigest(t *testing.T) {
	t1 := mustDirTree(t, writeTree(t, map[string]string{"a.txt": "same\n"}))
	t2 := mustDirTree(t, writeTree(t, map[string]string{"b.txt": "same\n"}))
	if t1.Root == t2.Root {
		t.Fatal("renaming a file must change the tree digest")
	}
}

func TestDirTree_MoveAcrossDirsChangesDigest(t *testing.T) {
	t1 := mustDirTree(t, writeTree(t, map[string]string{"x/a.txt": "same\n"}))
	t2 := mustDirTree(t, writeTree(t, map[string]string{"y/a.txt": "same\n"}))
	if t1.Root == t2.Root {
		t.Fatal("moving a file must change the tree digest")
	}
}

func TestDirTree_MetadataInsensitive(t *testing.T) {
	files := map[string]string{"a.txt": "payload\n"}
	root1 := writeTree(t, files)
	root2 := writeTree(t, files)

	old := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(root2, "a.txt"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chmod(filepath.Join(root2, "a.txt"), 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	t1 := mustDirTree(t, root1)
	t2 := mustDirTree(t, root2)
	if t1.Root != t2.Root {
		t.Fatal("mtime/mode changes must not affect the digest")
	}
}

func TestDirTree_SymlinkByTarget(t *testing.T) {
	root1 := writeTree(t, map[string]string{"real.txt": "x\n"})
	if err := os.Symlink("real.txt", filepath.Join(root1, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	root2 := writeTree(t, map[string]string{"real.txt": "x\n"})
	if err := os.Symlink("real.txt", filepath.Join(root2, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	t1 := mustDirTree(t, root1)
	t2 := mustDirTree(t, root2)
	if t1.Root != t2.Root {
		t.Fatal("identical symlinks produced different digests")
	}

	root3 := writeTree(t, map[string]string{"real.txt": "x\n", "other.txt": "x\n"})
	if err := os.Symlink("other.txt", filepath.Join(root3, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	t3 := mustDirTree(t, root3)
	if t3.Root == t1.Root {
		t.Fatal("different symlink target must change the digest")
	}
}

func TestDirTree_CyclicSymlinkTerminates(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "x\n"})
	if err := os.Symlink(".", filepath.Join(root, "self")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// Links are digested by target, never followed.
	tree := mustDirTree(t, root)
	if tree.Root == "" {
		t.Fatal("empty digest")
	}
}

func TestDirTree_PerFileDigests(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":     "alpha\n",
		"sub/b.txt": "beta\n",
	})
	tree := mustDirTree(t, root)

	want := Bytes([]byte("alpha\n"))
	got, ok := tree.FileDigest("a.txt")
	if !ok {
		t.Fatal("a.txt missing from tree")
	}
	if got != want {
		t.Fatalf("a.txt digest: got %s want %s", got, want)
	}
	if _, ok := tree.FileDigest("sub/b.txt"); !ok {
		t.Fatal("sub/b.txt missing from tree")
	}
	if len(tree.Files()) != 2 {
		t.Fatalf("expected 2 files, got %d", len(tree.Files()))
	}
}

func TestCrossCheck(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "alpha\n"})
	tree := mustDirTree(t, root)

	if err := tree.CrossCheck("a.txt", Bytes([]byte("alpha\n"))); err != nil {
		t.Fatalf("CrossCheck valid: %v", err)
	}
	if err := tree.CrossCheck("a.txt", Bytes([]byte("tampered\n"))); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := tree.CrossCheck("nope.txt", "whatever"); err == nil {
		t.Fatal("expected missing-file error")
	}
}

func TestDirTree_UnreadableAborts(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}
	root := writeTree(t, map[string]string{"a.txt": "x\n", "locked/b.txt": "y\n"})
	if err := os.Chmod(filepath.Join(root, "locked"), 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(filepath.Join(root, "locked"), 0o755)

	if _, err := DirTree(context.Background(), root); err == nil {
		t.Fatal("expected error for unreadable directory")
	}
}

func TestDirTree_NotADirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "x\n"})
	if _, err := DirTree(context.Background(), filepath.Join(root, "a.txt")); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestEngine_ConcurrencyIndependent(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".txt"] = strings.Repeat(name, 100)
	}
	root := writeTree(t, files)

	serial := Engine{Concurrency: 1}
	parallel := Engine{Concurrency: 8}
	t1, err := serial.DirTree(context.Background(), root)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	t2, err := parallel.DirTree(context.Background(), root)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if t1.Root != t2.Root {
		t.Fatal("digest depends on hashing concurrency")
	}
}
