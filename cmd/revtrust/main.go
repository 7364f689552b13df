package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"revtrust.dev/revtrust/cidutil"
	"revtrust.dev/revtrust/compliance"
	"revtrust.dev/revtrust/digest"
	"revtrust.dev/revtrust/keys"
	"revtrust.dev/revtrust/model"
	"revtrust.dev/revtrust/policy"
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/report"
	"revtrust.dev/revtrust/resolver"
	"revtrust.dev/revtrust/storage"
	"revtrust.dev/revtrust/storage/bundle"
	"revtrust.dev/revtrust/storage/grpcproof"
	"revtrust.dev/revtrust/storage/localfs"
	"revtrust.dev/revtrust/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "digest":
		return cmdDigest(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "proof-cid":
		return cmdProofCID(args[1:], out, errOut)
	case "resolve":
		return cmdResolve(args[1:], out, errOut)
	case "review":
		return cmdReview(args[1:], out, errOut)
	case "store":
		return cmdStore(args[1:], out, errOut)
	case "trust":
		return cmdTrust(args[1:], out, errOut)
	case "verdict":
		return cmdVerdict(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "revtrust: code review proofs, tree digests, and web-of-trust resolution")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  revtrust digest <dir>")
	fmt.Fprintln(w, "  revtrust key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  revtrust key derive --from <name> --sub <sub> [--force]")
	fmt.Fprintln(w, "  revtrust key list")
	fmt.Fprintln(w, "  revtrust key export --name <name> [--sub <sub>]")
	fmt.Fprintln(w, "  revtrust review --project-id <id> --source <url> --revision <rev> (--digest <CID> | --dir <path>) [--with-files] [--trust L] [--distrust L] [--thoroughness L] [--understanding L] [--comment <text>] --url <idurl> (--seed-hex <64hex> | --signer <name> [--signer-sub <sub>] | --key-file <path>) [--date <RFC3339>]")
	fmt.Fprintln(w, "  revtrust trust --trusted <issuer-key> [--trusted-url <url>] [--trust L] [--distrust L] [--thoroughness L] [--understanding L] [--comment <text>] --url <idurl> (--seed-hex ... | --signer ... | --key-file ...) [--date <RFC3339>]")
	fmt.Fprintln(w, "  revtrust verify <proof-file> [--revoked <issuer-key>=<RFC3339> ...]")
	fmt.Fprintln(w, "  revtrust resolve --root <issuer-key> --project <id> (--proof <file> ... | --store <dir>) [--policy <file>] [--mode permissive|strict] [--resolver-id <id>] [--resolved-at <RFC3339>] [--supersedes-verdict <CID>] [--json]")
	fmt.Fprintln(w, "  revtrust proof-cid <file>")
	fmt.Fprintln(w, "  revtrust store add (--dir <dir> | --remote <addr>) <proof-file> ...")
	fmt.Fprintln(w, "  revtrust store list --dir <dir>")
	fmt.Fprintln(w, "  revtrust store export --dir <dir> [--out <file>]")
	fmt.Fprintln(w, "  revtrust store import --dir <dir> <bundle-file>")
	fmt.Fprintln(w, "  revtrust verdict cid <file>")
	fmt.Fprintln(w, "  revtrust verdict validate-supersession --new <file> --old <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - levels are one of: none, low, medium, high")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored under ~/.revtrust/keys/<name> (0600 private key files)")
	fmt.Fprintln(w, "  - review/trust write canonical proof bytes to stdout (no trailing newline)")
	fmt.Fprintln(w, "  - resolve prints a canonical verdict report to stdout")
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdDigest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var listFiles bool
	fs.BoolVar(&listFiles, "files", false, "Also print per-file digests")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: revtrust digest [--files] <dir>")
		return 2
	}

	tree, err := digest.DirTree(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "digest: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, tree.Root)
	if listFiles {
		files := tree.Files()
		paths := make([]string, 0, len(files))
		for p := range files {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(out, "%s  %s\n", files[p], p)
		}
	}
	return 0
}

func cmdProofCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("proof-cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: revtrust proof-cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	cidStr, err := proof.CID(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid proof: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, cidStr)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "revtrust key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  revtrust key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  revtrust key derive --from <name> --sub <sub> [--force]")
	fmt.Fprintln(w, "  revtrust key list")
	fmt.Fprintln(w, "  revtrust key export --name <name> [--sub <sub>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under ~/.revtrust/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	issuerKey, rootPath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", issuerKey)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var sub string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&sub, "sub", "", "Sub-identity name (e.g. work, oss)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if sub == "" {
		fmt.Fprintln(errOut, "missing --sub")
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	issuerKey, subPath, err := ks.DeriveSubKey(from, sub, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive sub key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created sub key: %s\n", issuerKey)
	fmt.Fprintf(out, "Stored at: %s\n", subPath)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var sub string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&sub, "sub", "", "Optional sub-identity (if set, exports derived sub key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	issuerKey, err := ks.ExportKey(name, sub)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, issuerKey)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Identifier)
		for _, s := range e.Subs {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	return 0
}

// signerFlags are the shared signing flags for review and trust.
type signerFlags struct {
	seedHex   string
	signer    string
	signerSub string
	keyFile   string
	url       string
	date      string
}

func (sf *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&sf.signer, "signer", "", "Use a stored key by name (from 'revtrust key init')")
	fs.StringVar(&sf.signerSub, "signer-sub", "", "When using --signer, optionally use a derived sub key")
	fs.StringVar(&sf.keyFile, "key-file", "", "Path to a seed file (hex) created by 'revtrust key init/derive'")
	fs.StringVar(&sf.url, "url", "", "Identity URL recorded in the REVIEWER section (where your proofs are published)")
	fs.StringVar(&sf.date, "date", "", "Proof date as RFC3339 (defaults to now UTC)")
}

func (sf *signerFlags) load(errOut io.Writer) (*keys.Signer, time.Time, int) {
	if sf.url == "" {
		fmt.Fprintln(errOut, "missing --url")
		return nil, time.Time{}, 2
	}
	if sf.seedHex == "" && sf.signer == "" && sf.keyFile == "" {
		fmt.Fprintln(errOut, "missing signer: use --seed-hex, --signer, or --key-file")
		return nil, time.Time{}, 2
	}
	if sf.seedHex != "" && (sf.signer != "" || sf.keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --seed-hex cannot be combined with --signer or --key-file")
		return nil, time.Time{}, 2
	}
	if sf.signer != "" && sf.keyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --key-file")
		return nil, time.Time{}, 2
	}

	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, time.Time{}, 1
	}
	seed, err := ks.LoadSeed(sf.seedHex, sf.signer, sf.signerSub, sf.keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, time.Time{}, 2
	}
	signer, err := keys.NewEd25519Signer(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return nil, time.Time{}, 1
	}

	date := time.Now().UTC().Truncate(time.Second)
	if sf.date != "" {
		t, perr := time.Parse(time.RFC3339, sf.date)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid --date (expected RFC3339): %v\n", perr)
			return nil, time.Time{}, 2
		}
		date = t
	}
	return signer, date, 0
}

func parseLevelFlag(name, value string, errOut io.Writer) (proof.Level, bool) {
	l, err := proof.ParseLevel(value)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --%s: %v\n", name, err)
		return proof.LevelNone, false
	}
	return l, true
}

func cmdReview(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var projectID string
	var source string
	var revision string
	var digestCID string
	var dir string
	var withFiles bool
	var trustS, distrustS, thoroughnessS, understandingS string
	var comment string
	var sf signerFlags

	fs.StringVar(&projectID, "project-id", "", "Project identifier")
	fs.StringVar(&source, "source", "", "Project source URL")
	fs.StringVar(&revision, "revision", "", "Reviewed revision")
	fs.StringVar(&digestCID, "digest", "", "Project tree digest (CIDv1)")
	fs.StringVar(&dir, "dir", "", "Compute the tree digest from a checkout directory")
	fs.BoolVar(&withFiles, "with-files", false, "Embed per-file digests from --dir in the FILES section")
	fs.StringVar(&trustS, "trust", "none", "Trust level")
	fs.StringVar(&distrustS, "distrust", "none", "Distrust level")
	fs.StringVar(&thoroughnessS, "thoroughness", "low", "Thoroughness level")
	fs.StringVar(&understandingS, "understanding", "low", "Understanding level")
	fs.StringVar(&comment, "comment", "", "Optional free-form comment")
	sf.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if projectID == "" {
		fmt.Fprintln(errOut, "missing --project-id")
		return 2
	}
	if source == "" {
		fmt.Fprintln(errOut, "missing --source")
		return 2
	}
	if revision == "" {
		fmt.Fprintln(errOut, "missing --revision")
		return 2
	}
	if digestCID == "" && dir == "" {
		fmt.Fprintln(errOut, "missing digest: use --digest or --dir")
		return 2
	}
	if digestCID != "" && dir != "" {
		fmt.Fprintln(errOut, "conflicting flags: --digest cannot be combined with --dir")
		return 2
	}
	if withFiles && dir == "" {
		fmt.Fprintln(errOut, "--with-files requires --dir")
		return 2
	}

	var files []proof.FileEntry
	if dir != "" {
		tree, err := digest.DirTree(context.Background(), dir)
		if err != nil {
			fmt.Fprintf(errOut, "digest: %v\n", err)
			return 1
		}
		digestCID = tree.Root
		if withFiles {
			for path, d := range tree.Files() {
				files = append(files, proof.FileEntry{Path: path, Digest: d})
			}
		}
	}

	trust, ok := parseLevelFlag("trust", trustS, errOut)
	if !ok {
		return 2
	}
	distrust, ok := parseLevelFlag("distrust", distrustS, errOut)
	if !ok {
		return 2
	}
	thoroughness, ok := parseLevelFlag("thoroughness", thoroughnessS, errOut)
	if !ok {
		return 2
	}
	understanding, ok := parseLevelFlag("understanding", understandingS, errOut)
	if !ok {
		return 2
	}

	signer, date, code := sf.load(errOut)
	if code != 0 {
		return code
	}
	fmt.Fprintf(errOut, "Issuer-Key: %s\n", signer.IssuerKey())

	r := &proof.Review{
		Date:          date,
		Reviewer:      proof.Identity{ID: signer.IssuerKey(), URL: sf.url},
		Project:       proof.Project{ID: projectID, Source: source, Revision: revision, Digest: digestCID},
		Trust:         trust,
		Distrust:      distrust,
		Thoroughness:  thoroughness,
		Understanding: understanding,
		Comment:       comment,
		Files:         files,
	}
	raw, err := signer.SignReview(r)
	if err != nil {
		fmt.Fprintf(errOut, "sign review: %v\n", err)
		return 1
	}
	p, err := proof.Parse(raw)
	if err != nil {
		fmt.Fprintf(errOut, "parse final: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Proof-CID: %s\n", p.CID())
	_, _ = out.Write(raw)
	return 0
}

func cmdTrust(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("trust", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var trustedID string
	var trustedURL string
	var trustS, distrustS, thoroughnessS, understandingS string
	var comment string
	var sf signerFlags

	fs.StringVar(&trustedID, "trusted", "", "Issuer key of the trusted identity")
	fs.StringVar(&trustedURL, "trusted-url", "", "Optional URL of the trusted identity")
	fs.StringVar(&trustS, "trust", "none", "Trust level")
	fs.StringVar(&distrustS, "distrust", "none", "Distrust level")
	fs.StringVar(&thoroughnessS, "thoroughness", "low", "Thoroughness level")
	fs.StringVar(&understandingS, "understanding", "low", "Understanding level")
	fs.StringVar(&comment, "comment", "", "Optional free-form comment")
	sf.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if trustedID == "" {
		fmt.Fprintln(errOut, "missing --trusted")
		return 2
	}

	trust, ok := parseLevelFlag("trust", trustS, errOut)
	if !ok {
		return 2
	}
	distrust, ok := parseLevelFlag("distrust", distrustS, errOut)
	if !ok {
		return 2
	}
	thoroughness, ok := parseLevelFlag("thoroughness", thoroughnessS, errOut)
	if !ok {
		return 2
	}
	understanding, ok := parseLevelFlag("understanding", understandingS, errOut)
	if !ok {
		return 2
	}

	signer, date, code := sf.load(errOut)
	if code != 0 {
		return code
	}
	fmt.Fprintf(errOut, "Issuer-Key: %s\n", signer.IssuerKey())

	t := &proof.Trust{
		Date:          date,
		Reviewer:      proof.Identity{ID: signer.IssuerKey(), URL: sf.url},
		Trusted:       proof.Identity{ID: trustedID, URL: trustedURL},
		Trust:         trust,
		Distrust:      distrust,
		Thoroughness:  thoroughness,
		Understanding: understanding,
		Comment:       comment,
	}
	raw, err := signer.SignTrust(t)
	if err != nil {
		fmt.Fprintf(errOut, "sign trust: %v\n", err)
		return 1
	}
	p, err := proof.Parse(raw)
	if err != nil {
		fmt.Fprintf(errOut, "parse final: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Proof-CID: %s\n", p.CID())
	_, _ = out.Write(raw)
	return 0
}

// parseRevocations parses repeated --revoked issuer-key=RFC3339 flags.
func parseRevocations(items []string) (verify.Revocations, error) {
	if len(items) == 0 {
		return nil, nil
	}
	rev := make(verify.Revocations, len(items))
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		if !ok {
			return nil, fmt.Errorf("expected <issuer-key>=<RFC3339>, got %q", it)
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid cutover date %q: %v", v, err)
		}
		rev[k] = t
	}
	return rev, nil
}

// selfKeys treats each identity's id as its published key. Identities are
// self-certifying (the id IS the issuer key), so this is the offline default;
// a networked deployment substitutes a fetching KeySource.
var selfKeys = verify.KeySourceFunc(func(id, url string) (string, error) {
	return id, nil
})

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var revokedKV stringList
	fs.Var(&revokedKV, "revoked", "Revoked issuer key as <issuer-key>=<RFC3339 cutover> (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: revtrust verify [--revoked k=date ...] <proof-file>")
		return 2
	}

	revocations, err := parseRevocations(revokedKV)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --revoked: %v\n", err)
		return 2
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read proof: %v\n", err)
		return 1
	}

	v := &verify.Verifier{Keys: selfKeys, Revocations: revocations}
	outcome := v.Verify(b)
	fmt.Fprintf(out, "Status: %s\n", outcome.Status)
	if outcome.CID != "" {
		fmt.Fprintf(out, "Proof-CID: %s\n", outcome.CID)
	}
	if outcome.Reason != "" {
		fmt.Fprintf(out, "Reason: %s\n", outcome.Reason)
	}
	if outcome.Status != verify.StatusValid {
		return 1
	}
	return 0
}

func cmdStore(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: revtrust store <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: add, list, export, import")
		return 2
	}
	switch args[0] {
	case "add":
		return cmdStoreAdd(args[1:], out, errOut)
	case "list":
		return cmdStoreList(args[1:], out, errOut)
	case "export":
		return cmdStoreExport(args[1:], out, errOut)
	case "import":
		return cmdStoreImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown store subcommand: %s\n", args[0])
		return 2
	}
}

func openProofStore(dir string, errOut io.Writer) (*storage.ProofStore, int) {
	if dir == "" {
		fmt.Fprintln(errOut, "missing --dir")
		return nil, 2
	}
	cas, err := localfs.New(dir)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return nil, 1
	}
	return storage.NewProofStore(cas), 0
}

func cmdStoreAdd(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store add", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	var remote string
	fs.StringVar(&dir, "dir", "", "Proof store directory")
	fs.StringVar(&remote, "remote", "", "revtrust-proofd address (alternative to --dir)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: revtrust store add (--dir <dir> | --remote <addr>) <proof-file> ...")
		return 2
	}
	if dir != "" && remote != "" {
		fmt.Fprintln(errOut, "use --dir or --remote, not both")
		return 2
	}

	var ps *storage.ProofStore
	if remote != "" {
		client, err := grpcproof.Dial(remote, grpcproof.DialOptions{Timeout: 30 * time.Second})
		if err != nil {
			fmt.Fprintf(errOut, "dial %s: %v\n", remote, err)
			return 1
		}
		defer client.Close()
		ps = storage.NewProofStore(client)
	} else {
		var code int
		ps, code = openProofStore(dir, errOut)
		if code != 0 {
			return code
		}
	}
	for _, path := range fs.Args() {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", path, err)
			return 1
		}
		cidStr, err := ps.PutProof(b)
		if err != nil {
			fmt.Fprintf(errOut, "store %s: %v\n", path, err)
			return 1
		}
		fmt.Fprintf(out, "%s  %s\n", cidStr, filepath.Base(path))
	}
	return 0
}

func cmdStoreList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "dir", "", "Proof store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ps, code := openProofStore(dir, errOut)
	if code != 0 {
		return code
	}
	raws, err := ps.AllProofs()
	if err != nil {
		fmt.Fprintf(errOut, "list: %v\n", err)
		return 1
	}
	for _, raw := range raws {
		p, err := proof.Parse(raw)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", p.CID(), p.Type, p.Date().UTC().Format(proof.DateLayout))
	}
	return 0
}

func cmdStoreExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	var outPath string
	fs.StringVar(&dir, "dir", "", "Proof store directory")
	fs.StringVar(&outPath, "out", "", "Bundle file to write (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dir == "" {
		fmt.Fprintln(errOut, "missing --dir")
		return 2
	}
	cas, err := localfs.New(dir)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	raws, err := storage.NewProofStore(cas).AllProofs()
	if err != nil {
		fmt.Fprintf(errOut, "list: %v\n", err)
		return 1
	}
	ids := make([]cid.Cid, 0, len(raws))
	for _, raw := range raws {
		id, derr := cidutil.CIDv1RawSHA256CID(raw)
		if derr != nil {
			fmt.Fprintf(errOut, "cid: %v\n", derr)
			return 1
		}
		ids = append(ids, id)
	}

	w := out
	if outPath != "" {
		f, cerr := os.Create(outPath)
		if cerr != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", outPath, cerr)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := bundle.Export(w, cas, ids, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if outPath != "" {
		fmt.Fprintf(errOut, "Exported %d proofs to %s\n", len(ids), outPath)
	}
	return 0
}

func cmdStoreImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("store import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "dir", "", "Proof store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dir == "" {
		fmt.Fprintln(errOut, "missing --dir")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: revtrust store import --dir <dir> <bundle-file>")
		return 2
	}
	cas, err := localfs.New(dir)
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return 1
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open bundle: %v\n", err)
		return 1
	}
	defer f.Close()
	if err := bundle.Import(f, cas); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdResolve(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var rootID string
	var projectID string
	var proofPaths stringList
	var storeDir string
	var policyPath string
	var mode string
	var resolverID string
	var resolvedAt string
	var supersedesVerdict string
	var revokedKV stringList
	var jsonOut bool

	fs.StringVar(&rootID, "root", "", "Root identity issuer key")
	fs.StringVar(&projectID, "project", "", "Project identifier")
	fs.Var(&proofPaths, "proof", "Proof file (repeatable)")
	fs.StringVar(&storeDir, "store", "", "Proof store directory (alternative to --proof)")
	fs.StringVar(&policyPath, "policy", "", "Policy file (defaults to the standard policy)")
	fs.StringVar(&mode, "mode", "permissive", "Compliance mode: permissive or strict")
	fs.StringVar(&resolverID, "resolver-id", "revtrust-resolver-reference", "Resolver-ID recorded in the report")
	fs.StringVar(&resolvedAt, "resolved-at", "", "Optional RFC3339 timestamp for META Resolved-At (omit for deterministic output)")
	fs.StringVar(&supersedesVerdict, "supersedes-verdict", "", "Optional CID of a prior report this report supersedes")
	fs.Var(&revokedKV, "revoked", "Revoked issuer key as <issuer-key>=<RFC3339 cutover> (repeatable)")
	fs.BoolVar(&jsonOut, "json", false, "Emit the verdict and report as JSON instead of the report document")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if rootID == "" {
		fmt.Fprintln(errOut, "missing --root")
		return 2
	}
	if projectID == "" {
		fmt.Fprintln(errOut, "missing --project")
		return 2
	}
	if len(proofPaths) == 0 && storeDir == "" {
		fmt.Fprintln(errOut, "missing proofs: use --proof or --store")
		return 2
	}

	var resolvedAtTime time.Time
	if resolvedAt != "" {
		t, perr := time.Parse(time.RFC3339, resolvedAt)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid --resolved-at (expected RFC3339): %v\n", perr)
			return 2
		}
		resolvedAtTime = t
	}

	var complianceMode compliance.ComplianceMode
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "permissive":
		complianceMode = compliance.Permissive
	case "strict":
		complianceMode = compliance.Strict
	default:
		fmt.Fprintln(errOut, "invalid --mode (expected permissive or strict)")
		return 2
	}

	revocations, err := parseRevocations(revokedKV)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --revoked: %v\n", err)
		return 2
	}

	var policyBytes []byte
	if policyPath != "" {
		policyBytes, err = os.ReadFile(policyPath)
		if err != nil {
			fmt.Fprintf(errOut, "read policy: %v\n", err)
			return 1
		}
	} else {
		policyBytes = policy.Default().Render()
	}
	pol, err := policy.Parse(policyBytes)
	if err != nil {
		fmt.Fprintf(errOut, "invalid policy: %v\n", err)
		return 2
	}

	var raws [][]byte
	for _, p := range proofPaths {
		b, rerr := os.ReadFile(p)
		if rerr != nil {
			fmt.Fprintf(errOut, "read proof %s: %v\n", p, rerr)
			return 1
		}
		raws = append(raws, b)
	}
	if storeDir != "" {
		ps, code := openProofStore(storeDir, errOut)
		if code != 0 {
			return code
		}
		stored, serr := ps.AllProofs()
		if serr != nil {
			fmt.Fprintf(errOut, "store: %v\n", serr)
			return 1
		}
		raws = append(raws, stored...)
	}

	proofCIDs := make([]string, 0, len(raws))
	for _, b := range raws {
		if cidStr, perr := proof.CID(b); perr == nil {
			proofCIDs = append(proofCIDs, cidStr)
		} else {
			proofCIDs = append(proofCIDs, cidutil.CIDv1RawSHA256(b))
		}
	}

	v := &verify.Verifier{Keys: selfKeys, Revocations: revocations}
	params := resolver.Params{MaxDistance: pol.MaxDistance, DistanceCost: pol.DistanceCost}
	res, err := resolver.ResolveBytes(raws, v, rootID, projectID, params)
	if err != nil {
		fmt.Fprintf(errOut, "resolve: %v\n", err)
		return 1
	}
	if complianceMode == compliance.Strict && len(res.Exclusions) > 0 {
		fmt.Fprintf(errOut, "resolve: %v\n", resolver.ErrStrictExclusions)
		return 1
	}

	policyCID := policy.PolicyCID(policyBytes)
	reportBytes := report.Render(res, rootID, policyCID, proofCIDs, report.RenderOptions{
		ResolverID:           resolverID,
		ResolvedAt:           resolvedAtTime,
		SupersedesVerdictCID: supersedesVerdict,
	})

	if jsonOut {
		reportCID, cerr := report.CID(reportBytes)
		if cerr != nil {
			fmt.Fprintf(errOut, "report cid: %v\n", cerr)
			return 1
		}
		sortedCIDs := append([]string(nil), proofCIDs...)
		sort.Strings(sortedCIDs)
		resp := model.ResolveResponse{
			Verdict:        model.VerdictFromResult(res),
			TrustPolicyCID: policyCID,
			ProofCIDs:      sortedCIDs,
			Report:         model.ReportDocument{Bytes: reportBytes, CID: reportCID},
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(errOut, "encode json: %v\n", err)
			return 1
		}
		return 0
	}

	_, _ = out.Write(reportBytes)
	return 0
}

func cmdVerdict(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: revtrust verdict <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: cid, validate-supersession")
		return 2
	}
	switch args[0] {
	case "cid":
		fs := flag.NewFlagSet("verdict cid", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: revtrust verdict cid <file>")
			return 2
		}
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read report: %v\n", err)
			return 1
		}
		cidStr, err := report.CID(b)
		if err != nil {
			fmt.Fprintf(errOut, "invalid report: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, cidStr)
		return 0
	case "validate-supersession":
		fs := flag.NewFlagSet("verdict validate-supersession", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var newPath string
		var oldPath string
		fs.StringVar(&newPath, "new", "", "New report file")
		fs.StringVar(&oldPath, "old", "", "Old report file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if newPath == "" || oldPath == "" {
			fmt.Fprintln(errOut, "usage: revtrust verdict validate-supersession --new <file> --old <file>")
			return 2
		}
		newBytes, err := os.ReadFile(newPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --new: %v\n", err)
			return 1
		}
		oldBytes, err := os.ReadFile(oldPath)
		if err != nil {
			fmt.Fprintf(errOut, "read --old: %v\n", err)
			return 1
		}
		if err := report.ValidateSupersession(newBytes, oldBytes); err != nil {
			fmt.Fprintf(errOut, "invalid: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK")
		return 0
	default:
		fmt.Fprintf(errOut, "unknown verdict subcommand: %s\n", args[0])
		return 2
	}
}
