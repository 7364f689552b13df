package storage_test

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"revtrust.dev/revtrust/keys"
	"revtrust.dev/revtrust/proof"
	"revtrust.dev/revtrust/storage"
	"revtrust.dev/revtrust/storage/testkit"
)

func TestMemCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return testkit.NewMemCAS()
	})
}

func TestMultiCAS_OrderedFallback(t *testing.T) {
	first := testkit.NewMemCAS()
	second := testkit.NewMemCAS()
	payload := []byte("only in second")
	id, err := second.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}
	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatal("fallback returned wrong bytes")
	}
	if !m.Has(id) {
		t.Fatal("Has must consult all adapters")
	}

	// Put writes only to the first adapter.
	id2, err := m.Put([]byte("new object"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !first.Has(id2) {
		t.Fatal("Put must write to the first adapter")
	}
	if second.Has(id2) {
		t.Fatal("Put must not write to later adapters")
	}
}

func TestMultiCAS_EmptyRejectsPut(t *testing.T) {
	m := storage.MultiCAS{}
	if _, err := m.Put([]byte("x")); err == nil {
		t.Fatal("expected error for empty MultiCAS")
	}
}

func TestReplicatingCAS_PutAll(t *testing.T) {
	a := testkit.NewMemCAS()
	b := testkit.NewMemCAS()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "a", CAS: a},
		{Name: "b", CAS: b},
	}}

	payload := []byte("replicated")
	id, perBackend, err := r.PutAll(payload)
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if len(perBackend) != 2 {
		t.Fatalf("expected 2 backend CIDs, got %d", len(perBackend))
	}
	if perBackend["a"] != id || perBackend["b"] != id {
		t.Fatalf("backend CIDs diverge: %+v", perBackend)
	}
	if !a.Has(id) || !b.Has(id) {
		t.Fatal("both backends must hold the object")
	}
}

func TestReplicatingCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "primary", CAS: testkit.NewMemCAS()},
			{Name: "replica", CAS: testkit.NewMemCAS()},
		}}
	})
}

func TestReplicatingCAS_PutReachesEveryBackend(t *testing.T) {
	primary := testkit.NewMemCAS()
	replica := testkit.NewMemCAS()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "primary", CAS: primary},
		{Name: "replica", CAS: replica},
	}}

	id, err := r.Put([]byte("served and replicated"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !primary.Has(id) || !replica.Has(id) {
		t.Fatal("Put must write through to every backend")
	}

	// Reads survive losing the primary copy.
	only, err := replica.Get(id)
	if err != nil {
		t.Fatalf("replica Get: %v", err)
	}
	solo := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "primary", CAS: testkit.NewMemCAS()},
		{Name: "replica", CAS: replica},
	}}
	got, err := solo.Get(id)
	if err != nil {
		t.Fatalf("fallback Get: %v", err)
	}
	if string(got) != string(only) {
		t.Fatal("fallback returned wrong bytes")
	}
}

func newSigner(t *testing.T, seedByte byte) *keys.Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	s, err := keys.NewEd25519Signer(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func signedReview(t *testing.T, seedByte byte) []byte {
	t.Helper()
	s := newSigner(t, seedByte)
	raw, err := s.SignReview(&proof.Review{
		Date:          time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Reviewer:      proof.Identity{ID: s.IssuerKey(), URL: "https://proofs.example.com/r"},
		Project:       proof.Project{ID: "example.com/widget", Digest: "bafkreib-d"},
		Thoroughness:  proof.LevelMedium,
		Understanding: proof.LevelMedium,
		Trust:         proof.LevelHigh,
		Distrust:      proof.LevelNone,
	})
	if err != nil {
		t.Fatalf("SignReview: %v", err)
	}
	return raw
}

func TestProofStore_PutGetRoundTrip(t *testing.T) {
	ps := storage.NewProofStore(testkit.NewMemCAS())
	raw := signedReview(t, 0x61)

	cidStr, err := ps.PutProof(raw)
	if err != nil {
		t.Fatalf("PutProof: %v", err)
	}
	wantCID, _ := proof.CID(raw)
	if cidStr != wantCID {
		t.Fatalf("CID: got %s want %s", cidStr, wantCID)
	}
	if !ps.HasProof(cidStr) {
		t.Fatal("HasProof false after Put")
	}

	p, err := ps.GetProof(cidStr)
	if err != nil {
		t.Fatalf("GetProof: %v", err)
	}
	if p.CID() != cidStr {
		t.Fatal("retrieved proof CID mismatch")
	}
}

func TestProofStore_RejectsNonProofBytes(t *testing.T) {
	ps := storage.NewProofStore(testkit.NewMemCAS())
	if _, err := ps.PutProof([]byte("not a proof")); err == nil {
		t.Fatal("expected rejection of non-proof bytes")
	}
}

func TestProofStore_GetRejectsBadCID(t *testing.T) {
	ps := storage.NewProofStore(testkit.NewMemCAS())
	if _, err := ps.GetProof("not-a-cid"); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("expected ErrInvalidCID, got %v", err)
	}
	if ps.HasProof("not-a-cid") {
		t.Fatal("HasProof must be false for invalid CID strings")
	}
}

func TestProofStore_AllProofsSkipsForeignObjects(t *testing.T) {
	cas := testkit.NewMemCAS()
	ps := storage.NewProofStore(cas)

	raw1 := signedReview(t, 0x62)
	raw2 := signedReview(t, 0x63)
	if _, err := ps.PutProof(raw1); err != nil {
		t.Fatalf("PutProof 1: %v", err)
	}
	if _, err := ps.PutProof(raw2); err != nil {
		t.Fatalf("PutProof 2: %v", err)
	}
	// Verdict reports and other blobs can share the CAS; enumeration must
	// skip them.
	if _, err := cas.Put([]byte("some verdict report bytes")); err != nil {
		t.Fatalf("Put blob: %v", err)
	}

	all, err := ps.AllProofs()
	if err != nil {
		t.Fatalf("AllProofs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 proofs, got %d", len(all))
	}
}

func TestIsNotFound(t *testing.T) {
	if !storage.IsNotFound(storage.ErrNotFound) {
		t.Fatal("ErrNotFound must be IsNotFound")
	}
	if storage.IsNotFound(storage.ErrImmutable) {
		t.Fatal("ErrImmutable must not be IsNotFound")
	}
}
