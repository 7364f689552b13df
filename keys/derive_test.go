package keys

import (
	"bytes"
	"testing"
)

func TestDeriveSubSeed_Deterministic(t *testing.T) {
	root := testSeed(0x61)
	a, err := DeriveSubSeed(root, "laptop")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	b, err := DeriveSubSeed(root, "laptop")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("derivation not deterministic")
	}
}

func TestDeriveSubSeed_DistinctNames(t *testing.T) {
	root := testSeed(0x61)
	a, err := DeriveSubSeed(root, "laptop")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	b, err := DeriveSubSeed(root, "phone")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different names derived identical seeds")
	}
	if bytes.Equal(a, root) {
		t.Fatal("derived seed equals root seed")
	}
}

func TestDeriveSubSeed_DistinctRoots(t *testing.T) {
	a, err := DeriveSubSeed(testSeed(0x61), "laptop")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	b, err := DeriveSubSeed(testSeed(0x62), "laptop")
	if err != nil {
		t.Fatalf("DeriveSubSeed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different roots derived identical seeds")
	}
}

func TestDeriveSubSeed_Rejections(t *testing.T) {
	if _, err := DeriveSubSeed(testSeed(0x61)[:16], "laptop"); err == nil {
		t.Fatal("expected error for short root seed")
	}
	if _, err := DeriveSubSeed(testSeed(0x61), "bad name"); err == nil {
		t.Fatal("expected error for invalid sub name")
	}
}

func TestGenerateIssuerKeyFromSeed(t *testing.T) {
	a := GenerateIssuerKeyFromSeed(testSeed(0x63))
	b := GenerateIssuerKeyFromSeed(testSeed(0x63))
	if a != b {
		t.Fatal("issuer key not deterministic")
	}
	if a == GenerateIssuerKeyFromSeed(testSeed(0x64)) {
		t.Fatal("different seeds produced identical issuer keys")
	}
	if len(a) <= len("ed25519:") || a[:8] != "ed25519:" {
		t.Fatalf("unexpected issuer key format: %s", a)
	}
}
