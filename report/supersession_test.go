package report

import (
	"strings"
	"testing"

	"revtrust.dev/revtrust/proof"
)

func TestValidateSupersession_Valid(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	oldCID, err := CID(old)
	if err != nil {
		t.Fatalf("CID old: %v", err)
	}

	res := sampleResult()
	res.Verdict.Trust = proof.LevelMedium
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p2", "bafkreib-p1"}, RenderOptions{
		SupersedesVerdictCID: oldCID,
	})

	if err := ValidateSupersession(newer, old); err != nil {
		t.Fatalf("ValidateSupersession: %v", err)
	}
}

func TestValidateSupersession_MissingDeclaration(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	res := sampleResult()
	res.Verdict.Trust = proof.LevelMedium
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p1"}, RenderOptions{})

	if err := ValidateSupersession(newer, old); err == nil {
		t.Fatal("expected error without Supersedes-Verdict-CID")
	}
}

func TestValidateSupersession_WrongOldCID(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	res := sampleResult()
	res.Verdict.Trust = proof.LevelMedium
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p1"}, RenderOptions{
		SupersedesVerdictCID: "bafkreib-not-the-old-report",
	})

	if err := ValidateSupersession(newer, old); err == nil {
		t.Fatal("expected error for mismatched Supersedes-Verdict-CID")
	}
}

func TestValidateSupersession_SameBytes(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	if err := ValidateSupersession(old, old); err == nil {
		t.Fatal("a report cannot supersede itself")
	}
}

func TestValidateSupersession_CrossProjectRejected(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	oldCID, err := CID(old)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}

	res := sampleResult()
	res.Verdict.ProjectID = "example.com/other"
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p1"}, RenderOptions{
		SupersedesVerdictCID: oldCID,
	})

	if err := ValidateSupersession(newer, old); err == nil {
		t.Fatal("expected error for different Project-ID")
	}
}

func TestValidateSupersession_DifferentPolicyRejected(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	oldCID, err := CID(old)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}

	newer := Render(sampleResult(), "ed25519:alice", "bafkreib-other-policy", []string{"bafkreib-p1"}, RenderOptions{
		SupersedesVerdictCID: oldCID,
	})
	if err := ValidateSupersession(newer, old); err == nil {
		t.Fatal("expected error for different Trust-Policy-CID")
	}
}

func TestValidateSupersession_DifferentResolverRejected(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	oldCID, err := CID(old)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}

	res := sampleResult()
	res.Verdict.Trust = proof.LevelLow
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p1"}, RenderOptions{
		ResolverID:           "another-resolver",
		SupersedesVerdictCID: oldCID,
	})
	if err := ValidateSupersession(newer, old); err == nil {
		t.Fatal("expected error for different Resolver-ID")
	}
}

func TestSupersedesVerdictCID_Extraction(t *testing.T) {
	plain := renderSample(t, RenderOptions{})
	_, ok, err := SupersedesVerdictCID(plain)
	if err != nil {
		t.Fatalf("SupersedesVerdictCID: %v", err)
	}
	if ok {
		t.Fatal("plain report must not declare supersession")
	}

	withSup := renderSample(t, RenderOptions{SupersedesVerdictCID: "bafkreib-prior"})
	v, ok, err := SupersedesVerdictCID(withSup)
	if err != nil {
		t.Fatalf("SupersedesVerdictCID: %v", err)
	}
	if !ok || v != "bafkreib-prior" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if !strings.Contains(string(withSup), "Supersedes-Verdict-CID: bafkreib-prior") {
		t.Fatal("META line missing")
	}
}

func TestValidateSupersession_EvidenceOnlyChangeStillValid(t *testing.T) {
	old := renderSample(t, RenderOptions{})
	oldCID, err := CID(old)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}

	res := sampleResult()
	res.Verdict.Evidence = res.Verdict.Evidence[:1]
	newer := Render(res, "ed25519:alice", "bafkreib-policy", []string{"bafkreib-p2", "bafkreib-p1"}, RenderOptions{
		SupersedesVerdictCID: oldCID,
	})
	if err := ValidateSupersession(newer, old); err != nil {
		t.Fatalf("ValidateSupersession: %v", err)
	}
}
