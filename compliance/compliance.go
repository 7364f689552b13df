package compliance

// ComplianceMode selects how aggressively the library rejects ambiguity.
//
// Strict mode prefers explicit failure over silent acceptance: any proof that
// cannot be verified fails the whole resolution.
// Permissive mode attempts to produce a verdict while surfacing exclusions
// explicitly.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)
