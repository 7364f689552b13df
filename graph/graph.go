// Package graph assembles verified proofs into an in-memory trust graph.
//
// Nodes are identities and projects; edges carry the latest asserted opinion
// per (issuer, target) pair. Only the most recent proof by date counts; a
// later proof fully replaces the earlier one, including tombstones, which are
// kept as explicit edges so downstream resolution can distinguish "retracted"
// from "never asserted".
package graph

import (
	"time"

	"revtrust.dev/revtrust/proof"
)

// Opinion is one issuer's current assertion about a target, taken from the
// latest proof between that pair.
type Opinion struct {
	Trust         proof.Level
	Distrust      proof.Level
	Thoroughness  proof.Level
	Understanding proof.Level
	Date          time.Time
	ProofCID      string
	// Tombstone marks an explicit retraction: trust none and distrust none.
	Tombstone bool
}

// DistrustDominant reports whether distrust should gate trust from this
// opinion: distrust at least as strong as trust, and asserted at all.
func (o Opinion) DistrustDominant() bool {
	return o.Distrust >= o.Trust && o.Distrust > proof.LevelNone
}

// TrustEdge is one identity's opinion of another identity.
type TrustEdge struct {
	From int
	To   int
	Opinion
}

// ReviewEdge is one identity's opinion of a project at a specific revision.
type ReviewEdge struct {
	From     int
	Project  int
	Revision string
	Digest   string
	Opinion
}

// Graph is the assembled trust graph. Identities and projects are interned to
// dense integer ids so resolution can use slice-indexed state.
type Graph struct {
	identities []proof.Identity
	identityID map[string]int

	projects  []string
	projectID map[string]int

	trustOut  [][]TrustEdge
	reviewsBy map[int][]ReviewEdge // keyed by project node
}

// IdentityNode returns the dense node id for an identity, interning it.
func (g *Graph) IdentityNode(id proof.Identity) int {
	if n, ok := g.identityID[id.ID]; ok {
		return n
	}
	n := len(g.identities)
	g.identities = append(g.identities, id)
	g.identityID[id.ID] = n
	g.trustOut = append(g.trustOut, nil)
	return n
}

// LookupIdentity returns the node id for an identity key, if present.
func (g *Graph) LookupIdentity(issuerKey string) (int, bool) {
	n, ok := g.identityID[issuerKey]
	return n, ok
}

// Identity returns the interned identity for a node id.
func (g *Graph) Identity(n int) proof.Identity { return g.identities[n] }

// IdentityCount returns the number of identity nodes.
func (g *Graph) IdentityCount() int { return len(g.identities) }

// ProjectNode returns the dense node id for a project, interning it.
func (g *Graph) ProjectNode(projectID string) int {
	if n, ok := g.projectID[projectID]; ok {
		return n
	}
	n := len(g.projects)
	g.projects = append(g.projects, projectID)
	g.projectID[projectID] = n
	return n
}

// LookupProject returns the node id for a project id, if present.
func (g *Graph) LookupProject(projectID string) (int, bool) {
	n, ok := g.projectID[projectID]
	return n, ok
}

// TrustEdges returns the current trust edges leaving an identity node.
func (g *Graph) TrustEdges(from int) []TrustEdge { return g.trustOut[from] }

// Reviews returns the current review edges targeting a project node.
func (g *Graph) Reviews(project int) []ReviewEdge { return g.reviewsBy[project] }

// Builder accumulates proofs into a Graph. Proofs may arrive in any order;
// for each (issuer, target) pair only the latest by date survives. On an
// exact date tie the proof with the lexicographically greater CID wins, so
// the outcome does not depend on insertion order.
type Builder struct {
	g *Graph
}

func NewBuilder() *Builder {
	return &Builder{g: &Graph{
		identityID: make(map[string]int),
		projectID:  make(map[string]int),
		reviewsBy:  make(map[int][]ReviewEdge),
	}}
}

// AddTrust records one trust proof.
func (b *Builder) AddTrust(t *proof.Trust, proofCID string) {
	from := b.g.IdentityNode(t.Reviewer)
	to := b.g.IdentityNode(t.Trusted)
	op := Opinion{
		Trust:         t.Trust,
		Distrust:      t.Distrust,
		Thoroughness:  t.Thoroughness,
		Understanding: t.Understanding,
		Date:          t.Date,
		ProofCID:      proofCID,
		Tombstone:     t.Tombstone(),
	}
	edges := b.g.trustOut[from]
	for i := range edges {
		if edges[i].To == to {
			if supersedes(op, edges[i].Opinion) {
				edges[i].Opinion = op
			}
			return
		}
	}
	b.g.trustOut[from] = append(edges, TrustEdge{From: from, To: to, Opinion: op})
}

// AddReview records one review proof.
func (b *Builder) AddReview(r *proof.Review, proofCID string) {
	from := b.g.IdentityNode(r.Reviewer)
	project := b.g.ProjectNode(r.Project.ID)
	op := Opinion{
		Trust:         r.Trust,
		Distrust:      r.Distrust,
		Thoroughness:  r.Thoroughness,
		Understanding: r.Understanding,
		Date:          r.Date,
		ProofCID:      proofCID,
		Tombstone:     r.Tombstone(),
	}
	edge := ReviewEdge{
		From:     from,
		Project:  project,
		Revision: r.Project.Revision,
		Digest:   r.Project.Digest,
		Opinion:  op,
	}
	edges := b.g.reviewsBy[project]
	for i := range edges {
		if edges[i].From == from {
			if supersedes(op, edges[i].Opinion) {
				edges[i] = edge
			}
			return
		}
	}
	b.g.reviewsBy[project] = append(edges, edge)
}

// AddProof records one verified proof of either kind.
func (b *Builder) AddProof(p *proof.Proof) {
	switch p.Type {
	case proof.TypeReview:
		b.AddReview(p.Review, p.CID())
	case proof.TypeTrust:
		b.AddTrust(p.Trust, p.CID())
	}
}

// Build returns the assembled graph. The builder must not be reused after.
func (b *Builder) Build() *Graph { return b.g }

func supersedes(newer, older Opinion) bool {
	if newer.Date.After(older.Date) {
		return true
	}
	if older.Date.After(newer.Date) {
		return false
	}
	return newer.ProofCID > older.ProofCID
}
