// Package resolver answers the question a consumer actually asks: from my
// root identity, what does my web of trust currently say about this project?
//
// Resolution runs shortest-path search over the trust graph, discounting by
// distance, then aggregates the project reviews held by reachable identities.
// Distrust is deliberately asymmetric: it propagates through any reachable
// edge and is never discounted, while trust only flows through edges whose
// distrust does not dominate.
package resolver

import (
	"container/heap"
	"errors"
	"sort"
	"time"

	"revtrust.dev/revtrust/graph"
	"revtrust.dev/revtrust/proof"
)

// State classifies a resolution result.
type State string

const (
	// StateResolved: at least one current review from a reachable identity.
	StateResolved State = "Resolved"
	// StateNoData: the project is known but no reachable identity currently
	// asserts anything about it. Tombstoned reviews land here.
	StateNoData State = "NoData"
	// StateProjectUnknown: no proof in the corpus mentions the project.
	StateProjectUnknown State = "ProjectUnknown"
)

// Params tunes the traversal. Distances are additive per hop; the cost of a
// hop depends on how strongly the issuer trusts the next identity.
type Params struct {
	// MaxDistance cuts off the search; identities further away contribute
	// nothing.
	MaxDistance int
	// DistanceCost maps a trust level to its hop cost. Levels absent from the
	// map are not traversable.
	DistanceCost map[proof.Level]int
}

// DefaultParams returns the standard traversal parameters: high trust costs
// 1, medium 2, low 5, cutoff at 10.
func DefaultParams() Params {
	return Params{
		MaxDistance: 10,
		DistanceCost: map[proof.Level]int{
			proof.LevelHigh:   1,
			proof.LevelMedium: 2,
			proof.LevelLow:    5,
		},
	}
}

func (p Params) validate() error {
	if p.MaxDistance <= 0 {
		return errors.New("resolver: MaxDistance must be positive")
	}
	if len(p.DistanceCost) == 0 {
		return errors.New("resolver: DistanceCost must not be empty")
	}
	for level, cost := range p.DistanceCost {
		if !level.Valid() || level == proof.LevelNone {
			return errors.New("resolver: DistanceCost keys must be low, medium, or high")
		}
		if cost <= 0 {
			return errors.New("resolver: DistanceCost values must be positive")
		}
	}
	return nil
}

// Evidence is one reachable identity's current review of the project.
type Evidence struct {
	IssuerID      string
	Distance      int
	ProofCID      string
	Date          time.Time
	Trust         proof.Level
	Distrust      proof.Level
	Thoroughness  proof.Level
	Understanding proof.Level
	// Tombstone evidence is shown but carries no weight.
	Tombstone bool
	// Distrusted evidence comes from an identity the web of trust has cut
	// out. Its distrust still counts toward the verdict; its trust never does.
	Distrusted bool
}

// Verdict is the resolution result for one project.
type Verdict struct {
	ProjectID string
	State     State
	// Trust is the closest reachable identity's asserted trust level.
	Trust proof.Level
	// Distrust is the maximum distrust asserted by any consulted identity,
	// distrusted reviewers included.
	Distrust proof.Level
	Evidence []Evidence
	// DistrustedIdentities lists identity keys cut out of the web of trust
	// because a reachable identity distrusts them.
	DistrustedIdentities []string
}

// Resolve computes the verdict for projectID as seen from the identity with
// key rootID. The root is always reachable at distance zero, even when no
// proof mentions it.
func Resolve(g *graph.Graph, rootID, projectID string, params Params) (*Verdict, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	dist, distrusted, distrustDist := reachable(g, rootID, params)

	v := &Verdict{ProjectID: projectID}
	for id := range distrusted {
		v.DistrustedIdentities = append(v.DistrustedIdentities, g.Identity(id).ID)
	}
	sort.Strings(v.DistrustedIdentities)

	project, ok := g.LookupProject(projectID)
	if !ok {
		v.State = StateProjectUnknown
		return v, nil
	}

	for _, edge := range g.Reviews(project) {
		d, ok := dist[edge.From]
		cut := false
		if !ok {
			// Reviews by distrusted identities are still consulted: negative
			// signal is never suppressed, only their trust claims are.
			if d, ok = distrustDist[edge.From]; !ok {
				continue
			}
			cut = true
		}
		v.Evidence = append(v.Evidence, Evidence{
			IssuerID:      g.Identity(edge.From).ID,
			Distance:      d,
			ProofCID:      edge.ProofCID,
			Date:          edge.Date,
			Trust:         edge.Trust,
			Distrust:      edge.Distrust,
			Thoroughness:  edge.Thoroughness,
			Understanding: edge.Understanding,
			Tombstone:     edge.Tombstone,
			Distrusted:    cut,
		})
	}
	sort.Slice(v.Evidence, func(i, j int) bool {
		if v.Evidence[i].Distance != v.Evidence[j].Distance {
			return v.Evidence[i].Distance < v.Evidence[j].Distance
		}
		return v.Evidence[i].IssuerID < v.Evidence[j].IssuerID
	})

	current := false
	for _, ev := range v.Evidence {
		if ev.Tombstone {
			continue
		}
		if ev.Distrust > v.Distrust {
			v.Distrust = ev.Distrust
		}
		if ev.Distrusted {
			// A suppressed trust claim never makes the verdict live on its
			// own; the distrust it carries does.
			if ev.Distrust > proof.LevelNone {
				current = true
			}
			continue
		}
		current = true
	}
	if !current {
		v.State = StateNoData
		return v, nil
	}
	v.State = StateResolved
	v.Trust = closestTrust(v.Evidence)
	return v, nil
}

// closestTrust picks the trust level of the nearest non-tombstone witness.
// Among witnesses at the same distance, the more thorough review wins, then
// the better understood, then the stronger trust claim.
func closestTrust(evidence []Evidence) proof.Level {
	var best *Evidence
	for i := range evidence {
		ev := &evidence[i]
		if ev.Tombstone || ev.Distrusted {
			continue
		}
		if best == nil || betterWitness(ev, best) {
			best = ev
		}
	}
	if best == nil {
		return proof.LevelNone
	}
	return best.Trust
}

func betterWitness(a, b *Evidence) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Thoroughness != b.Thoroughness {
		return a.Thoroughness > b.Thoroughness
	}
	if a.Understanding != b.Understanding {
		return a.Understanding > b.Understanding
	}
	return a.Trust > b.Trust
}

// reachable runs Dijkstra from the root over trust edges, then removes
// identities any reachable identity distrusts and searches again, until the
// distrusted set stabilizes. Removing a distrusted identity also removes
// everything only reachable through it.
//
// The third return maps each distrusted identity to the distance at which it
// was cut: the distrusting issuer's distance plus one hop. Their reviews are
// still consulted for distrust at that distance.
func reachable(g *graph.Graph, rootID string, params Params) (map[int]int, map[int]bool, map[int]int) {
	root, ok := g.LookupIdentity(rootID)
	if !ok {
		// The root may sign no proofs at all; it is still its own anchor.
		return map[int]int{}, map[int]bool{}, map[int]int{}
	}

	distrusted := make(map[int]bool)
	distrustDist := make(map[int]int)
	for {
		dist := dijkstra(g, root, params, distrusted)

		grew := false
		for from := range dist {
			for _, edge := range g.TrustEdges(from) {
				if edge.Tombstone || !edge.DistrustDominant() {
					continue
				}
				if edge.To == root {
					continue
				}
				d := dist[from] + hopCost(params, edge.Trust)
				if cur, seen := distrustDist[edge.To]; !seen || d < cur {
					distrustDist[edge.To] = d
				}
				if !distrusted[edge.To] {
					distrusted[edge.To] = true
					grew = true
				}
			}
		}
		if !grew {
			return dist, distrusted, distrustDist
		}
	}
}

// hopCost prices a hop along an edge that is not traversable for trust. The
// edge's own trust level is used when it has a configured cost; otherwise the
// severed link is priced as the weakest traversable level.
func hopCost(params Params, level proof.Level) int {
	if c, ok := params.DistanceCost[level]; ok {
		return c
	}
	worst := 0
	for _, c := range params.DistanceCost {
		if c > worst {
			worst = c
		}
	}
	return worst
}

func dijkstra(g *graph.Graph, root int, params Params, excluded map[int]bool) map[int]int {
	dist := map[int]int{root: 0}
	pq := &nodeQueue{{node: root, dist: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(nodeItem)
		if item.dist > dist[item.node] {
			continue
		}
		for _, edge := range g.TrustEdges(item.node) {
			if edge.Tombstone || edge.DistrustDominant() || excluded[edge.To] {
				continue
			}
			cost, ok := params.DistanceCost[edge.Trust]
			if !ok {
				continue
			}
			next := item.dist + cost
			if next > params.MaxDistance {
				continue
			}
			if cur, seen := dist[edge.To]; seen && cur <= next {
				continue
			}
			dist[edge.To] = next
			heap.Push(pq, nodeItem{node: edge.To, dist: next})
		}
	}
	return dist
}

type nodeItem struct {
	node int
	dist int
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
