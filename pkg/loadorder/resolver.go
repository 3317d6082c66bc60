package loadorder

import (
	"container/heap"
	"sort"
	"strings"

	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/modcollect/modcollect/pkg/types"
	"github.com/rs/zerolog"
)

// Resolver computes one deterministic total activation order over all mods
// in a collection, from authored rules, requirement edges, and phase tiers.
type Resolver struct {
	manifest     *types.CollectionManifest
	mods         map[int64]types.ModRecord
	requirements map[int64][]int64
	logger       zerolog.Logger
}

// Result is the resolved order. Cyclic is informational: when the rule set
// contains a cycle the order is still a full permutation, with the cyclic
// remainder appended in (phase, name) order.
type Result struct {
	Order  []int64
	Cyclic bool

	// CycleMembers are the mod ids that could not be ordered by the graph
	// and were placed by the fallback. Empty when Cyclic is false.
	CycleMembers []int64
}

// NewResolver creates a resolver over the given manifest, mod set, and
// declared requirement edges (required mod id -> dependent is derived from
// the map of dependent -> required ids).
func NewResolver(manifest *types.CollectionManifest, mods []types.ModRecord, requirements map[int64][]int64) *Resolver {
	byID := make(map[int64]types.ModRecord, len(mods))
	for _, m := range mods {
		byID[m.ModID] = m
	}
	return &Resolver{
		manifest:     manifest,
		mods:         byID,
		requirements: requirements,
		logger:       logging.GetLogger("loadorder.resolver"),
	}
}

// Resolve runs Kahn's algorithm with a (phase, folded name, mod id)
// priority queue. Phase is a tie-break among ready nodes only, never a
// hard edge: a lower-phase mod is not guaranteed to precede a higher-phase
// mod unless a rule or requirement edge also connects them.
func (r *Resolver) Resolve() Result {
	edges, inDegree := r.buildGraph()

	queue := &priorityQueue{}
	heap.Init(queue)
	for id := range r.mods {
		if inDegree[id] == 0 {
			heap.Push(queue, r.queueItem(id))
		}
	}

	order := make([]int64, 0, len(r.mods))
	for queue.Len() > 0 {
		id := heap.Pop(queue).(queueItem).modID
		order = append(order, id)

		for _, succ := range sortedSuccessors(edges[id]) {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				heap.Push(queue, r.queueItem(succ))
			}
		}
	}

	if len(order) == len(r.mods) {
		return Result{Order: order}
	}

	// Cycle among the unvisited remainder. Not fatal: append the
	// remaining mods in (phase, folded name) order so the result is
	// always a full permutation.
	emitted := make(map[int64]bool, len(order))
	for _, id := range order {
		emitted[id] = true
	}
	var remaining []int64
	for id := range r.mods {
		if !emitted[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Slice(remaining, func(i, j int) bool {
		a, b := r.queueItem(remaining[i]), r.queueItem(remaining[j])
		if a.phase != b.phase {
			return a.phase < b.phase
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.modID < b.modID
	})

	r.logger.Warn().
		Int("mods", len(remaining)).
		Msg("Ordering rules contain a cycle, appending remainder in phase/name order")

	order = append(order, remaining...)
	return Result{Order: order, Cyclic: true, CycleMembers: remaining}
}

// buildGraph constructs adjacency and in-degree maps. Authored rules come
// first, then requirement edges; duplicates are dropped so in-degree stays
// consistent with the edge set.
func (r *Resolver) buildGraph() (map[int64]map[int64]bool, map[int64]int) {
	edges := make(map[int64]map[int64]bool)
	inDegree := make(map[int64]int, len(r.mods))
	for id := range r.mods {
		inDegree[id] = 0
	}

	addEdge := func(from, to int64) {
		if edges[from] == nil {
			edges[from] = make(map[int64]bool)
		}
		if edges[from][to] {
			return
		}
		edges[from][to] = true
		inDegree[to]++
	}

	for _, rule := range r.manifest.Rules {
		source, target := rule.Source, rule.Target
		if _, ok := r.mods[source]; !ok {
			continue
		}
		if _, ok := r.mods[target]; !ok {
			continue
		}

		switch rule.Type {
		case types.RuleBefore:
			// source loads before target
			addEdge(source, target)
		case types.RuleAfter:
			// source loads after target
			addEdge(target, source)
		case types.RuleRequires:
			// the required target must load before the source
			addEdge(target, source)
		default:
			r.logger.Debug().
				Str("type", string(rule.Type)).
				Int64("source", source).
				Int64("target", target).
				Msg("Ignoring unknown rule type")
		}
	}

	for dependent, reqs := range r.requirements {
		if _, ok := r.mods[dependent]; !ok {
			continue
		}
		for _, req := range reqs {
			if _, ok := r.mods[req]; !ok {
				continue
			}
			addEdge(req, dependent)
		}
	}

	return edges, inDegree
}

func (r *Resolver) queueItem(id int64) queueItem {
	return queueItem{
		phase: r.manifest.Phase(id),
		name:  strings.ToLower(r.mods[id].Name),
		modID: id,
	}
}

// sortedSuccessors returns a node's successors in ascending mod-id order
// so in-degree decrements happen in a deterministic sequence.
func sortedSuccessors(succ map[int64]bool) []int64 {
	if len(succ) == 0 {
		return nil
	}
	out := make([]int64, 0, len(succ))
	for id := range succ {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// queueItem orders ready nodes by phase, then folded name, then mod id.
type queueItem struct {
	phase int
	name  string
	modID int64
}

type priorityQueue []queueItem

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].phase != q[j].phase {
		return q[i].phase < q[j].phase
	}
	if q[i].name != q[j].name {
		return q[i].name < q[j].name
	}
	return q[i].modID < q[j].modID
}

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
