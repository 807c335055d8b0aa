package graph

import (
	"context"
	"time"

	"github.com/arbiter-labs/hyperarb/internal/xset"
	"github.com/arbiter-labs/hyperarb/types"
)

// Finder enumerates simple cycles of length 2..=maxHops starting and ending
// at each configured base token.
type Finder struct {
	graph          *TokenGraph
	maxHops        int
	maxPoolsPerHop int
}

// DefaultMaxHops and DefaultMaxPoolsPerHop mirror configuration
// defaults.
const (
	DefaultMaxHops        = 3
	DefaultMaxPoolsPerHop = 5
)

// NewFinder builds a Finder over g. maxPoolsPerHop <= 0 uses the default;
// maxHops is used as given, and values below 2 yield zero cycles, since a
// cycle needs at least two edges.
func NewFinder(g *TokenGraph, maxHops, maxPoolsPerHop int) *Finder {
	if maxPoolsPerHop <= 0 {
		maxPoolsPerHop = DefaultMaxPoolsPerHop
	}
	return &Finder{graph: g, maxHops: maxHops, maxPoolsPerHop: maxPoolsPerHop}
}

// Stream enumerates cycles for every base token and sends one
// ArbitrageOpportunity per cycle (expectedProfit=0, inputAmount=0; the
// Optimizer fills those in later) to the returned channel, closing it when
// enumeration completes or ctx is cancelled: a lazy, cancellable sequence.
func (f *Finder) Stream(ctx context.Context, baseTokens []types.Address) <-chan types.ArbitrageOpportunity {
	out := make(chan types.ArbitrageOpportunity)
	go func() {
		defer close(out)
		if f.maxHops < 2 {
			return
		}
		for _, start := range baseTokens {
			visited := xset.New[types.Address](f.maxHops + 1)
			visited.Add(start)
			f.dfs(ctx, start, start, nil, visited, out)
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return out
}

// FindAll drains Stream into a slice; convenient for tests and for callers
// that want the full re-enumeration result synchronously ('s
// every-K-blocks trigger).
func (f *Finder) FindAll(ctx context.Context, baseTokens []types.Address) []types.ArbitrageOpportunity {
	var out []types.ArbitrageOpportunity
	for opp := range f.Stream(ctx, baseTokens) {
		out = append(out, opp)
	}
	return out
}

func (f *Finder) dfs(ctx context.Context, start, current types.Address, edges []types.Edge, visited xset.Set[types.Address], out chan<- types.ArbitrageOpportunity) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	// depth counts hops taken so far; counting depth>=2 against nodes
	// visited including start (start plus at least one hop) means the
	// edge-count threshold here is depth >= 1. A closing edge through
	// the same pool as the opening edge is excluded: since a pool only
	// ever connects two tokens and interior tokens cannot repeat, the
	// opening edge's pool is the only one that can also serve as the
	// closing edge, and doing so is a same-pool round trip (never
	// profitable after fees) rather than a genuine cycle.
	depth := len(edges)
	if depth >= 1 {
		firstPool := edges[0].Pool
		for _, e := range limitEdges(excludePool(f.graph.EdgesTo(current, start), firstPool), f.maxPoolsPerHop) {
			cycle := appendEdge(edges, e)
			out <- f.toOpportunity(start, cycle)
		}
	}
	// Extending past here would only close cycles longer than maxHops.
	if depth+1 >= f.maxHops {
		return
	}

	for _, neighbor := range f.graph.Neighbors(current) {
		if neighbor == start || visited.Contains(neighbor) {
			continue
		}
		for _, e := range limitEdges(f.graph.EdgesTo(current, neighbor), f.maxPoolsPerHop) {
			visited.Add(neighbor)
			f.dfs(ctx, start, neighbor, appendEdge(edges, e), visited, out)
			visited.Remove(neighbor)
		}
	}
}

// excludePool drops any edge routed through pool, used to forbid closing a
// cycle back through the same pool the opening edge used.
func excludePool(edges []types.Edge, pool types.Address) []types.Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if e.Pool != pool {
			out = append(out, e)
		}
	}
	return out
}

func limitEdges(edges []types.Edge, n int) []types.Edge {
	if len(edges) <= n {
		return edges
	}
	return edges[:n]
}

func appendEdge(edges []types.Edge, e types.Edge) []types.Edge {
	out := make([]types.Edge, len(edges)+1)
	copy(out, edges)
	out[len(edges)] = e
	return out
}

func (f *Finder) toOpportunity(start types.Address, edges []types.Edge) types.ArbitrageOpportunity {
	var maxGen uint64
	for _, e := range edges {
		if g := f.graph.Generation(e.Pool); g > maxGen {
			maxGen = g
		}
	}
	return types.ArbitrageOpportunity{
		Path:          types.Path{Edges: edges},
		StartToken:    start,
		InputAmount:   types.ZeroU256(),
		ExpectedProfit: types.ZeroI256(),
		GasEstimate:   types.ZeroU256(),
		Source:        types.SourcePublic,
		CreatedAt:     time.Now(),
		MaxGeneration: maxGen,
	}
}
