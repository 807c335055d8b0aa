// Package graph derives a directed token graph from pool state and
// enumerates bounded-length arbitrage cycles over it.
package graph

import (
	"sort"

	"github.com/arbiter-labs/hyperarb/types"
)

// PoolLookup is the narrow read surface the graph needs; poolstate.Manager
// satisfies it without an import cycle.
type PoolLookup interface {
	Snapshot() []*types.Pool
	PoolsByToken(token types.Address) []*types.Pool
}

// candidateEdge is one directed hop considered during enumeration, carrying
// enough of the pool's state to rank and tie-break branches.
type candidateEdge struct {
	edge      types.Edge
	liquidity uint64 // captured liquidity proxy at build time, descending sort key
}

// TokenGraph is a directed multigraph over tokens where each edge
// represents one pool's ability to swap in a given direction. It is
// rebuilt wholesale from a PoolLookup snapshot rather than incrementally
// maintained, since pool state mutation frequency makes incremental graph
// bookkeeping not worth its complexity: edges carry a pool handle, not
// ownership of its state.
type TokenGraph struct {
	// adjacency maps fromToken -> toToken -> candidate edges, already
	// sorted by descending captured liquidity then ascending pool address
	// (tie-break rule).
	adjacency map[types.Address]map[types.Address][]candidateEdge

	// generations snapshots each pool's generation at build time, so
	// ArbitrageFinder can stamp ArbitrageOpportunity.MaxGeneration without
	// a second state lookup.
	generations map[types.Address]uint64
}

// Build derives a TokenGraph from the current pool snapshot.
func Build(pools PoolLookup) *TokenGraph {
	g := &TokenGraph{
		adjacency:   make(map[types.Address]map[types.Address][]candidateEdge),
		generations: make(map[types.Address]uint64),
	}
	for _, p := range pools.Snapshot() {
		g.addPool(p)
		g.generations[p.Address] = p.Generation
	}
	for from := range g.adjacency {
		for to := range g.adjacency[from] {
			edges := g.adjacency[from][to]
			sort.Slice(edges, func(i, j int) bool {
				if edges[i].liquidity != edges[j].liquidity {
					return edges[i].liquidity > edges[j].liquidity
				}
				return edges[i].edge.Pool.Less(edges[j].edge.Pool)
			})
			g.adjacency[from][to] = edges
		}
	}
	return g
}

func (g *TokenGraph) addPool(p *types.Pool) {
	liq := capturedLiquidity(p)
	g.addEdge(p.Tokens[0], p.Tokens[1], types.Edge{
		FromToken: p.Tokens[0], ToToken: p.Tokens[1], Pool: p.Address,
		Direction: types.DirectionAToB, Protocol: p.Protocol,
	}, liq)
	g.addEdge(p.Tokens[1], p.Tokens[0], types.Edge{
		FromToken: p.Tokens[1], ToToken: p.Tokens[0], Pool: p.Address,
		Direction: types.DirectionBToA, Protocol: p.Protocol,
	}, liq)
}

// capturedLiquidity returns a single sortable magnitude for a pool,
// whichever state field it actually carries (reserves summed, or the
// concentrated-liquidity value). Pools with no usable state rank last.
func capturedLiquidity(p *types.Pool) uint64 {
	if p.Reserves != nil {
		r0, r1 := p.Reserves[0].Int(), p.Reserves[1].Int()
		sum := r0.Uint64()
		if r0.BitLen() > 64 {
			sum = ^uint64(0)
		}
		r1v := r1.Uint64()
		if r1.BitLen() > 64 || sum+r1v < sum {
			return ^uint64(0)
		}
		return sum + r1v
	}
	if p.Liquidity != nil {
		if p.Liquidity.Int().BitLen() > 64 {
			return ^uint64(0)
		}
		return p.Liquidity.Int().Uint64()
	}
	return 0
}

func (g *TokenGraph) addEdge(from, to types.Address, e types.Edge, liquidity uint64) {
	if g.adjacency[from] == nil {
		g.adjacency[from] = make(map[types.Address][]candidateEdge)
	}
	g.adjacency[from][to] = append(g.adjacency[from][to], candidateEdge{edge: e, liquidity: liquidity})
}

// Neighbors returns the tokens reachable from `from` in one hop.
func (g *TokenGraph) Neighbors(from types.Address) []types.Address {
	tos := g.adjacency[from]
	out := make([]types.Address, 0, len(tos))
	for to := range tos {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Generation returns the pool's generation as captured at Build time.
func (g *TokenGraph) Generation(pool types.Address) uint64 {
	return g.generations[pool]
}

// EdgesTo returns the candidate edges from `from` to `to`, already ordered
// by descending liquidity then ascending pool address.
func (g *TokenGraph) EdgesTo(from, to types.Address) []types.Edge {
	cands := g.adjacency[from][to]
	out := make([]types.Edge, len(cands))
	for i, c := range cands {
		out[i] = c.edge
	}
	return out
}
