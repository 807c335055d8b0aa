package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/types"
)

type fakePools []*types.Pool

func (f fakePools) Snapshot() []*types.Pool { return f }

func (f fakePools) PoolsByToken(token types.Address) []*types.Pool {
	var out []*types.Pool
	for _, p := range f {
		if p.Tokens[0] == token || p.Tokens[1] == token {
			out = append(out, p)
		}
	}
	return out
}

func tok(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func triPool(id byte, a, b types.Address) *types.Pool {
	reserves := [2]types.U256{types.NewU256FromUint64(1000), types.NewU256FromUint64(1000)}
	var addr types.Address
	addr[19] = id
	return &types.Pool{Address: addr, Protocol: types.ProtocolHyperSwapV2, Tokens: [2]types.Address{a, b}, Reserves: &reserves}
}

// TestThreeTokenCycleDiscovery covers a three-token ring A-B-C-A, where
// exactly two directed cycles should be discovered.
func TestThreeTokenCycleDiscovery(t *testing.T) {
	a, b, c := tok(1), tok(2), tok(3)
	pools := fakePools{
		triPool(10, a, b),
		triPool(11, b, c),
		triPool(12, c, a),
	}
	g := Build(pools)
	finder := NewFinder(g, 3, 5)

	cycles := finder.FindAll(context.Background(), []types.Address{a})
	require.Len(t, cycles, 2)
	for _, c := range cycles {
		require.True(t, c.Path.IsCycle())
		require.False(t, c.Path.HasInteriorRepeat())
		require.Equal(t, a, c.Path.StartToken())
	}

	seq0 := cycles[0].Path.TokenSequence()
	seq1 := cycles[1].Path.TokenSequence()
	require.Equal(t, []types.Address{a, b, c, a}, seq0)
	require.Equal(t, []types.Address{a, c, b, a}, seq1)
}

// TestTwoPoolCycleDiscovery covers two distinct pools between the same
// token pair forming genuine 2-hop arbitrage cycles: one opening through
// each pool, since cycles are distinct by the direction of their edges.
func TestTwoPoolCycleDiscovery(t *testing.T) {
	a, b := tok(1), tok(2)
	g := Build(fakePools{triPool(10, a, b), triPool(11, b, a)})
	finder := NewFinder(g, 3, 5)

	cycles := finder.FindAll(context.Background(), []types.Address{a})
	require.Len(t, cycles, 2)
	require.Equal(t, []types.Address{a, b, a}, cycles[0].Path.TokenSequence())
	require.Len(t, cycles[0].Path.Edges, 2)
	require.NotEqual(t, cycles[0].Path.Edges[0].Pool, cycles[0].Path.Edges[1].Pool)
}

// TestSinglePoolRoundTripNotEmitted ensures a lone pool between two tokens
// never yields a "cycle" through itself both ways, since that can never be
// profitable after fees.
func TestSinglePoolRoundTripNotEmitted(t *testing.T) {
	a, b := tok(1), tok(2)
	g := Build(fakePools{triPool(10, a, b)})
	finder := NewFinder(g, 3, 5)

	cycles := finder.FindAll(context.Background(), []types.Address{a})
	require.Empty(t, cycles)
}

func TestMaxHopsBelowTwoYieldsNoCycles(t *testing.T) {
	a, b := tok(1), tok(2)
	g := Build(fakePools{triPool(10, a, b)})

	require.Empty(t, NewFinder(g, 0, 5).FindAll(context.Background(), []types.Address{a}))
	require.Empty(t, NewFinder(g, 1, 5).FindAll(context.Background(), []types.Address{a}))
}

func TestMaxPoolsPerHopLimitsBranching(t *testing.T) {
	a, b := tok(1), tok(2)
	var pools fakePools
	for i := byte(0); i < 10; i++ {
		pools = append(pools, triPool(20+i, a, b))
	}
	// Also close the cycle back to a via b.
	pools = append(pools, triPool(200, b, a))
	g := Build(pools)
	finder := NewFinder(g, 3, 5)

	cycles := finder.FindAll(context.Background(), []types.Address{a})
	// 11 a->b edges are cut to 5 opening edges; each closes through 5 of
	// the 10 remaining b->a edges.
	require.Len(t, cycles, 25)
	for _, c := range cycles {
		require.True(t, c.Path.IsCycle())
	}
}
