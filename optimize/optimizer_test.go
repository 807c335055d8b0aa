package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/simulate"
	"github.com/arbiter-labs/hyperarb/types"
)

type fakeLookup map[types.Address]*types.Pool

func (f fakeLookup) PoolByAddress(addr types.Address) (*types.Pool, bool) {
	p, ok := f[addr]
	return p, ok
}

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func v2Pool(id, tokA, tokB byte, r0, r1 uint64, feeBps uint32) *types.Pool {
	reserves := [2]types.U256{types.NewU256FromUint64(r0), types.NewU256FromUint64(r1)}
	return &types.Pool{
		Address: addr(id), Protocol: types.ProtocolHyperSwapV2,
		Tokens: [2]types.Address{addr(tokA), addr(tokB)}, FeeBps: &feeBps, Reserves: &reserves,
	}
}

func twoPoolArbPath() (types.Path, fakeLookup) {
	p1 := v2Pool(10, 1, 2, 1_000_000, 2_000_000, 30)
	p2 := v2Pool(11, 2, 1, 1_000_000, 3_000_000, 30)
	lookup := fakeLookup{p1.Address: p1, p2.Address: p2}
	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p1.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
		{FromToken: addr(2), ToToken: addr(1), Pool: p2.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	return path, lookup
}

func TestOptimizeFindsProfitablePoint(t *testing.T) {
	path, lookup := twoPoolArbPath()
	sim := simulate.New(lookup, nil)
	opt := New(sim, Config{})

	// Decimals 4 puts the search range at 10..10_000 units, inside the
	// pools' 1e6-scale reserves; at gas price 0 the round trip's gain is
	// not eaten by a gas cost.
	result, err := opt.Optimize(context.Background(), path, 4, types.ZeroU256())
	require.NoError(t, err)
	require.Equal(t, 1, result.Sim.Profit.Sign())
}

func TestOptimizeIsDeterministic(t *testing.T) {
	path, lookup := twoPoolArbPath()
	sim1 := simulate.New(lookup, nil)
	opt1 := New(sim1, Config{})
	r1, err := opt1.Optimize(context.Background(), path, 18, types.NewU256FromUint64(1_000_000_000))
	require.NoError(t, err)

	path2, lookup2 := twoPoolArbPath()
	sim2 := simulate.New(lookup2, nil)
	opt2 := New(sim2, Config{})
	r2, err := opt2.Optimize(context.Background(), path2, 18, types.NewU256FromUint64(1_000_000_000))
	require.NoError(t, err)

	require.Equal(t, r1.AmountIn.String(), r2.AmountIn.String())
	require.Equal(t, r1.Sim.Profit.String(), r2.Sim.Profit.String())
}

func TestOptimizeNoOpportunityAtParity(t *testing.T) {
	p1 := v2Pool(20, 1, 2, 1_000_000, 1_000_000, 30)
	p2 := v2Pool(21, 2, 1, 1_000_000, 1_000_000, 30)
	lookup := fakeLookup{p1.Address: p1, p2.Address: p2}
	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p1.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
		{FromToken: addr(2), ToToken: addr(1), Pool: p2.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	sim := simulate.New(lookup, nil)
	opt := New(sim, Config{})

	result, err := opt.Optimize(context.Background(), path, 18, types.ZeroU256())
	require.NoError(t, err)
	require.LessOrEqual(t, result.Sim.Profit.Sign(), 0)
}
