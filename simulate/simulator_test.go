package simulate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

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
		Address:  addr(id),
		Protocol: types.ProtocolHyperSwapV2,
		Tokens:   [2]types.Address{addr(tokA), addr(tokB)},
		FeeBps:   &feeBps,
		Reserves: &reserves,
	}
}

// TestTwoPoolArbitrage exercises the two-pool V2 arbitrage scenario: two
// pools priced away from parity should yield a profitable round trip.
// P1 holds 1e6 A and 2e6 B; P2 holds 1e6 B and 3e6 A (reserves follow
// the order of Tokens), so A buys 2 B in P1 and each B sells for 3 A in P2.
func TestTwoPoolArbitrage(t *testing.T) {
	tokenA, tokenB := addr(1), addr(2)
	p1 := v2Pool(10, 1, 2, 1_000_000, 2_000_000, 30)
	p2 := v2Pool(11, 2, 1, 1_000_000, 3_000_000, 30)

	lookup := fakeLookup{p1.Address: p1, p2.Address: p2}
	sim := New(lookup, nil)

	path := types.Path{Edges: []types.Edge{
		{FromToken: tokenA, ToToken: tokenB, Pool: p1.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
		{FromToken: tokenB, ToToken: tokenA, Pool: p2.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}

	result, err := sim.Simulate(context.Background(), path, types.NewU256FromUint64(10_000), types.ZeroU256(), 50)
	require.NoError(t, err)
	require.Greater(t, result.AmountOut.Int().Uint64(), uint64(10_000))
	require.Equal(t, 1, result.Profit.Sign())
}

func TestSimulateZeroAmountIn(t *testing.T) {
	p1 := v2Pool(10, 1, 2, 1_000_000, 2_000_000, 30)
	lookup := fakeLookup{p1.Address: p1}
	sim := New(lookup, nil)

	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p1.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	result, err := sim.Simulate(context.Background(), path, types.ZeroU256(), types.ZeroU256(), 50)
	require.NoError(t, err)
	require.True(t, result.AmountOut.IsZero())
	require.Equal(t, 0, result.Profit.Sign())
}

func TestSimulateZeroReserveIsZeroOutNotError(t *testing.T) {
	reserves := [2]types.U256{types.ZeroU256(), types.NewU256FromUint64(1000)}
	fee := uint32(30)
	p := &types.Pool{
		Address: addr(20), Protocol: types.ProtocolHyperSwapV2,
		Tokens: [2]types.Address{addr(1), addr(2)}, FeeBps: &fee, Reserves: &reserves,
	}
	lookup := fakeLookup{p.Address: p}
	sim := New(lookup, nil)

	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	result, err := sim.Simulate(context.Background(), path, types.NewU256FromUint64(100), types.ZeroU256(), 50)
	require.NoError(t, err)
	require.True(t, result.AmountOut.IsZero())
}

func TestSimulateUnknownPoolErrors(t *testing.T) {
	sim := New(fakeLookup{}, nil)
	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: addr(99), Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	_, err := sim.Simulate(context.Background(), path, types.NewU256FromUint64(100), types.ZeroU256(), 50)
	require.Error(t, err)
	var target *ErrUnknownPool
	require.ErrorAs(t, err, &target)
}

// TestRoundTripIsLossy checks that swapping in then immediately swapping
// the output back through the same pool returns strictly less than the
// original amount.
func TestRoundTripIsLossy(t *testing.T) {
	p := v2Pool(30, 1, 2, 5_000_000, 5_000_000, 30)
	lookup := fakeLookup{p.Address: p}
	sim := New(lookup, nil)

	forward := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}
	amountIn := types.NewU256FromUint64(100_000)
	out, err := sim.Simulate(context.Background(), forward, amountIn, types.ZeroU256(), 50)
	require.NoError(t, err)

	backward := types.Path{Edges: []types.Edge{
		{FromToken: addr(2), ToToken: addr(1), Pool: p.Address, Direction: types.DirectionBToA, Protocol: types.ProtocolHyperSwapV2},
	}}
	back, err := sim.Simulate(context.Background(), backward, out.AmountOut, types.ZeroU256(), 50)
	require.NoError(t, err)

	require.Less(t, back.AmountOut.Int().Uint64(), amountIn.Int().Uint64())
}

func TestSimulateMemoizesByFingerprint(t *testing.T) {
	p := v2Pool(40, 1, 2, 1_000_000, 1_000_000, 30)
	lookup := fakeLookup{p.Address: p}
	sim := New(lookup, nil)
	path := types.Path{Edges: []types.Edge{
		{FromToken: addr(1), ToToken: addr(2), Pool: p.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
	}}

	r1, err := sim.Simulate(context.Background(), path, types.NewU256FromUint64(1000), types.ZeroU256(), 50)
	require.NoError(t, err)

	p.Generation = 5 // simulate an out-of-band state advance
	r2, err := sim.Simulate(context.Background(), path, types.NewU256FromUint64(1000), types.ZeroU256(), 50)
	require.NoError(t, err)
	require.Equal(t, r1.AmountOut.String(), r2.AmountOut.String())
	require.Equal(t, uint64(5), r2.MaxGeneration)
}
