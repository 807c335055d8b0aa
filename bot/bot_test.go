package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/gateway"
	"github.com/arbiter-labs/hyperarb/poolstate"
	"github.com/arbiter-labs/hyperarb/types"
)

func mkAddr(last byte) types.Address {
	var a types.Address
	a[19] = last
	return a
}

func v2Pool(addr byte, a, b types.Address, r0, r1 uint64) *types.Pool {
	reserves := [2]types.U256{types.NewU256FromUint64(r0), types.NewU256FromUint64(r1)}
	fee := uint32(30)
	var paddr types.Address
	paddr[19] = addr
	return &types.Pool{
		Address: paddr, Protocol: types.ProtocolHyperSwapV2,
		Tokens: [2]types.Address{a, b}, FeeBps: &fee, Reserves: &reserves,
	}
}

// TestBotDiscoversAndEvaluatesCycle drives the two-pool V2 arbitrage
// scenario through the full controller: two pools forming an A<->B
// arbitrage cycle should surface a profitable opportunity through
// OnProfitable within a bounded time after Start.
func TestBotDiscoversAndEvaluatesCycle(t *testing.T) {
	tokA, tokB := mkAddr(1), mkAddr(2)
	p1 := v2Pool(10, tokA, tokB, 1_000_000, 2_000_000)
	p2 := v2Pool(11, tokB, tokA, 3_000_000, 1_000_000)

	mgr := poolstate.NewManager()
	require.NoError(t, mgr.ApplyEvent(poolstate.StateEvent{Kind: poolstate.EventPoolCreated, NewPool: p1}))
	require.NoError(t, mgr.ApplyEvent(poolstate.StateEvent{Kind: poolstate.EventPoolCreated, NewPool: p2}))

	var mu sync.Mutex
	var hits int
	b := New(gateway.NewMock(), mgr, Config{
		BaseTokens: []types.Address{tokA}, MaxHops: 3, MaxPoolsPerHop: 5,
		Decimals: 6, WorkerPoolSize: 2, MinProfit: types.ZeroI256(),
		OnProfitable: func(opp types.ArbitrageOpportunity, amountIn types.U256, profit types.I256) {
			mu.Lock()
			hits++
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))
	defer b.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hits > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReenumerateBuildsPathIndex(t *testing.T) {
	tokA, tokB := mkAddr(1), mkAddr(2)
	p1 := v2Pool(10, tokA, tokB, 1_000_000, 2_000_000)
	p2 := v2Pool(11, tokB, tokA, 3_000_000, 1_000_000)

	mgr := poolstate.NewManager()
	require.NoError(t, mgr.ApplyEvent(poolstate.StateEvent{Kind: poolstate.EventPoolCreated, NewPool: p1}))
	require.NoError(t, mgr.ApplyEvent(poolstate.StateEvent{Kind: poolstate.EventPoolCreated, NewPool: p2}))

	b := New(gateway.NewMock(), mgr, Config{
		BaseTokens: []types.Address{tokA}, MaxHops: 3, MaxPoolsPerHop: 5, Decimals: 6,
	})
	b.Reenumerate(context.Background())

	b.mu.RLock()
	defer b.mu.RUnlock()
	require.NotEmpty(t, b.pathIndex)
	require.Equal(t, 2, b.cache.Size())
}
