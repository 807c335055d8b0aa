package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/optimize"
	"github.com/arbiter-labs/hyperarb/simulate"
	"github.com/arbiter-labs/hyperarb/types"
)

type fakeLookup map[types.Address]*types.Pool

func (f fakeLookup) PoolByAddress(addr types.Address) (*types.Pool, bool) {
	p, ok := f[addr]
	return p, ok
}

func addrN(n int) types.Address {
	var a types.Address
	a[18] = byte(n >> 8)
	a[19] = byte(n)
	return a
}

func v2Pool(id int, a, b types.Address, r0, r1 uint64) *types.Pool {
	reserves := [2]types.U256{types.NewU256FromUint64(r0), types.NewU256FromUint64(r1)}
	fee := uint32(30)
	return &types.Pool{
		Address: addrN(id), Protocol: types.ProtocolHyperSwapV2,
		Tokens: [2]types.Address{a, b}, FeeBps: &fee, Reserves: &reserves,
	}
}

// TestWorkerDrain covers the worker-drain scenario: 100 opportunities, 10
// profitable, 4 workers, onProfitable invoked exactly 10 times, queue
// drains to 0.
func TestWorkerDrain(t *testing.T) {
	lookup := fakeLookup{}
	var opps []types.ArbitrageOpportunity

	for i := 0; i < 10; i++ {
		tokA, tokB := addrN(1000+2*i), addrN(1000+2*i+1)
		p1 := v2Pool(2000+2*i, tokA, tokB, 1_000_000, 2_000_000)
		p2 := v2Pool(2000+2*i+1, tokB, tokA, 1_000_000, 3_000_000)
		lookup[p1.Address] = p1
		lookup[p2.Address] = p2
		opps = append(opps, types.ArbitrageOpportunity{
			StartToken: tokA,
			Path: types.Path{Edges: []types.Edge{
				{FromToken: tokA, ToToken: tokB, Pool: p1.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
				{FromToken: tokB, ToToken: tokA, Pool: p2.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
			}},
		})
	}
	for i := 0; i < 90; i++ {
		tokA, tokB := addrN(3000+2*i), addrN(3000+2*i+1)
		p := v2Pool(4000+i, tokA, tokB, 1_000_000, 1_000_000)
		lookup[p.Address] = p
		opps = append(opps, types.ArbitrageOpportunity{
			StartToken: tokA,
			Path: types.Path{Edges: []types.Edge{
				{FromToken: tokA, ToToken: tokB, Pool: p.Address, Direction: types.DirectionAToB, Protocol: types.ProtocolHyperSwapV2},
			}},
		})
	}

	sim := simulate.New(lookup, nil)
	opt := optimize.New(sim, optimize.Config{})

	var profitable int64
	var seen sync.Map
	pool := New(opt, Config{
		Size:     4,
		Decimals: 4,
		MinProfit: types.ZeroI256(),
		OnProfitable: func(opp types.ArbitrageOpportunity, amountIn types.U256, profit types.I256) {
			if _, dup := seen.LoadOrStore(opp.StartToken, true); dup {
				t.Errorf("duplicate onProfitable invocation for %s", opp.StartToken.Hex())
			}
			atomic.AddInt64(&profitable, 1)
		},
	})
	pool.Start(context.Background())
	for _, opp := range opps {
		pool.Submit(opp)
	}

	deadline := time.Now().Add(5 * time.Second)
	for pool.QueueSize() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pool.Stop()

	require.Equal(t, int64(10), atomic.LoadInt64(&profitable))
	require.Equal(t, 0, pool.QueueSize())
}
