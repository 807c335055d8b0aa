package poolstate

import (
	"os"
	"testing"

	"github.com/arbiter-labs/hyperarb/types"
	"github.com/stretchr/testify/require"
)

func testPool(addr byte, a, b types.Address, r0, r1 uint64) *types.Pool {
	reserves := [2]types.U256{types.NewU256FromUint64(r0), types.NewU256FromUint64(r1)}
	var paddr types.Address
	paddr[19] = addr
	return &types.Pool{
		Address:  paddr,
		Protocol: types.ProtocolHyperSwapV2,
		Tokens:   [2]types.Address{a, b},
		Reserves: &reserves,
	}
}

func mkAddr(last byte) types.Address {
	var a types.Address
	a[19] = last
	return a
}

func TestApplyEventUnknownPoolDropped(t *testing.T) {
	m := NewManager()
	err := m.ApplyEvent(StateEvent{Kind: EventSwap, Pool: mkAddr(99)})
	require.ErrorIs(t, err, ErrUnknownPool)
	require.Equal(t, uint64(0), m.Generation())
}

func TestApplyEventGenerationDiscipline(t *testing.T) {
	m := NewManager()
	a, b := mkAddr(1), mkAddr(2)
	pool := testPool(10, a, b, 1000, 2000)

	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: pool}))
	got, ok := m.PoolByAddress(pool.Address)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.Generation)
	require.Equal(t, uint64(1), m.Generation())

	require.NoError(t, m.ApplyEvent(StateEvent{
		Kind:          EventSwap,
		Pool:          pool.Address,
		SwapTokenIn:   a,
		SwapAmountIn:  types.NewU256FromUint64(100),
		SwapAmountOut: types.NewU256FromUint64(150),
	}))
	got, _ = m.PoolByAddress(pool.Address)
	require.Equal(t, uint64(2), got.Generation)
	require.Equal(t, uint64(2), m.Generation())
	require.Equal(t, "1100", got.Reserves[0].String())
	require.Equal(t, "1850", got.Reserves[1].String())
}

func TestApplyEventDuplicatePoolRejected(t *testing.T) {
	m := NewManager()
	a, b := mkAddr(1), mkAddr(2)
	pool := testPool(10, a, b, 1000, 2000)
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: pool}))
	err := m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: pool})
	require.ErrorIs(t, err, ErrDuplicatePool)
}

func TestIndexLookups(t *testing.T) {
	m := NewManager()
	a, b, c := mkAddr(1), mkAddr(2), mkAddr(3)
	p1 := testPool(10, a, b, 1, 1)
	p2 := testPool(11, b, c, 1, 1)
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: p1}))
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: p2}))

	require.Len(t, m.PoolsByToken(b), 2)
	require.Len(t, m.PoolsByToken(a), 1)
	require.Len(t, m.PoolsByPair(a, b), 1)
	require.Len(t, m.PoolsByPair(b, a), 1)
	require.Len(t, m.PoolsByProtocol(types.ProtocolHyperSwapV2), 2)
	require.Len(t, m.Snapshot(), 2)
}

func TestGenerationMatchesEventCount(t *testing.T) {
	m := NewManager()
	a, b := mkAddr(1), mkAddr(2)
	pool := testPool(10, a, b, 1_000_000, 1_000_000)
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: pool}))

	events := 1
	for i := 0; i < 5; i++ {
		require.NoError(t, m.ApplyEvent(StateEvent{
			Kind:          EventSwap,
			Pool:          pool.Address,
			SwapTokenIn:   a,
			SwapAmountIn:  types.NewU256FromUint64(10),
			SwapAmountOut: types.NewU256FromUint64(9),
		}))
		events++
	}
	got, _ := m.PoolByAddress(pool.Address)
	require.Equal(t, uint64(events), got.Generation)
	require.Equal(t, uint64(events), m.Generation())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	a, b := mkAddr(1), mkAddr(2)
	pool := testPool(10, a, b, 123456789, 987654321)
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: pool}))
	require.NoError(t, m.SaveToCache(dir, 999))

	m2 := NewManager()
	require.NoError(t, m2.LoadFromCache(dir, 999))
	got, ok := m2.PoolByAddress(pool.Address)
	require.True(t, ok)
	require.Equal(t, pool.Reserves[0].String(), got.Reserves[0].String())
	require.Equal(t, pool.Reserves[1].String(), got.Reserves[1].String())

	data, err := os.ReadFile(cacheFileName(dir, 999))
	require.NoError(t, err)
	require.Contains(t, string(data), `"123456789"`)
}

func TestLoadFromCacheMissingFileIsNotAnError(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.LoadFromCache(t.TempDir(), 42))
	require.Empty(t, m.Snapshot())
}

func TestLoadFromCacheVersionMismatchIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(cacheFileName(dir, 1), []byte(`{"version":99,"chainId":1,"pools":[]}`), 0o644))
	m := NewManager()
	require.NoError(t, m.LoadFromCache(dir, 1))
	require.Empty(t, m.Snapshot())
}

func TestSubscribeUnsubscribe(t *testing.T) {
	m := NewManager()
	var count int
	unsub := m.Subscribe(func(StateEvent) { count++ })

	a, b := mkAddr(1), mkAddr(2)
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: testPool(10, a, b, 1, 1)}))
	require.Equal(t, 1, count)

	unsub()
	require.NoError(t, m.ApplyEvent(StateEvent{Kind: EventPoolCreated, NewPool: testPool(11, b, a, 1, 1)}))
	require.Equal(t, 1, count)
}
