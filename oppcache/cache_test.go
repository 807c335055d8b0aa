package oppcache

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/types"
)

func bigFromInt(n int64) *big.Int { return big.NewInt(n) }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func key(startLast, seedLast byte) types.CacheKey {
	var s, p types.Address
	s[19], p[19] = startLast, seedLast
	return types.CacheKey{StartToken: s, SeedPool: p}
}

func profit(n int64) types.I256 {
	return types.NewI256FromBig(bigFromInt(n))
}

func TestPopBestOrdersByProfitDescending(t *testing.T) {
	c := New()
	c.Insert(key(1, 1), types.SwapInfo{}, profit(10), types.SourcePublic)
	c.Insert(key(2, 2), types.SwapInfo{}, profit(50), types.SourcePublic)
	c.Insert(key(3, 3), types.SwapInfo{}, profit(20), types.SourcePublic)

	first := c.PopBest()
	require.NotNil(t, first)
	require.Equal(t, key(2, 2), first.Key)

	second := c.PopBest()
	require.Equal(t, key(3, 3), second.Key)

	third := c.PopBest()
	require.Equal(t, key(1, 1), third.Key)

	require.Nil(t, c.PopBest())
}

// TestPopBestSkipsOverwrittenEntry verifies popBest never returns an item
// whose map entry has been overwritten by a later insert for the same key.
func TestPopBestSkipsOverwrittenEntry(t *testing.T) {
	c := New()
	c.Insert(key(1, 1), types.SwapInfo{AmountIn: types.NewU256FromUint64(1)}, profit(10), types.SourcePublic)
	c.Insert(key(1, 1), types.SwapInfo{AmountIn: types.NewU256FromUint64(2)}, profit(5), types.SourcePublic)

	got := c.PopBest()
	require.NotNil(t, got)
	require.Equal(t, "2", got.SwapInfo.AmountIn.String())
	require.Nil(t, c.PopBest())
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New(WithTTL(time.Millisecond), WithClock(clock))
	c.Insert(key(1, 1), types.SwapInfo{}, profit(10), types.SourcePublic)

	clock.now = clock.now.Add(2 * time.Millisecond)
	require.Nil(t, c.PopBest())

	removed := c.RemoveExpired()
	require.GreaterOrEqual(t, removed, 0)
	require.Equal(t, 0, c.Size())
}

func TestClear(t *testing.T) {
	c := New()
	c.Insert(key(1, 1), types.SwapInfo{}, profit(10), types.SourcePublic)
	c.Insert(key(2, 2), types.SwapInfo{}, profit(20), types.SourcePublic)
	require.Equal(t, 2, c.Size())
	c.Clear()
	require.Equal(t, 0, c.Size())
	require.Nil(t, c.PopBest())
}
