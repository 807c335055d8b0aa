package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbiter-labs/hyperarb/gateway"
)

func mkHash(last byte) [32]byte {
	var h [32]byte
	h[31] = last
	return h
}

// TestOfferPendingDedupsRepeatedHash checks that the same pending-tx hash
// delivered twice is only enqueued once.
func TestOfferPendingDedupsRepeatedHash(t *testing.T) {
	c := New(gateway.NewMock(), Config{})
	h := mkHash(1)

	c.offerPending(h)
	c.offerPending(h)
	c.offerPending(h)

	require.Len(t, c.pendingCh, 1)
	got := <-c.pendingCh
	require.Equal(t, h, got)
	require.Len(t, c.pendingCh, 0)
}

// TestOfferPendingAllowsDistinctHashes checks that distinct hashes are not
// suppressed by the dedup set.
func TestOfferPendingAllowsDistinctHashes(t *testing.T) {
	c := New(gateway.NewMock(), Config{})
	c.offerPending(mkHash(1))
	c.offerPending(mkHash(2))
	require.Len(t, c.pendingCh, 2)
}

// TestPollLogRangeDedupsRepeatedLog drives two polls over overlapping
// ranges and checks the second poll does not redeliver a log the first
// poll already emitted.
func TestPollLogRangeDedupsRepeatedLog(t *testing.T) {
	gw := gateway.NewMock()
	gw.AddLogs(gateway.Log{TxHash: mkHash(1), LogIndex: 0, BlockNumber: 5})

	c := New(gw, Config{})
	out := make(chan Event, 8)
	ctx := context.Background()

	c.pollLogRange(ctx, 0, 10, out, true)
	c.pollLogRange(ctx, 0, 10, out, true)

	require.Len(t, out, 1)
}

// TestPollLogRangeEmitsDistinctLogs checks that logs with different
// (TxHash, LogIndex) keys are not suppressed by each other.
func TestPollLogRangeEmitsDistinctLogs(t *testing.T) {
	gw := gateway.NewMock()
	gw.AddLogs(
		gateway.Log{TxHash: mkHash(1), LogIndex: 0, BlockNumber: 5},
		gateway.Log{TxHash: mkHash(1), LogIndex: 1, BlockNumber: 5},
		gateway.Log{TxHash: mkHash(2), LogIndex: 0, BlockNumber: 5},
	)

	c := New(gw, Config{})
	out := make(chan Event, 8)
	c.pollLogRange(context.Background(), 0, 10, out, true)

	require.Len(t, out, 3)
}
