// Package events multiplexes block, pending-transaction, and DEX log
// streams from a ChainGateway into a single ordered event stream, with
// bounded dedup and a polling fallback when push subscriptions are
// unavailable.
package events

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"

	"github.com/arbiter-labs/hyperarb/gateway"
)

// Kind tags which source an Event came from.
type Kind uint8

const (
	KindBlock Kind = iota
	KindPendingTx
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindPendingTx:
		return "pending_tx"
	case KindLog:
		return "log"
	default:
		return "unknown"
	}
}

// Event is one multiplexed item from EventCollector.Stream. Exactly one of
// Block/TxHash/Log is populated, matching Kind.
type Event struct {
	Kind  Kind
	Block *gateway.Block
	TxHash [32]byte
	Log    *gateway.Log
}

// dedupCapacity bounds the LRU dedup set at 10k entries. golang-lru's
// Cache evicts oldest-on-overflow one at a time rather than trimming down
// to a lower watermark in a batch; that's an intentional simplification
// over a two-capacity ring.
const dedupCapacity = 10_000

// logPollMinSeconds/logPollMaxSeconds bound the log-polling timer.
const (
	logPollMinSeconds = 2
	logPollMaxSeconds = 5
)

// dedupSet wraps golang-lru's Cache with the addIfAbsent operation
// Collector needs: atomically report whether a key is new, marking it
// seen either way.
type dedupSet struct {
	c *lru.Cache
}

func newDedupSet() *dedupSet {
	c, err := lru.New(dedupCapacity)
	if err != nil {
		// lru.New only errors on a non-positive size, which dedupCapacity
		// never is.
		panic(err)
	}
	return &dedupSet{c: c}
}

// addIfAbsent reports whether key had not been seen before, inserting it
// either way. A later duplicate returns false.
func (d *dedupSet) addIfAbsent(key any) bool {
	alreadyPresent, _ := d.c.ContainsOrAdd(key, struct{}{})
	return !alreadyPresent
}

// pendingQueueCapacity bounds the PendingTx backpressure queue. The
// PendingTx stream may drop under backpressure; the Block stream never does.
const pendingQueueCapacity = 1_000

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
