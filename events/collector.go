package events

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/arbiter-labs/hyperarb/gateway"
	"github.com/arbiter-labs/hyperarb/types"
)

// Collector fans block, pending-tx, and DEX log streams from a
// ChainGateway into one Event channel. Ordering is per-source FIFO only;
// there is no guaranteed ordering across sources.
type Collector struct {
	gw  gateway.ChainGateway
	log *slog.Logger

	dedupTx  *dedupSet
	dedupLog *dedupSet

	logAddresses []types.Address
	fromBlock    uint64

	blockQueue *unboundedQueue[*gateway.Block]
	pendingCh  chan [32]byte

	unsubBlocks gateway.UnsubscribeFunc
	unsubTx     gateway.UnsubscribeFunc
}

// Config configures a Collector.
type Config struct {
	LogAddresses []types.Address
	StartBlock   uint64
	Logger       *slog.Logger
}

// New builds a Collector. Call Stream to start consuming.
func New(gw gateway.ChainGateway, cfg Config) *Collector {
	return &Collector{
		gw:           gw,
		log:          logger(cfg.Logger),
		dedupTx:      newDedupSet(),
		dedupLog:     newDedupSet(),
		logAddresses: cfg.LogAddresses,
		fromBlock:    cfg.StartBlock,
		blockQueue:   newUnboundedQueue[*gateway.Block](),
		pendingCh:    make(chan [32]byte, pendingQueueCapacity),
	}
}

// Stream starts the block watch, pending-tx watch, and log-polling loop,
// and returns the multiplexed Event channel. Cancelling ctx unsubscribes
// from everything and closes the returned channel (cancellation
// contract).
func (c *Collector) Stream(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event, 256)

	unsubBlocks, err := c.gw.WatchBlocks(ctx, func(b *gateway.Block) {
		c.blockQueue.push(b)
	})
	if err != nil {
		c.log.Warn("events: block subscription unavailable, falling back to polling", "err", err)
		go c.pollBlocks(ctx)
	} else {
		c.unsubBlocks = unsubBlocks
	}

	unsubTx, err := c.gw.WatchPendingTransactions(ctx, func(hashes [][32]byte) {
		for _, h := range hashes {
			c.offerPending(h)
		}
	})
	if err != nil {
		c.log.Warn("events: pending-tx subscription unavailable", "err", err)
	} else {
		c.unsubTx = unsubTx
	}

	var senders sync.WaitGroup
	senders.Add(3)
	go func() { defer senders.Done(); c.forwardBlocks(ctx, out) }()
	go func() { defer senders.Done(); c.forwardPending(ctx, out) }()
	go func() { defer senders.Done(); c.pollLogs(ctx, out) }()

	go func() {
		<-ctx.Done()
		c.stopSubscriptions()
		c.blockQueue.close()
		senders.Wait()
		close(out)
	}()

	return out, nil
}

func (c *Collector) stopSubscriptions() {
	if c.unsubBlocks != nil {
		c.unsubBlocks()
	}
	if c.unsubTx != nil {
		c.unsubTx()
	}
}

// offerPending enqueues a pending-tx hash, deduping and dropping on a full
// queue ("PendingTx stream may drop (bounded queue)").
func (c *Collector) offerPending(hash [32]byte) {
	if !c.dedupTx.addIfAbsent(hash) {
		return
	}
	select {
	case c.pendingCh <- hash:
	default:
		c.log.Warn("events: pending-tx queue full, dropping", "hash", hash)
	}
}

func (c *Collector) forwardBlocks(ctx context.Context, out chan<- Event) {
	for {
		b, ok := c.blockQueue.pop()
		if !ok {
			return
		}
		select {
		case out <- Event{Kind: KindBlock, Block: b}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) forwardPending(ctx context.Context, out chan<- Event) {
	for {
		select {
		case h := <-c.pendingCh:
			select {
			case out <- Event{Kind: KindPendingTx, TxHash: h}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// pollBlocks is the fallback used when WatchBlocks is unsupported: poll
// GetBlockNumber and fetch any new blocks by number.
func (c *Collector) pollBlocks(ctx context.Context) {
	ticker := time.NewTicker(pollInterval())
	defer ticker.Stop()
	var lastSeen uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head, err := c.gw.GetBlockNumber(ctx)
			if err != nil {
				c.log.Warn("events: poll block number failed", "err", err)
				continue
			}
			for n := lastSeen + 1; n <= head && lastSeen != 0; n++ {
				b, err := c.gw.GetBlock(ctx, itoa(n), false)
				if err != nil || b == nil {
					continue
				}
				c.blockQueue.push(b)
			}
			lastSeen = head
		}
	}
}

// pollLogs implements log-polling fallback: poll on a 2-5s
// timer; on a too-big-range error, halve the range and retry once; only
// advance fromBlock on success.
func (c *Collector) pollLogs(ctx context.Context, out chan<- Event) {
	ticker := time.NewTicker(pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head, err := c.gw.GetBlockNumber(ctx)
			if err != nil {
				c.log.Warn("events: poll gas getBlockNumber failed", "err", err)
				continue
			}
			if c.fromBlock == 0 {
				c.fromBlock = head
				continue
			}
			if head < c.fromBlock {
				continue
			}
			c.pollLogRange(ctx, c.fromBlock, head, out, true)
		}
	}
}

func (c *Collector) pollLogRange(ctx context.Context, from, to uint64, out chan<- Event, allowRetry bool) {
	logs, err := c.gw.GetLogs(ctx, gateway.LogFilter{Address: c.logAddresses, FromBlock: from, ToBlock: to})
	if err != nil {
		var tooBig *gateway.ResponseTooBig
		if errors.As(err, &tooBig) && allowRetry && to > from {
			mid := from + (to-from)/2
			c.log.Warn("events: getLogs response too big, halving range", "from", from, "to", to, "mid", mid)
			c.pollLogRange(ctx, from, mid, out, false)
			return
		}
		c.log.Warn("events: getLogs failed, will retry next tick", "from", from, "to", to, "err", err)
		return
	}

	for _, l := range logs {
		key := logDedupKey(l)
		if !c.dedupLog.addIfAbsent(key) {
			continue
		}
		lCopy := l
		select {
		case out <- Event{Kind: KindLog, Log: &lCopy}:
		case <-ctx.Done():
			return
		}
	}
	c.fromBlock = to + 1
}

func logDedupKey(l gateway.Log) [40]byte {
	var key [40]byte
	copy(key[:32], l.TxHash[:])
	var idx [8]byte
	for i := 0; i < 8; i++ {
		idx[i] = byte(l.LogIndex >> (8 * (7 - i)))
	}
	copy(key[32:], idx[:])
	return key
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// pollInterval picks a jittered 2-5s interval
func pollInterval() time.Duration {
	base := logPollMinSeconds
	spread := logPollMaxSeconds - logPollMinSeconds
	return time.Duration(base)*time.Second + time.Duration(rand.Intn(spread*1000))*time.Millisecond
}
