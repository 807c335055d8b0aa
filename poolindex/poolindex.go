// Package poolindex discovers pools by querying DEX factories and
// enumerating pairs, feeding the discovered pools into a poolstate.Manager.
//
// ABI-level decoding of a factory's raw contract-call results stays an
// injected concern: this package only orchestrates which calls to make,
// how to page through them, and what to do with the already-decoded
// values a FactoryReader/LogDecoder hands back.
package poolindex

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arbiter-labs/hyperarb/gateway"
	"github.com/arbiter-labs/hyperarb/poolstate"
	"github.com/arbiter-labs/hyperarb/types"
)

// DefaultPageSize bounds how many pairs DiscoverFactory requests per
// factory round-trip.
const DefaultPageSize = 256

// FactoryReader is the decoded view onto a DEX factory contract that an
// Indexer pages through. Implementations own the ABI decoding; the
// reference gateway.JSONRPC client does not implement this itself.
type FactoryReader interface {
	// PairCount returns the total number of pairs/pools the factory has
	// created (e.g. Uniswap-V2-style allPairsLength).
	PairCount(ctx context.Context, factory types.Address) (uint64, error)
	// PairAtIndex returns the pool address at position idx (allPairs(idx)).
	PairAtIndex(ctx context.Context, factory types.Address, idx uint64) (types.Address, error)
	// PoolTokens returns a pool's two constituent tokens (token0/token1).
	PoolTokens(ctx context.Context, pool types.Address) (types.Address, types.Address, error)
}

// LogDecoder turns a raw PoolCreated/PairCreated log into a types.Pool.
// ok is false when the log does not match a known creation-event
// signature; that's not an error, just a log to drop.
type LogDecoder interface {
	DecodePoolCreated(log gateway.Log) (pool *types.Pool, ok bool, err error)
}

// Indexer implements PoolIndexer ( step 2, SPEC_FULL.md's
// "Additional core module: PoolIndexer").
type Indexer struct {
	gw         gateway.ChainGateway
	manager    *poolstate.Manager
	reader     FactoryReader
	logDecoder LogDecoder
	pageSize   uint64
	log        *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n uint64) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.pageSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.log = l }
}

// New builds an Indexer writing discovered pools into manager.
func New(gw gateway.ChainGateway, manager *poolstate.Manager, reader FactoryReader, logDecoder LogDecoder, opts ...Option) *Indexer {
	ix := &Indexer{
		gw: gw, manager: manager, reader: reader, logDecoder: logDecoder,
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.log == nil {
		ix.log = slog.Default().With("component", "poolindex")
	}
	return ix
}

// DiscoverFactory paginates allPairsLength/allPairs-style enumeration
// calls against factory, emitting a PoolCreated event for every
// not-yet-known pool it finds, bounded by Indexer's page size and ctx's
// deadline. Returns the count of newly discovered pools.
func (ix *Indexer) DiscoverFactory(ctx context.Context, factory types.Address, protocol types.Protocol) (int, error) {
	count, err := ix.reader.PairCount(ctx, factory)
	if err != nil {
		return 0, err
	}

	discovered := 0
	for idx := uint64(0); idx < count; idx += ix.pageSize {
		end := idx + ix.pageSize
		if end > count {
			end = count
		}
		for i := idx; i < end; i++ {
			select {
			case <-ctx.Done():
				return discovered, ctx.Err()
			default:
			}
			n, err := ix.discoverOne(ctx, factory, i, protocol)
			if err != nil {
				ix.log.Warn("poolindex: discover pair failed, skipping", "factory", factory, "index", i, "err", err)
				continue
			}
			if n {
				discovered++
			}
		}
	}
	return discovered, nil
}

func (ix *Indexer) discoverOne(ctx context.Context, factory types.Address, idx uint64, protocol types.Protocol) (bool, error) {
	addr, err := ix.reader.PairAtIndex(ctx, factory, idx)
	if err != nil {
		return false, err
	}
	if _, known := ix.manager.PoolByAddress(addr); known {
		return false, nil
	}
	t0, t1, err := ix.reader.PoolTokens(ctx, addr)
	if err != nil {
		return false, err
	}
	return ix.emitCreated(&types.Pool{
		Address: addr, Protocol: protocol, Tokens: [2]types.Address{t0, t1},
	})
}

func (ix *Indexer) emitCreated(pool *types.Pool) (bool, error) {
	err := ix.manager.ApplyEvent(poolstate.StateEvent{Kind: poolstate.EventPoolCreated, NewPool: pool})
	if err != nil {
		if errors.Is(err, poolstate.ErrDuplicatePool) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DiscoverFromLogs reads pool-creation logs from factories over
// [fromBlock, toBlock] and registers pools not yet known. When GetLogs
// reports the range is too big it splits the range once and queries both
// halves, since catch-up discovery hits the same upstream limits as live
// log polling.
func (ix *Indexer) DiscoverFromLogs(ctx context.Context, fromBlock, toBlock uint64, factories []types.Address) (int, error) {
	return ix.discoverRange(ctx, fromBlock, toBlock, factories, true)
}

func (ix *Indexer) discoverRange(ctx context.Context, from, to uint64, factories []types.Address, allowRetry bool) (int, error) {
	logs, err := ix.gw.GetLogs(ctx, gateway.LogFilter{Address: factories, FromBlock: from, ToBlock: to})
	if err != nil {
		var tooBig *gateway.ResponseTooBig
		if errors.As(err, &tooBig) && allowRetry && to > from {
			mid := from + (to-from)/2
			ix.log.Warn("poolindex: getLogs response too big, halving range", "from", from, "to", to, "mid", mid)
			n1, err1 := ix.discoverRange(ctx, from, mid, factories, false)
			if err1 != nil {
				return n1, err1
			}
			n2, err2 := ix.discoverRange(ctx, mid+1, to, factories, false)
			return n1 + n2, err2
		}
		return 0, err
	}

	discovered := 0
	for _, l := range logs {
		pool, ok, err := ix.logDecoder.DecodePoolCreated(l)
		if err != nil {
			ix.log.Warn("poolindex: malformed PoolCreated log, dropping", "tx", l.TxHash, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if _, known := ix.manager.PoolByAddress(pool.Address); known {
			continue
		}
		added, err := ix.emitCreated(pool)
		if err != nil {
			ix.log.Warn("poolindex: apply discovered pool failed", "pool", pool.Address, "err", err)
			continue
		}
		if added {
			discovered++
		}
	}
	return discovered, nil
}
