// Package bot wires the pipeline together: TokenGraph -> WorkerPool ->
// EventCollector, over a pool-state manager the caller has already
// populated. It does not run pool discovery (PoolIndexer) itself;
// everything else stays decoupled from it.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arbiter-labs/hyperarb/events"
	"github.com/arbiter-labs/hyperarb/gateway"
	"github.com/arbiter-labs/hyperarb/graph"
	"github.com/arbiter-labs/hyperarb/oppcache"
	"github.com/arbiter-labs/hyperarb/optimize"
	"github.com/arbiter-labs/hyperarb/poolstate"
	"github.com/arbiter-labs/hyperarb/simulate"
	"github.com/arbiter-labs/hyperarb/types"
	"github.com/arbiter-labs/hyperarb/worker"
)

// ReenumerateEveryBlocks is K: every K blocks, a full cycle re-enumeration
// is triggered.
const ReenumerateEveryBlocks = 10

// SwapInfoDecoder decodes a router call into a SwapInfo; the ABI-level
// decoding itself stays an external collaborator, so the core only ever
// consumes the already-decoded SwapInfo. A nil decoder disables the fast
// path.
type SwapInfoDecoder interface {
	DecodeSwapInfo(ev events.Event) (types.SwapInfo, bool)
}

// Bot is the ArbitrageBot controller.
type Bot struct {
	gw          gateway.ChainGateway
	manager     *poolstate.Manager
	collector   *events.Collector
	simulator   *simulate.Simulator
	optimizer   *optimize.Optimizer
	pool        *worker.Pool
	cache       *oppcache.Cache
	decoder     SwapInfoDecoder
	baseTokens  []types.Address
	maxHops     int
	maxPools    int
	decimals    uint8
	gasPrice    func() types.U256
	minProfit   types.I256
	log         *slog.Logger

	mu        sync.RWMutex
	graph     *graph.TokenGraph
	pathIndex map[types.CacheKey]types.Path
}

// Config configures a Bot.
type Config struct {
	BaseTokens      []types.Address
	MaxHops         int
	MaxPoolsPerHop  int
	Decimals        uint8
	WorkerPoolSize  int
	CacheTTL        time.Duration
	MinProfit       types.I256
	GasPrice        func() types.U256
	SwapInfoDecoder SwapInfoDecoder
	Logger          *slog.Logger
	WorkerMetrics   worker.Metrics
	CacheMetrics    oppcache.Metrics
	OnProfitable    func(opp types.ArbitrageOpportunity, amountIn types.U256, profit types.I256)
}

// New builds a Bot over the given gateway and pool-state manager.
func New(gw gateway.ChainGateway, manager *poolstate.Manager, cfg Config) *Bot {
	log := cfg.Logger
	if log == nil {
		log = slog.Default().With("component", "bot")
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = func() types.U256 { return types.ZeroU256() }
	}

	sim := simulate.New(manager, log)
	opt := optimize.New(sim, optimize.Config{})

	var cacheOpts []oppcache.Option
	if cfg.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, oppcache.WithTTL(cfg.CacheTTL))
	}
	if cfg.CacheMetrics != nil {
		cacheOpts = append(cacheOpts, oppcache.WithMetrics(cfg.CacheMetrics))
	}
	cache := oppcache.New(cacheOpts...)

	b := &Bot{
		gw: gw, manager: manager, simulator: sim, optimizer: opt, cache: cache,
		decoder: cfg.SwapInfoDecoder, baseTokens: cfg.BaseTokens,
		maxHops: cfg.MaxHops, maxPools: cfg.MaxPoolsPerHop, decimals: cfg.Decimals,
		gasPrice: cfg.GasPrice, minProfit: cfg.MinProfit, log: log,
		pathIndex: make(map[types.CacheKey]types.Path),
	}

	b.pool = worker.New(opt, worker.Config{
		Size: cfg.WorkerPoolSize, Decimals: cfg.Decimals, GasPrice: cfg.GasPrice,
		MinProfit: cfg.MinProfit, OnProfitable: cfg.OnProfitable, Metrics: cfg.WorkerMetrics,
		Logger: log,
	})

	return b
}

// Start builds the initial graph, launches the worker pool, and begins
// consuming the event collector stream. It returns once the pipeline has
// been wired; event processing continues on background goroutines until
// ctx is cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	b.Reenumerate(ctx)

	b.pool.Start(ctx)

	b.collector = events.New(b.gw, events.Config{Logger: b.log})
	stream, err := b.collector.Stream(ctx)
	if err != nil {
		return err
	}

	go b.drainCache(ctx)
	go b.consume(ctx, stream)
	return nil
}

// Stop releases the worker pool and lets the caller's ctx cancellation
// (passed to Start) unwind the event collector and drain goroutines.
func (b *Bot) Stop() {
	b.pool.Stop()
}

// Reenumerate rebuilds the TokenGraph from current pool state and runs
// ArbitrageFinder over it, seeding both the path index (so cache entries
// keyed by (startToken, seedPool) can be resolved back to a full path) and
// the OpportunityCache (K-blocks trigger, and the initial
// build at Start).
func (b *Bot) Reenumerate(ctx context.Context) {
	g := graph.Build(b.manager)
	finder := graph.NewFinder(g, b.maxHops, b.maxPools)

	newIndex := make(map[types.CacheKey]types.Path)
	for opp := range finder.Stream(ctx, b.baseTokens) {
		if len(opp.Path.Edges) == 0 {
			continue
		}
		key := types.CacheKey{StartToken: opp.StartToken, SeedPool: opp.Path.Edges[0].Pool}
		newIndex[key] = opp.Path
		b.cache.Insert(key, types.SwapInfo{
			Pool: opp.Path.Edges[0].Pool, TokenIn: opp.StartToken, TokenOut: opp.Path.Edges[0].ToToken,
		}, types.ZeroI256(), types.SourcePublic)
	}

	b.mu.Lock()
	b.graph = g
	b.pathIndex = newIndex
	b.mu.Unlock()
}

// EnqueueSwapInfo seeds a single targeted candidate from a decoded router
// call, pairing its start token and seed pool. The path is resolved from
// the most recently built graph; if the pool is not part of any known
// cycle yet the candidate is dropped.
func (b *Bot) EnqueueSwapInfo(info types.SwapInfo) {
	b.mu.RLock()
	g := b.graph
	b.mu.RUnlock()
	if g == nil {
		return
	}
	key := types.CacheKey{StartToken: info.TokenIn, SeedPool: info.Pool}
	b.mu.RLock()
	_, ok := b.pathIndex[key]
	b.mu.RUnlock()
	if !ok {
		return
	}
	b.cache.Insert(key, info, types.ZeroI256(), info.Source)
}

// drainCache pops the best candidate periodically and submits it to the
// worker pool, resolving its CacheEntry back to a full Path via the
// current path index. Draining runs concurrently with the worker pool.
func (b *Bot) drainCache(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				entry := b.cache.PopBest()
				if entry == nil {
					break
				}
				b.mu.RLock()
				path, ok := b.pathIndex[entry.Key]
				b.mu.RUnlock()
				if !ok {
					continue
				}
				b.pool.Submit(types.ArbitrageOpportunity{
					Path: path, StartToken: entry.Key.StartToken, Source: entry.Source,
					CreatedAt: time.Now(),
				})
			}
			b.cache.RemoveExpired()
		}
	}
}

// consume reads the multiplexed event stream, triggering a full
// re-enumeration every ReenumerateEveryBlocks blocks and optionally
// decoding a fast-path SwapInfo from logs/pending txs.
func (b *Bot) consume(ctx context.Context, stream <-chan events.Event) {
	var blocks uint64
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			switch ev.Kind {
			case events.KindBlock:
				blocks++
				if blocks%ReenumerateEveryBlocks == 0 {
					b.Reenumerate(ctx)
				}
			case events.KindLog, events.KindPendingTx:
				if b.decoder == nil {
					continue
				}
				if info, ok := b.decoder.DecodeSwapInfo(ev); ok {
					b.EnqueueSwapInfo(info)
				}
			}
		}
	}
}
