// Package poolstate is the authoritative in-memory store of pool state
//: four indexes over a generation-stamped pool set, with
// event-driven mutation and a local JSON cache for warm restarts.
package poolstate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbiter-labs/hyperarb/types"
)

// ErrUnknownPool is returned when a mutation event (Swap, LiquidityAdded/
// Removed, PoolUpdated) references a pool the manager has not seen a
// PoolCreated for yet. Such events are dropped with a warning by the
// caller, not treated as fatal.
var ErrUnknownPool = errors.New("poolstate: unknown pool")

// ErrDuplicatePool is returned when a PoolCreated event names an address
// already present in the index.
var ErrDuplicatePool = errors.New("poolstate: duplicate pool")

// ErrBadPool is returned when a PoolCreated event's pool fails Pool.Validate.
var ErrBadPool = errors.New("poolstate: invalid pool")

// Metrics is the hit/miss counter hook for the four indexes. The metrics
// package supplies a Prometheus implementation; nil is a valid no-op.
type Metrics interface {
	IndexHit(index string)
	IndexMiss(index string)
}

type noopMetrics struct{}

func (noopMetrics) IndexHit(string)  {}
func (noopMetrics) IndexMiss(string) {}

// Clock abstracts time.Now for deterministic tests.
type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager is the pool-state singleton per chain: the only process-wide
// state is the Manager itself and its generation counter. Tests construct
// a fresh Manager rather than sharing a package-level instance.
type Manager struct {
	mu    sync.RWMutex
	pools map[types.Address]*types.Pool

	byToken    map[types.Address]map[types.Address]struct{}
	byPair     map[string]map[types.Address]struct{}
	byProtocol map[types.Protocol]map[types.Address]struct{}

	generation atomic.Uint64

	subsMu  sync.Mutex
	subs    map[int]func(StateEvent)
	nextSub int

	metrics Metrics
	clock   Clock
	log     *slog.Logger
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithMetrics installs a hit/miss counter sink.
func WithMetrics(m Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClock overrides the time source (tests only).
func WithClock(c Clock) Option {
	return func(mgr *Manager) { mgr.clock = c }
}

// WithLogger attaches a logger; defaults to slog.Default() tagged
// component=poolstate.
func WithLogger(l *slog.Logger) Option {
	return func(mgr *Manager) { mgr.log = l }
}

// NewManager returns an empty Manager with generation 0.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		pools:      make(map[types.Address]*types.Pool),
		byToken:    make(map[types.Address]map[types.Address]struct{}),
		byPair:     make(map[string]map[types.Address]struct{}),
		byProtocol: make(map[types.Protocol]map[types.Address]struct{}),
		subs:       make(map[int]func(StateEvent)),
		metrics:    noopMetrics{},
		clock:      realClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default().With("component", "poolstate")
	}
	return m
}

// Generation returns the current process-wide generation counter.
func (m *Manager) Generation() uint64 { return m.generation.Load() }

// ApplyEvent merges a mutation into the index, incrementing the affected
// pool's generation and the manager's global generation counter.
// Swap/liquidity/update events referencing an unknown pool return
// ErrUnknownPool without mutating anything; PoolCreated events naming an
// already-known address return ErrDuplicatePool.
func (m *Manager) ApplyEvent(ev StateEvent) error {
	switch ev.Kind {
	case EventPoolCreated:
		return m.applyCreate(ev)
	case EventPoolUpdated:
		return m.applyUpdate(ev)
	case EventSwap:
		return m.applySwap(ev)
	case EventLiquidityAdded, EventLiquidityRemoved:
		return m.applyLiquidity(ev)
	default:
		return fmt.Errorf("poolstate: unknown event kind %d", ev.Kind)
	}
}

func (m *Manager) applyCreate(ev StateEvent) error {
	if ev.NewPool == nil {
		return fmt.Errorf("%w: PoolCreated missing NewPool", ErrBadPool)
	}
	pool := ev.NewPool.Clone()
	if err := pool.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPool, err)
	}

	m.mu.Lock()
	if _, exists := m.pools[pool.Address]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicatePool, pool.Address)
	}
	gen := m.bumpGeneration()
	pool.Generation = gen
	pool.LastUpdated = m.clock.Now().UnixMilli()
	m.pools[pool.Address] = pool
	m.indexInsert(pool)
	m.mu.Unlock()

	m.notify(ev)
	return nil
}

func (m *Manager) applyUpdate(ev StateEvent) error {
	m.mu.Lock()
	pool, ok := m.pools[ev.Pool]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPool, ev.Pool)
	}
	if ev.FeeBps != nil {
		fee := *ev.FeeBps
		pool.FeeBps = &fee
	}
	if ev.Reserves != nil {
		r := *ev.Reserves
		pool.Reserves = &r
	}
	m.touch(pool)
	m.mu.Unlock()

	m.notify(ev)
	return nil
}

func (m *Manager) applySwap(ev StateEvent) error {
	m.mu.Lock()
	pool, ok := m.pools[ev.Pool]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPool, ev.Pool)
	}

	if ev.NewSqrtPriceX96 != nil || ev.NewLiquidity != nil {
		if ev.NewSqrtPriceX96 != nil {
			v := *ev.NewSqrtPriceX96
			pool.SqrtPriceX96 = &v
		}
		if ev.NewLiquidity != nil {
			v := *ev.NewLiquidity
			pool.Liquidity = &v
		}
	} else if pool.Reserves != nil {
		if out, ok := pool.OtherToken(ev.SwapTokenIn); ok {
			applyReserveDelta(pool, ev.SwapTokenIn, ev.SwapAmountIn, true)
			applyReserveDelta(pool, out, ev.SwapAmountOut, false)
		}
	}
	m.touch(pool)
	m.mu.Unlock()

	m.notify(ev)
	return nil
}

func (m *Manager) applyLiquidity(ev StateEvent) error {
	m.mu.Lock()
	pool, ok := m.pools[ev.Pool]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPool, ev.Pool)
	}

	add := ev.Kind == EventLiquidityAdded
	if ev.NewLiquidity != nil {
		v := *ev.NewLiquidity
		pool.Liquidity = &v
	} else if ev.DeltaReserves != nil && pool.Reserves != nil {
		applyReserveDelta(pool, pool.Tokens[0], ev.DeltaReserves[0], add)
		applyReserveDelta(pool, pool.Tokens[1], ev.DeltaReserves[1], add)
	}
	if ev.NewSqrtPriceX96 != nil {
		v := *ev.NewSqrtPriceX96
		pool.SqrtPriceX96 = &v
	}
	m.touch(pool)
	m.mu.Unlock()

	m.notify(ev)
	return nil
}

// applyReserveDelta adds (or subtracts) amount from the reserve side
// matching token. Caller holds m.mu.
func applyReserveDelta(pool *types.Pool, token types.Address, amount types.U256, add bool) {
	if pool.Reserves == nil || amount.IsZero() {
		return
	}
	var idx int
	switch token {
	case pool.Tokens[0]:
		idx = 0
	case pool.Tokens[1]:
		idx = 1
	default:
		return
	}
	cur := pool.Reserves[idx].Int()
	if add {
		cur.Add(cur, amount.Int())
	} else if cur.Cmp(amount.Int()) >= 0 {
		cur.Sub(cur, amount.Int())
	} else {
		cur.Clear()
	}
}

// bumpGeneration increments and returns the new global generation counter.
// Caller holds m.mu.
func (m *Manager) bumpGeneration() uint64 {
	return m.generation.Add(1)
}

// touch stamps pool with a fresh generation and timestamp. Caller holds m.mu.
func (m *Manager) touch(pool *types.Pool) {
	pool.Generation = m.bumpGeneration()
	pool.LastUpdated = m.clock.Now().UnixMilli()
}

func (m *Manager) indexInsert(pool *types.Pool) {
	for _, tok := range pool.Tokens {
		set, ok := m.byToken[tok]
		if !ok {
			set = make(map[types.Address]struct{})
			m.byToken[tok] = set
		}
		set[pool.Address] = struct{}{}
	}
	pairKey := types.PairKey(pool.Tokens[0], pool.Tokens[1])
	set, ok := m.byPair[pairKey]
	if !ok {
		set = make(map[types.Address]struct{})
		m.byPair[pairKey] = set
	}
	set[pool.Address] = struct{}{}

	pset, ok := m.byProtocol[pool.Protocol]
	if !ok {
		pset = make(map[types.Address]struct{})
		m.byProtocol[pool.Protocol] = pset
	}
	pset[pool.Address] = struct{}{}
}

func (m *Manager) indexRemove(pool *types.Pool) {
	for _, tok := range pool.Tokens {
		delete(m.byToken[tok], pool.Address)
	}
	delete(m.byPair[types.PairKey(pool.Tokens[0], pool.Tokens[1])], pool.Address)
	delete(m.byProtocol[pool.Protocol], pool.Address)
}

// PoolByAddress returns a cloned snapshot of the pool, or (nil, false).
func (m *Manager) PoolByAddress(addr types.Address) (*types.Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[addr]
	if !ok {
		m.metrics.IndexMiss("byAddress")
		return nil, false
	}
	m.metrics.IndexHit("byAddress")
	return p.Clone(), true
}

// PoolsByToken returns cloned snapshots of every pool containing token.
func (m *Manager) PoolsByToken(token types.Address) []*types.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.byToken[token]
	if len(set) == 0 {
		m.metrics.IndexMiss("byToken")
		return nil
	}
	m.metrics.IndexHit("byToken")
	return m.snapshotSet(set)
}

// PoolsByPair returns cloned snapshots of every pool trading between a and b.
func (m *Manager) PoolsByPair(a, b types.Address) []*types.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.byPair[types.PairKey(a, b)]
	if len(set) == 0 {
		m.metrics.IndexMiss("byPair")
		return nil
	}
	m.metrics.IndexHit("byPair")
	return m.snapshotSet(set)
}

// PoolsByProtocol returns cloned snapshots of every pool of the given protocol.
func (m *Manager) PoolsByProtocol(p types.Protocol) []*types.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.byProtocol[p]
	if len(set) == 0 {
		m.metrics.IndexMiss("byProtocol")
		return nil
	}
	m.metrics.IndexHit("byProtocol")
	return m.snapshotSet(set)
}

func (m *Manager) snapshotSet(set map[types.Address]struct{}) []*types.Pool {
	out := make([]*types.Pool, 0, len(set))
	for addr := range set {
		if p, ok := m.pools[addr]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Snapshot returns a stable, restartable iterator over every known pool:
// a slice of clones, safe to range over while the manager continues to
// mutate its live state concurrently.
func (m *Manager) Snapshot() []*types.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Pool, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Clone())
	}
	return out
}

// RemovePool deletes a pool from every index. Not used by the normal
// pipeline (pools are never deleted per lifecycle); exposed for
// tests and administrative tooling.
func (m *Manager) RemovePool(addr types.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[addr]
	if !ok {
		return false
	}
	m.indexRemove(p)
	delete(m.pools, addr)
	return true
}

// Subscribe registers callback to be invoked (synchronously, on the
// goroutine that called ApplyEvent) for every successfully applied event.
// It returns an unsubscribe handle.
func (m *Manager) Subscribe(callback func(StateEvent)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = callback
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

func (m *Manager) notify(ev StateEvent) {
	m.subsMu.Lock()
	cbs := make([]func(StateEvent), 0, len(m.subs))
	for _, cb := range m.subs {
		cbs = append(cbs, cb)
	}
	m.subsMu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}
