package types

import "time"

// ArbitrageOpportunity is a candidate cyclic trade discovered by
// ArbitrageFinder and priced by Optimizer/TradeSimulator.
//
// Invariant: ExpectedProfit is only meaningful relative to the pool
// generations captured in MaxGeneration; once any edge's pool generation
// exceeds MaxGeneration the opportunity must be treated as stale.
type ArbitrageOpportunity struct {
	Path          Path
	StartToken    Address
	InputAmount   U256
	ExpectedProfit I256
	GasEstimate   U256
	Source        OpportunitySource
	CreatedAt     time.Time
	Deadline      *time.Time

	// MaxGeneration is the highest pool generation among Path's edges at
	// the moment this opportunity was valued.
	MaxGeneration uint64
}

// CacheKey is the (startToken, seedPool) composite key OpportunityCache
// indexes by.
type CacheKey struct {
	StartToken Address
	SeedPool   Address
}

// SwapInfo is the minimal decoded-router signal the bot's optional
// mempool/log fast-path consumes. Decoding router calldata
// itself is out of scope; this struct is the external collaborator's output
// contract.
type SwapInfo struct {
	Pool       Address
	TokenIn    Address
	TokenOut   Address
	AmountIn   U256
	Source     OpportunitySource
}

// CacheEntry is the map-side record OpportunityCache keeps per CacheKey
//.
type CacheEntry struct {
	Key        CacheKey
	SwapInfo   SwapInfo
	Generation uint64
	ExpiresAt  time.Time
	Source     OpportunitySource
}

// IsExpired reports whether the entry should be treated as expired relative
// to `now`. Generation here is the cache's own per-key counter, not a pool
// generation: neither CacheEntry nor the cache compares entries against
// live pool state.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// HeapItem is the priority-queue element backing OpportunityCache's
// max-heap, ordered by ExpectedProfit descending. An item whose
// Generation no longer matches the map entry for Key is logically deleted
//.
type HeapItem struct {
	ExpectedProfit I256
	Generation     uint64
	Key            CacheKey
	ExpiresAt      time.Time
}
