package poolstate

import "github.com/arbiter-labs/hyperarb/types"

// EventKind discriminates the mutation a StateEvent applies: PoolCreated,
// PoolUpdated, Swap, LiquidityAdded/Removed.
type EventKind uint8

const (
	EventPoolCreated EventKind = iota
	EventPoolUpdated
	EventSwap
	EventLiquidityAdded
	EventLiquidityRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventPoolCreated:
		return "PoolCreated"
	case EventPoolUpdated:
		return "PoolUpdated"
	case EventSwap:
		return "Swap"
	case EventLiquidityAdded:
		return "LiquidityAdded"
	case EventLiquidityRemoved:
		return "LiquidityRemoved"
	default:
		return "Unknown"
	}
}

// StateEvent is a single mutation applied to the pool index.
// Only the fields relevant to Kind are read; the zero value of the rest is
// ignored.
type StateEvent struct {
	Kind EventKind

	// Pool identifies the target for every kind except EventPoolCreated,
	// where the address is taken from NewPool.Address instead.
	Pool types.Address

	// NewPool is required for EventPoolCreated and carries the pool's full
	// initial state.
	NewPool *types.Pool

	// FeeBps, if non-nil, is an absolute fee update (EventPoolUpdated).
	FeeBps *uint32

	// Reserves, if non-nil, is an absolute reserve replacement
	// (EventPoolUpdated) for constant-product pools.
	Reserves *[2]types.U256

	// SwapTokenIn/SwapAmountIn/SwapAmountOut describe a constant-product
	// swap's effect on reserves (EventSwap): reserve[TokenIn] += AmountIn,
	// reserve[TokenOut] -= AmountOut.
	SwapTokenIn   types.Address
	SwapAmountIn  types.U256
	SwapAmountOut types.U256

	// NewSqrtPriceX96/NewLiquidity, if non-nil, directly replace a
	// concentrated-liquidity pool's price/liquidity state (EventSwap,
	// EventLiquidityAdded, EventLiquidityRemoved), matching how V3-style
	// pools report post-action state rather than deltas.
	NewSqrtPriceX96 *types.U256
	NewLiquidity    *types.U256

	// DeltaReserves, if non-nil, is a reserve delta applied by
	// EventLiquidityAdded/EventLiquidityRemoved on constant-product pools.
	DeltaReserves *[2]types.U256
}
