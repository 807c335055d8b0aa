// Package simulate prices a candidate trade path against current pool
// state: per-protocol AMM math, per-hop gas estimation, and a
// fingerprint-keyed memoization cache so repeated optimizer samples over
// the same path/amount/gas-price do not re-walk the path.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"github.com/arbiter-labs/hyperarb/types"
)

// PoolLookup is the narrow read surface simulate needs from a pool store;
// poolstate.Manager satisfies it without an import cycle.
type PoolLookup interface {
	PoolByAddress(addr types.Address) (*types.Pool, bool)
}

// ErrUnknownPool is returned when a path references a pool the lookup does
// not know about.
type ErrUnknownPool struct{ Pool types.Address }

func (e *ErrUnknownPool) Error() string {
	return fmt.Sprintf("simulate: unknown pool %s", e.Pool.Hex())
}

// Result is the outcome of pricing one path at one input amount.
type Result struct {
	AmountIn      types.U256
	AmountOut     types.U256
	MinAmountOut  types.U256 // AmountOut reduced by slippageBps, for display/guard use
	GasUnits      uint64
	GasCost       types.U256
	Profit        types.I256
	MaxGeneration uint64
}

// Simulator prices paths and caches results by (pathFingerprint, amountIn,
// gasPrice): if any pool along the path advances its generation, the
// fingerprint changes and the old entry is implicitly orphaned, never
// explicitly evicted. Eviction is by generation mismatch; no explicit LRU
// is required.
type Simulator struct {
	pools PoolLookup
	log   *slog.Logger
	cache sync.Map // string -> Result
}

// New builds a Simulator reading pool state from pools.
func New(pools PoolLookup, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{pools: pools, log: log}
}

// Simulate prices path at amountIn under gasPrice,
// slippageBps (default 50) only affects the advisory MinAmountOut field; it
// does not change AmountOut or Profit.
func (s *Simulator) Simulate(ctx context.Context, path types.Path, amountIn types.U256, gasPrice types.U256, slippageBps uint32) (Result, error) {
	if len(path.Edges) == 0 {
		return Result{AmountIn: amountIn}, nil
	}

	generations := make([]uint64, len(path.Edges))
	pools := make([]*types.Pool, len(path.Edges))
	var maxGen uint64
	for i, e := range path.Edges {
		pool, ok := s.pools.PoolByAddress(e.Pool)
		if !ok {
			return Result{}, &ErrUnknownPool{Pool: e.Pool}
		}
		pools[i] = pool
		generations[i] = pool.Generation
		if pool.Generation > maxGen {
			maxGen = pool.Generation
		}
	}

	fingerprint := path.Fingerprint(generations)
	key := fmt.Sprintf("%s|%s|%s", fingerprint, amountIn.String(), gasPrice.String())
	if cached, ok := s.cache.Load(key); ok {
		return cached.(Result), nil
	}

	cur := amountIn.Int()
	for i, e := range path.Edges {
		cur = priceHop(pools[i], e.Direction == types.DirectionAToB, cur)
		if cur.IsZero() {
			break
		}
	}
	out := wrapU256(cur)

	gasUnits := gasEstimate(path)
	gasCost := new(uint256.Int).Mul(uint256.NewInt(gasUnits), gasPrice.Int())

	profit := computeProfit(out.Int(), amountIn.Int(), gasCost)

	minOut := applySlippage(out.Int(), slippageBps)

	result := Result{
		AmountIn:      amountIn,
		AmountOut:     out,
		MinAmountOut:  wrapU256(minOut),
		GasUnits:      gasUnits,
		GasCost:       wrapU256(gasCost),
		Profit:        profit,
		MaxGeneration: maxGen,
	}
	s.cache.Store(key, result)
	return result, nil
}

func wrapU256(v *uint256.Int) types.U256 {
	return types.NewU256FromUint256(v)
}

// computeProfit returns max(0, amountOut - amountIn - gasCost) as an I256,
// The subtraction is done in big.Int space since the
// intermediate may be negative.
func computeProfit(amountOut, amountIn, gasCost *uint256.Int) types.I256 {
	profit := amountOut.ToBig()
	profit.Sub(profit, amountIn.ToBig())
	profit.Sub(profit, gasCost.ToBig())
	if profit.Sign() < 0 {
		return types.ZeroI256()
	}
	return types.NewI256FromBig(profit)
}

// applySlippage reduces amountOut by slippageBps/10000, defaulting to 50bps
// when slippageBps is 0.
func applySlippage(amountOut *uint256.Int, slippageBps uint32) *uint256.Int {
	if slippageBps == 0 {
		slippageBps = 50
	}
	if amountOut.IsZero() {
		return new(uint256.Int)
	}
	keepBps := uint256.NewInt(uint64(10_000 - slippageBps))
	out := new(uint256.Int)
	out, overflow := out.MulDivOverflow(amountOut, keepBps, tenThousand)
	if overflow {
		return new(uint256.Int)
	}
	return out
}
