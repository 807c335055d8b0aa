// Package optimize chooses the trade input amount that maximizes net
// profit for a path, via coarse grid search followed by golden-section
// refinement.
package optimize

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/arbiter-labs/hyperarb/simulate"
	"github.com/arbiter-labs/hyperarb/types"
)

// goldenRatioNum/goldenRatioDen encode phi as the integer ratio
// 1_618_033_988_749_895 / 10^15, so refinement never touches a float.
const (
	goldenRatioNum = 1_618_033_988_749_895
	goldenRatioDen = 1_000_000_000_000_000
)

// invPhiNum/invPhiDen encode 1/phi == phi-1, the fraction golden-section
// search actually partitions the interval by.
const (
	invPhiNum = goldenRatioNum - goldenRatioDen
	invPhiDen = goldenRatioDen
)

// DefaultGridSamples is the coarse grid width; search bounds default to
// 1e-3 to 1.0 token, scaled by the token's decimals.
const (
	DefaultGridSamples = 10
	minFractionNum     = 1
	minFractionDen     = 1_000
)

// defaultToleranceFractionDen sets the golden-section convergence width
// to a fraction of one token (1e-3) when Config.Tolerance is nil.
var defaultToleranceFractionDen = big.NewInt(1_000)

// Config tunes the Optimizer; zero values resolve to package defaults.
type Config struct {
	GridSamples int
	Tolerance   *big.Int // absolute, in the smallest unit of the token; nil uses scale/1000
}

// Optimizer picks the profit-maximizing trade size for a path.
type Optimizer struct {
	sim *simulate.Simulator
	cfg Config
}

// New builds an Optimizer around sim.
func New(sim *simulate.Simulator, cfg Config) *Optimizer {
	if cfg.GridSamples <= 0 {
		cfg.GridSamples = DefaultGridSamples
	}
	return &Optimizer{sim: sim, cfg: cfg}
}

// Result is the chosen input amount and its simulated outcome.
type Result struct {
	AmountIn types.U256
	Sim      simulate.Result
}

// Optimize returns the input amount maximizing net profit for path, searching
// between 1e-3 and 1.0 token scaled by decimals.
func (o *Optimizer) Optimize(ctx context.Context, path types.Path, decimals uint8, gasPrice types.U256) (Result, error) {
	scale := scaleFor(decimals)
	minAmount := new(big.Int).Div(scale, big.NewInt(minFractionDen))
	if minAmount.Sign() == 0 {
		minAmount = big.NewInt(1)
	}
	maxAmount := new(big.Int).Set(scale)
	if maxAmount.Cmp(minAmount) < 0 {
		maxAmount = new(big.Int).Set(minAmount)
	}

	tolerance := o.cfg.Tolerance
	if tolerance == nil {
		tolerance = new(big.Int).Div(scale, defaultToleranceFractionDen)
		if tolerance.Sign() == 0 {
			tolerance = big.NewInt(1)
		}
	}

	bestAmount, bestResult, err := o.gridSearch(ctx, path, minAmount, maxAmount, gasPrice)
	if err != nil {
		return Result{}, err
	}
	if bestResult.Profit.Sign() <= 0 {
		return Result{AmountIn: bestResult.AmountIn, Sim: bestResult}, nil
	}

	lower := new(big.Int).Div(bestAmount, big.NewInt(2))
	if lower.Sign() == 0 {
		lower = big.NewInt(1)
	}
	upper := new(big.Int).Mul(bestAmount, big.NewInt(2))

	_, finalResult, err := o.goldenSection(ctx, path, lower, upper, tolerance, gasPrice)
	if err != nil {
		return Result{}, err
	}
	if finalResult.Profit.Big().Cmp(bestResult.Profit.Big()) < 0 {
		return Result{AmountIn: bestResult.AmountIn, Sim: bestResult}, nil
	}
	return Result{AmountIn: finalResult.AmountIn, Sim: finalResult}, nil
}

// gridSearch evaluates GridSamples equispaced points over [min,max] in
// parallel via the simulator's memoized cache.
func (o *Optimizer) gridSearch(ctx context.Context, path types.Path, min, max *big.Int, gasPrice types.U256) (*big.Int, simulate.Result, error) {
	n := o.cfg.GridSamples
	samples := make([]*big.Int, n)
	span := new(big.Int).Sub(max, min)
	for i := 0; i < n; i++ {
		if n == 1 {
			samples[i] = new(big.Int).Set(min)
			continue
		}
		step := new(big.Int).Mul(span, big.NewInt(int64(i)))
		step.Div(step, big.NewInt(int64(n-1)))
		samples[i] = new(big.Int).Add(min, step)
	}

	results := make([]simulate.Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i, amount := range samples {
		i, amount := i, amount
		g.Go(func() error {
			u256Amount, err := types.NewU256FromBig(amount)
			if err != nil {
				return err
			}
			r, err := o.sim.Simulate(gctx, path, u256Amount, gasPrice, 50)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, simulate.Result{}, err
	}

	bestIdx := 0
	for i := 1; i < n; i++ {
		if results[i].Profit.Big().Cmp(results[bestIdx].Profit.Big()) > 0 {
			bestIdx = i
		}
	}
	return samples[bestIdx], results[bestIdx], nil
}

// goldenSection refines the maximum within [a,b] using the integer golden
// ratio, treating the profit function as unimodal in this interval. This
// is an approximation: AMM profit curves are not guaranteed unimodal in
// general, but are well-behaved enough in practice for this to converge
// to a near-optimal input.
func (o *Optimizer) goldenSection(ctx context.Context, path types.Path, a, b, tolerance *big.Int, gasPrice types.U256) (*big.Int, simulate.Result, error) {
	eval := func(x *big.Int) (simulate.Result, error) {
		u256Amount, err := types.NewU256FromBig(x)
		if err != nil {
			return simulate.Result{}, err
		}
		return o.sim.Simulate(ctx, path, u256Amount, gasPrice, 50)
	}

	c := partition(a, b, true)
	d := partition(a, b, false)
	fc, err := eval(c)
	if err != nil {
		return nil, simulate.Result{}, err
	}
	fd, err := eval(d)
	if err != nil {
		return nil, simulate.Result{}, err
	}

	for new(big.Int).Sub(b, a).Cmp(tolerance) > 0 {
		if fc.Profit.Big().Cmp(fd.Profit.Big()) > 0 {
			b = d
			d, fd = c, fc
			c = partition(a, b, true)
			fc, err = eval(c)
		} else {
			a = c
			c, fc = d, fd
			d = partition(a, b, false)
			fd, err = eval(d)
		}
		if err != nil {
			return nil, simulate.Result{}, err
		}
		select {
		case <-ctx.Done():
			return nil, simulate.Result{}, ctx.Err()
		default:
		}
	}

	mid := new(big.Int).Add(a, b)
	mid.Div(mid, big.NewInt(2))
	result, err := eval(mid)
	if err != nil {
		return nil, simulate.Result{}, err
	}
	if fc.Profit.Big().Cmp(result.Profit.Big()) > 0 {
		return c, fc, nil
	}
	if fd.Profit.Big().Cmp(result.Profit.Big()) > 0 {
		return d, fd, nil
	}
	return mid, result, nil
}

// partition returns b-(b-a)*invPhi (fromRight=true, the "c" point closer to
// a) or a+(b-a)*invPhi (fromRight=false, the "d" point closer to b), using
// the integer golden-ratio fraction throughout.
func partition(a, b *big.Int, fromRight bool) *big.Int {
	span := new(big.Int).Sub(b, a)
	scaled := new(big.Int).Mul(span, big.NewInt(invPhiNum))
	scaled.Div(scaled, big.NewInt(invPhiDen))
	if fromRight {
		return new(big.Int).Sub(b, scaled)
	}
	return new(big.Int).Add(a, scaled)
}

func scaleFor(decimals uint8) *big.Int {
	scale := big.NewInt(1)
	ten := big.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		scale.Mul(scale, ten)
	}
	return scale
}
