package simulate

import (
	"github.com/holiman/uint256"

	"github.com/arbiter-labs/hyperarb/types"
)

// defaultFeeBps returns the fee a pool charges when it does not carry an
// explicit feeBps override.
func defaultFeeBps(p types.Protocol) uint32 {
	switch p {
	case types.ProtocolHyperSwapV2:
		return 30
	case types.ProtocolKittenSwap:
		return 25
	case types.ProtocolKittenSwapStable:
		// Reserved fallback: the closed-form stable invariant is not
		// implemented, so stable pools are priced as constant-product at
		// this fee until a specialized curve is added.
		return 25
	default:
		return 30
	}
}

func feeBpsOf(pool *types.Pool) uint32 {
	if pool.FeeBps != nil {
		return *pool.FeeBps
	}
	return defaultFeeBps(pool.Protocol)
}

var (
	tenThousand = uint256.NewInt(10_000)
	scale1e18   = uint256.NewInt(1_000_000_000_000_000_000)
	twoPow96, _ = new(uint256.Int).SetString("79228162514264337593543950336", 10)
)

// swapConstantProduct implements the V2-style constant-product swap rule:
//
//	amountIn' = amountIn * (10000 - f)
//	out = amountIn' * rOut / (rIn * 10000 + amountIn')
//
// A zero-reserve side prices the hop as zero-out, not an error.
func swapConstantProduct(rIn, rOut *uint256.Int, amountIn *uint256.Int, feeBps uint32) *uint256.Int {
	if rIn.IsZero() || rOut.IsZero() || amountIn.IsZero() {
		return new(uint256.Int)
	}

	feeMultiplier := uint256.NewInt(uint64(10_000 - feeBps))
	amountInFee := new(uint256.Int).Mul(amountIn, feeMultiplier)

	denom := new(uint256.Int).Mul(rIn, tenThousand)
	denom.Add(denom, amountInFee)
	if denom.IsZero() {
		return new(uint256.Int)
	}

	out := new(uint256.Int)
	out, overflow := out.MulDivOverflow(amountInFee, rOut, denom)
	if overflow {
		return new(uint256.Int)
	}
	return out
}

// concentratedPriceScaled computes (sqrtPriceX96^2 / 2^192) * 1e18 as an
// integer, chaining two 512-bit mul-div steps so the intermediate product
// never needs more than 256 bits of result precision; floating point is
// never used in this package.
func concentratedPriceScaled(sqrtPriceX96 *uint256.Int) *uint256.Int {
	if sqrtPriceX96.IsZero() {
		return new(uint256.Int)
	}
	step1, overflow := new(uint256.Int).MulDivOverflow(sqrtPriceX96, sqrtPriceX96, twoPow96)
	if overflow {
		return new(uint256.Int)
	}
	priceScaled, overflow := new(uint256.Int).MulDivOverflow(step1, scale1e18, twoPow96)
	if overflow {
		return new(uint256.Int)
	}
	return priceScaled
}

// swapConcentratedLiquidity implements the simplified V3-style rule from
// : price = (sqrtP)^2 / 2^192, out = amountIn*price (A->B) or
// amountIn/price (B->A), scaled by 1e18.
func swapConcentratedLiquidity(sqrtPriceX96 *uint256.Int, amountIn *uint256.Int, feeBps uint32, aToB bool) *uint256.Int {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() || amountIn.IsZero() {
		return new(uint256.Int)
	}

	feeMultiplier := uint256.NewInt(uint64(10_000 - feeBps))
	amountInFee := new(uint256.Int).Mul(amountIn, feeMultiplier)
	amountInFee.Div(amountInFee, tenThousand)

	price := concentratedPriceScaled(sqrtPriceX96)
	if price.IsZero() {
		return new(uint256.Int)
	}

	out := new(uint256.Int)
	var overflow bool
	if aToB {
		out, overflow = out.MulDivOverflow(amountInFee, price, scale1e18)
	} else {
		out, overflow = out.MulDivOverflow(amountInFee, scale1e18, price)
	}
	if overflow {
		return new(uint256.Int)
	}
	return out
}

// priceHop computes the output amount for a single edge given the pool's
// current state and the trade direction.
func priceHop(pool *types.Pool, aToB bool, amountIn *uint256.Int) *uint256.Int {
	feeBps := feeBpsOf(pool)

	if pool.Protocol.IsConcentratedLiquidity() {
		if pool.SqrtPriceX96 == nil {
			return new(uint256.Int)
		}
		return swapConcentratedLiquidity(pool.SqrtPriceX96.Int(), amountIn, feeBps, aToB)
	}

	if pool.Reserves == nil {
		return new(uint256.Int)
	}
	rIn, rOut := pool.Reserves[0].Int(), pool.Reserves[1].Int()
	if !aToB {
		rIn, rOut = rOut, rIn
	}
	return swapConstantProduct(rIn, rOut, amountIn, feeBps)
}
