package types

import "fmt"

// Pool is a single on-chain liquidity pool.
//
// Invariants: Tokens[0] != Tokens[1]; constant-product pools populate
// Reserves, concentrated pools populate Liquidity + SqrtPriceX96;
// Generation strictly increases on every mutation applied through
// poolstate.Manager.ApplyEvent.
type Pool struct {
	Address Address  `json:"address"`
	Protocol Protocol `json:"protocol"`
	Tokens  [2]Address `json:"tokens"`

	// FeeBps is the pool's fee in basis points (0..10_000), if known.
	// A nil pointer means "use the protocol default" (see simulate package).
	FeeBps *uint32 `json:"feeBps,omitempty"`

	// Reserves holds [reserve0, reserve1] for constant-product pools.
	Reserves *[2]U256 `json:"reserves,omitempty"`

	// Liquidity and SqrtPriceX96 describe a concentrated-liquidity pool.
	Liquidity    *U256 `json:"liquidity,omitempty"`
	SqrtPriceX96 *U256 `json:"sqrtPriceX96,omitempty"`

	Generation  uint64 `json:"generation"`
	LastUpdated int64  `json:"lastUpdated"` // monotonic milliseconds
}

// Validate checks the structural invariants a Pool must hold. It does not
// check liveness (reserves != 0); that is the simulator's concern.
func (p *Pool) Validate() error {
	if p.Tokens[0] == p.Tokens[1] {
		return fmt.Errorf("types: pool %s has identical tokens", p.Address)
	}
	if p.FeeBps != nil && *p.FeeBps > 10_000 {
		return fmt.Errorf("types: pool %s feeBps %d exceeds 10000", p.Address, *p.FeeBps)
	}
	isCP := p.Reserves != nil
	isCL := p.Liquidity != nil || p.SqrtPriceX96 != nil
	if isCP && isCL {
		return fmt.Errorf("types: pool %s has both reserves and concentrated-liquidity fields", p.Address)
	}
	return nil
}

// OtherToken returns the token on the opposite side of `from`, and whether
// `from` was actually one of the pool's tokens.
func (p *Pool) OtherToken(from Address) (Address, bool) {
	switch from {
	case p.Tokens[0]:
		return p.Tokens[1], true
	case p.Tokens[1]:
		return p.Tokens[0], true
	default:
		return Address{}, false
	}
}

// DirectionFor returns the Direction that swaps `from` -> `to` within this
// pool, and whether that pair is actually one of the pool's two sides.
func (p *Pool) DirectionFor(from, to Address) (Direction, bool) {
	if from == p.Tokens[0] && to == p.Tokens[1] {
		return DirectionAToB, true
	}
	if from == p.Tokens[1] && to == p.Tokens[0] {
		return DirectionBToA, true
	}
	return 0, false
}

// Clone returns a deep copy, so callers holding a Snapshot are
// immune to later in-place mutation by the manager.
func (p *Pool) Clone() *Pool {
	cp := *p
	if p.FeeBps != nil {
		fee := *p.FeeBps
		cp.FeeBps = &fee
	}
	if p.Reserves != nil {
		r := [2]U256{p.Reserves[0].Clone(), p.Reserves[1].Clone()}
		cp.Reserves = &r
	}
	if p.Liquidity != nil {
		l := p.Liquidity.Clone()
		cp.Liquidity = &l
	}
	if p.SqrtPriceX96 != nil {
		s := p.SqrtPriceX96.Clone()
		cp.SqrtPriceX96 = &s
	}
	return &cp
}

// ReserveFor returns token's reserve for a constant-product pool
// (Reserves[0] for Tokens[0], Reserves[1] for Tokens[1]), and false when
// reserves are absent or token is not one of the pool's tokens.
func (p *Pool) ReserveFor(token Address) (U256, bool) {
	if p.Reserves == nil {
		return U256{}, false
	}
	switch token {
	case p.Tokens[0]:
		return p.Reserves[0], true
	case p.Tokens[1]:
		return p.Reserves[1], true
	default:
		return U256{}, false
	}
}
