// Package types holds the core data model shared across the arbitrage
// pipeline: tokens, pools, protocols, edges, paths and opportunities.
package types

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Address is a 20-byte EVM account or contract address. The zero value is
// the canonical "no address" sentinel.
type Address [20]byte

// ErrBadAddress is returned when a hex string cannot be parsed as an
// Address.
var ErrBadAddress = errors.New("types: malformed address")

// ParseAddress parses a "0x"-prefixed (or bare) 40-hex-digit string into an
// Address. The input is accepted in any case; the result is always
// canonical (see Hex).
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 40 {
		return a, ErrBadAddress
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, ErrBadAddress
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress but panics on error; only safe for
// constants known at compile time (tests, chain-config tables).
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Hex returns the canonical lowercase "0x"-prefixed representation. Unlike
// go-ethereum's common.Address this never applies EIP-55 mixed-case
// checksumming: the address is always canonical lowercased.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Less provides a deterministic ascending ordering over addresses, used by
// ArbitrageFinder to tie-break equal-liquidity edges.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler so Address round-trips
// through JSON (and viper/mapstructure decoding) as a plain hex string.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// PairKey canonicalizes two token addresses as "min(a,b)-max(a,b)" lowercase
// hex.
func PairKey(a, b Address) string {
	if b.Less(a) {
		a, b = b, a
	}
	return a.Hex() + "-" + b.Hex()
}
