package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// U256 wraps *uint256.Int so that it marshals to/from JSON as a base-10
// decimal string, the persisted pool-cache layout's big-integer encoding.
// The bare uint256.Int's own MarshalJSON emits hex, which is why this
// wrapper exists instead of using uint256.Int directly on exported struct
// fields.
type U256 struct {
	v *uint256.Int
}

// ZeroU256 returns a U256 holding 0.
func ZeroU256() U256 { return U256{v: new(uint256.Int)} }

// NewU256FromUint64 builds a U256 from a uint64.
func NewU256FromUint64(n uint64) U256 {
	return U256{v: new(uint256.Int).SetUint64(n)}
}

// NewU256FromBig converts a *big.Int, returning an error for a negative
// value or one that does not fit in 256 bits.
func NewU256FromBig(b *big.Int) (U256, error) {
	if b.Sign() < 0 {
		return U256{}, fmt.Errorf("types: negative value %s cannot be U256", b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return U256{}, fmt.Errorf("types: value %s overflows u256", b)
	}
	return U256{v: v}, nil
}

// ParseU256 parses a base-10 decimal string into a U256.
func ParseU256(s string) (U256, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return U256{}, fmt.Errorf("types: parse u256 %q: %w", s, err)
	}
	return U256{v: v}, nil
}

// NewU256FromUint256 wraps an existing *uint256.Int without copying. The
// caller must not continue to mutate v afterwards; use Clone first if it
// does.
func NewU256FromUint256(v *uint256.Int) U256 {
	if v == nil {
		return ZeroU256()
	}
	return U256{v: v}
}

// ParseU256Hex parses a hex string (with or without a leading "0x") into a
// U256, used when decoding JSON-RPC responses that encode quantities as hex.
func ParseU256Hex(s string) (U256, error) {
	if s == "" {
		s = "0"
	}
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		s = "0x" + s
	}
	v, err := uint256.FromHex(s)
	if err != nil {
		return U256{}, fmt.Errorf("types: parse u256 hex %q: %w", s, err)
	}
	return U256{v: v}, nil
}

// Int returns the underlying *uint256.Int, never nil. Mutating the returned
// value mutates this U256; callers that need to keep the original should
// clone first.
func (u U256) Int() *uint256.Int {
	if u.v == nil {
		return new(uint256.Int)
	}
	return u.v
}

// IsZero reports whether the value is zero (including the zero U256{}).
func (u U256) IsZero() bool {
	return u.v == nil || u.v.IsZero()
}

// Clone returns an independent copy.
func (u U256) Clone() U256 {
	return U256{v: new(uint256.Int).Set(u.Int())}
}

func (u U256) String() string { return u.Int().Dec() }

// MarshalJSON implements json.Marshaler, emitting a quoted decimal string.
func (u U256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.Int().Dec() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting a quoted decimal
// string (or a bare JSON number for convenience in hand-written fixtures).
func (u *U256) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		u.v = new(uint256.Int)
		return nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("types: unmarshal u256 %q: %w", s, err)
	}
	u.v = v
	return nil
}

// I256 is a signed 256-bit-range integer, used only for expectedProfit,
// which is conceptually signed even though every profit the simulator
// actually emits is clamped to >= 0. Backed by math/big rather than
// uint256 because uint256.Int has no sign; the magnitude never approaches
// 256 bits in this codebase so the extra big.Int overhead is immaterial.
type I256 struct {
	v *big.Int
}

// ZeroI256 returns an I256 holding 0.
func ZeroI256() I256 { return I256{v: new(big.Int)} }

// NewI256FromBig wraps a *big.Int (copying it).
func NewI256FromBig(b *big.Int) I256 {
	return I256{v: new(big.Int).Set(b)}
}

// NewI256FromU256 lifts a non-negative U256 into an I256.
func NewI256FromU256(u U256) I256 {
	return I256{v: u.Int().ToBig()}
}

func (i I256) Big() *big.Int {
	if i.v == nil {
		return new(big.Int)
	}
	return i.v
}

func (i I256) Sign() int { return i.Big().Sign() }

func (i I256) String() string { return i.Big().String() }

func (i I256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.Big().String() + `"`), nil
}

func (i *I256) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		i.v = new(big.Int)
		return nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("types: unmarshal i256 %q: invalid decimal", s)
	}
	i.v = b
	return nil
}
