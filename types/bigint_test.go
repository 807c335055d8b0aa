package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestU256JSONRoundTripIsDecimal(t *testing.T) {
	u := NewU256FromUint64(123456789)
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.Equal(t, `"123456789"`, string(b))

	var back U256
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, u.String(), back.String())
}

func TestU256ParseRejectsNegative(t *testing.T) {
	_, err := ParseU256("-5")
	require.Error(t, err)
}

func TestI256NegativeRoundTrip(t *testing.T) {
	i := NewI256FromBig(big.NewInt(-42))
	b, err := json.Marshal(i)
	require.NoError(t, err)
	require.Equal(t, `"-42"`, string(b))

	var back I256
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, -1, back.Sign())
}

func TestZeroU256IsZero(t *testing.T) {
	require.True(t, ZeroU256().IsZero())
	require.True(t, U256{}.IsZero())
}
