package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressRoundTrip(t *testing.T) {
	a, err := ParseAddress("0xAaBbCc0000000000000000000000000000dDee")
	require.NoError(t, err)
	require.Equal(t, "0xaabbcc0000000000000000000000000000ddee", a.Hex())
}

func TestParseAddressRejectsBadLength(t *testing.T) {
	_, err := ParseAddress("0x1234")
	require.ErrorIs(t, err, ErrBadAddress)
}

func TestPairKeyCanonical(t *testing.T) {
	a := MustParseAddress("0x0000000000000000000000000000000000aaaa")
	b := MustParseAddress("0x0000000000000000000000000000000000bbbb")

	require.Equal(t, PairKey(a, b), PairKey(b, a))
	require.Equal(t, a.Hex()+"-"+b.Hex(), PairKey(a, b))
}

func TestAddressLess(t *testing.T) {
	a := MustParseAddress("0x0000000000000000000000000000000000aaaa")
	b := MustParseAddress("0x0000000000000000000000000000000000bbbb")
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}
