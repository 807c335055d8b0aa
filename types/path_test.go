package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(last byte) Address {
	var a Address
	a[19] = last
	return a
}

func TestPathIsCycleAndInteriorRepeat(t *testing.T) {
	a, b, c := addr(1), addr(2), addr(3)
	poolAB, poolBC, poolCA := addr(10), addr(11), addr(12)

	p := Path{Edges: []Edge{
		{FromToken: a, ToToken: b, Pool: poolAB, Direction: DirectionAToB},
		{FromToken: b, ToToken: c, Pool: poolBC, Direction: DirectionAToB},
		{FromToken: c, ToToken: a, Pool: poolCA, Direction: DirectionAToB},
	}}

	require.True(t, p.IsCycle())
	require.False(t, p.HasInteriorRepeat())
	require.Equal(t, []Address{a, b, c, a}, p.TokenSequence())
}

func TestPathHasInteriorRepeatDetectsNonStartRevisit(t *testing.T) {
	a, b, c := addr(1), addr(2), addr(3)
	p := Path{Edges: []Edge{
		{FromToken: a, ToToken: b, Pool: addr(10)},
		{FromToken: b, ToToken: c, Pool: addr(11)},
		{FromToken: c, ToToken: b, Pool: addr(12)},
	}}
	require.True(t, p.HasInteriorRepeat())
}

func TestFingerprintChangesWithGeneration(t *testing.T) {
	a, b := addr(1), addr(2)
	p := Path{Edges: []Edge{{FromToken: a, ToToken: b, Pool: addr(10), Direction: DirectionAToB}}}

	fp1 := p.Fingerprint([]uint64{1})
	fp2 := p.Fingerprint([]uint64{2})
	require.NotEqual(t, fp1, fp2)

	fp1Again := p.Fingerprint([]uint64{1})
	require.Equal(t, fp1, fp1Again)
}
