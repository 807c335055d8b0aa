package simulate

import "github.com/arbiter-labs/hyperarb/types"

// baseGas is charged once per simulated path regardless of hop count.
const baseGas uint64 = 21_000

// gasPerHop returns the per-swap gas estimate for a protocol.
func gasPerHop(p types.Protocol) uint64 {
	switch p {
	case types.ProtocolHyperSwapV2:
		return 60_000
	case types.ProtocolHyperSwapV3, types.ProtocolShadow, types.ProtocolSwapX:
		return 100_000
	case types.ProtocolKittenSwap, types.ProtocolKittenSwapStable:
		return 80_000
	default:
		return 80_000
	}
}

// gasEstimate sums the per-hop cost of every edge in path plus the base fee.
func gasEstimate(path types.Path) uint64 {
	total := baseGas
	for _, e := range path.Edges {
		total += gasPerHop(e.Protocol)
	}
	return total
}
