package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Edge represents a single swap capability: a directed hop from FromToken
// to ToToken via a specific pool. Edges exist in pairs (A->B and
// B->A) iff the underlying pool supports both directions.
type Edge struct {
	FromToken Address
	ToToken   Address
	Pool      Address
	Direction Direction
	Protocol  Protocol
}

// Path is an ordered list of edges forming a candidate trade route. A cycle
// is a Path whose first FromToken equals its last ToToken.
type Path struct {
	Edges []Edge
}

// TokenSequence returns the ordered list of tokens visited, including both
// endpoints (len(Edges)+1 entries). Invariant: consecutive edges
// satisfy Edges[i].ToToken == Edges[i+1].FromToken.
func (p Path) TokenSequence() []Address {
	if len(p.Edges) == 0 {
		return nil
	}
	seq := make([]Address, 0, len(p.Edges)+1)
	seq = append(seq, p.Edges[0].FromToken)
	for _, e := range p.Edges {
		seq = append(seq, e.ToToken)
	}
	return seq
}

// IsCycle reports whether the path starts and ends at the same token.
func (p Path) IsCycle() bool {
	if len(p.Edges) == 0 {
		return false
	}
	return p.Edges[0].FromToken == p.Edges[len(p.Edges)-1].ToToken
}

// StartToken returns the token the path begins at, or the zero Address if
// the path is empty.
func (p Path) StartToken() Address {
	if len(p.Edges) == 0 {
		return Address{}
	}
	return p.Edges[0].FromToken
}

// HasInteriorRepeat reports whether any token (other than the shared
// start/end of a completed cycle) appears more than once along the path.
func (p Path) HasInteriorRepeat() bool {
	seq := p.TokenSequence()
	if len(seq) <= 2 {
		return false
	}
	seen := make(map[Address]bool, len(seq))
	// Exclude the final token when it closes a cycle back to the start;
	// every other position must be unique.
	last := len(seq) - 1
	for i, tok := range seq {
		if i == last && tok == seq[0] {
			continue
		}
		if seen[tok] {
			return true
		}
		seen[tok] = true
	}
	return false
}

// Fingerprint returns a stable hash of the ordered (pool address,
// direction, captured generation) triples, used as the TradeSimulator's
// memoization key component: a stable fingerprint derived from pool
// addresses plus generations, not object identity. generations must be
// supplied in path order, one per edge, reflecting the pool generation
// observed at the moment the edge was captured.
func (p Path) Fingerprint(generations []uint64) string {
	h := sha256.New()
	for i, e := range p.Edges {
		h.Write(e.Pool[:])
		h.Write([]byte{byte(e.Direction)})
		gen := uint64(0)
		if len(generations) > i {
			gen = generations[i]
		}
		var genBytes [8]byte
		binary.BigEndian.PutUint64(genBytes[:], gen)
		h.Write(genBytes[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
