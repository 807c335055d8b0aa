package oppcache

import "github.com/arbiter-labs/hyperarb/types"

// maxHeap is a container/heap.Interface over types.HeapItem ordered by
// ExpectedProfit descending, younger generation first on ties.
// Grounded on the corpus's own priority-queue usage (SipengXie-Execution's
// priced_list.go and go-ethereum's blobpool evictheap) of stdlib
// container/heap for exactly this shape of problem; no third-party binary
// heap appears anywhere in the retrieval pack so this stays on the standard
// library rather than reaching for a dependency nothing in the corpus uses.
type maxHeap []types.HeapItem

func (h maxHeap) Len() int { return len(h) }

func (h maxHeap) Less(i, j int) bool {
	cmp := h[i].ExpectedProfit.Big().Cmp(h[j].ExpectedProfit.Big())
	if cmp != 0 {
		return cmp > 0 // profit descending
	}
	return h[i].Generation > h[j].Generation // younger generation first
}

func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) {
	*h = append(*h, x.(types.HeapItem))
}

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
