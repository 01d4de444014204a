package ranker

import "container/heap"

// topK returns the best k documents, best first, using a bounded min-heap.
func topK(scores []*DocScore, k int) []*DocScore {
	h := &docHeap{}
	for _, d := range scores {
		heap.Push(h, d)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]*DocScore, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(*DocScore)
	}
	return out
}

// better orders by score descending, then document id ascending.
func better(a, b *DocScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocumentID < b.DocumentID
}

// docHeap keeps the worst document at the root.
type docHeap []*DocScore

func (h docHeap) Len() int           { return len(h) }
func (h docHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h docHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *docHeap) Push(x any) {
	*h = append(*h, x.(*DocScore))
}

func (h *docHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
