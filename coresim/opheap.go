package coresim

import "github.com/aqclab/ventana/rtio"

type pendingOp struct {
	op  rtio.Op
	seq uint64
}

// opHeap orders pending ops by timestamp, with submission order breaking
// ties.
type opHeap []pendingOp

// Len returns the number of pending ops
func (h opHeap) Len() int {
	return len(h)
}

// Less returns true if the i-th op executes before the j-th op
func (h opHeap) Less(i, j int) bool {
	if h[i].op.At != h[j].op.At {
		return h[i].op.At < h[j].op.At
	}
	return h[i].seq < h[j].seq
}

// Swap changes the position of two pending ops
func (h opHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an op to the heap
func (h *opHeap) Push(x interface{}) {
	*h = append(*h, x.(pendingOp))
}

// Pop removes and returns the next op to execute
func (h *opHeap) Pop() interface{} {
	old := *h
	n := len(old)
	op := old[n-1]
	*h = old[0 : n-1]
	return op
}
