package ratelimit

import "github.com/meetscribe/scribe-go/domain/call"

// queued is one waiting request. index tracks the heap position so a
// caller that stops waiting can remove its entry; -1 once popped or
// removed.
type queued struct {
	req   call.Request
	ready chan struct{}
	seq   uint64
	index int
}

// requestQueue is a priority queue ordered urgent > high > normal > low,
// with stable insertion order among equal priorities.
type requestQueue []*queued

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].req.Priority != q[j].req.Priority {
		return q[i].req.Priority > q[j].req.Priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *requestQueue) Push(x any) {
	item := x.(*queued)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
