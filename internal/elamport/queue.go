package elamport

import "container/heap"

// queueEntry is a single (peer id, timestamp) pair awaiting its turn at
// the critical section.
type queueEntry struct {
	peerID    int
	timestamp uint64
}

// entryHeap implements container/heap.Interface, ordering by
// ExtendedLamportOrder.
type entryHeap []queueEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	return Less(h[i].timestamp, h[i].peerID, h[j].timestamp, h[j].peerID)
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(queueEntry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// RequestQueue is a per-peer priority queue of (peer id, timestamp)
// entries ordered by ExtendedLamportOrder.
//
// Invariants: (a) at most one entry per peer id at any time; (b) every
// un-released REQUEST observed by the owning peer has an entry present;
// (c) the head entry is the peer permitted to enter the critical section
// next, once all acknowledgements are in.
//
// A RequestQueue is owned by a single Peer and mutated only from that
// peer's processing loop; it carries no lock of its own.
type RequestQueue struct {
	h entryHeap
}

// NewRequestQueue returns an empty RequestQueue.
func NewRequestQueue() *RequestQueue {
	q := &RequestQueue{}
	heap.Init(&q.h)
	return q
}

// Insert adds a (peerID, timestamp) entry. The caller is responsible for
// the at-most-one-entry-per-peer invariant; the protocol never inserts a
// second entry for a peer that already has one outstanding.
func (q *RequestQueue) Insert(peerID int, timestamp uint64) {
	heap.Push(&q.h, queueEntry{peerID: peerID, timestamp: timestamp})
}

// Head returns the peer id and timestamp of the entry permitted to enter
// the critical section next, once acknowledged. ok is false if the queue
// is empty.
func (q *RequestQueue) Head() (peerID int, timestamp uint64, ok bool) {
	if q.h.Len() == 0 {
		return 0, 0, false
	}
	return q.h[0].peerID, q.h[0].timestamp, true
}

// PopIfHead removes the head entry if and only if it belongs to peerID.
// It returns ErrQueueEmpty if the queue has no entries, and
// ErrReleaseNotAtHead if the head belongs to a different peer — the
// RELEASE integrity violation named in spec.md §8.
func (q *RequestQueue) PopIfHead(peerID int) error {
	if q.h.Len() == 0 {
		return ErrQueueEmpty
	}
	if q.h[0].peerID != peerID {
		return ErrReleaseNotAtHead
	}
	heap.Pop(&q.h)
	return nil
}

// Len reports the number of outstanding entries.
func (q *RequestQueue) Len() int {
	return q.h.Len()
}

// Contains reports whether peerID currently has an outstanding entry.
func (q *RequestQueue) Contains(peerID int) bool {
	for _, e := range q.h {
		if e.peerID == peerID {
			return true
		}
	}
	return false
}
