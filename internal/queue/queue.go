// Package queue implements the bounded top-k structure used to reduce a row
// of scores to its k best candidates.
package queue

// Item is a scored candidate.
// Value-based (no pointers) for cache locality.
type Item struct {
	Index    int64   // Global row index of the candidate.
	Distance float32 // Distance or score, depending on the metric.
}

// TopK keeps the k best items seen so far.
//
// The heap root is always the worst kept item, so admission is a single
// comparison against items[0]. For ascending metrics (L2) that is a max-heap,
// for descending metrics (inner product) a min-heap.
// It does NOT implement container/heap to avoid interface overhead.
type TopK struct {
	descending bool // true = larger is better
	k          int
	items      []Item
}

// NewTopK creates a bounded structure holding at most k items.
func NewTopK(k int, descending bool) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{
		descending: descending,
		k:          k,
		items:      make([]Item, 0, k),
	}
}

// Reset clears the structure for reuse with the same k.
func (q *TopK) Reset() {
	q.items = q.items[:0]
}

// Len returns the number of kept items.
func (q *TopK) Len() int { return len(q.items) }

// Cap returns k.
func (q *TopK) Cap() int { return q.k }

// Full reports whether k items are kept.
func (q *TopK) Full() bool { return len(q.items) >= q.k }

// Worst returns the worst kept item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Admits reports whether an item with distance d would be kept. NaN is
// never kept.
func (q *TopK) Admits(d float32) bool {
	if q.k == 0 || d != d {
		return false
	}
	if len(q.items) < q.k {
		return true
	}
	return q.better(d, q.items[0].Distance)
}

// Push offers an item. It is kept if fewer than k items are held or it is
// strictly better than the current worst, which is then evicted. NaN
// distances are dropped.
// Returns true if the item was kept.
func (q *TopK) Push(item Item) bool {
	if q.k == 0 || item.Distance != item.Distance {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !q.better(item.Distance, q.items[0].Distance) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Pop removes and returns the worst kept item.
func (q *TopK) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.siftDown(0)
	}
	return root, true
}

// Drain empties the structure into indices and distances best-first and
// returns the number of items written. Both slices must hold at least Len()
// elements.
func (q *TopK) Drain(indices []int64, distances []float32) int {
	n := len(q.items)
	for i := n - 1; i >= 0; i-- {
		item, _ := q.Pop()
		indices[i] = item.Index
		distances[i] = item.Distance
	}
	return n
}

func (q *TopK) better(a, b float32) bool {
	if q.descending {
		return a > b
	}
	return a < b
}

// worse orders the heap: the root is the element nothing is worse than.
func (q *TopK) worse(i, j int) bool {
	return q.better(q.items[j].Distance, q.items[i].Distance)
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && q.worse(r, l) {
			worst = r
		}
		if !q.worse(worst, i) {
			return
		}
		q.items[i], q.items[worst] = q.items[worst], q.items[i]
		i = worst
	}
}
