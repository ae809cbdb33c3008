package domain

// ItemQueue is a FIFO queue of capture items awaiting upload.
// It is not safe for concurrent use; callers serialize access.
type ItemQueue struct {
	items []CaptureItem
}

// Push appends an item to the tail of the queue.
func (q *ItemQueue) Push(item CaptureItem) {
	q.items = append(q.items, item)
}

// PushFront inserts an item at the head of the queue.
// Used to restore an in-flight item after an authorization failure.
func (q *ItemQueue) PushFront(item CaptureItem) {
	q.items = append([]CaptureItem{item}, q.items...)
}

// Pop removes and returns the oldest item.
// The second return value is false if the queue is empty.
func (q *ItemQueue) Pop() (CaptureItem, bool) {
	if len(q.items) == 0 {
		return CaptureItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *ItemQueue) Len() int {
	return len(q.items)
}

// Reset discards all queued items.
func (q *ItemQueue) Reset() {
	q.items = nil
}

// PairQueue is a FIFO queue of front/back pairs awaiting merge.
// It is not safe for concurrent use; callers serialize access.
type PairQueue struct {
	pairs []CapturePair
}

// Push appends a pair to the tail of the queue.
func (q *PairQueue) Push(pair CapturePair) {
	q.pairs = append(q.pairs, pair)
}

// Pop removes and returns the oldest pair.
// The second return value is false if the queue is empty.
func (q *PairQueue) Pop() (CapturePair, bool) {
	if len(q.pairs) == 0 {
		return CapturePair{}, false
	}
	pair := q.pairs[0]
	q.pairs = q.pairs[1:]
	return pair, true
}

// Len returns the number of queued pairs.
func (q *PairQueue) Len() int {
	return len(q.pairs)
}

// Reset discards all queued pairs.
func (q *PairQueue) Reset() {
	q.pairs = nil
}
