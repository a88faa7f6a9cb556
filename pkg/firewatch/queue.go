package firewatch

// pendingQueue is a stack of deferred changes. Callers hold Service.mu.
type pendingQueue struct {
	items []FileWatch
}

func (q *pendingQueue) push(fw FileWatch) {
	q.items = append(q.items, fw)
}

// drain empties the stack and returns its contents most recent first.
func (q *pendingQueue) drain() []FileWatch {
	n := len(q.items)
	if n == 0 {
		return nil
	}

	out := make([]FileWatch, n)
	for i, fw := range q.items {
		out[n-1-i] = fw
	}
	q.items = q.items[:0]
	return out
}

func (q *pendingQueue) len() int { return len(q.items) }
