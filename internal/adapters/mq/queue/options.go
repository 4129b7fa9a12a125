package queue

// Option configures an InMemory queue.
type Option func(*InMemory)

// WithCapacity sets the maximum number of buffered articles.
func WithCapacity(n int) Option {
	return func(q *InMemory) {
		if n > 0 {
			q.capacity = n
		}
	}
}
