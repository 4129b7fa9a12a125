package queue

import "errors"

// ErrQueueClosed indicates an operation against a closed queue.
var ErrQueueClosed = errors.New("queue is closed")
