package matchmaker

import "context"

// Queue abstracts the FIFO wait queue. Implementations are not required to be
// concurrency-safe on their own: every call goes through the Service's
// serialization lock.
type Queue interface {
	// Enqueue appends id to the tail.
	Enqueue(ctx context.Context, id string) error
	// PopPair removes and returns the two oldest entries. ok is false when
	// the queue holds fewer than two.
	PopPair(ctx context.Context) (ids []string, ok bool, err error)
	// Remove deletes id wherever it sits in the queue; unknown ids are a no-op.
	Remove(ctx context.Context, id string) error
	// Count returns the current queue length.
	Count(ctx context.Context) (int64, error)
}
