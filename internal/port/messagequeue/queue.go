// Package messagequeue defines the message bus port (interface).
package messagequeue

import "context"

// Handler processes a message received from a bus subscription.
type Handler func(subject string, data []byte)

// JobHandler processes one unit of queued work. A returned error fails
// the delivery attempt; the queue's own retry policy governs redelivery.
type JobHandler func(ctx context.Context, data []byte) error

// Queue is the port interface for the job queue and the event bus.
type Queue interface {
	// Publish sends a fire-and-forget message on the given subject.
	// Delivery to a subject's subscribers is FIFO per subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Enqueue adds a durable unit of work keyed by msgID. Re-enqueuing
	// with the same msgID is an idempotent upsert, never a duplicate
	// execution.
	Enqueue(ctx context.Context, msgID string, data []byte) error

	// Subscribe registers a handler for messages on the given subject,
	// which may contain wildcards. The returned function cancels the
	// subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// ConsumeJobs registers the worker handler for queued work. Failed
	// attempts are redelivered with bounded exponential backoff.
	ConsumeJobs(ctx context.Context, handler JobHandler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the connection immediately.
	Close() error

	// IsConnected reports whether the bus is currently connected.
	IsConnected() bool
}

// SubjectJobs is the durable work queue subject for healing runs.
const SubjectJobs = "jobs.heal"
