// Package nats implements the message bus port. Durable healing jobs go
// through JetStream; run events fan out over core NATS subjects.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rift-labs/rift-core/internal/config"
	"github.com/rift-labs/rift-core/internal/port/messagequeue"
)

const (
	streamName     = "RIFT_JOBS"
	workerDurable  = "rift-worker"
	dedupWindow    = 24 * time.Hour
	defaultAckWait = 30 * time.Minute // a healing run can poll for a long time
)

// Bus implements messagequeue.Queue using NATS.
type Bus struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg config.Queue
}

// Connect establishes a connection to NATS and ensures the job stream exists.
func Connect(ctx context.Context, url string, cfg config.Queue) (*Bus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// The dedup window makes Enqueue with a repeated run id an upsert
	// instead of a second execution.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"jobs.>"},
		Duplicates: dedupWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Bus{nc: nc, js: js, cfg: cfg}, nil
}

// Publish sends a fire-and-forget message on the given subject.
// Core NATS preserves publish order per subject for a single connection.
func (b *Bus) Publish(_ context.Context, subject string, data []byte) error {
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Enqueue adds a durable job keyed by msgID to the work stream.
func (b *Bus) Enqueue(ctx context.Context, msgID string, data []byte) error {
	_, err := b.js.Publish(ctx, messagequeue.SubjectJobs, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", msgID, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject.
// The subject may contain wildcards.
func (b *Bus) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// ConsumeJobs registers the worker handler on the durable job consumer.
// A failed attempt is redelivered with exponential backoff until the
// delivery budget is exhausted.
func (b *Bus) ConsumeJobs(ctx context.Context, handler messagequeue.JobHandler) (func(), error) {
	backoff := make([]time.Duration, 0, b.cfg.MaxDeliver-1)
	delay := b.cfg.BackoffBase
	for i := 1; i < b.cfg.MaxDeliver; i++ {
		backoff = append(backoff, delay)
		delay *= 2
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       workerDurable,
		FilterSubject: messagequeue.SubjectJobs,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       defaultAckWait,
		MaxDeliver:    b.cfg.MaxDeliver,
		BackOff:       backoff,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			slog.Error("job attempt failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.NakWithDelay(b.retryDelay(msg)); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// retryDelay doubles the base delay per prior delivery of the message.
func (b *Bus) retryDelay(msg jetstream.Msg) time.Duration {
	delay := b.cfg.BackoffBase
	meta, err := msg.Metadata()
	if err != nil {
		return delay
	}
	for i := uint64(1); i < meta.NumDelivered; i++ {
		delay *= 2
	}
	return delay
}

// Drain gracefully drains all subscriptions before closing.
func (b *Bus) Drain() error {
	return b.nc.Drain()
}

// Close shuts down the NATS connection.
func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}

// IsConnected reports whether the bus is currently connected.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}
