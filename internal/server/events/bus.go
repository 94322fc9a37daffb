package events

import "context"

// Publisher hands an ordered batch to the broker. Failures wrap
// common.ErrBrokerUnavailable and are not retried here.
type Publisher interface {
	Publish(ctx context.Context, events []Envelope) error
}

// Handler processes one batch. Returning nil acknowledges it. Errors
// wrapping common.ErrUnknownEventType or common.ErrMalformedEvent
// dead-letter the message; any other error asks for redelivery.
type Handler func(ctx context.Context, batch Batch) error

// Subscriber delivers batches to h until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, h Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}
