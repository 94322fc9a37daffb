package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/metrics"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

// WatermillBus implements Bus over any watermill publisher/subscriber pair.
type WatermillBus struct {
	pub        message.Publisher
	sub        message.Subscriber
	topic      string
	instanceID string
	breaker    *gobreaker.CircuitBreaker[struct{}]
	dlq        DeadLetterStore
	logger     logging.Logger
	now        func() time.Time
}

type Option func(*WatermillBus)

func WithDeadLetterStore(s DeadLetterStore) Option {
	return func(b *WatermillBus) { b.dlq = s }
}

func WithInstanceID(id string) Option {
	return func(b *WatermillBus) { b.instanceID = id }
}

func WithBreakerTimeout(d time.Duration) Option {
	return func(b *WatermillBus) { b.breaker = newPublishBreaker("event-bus", d) }
}

func NewWatermillBus(pub message.Publisher, sub message.Subscriber, topic string, l logging.Logger, opts ...Option) *WatermillBus {
	b := &WatermillBus{
		pub:     pub,
		sub:     sub,
		topic:   topic,
		breaker: newPublishBreaker("event-bus", 10*time.Second),
		logger:  l.With("module", "event_bus", "topic", topic),
		now:     time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *WatermillBus) Publish(ctx context.Context, events []Envelope) error {
	if len(events) == 0 {
		return nil
	}

	batch := Batch{ID: uuid.NewString(), Events: events}
	payload, err := EncodeBatch(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	msg := message.NewMessage(batch.ID, payload)
	msg.Metadata.Set("batch_size", fmt.Sprint(len(events)))
	msg.SetContext(ctx)

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.pub.Publish(b.topic, msg)
	})
	metrics.BatchesPublished.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrBrokerUnavailable, err)
	}

	b.logger.Debug(ctx, "batch published", "batch_id", batch.ID, "events", len(events))
	return nil
}

// Subscribe consumes the topic until ctx is done. Each message is acked only
// after h succeeds or after it has been written to the dead-letter store.
func (b *WatermillBus) Subscribe(ctx context.Context, h Handler) error {
	msgs, err := b.sub.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("%w: subscribe: %w", common.ErrBrokerUnavailable, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			b.handle(ctx, msg, h)
		}
	}
}

func (b *WatermillBus) handle(ctx context.Context, msg *message.Message, h Handler) {
	ctx = logging.ContextWithCorrelationID(ctx, msg.UUID)

	batch, err := DecodeBatch(msg.Payload)
	if err == nil {
		err = h(ctx, batch)
	}

	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, common.ErrUnknownEventType), errors.Is(err, common.ErrMalformedEvent):
		if dlqErr := b.deadLetter(ctx, msg, err); dlqErr != nil {
			b.logger.Error(ctx, "dead-letter write failed, requesting redelivery", "error", dlqErr)
			msg.Nack()
			return
		}
		msg.Ack()
	default:
		b.logger.Warn(ctx, "batch dispatch failed, requesting redelivery", "error", err)
		msg.Nack()
	}
}

func (b *WatermillBus) deadLetter(ctx context.Context, msg *message.Message, cause error) error {
	reason := "malformed"
	if errors.Is(cause, common.ErrUnknownEventType) {
		reason = "unknown_type"
	}
	metrics.MessagesDeadLettered.WithLabelValues(reason).Inc()
	b.logger.Error(ctx, "message rejected", "reason", reason, "error", cause)

	if b.dlq == nil {
		return errors.New("no dead-letter store configured")
	}
	return b.dlq.Save(ctx, DeadLetter{
		MessageID:  msg.UUID,
		Reason:     cause.Error(),
		Payload:    append([]byte(nil), msg.Payload...),
		InstanceID: b.instanceID,
		ReceivedAt: b.now(),
	})
}

func (b *WatermillBus) Close() error {
	return errors.Join(b.pub.Close(), b.sub.Close())
}
