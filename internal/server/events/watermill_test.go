package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "pairsync_events_test"

// runSubscriber starts Subscribe in the background and stops it on cleanup.
func runSubscriber(t *testing.T, b *WatermillBus, h Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Subscribe(ctx, h) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Error("subscriber did not stop")
		}
	})
}

func envelopes(t *testing.T, targets ...string) []Envelope {
	t.Helper()
	out := make([]Envelope, 0, len(targets))
	for _, uid := range targets {
		e, err := NewEnvelope(KindUserExpired, uid, UserExpired{UID: uid})
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestWatermillBus_DeliversBatchInOrder(t *testing.T) {
	bus := NewChannelBus(testTopic, true, logging.Nop{})
	defer bus.Close()

	got := make(chan Batch, 1)
	runSubscriber(t, bus, func(ctx context.Context, b Batch) error {
		assert.Equal(t, b.ID, logging.CorrelationIDFromContext(ctx))
		got <- b
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), envelopes(t, "A", "B", "C")))

	select {
	case b := <-got:
		require.Len(t, b.Events, 3)
		assert.Equal(t, "A", b.Events[0].TargetUID)
		assert.Equal(t, "B", b.Events[1].TargetUID)
		assert.Equal(t, "C", b.Events[2].TargetUID)
	case <-time.After(5 * time.Second):
		t.Fatal("batch not delivered")
	}
}

func TestWatermillBus_PublishEmptyIsNoop(t *testing.T) {
	pub := &failingPublisher{err: errors.New("must not be called")}
	bus := NewWatermillBus(pub, pub, testTopic, logging.Nop{})
	require.NoError(t, bus.Publish(context.Background(), nil))
	assert.Zero(t, pub.calls.Load())
}

func TestWatermillBus_HandlerErrorRedelivers(t *testing.T) {
	bus := NewChannelBus(testTopic, true, logging.Nop{})
	defer bus.Close()

	var calls atomic.Int32
	runSubscriber(t, bus, func(ctx context.Context, b Batch) error {
		if calls.Add(1) == 1 {
			return common.ErrStoreUnavailable
		}
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), envelopes(t, "A")))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatermillBus_UnknownTypeIsDeadLettered(t *testing.T) {
	dlq := newMemoryDLQ(t)
	bus := NewChannelBus(testTopic, true, logging.Nop{}, WithDeadLetterStore(dlq), WithInstanceID("i-1"))
	defer bus.Close()

	var calls atomic.Int32
	runSubscriber(t, bus, func(ctx context.Context, b Batch) error {
		calls.Add(1)
		return common.ErrUnknownEventType
	})

	require.NoError(t, bus.Publish(context.Background(), envelopes(t, "A")))
	require.Eventually(t, func() bool {
		l, err := dlq.List(context.Background())
		return err == nil && len(l) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// acked after dead-lettering, so not redelivered
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	l, err := dlq.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "i-1", l[0].InstanceID)
	assert.Contains(t, l[0].Reason, common.ErrUnknownEventType.Error())
}

func TestWatermillBus_MalformedPayloadIsDeadLettered(t *testing.T) {
	dlq := newMemoryDLQ(t)
	ch := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logging.NewWatermillAdapter(logging.Nop{}))
	bus := NewWatermillBus(ch, ch, testTopic, logging.Nop{}, WithDeadLetterStore(dlq))
	defer bus.Close()

	var calls atomic.Int32
	runSubscriber(t, bus, func(ctx context.Context, b Batch) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, ch.Publish(testTopic, message.NewMessage("raw-1", []byte("garbage"))))
	require.Eventually(t, func() bool {
		l, err := dlq.List(context.Background())
		return err == nil && len(l) == 1 && l[0].MessageID == "raw-1"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, calls.Load())
}

type flakyDLQ struct {
	mu    sync.Mutex
	saves int
	saved []DeadLetter
}

func (f *flakyDLQ) Save(ctx context.Context, dl DeadLetter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saves == 1 {
		return errors.New("disk full")
	}
	f.saved = append(f.saved, dl)
	return nil
}

func (f *flakyDLQ) List(ctx context.Context) ([]DeadLetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeadLetter(nil), f.saved...), nil
}

func TestWatermillBus_DeadLetterFailureRedelivers(t *testing.T) {
	dlq := &flakyDLQ{}
	bus := NewChannelBus(testTopic, true, logging.Nop{}, WithDeadLetterStore(dlq))
	defer bus.Close()

	runSubscriber(t, bus, func(ctx context.Context, b Batch) error {
		return common.ErrMalformedEvent
	})

	require.NoError(t, bus.Publish(context.Background(), envelopes(t, "A")))
	require.Eventually(t, func() bool {
		l, _ := dlq.List(context.Background())
		return len(l) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

type failingPublisher struct {
	err   error
	calls atomic.Int32
}

func (f *failingPublisher) Publish(topic string, msgs ...*message.Message) error {
	f.calls.Add(1)
	return f.err
}

func (f *failingPublisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return nil, f.err
}

func (f *failingPublisher) Close() error { return nil }

func TestWatermillBus_PublishFailureIsBrokerUnavailable(t *testing.T) {
	pub := &failingPublisher{err: errors.New("connection refused")}
	bus := NewWatermillBus(pub, pub, testTopic, logging.Nop{})

	for i := 0; i < 5; i++ {
		err := bus.Publish(context.Background(), envelopes(t, "A"))
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrBrokerUnavailable)
	}
	assert.Equal(t, int32(5), pub.calls.Load())

	// breaker is open now; the publisher is not called
	err := bus.Publish(context.Background(), envelopes(t, "A"))
	assert.ErrorIs(t, err, common.ErrBrokerUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), pub.calls.Load())
}

func TestWatermillBus_SubscribeFailure(t *testing.T) {
	pub := &failingPublisher{err: errors.New("no route")}
	bus := NewWatermillBus(pub, pub, testTopic, logging.Nop{})
	err := bus.Subscribe(context.Background(), func(context.Context, Batch) error { return nil })
	assert.ErrorIs(t, err, common.ErrBrokerUnavailable)
}
