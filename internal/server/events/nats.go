package events

import (
	"fmt"
	"strings"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	natsgo "github.com/nats-io/nats.go"
)

// NATSConfig configures the JetStream-backed bus.
type NATSConfig struct {
	URL        string
	Topic      string
	InstanceID string
	AckWait    time.Duration
	MaxDeliver int
}

// durableName gives each instance its own JetStream consumer so every
// instance sees every batch.
func durableName(instanceID string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return "pairsync-" + r.Replace(instanceID)
}

func natsOptions(l logging.Logger) []natsgo.Option {
	wl := logging.NewWatermillAdapter(l)
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				wl.Error("NATS disconnected", err, nil)
			}
		}),
	}
}

// NewNATSBus connects a watermill JetStream publisher and a per-instance
// durable subscriber. No queue group is used.
func NewNATSBus(cfg NATSConfig, l logging.Logger, opts ...Option) (*WatermillBus, error) {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 10
	}
	wl := logging.NewWatermillAdapter(l)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(l),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, wl)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: "",
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOptions(l),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWait),
				natsgo.MaxAckPending(1),
				natsgo.DeliverNew(),
			},
			DurablePrefix: durableName(cfg.InstanceID),
		},
	}, wl)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	opts = append([]Option{WithInstanceID(cfg.InstanceID)}, opts...)
	return NewWatermillBus(pub, sub, cfg.Topic, l, opts...), nil
}
