package events

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dmitrijs2005/pairsync/internal/logging"
)

// NewChannelBus is an in-process Bus for single-instance runs and tests.
// Every subscriber sees every batch. With persistent set, batches published
// before a subscriber attaches are replayed to it.
func NewChannelBus(topic string, persistent bool, l logging.Logger, opts ...Option) *WatermillBus {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
		Persistent:          persistent,
	}, logging.NewWatermillAdapter(l))
	return NewWatermillBus(ch, ch, topic, l, opts...)
}
