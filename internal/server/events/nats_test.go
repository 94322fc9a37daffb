package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurableName(t *testing.T) {
	assert.Equal(t, "pairsync-node_1", durableName("node.1"))
	assert.Equal(t, "pairsync-a_b_c", durableName("a*b>c"))
	assert.Equal(t, "pairsync-host_2", durableName("host 2"))
}

func startEmbedded(t *testing.T) *EmbeddedServer {
	t.Helper()
	ns, err := StartEmbeddedServer("127.0.0.1", -1, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ns.Shutdown(ctx)
	})
	return ns
}

func TestNATSBus_BroadcastsToEveryInstance(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded NATS")
	}
	ns := startEmbedded(t)

	newBus := func(id string) *WatermillBus {
		b, err := NewNATSBus(NATSConfig{URL: ns.ClientURL(), Topic: "pairsync_events", InstanceID: id, AckWait: 2 * time.Second}, logging.Nop{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	}
	a, b := newBus("node-a"), newBus("node-b")

	var gotA, gotB atomic.Int32
	runSubscriber(t, a, func(ctx context.Context, batch Batch) error { gotA.Add(1); return nil })
	runSubscriber(t, b, func(ctx context.Context, batch Batch) error { gotB.Add(1); return nil })

	// subscriptions deliver new messages only; keep publishing until both see one
	require.Eventually(t, func() bool {
		if err := a.Publish(context.Background(), envelopes(t, "U1")); err != nil {
			return false
		}
		return gotA.Load() > 0 && gotB.Load() > 0
	}, 15*time.Second, 200*time.Millisecond)
}
