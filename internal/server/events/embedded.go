package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer runs a JetStream-enabled NATS server in process.
type EmbeddedServer struct {
	server *server.Server
}

// StartEmbeddedServer starts a server on host:port (port -1 picks a free
// one) storing JetStream data under storeDir.
func StartEmbeddedServer(host string, port int, storeDir string) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "pairsync",
		Host:       host,
		Port:       port,
		JetStream:  true,
		StoreDir:   storeDir,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return &EmbeddedServer{server: ns}, nil
}

func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
