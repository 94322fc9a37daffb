// Package server wires the pairsync components together and runs them
// under a supervisor tree until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/filex"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/config"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/dmitrijs2005/pairsync/internal/server/httpserver"
	"github.com/dmitrijs2005/pairsync/internal/server/notify"
	"github.com/dmitrijs2005/pairsync/internal/server/presence"
	"github.com/dmitrijs2005/pairsync/internal/server/realtime"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pairsync/internal/server/services"
	"github.com/dmitrijs2005/pairsync/internal/server/supervisor"
	natsgo "github.com/nats-io/nats.go"

	gs "github.com/dmitrijs2005/pairsync/internal/server/grpc"
)

type presenceStore interface {
	presence.Directory
	presence.Registry
}

type App struct {
	config *config.Config
	logger logging.Logger
	tree   *supervisor.Tree

	// released in reverse order on shutdown
	closers []func(context.Context) error
}

func NewApp(c *config.Config) (app *App, err error) {

	logger, slogger, err := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger = logger.With("instance", c.InstanceID)

	app = &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			app.close(context.Background())
		}
	}()

	ctx := context.Background()

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.onClose(func(context.Context) error { return db.Close() })

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	dlqDir := c.DeadLetterDir
	if dlqDir != "" {
		if dlqDir, err = filex.EnsureDataDir(dlqDir); err != nil {
			return nil, err
		}
	}
	dlq, err := events.OpenBadgerDeadLetterStore(dlqDir, c.DeadLetterRetention)
	if err != nil {
		return nil, err
	}
	app.onClose(func(context.Context) error { return dlq.Close() })

	bus, dir, err := app.openMessaging(c, dlq)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(c.InstanceID, dir, []byte(c.SecretKey), c.PresenceTTL/2, logger)
	router := notify.NewRouter(c.InstanceID, dir, hub, logger)

	syncshells := services.NewSyncshellService(db, rm, bus, logger)
	expiry := services.NewUserExpiryService(db, rm, bus, logger)
	community := services.NewCommunityService(syncshells, communitySyncshells(c.CommunitySyncshells), logger)

	grpcServer := gs.NewGRPCServer(c.GRPCAddress, logger, syncshells, c.SecretKey)
	httpServer := httpserver.NewHTTPServer(c.HTTPAddress, hub, dlq, logger)

	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddMessagingService(supervisor.NewRunService("notification-router", func(ctx context.Context) error {
		return router.Run(ctx, bus)
	}))
	tree.AddMessagingService(supervisor.NewRunService("websocket-hub", hub.Serve))
	tree.AddAPIService(supervisor.NewRunService("grpc-server", grpcServer.Run))
	tree.AddAPIService(supervisor.NewRunService("http-server", httpServer.Run))
	tree.AddBackgroundService(supervisor.NewSweep("user-expiry", c.ExpirySweepInterval, expiry.PurgeExpired, logger))
	tree.AddBackgroundService(supervisor.NewSweep("community-syncshells", c.CommunitySweepInterval, community.EnsureCommunitySyncshells, logger))
	app.tree = tree

	return app, nil
}

// openMessaging builds the event bus and the presence store for the
// configured backend. NATS backends keep presence in a JetStream KV bucket;
// the channel backend only works within one process.
func (app *App) openMessaging(c *config.Config, dlq events.DeadLetterStore) (events.Bus, presenceStore, error) {
	if c.EventBackend == config.BackendChannel {
		bus := events.NewChannelBus(c.EventSubject, false, app.logger,
			events.WithDeadLetterStore(dlq), events.WithInstanceID(c.InstanceID))
		app.onClose(func(context.Context) error { return bus.Close() })
		return bus, presence.NewMemoryDirectory(c.PresenceTTL), nil
	}

	url := c.NATSURL
	if c.EventBackend == config.BackendEmbedded {
		storeDir, err := filex.EnsureDataDir(c.EmbeddedNATSStoreDir)
		if err != nil {
			return nil, nil, err
		}
		ns, err := events.StartEmbeddedServer(c.EmbeddedNATSHost, c.EmbeddedNATSPort, storeDir)
		if err != nil {
			return nil, nil, err
		}
		app.onClose(ns.Shutdown)
		url = ns.ClientURL()
		app.logger.Info(context.Background(), "embedded NATS started", "url", url)
	}

	nc, err := natsgo.Connect(url, natsgo.Name("pairsync-presence-"+c.InstanceID), natsgo.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connect NATS: %w", err)
	}
	app.onClose(func(context.Context) error { nc.Close(); return nil })

	js, err := nc.JetStream()
	if err != nil {
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	dir, err := presence.OpenKVDirectory(js, c.PresenceBucket, c.PresenceTTL)
	if err != nil {
		return nil, nil, err
	}

	bus, err := events.NewNATSBus(events.NATSConfig{
		URL:        url,
		Topic:      c.EventSubject,
		InstanceID: c.InstanceID,
	}, app.logger, events.WithDeadLetterStore(dlq))
	if err != nil {
		return nil, nil, err
	}
	app.onClose(func(context.Context) error { return bus.Close() })

	return bus, dir, nil
}

func communitySyncshells(in []config.CommunitySyncshell) []services.CommunitySyncshell {
	out := make([]services.CommunitySyncshell, 0, len(in))
	for _, c := range in {
		out = append(out, services.CommunitySyncshell{VanityID: c.VanityID, Password: c.Password})
	}
	return out
}

func (app *App) onClose(f func(context.Context) error) {
	app.closers = append(app.closers, f)
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			app.logger.Error(ctx, "shutdown step failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases every resource.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.tree.Serve(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "supervisor stopped", "error", err)
	}

	if report, err := app.tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		app.logger.Warn(ctx, "services did not stop in time", "count", len(report))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.close(shutdownCtx)

	app.logger.Info(shutdownCtx, "Stopped")
}
