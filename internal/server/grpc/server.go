package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
)

// Syncshells is the slice of services.SyncshellService the transport needs.
type Syncshells interface {
	CreateSyncshell(ctx context.Context, uid, alias, password string) (*services.CreatedSyncshell, error)
	JoinSyncshell(ctx context.Context, gidOrAlias, uid string) (*services.JoinResult, error)
}

type GRPCServer struct {
	address    string
	syncshells Syncshells
	logger     logging.Logger
	jwtSecret  []byte
	validate   *validator.Validate
}

func NewGRPCServer(a string, l logging.Logger, ss Syncshells, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		syncshells: ss,
		jwtSecret:  []byte(secretKey),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterSyncshellServiceServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	<-stopped
	return nil
}
