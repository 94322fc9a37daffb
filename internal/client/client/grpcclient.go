// Package client talks to the pairsync gRPC API on behalf of one user.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	gs "github.com/dmitrijs2005/pairsync/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")
)

type GRPCClient struct {
	conn        *grpc.ClientConn
	client      *gs.SyncshellClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL lazily. Extra dial options are appended,
// which lets tests supply an in-memory dialer.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = gs.NewSyncshellClient(conn)
	return c, nil
}

func (s *GRPCClient) CreateSyncshell(ctx context.Context, alias, password string) (*gs.CreateSyncshellResponse, error) {
	resp, err := s.client.CreateSyncshell(ctx, &gs.CreateSyncshellRequest{Alias: alias, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) JoinSyncshell(ctx context.Context, gidOrAlias string) error {
	_, err := s.client.JoinSyncshell(ctx, &gs.JoinSyncshellRequest{GIDOrAlias: gidOrAlias})
	return s.mapError(err)
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// mapError turns status codes back into the sentinels callers match on.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		sentinel = ErrUnauthorized
	case codes.NotFound:
		sentinel = common.ErrorNotFound
	case codes.AlreadyExists:
		sentinel = common.ErrAlreadyMember
	case codes.FailedPrecondition:
		sentinel = common.ErrInvitesDisabled
	case codes.PermissionDenied:
		sentinel = common.ErrBanned
	case codes.Unavailable:
		sentinel = ErrUnavailable
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
