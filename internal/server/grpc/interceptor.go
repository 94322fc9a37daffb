package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const uidKey ctxKey = "uid"

// authenticated lists the methods that need a caller identity.
var authenticated = map[string]bool{
	methodCreateSyncshell: true,
	methodJoinSyncshell:   true,
}

func uidFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidKey).(string)
	return uid, ok && uid != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())

	if authenticated[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		uid, err := auth.GetUIDFromToken(accessToken, s.jwtSecret)
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, uidKey, uid)

	}

	return handler(ctx, req)
}
