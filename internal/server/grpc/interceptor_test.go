package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/auth"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// helper to build server
func newTestServer(secret string, ss Syncshells) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, ss, secret)
}

func TestInterceptor_OtherMethod_AllowsWithoutToken(t *testing.T) {
	s := newTestServer("secret", nil)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/OtherMethod"}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		if logging.CorrelationIDFromContext(ctx) == "" {
			t.Error("correlation id not set")
		}
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer("secret", nil)

	for _, method := range []string{methodCreateSyncshell, methodJoinSyncshell} {
		info := &grpc.UnaryServerInfo{FullMethod: method}

		h := func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not be called when token missing")
			return nil, nil
		}

		_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("%s: expected Unauthenticated, got %v", method, status.Code(err))
		}
		if status.Convert(err).Message() != "missing token" {
			t.Fatalf("%s: expected 'missing token', got %q", method, status.Convert(err).Message())
		}
	}
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := newTestServer("secret", nil)

	md := metadata.New(map[string]string{
		common.AccessTokenHeaderName: "not-a-valid-jwt",
	})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: methodJoinSyncshell}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called for invalid token")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestInterceptor_ExpiredToken(t *testing.T) {
	secret := "super-secret"
	s := newTestServer(secret, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UID: "U1",
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	md := metadata.New(map[string]string{common.AccessTokenHeaderName: signed})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: methodCreateSyncshell}

	_, err = s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called for expired token")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "token expired" {
		t.Fatalf("expected 'token expired', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_ValidToken_SetsUID(t *testing.T) {
	secret := "super-secret"
	s := newTestServer(secret, nil)

	uid := "U123"
	token, err := auth.GenerateToken(uid, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	md := metadata.New(map[string]string{
		common.AccessTokenHeaderName: token,
	})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: methodJoinSyncshell}

	var gotFromCtx string
	h := func(ctx context.Context, req any) (any, error) {
		gotFromCtx, _ = uidFromContext(ctx)
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if gotFromCtx != uid {
		t.Fatalf("uid not propagated in context: got %v want %v", gotFromCtx, uid)
	}
}
