package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName = "pairsync.SyncshellService"

	methodCreateSyncshell = "/" + serviceName + "/CreateSyncshell"
	methodJoinSyncshell   = "/" + serviceName + "/JoinSyncshell"
)

type CreateSyncshellRequest struct {
	Alias    string `json:"alias,omitempty" validate:"omitempty,max=50"`
	Password string `json:"password,omitempty" validate:"omitempty,min=4,max=64"`
}

type CreateSyncshellResponse struct {
	GID      string `json:"gid"`
	Password string `json:"password"`
}

type JoinSyncshellRequest struct {
	GIDOrAlias string `json:"gidOrAlias" validate:"required,max=50"`
}

type JoinSyncshellResponse struct{}

// SyncshellServiceServer is the server API for pairsync.SyncshellService.
type SyncshellServiceServer interface {
	CreateSyncshell(context.Context, *CreateSyncshellRequest) (*CreateSyncshellResponse, error)
	JoinSyncshell(context.Context, *JoinSyncshellRequest) (*JoinSyncshellResponse, error)
}

func RegisterSyncshellServiceServer(s grpc.ServiceRegistrar, srv SyncshellServiceServer) {
	s.RegisterService(&SyncshellServiceDesc, srv)
}

func createSyncshellHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateSyncshellRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncshellServiceServer).CreateSyncshell(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCreateSyncshell}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncshellServiceServer).CreateSyncshell(ctx, req.(*CreateSyncshellRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func joinSyncshellHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(JoinSyncshellRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncshellServiceServer).JoinSyncshell(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodJoinSyncshell}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncshellServiceServer).JoinSyncshell(ctx, req.(*JoinSyncshellRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// SyncshellServiceDesc is registered by hand; messages travel through the
// json codec instead of generated protobuf types.
var SyncshellServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SyncshellServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSyncshell", Handler: createSyncshellHandler},
		{MethodName: "JoinSyncshell", Handler: joinSyncshellHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pairsync/syncshell",
}

// SyncshellClient calls SyncshellService over an existing connection. The
// access token is attached by the caller as "access_token" metadata.
type SyncshellClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncshellClient(cc grpc.ClientConnInterface) *SyncshellClient {
	return &SyncshellClient{cc: cc}
}

func (c *SyncshellClient) CreateSyncshell(ctx context.Context, in *CreateSyncshellRequest, opts ...grpc.CallOption) (*CreateSyncshellResponse, error) {
	out := new(CreateSyncshellResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodCreateSyncshell, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SyncshellClient) JoinSyncshell(ctx context.Context, in *JoinSyncshellRequest, opts ...grpc.CallOption) (*JoinSyncshellResponse, error) {
	out := new(JoinSyncshellResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodJoinSyncshell, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
