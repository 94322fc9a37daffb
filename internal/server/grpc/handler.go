package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFromError maps domain sentinels to gRPC codes. Anything unknown is
// reported as Internal without leaking the cause.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "syncshell not found")
	case errors.Is(err, common.ErrAlreadyMember):
		return status.Error(codes.AlreadyExists, "already a member")
	case errors.Is(err, common.ErrAliasTaken):
		return status.Error(codes.AlreadyExists, "alias already in use")
	case errors.Is(err, common.ErrInvitesDisabled):
		return status.Error(codes.FailedPrecondition, "invites disabled")
	case errors.Is(err, common.ErrPermissionPrecondition):
		return status.Error(codes.FailedPrecondition, "default permissions missing")
	case errors.Is(err, common.ErrBanned):
		return status.Error(codes.PermissionDenied, "banned")
	case errors.Is(err, common.ErrStoreUnavailable), errors.Is(err, common.ErrBrokerUnavailable):
		return status.Error(codes.Unavailable, "temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) CreateSyncshell(ctx context.Context, req *CreateSyncshellRequest) (*CreateSyncshellResponse, error) {

	uid, ok := uidFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	created, err := s.syncshells.CreateSyncshell(ctx, uid, req.Alias, req.Password)
	if err != nil {
		s.logger.Error(ctx, "create syncshell failed", "uid", uid, "error", err)
		return nil, statusFromError(err)
	}

	s.logger.Info(ctx, "Syncshell created", "uid", uid, "gid", created.Group.GID)
	return &CreateSyncshellResponse{GID: created.Group.GID, Password: created.Password}, nil

}

func (s *GRPCServer) JoinSyncshell(ctx context.Context, req *JoinSyncshellRequest) (*JoinSyncshellResponse, error) {

	uid, ok := uidFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.syncshells.JoinSyncshell(ctx, req.GIDOrAlias, uid)
	if err != nil {
		// membership is committed; only the notifications were lost
		if res != nil && errors.Is(err, common.ErrBrokerUnavailable) {
			s.logger.Warn(ctx, "joined without notifications", "uid", uid, "gid", res.Group.GID, "error", err)
			return &JoinSyncshellResponse{}, nil
		}
		s.logger.Error(ctx, "join syncshell failed", "uid", uid, "target", req.GIDOrAlias, "error", err)
		return nil, statusFromError(err)
	}

	s.logger.Info(ctx, "Syncshell joined", "uid", uid, "gid", res.Group.GID)
	return &JoinSyncshellResponse{}, nil

}
