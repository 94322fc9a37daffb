package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/logging"
)

// CommunitySyncshell is a well-known syncshell kept in existence by the
// community sweep.
type CommunitySyncshell struct {
	VanityID string `json:"vanityId" validate:"required"`
	Password string `json:"password"`
}

// CommunityService makes sure every configured community syncshell exists.
type CommunityService struct {
	syncshells *SyncshellService
	community  []CommunitySyncshell
	logger     logging.Logger
}

func NewCommunityService(s *SyncshellService, community []CommunitySyncshell, l logging.Logger) *CommunityService {
	return &CommunityService{
		syncshells: s,
		community:  community,
		logger:     l.With("module", "community_syncshells"),
	}
}

// EnsureCommunitySyncshells creates the missing ones as the first admin.
// Without an admin account nothing is created.
func (s *CommunityService) EnsureCommunitySyncshells(ctx context.Context) (int, error) {
	if len(s.community) == 0 {
		return 0, nil
	}

	rm, db := s.syncshells.repomanager, s.syncshells.db
	admin, err := rm.Users(db).GetFirstAdmin(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "no admin user, community syncshells not created")
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("find admin", err)
	}

	created := 0
	var errs []error
	for _, c := range s.community {
		_, err := rm.Groups(db).GetByIDOrAlias(ctx, c.VanityID)
		if err == nil {
			continue
		}
		if !errors.Is(err, common.ErrorNotFound) {
			errs = append(errs, storeErr("lookup "+c.VanityID, err))
			continue
		}

		res, err := s.syncshells.CreateSyncshell(ctx, admin.UID, c.VanityID, c.Password)
		if err != nil {
			errs = append(errs, fmt.Errorf("create community syncshell %s: %w", c.VanityID, err))
			continue
		}
		created++
		s.logger.Info(ctx, "community syncshell created", "vanity", c.VanityID, "gid", res.Group.GID, "owner", admin.UID)
	}
	return created, errors.Join(errs...)
}
