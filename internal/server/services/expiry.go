package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/repomanager"
)

// UserExpiryService removes temporary users whose time is up.
type UserExpiryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	bus         events.Publisher
	logger      logging.Logger
	now         func() time.Time
}

func NewUserExpiryService(db *sql.DB, m repomanager.RepositoryManager, bus events.Publisher, l logging.Logger) *UserExpiryService {
	return &UserExpiryService{
		db:          db,
		repomanager: m,
		bus:         bus,
		logger:      l.With("module", "user_expiry"),
		now:         time.Now,
	}
}

// PurgeExpired purges every expired temporary user and returns how many were
// removed. A failure for one user does not stop the others.
func (s *UserExpiryService) PurgeExpired(ctx context.Context) (int, error) {
	expired, err := s.repomanager.Users(s.db).ListExpiredLimited(ctx, s.now())
	if err != nil {
		return 0, storeErr("list expired users", err)
	}

	var (
		purged int
		errs   []error
	)
	for _, u := range expired {
		err := s.PurgeUser(ctx, u.UID)
		if err == nil || errors.Is(err, common.ErrBrokerUnavailable) {
			purged++
		}
		if err != nil {
			s.logger.Error(ctx, "purge failed", "uid", u.UID, "error", err)
			errs = append(errs, err)
		}
	}
	if purged > 0 {
		s.logger.Info(ctx, "expired users purged", "count", purged)
	}
	return purged, errors.Join(errs...)
}

// PurgeUser deletes uid and everything that references it. Syncshells it
// owns pass to another member, or are deleted when it was alone. The user is
// told through a UserExpired event after the commit.
func (s *UserExpiryService) PurgeUser(ctx context.Context, uid string) error {
	err := dbx.WithRetryTx(ctx, s.db, nil, txAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.releaseOwnedGroups(ctx, tx, uid); err != nil {
			return err
		}

		steps := []struct {
			name string
			fn   func(context.Context, string) error
		}{
			{"memberships", s.repomanager.GroupPairs(tx).DeleteByUser},
			{"preferences", s.repomanager.Preferences(tx).DeleteByUser},
			{"permissions", s.repomanager.Permissions(tx).DeleteByUser},
			{"pairs", s.repomanager.Pairs(tx).DeleteByUser},
			{"bans", s.repomanager.Bans(tx).DeleteByUser},
			{"user", s.repomanager.Users(tx).Delete},
		}
		for _, st := range steps {
			if err := st.fn(ctx, uid); err != nil {
				return storeErr("delete "+st.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge %s: %w", uid, err)
	}

	env, err := events.NewEnvelope(events.KindUserExpired, uid, events.UserExpired{UID: uid})
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, []events.Envelope{env}); err != nil {
		s.logger.Error(ctx, "user purged but expiry notice not published", "uid", uid, "error", err)
		return err
	}
	return nil
}

func (s *UserExpiryService) releaseOwnedGroups(ctx context.Context, tx dbx.DBTX, uid string) error {
	owned, err := s.repomanager.Groups(tx).ListOwnedBy(ctx, uid)
	if err != nil {
		return storeErr("list owned groups", err)
	}

	for _, g := range owned {
		members, err := s.repomanager.GroupPairs(tx).ListMembers(ctx, g.GID)
		if err != nil {
			return storeErr("list members", err)
		}

		heir, ok := pickNewOwner(members, uid)
		if !ok {
			if err := s.repomanager.Groups(tx).Delete(ctx, g.GID); err != nil {
				return storeErr("delete group", err)
			}
			s.logger.Info(ctx, "empty syncshell deleted", "gid", g.GID)
			continue
		}

		if err := s.repomanager.Groups(tx).UpdateOwner(ctx, g.GID, heir); err != nil {
			return storeErr("transfer ownership", err)
		}
		if err := s.repomanager.GroupPairs(tx).SetPinned(ctx, g.GID, heir, true); err != nil {
			return storeErr("pin new owner", err)
		}
		s.logger.Info(ctx, "syncshell ownership transferred", "gid", g.GID, "from", uid, "to", heir)
	}
	return nil
}

// pickNewOwner prefers pinned members, then the longest-standing one.
func pickNewOwner(members []models.GroupMember, leaving string) (string, bool) {
	var candidates []models.GroupMember
	for _, m := range members {
		if m.GroupUserUID != leaving {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.GroupUserUID < b.GroupUserUID
	})
	return candidates[0].GroupUserUID, true
}
