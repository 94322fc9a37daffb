// Package services contains server-side business logic. This file implements
// SyncshellService, which creates syncshells and reconciles pairwise
// permissions when a user joins one.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/cryptox"
	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/dmitrijs2005/pairsync/internal/server/metrics"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/reconcile"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/repomanager"
)

// txAttempts bounds retries of a transaction aborted by a serialization
// failure or deadlock.
const txAttempts = 3

// joinCompletionTimeout bounds the work that follows a committed membership.
// That work no longer follows the caller's cancellation.
const joinCompletionTimeout = 30 * time.Second

// CreatedSyncshell is returned once to the creator. Password is the
// plaintext and is not stored anywhere.
type CreatedSyncshell struct {
	Group      models.Group
	Password   string
	Membership models.GroupPair
	Preference models.GroupPairPreferredPermission
}

// JoinResult describes what a successful join changed.
type JoinResult struct {
	Group       models.Group
	Permissions []models.UserPermissionSet
	Events      []events.Envelope
}

type SyncshellService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	bus         events.Publisher
	logger      logging.Logger

	newGroupID   func() (string, error)
	newPassword  func() (string, error)
	hashPassword func(string) (string, error)
}

type SyncshellOption func(*SyncshellService)

// WithGroupIDGenerator replaces the random GID source.
func WithGroupIDGenerator(f func() (string, error)) SyncshellOption {
	return func(s *SyncshellService) { s.newGroupID = f }
}

func WithPasswordGenerator(f func() (string, error)) SyncshellOption {
	return func(s *SyncshellService) { s.newPassword = f }
}

func WithPasswordHasher(f func(string) (string, error)) SyncshellOption {
	return func(s *SyncshellService) { s.hashPassword = f }
}

func NewSyncshellService(db *sql.DB, m repomanager.RepositoryManager, bus events.Publisher, l logging.Logger, opts ...SyncshellOption) *SyncshellService {
	s := &SyncshellService{
		db:           db,
		repomanager:  m,
		bus:          bus,
		logger:       l.With("module", "syncshell_service"),
		newGroupID:   common.NewGroupID,
		newPassword:  func() (string, error) { return common.RandomAlphanumeric(common.GeneratedPasswordLength) },
		hashPassword: cryptox.HashPassword,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// storeErr wraps unexpected repository failures. Domain sentinels pass
// through untouched.
func storeErr(op string, err error) error {
	for _, known := range []error{
		common.ErrorNotFound, common.ErrAlreadyMember, common.ErrAliasTaken, common.ErrGroupIDTaken,
		common.ErrStoreUnavailable, context.Canceled, context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}

// allocateGroupID draws candidates until one is not taken. Only ctx ends the
// search early.
func (s *SyncshellService) allocateGroupID(ctx context.Context) (string, error) {
	repo := s.repomanager.Groups(s.db)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		gid, err := s.newGroupID()
		if err != nil {
			return "", fmt.Errorf("generate gid: %w", err)
		}
		taken, err := repo.Exists(ctx, gid)
		if err != nil {
			return "", storeErr("check gid", err)
		}
		if !taken {
			return gid, nil
		}
		s.logger.Debug(ctx, "gid collision, retrying", "gid", gid, "attempt", attempt)
	}
}

// CreateSyncshell creates a syncshell owned by uid. An empty password is
// replaced by a generated one. The new group takes its preferred defaults
// from the creator's global defaults.
func (s *SyncshellService) CreateSyncshell(ctx context.Context, uid, alias, password string) (res *CreatedSyncshell, err error) {
	defer func() { metrics.SyncshellOperations.WithLabelValues("create", metrics.Result(err)).Inc() }()

	defaults, err := s.repomanager.Users(s.db).GetDefaultPermissions(ctx, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: user %s has no default permissions", common.ErrPermissionPrecondition, uid)
	}
	if err != nil {
		return nil, storeErr("load default permissions", err)
	}

	if password == "" {
		if password, err = s.newPassword(); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
	}
	hashed, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// A concurrent create can take the GID between the check and the insert;
	// draw a new one when that happens.
	for {
		gid, err := s.allocateGroupID(ctx)
		if err != nil {
			return nil, err
		}
		res = newCreatedSyncshell(gid, uid, alias, password, hashed, defaults)

		err = dbx.WithRetryTx(ctx, s.db, nil, txAttempts, func(ctx context.Context, tx dbx.DBTX) error {
			g, m, p := res.Group, res.Membership, res.Preference
			if err := s.repomanager.Groups(tx).Create(ctx, &g); err != nil {
				return storeErr("create group", err)
			}
			if err := s.repomanager.GroupPairs(tx).Create(ctx, &m); err != nil {
				return storeErr("create owner membership", err)
			}
			if err := s.repomanager.Preferences(tx).Upsert(ctx, &p); err != nil {
				return storeErr("create owner preferences", err)
			}
			res.Group, res.Membership, res.Preference = g, m, p
			return nil
		})
		if errors.Is(err, common.ErrGroupIDTaken) {
			s.logger.Debug(ctx, "gid taken at insert, retrying", "gid", gid)
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	s.logger.Info(ctx, "syncshell created", "gid", res.Group.GID, "owner", uid, "alias", alias)
	return res, nil
}

func newCreatedSyncshell(gid, uid, alias, password, hashed string, defaults *models.UserDefaultPreferredPermission) *CreatedSyncshell {
	return &CreatedSyncshell{
		Password: password,
		Group: models.Group{
			GID:                     gid,
			Alias:                   alias,
			OwnerUID:                uid,
			HashedPassword:          hashed,
			InvitesEnabled:          true,
			PreferDisableSounds:     defaults.DisableGroupSounds,
			PreferDisableAnimations: defaults.DisableGroupAnimations,
			PreferDisableVFX:        defaults.DisableGroupVFX,
		},
		Membership: models.GroupPair{GroupGID: gid, GroupUserUID: uid, IsPinned: true},
		Preference: models.GroupPairPreferredPermission{
			GroupGID:          gid,
			UserUID:           uid,
			DisableSounds:     defaults.DisableGroupSounds,
			DisableAnimations: defaults.DisableGroupAnimations,
			DisableVFX:        defaults.DisableGroupVFX,
		},
	}
}

// checkJoinable runs the join preconditions in order without mutating
// anything.
func (s *SyncshellService) checkJoinable(ctx context.Context, gidOrAlias, uid string) (*models.Group, error) {
	group, err := s.repomanager.Groups(s.db).GetByIDOrAlias(ctx, gidOrAlias)
	if err != nil {
		return nil, storeErr("resolve syncshell "+gidOrAlias, err)
	}

	_, err = s.repomanager.GroupPairs(s.db).Get(ctx, group.GID, uid)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s in %s", common.ErrAlreadyMember, uid, group.GID)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, storeErr("check membership", err)
	}

	if !group.InvitesEnabled {
		return nil, fmt.Errorf("%w: %s", common.ErrInvitesDisabled, group.GID)
	}

	banned, err := s.repomanager.Bans(s.db).IsBanned(ctx, group.GID, uid)
	if err != nil {
		return nil, storeErr("check ban", err)
	}
	if banned {
		return nil, fmt.Errorf("%w: %s from %s", common.ErrBanned, uid, group.GID)
	}
	return group, nil
}

// pairResult is the reconciled state of one joiner/member pair.
type pairResult struct {
	member         models.GroupMember
	joinerToMember models.UserPermissionSet
	memberToJoiner models.UserPermissionSet
}

// JoinSyncshell adds uid to the syncshell named by gidOrAlias, reconciles
// both directions of every new pair and publishes one ordered event batch.
//
// The membership commits first. Permission reconciliation runs in a second
// transaction. Publishing follows the commit; if it fails the persisted state
// stays and the returned error wraps common.ErrBrokerUnavailable. Cancelling
// ctx has effect only until the membership commits.
func (s *SyncshellService) JoinSyncshell(ctx context.Context, gidOrAlias, uid string) (res *JoinResult, err error) {
	defer func() { metrics.SyncshellOperations.WithLabelValues("join", metrics.Result(err)).Inc() }()

	group, err := s.checkJoinable(ctx, gidOrAlias, uid)
	if err != nil {
		return nil, err
	}
	gid := group.GID

	before, err := s.repomanager.Pairs(s.db).AllPairInfo(ctx, uid)
	if err != nil {
		return nil, storeErr("snapshot pairs", err)
	}

	joinerPref := models.GroupPairPreferredPermission{GroupGID: gid, UserUID: uid}
	err = dbx.WithRetryTx(ctx, s.db, nil, txAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		p := joinerPref
		if err := s.repomanager.Preferences(tx).Upsert(ctx, &p); err != nil {
			return storeErr("reset preferences", err)
		}
		return s.repomanager.GroupPairs(tx).Create(ctx, &models.GroupPair{GroupGID: gid, GroupUserUID: uid})
	})
	if errors.Is(err, common.ErrAlreadyMember) {
		return nil, fmt.Errorf("%w: %s in %s", common.ErrAlreadyMember, uid, gid)
	}
	if err != nil {
		return nil, storeErr("insert membership", err)
	}

	// The membership is committed; finish reconciling and publishing even if
	// the caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), joinCompletionTimeout)
	defer cancel()

	all, err := s.repomanager.GroupPairs(s.db).ListMembers(ctx, gid)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	var members []models.GroupMember
	for _, m := range all {
		if m.GroupUserUID != uid {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].GroupUserUID < members[j].GroupUserUID })

	after, err := s.repomanager.Pairs(s.db).AllPairInfo(ctx, uid)
	if err != nil {
		return nil, storeErr("snapshot pairs", err)
	}

	var pairs []pairResult
	err = dbx.WithRetryTx(ctx, s.db, nil, txAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		pairs = pairs[:0]
		for _, m := range members {
			pr, err := s.reconcilePair(ctx, tx, gid, uid, reconcile.DefaultsFrom(joinerPref), m)
			if err != nil {
				return err
			}
			pairs = append(pairs, pr)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("reconcile permissions", err)
	}

	batch, err := s.buildJoinEvents(ctx, *group, uid, joinerPref, pairs, before, after)
	if err != nil {
		return nil, err
	}

	res = &JoinResult{Group: *group, Events: batch}
	for _, pr := range pairs {
		res.Permissions = append(res.Permissions, pr.joinerToMember, pr.memberToJoiner)
	}

	s.logger.Info(ctx, "syncshell joined", "gid", gid, "uid", uid, "pairs", len(pairs))

	if err := s.bus.Publish(ctx, batch); err != nil {
		s.logger.Error(ctx, "join committed but notifications were not published",
			"gid", gid, "uid", uid, "events", len(batch), "error", err)
		if !errors.Is(err, common.ErrBrokerUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrBrokerUnavailable, err)
		}
		return res, err
	}
	return res, nil
}

// reconcilePair locks the pair and brings both directions in line with the
// owners' group preferences.
func (s *SyncshellService) reconcilePair(ctx context.Context, tx dbx.DBTX, gid, uid string, joinerDefaults reconcile.Defaults, m models.GroupMember) (pairResult, error) {
	perms := s.repomanager.Permissions(tx)
	peer := m.GroupUserUID

	if err := perms.LockPair(ctx, uid, peer); err != nil {
		return pairResult{}, storeErr("lock pair", err)
	}

	memberPref, err := s.repomanager.Preferences(tx).Get(ctx, gid, peer)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		memberPref = &models.GroupPairPreferredPermission{GroupGID: gid, UserUID: peer}
	case err != nil:
		return pairResult{}, storeErr("load member preferences", err)
	}

	out := pairResult{member: m}
	out.joinerToMember, err = s.applyDirection(ctx, tx, uid, peer, joinerDefaults)
	if err != nil {
		return pairResult{}, err
	}
	out.memberToJoiner, err = s.applyDirection(ctx, tx, peer, uid, reconcile.DefaultsFrom(*memberPref))
	if err != nil {
		return pairResult{}, err
	}
	return out, nil
}

func (s *SyncshellService) applyDirection(ctx context.Context, tx dbx.DBTX, owner, other string, d reconcile.Defaults) (models.UserPermissionSet, error) {
	perms := s.repomanager.Permissions(tx)

	existing, err := perms.Get(ctx, owner, other)
	if errors.Is(err, common.ErrorNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return models.UserPermissionSet{}, storeErr("load permissions", err)
	}

	next, outcome := reconcile.Reconcile(owner, other, d, existing)
	switch outcome {
	case reconcile.Created:
		err = perms.Create(ctx, &next)
	case reconcile.Updated:
		err = perms.Update(ctx, &next)
	}
	if err != nil {
		return models.UserPermissionSet{}, storeErr("write permissions", err)
	}
	metrics.PermissionRowsReconciled.WithLabelValues(outcome.String()).Inc()
	return next, nil
}

func (s *SyncshellService) identity(ctx context.Context, uid string) (models.Identity, error) {
	u, err := s.repomanager.Users(s.db).Get(ctx, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return models.Identity{UID: uid}, nil
	}
	if err != nil {
		return models.Identity{}, storeErr("load user", err)
	}
	return models.Identity{UID: u.UID, Alias: u.Alias}, nil
}

// buildJoinEvents produces the batch in dispatch order: the group state for
// the joiner, then per member the two PairJoined events and, when due, the
// online notification.
func (s *SyncshellService) buildJoinEvents(ctx context.Context, g models.Group, uid string, joinerPref models.GroupPairPreferredPermission,
	pairs []pairResult, before, after map[string]models.PairInfo) ([]events.Envelope, error) {

	joiner, err := s.identity(ctx, uid)
	if err != nil {
		return nil, err
	}
	owner, err := s.identity(ctx, g.OwnerUID)
	if err != nil {
		return nil, err
	}

	full := events.GroupFullInfo{
		Group: events.GroupInfo{
			GID:                     g.GID,
			Alias:                   g.Alias,
			Owner:                   owner,
			InvitesEnabled:          g.InvitesEnabled,
			PreferDisableSounds:     g.PreferDisableSounds,
			PreferDisableAnimations: g.PreferDisableAnimations,
			PreferDisableVFX:        g.PreferDisableVFX,
		},
		OwnPermissions: events.GroupPermissions{
			DisableSounds:     joinerPref.DisableSounds,
			DisableAnimations: joinerPref.DisableAnimations,
			DisableVFX:        joinerPref.DisableVFX,
			IsPaused:          joinerPref.IsPaused,
		},
		PrivilegedMembers: map[string]events.MemberInfo{},
	}
	for _, pr := range pairs {
		if pr.member.IsPinned || pr.member.IsModerator {
			full.PrivilegedMembers[pr.member.GroupUserUID] = memberInfo(pr.member, after)
		}
	}

	var out []events.Envelope
	add := func(kind events.Kind, target string, payload any) error {
		e, err := events.NewEnvelope(kind, target, payload)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}

	if err := add(events.KindGroupFullInfo, uid, full); err != nil {
		return nil, err
	}
	joinerInfo := events.MemberInfo{Identity: joiner}
	for _, pr := range pairs {
		peer := pr.member.GroupUserUID
		member := memberInfo(pr.member, after)

		if err := add(events.KindPairJoined, uid, events.PairJoined{
			GID: g.GID, Member: member,
			OwnPermissions: pr.joinerToMember, OtherPermissions: pr.memberToJoiner,
		}); err != nil {
			return nil, err
		}
		if err := add(events.KindPairJoined, peer, events.PairJoined{
			GID: g.GID, Member: joinerInfo,
			OwnPermissions: pr.memberToJoiner, OtherPermissions: pr.joinerToMember,
		}); err != nil {
			return nil, err
		}

		if reconcile.ShouldNotifyOnline(before[peer].IsSynced, pr.joinerToMember, pr.memberToJoiner) {
			if err := add(events.KindOnlineNotification, uid, events.OnlineNotification{
				UserUID: uid, PairUID: peer, Self: joiner, Pair: member.Identity,
			}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// memberInfo prefers the alias from the post-join pair snapshot and falls
// back to the membership listing.
func memberInfo(m models.GroupMember, after map[string]models.PairInfo) events.MemberInfo {
	alias := m.Alias
	if info, ok := after[m.GroupUserUID]; ok && info.Alias != "" {
		alias = info.Alias
	}
	return events.MemberInfo{
		Identity:    models.Identity{UID: m.GroupUserUID, Alias: alias},
		IsPinned:    m.IsPinned,
		IsModerator: m.IsModerator,
	}
}
