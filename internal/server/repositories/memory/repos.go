package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/permissions"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.Create"); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.s.tick()
	}
	r.s.users[u.UID] = *u
	return nil
}

func (r userRepo) Get(_ context.Context, uid string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.Get"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[uid]
	if !ok {
		return nil, errNotFound
	}
	return &u, nil
}

func (r userRepo) GetFirstAdmin(_ context.Context) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var first *models.User
	for _, u := range r.s.users {
		if !u.IsAdmin {
			continue
		}
		if first == nil || u.CreatedAt.Before(first.CreatedAt) || (u.CreatedAt.Equal(first.CreatedAt) && u.UID < first.UID) {
			u := u
			first = &u
		}
	}
	if first == nil {
		return nil, errNotFound
	}
	return first, nil
}

func (r userRepo) ListExpiredLimited(_ context.Context, now time.Time) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.ListExpiredLimited"); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range r.s.users {
		if u.IsLimited && u.LimitedUntil != nil && !u.LimitedUntil.After(now) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LimitedUntil.Before(*out[j].LimitedUntil) })
	return out, nil
}

func (r userRepo) Delete(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[uid]; !ok {
		return errNotFound
	}
	delete(r.s.users, uid)
	delete(r.s.defaults, uid)
	return nil
}

func (r userRepo) GetDefaultPermissions(_ context.Context, uid string) (*models.UserDefaultPreferredPermission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.defaults[uid]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (r userRepo) SetDefaultPermissions(_ context.Context, p *models.UserDefaultPreferredPermission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.defaults[p.UserUID] = *p
	return nil
}

type groupRepo struct{ s *Store }

func (r groupRepo) Create(_ context.Context, g *models.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("groups.Create"); err != nil {
		return err
	}
	if _, ok := r.s.groups[g.GID]; ok {
		return common.ErrGroupIDTaken
	}
	if g.Alias != "" {
		for _, other := range r.s.groups {
			if other.Alias == g.Alias {
				return common.ErrAliasTaken
			}
		}
	}
	g.CreatedAt = r.s.tick()
	r.s.groups[g.GID] = *g
	return nil
}

func (r groupRepo) Exists(_ context.Context, gid string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.groups[gid]
	return ok, nil
}

func (r groupRepo) Get(_ context.Context, gid string) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[gid]
	if !ok {
		return nil, errNotFound
	}
	return &g, nil
}

func (r groupRepo) GetByIDOrAlias(_ context.Context, idOrAlias string) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("groups.GetByIDOrAlias"); err != nil {
		return nil, err
	}
	if g, ok := r.s.groups[idOrAlias]; ok {
		return &g, nil
	}
	for _, g := range r.s.groups {
		if g.Alias != "" && g.Alias == idOrAlias {
			return &g, nil
		}
	}
	return nil, errNotFound
}

func (r groupRepo) ListOwnedBy(_ context.Context, uid string) ([]models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Group
	for _, g := range r.s.groups {
		if g.OwnerUID == uid {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GID < out[j].GID })
	return out, nil
}

func (r groupRepo) UpdateOwner(_ context.Context, gid, ownerUID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[gid]
	if !ok {
		return errNotFound
	}
	g.OwnerUID = ownerUID
	r.s.groups[gid] = g
	return nil
}

func (r groupRepo) Delete(_ context.Context, gid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.groups, gid)
	for k := range r.s.members {
		if k.a == gid {
			delete(r.s.members, k)
		}
	}
	for k := range r.s.prefs {
		if k.a == gid {
			delete(r.s.prefs, k)
		}
	}
	for k := range r.s.bans {
		if k.a == gid {
			delete(r.s.bans, k)
		}
	}
	return nil
}

type memberRepo struct{ s *Store }

func (r memberRepo) Create(_ context.Context, p *models.GroupPair) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("grouppairs.Create"); err != nil {
		return err
	}
	k := key{p.GroupGID, p.GroupUserUID}
	if _, ok := r.s.members[k]; ok {
		return common.ErrAlreadyMember
	}
	p.JoinedAt = r.s.tick()
	r.s.members[k] = *p
	return nil
}

func (r memberRepo) Get(_ context.Context, gid, uid string) (*models.GroupPair, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.members[key{gid, uid}]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (r memberRepo) ListMembers(_ context.Context, gid string) ([]models.GroupMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("grouppairs.ListMembers"); err != nil {
		return nil, err
	}
	var out []models.GroupMember
	for k, p := range r.s.members {
		if k.a == gid {
			out = append(out, models.GroupMember{GroupPair: p, Alias: r.s.users[k.b].Alias})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupUserUID < out[j].GroupUserUID })
	return out, nil
}

func (r memberRepo) ListByUser(_ context.Context, uid string) ([]models.GroupPair, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.GroupPair
	for k, p := range r.s.members {
		if k.b == uid {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupGID < out[j].GroupGID })
	return out, nil
}

func (r memberRepo) SetPinned(_ context.Context, gid, uid string, pinned bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key{gid, uid}
	p, ok := r.s.members[k]
	if !ok {
		return errNotFound
	}
	p.IsPinned = pinned
	r.s.members[k] = p
	return nil
}

func (r memberRepo) DeleteByUser(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.members {
		if k.b == uid {
			delete(r.s.members, k)
		}
	}
	return nil
}

type prefRepo struct{ s *Store }

func (r prefRepo) Get(_ context.Context, gid, uid string) (*models.GroupPairPreferredPermission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prefs[key{gid, uid}]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (r prefRepo) Upsert(_ context.Context, p *models.GroupPairPreferredPermission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("preferences.Upsert"); err != nil {
		return err
	}
	r.s.prefs[key{p.GroupGID, p.UserUID}] = *p
	return nil
}

func (r prefRepo) DeleteByUser(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.prefs {
		if k.b == uid {
			delete(r.s.prefs, k)
		}
	}
	return nil
}

type permRepo struct{ s *Store }

func (r permRepo) LockPair(_ context.Context, a, b string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locks = append(r.s.locks, permissions.PairKey(a, b))
	return nil
}

func (r permRepo) Get(_ context.Context, owner, other string) (*models.UserPermissionSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.perms[key{owner, other}]
	if !ok {
		return nil, errNotFound
	}
	return &p, nil
}

func (r permRepo) Create(_ context.Context, p *models.UserPermissionSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("permissions.Create"); err != nil {
		return err
	}
	r.s.perms[key{p.UserUID, p.OtherUserUID}] = *p
	return nil
}

func (r permRepo) Update(_ context.Context, p *models.UserPermissionSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := key{p.UserUID, p.OtherUserUID}
	if _, ok := r.s.perms[k]; !ok {
		return errNotFound
	}
	r.s.perms[k] = *p
	return nil
}

func (r permRepo) DeleteByUser(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.perms {
		if k.a == uid || k.b == uid {
			delete(r.s.perms, k)
		}
	}
	return nil
}

type banRepo struct{ s *Store }

func (r banRepo) IsBanned(_ context.Context, gid, uid string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.bans[key{gid, uid}]
	return ok, nil
}

func (r banRepo) Create(_ context.Context, b *models.GroupBan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.BannedAt = r.s.tick()
	r.s.bans[key{b.GroupGID, b.BannedUserUID}] = *b
	return nil
}

func (r banRepo) DeleteByUser(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.bans {
		if k.b == uid {
			delete(r.s.bans, k)
		}
	}
	return nil
}

type pairRepo struct{ s *Store }

func (r pairRepo) Create(_ context.Context, p *models.ClientPair) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.pairs[key{p.UserUID, p.OtherUserUID}] = struct{}{}
	return nil
}

func (r pairRepo) DeleteByUser(_ context.Context, uid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k := range r.s.pairs {
		if k.a == uid || k.b == uid {
			delete(r.s.pairs, k)
		}
	}
	return nil
}

func (r pairRepo) AllPairInfo(_ context.Context, uid string) (map[string]models.PairInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("pairs.AllPairInfo"); err != nil {
		return nil, err
	}

	type rel struct {
		peer, gid string
		synced    bool
	}
	var rels []rel
	for k := range r.s.pairs {
		if k.a != uid {
			continue
		}
		_, back := r.s.pairs[key{k.b, k.a}]
		rels = append(rels, rel{peer: k.b, synced: back})
	}
	for k := range r.s.members {
		if k.b != uid {
			continue
		}
		for other := range r.s.members {
			if other.a == k.a && other.b != uid {
				rels = append(rels, rel{peer: other.b, gid: k.a, synced: true})
			}
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].peer != rels[j].peer {
			return rels[i].peer < rels[j].peer
		}
		return rels[i].gid < rels[j].gid
	})

	out := make(map[string]models.PairInfo)
	for _, rl := range rels {
		info, seen := out[rl.peer]
		if !seen {
			info.Alias = r.s.users[rl.peer].Alias
			if p, ok := r.s.perms[key{uid, rl.peer}]; ok {
				info.OwnPermissions = &p
			}
			if p, ok := r.s.perms[key{rl.peer, uid}]; ok {
				info.OtherPermissions = &p
			}
		}
		if rl.gid == "" {
			info.IndividuallyPaired = rl.synced
			info.GIDs = append(info.GIDs, common.DirectPairGroup)
		} else {
			info.GIDs = append(info.GIDs, rl.gid)
		}
		info.IsSynced = info.IsSynced || rl.synced
		out[rl.peer] = info
	}
	return out, nil
}
