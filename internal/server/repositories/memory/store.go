// Package memory is an in-process RepositoryManager. It ignores the DBTX it
// is handed, so writes are not rolled back with the surrounding transaction;
// it backs service tests and single-node experiments.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/bans"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/grouppairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/groups"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/pairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/users"
)

type key struct{ a, b string }

// Store holds every table. The zero value is not usable; call NewStore.
type Store struct {
	mu sync.Mutex

	users    map[string]models.User
	defaults map[string]models.UserDefaultPreferredPermission
	groups   map[string]models.Group
	members  map[key]models.GroupPair
	prefs    map[key]models.GroupPairPreferredPermission
	perms    map[key]models.UserPermissionSet
	pairs    map[key]struct{}
	bans     map[key]models.GroupBan

	locks []string
	fail  map[string]error
	clock time.Time
}

func NewStore() *Store {
	return &Store{
		users:    map[string]models.User{},
		defaults: map[string]models.UserDefaultPreferredPermission{},
		groups:   map[string]models.Group{},
		members:  map[key]models.GroupPair{},
		prefs:    map[key]models.GroupPairPreferredPermission{},
		perms:    map[key]models.UserPermissionSet{},
		pairs:    map[key]struct{}{},
		bans:     map[key]models.GroupBan{},
		fail:     map[string]error{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailOn makes the named operation (e.g. "grouppairs.Create") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Locks returns the pair keys passed to LockPair, in call order.
func (s *Store) Locks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locks...)
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) check(op string) error {
	return s.fail[op]
}

// Snapshot is a comparable copy of every table.
type Snapshot struct {
	Users       []models.User
	Defaults    []models.UserDefaultPreferredPermission
	Groups      []models.Group
	Members     []models.GroupPair
	Preferences []models.GroupPairPreferredPermission
	Permissions []models.UserPermissionSet
	Pairs       []models.ClientPair
	Bans        []models.GroupBan
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Users:    sortedValues(s.users, func(a, b models.User) bool { return a.UID < b.UID }),
		Defaults: sortedValues(s.defaults, func(a, b models.UserDefaultPreferredPermission) bool { return a.UserUID < b.UserUID }),
		Groups:   sortedValues(s.groups, func(a, b models.Group) bool { return a.GID < b.GID }),
		Members: sortedValues(s.members, func(a, b models.GroupPair) bool {
			return a.GroupGID+"|"+a.GroupUserUID < b.GroupGID+"|"+b.GroupUserUID
		}),
		Preferences: sortedValues(s.prefs, func(a, b models.GroupPairPreferredPermission) bool {
			return a.GroupGID+"|"+a.UserUID < b.GroupGID+"|"+b.UserUID
		}),
		Permissions: sortedValues(s.perms, func(a, b models.UserPermissionSet) bool {
			return a.UserUID+"|"+a.OtherUserUID < b.UserUID+"|"+b.OtherUserUID
		}),
		Bans: sortedValues(s.bans, func(a, b models.GroupBan) bool {
			return a.GroupGID+"|"+a.BannedUserUID < b.GroupGID+"|"+b.BannedUserUID
		}),
	}
	for k := range s.pairs {
		snap.Pairs = append(snap.Pairs, models.ClientPair{UserUID: k.a, OtherUserUID: k.b})
	}
	sort.Slice(snap.Pairs, func(i, j int) bool {
		return snap.Pairs[i].UserUID+"|"+snap.Pairs[i].OtherUserUID < snap.Pairs[j].UserUID+"|"+snap.Pairs[j].OtherUserUID
	})
	return snap
}

// Manager adapts a Store to repomanager.RepositoryManager.
type Manager struct {
	Store *Store
}

func NewManager(s *Store) *Manager {
	return &Manager{Store: s}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository             { return userRepo{m.Store} }
func (m *Manager) Groups(dbx.DBTX) groups.Repository           { return groupRepo{m.Store} }
func (m *Manager) GroupPairs(dbx.DBTX) grouppairs.Repository   { return memberRepo{m.Store} }
func (m *Manager) Preferences(dbx.DBTX) preferences.Repository { return prefRepo{m.Store} }
func (m *Manager) Permissions(dbx.DBTX) permissions.Repository { return permRepo{m.Store} }
func (m *Manager) Bans(dbx.DBTX) bans.Repository               { return banRepo{m.Store} }
func (m *Manager) Pairs(dbx.DBTX) pairs.Repository             { return pairRepo{m.Store} }

var errNotFound = common.ErrorNotFound
