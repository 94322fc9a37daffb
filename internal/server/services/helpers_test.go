package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pairsync/internal/cryptox"
	"github.com/dmitrijs2005/pairsync/internal/logging"
	"github.com/dmitrijs2005/pairsync/internal/server/events"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// expectCommits queues n successful transactions.
func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

type recordingBus struct {
	mu      sync.Mutex
	batches [][]events.Envelope
	err     error
}

func (b *recordingBus) Publish(ctx context.Context, evs []events.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.batches = append(b.batches, evs)
	return nil
}

func (b *recordingBus) all() [][]events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]events.Envelope(nil), b.batches...)
}

var cheapHash = func(p string) (string, error) {
	return cryptox.HashPasswordWithParams(p, cryptox.Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16})
}

type harness struct {
	store *memory.Store
	rm    *memory.Manager
	db    *sql.DB
	mock  sqlmock.Sqlmock
	bus   *recordingBus
	svc   *SyncshellService
}

func newHarness(t *testing.T, opts ...SyncshellOption) *harness {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := memory.NewStore()
	rm := memory.NewManager(store)
	bus := &recordingBus{}
	opts = append([]SyncshellOption{WithPasswordHasher(cheapHash)}, opts...)
	return &harness{
		store: store,
		rm:    rm,
		db:    db,
		mock:  mock,
		bus:   bus,
		svc:   NewSyncshellService(db, rm, bus, logging.Nop{}, opts...),
	}
}

func (h *harness) addUser(t *testing.T, uid string, defaults *models.UserDefaultPreferredPermission) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.rm.Users(nil).Create(ctx, &models.User{UID: uid, Alias: "alias-" + uid}))
	if defaults != nil {
		d := *defaults
		d.UserUID = uid
		require.NoError(t, h.rm.Users(nil).SetDefaultPermissions(ctx, &d))
	}
}

// addGroup seeds a syncshell owned by owner with the given members.
func (h *harness) addGroup(t *testing.T, g models.Group, members ...models.GroupPair) {
	t.Helper()
	ctx := context.Background()
	if g.HashedPassword == "" {
		g.HashedPassword = "x"
	}
	require.NoError(t, h.rm.Groups(nil).Create(ctx, &g))
	for _, m := range members {
		m.GroupGID = g.GID
		require.NoError(t, h.rm.GroupPairs(nil).Create(ctx, &m))
		require.NoError(t, h.rm.Preferences(nil).Upsert(ctx, &models.GroupPairPreferredPermission{GroupGID: g.GID, UserUID: m.GroupUserUID}))
	}
}

func (h *harness) setPref(t *testing.T, p models.GroupPairPreferredPermission) {
	t.Helper()
	require.NoError(t, h.rm.Preferences(nil).Upsert(context.Background(), &p))
}

func (h *harness) setPerm(t *testing.T, p models.UserPermissionSet) {
	t.Helper()
	require.NoError(t, h.rm.Permissions(nil).Create(context.Background(), &p))
}

func (h *harness) perm(t *testing.T, owner, other string) models.UserPermissionSet {
	t.Helper()
	p, err := h.rm.Permissions(nil).Get(context.Background(), owner, other)
	require.NoError(t, err)
	return *p
}

func (h *harness) verify(t *testing.T) {
	t.Helper()
	if err := h.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func kinds(evs []events.Envelope) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = string(e.Type) + ">" + e.TargetUID
	}
	return out
}

func fixedIDs(ids ...string) (func() (string, error), *int) {
	calls := 0
	return func() (string, error) {
		id := ids[calls%len(ids)]
		calls++
		return id, nil
	}, &calls
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
