package bans

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestIsBanned(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT\s+EXISTS.*FROM\s+group_bans\s+WHERE\s+group_gid\s*=\s*\$1\s+AND\s+banned_user_uid\s*=\s*\$2`).
		WithArgs("MSS-1", "B").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	banned, err := repo.IsBanned(context.Background(), "MSS-1", "B")
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestIsBanned_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+group_bans`).WillReturnError(errors.New("timeout"))

	_, err := repo.IsBanned(context.Background(), "MSS-1", "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: timeout")
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+group_bans.*RETURNING\s+banned_at`).
		WithArgs("MSS-1", "B", sql.NullString{String: "A", Valid: true}, "spam").
		WillReturnRows(sqlmock.NewRows([]string{"banned_at"}).AddRow(at))

	b := &models.GroupBan{GroupGID: "MSS-1", BannedUserUID: "B", BannedByUID: "A", Reason: "spam"}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, at, b.BannedAt)
}

func TestDeleteByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+group_bans\s+WHERE\s+banned_user_uid\s*=\s*\$1`).
		WithArgs("B").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByUser(context.Background(), "B"))
}
