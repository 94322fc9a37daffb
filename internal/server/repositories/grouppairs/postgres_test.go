package grouppairs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
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

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	joined := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+group_pairs\s*\(group_gid,\s*group_user_uid,\s*is_pinned,\s*is_moderator\).*RETURNING\s+joined_at`).
		WithArgs("MSS-1", "U1", true, false).
		WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(joined))

	p := &models.GroupPair{GroupGID: "MSS-1", GroupUserUID: "U1", IsPinned: true}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, joined, p.JoinedAt)
}

func TestCreate_DuplicateIsAlreadyMember(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+group_pairs`).
		WithArgs("MSS-1", "U1", false, false).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.GroupPair{GroupGID: "MSS-1", GroupUserUID: "U1"})
	assert.ErrorIs(t, err, common.ErrAlreadyMember)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+group_pairs\s+WHERE\s+group_gid\s*=\s*\$1\s+AND\s+group_user_uid\s*=\s*\$2`).
		WithArgs("MSS-1", "U2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "MSS-1", "U2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListMembers(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+group_pairs\s+gp\s+JOIN\s+users\s+u.*ORDER\s+BY\s+gp.group_user_uid`).
		WithArgs("MSS-1").
		WillReturnRows(sqlmock.NewRows([]string{"group_gid", "group_user_uid", "is_pinned", "is_moderator", "joined_at", "alias"}).
			AddRow("MSS-1", "A", true, false, now, "alice").
			AddRow("MSS-1", "B", false, true, now, nil))

	got, err := repo.ListMembers(context.Background(), "MSS-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Alias)
	assert.True(t, got[0].IsPinned)
	assert.Equal(t, "", got[1].Alias)
	assert.True(t, got[1].IsModerator)
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+group_pairs\s+WHERE\s+group_user_uid\s*=\s*\$1`).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows([]string{"group_gid", "group_user_uid", "is_pinned", "is_moderator", "joined_at"}).
			AddRow("MSS-1", "U1", false, false, time.Now()))

	got, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MSS-1", got[0].GroupGID)
}

func TestSetPinned(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+group_pairs\s+SET\s+is_pinned\s*=\s*\$3`).
		WithArgs("MSS-1", "U2", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPinned(context.Background(), "MSS-1", "U2", true))
}

func TestDeleteByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+group_pairs\s+WHERE\s+group_user_uid\s*=\s*\$1`).
		WithArgs("U1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByUser(context.Background(), "U1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
