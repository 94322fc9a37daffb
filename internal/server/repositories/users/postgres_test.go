package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userCols = []string{"uid", "alias", "is_admin", "is_moderator", "is_limited", "limited_until", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(uid,\s*alias,.*RETURNING\s+created_at`).
		WithArgs("U1", sql.NullString{String: "alice", Valid: true}, false, false, false, sql.NullTime{}).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u := &models.User{UID: "U1", Alias: "alice"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("created_at not populated: %v", u.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_FoundWithNulls(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+uid,.*FROM\s+users\s+WHERE\s+uid\s*=\s*\$1$`).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("U1", nil, true, false, false, nil, time.Now()))

	got, err := repo.Get(context.Background(), "U1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.UID != "U1" || got.Alias != "" || !got.IsAdmin || got.LimitedUntil != nil {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+uid`).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nobody")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetFirstAdmin_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+is_admin\s+ORDER\s+BY`).WillReturnError(errors.New("db down"))

	_, err := repo.GetFirstAdmin(context.Background())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListExpiredLimited(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	until := now.Add(-time.Hour)
	mock.ExpectQuery(`(?s)WHERE\s+is_limited\s+AND\s+limited_until\s+IS\s+NOT\s+NULL\s+AND\s+limited_until\s*<=\s*\$1`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("T1", "temp", false, false, true, until, now.Add(-48*time.Hour)))

	got, err := repo.ListExpiredLimited(context.Background(), now)
	if err != nil {
		t.Fatalf("ListExpiredLimited error: %v", err)
	}
	if len(got) != 1 || got[0].UID != "T1" || got[0].LimitedUntil == nil || !got[0].LimitedUntil.Equal(until) {
		t.Fatalf("unexpected users: %+v", got)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+users\s+WHERE\s+uid\s*=\s*\$1$`).
		WithArgs("U9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "U9"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetDefaultPermissions(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+user_default_preferred_permissions\s+WHERE\s+user_uid\s*=\s*\$1`).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows([]string{"user_uid", "disable_group_sounds", "disable_group_animations", "disable_group_vfx"}).
			AddRow("U1", true, false, true))

	got, err := repo.GetDefaultPermissions(context.Background(), "U1")
	if err != nil {
		t.Fatalf("GetDefaultPermissions error: %v", err)
	}
	if !got.DisableGroupSounds || got.DisableGroupAnimations || !got.DisableGroupVFX {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestGetDefaultPermissions_Missing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+user_default_preferred_permissions`).WithArgs("U2").WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetDefaultPermissions(context.Background(), "U2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSetDefaultPermissions_Upsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+user_default_preferred_permissions.*ON\s+CONFLICT\s+\(user_uid\)\s+DO\s+UPDATE`).
		WithArgs("U1", false, true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetDefaultPermissions(context.Background(), &models.UserDefaultPreferredPermission{UserUID: "U1", DisableGroupAnimations: true})
	if err != nil {
		t.Fatalf("SetDefaultPermissions error: %v", err)
	}
}
