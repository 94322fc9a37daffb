package bans

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) IsBanned(ctx context.Context, gid, uid string) (bool, error) {
	query :=
		`SELECT EXISTS (
		     SELECT 1 FROM group_bans WHERE group_gid = $1 AND banned_user_uid = $2
		 )`

	var banned bool
	if err := r.db.QueryRowContext(ctx, query, gid, uid).Scan(&banned); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return banned, nil
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.GroupBan) error {
	query :=
		`INSERT INTO group_bans (group_gid, banned_user_uid, banned_by_uid, reason)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (group_gid, banned_user_uid) DO UPDATE SET reason = EXCLUDED.reason
		 RETURNING banned_at
		 `

	by := sql.NullString{String: b.BannedByUID, Valid: b.BannedByUID != ""}
	if err := r.db.QueryRowContext(ctx, query, b.GroupGID, b.BannedUserUID, by, b.Reason).Scan(&b.BannedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByUser drops bans held against uid. Bans issued by uid survive with
// banned_by cleared by the foreign key.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_bans WHERE banned_user_uid = $1`, uid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
