package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, gid, uid string) (*models.GroupPairPreferredPermission, error) {
	query :=
		`SELECT group_gid, user_uid, disable_sounds, disable_animations, disable_vfx, is_paused
		 FROM group_pair_preferred_permissions
		 WHERE group_gid = $1 AND user_uid = $2
		 `

	p := &models.GroupPairPreferredPermission{}
	err := r.db.QueryRowContext(ctx, query, gid, uid).
		Scan(&p.GroupGID, &p.UserUID, &p.DisableSounds, &p.DisableAnimations, &p.DisableVFX, &p.IsPaused)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.GroupPairPreferredPermission) error {
	query :=
		`INSERT INTO group_pair_preferred_permissions
		     (group_gid, user_uid, disable_sounds, disable_animations, disable_vfx, is_paused)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (group_gid, user_uid) DO UPDATE
		 SET disable_sounds = EXCLUDED.disable_sounds,
		     disable_animations = EXCLUDED.disable_animations,
		     disable_vfx = EXCLUDED.disable_vfx,
		     is_paused = EXCLUDED.is_paused
		 `

	_, err := r.db.ExecContext(ctx, query,
		p.GroupGID, p.UserUID, p.DisableSounds, p.DisableAnimations, p.DisableVFX, p.IsPaused)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_pair_preferred_permissions WHERE user_uid = $1`, uid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
