package permissions

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

// PairKey is the order-independent key of the pair (a, b).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (r *PostgresRepository) LockPair(ctx context.Context, a, b string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, PairKey(a, b)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerUID, otherUID string) (*models.UserPermissionSet, error) {
	query :=
		`SELECT user_uid, other_user_uid, disable_sounds, disable_animations, disable_vfx, is_paused, sticky
		 FROM user_permission_sets
		 WHERE user_uid = $1 AND other_user_uid = $2
		 `

	p := &models.UserPermissionSet{}
	err := r.db.QueryRowContext(ctx, query, ownerUID, otherUID).
		Scan(&p.UserUID, &p.OtherUserUID, &p.DisableSounds, &p.DisableAnimations, &p.DisableVFX, &p.IsPaused, &p.Sticky)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.UserPermissionSet) error {
	query :=
		`INSERT INTO user_permission_sets
		     (user_uid, other_user_uid, disable_sounds, disable_animations, disable_vfx, is_paused, sticky)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		p.UserUID, p.OtherUserUID, p.DisableSounds, p.DisableAnimations, p.DisableVFX, p.IsPaused, p.Sticky)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.UserPermissionSet) error {
	query :=
		`UPDATE user_permission_sets
		 SET disable_sounds = $3, disable_animations = $4, disable_vfx = $5, is_paused = $6, sticky = $7
		 WHERE user_uid = $1 AND other_user_uid = $2
		 `

	res, err := r.db.ExecContext(ctx, query,
		p.UserUID, p.OtherUserUID, p.DisableSounds, p.DisableAnimations, p.DisableVFX, p.IsPaused, p.Sticky)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteByUser removes both directions of every row involving uid.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_permission_sets WHERE user_uid = $1 OR other_user_uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
