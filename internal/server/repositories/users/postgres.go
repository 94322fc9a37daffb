package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const userColumns = `uid, alias, is_admin, is_moderator, is_limited, limited_until, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var (
		u     models.User
		alias sql.NullString
		until sql.NullTime
	)
	if err := s.Scan(&u.UID, &alias, &u.IsAdmin, &u.IsModerator, &u.IsLimited, &until, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Alias = alias.String
	if until.Valid {
		t := until.Time
		u.LimitedUntil = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (uid, alias, is_admin, is_moderator, is_limited, limited_until)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	var until sql.NullTime
	if user.LimitedUntil != nil {
		until = sql.NullTime{Time: *user.LimitedUntil, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		user.UID, nullString(user.Alias), user.IsAdmin, user.IsModerator, user.IsLimited, until).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetFirstAdmin(ctx context.Context) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_admin ORDER BY created_at, uid LIMIT 1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListExpiredLimited(ctx context.Context, now time.Time) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE is_limited AND limited_until IS NOT NULL AND limited_until <= $1
		 ORDER BY limited_until`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, uid string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
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

func (r *PostgresRepository) GetDefaultPermissions(ctx context.Context, uid string) (*models.UserDefaultPreferredPermission, error) {
	query :=
		`SELECT user_uid, disable_group_sounds, disable_group_animations, disable_group_vfx
		 FROM user_default_preferred_permissions
		 WHERE user_uid = $1
		 `

	p := &models.UserDefaultPreferredPermission{}
	err := r.db.QueryRowContext(ctx, query, uid).Scan(&p.UserUID, &p.DisableGroupSounds, &p.DisableGroupAnimations, &p.DisableGroupVFX)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SetDefaultPermissions(ctx context.Context, p *models.UserDefaultPreferredPermission) error {
	query :=
		`INSERT INTO user_default_preferred_permissions (user_uid, disable_group_sounds, disable_group_animations, disable_group_vfx)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_uid) DO UPDATE
		 SET disable_group_sounds = EXCLUDED.disable_group_sounds,
		     disable_group_animations = EXCLUDED.disable_group_animations,
		     disable_group_vfx = EXCLUDED.disable_group_vfx
		 `

	if _, err := r.db.ExecContext(ctx, query, p.UserUID, p.DisableGroupSounds, p.DisableGroupAnimations, p.DisableGroupVFX); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
