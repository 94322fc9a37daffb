package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

// groupsPrimaryKey is the constraint Postgres names for the gid primary key.
const groupsPrimaryKey = "groups_pkey"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const groupColumns = `gid, alias, owner_uid, hashed_password, invites_enabled,
		prefer_disable_sounds, prefer_disable_animations, prefer_disable_vfx, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(s rowScanner) (*models.Group, error) {
	var (
		g     models.Group
		alias sql.NullString
	)
	err := s.Scan(&g.GID, &alias, &g.OwnerUID, &g.HashedPassword, &g.InvitesEnabled,
		&g.PreferDisableSounds, &g.PreferDisableAnimations, &g.PreferDisableVFX, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.Alias = alias.String
	return &g, nil
}

func (r *PostgresRepository) Create(ctx context.Context, g *models.Group) error {
	query :=
		`INSERT INTO groups (gid, alias, owner_uid, hashed_password, invites_enabled,
		     prefer_disable_sounds, prefer_disable_animations, prefer_disable_vfx)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	alias := sql.NullString{String: g.Alias, Valid: g.Alias != ""}
	err := r.db.QueryRowContext(ctx, query,
		g.GID, alias, g.OwnerUID, g.HashedPassword, g.InvitesEnabled,
		g.PreferDisableSounds, g.PreferDisableAnimations, g.PreferDisableVFX).Scan(&g.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			if dbx.ConstraintName(err) == groupsPrimaryKey {
				return common.ErrGroupIDTaken
			}
			return common.ErrAliasTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, gid string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE gid = $1)`, gid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Get(ctx context.Context, gid string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE gid = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, gid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

// GetByIDOrAlias resolves a syncshell by exact GID or by vanity alias. A GID
// match wins over an alias match.
func (r *PostgresRepository) GetByIDOrAlias(ctx context.Context, idOrAlias string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups
		 WHERE gid = $1 OR alias = $1
		 ORDER BY (gid = $1) DESC
		 LIMIT 1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, idOrAlias))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) ListOwnedBy(ctx context.Context, uid string) ([]models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE owner_uid = $1 ORDER BY gid`

	rows, err := r.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) UpdateOwner(ctx context.Context, gid, ownerUID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE groups SET owner_uid = $2 WHERE gid = $1`, gid, ownerUID)
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

func (r *PostgresRepository) Delete(ctx context.Context, gid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE gid = $1`, gid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
