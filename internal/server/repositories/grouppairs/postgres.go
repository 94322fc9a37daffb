package grouppairs

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

// Create inserts a membership. The (group, user) primary key makes a
// concurrent duplicate fail with common.ErrAlreadyMember.
func (r *PostgresRepository) Create(ctx context.Context, p *models.GroupPair) error {
	query :=
		`INSERT INTO group_pairs (group_gid, group_user_uid, is_pinned, is_moderator)
		 VALUES ($1, $2, $3, $4)
		 RETURNING joined_at
		 `

	err := r.db.QueryRowContext(ctx, query, p.GroupGID, p.GroupUserUID, p.IsPinned, p.IsModerator).Scan(&p.JoinedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyMember
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, gid, uid string) (*models.GroupPair, error) {
	query :=
		`SELECT group_gid, group_user_uid, is_pinned, is_moderator, joined_at
		 FROM group_pairs
		 WHERE group_gid = $1 AND group_user_uid = $2
		 `

	p := &models.GroupPair{}
	err := r.db.QueryRowContext(ctx, query, gid, uid).Scan(&p.GroupGID, &p.GroupUserUID, &p.IsPinned, &p.IsModerator, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// ListMembers returns every membership of gid with the member's alias,
// ordered by UID.
func (r *PostgresRepository) ListMembers(ctx context.Context, gid string) ([]models.GroupMember, error) {
	query :=
		`SELECT gp.group_gid, gp.group_user_uid, gp.is_pinned, gp.is_moderator, gp.joined_at, u.alias
		 FROM group_pairs gp
		 JOIN users u ON u.uid = gp.group_user_uid
		 WHERE gp.group_gid = $1
		 ORDER BY gp.group_user_uid
		 `

	rows, err := r.db.QueryContext(ctx, query, gid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.GroupMember
	for rows.Next() {
		var (
			m     models.GroupMember
			alias sql.NullString
		)
		if err := rows.Scan(&m.GroupGID, &m.GroupUserUID, &m.IsPinned, &m.IsModerator, &m.JoinedAt, &alias); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Alias = alias.String
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, uid string) ([]models.GroupPair, error) {
	query :=
		`SELECT group_gid, group_user_uid, is_pinned, is_moderator, joined_at
		 FROM group_pairs
		 WHERE group_user_uid = $1
		 ORDER BY group_gid
		 `

	rows, err := r.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.GroupPair
	for rows.Next() {
		var p models.GroupPair
		if err := rows.Scan(&p.GroupGID, &p.GroupUserUID, &p.IsPinned, &p.IsModerator, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetPinned(ctx context.Context, gid, uid string, pinned bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_pairs SET is_pinned = $3 WHERE group_gid = $1 AND group_user_uid = $2`, gid, uid, pinned)
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

func (r *PostgresRepository) DeleteByUser(ctx context.Context, uid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_pairs WHERE group_user_uid = $1`, uid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
