package pairs

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, p *models.ClientPair) error {
	query :=
		`INSERT INTO client_pairs (user_uid, other_user_uid)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, p.UserUID, p.OtherUserUID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_pairs WHERE user_uid = $1 OR other_user_uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// pairInfoQuery yields one row per relationship: a direct row (empty gid)
// per client pair uid initiated, plus one row per shared syncshell. A direct
// pair is synced only when the peer paired back; a shared syncshell always is.
const pairInfoQuery = `
WITH rel AS (
    SELECT cp.other_user_uid AS peer_uid, '' AS gid,
           EXISTS (SELECT 1 FROM client_pairs back
                   WHERE back.user_uid = cp.other_user_uid AND back.other_user_uid = cp.user_uid) AS synced
    FROM client_pairs cp
    WHERE cp.user_uid = $1
    UNION ALL
    SELECT other.group_user_uid AS peer_uid, other.group_gid AS gid, TRUE AS synced
    FROM group_pairs mine
    JOIN group_pairs other ON other.group_gid = mine.group_gid AND other.group_user_uid <> $1
    WHERE mine.group_user_uid = $1
)
SELECT rel.peer_uid, u.alias, rel.gid, rel.synced,
       own.user_uid IS NOT NULL,
       COALESCE(own.disable_sounds, FALSE), COALESCE(own.disable_animations, FALSE),
       COALESCE(own.disable_vfx, FALSE), COALESCE(own.is_paused, FALSE), COALESCE(own.sticky, FALSE),
       oth.user_uid IS NOT NULL,
       COALESCE(oth.disable_sounds, FALSE), COALESCE(oth.disable_animations, FALSE),
       COALESCE(oth.disable_vfx, FALSE), COALESCE(oth.is_paused, FALSE), COALESCE(oth.sticky, FALSE)
FROM rel
JOIN users u ON u.uid = rel.peer_uid
LEFT JOIN user_permission_sets own ON own.user_uid = $1 AND own.other_user_uid = rel.peer_uid
LEFT JOIN user_permission_sets oth ON oth.user_uid = rel.peer_uid AND oth.other_user_uid = $1
ORDER BY rel.peer_uid, rel.gid
`

func (r *PostgresRepository) AllPairInfo(ctx context.Context, uid string) (map[string]models.PairInfo, error) {
	rows, err := r.db.QueryContext(ctx, pairInfoQuery, uid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.PairInfo)
	for rows.Next() {
		var (
			peer, gid      string
			alias          sql.NullString
			synced         bool
			hasOwn, hasOth bool
			own, oth       models.UserPermissionSet
		)
		err := rows.Scan(&peer, &alias, &gid, &synced,
			&hasOwn, &own.DisableSounds, &own.DisableAnimations, &own.DisableVFX, &own.IsPaused, &own.Sticky,
			&hasOth, &oth.DisableSounds, &oth.DisableAnimations, &oth.DisableVFX, &oth.IsPaused, &oth.Sticky)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		info, seen := result[peer]
		if !seen {
			info.Alias = alias.String
			if hasOwn {
				own.UserUID, own.OtherUserUID = uid, peer
				info.OwnPermissions = &own
			}
			if hasOth {
				oth.UserUID, oth.OtherUserUID = peer, uid
				info.OtherPermissions = &oth
			}
		}
		if gid == "" {
			info.IndividuallyPaired = synced
			info.GIDs = append(info.GIDs, common.DirectPairGroup)
		} else {
			info.GIDs = append(info.GIDs, gid)
		}
		info.IsSynced = info.IsSynced || synced
		result[peer] = info
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
