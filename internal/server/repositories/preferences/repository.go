package preferences

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, gid, uid string) (*models.GroupPairPreferredPermission, error)
	Upsert(ctx context.Context, p *models.GroupPairPreferredPermission) error
	DeleteByUser(ctx context.Context, uid string) error
}
