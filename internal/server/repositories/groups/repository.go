package groups

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, g *models.Group) error
	Exists(ctx context.Context, gid string) (bool, error)
	Get(ctx context.Context, gid string) (*models.Group, error)
	GetByIDOrAlias(ctx context.Context, idOrAlias string) (*models.Group, error)
	ListOwnedBy(ctx context.Context, uid string) ([]models.Group, error)
	UpdateOwner(ctx context.Context, gid, ownerUID string) error
	Delete(ctx context.Context, gid string) error
}
