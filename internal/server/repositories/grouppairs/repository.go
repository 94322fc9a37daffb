package grouppairs

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.GroupPair) error
	Get(ctx context.Context, gid, uid string) (*models.GroupPair, error)
	ListMembers(ctx context.Context, gid string) ([]models.GroupMember, error)
	ListByUser(ctx context.Context, uid string) ([]models.GroupPair, error)
	SetPinned(ctx context.Context, gid, uid string, pinned bool) error
	DeleteByUser(ctx context.Context, uid string) error
}
