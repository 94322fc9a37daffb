package bans

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	IsBanned(ctx context.Context, gid, uid string) (bool, error)
	Create(ctx context.Context, b *models.GroupBan) error
	DeleteByUser(ctx context.Context, uid string) error
}
