package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, uid string) (*models.User, error)
	GetFirstAdmin(ctx context.Context) (*models.User, error)
	ListExpiredLimited(ctx context.Context, now time.Time) ([]models.User, error)
	Delete(ctx context.Context, uid string) error

	GetDefaultPermissions(ctx context.Context, uid string) (*models.UserDefaultPreferredPermission, error)
	SetDefaultPermissions(ctx context.Context, p *models.UserDefaultPreferredPermission) error
}
