package permissions

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	// LockPair serialises writers touching either direction of (a, b) for
	// the rest of the enclosing transaction.
	LockPair(ctx context.Context, a, b string) error
	Get(ctx context.Context, ownerUID, otherUID string) (*models.UserPermissionSet, error)
	Create(ctx context.Context, p *models.UserPermissionSet) error
	Update(ctx context.Context, p *models.UserPermissionSet) error
	DeleteByUser(ctx context.Context, uid string) error
}
