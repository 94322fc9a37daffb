package pairs

import (
	"context"

	"github.com/dmitrijs2005/pairsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.ClientPair) error
	DeleteByUser(ctx context.Context, uid string) error

	// AllPairInfo returns every peer uid is related to, directly or through
	// a shared syncshell, keyed by the peer's UID.
	AllPairInfo(ctx context.Context, uid string) (map[string]models.PairInfo, error)
}
