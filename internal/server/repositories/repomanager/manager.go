package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/bans"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/grouppairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/groups"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/pairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same service
// code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Groups(db dbx.DBTX) groups.Repository
	GroupPairs(db dbx.DBTX) grouppairs.Repository
	Preferences(db dbx.DBTX) preferences.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	Bans(db dbx.DBTX) bans.Repository
	Pairs(db dbx.DBTX) pairs.Repository
}
