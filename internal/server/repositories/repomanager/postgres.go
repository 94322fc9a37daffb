// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pairsync/internal/dbx"
	"github.com/dmitrijs2005/pairsync/internal/server/migrations"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/bans"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/grouppairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/groups"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/pairs"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/pairsync/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Groups(db dbx.DBTX) groups.Repository {
	return groups.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) GroupPairs(db dbx.DBTX) grouppairs.Repository {
	return grouppairs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Preferences(db dbx.DBTX) preferences.Repository {
	return preferences.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Permissions(db dbx.DBTX) permissions.Repository {
	return permissions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Bans(db dbx.DBTX) bans.Repository {
	return bans.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Pairs(db dbx.DBTX) pairs.Repository {
	return pairs.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
