package db

import (
	"context"
	"database/sql"

	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Principals() principals.Repository
	Trustees() trustees.Repository
	Vault() vault.Repository
}
