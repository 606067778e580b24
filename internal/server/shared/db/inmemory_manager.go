package db

import (
	"context"
	"database/sql"

	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type InMemoryRepositoryManager struct {
	principals principals.Repository
	trustees   trustees.Repository
	vault      vault.Repository
}

func (m InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m InMemoryRepositoryManager) Principals() principals.Repository {
	return m.principals
}

func (m InMemoryRepositoryManager) Trustees() trustees.Repository {
	return m.trustees
}

func (m InMemoryRepositoryManager) Vault() vault.Repository {
	return m.vault
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return InMemoryRepositoryManager{
		principals: principals.NewInMemoryRepository(),
		trustees:   trustees.NewInMemoryRepository(),
		vault:      vault.NewInMemoryRepository(),
	}
}
