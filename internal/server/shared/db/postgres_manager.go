package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/lifesignal/lifesignal/internal/server/migrations"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type PostgresRepositoryManager struct {
	db         *sql.DB
	principals principals.Repository
	trustees   trustees.Repository
	vault      vault.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Principals() principals.Repository {
	return m.principals
}

func (m *PostgresRepositoryManager) Trustees() trustees.Repository {
	return m.trustees
}

func (m *PostgresRepositoryManager) Vault() vault.Repository {
	return m.vault
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	principalRepo, err := principals.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("principal repo creation error: %w", err)
	}

	trusteeRepo, err := trustees.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("trustee repo creation error: %w", err)
	}

	vaultRepo, err := vault.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("vault repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:         db,
		principals: principalRepo,
		trustees:   trusteeRepo,
		vault:      vaultRepo,
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
