package trustees

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lifesignal/lifesignal/internal/common"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Add(ctx context.Context, link *Link) error {

	query :=
		`INSERT INTO trustees (principal_id, trustee_id, display_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (principal_id, trustee_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, link.PrincipalID, link.TrusteeID, link.DisplayName)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if rows == 0 {
		return common.ErrorAlreadyBound
	}

	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, principalID, trusteeID string) error {

	query := `DELETE FROM trustees WHERE principal_id = $1 AND trustee_id = $2`

	res, err := r.db.ExecContext(ctx, query, principalID, trusteeID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if rows == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, principalID string) ([]*Link, error) {
	return r.list(ctx,
		`SELECT principal_id, trustee_id, display_name, created_at FROM trustees
		 WHERE principal_id = $1 ORDER BY created_at`, principalID)
}

func (r *PostgresRepository) ListByTrustee(ctx context.Context, trusteeID string) ([]*Link, error) {
	return r.list(ctx,
		`SELECT principal_id, trustee_id, display_name, created_at FROM trustees
		 WHERE trustee_id = $1 ORDER BY created_at`, trusteeID)
}

func (r *PostgresRepository) list(ctx context.Context, query, arg string) ([]*Link, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		l := &Link{}
		if err := rows.Scan(&l.PrincipalID, &l.TrusteeID, &l.DisplayName, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
