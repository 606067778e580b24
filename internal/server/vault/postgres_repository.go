package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lifesignal/lifesignal/internal/common"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, entry *Entry) (*Entry, error) {

	query :=
		`INSERT INTO vault_entries (owner_id, content_kind, ciphertext, nonce, storage_key, recipient_ids)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, entry.OwnerID, entry.ContentKind, entry.Ciphertext,
		entry.Nonce, entry.StorageKey, joinRecipients(entry.RecipientIDs)).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64, ownerID string) (*Entry, error) {

	query :=
		`SELECT id, owner_id, content_kind, ciphertext, nonce, storage_key, recipient_ids, created_at
		 FROM vault_entries
		 WHERE id = $1 AND owner_id = $2
		 `

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return entry, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Entry, error) {

	query :=
		`SELECT id, owner_id, content_kind, ciphertext, nonce, storage_key, recipient_ids, created_at
		 FROM vault_entries
		 WHERE owner_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) UpdateRecipients(ctx context.Context, id int64, ownerID string, recipientIDs []string) error {

	query := `UPDATE vault_entries SET recipient_ids = $3 WHERE id = $1 AND owner_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID, joinRecipients(recipientIDs))
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

func (r *PostgresRepository) Delete(ctx context.Context, id int64, ownerID string) error {

	query := `DELETE FROM vault_entries WHERE id = $1 AND owner_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
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

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	entry := &Entry{}
	var recipients string
	var storageKey sql.NullString
	err := row.Scan(&entry.ID, &entry.OwnerID, &entry.ContentKind, &entry.Ciphertext,
		&entry.Nonce, &storageKey, &recipients, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.StorageKey = storageKey.String
	entry.RecipientIDs = splitRecipients(recipients)
	return entry, nil
}
