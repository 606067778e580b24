package principals

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

const principalColumns = `id, display_name, credential_hash, credential_salt, failed_attempts,
		lock_state, recovery_key, liveness_threshold_hours, last_heartbeat, liveness_status, created_at`

func scanPrincipal(row interface{ Scan(...any) error }) (*Principal, error) {
	p := &Principal{}
	var recoveryKey sql.NullString
	err := row.Scan(&p.ID, &p.DisplayName, &p.CredentialHash, &p.CredentialSalt, &p.FailedAttempts,
		&p.LockState, &recoveryKey, &p.ThresholdHours, &p.LastHeartbeat, &p.LivenessStatus, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.RecoveryKey = recoveryKey.String
	return p, nil
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, id, displayName string) (*Principal, error) {

	query := `INSERT INTO principals (id, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), principals.display_name)
		 RETURNING ` + principalColumns

	p, err := scanPrincipal(r.db.QueryRowContext(ctx, query, id, displayName))
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Principal, error) {

	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`

	p, err := scanPrincipal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return p, nil
}

// Update applies the mutator inside a transaction holding a row lock, so the
// read-modify-write is serialized per principal.
func (r *PostgresRepository) Update(ctx context.Context, id string, mutate func(*Principal) error) error {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1 FOR UPDATE`

	p, err := scanPrincipal(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	if err := mutate(p); err != nil {
		return err
	}

	update := `UPDATE principals
		 SET display_name = $2, credential_hash = $3, credential_salt = $4, failed_attempts = $5,
		     lock_state = $6, recovery_key = NULLIF($7, ''), liveness_threshold_hours = $8,
		     last_heartbeat = $9, liveness_status = $10
		 WHERE id = $1`

	_, err = tx.ExecContext(ctx, update, p.ID, p.DisplayName, p.CredentialHash, p.CredentialSalt,
		p.FailedAttempts, p.LockState, p.RecoveryKey, p.ThresholdHours, p.LastHeartbeat, p.LivenessStatus)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListWatchable(ctx context.Context) ([]*Principal, error) {

	query := `SELECT ` + principalColumns + ` FROM principals
		 WHERE lock_state = 'active' AND liveness_status = 'alive'`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

// ExpireIfAlive flips liveness in a single guarded statement. The WHERE
// clause is the idempotency guard: only one caller observes rows == 1.
func (r *PostgresRepository) ExpireIfAlive(ctx context.Context, id string) (bool, error) {

	query := `UPDATE principals SET liveness_status = 'expired'
		 WHERE id = $1 AND liveness_status = 'alive'`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}

	return rows == 1, nil
}
