package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nubecita/lacoctelera/src/models"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so store operations
// can run standalone or join a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CredentialStore persists hashed token secrets with their expiry.
// Plaintext secrets never reach this layer.
type CredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// Store inserts a credential for the owner, valid for ttl from now.
// Pass the transaction that also mutates the owner's account state so the
// two writes commit or roll back together.
func (cs *CredentialStore) Store(ctx context.Context, db DBTX, owner models.ClientID, hash string, ttl time.Duration) error {
	now := time.Now()
	_, err := db.Exec(ctx, `
		INSERT INTO api_tokens (client_id, token_hash, created, valid_until)
		VALUES ($1, $2, $3, $4)
	`, owner.String(), hash, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// LookupByOwner returns the most recent credential for the owner, or
// ErrInvalidID when the owner has none.
func (cs *CredentialStore) LookupByOwner(ctx context.Context, db DBTX, owner models.ClientID) (*models.ApiToken, error) {
	if db == nil {
		db = cs.pool
	}

	var token models.ApiToken
	var clientID string
	err := db.QueryRow(ctx, `
		SELECT client_id, token_hash, created, valid_until
		FROM api_tokens
		WHERE client_id = $1
		ORDER BY created DESC
		LIMIT 1
	`, owner.String()).Scan(&clientID, &token.TokenHash, &token.Created, &token.ValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidID
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	token.ClientID = models.ClientID(clientID)
	return &token, nil
}

// Delete removes a credential by its stored hash. Deleting a hash that is
// no longer present is not an error at this layer.
func (cs *CredentialStore) Delete(ctx context.Context, db DBTX, hash string) error {
	if db == nil {
		db = cs.pool
	}

	if _, err := db.Exec(ctx, `DELETE FROM api_tokens WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Replace atomically swaps a superseded credential for a new one. The old
// delete commits together with the new insert, bounding the window in which
// two secrets are valid for one account.
func (cs *CredentialStore) Replace(ctx context.Context, owner models.ClientID, oldHash, newHash string, ttl time.Duration) error {
	tx, err := cs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := cs.Delete(ctx, tx, oldHash); err != nil {
		return err
	}
	if err := cs.Store(ctx, tx, owner, newHash, ttl); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
