package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nubecita/lacoctelera/src/models"
)

// AccessService is the request-time gate for the restricted endpoints.
// It validates a presented "<client>:<secret>" bearer string against the
// stored credential and the account state.
type AccessService struct {
	pool *pgxpool.Pool
}

// NewAccessService creates a new access service
func NewAccessService(pool *pgxpool.Pool) *AccessService {
	return &AccessService{pool: pool}
}

// CheckAccess validates a bearer string. Read-only, safe to call
// concurrently and repeatedly.
//
// The checks run in a fixed order: the secret is verified before the
// enabled and expiry flags are consulted, so a caller that does not hold
// the correct secret learns nothing about the account's state. Lookup
// failures report ErrInvalidID whether the account or only the credential
// is missing, to avoid account enumeration.
func (as *AccessService) CheckAccess(ctx context.Context, bearer string) error {
	idPart, secret, found := strings.Cut(bearer, ":")
	if !found {
		return ErrInvalidID
	}
	clientID, err := models.ParseClientID(idPart)
	if err != nil {
		return ErrInvalidID
	}

	var hash string
	var validUntil time.Time
	var enabled bool
	err = as.pool.QueryRow(ctx, `
		SELECT t.token_hash, t.valid_until, u.enabled
		FROM api_tokens t
		JOIN api_users u ON u.id = t.client_id
		WHERE t.client_id = $1
		ORDER BY t.created DESC
		LIMIT 1
	`, clientID.String()).Scan(&hash, &validUntil, &enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidID
		}
		return fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := VerifySecret(secret, hash); err != nil {
		return err
	}
	if !enabled {
		return ErrAccountDisabled
	}
	if validUntil.Before(time.Now()) {
		return ErrExpiredAccess
	}
	return nil
}
