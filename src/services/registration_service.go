package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nubecita/lacoctelera/src/logging"
	"github.com/nubecita/lacoctelera/src/models"
	"github.com/rs/zerolog"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint hit.
// Concurrent registrations for one email race past the pre-check; the
// constraint on api_users.email is what actually decides the winner.
const uniqueViolation = "23505"

// TokenRequest is the form a prospective client submits to ask for access.
type TokenRequest struct {
	Name        string
	Email       string
	Explanation string
}

// RegistrationService drives the account lifecycle:
// request -> email confirmation -> pending approval -> enabled.
type RegistrationService struct {
	pool            *pgxpool.Pool
	store           *CredentialStore
	mailer          Mailer
	baseURL         string
	confirmationTTL time.Duration
	accessTTL       time.Duration
	log             zerolog.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(pool *pgxpool.Pool, store *CredentialStore, mailer Mailer, baseURL string, confirmationTTL, accessTTL time.Duration) *RegistrationService {
	return &RegistrationService{
		pool:            pool,
		store:           store,
		mailer:          mailer,
		baseURL:         baseURL,
		confirmationTTL: confirmationTTL,
		accessTTL:       accessTTL,
		log:             logging.NewLogger("registration"),
	}
}

// IssueRequest registers a new client account and emails it a short-lived
// confirmation link. The account row and the confirmation credential are
// written in one transaction: an account without a path to confirmation can
// never be observed.
//
// Returns ErrEmailExists when the email is already on file, and
// ErrEmailClient when the state committed but the email could not be sent;
// in the latter case ResendConfirmation recovers.
func (rs *RegistrationService) IssueRequest(ctx context.Context, req TokenRequest) (models.ClientID, error) {
	var exists bool
	err := rs.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_users WHERE email = $1)`, req.Email,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return "", ErrEmailExists
	}

	clientID := models.NewClientID()
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return "", err
	}

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO api_users (id, name, email, explanation, validated, enabled)
		VALUES ($1, $2, $3, $4, false, false)
	`, clientID.String(), req.Name, req.Email, req.Explanation)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	if err := rs.store.Store(ctx, tx, clientID, hash, rs.confirmationTTL); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	rs.log.Info().Str("client_id", clientID.String()).Msg("token request registered")

	if err := rs.mailer.SendConfirmationEmail(ctx, req.Email, req.Name, rs.confirmationLink(req.Email, secret)); err != nil {
		// The account is committed; the client can trigger a resend.
		return clientID, err
	}

	return clientID, nil
}

// ConfirmEmail completes the email-ownership check. On success it atomically
// replaces the confirmation credential with a long-lived access credential,
// flags the account as validated, and returns the "<client>:<secret>" bearer
// string. The plaintext is visible exactly once: only its hash survives.
//
// An elapsed TTL and a wrong secret both report ErrInvalidCredentials; the
// stored credential is untouched on failure.
func (rs *RegistrationService) ConfirmEmail(ctx context.Context, email, presentedSecret string) (string, error) {
	var idStr string
	var validated bool
	err := rs.pool.QueryRow(ctx,
		`SELECT id, validated FROM api_users WHERE email = $1`, email,
	).Scan(&idStr, &validated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidEmail
		}
		return "", fmt.Errorf("failed to look up account: %w", err)
	}
	clientID := models.ClientID(idStr)

	// A validated account holds a live access credential, not a
	// confirmation credential; re-running the confirmation would rotate it.
	if validated {
		return "", ErrInvalidCredentials
	}

	token, err := rs.store.LookupByOwner(ctx, nil, clientID)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if token.Expired(time.Now()) {
		return "", ErrInvalidCredentials
	}
	if err := VerifySecret(presentedSecret, token.TokenHash); err != nil {
		return "", err
	}

	accessSecret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	accessHash, err := HashSecret(accessSecret)
	if err != nil {
		return "", err
	}

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := rs.store.Delete(ctx, tx, token.TokenHash); err != nil {
		return "", err
	}
	if err := rs.store.Store(ctx, tx, clientID, accessHash, rs.accessTTL); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE api_users SET validated = true WHERE id = $1`, clientID.String(),
	); err != nil {
		return "", fmt.Errorf("failed to validate account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	rs.log.Info().Str("client_id", clientID.String()).Msg("account validated, awaiting approval")

	// The bearer string is already committed and cannot be regenerated, so a
	// failed operator notification is logged rather than surfaced.
	if err := rs.mailer.NotifyPendingRequest(ctx, clientID); err != nil {
		rs.log.Error().Err(err).Str("client_id", clientID.String()).Msg("failed to notify admin of pending request")
	}

	return fmt.Sprintf("%s:%s", clientID, accessSecret), nil
}

// ResendConfirmation re-issues the confirmation credential for an account
// that requested access but never received (or lost) the email. The previous
// confirmation secret stops working the moment the new one is stored.
func (rs *RegistrationService) ResendConfirmation(ctx context.Context, email string) error {
	var idStr, name string
	var validated bool
	err := rs.pool.QueryRow(ctx,
		`SELECT id, COALESCE(name, ''), validated FROM api_users WHERE email = $1`, email,
	).Scan(&idStr, &name, &validated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidEmail
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if validated {
		return ErrEmailExists
	}
	clientID := models.ClientID(idStr)

	secret, err := GenerateSecret()
	if err != nil {
		return err
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}

	tx, err := rs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM api_tokens WHERE client_id = $1`, clientID.String(),
	); err != nil {
		return fmt.Errorf("failed to discard previous confirmation credential: %w", err)
	}
	if err := rs.store.Store(ctx, tx, clientID, hash, rs.confirmationTTL); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rs.mailer.SendConfirmationEmail(ctx, email, name, rs.confirmationLink(email, secret))
}

// EnableClient grants API access to a validated account. Administrative;
// the workflow never triggers it on its own.
func (rs *RegistrationService) EnableClient(ctx context.Context, id models.ClientID) error {
	return rs.setEnabled(ctx, id, true)
}

// DisableClient revokes an account's access flag. Administrative.
func (rs *RegistrationService) DisableClient(ctx context.Context, id models.ClientID) error {
	return rs.setEnabled(ctx, id, false)
}

func (rs *RegistrationService) setEnabled(ctx context.Context, id models.ClientID, enabled bool) error {
	result, err := rs.pool.Exec(ctx,
		`UPDATE api_users SET enabled = $1 WHERE id = $2`, enabled, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidID
	}

	rs.log.Info().Str("client_id", id.String()).Bool("enabled", enabled).Msg("account state changed")
	return nil
}

// ListPendingClients returns validated accounts still awaiting approval.
func (rs *RegistrationService) ListPendingClients(ctx context.Context) ([]models.ApiUser, error) {
	rows, err := rs.pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), email, COALESCE(explanation, ''), validated, enabled, created_at
		FROM api_users
		WHERE validated = true AND enabled = false
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending clients: %w", err)
	}
	defer rows.Close()

	var users []models.ApiUser
	for rows.Next() {
		var u models.ApiUser
		var idStr string
		if err := rows.Scan(&idStr, &u.Name, &u.Email, &u.Explanation, &u.Validated, &u.Enabled, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		u.ID = models.ClientID(idStr)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (rs *RegistrationService) confirmationLink(email, secret string) string {
	return fmt.Sprintf("%s/token/validate?email=%s&token=%s",
		rs.baseURL, url.QueryEscape(email), url.QueryEscape(secret))
}
