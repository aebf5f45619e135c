package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nubecita/lacoctelera/src/database"
	"github.com/nubecita/lacoctelera/src/models"
)

// recordingMailer captures outgoing mail so tests can extract the
// confirmation secret the way a real client would.
type recordingMailer struct {
	links    []string
	notified []models.ClientID
	failSend bool
}

func (m *recordingMailer) SendConfirmationEmail(ctx context.Context, toEmail, toName, confirmationLink string) error {
	if m.failSend {
		return fmt.Errorf("%w: smtp unreachable", ErrEmailClient)
	}
	m.links = append(m.links, confirmationLink)
	return nil
}

func (m *recordingMailer) NotifyPendingRequest(ctx context.Context, id models.ClientID) error {
	m.notified = append(m.notified, id)
	return nil
}

// lastSecret pulls the token parameter out of the most recent link.
func (m *recordingMailer) lastSecret(t *testing.T) string {
	t.Helper()
	if len(m.links) == 0 {
		t.Fatal("no confirmation email was sent")
	}
	parsed, err := url.Parse(m.links[len(m.links)-1])
	if err != nil {
		t.Fatalf("malformed confirmation link: %v", err)
	}
	secret := parsed.Query().Get("token")
	if secret == "" {
		t.Fatalf("confirmation link carries no token: %s", m.links[len(m.links)-1])
	}
	return secret
}

func newTestRegistration(tdb *database.TestDB, mailer Mailer, confirmationTTL, accessTTL time.Duration) *RegistrationService {
	store := NewCredentialStore(tdb.Pool)
	return NewRegistrationService(tdb.Pool, store, mailer, "http://localhost:8080", confirmationTTL, accessTTL)
}

func TestIssueRequest(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, 100*24*time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{
			Name:        "Ada",
			Email:       "ada@example.com",
			Explanation: "building a cocktail bot",
		})
		if err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		if len(clientID.String()) != models.IDLength {
			t.Errorf("expected %d-char client id, got %q", models.IDLength, clientID)
		}

		// Fresh account: neither validated nor enabled
		var validated, enabled bool
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT validated, enabled FROM api_users WHERE id = $1`, clientID.String(),
		).Scan(&validated, &enabled); err != nil {
			t.Fatalf("account row missing: %v", err)
		}
		if validated || enabled {
			t.Errorf("fresh account must be unvalidated and disabled, got validated=%v enabled=%v", validated, enabled)
		}

		// One confirmation credential, hashed
		var hash string
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT token_hash FROM api_tokens WHERE client_id = $1`, clientID.String(),
		).Scan(&hash); err != nil {
			t.Fatalf("confirmation credential missing: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Errorf("credential must be stored hashed, got %q", hash)
		}

		// The emailed secret verifies against the stored hash
		secret := mailer.lastSecret(t)
		if err := VerifySecret(secret, hash); err != nil {
			t.Errorf("emailed secret must match stored hash: %v", err)
		}
	})
}

func TestIssueRequest_DuplicateEmail(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "dup@example.com"}); err != nil {
			t.Fatalf("first request failed: %v", err)
		}
		_, err := reg.IssueRequest(ctx, TokenRequest{Email: "dup@example.com"})
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})
}

func TestIssueRequest_MailerFailureKeepsAccount(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{failSend: true}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{Email: "lost@example.com"})
		if !errors.Is(err, ErrEmailClient) {
			t.Fatalf("expected ErrEmailClient, got %v", err)
		}

		// The account committed before the send, so a resend can recover
		var exists bool
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM api_users WHERE id = $1)`, clientID.String(),
		).Scan(&exists); err != nil || !exists {
			t.Fatalf("account must survive a failed send: exists=%v err=%v", exists, err)
		}

		mailer.failSend = false
		if err := reg.ResendConfirmation(ctx, "lost@example.com"); err != nil {
			t.Fatalf("resend failed: %v", err)
		}

		secret := mailer.lastSecret(t)
		bearer, err := reg.ConfirmEmail(ctx, "lost@example.com", secret)
		if err != nil {
			t.Fatalf("confirmation after resend failed: %v", err)
		}
		if !strings.HasPrefix(bearer, clientID.String()+":") {
			t.Errorf("bearer %q must belong to client %s", bearer, clientID)
		}
	})
}

func TestConfirmEmail(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, 100*24*time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{Email: "confirm@example.com"})
		if err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		secret := mailer.lastSecret(t)

		bearer, err := reg.ConfirmEmail(ctx, "confirm@example.com", secret)
		if err != nil {
			t.Fatalf("confirmation failed: %v", err)
		}

		idPart, secretPart, found := strings.Cut(bearer, ":")
		if !found || idPart != clientID.String() {
			t.Fatalf("expected '<client>:<secret>' bearer, got %q", bearer)
		}
		if secretPart == secret {
			t.Error("access secret must differ from the confirmation secret")
		}

		// Account validated, still disabled, one credential left
		var validated, enabled bool
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT validated, enabled FROM api_users WHERE id = $1`, clientID.String(),
		).Scan(&validated, &enabled); err != nil {
			t.Fatalf("account row missing: %v", err)
		}
		if !validated {
			t.Error("account must be validated after confirmation")
		}
		if enabled {
			t.Error("confirmation must not enable the account")
		}

		var count int
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM api_tokens WHERE client_id = $1`, clientID.String(),
		).Scan(&count); err != nil {
			t.Fatalf("failed to count credentials: %v", err)
		}
		if count != 1 {
			t.Errorf("expected the confirmation credential replaced, got %d rows", count)
		}

		// Operator was notified
		if len(mailer.notified) != 1 || mailer.notified[0] != clientID {
			t.Errorf("expected pending notification for %s, got %v", clientID, mailer.notified)
		}
	})
}

func TestConfirmEmail_SecondUseFails(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "once@example.com"}); err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		secret := mailer.lastSecret(t)

		if _, err := reg.ConfirmEmail(ctx, "once@example.com", secret); err != nil {
			t.Fatalf("first confirmation failed: %v", err)
		}
		_, err := reg.ConfirmEmail(ctx, "once@example.com", secret)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials on reuse, got %v", err)
		}
	})
}

func TestConfirmEmail_ValidatedAccountCannotReconfirm(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{Email: "settled@example.com"})
		if err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		bearer, err := reg.ConfirmEmail(ctx, "settled@example.com", mailer.lastSecret(t))
		if err != nil {
			t.Fatalf("confirmation failed: %v", err)
		}
		_, accessSecret, _ := strings.Cut(bearer, ":")

		var hashBefore string
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT token_hash FROM api_tokens WHERE client_id = $1`, clientID.String(),
		).Scan(&hashBefore); err != nil {
			t.Fatalf("access credential missing: %v", err)
		}

		// Presenting the live access secret must not rotate the credential
		// or re-notify the operator
		_, err = reg.ConfirmEmail(ctx, "settled@example.com", accessSecret)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for a validated account, got %v", err)
		}

		var hashAfter string
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT token_hash FROM api_tokens WHERE client_id = $1`, clientID.String(),
		).Scan(&hashAfter); err != nil {
			t.Fatalf("access credential missing: %v", err)
		}
		if hashAfter != hashBefore {
			t.Error("access credential must survive a confirmation replay")
		}
		if len(mailer.notified) != 1 {
			t.Errorf("expected a single pending notification, got %d", len(mailer.notified))
		}
	})
}

func TestConfirmEmail_WrongSecret(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "wrong@example.com"}); err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}

		_, err := reg.ConfirmEmail(ctx, "wrong@example.com", "definitely-not-the-secret")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}

		// The stored credential survives a failed attempt
		mailerSecret := mailer.lastSecret(t)
		if _, err := reg.ConfirmEmail(ctx, "wrong@example.com", mailerSecret); err != nil {
			t.Errorf("correct secret must still work after a failed attempt: %v", err)
		}
	})
}

func TestConfirmEmail_UnknownEmail(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		_, err := reg.ConfirmEmail(context.Background(), "ghost@example.com", "whatever")
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("expected ErrInvalidEmail, got %v", err)
		}
	})
}

func TestConfirmEmail_ExpiredConfirmation(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		// Negative TTL: the confirmation credential is born expired
		reg := newTestRegistration(tdb, mailer, -time.Minute, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "late@example.com"}); err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		secret := mailer.lastSecret(t)

		_, err := reg.ConfirmEmail(ctx, "late@example.com", secret)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for an elapsed link, got %v", err)
		}
	})
}

func TestResendConfirmation_InvalidatesOldSecret(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "resend@example.com"}); err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		oldSecret := mailer.lastSecret(t)

		if err := reg.ResendConfirmation(ctx, "resend@example.com"); err != nil {
			t.Fatalf("resend failed: %v", err)
		}
		newSecret := mailer.lastSecret(t)
		if oldSecret == newSecret {
			t.Fatal("resend must mint a fresh secret")
		}

		if _, err := reg.ConfirmEmail(ctx, "resend@example.com", oldSecret); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("old secret must stop working, got %v", err)
		}
		if _, err := reg.ConfirmEmail(ctx, "resend@example.com", newSecret); err != nil {
			t.Errorf("new secret must work: %v", err)
		}
	})
}

func TestResendConfirmation_AlreadyValidated(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		if _, err := reg.IssueRequest(ctx, TokenRequest{Email: "done@example.com"}); err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}
		if _, err := reg.ConfirmEmail(ctx, "done@example.com", mailer.lastSecret(t)); err != nil {
			t.Fatalf("confirmation failed: %v", err)
		}

		err := reg.ResendConfirmation(ctx, "done@example.com")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists for a validated account, got %v", err)
		}
	})
}

func TestEnableDisableClient(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{Email: "flags@example.com"})
		if err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}

		if err := reg.EnableClient(ctx, clientID); err != nil {
			t.Fatalf("enable failed: %v", err)
		}
		var enabled bool
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT enabled FROM api_users WHERE id = $1`, clientID.String(),
		).Scan(&enabled); err != nil || !enabled {
			t.Errorf("expected enabled account, got enabled=%v err=%v", enabled, err)
		}

		if err := reg.DisableClient(ctx, clientID); err != nil {
			t.Fatalf("disable failed: %v", err)
		}
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT enabled FROM api_users WHERE id = $1`, clientID.String(),
		).Scan(&enabled); err != nil || enabled {
			t.Errorf("expected disabled account, got enabled=%v err=%v", enabled, err)
		}
	})
}

func TestEnableClient_Unknown(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		err := reg.EnableClient(context.Background(), models.ClientID("missing1"))
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestListPendingClients(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		mailer := &recordingMailer{}
		reg := newTestRegistration(tdb, mailer, time.Hour, time.Hour)

		clientID, err := reg.IssueRequest(ctx, TokenRequest{Name: "Pending", Email: "pending@example.com"})
		if err != nil {
			t.Fatalf("failed to issue request: %v", err)
		}

		// Unvalidated accounts are not pending
		pending, err := reg.ListPendingClients(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("expected no pending clients before confirmation, got %d", len(pending))
		}

		if _, err := reg.ConfirmEmail(ctx, "pending@example.com", mailer.lastSecret(t)); err != nil {
			t.Fatalf("confirmation failed: %v", err)
		}

		pending, err = reg.ListPendingClients(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != clientID {
			t.Fatalf("expected exactly the confirmed client pending, got %+v", pending)
		}

		if err := reg.EnableClient(ctx, clientID); err != nil {
			t.Fatalf("enable failed: %v", err)
		}
		pending, err = reg.ListPendingClients(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("enabled clients must leave the pending list, got %d", len(pending))
		}
	})
}
