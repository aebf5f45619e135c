package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nubecita/lacoctelera/src/database"
	"github.com/nubecita/lacoctelera/src/models"
)

func TestCredentialStore_StoreAndLookup(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		owner := models.ClientID("cs000001")
		if err := tdb.SeedApiUser(owner.String(), "store@example.com", false, false); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}

		store := NewCredentialStore(tdb.Pool)
		hash, err := HashSecret("some-secret")
		if err != nil {
			t.Fatalf("failed to hash: %v", err)
		}

		if err := store.Store(ctx, tdb.Pool, owner, hash, time.Hour); err != nil {
			t.Fatalf("failed to store: %v", err)
		}

		token, err := store.LookupByOwner(ctx, nil, owner)
		if err != nil {
			t.Fatalf("failed to look up: %v", err)
		}
		if token.TokenHash != hash {
			t.Errorf("expected stored hash back, got %q", token.TokenHash)
		}
		if token.ClientID != owner {
			t.Errorf("expected owner %s, got %s", owner, token.ClientID)
		}
		if token.Expired(time.Now()) {
			t.Error("fresh credential must not be expired")
		}
		if !token.Expired(time.Now().Add(2 * time.Hour)) {
			t.Error("credential must expire after its ttl")
		}
	})
}

func TestCredentialStore_LookupUnknownOwner(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		store := NewCredentialStore(tdb.Pool)

		_, err := store.LookupByOwner(context.Background(), nil, models.ClientID("nobody00"))
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestCredentialStore_MostRecentWins(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		owner := models.ClientID("cs000002")
		if err := tdb.SeedApiUser(owner.String(), "recent@example.com", false, false); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}

		store := NewCredentialStore(tdb.Pool)
		first, _ := HashSecret("first")
		second, _ := HashSecret("second")

		if err := store.Store(ctx, tdb.Pool, owner, first, time.Hour); err != nil {
			t.Fatalf("failed to store first: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if err := store.Store(ctx, tdb.Pool, owner, second, time.Hour); err != nil {
			t.Fatalf("failed to store second: %v", err)
		}

		token, err := store.LookupByOwner(ctx, nil, owner)
		if err != nil {
			t.Fatalf("failed to look up: %v", err)
		}
		if token.TokenHash != second {
			t.Error("expected the most recently stored credential")
		}
	})
}

func TestCredentialStore_DeleteIdempotent(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		owner := models.ClientID("cs000003")
		if err := tdb.SeedApiUser(owner.String(), "delete@example.com", false, false); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}

		store := NewCredentialStore(tdb.Pool)
		hash, _ := HashSecret("doomed")
		if err := store.Store(ctx, tdb.Pool, owner, hash, time.Hour); err != nil {
			t.Fatalf("failed to store: %v", err)
		}

		if err := store.Delete(ctx, nil, hash); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := store.LookupByOwner(ctx, nil, owner); !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected credential gone, got %v", err)
		}

		// Deleting again is not an error
		if err := store.Delete(ctx, nil, hash); err != nil {
			t.Errorf("second delete must be a no-op, got %v", err)
		}
	})
}

func TestCredentialStore_Replace(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ctx := context.Background()
		owner := models.ClientID("cs000004")
		if err := tdb.SeedApiUser(owner.String(), "replace@example.com", false, false); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}

		store := NewCredentialStore(tdb.Pool)
		oldHash, _ := HashSecret("old")
		newHash, _ := HashSecret("new")

		if err := store.Store(ctx, tdb.Pool, owner, oldHash, time.Hour); err != nil {
			t.Fatalf("failed to store: %v", err)
		}
		if err := store.Replace(ctx, owner, oldHash, newHash, time.Hour); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		token, err := store.LookupByOwner(ctx, nil, owner)
		if err != nil {
			t.Fatalf("failed to look up: %v", err)
		}
		if token.TokenHash != newHash {
			t.Error("expected the replacement credential")
		}

		var count int
		if err := tdb.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM api_tokens WHERE client_id = $1`, owner.String(),
		).Scan(&count); err != nil {
			t.Fatalf("failed to count tokens: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly one credential after replace, got %d", count)
		}
	})
}
