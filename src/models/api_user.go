package models

import "time"

// ApiUser represents a registered API client account.
//
// Validated flips to true once the client follows the confirmation link
// emailed after the token request. Enabled flips to true only through an
// administrative action; it never changes automatically.
type ApiUser struct {
	ID          ClientID  `json:"id"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email"`
	Explanation string    `json:"explanation"`
	Validated   bool      `json:"validated"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApiToken is a stored credential: a salted hash of a secret plus its
// expiry, associated with one client. The plaintext secret is never
// persisted; only its Argon2id hash is.
type ApiToken struct {
	ClientID   ClientID  `json:"client_id"`
	TokenHash  string    `json:"-"` // never expose
	Created    time.Time `json:"created"`
	ValidUntil time.Time `json:"valid_until"`
}

// Expired reports whether the token is no longer valid at the given instant.
func (t *ApiToken) Expired(now time.Time) bool {
	return t.ValidUntil.Before(now)
}
