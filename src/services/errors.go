package services

import "errors"

// Sentinel errors for explicit error handling.
// Callers distinguish failure modes with errors.Is() instead of string
// matching; the HTTP layer maps them to status codes.

var (
	// ErrInvalidID indicates a malformed client ID, or a client/credential
	// that does not exist. The two cases are deliberately coalesced so that
	// responses cannot be used to enumerate registered accounts.
	ErrInvalidID = errors.New("invalid client id")

	// ErrInvalidCredentials indicates the presented secret does not match
	// the stored hash. A corrupt stored hash reports the same error so the
	// verification result never acts as an oracle.
	ErrInvalidCredentials = errors.New("invalid access credentials")

	// ErrAccountDisabled indicates the account exists and the secret
	// matched, but an operator has not enabled (or has disabled) it.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrExpiredAccess indicates the credential matched but its validity
	// window has passed.
	ErrExpiredAccess = errors.New("expired access token")

	// ErrInvalidEmail indicates the email is not registered.
	ErrInvalidEmail = errors.New("email not registered")

	// ErrEmailExists indicates a registration request for an email that is
	// already on file.
	ErrEmailExists = errors.New("email already registered")

	// ErrEmailClient indicates the confirmation or notification email could
	// not be handed to the mail provider. Database state committed before
	// the send is NOT rolled back; see RegistrationService.
	ErrEmailClient = errors.New("email client error")
)
