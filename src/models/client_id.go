package models

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// IDLength is the length of the string that represents a client ID.
const IDLength = 8

// ClientID is the opaque identifier assigned to an API client when it
// requests access to the restricted endpoints. It is IDLength hex
// characters taken from the random tail of a UUID, so it carries no
// timestamp and IDs minted in the same instant still differ.
type ClientID string

// NewClientID generates a fresh client ID.
func NewClientID() ClientID {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is broken.
		u = uuid.New()
	}
	// The leading bytes of a V7 UUID are a millisecond timestamp; only
	// the tail bytes are random.
	return ClientID(hex.EncodeToString(u[len(u)-IDLength/2:]))
}

// ParseClientID validates that s has the exact length of a client ID.
// The character set is not validated, matching the lookup semantics of the
// credential store: an ID with exotic characters simply never matches a row.
func ParseClientID(s string) (ClientID, error) {
	if len(s) != IDLength {
		return "", fmt.Errorf("client ID must be %d characters, got %d", IDLength, len(s))
	}
	return ClientID(s), nil
}

func (id ClientID) String() string {
	return string(id)
}
