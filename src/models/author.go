package models

import (
	"time"

	"github.com/google/uuid"
)

// Author is a person who contributes recipes to the catalog.
// Authors whose Shareable flag is false only expose their ID and name
// through the public endpoints.
type Author struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname,omitempty"`
	Email       string    `json:"email,omitempty"`
	Shareable   bool      `json:"shareable"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicView strips the fields a non-shareable author withholds.
func (a Author) PublicView() Author {
	if a.Shareable {
		return a
	}
	return Author{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt}
}
