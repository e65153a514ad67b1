package models

import "github.com/google/uuid"

// newID returns the identifier assigned to every row on create.
func newID() string {
	return uuid.NewString()
}
