package app

import "github.com/google/uuid"

// maxCodeAttempts bounds regeneration when a freshly drawn redemption code
// collides with an existing one.
const maxCodeAttempts = 3

func newID() string {
	return uuid.NewString()
}

// newRedemptionCode returns an opaque, unguessable code (122 random bits).
func newRedemptionCode() string {
	return uuid.NewString()
}
