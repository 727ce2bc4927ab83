package user

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh identifier in its 24-character hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// NormalizeID trims and lower-cases id and reports whether it is a valid ObjectID hex string.
func NormalizeID(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !primitive.IsValidObjectID(id) {
		return "", false
	}
	return id, true
}

// NormalizeEmail returns the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
