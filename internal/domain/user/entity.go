package user

import "time"

// User represents a user record in the system.
type User struct {
	ID        string    // ID is the hex form of the store-generated ObjectID
	Name      string    // Name is the display name of the user
	Email     string    // Email is the unique, lower-cased email address
	CreatedAt time.Time // CreatedAt is set once on insert
	UpdatedAt time.Time // UpdatedAt is refreshed on every write
}
