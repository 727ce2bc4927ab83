package user

import "time"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name  string `validate:"required,min=3,max=100"`
	Email string `validate:"required,email,max=254"`
}

// CreateUserResponse carries the stored user, including its generated ID.
type CreateUserResponse struct {
	User User
}

// UpdateUserRequest represents a partial update; empty fields keep their current value.
type UpdateUserRequest struct {
	ID    string `validate:"required,objectid"`
	Name  string `validate:"omitempty,min=3,max=100"`
	Email string `validate:"omitempty,email,max=254"`
}

// UpdateUserResponse carries the user as stored after the update.
type UpdateUserResponse struct {
	User User
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID string `validate:"required,objectid"`
}

// DeleteUserResponse represents the response payload after deleting a user.
type DeleteUserResponse struct {
	ID string
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string `validate:"required,objectid"`
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	User User
}

// ListUsersRequest represents the request payload for listing users.
// Query matches name or email as a case-insensitive substring.
type ListUsersRequest struct {
	Query string
	Page  int64
	Limit int64
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users      []User
	Pagination *Pagination
}

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total      int64
	Page       int64
	Limit      int64
	TotalPages int64
}

// User is the transport-neutral view of a stored user.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
