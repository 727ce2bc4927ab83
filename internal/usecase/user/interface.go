package user

import (
	"context"

	domain "user-doc-service/internal/domain/user"
)

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)
}

// Repository defines the interface for user data access operations.
// Implementations exist for MongoDB and for SQL databases through GORM.
//
// GetByID, Update and Delete return a *errors.NotFoundError when no user has the ID.
// Create and Update return a *errors.AlreadyExistsError on an email conflict.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error) // nil, nil when absent
	Update(ctx context.Context, u *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error)
	Ping(ctx context.Context) error
}
