package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-doc-service/internal/domain/user"
	pkgerrors "user-doc-service/pkg/errors"
	"user-doc-service/pkg/logger"
	"user-doc-service/pkg/security"
)

const resourceUser = "user"

// userUsecase implements the business logic for user management operations.
// It sits between the transport adapters and the repository.
type userUsecase struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new user Usecase backed by the given repository.
func New(r Repository, log *zap.Logger) Usecase {
	return &userUsecase{repo: r, log: log, validate: NewValidator()}
}

// NewValidator returns a validator with the "objectid" tag registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		_, ok := domain.NormalizeID(fl.Field().String())
		return ok
	})
	return v
}

// formatValidationError converts validator.ValidationErrors into a ValidationError
// with a human-readable message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return pkgerrors.NewValidationError("", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "objectid":
			messages = append(messages, fmt.Sprintf("%s must be a 24-character hex string", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return pkgerrors.NewValidationError("", strings.Join(messages, ", "))
}

// passThrough keeps typed application errors and wraps anything else as internal.
func passThrough(message string, err error) error {
	if pkgerrors.IsNotFound(err) || pkgerrors.IsAlreadyExists(err) || pkgerrors.IsValidation(err) {
		return err
	}
	return pkgerrors.NewInternalError(message, err)
}

// CreateUser creates a new user after validating the request and checking email uniqueness.
func (uc *userUsecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)

	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email))
		return nil, pkgerrors.NewAlreadyExistsError(resourceUser, "email")
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, passThrough("failed to create user", err)
	}

	return &CreateUserResponse{User: toDTO(created)}, nil
}

// UpdateUser applies a partial update. Empty fields keep their stored values and at
// least one field must be set.
func (uc *userUsecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)

	log.Info("updating user", zap.String("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}
	if in.Name == "" && in.Email == "" {
		return nil, pkgerrors.NewValidationError("", "at least one of Name or Email must be provided")
	}

	id, _ := domain.NormalizeID(in.ID)

	current, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		log.Warn("failed to load user for update", zap.String("id", id), zap.Error(err))
		return nil, passThrough("failed to get user", err)
	}

	if in.Email != "" && in.Email != current.Email {
		existing, err := uc.repo.GetByEmail(ctx, in.Email)
		if err != nil {
			log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
			return nil, pkgerrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if existing != nil && existing.ID != id {
			log.Warn("email already exists", zap.String("email", in.Email), zap.String("existing_id", existing.ID))
			return nil, pkgerrors.NewAlreadyExistsError(resourceUser, "email")
		}
	}

	next := *current
	if in.Name != "" {
		next.Name = in.Name
	}
	if in.Email != "" {
		next.Email = in.Email
	}

	updated, err := uc.repo.Update(ctx, &next)
	if err != nil {
		log.Error("failed to update user", zap.String("id", id), zap.Error(err))
		return nil, passThrough("failed to update user", err)
	}

	return &UpdateUserResponse{User: toDTO(updated)}, nil
}

// DeleteUser deletes a user after validating the user ID.
func (uc *userUsecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.String("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("delete user validation failed", zap.String("id", in.ID), zap.Error(err))
		return nil, formatValidationError(err)
	}

	id, _ := domain.NormalizeID(in.ID)
	if err := uc.repo.Delete(ctx, id); err != nil {
		log.Warn("failed to delete user", zap.String("id", id), zap.Error(err))
		return nil, passThrough("failed to delete user", err)
	}

	return &DeleteUserResponse{ID: id}, nil
}

// GetUser retrieves a user by ID.
func (uc *userUsecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("get user validation failed", zap.String("id", in.ID), zap.Error(err))
		return nil, formatValidationError(err)
	}

	id, _ := domain.NormalizeID(in.ID)
	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			log.Debug("user not found", zap.String("id", id))
		} else {
			log.Error("failed to get user", zap.String("id", id), zap.Error(err))
		}
		return nil, passThrough("failed to get user", err)
	}

	return &GetUserResponse{User: toDTO(u)}, nil
}

// ListUsers retrieves a paginated list of users with optional search.
func (uc *userUsecase) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	in.Page, in.Limit = domain.NormalizePage(in.Page, in.Limit)

	query, err := security.ValidateSearchQuery(in.Query)
	if err != nil {
		log.Warn("invalid search query", zap.String("query", in.Query), zap.Error(err))
		return nil, pkgerrors.NewValidationError("query", err.Error())
	}

	log.Info("listing users", zap.String("query", query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit))

	domainUsers, total, err := uc.repo.List(ctx, query, in.Page, in.Limit)
	if err != nil {
		log.Error("failed to list users", zap.String("query", query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit), zap.Error(err))
		return nil, passThrough("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = toDTO(&domainUsers[i])
	}

	p := domain.NewPagination(total, in.Page, in.Limit)

	return &ListUsersResponse{
		Users: users,
		Pagination: &Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
		},
	}, nil
}

func toDTO(u *domain.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
