package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-doc-service/internal/domain/user"
	pkgerrors "user-doc-service/pkg/errors"
	"user-doc-service/pkg/logger"
	"user-doc-service/pkg/security"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// UserRepoPG implements the user Repository on a SQL database through GORM.
// It is used with PostgreSQL in deployments and with SQLite locally and in tests.
type UserRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// The primary key holds the same 24-character hex ObjectID the document store uses.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;size:24"`
	Name      string    `gorm:"not null;size:100"`
	Email     string    `gorm:"not null;size:254;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null;index:idx_users_created_at"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (s *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Migrate creates or updates the users table.
func (r *UserRepoPG) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// isUniqueViolation recognizes duplicate keys from GORM's translated errors,
// PostgreSQL (pgx) and SQLite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Create inserts a new user into the database.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	ts := now()
	model := UserSchema{
		ID:        user.NewID(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.NewAlreadyExistsError("user", "email")
		}
		logger.WithContext(ctx, r.log).Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.WithContext(ctx, r.log).Info("user created in db", zap.String("id", model.ID))
	return model.toDomain(), nil
}

// Update overwrites name and email of an existing user and returns the stored row.
func (r *UserRepoPG) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	res := r.db.WithContext(ctx).
		Model(&UserSchema{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"name":       u.Name,
			"email":      u.Email,
			"updated_at": now(),
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, pkgerrors.NewAlreadyExistsError("user", "email")
		}
		logger.WithContext(ctx, r.log).Error("failed to update user in db", zap.Error(res.Error), zap.String("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.NewNotFoundError("user", u.ID)
	}

	logger.WithContext(ctx, r.log).Info("user updated in db", zap.String("id", u.ID))
	return r.GetByID(ctx, u.ID)
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserSchema{})
	if res.Error != nil {
		logger.WithContext(ctx, r.log).Error("failed to delete user in db", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.NewNotFoundError("user", id)
	}

	logger.WithContext(ctx, r.log).Info("user deleted in db", zap.String("id", id))
	return nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NewNotFoundError("user", id)
		}
		logger.WithContext(ctx, r.log).Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user by email address. It returns nil, nil when no user matches.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithContext(ctx, r.log).Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// searchScope matches query as a literal, case-insensitive substring of name or email.
func searchScope(query string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if query == "" {
			return db
		}
		pattern := "%" + security.EscapeLike(strings.ToLower(query)) + "%"
		return db.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
}

// List returns one page of users, newest first, and the total number of matches.
func (r *UserRepoPG) List(ctx context.Context, query string, page, limit int64) ([]user.User, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&UserSchema{}).Scopes(searchScope(query)).Count(&total).Error; err != nil {
		logger.WithContext(ctx, r.log).Error("failed to count users", zap.Error(err), zap.String("query", query))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserSchema
	err := db.Scopes(searchScope(query)).
		Order("created_at DESC").
		Order("id DESC").
		Offset(int(user.Offset(page, limit))).
		Limit(int(limit)).
		Find(&models).Error
	if err != nil {
		logger.WithContext(ctx, r.log).Error("failed to list users from db", zap.Error(err), zap.String("query", query), zap.Int64("page", page), zap.Int64("limit", limit))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}

	return users, total, nil
}

// Ping checks the underlying connection pool.
func (r *UserRepoPG) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
