package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"user-doc-service/internal/domain/user"
	pkgerrors "user-doc-service/pkg/errors"
	"user-doc-service/pkg/logger"
	"user-doc-service/pkg/security"
)

// UserRepoMongo implements the user Repository on a MongoDB collection.
type UserRepoMongo struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewUserRepoMongo creates a new instance of UserRepoMongo.
func NewUserRepoMongo(coll *mongo.Collection, log *zap.Logger) *UserRepoMongo {
	return &UserRepoMongo{coll: coll, log: log}
}

// UserDocument is the stored shape of a user.
type UserDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *UserDocument) toDomain() *user.User {
	return &user.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// EnsureIndexes creates the unique email index and the listing sort index.
// It is idempotent.
func (r *UserRepoMongo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	}

	names, err := r.coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	r.log.Info("user indexes ensured", zap.Strings("indexes", names))
	return nil
}

// now returns the current time at the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Create inserts a new user and returns it with its generated ID.
func (r *UserRepoMongo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	ts := now()
	doc := UserDocument{
		ID:        primitive.NewObjectID(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			logger.WithContext(ctx, r.log).Warn("duplicate email on insert", zap.String("email", u.Email))
			return nil, pkgerrors.NewAlreadyExistsError("user", "email")
		}
		logger.WithContext(ctx, r.log).Error("failed to insert user", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.WithContext(ctx, r.log).Info("user inserted", zap.String("id", doc.ID.Hex()))
	return doc.toDomain(), nil
}

// GetByID retrieves a user by its hex ID.
func (r *UserRepoMongo) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, pkgerrors.NewValidationError("id", "must be a 24-character hex string")
	}

	var doc UserDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pkgerrors.NewNotFoundError("user", id)
		}
		logger.WithContext(ctx, r.log).Error("failed to find user", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.toDomain(), nil
}

// GetByEmail retrieves a user by email. It returns nil, nil when no user matches.
func (r *UserRepoMongo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var doc UserDocument
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.WithContext(ctx, r.log).Error("failed to find user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return doc.toDomain(), nil
}

// Update overwrites name and email and returns the stored document after the write.
func (r *UserRepoMongo) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("id", "must be a 24-character hex string")
	}

	update := bson.M{"$set": bson.M{
		"name":       u.Name,
		"email":      u.Email,
		"updated_at": now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc UserDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, pkgerrors.NewNotFoundError("user", u.ID)
		case mongo.IsDuplicateKeyError(err):
			return nil, pkgerrors.NewAlreadyExistsError("user", "email")
		}
		logger.WithContext(ctx, r.log).Error("failed to update user", zap.Error(err), zap.String("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	logger.WithContext(ctx, r.log).Info("user updated", zap.String("id", u.ID))
	return doc.toDomain(), nil
}

// Delete removes a user by ID.
func (r *UserRepoMongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return pkgerrors.NewValidationError("id", "must be a 24-character hex string")
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		logger.WithContext(ctx, r.log).Error("failed to delete user", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return pkgerrors.NewNotFoundError("user", id)
	}

	logger.WithContext(ctx, r.log).Info("user deleted", zap.String("id", id))
	return nil
}

// listFilter matches query as a literal, case-insensitive substring of name or email.
func listFilter(query string) bson.M {
	if query == "" {
		return bson.M{}
	}

	pattern := primitive.Regex{Pattern: security.EscapeRegex(query), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"email": pattern},
	}}
}

// List returns one page of users, newest first, and the total number of matches.
func (r *UserRepoMongo) List(ctx context.Context, query string, page, limit int64) ([]user.User, int64, error) {
	filter := listFilter(query)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		logger.WithContext(ctx, r.log).Error("failed to count users", zap.Error(err), zap.String("query", query))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(user.Offset(page, limit)).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		logger.WithContext(ctx, r.log).Error("failed to list users", zap.Error(err), zap.String("query", query))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []UserDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]user.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toDomain()
	}

	return users, total, nil
}

// Ping checks that the primary behind the collection is reachable.
func (r *UserRepoMongo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}
