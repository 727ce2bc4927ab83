package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap/zaptest"

	"user-doc-service/internal/domain/user"
	pkgerrors "user-doc-service/pkg/errors"
)

func userDoc(id primitive.ObjectID, name, email string, ts time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: email},
		{Key: "created_at", Value: ts},
		{Key: "updated_at", Value: ts},
	}
}

func TestUserRepoMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	oid := primitive.NewObjectID()
	ns := "user_service.users"

	mt.Run("Create returns generated id", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		created, err := repo.Create(context.Background(), &user.User{Name: "John Doe", Email: "john@example.com"})

		require.NoError(mt, err)
		_, ok := user.NormalizeID(created.ID)
		assert.True(mt, ok)
		assert.Equal(mt, "John Doe", created.Name)
		assert.False(mt, created.CreatedAt.IsZero())
		assert.Equal(mt, created.CreatedAt, created.UpdatedAt)
	})

	mt.Run("Create duplicate email", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: user_service.users index: email_unique",
		}))

		created, err := repo.Create(context.Background(), &user.User{Name: "John Doe", Email: "john@example.com"})

		assert.Nil(mt, created)
		assert.True(mt, pkgerrors.IsAlreadyExists(err))
	})

	mt.Run("Create nil user", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))

		_, err := repo.Create(context.Background(), nil)
		assert.EqualError(mt, err, "user cannot be nil")
	})

	mt.Run("GetByID found", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			userDoc(oid, "John Doe", "john@example.com", ts)))

		got, err := repo.GetByID(context.Background(), oid.Hex())

		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), got.ID)
		assert.Equal(mt, "john@example.com", got.Email)
		assert.True(mt, ts.Equal(got.CreatedAt))
	})

	mt.Run("GetByID not found", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.GetByID(context.Background(), oid.Hex())

		assert.Nil(mt, got)
		assert.True(mt, pkgerrors.IsNotFound(err))
	})

	mt.Run("GetByID invalid hex", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))

		_, err := repo.GetByID(context.Background(), "123")
		assert.True(mt, pkgerrors.IsValidation(err))
	})

	mt.Run("GetByEmail absent returns nil", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.GetByEmail(context.Background(), "nobody@example.com")

		assert.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("GetByEmail command error", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		got, err := repo.GetByEmail(context.Background(), "john@example.com")

		assert.Nil(mt, got)
		assert.ErrorContains(mt, err, "failed to get user by email")
	})

	mt.Run("Update returns document after write", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{
			Key:   "value",
			Value: userDoc(oid, "John Updated", "john@example.com", ts),
		}))

		got, err := repo.Update(context.Background(), &user.User{ID: oid.Hex(), Name: "John Updated", Email: "john@example.com"})

		require.NoError(mt, err)
		assert.Equal(mt, "John Updated", got.Name)
	})

	mt.Run("Update missing user", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		got, err := repo.Update(context.Background(), &user.User{ID: oid.Hex(), Name: "John Updated", Email: "john@example.com"})

		assert.Nil(mt, got)
		assert.True(mt, pkgerrors.IsNotFound(err))
	})

	mt.Run("Delete existing", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, repo.Delete(context.Background(), oid.Hex()))
	})

	mt.Run("Delete missing", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), oid.Hex())
		assert.True(mt, pkgerrors.IsNotFound(err))
	})

	mt.Run("List returns page and total", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		second := primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int64(7)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				userDoc(second, "Jane Doe", "jane@example.com", ts),
				userDoc(oid, "John Doe", "john@example.com", ts),
			),
		)

		users, total, err := repo.List(context.Background(), "doe", 1, 2)

		require.NoError(mt, err)
		assert.Equal(mt, int64(7), total)
		require.Len(mt, users, 2)
		assert.Equal(mt, second.Hex(), users[0].ID)
		assert.Equal(mt, oid.Hex(), users[1].ID)
	})

	mt.Run("List empty", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		users, total, err := repo.List(context.Background(), "", 3, 10)

		require.NoError(mt, err)
		assert.Equal(mt, int64(0), total)
		assert.Empty(mt, users)
	})

	mt.Run("EnsureIndexes", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.EnsureIndexes(context.Background()))
	})

	mt.Run("Ping", func(mt *mtest.T) {
		repo := NewUserRepoMongo(mt.Coll, zaptest.NewLogger(mt))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.Ping(context.Background()))
	})
}

func TestListFilter(t *testing.T) {
	assert.Empty(t, listFilter(""))

	filter := listFilter("john.doe")
	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)

	name := or[0].(bson.M)["name"].(primitive.Regex)
	assert.Equal(t, `john\.doe`, name.Pattern)
	assert.Equal(t, "i", name.Options)
}
