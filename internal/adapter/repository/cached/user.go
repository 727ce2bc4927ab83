package cached

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-doc-service/internal/adapter/cache"
	domain "user-doc-service/internal/domain/user"
	"user-doc-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (MongoDB or SQL) and a cache implementation.
type CachedUserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group

	// generation is bumped by every invalidation; a read that overlaps one
	// does not repopulate the cache
	generation atomic.Uint64
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Create delegates to the DB repository. New users are cached on first read.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Create(ctx, u)
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.String("id", id), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.String("id", id))
			return cachedUser, nil
		}
	}

	// concurrent misses for the same id share one database read. The flight
	// outlives any single caller, so it does not inherit cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(cache.Key(id), func() (any, error) {
		gen := r.generation.Load()

		if r.cache != nil {
			cachedUser, err := r.cache.Get(flightCtx, id)
			if err == nil && cachedUser != nil {
				return cachedUser, nil
			}
		}

		u, err := r.dbRepo.GetByID(flightCtx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			r.fill(flightCtx, u, gen)
		}

		return u, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	u := res.Val.(*domain.User)
	if res.Shared {
		// callers must not alias one another's value
		cp := *u
		return &cp, nil
	}
	return u, nil
}

// GetByEmail delegates to the DB repository.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.dbRepo.GetByEmail(ctx, email)
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, updated.ID, "update")
	return updated, nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id string) error {
	if err := r.dbRepo.Delete(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id, "delete")
	return nil
}

// List delegates to the DB repository.
func (r *CachedUserRepository) List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error) {
	return r.dbRepo.List(ctx, query, page, limit)
}

// Ping reports the health of the underlying database. The cache is optional
// and is checked separately.
func (r *CachedUserRepository) Ping(ctx context.Context) error {
	return r.dbRepo.Ping(ctx)
}

// fill caches u unless an invalidation ran since gen was read. The check is
// repeated after the write so an invalidation racing with Set still wins.
func (r *CachedUserRepository) fill(ctx context.Context, u *domain.User, gen uint64) {
	if r.generation.Load() != gen {
		r.log.Debug("skipping cache fill after concurrent write", zap.String("id", u.ID))
		return
	}
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.String("id", u.ID), zap.Error(err))
		return
	}
	if r.generation.Load() != gen {
		if err := r.cache.Delete(ctx, u.ID); err != nil {
			r.log.Warn("failed to drop stale cache entry", zap.String("id", u.ID), zap.Error(err))
		}
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id, op string) {
	if r.cache == nil {
		return
	}
	r.generation.Add(1)
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cache", zap.String("op", op), zap.String("id", id), zap.Error(err))
	}
}
