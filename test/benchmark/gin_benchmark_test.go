package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-doc-service/internal/adapter/cache"
	"user-doc-service/internal/adapter/db/postgres"
	ginhandler "user-doc-service/internal/adapter/gin/handler"
	ginrouter "user-doc-service/internal/adapter/gin/router"
	"user-doc-service/internal/adapter/repository/cached"
	"user-doc-service/internal/usecase/health"
	"user-doc-service/internal/usecase/user"
)

// GinBenchmarkServer is the HTTP API over SQLite, optionally fronted by the Redis cache.
type GinBenchmarkServer struct {
	server *httptest.Server
	client *http.Client
}

func setupGinBenchmarkServer(b *testing.B, withCache bool) *GinBenchmarkServer {
	b.Helper()
	gin.SetMode(gin.ReleaseMode)
	log := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(filepath.Join(b.TempDir(), "bench.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		b.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		b.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	dbRepo := postgres.NewUserRepoPG(db, log)
	if err := dbRepo.Migrate(context.Background()); err != nil {
		b.Fatalf("migrate: %v", err)
	}

	var repo user.Repository = dbRepo
	if withCache {
		mr := miniredis.RunT(b)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		b.Cleanup(func() { _ = rdb.Close() })
		repo = cached.NewCachedUserRepository(dbRepo, cache.NewRedisUserCache(rdb, time.Minute, log), log)
	}

	router := ginrouter.SetupRouter(
		ginhandler.NewUserHandler(user.New(repo, log), log),
		ginhandler.NewHealthHandler(health.NewChecker(time.Second, log, health.Check{Name: "database", Pinger: repo}), "bench", "bench"),
		ginrouter.Options{ServiceName: "bench", ServiceVersion: "bench"},
		log,
	)

	gs := &GinBenchmarkServer{server: httptest.NewServer(router)}
	gs.client = gs.server.Client()
	b.Cleanup(func() {
		gs.server.Close()
		_ = sqlDB.Close()
	})
	return gs
}

func (gs *GinBenchmarkServer) makeRequest(method, endpoint string, body any) (*http.Response, error) {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), method, gs.server.URL+endpoint, &reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return gs.client.Do(req)
}

func (gs *GinBenchmarkServer) createUser(b *testing.B, name, email string) string {
	b.Helper()
	resp, err := gs.makeRequest(http.MethodPost, "/v1/users", map[string]string{"name": name, "email": email})
	if err != nil {
		b.Fatalf("create user: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b.Fatalf("create user: status %d", resp.StatusCode)
	}

	var created ginhandler.UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		b.Fatalf("decode create response: %v", err)
	}
	return created.ID
}

func expectStatus(b *testing.B, gs *GinBenchmarkServer, method, endpoint string, body any, want int) {
	resp, err := gs.makeRequest(method, endpoint, body)
	if err != nil {
		b.Errorf("request failed: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != want {
		b.Errorf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func BenchmarkGin_CreateUser(b *testing.B) {
	gs := setupGinBenchmarkServer(b, false)

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			id := atomic.AddInt64(&counter, 1)
			expectStatus(b, gs, http.MethodPost, "/v1/users", map[string]string{
				"name":  fmt.Sprintf("User_%d", id),
				"email": fmt.Sprintf("user_%d@example.com", id),
			}, http.StatusCreated)
		}
	})
}

func benchmarkGetUser(b *testing.B, withCache bool) {
	gs := setupGinBenchmarkServer(b, withCache)
	userID := gs.createUser(b, "Test User", "test@example.com")

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			expectStatus(b, gs, http.MethodGet, "/v1/users/"+userID, nil, http.StatusOK)
		}
	})
}

func BenchmarkGin_GetUser(b *testing.B)       { benchmarkGetUser(b, false) }
func BenchmarkGin_GetUserCached(b *testing.B) { benchmarkGetUser(b, true) }

func BenchmarkGin_UpdateUser(b *testing.B) {
	gs := setupGinBenchmarkServer(b, true)
	userID := gs.createUser(b, "Test User", "test@example.com")

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			id := atomic.AddInt64(&counter, 1)
			expectStatus(b, gs, http.MethodPut, "/v1/users/"+userID, map[string]string{
				"name": fmt.Sprintf("Updated User %d", id),
			}, http.StatusOK)
		}
	})
}

func BenchmarkGin_ListUsers(b *testing.B) {
	gs := setupGinBenchmarkServer(b, false)
	for i := 0; i < 50; i++ {
		gs.createUser(b, fmt.Sprintf("Bench User %d", i), fmt.Sprintf("bench%d@example.com", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			expectStatus(b, gs, http.MethodGet, "/v1/users?query=bench&page=2&limit=20", nil, http.StatusOK)
		}
	})
}

func BenchmarkGin_Health(b *testing.B) {
	gs := setupGinBenchmarkServer(b, false)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		expectStatus(b, gs, http.MethodGet, "/health", nil, http.StatusOK)
	}
}
