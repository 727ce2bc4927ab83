package middleware

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/security"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns "success"
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

var checkInfo = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func peerContext(t *testing.T, addr string) context.Context {
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})
}

func newInterceptor(t *testing.T, client *redis.Client, cfg ratelimit.Config, trusted ...string) grpc.UnaryServerInterceptor {
	log := zaptest.NewLogger(t)
	proxies, err := security.ParseTrustedProxies(trusted)
	require.NoError(t, err)
	return RateLimitInterceptor(ratelimit.New(client, cfg, log), proxies, log)
}

func withMetadata(ctx context.Context, kv ...string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(kv...))
}

func TestRateLimitInterceptor_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 10, Burst: 10})
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, checkInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimitInterceptor_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 3})
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 3; i++ {
		_, err := interceptor(ctx, nil, checkInfo, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, checkInfo, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimitInterceptor_Disabled(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: false, RequestsPerSecond: 1, Burst: 1})
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 10; i++ {
		_, err := interceptor(ctx, nil, checkInfo, mockHandler)
		require.NoError(t, err)
	}
}

func TestRateLimitInterceptor_DifferentIPs(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	_, err := interceptor(peerContext(t, "192.168.1.1:12345"), nil, checkInfo, mockHandler)
	require.NoError(t, err)
	_, err = interceptor(peerContext(t, "192.168.1.1:12345"), nil, checkInfo, mockHandler)
	require.Error(t, err)

	_, err = interceptor(peerContext(t, "192.168.1.2:12345"), nil, checkInfo, mockHandler)
	require.NoError(t, err)
}

func TestRateLimitInterceptor_RedisDownFailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	mr.Close()

	for i := 0; i < 3; i++ {
		_, err := interceptor(peerContext(t, "127.0.0.1:1"), nil, checkInfo, mockHandler)
		require.NoError(t, err)
	}
}

func TestRateLimitInterceptor_NewConnectionsShareBucket(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	_, err := interceptor(peerContext(t, "192.168.1.1:40001"), nil, checkInfo, mockHandler)
	require.NoError(t, err)

	_, err = interceptor(peerContext(t, "192.168.1.1:40002"), nil, checkInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimitInterceptor_SpoofedForwardedForIgnored(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	allowed := 0
	for i := 0; i < 10; i++ {
		ctx := withMetadata(peerContext(t, "192.168.1.1:40001"), "x-forwarded-for", fmt.Sprintf("10.0.0.%d", i))
		if _, err := interceptor(ctx, nil, checkInfo, mockHandler); err == nil {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestClientIP(t *testing.T) {
	proxies, err := security.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	fromProxy := peerContext(t, "10.0.0.5:5000")
	assert.Equal(t, "203.0.113.1", clientIP(withMetadata(fromProxy, "x-forwarded-for", "203.0.113.1"), proxies))
	assert.Equal(t, "203.0.113.2", clientIP(withMetadata(fromProxy, "x-real-ip", "203.0.113.2"), proxies))
	assert.Equal(t, "10.0.0.5", clientIP(fromProxy, proxies))

	direct := peerContext(t, "198.51.100.9:5000")
	assert.Equal(t, "198.51.100.9", clientIP(withMetadata(direct, "x-forwarded-for", "203.0.113.1"), proxies))
	assert.Equal(t, "198.51.100.9", clientIP(withMetadata(direct, "x-real-ip", "203.0.113.2"), nil))

	assert.Equal(t, "unknown", clientIP(context.Background(), proxies))
}
