package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/security"
)

// RateLimitInterceptor returns a gRPC unary interceptor that takes one token
// per call from the bucket of {method, client ip}. Forwarding metadata is only
// honoured on connections from proxies.
func RateLimitInterceptor(limiter *ratelimit.Limiter, proxies security.TrustedProxies, log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !limiter.Enabled() {
			return handler(ctx, req)
		}

		ip := clientIP(ctx, proxies)
		res := limiter.Allow(ctx, fmt.Sprintf("grpc:%s:%s", info.FullMethod, ip))
		if !res.Allowed {
			cfg := limiter.Config()
			log.Warn("rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("method", info.FullMethod),
				zap.Float64("limit", cfg.RequestsPerSecond),
			)
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				cfg.RequestsPerSecond, cfg.Burst)
		}

		return handler(ctx, req)
	}
}

// clientIP extracts the client IP address from the gRPC context.
func clientIP(ctx context.Context, proxies security.TrustedProxies) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	remote := p.Addr.String()

	md, _ := metadata.FromIncomingContext(ctx)
	if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
		return proxies.ClientIP(remote, xff)
	}
	// x-real-ip carries a single address set by the nearest proxy
	return proxies.ClientIP(remote, md.Get("x-real-ip"))
}
