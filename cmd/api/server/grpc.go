package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "user-doc-service/internal/adapter/grpc"
	"user-doc-service/internal/adapter/grpc/middleware"
	"user-doc-service/internal/adapter/ratelimit"
	"user-doc-service/pkg/logger"
	"user-doc-service/pkg/security"
)

// SetupGRPC creates the gRPC server that publishes service health
func SetupGRPC(hs *grpcadapter.HealthServer, limiter *ratelimit.Limiter, proxies security.TrustedProxies, l *zap.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			logger.LoggingInterceptor(l),
			middleware.RateLimitInterceptor(limiter, proxies, l),
		),
	)
	hs.Register(grpcServer)
	reflection.Register(grpcServer)

	return grpcServer
}
