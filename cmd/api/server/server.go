package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"user-doc-service/cmd/api/di"
	ginrouter "user-doc-service/internal/adapter/gin/router"
	grpcadapter "user-doc-service/internal/adapter/grpc"
	"user-doc-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	HTTP   *http.Server
	Health *grpcadapter.HealthServer
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	interval := time.Duration(cfg.App.HealthIntervalSeconds) * time.Second
	hs := grpcadapter.NewHealthServer(c.Health, interval, l)

	return &Server{
		Config: cfg,
		Logger: l,
		Health: hs,
		GRPC:   SetupGRPC(hs, c.RateLimiter, c.TrustedProxies, l),
		HTTP: SetupGinServer(c.GinHandler, c.HealthHandler, ginrouter.Options{
			ServiceName:    cfg.Logger.ServiceName,
			ServiceVersion: cfg.Logger.ServiceVersion,
			AllowOrigins:   cfg.App.CORSAllowOrigins,
			TrustedProxies: cfg.App.TrustedProxies,
			RateLimiter:    c.RateLimiter,
		}, httpAddress(cfg), cfg.App.Env, l),
	}
}

// Run serves HTTP and gRPC until ctx is canceled or one of them fails, then
// shuts both down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}
	httpLis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("failed to listen on HTTP address: %w", err)
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve runs the servers on the given listeners.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("REST API running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.Health.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// shutdown drains the HTTP server and stops gRPC gracefully, forcing the
// stop when the timeout expires.
func (s *Server) shutdown() error {
	timeout := time.Duration(s.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("shutting down servers", zap.Duration("timeout", timeout))

	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.GRPC.Stop()
		errs = append(errs, errors.New("gRPC graceful stop timed out"))
	}

	return errors.Join(errs...)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
