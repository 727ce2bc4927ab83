package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthuc "user-doc-service/internal/usecase/health"
)

// ServiceName is the gRPC health service name reported for the user API.
const ServiceName = "user.v1.UserService"

// HealthServer publishes dependency checks through the standard gRPC
// health protocol. The empty service name and ServiceName follow the
// overall report; each component is published under its own name.
type HealthServer struct {
	srv      *health.Server
	checker  *healthuc.Checker
	interval time.Duration
	log      *zap.Logger
}

// NewHealthServer creates a health server that refreshes every interval.
func NewHealthServer(checker *healthuc.Checker, interval time.Duration, log *zap.Logger) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthServer{
		srv:      health.NewServer(),
		checker:  checker,
		interval: interval,
		log:      log,
	}
}

// Register attaches the health service to a gRPC server.
func (s *HealthServer) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.srv)
}

// Refresh runs the checks once and publishes the result.
func (s *HealthServer) Refresh(ctx context.Context) healthuc.Report {
	report := s.checker.Check(ctx)

	overall := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.srv.SetServingStatus("", overall)
	s.srv.SetServingStatus(ServiceName, overall)

	for name, st := range report.Components {
		if st == healthuc.StatusUp {
			s.srv.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
		} else {
			s.srv.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}

	return report
}

// Run refreshes the status until ctx is done, then marks everything as not serving.
func (s *HealthServer) Run(ctx context.Context) error {
	s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("health reporter stopping")
			s.srv.Shutdown()
			return nil
		case <-ticker.C:
			report := s.Refresh(ctx)
			s.log.Debug("health refreshed", zap.String("status", string(report.Status)))
		}
	}
}
