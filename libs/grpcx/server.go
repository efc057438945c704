package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes grpc.health.v1 for orchestrators that probe over gRPC.
// Its serving status follows the same checks as /readyz.
type HealthServer struct {
	srv     *grpc.Server
	health  *health.Server
	checks  []runtime.ReadyCheck
	logger  *slog.Logger
	service string
}

func NewHealthServer(service string, logger *slog.Logger, checks ...runtime.ReadyCheck) *HealthServer {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLogInterceptor(logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthServer{srv: srv, health: hs, checks: checks, logger: logger, service: service}
}

// Refresh recomputes serving status from the ready checks.
func (s *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, s.checks...); len(failures) > 0 {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("grpc health not serving", "failures", failures)
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.service, st)
	return st
}

// Serve listens on addr until ctx is cancelled, refreshing health every interval.
func (s *HealthServer) Serve(ctx context.Context, addr string, interval time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	s.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.srv.GracefulStop()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	s.logger.Info("grpc server starting", "addr", addr)
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
