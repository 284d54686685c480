package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RelayServiceName is the health service name reported next to the overall "" status.
const RelayServiceName = "chat.relay"

// HealthServer exposes grpc.health.v1 so orchestrators can probe the relay.
type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	s := &HealthServer{log: log, server: grpcServer, health: healthServer}
	s.SetServing(false)
	return s
}

func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(RelayServiceName, status)
	s.log.Debug("Health status updated", "status", status.String())
}

// Serve blocks until Stop is called or the listener fails.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.log.Info(fmt.Sprintf("gRPC health server listening on %s", lis.Addr()))
	return s.server.Serve(lis)
}

// Stop reports NOT_SERVING to watchers then drains in-flight checks.
func (s *HealthServer) Stop(ctx context.Context) {
	s.health.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.server.Stop()
	}
}
