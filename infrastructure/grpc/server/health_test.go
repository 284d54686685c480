package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func startHealthServer(t *testing.T) (*HealthServer, grpc_health_v1.HealthClient) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewHealthServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = server.Serve(listener) }()

	conn, err := grpc.NewClient(listener.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Stop(ctx)
	})
	return server, grpc_health_v1.NewHealthClient(conn)
}

func TestHealthServer_Transitions(t *testing.T) {
	req := require.New(t)
	server, client := startHealthServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Given a relay not started yet
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: RelayServiceName})
	req.NoError(err)
	req.Equal(grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	// When the orchestrator runs
	server.SetServing(true)

	// Then both the overall and the named status are SERVING
	for _, service := range []string{"", RelayServiceName} {
		resp, err = client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		req.NoError(err)
		req.Equal(grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}
