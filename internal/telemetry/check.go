package telemetry

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer wraps grpc-go's stock health.Server, exposing the
// standard grpc.health.v1 protocol so any off-the-shelf health-check
// tooling (k8s gRPC probes included) works against the daemon without
// a custom protocol.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewHealthServer constructs a gRPC server exposing only the health
// service, defaulting the overall server status to SERVING.
func NewHealthServer() *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, h)

	return &HealthServer{grpcServer: grpcServer, health: h}
}

// SetServing flips the reported status for the overall server.
func (h *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
}

// Serve blocks accepting connections on lis until the server is
// stopped or lis errors.
func (h *HealthServer) Serve(lis net.Listener) error {
	return h.grpcServer.Serve(lis)
}

// Stop gracefully stops the underlying gRPC server.
func (h *HealthServer) Stop() {
	h.grpcServer.GracefulStop()
}

// CheckHealth dials addr and issues one health check RPC, returning
// whether the server reports SERVING.
func CheckHealth(ctx context.Context, addr string, timeout time.Duration) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return false, err
	}
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	resp, err := client.Check(dialCtx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false, err
	}
	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}
