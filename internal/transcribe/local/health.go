package local

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Health connects to the engine and asks the standard health service about
// the recognizer. Engines that do not expose the health service are treated
// as serving once the connection is ready.
func (s *Strategy) Health(ctx context.Context) (string, error) {
	if err := s.Available(); err != nil {
		return "", err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return "", err
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		if status.Code(err) == codes.Unimplemented {
			return "connected (health service not exposed)", nil
		}
		return "", fmt.Errorf("health check %s: %w", s.cfg.Endpoint, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return "", fmt.Errorf("recognizer status %s", resp.GetStatus())
	}
	return "serving", nil
}
