package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rbright/voxsearch/internal/transcribe"
)

// connect returns the shared engine connection, dialing it on first use.
// The engine listens on a local endpoint without TLS.
func (s *Strategy) connect(ctx context.Context) (*grpc.ClientConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, s.cfg.DialOptions...)
	conn, err := grpc.NewClient(s.cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial local engine %q: %w", s.cfg.Endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()
	if err := awaitReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, &transcribe.RecognitionError{
			Code:   "network",
			Detail: fmt.Sprintf("local engine %q not ready: %v", s.cfg.Endpoint, err),
		}
	}

	s.conn = conn
	return conn, nil
}

// awaitReady kicks conn out of idle and waits until it is ready. When ctx ends
// first the error names the last state seen.
func awaitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for state := conn.GetState(); state != connectivity.Ready; state = conn.GetState() {
		if state == connectivity.Shutdown {
			return errors.New("connection shut down")
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("still %s: %w", strings.ToLower(state.String()), context.Cause(ctx))
		}
	}
	return nil
}
