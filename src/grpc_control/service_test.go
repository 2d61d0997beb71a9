package grpc_control

import (
	"context"
	"net"
	"testing"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func dial(t *testing.T, ctx context.Context, s *ControlServer) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.ServeListener(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

// -----------------------------------------------------------------------------

func TestHealthFollowsEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := &testsupport.FakeEngine{}
	s := NewControlServer(config.Default().MConfig, eng, logger.NewNop("test"))
	s.RefreshInterval = 10 * time.Millisecond
	client := dial(t, ctx, s)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))

	eng.Start(ctx)
	assert.Eventually(t, func() bool {
		return check(t, client, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	eng.Stop()
	assert.Eventually(t, func() bool {
		return check(t, client, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownServiceIsNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewControlServer(config.Default().MConfig, &testsupport.FakeEngine{}, logger.NewNop("test"))
	client := dial(t, ctx, s)

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "oi.Nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRefresh(t *testing.T) {
	eng := &testsupport.FakeEngine{}
	s := NewControlServer(config.Default().MConfig, eng, logger.NewNop("test"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Refresh())

	eng.Start(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Refresh())
}
