package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/incident-analyzer/internal/services"
)

func startBufServer(t *testing.T, service IncidentAnalyzerServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := newServer(lis, service)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestGRPCAnalyzeRoundTrip(t *testing.T) {
	service := NewGRPCService(quietLogger(), services.NewAnalyzerService(quietLogger(), services.Options{}))
	conn := startBufServer(t, service)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := &structpb.Struct{}
	req := newStruct(t, map[string]any{"cpu": 95, "memory": 92, "error": "TimeoutException", "recent_deployment": true})
	require.NoError(t, conn.Invoke(ctx, AnalyzeMethod, req, resp))

	fields := resp.AsMap()
	assert.Equal(t, "High", fields["confidence"])
	assert.Equal(t, "Resource Exhaustion", fields["ml_prediction"])
	assert.Len(t, fields["root_causes"], 3)
	assert.NotContains(t, fields, "score")
}

func TestGRPCAnalyzeHistoryRoundTrip(t *testing.T) {
	service := NewGRPCService(quietLogger(), services.NewAnalyzerService(quietLogger(), services.Options{}))
	conn := startBufServer(t, service)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := map[string]any{"cpu": 90, "memory": 70, "recent_deployment": true}
	b := map[string]any{"cpu": 50, "memory": 85, "error": "TimeoutException"}
	req := newStruct(t, map[string]any{"incidents": []any{a, a, b, a}})

	resp := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, AnalyzeHistoryMethod, req, resp))
	fields := resp.AsMap()
	assert.Equal(t, "Bad deployment causing CPU spike", fields["most_common_issue"])
	assert.Equal(t, float64(3), fields["occurrences"])
	assert.Equal(t, "High", fields["confidence"])
}

func TestGRPCHealth(t *testing.T) {
	conn := startBufServer(t, NewGRPCService(quietLogger(), failingAnalyzer{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewGRPCService(quietLogger(), failingAnalyzer{})

	_, err := svc.Analyze(ctx, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.Analyze(ctx, newStruct(t, map[string]any{"cpu": "high"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.Analyze(ctx, newStruct(t, map[string]any{"cpu": 10}))
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = svc.AnalyzeHistory(ctx, newStruct(t, map[string]any{"incidents": "none"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.AnalyzeHistory(ctx, newStruct(t, map[string]any{}))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestNewServerListens(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", NewGRPCService(quietLogger(), failingAnalyzer{}))
	require.NoError(t, err)
	assert.NotEmpty(t, srv.Address())

	go func() { _ = srv.Start() }()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
