package orchestrator

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/chimera-systems/chimera/internal/domain"
)

type fakeOrchestratorServer struct {
	lastHealth *healthReport
	lastDrift  *driftReport
	pending    string
	acked      *acknowledgeRequest
}

func (f *fakeOrchestratorServer) ReportHealth(_ context.Context, req *healthReport) (*empty, error) {
	f.lastHealth = req
	return &empty{}, nil
}

func (f *fakeOrchestratorServer) ReportDrift(_ context.Context, req *driftReport) (*empty, error) {
	f.lastDrift = req
	return &empty{}, nil
}

func (f *fakeOrchestratorServer) FetchHealingCommand(_ context.Context, _ *healingCommandRequest) (*healingCommandResponse, error) {
	return &healingCommandResponse{Command: f.pending}, nil
}

func (f *fakeOrchestratorServer) AcknowledgeHealing(_ context.Context, req *acknowledgeRequest) (*empty, error) {
	f.acked = req
	return &empty{}, nil
}

func newTestClient(t *testing.T, impl *fakeOrchestratorServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterOrchestratorServer(srv, impl)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &Client{conn: conn}
}

func testNode(t *testing.T) domain.Node {
	t.Helper()
	node, err := domain.NewNode("n1.internal", "deploy", 22)
	require.NoError(t, err)
	return node
}

func TestReportHealthSendsNodeState(t *testing.T) {
	impl := &fakeOrchestratorServer{}
	client := newTestClient(t, impl)

	err := client.ReportHealth(context.Background(), testNode(t), true)
	require.NoError(t, err)
	require.NotNil(t, impl.lastHealth)
	require.True(t, impl.lastHealth.Healthy)
}

func TestFetchHealingCommandReturnsPendingCommand(t *testing.T) {
	impl := &fakeOrchestratorServer{pending: "systemctl restart chimera-agent"}
	client := newTestClient(t, impl)

	cmd, err := client.FetchHealingCommand(context.Background(), testNode(t))
	require.NoError(t, err)
	require.Equal(t, "systemctl restart chimera-agent", cmd)
}

func TestAcknowledgeHealingRecordsCommandID(t *testing.T) {
	impl := &fakeOrchestratorServer{}
	client := newTestClient(t, impl)

	err := client.AcknowledgeHealing(context.Background(), testNode(t), "cmd-42")
	require.NoError(t, err)
	require.NotNil(t, impl.acked)
	require.Equal(t, "cmd-42", impl.acked.CommandID)
}
