package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	"github.com/chimera-systems/chimera/internal/history"
	"github.com/chimera-systems/chimera/internal/ports"
	"github.com/chimera-systems/chimera/internal/registry"
)

type fakeBuildPort struct{}

func (fakeBuildPort) Build(ctx context.Context, path domain.ConfigPath) (domain.Fingerprint, error) {
	return domain.Fingerprint("fp-test"), nil
}
func (fakeBuildPort) Instantiate(ctx context.Context, path domain.ConfigPath) (string, error) {
	return "/nix/store/fake", nil
}
func (fakeBuildPort) Shell(ctx context.Context, path domain.ConfigPath, cmd string) (string, error) {
	return cmd, nil
}

type fakeExecutorPort struct{}

func (fakeExecutorPort) SyncClosure(ctx context.Context, node domain.Node, fp domain.Fingerprint) error {
	return nil
}
func (fakeExecutorPort) Exec(ctx context.Context, node domain.Node, cmd string) error {
	return nil
}
func (fakeExecutorPort) CurrentFingerprint(ctx context.Context, node domain.Node) (domain.Fingerprint, bool, error) {
	return domain.Fingerprint("fp-test"), true, nil
}
func (fakeExecutorPort) Rollback(ctx context.Context, node domain.Node, generation *int) error {
	return nil
}

func (fakeExecutorPort) Create(ctx context.Context, id domain.SessionId) (bool, error) {
	return true, nil
}
func (fakeExecutorPort) Kill(ctx context.Context, id domain.SessionId) (bool, error) {
	return true, nil
}
func (fakeExecutorPort) Run(ctx context.Context, id domain.SessionId, cmd string) (bool, error) {
	return true, nil
}
func (fakeExecutorPort) List(ctx context.Context) ([]domain.SessionId, error) {
	return nil, nil
}
func (fakeExecutorPort) Attach(ctx context.Context, id domain.SessionId) (string, error) {
	return "tmux attach -t " + id.String(), nil
}

func newTestMCPServer() *Server {
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	build := fakeBuildPort{}
	exec := fakeExecutorPort{}
	bus := noopBus{}
	hist := history.NewStore()

	deployUC := deployfleet.New(build, exec, exec, bus, now, nil)
	rollbackUC := rollback.New(exec, bus, now)
	driftSvc := drift.New(exec, hist, now)
	reg := registry.New(30*time.Second, now)

	return NewServer(deployUC, rollbackUC, driftSvc, reg, now, nil)
}

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, events []domain.DomainEvent) error { return nil }
func (noopBus) Subscribe(eventType domain.EventType, handler ports.EventHandler)  {}

func TestToolsListReturnsAllThreeTools(t *testing.T) {
	s := newTestMCPServer()
	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: JSONRPCVersion, ID: 1, Method: "tools/list"})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(ListToolsResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 3)
}

func TestExecuteDeploymentToolSucceeds(t *testing.T) {
	s := newTestMCPServer()
	params := CallToolParams{
		Name: "execute_deployment",
		Arguments: map[string]any{
			"config_path": "/etc/chimera/fleet.nix",
			"command":     "systemctl restart chimera",
			"session":     "deploy-1",
			"targets":     "root@n1:22",
		},
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: JSONRPCVersion, ID: 2, Method: "tools/call", Params: raw})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*CallToolResult)
	require.True(t, ok)
	require.False(t, result.IsError)

	var body ToolResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
	require.Equal(t, StatusSuccess, body.Status)
}

func TestUnknownToolReturnsToolNotFoundCode(t *testing.T) {
	s := newTestMCPServer()
	params := CallToolParams{Name: "delete_everything"}
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: JSONRPCVersion, ID: 3, Method: "tools/call", Params: raw})
	result, ok := resp.Result.(*CallToolResult)
	require.True(t, ok)

	var body ToolResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
	require.Equal(t, CodeToolNotFound, body.Code)
}

func TestReadNodeHealthResource(t *testing.T) {
	s := newTestMCPServer()
	params := ReadResourceParams{URI: "node://health"}
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: JSONRPCVersion, ID: 4, Method: "resources/read", Params: raw})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(ReadResourceResult)
	require.True(t, ok)
	require.Len(t, result.Contents, 1)
}

func TestReadUnknownDeploymentResourceReturnsNotFoundCode(t *testing.T) {
	s := newTestMCPServer()
	params := ReadResourceParams{URI: "deployment://never-ran"}
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.HandleRequest(context.Background(), &Request{JSONRPC: JSONRPCVersion, ID: 5, Method: "resources/read", Params: raw})
	result, ok := resp.Result.(*CallToolResult)
	require.True(t, ok)

	var body ToolResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
	require.Equal(t, CodeResourceNotFound, body.Code)
}
