// Package orchestrator implements ports.OrchestratorPort over grpc,
// exchanging health, drift, and healing-command state with an external
// fleet orchestrator that lives outside this repository.
package orchestrator

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chimera-systems/chimera/internal/domain"
	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
)

// Client dials a fleet orchestrator over grpc and satisfies
// ports.OrchestratorPort.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the orchestrator at addr. The connection uses
// jsonCodec (codec.go) rather than protobuf, since no .proto
// compilation step produced generated message types for this build.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying grpc connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	fullMethod := "/" + serviceName + "/" + method
	if err := c.conn.Invoke(ctx, fullMethod, req, resp); err != nil {
		return chimeraerrors.PortFailure("orchestrator."+method, "rpc failed", err)
	}
	return nil
}

// ReportHealth tells the orchestrator whether node is currently healthy.
func (c *Client) ReportHealth(ctx context.Context, node domain.Node, healthy bool) error {
	return c.invoke(ctx, "ReportHealth", &healthReport{NodeID: node.ID(), Healthy: healthy}, new(empty))
}

// ReportDrift forwards a locally-observed drift report.
func (c *Client) ReportDrift(ctx context.Context, report domain.DriftReport) error {
	return c.invoke(ctx, "ReportDrift", &driftReport{
		NodeID:      report.Node.ID(),
		Severity:    string(report.Severity),
		Fingerprint: report.Actual.String(),
	}, new(empty))
}

// FetchHealingCommand asks the orchestrator for a pending healing
// command targeted at node. An empty string means none is pending.
func (c *Client) FetchHealingCommand(ctx context.Context, node domain.Node) (string, error) {
	resp := new(healingCommandResponse)
	if err := c.invoke(ctx, "FetchHealingCommand", &healingCommandRequest{NodeID: node.ID()}, resp); err != nil {
		return "", err
	}
	return resp.Command, nil
}

// AcknowledgeHealing confirms commandID ran on node.
func (c *Client) AcknowledgeHealing(ctx context.Context, node domain.Node, commandID string) error {
	return c.invoke(ctx, "AcknowledgeHealing", &acknowledgeRequest{NodeID: node.ID(), CommandID: commandID}, new(empty))
}
