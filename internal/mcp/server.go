package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/drift"
	"github.com/chimera-systems/chimera/internal/registry"
)

// Response codes per the MCP surface's structured error scheme.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"

	CodeToolNotFound     = "tool_not_found"
	CodeResourceNotFound = "resource_not_found"
	CodeInternalError    = "internal_error"
)

// ToolResponse is the JSON shape every tool call returns.
type ToolResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Server implements the MCP tool/resource surface over Chimera's core
// use cases and services.
type Server struct {
	deployFleet *deployfleet.UseCase
	rollback    *rollback.UseCase
	driftSvc    *drift.Service
	registry    *registry.Registry
	now         func() time.Time
	logger      *log.Logger

	mu          sync.Mutex
	deployments map[string]domain.Deployment
}

// NewServer constructs an MCP Server. now defaults to time.Now, logger
// to a default charmbracelet/log logger, when nil.
func NewServer(deployFleet *deployfleet.UseCase, rb *rollback.UseCase, driftSvc *drift.Service, reg *registry.Registry, now func() time.Time, logger *log.Logger) *Server {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		deployFleet: deployFleet,
		rollback:    rb,
		driftSvc:    driftSvc,
		registry:    reg,
		now:         now,
		logger:      logger,
		deployments: make(map[string]domain.Deployment),
	}
}

// HandleRequest dispatches one JSON-RPC request to the appropriate MCP method.
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return NewResponse(req.ID, InitializeResult{
			ProtocolVersion: MCPVersion,
			Capabilities: ServerCapabilities{
				Tools:     &ToolsCapability{},
				Resources: &ResourcesCapability{},
			},
			ServerInfo: Implementation{Name: "chimera", Version: "1.0.0"},
		})
	case "tools/list":
		return NewResponse(req.ID, ListToolsResult{Tools: s.tools()})
	case "tools/call":
		return s.handleToolCall(ctx, req)
	case "resources/list":
		return NewResponse(req.ID, ListResourcesResult{Resources: s.resources()})
	case "resources/read":
		return s.handleResourceRead(ctx, req)
	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) recordDeployment(sessionID string, d domain.Deployment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployments[sessionID] = d
}

func (s *Server) lookupDeployment(sessionID string) (domain.Deployment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[sessionID]
	return d, ok
}

func trimURIPrefix(uri, prefix string) string {
	return strings.TrimPrefix(uri, prefix)
}
