package mcp

import (
	"context"

	"github.com/chimera-systems/chimera/internal/domain"
)

// deploymentStatusView is the JSON shape returned by the
// deployment://{sessionId} resource: the deployment plus a Terminal
// flag so a polling agent knows when to stop reading without decoding
// Status itself.
type deploymentStatusView struct {
	domain.Deployment
	Terminal bool `json:"terminal"`
}

func (s *Server) resources() []Resource {
	return []Resource{
		{URI: "node://health", Name: "Fleet node health", Description: "Registry-observed health of every known node", MIMEType: "application/json"},
		{URI: "deployment://{sessionId}", Name: "Deployment status", Description: "The most recent deployment run under a session id", MIMEType: "application/json"},
	}
}

func (s *Server) handleResourceRead(_ context.Context, req *Request) *Response {
	var params ReadResourceParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "invalid resource read params", err.Error())
	}

	switch {
	case params.URI == "node://health":
		content, err := NewJSONResourceContent(params.URI, s.registry.All())
		if err != nil {
			return NewErrorResponse(req.ID, ErrCodeInternalError, err.Error(), CodeInternalError)
		}
		return NewResponse(req.ID, ReadResourceResult{Contents: []ResourceContent{content}})

	case len(params.URI) > len("deployment://") && params.URI[:len("deployment://")] == "deployment://":
		sessionID := trimURIPrefix(params.URI, "deployment://")
		deployment, found := s.lookupDeployment(sessionID)
		if !found {
			result, _ := NewToolResultJSON(ToolResponse{Status: StatusError, Message: "no deployment on record for this session", Code: CodeResourceNotFound})
			return NewResponse(req.ID, result)
		}
		content, err := NewJSONResourceContent(params.URI, deploymentStatusView{
			Deployment: deployment,
			Terminal:   deployment.Status.IsTerminal(),
		})
		if err != nil {
			return NewErrorResponse(req.ID, ErrCodeInternalError, err.Error(), CodeInternalError)
		}
		return NewResponse(req.ID, ReadResourceResult{Contents: []ResourceContent{content}})

	default:
		result, _ := NewToolResultJSON(ToolResponse{Status: StatusError, Message: "unknown resource", Code: CodeResourceNotFound})
		return NewResponse(req.ID, result)
	}
}
