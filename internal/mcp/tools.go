package mcp

import (
	"context"

	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/domain"
)

func (s *Server) tools() []Tool {
	return []Tool{
		{
			Name:        "execute_deployment",
			Description: "Build and deploy a declarative configuration to a set of fleet targets",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"config_path": {Type: "string", Description: "declarative configuration path"},
					"command":     {Type: "string", Description: "command to run on each node once synced"},
					"session":     {Type: "string", Description: "session name for the deployment"},
					"targets":     {Type: "string", Description: "comma-separated user@host[:port] targets"},
				},
				Required: []string{"config_path", "command", "session", "targets"},
			},
		},
		{
			Name:        "rollback_deployment",
			Description: "Roll a set of fleet targets back to a prior generation",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"targets":    {Type: "string", Description: "comma-separated user@host[:port] targets"},
					"generation": {Type: "integer", Description: "generation to roll back to; omit for the previous generation"},
				},
				Required: []string{"targets"},
			},
		},
		{
			Name:        "check_congruence",
			Description: "Check a set of fleet targets against an expected fingerprint and report drift",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"targets":     {Type: "string", Description: "comma-separated user@host[:port] targets"},
					"fingerprint": {Type: "string", Description: "expected fingerprint"},
				},
				Required: []string{"targets", "fingerprint"},
			},
		},
	}
}

func (s *Server) handleToolCall(ctx context.Context, req *Request) *Response {
	var params CallToolParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "invalid tool call params", err.Error())
	}

	switch params.Name {
	case "execute_deployment":
		return s.callExecuteDeployment(ctx, req.ID, params.Arguments)
	case "rollback_deployment":
		return s.callRollbackDeployment(ctx, req.ID, params.Arguments)
	case "check_congruence":
		return s.callCheckCongruence(ctx, req.ID, params.Arguments)
	default:
		result, _ := NewToolResultJSON(ToolResponse{Status: StatusError, Message: "unknown tool", Code: CodeToolNotFound})
		return NewResponse(req.ID, result)
	}
}

func (s *Server) callExecuteDeployment(ctx context.Context, id any, args map[string]any) *Response {
	configPath, err := domain.NewConfigPath(stringArg(args, "config_path"))
	if err != nil {
		return errorToolResult(id, err)
	}
	sessionID, err := domain.NewSessionId(stringArg(args, "session"))
	if err != nil {
		return errorToolResult(id, err)
	}
	targets, err := domain.ParseNodes(stringArg(args, "targets"))
	if err != nil {
		return errorToolResult(id, err)
	}

	out, err := s.deployFleet.Execute(ctx, deployfleet.Input{
		ConfigPath:  configPath,
		Command:     stringArg(args, "command"),
		SessionName: sessionID,
		Targets:     targets,
	})
	if err != nil {
		return internalErrorResult(id, err)
	}
	s.recordDeployment(sessionID.String(), out.Deployment)

	status := StatusSuccess
	if out.Deployment.Status != domain.StatusCompleted {
		status = StatusFailed
	}
	result, _ := NewToolResultJSON(ToolResponse{
		Status:  status,
		Message: string(out.Deployment.Status),
		Data:    out,
	})
	return NewResponse(id, result)
}

func (s *Server) callRollbackDeployment(ctx context.Context, id any, args map[string]any) *Response {
	targets, err := domain.ParseNodes(stringArg(args, "targets"))
	if err != nil {
		return errorToolResult(id, err)
	}

	var generation *int
	if v, ok := args["generation"]; ok {
		g := intArg(v)
		generation = &g
	}

	results, err := s.rollback.Execute(ctx, rollback.Input{
		AggregateID: sessionOrRandom(args),
		Targets:     targets,
		Generation:  generation,
	})
	if err != nil {
		return internalErrorResult(id, err)
	}

	status := StatusSuccess
	for _, r := range results {
		if r.Status == rollback.StatusFail {
			status = StatusFailed
			break
		}
	}
	result, _ := NewToolResultJSON(ToolResponse{Status: status, Message: "rollback complete", Data: results})
	return NewResponse(id, result)
}

func (s *Server) callCheckCongruence(ctx context.Context, id any, args map[string]any) *Response {
	targets, err := domain.ParseNodes(stringArg(args, "targets"))
	if err != nil {
		return errorToolResult(id, err)
	}
	expected := domain.Fingerprint(stringArg(args, "fingerprint"))

	reports, plan, err := s.driftSvc.Check(ctx, targets, expected)
	if err != nil {
		return internalErrorResult(id, err)
	}

	status := StatusSuccess
	if plan.HasDrift() {
		status = StatusFailed
	}
	result, _ := NewToolResultJSON(ToolResponse{
		Status:  status,
		Message: "congruence check complete",
		Data:    map[string]any{"reports": reports, "plan": plan},
	})
	return NewResponse(id, result)
}

func errorToolResult(id any, err error) *Response {
	result, _ := NewToolResultJSON(ToolResponse{Status: StatusError, Message: err.Error(), Code: CodeInternalError})
	return NewResponse(id, result)
}

func internalErrorResult(id any, err error) *Response {
	result, _ := NewToolResultJSON(ToolResponse{Status: StatusError, Message: err.Error(), Code: CodeInternalError})
	return NewResponse(id, result)
}
