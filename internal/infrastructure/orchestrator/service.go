package orchestrator

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "chimera.orchestrator.v1.Orchestrator"

// serviceDesc describes the four unary RPCs an external fleet
// orchestrator exposes. It is hand-written rather than protoc-generated
// since messages.go carries no .proto source; jsonCodec (codec.go)
// handles wire encoding in its place.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*orchestratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReportHealth", Handler: reportHealthHandler},
		{MethodName: "ReportDrift", Handler: reportDriftHandler},
		{MethodName: "FetchHealingCommand", Handler: fetchHealingCommandHandler},
		{MethodName: "AcknowledgeHealing", Handler: acknowledgeHealingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chimera/orchestrator.proto",
}

// orchestratorServer is implemented by whatever backs the external
// orchestrator; Chimera itself only ever plays the client role in
// production, but implementing the server side keeps the adapter
// testable against a real grpc.Server over bufconn.
type orchestratorServer interface {
	ReportHealth(context.Context, *healthReport) (*empty, error)
	ReportDrift(context.Context, *driftReport) (*empty, error)
	FetchHealingCommand(context.Context, *healingCommandRequest) (*healingCommandResponse, error)
	AcknowledgeHealing(context.Context, *acknowledgeRequest) (*empty, error)
}

func reportHealthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(healthReport)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orchestratorServer).ReportHealth(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ReportHealth"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(orchestratorServer).ReportHealth(ctx, req.(*healthReport))
	}
	return interceptor(ctx, req, info, handler)
}

func reportDriftHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(driftReport)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orchestratorServer).ReportDrift(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ReportDrift"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(orchestratorServer).ReportDrift(ctx, req.(*driftReport))
	}
	return interceptor(ctx, req, info, handler)
}

func fetchHealingCommandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(healingCommandRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orchestratorServer).FetchHealingCommand(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/FetchHealingCommand"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(orchestratorServer).FetchHealingCommand(ctx, req.(*healingCommandRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func acknowledgeHealingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(acknowledgeRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(orchestratorServer).AcknowledgeHealing(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AcknowledgeHealing"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(orchestratorServer).AcknowledgeHealing(ctx, req.(*acknowledgeRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// RegisterOrchestratorServer wires an orchestratorServer implementation
// into a grpc.Server, for use in tests against a real transport.
func RegisterOrchestratorServer(s *grpc.Server, impl orchestratorServer) {
	s.RegisterService(&serviceDesc, impl)
}
