package api

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/incident-analyzer/internal/utils"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "incidentanalyzer.v1.IncidentAnalyzer"

// Full method names of the analyzer service.
const (
	AnalyzeMethod        = "/" + ServiceName + "/Analyze"
	AnalyzeHistoryMethod = "/" + ServiceName + "/AnalyzeHistory"
)

// IncidentAnalyzerServer is the server API for the analyzer gRPC service.
// Requests and responses use the same field names as the HTTP facade.
type IncidentAnalyzerServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var incidentAnalyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IncidentAnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "AnalyzeHistory", Handler: analyzeHistoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "incidentanalyzer/v1/incident_analyzer.proto",
}

// RegisterIncidentAnalyzerServer attaches srv to the gRPC registrar.
func RegisterIncidentAnalyzerServer(s grpc.ServiceRegistrar, srv IncidentAnalyzerServer) {
	s.RegisterService(&incidentAnalyzerServiceDesc, srv)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IncidentAnalyzerServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IncidentAnalyzerServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IncidentAnalyzerServer).AnalyzeHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeHistoryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IncidentAnalyzerServer).AnalyzeHistory(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCService adapts an Analyzer to the gRPC surface.
type GRPCService struct {
	logger   *slog.Logger
	analyzer Analyzer
}

// NewGRPCService constructs the gRPC adapter.
func NewGRPCService(logger *slog.Logger, analyzer Analyzer) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{logger: logger, analyzer: analyzer}
}

// Analyze diagnoses a single incident.
func (g *GRPCService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	incident, err := IncidentFromFields(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	analysis, err := g.analyzer.Analyze(ctx, incident)
	if err != nil {
		return nil, g.internal("analyze", err)
	}
	return toStruct(analysis.Response())
}

// AnalyzeHistory reports the dominant cause across the request's incidents.
func (g *GRPCService) AnalyzeHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	incidents, err := IncidentsFromFields(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := g.analyzer.AnalyzeHistory(ctx, incidents)
	if err != nil {
		return nil, g.internal("analyze history", err)
	}
	return toStruct(result)
}

func (g *GRPCService) internal(op string, err error) error {
	if code := status.FromContextError(err).Code(); code == codes.Canceled || code == codes.DeadlineExceeded {
		return status.Error(code, err.Error())
	}
	g.logger.Error("grpc request failed", slog.String("op", op), slog.Any("error", err))
	return status.Error(codes.Internal, "internal server error")
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, utils.NewAppError("encode response", "marshal", err).Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, utils.NewAppError("encode response", "convert to struct", err).Error())
	}
	return out, nil
}
