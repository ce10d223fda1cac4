package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"PcapSpectra/internal/assembler"
	"PcapSpectra/internal/model"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// Messages of spectra.v1.AnalysisService travel as JSON; see jsonCodec.

type ListCapturesRequest struct{}

type ListCapturesResponse struct {
	Captures []CaptureInfo `json:"captures"`
}

type GetSummaryRequest struct {
	CaptureID string `json:"captureId"`
	TopN      int    `json:"topN,omitempty"`
}

type TimelineRequest struct {
	CaptureID       string    `json:"captureId"`
	IntervalSeconds *int64    `json:"intervalSeconds,omitempty"`
	MaxDataPoints   int       `json:"maxDataPoints,omitempty"`
	AutoAdjust      *bool     `json:"autoAdjust,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

type TimelineResponse struct {
	Bins []model.TimeBin `json:"bins"`
}

// AnalysisServiceServer is the server API for spectra.v1.AnalysisService.
type AnalysisServiceServer interface {
	ListCaptures(context.Context, *ListCapturesRequest) (*ListCapturesResponse, error)
	GetSummary(context.Context, *GetSummaryRequest) (*assembler.Summary, error)
	ComputeTimeline(context.Context, *TimelineRequest) (*TimelineResponse, error)
}

const serviceName = "spectra.v1.AnalysisService"

// jsonCodec lets the service run without generated protobuf stubs. Clients
// select it with grpc.CallContentSubtype(jsonCodecName).
type jsonCodec struct{}

const jsonCodecName = "json"

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RegisterAnalysisService registers srv on s.
func RegisterAnalysisService(s grpc.ServiceRegistrar, srv AnalysisServiceServer) {
	s.RegisterService(&analysisServiceDesc, srv)
}

// NewGRPCServer returns a gRPC server exposing s.
func NewGRPCServer(s *Service, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	RegisterAnalysisService(server, &grpcServer{svc: s})
	return server
}

var analysisServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AnalysisServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListCaptures", Handler: listCapturesHandler},
		{MethodName: "GetSummary", Handler: getSummaryHandler},
		{MethodName: "ComputeTimeline", Handler: computeTimelineHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "spectra/v1/analysis",
}

func listCapturesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListCapturesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisServiceServer).ListCaptures(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListCaptures"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisServiceServer).ListCaptures(ctx, req.(*ListCapturesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSummaryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisServiceServer).GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetSummary"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisServiceServer).GetSummary(ctx, req.(*GetSummaryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func computeTimelineHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TimelineRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisServiceServer).ComputeTimeline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ComputeTimeline"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisServiceServer).ComputeTimeline(ctx, req.(*TimelineRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcServer implements AnalysisServiceServer on top of Service.
type grpcServer struct {
	svc *Service
}

func (g *grpcServer) ListCaptures(ctx context.Context, _ *ListCapturesRequest) (*ListCapturesResponse, error) {
	list, err := g.svc.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListCapturesResponse{Captures: list}, nil
}

func (g *grpcServer) GetSummary(ctx context.Context, req *GetSummaryRequest) (*assembler.Summary, error) {
	summary, err := g.svc.Summary(ctx, req.CaptureID, req.TopN)
	if err != nil {
		return nil, toStatus(err)
	}
	return summary, nil
}

func (g *grpcServer) ComputeTimeline(ctx context.Context, req *TimelineRequest) (*TimelineResponse, error) {
	bins, err := g.svc.Timeline(ctx, req.CaptureID, TimelineQuery{
		IntervalSeconds: req.IntervalSeconds,
		MaxDataPoints:   req.MaxDataPoints,
		AutoAdjust:      req.AutoAdjust,
		Start:           req.Start,
		End:             req.End,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &TimelineResponse{Bins: bins}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// AnalysisClient calls spectra.v1.AnalysisService.
type AnalysisClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalysisClient wraps an existing connection.
func NewAnalysisClient(cc grpc.ClientConnInterface) *AnalysisClient {
	return &AnalysisClient{cc: cc}
}

func (c *AnalysisClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *AnalysisClient) ListCaptures(ctx context.Context, in *ListCapturesRequest, opts ...grpc.CallOption) (*ListCapturesResponse, error) {
	out := new(ListCapturesResponse)
	if err := c.invoke(ctx, "ListCaptures", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalysisClient) GetSummary(ctx context.Context, in *GetSummaryRequest, opts ...grpc.CallOption) (*assembler.Summary, error) {
	out := new(assembler.Summary)
	if err := c.invoke(ctx, "GetSummary", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalysisClient) ComputeTimeline(ctx context.Context, in *TimelineRequest, opts ...grpc.CallOption) (*TimelineResponse, error) {
	out := new(TimelineResponse)
	if err := c.invoke(ctx, "ComputeTimeline", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
