package bridge

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

var grpcLogf = monitoring.Component("gRPC")

// Stream interval bounds, in milliseconds.
const (
	DefaultStreamIntervalMs = 100
	MinStreamIntervalMs     = 10
)

// ScanServiceName is the fully qualified gRPC service name.
const ScanServiceName = "racecar.lidar.ScanService"

// scanStreamer is the server-side contract of ScanService.
type scanStreamer interface {
	StreamScans(req *structpb.Struct, stream grpc.ServerStream) error
}

// ScanServiceDesc describes ScanService without generated stubs: requests
// and frames are google.protobuf.Struct messages.
//
//	request: {"interval_ms": number}
//	frame:   {"sequence": number, "cursor": number, "profile": string, "samples": [number]}
var ScanServiceDesc = grpc.ServiceDesc{
	ServiceName: ScanServiceName,
	HandlerType: (*scanStreamer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{{
		StreamName:    "StreamScans",
		Handler:       streamScansHandler,
		ServerStreams: true,
	}},
	Metadata: "racecar/lidar/scan_service",
}

func streamScansHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(scanStreamer).StreamScans(req, stream)
}

// ScanService streams buffer snapshots to gRPC clients.
type ScanService struct {
	src ScanSource
}

// NewScanService returns a service over src.
func NewScanService(src ScanSource) *ScanService {
	return &ScanService{src: src}
}

// Register adds the service to s.
func (svc *ScanService) Register(s *grpc.Server) {
	s.RegisterService(&ScanServiceDesc, svc)
}

// StreamScans implements the server stream.
func (svc *ScanService) StreamScans(req *structpb.Struct, stream grpc.ServerStream) error {
	interval := DefaultStreamIntervalMs
	if v, ok := req.GetFields()["interval_ms"]; ok {
		interval = int(v.GetNumberValue())
		if interval < MinStreamIntervalMs {
			return status.Errorf(codes.InvalidArgument, "interval_ms must be at least %d", MinStreamIntervalMs)
		}
	}
	grpcLogf("StreamScans started: interval=%dms", interval)

	ctx := stream.Context()
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	var seq uint64
	for {
		seq++
		if err := stream.SendMsg(svc.frame(seq)); err != nil {
			grpcLogf("Send error: %v", err)
			return err
		}
		select {
		case <-ctx.Done():
			grpcLogf("StreamScans cancelled after %d frames", seq)
			return nil
		case <-ticker.C:
		}
	}
}

func (svc *ScanService) frame(seq uint64) *structpb.Struct {
	buf := svc.src.Buffer()
	values := make([]*structpb.Value, buf.Len())
	for i := range values {
		values[i] = structpb.NewNumberValue(buf.At(i))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"sequence": structpb.NewNumberValue(float64(seq)),
		"cursor":   structpb.NewNumberValue(float64(svc.src.Cursor())),
		"profile":  structpb.NewStringValue(svc.src.Profile().Name),
		"samples":  structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

// ScanFrame is a decoded stream frame.
type ScanFrame struct {
	Sequence uint64
	Cursor   int
	Profile  string
	Samples  []float64
}

// ScanClient reads ScanService streams.
type ScanClient struct {
	cc grpc.ClientConnInterface
}

// NewScanClient wraps a connection.
func NewScanClient(cc grpc.ClientConnInterface) *ScanClient {
	return &ScanClient{cc: cc}
}

// ScanStream yields frames from one StreamScans call.
type ScanStream struct {
	stream grpc.ClientStream
}

// Stream opens a StreamScans call with the given frame interval.
func (c *ScanClient) Stream(ctx context.Context, interval time.Duration) (*ScanStream, error) {
	stream, err := c.cc.NewStream(ctx, &ScanServiceDesc.Streams[0], "/"+ScanServiceName+"/StreamScans")
	if err != nil {
		return nil, err
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"interval_ms": structpb.NewNumberValue(float64(interval.Milliseconds())),
	}}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ScanStream{stream: stream}, nil
}

// Recv blocks for the next frame.
func (s *ScanStream) Recv() (ScanFrame, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return ScanFrame{}, err
	}
	f := msg.GetFields()
	list := f["samples"].GetListValue()
	if list == nil {
		return ScanFrame{}, fmt.Errorf("frame without samples")
	}
	out := ScanFrame{
		Sequence: uint64(f["sequence"].GetNumberValue()),
		Cursor:   int(f["cursor"].GetNumberValue()),
		Profile:  f["profile"].GetStringValue(),
		Samples:  make([]float64, len(list.GetValues())),
	}
	for i, v := range list.GetValues() {
		out.Samples[i] = v.GetNumberValue()
	}
	return out, nil
}
