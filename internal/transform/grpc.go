package transform

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"linepump/internal/transport"
)

const (
	ServiceName             = "linepump.v1.Transformer"
	TransformFullMethodName = "/linepump.v1.Transformer/Transform"
)

// Remote calls a transformer plugin over gRPC. Requests are Structs of
// {line, index}; a string Value in the reply is emitted, anything else is
// dropped.
type Remote struct {
	target  string
	conn    *grpc.ClientConn
	timeout time.Duration
}

func NewRemote(target string, timeout time.Duration, opts ...grpc.DialOption) (*Remote, error) {
	conn, err := transport.Dial(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc transformer %s: dial: %w", target, err)
	}
	return &Remote{target: target, conn: conn, timeout: timeout}, nil
}

func (r *Remote) Transform(ctx context.Context, line string, index int) (string, bool, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	req, err := structpb.NewStruct(map[string]any{"line": line, "index": index})
	if err != nil {
		return "", false, fmt.Errorf("grpc transformer %s: %w", r.target, err)
	}
	resp := new(structpb.Value)
	if err := r.conn.Invoke(ctx, TransformFullMethodName, req, resp); err != nil {
		return "", false, fmt.Errorf("grpc transformer %s: %w", r.target, err)
	}
	if s, ok := resp.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue, true, nil
	}
	return "", false, nil
}

func (r *Remote) Close() error {
	return r.conn.Close()
}

// Discard closes the connection; a remote transformer has no exit hook.
func (r *Remote) Discard() error {
	return r.conn.Close()
}

/*──────── server side ───────*/

type transformerServer interface {
	Transform(context.Context, *structpb.Struct) (*structpb.Value, error)
}

type server struct {
	impl Transformer
}

func (s *server) Transform(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	fields := req.GetFields()
	line := fields["line"].GetStringValue()
	index := int(fields["index"].GetNumberValue())
	out, ok, err := s.impl.Transform(ctx, line, index)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "transform line %d: %v", index, err)
	}
	if !ok {
		return structpb.NewNullValue(), nil
	}
	return structpb.NewStringValue(out), nil
}

func transformHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(transformerServer).Transform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransformFullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(transformerServer).Transform(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transformerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transform",
			Handler:    transformHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linepump/v1/transformer.proto",
}

// RegisterServer exposes t as a linepump transformer plugin.
func RegisterServer(s grpc.ServiceRegistrar, t Transformer) {
	s.RegisterService(&serviceDesc, &server{impl: t})
}
