package local

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName      = "voxsearch.speech.v1.Recognizer"
	recognizeMethod  = "/" + ServiceName + "/Recognize"
	recognizeRPCName = "Recognize"
)

// Recognizer is implemented by local speech engines served over gRPC.
//
// Request fields: audio (base64 s16le mono), sample_rate_hertz, encoding,
// language_code, continuous, interim_results, max_alternatives.
// Response fields: results[] of {alternatives[] of {transcript, confidence},
// is_final}, and an optional error code such as "no-speech" or "aborted".
type Recognizer interface {
	Recognize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterRecognizer exposes impl on server under ServiceName.
func RegisterRecognizer(server grpc.ServiceRegistrar, impl Recognizer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Recognizer)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: recognizeRPCName,
			Handler:    recognizeHandler,
		}},
		Streams: []grpc.StreamDesc{},
	}, impl)
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Recognizer).Recognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recognizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Recognizer).Recognize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
