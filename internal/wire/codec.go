// Package wire is the gRPC contract shared by the ledger node, the accounts
// server and the CLI. Messages are plain Go structs carried by a CBOR codec
// registered with grpc under the content subtype "cbor".
package wire

import (
	"context"

	"github.com/dmitrijs2005/chainkeeper/internal/codec"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the grpc content subtype of every chainkeeper call.
const CodecName = "cbor"

type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error)      { return codec.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }
func (cborCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(cborCodec{})
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return cc.Invoke(ctx, method, in, out, opts...)
}

// unary builds the MethodDesc for one request/response method of service
// S. It is what protoc-gen-go-grpc would emit per method.
func unary[S, Req, Resp any](service, name string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
