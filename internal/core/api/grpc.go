package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*
 * gRPC binding for querybuilder.v1.Compiler.
 *
 * The service uses well-known types only (google.protobuf.Struct in, StringValue out), so
 * the descriptor is declared here rather than generated from a .proto file:
 *
 *   service Compiler {
 *     rpc Compile(google.protobuf.Struct) returns (google.protobuf.StringValue);
 *   }
 */

const (
	// CompilerServiceName is the fully qualified gRPC service name.
	CompilerServiceName = "querybuilder.v1.Compiler"

	compileMethod = "/" + CompilerServiceName + "/Compile"
)

// CompilerServer is the server API for the Compiler service.
type CompilerServer interface {
	Compile(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// RegisterCompilerServer registers srv on s.
func RegisterCompilerServer(s grpc.ServiceRegistrar, srv CompilerServer) {
	s.RegisterService(&compilerServiceDesc, srv)
}

func compileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompilerServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: compileMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompilerServer).Compile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var compilerServiceDesc = grpc.ServiceDesc{
	ServiceName: CompilerServiceName,
	HandlerType: (*CompilerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compile",
			Handler:    compileHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

// CompilerClient is the client API for the Compiler service.
type CompilerClient struct {
	cc grpc.ClientConnInterface
}

// NewCompilerClient wraps a client connection.
func NewCompilerClient(cc grpc.ClientConnInterface) *CompilerClient {
	return &CompilerClient{cc: cc}
}

// Compile calls querybuilder.v1.Compiler/Compile.
func (c *CompilerClient) Compile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, compileMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// TreeRequest builds a Compile request from a JSON-compatible tree value
// (map[string]any as produced by encoding/json).
func TreeRequest(tree map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"tree": tree})
}
