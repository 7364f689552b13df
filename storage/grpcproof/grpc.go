package grpcproof

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ProofStoreServer is the server API for the ProofStore gRPC service.
//
// We intentionally use protobuf well-known wrapper types so this package does
// not require a protoc/codegen toolchain.
//
// Proto definition: proofstore.proto.
type ProofStoreServer interface {
	Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedProofStoreServer can be embedded to have forward compatible implementations.
type UnimplementedProofStoreServer struct{}

func (UnimplementedProofStoreServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedProofStoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedProofStoreServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterProofStoreServer registers the ProofStore service on a gRPC server.
func RegisterProofStoreServer(s grpc.ServiceRegistrar, srv ProofStoreServer) {
	s.RegisterService(&ProofStore_ServiceDesc, srv)
}

// ProofStoreClient is the client API for the ProofStore gRPC service.
type ProofStoreClient interface {
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type proofStoreClient struct{ cc grpc.ClientConnInterface }

func NewProofStoreClient(cc grpc.ClientConnInterface) ProofStoreClient {
	return &proofStoreClient{cc: cc}
}

func (c *proofStoreClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/revtrust.storage.grpcproof.v1.ProofStore/Put", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *proofStoreClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/revtrust.storage.grpcproof.v1.ProofStore/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *proofStoreClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, "/revtrust.storage.grpcproof.v1.ProofStore/Has", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _ProofStore_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProofStoreServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/revtrust.storage.grpcproof.v1.ProofStore/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProofStoreServer).Put(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ProofStore_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProofStoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/revtrust.storage.grpcproof.v1.ProofStore/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProofStoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _ProofStore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProofStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/revtrust.storage.grpcproof.v1.ProofStore/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ProofStoreServer).Has(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ProofStore_ServiceDesc is the grpc.ServiceDesc for the ProofStore service.
var ProofStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "revtrust.storage.grpcproof.v1.ProofStore",
	HandlerType: (*ProofStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: _ProofStore_Put_Handler},
		{MethodName: "Get", Handler: _ProofStore_Get_Handler},
		{MethodName: "Has", Handler: _ProofStore_Has_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proofstore.proto",
}
