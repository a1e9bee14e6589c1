package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is described with well-known message types only, so no generated code
// is needed on either side.
const (
	ServiceName = "foodgram.Foodgram"

	downloadShoppingCartMethod = "/" + ServiceName + "/DownloadShoppingCart"
	getRecipeMethod            = "/" + ServiceName + "/GetRecipe"
)

type (
	FoodgramServer interface {
		DownloadShoppingCart(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
		GetRecipe(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	}

	FoodgramClient struct {
		cc grpc.ClientConnInterface
	}
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FoodgramServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "DownloadShoppingCart", Handler: downloadShoppingCartHandler},
		{MethodName: "GetRecipe", Handler: getRecipeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodgram.proto",
}

func RegisterFoodgramServer(s *grpc.Server, srv FoodgramServer) {
	s.RegisterService(&serviceDesc, srv)
}

func downloadShoppingCartHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FoodgramServer).DownloadShoppingCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: downloadShoppingCartMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FoodgramServer).DownloadShoppingCart(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getRecipeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FoodgramServer).GetRecipe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getRecipeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FoodgramServer).GetRecipe(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func NewFoodgramClient(cc grpc.ClientConnInterface) *FoodgramClient {
	return &FoodgramClient{cc: cc}
}

func (c *FoodgramClient) DownloadShoppingCart(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, downloadShoppingCartMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FoodgramClient) GetRecipe(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getRecipeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
