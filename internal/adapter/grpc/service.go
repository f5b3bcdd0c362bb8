package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the rebalancer service
const ServiceName = "rebalancer.v1.RebalancerService"

const (
	methodCreatePortfolio          = "CreatePortfolio"
	methodAddAsset                 = "AddAsset"
	methodUpdateAssetPrice         = "UpdateAssetPrice"
	methodSetAutoRebalance         = "SetAutoRebalance"
	methodUpdateRebalanceThreshold = "UpdateRebalanceThreshold"
	methodCheckRebalanceNeeded     = "CheckRebalanceNeeded"
	methodExecuteRebalance         = "ExecuteRebalance"
	methodGetPortfolio             = "GetPortfolio"
	methodGetAsset                 = "GetAsset"
	methodGetAssetPrice            = "GetAssetPrice"
	methodGetCurrentAllocations    = "GetCurrentAllocations"
)

// RebalancerServiceServer is the server API for the rebalancer service
type RebalancerServiceServer interface {
	CreatePortfolio(context.Context, *CreatePortfolioRequest) (*SuccessResponse, error)
	AddAsset(context.Context, *AddAssetRequest) (*SuccessResponse, error)
	UpdateAssetPrice(context.Context, *UpdateAssetPriceRequest) (*SuccessResponse, error)
	SetAutoRebalance(context.Context, *SetAutoRebalanceRequest) (*SuccessResponse, error)
	UpdateRebalanceThreshold(context.Context, *UpdateRebalanceThresholdRequest) (*SuccessResponse, error)
	CheckRebalanceNeeded(context.Context, *OwnerRequest) (*CheckRebalanceNeededResponse, error)
	ExecuteRebalance(context.Context, *ExecuteRebalanceRequest) (*ExecuteRebalanceResponse, error)
	GetPortfolio(context.Context, *OwnerRequest) (*GetPortfolioResponse, error)
	GetAsset(context.Context, *GetAssetRequest) (*GetAssetResponse, error)
	GetAssetPrice(context.Context, *GetAssetPriceRequest) (*GetAssetPriceResponse, error)
	GetCurrentAllocations(context.Context, *OwnerRequest) (*GetCurrentAllocationsResponse, error)
}

// RegisterRebalancerServiceServer registers srv on s
func RegisterRebalancerServiceServer(s grpc.ServiceRegistrar, srv RebalancerServiceServer) {
	s.RegisterService(&RebalancerServiceDesc, srv)
}

// RebalancerServiceDesc describes the service for grpc.Server.RegisterService.
// Messages travel through the json codec and no proto file backs them, so Metadata is
// left unset: reflection lists the service but cannot describe its methods.
var RebalancerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RebalancerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodCreatePortfolio, RebalancerServiceServer.CreatePortfolio),
		unary(methodAddAsset, RebalancerServiceServer.AddAsset),
		unary(methodUpdateAssetPrice, RebalancerServiceServer.UpdateAssetPrice),
		unary(methodSetAutoRebalance, RebalancerServiceServer.SetAutoRebalance),
		unary(methodUpdateRebalanceThreshold, RebalancerServiceServer.UpdateRebalanceThreshold),
		unary(methodCheckRebalanceNeeded, RebalancerServiceServer.CheckRebalanceNeeded),
		unary(methodExecuteRebalance, RebalancerServiceServer.ExecuteRebalance),
		unary(methodGetPortfolio, RebalancerServiceServer.GetPortfolio),
		unary(methodGetAsset, RebalancerServiceServer.GetAsset),
		unary(methodGetAssetPrice, RebalancerServiceServer.GetAssetPrice),
		unary(methodGetCurrentAllocations, RebalancerServiceServer.GetCurrentAllocations),
	},
	Streams: []grpc.StreamDesc{},
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method handler protoc-gen-go-grpc would generate for call
func unary[Req, Resp any](method string, call func(RebalancerServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RebalancerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RebalancerServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
