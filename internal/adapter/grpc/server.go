package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/portfolio"
	"github.com/simaogato/rebalancer-backend/internal/usecase/pricing"
	"github.com/simaogato/rebalancer-backend/internal/usecase/rebalance"
)

// Server implements the RebalancerService gRPC server
type Server struct {
	PortfolioService *portfolio.PortfolioService
	AssetService     *portfolio.AssetService
	Oracle           *pricing.Oracle
	Engine           *rebalance.Engine
}

var _ RebalancerServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.PortfolioService,
	assetService *portfolio.AssetService,
	oracle *pricing.Oracle,
	engine *rebalance.Engine,
) *Server {
	return &Server{
		PortfolioService: portfolioService,
		AssetService:     assetService,
		Oracle:           oracle,
		Engine:           engine,
	}
}

// caller returns the principal mutations act for
func caller(ctx context.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing "+PrincipalHeader+" header")
	}
	return p, nil
}

// owner resolves the owner a read addresses: the requested one, else the caller
func owner(ctx context.Context, requested string) (domain.Principal, error) {
	if requested != "" {
		return domain.Principal(requested), nil
	}
	if p, ok := domain.PrincipalFrom(ctx); ok {
		return p, nil
	}
	return "", status.Error(codes.InvalidArgument, "owner is required when no "+PrincipalHeader+" header is sent")
}

var success = &SuccessResponse{Success: true}

// CreatePortfolio handles the CreatePortfolio RPC
func (s *Server) CreatePortfolio(ctx context.Context, req *CreatePortfolioRequest) (*SuccessResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.PortfolioService.CreatePortfolio(ctx, p, domain.BasisPoints(req.ThresholdBps)); err != nil {
		return nil, mapError(err)
	}
	return success, nil
}

// AddAsset handles the AddAsset RPC
func (s *Server) AddAsset(ctx context.Context, req *AddAssetRequest) (*SuccessResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	input := portfolio.AddAssetInput{
		AssetID:       domain.AssetID(req.AssetID),
		AllocationBps: domain.BasisPoints(req.AllocationBps),
		Amount:        req.Amount,
		Name:          req.Name,
	}
	if err := s.AssetService.AddAsset(ctx, p, input); err != nil {
		return nil, mapError(err)
	}
	return success, nil
}

// UpdateAssetPrice handles the UpdateAssetPrice RPC.
// A request without a principal is rejected by the price authority check like any other caller.
func (s *Server) UpdateAssetPrice(ctx context.Context, req *UpdateAssetPriceRequest) (*SuccessResponse, error) {
	p, _ := domain.PrincipalFrom(ctx)

	if err := s.Oracle.UpdateAssetPrice(ctx, p, domain.AssetID(req.AssetID), req.Price); err != nil {
		return nil, mapError(err)
	}
	return success, nil
}

// SetAutoRebalance handles the SetAutoRebalance RPC
func (s *Server) SetAutoRebalance(ctx context.Context, req *SetAutoRebalanceRequest) (*SuccessResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.PortfolioService.SetAutoRebalance(ctx, p, req.Enabled); err != nil {
		return nil, mapError(err)
	}
	return success, nil
}

// UpdateRebalanceThreshold handles the UpdateRebalanceThreshold RPC
func (s *Server) UpdateRebalanceThreshold(ctx context.Context, req *UpdateRebalanceThresholdRequest) (*SuccessResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.PortfolioService.UpdateRebalanceThreshold(ctx, p, domain.BasisPoints(req.ThresholdBps)); err != nil {
		return nil, mapError(err)
	}
	return success, nil
}

// CheckRebalanceNeeded handles the CheckRebalanceNeeded RPC
func (s *Server) CheckRebalanceNeeded(ctx context.Context, req *OwnerRequest) (*CheckRebalanceNeededResponse, error) {
	o, err := owner(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	needed, err := s.Engine.CheckRebalanceNeeded(ctx, o)
	if err != nil {
		return nil, mapError(err)
	}
	return &CheckRebalanceNeededResponse{Needed: needed}, nil
}

// ExecuteRebalance handles the ExecuteRebalance RPC
func (s *Server) ExecuteRebalance(ctx context.Context, _ *ExecuteRebalanceRequest) (*ExecuteRebalanceResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.Engine.ExecuteRebalance(ctx, p)
	if err != nil {
		return nil, mapError(err)
	}
	return &ExecuteRebalanceResponse{
		Success:   true,
		Portfolio: domainPortfolioToMessage(updated),
	}, nil
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, req *OwnerRequest) (*GetPortfolioResponse, error) {
	o, err := owner(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	p, err := s.PortfolioService.GetPortfolio(ctx, o)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return &GetPortfolioResponse{}, nil
	}
	return &GetPortfolioResponse{Found: true, Portfolio: domainPortfolioToMessage(p)}, nil
}

// GetAsset handles the GetAsset RPC
func (s *Server) GetAsset(ctx context.Context, req *GetAssetRequest) (*GetAssetResponse, error) {
	o, err := owner(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	a, err := s.AssetService.GetAsset(ctx, o, domain.AssetID(req.AssetID))
	if err != nil {
		return nil, mapError(err)
	}
	if a == nil {
		return &GetAssetResponse{}, nil
	}
	return &GetAssetResponse{Found: true, Asset: domainAssetToMessage(a)}, nil
}

// GetAssetPrice handles the GetAssetPrice RPC
func (s *Server) GetAssetPrice(ctx context.Context, req *GetAssetPriceRequest) (*GetAssetPriceResponse, error) {
	r, err := s.Oracle.GetAssetPrice(ctx, domain.AssetID(req.AssetID))
	if err != nil {
		return nil, mapError(err)
	}
	if r == nil {
		return &GetAssetPriceResponse{}, nil
	}
	return &GetAssetPriceResponse{Found: true, Price: domainPriceToMessage(r)}, nil
}

// GetCurrentAllocations handles the GetCurrentAllocations RPC
func (s *Server) GetCurrentAllocations(ctx context.Context, req *OwnerRequest) (*GetCurrentAllocationsResponse, error) {
	o, err := owner(ctx, req.Owner)
	if err != nil {
		return nil, err
	}

	entries, err := s.AssetService.GetCurrentAllocations(ctx, o)
	if err != nil {
		return nil, mapError(err)
	}
	return &GetCurrentAllocationsResponse{Allocations: domainEntriesToMessage(entries)}, nil
}
