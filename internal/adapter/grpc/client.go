package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// Credentials attach the API token and the caller identity to every call
type Credentials struct {
	Token     string
	Principal domain.Principal
}

// GetRequestMetadata implements credentials.PerRPCCredentials
func (c Credentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	md := map[string]string{"authorization": "Bearer " + c.Token}
	if !c.Principal.IsZero() {
		md[PrincipalHeader] = c.Principal.String()
	}
	return md, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials
func (c Credentials) RequireTransportSecurity() bool {
	return false
}

// Client is a typed client for the rebalancer service.
// Failures reported by the service unwrap to the domain errors, so errors.Is and domain.CodeOf work on them.
type Client struct {
	cc   grpc.ClientConnInterface
	opts []grpc.CallOption
}

// NewClient creates a client speaking the service's JSON codec over cc
func NewClient(cc grpc.ClientConnInterface, opts ...grpc.CallOption) *Client {
	return &Client{
		cc:   cc,
		opts: append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...),
	}
}

// As returns a client whose calls are made as principal
func (c *Client) As(token string, principal domain.Principal) *Client {
	opts := make([]grpc.CallOption, len(c.opts), len(c.opts)+1)
	copy(opts, c.opts)
	return &Client{
		cc:   c.cc,
		opts: append(opts, grpc.PerRPCCredentials(Credentials{Token: token, Principal: principal})),
	}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return FromStatus(c.cc.Invoke(ctx, fullMethod(method), in, out, c.opts...))
}

func (c *Client) mutate(ctx context.Context, method string, in any) error {
	out := new(SuccessResponse)
	return c.invoke(ctx, method, in, out)
}

// CreatePortfolio creates the caller's portfolio
func (c *Client) CreatePortfolio(ctx context.Context, thresholdBps domain.BasisPoints) error {
	return c.mutate(ctx, methodCreatePortfolio, &CreatePortfolioRequest{ThresholdBps: uint32(thresholdBps)})
}

// AddAsset registers an asset in the caller's portfolio
func (c *Client) AddAsset(ctx context.Context, id domain.AssetID, allocationBps domain.BasisPoints, amount uint64, name string) error {
	return c.mutate(ctx, methodAddAsset, &AddAssetRequest{
		AssetID:       uint64(id),
		AllocationBps: uint32(allocationBps),
		Amount:        amount,
		Name:          name,
	})
}

// UpdateAssetPrice publishes a price; only the price authority may call it
func (c *Client) UpdateAssetPrice(ctx context.Context, id domain.AssetID, price uint64) error {
	return c.mutate(ctx, methodUpdateAssetPrice, &UpdateAssetPriceRequest{AssetID: uint64(id), Price: price})
}

// SetAutoRebalance toggles scheduled rebalancing of the caller's portfolio
func (c *Client) SetAutoRebalance(ctx context.Context, enabled bool) error {
	return c.mutate(ctx, methodSetAutoRebalance, &SetAutoRebalanceRequest{Enabled: enabled})
}

// UpdateRebalanceThreshold changes the caller's drift threshold
func (c *Client) UpdateRebalanceThreshold(ctx context.Context, thresholdBps domain.BasisPoints) error {
	return c.mutate(ctx, methodUpdateRebalanceThreshold, &UpdateRebalanceThresholdRequest{ThresholdBps: uint32(thresholdBps)})
}

// CheckRebalanceNeeded reports whether owner (the caller when empty) needs a rebalance
func (c *Client) CheckRebalanceNeeded(ctx context.Context, owner domain.Principal) (bool, error) {
	out := new(CheckRebalanceNeededResponse)
	if err := c.invoke(ctx, methodCheckRebalanceNeeded, &OwnerRequest{Owner: owner.String()}, out); err != nil {
		return false, err
	}
	return out.Needed, nil
}

// ExecuteRebalance rebalances the caller's portfolio and returns its new state
func (c *Client) ExecuteRebalance(ctx context.Context) (*domain.Portfolio, error) {
	out := new(ExecuteRebalanceResponse)
	if err := c.invoke(ctx, methodExecuteRebalance, &ExecuteRebalanceRequest{}, out); err != nil {
		return nil, err
	}
	if out.Portfolio == nil {
		return nil, fmt.Errorf("%s returned no portfolio", methodExecuteRebalance)
	}
	return messagePortfolioToDomain(out.Portfolio)
}

// GetPortfolio returns the portfolio of owner (the caller when empty), or nil if absent
func (c *Client) GetPortfolio(ctx context.Context, owner domain.Principal) (*domain.Portfolio, error) {
	out := new(GetPortfolioResponse)
	if err := c.invoke(ctx, methodGetPortfolio, &OwnerRequest{Owner: owner.String()}, out); err != nil {
		return nil, err
	}
	if !out.Found || out.Portfolio == nil {
		return nil, nil
	}
	return messagePortfolioToDomain(out.Portfolio)
}

// GetAsset returns one asset of owner (the caller when empty), or nil if absent
func (c *Client) GetAsset(ctx context.Context, owner domain.Principal, id domain.AssetID) (*domain.Asset, error) {
	out := new(GetAssetResponse)
	if err := c.invoke(ctx, methodGetAsset, &GetAssetRequest{Owner: owner.String(), AssetID: uint64(id)}, out); err != nil {
		return nil, err
	}
	if !out.Found || out.Asset == nil {
		return nil, nil
	}
	return messageAssetToDomain(out.Asset), nil
}

// GetAssetPrice returns the price record of an asset, or nil if none was published
func (c *Client) GetAssetPrice(ctx context.Context, id domain.AssetID) (*domain.PriceRecord, error) {
	out := new(GetAssetPriceResponse)
	if err := c.invoke(ctx, methodGetAssetPrice, &GetAssetPriceRequest{AssetID: uint64(id)}, out); err != nil {
		return nil, err
	}
	if !out.Found || out.Price == nil {
		return nil, nil
	}
	return messagePriceToDomain(out.Price), nil
}

// GetCurrentAllocations returns the allocation entries of owner (the caller when empty)
func (c *Client) GetCurrentAllocations(ctx context.Context, owner domain.Principal) ([]domain.AllocationEntry, error) {
	out := new(GetCurrentAllocationsResponse)
	if err := c.invoke(ctx, methodGetCurrentAllocations, &OwnerRequest{Owner: owner.String()}, out); err != nil {
		return nil, err
	}
	return messageEntriesToDomain(out.Allocations), nil
}
