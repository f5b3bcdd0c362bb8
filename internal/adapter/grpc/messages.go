package grpc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// Wire messages of rebalancer.v1.RebalancerService.
// uint64 quantities travel as JSON strings; timestamps are unix seconds with 0 meaning never.

type CreatePortfolioRequest struct {
	ThresholdBps uint32 `json:"thresholdBps"`
}

type AddAssetRequest struct {
	AssetID       uint64 `json:"assetId,string"`
	AllocationBps uint32 `json:"allocationBps"`
	Amount        uint64 `json:"amount,string"`
	Name          string `json:"name"`
}

type UpdateAssetPriceRequest struct {
	AssetID uint64 `json:"assetId,string"`
	Price   uint64 `json:"price,string"`
}

type SetAutoRebalanceRequest struct {
	Enabled bool `json:"enabled"`
}

type UpdateRebalanceThresholdRequest struct {
	ThresholdBps uint32 `json:"thresholdBps"`
}

// OwnerRequest addresses a read at owner, or at the caller when owner is empty
type OwnerRequest struct {
	Owner string `json:"owner,omitempty"`
}

type ExecuteRebalanceRequest struct{}

type GetAssetRequest struct {
	Owner   string `json:"owner,omitempty"`
	AssetID uint64 `json:"assetId,string"`
}

type GetAssetPriceRequest struct {
	AssetID uint64 `json:"assetId,string"`
}

// SuccessResponse answers every mutation
type SuccessResponse struct {
	Success bool `json:"success"`
}

type CheckRebalanceNeededResponse struct {
	Needed bool `json:"needed"`
}

type ExecuteRebalanceResponse struct {
	Success   bool       `json:"success"`
	Portfolio *Portfolio `json:"portfolio,omitempty"`
}

type GetPortfolioResponse struct {
	Found     bool       `json:"found"`
	Portfolio *Portfolio `json:"portfolio,omitempty"`
}

type GetAssetResponse struct {
	Found bool   `json:"found"`
	Asset *Asset `json:"asset,omitempty"`
}

type GetAssetPriceResponse struct {
	Found bool         `json:"found"`
	Price *PriceRecord `json:"price,omitempty"`
}

type GetCurrentAllocationsResponse struct {
	Allocations []AllocationEntry `json:"allocations"`
}

type Portfolio struct {
	Owner                 string `json:"owner"`
	TotalValue            string `json:"totalValue"`
	RebalanceThresholdBps uint32 `json:"rebalanceThresholdBps"`
	AutoRebalanceEnabled  bool   `json:"autoRebalanceEnabled"`
	LastRebalance         int64  `json:"lastRebalance"`
}

type Asset struct {
	Owner                string `json:"owner"`
	AssetID              uint64 `json:"assetId,string"`
	Name                 string `json:"name"`
	CurrentAmount        uint64 `json:"currentAmount,string"`
	TargetAllocationBps  uint32 `json:"targetAllocationBps"`
	CurrentAllocationBps uint32 `json:"currentAllocationBps"`
}

type PriceRecord struct {
	AssetID     uint64 `json:"assetId,string"`
	Price       uint64 `json:"price,string"`
	LastUpdated int64  `json:"lastUpdated"`
}

type AllocationEntry struct {
	AssetID              uint64 `json:"assetId,string"`
	Name                 string `json:"name"`
	CurrentAllocationBps uint32 `json:"currentAllocationBps"`
	TargetAllocationBps  uint32 `json:"targetAllocationBps"`
	CurrentAmount        uint64 `json:"currentAmount,string"`
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func domainPortfolioToMessage(p *domain.Portfolio) *Portfolio {
	return &Portfolio{
		Owner:                 p.Owner.String(),
		TotalValue:            p.TotalValue.String(),
		RebalanceThresholdBps: uint32(p.RebalanceThresholdBps),
		AutoRebalanceEnabled:  p.AutoRebalanceEnabled,
		LastRebalance:         toUnix(p.LastRebalance),
	}
}

func messagePortfolioToDomain(m *Portfolio) (*domain.Portfolio, error) {
	total, err := decimal.NewFromString(m.TotalValue)
	if err != nil {
		return nil, err
	}
	return &domain.Portfolio{
		Owner:                 domain.Principal(m.Owner),
		TotalValue:            total,
		RebalanceThresholdBps: domain.BasisPoints(m.RebalanceThresholdBps),
		AutoRebalanceEnabled:  m.AutoRebalanceEnabled,
		LastRebalance:         fromUnix(m.LastRebalance),
	}, nil
}

func domainAssetToMessage(a *domain.Asset) *Asset {
	return &Asset{
		Owner:                a.Owner.String(),
		AssetID:              uint64(a.ID),
		Name:                 a.Name,
		CurrentAmount:        a.CurrentAmount,
		TargetAllocationBps:  uint32(a.TargetAllocationBps),
		CurrentAllocationBps: uint32(a.CurrentAllocationBps),
	}
}

func messageAssetToDomain(m *Asset) *domain.Asset {
	return &domain.Asset{
		Owner:                domain.Principal(m.Owner),
		ID:                   domain.AssetID(m.AssetID),
		Name:                 m.Name,
		CurrentAmount:        m.CurrentAmount,
		TargetAllocationBps:  domain.BasisPoints(m.TargetAllocationBps),
		CurrentAllocationBps: domain.BasisPoints(m.CurrentAllocationBps),
	}
}

func domainPriceToMessage(r *domain.PriceRecord) *PriceRecord {
	return &PriceRecord{
		AssetID:     uint64(r.AssetID),
		Price:       r.Price,
		LastUpdated: toUnix(r.LastUpdated),
	}
}

func messagePriceToDomain(m *PriceRecord) *domain.PriceRecord {
	return &domain.PriceRecord{
		AssetID:     domain.AssetID(m.AssetID),
		Price:       m.Price,
		LastUpdated: fromUnix(m.LastUpdated),
	}
}

func domainEntriesToMessage(entries []domain.AllocationEntry) []AllocationEntry {
	out := make([]AllocationEntry, len(entries))
	for i, e := range entries {
		out[i] = AllocationEntry{
			AssetID:              uint64(e.AssetID),
			Name:                 e.Name,
			CurrentAllocationBps: uint32(e.CurrentAllocationBps),
			TargetAllocationBps:  uint32(e.TargetAllocationBps),
			CurrentAmount:        e.CurrentAmount,
		}
	}
	return out
}

func messageEntriesToDomain(entries []AllocationEntry) []domain.AllocationEntry {
	out := make([]domain.AllocationEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.AllocationEntry{
			AssetID:              domain.AssetID(e.AssetID),
			Name:                 e.Name,
			CurrentAllocationBps: domain.BasisPoints(e.CurrentAllocationBps),
			TargetAllocationBps:  domain.BasisPoints(e.TargetAllocationBps),
			CurrentAmount:        e.CurrentAmount,
		}
	}
	return out
}
