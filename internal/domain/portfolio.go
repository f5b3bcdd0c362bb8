package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BasisPoints expresses a percentage in hundredths of a percent (10000 = 100%)
type BasisPoints uint32

// MaxBasisPoints is 100%
const MaxBasisPoints BasisPoints = 10000

// Valid reports whether b lies in [0, 10000]
func (b BasisPoints) Valid() bool {
	return b <= MaxBasisPoints
}

// Drift returns the absolute difference between two allocations
func Drift(current, target BasisPoints) BasisPoints {
	if current > target {
		return current - target
	}
	return target - current
}

// Portfolio is the per-owner rebalancing configuration and valuation.
// There is exactly one Portfolio per owner and it is never deleted.
type Portfolio struct {
	Owner                 Principal
	TotalValue            decimal.Decimal // integral; price-weighted sum of holdings, recomputed on every read
	RebalanceThresholdBps BasisPoints
	AutoRebalanceEnabled  bool
	LastRebalance         time.Time // zero until the first successful rebalance
}

// NewPortfolio builds a freshly created portfolio for owner
func NewPortfolio(owner Principal, thresholdBps BasisPoints) (*Portfolio, error) {
	p := &Portfolio{
		Owner:                 owner,
		TotalValue:            decimal.Zero,
		RebalanceThresholdBps: thresholdBps,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.Owner.IsZero() {
		return errors.New("portfolio owner cannot be empty")
	}
	if !p.RebalanceThresholdBps.Valid() {
		return ErrInvalidThreshold
	}
	return nil
}

// HasRebalanced reports whether a rebalance has ever been executed
func (p *Portfolio) HasRebalanced() bool {
	return !p.LastRebalance.IsZero()
}
