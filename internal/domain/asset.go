package domain

import "errors"

// AssetID identifies an asset. IDs are global so prices can be shared, but an
// owner holds each asset at most once.
type AssetID uint64

// Asset is one holding inside an owner's portfolio
type Asset struct {
	Owner                Principal
	ID                   AssetID
	Name                 string
	CurrentAmount        uint64
	TargetAllocationBps  BasisPoints
	CurrentAllocationBps BasisPoints // derived from amount and price, never set by callers
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if a.Owner.IsZero() {
		return errors.New("asset owner cannot be empty")
	}
	if !a.TargetAllocationBps.Valid() {
		return ErrInvalidAllocation
	}
	return nil
}

// AllocationEntry is one row of an owner's allocation report
type AllocationEntry struct {
	AssetID              AssetID
	Name                 string
	CurrentAllocationBps BasisPoints
	TargetAllocationBps  BasisPoints
	CurrentAmount        uint64
}

// PlaceholderAllocations is the report returned for an owner without assets.
// Clients rely on receiving a single zero entry rather than an empty list.
func PlaceholderAllocations() []AllocationEntry {
	return []AllocationEntry{{}}
}
