package domain

import "time"

// PriceRecord is the latest known price of an asset, shared by every portfolio
type PriceRecord struct {
	AssetID     AssetID
	Price       uint64 // smallest price unit
	LastUpdated time.Time
}

// Validate ensures the price record adheres to domain rules
func (r *PriceRecord) Validate() error {
	if r.Price == 0 {
		return ErrInvalidPrice
	}
	return nil
}

// PriceSnapshot holds the prices read once for the duration of one operation
type PriceSnapshot map[AssetID]uint64

// PriceOf returns the price of id, or 0 when no price is known
func (s PriceSnapshot) PriceOf(id AssetID) uint64 {
	return s[id]
}
