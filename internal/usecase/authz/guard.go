package authz

import "github.com/simaogato/rebalancer-backend/internal/domain"

// Action names a privileged operation
type Action string

const (
	ActionUpdatePrice Action = "update_price"
)

// Guard decides whether a caller may perform a privileged action.
// A single configured principal acts as the price authority.
type Guard struct {
	priceAuthority domain.Principal
}

// NewGuard creates a Guard with the given price authority.
// An empty authority authorizes nobody.
func NewGuard(priceAuthority domain.Principal) *Guard {
	return &Guard{priceAuthority: priceAuthority}
}

// PriceAuthority returns the configured price authority
func (g *Guard) PriceAuthority() domain.Principal {
	return g.priceAuthority
}

// Authorize returns domain.ErrNotAuthorized unless caller may perform action
func (g *Guard) Authorize(caller domain.Principal, action Action) error {
	switch action {
	case ActionUpdatePrice:
		if !g.priceAuthority.IsZero() && caller == g.priceAuthority {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}
