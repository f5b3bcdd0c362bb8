package portfolio

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/allocation"
)

// PortfolioService manages the one portfolio each owner may hold
type PortfolioService struct {
	Store domain.Store

	log zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(store domain.Store, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		Store: store,
		log:   log.With().Str("service", "portfolio").Logger(),
	}
}

// CreatePortfolio creates the portfolio of owner.
// Fails with ErrInvalidThreshold before checking for ErrDuplicatePortfolio.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, owner domain.Principal, thresholdBps domain.BasisPoints) error {
	p, err := domain.NewPortfolio(owner, thresholdBps)
	if err != nil {
		s.log.Debug().Err(err).Str("owner", owner.String()).Msg("Portfolio creation rejected")
		return err
	}

	err = s.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Portfolios.Create(ctx, p)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("owner", owner.String()).Msg("Portfolio creation rejected")
		return err
	}

	s.log.Info().
		Str("owner", owner.String()).
		Uint32("threshold_bps", uint32(thresholdBps)).
		Msg("Portfolio created")
	return nil
}

// GetPortfolio returns the portfolio of owner with a freshly computed total value,
// or nil if owner has none
func (s *PortfolioService) GetPortfolio(ctx context.Context, owner domain.Principal) (*domain.Portfolio, error) {
	var result *domain.Portfolio
	err := s.Store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, owner)
		if err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return nil
			}
			return err
		}

		valuation, err := allocation.Load(ctx, repos, owner)
		if err != nil {
			return err
		}
		p.TotalValue = valuation.TotalValue

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetAutoRebalance turns scheduled rebalancing on or off for owner
func (s *PortfolioService) SetAutoRebalance(ctx context.Context, owner domain.Principal, enabled bool) error {
	err := s.update(ctx, owner, func(p *domain.Portfolio) error {
		p.AutoRebalanceEnabled = enabled
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("owner", owner.String()).Bool("enabled", enabled).Msg("Auto-rebalance updated")
	return nil
}

// UpdateRebalanceThreshold changes the drift at which owner's portfolio needs rebalancing.
// Fails with ErrPortfolioNotFound before checking for ErrInvalidThreshold.
func (s *PortfolioService) UpdateRebalanceThreshold(ctx context.Context, owner domain.Principal, thresholdBps domain.BasisPoints) error {
	err := s.update(ctx, owner, func(p *domain.Portfolio) error {
		p.RebalanceThresholdBps = thresholdBps
		return p.Validate()
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("owner", owner.String()).
		Uint32("threshold_bps", uint32(thresholdBps)).
		Msg("Rebalance threshold updated")
	return nil
}

// update loads owner's portfolio, applies mutate and persists it in one unit of work
func (s *PortfolioService) update(ctx context.Context, owner domain.Principal, mutate func(p *domain.Portfolio) error) error {
	err := s.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, owner)
		if err != nil {
			return err
		}
		if err := mutate(p); err != nil {
			return err
		}
		return repos.Portfolios.Update(ctx, p)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("owner", owner.String()).Msg("Portfolio update rejected")
	}
	return err
}
