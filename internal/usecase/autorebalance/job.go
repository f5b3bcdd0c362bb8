// Package autorebalance rebalances opted-in portfolios in the background.
package autorebalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/rebalance"
)

// Report summarizes one sweep
type Report struct {
	Checked    int
	Rebalanced int
	Failed     int
}

// Job sweeps every portfolio with auto-rebalance enabled and rebalances the ones that drifted
type Job struct {
	store  domain.Store
	engine *rebalance.Engine
	log    zerolog.Logger
}

// NewJob creates a new auto-rebalance job
func NewJob(store domain.Store, engine *rebalance.Engine, log zerolog.Logger) *Job {
	return &Job{
		store:  store,
		engine: engine,
		log:    log.With().Str("job", "auto_rebalance").Logger(),
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return "auto_rebalance"
}

// Run executes one sweep
func (j *Job) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep checks every opted-in owner once.
// A failure for one owner is logged and does not stop the sweep; all failures are returned joined.
// An owner whose portfolio was balanced by someone else in the meantime is not a failure.
func (j *Job) Sweep(ctx context.Context) (Report, error) {
	var report Report

	var owners []domain.Principal
	err := j.store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		owners, err = repos.Portfolios.ListAutoRebalance(ctx)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("failed to list auto-rebalance portfolios: %w", err)
	}

	var errs []error
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		needed, err := j.engine.CheckRebalanceNeeded(ctx, owner)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			j.log.Warn().Err(err).Str("owner", owner.String()).Msg("Drift check failed")
			continue
		}
		if !needed {
			continue
		}

		if _, err := j.engine.ExecuteRebalance(ctx, owner); err != nil {
			if errors.Is(err, domain.ErrRebalanceNotNeeded) {
				continue
			}
			report.Failed++
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			j.log.Warn().Err(err).Str("owner", owner.String()).Msg("Auto-rebalance failed")
			continue
		}
		report.Rebalanced++
	}

	j.log.Info().
		Int("checked", report.Checked).
		Int("rebalanced", report.Rebalanced).
		Int("failed", report.Failed).
		Msg("Auto-rebalance sweep complete")

	return report, errors.Join(errs...)
}
