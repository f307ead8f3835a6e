// Package reaper periodically deletes token records whose refresh token has
// expired. Expired records are already useless to callers; this only keeps
// the table small.
package reaper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
)

// Observer receives the number of records removed per sweep.
type Observer func(n int64)

type Reaper struct {
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	observe     Observer
	now         func() time.Time
	logger      logging.Logger
}

func New(m repomanager.RepositoryManager, interval time.Duration, observe Observer, logger logging.Logger) *Reaper {
	if observe == nil {
		observe = func(int64) {}
	}
	return &Reaper{
		repomanager: m,
		interval:    interval,
		observe:     observe,
		now:         time.Now,
		logger:      logger.With("module", "reaper"),
	}
}

// Sweep deletes expired records once.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	repo := r.repomanager.Tokens(r.repomanager.Runner().Conn())

	n, err := repo.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, err
	}
	r.observe(n)
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, r.interval)
			n, err := r.Sweep(sweepCtx)
			cancel()

			if err != nil {
				r.logger.Error(ctx, "failed to delete expired tokens", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info(ctx, "deleted expired tokens", "count", n)
			}

		case <-ctx.Done():
			return
		}
	}
}
