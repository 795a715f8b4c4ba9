package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/caseflow/caseflow/internal/coordinator/store"
)

// DefaultHousekeepingInterval is how often expired refresh tokens are
// purged.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService purges expired and revoked refresh tokens in the
// background.
type HousekeepingService struct {
	Store        store.Store
	Logger       *slog.Logger
	Interval     time.Duration
	StoreTimeout time.Duration
}

// Run sweeps on a ticker until ctx is cancelled. The first sweep happens
// immediately.
func (s *HousekeepingService) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HousekeepingService) sweep(ctx context.Context) {
	cctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(cctx); err != nil {
		if s.Logger != nil {
			s.Logger.WarnContext(ctx, "refresh_token_sweep_failed", "error", err)
		}
		return
	}
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "refresh_token_sweep_done")
	}
}
