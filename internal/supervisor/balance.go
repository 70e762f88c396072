package supervisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// checkBalances implements the "Insufficient balance" row of spec's
// error-handling table: mark venue/side paused for this scan, alert, keep
// scanning otherwise. Since every opportunity needs both legs filled,
// pausing either venue pauses dispatch for the whole cycle rather than one
// side of a pair.
func (s *Supervisor) checkBalances(ctx context.Context) {
	if s.cfg.Opinion != nil {
		s.opinionPaused.Store(s.venueBalanceLow(ctx, types.VenueOpinion, s.cfg.Opinion, s.cfg.MinOpinionBalance))
	}
	if s.cfg.Polymarket != nil {
		paused := s.venueBalanceLow(ctx, types.VenuePolymarket, s.cfg.Polymarket, s.cfg.MinPolymarketBalance)
		if !paused && s.cfg.PolymarketBreaker != nil {
			paused = !s.cfg.PolymarketBreaker.IsEnabled()
		}
		s.polymarketPaused.Store(paused)
	}
}

func (s *Supervisor) venueBalanceLow(ctx context.Context, v types.Venue, client venue.Client, min float64) bool {
	if min <= 0 {
		return false
	}
	balances, err := client.GetBalances(ctx)
	if err != nil {
		s.logger.Warn("balance-check-failed", zap.String("venue", string(v)), zap.Error(err))
		return false
	}
	for _, b := range balances {
		if b.Asset != s.cfg.BalanceAsset {
			continue
		}
		low := b.Available < min
		if low {
			BalancePausedGauge.WithLabelValues(string(v)).Set(1)
			s.logger.Warn("venue-balance-paused",
				zap.String("venue", string(v)),
				zap.Float64("available", b.Available),
				zap.Float64("minimum", min))
		} else {
			BalancePausedGauge.WithLabelValues(string(v)).Set(0)
		}
		return low
	}
	// No matching balance entry: treat as insufficient rather than assume
	// unlimited funds.
	return true
}

// venuesFunded reports whether both venues currently clear their balance
// floors. Dispatch skips a scan cycle entirely when either is paused,
// since every opportunity spans both legs.
func (s *Supervisor) venuesFunded() bool {
	return !s.opinionPaused.Load() && !s.polymarketPaused.Load()
}
