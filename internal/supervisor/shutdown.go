package supervisor

import (
	"context"
	"time"
)

// Shutdown stops the scan loop and matcher, drains any resting liquidity
// tickets (canceling and hedging their accumulated fills), then waits for
// every in-flight immediate execution and reconciliation attempt to
// finish, in that dependency order.
func (s *Supervisor) Shutdown() error {
	s.logger.Info("supervisor-shutting-down")

	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	s.cfg.Liquidity.Shutdown(shutdownCtx)

	s.wg.Wait()

	s.logger.Info("supervisor-shutdown-complete")
	return nil
}
