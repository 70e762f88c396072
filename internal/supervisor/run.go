package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts every long-running component and blocks until ctx is
// canceled or a SIGINT/SIGTERM is received, then shuts down gracefully.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("supervisor-starting", zap.Duration("scan-interval", s.cfg.ScanInterval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cfg.Matcher.Run(runCtx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cfg.Reconciler.Run(runCtx)
	}()

	s.wg.Add(1)
	go s.scanLoop(runCtx)

	if s.cfg.Opinion != nil || s.cfg.Polymarket != nil {
		s.checkBalances(runCtx)
		s.wg.Add(1)
		go s.balanceLoop(runCtx)
	}

	s.logger.Info("supervisor-ready")

	return s.waitForShutdown(runCtx)
}

// scanLoop runs scanOnce on cfg.ScanInterval until the context is
// canceled. A slow cycle simply delays the next tick rather than
// overlapping cycles, since the matcher/scanner/executor state is not
// safe for concurrent scan cycles to mutate at once.
func (s *Supervisor) scanLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

// balanceLoop refreshes the venue balance gate on cfg.BalanceCheckInterval,
// independently of the scan cadence since balance checks hit a different
// rate limit than the book-fetch path.
func (s *Supervisor) balanceLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.BalanceCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkBalances(ctx)
		}
	}
}

func (s *Supervisor) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		s.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("supervisor-context-canceled")
	}

	return s.Shutdown()
}
