package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/arbengine/pkg/types"
)

// PollUntilTerminal repeatedly polls an order until it reaches a terminal
// OrderState, the timeout elapses, or ctx is canceled. This is the shared
// "poll until terminal with timeout" primitive design notes calls for,
// extracted from internal/execution/fill_tracker.go
// (VerifyFills) so both the immediate and liquidity strategies use one
// implementation instead of duplicating the loop.
func PollUntilTerminal(
	ctx context.Context,
	client Client,
	orderID string,
	pollInterval time.Duration,
	timeout time.Duration,
) (types.OrderTicket, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticket, err := client.PollOrder(ctx, orderID)
	if err != nil {
		return ticket, fmt.Errorf("poll order %s: %w", orderID, err)
	}
	if ticket.State.Terminal() {
		return ticket, nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ticket, ctx.Err()

		case <-deadline.C:
			return ticket, fmt.Errorf("poll order %s: timeout after %s in state %s", orderID, timeout, ticket.State)

		case <-ticker.C:
			next, err := client.PollOrder(ctx, orderID)
			if err != nil {
				// transient poll failures don't abort the wait; keep the
				// last known ticket and retry on the next tick.
				continue
			}
			ticket = next
			if ticket.State.Terminal() {
				return ticket, nil
			}
		}
	}
}
