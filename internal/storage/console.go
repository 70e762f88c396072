package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing each trade to the
// console; useful when running against a paper venue or debugging a
// single pair without a file to tail.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage sink.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// WriteTrade pretty-prints one executed leg to stdout.
func (c *ConsoleStorage) WriteTrade(ctx context.Context, entry types.TradeLogEntry) error {
	fmt.Println("――――――――――――――――――――――――――――――――――――――――――――――――――――――――――――")
	fmt.Printf("TRADE  %s  %s/%s  %s\n", entry.Timestamp.Format("15:04:05.000"), entry.Venue, entry.Outcome, entry.Side)
	fmt.Printf("  order_qty=%.4f  limit_price=%.4f  filled_qty=%.4f  avg_fill_price=%.4f\n",
		entry.OrderQty, entry.LimitPrice, entry.FilledQty, entry.AvgFillPrice)
	fmt.Printf("  fee=%.4f  opportunity=%s\n", entry.Fee, entry.OpportunityID)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
