package cmd

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mselser95/arbengine/pkg/config"
	"github.com/mselser95/arbengine/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Summarize net holdings from the trade log",
	Long: `Replays the append-only trade log (TRADE_LOG_PATH, default
trades.jsonl) and aggregates it into one net position per venue/token:
shares held, average cost, and fees paid. Positions here mean the
engine's own inventory built from executed legs, not a live venue
API lookup — the trade log is the single durable record spec.md's
"Persisted state" section names.

Examples:
  arbengine positions
  arbengine positions --format json
  arbengine positions --format csv > positions.csv`,
	RunE: runPositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var positionsFormat string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsFormat, "format", "table", "Output format: table, json, csv")
}

// netPosition is one venue/token's aggregate inventory, folded from every
// TradeLogEntry naming that key.
type netPosition struct {
	Venue     types.Venue `json:"venue"`
	TokenID   string      `json:"token_id"`
	Outcome   types.Outcome `json:"outcome"`
	NetQty    float64     `json:"net_qty"`
	AvgPrice  float64     `json:"avg_price"`
	TotalFees float64     `json:"total_fees"`
	Trades    int         `json:"trades"`

	costBasis float64
}

func runPositions(cmd *cobra.Command, args []string) error {
	if positionsFormat != "table" && positionsFormat != "json" && positionsFormat != "csv" {
		return fmt.Errorf("invalid format: %s (valid: table, json, csv)", positionsFormat)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	entries, err := readTradeLog(cfg.TradeLogPath)
	if err != nil {
		return fmt.Errorf("read trade log: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No trades recorded")
		return nil
	}

	positions := aggregatePositions(entries)
	return displayPositions(positions)
}

// readTradeLog decodes every JSON-lines row of path. A missing file (never
// traded yet) yields an empty slice rather than an error.
func readTradeLog(path string) ([]types.TradeLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []types.TradeLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry types.TradeLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode trade log line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// aggregatePositions folds every buy leg into a running weighted-average
// cost basis per venue/token; sells reduce NetQty without touching AvgPrice.
func aggregatePositions(entries []types.TradeLogEntry) []netPosition {
	byKey := make(map[string]*netPosition)
	order := make([]string, 0)

	for _, e := range entries {
		key := string(e.Venue) + ":" + e.TokenID
		pos, ok := byKey[key]
		if !ok {
			pos = &netPosition{Venue: e.Venue, TokenID: e.TokenID, Outcome: e.Outcome}
			byKey[key] = pos
			order = append(order, key)
		}

		pos.Trades++
		pos.TotalFees += e.Fee

		if e.Side == types.SideBuy {
			pos.costBasis += e.FilledQty * e.AvgFillPrice
			pos.NetQty += e.FilledQty
		} else {
			pos.NetQty -= e.FilledQty
			pos.costBasis -= e.FilledQty * pos.AvgPrice
		}

		if pos.NetQty > 0 {
			pos.AvgPrice = pos.costBasis / pos.NetQty
		}
	}

	sort.Strings(order)
	out := make([]netPosition, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

func displayPositions(positions []netPosition) error {
	switch positionsFormat {
	case "table":
		displayPositionsTable(positions)
		return nil
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(positions)
	case "csv":
		return displayPositionsCSV(positions)
	default:
		return fmt.Errorf("unknown format: %s", positionsFormat)
	}
}

func displayPositionsTable(positions []netPosition) {
	fmt.Printf("%-12s %-24s %-8s %10s %10s %10s %7s\n",
		"VENUE", "TOKEN", "OUTCOME", "NET_QTY", "AVG_PX", "FEES", "TRADES")
	for _, p := range positions {
		fmt.Printf("%-12s %-24s %-8s %10.2f %10.4f %10.2f %7d\n",
			p.Venue, truncate(p.TokenID, 24), p.Outcome, p.NetQty, p.AvgPrice, p.TotalFees, p.Trades)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func displayPositionsCSV(positions []netPosition) error {
	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	if err := writer.Write([]string{"venue", "token_id", "outcome", "net_qty", "avg_price", "total_fees", "trades"}); err != nil {
		return err
	}
	for _, p := range positions {
		if err := writer.Write([]string{
			string(p.Venue),
			p.TokenID,
			string(p.Outcome),
			fmt.Sprintf("%.4f", p.NetQty),
			fmt.Sprintf("%.4f", p.AvgPrice),
			fmt.Sprintf("%.2f", p.TotalFees),
			fmt.Sprintf("%d", p.Trades),
		}); err != nil {
			return err
		}
	}
	return nil
}
