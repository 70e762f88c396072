package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/internal/venue/opinion"
	"github.com/mselser95/arbengine/internal/venue/polymarket"
	"github.com/mselser95/arbengine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show current balances on both venues",
	Long: `Queries GetBalances on both the Opinion and Polymarket adapters and
prints the available/reserved amounts for each asset, useful for
confirming the engine is funded above min_opinion_balance and
min_polymarket_balance before starting run.`,
	RunE: runBalances,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balancesCmd)
}

func runBalances(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	opinionClient, err := opinion.New(opinion.Config{
		BaseURL:       cfg.OpinionBaseURL,
		WalletAddress: cfg.OpinionWalletAddress,
		SharedSecret:  cfg.OpinionSharedSecret,
		Logger:        logger.Named("opinion"),
	})
	if err != nil {
		return fmt.Errorf("create opinion client: %w", err)
	}

	polymarketClient, err := polymarket.New(polymarket.Config{
		GammaBaseURL:    cfg.PolymarketGammaBaseURL,
		CLOBBaseURL:     cfg.PolymarketCLOBBaseURL,
		PrivateKeyHex:   cfg.PolymarketPrivateKeyHex,
		APIKey:          cfg.PolymarketAPIKey,
		APISecret:       cfg.PolymarketAPISecret,
		APIPassphrase:   cfg.PolymarketAPIPassphrase,
		ChainID:         cfg.PolymarketChainID,
		ExchangeAddress: cfg.PolymarketExchangeAddress,
		Logger:          logger.Named("polymarket"),
	})
	if err != nil {
		return fmt.Errorf("create polymarket client: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	fmt.Println("=== Opinion ===")
	if err := printBalances(ctx, opinionClient); err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	if cfg.MinOpinionBalance > 0 {
		fmt.Printf("  (floor: %.2f USDC)\n", cfg.MinOpinionBalance)
	}

	fmt.Println()
	fmt.Println("=== Polymarket ===")
	if err := printBalances(ctx, polymarketClient); err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	if cfg.MinPolymarketBalance > 0 {
		fmt.Printf("  (floor: %.2f USDC)\n", cfg.MinPolymarketBalance)
	}

	return nil
}

func printBalances(ctx context.Context, client venue.Client) error {
	balances, err := client.GetBalances(ctx)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}
	if len(balances) == 0 {
		fmt.Println("  no balances reported")
		return nil
	}
	for _, b := range balances {
		fmt.Printf("  %-10s available=%.4f reserved=%.4f\n", b.Asset, b.Available, b.Reserved)
	}
	return nil
}
