package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/arbengine/internal/bookfetcher"
	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/matcher"
	"github.com/mselser95/arbengine/internal/scanner"
	"github.com/mselser95/arbengine/internal/venue/opinion"
	"github.com/mselser95/arbengine/internal/venue/polymarket"
	"github.com/mselser95/arbengine/pkg/config"
	"github.com/mselser95/arbengine/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one matcher refresh and book fetch, print the opportunity list",
	Long: `Performs a single pass of the pipeline run drives continuously —
refresh the market matcher once, fetch every matched pair's four order
books once, and scan for crossings — then prints the resulting
opportunities ranked the way the Supervisor would (immediate by
annualized return, liquidity by raw edge), without placing any order.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
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

	mkr, err := matcher.New(matcher.Config{
		OpinionClient:           opinionClient,
		PolymarketClient:        polymarketClient,
		SimilarityThreshold:     cfg.TitleSimilarityThreshold,
		MaxResolutionDeltaHours: cfg.MaxResolutionDateDeltaHrs,
		Logger:                  logger.Named("matcher"),
	})
	if err != nil {
		return fmt.Errorf("create matcher: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	fmt.Println("refreshing matcher...")
	matcherCtx, cancelMatcher := context.WithCancel(ctx)
	go mkr.Run(matcherCtx)
	// Run's first refresh happens synchronously on entry; give it a
	// generous window to complete both venues' list_markets pagination
	// before reading the snapshot and stopping the (otherwise 5-minute
	// period) background loop early.
	time.Sleep(5 * time.Second)
	cancelMatcher()

	pairs := mkr.Snapshot()
	if len(pairs) == 0 {
		fmt.Println("no matched pairs found")
		return nil
	}
	fmt.Printf("%d matched pairs\n", len(pairs))

	fetcher, err := bookfetcher.New(bookfetcher.Config{
		Opinion:    bookfetcher.VenueConfig{Client: opinionClient, RateLimiter: bookfetcher.NewTokenBucket(cfg.OpinionMaxRPS)},
		Polymarket: bookfetcher.VenueConfig{Client: polymarketClient, RateLimiter: bookfetcher.NewTokenBucket(polymarketDefaultRPS)},
		BatchSize:  cfg.OrderbookBatchSize,
		Logger:     logger.Named("bookfetcher"),
	})
	if err != nil {
		return fmt.Errorf("create book fetcher: %w", err)
	}

	tokens := pairTokens(pairs)
	frame := fetcher.FetchFrame(ctx, tokens)
	fmt.Printf("%d books fetched\n\n", len(frame.Snapshots))

	feeModel := fees.New(fees.Config{CurveA: cfg.FeeCurveA, CurveC: cfg.FeeCurveC, MinFee: cfg.OpinionMinFee})
	scan, err := scanner.New(scanner.Config{
		ImmediateMinEdgePct:    cfg.ImmediateMinEdgePct / 100,
		ImmediateMaxEdgePct:    cfg.ImmediateMaxEdgePct / 100,
		LiquidityMinAnnualized: cfg.LiquidityMinAnnualizedPct / 100,
		MaxPerTradeShares:      cfg.MaxPerTradeShares,
		Fees:                   feeModel,
	}, logger.Named("scanner"))
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}

	opps := scan.Scan(pairs, frame)
	printOpportunities(scanner.RankImmediate(opps), "IMMEDIATE")
	printOpportunities(scanner.RankLiquidity(opps), "LIQUIDITY")

	return nil
}

func pairTokens(pairs []types.MarketPair) []types.Token {
	tokens := make([]types.Token, 0, len(pairs)*4)
	for _, p := range pairs {
		tokens = append(tokens, p.OpinionYes, p.OpinionNo, p.PolymarketYes, p.PolymarketNo)
	}
	return tokens
}

func printOpportunities(opps []types.Opportunity, label string) {
	fmt.Printf("=== %s (%d) ===\n", label, len(opps))
	if len(opps) == 0 {
		fmt.Println("  none")
		fmt.Println()
		return
	}
	for _, o := range opps {
		fmt.Printf("  %s  edge=%.4f annualized=%.2f%% size_cap=%.1f  %s/%s vs %s/%s\n",
			o.Combination, o.EffectiveEdge, o.AnnualizedReturn*100, o.SizeCap,
			o.OpinionToken.Venue, o.OpinionToken.TokenID, o.PolymarketToken.Venue, o.PolymarketToken.TokenID)
	}
	fmt.Println()
}
