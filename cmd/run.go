package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/bookfetcher"
	"github.com/mselser95/arbengine/internal/circuitbreaker"
	"github.com/mselser95/arbengine/internal/fees"
	"github.com/mselser95/arbengine/internal/matcher"
	"github.com/mselser95/arbengine/internal/reconciliation"
	"github.com/mselser95/arbengine/internal/scanner"
	"github.com/mselser95/arbengine/internal/strategy/immediate"
	"github.com/mselser95/arbengine/internal/strategy/liquidity"
	"github.com/mselser95/arbengine/internal/supervisor"
	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/internal/venue/opinion"
	"github.com/mselser95/arbengine/internal/venue/polymarket"
	"github.com/mselser95/arbengine/pkg/config"
	"github.com/mselser95/arbengine/pkg/healthprobe"
	"github.com/mselser95/arbengine/pkg/httpserver"
	"github.com/mselser95/arbengine/internal/storage"
	"github.com/mselser95/arbengine/pkg/wallet"
	"github.com/mselser95/arbengine/pkg/websocket"
)

const polymarketDefaultRPS = 20.0

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the arbitrage engine, which:
1. Matches active markets between Opinion and Polymarket by title similarity
2. Polls order books for every matched pair's four tokens
3. Scans for crossings and classifies them immediate or liquidity
4. Executes immediate crossings, works liquidity crossings as resting orders
5. Reconciles any second-leg deficit until filled or abandoned

With --dry-run, opportunities are scanned and logged but never ordered.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Scan and log opportunities without placing any order")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		cfg.DryRun = true
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DryRun {
		logger.Warn("dry-run-enabled: opportunities will be scanned and logged, never ordered")
	}

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

	var opinionVenue, polymarketVenue venue.Client = opinionClient, polymarketClient
	if cfg.DryRun {
		opinionVenue = venue.NewPaperClient(opinionVenue, logger.Named("opinion-paper"))
		polymarketVenue = venue.NewPaperClient(polymarketVenue, logger.Named("polymarket-paper"))
	}

	similarityCache, err := matcher.NewSimilarityCache(matcher.SimilarityCacheConfig{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
		Logger:      logger.Named("matcher-cache"),
	})
	if err != nil {
		return fmt.Errorf("create similarity cache: %w", err)
	}
	defer similarityCache.Close()

	mkr, err := matcher.New(matcher.Config{
		OpinionClient:           opinionVenue,
		PolymarketClient:        polymarketVenue,
		Cache:                   similarityCache,
		RefreshInterval:         time.Duration(cfg.MatcherRefreshS) * time.Second,
		SimilarityThreshold:     cfg.TitleSimilarityThreshold,
		MaxResolutionDeltaHours: cfg.MaxResolutionDateDeltaHrs,
		Logger:                  logger.Named("matcher"),
	})
	if err != nil {
		return fmt.Errorf("create matcher: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}
	opinionLimiter := bookfetcher.NewLimiter(redisClient, "ratelimit:opinion", cfg.OpinionMaxRPS)
	polymarketLimiter := bookfetcher.NewLimiter(redisClient, "ratelimit:polymarket", polymarketDefaultRPS)

	fetcher, err := bookfetcher.New(bookfetcher.Config{
		Opinion:    bookfetcher.VenueConfig{Client: opinionVenue, RateLimiter: opinionLimiter},
		Polymarket: bookfetcher.VenueConfig{Client: polymarketVenue, RateLimiter: polymarketLimiter},
		BatchSize:  cfg.OrderbookBatchSize,
		Logger:     logger.Named("bookfetcher"),
	})
	if err != nil {
		return fmt.Errorf("create book fetcher: %w", err)
	}

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

	tradeLog, err := newTradeLog(cfg, logger)
	if err != nil {
		return fmt.Errorf("create trade log: %w", err)
	}
	defer func() { _ = tradeLog.Close() }()

	reconciler, err := reconciliation.New(reconciliation.Config{
		MaxHedgeAttempts: cfg.MaxHedgeAttempts,
		Opinion:          opinionVenue,
		Polymarket:       polymarketVenue,
		Fees:             feeModel,
		TradeLog:         tradeLog,
		Logger:           logger.Named("reconciliation"),
	})
	if err != nil {
		return fmt.Errorf("create reconciliation consumer: %w", err)
	}

	breaker, err := newPolymarketBreaker(cfg, logger)
	if err != nil {
		return fmt.Errorf("create balance circuit breaker: %w", err)
	}

	immediateExec, err := immediate.New(immediate.Config{
		MaxConcurrent:     cfg.MaxConcurrentImmediate,
		Opinion:           opinionVenue,
		Polymarket:        polymarketVenue,
		Fees:              feeModel,
		Deficits:          reconciler,
		TradeLog:          tradeLog,
		PolymarketBreaker: polymarketBreakerArg(breaker),
		Depth:             fetcher,
		Logger:            logger.Named("immediate"),
	})
	if err != nil {
		return fmt.Errorf("create immediate executor: %w", err)
	}

	liquidityMgr, err := liquidity.New(liquidity.Config{
		TargetSize:             cfg.LiquidityTargetSize,
		LiquidityMinAnnualized: cfg.LiquidityMinAnnualizedPct / 100,
		Opinion:                opinionVenue,
		Polymarket:             polymarketVenue,
		Fees:                   feeModel,
		Deficits:               reconciler,
		TradeLog:               tradeLog,
		PolymarketBreaker:      liquidityBreakerArg(breaker),
		Logger:                 logger.Named("liquidity"),
	})
	if err != nil {
		return fmt.Errorf("create liquidity manager: %w", err)
	}

	hub := websocket.NewHub(logger.Named("websocket"))

	supCfg := supervisor.Config{
		Matcher:              mkr,
		BookFetcher:          fetcher,
		Scanner:              scan,
		Immediate:            immediateExec,
		Liquidity:            liquidityMgr,
		Reconciler:           reconciler,
		ScanInterval:         time.Duration(cfg.ScanIntervalMS) * time.Millisecond,
		Opinion:              opinionVenue,
		Polymarket:           polymarketVenue,
		MinOpinionBalance:    cfg.MinOpinionBalance,
		MinPolymarketBalance: cfg.MinPolymarketBalance,
		Broadcaster:          hub,
		Logger:               logger.Named("supervisor"),
	}
	// breaker is a *circuitbreaker.BalanceCircuitBreaker; assigning a nil
	// pointer directly to the interface field would leave a non-nil,
	// nil-underlying interface value, so only wire it in when non-nil.
	if breaker != nil {
		supCfg.PolymarketBreaker = breaker
	}

	sup, err := supervisor.New(supCfg)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}

	healthChecker := healthprobe.New()
	healthChecker.RegisterCheck("matcher-both-venues-down", func() error {
		if mkr.BothVenuesDown(time.Now()) {
			return fmt.Errorf("neither venue has refreshed within the matcher's grace period")
		}
		return nil
	})
	healthChecker.RegisterCheck("supervisor-halted", func() error {
		if sup.Halted() {
			return fmt.Errorf("supervisor halted: both venues unavailable past grace period")
		}
		return nil
	})
	if breaker != nil {
		healthChecker.RegisterCheck("polymarket-balance-breaker", func() error {
			if !breaker.IsEnabled() {
				return fmt.Errorf("polymarket trading paused: on-chain balance below disable threshold")
			}
			return nil
		})
	}

	httpSrv := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger.Named("httpserver"),
		HealthChecker: healthChecker,
		Supervisor:    sup,
		Bridge:        hub,
		Breaker:       breakerSourceArg(breaker),
	})

	httpDone := make(chan error, 1)
	go func() { httpDone <- httpSrv.Start() }()

	if breaker != nil {
		breaker.Start(cmd.Context())
	}

	healthChecker.SetReady(true)

	runErr := sup.Run(cmd.Context())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http-server-shutdown-error", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("supervisor run: %w", runErr)
	}

	if sup.Halted() {
		logger.Error("engine-exiting-halted: both venues unavailable past grace period")
		exitCode = 2
	}

	return nil
}

func newTradeLog(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case "console":
		return storage.NewConsoleStorage(logger.Named("storage")), nil
	case "postgres":
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger.Named("storage"),
		})
	default:
		return storage.NewJSONLStorage(cfg.TradeLogPath, logger.Named("storage"))
	}
}

// polymarketBreakerArg and liquidityBreakerArg adapt breaker to the
// executors' narrower BalanceBreaker interfaces without wrapping a nil
// *circuitbreaker.BalanceCircuitBreaker in a non-nil interface value: a
// direct assignment from a nil pointer would leave immediate.Config's or
// liquidity.Config's interface field non-nil despite an underlying nil
// receiver, panicking the first time RecordTrade dereferences it.
func polymarketBreakerArg(breaker *circuitbreaker.BalanceCircuitBreaker) immediate.BalanceBreaker {
	if breaker == nil {
		return nil
	}
	return breaker
}

func liquidityBreakerArg(breaker *circuitbreaker.BalanceCircuitBreaker) liquidity.BalanceBreaker {
	if breaker == nil {
		return nil
	}
	return breaker
}

// breakerSourceArg adapts breaker to httpserver.BreakerSource for the
// /api/breaker status endpoint, translating circuitbreaker.Status into
// httpserver's transport-local BreakerStatus so pkg/httpserver never needs
// to import internal/circuitbreaker.
func breakerSourceArg(breaker *circuitbreaker.BalanceCircuitBreaker) httpserver.BreakerSource {
	if breaker == nil {
		return nil
	}
	return breakerStatusAdapter{breaker: breaker}
}

type breakerStatusAdapter struct {
	breaker *circuitbreaker.BalanceCircuitBreaker
}

func (a breakerStatusAdapter) GetStatus() httpserver.BreakerStatus {
	s := a.breaker.GetStatus()
	return httpserver.BreakerStatus{
		Enabled:          s.Enabled,
		LastBalance:      s.LastBalance,
		LastCheck:        s.LastCheck,
		DisableThreshold: s.DisableThreshold,
		EnableThreshold:  s.EnableThreshold,
		AvgTradeSize:     s.AvgTradeSize,
		RecentTradeCount: s.RecentTradeCount,
	}
}

// newPolymarketBreaker layers the on-chain hysteresis balance breaker on
// top of the plain threshold check in internal/supervisor, when enabled
// and a private key is configured to derive the wallet address from.
func newPolymarketBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.BreakerEnabled || cfg.PolymarketPrivateKeyHex == "" {
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PolymarketPrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse polymarket private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("cast polymarket public key to ecdsa")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	walletClient, err := wallet.NewClient(cfg.PolygonRPCURL, logger.Named("wallet"))
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.BreakerCheckInterval,
		TradeMultiplier: cfg.BreakerTradeMultiplier,
		MinAbsolute:     cfg.BreakerMinAbsolute,
		HysteresisRatio: cfg.BreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         common.Address(address),
		Logger:          logger.Named("circuitbreaker"),
	})
}
