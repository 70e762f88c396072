package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every configuration knob named in spec's external-interfaces
// table, plus venue credentials and the storage/HTTP ambient settings the
// distilled spec leaves implicit.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string
	DryRun   bool

	// Scan cadence (spec.md "External interfaces")
	ScanIntervalMS  int
	MatcherRefreshS int

	// Strategy thresholds
	ImmediateMinEdgePct      float64
	ImmediateMaxEdgePct      float64
	LiquidityMinAnnualizedPct float64
	LiquidityTargetSize      float64
	MaxPerTradeShares        float64
	MaxConcurrentImmediate   int

	// Book fetcher
	OrderbookBatchSize int

	// Fee model (§4.D)
	OpinionMaxRPS  float64
	OpinionMinFee  float64
	FeeCurveA      float64
	FeeCurveC      float64

	// Matcher
	TitleSimilarityThreshold  float64
	MaxResolutionDateDeltaHrs float64

	// Reconciliation (§4.H)
	MaxHedgeAttempts int

	// Opinion venue credentials
	OpinionBaseURL       string
	OpinionWalletAddress string
	OpinionSharedSecret  string

	// Polymarket venue credentials
	PolymarketGammaBaseURL    string
	PolymarketCLOBBaseURL     string
	PolymarketPrivateKeyHex   string
	PolymarketAPIKey          string
	PolymarketAPISecret       string
	PolymarketAPIPassphrase   string
	PolymarketChainID         int64
	PolymarketExchangeAddress string

	// Balance circuit breaker (Polymarket, on-chain)
	BreakerEnabled         bool
	BreakerCheckInterval   time.Duration
	BreakerTradeMultiplier float64
	BreakerMinAbsolute     float64
	BreakerHysteresisRatio float64
	PolygonRPCURL          string

	// Balance pause thresholds (supervisor-level, both venues)
	MinOpinionBalance    float64
	MinPolymarketBalance float64

	// Storage
	StorageMode  string // "jsonl", "console", or "postgres"
	TradeLogPath string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Redis-backed rate limiter (internal/bookfetcher). RedisAddr is unset
	// by default; the fetcher falls back to an in-process TokenBucket per
	// venue until an operator opts into the shared distributed limiter.
	RedisAddr string
	RedisDB   int
}

// LoadFromEnv loads configuration from environment variables with
// spec-mandated defaults, then applies an optional TOML overlay named by
// ARBENGINE_CONFIG_FILE if set.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		DryRun:   getBoolOrDefault("DRY_RUN", false),

		ScanIntervalMS:  getIntOrDefault("SCAN_INTERVAL_MS", 500),
		MatcherRefreshS: getIntOrDefault("MATCHER_REFRESH_S", 300),

		ImmediateMinEdgePct:       getFloat64OrDefault("IMMEDIATE_MIN_EDGE_PCT", 2.0),
		ImmediateMaxEdgePct:       getFloat64OrDefault("IMMEDIATE_MAX_EDGE_PCT", 50.0),
		LiquidityMinAnnualizedPct: getFloat64OrDefault("LIQUIDITY_MIN_ANNUALIZED_PCT", 20.0),
		LiquidityTargetSize:       getFloat64OrDefault("LIQUIDITY_TARGET_SIZE", 250),
		MaxPerTradeShares:         getFloat64OrDefault("MAX_PER_TRADE_SHARES", 1000),
		MaxConcurrentImmediate:    getIntOrDefault("MAX_CONCURRENT_IMMEDIATE", 2),

		OrderbookBatchSize: getIntOrDefault("ORDERBOOK_BATCH_SIZE", 20),

		OpinionMaxRPS: getFloat64OrDefault("OPINION_MAX_RPS", 15),
		OpinionMinFee: getFloat64OrDefault("OPINION_MIN_FEE", 0.50),
		FeeCurveA:     getFloat64OrDefault("FEE_CURVE_A", 0.06),
		FeeCurveC:     getFloat64OrDefault("FEE_CURVE_C", 0.0025),

		TitleSimilarityThreshold:  getFloat64OrDefault("TITLE_SIMILARITY_THRESHOLD", 0.85),
		MaxResolutionDateDeltaHrs: getFloat64OrDefault("MAX_RESOLUTION_DATE_DELTA_HOURS", 48),

		MaxHedgeAttempts: getIntOrDefault("MAX_HEDGE_ATTEMPTS", 5),

		OpinionBaseURL:       getEnvOrDefault("OPINION_BASE_URL", "https://api.opinion.trade"),
		OpinionWalletAddress: os.Getenv("OPINION_WALLET_ADDRESS"),
		OpinionSharedSecret:  os.Getenv("OPINION_SHARED_SECRET"),

		PolymarketGammaBaseURL:    getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketCLOBBaseURL:     getEnvOrDefault("POLYMARKET_CLOB_API_URL", "https://clob.polymarket.com"),
		PolymarketPrivateKeyHex:   os.Getenv("POLYMARKET_PRIVATE_KEY"),
		PolymarketAPIKey:          os.Getenv("POLYMARKET_API_KEY"),
		PolymarketAPISecret:       os.Getenv("POLYMARKET_SECRET"),
		PolymarketAPIPassphrase:   os.Getenv("POLYMARKET_PASSPHRASE"),
		PolymarketChainID:         int64(getIntOrDefault("POLYMARKET_CHAIN_ID", 137)),
		PolymarketExchangeAddress: os.Getenv("POLYMARKET_EXCHANGE_ADDRESS"),

		BreakerEnabled:         getBoolOrDefault("BREAKER_ENABLED", false),
		BreakerCheckInterval:   getDurationOrDefault("BREAKER_CHECK_INTERVAL", 5*time.Minute),
		BreakerTradeMultiplier: getFloat64OrDefault("BREAKER_TRADE_MULTIPLIER", 3.0),
		BreakerMinAbsolute:     getFloat64OrDefault("BREAKER_MIN_ABSOLUTE", 25.0),
		BreakerHysteresisRatio: getFloat64OrDefault("BREAKER_HYSTERESIS_RATIO", 1.5),
		PolygonRPCURL:          getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		MinOpinionBalance:    getFloat64OrDefault("MIN_OPINION_BALANCE", 0),
		MinPolymarketBalance: getFloat64OrDefault("MIN_POLYMARKET_BALANCE", 0),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "jsonl"),
		TradeLogPath: getEnvOrDefault("TRADE_LOG_PATH", "trades.jsonl"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arbengine"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arbengine"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "arbengine"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
		RedisDB:   getIntOrDefault("REDIS_DB", 0),
	}

	if path := os.Getenv("ARBENGINE_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode toml overlay %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.ImmediateMinEdgePct <= 0 || c.ImmediateMinEdgePct >= c.ImmediateMaxEdgePct {
		return fmt.Errorf("IMMEDIATE_MIN_EDGE_PCT must be positive and below IMMEDIATE_MAX_EDGE_PCT")
	}
	if c.LiquidityMinAnnualizedPct <= 0 {
		return fmt.Errorf("LIQUIDITY_MIN_ANNUALIZED_PCT must be positive")
	}
	if c.MaxConcurrentImmediate <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_IMMEDIATE must be positive")
	}
	if c.StorageMode != "jsonl" && c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'jsonl', 'console', or 'postgres', got %q", c.StorageMode)
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
