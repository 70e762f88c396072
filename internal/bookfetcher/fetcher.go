// Package bookfetcher implements the rate-limited, batched order-book
// snapshot fetcher (spec §4.C), grounded on the prior adapter's
// internal/orderbook/manager.go snapshot-map/copy-on-read pattern,
// converted from WS-push to REST-poll with a token-bucket rate limiter and
// concurrent batch dispatch.
package bookfetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
	"go.uber.org/zap"
)

// VenueConfig bundles one venue's adapter with its own rate limit and
// concurrency cap.
type VenueConfig struct {
	Client            venue.Client
	RateLimiter       Limiter
	MaxConcurrentReqs int // spec: "at most ⌈rate⌉ concurrent in-flight per venue"
}

// Config configures the Fetcher.
type Config struct {
	Opinion    VenueConfig
	Polymarket VenueConfig

	BatchSize  int           // spec default 20
	MaxBookAge time.Duration // spec default 2s
	FetchTimeout time.Duration // spec: book fetch timeout 2s

	Logger *zap.Logger
}

// Fetcher retrieves order-book snapshots for all watched tokens under the
// per-venue rate and batch budgets, and publishes one consistent scan
// frame per cycle.
type Fetcher struct {
	cfg Config

	mu      sync.RWMutex
	indexes map[string]*bookIndex // keyed by Token.Key()

	logger *zap.Logger
}

// New constructs a Fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Opinion.Client == nil || cfg.Polymarket.Client == nil {
		return nil, fmt.Errorf("bookfetcher: both venue clients required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("bookfetcher: logger required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxBookAge <= 0 {
		cfg.MaxBookAge = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Second
	}
	if cfg.Opinion.MaxConcurrentReqs <= 0 {
		cfg.Opinion.MaxConcurrentReqs = 15
	}
	if cfg.Polymarket.MaxConcurrentReqs <= 0 {
		cfg.Polymarket.MaxConcurrentReqs = 20
	}

	return &Fetcher{
		cfg:     cfg,
		indexes: make(map[string]*bookIndex),
		logger:  cfg.Logger,
	}, nil
}

// FetchFrame implements spec §4.C's operation: group tokens by venue,
// partition into batches, dispatch concurrently under each venue's rate
// limit, and assemble one consistent scan frame stamped with the frame's
// wall-clock time. Stragglers beyond FetchTimeout are abandoned, not
// awaited.
func (f *Fetcher) FetchFrame(ctx context.Context, tokens []types.Token) types.ScanFrame {
	frameStart := time.Now()
	frameCtx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout)
	defer cancel()

	var opinionTokens, polymarketTokens []types.Token
	for _, t := range tokens {
		if t.Venue == types.VenueOpinion {
			opinionTokens = append(opinionTokens, t)
		} else {
			polymarketTokens = append(polymarketTokens, t)
		}
	}

	results := make(map[string]types.BookSnapshot, len(tokens))
	var resultsMu sync.Mutex

	merge := func(batch map[string]types.BookSnapshot) {
		resultsMu.Lock()
		defer resultsMu.Unlock()
		for k, v := range batch {
			results[k] = v
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.fetchVenue(frameCtx, types.VenueOpinion, f.cfg.Opinion, opinionTokens, merge)
	}()
	go func() {
		defer wg.Done()
		f.fetchVenue(frameCtx, types.VenuePolymarket, f.cfg.Polymarket, polymarketTokens, merge)
	}()
	wg.Wait()

	now := time.Now()
	fresh := make(map[string]types.BookSnapshot, len(results))
	for key, snapshot := range results {
		if now.Sub(snapshot.Timestamp) > f.cfg.MaxBookAge {
			StaleSnapshotsDroppedTotal.Inc()
			continue
		}
		fresh[key] = snapshot
		f.updateIndex(key, snapshot)
	}

	FrameTokenCount.Set(float64(len(fresh)))
	FetchDuration.WithLabelValues("all").Observe(time.Since(frameStart).Seconds())

	return types.ScanFrame{Snapshots: fresh, StampedAt: now}
}

// fetchVenue partitions tokens into batches and dispatches them
// concurrently under venueCfg's rate limit and concurrency cap, using
// errgroup so one batch's failure doesn't cancel the others (partial
// results are allowed per spec §4.A).
func (f *Fetcher) fetchVenue(ctx context.Context, venueName types.Venue, venueCfg VenueConfig, tokens []types.Token, merge func(map[string]types.BookSnapshot)) {
	if len(tokens) == 0 {
		return
	}

	batches := batchTokens(tokens, f.cfg.BatchSize)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(venueCfg.MaxConcurrentReqs)

	for _, batch := range batches {
		batch := batch
		group.Go(func() error {
			if err := venueCfg.RateLimiter.Acquire(groupCtx); err != nil {
				if groupCtx.Err() != nil {
					return nil // ctx canceled; nothing more to do
				}
				BatchErrorsTotal.WithLabelValues(string(venueName)).Inc()
				f.logger.Warn("bookfetcher-ratelimit-acquire-failed",
					zap.String("venue", string(venueName)),
					zap.Int("batch-size", len(batch)),
					zap.Error(err))
				return nil // don't abort sibling batches
			}

			snapshots, err := venueCfg.Client.GetBooksBatch(groupCtx, batch)
			if err != nil {
				BatchErrorsTotal.WithLabelValues(string(venueName)).Inc()
				f.logger.Warn("bookfetcher-batch-failed",
					zap.String("venue", string(venueName)),
					zap.Int("batch-size", len(batch)),
					zap.Error(err))
				return nil // don't abort sibling batches
			}

			merge(snapshots)
			return nil
		})
	}

	_ = group.Wait()
}

func batchTokens(tokens []types.Token, batchSize int) [][]types.Token {
	var batches [][]types.Token
	for i := 0; i < len(tokens); i += batchSize {
		end := i + batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, tokens[i:end])
	}
	return batches
}

func (f *Fetcher) updateIndex(key string, snapshot types.BookSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, ok := f.indexes[key]
	if !ok {
		idx = newBookIndex()
		f.indexes[key] = idx
	}
	idx.replace(snapshot.Asks)
}

// DepthAtOrBetterAsk exposes the btree-backed depth query for a token's
// most recently indexed book, used by strategies evaluating a
// slippage-cap price beyond the top-of-book level already in the frame.
func (f *Fetcher) DepthAtOrBetterAsk(token types.Token, maxPrice float64) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	idx, ok := f.indexes[token.Key()]
	if !ok {
		return 0
	}
	return idx.depthAtOrBetterAsk(maxPrice)
}
