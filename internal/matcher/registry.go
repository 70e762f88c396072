// Package matcher builds and maintains the set of matched cross-venue
// market pairs (spec §4.B), grounded on the prior adapter's
// internal/discovery/{discovery.go,client.go} polling-loop shape,
// generalized from single-venue discovery to cross-venue matching.
package matcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/internal/venue"
	"github.com/mselser95/arbengine/pkg/types"
)

// Config configures the Matcher.
type Config struct {
	OpinionClient    venue.Client
	PolymarketClient venue.Client
	Cache            *SimilarityCache // memoizes title-similarity scores across refreshes

	RefreshInterval           time.Duration // spec: "no more often than every 5 minutes"
	SimilarityThreshold       float64       // spec default 0.85
	MaxResolutionDeltaHours   float64       // spec default 48
	BothVenuesDownGracePeriod time.Duration // spec: "if both venues fail for > 30 minutes"

	Logger *zap.Logger
}

// Matcher is the sole owner of the pair registry; it refreshes it in
// place under a lock and exposes a read-only snapshot to consumers.
type Matcher struct {
	cfg Config

	mu               sync.RWMutex
	pairs            map[string]types.MarketPair // keyed by ID
	opinionByMarket  map[string]types.MarketSummary
	polyByMarket     map[string]types.MarketSummary
	opinionLastOK    time.Time
	polymarketLastOK time.Time

	logger *zap.Logger
}

// New constructs a Matcher with sane defaults for any unset config field.
func New(cfg Config) (*Matcher, error) {
	if cfg.OpinionClient == nil || cfg.PolymarketClient == nil {
		return nil, fmt.Errorf("matcher: both venue clients required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("matcher: logger required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}
	if cfg.MaxResolutionDeltaHours <= 0 {
		cfg.MaxResolutionDeltaHours = 48
	}
	if cfg.BothVenuesDownGracePeriod <= 0 {
		cfg.BothVenuesDownGracePeriod = 30 * time.Minute
	}

	now := time.Now()
	return &Matcher{
		cfg:              cfg,
		pairs:            make(map[string]types.MarketPair),
		opinionByMarket:  make(map[string]types.MarketSummary),
		polyByMarket:     make(map[string]types.MarketSummary),
		opinionLastOK:    now,
		polymarketLastOK: now,
		logger:           cfg.Logger,
	}, nil
}

// Snapshot returns an immutable copy of the current pair set. Consumers
// treat it as immutable between snapshots, per spec's Data Model
// ownership rule.
func (m *Matcher) Snapshot() []types.MarketPair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.MarketPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		out = append(out, p)
	}
	return out
}

// BothVenuesDown reports whether both venues have failed to refresh for
// longer than the configured grace period, per spec §4.B's failure
// policy: "If both venues fail for > 30 minutes the Supervisor halts new
// opportunities."
func (m *Matcher) BothVenuesDown(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return now.Sub(m.opinionLastOK) > m.cfg.BothVenuesDownGracePeriod &&
		now.Sub(m.polymarketLastOK) > m.cfg.BothVenuesDownGracePeriod
}

// Run starts the periodic refresh loop; blocks until ctx is canceled.
func (m *Matcher) Run(ctx context.Context) {
	m.logger.Info("matcher-started", zap.Duration("refresh-interval", m.cfg.RefreshInterval))

	m.refresh(ctx)

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("matcher-stopped")
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

// refresh implements spec §4.B steps 1-4: refresh each venue's market
// list, match unmatched venue-A markets against venue-B candidates, and
// re-verify (but not re-match) sticky pairs.
func (m *Matcher) refresh(ctx context.Context) {
	start := time.Now()
	defer func() {
		MatcherRefreshDuration.Observe(time.Since(start).Seconds())
	}()

	opinionMarkets, opinionErr := listAllMarkets(ctx, m.cfg.OpinionClient)
	if opinionErr != nil {
		MatcherVenueFailuresTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
		m.logger.Warn("matcher-refresh-opinion-failed", zap.Error(opinionErr))
	}

	polyMarkets, polyErr := listAllMarkets(ctx, m.cfg.PolymarketClient)
	if polyErr != nil {
		MatcherVenueFailuresTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
		m.logger.Warn("matcher-refresh-polymarket-failed", zap.Error(polyErr))
	}

	m.mu.Lock()
	now := time.Now()
	if opinionErr == nil {
		m.opinionLastOK = now
		m.opinionByMarket = make(map[string]types.MarketSummary, len(opinionMarkets))
		for _, mkt := range opinionMarkets {
			m.opinionByMarket[mkt.MarketID] = mkt
		}
	}
	if polyErr == nil {
		m.polymarketLastOK = now
		m.polyByMarket = make(map[string]types.MarketSummary, len(polyMarkets))
		for _, mkt := range polyMarkets {
			m.polyByMarket[mkt.MarketID] = mkt
		}
	}

	// Step 4: re-verify sticky pairs — mark closed sides, drop pairs whose
	// underlying markets have both vanished from their venues' lists.
	matchedOpinionIDs := make(map[string]struct{}, len(m.pairs))
	for id, pair := range m.pairs {
		opinionMkt, opinionKnown := m.opinionByMarket[pair.OpinionYes.MarketID]
		polyMkt, polyKnown := m.polyByMarket[pair.PolymarketYes.MarketID]
		if !opinionKnown && !polyKnown {
			delete(m.pairs, id)
			continue
		}
		if opinionKnown {
			pair.OpinionClosed = opinionMkt.Closed
		}
		if polyKnown {
			pair.PolymarketClosed = polyMkt.Closed
		}
		pair.LastVerifiedAt = now
		m.pairs[id] = pair
		matchedOpinionIDs[pair.OpinionYes.MarketID] = struct{}{}
	}

	// Steps 2-3: match every unmatched, still-open venue-A market.
	newPairs := 0
	for _, opinionMkt := range m.opinionByMarket {
		if opinionMkt.Closed {
			continue
		}
		if _, already := matchedOpinionIDs[opinionMkt.MarketID]; already {
			continue
		}

		best, bestScore, found := m.bestCandidate(opinionMkt)
		if !found || bestScore < m.cfg.SimilarityThreshold {
			continue
		}

		pair := types.MarketPair{
			ID:              uuid.NewString(),
			OpinionYes:      opinionMkt.YesToken,
			OpinionNo:       opinionMkt.NoToken,
			PolymarketYes:   best.YesToken,
			PolymarketNo:    best.NoToken,
			SimilarityScore: bestScore,
			ResolutionDate:  opinionMkt.ResolutionDate,
			MatchedAt:       now,
			LastVerifiedAt:  now,
		}
		m.pairs[pair.ID] = pair
		newPairs++
	}

	MatcherNewPairsTotal.Add(float64(newPairs))
	MatcherPairsActive.Set(float64(len(m.pairs)))
	m.mu.Unlock()

	outcome := "ok"
	if opinionErr != nil && polyErr != nil {
		outcome = "both_failed"
	} else if opinionErr != nil || polyErr != nil {
		outcome = "partial_failure"
	}
	MatcherRefreshTotal.WithLabelValues(outcome).Inc()

	m.logger.Info("matcher-refresh-complete",
		zap.Int("new-pairs", newPairs),
		zap.Int("total-pairs", len(m.pairs)),
		zap.Duration("duration", time.Since(start)))
}

// bestCandidate finds the venue-B market with the highest title similarity
// against opinionMkt among candidates with title similarity ≥ threshold
// AND resolution dates within the configured window; ties broken by
// earlier resolution date. The resolution-date gap is a filter only and
// does not enter the score.
func (m *Matcher) bestCandidate(opinionMkt types.MarketSummary) (types.MarketSummary, float64, bool) {
	var best types.MarketSummary
	bestScore := -1.0
	found := false

	for _, polyMkt := range m.polyByMarket {
		if polyMkt.Closed {
			continue
		}

		deltaHours := opinionMkt.ResolutionDate.Sub(polyMkt.ResolutionDate).Hours()
		if deltaHours < 0 {
			deltaHours = -deltaHours
		}
		if deltaHours > m.cfg.MaxResolutionDeltaHours {
			continue
		}

		score := m.similarityMemoized(opinionMkt.Title, polyMkt.Title)
		if score < m.cfg.SimilarityThreshold {
			continue
		}

		betterScore := score > bestScore
		tie := score == bestScore && found && polyMkt.ResolutionDate.Before(best.ResolutionDate)
		if betterScore || tie {
			best = polyMkt
			bestScore = score
			found = true
		}
	}

	return best, bestScore, found
}

func (m *Matcher) similarityMemoized(titleA, titleB string) float64 {
	if score, ok := m.cfg.Cache.score(titleA, titleB); ok {
		return score
	}

	score := titleSimilarity(titleA, titleB)
	m.cfg.Cache.remember(titleA, titleB, score)
	return score
}

// listAllMarkets drains list_markets pagination for one venue.
func listAllMarkets(ctx context.Context, client venue.Client) ([]types.MarketSummary, error) {
	var all []types.MarketSummary
	cursor := ""
	for {
		page, err := client.ListMarkets(ctx, "active", cursor)
		if err != nil {
			if len(all) > 0 {
				// partial page already collected; return what we have
				// alongside the error. refresh() treats any error as a
				// failed refresh and keeps the venue's previous market set.
				return all, err
			}
			return nil, err
		}
		all = append(all, page.Markets...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return all, nil
}
