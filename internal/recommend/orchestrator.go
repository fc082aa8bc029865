// Movierec - Personalized Movie & TV Recommendation Engine
// Copyright 2026 Movierec contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/movierec/movierec

package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/movierec/movierec/internal/metrics"
	"github.com/movierec/movierec/internal/profile"
)

// OrchestratorConfig holds aggregation tunables.
type OrchestratorConfig struct {
	// BatchSize is the target number of items per batch.
	BatchSize int

	// MinResults is the minimum item count below which the next tier is
	// consulted.
	MinResults int

	// DiscoverPages is the parallel fan-out width of the discovery tier.
	DiscoverPages int

	// SupplementaryPages bounds the top-rated tier.
	SupplementaryPages int

	// OverRequestFactor multiplies the cache tier request size so results
	// survive later exclusion filtering.
	OverRequestFactor int

	// Seed seeds the RNG used for probabilistic content-type derivation
	// and generic page selection. Zero means a fixed default.
	Seed int64

	// MaxFavoriteLookups bounds how many favorites are fetched to derive
	// genre weights.
	MaxFavoriteLookups int
}

// DefaultOrchestratorConfig returns production defaults: batches of 9 shown
// 3 at a time, minimum 3, five-page discovery fan-out.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		BatchSize:          9,
		MinResults:         3,
		DiscoverPages:      5,
		SupplementaryPages: 3,
		OverRequestFactor:  3,
		MaxFavoriteLookups: 8,
	}
}

// Request carries the inputs for one aggregation run. The exclusion tracker
// is shared with the owning session and may be mutated concurrently by UI
// actions; the orchestrator re-checks it before returning.
type Request struct {
	UserID string

	// Filter is the explicit content-type filter, or empty.
	Filter ContentType

	Profile   *profile.Profile
	Favorites []MediaRef
	Watchlist []MediaRef

	Exclusions *ExclusionTracker

	// ForceRefresh skips the cache tier entirely.
	ForceRefresh bool

	// BehavioralOnly marks a run driven by favorites/watchlist instead of
	// declared preferences; discovery results are tagged favorites-match.
	BehavioralOnly bool
}

// Orchestrator is the tiered fetch state machine. Tiers execute strictly in
// priority order: cache, preference discovery, supplementary top-rated,
// generic trending. A tier's network failure counts as zero results from
// that tier and never aborts the run.
type Orchestrator struct {
	cache   CacheProvider
	catalog CatalogProvider
	cfg     OrchestratorConfig
	logger  zerolog.Logger

	// rng drives content-type derivation and generic page choice.
	rng   *rand.Rand
	rngMu sync.Mutex

	// now is injectable for deterministic scoring in tests.
	now func() time.Time
}

// NewOrchestrator creates an orchestrator. The cache provider may be nil,
// in which case the cache tier always reports zero results.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(cache CacheProvider, catalog CatalogProvider, cfg OrchestratorConfig, logger zerolog.Logger) (*Orchestrator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog provider is required")
	}
	if cfg.BatchSize <= 0 || cfg.MinResults <= 0 || cfg.MinResults > cfg.BatchSize {
		return nil, fmt.Errorf("invalid orchestrator config: batch=%d min=%d", cfg.BatchSize, cfg.MinResults)
	}
	if cfg.DiscoverPages <= 0 {
		cfg.DiscoverPages = 5
	}
	if cfg.SupplementaryPages <= 0 {
		cfg.SupplementaryPages = 3
	}
	if cfg.OverRequestFactor <= 0 {
		cfg.OverRequestFactor = 3
	}
	if cfg.MaxFavoriteLookups <= 0 {
		cfg.MaxFavoriteLookups = 8
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	return &Orchestrator{
		cache:   cache,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // not used for security
		now:     time.Now,
	}, nil
}

// Run executes one aggregation pass and returns a batch. An empty batch is
// the terminal exhaustion state, not an error; the only error Run returns
// is context cancellation.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Batch, error) {
	start := o.now()
	logger := o.logger.With().Str("user_id", req.UserID).Str("filter", string(req.Filter)).Logger()

	weights := o.deriveGenreWeights(ctx, req)
	moods := profileMoods(req.Profile)

	var collected []ScoredItem
	source := SourceNone

	// Tier 1: server-side cache.
	if !req.ForceRefresh {
		if items := o.cacheTier(ctx, req, weights, moods, logger); len(items) >= o.cfg.MinResults {
			collected = items
			source = SourceCache
		}
	}

	// Tier 2: preference discovery.
	if len(collected) < o.cfg.MinResults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, tierSource := o.discoveryTier(ctx, req, weights, moods, logger)
		if len(items) > 0 {
			collected = appendDistinct(collected, items, o.cfg.BatchSize)
			if source == SourceNone {
				source = tierSource
			}
		}
	}

	// Tier 3: supplementary top-rated.
	if len(collected) < o.cfg.MinResults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := len(collected)
		collected = o.supplementaryTier(ctx, req, collected, weights, moods, logger)
		if len(collected) > before && source == SourceNone {
			source = SourceSupplementary
		}
	}

	// Tier 4: generic trending.
	if len(collected) < o.cfg.MinResults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := len(collected)
		collected = o.genericTier(ctx, req, collected, weights, moods, logger)
		if len(collected) > before && source == SourceNone {
			source = SourceGeneric
		}
	}

	// Favorites/watchlist may have changed mid-fetch: re-check every
	// collected item and top up once from the generic tier if the
	// re-check drops the count below minimum.
	recheck := collected[:0:0]
	for _, item := range collected {
		if !req.Exclusions.Excluded(item.ID) {
			recheck = append(recheck, item)
		}
	}
	if len(recheck) < len(collected) && len(recheck) < o.cfg.MinResults {
		recheck = o.genericTier(ctx, req, recheck, weights, moods, logger)
		if len(recheck) > 0 && source == SourceNone {
			source = SourceGeneric
		}
	}
	collected = recheck

	if len(collected) > o.cfg.BatchSize {
		collected = collected[:o.cfg.BatchSize]
	}

	metrics.OrchestrationDuration.Observe(o.now().Sub(start).Seconds())

	if len(collected) == 0 {
		metrics.Orchestrations.WithLabelValues("empty").Inc()
		logger.Info().Msg("all tiers exhausted with zero results")
		return &Batch{
			Items:     []ScoredItem{},
			Source:    SourceNone,
			Reason:    SourceNone.Reason(),
			CreatedAt: o.now(),
		}, nil
	}

	metrics.Orchestrations.WithLabelValues("success").Inc()
	logger.Debug().
		Int("items", len(collected)).
		Str("source", string(source)).
		Msg("aggregation complete")

	return &Batch{
		Items:     collected,
		Source:    source,
		Reason:    source.Reason(),
		CreatedAt: o.now(),
	}, nil
}

// cacheTier queries the server-side recommendation cache. Requests 3x the
// batch size so results survive later exclusion filtering.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) cacheTier(ctx context.Context, req Request, weights []GenreWeight, moods []string, logger zerolog.Logger) []ScoredItem {
	if o.cache == nil {
		return nil
	}

	metrics.TierAttempts.WithLabelValues(string(SourceCache)).Inc()

	exclude := req.Exclusions.Union()
	items, err := o.cache.Recommendations(ctx, CacheQuery{
		ContentType:  req.Filter,
		Limit:        o.cfg.BatchSize * o.cfg.OverRequestFactor,
		ExcludeIDs:   setToSlice(exclude),
		Profile:      req.Profile,
		FavoriteIDs:  RefIDs(req.Favorites),
		WatchlistIDs: RefIDs(req.Watchlist),
	})
	if err != nil {
		metrics.TierFailures.WithLabelValues(string(SourceCache)).Inc()
		logger.Warn().Err(err).Msg("cache tier failed, continuing to discovery")
		return nil
	}

	survivors := filterCandidates(items, exclude, nil)
	scored := scoreAll(survivors, weights, moods, SourceCache, o.now())
	if len(scored) > o.cfg.BatchSize {
		scored = scored[:o.cfg.BatchSize]
	}

	metrics.TierItems.WithLabelValues(string(SourceCache)).Add(float64(len(scored)))
	return scored
}

// discoveryTier issues parallel page requests to the discovery collaborator
// and merges the results deterministically by page order before scoring, so
// final ordering is a pure function of the scores, not of completion order.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) discoveryTier(ctx context.Context, req Request, weights []GenreWeight, moods []string, logger zerolog.Logger) ([]ScoredItem, Source) {
	source := SourcePreferenceMatch
	if req.BehavioralOnly {
		source = SourceFavoritesMatch
	}

	metrics.TierAttempts.WithLabelValues(string(source)).Inc()

	base := o.buildDiscoverQuery(req, weights)

	pages := make([][]CatalogItem, o.cfg.DiscoverPages)
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.DiscoverPages; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			q := base
			q.Page = idx + 1
			items, err := o.catalog.Discover(ctx, q)
			if err != nil {
				logger.Warn().Err(err).Int("page", idx+1).Msg("discovery page failed")
				return
			}
			pages[idx] = items
		}(i)
	}
	wg.Wait()

	exclude := req.Exclusions.Union()
	seen := make(map[int]struct{})
	var merged []CatalogItem
	for _, page := range pages {
		merged = append(merged, filterCandidates(page, exclude, seen)...)
	}

	if len(merged) == 0 {
		metrics.TierFailures.WithLabelValues(string(source)).Inc()
		return nil, source
	}

	scored := scoreAll(merged, weights, moods, source, o.now())
	if len(scored) > o.cfg.BatchSize {
		scored = scored[:o.cfg.BatchSize]
	}

	metrics.TierItems.WithLabelValues(string(source)).Add(float64(len(scored)))
	return scored, source
}

// supplementaryTier pulls top-rated pages until the minimum is met or pages
// are exhausted, filtering against the now-larger exclusion set including
// items already picked in this run.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) supplementaryTier(ctx context.Context, req Request, collected []ScoredItem, weights []GenreWeight, moods []string, logger zerolog.Logger) []ScoredItem {
	metrics.TierAttempts.WithLabelValues(string(SourceSupplementary)).Inc()

	ct := o.deriveContentType(req)

	for page := 1; page <= o.cfg.SupplementaryPages && len(collected) < o.cfg.MinResults; page++ {
		items, err := o.catalog.TopRated(ctx, ct, page)
		if err != nil {
			metrics.TierFailures.WithLabelValues(string(SourceSupplementary)).Inc()
			logger.Warn().Err(err).Int("page", page).Msg("supplementary tier page failed")
			continue
		}

		exclude := req.Exclusions.Union(scoredIDs(collected))
		survivors := filterCandidates(items, exclude, nil)
		scored := scoreAll(survivors, weights, moods, SourceSupplementary, o.now())

		before := len(collected)
		collected = appendDistinct(collected, scored, o.cfg.BatchSize)
		metrics.TierItems.WithLabelValues(string(SourceSupplementary)).Add(float64(len(collected) - before))
	}

	return collected
}

// genericTier is the last resort: a single random trending page.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) genericTier(ctx context.Context, req Request, collected []ScoredItem, weights []GenreWeight, moods []string, logger zerolog.Logger) []ScoredItem {
	metrics.TierAttempts.WithLabelValues(string(SourceGeneric)).Inc()

	o.rngMu.Lock()
	page := o.rng.Intn(10) + 1
	o.rngMu.Unlock()

	items, err := o.catalog.Trending(ctx, o.deriveContentType(req), page)
	if err != nil {
		metrics.TierFailures.WithLabelValues(string(SourceGeneric)).Inc()
		logger.Warn().Err(err).Int("page", page).Msg("generic tier failed")
		return collected
	}

	exclude := req.Exclusions.Union(scoredIDs(collected))
	survivors := filterCandidates(items, exclude, nil)
	scored := scoreAll(survivors, weights, moods, SourceGeneric, o.now())

	before := len(collected)
	collected = appendDistinct(collected, scored, o.cfg.BatchSize)
	metrics.TierItems.WithLabelValues(string(SourceGeneric)).Add(float64(len(collected) - before))

	return collected
}

// deriveGenreWeights merges declared preference genres (weight 2) with
// favorite-derived genres (weight 1), deduplicated favoring the higher
// weight. Favorite details lookups are best-effort: failures just narrow
// the weight list.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) deriveGenreWeights(ctx context.Context, req Request) []GenreWeight {
	byID := make(map[int]int)

	if req.Profile != nil {
		for id := range req.Profile.GenreRatings {
			byID[id] = GenreWeightPreference
		}
	}

	lookups := req.Favorites
	if len(lookups) > o.cfg.MaxFavoriteLookups {
		lookups = lookups[:o.cfg.MaxFavoriteLookups]
	}
	for _, ref := range lookups {
		item, err := o.catalog.Details(ctx, ref.Type, ref.ID)
		if err != nil || item == nil {
			continue
		}
		for _, id := range item.GenreIDs {
			if byID[id] < GenreWeightFavorite {
				byID[id] = GenreWeightFavorite
			}
		}
	}

	weights := make([]GenreWeight, 0, len(byID))
	for id, w := range byID {
		weights = append(weights, GenreWeight{ID: id, Weight: w})
	}
	return weights
}

// deriveContentType picks the content type for catalog queries: the
// explicit filter, else the declared preference, else probabilistically
// from the user's historical movie:show ratio.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) deriveContentType(req Request) ContentType {
	if req.Filter == ContentTypeMovie || req.Filter == ContentTypeShow {
		return req.Filter
	}
	if req.Profile != nil {
		if ct := req.Profile.ContentType; ct == ContentTypeMovie || ct == ContentTypeShow {
			return ct
		}
	}

	movies, shows := 0, 0
	for _, ref := range append(append([]MediaRef(nil), req.Favorites...), req.Watchlist...) {
		switch ref.Type {
		case ContentTypeMovie:
			movies++
		case ContentTypeShow:
			shows++
		}
	}

	p := 0.5
	if movies+shows > 0 {
		p = float64(movies) / float64(movies+shows)
	}

	o.rngMu.Lock()
	roll := o.rng.Float64()
	o.rngMu.Unlock()

	if roll < p {
		return ContentTypeMovie
	}
	return ContentTypeShow
}

// buildDiscoverQuery translates profile preferences into discovery filter
// parameters: era to release-date bounds, language, and runtime bounds.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) buildDiscoverQuery(req Request, weights []GenreWeight) DiscoverQuery {
	q := DiscoverQuery{
		ContentType: o.deriveContentType(req),
	}

	for _, w := range weights {
		q.GenreIDs = append(q.GenreIDs, w.ID)
	}

	p := req.Profile
	if p == nil {
		return q
	}

	q.ReleaseAfter, q.ReleaseBefore = eraBounds(p.Era, o.now())
	q.Language = p.Language
	q.RuntimeMin, q.RuntimeMax = runtimeBounds(p.Runtime)

	return q
}

// eraBounds maps an era preference onto release-date bounds.
func eraBounds(era string, now time.Time) (after, before string) {
	switch era {
	case "classic":
		return "", "1979-12-31"
	case "eighties":
		return "1980-01-01", "1989-12-31"
	case "nineties":
		return "1990-01-01", "1999-12-31"
	case "two_thousands":
		return "2000-01-01", "2009-12-31"
	case "twenty_tens":
		return "2010-01-01", "2019-12-31"
	case "recent":
		return now.AddDate(-5, 0, 0).Format("2006-01-02"), ""
	default:
		return "", ""
	}
}

// runtimeBounds maps a runtime preference onto minute bounds.
func runtimeBounds(runtime string) (lo, hi int) {
	switch runtime {
	case "short":
		return 0, 90
	case "medium":
		return 90, 120
	case "long":
		return 120, 0
	default:
		return 0, 0
	}
}

// profileMoods returns the profile's mood tags, or nil for absent profiles.
func profileMoods(p *profile.Profile) []string {
	if p == nil {
		return nil
	}
	return p.Moods
}

// filterCandidates drops items that lack artwork or overview, are excluded,
// or were already seen in this run. When seen is non-nil it is updated so
// later pages deduplicate against earlier ones.
func filterCandidates(items []CatalogItem, exclude map[int]struct{}, seen map[int]struct{}) []CatalogItem {
	out := make([]CatalogItem, 0, len(items))
	for i := range items {
		item := items[i]
		if !item.Displayable() {
			continue
		}
		if _, ok := exclude[item.ID]; ok {
			continue
		}
		if seen != nil {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

// appendDistinct appends items not already collected, up to limit.
func appendDistinct(collected, items []ScoredItem, limit int) []ScoredItem {
	have := make(map[int]struct{}, len(collected))
	for _, it := range collected {
		have[it.ID] = struct{}{}
	}

	for _, it := range items {
		if len(collected) >= limit {
			break
		}
		if _, ok := have[it.ID]; ok {
			continue
		}
		collected = append(collected, it)
		have[it.ID] = struct{}{}
	}
	return collected
}

// scoredIDs extracts ids from scored items.
func scoredIDs(items []ScoredItem) []int {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

// setToSlice flattens an id set for wire transport.
func setToSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
