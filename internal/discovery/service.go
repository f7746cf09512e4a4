package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nearcare/provider-discovery/internal/geo"
)

// ErrInvalidQuery is the only error FindNearby surfaces to callers. Every
// downstream failure degrades to a smaller result set instead.
var ErrInvalidQuery = errors.New("invalid discovery query")

// MaxRadiusMeters bounds a query window; the bounding-box math is a planar
// approximation that stops being conservative at continental scale.
const MaxRadiusMeters = 100_000

// FreshnessPolicy decides when a cached window needs an upstream refresh.
type FreshnessPolicy string

const (
	// FreshnessAny refreshes the whole window as soon as any member is
	// older than the TTL. Conservative: avoids skew between neighboring
	// records fetched at different times.
	FreshnessAny FreshnessPolicy = "any"

	// FreshnessAll refreshes only when every member is expired, trading
	// staleness for fewer upstream calls.
	FreshnessAll FreshnessPolicy = "all"
)

// Query is a validated nearby request.
type Query struct {
	Lat          float64
	Lon          float64
	RadiusMeters float64
	Category     Category // "" matches everything
}

func (q Query) validate() error {
	if math.IsNaN(q.Lat) || math.IsInf(q.Lat, 0) || q.Lat < -90 || q.Lat > 90 {
		return fmt.Errorf("%w: latitude must be a finite value in [-90, 90]", ErrInvalidQuery)
	}
	if math.IsNaN(q.Lon) || math.IsInf(q.Lon, 0) || q.Lon < -180 || q.Lon > 180 {
		return fmt.Errorf("%w: longitude must be a finite value in [-180, 180]", ErrInvalidQuery)
	}
	if math.IsNaN(q.RadiusMeters) || q.RadiusMeters <= 0 || q.RadiusMeters > MaxRadiusMeters {
		return fmt.Errorf("%w: radius must be in (0, %d] meters", ErrInvalidQuery, MaxRadiusMeters)
	}
	if q.Category != "" {
		known := false
		for _, c := range KnownCategories {
			if q.Category == c {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, q.Category)
		}
	}
	return nil
}

// ServiceOptions tunes the coordinator. Zero values fall back to defaults.
type ServiceOptions struct {
	TTL    time.Duration
	Policy FreshnessPolicy
	Logger *zap.Logger
	Now    func() time.Time
}

// Service orchestrates a nearby request: cache read, freshness check,
// conditional upstream refresh, reconciliation and distance ranking.
// It is stateless between calls; requests never share mutable state beyond
// the store and the fixed mirror list.
type Service struct {
	store   Store
	fetcher Fetcher
	ttl     time.Duration
	policy  FreshnessPolicy
	log     *zap.Logger
	now     func() time.Time
}

// NewService creates a Service over the given cache store and upstream
// fetcher.
func NewService(store Store, fetcher Fetcher, opts ServiceOptions) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Policy == "" {
		opts.Policy = FreshnessAny
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		ttl:     opts.TTL,
		policy:  opts.Policy,
		log:     opts.Logger,
		now:     opts.Now,
	}
}

// FindNearby answers "what providers are near this point". Only an invalid
// query is an error; upstream and storage outages degrade to smaller result
// sets so that discovery always attempts to answer.
func (s *Service) FindNearby(ctx context.Context, q Query) (Result, error) {
	if err := q.validate(); err != nil {
		return Result{}, err
	}

	bounds := geo.BoundingBox(q.Lat, q.Lon, q.RadiusMeters)

	cached, err := s.store.FindInBoundingBox(ctx, bounds, q.Category)
	if err != nil {
		// A store outage is "nothing cached", not a fatal error.
		s.log.Warn("cache read degraded, treating window as empty", zap.Error(err))
		cached = nil
	}

	if !s.stale(cached) {
		return Result{Provenance: ProvenanceCache, Results: s.rank(q, cached)}, nil
	}

	candidates := s.refresh(ctx, q, bounds, cached)
	return Result{Provenance: ProvenanceLive, Results: s.rank(q, candidates)}, nil
}

// refresh fetches the window from upstream, reconciles it into the cache and
// returns the candidate set to rank. Stale cached records are the last
// resort when upstream produced nothing at all.
func (s *Service) refresh(ctx context.Context, q Query, bounds geo.Bounds, cached []ProviderRecord) []ProviderRecord {
	fetched, err := s.fetcher.FetchWindow(ctx, bounds)
	if err != nil {
		s.log.Warn("upstream refresh failed, serving cached window", zap.Error(err))
		return cached
	}
	if len(fetched) == 0 {
		// Either genuinely nothing in range or every mirror degraded;
		// superseded-in-place records beat an empty answer.
		return cached
	}

	filtered := FilterByCategory(fetched, q.Category)
	if len(filtered) == 0 {
		// Upstream answered authoritatively and nothing matched the
		// requested category.
		return nil
	}

	batch := s.store.UpsertBatch(ctx, filtered)
	if len(batch.Failed) > 0 {
		s.log.Warn("cache reconciliation partially failed",
			zap.Int("saved", batch.Saved),
			zap.Int("failed", len(batch.Failed)))
	}
	if batch.AllFailed() {
		// Serve the unpersisted records directly; the response stays
		// correct even when nothing was written for next time.
		return filtered
	}

	// Prefer re-reading from the store to normalize shape; the fetched
	// records are an acceptable equivalent when the re-read degrades.
	// The re-read is unfiltered so the name heuristic still applies to
	// records whose stored category is free text.
	reread, err := s.store.FindInBoundingBox(ctx, bounds, "")
	if err != nil {
		return filtered
	}
	if reread = FilterByCategory(reread, q.Category); len(reread) == 0 {
		return filtered
	}
	return reread
}

// stale applies the freshness policy: an empty window is always stale, and a
// non-empty one is judged by the configured policy against the TTL.
func (s *Service) stale(recs []ProviderRecord) bool {
	if len(recs) == 0 {
		return true
	}
	cutoff := s.now().Add(-s.ttl)

	switch s.policy {
	case FreshnessAll:
		for _, r := range recs {
			if r.LastFetchedAt.After(cutoff) {
				return false
			}
		}
		return true
	default:
		for _, r := range recs {
			if !r.LastFetchedAt.After(cutoff) {
				return true
			}
		}
		return false
	}
}

// rank attaches the true great-circle distance from the query center to each
// candidate, drops candidates beyond the requested radius (the bounding box
// was only a pre-filter; haversine is the ground truth) and sorts ascending.
func (s *Service) rank(q Query, recs []ProviderRecord) []RankedProvider {
	ranked := make([]RankedProvider, 0, len(recs))
	for _, r := range recs {
		d := geo.DistanceKm(q.Lat, q.Lon, r.Latitude, r.Longitude)
		if d*1000 > q.RadiusMeters {
			continue
		}
		ranked = append(ranked, RankedProvider{
			ProviderRecord: r,
			DistanceKm:     math.Round(d*100) / 100,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}
