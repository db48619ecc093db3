package services

import (
	"context"
	"errors"
	"fmt"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/metrics"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/ports"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyQuery is returned for blank queries; callers treat it as a no-op.
var ErrEmptyQuery = errors.New("resolve: query must be non-empty")

// FailurePolicy decides what a failed candidate does to the resolution.
type FailurePolicy string

const (
	// FailWhole fails the resolution with the first failed candidate
	// (in directory order).
	FailWhole FailurePolicy = "fail"
	// SkipFailed drops failed candidates; the resolution fails only when
	// none succeeded.
	SkipFailed FailurePolicy = "skip"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailWhole:
		return FailWhole, nil
	case SkipFailed:
		return SkipFailed, nil
	default:
		return "", fmt.Errorf("parse failure policy: unknown policy %q", s)
	}
}

type ResolverConfig struct {
	// FanOutLimit bounds concurrent candidate lookups; <= 0 means unbounded.
	FanOutLimit   int
	FailurePolicy FailurePolicy
}

// Resolver finds the nearest known shelter to a query address.
// It holds no per-query state and is safe for concurrent use.
type Resolver struct {
	directory *Directory
	geocoder  ports.Geocoder
	estimator ports.TravelEstimator
	store     ports.CoordinateStore
	cfg       ResolverConfig
}

// NewResolver wires a resolver. store is optional and off by default
// (COORD_STORE=none): with a nil store every shelter address is geocoded on
// every resolution, which is the normal mode of operation. A store only
// ever holds shelter coordinates, never queries or travel estimates.
func NewResolver(
	dir *Directory,
	geocoder ports.Geocoder,
	estimator ports.TravelEstimator,
	store ports.CoordinateStore,
	cfg ResolverConfig,
) *Resolver {
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailWhole
	}
	if dir == nil {
		dir = NewDirectory(nil)
	}
	return &Resolver{
		directory: dir,
		geocoder:  geocoder,
		estimator: estimator,
		store:     store,
		cfg:       cfg,
	}
}

func (r *Resolver) Directory() *Directory { return r.directory }

type candidateResult struct {
	location domain.ShelterLocation
	coords   domain.Coordinates
	estimate domain.TravelEstimate
	fresh    bool // coords came from the geocoder rather than the store
	err      error
}

// Resolve returns the nearest shelter to query under mode.
//
// Errors are *domain.QueryError for provider and directory failures,
// ErrEmptyQuery for a blank query, or the context error when ctx ends first.
func (r *Resolver) Resolve(
	ctx context.Context,
	query string,
	mode domain.TravelMode,
) (_ *domain.ResolutionResult, err error) {
	defer obs.Time(ctx, "resolver.Resolve")(&err)
	defer func(start time.Time) {
		metrics.ResolutionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		metrics.ResolutionDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}(time.Now())

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if mode == "" {
		mode = domain.DefaultTravelMode
	}

	locations := r.directory.Snapshot()
	if len(locations) == 0 {
		return nil, &domain.QueryError{Kind: domain.EmptyDirectory, Err: r.directory.LoadErr()}
	}

	origin, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, classify(ctx, err, domain.GeocodeFailed, query)
	}

	known := r.storedCoordinates(ctx, locations)

	// Fan out one lookup per candidate and join them all. Candidates report
	// failures through their result slot, so one failure never stops the rest.
	results := make([]candidateResult, len(locations))
	var g errgroup.Group
	if r.cfg.FanOutLimit > 0 {
		g.SetLimit(r.cfg.FanOutLimit)
	}
	for i, loc := range locations {
		i, loc := i, loc
		coords, ok := known[domain.NormalizeAddress(loc.Address)]
		g.Go(func() error {
			results[i] = r.resolveCandidate(ctx, origin, loc, coords, ok, mode)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.storeFresh(ctx, results)

	best, err := r.nearest(results)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("req_id", obs.RequestID(ctx)).
		Str("mode", mode.String()).
		Str("shelter", best.location.Address).
		Int("distance_m", best.estimate.DistanceMeters).
		Int("candidates", len(results)).
		Msg("nearest shelter resolved")

	return &domain.ResolutionResult{
		Query:       query,
		Mode:        mode,
		Location:    best.location,
		Estimate:    best.estimate,
		Origin:      origin,
		Destination: best.coords,
	}, nil
}

func (r *Resolver) resolveCandidate(
	ctx context.Context,
	origin domain.Coordinates,
	loc domain.ShelterLocation,
	coords domain.Coordinates,
	known bool,
	mode domain.TravelMode,
) candidateResult {
	res := candidateResult{location: loc, coords: coords}

	if !known {
		c, err := r.geocoder.Geocode(ctx, loc.Address)
		if err != nil {
			res.err = classify(ctx, err, domain.GeocodeFailed, loc.Address)
			return res
		}
		res.coords = c
		res.fresh = true
	}

	est, err := r.estimator.Estimate(ctx, origin, res.coords, mode)
	if err != nil {
		res.err = classify(ctx, err, domain.DistanceFailed, loc.Address)
		return res
	}
	res.estimate = est

	return res
}

// nearest applies the failure policy and picks the minimum distance.
// The scan runs in directory order with a strict less-than, so the first
// candidate wins ties.
func (r *Resolver) nearest(results []candidateResult) (*candidateResult, error) {
	var (
		best     *candidateResult
		firstErr error
		failed   int
	)

	for i := range results {
		res := &results[i]
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			if r.cfg.FailurePolicy == FailWhole {
				return nil, res.err
			}
			continue
		}

		if best == nil || res.estimate.DistanceMeters < best.estimate.DistanceMeters {
			best = res
		}
	}

	if failed > 0 {
		log.Warn().
			Int("failed", failed).
			Int("candidates", len(results)).
			Err(firstErr).
			Msg("skipped failed shelter candidates")
	}

	if best == nil {
		return nil, &domain.QueryError{Kind: domain.AllCandidatesFailed, Err: firstErr}
	}

	return best, nil
}

// storedCoordinates returns known shelter coordinates keyed by normalized
// address. Store failures are logged and treated as misses.
func (r *Resolver) storedCoordinates(ctx context.Context, locations []domain.ShelterLocation) map[string]domain.Coordinates {
	if r.store == nil {
		return nil
	}

	keys := make([]string, 0, len(locations))
	for _, loc := range locations {
		keys = append(keys, domain.NormalizeAddress(loc.Address))
	}

	hits, err := r.store.GetMany(ctx, keys)
	if err != nil {
		log.Warn().Err(err).Msg("coordinate store read failed")
		return nil
	}

	metrics.StoreHitsTotal.Add(float64(len(hits)))
	metrics.StoreMissesTotal.Add(float64(len(keys) - len(hits)))

	return hits
}

func (r *Resolver) storeFresh(ctx context.Context, results []candidateResult) {
	if r.store == nil {
		return
	}

	fresh := make(map[string]domain.Coordinates)
	for _, res := range results {
		if res.fresh {
			fresh[domain.NormalizeAddress(res.location.Address)] = res.coords
		}
	}
	if len(fresh) == 0 {
		return
	}

	if err := r.store.PutMany(ctx, fresh); err != nil {
		log.Warn().Err(err).Msg("coordinate store write failed")
	}
}

// classify turns a provider error into a QueryError of the stage's kind,
// or NetworkFailed when the provider could not be reached. Context errors
// pass through unchanged.
func classify(ctx context.Context, err error, kind domain.QueryErrorKind, address string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ports.ErrUnavailable) {
		kind = domain.NetworkFailed
	}
	return &domain.QueryError{Kind: kind, Address: address, Err: err}
}

func outcomeLabel(err error) string {
	var qe *domain.QueryError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &qe):
		return string(qe.Kind)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	default:
		return "error"
	}
}
