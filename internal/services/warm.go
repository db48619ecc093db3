package services

import (
	"context"
	"errors"
	"fmt"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/ports"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// WarmReport summarizes a store warm-up run.
type WarmReport struct {
	Locations int
	Known     int
	Stored    int
	Failed    int
}

// WarmStore geocodes every directory entry the store does not know yet and
// writes the coordinates back. Entries that fail to geocode are counted
// and logged; only a store failure or ctx ending aborts the run.
func WarmStore(
	ctx context.Context,
	dir *Directory,
	geocoder ports.Geocoder,
	store ports.CoordinateStore,
	limit int,
) (_ WarmReport, err error) {
	defer obs.Time(ctx, "services.WarmStore")(&err)

	if store == nil {
		return WarmReport{}, errors.New("warm store: no coordinate store configured")
	}

	locations := dir.Snapshot()
	report := WarmReport{Locations: len(locations)}

	// Duplicate addresses share one key.
	keys := make([]string, 0, len(locations))
	addresses := make(map[string]string, len(locations))
	for _, loc := range locations {
		key := domain.NormalizeAddress(loc.Address)
		if _, ok := addresses[key]; ok {
			continue
		}
		addresses[key] = loc.Address
		keys = append(keys, key)
	}

	known, err := store.GetMany(ctx, keys)
	if err != nil {
		return report, fmt.Errorf("warm store: %w", err)
	}
	report.Known = len(known)

	var missing []string
	for _, key := range keys {
		if _, ok := known[key]; !ok {
			missing = append(missing, key)
		}
	}

	coords := make([]domain.Coordinates, len(missing))
	errs := make([]error, len(missing))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range missing {
		i, key := i, key
		g.Go(func() error {
			coords[i], errs[i] = geocoder.Geocode(ctx, addresses[key])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	fresh := make(map[string]domain.Coordinates, len(missing))
	for i, key := range missing {
		if errs[i] != nil {
			report.Failed++
			log.Warn().Str("address", addresses[key]).Err(errs[i]).Msg("geocode failed during warm-up")
			continue
		}
		fresh[key] = coords[i]
	}

	if len(fresh) > 0 {
		if err := store.PutMany(ctx, fresh); err != nil {
			return report, fmt.Errorf("warm store: %w", err)
		}
	}
	report.Stored = len(fresh)

	return report, nil
}
