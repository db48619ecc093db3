package cache

import (
	"context"
	"errors"
	"fmt"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "shelter:coordinates"

// RedisGeocodeCache keeps shelter coordinates in a single Redis hash whose
// fields are address keys and whose values are "lat,lon".
type RedisGeocodeCache struct {
	Client *redis.Client
	Key    string
}

func NewRedisGeocodeCache(client *redis.Client, key string) *RedisGeocodeCache {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisGeocodeCache{Client: client, Key: key}
}

// Fetch stored coordinates for the given addresses.
func (s *RedisGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.redis.GetMany")(&err)

	if s.Client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	vals, err := s.Client.HMGet(ctx, s.Key, uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: hmget %s: %w", s.Key, err)
	}

	out := make(map[string]domain.Coordinates, len(uniq))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		c, err := parseLatLon(raw)
		if err != nil {
			return nil, fmt.Errorf("get geocode cache: field %q: %w", uniq[i], err)
		}
		out[uniq[i]] = c
	}

	return out, nil
}

// Store address -> coordinate mappings.
func (s *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if s.Client == nil {
		return errors.New("geocode cache: redis client is nil")
	}

	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		fields[addr] = formatLatLon(c)
	}

	if err := s.Client.HSet(ctx, s.Key, fields).Err(); err != nil {
		return fmt.Errorf("insert geocode cache: hset %s: %w", s.Key, err)
	}

	return nil
}

func formatLatLon(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

func parseLatLon(s string) (domain.Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("malformed value %q", s)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed latitude %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed longitude %q: %w", lonStr, err)
	}
	return domain.Coordinates{Lat: lat, Lon: lon}, nil
}
