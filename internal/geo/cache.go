package geo

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedGeocoder remembers resolved addresses in Redis.  Misses are cached
// for a shorter time so a typo does not hit the upstream on every search.
// Redis errors fall through to the wrapped geocoder.
type CachedGeocoder struct {
	next        Geocoder
	rdb         *redis.Client
	ttl         time.Duration
	negativeTTL time.Duration
	prefix      string
	log         *zap.Logger
}

type cachedPoint struct {
	Found bool    `json:"found"`
	Lat   float64 `json:"lat,omitempty"`
	Lng   float64 `json:"lng,omitempty"`
}

// NewCachedGeocoder wraps next.  A nil rdb returns next unchanged.
func NewCachedGeocoder(next Geocoder, rdb *redis.Client, ttl time.Duration, log *zap.Logger) Geocoder {
	if rdb == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	neg := ttl / 24
	if neg < time.Minute {
		neg = time.Minute
	}
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, negativeTTL: neg, prefix: "geocode", log: log}
}

func (c *CachedGeocoder) key(address string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	sum := sha1.Sum([]byte(norm))
	return fmt.Sprintf("%s:%x", c.prefix, sum[:])
}

// Resolve implements Geocoder.
func (c *CachedGeocoder) Resolve(ctx context.Context, address string) (Point, bool, error) {
	key := c.key(address)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cp cachedPoint
		if jerr := json.Unmarshal(raw, &cp); jerr == nil {
			return Point{Lat: cp.Lat, Lng: cp.Lng}, cp.Found, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("geocode cache read failed", zap.Error(err))
	}

	p, ok, err := c.next.Resolve(ctx, address)
	if err != nil {
		return p, ok, err
	}

	ttl := c.ttl
	if !ok {
		ttl = c.negativeTTL
	}
	payload, _ := json.Marshal(cachedPoint{Found: ok, Lat: p.Lat, Lng: p.Lng})
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.log.Warn("geocode cache write failed", zap.Error(err))
	}
	return p, ok, nil
}
