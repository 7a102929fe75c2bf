package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Bucket is the shape of one token bucket: Capacity tokens, refilled by
// RefillTokens every RefillInterval.
type Bucket struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
}

// RateLimitConfig drives the Redis token bucket in front of the public
// search and request endpoints.  Routes overrides the default bucket for a
// "METHOD /route" key, so request submissions can be held tighter than
// searches.
type RateLimitConfig struct {
	Enabled bool
	Bucket
	Routes      map[string]Bucket
	TTL         time.Duration
	KeyStrategy string
	Prefix      string
	Debug       bool
}

// For returns the bucket guarding a route.
func (c RateLimitConfig) For(method, route string) Bucket {
	if b, ok := c.Routes[strings.ToUpper(method)+" "+route]; ok {
		return b
	}
	return c.Bucket
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for capacity and refill interval.
// RATE_LIMIT_ROUTES lists overrides as "POST /v1/requests=3/10m" entries
// separated by commas: capacity, then one token back per interval.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Bucket: Bucket{
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
			RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		},
		Routes:      parseRoutes(envStr("RATE_LIMIT_ROUTES", "POST /v1/requests=5/10m")),
		TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:       envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	def.Bucket = def.Bucket.clamped()

	// the key must outlive the slowest refill or a bucket resets early
	slowest := def.RefillInterval
	for _, b := range def.Routes {
		if b.RefillInterval > slowest {
			slowest = b.RefillInterval
		}
	}
	if minTTL := 5 * slowest; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func (b Bucket) clamped() Bucket {
	if b.Capacity < 1 {
		b.Capacity = 1
	}
	if b.RefillTokens < 1 {
		b.RefillTokens = 1
	}
	if b.RefillInterval <= 0 {
		b.RefillInterval = time.Second
	}
	return b
}

// parseRoutes skips malformed entries.
func parseRoutes(s string) map[string]Bucket {
	out := map[string]Bucket{}
	for _, entry := range strings.Split(s, ",") {
		route, shape, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		method, path, ok := strings.Cut(strings.TrimSpace(route), " ")
		if !ok {
			continue
		}
		capStr, every, ok := strings.Cut(shape, "/")
		if !ok {
			continue
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(capStr))
		if err != nil {
			continue
		}
		interval, err := time.ParseDuration(strings.TrimSpace(every))
		if err != nil {
			continue
		}
		key := strings.ToUpper(method) + " " + strings.TrimSpace(path)
		out[key] = Bucket{Capacity: capacity, RefillTokens: 1, RefillInterval: interval}.clamped()
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
