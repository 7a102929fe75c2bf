package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is disabled.
// Only GET requests whose route starts with one of Paths are cached, so
// listings that depend on the caller (admin views) never are.  KeyStrategy
// determines which parts of the request contribute to the cache key.
// A successful write on a route starting with one of PurgePaths drops every
// key under Prefix.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	Paths        []string
	PurgePaths   []string
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		Paths:        splitList(envStr("CACHE_PATHS", "/v1/search/facets,/v1/collections,/v1/shows/:id")),
		PurgePaths:   splitList(envStr("CACHE_PURGE_PATHS", "/v1/shows,/v1/admin/shows")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// Cacheable reports whether responses of the route pattern may be cached.
func (c CacheConfig) Cacheable(method, route string) bool {
	if !c.Methods[strings.ToUpper(method)] {
		return false
	}
	for _, p := range c.Paths {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

// Purges reports whether a successful request on the route invalidates
// cached responses.  Safe methods never do.
func (c CacheConfig) Purges(method, route string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return false
	}
	for _, p := range c.PurgePaths {
		if strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range splitList(s) {
		m[strings.ToUpper(p)] = true
	}
	return m
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
