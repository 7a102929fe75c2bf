// Package app assembles the HTTP server from its collaborators.  The
// binary in cmd/server and the end-to-end tests share it.
package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/config"
	"github.com/iliyamo/show-directory/internal/geo"
	"github.com/iliyamo/show-directory/internal/handler"
	"github.com/iliyamo/show-directory/internal/metrics"
	"github.com/iliyamo/show-directory/internal/middleware"
	"github.com/iliyamo/show-directory/internal/notify"
	"github.com/iliyamo/show-directory/internal/repository"
	"github.com/iliyamo/show-directory/internal/router"
	"github.com/iliyamo/show-directory/internal/search"
)

// Deps are the collaborators of the server.  Redis, Geocoder and
// Transport are optional; without them the matching features degrade.
type Deps struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig

	Shows    repository.ShowStore
	Users    repository.UserStore
	Tokens   repository.TokenStore
	Requests repository.RequestStore

	Redis     *redis.Client
	Geocoder  geo.Geocoder
	Transport notify.Transport

	// Registry receives the collectors; nil skips /metrics.
	Registry *prometheus.Registry
	// Ready lists the checks that must pass for /readyz.
	Ready map[string]handler.Check

	Log *zap.Logger
}

// New returns a configured echo instance.  It does not start listening.
func New(d Deps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config

	var geocoder geo.Geocoder
	if d.Geocoder != nil {
		geocoder = geo.NewCachedGeocoder(d.Geocoder, d.Redis, cfg.Geocoder.CacheTTL, log.Named("geocode"))
	}

	searchSvc := search.NewService(d.Shows, log.Named("search"))
	ranker := geo.NewRanker(d.Shows, geocoder, cfg.Geocoder.Timeout, log.Named("geo"))
	matcher := notify.NewMatcher(repository.Directory{Shows: d.Shows, Users: d.Users}, log.Named("notify"))
	dispatcher := notify.NewDispatcher(
		d.Transport,
		notify.NewRedisLedger(d.Redis, cfg.Notify.LedgerTTL),
		notify.DispatcherConfig{Workers: cfg.Notify.Workers, SendTimeout: cfg.Notify.SendTimeout},
		log.Named("notify"),
	)

	authH := handler.NewAuthHandler(cfg.Auth, d.Users, d.Tokens, log.Named("auth"))
	catalogH := handler.NewCatalogHandler(searchSvc, ranker, d.Shows, log.Named("catalog"))
	showH := handler.NewShowHandler(d.Shows, d.Users, geocoder, cfg.Geocoder.Timeout, log.Named("shows"))
	requestH := handler.NewRequestHandler(d.Requests, matcher, dispatcher, log.Named("requests"))

	alerts := notify.NewAlerter(d.Transport, cfg.Admin.Email, cfg.Notify.SendTimeout, log.Named("alerts"))
	authH.Alerts, showH.Alerts, requestH.Alerts = alerts, alerts, alerts

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Recover(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewRedisCache(d.Cache, d.Redis, log.Named("cache")))

	optional := map[string]handler.Check{}
	if d.Redis != nil {
		optional["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	if d.Transport != nil {
		optional["mail"] = d.Transport.Available
	}
	router.RegisterRoutes(e, handler.Ready(d.Ready, optional))
	if d.Registry != nil {
		metrics.Register(d.Registry)
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	router.RegisterAuth(e, authH)
	router.RegisterPublic(e, catalogH, requestH, cfg.Auth.JWTSecret, middleware.NewTokenBucket(d.RateLimit, d.Redis, log.Named("ratelimit")))
	router.RegisterCompany(e, showH, cfg.Auth.JWTSecret)
	router.RegisterAdmin(e, catalogH, showH, requestH, cfg.Auth.JWTSecret)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		_ = c.JSON(code, echo.Map{"error": msg})
	}
	return e
}
