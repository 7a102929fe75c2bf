package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-directory/internal/handler"
	"github.com/iliyamo/show-directory/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health checks: /healthz for
// liveness and /readyz for readiness.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
}

// RegisterAuth registers the token endpoints under /v1/auth.  None of them
// needs an existing access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterPublic registers the visitor endpoints.  The caller is identified
// when a token is sent so owners and administrators see their unapproved
// shows and private requests.  limit guards the search endpoints.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, req *handler.RequestHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.OptionalJWT(jwtSecret))

	searches := []echo.MiddlewareFunc{}
	if limit != nil {
		searches = append(searches, limit)
	}
	g.GET("/shows", cat.SearchShows, searches...)
	g.GET("/shows/nearby", cat.Nearby, searches...)
	g.GET("/shows/:id", cat.GetShow)
	g.GET("/search/facets", cat.Facets)
	g.GET("/collections", cat.Collections)
	g.GET("/collections/:slug", cat.Collection, searches...)

	g.POST("/requests", req.Submit, searches...)
	g.GET("/requests", req.List)
	g.GET("/requests/:id", req.Get)
}
