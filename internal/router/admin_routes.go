package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-directory/internal/handler"
	"github.com/iliyamo/show-directory/internal/middleware"
)

// RegisterAdmin registers moderation and notification endpoints under
// /v1/admin.  All require an administrator token.
func RegisterAdmin(e *echo.Echo, cat *handler.CatalogHandler, s *handler.ShowHandler, req *handler.RequestHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireAdmin(),
	)

	// ---- Shows ----
	g.GET("/shows", cat.AdminShows)
	g.PUT("/shows/:id", s.Update)
	g.POST("/shows/:id/approve", s.Approve)
	g.PUT("/shows/:id/display-order", s.SetDisplayOrder)
	g.DELETE("/shows/:id", s.Delete)

	// ---- Animation requests ----
	g.GET("/requests", req.List)
	g.PUT("/requests/:id", req.Update)
	g.PATCH("/requests/:id/privacy", req.SetPrivacy)
	g.POST("/requests/:id/recipients", req.Recipients)
	g.POST("/requests/:id/notify", req.Notify)
}
