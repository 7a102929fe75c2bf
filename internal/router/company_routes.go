package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-directory/internal/handler"
	"github.com/iliyamo/show-directory/internal/middleware"
	"github.com/iliyamo/show-directory/internal/model"
)

// RegisterCompany registers the endpoints of signed-in companies.
// Administrators may use them too.
func RegisterCompany(e *echo.Echo, s *handler.ShowHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCompany, model.RoleAdmin),
	)
	g.POST("/shows", s.Submit)
	g.GET("/me/shows", s.Mine)
	g.PUT("/shows/:id", s.Update)
	g.DELETE("/shows/:id", s.Delete)
}
