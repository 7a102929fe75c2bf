package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-directory/internal/utils"
)

// JWTAuth rejects requests without a valid Bearer access token and stores
// the caller's id and role in the context (see UserID and Role).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, true)
}

// OptionalJWT identifies the caller when a token is sent and lets anonymous
// requests through.  A token that is sent but invalid is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return jwtMiddleware(secret, false)
}

func jwtMiddleware(secret string, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" && !required {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, _ := claims.UserID()
			c.Set(ctxUserID, id)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}
