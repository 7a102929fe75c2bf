package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-directory/internal/model"
)

// Context keys set by the JWT middlewares.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated account id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the role claim of the caller, "" for anonymous visitors.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// IsAdmin reports whether the caller holds an administrator token.
func IsAdmin(c echo.Context) bool {
	return Role(c) == model.RoleAdmin
}

// userKey identifies the caller in rate limit keys; "anon" when unknown.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
