package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Health is the liveness endpoint used by load balancers.  It returns a
// plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready runs every check with a short timeout and answers 503 when one
// fails.  Optional dependencies (redis, mail transport) are reported but
// never fail readiness.
func Ready(required, optional map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{}
		for _, name := range sortedNames(required) {
			if err := required[name](ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				report[name] = "ok"
			}
		}
		for _, name := range sortedNames(optional) {
			if err := optional[name](ctx); err != nil {
				report[name] = "degraded: " + err.Error()
			} else {
				report[name] = "ok"
			}
		}
		return c.JSON(status, echo.Map{"status": http.StatusText(status), "checks": report})
	}
}

func sortedNames(m map[string]Check) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
