package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/logger"
)

// RequestLogger writes one log line per request and puts a request scoped
// logger in the request context.  It expects echo's RequestID middleware
// to run first.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLog := log.With(zap.String("request_id", reqID))
			c.SetRequest(req.WithContext(logger.ContextWithLogger(req.Context(), reqLog)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.Int64("response_bytes", c.Response().Size),
			}
			if status >= http.StatusInternalServerError {
				reqLog.Error("http_request", fields...)
			} else {
				reqLog.Info("http_request", fields...)
			}
			return nil
		}
	}
}

// Recover turns a panic into a JSON 500 and logs it with a stack trace.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered", zap.Any("panic", r), zap.Stack("stacktrace"))
					err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
			}()
			return next(c)
		}
	}
}
