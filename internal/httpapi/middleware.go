package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/authz"
)

const callerContextKey = "taskforge.caller"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID   string
	Role authz.Role
}

// CallerFrom returns the authenticated caller, or false when the route
// ran without the token middleware.
func CallerFrom(c echo.Context) (Caller, bool) {
	caller, ok := c.Get(callerContextKey).(Caller)
	return caller, ok
}

// RequireToken rejects requests without a valid bearer token and stores
// the caller identity in the request context.
func RequireToken(tokens *auth.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(callerContextKey, Caller{ID: claims.Subject, Role: claims.Role})
			return next(c)
		}
	}
}

// RequestMetrics records request counts and durations per route.
func RequestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
