package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/pscheid92/codedrop/internal/platform/errors"
)

const connectLimiterExpiry = 5 * time.Minute

// newConnectLimiter throttles subscriber connects per client IP. onDeny runs for every
// rejected attempt and may be nil.
func newConnectLimiter(ratePerSecond float64, burst int, onDeny func()) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: connectLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if onDeny != nil {
				onDeny()
			}
			slog.WarnContext(c.Request().Context(), "Subscriber connect rate limited", "remote_ip", identifier)

			resp := apperrors.ErrorResponse{
				Error:   "too many connection attempts",
				Type:    apperrors.TypeValidation,
				Context: map[string]any{"ip": identifier, "burst": burst},
			}
			return c.JSON(http.StatusTooManyRequests, resp)
		},
	})
}
