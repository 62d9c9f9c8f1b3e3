package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/authclient"
	"github.com/iliyamo/listing-platform/internal/logging"
)

const (
	msgTokenMissing = "Token is missing!"
	msgTokenInvalid = "Invalid token"
)

// RequireUser admits a request only when the auth service vouches for its
// token. A missing or malformed header is refused before any call is made.
// Verifier errors (unavailable, upstream status) are returned as they are.
func RequireUser(verifier authclient.Verifier, logger *slog.Logger) echo.MiddlewareFunc {
	logger = logging.Resolve(logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := ExtractToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperror.Unauthenticated(msgTokenMissing)
			}
			res, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				logger.Warn("token verification failed",
					"event", "auth_verify_failed",
					"module", "listings/gateway",
					"layer", "transport",
					"path", c.Path(),
					"error", err.Error(),
				)
				return err
			}
			if !res.Valid || res.User == nil {
				msg := res.Error
				if msg == "" {
					msg = msgTokenInvalid
				}
				return apperror.Unauthenticated(msg)
			}
			c.Set(tokenKey, token)
			setPrincipal(c, *res.User)
			return next(c)
		}
	}
}
