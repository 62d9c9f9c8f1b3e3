package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/model"
)

const msgNoCredentials = "Authentication credentials were not provided."

// ExtractToken parses an Authorization header of the form "Token <t>" or
// "Bearer <t>". The keyword is case-insensitive and exactly one token part
// must follow it.
func ExtractToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1], true
	}
	return "", false
}

// RequireCredential rejects requests without a well-formed credential and
// stores the raw token for the handler. The token itself is not checked.
func RequireCredential() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := ExtractToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperror.Unauthenticated(msgNoCredentials)
			}
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// Authenticator resolves a raw token to its active account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Account, error)
}

// RequireAccount is RequireCredential followed by a token lookup. The
// account and its principal are stored on the context; lookup errors are
// returned unchanged (401 for unknown or inactive tokens).
func RequireAccount(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return RequireCredential()(func(c echo.Context) error {
			acct, err := authn.Authenticate(c.Request().Context(), TokenFrom(c))
			if err != nil {
				return err
			}
			c.Set(accountKey, acct)
			setPrincipal(c, acct.Principal())
			return next(c)
		})
	}
}
