package middleware

// identity.go holds the context accessors shared by the credential,
// gateway and role middleware. Values are stored on the echo context for
// handlers and on the request context for the service layer.

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/model"
)

const (
	tokenKey     = "auth_token"
	accountKey   = "account"
	principalKey = "principal"
)

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(model.Principal)
	return p, ok
}

// PrincipalFrom returns the principal admitted for this request.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// AccountFrom returns the account loaded by RequireAccount.
func AccountFrom(c echo.Context) (model.Account, bool) {
	a, ok := c.Get(accountKey).(model.Account)
	return a, ok
}

// TokenFrom returns the raw credential stored by RequireCredential.
func TokenFrom(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}

// ActorID identifies the caller for request logs: the principal id, or
// "guest" when the request was not authenticated.
func ActorID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatInt(p.ID, 10)
	}
	return "guest"
}

func setPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
	r := c.Request()
	c.SetRequest(r.WithContext(WithPrincipal(r.Context(), p)))
}
