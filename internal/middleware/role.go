package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
)

const msgAdminRequired = "Admin privileges required!"

// RequireAdmin must run after RequireUser or RequireAccount. It allows
// principals with either the staff or the superuser flag and answers 403
// otherwise. A request with no principal at all is a 401.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return apperror.Unauthenticated(msgTokenMissing)
			}
			if !p.IsAdmin() {
				return apperror.Forbidden(msgAdminRequired)
			}
			return next(c)
		}
	}
}
