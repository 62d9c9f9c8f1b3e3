package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
)

// Prober reaches the auth service without credentials.
type Prober interface {
	BaseURL() string
	Probe(ctx context.Context) (int, string, error)
}

// TestConnection reports whether the auth service answers at its
// configured URL. The body snippet is only echoed for a 200.
func TestConnection(p Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, snippet, err := p.Probe(c.Request().Context())
		if err != nil {
			return apperror.Unavailable(err.Error(), err)
		}
		if status != http.StatusOK {
			snippet = "N/A"
		}
		return c.JSON(http.StatusOK, echo.Map{
			"auth_url_used": p.BaseURL(),
			"status_code":   status,
			"response":      snippet,
		})
	}
}
