package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check is a named dependency probe run by Health.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health reports {"status":"ok"} when every check passes and 503 with the
// failing checks otherwise. With no checks it only proves the process is up.
func Health(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				failed[chk.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "checks": failed})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
