// Package router builds the echo instances of both services.
package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/handler"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/middleware"
	"github.com/iliyamo/listing-platform/internal/service"
)

// Options configures the shared middleware stack.
type Options struct {
	Module      string   // "auth" or "listings"; tags log lines
	CORSOrigins []string // allowed origins, wildcards permitted
	Logger      *slog.Logger
}

// New returns an echo instance with the middleware stack both services
// share: trailing-slash tolerance, panic recovery, request ids, request
// logging, CORS, the JSON error handler and the struct validator.
func New(opts Options) *echo.Echo {
	logger := logging.Resolve(opts.Logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(logger, opts.Module)
	e.Validator = service.NewValidator()

	// /api/auth/verify/ and /api/auth/verify reach the same route.
	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger, opts.Module))
	if len(opts.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: opts.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	return e
}

// requestLogger forwards one line per request to slog. Errors are rendered
// by the error handler first so the logged status is the one sent.
func requestLogger(logger *slog.Logger, module string) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= 500 {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("event", "http_request"),
				slog.String("module", module),
				slog.String("layer", "transport"),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("actor", middleware.ActorID(c)),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// RegisterHealth maps GET /healthz.
func RegisterHealth(e *echo.Echo, checks ...handler.Check) {
	e.GET("/healthz", handler.Health(checks...))
}
