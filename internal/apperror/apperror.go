// Package apperror defines the error kinds shared by both services and the
// echo error handler that turns them into {"error": "..."} responses.
package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/logging"
)

// Kind classifies an Error and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindUnavailable
	// KindUpstream carries a status code received from another service.
	KindUpstream
)

// Error is the error type returned by services and middleware. Message is
// the text sent to the client; Err is the underlying cause, if any.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstream:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }

// Unavailable reports a dependency that could not be reached.
func Unavailable(msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: cause}
}

// Upstream propagates a status code and message returned by another service.
func Upstream(status int, msg string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Message: msg}
}

// Internal wraps an unexpected failure. The cause is logged, never sent.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == k
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as a JSON body {"error": message}. Internal errors are logged.
func HTTPErrorHandler(logger *slog.Logger, module string) echo.HTTPErrorHandler {
	logger = logging.Resolve(logger)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := resolve(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"event", "http_request_failed",
				"module", module,
				"layer", "transport",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", status,
				"error", err.Error(),
			)
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"error": msg})
		}
		if werr != nil {
			logger.Warn("write error response failed",
				"event", "http_error_write_failed",
				"module", module,
				"layer", "transport",
				"error", werr.Error(),
			)
		}
	}
}

func resolve(err error) (int, string) {
	if ae, ok := As(err); ok {
		return ae.HTTPStatus(), ae.Message
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok && s != "" {
			return he.Code, s
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "internal server error"
}
