package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/authclient"
	"github.com/iliyamo/listing-platform/internal/handler"
	"github.com/iliyamo/listing-platform/internal/middleware"
)

// ListingDeps groups what RegisterListings needs beyond the handler.
type ListingDeps struct {
	Verifier authclient.Verifier
	Cache    *middleware.RedisCache // nil disables response caching
	Prober   handler.Prober         // nil hides /api/test-connection
	Logger   *slog.Logger
}

// RegisterListings maps the listing routes under /api.
//
// Reads of listings are public and cached. Adding a review needs any
// verified user; every other write, and reading a listing's review list,
// needs an admin. The gate runs before the handler, so an unauthenticated
// caller never learns whether a listing exists.
func RegisterListings(e *echo.Echo, l *handler.ListingHandler, deps ListingDeps) {
	user := middleware.RequireUser(deps.Verifier, deps.Logger)
	admin := middleware.RequireAdmin()
	cached := deps.Cache.Middleware()

	api := e.Group("/api")
	api.GET("/listings", l.ListListings, cached)
	api.GET("/listings/count", l.CountListings, cached)
	api.GET("/listings/:id", l.GetListing, cached)

	api.POST("/listings", l.CreateListing, user, admin)
	api.PUT("/listings/:id", l.UpdateListing, user, admin)
	api.DELETE("/listings/:id", l.DeleteListing, user, admin)

	api.POST("/listings/:id/reviews", l.AddReview, user)
	api.GET("/listings/:id/reviews", l.ListReviews, user, admin)
	api.DELETE("/listings/:id/reviews/:reviewId", l.DeleteReview, user, admin)

	if deps.Prober != nil {
		api.GET("/test-connection", handler.TestConnection(deps.Prober))
	}
}
