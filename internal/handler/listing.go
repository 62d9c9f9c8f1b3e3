package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/middleware"
	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/service"
)

// ListingHandler serves listing CRUD and the embedded reviews. Gates are
// applied by the router; handlers read the admitted principal only to
// attribute writes.
type ListingHandler struct {
	Listings *service.ListingService
}

func NewListingHandler(s *service.ListingService) *ListingHandler {
	return &ListingHandler{Listings: s}
}

// document reads the request body as a free-form JSON object.
func document(c echo.Context) (map[string]any, error) {
	doc, err := model.DecodeDocument(c.Request().Body)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	return doc, nil
}

func actor(c echo.Context) model.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// queryInt parses a non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.Validation(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

// CreateListing: POST /api/listings (admin).
func (h *ListingHandler) CreateListing(c echo.Context) error {
	doc, err := document(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	id, err := h.Listings.Create(ctx, doc, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// ListListings: GET /api/listings?limit=&offset=.
func (h *ListingHandler) ListListings(c echo.Context) error {
	limit, err := queryInt(c, "limit", service.DefaultLimit)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Listings.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ListingHandler) CountListings(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	n, err := h.Listings.Count(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Listings.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateListing: PUT /api/listings/:id (admin). Only supplied fields change.
func (h *ListingHandler) UpdateListing(c echo.Context) error {
	doc, err := document(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Listings.Update(ctx, c.Param("id"), doc, actor(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Listings.Delete(ctx, c.Param("id"), actor(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
}

// AddReview: POST /api/listings/:id/reviews (any verified user).
func (h *ListingHandler) AddReview(c echo.Context) error {
	doc, err := document(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	r, err := h.Listings.AddReview(ctx, c.Param("id"), doc, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "review added", "review": r})
}

func (h *ListingHandler) ListReviews(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	rl, err := h.Listings.ListReviews(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rl)
}

func (h *ListingHandler) DeleteReview(c echo.Context) error {
	listingID, reviewID := c.Param("id"), c.Param("reviewId")
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Listings.DeleteReview(ctx, listingID, reviewID, actor(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "deleted",
		"message": fmt.Sprintf("Review %s has been deleted from listing %s", reviewID, listingID),
	})
}
