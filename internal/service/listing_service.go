package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-platform/internal/apperror"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/queue"
	"github.com/iliyamo/listing-platform/internal/repository"
)

const listingsModule = "listings"

// Paging bounds for the listing index.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

const (
	msgListingNotFound = "Listing not found"
	msgReviewNotFound  = "Review not found"
)

// ListingService implements listing and review operations. Authorization
// happens before these methods are called; actor is only recorded.
type ListingService struct {
	repo   repository.ListingRepository
	cache  CacheInvalidator
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewListingService wires the store with optional cache and events (nil
// disables either).
func NewListingService(repo repository.ListingRepository, cache CacheInvalidator, events EventPublisher, logger *slog.Logger) *ListingService {
	return &ListingService{
		repo:   repo,
		cache:  cache,
		events: events,
		logger: logging.Resolve(logger),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Create stores a new listing and returns its identifier.
func (s *ListingService) Create(ctx context.Context, doc map[string]any, actor model.Principal) (string, error) {
	l, err := model.NewListing(doc, s.now(), s.newID)
	if err != nil {
		return "", mapListingErr(err)
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		if errors.Is(err, repository.ErrListingExists) {
			return "", apperror.Validation(fmt.Sprintf("Listing with id %q already exists", l.ID))
		}
		return "", apperror.Internal(err)
	}
	s.afterWrite(ctx, queue.Event{Type: queue.ListingCreated, ListingID: l.ID}, actor)
	return l.ID, nil
}

// List returns a page of summaries. limit is capped at MaxLimit.
func (s *ListingService) List(ctx context.Context, limit, offset int) ([]model.Summary, error) {
	if limit < 0 || offset < 0 {
		return nil, apperror.Validation("limit and offset must be non-negative integers")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	out := []model.Summary{}
	if limit == 0 {
		return out, nil
	}
	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	for _, l := range items {
		out = append(out, l.Summary())
	}
	return out, nil
}

func (s *ListingService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

// Get returns the detail view. Reviews is always an array.
func (s *ListingService) Get(ctx context.Context, id string) (model.Detail, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Detail{}, mapListingErr(err)
	}
	return l.Detail(), nil
}

// Update merges the supplied attributes into the listing.
func (s *ListingService) Update(ctx context.Context, id string, doc map[string]any, actor model.Principal) error {
	set, err := model.UpdateFields(doc)
	if err != nil {
		return mapListingErr(err)
	}
	if err := s.repo.Update(ctx, id, set, s.now()); err != nil {
		return mapListingErr(err)
	}
	s.afterWrite(ctx, queue.Event{Type: queue.ListingUpdated, ListingID: id}, actor)
	return nil
}

func (s *ListingService) Delete(ctx context.Context, id string, actor model.Principal) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapListingErr(err)
	}
	s.afterWrite(ctx, queue.Event{Type: queue.ListingDeleted, ListingID: id}, actor)
	return nil
}

// AddReview appends a review and keeps number_of_reviews in step.
func (s *ListingService) AddReview(ctx context.Context, listingID string, doc map[string]any, actor model.Principal) (model.Review, error) {
	r, err := model.NewReview(listingID, doc, s.now(), s.newID)
	if err != nil {
		return model.Review{}, mapListingErr(err)
	}
	if err := s.repo.AddReview(ctx, listingID, r, s.now()); err != nil {
		return model.Review{}, mapListingErr(err)
	}
	s.afterWrite(ctx, queue.Event{Type: queue.ReviewAdded, ListingID: listingID, ReviewID: r.ID}, actor)
	return r, nil
}

func (s *ListingService) ListReviews(ctx context.Context, listingID string) (model.ReviewList, error) {
	l, err := s.repo.Get(ctx, listingID)
	if err != nil {
		return model.ReviewList{}, mapListingErr(err)
	}
	return l.ReviewList(), nil
}

// DeleteReview removes the first review with reviewID.
func (s *ListingService) DeleteReview(ctx context.Context, listingID, reviewID string, actor model.Principal) error {
	if err := s.repo.DeleteReview(ctx, listingID, reviewID, s.now()); err != nil {
		return mapListingErr(err)
	}
	s.afterWrite(ctx, queue.Event{Type: queue.ReviewDeleted, ListingID: listingID, ReviewID: reviewID}, actor)
	return nil
}

// Ping checks the listing store.
func (s *ListingService) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

func (s *ListingService) afterWrite(ctx context.Context, ev queue.Event, actor model.Principal) {
	ev.Actor = actor.Username
	ev.AccountID = actor.ID
	ev.OccurredAt = s.now()
	s.logger.Info("listing store changed",
		"event", ev.Type,
		"module", listingsModule,
		"layer", "application",
		"listing_id", ev.ListingID,
		"review_id", ev.ReviewID,
		"actor_id", actor.ID,
	)
	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			s.logger.Warn("listing cache purge failed",
				"event", "listing_cache_purge_failed",
				"module", listingsModule,
				"layer", "application",
				"error", err.Error(),
			)
		}
	}
	publish(ctx, s.events, s.logger, listingsModule, ev)
}

func mapListingErr(err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return apperror.Validation(ve.Error())
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound(msgListingNotFound)
	case errors.Is(err, repository.ErrReviewNotFound):
		return apperror.NotFound(msgReviewNotFound)
	default:
		return apperror.Internal(err)
	}
}
