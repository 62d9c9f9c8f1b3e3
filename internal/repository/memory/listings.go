package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/repository"
)

// ListingStore is an in-memory listing collection. Every mutation runs
// under the write lock, so review appends and recounts are atomic.
type ListingStore struct {
	mu    sync.RWMutex
	items map[string]model.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{items: map[string]model.Listing{}}
}

func (s *ListingStore) Insert(_ context.Context, l model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[l.ID]; ok {
		return repository.ErrListingExists
	}
	s.items[l.ID] = l.Clone()
	return nil
}

func (s *ListingStore) List(_ context.Context, limit, offset int) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []model.Listing{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, s.items[ids[i]].Clone())
	}
	return out, nil
}

func (s *ListingStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

func (s *ListingStore) Get(_ context.Context, id string) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *ListingStore) Update(_ context.Context, id string, set bson.M, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	l = l.Clone()
	if l.Attributes == nil {
		l.Attributes = bson.M{}
	}
	for k, v := range set {
		if v == nil {
			delete(l.Attributes, k)
			continue
		}
		l.Attributes[k] = v
	}
	l.UpdatedAt = now
	s.items[id] = l
	return nil
}

func (s *ListingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *ListingStore) AddReview(_ context.Context, listingID string, r model.Review, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[listingID]
	if !ok {
		return repository.ErrNotFound
	}
	l = l.Clone()
	l.Reviews = append(l.Reviews, r)
	l.NumberOfReviews = len(l.Reviews)
	l.UpdatedAt = now
	s.items[listingID] = l
	return nil
}

func (s *ListingStore) DeleteReview(_ context.Context, listingID, reviewID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[listingID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, r := range l.Reviews {
		if r.ID != reviewID {
			continue
		}
		l = l.Clone()
		l.Reviews = append(l.Reviews[:i], l.Reviews[i+1:]...)
		l.NumberOfReviews = len(l.Reviews)
		l.UpdatedAt = now
		s.items[listingID] = l
		return nil
	}
	return repository.ErrReviewNotFound
}

func (s *ListingStore) Ping(context.Context) error { return nil }

var _ repository.ListingRepository = (*ListingStore)(nil)
