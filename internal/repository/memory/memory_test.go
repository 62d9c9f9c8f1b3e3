package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/listing-platform/internal/model"
	"github.com/iliyamo/listing-platform/internal/repository"
)

var now = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestListingStoreConcurrentReviews(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	require.NoError(t, s.Insert(ctx, model.Listing{ID: "L1"}))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AddReview(ctx, "L1", model.Review{ID: fmt.Sprintf("r%d", i), ReviewerID: "u"}, now))
		}(i)
	}
	wg.Wait()

	l, err := s.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, n, l.NumberOfReviews)
	assert.Len(t, l.Reviews, n)
}

func TestListingStoreDeleteReviewFirstMatchOnly(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	require.NoError(t, s.Insert(ctx, model.Listing{ID: "L1"}))
	for _, id := range []string{"a", "dup", "b", "dup"} {
		require.NoError(t, s.AddReview(ctx, "L1", model.Review{ID: id, ReviewerID: "u"}, now))
	}

	require.NoError(t, s.DeleteReview(ctx, "L1", "dup", now))
	l, _ := s.Get(ctx, "L1")
	ids := []string{}
	for _, r := range l.Reviews {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "dup"}, ids)
	assert.Equal(t, 3, l.NumberOfReviews)

	assert.ErrorIs(t, s.DeleteReview(ctx, "L1", "zzz", now), repository.ErrReviewNotFound)
	assert.ErrorIs(t, s.DeleteReview(ctx, "nope", "a", now), repository.ErrNotFound)
	l2, _ := s.Get(ctx, "L1")
	assert.Equal(t, l.Reviews, l2.Reviews)
}

func TestListingStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	require.NoError(t, s.Insert(ctx, model.Listing{ID: "L1", Attributes: bson.M{"name": "A"}}))
	l, _ := s.Get(ctx, "L1")
	l.Attributes["name"] = "mutated"
	again, _ := s.Get(ctx, "L1")
	assert.Equal(t, "A", again.Title())
}

func TestListingStoreUpdateAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Insert(ctx, model.Listing{ID: id, Attributes: bson.M{"summary": "s"}}))
	}
	assert.ErrorIs(t, s.Insert(ctx, model.Listing{ID: "a"}), repository.ErrListingExists)

	page, _ := s.List(ctx, 2, 1)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	require.NoError(t, s.Update(ctx, "a", bson.M{"name": "New", "summary": nil}, now))
	a, _ := s.Get(ctx, "a")
	assert.Equal(t, "New", a.Title())
	assert.NotContains(t, a.Attributes, "summary")
	assert.Equal(t, now, a.UpdatedAt)
	assert.ErrorIs(t, s.Update(ctx, "zz", bson.M{"name": "x"}, now), repository.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), repository.ErrNotFound)
	n, _ := s.Count(ctx)
	assert.Equal(t, int64(2), n)
}

func TestTokenStoreReplace(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	require.NoError(t, s.Replace(ctx, 1, "h1", now))
	require.NoError(t, s.Replace(ctx, 1, "h2", now))

	_, err := s.AccountID(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	id, err := s.AccountID(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, s.Delete(ctx, "h2"))
	assert.ErrorIs(t, s.Delete(ctx, "h2"), repository.ErrNotFound)
}

func TestAccountStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	a := &model.Account{Username: "ann", Email: "ann@example.com"}
	require.NoError(t, s.Create(ctx, a))
	assert.Equal(t, int64(1), a.ID)

	assert.ErrorIs(t, s.Create(ctx, &model.Account{Username: "ann", Email: "x@example.com"}), repository.ErrUsernameTaken)
	assert.ErrorIs(t, s.Create(ctx, &model.Account{Username: "bob", Email: "ANN@example.com"}), repository.ErrEmailTaken)
	assert.Equal(t, 1, s.Len())

	b := &model.Account{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, s.Create(ctx, b))
	taken := "ann@example.com"
	_, err := s.UpdateProfile(ctx, b.ID, model.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	first := "Bobby"
	got, err := s.UpdateProfile(ctx, b.ID, model.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Bobby", got.FirstName)
	assert.Equal(t, "bob@example.com", got.Email)
}
