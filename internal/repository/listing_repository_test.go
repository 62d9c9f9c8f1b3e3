package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iliyamo/listing-platform/internal/model"
)

func ns(mt *mtest.T) string { return mt.Coll.Database().Name() + "." + mt.Coll.Name() }

func TestListingRepoMongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mt.Run("get decodes inline attributes", func(mt *mtest.T) {
		price, _ := primitive.ParseDecimal128("99.50")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "L1"},
			{Key: "name", Value: "Loft"},
			{Key: "price", Value: price},
			{Key: "number_of_reviews", Value: int32(1)},
			{Key: "reviews", Value: bson.A{bson.D{{Key: "_id", Value: "r1"}, {Key: "reviewer_id", Value: "u1"}}}},
		}))

		l, err := NewListingRepo(mt.Coll).Get(ctx, "L1")
		require.NoError(mt, err)
		assert.Equal(mt, "Loft", l.Title())
		assert.Equal(mt, 99.5, l.Price())
		assert.Equal(mt, 1, l.NumberOfReviews)
		require.Len(mt, l.Reviews, 1)
		assert.Equal(mt, "u1", l.Reviews[0].ReviewerID)
		assert.NotContains(mt, l.Attributes, "_id")
	})

	mt.Run("get missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		_, err := NewListingRepo(mt.Coll).Get(ctx, "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))
		err := NewListingRepo(mt.Coll).Insert(ctx, model.Listing{ID: "L1"})
		assert.ErrorIs(mt, err, ErrListingExists)
	})

	mt.Run("update missing listing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := NewListingRepo(mt.Coll).Update(ctx, "nope", bson.M{"name": "x"}, now)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("add review to missing listing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := NewListingRepo(mt.Coll).AddReview(ctx, "nope", model.Review{ID: "r1", ReviewerID: "u1"}, now)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("add review", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		err := NewListingRepo(mt.Coll).AddReview(ctx, "L1", model.Review{ID: "r1", ReviewerID: "u1"}, now)
		assert.NoError(mt, err)
	})

	mt.Run("delete review not found on existing listing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		err := NewListingRepo(mt.Coll).DeleteReview(ctx, "L1", "missing", now)
		assert.ErrorIs(mt, err, ErrReviewNotFound)
	})

	mt.Run("delete review on missing listing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch),
		)
		err := NewListingRepo(mt.Coll).DeleteReview(ctx, "nope", "r1", now)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete missing listing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := NewListingRepo(mt.Coll).Delete(ctx, "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
