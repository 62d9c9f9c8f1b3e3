package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/listing-platform/internal/model"
)

// summaryProjection limits index reads to the fields shown in summaries.
var summaryProjection = bson.M{"name": 1, "price": 1, "address": 1, "images": 1}

// ListingRepo stores listings in a MongoDB collection.
type ListingRepo struct{ Coll *mongo.Collection }

func NewListingRepo(coll *mongo.Collection) *ListingRepo { return &ListingRepo{Coll: coll} }

func (r *ListingRepo) Insert(ctx context.Context, l model.Listing) error {
	if _, err := r.Coll.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrListingExists
		}
		return err
	}
	return nil
}

// List returns a page of listings ordered by identifier. Only the summary
// fields are loaded.
func (r *ListingRepo) List(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(summaryProjection)
	cur, err := r.Coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	out := []model.Listing{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ListingRepo) Count(ctx context.Context) (int64, error) {
	return r.Coll.CountDocuments(ctx, bson.D{})
}

func (r *ListingRepo) Get(ctx context.Context, id string) (model.Listing, error) {
	var l model.Listing
	if err := r.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Listing{}, ErrNotFound
		}
		return model.Listing{}, err
	}
	return l, nil
}

// Update applies a field level $set; nil values are $unset.
func (r *ListingRepo) Update(ctx context.Context, id string, set bson.M, now time.Time) error {
	setDoc := bson.M{"updated_at": now}
	unset := bson.M{}
	for k, v := range set {
		if v == nil {
			unset[k] = ""
			continue
		}
		setDoc[k] = v
	}
	update := bson.M{"$set": setDoc}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.Coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview appends rv and recounts in a single pipeline update, so
// concurrent appends cannot leave number_of_reviews out of step.
func (r *ListingRepo) AddReview(ctx context.Context, listingID string, rv model.Review, now time.Time) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
			bson.D{{Key: "$literal", Value: bson.A{rv}}},
		}}}}}}},
		recountStage(now),
	}
	res, err := r.Coll.UpdateOne(ctx, bson.M{"_id": listingID}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReview cuts the first matching review out of the array and
// recounts in one update. When nothing matched, a second read tells a
// missing listing apart from a missing review.
func (r *ListingRepo) DeleteReview(ctx context.Context, listingID, reviewID string, now time.Time) error {
	rid := bson.D{{Key: "$literal", Value: reviewID}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "reviews", Value: bson.D{{Key: "$let", Value: bson.D{
			{Key: "vars", Value: bson.D{{Key: "i", Value: bson.D{{Key: "$indexOfArray", Value: bson.A{"$reviews._id", rid}}}}}},
			{Key: "in", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$slice", Value: bson.A{"$reviews", "$$i"}}},
				bson.D{{Key: "$slice", Value: bson.A{
					"$reviews",
					bson.D{{Key: "$add", Value: bson.A{"$$i", 1}}},
					bson.D{{Key: "$size", Value: "$reviews"}},
				}}},
			}}}},
		}}}}}}},
		recountStage(now),
	}
	filter := bson.M{"_id": listingID, "reviews._id": reviewID}
	res, err := r.Coll.UpdateOne(ctx, filter, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.Coll.CountDocuments(ctx, bson.M{"_id": listingID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrReviewNotFound
}

func recountStage(now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "number_of_reviews", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
		{Key: "updated_at", Value: now},
	}}}
}

func (r *ListingRepo) Ping(ctx context.Context) error {
	return r.Coll.Database().Client().Ping(ctx, nil)
}
