package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/listing-platform/internal/model"
)

// AccountRepository is the account directory.
type AccountRepository interface {
	// Create inserts a and sets a.ID.
	Create(ctx context.Context, a *model.Account) error
	GetByID(ctx context.Context, id int64) (model.Account, error)
	GetByUsername(ctx context.Context, username string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	// UpdateProfile applies the supplied fields and returns the stored account.
	UpdateProfile(ctx context.Context, id int64, u model.ProfileUpdate) (model.Account, error)
}

// TokenRepository maps token hashes to accounts. An account holds at most
// one token; Replace discards any previous one.
type TokenRepository interface {
	Replace(ctx context.Context, accountID int64, tokenHash string, now time.Time) error
	AccountID(ctx context.Context, tokenHash string) (int64, error)
	Delete(ctx context.Context, tokenHash string) error
}

// ListingRepository is the listing document store. AddReview and
// DeleteReview change the review sequence and number_of_reviews in one
// atomic write.
type ListingRepository interface {
	Insert(ctx context.Context, l model.Listing) error
	List(ctx context.Context, limit, offset int) ([]model.Listing, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (model.Listing, error)
	// Update sets each field of set; nil values remove the attribute.
	Update(ctx context.Context, id string, set bson.M, now time.Time) error
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, listingID string, r model.Review, now time.Time) error
	// DeleteReview removes the first review whose identifier matches.
	DeleteReview(ctx context.Context, listingID, reviewID string, now time.Time) error
	Ping(ctx context.Context) error
}
