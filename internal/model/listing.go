package model

import (
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingCollection is the default collection holding listing documents.
const ListingCollection = "listingsAndReviews"

// Listing is a document of the listings collection. Service-managed
// fields are typed; every other attribute lives in Attributes and is
// stored inline, so the document shape on disk stays flat.
type Listing struct {
	ID              string    `bson:"_id"`
	Reviews         []Review  `bson:"reviews"`
	NumberOfReviews int       `bson:"number_of_reviews"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
	Attributes      bson.M    `bson:",inline"`
}

// Review is embedded in its listing and never updated in place.
type Review struct {
	ID           string    `bson:"_id" json:"id"`
	ListingID    string    `bson:"listing_id" json:"listing_id"`
	ReviewerID   string    `bson:"reviewer_id" json:"reviewer_id"`
	ReviewerName string    `bson:"reviewer_name" json:"reviewer_name"`
	Comments     string    `bson:"comments" json:"comments"`
	Date         time.Time `bson:"date" json:"date"`
}

// Title returns the listing name.
func (l Listing) Title() string {
	s, _ := l.Attributes["name"].(string)
	return s
}

// Description returns the free text description (stored as "notes").
func (l Listing) Description() string {
	s, _ := l.Attributes[descriptionField].(string)
	return s
}

// Price returns the nightly price as a float, 0 when absent.
func (l Listing) Price() float64 {
	f, _ := ToFloat(l.Attributes["price"])
	return f
}

// Street returns address.street or "Unknown".
func (l Listing) Street() string {
	if s, ok := lookupString(l.Attributes["address"], "street"); ok {
		return s
	}
	return "Unknown"
}

// PictureURL returns images.picture_url or "".
func (l Listing) PictureURL() string {
	s, _ := lookupString(l.Attributes["images"], "picture_url")
	return s
}

// Rating returns review_scores.review_scores_rating, 0 when absent.
func (l Listing) Rating() float64 {
	f, _ := ToFloat(lookup(l.Attributes["review_scores"], "review_scores_rating"))
	return f
}

// Clone returns a deep copy safe to mutate.
func (l Listing) Clone() Listing {
	out := l
	if l.Reviews != nil {
		out.Reviews = append([]Review(nil), l.Reviews...)
	}
	if l.Attributes != nil {
		out.Attributes, _ = deepCopy(l.Attributes).(bson.M)
	}
	return out
}

// Summary is the abbreviated view returned by the listing index.
type Summary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Location string  `json:"location"`
	ImageURL string  `json:"imageUrl"`
}

// Detail is the full view of a single listing. Reviews is always an
// array, empty when the listing has no reviews.
type Detail struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Price           float64  `json:"price"`
	Location        string   `json:"location"`
	Rating          float64  `json:"rating"`
	NumberOfReviews int      `json:"number_of_reviews"`
	Reviews         []Review `json:"reviews"`
	ImageURL        string   `json:"imageUrl"`
}

// ReviewList is the admin view of a listing's reviews.
type ReviewList struct {
	ListingID    string   `json:"listing_id"`
	ListingTitle string   `json:"listing_title"`
	Reviews      []Review `json:"reviews"`
}

func (l Listing) Summary() Summary {
	return Summary{
		ID:       l.ID,
		Title:    l.Title(),
		Price:    l.Price(),
		Location: l.Street(),
		ImageURL: l.PictureURL(),
	}
}

func (l Listing) Detail() Detail {
	return Detail{
		ID:              l.ID,
		Title:           l.Title(),
		Description:     l.Description(),
		Price:           l.Price(),
		Location:        l.Street(),
		Rating:          l.Rating(),
		NumberOfReviews: l.NumberOfReviews,
		Reviews:         l.reviewsOrEmpty(),
		ImageURL:        l.PictureURL(),
	}
}

func (l Listing) ReviewList() ReviewList {
	return ReviewList{ListingID: l.ID, ListingTitle: l.Title(), Reviews: l.reviewsOrEmpty()}
}

func (l Listing) reviewsOrEmpty() []Review {
	if l.Reviews == nil {
		return []Review{}
	}
	return l.Reviews
}

// ToFloat converts the numeric representations a listing attribute can
// hold after a round trip through the store. NaN and infinities map to 0.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case primitive.Decimal128:
		p, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func lookup(doc any, key string) any {
	switch d := doc.(type) {
	case bson.M:
		return d[key]
	case map[string]any:
		return d[key]
	case bson.D:
		for _, e := range d {
			if e.Key == key {
				return e.Value
			}
		}
	}
	return nil
}

func lookupString(doc any, key string) (string, bool) {
	s, ok := lookup(doc, key).(string)
	return s, ok
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(bson.M, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[string]any:
		out := make(bson.M, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []any:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
