package model

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecode(t *testing.T, body string) map[string]any {
	t.Helper()
	doc, err := DecodeDocument(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestNewListingTypedAttributes(t *testing.T) {
	doc := mustDecode(t, `{
		"id": "L1",
		"name": "Test",
		"price": 100.0,
		"description": "cosy",
		"beds": 2,
		"amenities": ["Wifi", "Kitchen"],
		"address": {"street": "Porto, Portugal", "location": {"coordinates": [-8.6, 41.1]}},
		"host_is_superhost": true
	}`)

	l, err := NewListing(doc, fixedNow, nil)
	require.NoError(t, err)
	assert.Equal(t, "L1", l.ID)
	assert.Equal(t, 0, l.NumberOfReviews)
	assert.Empty(t, l.Reviews)
	assert.Equal(t, fixedNow, l.CreatedAt)

	assert.IsType(t, primitive.Decimal128{}, l.Attributes["price"])
	assert.Equal(t, int64(2), l.Attributes["beds"])
	assert.Equal(t, "cosy", l.Attributes["notes"])
	assert.NotContains(t, l.Attributes, "description")
	assert.NotContains(t, l.Attributes, "id")
	assert.Equal(t, bson.A{"Wifi", "Kitchen"}, l.Attributes["amenities"])
	assert.Equal(t, true, l.Attributes["host_is_superhost"])

	coords := l.Attributes["address"].(bson.M)["location"].(bson.M)["coordinates"].(bson.A)
	assert.Equal(t, -8.6, coords[0])
}

func TestNewListingPrefersUnderscoreID(t *testing.T) {
	l, err := NewListing(mustDecode(t, `{"_id": "A", "id": "B"}`), fixedNow, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", l.ID)
}

func TestNewListingValidation(t *testing.T) {
	cases := map[string]string{
		"missing id":        `{"name": "x"}`,
		"empty id":          `{"id": "  "}`,
		"bad price":         `{"id": "L", "price": "cheap"}`,
		"nan price":         `{"id": "L", "price": "NaN"}`,
		"fractional beds":   `{"id": "L", "beds": 1.5}`,
		"string name":       `{"id": "L", "name": 5}`,
		"amenities type":    `{"id": "L", "amenities": ["a", 1]}`,
		"address type":      `{"id": "L", "address": "street"}`,
		"dotted key":        `{"id": "L", "address.street": "x"}`,
		"operator key":      `{"id": "L", "$set": {}}`,
		"review no author":  `{"id": "L", "reviews": [{"comments": "x"}]}`,
		"reviews not array": `{"id": "L", "reviews": {}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewListing(mustDecode(t, body), fixedNow, nil)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestNewListingWithEmbeddedReviews(t *testing.T) {
	l, err := NewListing(mustDecode(t, `{"id": "L", "number_of_reviews": 99,
		"reviews": [{"_id": "r1", "reviewer_id": "u1"}, {"reviewer_id": 7}]}`), fixedNow, nil)
	require.NoError(t, err)
	require.Len(t, l.Reviews, 2)
	assert.Equal(t, 2, l.NumberOfReviews)
	assert.Equal(t, "7", l.Reviews[1].ReviewerID)
	assert.Equal(t, "L", l.Reviews[0].ListingID)
}

func TestNewListingEmbeddedReviewsGetDistinctIDs(t *testing.T) {
	body := `{"id": "L", "reviews": [{"reviewer_id": "u1"}, {"reviewer_id": "u2"}, {"reviewer_id": "u3"}]}`

	l, err := NewListing(mustDecode(t, body), fixedNow, nil)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, r := range l.Reviews {
		require.NotEmpty(t, r.ID)
		assert.False(t, seen[r.ID], "duplicate review id %s", r.ID)
		seen[r.ID] = true
	}

	n := 0
	seq := func() string { n++; return fmt.Sprintf("r%d", n) }
	l, err = NewListing(mustDecode(t, body), fixedNow, seq)
	require.NoError(t, err)
	assert.Equal(t, "r1", l.Reviews[0].ID)
	assert.Equal(t, "r3", l.Reviews[2].ID)
}

func TestDescriptionErrorKeepsInputName(t *testing.T) {
	_, err := NewListing(mustDecode(t, `{"id": "L", "description": 3}`), fixedNow, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "description", ve.Field)
}

func TestUpdateFieldsRejectsManaged(t *testing.T) {
	for _, key := range []string{"_id", "id", "reviews", "number_of_reviews", "created_at"} {
		_, err := UpdateFields(map[string]any{key: "x"})
		assert.Error(t, err, key)
	}
	_, err := UpdateFields(map[string]any{})
	assert.Error(t, err)

	set, err := UpdateFields(mustDecode(t, `{"name": "New", "price": "80.50", "summary": null}`))
	require.NoError(t, err)
	assert.Equal(t, "New", set["name"])
	assert.Equal(t, "80.50", set["price"].(primitive.Decimal128).String())
	assert.Contains(t, set, "summary")
	assert.Nil(t, set["summary"])
}

func TestDecodeDocumentRejectsNonObjects(t *testing.T) {
	for _, body := range []string{``, `[]`, `null`, `{"a":1}{"b":2}`, `{bad`} {
		_, err := DecodeDocument(strings.NewReader(body))
		assert.Error(t, err, body)
	}
}

func TestViews(t *testing.T) {
	price, _ := primitive.ParseDecimal128("120.75")
	l := Listing{
		ID: "L9",
		Attributes: bson.M{
			"name":          "Loft",
			"notes":         "bright",
			"price":         price,
			"address":       bson.M{"street": "Lisbon"},
			"images":        bson.M{"picture_url": "http://img/1.jpg"},
			"review_scores": bson.M{"review_scores_rating": int32(93)},
		},
	}

	s := l.Summary()
	assert.Equal(t, Summary{ID: "L9", Title: "Loft", Price: 120.75, Location: "Lisbon", ImageURL: "http://img/1.jpg"}, s)

	d := l.Detail()
	assert.Equal(t, "bright", d.Description)
	assert.Equal(t, float64(93), d.Rating)
	assert.NotNil(t, d.Reviews)
	assert.Empty(t, d.Reviews)

	rl := l.ReviewList()
	assert.Equal(t, "L9", rl.ListingID)
	assert.Equal(t, "Loft", rl.ListingTitle)
	assert.NotNil(t, rl.Reviews)
}

func TestViewsDefaults(t *testing.T) {
	s := Listing{ID: "bare"}.Summary()
	assert.Equal(t, "Unknown", s.Location)
	assert.Equal(t, float64(0), s.Price)
	assert.Equal(t, "", s.ImageURL)
}

func TestCloneIsDeep(t *testing.T) {
	l := Listing{
		ID:         "L",
		Reviews:    []Review{{ID: "r1"}},
		Attributes: bson.M{"address": bson.M{"street": "a"}},
	}
	c := l.Clone()
	c.Reviews[0].ID = "changed"
	c.Attributes["address"].(bson.M)["street"] = "b"
	assert.Equal(t, "r1", l.Reviews[0].ID)
	assert.Equal(t, "a", l.Street())
}

func TestNewReview(t *testing.T) {
	r, err := NewReview("L1", mustDecode(t, `{"reviewer_id": "u1", "comments": "nice"}`), fixedNow, func() string { return "gen" })
	require.NoError(t, err)
	assert.Equal(t, Review{ID: "gen", ListingID: "L1", ReviewerID: "u1", Comments: "nice", Date: fixedNow}, r)

	r, err = NewReview("L1", mustDecode(t, `{"_id": "r5", "reviewer_id": "u1", "date": "2019-02-11T05:00:00"}`), fixedNow, nil)
	require.NoError(t, err)
	assert.Equal(t, "r5", r.ID)
	assert.Equal(t, time.Date(2019, 2, 11, 5, 0, 0, 0, time.UTC), r.Date)

	_, err = NewReview("L1", mustDecode(t, `{"comments": "no author"}`), fixedNow, nil)
	assert.Error(t, err)
	_, err = NewReview("L1", mustDecode(t, `{"reviewer_id": "u1", "date": "yesterday"}`), fixedNow, nil)
	assert.Error(t, err)
	_, err = NewReview("L1", mustDecode(t, `{"reviewer_id": "u1", "comments": 4}`), fixedNow, nil)
	assert.Error(t, err)
}
