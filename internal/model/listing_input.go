package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError reports a listing or review payload that does not match
// the listing schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindDecimal
	kindInt
	kindObject
	kindStringList
)

// descriptionField is where the description attribute is stored.
const descriptionField = "notes"

var listingSchema = map[string]fieldKind{
	"name":                  kindString,
	"summary":               kindString,
	descriptionField:        kindString,
	"property_type":         kindString,
	"room_type":             kindString,
	"cancellation_policy":   kindString,
	"neighborhood_overview": kindString,
	"transit":               kindString,
	"price":                 kindDecimal,
	"bathrooms":             kindDecimal,
	"security_deposit":      kindDecimal,
	"cleaning_fee":          kindDecimal,
	"extra_people":          kindDecimal,
	"weekly_price":          kindDecimal,
	"monthly_price":         kindDecimal,
	"accommodates":          kindInt,
	"bedrooms":              kindInt,
	"beds":                  kindInt,
	"guests_included":       kindInt,
	"address":               kindObject,
	"location":              kindObject,
	"availability":          kindObject,
	"review_scores":         kindObject,
	"images":                kindObject,
	"amenities":             kindStringList,
}

// managed fields are owned by the listing service and cannot be written
// through create or update payloads.
var managed = map[string]bool{
	"_id":               true,
	"id":                true,
	"reviews":           true,
	"number_of_reviews": true,
	"created_at":        true,
	"updated_at":        true,
}

// DecodeDocument reads a JSON object, keeping numbers as json.Number so
// decimals are not rounded through float64 before conversion.
func DecodeDocument(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &ValidationError{Reason: "request body must be a JSON object"}
		}
		return nil, &ValidationError{Reason: "invalid JSON: " + err.Error()}
	}
	if doc == nil {
		return nil, &ValidationError{Reason: "request body must be a JSON object"}
	}
	if dec.More() {
		return nil, &ValidationError{Reason: "request body must contain a single JSON object"}
	}
	return doc, nil
}

// DecodeDocumentBytes is DecodeDocument over a byte slice.
func DecodeDocumentBytes(b []byte) (map[string]any, error) {
	return DecodeDocument(bytes.NewReader(b))
}

// NewListing builds a listing from a create payload. The identifier is
// taken from "_id" or "id". Reviews in the payload are parsed and
// number_of_reviews is derived from them. Embedded reviews without an id
// get one from newID (uuid.NewString when nil).
func NewListing(doc map[string]any, now time.Time, newID func() string) (Listing, error) {
	id, err := listingID(doc)
	if err != nil {
		return Listing{}, err
	}
	attrs, err := normalize(doc, true)
	if err != nil {
		return Listing{}, err
	}
	l := Listing{
		ID:         id,
		Reviews:    []Review{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Attributes: attrs,
	}
	if raw, ok := doc["reviews"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return Listing{}, invalid("reviews", "must be an array")
		}
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return Listing{}, invalid(fmt.Sprintf("reviews[%d]", i), "must be an object")
			}
			r, err := NewReview(id, obj, now, newID)
			if err != nil {
				return Listing{}, err
			}
			l.Reviews = append(l.Reviews, r)
		}
	}
	l.NumberOfReviews = len(l.Reviews)
	return l, nil
}

// UpdateFields validates a partial update. Managed fields are rejected.
func UpdateFields(doc map[string]any) (bson.M, error) {
	for k := range doc {
		if managed[k] {
			return nil, invalid(k, "cannot be modified")
		}
	}
	if len(doc) == 0 {
		return nil, &ValidationError{Reason: "no fields to update"}
	}
	return normalize(doc, false)
}

func listingID(doc map[string]any) (string, error) {
	raw, ok := doc["_id"]
	field := "_id"
	if !ok || raw == nil {
		raw, ok = doc["id"]
		field = "id"
	}
	if !ok || raw == nil {
		return "", invalid("_id", "is required")
	}
	var id string
	switch v := raw.(type) {
	case string:
		id = strings.TrimSpace(v)
	case json.Number:
		id = v.String()
	default:
		return "", invalid(field, "must be a string")
	}
	if id == "" {
		return "", invalid(field, "must not be empty")
	}
	return id, nil
}

// normalize converts every non-managed attribute to its stored form.
func normalize(doc map[string]any, skipManaged bool) (bson.M, error) {
	out := bson.M{}
	for k, v := range doc {
		if skipManaged && managed[k] {
			continue
		}
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return nil, invalid(k, "is not a valid attribute name")
		}
		key := k
		if k == "description" {
			key = descriptionField
		}
		conv, err := convertField(key, v)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok && ve.Field == key {
				ve.Field = k
			}
			return nil, err
		}
		out[key] = conv
	}
	return out, nil
}

func convertField(key string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	kind, known := listingSchema[key]
	if !known {
		return convertDynamic(key, v)
	}
	switch kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return nil, invalid(key, "must be a string")
		}
		return s, nil
	case kindDecimal:
		return toDecimal(key, v)
	case kindInt:
		return toInt(key, v)
	case kindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, invalid(key, "must be an object")
		}
		return convertDynamic(key, obj)
	case kindStringList:
		items, ok := v.([]any)
		if !ok {
			return nil, invalid(key, "must be an array of strings")
		}
		out := make(bson.A, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, invalid(key, "must be an array of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, invalid(key, "unsupported attribute")
}

// convertDynamic stores free-form values: objects become bson.M, arrays
// bson.A, and numbers int64 when integral or float64 otherwise.
func convertDynamic(key string, v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(bson.M, len(t))
		for k, e := range t {
			if strings.HasPrefix(k, "$") {
				return nil, invalid(key, "nested key %q is not allowed", k)
			}
			c, err := convertDynamic(key, e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make(bson.A, len(t))
		for i, e := range t {
			c, err := convertDynamic(key, e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, invalid(key, "invalid number %s", t.String())
		}
		return f, nil
	default:
		return v, nil
	}
}

func toDecimal(key string, v any) (any, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	default:
		return nil, invalid(key, "must be a decimal number")
	}
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return nil, invalid(key, "must be a decimal number")
	}
	if _, ok := ToFloat(d); !ok {
		return nil, invalid(key, "must be a finite decimal number")
	}
	return d, nil
}

func toInt(key string, v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t), nil
		}
	}
	return nil, invalid(key, "must be an integer")
}

// NewReview builds a review for listingID from a request payload.
// reviewer_id is required; _id defaults to newID() (uuid.NewString when
// newID is nil) and date defaults to now.
func NewReview(listingID string, doc map[string]any, now time.Time, newID func() string) (Review, error) {
	reviewer, err := idString(doc, "reviewer_id")
	if err != nil {
		return Review{}, err
	}
	if reviewer == "" {
		return Review{}, invalid("reviewer_id", "is required")
	}
	id, err := idString(doc, "_id")
	if err != nil {
		return Review{}, err
	}
	if id == "" {
		if id, err = idString(doc, "id"); err != nil {
			return Review{}, err
		}
	}
	if id == "" {
		if newID == nil {
			newID = uuid.NewString
		}
		id = newID()
	}
	name, err := optString(doc, "reviewer_name")
	if err != nil {
		return Review{}, err
	}
	comments, err := optString(doc, "comments")
	if err != nil {
		return Review{}, err
	}
	date := now
	if raw, ok := doc["date"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return Review{}, invalid("date", "must be an ISO-8601 string")
		}
		if date, err = parseDate(s); err != nil {
			return Review{}, invalid("date", "must be an ISO-8601 string")
		}
	}
	return Review{
		ID:           id,
		ListingID:    listingID,
		ReviewerID:   reviewer,
		ReviewerName: name,
		Comments:     comments,
		Date:         date.UTC(),
	}, nil
}

func idString(doc map[string]any, key string) (string, error) {
	switch v := doc[key].(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", invalid(key, "must be a string")
	}
}

func optString(doc map[string]any, key string) (string, error) {
	switch v := doc[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", invalid(key, "must be a string")
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
