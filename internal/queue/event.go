// Package queue defines the domain events exchanged over RabbitMQ, the
// publisher used by the services and the audit consumer.
package queue

import "time"

// Event types double as routing keys on the events exchange.
const (
	AccountRegistered = "account.registered"
	ListingCreated    = "listing.created"
	ListingUpdated    = "listing.updated"
	ListingDeleted    = "listing.deleted"
	ReviewAdded       = "listing.review.added"
	ReviewDeleted     = "listing.review.deleted"
)

// Event carries enough context for consumers to log or react without
// querying the stores.
type Event struct {
	Type       string    `json:"type"`
	ListingID  string    `json:"listing_id,omitempty"`
	ReviewID   string    `json:"review_id,omitempty"`
	AccountID  int64     `json:"account_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
