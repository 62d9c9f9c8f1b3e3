// Package repository holds the storage adapters: MySQL for accounts and
// tokens, MongoDB for listings. The sentinel errors below are shared with
// the in-memory adapters so services can map failures without knowing
// which backend is in use.
package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken and ErrEmailTaken are returned when an account insert or
// update would violate a uniqueness constraint.
var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// ErrListingExists is returned when a listing with the same identifier is
// already stored.
var ErrListingExists = errors.New("listing already exists")

// ErrReviewNotFound is returned when a listing exists but holds no review
// with the requested identifier.
var ErrReviewNotFound = errors.New("review not found")
