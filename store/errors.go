package store

import "errors"

var (
	// ErrNotFound is returned when a referenced account doesn't exist.
	ErrNotFound = errors.New("stitch: account not found")

	// ErrPostNotFound is returned when a referenced post doesn't exist.
	ErrPostNotFound = errors.New("stitch: post not found")

	// ErrUnauthorized is returned when a post update names an owner other
	// than the stored one.
	ErrUnauthorized = errors.New("stitch: owner mismatch")

	// ErrInvalidID is returned when an identifier is not all digits.
	ErrInvalidID = errors.New("stitch: invalid id")

	// ErrInvalidInput is returned when a document is missing a required field.
	ErrInvalidInput = errors.New("stitch: invalid input")

	// ErrUpdateRejected is returned when a write would change nothing.
	ErrUpdateRejected = errors.New("stitch: update changed nothing")

	// ErrConflict is returned when a unique id already exists on create or import.
	ErrConflict = errors.New("stitch: id already exists")

	// ErrUpstreamFetch is returned when the seed feed is unreachable or
	// returns records that don't match the expected shape.
	ErrUpstreamFetch = errors.New("stitch: seed feed fetch failed")
)
